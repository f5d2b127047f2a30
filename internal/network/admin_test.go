package network_test

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"telnetd/internal/app"
	"telnetd/internal/network"
	"telnetd/internal/network/telnet"
)

var _ = Describe("Admin server", func() {
	var handler http.Handler

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	BeforeEach(func() {
		handler = network.NewAdmin().Handler()
	})

	It("answers health checks", func() {
		rec := get("/healthz")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal("ok\n"))
	})

	It("exposes metrics", func() {
		rec := get("/metrics")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("telnetd_connections_total"))
	})

	It("lists live connections", func() {
		Expect(get("/connections").Body.String()).To(Equal("[]\n"))

		serverConn, clientConn := net.Pipe()
		defer clientConn.Close()
		defer serverConn.Close()

		node, err := app.Nodes.Acquire()
		Expect(err).NotTo(HaveOccurred())
		conn := telnet.NewConnection(serverConn, node.ID, app.Protocol, app.Logger)
		Expect(app.Nodes.Attach(node.ID, conn)).To(Succeed())

		var list []network.ConnectionInfo
		Expect(json.Unmarshal(get("/connections").Body.Bytes(), &list)).To(Succeed())
		Expect(list).To(HaveLen(1))
		Expect(list[0].ID).To(Equal(node.ID))
		Expect(list[0].RemoteAddr).To(Equal("pipe"))
	})

	It("serves the connection history", func() {
		record, err := app.Store.RecordConnect(3, "10.0.0.1:5000", time.Now())
		Expect(err).NotTo(HaveOccurred())

		rec := get("/connections/history?limit=10")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("10.0.0.1:5000"))

		Expect(get("/connections/history?limit=x").Code).To(Equal(http.StatusBadRequest))
		Expect(get("/connections/history/999").Code).To(Equal(http.StatusNotFound))
		Expect(get("/connections/history/abc").Code).To(Equal(http.StatusBadRequest))

		rec = get("/connections/history/" + strconv.FormatUint(uint64(record.ID), 10))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"ConnectionID":3`))
	})
})
