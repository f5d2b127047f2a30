package store_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"telnetd/internal/store"
)

var _ = Describe("Connection Records", func() {
	var (
		db  *store.Store
		now time.Time
	)

	BeforeEach(func() {
		var err error
		db, err = store.New(":memory:", true)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(db.Close)

		now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	})

	Describe("RecordConnect", func() {
		It("creates an open record", func() {
			record, err := db.RecordConnect(7, "10.0.0.1:5000", now)
			Expect(err).NotTo(HaveOccurred())
			Expect(record.ID).NotTo(BeZero())

			found, err := db.FindConnection(record.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ConnectionID).To(Equal(uint64(7)))
			Expect(found.RemoteAddr).To(Equal("10.0.0.1:5000"))
			Expect(found.Open()).To(BeTrue())
		})
	})

	Describe("RecordDisconnect", func() {
		It("stores the session summary", func() {
			record, _ := db.RecordConnect(1, "10.0.0.1:5000", now)

			err := db.RecordDisconnect(record, store.Disconnect{
				TerminalType: "xterm",
				Width:        132,
				Height:       43,
				BytesIn:      120,
				BytesOut:     4096,
				Reason:       "EOF",
				At:           now.Add(90 * time.Second),
			})
			Expect(err).NotTo(HaveOccurred())

			found, err := db.FindConnection(record.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Open()).To(BeFalse())
			Expect(found.TerminalType).To(Equal("xterm"))
			Expect(found.Width).To(Equal(132))
			Expect(found.Height).To(Equal(43))
			Expect(found.BytesOut).To(Equal(int64(4096)))
			Expect(found.Reason).To(Equal("EOF"))
			Expect(found.Duration()).To(Equal(90 * time.Second))
		})
	})

	Describe("ListConnections", func() {
		It("returns the newest first", func() {
			for i := 0; i < 3; i++ {
				_, err := db.RecordConnect(uint64(i+1), "10.0.0.1:5000", now)
				Expect(err).NotTo(HaveOccurred())
			}

			records, err := db.ListConnections(2)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].ConnectionID).To(Equal(uint64(3)))
			Expect(records[1].ConnectionID).To(Equal(uint64(2)))

			all, err := db.ListConnections(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(3))
		})
	})

	Describe("FindConnection", func() {
		It("fails with an unknown id", func() {
			_, err := db.FindConnection(404)
			Expect(err).To(MatchError(store.ErrConnectionNotFound))
		})
	})
})
