package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"telnetd/internal/config"
	"telnetd/internal/logger"
)

var _ = Describe("Logger", func() {
	var previous *slog.Logger

	BeforeEach(func() {
		previous = slog.Default()
	})

	AfterEach(func() {
		slog.SetDefault(previous)
	})

	It("writes to every configured file", func() {
		dir := GinkgoT().TempDir()
		infoPath := filepath.Join(dir, "logs", "info.log")
		errorPath := filepath.Join(dir, "error.log")

		log := logger.Setup([]config.LoggerConfig{
			{File: infoPath, Level: "info", HideTime: true},
			{File: errorPath, Level: "error"},
		}, false, false)

		log.Info("Telnet server listening", "port", 2323)
		log.Error("Telnet accept error")

		info, err := os.ReadFile(infoPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(info)).To(ContainSubstring("Telnet server listening"))
		Expect(string(info)).To(ContainSubstring("port=2323"))
		Expect(string(info)).To(ContainSubstring("Telnet accept error"))

		errs, err := os.ReadFile(errorPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(errs)).NotTo(ContainSubstring("listening"))
		Expect(string(errs)).To(ContainSubstring("Telnet accept error"))
	})

	It("lowers every sink to debug when asked", func() {
		path := filepath.Join(GinkgoT().TempDir(), "debug.log")
		log := logger.Setup([]config.LoggerConfig{{File: path, Level: "error"}}, true, false)
		log.Debug("Telnet command [IN]", "cmd", "DO")

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("Telnet command [IN]"))
	})

	It("discards everything when quiet", func() {
		log := logger.Setup(nil, true, true)
		Expect(log.Enabled(context.Background(), slog.LevelError)).To(BeFalse())
	})
})

var _ = Describe("Fanout", func() {
	It("forwards records and attributes to enabled handlers", func() {
		var debug, warn bytes.Buffer
		fanout := logger.NewFanout(
			slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
			slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
		)
		log := slog.New(fanout).With("conn", 7).WithGroup("telnet")

		Expect(fanout.Enabled(context.Background(), slog.LevelDebug)).To(BeTrue())

		log.Debug("negotiation", "opt", "Echo")
		log.Warn("violation")

		Expect(debug.String()).To(ContainSubstring("conn=7"))
		Expect(debug.String()).To(ContainSubstring("telnet.opt=Echo"))
		Expect(debug.String()).To(ContainSubstring("violation"))
		Expect(warn.String()).NotTo(ContainSubstring("negotiation"))
		Expect(warn.String()).To(ContainSubstring("violation"))
	})
})
