package telnet_test

import (
	"bytes"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"telnetd/internal/network/telnet"
)

var _ = Describe("Escaping and subnegotiation framing", func() {
	payloads := [][]byte{
		{},
		[]byte("xterm"),
		{0xFF},
		{0xFF, 0xFF, 0xFF},
		{0x41, 0xFF, 0x42},
		{telnet.IAC, telnet.SE},
		{0, 80, 0xFF, 24},
	}

	It("escapes IAC in application data", func() {
		Expect(telnet.Escape([]byte{0x41, 0xFF, 0x42})).To(Equal([]byte{0x41, 0xFF, 0xFF, 0x42}))
	})

	It("round trips data runs", func() {
		for _, p := range payloads {
			decoded, err := telnet.Unescape(telnet.Escape(p))
			Expect(err).NotTo(HaveOccurred())
			Expect(decoded).To(Equal(append([]byte{}, p...)))
		}
	})

	It("round trips data runs through the scanner", func() {
		r := rand.New(rand.NewSource(1))
		for i := 0; i < 50; i++ {
			p := make([]byte, r.Intn(40))
			r.Read(p)

			var got []byte
			for _, ev := range telnet.NewScanner(0, true).Feed(telnet.Escape(p)) {
				Expect(ev.Kind).To(Equal(telnet.EventData))
				got = append(got, ev.Data...)
			}
			Expect(bytes.Equal(got, p)).To(BeTrue())
		}
	})

	It("rejects a command inside a data run", func() {
		_, err := telnet.Unescape([]byte{'a', telnet.IAC, telnet.NOP})
		Expect(err).To(MatchError(telnet.ErrProtocolViolation))

		_, err = telnet.Unescape([]byte{'a', telnet.IAC})
		Expect(err).To(MatchError(telnet.ErrIncomplete))
	})

	It("frames a subnegotiation", func() {
		Expect(telnet.EncodeSubnegotiation(telnet.NAWS, []byte{0, 80, 0xFF, 24})).To(Equal([]byte{
			telnet.IAC, telnet.SB, telnet.NAWS, 0, 80, 0xFF, 0xFF, 24, telnet.IAC, telnet.SE,
		}))
	})

	It("round trips payloads and wire frames", func() {
		for _, p := range payloads {
			frame := telnet.EncodeSubnegotiation(telnet.TType, p)
			sub, err := telnet.DecodeSubnegotiation(frame)
			Expect(err).NotTo(HaveOccurred())
			Expect(sub.Option).To(Equal(telnet.TType))
			Expect(sub.Payload).To(Equal(append([]byte{}, p...)))
			Expect(telnet.EncodeSubnegotiation(sub.Option, sub.Payload)).To(Equal(frame))
		}
	})

	It("decodes the same payload the scanner emits", func() {
		frame := telnet.EncodeSubnegotiation(telnet.GMCP, []byte{1, 0xFF, 2})
		events := telnet.NewScanner(0, true).Feed(frame)
		sub, err := telnet.DecodeSubnegotiation(frame)
		Expect(err).NotTo(HaveOccurred())
		Expect(events).To(Equal([]telnet.Event{{Kind: telnet.EventSubnegotiation, Option: telnet.GMCP, Data: sub.Payload}}))
	})

	DescribeTable("invalid frames",
		func(frame []byte, want error) {
			_, err := telnet.DecodeSubnegotiation(frame)
			Expect(err).To(MatchError(want))
		},
		Entry("empty", []byte{}, telnet.ErrIncomplete),
		Entry("only IAC SB", []byte{telnet.IAC, telnet.SB}, telnet.ErrIncomplete),
		Entry("missing IAC SE", []byte{telnet.IAC, telnet.SB, telnet.TType, 'x'}, telnet.ErrIncomplete),
		Entry("dangling IAC", []byte{telnet.IAC, telnet.SB, telnet.TType, 'x', telnet.IAC}, telnet.ErrIncomplete),
		Entry("wrong prefix", []byte{telnet.IAC, telnet.DO, telnet.TType}, telnet.ErrProtocolViolation),
		Entry("command inside", []byte{telnet.IAC, telnet.SB, telnet.TType, telnet.IAC, telnet.NOP, telnet.IAC, telnet.SE}, telnet.ErrProtocolViolation),
		Entry("trailing bytes", []byte{telnet.IAC, telnet.SB, telnet.TType, telnet.IAC, telnet.SE, 'x'}, telnet.ErrProtocolViolation),
	)
})
