package telnet_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"telnetd/internal/network/telnet"
)

// coalesce merges adjacent data events, which is the only difference feeding
// a stream in pieces is allowed to make.
func coalesce(events []telnet.Event) []telnet.Event {
	var out []telnet.Event
	for _, ev := range events {
		if ev.Kind == telnet.EventData && len(out) > 0 && out[len(out)-1].Kind == telnet.EventData {
			last := &out[len(out)-1]
			last.Data = append(append([]byte(nil), last.Data...), ev.Data...)
			continue
		}
		out = append(out, ev)
	}
	return out
}

var _ = Describe("Scanner", func() {
	var scanner *telnet.Scanner

	BeforeEach(func() {
		scanner = telnet.NewScanner(64, true)
	})

	It("emits plain bytes as one data run", func() {
		events := scanner.Feed([]byte("hello"))
		Expect(events).To(Equal([]telnet.Event{{Kind: telnet.EventData, Data: []byte("hello")}}))
	})

	It("de-escapes IAC IAC inside a data run", func() {
		events := scanner.Feed([]byte{0x41, telnet.IAC, telnet.IAC, 0x42})
		Expect(events).To(Equal([]telnet.Event{{Kind: telnet.EventData, Data: []byte{0x41, 0xFF, 0x42}}}))
	})

	It("flushes data before a negotiation command", func() {
		events := scanner.Feed([]byte{'a', telnet.IAC, telnet.DO, telnet.Echo, 'b'})
		Expect(events).To(Equal([]telnet.Event{
			{Kind: telnet.EventData, Data: []byte("a")},
			{Kind: telnet.EventNegotiation, Verb: telnet.DO, Option: telnet.Echo},
			{Kind: telnet.EventData, Data: []byte("b")},
		}))
	})

	It("emits a subnegotiation exactly once", func() {
		input := append([]byte{telnet.IAC, telnet.SB, telnet.TType}, []byte("xterm")...)
		input = append(input, telnet.IAC, telnet.SE)

		events := scanner.Feed(input)
		Expect(events).To(HaveLen(1))
		Expect(events[0].Kind).To(Equal(telnet.EventSubnegotiation))
		Expect(events[0].Option).To(Equal(byte(24)))
		Expect(events[0].Data).To(Equal([]byte("xterm")))
	})

	It("de-escapes IAC inside a subnegotiation payload", func() {
		events := scanner.Feed([]byte{telnet.IAC, telnet.SB, 200, 1, telnet.IAC, telnet.IAC, 2, telnet.IAC, telnet.SE})
		Expect(events).To(HaveLen(1))
		Expect(events[0].Data).To(Equal([]byte{1, 0xFF, 2}))
	})

	It("waits for the rest of a command split across reads", func() {
		Expect(scanner.Feed([]byte{'x', telnet.IAC})).To(Equal([]telnet.Event{{Kind: telnet.EventData, Data: []byte("x")}}))
		Expect(scanner.Pending()).To(BeTrue())
		Expect(scanner.Feed([]byte{telnet.WILL})).To(BeEmpty())
		Expect(scanner.Feed([]byte{telnet.NAWS})).To(Equal([]telnet.Event{
			{Kind: telnet.EventNegotiation, Verb: telnet.WILL, Option: telnet.NAWS},
		}))
		Expect(scanner.Pending()).To(BeFalse())
	})

	It("passes two-byte commands through when configured", func() {
		events := scanner.Feed([]byte{telnet.IAC, telnet.NOP, telnet.IAC, telnet.AYT})
		Expect(events).To(Equal([]telnet.Event{
			{Kind: telnet.EventCommand, Verb: telnet.NOP},
			{Kind: telnet.EventCommand, Verb: telnet.AYT},
		}))
	})

	It("drops two-byte commands when pass-through is off", func() {
		quiet := telnet.NewScanner(64, false)
		events := quiet.Feed([]byte{'a', telnet.IAC, telnet.BRK, 'b'})
		Expect(coalesce(events)).To(Equal([]telnet.Event{{Kind: telnet.EventData, Data: []byte("ab")}}))
	})

	It("discards unknown commands and stray SE", func() {
		events := scanner.Feed([]byte{'a', telnet.IAC, 100, telnet.IAC, telnet.SE, 'b'})
		Expect(coalesce(events)).To(Equal([]telnet.Event{{Kind: telnet.EventData, Data: []byte("ab")}}))
	})

	Context("with an oversized subnegotiation", func() {
		It("emits a fatal event and ignores further input", func() {
			input := append([]byte{telnet.IAC, telnet.SB, telnet.TType}, bytes.Repeat([]byte{'a'}, 65)...)
			events := scanner.Feed(input)
			Expect(events).To(HaveLen(1))
			Expect(events[0].Kind).To(Equal(telnet.EventFatal))
			Expect(events[0].Err).To(MatchError(telnet.ErrProtocolViolation))
			Expect(scanner.Failed()).To(BeTrue())

			Expect(scanner.Feed([]byte("more"))).To(BeEmpty())
		})

		It("accumulates an unterminated payload up to the limit", func() {
			Expect(scanner.Feed(append([]byte{telnet.IAC, telnet.SB, telnet.TType}, bytes.Repeat([]byte{'a'}, 64)...))).To(BeEmpty())
			events := scanner.Feed([]byte{'a'})
			Expect(events).To(HaveLen(1))
			Expect(events[0].Kind).To(Equal(telnet.EventFatal))
		})
	})

	It("treats IAC followed by another command inside SB as malformed", func() {
		events := scanner.Feed([]byte{telnet.IAC, telnet.SB, telnet.NAWS, 0, telnet.IAC, telnet.NOP})
		Expect(events).To(HaveLen(1))
		Expect(events[0].Kind).To(Equal(telnet.EventFatal))
		Expect(events[0].Err).To(MatchError(telnet.ErrProtocolViolation))
	})

	Describe("split invariance", func() {
		stream := []byte{'h', 'i', telnet.IAC, telnet.IAC, telnet.IAC, telnet.DO, telnet.Echo}
		stream = append(stream, telnet.IAC, telnet.SB, telnet.NAWS, 0, 80, telnet.IAC, telnet.IAC, 0, 24, telnet.IAC, telnet.SE)
		stream = append(stream, telnet.IAC, telnet.NOP, 'o', 'k', telnet.IAC, telnet.WONT, telnet.Linemode, telnet.IAC, telnet.IAC)

		It("yields the same events for every split point", func() {
			whole := coalesce(telnet.NewScanner(64, true).Feed(stream))
			Expect(whole).To(HaveLen(7))

			for i := 0; i <= len(stream); i++ {
				s := telnet.NewScanner(64, true)
				events := append(s.Feed(stream[:i]), s.Feed(stream[i:])...)
				Expect(coalesce(events)).To(Equal(whole), "split at %d", i)
			}
		})

		It("yields the same events when fed one byte at a time", func() {
			whole := coalesce(telnet.NewScanner(64, true).Feed(stream))

			s := telnet.NewScanner(64, true)
			var events []telnet.Event
			for _, b := range stream {
				events = append(events, s.Feed([]byte{b})...)
			}
			Expect(coalesce(events)).To(Equal(whole))
		})
	})
})
