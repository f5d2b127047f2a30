package telnet

import "fmt"

type scanState int

const (
	stateData     scanState = iota
	stateIAC                // IAC seen
	stateVerb               // WILL/WONT/DO/DONT seen, waiting for option
	stateSBOption           // IAC SB seen, waiting for option
	stateSB                 // inside subnegotiation payload
	stateSBIAC              // IAC seen inside subnegotiation
	stateFailed             // fatal event emitted, input ignored
)

// Scanner splits an inbound byte stream into data runs and IAC commands.
// State survives between calls to Feed, so a command split across two
// network reads decodes exactly as if it arrived in one.
type Scanner struct {
	state       scanState
	verb        byte
	sbOption    byte
	sbPayload   []byte
	maxSub      int
	passThrough bool
}

// NewScanner returns a scanner that fails subnegotiations larger than
// maxSubnegotiation bytes (0 means unbounded) and emits EventCommand for
// two-byte commands when passThrough is set.
func NewScanner(maxSubnegotiation int, passThrough bool) *Scanner {
	return &Scanner{
		maxSub:      maxSubnegotiation,
		passThrough: passThrough,
	}
}

// Pending reports whether the scanner holds an unfinished command.
func (s *Scanner) Pending() bool {
	return s.state != stateData && s.state != stateFailed
}

// Failed reports whether a fatal event has been emitted.
func (s *Scanner) Failed() bool {
	return s.state == stateFailed
}

// Feed consumes one chunk and returns the events it completes, in order.
func (s *Scanner) Feed(buf []byte) []Event {
	var (
		events []Event
		data   []byte
	)

	flush := func() {
		if len(data) > 0 {
			events = append(events, Event{Kind: EventData, Data: data})
			data = nil
		}
	}

	for _, b := range buf {
		switch s.state {
		case stateFailed:
			flush()
			return events

		case stateData:
			if b == IAC {
				s.state = stateIAC
				continue
			}
			data = append(data, b)

		case stateIAC:
			if b == IAC {
				// Escaped IAC (IAC IAC) -> single byte 255
				data = append(data, IAC)
				s.state = stateData
				continue
			}
			flush()
			s.state = stateData

			switch b {
			case WILL, WONT, DO, DONT:
				s.verb = b
				s.state = stateVerb
			case SB:
				s.state = stateSBOption
			case EOR, NOP, DM, BRK, IP, AO, AYT, EC, EL, GA:
				if s.passThrough {
					events = append(events, Event{Kind: EventCommand, Verb: b})
				}
			default:
				// SE outside a subnegotiation and unassigned command bytes
				// are dropped.
			}

		case stateVerb:
			events = append(events, Event{Kind: EventNegotiation, Verb: s.verb, Option: b})
			s.state = stateData

		case stateSBOption:
			s.sbOption = b
			s.sbPayload = []byte{}
			s.state = stateSB

		case stateSB:
			if b == IAC {
				s.state = stateSBIAC
				continue
			}
			if !s.appendPayload(b) {
				return append(events, s.fail(fmt.Errorf("%w: subnegotiation for %s exceeds %d bytes",
					ErrProtocolViolation, OptionName(s.sbOption), s.maxSub)))
			}

		case stateSBIAC:
			switch b {
			case IAC:
				s.state = stateSB
				if !s.appendPayload(IAC) {
					return append(events, s.fail(fmt.Errorf("%w: subnegotiation for %s exceeds %d bytes",
						ErrProtocolViolation, OptionName(s.sbOption), s.maxSub)))
				}
			case SE:
				events = append(events, Event{Kind: EventSubnegotiation, Option: s.sbOption, Data: s.sbPayload})
				s.sbPayload = nil
				s.state = stateData
			default:
				return append(events, s.fail(fmt.Errorf("%w: IAC %s inside subnegotiation for %s",
					ErrProtocolViolation, CommandName(b), OptionName(s.sbOption))))
			}
		}
	}

	flush()
	return events
}

func (s *Scanner) appendPayload(b byte) bool {
	if s.maxSub > 0 && len(s.sbPayload) >= s.maxSub {
		return false
	}
	s.sbPayload = append(s.sbPayload, b)
	return true
}

func (s *Scanner) fail(err error) Event {
	s.state = stateFailed
	s.sbPayload = nil
	return Event{Kind: EventFatal, Err: err}
}
