package telnet

import (
	"bytes"
	"fmt"
)

// Subnegotiation is a decoded IAC SB <option> ... IAC SE frame.
type Subnegotiation struct {
	Option  byte
	Payload []byte
}

// Escape doubles every IAC byte in data.
func Escape(data []byte) []byte {
	n := bytes.Count(data, []byte{IAC})
	if n == 0 {
		return append([]byte(nil), data...)
	}
	out := make([]byte, 0, len(data)+n)
	for _, b := range data {
		out = append(out, b)
		if b == IAC {
			out = append(out, IAC)
		}
	}
	return out
}

// Unescape reverses Escape for a plain data run. A dangling IAC returns
// ErrIncomplete, an IAC that starts a command returns ErrProtocolViolation.
func Unescape(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != IAC {
			out = append(out, data[i])
			continue
		}
		if i+1 == len(data) {
			return nil, ErrIncomplete
		}
		if data[i+1] != IAC {
			return nil, fmt.Errorf("%w: command %s in data run", ErrProtocolViolation, CommandName(data[i+1]))
		}
		out = append(out, IAC)
		i++
	}
	return out, nil
}

// EncodeSubnegotiation wraps payload in IAC SB <option> ... IAC SE, escaping
// any IAC inside the payload.
func EncodeSubnegotiation(option byte, payload []byte) []byte {
	escaped := Escape(payload)
	buf := make([]byte, 0, 5+len(escaped))
	buf = append(buf, IAC, SB, option)
	buf = append(buf, escaped...)
	return append(buf, IAC, SE)
}

// DecodeSubnegotiation parses one complete frame as produced by
// EncodeSubnegotiation.
func DecodeSubnegotiation(frame []byte) (Subnegotiation, error) {
	if len(frame) < 3 && bytes.HasPrefix([]byte{IAC, SB}, frame) {
		return Subnegotiation{}, ErrIncomplete
	}
	if len(frame) < 3 || frame[0] != IAC || frame[1] != SB {
		return Subnegotiation{}, fmt.Errorf("%w: frame does not start with IAC SB", ErrProtocolViolation)
	}

	sub := Subnegotiation{Option: frame[2], Payload: []byte{}}
	body := frame[3:]
	for i := 0; i < len(body); i++ {
		if body[i] != IAC {
			sub.Payload = append(sub.Payload, body[i])
			continue
		}
		if i+1 == len(body) {
			return Subnegotiation{}, ErrIncomplete
		}
		switch body[i+1] {
		case IAC:
			sub.Payload = append(sub.Payload, IAC)
			i++
		case SE:
			if i+2 != len(body) {
				return Subnegotiation{}, fmt.Errorf("%w: trailing bytes after IAC SE", ErrProtocolViolation)
			}
			return sub, nil
		default:
			return Subnegotiation{}, fmt.Errorf("%w: IAC %s inside subnegotiation", ErrProtocolViolation, CommandName(body[i+1]))
		}
	}
	return Subnegotiation{}, ErrIncomplete
}
