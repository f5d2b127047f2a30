package telnet

import "encoding/binary"

// TerminalInfo is what the peer told us about its terminal.
type TerminalInfo struct {
	Type   string
	Width  int
	Height int
}

// applySubnegotiation updates info from a known option payload and reports
// whether anything was recognized.
func (info *TerminalInfo) applySubnegotiation(option byte, data []byte) bool {
	switch option {
	case NAWS:
		// RFC 1073: IAC SB NAWS <16-bit width> <16-bit height> IAC SE
		if len(data) >= 4 {
			info.Width = int(binary.BigEndian.Uint16(data[0:2]))
			info.Height = int(binary.BigEndian.Uint16(data[2:4]))
			return true
		}
	case TType:
		// RFC 1091: IAC SB TTYPE IS <terminal-type-string> IAC SE
		if len(data) > 1 && data[0] == IS {
			info.Type = string(data[1:])
			return true
		}
	}
	return false
}
