package telnet

import (
	"strconv"
	"strings"
)

// Byte values of the TELNET protocol.
//
// RFCs of particular interest:
// - RFC 854  : Telnet Protocol Specification
// - RFC 855  : Telnet Option Specifications
// - RFC 856  : Telnet Binary Transmission
// - RFC 857  : Telnet Echo Option
// - RFC 858  : Telnet Suppress Go Ahead Option
// - RFC 885  : Telnet End of Record Option
// - RFC 1073 : Telnet Window Size Option
// - RFC 1091 : Telnet Terminal-Type Option
// - RFC 1143 : The Q Method of Implementing TELNET Option Negotiation
// - RFC 1184 : Telnet Linemode Option

const (
	// RFC 854: Telnet Protocol Specification
	EOR  byte = 239 // End of Record (RFC 885)
	SE   byte = 240 // Sub negotiation End
	NOP  byte = 241 // No Operation
	DM   byte = 242 // Data Mark
	BRK  byte = 243 // Break
	IP   byte = 244 // Interrupt Process
	AO   byte = 245 // Abort Output
	AYT  byte = 246 // Are You There?
	EC   byte = 247 // Erase Character
	EL   byte = 248 // Erase Line
	GA   byte = 249 // Go Ahead
	SB   byte = 250 // Sub negotiation Begin
	WILL byte = 251 // Will
	WONT byte = 252 // Won't
	DO   byte = 253 // Do
	DONT byte = 254 // Don't
	IAC  byte = 255 // Interpret As Command

	// Sub-negotiation Commands
	IS   byte = 0
	SEND byte = 1

	// Linemode (RFC 1184) sub-negotiation
	LinemodeMode byte = 1
	ModeEdit     byte = 1

	// Telnet Options
	TransmitBinary byte = 0   // RFC 856
	Echo           byte = 1   // RFC 857
	SGA            byte = 3   // RFC 858 - Suppress Go Ahead
	Status         byte = 5   // RFC 859
	TimingMark     byte = 6   // RFC 860
	TType          byte = 24  // RFC 1091 - Terminal Type
	EndOfRecord    byte = 25  // RFC 885 - End of Record
	NAWS           byte = 31  // RFC 1073 - Negotiate About Window Size
	TerminalSpeed  byte = 32  // RFC 1079
	Linemode       byte = 34  // RFC 1184
	NewEnviron     byte = 39  // RFC 1572 'NEW-ENVIRON'
	MSSP           byte = 70  // MUD Server Status Protocol
	GMCP           byte = 201 // Generic MUD Communication Protocol
	Exopl          byte = 255 // RFC 861 - Extended Options List
)

// CommandNames maps Telnet command bytes to their string representation.
var CommandNames = map[byte]string{
	EOR:  "EOR",
	SE:   "SE",
	NOP:  "NOP",
	DM:   "DM",
	BRK:  "BRK",
	IP:   "IP",
	AO:   "AO",
	AYT:  "AYT",
	EC:   "EC",
	EL:   "EL",
	GA:   "GA",
	SB:   "SB",
	WILL: "WILL",
	WONT: "WONT",
	DO:   "DO",
	DONT: "DONT",
	IAC:  "IAC",
}

// OptionNames maps Telnet option bytes to their string representation.
var OptionNames = map[byte]string{
	TransmitBinary: "TransmitBinary",
	Echo:           "Echo",
	SGA:            "SGA",
	Status:         "Status",
	TimingMark:     "TimingMark",
	TType:          "TType",
	EndOfRecord:    "EndOfRecord",
	NAWS:           "NAWS",
	TerminalSpeed:  "TerminalSpeed",
	Linemode:       "Linemode",
	NewEnviron:     "NewEnviron",
	MSSP:           "MSSP",
	GMCP:           "GMCP",
	Exopl:          "Exopl",
}

// CommandName returns a printable name for a command byte.
func CommandName(cmd byte) string {
	if name, ok := CommandNames[cmd]; ok {
		return name
	}
	return "Unknown(" + strconv.Itoa(int(cmd)) + ")"
}

// OptionName returns a printable name for an option code.
func OptionName(option byte) string {
	if name, ok := OptionNames[option]; ok {
		return name
	}
	return "Unknown(" + strconv.Itoa(int(option)) + ")"
}

// LookupOption resolves an option given by name (case-insensitive, as in
// OptionNames) or by decimal code.
func LookupOption(name string) (byte, bool) {
	for code, n := range OptionNames {
		if strings.EqualFold(n, name) {
			return code, true
		}
	}
	switch strings.ToLower(name) {
	case "binary":
		return TransmitBinary, true
	case "suppress-go-ahead", "suppressgoahead":
		return SGA, true
	case "terminal-type":
		return TType, true
	case "window-size":
		return NAWS, true
	}
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 || n > 255 {
		return 0, false
	}
	return byte(n), true
}

func isVerb(b byte) bool {
	return b == WILL || b == WONT || b == DO || b == DONT
}
