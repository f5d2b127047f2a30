package telnet

import "time"

// InitialRequest is an option the server asks for as soon as a connection
// opens.
type InitialRequest struct {
	Option    byte
	Direction Direction
}

// Config is the protocol configuration shared by every connection. It is
// built once at startup and passed by value.
type Config struct {
	Options               OptionTable
	NegotiationTimeout    time.Duration
	MaxSubnegotiationSize int

	// PassThroughCommands logs two-byte commands (NOP, BRK, IP, ...) and lets
	// the session act on them. When false they are dropped by the scanner.
	PassThroughCommands bool

	// TranslateEditCommands delivers IAC EC as DEL and IAC EL as Ctrl-U.
	TranslateEditCommands bool

	InitialRequests []InitialRequest
	WriteTimeout    time.Duration
	ReadBufferSize  int
}

// DefaultConfig returns the configuration used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Options:               DefaultOptions(),
		NegotiationTimeout:    2 * time.Second,
		MaxSubnegotiationSize: 8192,
		PassThroughCommands:   true,
		TranslateEditCommands: true,
		InitialRequests: []InitialRequest{
			{Option: Echo, Direction: Local},
			{Option: SGA, Direction: Local},
			{Option: NAWS, Direction: Remote},
			{Option: TType, Direction: Remote},
		},
		WriteTimeout:   10 * time.Second,
		ReadBufferSize: 4096,
	}
}
