package telnet

import "errors"

var (
	// ErrIncomplete reports a command or frame that needs more bytes. It is a
	// framing condition handled by buffering, never a connection failure.
	ErrIncomplete = errors.New("telnet: incomplete command")

	// ErrProtocolViolation is fatal to the connection it occurs on.
	ErrProtocolViolation = errors.New("telnet: protocol violation")

	// ErrNegotiationTimeout marks a request the peer never answered. It is
	// resolved as a refusal.
	ErrNegotiationTimeout = errors.New("telnet: negotiation timeout")

	// ErrTransport wraps I/O failures reported by the socket.
	ErrTransport = errors.New("telnet: transport error")

	ErrClosed            = errors.New("telnet: connection closed")
	ErrUnsupportedOption = errors.New("telnet: unsupported option")
	ErrRequestPending    = errors.New("telnet: opposite request pending")
)
