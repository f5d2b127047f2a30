package telnet

import (
	"bytes"
	"io"
)

// Writer encodes outbound traffic onto an underlying writer: application data
// is IAC-escaped, commands and subnegotiations are framed.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) Write(p []byte) (n int, err error) {
	// If there are no IAC bytes, just write directly
	if bytes.IndexByte(p, IAC) == -1 {
		return w.w.Write(p)
	}

	if _, err = w.w.Write(Escape(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteCommand sends a Telnet command sequence.
// It automatically prepends IAC.
// Example: WriteCommand(WILL, ECHO) sends IAC WILL ECHO
func (w *Writer) WriteCommand(cmds ...byte) error {
	data := make([]byte, 1+len(cmds))
	data[0] = IAC
	copy(data[1:], cmds)
	_, err := w.w.Write(data)
	return err
}

// WriteSubNegotiation sends a sub-negotiation sequence.
// It automatically wraps the data in IAC SB ... IAC SE.
func (w *Writer) WriteSubNegotiation(option byte, data []byte) error {
	_, err := w.w.Write(EncodeSubnegotiation(option, data))
	return err
}

// WriteAction sends an outbound action produced by the negotiator.
func (w *Writer) WriteAction(a Action) error {
	if a.Kind == ActionCommand {
		return w.WriteCommand(a.Verb, a.Option)
	}
	_, err := w.w.Write(a.Data)
	return err
}
