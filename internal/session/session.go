package session

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/term"

	"telnetd/internal/bridge"
)

const wallPrefix = "/wall "

// Session is the line service run on every connection: it answers each line
// it reads until the user quits.
type Session struct {
	stream *bridge.Stream
	term   *term.Terminal
	logger *slog.Logger

	width, height int
}

// RunSession blocks until the user quits or the connection goes away.
func RunSession(stream *bridge.Stream, logger *slog.Logger) {
	s := &Session{
		stream: stream,
		logger: logger.With("conn", stream.ID()),
	}
	s.Run()
}

func (s *Session) Run() {
	defer s.stream.Close()

	// term.NewTerminal handles the prompt, line editing, and echo.
	s.term = term.NewTerminal(s.stream, "> ")
	s.resize()

	fmt.Fprintf(s.term, "Connected as #%d. Type quit to leave.\n", s.stream.ID())

	for {
		line, err := s.term.ReadLine()
		if err != nil {
			if err != io.EOF {
				s.logger.Error("Error reading line", "err", err)
			}
			return
		}
		s.resize()

		cmd := strings.TrimSpace(line)
		switch {
		case cmd == "":
			continue

		case cmd == "exit" || cmd == "quit":
			fmt.Fprint(s.term, "Goodbye!\n")
			return

		case strings.HasPrefix(cmd, wallPrefix):
			msg := strings.TrimSpace(strings.TrimPrefix(cmd, wallPrefix))
			n := s.stream.Broadcast(fmt.Appendf(nil, "\r\n[#%d] %s\r\n", s.stream.ID(), msg))
			fmt.Fprintf(s.term, "Sent to %d connection(s).\n", n)

		default:
			fmt.Fprintf(s.term, "You sent: %s\n", line)
		}
	}
}

// resize follows window size reports from the client.
func (s *Session) resize() {
	info := s.stream.TerminalInfo()
	if info.Width <= 0 || info.Height <= 0 {
		return
	}
	if info.Width == s.width && info.Height == s.height {
		return
	}
	s.width, s.height = info.Width, info.Height
	if err := s.term.SetSize(s.width, s.height); err != nil {
		s.logger.Debug("Failed to resize terminal", "err", err)
	}
}
