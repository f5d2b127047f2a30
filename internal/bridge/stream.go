package bridge

import (
	"bytes"
	"io"
	"log/slog"
	"sync"

	"telnetd/internal/network/telnet"
	"telnetd/internal/nodes"
)

// Stream presents one connection as an io.ReadWriteCloser.
type Stream struct {
	id     ConnectionID
	bridge *Bridge

	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	eof    bool
	reason error
}

func newStream(id ConnectionID, b *Bridge) *Stream {
	s := &Stream{id: id, bridge: b}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *Stream) ID() ConnectionID {
	return s.id
}

// Read blocks until data arrives or the connection goes away, then returns
// io.EOF.
func (s *Stream) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.buf.Len() == 0 && !s.eof {
		s.cond.Wait()
	}
	if s.buf.Len() > 0 {
		return s.buf.Read(p)
	}
	return 0, io.EOF
}

func (s *Stream) Write(p []byte) (int, error) {
	if err := s.bridge.Send(s.id, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close closes the connection. Pending reads return io.EOF.
func (s *Stream) Close() error {
	s.hangup(nil)
	return s.bridge.Close(s.id)
}

func (s *Stream) TerminalInfo() telnet.TerminalInfo {
	info, _ := s.bridge.TerminalInfo(s.id)
	return info
}

func (s *Stream) RequestOption(option byte, enable bool, dir telnet.Direction) error {
	return s.bridge.RequestOption(s.id, option, enable, dir)
}

// Broadcast sends data to every other connection.
func (s *Stream) Broadcast(data []byte) int {
	return s.bridge.Broadcast(data, s.id)
}

// Reason is the disconnect reason once the connection is gone.
func (s *Stream) Reason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *Stream) push(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.eof {
		return
	}
	s.buf.Write(data)
	s.cond.Broadcast()
}

func (s *Stream) hangup(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.eof {
		s.eof = true
		s.reason = reason
	}
	s.cond.Broadcast()
}

// StreamService runs fn on its own goroutine for each new connection.
type StreamService struct {
	bridge *Bridge
	fn     func(*Stream)

	mu      sync.Mutex
	streams map[ConnectionID]*Stream
	wg      sync.WaitGroup
}

// NewStreamBridge returns a Bridge whose service is a StreamService running
// fn.
func NewStreamBridge(manager *nodes.Manager, logger *slog.Logger, fn func(*Stream)) (*Bridge, *StreamService) {
	svc := &StreamService{
		fn:      fn,
		streams: make(map[ConnectionID]*Stream),
	}
	svc.bridge = New(manager, svc, logger)
	return svc.bridge, svc
}

func (s *StreamService) Stream(id ConnectionID) (*Stream, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[id]
	return st, ok
}

// Wait blocks until every fn started so far has returned.
func (s *StreamService) Wait() {
	s.wg.Wait()
}

func (s *StreamService) OnConnect(id ConnectionID) {
	st := newStream(id, s.bridge)

	s.mu.Lock()
	s.streams[id] = st
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.fn(st)
	}()
}

func (s *StreamService) OnData(id ConnectionID, data []byte) {
	if st, ok := s.Stream(id); ok {
		st.push(data)
	}
}

func (s *StreamService) OnOptionChanged(id ConnectionID, option byte, enabled bool, dir telnet.Direction) {
	s.bridge.logger.Debug("Option changed", "conn", id, "opt", telnet.OptionName(option), "dir", dir, "enabled", enabled)
}

func (s *StreamService) OnDisconnect(id ConnectionID, reason error) {
	s.mu.Lock()
	st, ok := s.streams[id]
	delete(s.streams, id)
	s.mu.Unlock()

	if ok {
		st.hangup(reason)
	}
}
