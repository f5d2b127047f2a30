package telnet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"telnetd/internal/metrics"
)

// Handler receives the events of a connection. Calls are made from the
// connection's own goroutine, one at a time.
type Handler interface {
	OnConnect(c *Connection)
	OnData(c *Connection, data []byte)
	OnOptionChanged(c *Connection, change OptionChange)
	OnDisconnect(c *Connection, reason error)
}

type commandKind int

const (
	cmdSend commandKind = iota
	cmdSubnegotiation
	cmdRequest
	cmdClose
)

type command struct {
	kind   commandKind
	data   []byte
	option byte
	enable bool
	dir    Direction
}

// Connection runs one Session over a socket. Serve owns the session; the
// other methods only queue work for it and may be called from any goroutine,
// including from inside Handler callbacks.
type Connection struct {
	conn    net.Conn
	cfg     Config
	session *Session
	logger  *slog.Logger

	mu       sync.RWMutex
	outbox   []command
	closed   bool
	terminal TerminalInfo

	// State tracking, mirrored from the session for readers on other
	// goroutines
	localOptions  [256]bool
	remoteOptions [256]bool

	wake   chan struct{}
	done   chan struct{}
	reason error
}

func NewConnection(conn net.Conn, id uint64, cfg Config, logger *slog.Logger) *Connection {
	if cfg.ReadBufferSize <= 0 {
		cfg.ReadBufferSize = 4096
	}
	logger = logger.With("conn", id, "addr", conn.RemoteAddr())
	return &Connection{
		conn:    conn,
		cfg:     cfg,
		session: NewSession(id, cfg, logger),
		logger:  logger,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

func (c *Connection) ID() uint64 {
	return c.session.ID()
}

func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *Connection) Logger() *slog.Logger {
	return c.logger
}

// Done is closed once Serve has returned.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// TerminalInfo returns what the peer has reported about its terminal so far.
func (c *Connection) TerminalInfo() TerminalInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.terminal
}

// IsLocalOptionEnabled checks if we have enabled a specific option
func (c *Connection) IsLocalOptionEnabled(option byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.localOptions[option]
}

// IsRemoteOptionEnabled checks if the client has enabled a specific option
func (c *Connection) IsRemoteOptionEnabled(option byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.remoteOptions[option]
}

// Stats returns the wire bytes received and sent. Call it from a Handler
// callback or after Done is closed.
func (c *Connection) Stats() (in, out int64) {
	return c.session.BytesIn(), c.session.BytesOut()
}

// Send queues application data. IAC bytes are escaped on the wire.
func (c *Connection) Send(data []byte) error {
	return c.enqueue(command{kind: cmdSend, data: append([]byte(nil), data...)})
}

// Write implements io.Writer on top of Send.
func (c *Connection) Write(p []byte) (int, error) {
	if err := c.Send(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// SendSubNegotiation queues an IAC SB <option> ... IAC SE frame.
func (c *Connection) SendSubNegotiation(option byte, payload []byte) error {
	return c.enqueue(command{kind: cmdSubnegotiation, option: option, data: append([]byte(nil), payload...)})
}

// RequestOption asks to enable or disable an option in a direction. The
// outcome is reported through Handler.OnOptionChanged.
func (c *Connection) RequestOption(option byte, enable bool, dir Direction) error {
	if enable && !c.cfg.Options.Supports(option, dir) {
		return fmt.Errorf("%w: %s (%s)", ErrUnsupportedOption, OptionName(option), dir)
	}
	return c.enqueue(command{kind: cmdRequest, option: option, enable: enable, dir: dir})
}

// Close asks for a graceful close: queued output is written first.
func (c *Connection) Close() error {
	return c.enqueue(command{kind: cmdClose})
}

func (c *Connection) enqueue(cmd command) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.outbox = append(c.outbox, cmd)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
		// wake pending
	}
	return nil
}

// Serve runs the connection until it closes and returns the disconnect
// reason: nil after Close, io.EOF when the peer hung up, an ErrTransport or
// ErrProtocolViolation wrapped error otherwise.
func (c *Connection) Serve(ctx context.Context, h Handler) error {
	defer close(c.done)

	reads := make(chan []byte)
	readErrs := make(chan error, 1)
	go c.readLoop(reads, readErrs)

	c.session.Start(time.Now())
	h.OnConnect(c)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		if err := c.flush(); err != nil {
			return c.abort(h, err)
		}
		if c.session.State() == StateClosing {
			return c.finish(h)
		}

		var timeout <-chan time.Time
		if deadline, ok := c.session.NextDeadline(); ok {
			timer.Reset(time.Until(deadline))
			timeout = timer.C
		} else {
			timer.Stop()
		}

		select {
		case <-ctx.Done():
			return c.abort(h, ctx.Err())

		case buf := <-reads:
			metrics.BytesReceived.Add(float64(len(buf)))
			c.dispatch(h, c.session.Receive(buf, time.Now()))

		case err := <-readErrs:
			if !errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w: %w", ErrTransport, err)
			}
			return c.abort(h, err)

		case <-c.wake:
			c.drainOutbox(h)

		case <-timeout:
			c.dispatch(h, c.session.Tick(time.Now()))
		}
	}
}

func (c *Connection) readLoop(reads chan<- []byte, errs chan<- error) {
	for {
		buf := make([]byte, c.cfg.ReadBufferSize)
		n, err := c.conn.Read(buf)
		if n > 0 {
			select {
			case reads <- buf[:n]:
			case <-c.done:
				return
			}
		}
		if err != nil {
			select {
			case errs <- err:
			case <-c.done:
			}
			return
		}
	}
}

func (c *Connection) dispatch(h Handler, updates []Update) {
	for _, u := range updates {
		switch u.Kind {
		case UpdateData:
			h.OnData(c, u.Data)
		case UpdateOption:
			c.setOption(u.Change)
			if errors.Is(u.Err, ErrNegotiationTimeout) {
				metrics.NegotiationTimeouts.Inc()
			}
			metrics.OptionChanges.WithLabelValues(OptionName(u.Change.Option), u.Change.Direction.String(), strconv.FormatBool(u.Change.Enabled)).Inc()
			h.OnOptionChanged(c, u.Change)
		case UpdateFatal:
			c.reason = u.Err
		}
	}

	c.mu.Lock()
	c.terminal = c.session.TerminalInfo()
	c.mu.Unlock()
}

func (c *Connection) setOption(change OptionChange) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if change.Direction == Remote {
		c.remoteOptions[change.Option] = change.Enabled
	} else {
		c.localOptions[change.Option] = change.Enabled
	}
}

func (c *Connection) drainOutbox(h Handler) {
	c.mu.Lock()
	cmds := c.outbox
	c.outbox = nil
	c.mu.Unlock()

	for _, cmd := range cmds {
		var err error
		switch cmd.kind {
		case cmdSend:
			err = c.session.Send(cmd.data)
		case cmdSubnegotiation:
			err = c.session.SendSubnegotiation(cmd.option, cmd.data)
		case cmdRequest:
			err = c.session.Request(cmd.option, cmd.enable, cmd.dir, time.Now())
		case cmdClose:
			c.session.Close()
		}
		if err != nil {
			c.logger.Debug("Telnet command dropped", "err", err)
		}
	}
}

func (c *Connection) flush() error {
	out := c.session.Outbound()
	if len(out) == 0 {
		return nil
	}
	if c.cfg.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	}
	n, err := c.conn.Write(out)
	metrics.BytesSent.Add(float64(n))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return nil
}

func (c *Connection) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.outbox = nil
	c.mu.Unlock()
}

// abort drops unsent output and closes the socket at once.
func (c *Connection) abort(h Handler, reason error) error {
	c.markClosed()
	c.session.Abort()
	c.conn.Close()
	c.reason = reason
	c.logger.Debug("Telnet connection aborted", "reason", reason)
	h.OnDisconnect(c, reason)
	return reason
}

// finish closes a drained session.
func (c *Connection) finish(h Handler) error {
	c.markClosed()
	c.session.Finish()
	c.conn.Close()
	h.OnDisconnect(c, c.reason)
	return c.reason
}
