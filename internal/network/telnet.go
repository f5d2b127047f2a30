package network

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"telnetd/internal/app"
	"telnetd/internal/config"
	"telnetd/internal/metrics"
	"telnetd/internal/network/telnet"
	"telnetd/internal/nodes"
	"telnetd/internal/store"
)

const rejectMessage = "The system is full, please try again later.\r\n"

type Telnet struct {
	config   config.TelnetListenerConfig
	protocol telnet.Config
	nodes    *nodes.Manager
	store    *store.Store
	handler  telnet.Handler
	logger   *slog.Logger

	mu     sync.Mutex
	ln     net.Listener
	ctx    context.Context
	cancel context.CancelFunc
	conns  sync.WaitGroup
}

// NewTelnet builds a listener from the booted app state. handler receives
// the events of every accepted connection.
func NewTelnet(handler telnet.Handler) *Telnet {
	ctx, cancel := context.WithCancel(context.Background())
	return &Telnet{
		config:   app.Config.Listeners.Telnet,
		protocol: app.Protocol,
		nodes:    app.Nodes,
		store:    app.Store,
		handler:  handler,
		logger:   app.Logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Telnet) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Stop is called.
func (s *Telnet) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	defer ln.Close()

	s.logger.Info("Telnet server listening", "addr", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			// Check if the error is due to the listener being closed
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Error("Telnet accept error", "err", err)
			continue
		}
		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handleConnection(conn)
		}()
	}
}

// Addr returns the bound address once Serve is running.
func (s *Telnet) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop closes the listener. Connections already accepted keep running.
func (s *Telnet) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Close()
	}
	return nil
}

// Shutdown stops accepting and aborts every open connection, waiting for
// them to finish or for ctx to end.
func (s *Telnet) Shutdown(ctx context.Context) error {
	s.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Telnet) handleConnection(conn net.Conn) {
	node, err := s.nodes.Acquire()
	if err != nil {
		s.logger.Warn("Connection rejected: system full", "addr", conn.RemoteAddr())
		metrics.ConnectionsRejected.Inc()
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		io.WriteString(conn, rejectMessage)
		conn.Close()
		return
	}
	defer s.nodes.Release(node.ID)

	telnetConn := telnet.NewConnection(conn, node.ID, s.protocol, s.logger)
	logger := telnetConn.Logger()

	// Assign connection to node for cross-node comms
	if err := s.nodes.Attach(node.ID, telnetConn); err != nil {
		logger.Error("Failed to attach connection", "err", err)
		conn.Close()
		return
	}

	logger.Debug("Telnet connection from", "addr", telnetConn.RemoteAddr())
	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()
	defer metrics.ConnectionsActive.Dec()

	var record *store.ConnectionRecord
	if s.store != nil {
		record, err = s.store.RecordConnect(node.ID, conn.RemoteAddr().String(), node.ConnectedAt)
		if err != nil {
			logger.Error("Failed to record connection", "err", err)
		}
	}

	// Serve blocks until either side closes
	reason := telnetConn.Serve(s.ctx, s.handler)

	cause := disconnectCause(reason)
	metrics.Disconnects.WithLabelValues(cause).Inc()
	logger.Info("Telnet connection closed", "cause", cause, "reason", reason)

	if record != nil {
		info := telnetConn.TerminalInfo()
		in, out := telnetConn.Stats()
		d := store.Disconnect{
			TerminalType: info.Type,
			Width:        info.Width,
			Height:       info.Height,
			BytesIn:      in,
			BytesOut:     out,
			Reason:       cause,
			At:           time.Now(),
		}
		if reason != nil {
			d.Reason = reason.Error()
		}
		if err := s.store.RecordDisconnect(record, d); err != nil {
			logger.Error("Failed to record disconnect", "err", err)
		}
	}
}

// disconnectCause is the metrics label for a disconnect reason.
func disconnectCause(reason error) string {
	switch {
	case reason == nil:
		return "closed"
	case errors.Is(reason, io.EOF):
		return "hangup"
	case errors.Is(reason, telnet.ErrProtocolViolation):
		return "protocol"
	case errors.Is(reason, context.Canceled):
		return "shutdown"
	}
	return "transport"
}
