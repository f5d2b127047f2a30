// Package bridge connects telnet connections to an application service. The
// service sees connection IDs and plain data; everything it asks for goes
// back through the owning connection's outbox.
package bridge

import (
	"errors"
	"fmt"
	"log/slog"

	"telnetd/internal/network/telnet"
	"telnetd/internal/nodes"
)

type ConnectionID = uint64

var ErrUnknownConnection = errors.New("unknown connection")

// Service is implemented by the application. Callbacks for one connection
// arrive in order on that connection's goroutine; callbacks for different
// connections may run concurrently. A Service may call back into the Bridge
// from inside any callback.
type Service interface {
	OnConnect(id ConnectionID)
	OnData(id ConnectionID, data []byte)
	OnOptionChanged(id ConnectionID, option byte, enabled bool, dir telnet.Direction)
	OnDisconnect(id ConnectionID, reason error)
}

// Bridge implements telnet.Handler on behalf of a Service.
type Bridge struct {
	nodes   *nodes.Manager
	service Service
	logger  *slog.Logger
}

func New(manager *nodes.Manager, service Service, logger *slog.Logger) *Bridge {
	return &Bridge{
		nodes:   manager,
		service: service,
		logger:  logger,
	}
}

func (b *Bridge) OnConnect(c *telnet.Connection) {
	b.service.OnConnect(c.ID())
}

func (b *Bridge) OnData(c *telnet.Connection, data []byte) {
	b.service.OnData(c.ID(), data)
}

func (b *Bridge) OnOptionChanged(c *telnet.Connection, change telnet.OptionChange) {
	b.service.OnOptionChanged(c.ID(), change.Option, change.Enabled, change.Direction)
}

func (b *Bridge) OnDisconnect(c *telnet.Connection, reason error) {
	b.service.OnDisconnect(c.ID(), reason)
}

func (b *Bridge) conn(id ConnectionID) (nodes.Conn, error) {
	conn, err := b.nodes.Conn(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownConnection, id)
	}
	return conn, nil
}

// Send queues data for a connection.
func (b *Bridge) Send(id ConnectionID, data []byte) error {
	conn, err := b.conn(id)
	if err != nil {
		return err
	}
	return conn.Send(data)
}

// RequestOption asks the connection to negotiate an option. The result comes
// back through Service.OnOptionChanged.
func (b *Bridge) RequestOption(id ConnectionID, option byte, enable bool, dir telnet.Direction) error {
	conn, err := b.conn(id)
	if err != nil {
		return err
	}
	return conn.RequestOption(option, enable, dir)
}

func (b *Bridge) SendSubnegotiation(id ConnectionID, option byte, payload []byte) error {
	conn, err := b.conn(id)
	if err != nil {
		return err
	}
	return conn.SendSubNegotiation(option, payload)
}

// Close closes a connection gracefully. OnDisconnect follows once queued
// output has been written.
func (b *Bridge) Close(id ConnectionID) error {
	conn, err := b.conn(id)
	if err != nil {
		return err
	}
	return conn.Close()
}

func (b *Bridge) TerminalInfo(id ConnectionID) (telnet.TerminalInfo, error) {
	conn, err := b.conn(id)
	if err != nil {
		return telnet.TerminalInfo{}, err
	}
	return conn.TerminalInfo(), nil
}

// Broadcast sends data to every connection except exceptID (0 for none).
func (b *Bridge) Broadcast(data []byte, exceptID ConnectionID) int {
	n := b.nodes.BroadcastExcept(data, exceptID)
	b.logger.Debug("Broadcast", "recipients", n, "len", len(data))
	return n
}
