package nodes

import (
	"fmt"
	"net"
	"time"

	"telnetd/internal/network/telnet"
)

// Conn is the part of a telnet connection other nodes and the service side
// may touch. Every method is safe to call from any goroutine.
type Conn interface {
	Send(data []byte) error
	SendSubNegotiation(option byte, payload []byte) error
	RequestOption(option byte, enable bool, dir telnet.Direction) error
	Close() error
	RemoteAddr() net.Addr
	TerminalInfo() telnet.TerminalInfo
}

type Node struct {
	ID          uint64
	Conn        Conn
	ConnectedAt time.Time
}

func (n *Node) String() string {
	if n.Conn == nil {
		return fmt.Sprintf("Node %d (Disconnected)", n.ID)
	}
	return fmt.Sprintf("Node %d (%s)", n.ID, n.Conn.RemoteAddr())
}
