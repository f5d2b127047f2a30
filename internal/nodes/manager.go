package nodes

import (
	"errors"
	"slices"
	"sync"
	"time"
)

// DefaultMax is the capacity used when none is configured.
const DefaultMax = 10

var (
	ErrFull     = errors.New("system full")
	ErrNotFound = errors.New("no such connection")
)

// Manager hands out connection IDs and keeps track of live connections.
// IDs are never reused for the lifetime of a Manager.
type Manager struct {
	mu       sync.RWMutex
	maxNodes int
	lastID   uint64
	nodes    map[uint64]*Node
}

func NewManager(maxNodes int) *Manager {
	if maxNodes <= 0 {
		maxNodes = DefaultMax
	}
	return &Manager{
		maxNodes: maxNodes,
		nodes:    make(map[uint64]*Node, maxNodes),
	}
}

func (m *Manager) Max() int {
	return m.maxNodes
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes)
}

// Acquire reserves a slot and a fresh ID.
func (m *Manager) Acquire() (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.nodes) >= m.maxNodes {
		return nil, ErrFull
	}
	m.lastID++
	node := &Node{
		ID:          m.lastID,
		ConnectedAt: time.Now(),
	}
	m.nodes[node.ID] = node
	return node, nil
}

// Attach binds a connection to an acquired node.
func (m *Manager) Attach(id uint64, conn Conn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nodes[id]
	if !ok {
		return ErrNotFound
	}
	n.Conn = conn
	return nil
}

func (m *Manager) Release(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.nodes, id)
}

// Get returns a copy of the node, so callers never share it with Attach.
func (m *Manager) Get(id uint64) (Node, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[id]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Conn returns the connection attached to id.
func (m *Manager) Conn(id uint64) (Conn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.nodes[id]
	if !ok || n.Conn == nil {
		return nil, ErrNotFound
	}
	return n.Conn, nil
}

// List returns a snapshot of all nodes ordered by ID.
func (m *Manager) List() []Node {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]uint64, 0, len(m.nodes))
	for id := range m.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	list := make([]Node, 0, len(ids))
	for _, id := range ids {
		list = append(list, *m.nodes[id])
	}
	return list
}

func (m *Manager) Broadcast(data []byte) int {
	return m.BroadcastExcept(data, 0)
}

// BroadcastExcept sends data to every attached connection but exceptID and
// returns how many accepted it. ID 0 is never assigned.
func (m *Manager) BroadcastExcept(data []byte, exceptID uint64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sent := 0
	for _, n := range m.nodes {
		if n.Conn == nil || n.ID == exceptID {
			continue
		}
		// Ignore errors for broadcast
		if n.Conn.Send(data) == nil {
			sent++
		}
	}
	return sent
}
