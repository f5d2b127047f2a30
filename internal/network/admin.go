package network

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"telnetd/internal/app"
	"telnetd/internal/metrics"
	"telnetd/internal/nodes"
	"telnetd/internal/store"
)

// ConnectionInfo is one live connection as reported by /connections.
type ConnectionInfo struct {
	ID          uint64    `json:"id"`
	RemoteAddr  string    `json:"remoteAddr"`
	Terminal    string    `json:"terminal,omitempty"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// Admin serves metrics and connection listings over HTTP.
type Admin struct {
	address string
	nodes   *nodes.Manager
	store   *store.Store
	logger  *slog.Logger

	mu     sync.Mutex
	server *http.Server
	ln     net.Listener
}

func NewAdmin() *Admin {
	return &Admin{
		address: app.Config.Listeners.Metrics.Address,
		nodes:   app.Nodes,
		store:   app.Store,
		logger:  app.Logger,
	}
}

// Handler builds the admin routes.
func (a *Admin) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Get("/connections", a.listConnections)
	r.Get("/connections/history", a.listHistory)
	r.Get("/connections/history/{id}", a.showHistory)

	return r
}

func (a *Admin) ListenAndServe() error {
	ln, err := net.Listen("tcp", a.address)
	if err != nil {
		return err
	}
	return a.Serve(ln)
}

func (a *Admin) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	a.mu.Lock()
	a.server = srv
	a.ln = ln
	a.mu.Unlock()

	a.logger.Info("Admin server listening", "addr", ln.Addr())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *Admin) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ln == nil {
		return nil
	}
	return a.ln.Addr()
}

func (a *Admin) Stop() error {
	a.mu.Lock()
	srv := a.server
	a.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (a *Admin) listConnections(w http.ResponseWriter, r *http.Request) {
	list := []ConnectionInfo{}
	for _, n := range a.nodes.List() {
		info := ConnectionInfo{ID: n.ID, ConnectedAt: n.ConnectedAt}
		if n.Conn != nil {
			term := n.Conn.TerminalInfo()
			info.RemoteAddr = n.Conn.RemoteAddr().String()
			info.Terminal = term.Type
			info.Width = term.Width
			info.Height = term.Height
		}
		list = append(list, info)
	}
	a.writeJSON(w, list)
}

func (a *Admin) listHistory(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		http.Error(w, "No store configured", http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := a.store.ListConnections(limit)
	if err != nil {
		http.Error(w, "Failed to list connections", http.StatusInternalServerError)
		a.logger.Error("Failed to list connections", "err", err)
		return
	}
	a.writeJSON(w, records)
}

func (a *Admin) showHistory(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		http.Error(w, "No store configured", http.StatusServiceUnavailable)
		return
	}

	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid id", http.StatusBadRequest)
		return
	}

	record, err := a.store.FindConnection(uint(id))
	if errors.Is(err, store.ErrConnectionNotFound) {
		http.Error(w, "Connection not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to load connection", http.StatusInternalServerError)
		a.logger.Error("Failed to load connection", "id", id, "err", err)
		return
	}
	a.writeJSON(w, record)
}

func (a *Admin) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("Admin response encode failed", "err", err)
	}
}
