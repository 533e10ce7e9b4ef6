package main

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"arena-server/room"
)

// Hub tracks connected clients, enforces admission limits and hands closed
// clients back to the room manager
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	rooms     *room.Manager
	auth      *Auth      // nil when identity tokens are disabled
	analytics *Analytics // nil when the event log is disabled
	log       zerolog.Logger
	publicURL string

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu        sync.Mutex
	ipConns       map[string]int
	totalConns    int
	maxConnsPerIP int
	maxTotalConns int
}

// HubOptions wires a Hub to its collaborators
type HubOptions struct {
	Rooms         *room.Manager
	Auth          *Auth
	Analytics     *Analytics
	Logger        zerolog.Logger
	PublicURL     string
	MaxConnsPerIP int
	MaxTotalConns int
}

// NewHub creates a new Hub
func NewHub(opts HubOptions) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		register:      make(chan *Client, 64),
		unregister:    make(chan *Client, 64),
		done:          make(chan struct{}),
		rooms:         opts.Rooms,
		auth:          opts.Auth,
		analytics:     opts.Analytics,
		log:           opts.Logger,
		publicURL:     opts.PublicURL,
		ipConns:       make(map[string]int),
		maxConnsPerIP: opts.MaxConnsPerIP,
		maxTotalConns: opts.MaxTotalConns,
	}
}

// Admit reserves a connection slot for ip. Callers release it with
// TrackDisconnect.
func (h *Hub) Admit(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= h.maxTotalConns || h.ipConns[ip] >= h.maxConnsPerIP {
		return false
	}
	h.ipConns[ip]++
	h.totalConns++
	return true
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events until ctx is done
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.conn.Close()
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.record("client_connected", client)

		case client := <-h.unregister:
			h.mu.Lock()
			_, ok := h.clients[client]
			delete(h.clients, client)
			h.mu.Unlock()
			if !ok {
				continue
			}
			// seats and queue entries go first so rooms stop addressing the client
			h.rooms.Disconnect(client)
			client.closeSend()
			h.record("client_disconnected", client)
		}
	}
}

func (h *Hub) record(kind string, c *Client) {
	if h.analytics == nil {
		return
	}
	h.analytics.Record(kind, "", map[string]any{"conn": c.id, "ip": c.remoteAddr})
}

// join registers a freshly upgraded client
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// leave hands a finished client back to Run, unless Run has already exited
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
