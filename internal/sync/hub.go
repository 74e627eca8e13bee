package sync

import (
	"encoding/json"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeTimeout = 2 * time.Second
	queueSize    = 256
)

// Filter is the set of event types a subscriber wants. Empty means all.
type Filter map[string]bool

func ParseFilter(types []string) Filter {
	f := Filter{}
	for _, t := range types {
		for _, part := range strings.Split(t, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f[part] = true
			}
		}
	}
	return f
}

func (f Filter) Match(eventType string) bool {
	return len(f) == 0 || f[eventType]
}

func (f Filter) Types() []string {
	out := make([]string, 0, len(f))
	for t := range f {
		out = append(out, t)
	}
	return out
}

// Hub keeps the connected TCP and websocket subscribers with their filters.
// A single sender goroutine drains the queue, so every subscriber sees events
// in publish order.
type Hub struct {
	mu  sync.Mutex
	tcp map[net.Conn]Filter
	ws  map[*websocket.Conn]Filter
	log *zap.Logger

	queue     chan Event
	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

type Stats struct {
	TCPClients int `json:"tcpClients"`
	WSClients  int `json:"wsClients"`
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		tcp:     make(map[net.Conn]Filter),
		ws:      make(map[*websocket.Conn]Filter),
		log:     log,
		queue:   make(chan Event, queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go h.send()
	return h
}

func (h *Hub) send() {
	defer close(h.stopped)
	for {
		select {
		case ev := <-h.queue:
			h.broadcast(ev)
		case <-h.done:
			return
		}
	}
}

// Close stops the sender. Events still queued are dropped.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
	<-h.stopped
}

func (h *Hub) Add(conn net.Conn) {
	h.mu.Lock()
	h.tcp[conn] = nil
	h.mu.Unlock()
}

// SetFilter narrows what conn receives and acknowledges it on the wire. The
// ack is written under the hub lock so it cannot interleave with a broadcast.
func (h *Hub) SetFilter(conn net.Conn, f Filter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.tcp[conn]; !ok {
		return
	}
	h.tcp[conn] = f
	h.writeTCP(conn, control{Type: "subscribed", Types: f.Types()})
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	delete(h.tcp, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn, f Filter) {
	h.mu.Lock()
	h.ws[ws] = f
	h.mu.Unlock()
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	delete(h.ws, ws)
	h.mu.Unlock()
	_ = ws.Close()
}

// Publish queues ev for the sender and never blocks; when the queue is full
// the event is dropped.
func (h *Hub) Publish(ev Event) {
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.queue <- Stamp(ev):
	default:
		h.log.Warn("event queue full, dropping", zap.String("type", ev.Type))
	}
}

// broadcast writes ev as one JSON line to every subscriber whose filter
// matches, dropping the ones that fail.
func (h *Hub) broadcast(ev Event) {
	line, err := jsonLine(ev)
	if err != nil {
		h.log.Warn("marshal event", zap.String("type", ev.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c, f := range h.tcp {
		if !f.Match(ev.Type) {
			continue
		}
		_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := c.Write(line); err != nil {
			h.log.Debug("dropping tcp subscriber", zap.String("remote", c.RemoteAddr().String()), zap.Error(err))
			_ = c.Close()
			delete(h.tcp, c)
		}
	}

	for ws, f := range h.ws {
		if !f.Match(ev.Type) {
			continue
		}
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteMessage(websocket.TextMessage, line); err != nil {
			_ = ws.Close()
			delete(h.ws, ws)
		}
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tcp)
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{TCPClients: len(h.tcp), WSClients: len(h.ws)}
}

// control is a non-event line sent to a single subscriber.
type control struct {
	Type      string   `json:"type"`
	Transport string   `json:"transport,omitempty"`
	Clients   int      `json:"clients,omitempty"`
	Types     []string `json:"types,omitempty"`
}

func (h *Hub) Welcome(conn net.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeTCP(conn, control{Type: "welcome", Transport: "tcp", Clients: len(h.tcp)})
}

// writeTCP must be called with h.mu held.
func (h *Hub) writeTCP(conn net.Conn, v any) {
	line, err := jsonLine(v)
	if err != nil {
		return
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, _ = conn.Write(line)
}

func jsonLine(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}
