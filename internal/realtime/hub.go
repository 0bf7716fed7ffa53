package realtime

import (
	"net/http"
	"strings"
	"sync"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub is the server side of the push channel: it greets every client and
// fans events out to the subscribers of a sector.
type Hub struct {
	up  websocket.Upgrader
	log *zap.Logger

	mu      sync.RWMutex
	clients map[*peer]map[string]struct{}
}

type peer struct {
	id   string
	conn *wsConn
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		up: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:     log,
		clients: map[*peer]map[string]struct{}{},
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := h.up.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	p := &peer{id: uuid.NewString(), conn: newWSConn(c)}
	h.mu.Lock()
	h.clients[p] = map[string]struct{}{}
	h.mu.Unlock()
	log := h.log.With(zap.String("client", p.id))
	log.Debug("client joined")

	defer func() {
		h.mu.Lock()
		delete(h.clients, p)
		h.mu.Unlock()
		p.conn.Close()
		log.Debug("client left")
	}()

	hello, err := NewMessage(EventConnected, map[string]string{"id": p.id})
	if err != nil {
		log.Error("encode hello", zap.Error(err))
		return
	}
	if err := p.conn.Send(hello); err != nil {
		return
	}
	for {
		m, err := p.conn.Receive()
		if err != nil {
			return
		}
		switch m.Event {
		case EventSubscribe, EventUnsubscribe:
			sector, err := sectorOf(m.Data)
			if err != nil {
				log.Debug("ignored frame", zap.String("event", m.Event), zap.Error(err))
				continue
			}
			sector = strings.ToLower(sector)
			h.mu.Lock()
			if m.Event == EventSubscribe {
				h.clients[p][sector] = struct{}{}
			} else {
				delete(h.clients[p], sector)
			}
			h.mu.Unlock()
			log.Debug(m.Event, zap.String("sector", sector))
		default:
			log.Debug("ignored frame", zap.String("event", m.Event))
		}
	}
}

// Broadcast sends event to every subscriber of sector and returns how many
// received it.
func (h *Hub) Broadcast(sector, event string, data any) int {
	m, err := NewMessage(event, data)
	if err != nil {
		h.log.Error("encode broadcast", zap.Error(err))
		return 0
	}
	sector = strings.ToLower(sector)
	h.mu.RLock()
	var targets []*peer
	for p, subs := range h.clients {
		if _, ok := subs[sector]; ok {
			targets = append(targets, p)
		}
	}
	h.mu.RUnlock()

	n := 0
	for _, p := range targets {
		if err := p.conn.Send(m); err != nil {
			h.log.Debug("broadcast send failed", zap.String("client", p.id), zap.Error(err))
			continue
		}
		n++
	}
	return n
}

// Subscribers counts the clients subscribed to sector.
func (h *Hub) Subscribers(sector string) int {
	sector = strings.ToLower(sector)
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.clients {
		if _, ok := subs[sector]; ok {
			n++
		}
	}
	return n
}

// Close drops every client.
func (h *Hub) Close() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for p := range h.clients {
		p.conn.Close()
	}
}
