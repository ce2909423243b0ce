package ws

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Event is the wire format for pushed updates.
type Event struct {
	Type      string      `json:"type"` // "rule_run", "rule_update", "rule_delete"
	RuleID    string      `json:"ruleId,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// Hub fans broadcast events out to connected admin consoles.
type Hub struct {
	clients    map[*Conn]bool
	broadcast  chan []byte
	register   chan *Conn
	unregister chan *Conn
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Conn),
		unregister: make(chan *Conn),
		logger:     logger,
	}
}

// Run owns the client set; all membership changes go through the
// channels so no lock is needed.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("ws client connected", zap.Int("clients", len(h.clients)))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Debug("ws client disconnected", zap.Int("clients", len(h.clients)))
			}
		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

// Broadcast marshals and queues an event for all connected clients.
// Safe to call from any goroutine.
func (h *Hub) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Warn("ws marshal failed", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("ws broadcast queue full, dropping event", zap.String("type", ev.Type))
	}
}
