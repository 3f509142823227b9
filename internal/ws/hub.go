package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/vibedrinks/api/internal/orderflow"
)

// Hub maintains the set of connected dashboards and broadcasts order events
// to them.
type Hub struct {
	dashboards map[*dashboard]struct{}

	register   chan *dashboard
	unregister chan *dashboard

	broadcast chan orderflow.Event

	// Closed when Run returns
	done chan struct{}

	// Guards dashboards for readers outside Run
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		dashboards: make(map[*dashboard]struct{}),
		register:   make(chan *dashboard),
		unregister: make(chan *dashboard),
		broadcast:  make(chan orderflow.Event, 256),
		done:       make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is done, closing every
// dashboard's send channel so their write loops close the connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for d := range h.dashboards {
				close(d.send)
				delete(h.dashboards, d)
			}
			h.mu.Unlock()
			return

		case d := <-h.register:
			h.mu.Lock()
			h.dashboards[d] = struct{}{}
			h.mu.Unlock()

		case d := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.dashboards[d]; ok {
				delete(h.dashboards, d)
				close(d.send)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			// Marshal once for every dashboard
			message, err := json.Marshal(event)
			if err != nil {
				log.Printf("ERROR: marshal event: %v", err)
				continue
			}

			h.mu.Lock()
			for d := range h.dashboards {
				select {
				case d.send <- message:
				default:
					// Too slow to keep up, drop it
					close(d.send)
					delete(h.dashboards, d)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues ev for every connected dashboard. It never blocks: when the
// broadcast queue is full the event is dropped and dashboards catch up on
// their next poll.
func (h *Hub) Publish(ev orderflow.Event) {
	select {
	case h.broadcast <- ev:
	default:
		log.Printf("WARNING: websocket broadcast queue full, dropping %s for order %s", ev.Type, ev.OrderID)
	}
}

// DashboardCount returns the number of connected dashboards.
func (h *Hub) DashboardCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.dashboards)
}

func (h *Hub) add(d *dashboard) bool {
	select {
	case h.register <- d:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(d *dashboard) {
	select {
	case h.unregister <- d:
	case <-h.done:
	}
}
