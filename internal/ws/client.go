package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vibedrinks/api/internal/middleware"
)

const (
	writeWait = 10 * time.Second

	// A dashboard that misses a pong for this long is gone.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Dashboards only ever send control frames.
	maxMessageSize = 512

	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Authenticated by the JWT middleware in front of the hub
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dashboard is one connected kitchen screen.
type dashboard struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID
	send   chan []byte
}

// ServeHTTP upgrades an authenticated kitchen request to the live order
// channel. Mount it behind middleware.Authenticate and middleware.KitchenStaff.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response
		log.Printf("ERROR: websocket upgrade for user %s: %v", claims.UserID, err)
		return
	}

	d := &dashboard{
		hub:    h,
		conn:   conn,
		userID: claims.UserID,
		send:   make(chan []byte, sendBuffer),
	}
	if !h.add(d) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go d.writeLoop()
	go d.readLoop()
}

// readLoop discards everything but control frames and unregisters the
// dashboard once the connection drops.
func (d *dashboard) readLoop() {
	defer func() {
		d.hub.remove(d)
		d.conn.Close()
	}()

	d.conn.SetReadLimit(maxMessageSize)
	d.conn.SetReadDeadline(time.Now().Add(pongWait))
	d.conn.SetPongHandler(func(string) error {
		return d.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := d.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WARNING: dashboard %s disconnected: %v", d.userID, err)
			}
			return
		}
	}
}

// writeLoop sends queued events, batching whatever is already waiting into
// one newline-separated frame, and pings on an idle connection.
func (d *dashboard) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		d.conn.Close()
	}()

	for {
		select {
		case message, ok := <-d.send:
			d.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Dropped by the hub, either slow or shutting down
				d.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := d.writeBatch(message); err != nil {
				return
			}

		case <-ticker.C:
			d.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := d.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (d *dashboard) writeBatch(first []byte) error {
	w, err := d.conn.NextWriter(websocket.TextMessage)
	if err != nil {
		return err
	}
	w.Write(first)

	for n := len(d.send); n > 0; n-- {
		msg, ok := <-d.send
		if !ok {
			break
		}
		w.Write([]byte{'\n'})
		w.Write(msg)
	}
	return w.Close()
}
