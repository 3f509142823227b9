package kitchen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/vibedrinks/api/internal/orderflow"
)

const (
	// The server pings every 54s; a silent minute means the link is dead
	readWait  = 70 * time.Second
	writeWait = 10 * time.Second

	maxFrameSize = 64 << 10
)

var errServerClosed = errors.New("server closed the live channel")

// Sink receives the live channel state and events. Satisfied by *Controller.
type Sink interface {
	SetConnected(connected bool)
	HandleEvent(ev orderflow.Event)
}

// Subscriber keeps a WebSocket open to the live channel and forwards what
// it receives to a Sink, reconnecting with exponential backoff.
type Subscriber struct {
	url        string
	token      func() string
	sink       Sink
	dialer     *websocket.Dialer
	newBackOff func() backoff.BackOff
}

// NewSubscriber creates a Subscriber for wsURL (e.g. ws://host/ws/orders).
// token is called on every dial so refreshed tokens are picked up.
func NewSubscriber(wsURL string, token func() string, sink Sink) *Subscriber {
	return &Subscriber{
		url:    wsURL,
		token:  token,
		sink:   sink,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0 // never give up
			return b
		},
	}
}

// Run connects and reconnects until ctx ends.
func (s *Subscriber) Run(ctx context.Context) error {
	b := s.newBackOff()
	op := func() error {
		err := s.session(ctx, b)
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Printf("WARNING: live channel: %v; reconnecting in %s", err, wait)
	}
	return backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify)
}

// session runs one connection until it drops. It never returns nil.
func (s *Subscriber) session(ctx context.Context, b backoff.BackOff) error {
	u, err := url.Parse(s.url)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("parse live channel url: %w", err))
	}
	q := u.Query()
	q.Set("token", s.token())
	u.RawQuery = q.Encode()

	conn, resp, err := s.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	b.Reset()
	s.sink.SetConnected(true)
	defer s.sink.SetConnected(false)

	// Unblock ReadMessage when ctx ends
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetReadLimit(maxFrameSize)
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errServerClosed
			}
			return fmt.Errorf("read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(readWait))

		// Queued events share a frame, one JSON object per line
		for _, line := range bytes.Split(data, []byte{'\n'}) {
			line = bytes.TrimSpace(line)
			if len(line) == 0 {
				continue
			}
			var ev orderflow.Event
			if err := json.Unmarshal(line, &ev); err != nil {
				log.Printf("WARNING: live channel: skipping malformed event: %v", err)
				continue
			}
			s.sink.HandleEvent(ev)
		}
	}
}
