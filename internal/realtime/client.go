package realtime

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

const (
	writeWait   = 10 * time.Second
	sendBacklog = 256
)

// Options tunes the connection keepalive.
type Options struct {
	PingInterval    time.Duration
	PongWait        time.Duration
	MaxMessageBytes int64
}

// DefaultOptions returns the keepalive used when Options fields are zero.
func DefaultOptions() Options {
	return Options{
		PingInterval:    25 * time.Second,
		PongWait:        45 * time.Second,
		MaxMessageBytes: 8 << 10,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.PingInterval <= 0 || o.PingInterval >= o.PongWait {
		o.PingInterval = (o.PongWait * 9) / 10
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = d.MaxMessageBytes
	}
	return o
}

// EventHandler processes a decoded client event.
type EventHandler interface {
	Handle(ctx context.Context, c *Client, ev ClientEvent)
}

// Client is one websocket connection. Its rooms set is owned by the hub
// goroutine.
type Client struct {
	id   string
	role domain.Role
	conn *websocket.Conn
	hub  *Hub
	opts Options
	log  zerolog.Logger

	handler EventHandler
	send    chan []byte
	rooms   map[string]struct{}
}

func newClient(conn *websocket.Conn, hub *Hub, role domain.Role, handler EventHandler, opts Options, log zerolog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:      id,
		role:    role,
		conn:    conn,
		hub:     hub,
		opts:    opts.withDefaults(),
		log:     log.With().Str("conn_id", id).Str("role", string(role)).Logger(),
		handler: handler,
		send:    make(chan []byte, sendBacklog),
		rooms:   make(map[string]struct{}),
	}
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// Role returns the connection role.
func (c *Client) Role() domain.Role { return c.role }

func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.log.Debug().Err(err).Msg("ws write")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		c.hub.Unregister(c)
		_ = c.conn.Close()
		c.log.Debug().Msg("connection closed")
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageBytes)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		kind, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn().Err(err).Msg("ws read")
			}
			return
		}
		if kind != websocket.TextMessage {
			continue
		}

		ev, err := DecodeClientEvent(raw)
		if err != nil {
			name := "unknown"
			if errors.Is(err, ErrMalformedEvent) {
				name = "malformed"
			}
			wsEvents.WithLabelValues(name, outcomeDropped).Inc()
			c.log.Debug().Err(err).Msg("dropping client event")
			continue
		}
		if !Allowed(c.role, ev) {
			wsEvents.WithLabelValues(ev.Name(), outcomeForbidden).Inc()
			c.log.Debug().Str("event", ev.Name()).Msg("event not permitted for role")
			continue
		}
		c.handler.Handle(ctx, c, ev)
	}
}
