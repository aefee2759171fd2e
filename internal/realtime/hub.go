package realtime

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

type target int

const (
	toAll target = iota
	toRoom
	toAdmins
	toClient
)

type publication struct {
	target target
	room   string
	client *Client
	frame  []byte
}

type joinRequest struct {
	client *Client
	room   string
}

// Hub owns connection membership. A single Run goroutine mutates the maps
// and is the only writer to client send queues, so queues can be closed
// safely on unregister.
type Hub struct {
	log zerolog.Logger

	clients map[*Client]struct{}
	admins  map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	publish    chan publication

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewHub returns a hub; call Run to start it.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		log:        log.With().Str("component", "hub").Logger(),
		clients:    make(map[*Client]struct{}),
		admins:     make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		publish:    make(chan publication),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Run processes hub requests until ctx is done or Stop is called. On exit
// every client queue is closed, which makes the write pumps close their
// connections.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case req := <-h.join:
			h.joinRoom(req.client, req.room)
		case p := <-h.publish:
			h.deliver(p)
		case <-h.stop:
			h.shutdown()
			return
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

// Stop shuts the hub down and waits for Run to return.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Register adds c. It returns false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes c and closes its queue.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Join adds c to a room channel.
func (h *Hub) Join(c *Client, room string) {
	select {
	case h.join <- joinRequest{client: c, room: room}:
	case <-h.done:
	}
}

// PublishRoom sends an event to everyone in room.
func (h *Hub) PublishRoom(room, event string, data any) {
	h.send(publication{target: toRoom, room: room}, event, data)
}

// PublishAdmins sends an event to every admin connection.
func (h *Hub) PublishAdmins(event string, data any) {
	h.send(publication{target: toAdmins}, event, data)
}

// PublishAll sends an event to every connection.
func (h *Hub) PublishAll(event string, data any) {
	h.send(publication{target: toAll}, event, data)
}

// SendTo sends an event to a single connection.
func (h *Hub) SendTo(c *Client, event string, data any) {
	h.send(publication{target: toClient, client: c}, event, data)
}

// BroadcastPresence pushes the admin availability to every connection.
func (h *Hub) BroadcastPresence(online bool) {
	h.PublishAll(EventPresence, PresencePayload{Online: online})
}

func (h *Hub) send(p publication, event string, data any) {
	frame, err := Encode(event, data)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("encode event")
		return
	}
	p.frame = frame
	select {
	case h.publish <- p:
	case <-h.done:
	}
}

func (h *Hub) addClient(c *Client) {
	h.clients[c] = struct{}{}
	if c.role == domain.RoleAdmin {
		h.admins[c] = struct{}{}
	}
	wsConnections.WithLabelValues(string(c.role)).Inc()
	h.log.Debug().Str("conn_id", c.id).Str("role", string(c.role)).Int("clients", len(h.clients)).Msg("client registered")
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	delete(h.admins, c)
	for room := range c.rooms {
		if members := h.rooms[room]; members != nil {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
	close(c.send)
	wsConnections.WithLabelValues(string(c.role)).Dec()
	h.log.Debug().Str("conn_id", c.id).Int("clients", len(h.clients)).Msg("client unregistered")
}

func (h *Hub) joinRoom(c *Client, room string) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	members := h.rooms[room]
	if members == nil {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) deliver(p publication) {
	switch p.target {
	case toAll:
		for c := range h.clients {
			h.enqueue(c, p.frame)
		}
	case toAdmins:
		for c := range h.admins {
			h.enqueue(c, p.frame)
		}
	case toRoom:
		for c := range h.rooms[p.room] {
			h.enqueue(c, p.frame)
		}
	case toClient:
		if _, ok := h.clients[p.client]; ok {
			h.enqueue(p.client, p.frame)
		}
	}
}

// enqueue never blocks the hub; a full queue drops the frame.
func (h *Hub) enqueue(c *Client, frame []byte) {
	select {
	case c.send <- frame:
	default:
		wsSendDropped.Inc()
		h.log.Warn().Str("conn_id", c.id).Msg("send queue full, frame dropped")
	}
}

func (h *Hub) shutdown() {
	h.log.Info().Int("clients", len(h.clients)).Msg("hub shutting down")
	for c := range h.clients {
		h.removeClient(c)
	}
}
