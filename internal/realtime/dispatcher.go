package realtime

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

// Rooms persists room messages.
type Rooms interface {
	Append(ctx context.Context, roomID string, role domain.Role, text string) (*domain.Message, error)
}

// Presence reads admin availability.
type Presence interface {
	Online(ctx context.Context) (bool, error)
}

// Dispatcher turns client events into persisted messages and hub fan-out.
type Dispatcher struct {
	Hub      *Hub
	Rooms    Rooms
	Presence Presence
	Log      zerolog.Logger
	Now      func() time.Time
}

// NewDispatcher wires a dispatcher.
func NewDispatcher(hub *Hub, rooms Rooms, presence Presence, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{Hub: hub, Rooms: rooms, Presence: presence, Log: log}
}

// Handle implements EventHandler. Persistence failures are logged and the
// event is not fanned out.
func (d *Dispatcher) Handle(ctx context.Context, c *Client, ev ClientEvent) {
	outcome := outcomeHandled
	defer func() { wsEvents.WithLabelValues(ev.Name(), outcome).Inc() }()

	switch ev := ev.(type) {
	case VisitorMessage:
		msg, ok := d.append(ctx, ev.Room, domain.RoleVisitor, ev.Text)
		if !ok {
			outcome = outcomeFailed
			return
		}
		p := MessagePayload{Room: ev.Room, Text: msg.Text, TS: msg.CreatedAt}
		d.Hub.PublishAdmins(EventVisitorMessage, p)
		d.Hub.PublishRoom(ev.Room, EventVisitorEcho, p)

	case AdminReply:
		msg, ok := d.append(ctx, ev.Room, domain.RoleAdmin, ev.Text)
		if !ok {
			outcome = outcomeFailed
			return
		}
		d.Hub.PublishRoom(ev.Room, EventAdminReply, MessagePayload{Room: ev.Room, Text: msg.Text, TS: msg.CreatedAt})

	case AgentReply:
		msg, ok := d.append(ctx, ev.Room, domain.RoleAgent, ev.Text)
		if !ok {
			outcome = outcomeFailed
			return
		}
		d.Hub.PublishRoom(ev.Room, EventAgentReply, MessagePayload{Room: ev.Room, Text: msg.Text, TS: msg.CreatedAt})

	case AdminRequestEmail:
		msg, ok := d.append(ctx, ev.Room, domain.RoleSystem, EmailRequestedText)
		if !ok {
			outcome = outcomeFailed
			return
		}
		d.Hub.PublishRoom(ev.Room, EventRequestEmail, MessagePayload{Room: ev.Room, TS: msg.CreatedAt})
		d.Hub.PublishAdmins(EventSystem, MessagePayload{Room: ev.Room, Text: EmailRequestNotice, TS: msg.CreatedAt})

	case VisitorEnd:
		p := MessagePayload{Room: ev.Room, TS: d.now()}
		d.Hub.PublishRoom(ev.Room, EventVisitorEnded, p)
		d.Hub.PublishAdmins(EventVisitorEnded, p)

	case PresenceQuery:
		online, err := d.Presence.Online(ctx)
		if err != nil {
			outcome = outcomeFailed
			d.Log.Error().Err(err).Msg("presence query")
			return
		}
		d.Hub.SendTo(c, EventPresence, PresencePayload{Online: online})

	case JoinRoom:
		d.Hub.Join(c, ev.Room)
	}
}

func (d *Dispatcher) append(ctx context.Context, room string, role domain.Role, text string) (*domain.Message, bool) {
	msg, err := d.Rooms.Append(ctx, room, role, text)
	if err != nil {
		d.Log.Error().Err(err).Str("room", room).Str("role", string(role)).Msg("append message")
		return nil, false
	}
	return msg, true
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}
