// Package realtime implements the websocket hub that connects visitors in
// their rooms with the admins watching the console. Every frame is a JSON
// envelope {"event": name, "data": payload}.
package realtime

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

// Client → server event names.
const (
	EventVisitorMessage    = "visitor_message"
	EventAdminReply        = "admin_reply"
	EventAdminRequestEmail = "admin_request_email"
	EventAgentReply        = "agent_reply"
	EventVisitorEnd        = "visitor_end"
	EventPresenceQuery     = "presence_query"
	EventJoinRoom          = "join_room"
)

// Server → client event names. visitor_message and admin_reply and
// agent_reply reuse the client names.
const (
	EventVisitorEcho  = "visitor_echo"
	EventRequestEmail = "request_email"
	EventSystem       = "system"
	EventVisitorEnded = "visitor_ended"
	EventPresence     = "presence"
)

// Fixed texts of the email-request flow.
const (
	EmailRequestedText = "Admin requested your email to follow-up."
	EmailRequestNotice = "Email request sent to the user."
)

var (
	// ErrUnknownEvent is returned for event names outside the protocol.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrMalformedEvent is returned when a payload is missing its room or
	// text, or is not valid JSON.
	ErrMalformedEvent = errors.New("malformed event")
)

// Envelope is the wire frame.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ClientEvent is the closed set of events a client may send.
type ClientEvent interface {
	Name() string
	clientEvent()
}

type (
	VisitorMessage    struct{ Room, Text string }
	AdminReply        struct{ Room, Text string }
	AdminRequestEmail struct{ Room string }
	AgentReply        struct{ Room, Text string }
	VisitorEnd        struct{ Room string }
	PresenceQuery     struct{}
	JoinRoom          struct{ Room string }
)

func (VisitorMessage) Name() string    { return EventVisitorMessage }
func (AdminReply) Name() string        { return EventAdminReply }
func (AdminRequestEmail) Name() string { return EventAdminRequestEmail }
func (AgentReply) Name() string        { return EventAgentReply }
func (VisitorEnd) Name() string        { return EventVisitorEnd }
func (PresenceQuery) Name() string     { return EventPresenceQuery }
func (JoinRoom) Name() string          { return EventJoinRoom }

func (VisitorMessage) clientEvent()    {}
func (AdminReply) clientEvent()        {}
func (AdminRequestEmail) clientEvent() {}
func (AgentReply) clientEvent()        {}
func (VisitorEnd) clientEvent()        {}
func (PresenceQuery) clientEvent()     {}
func (JoinRoom) clientEvent()          {}

type rawPayload struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// DecodeClientEvent parses a frame into its typed event. Room ids and text
// are trimmed; events that need them and lack them are malformed.
func DecodeClientEvent(frame []byte) (ClientEvent, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, ErrMalformedEvent
	}
	var p rawPayload
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, ErrMalformedEvent
		}
	}
	room := strings.TrimSpace(p.Room)
	text := strings.TrimSpace(p.Text)

	needRoom := func(ev ClientEvent) (ClientEvent, error) {
		if room == "" {
			return nil, ErrMalformedEvent
		}
		return ev, nil
	}
	needText := func(ev ClientEvent) (ClientEvent, error) {
		if room == "" || text == "" {
			return nil, ErrMalformedEvent
		}
		return ev, nil
	}

	switch env.Event {
	case EventVisitorMessage:
		return needText(VisitorMessage{Room: room, Text: text})
	case EventAdminReply:
		return needText(AdminReply{Room: room, Text: text})
	case EventAgentReply:
		return needText(AgentReply{Room: room, Text: text})
	case EventAdminRequestEmail:
		return needRoom(AdminRequestEmail{Room: room})
	case EventVisitorEnd:
		return needRoom(VisitorEnd{Room: room})
	case EventJoinRoom:
		return needRoom(JoinRoom{Room: room})
	case EventPresenceQuery:
		return PresenceQuery{}, nil
	default:
		return nil, ErrUnknownEvent
	}
}

// Allowed reports whether a connection with role may send ev. Visitors
// talk and join; admins reply and request emails; both may ask for
// presence.
func Allowed(role domain.Role, ev ClientEvent) bool {
	switch ev.(type) {
	case PresenceQuery:
		return true
	case VisitorMessage, VisitorEnd, JoinRoom:
		return role == domain.RoleVisitor
	case AdminReply, AdminRequestEmail, AgentReply:
		return role == domain.RoleAdmin
	default:
		return false
	}
}

// MessagePayload is the data of room-scoped server events.
type MessagePayload struct {
	Room string    `json:"room"`
	Text string    `json:"text,omitempty"`
	TS   time.Time `json:"ts"`
}

// PresencePayload is the data of the presence event.
type PresencePayload struct {
	Online bool `json:"online"`
}

// Encode builds a wire frame.
func Encode(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}
