package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

func TestDecodeClientEvent(t *testing.T) {
	tests := []struct {
		name    string
		frame   string
		want    ClientEvent
		wantErr error
	}{
		{"visitor message", `{"event":"visitor_message","data":{"room":" r-123456 ","text":" hi "}}`, VisitorMessage{Room: "r-123456", Text: "hi"}, nil},
		{"admin reply", `{"event":"admin_reply","data":{"room":"r1","text":"hello"}}`, AdminReply{Room: "r1", Text: "hello"}, nil},
		{"agent reply", `{"event":"agent_reply","data":{"room":"r1","text":"auto"}}`, AgentReply{Room: "r1", Text: "auto"}, nil},
		{"request email", `{"event":"admin_request_email","data":{"room":"r1"}}`, AdminRequestEmail{Room: "r1"}, nil},
		{"end", `{"event":"visitor_end","data":{"room":"r1"}}`, VisitorEnd{Room: "r1"}, nil},
		{"join", `{"event":"join_room","data":{"room":"r1"}}`, JoinRoom{Room: "r1"}, nil},
		{"presence no data", `{"event":"presence_query"}`, PresenceQuery{}, nil},
		{"presence null data", `{"event":"presence_query","data":null}`, PresenceQuery{}, nil},
		{"missing text", `{"event":"visitor_message","data":{"room":"r1","text":"   "}}`, nil, ErrMalformedEvent},
		{"missing room", `{"event":"admin_reply","data":{"text":"x"}}`, nil, ErrMalformedEvent},
		{"missing room on end", `{"event":"visitor_end","data":{}}`, nil, ErrMalformedEvent},
		{"bad json", `{"event":`, nil, ErrMalformedEvent},
		{"bad data", `{"event":"visitor_message","data":"oops"}`, nil, ErrMalformedEvent},
		{"unknown", `{"event":"nope","data":{}}`, nil, ErrUnknownEvent},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeClientEvent([]byte(tc.frame))
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAllowed(t *testing.T) {
	visitorOnly := []ClientEvent{VisitorMessage{}, VisitorEnd{}, JoinRoom{}}
	adminOnly := []ClientEvent{AdminReply{}, AdminRequestEmail{}, AgentReply{}}

	for _, ev := range visitorOnly {
		assert.True(t, Allowed(domain.RoleVisitor, ev), ev.Name())
		assert.False(t, Allowed(domain.RoleAdmin, ev), ev.Name())
	}
	for _, ev := range adminOnly {
		assert.True(t, Allowed(domain.RoleAdmin, ev), ev.Name())
		assert.False(t, Allowed(domain.RoleVisitor, ev), ev.Name())
	}
	assert.True(t, Allowed(domain.RoleVisitor, PresenceQuery{}))
	assert.True(t, Allowed(domain.RoleAdmin, PresenceQuery{}))
}

func TestEncode(t *testing.T) {
	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	frame, err := Encode(EventVisitorEcho, MessagePayload{Room: "r1", Text: "hi", TS: ts})
	require.NoError(t, err)

	var env struct {
		Event string         `json:"event"`
		Data  map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(frame, &env))
	assert.Equal(t, "visitor_echo", env.Event)
	assert.Equal(t, "r1", env.Data["room"])
	assert.Equal(t, "hi", env.Data["text"])
	assert.Equal(t, "2025-03-01T10:00:00Z", env.Data["ts"])

	frame, err = Encode(EventRequestEmail, MessagePayload{Room: "r1", TS: ts})
	require.NoError(t, err)
	assert.NotContains(t, string(frame), `"text"`)
}
