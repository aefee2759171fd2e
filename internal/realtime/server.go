package realtime

import (
	"context"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

// Server upgrades HTTP requests into hub connections.
type Server struct {
	Hub        *Hub
	Dispatcher *Dispatcher
	Options    Options
	Log        zerolog.Logger

	// BaseContext scopes event handling; it is cancelled on shutdown.
	BaseContext context.Context

	upgrader websocket.Upgrader
}

// NewServer builds a Server whose upgrader accepts the listed origins. An
// empty Origin header (non-browser clients) and a "*" entry are accepted.
// With no origins listed every origin is accepted, as the HTTP CORS layer does.
func NewServer(ctx context.Context, hub *Hub, disp *Dispatcher, allowedOrigins []string, opts Options, log zerolog.Logger) *Server {
	return &Server{
		Hub:         hub,
		Dispatcher:  disp,
		Options:     opts.withDefaults(),
		Log:         log,
		BaseContext: ctx,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || len(allowedOrigins) == 0 {
					return true
				}
				return slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// Accept upgrades the request and attaches the connection to the hub.
// Admins join the admin channel; a visitor with a room joins that room.
// The current presence is sent first. On upgrade failure the response has
// already been written.
func (s *Server) Accept(w http.ResponseWriter, r *http.Request, role domain.Role, room string) error {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.Debug().Err(err).Msg("ws upgrade")
		return err
	}

	c := newClient(conn, s.Hub, role, s.Dispatcher, s.Options, s.Log)
	if !s.Hub.Register(c) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return nil
	}
	if role == domain.RoleVisitor && room != "" {
		s.Hub.Join(c, room)
	}

	ctx := s.BaseContext
	if ctx == nil {
		ctx = context.Background()
	}
	online, err := s.Dispatcher.Presence.Online(ctx)
	if err != nil {
		s.Log.Error().Err(err).Msg("presence snapshot")
	}
	s.Hub.SendTo(c, EventPresence, PresencePayload{Online: online})

	c.log.Debug().Str("room", room).Msg("connection accepted")
	go c.writePump()
	go c.readPump(ctx)
	return nil
}
