// Websocket handshake handler.
//
// GET /ws?role=visitor|user|admin&room=<id>. Admin handshakes are
// authenticated before the upgrade, so failures are ordinary JSON errors.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-agent-backend/internal/domain"
	"github.com/tbourn/go-agent-backend/internal/http/middleware"
)

// Acceptor attaches an upgraded connection to the realtime hub.
type Acceptor interface {
	Accept(w http.ResponseWriter, r *http.Request, role domain.Role, room string) error
}

// Authenticator verifies admin credentials on a raw request.
type Authenticator interface {
	Authenticate(r *http.Request, allowQuery bool) (string, error)
}

// WSHandler serves the realtime endpoint.
type WSHandler struct {
	acceptor Acceptor
	auth     Authenticator
}

// NewWSHandler returns a handshake handler.
func NewWSHandler(acceptor Acceptor, auth Authenticator) *WSHandler {
	return &WSHandler{acceptor: acceptor, auth: auth}
}

// ConnectQuery holds the handshake query parameters.
type ConnectQuery struct {
	Role string `form:"role" binding:"required"`
	Room string `form:"room" binding:"omitempty,max=200"`
}

// parseRole maps the role query parameter; "user" is an alias of visitor.
func parseRole(s string) (domain.Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "visitor", "user":
		return domain.RoleVisitor, true
	case "admin":
		return domain.RoleAdmin, true
	}
	return "", false
}

// Connect godoc
// @ID          connectWS
// @Summary     Realtime connection
// @Description Upgrades to a websocket. Admins authenticate with the token query parameter, a Bearer header or the session cookie.
// @Tags        Realtime
// @Param       role   query  string  true   "Connection role"  Enums(visitor, user, admin)
// @Param       room   query  string  false  "Room to join (visitors)"
// @Param       token  query  string  false  "Admin JWT"
// @Success     101  {string}  string  "Switching Protocols"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Router      /ws [get]
func (h *WSHandler) Connect(c *gin.Context) {
	var q ConnectQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}
	role, known := parseRole(q.Role)
	if !known {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "role must be visitor or admin")
		return
	}
	room := strings.TrimSpace(q.Room)

	if role == domain.RoleAdmin {
		_, err := h.auth.Authenticate(c.Request, true)
		switch {
		case errors.Is(err, middleware.ErrNotAdmin):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "admin role required")
			return
		case err != nil:
			fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing or invalid token")
			return
		}
		room = ""
	}

	if err := h.acceptor.Accept(c.Writer, c.Request, role, room); err != nil {
		// The upgrader has already answered the client.
		c.Abort()
	}
}
