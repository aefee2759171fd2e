package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-agent-backend/internal/domain"
	"github.com/tbourn/go-agent-backend/internal/http/middleware"
)

type recordingAcceptor struct {
	calls int
	role  domain.Role
	room  string
}

func (a *recordingAcceptor) Accept(w http.ResponseWriter, _ *http.Request, role domain.Role, room string) error {
	a.calls++
	a.role, a.room = role, room
	w.WriteHeader(http.StatusSwitchingProtocols)
	return nil
}

func wsRouter(acc Acceptor, auth Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/agent/ws", NewWSHandler(acc, auth).Connect)
	return r
}

func TestWSConnect_Roles(t *testing.T) {
	auth := middleware.NewAdminAuth("ws-secret", "")
	admin, _ := auth.IssueToken("ops", middleware.AdminRole, time.Hour)
	visitor, _ := auth.IssueToken("v", "visitor", time.Hour)

	cases := []struct {
		name     string
		query    string
		header   string
		status   int
		wantRole domain.Role
		wantRoom string
	}{
		{"visitor with room", "role=visitor&room=visitor-1", "", http.StatusSwitchingProtocols, domain.RoleVisitor, "visitor-1"},
		{"user alias", "role=user&room=visitor-2", "", http.StatusSwitchingProtocols, domain.RoleVisitor, "visitor-2"},
		{"visitor without room", "role=visitor", "", http.StatusSwitchingProtocols, domain.RoleVisitor, ""},
		{"admin via query", "role=admin&room=ignored&token=" + admin, "", http.StatusSwitchingProtocols, domain.RoleAdmin, ""},
		{"admin via bearer", "role=ADMIN", "Bearer " + admin, http.StatusSwitchingProtocols, domain.RoleAdmin, ""},
		{"admin missing token", "role=admin", "", http.StatusUnauthorized, "", ""},
		{"admin bad token", "role=admin&token=garbage", "", http.StatusUnauthorized, "", ""},
		{"admin wrong role", "role=admin&token=" + visitor, "", http.StatusForbidden, "", ""},
		{"unknown role", "role=bot", "", http.StatusBadRequest, "", ""},
		{"missing role", "", "", http.StatusBadRequest, "", ""},
		{"room too long", "role=visitor&room=" + strings.Repeat("r", 201), "", http.StatusBadRequest, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			acc := &recordingAcceptor{}
			req := httptest.NewRequest(http.MethodGet, "/agent/ws?"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			wsRouter(acc, auth).ServeHTTP(w, req)

			if w.Code != tc.status {
				t.Fatalf("status = %d; want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			if tc.status != http.StatusSwitchingProtocols {
				if acc.calls != 0 {
					t.Fatalf("rejected handshake must not reach the hub")
				}
				return
			}
			if acc.calls != 1 || acc.role != tc.wantRole || acc.room != tc.wantRoom {
				t.Fatalf("accept got role=%q room=%q calls=%d", acc.role, acc.room, acc.calls)
			}
		})
	}
}
