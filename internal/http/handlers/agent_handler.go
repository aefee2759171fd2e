// Public agent HTTP handlers.
//
// This file exposes the visitor-facing endpoints under the API base path:
//   - GET  /status  (admin availability)
//   - PUT  /status  (admin only; toggles availability and broadcasts it)
//   - GET  /search  (automatic answer lookup)
//   - POST /inbox   (offline question capture, honours Idempotency-Key)
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/tbourn/go-agent-backend/internal/http/middleware"
	"github.com/tbourn/go-agent-backend/internal/services"
)

// MsgAdminOnline is returned to visitors who try the inbox while an admin
// is available.
const MsgAdminOnline = "Admin is online; continue in chat."

//
// DTOs
//

// StatusResponse reports admin availability.
type StatusResponse struct {
	Online bool `json:"online" example:"true"`
}

// SetStatusRequest toggles admin availability.
type SetStatusRequest struct {
	Online *bool `json:"online" binding:"required" example:"false"`
}

// SearchResponse carries an automatic answer. Both fields are omitted when
// nothing matched, which tells the widget to escalate.
type SearchResponse struct {
	Answer string `json:"answer,omitempty" example:"We translate 40+ languages, including Kinyarwanda and Swahili."`
	Source string `json:"source,omitempty" example:"quick"`
}

// SearchQuery holds the /search query parameters. Bounds are in runes and
// apply to the trimmed values.
type SearchQuery struct {
	Q    string `form:"q" binding:"required,min=2,max=200"`
	Room string `form:"room" binding:"omitempty,min=6,max=200"`
}

// InboxRequest is a visitor's offline question. Fields are trimmed and the
// email lower-cased while decoding, so the binding rules see clean values.
type InboxRequest struct {
	Room     string `json:"room" binding:"required,min=6,max=200" example:"visitor-4f9c2a"`
	Email    string `json:"email" binding:"required,email,max=254" example:"jane@example.com"`
	Question string `json:"question" binding:"required,min=6,max=2000" example:"Can you translate a 20 page contract into French?"`
}

func (r *InboxRequest) UnmarshalJSON(b []byte) error {
	type plain InboxRequest
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = InboxRequest{
		Room:     strings.TrimSpace(v.Room),
		Email:    strings.ToLower(strings.TrimSpace(v.Email)),
		Question: strings.TrimSpace(v.Question),
	}
	return nil
}

// InboxResponse acknowledges a queued question.
type InboxResponse struct {
	OK bool   `json:"ok" example:"true"`
	ID string `json:"id" example:"6c1f7a0e-2b1d-4f57-9f0e-3c9a5b1e2d44"`
}

//
// Handlers
//

// GetStatus godoc
// @ID          getStatus
// @Summary     Admin availability
// @Description Reports whether an admin is online for live chat.
// @Tags        Agent
// @Produce     json
// @Success     200  {object}  handlers.StatusResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /status [get]
func (h *Handlers) GetStatus(c *gin.Context) {
	online, err := h.presence.Online(c.Request.Context())
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not read status")
		return
	}
	ok(c, http.StatusOK, StatusResponse{Online: online})
}

// SetStatus godoc
// @ID          setStatus
// @Summary     Toggle admin availability
// @Description Persists the admin online flag and broadcasts it to every connected client.
// @Tags        Agent
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       body  body  handlers.SetStatusRequest  true  "New availability"
// @Success     200  {object}  handlers.StatusResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     403  {object}  handlers.ErrorResponse  "Forbidden"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /status [put]
func (h *Handlers) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Online == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "online must be a boolean")
		return
	}
	online, err := h.presence.Set(c.Request.Context(), *req.Online)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not update status")
		return
	}
	if sub, found := middleware.AdminSubject(c); found {
		middleware.LoggerFrom(c).Info().Str("admin", sub).Bool("online", online).Msg("presence changed")
	}
	ok(c, http.StatusOK, StatusResponse{Online: online})
}

// Search godoc
// @ID          search
// @Summary     Automatic answer
// @Description Looks up a canned or site-backed answer. An empty object means no confident answer.
// @Tags        Agent
// @Produce     json
// @Param       q     query  string  true   "Visitor question"  minLength(2) maxLength(200)
// @Param       room  query  string  false  "Room id"           minLength(6) maxLength(200)
// @Success     200  {object}  handlers.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /search [get]
func (h *Handlers) Search(c *gin.Context) {
	var req SearchQuery
	err := c.ShouldBindQuery(&req)
	if err == nil {
		// Padding must not count toward the bounds.
		req.Q, req.Room = strings.TrimSpace(req.Q), strings.TrimSpace(req.Room)
		err = binding.Validator.ValidateStruct(&req)
	}
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}

	res := h.answers.Resolve(c.Request.Context(), req.Q)
	if !res.OK() {
		ok(c, http.StatusOK, SearchResponse{})
		return
	}
	ok(c, http.StatusOK, SearchResponse{Answer: res.Answer, Source: string(res.Source)})
}

// SubmitInbox godoc
// @ID          submitInbox
// @Summary     Leave a question for follow-up
// @Description Queues a question while no admin is online. Retries with the same Idempotency-Key return the original id.
// @Tags        Agent
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string                  false  "Client retry key"
// @Param       body             body    handlers.InboxRequest  true   "Question"
// @Success     200  {object}  handlers.InboxResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Admin is online"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /inbox [post]
func (h *Handlers) SubmitInbox(c *gin.Context) {
	var req InboxRequest
	if !bindJSON(c, &req) {
		return
	}

	scope, key, _ := middleware.GetIdempotencyKey(c)
	rc, err := h.inbox.Submit(c.Request.Context(), services.Submission{
		Room:      req.Room,
		Email:     req.Email,
		Question:  req.Question,
		IdemScope: scope,
		IdemKey:   key,
	})
	switch {
	case errors.Is(err, services.ErrAdminOnline):
		fail(c, http.StatusConflict, ErrCodeAdminOnline, MsgAdminOnline)
		return
	case errors.Is(err, services.ErrInvalidSubmission):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "room, email and question are required")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not queue question")
		return
	}

	if rc.Replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	ok(c, http.StatusOK, InboxResponse{OK: true, ID: rc.ID})
}
