// Admin console HTTP handlers.
//
// Every route here sits behind middleware.RequireAdmin:
//   - GET    /rooms                    (paginated, weak ETag)
//   - GET    /rooms/{roomId}/messages  (paginated, marks the room read)
//   - DELETE /rooms/{roomId}
//   - POST   /rooms/{roomId}/forward   (mail the transcript)
//   - GET    /inbox                    (paginated, optional status filter)
//   - PUT    /inbox/{id}               (status change)
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-agent-backend/internal/domain"
	"github.com/tbourn/go-agent-backend/internal/http/middleware"
	"github.com/tbourn/go-agent-backend/internal/services"
	"github.com/tbourn/go-agent-backend/internal/utils"
)

//
// DTOs
//

// RoomsPage is a page of rooms, most recently active first.
type RoomsPage = services.Page[domain.Room]

// MessagesPage is a page of a room's history, oldest first.
type MessagesPage = services.Page[domain.Message]

// InboxPage is a page of inbox items, newest first.
type InboxPage = services.Page[domain.InboxItem]

// UpdateInboxRequest moves an inbox item to a new status.
type UpdateInboxRequest struct {
	Status string `json:"status" binding:"required,oneof=queued in_progress done" example:"in_progress" enums:"queued,in_progress,done"`
}

// ForwardRequest names the transcript recipient.
type ForwardRequest struct {
	To      string `json:"to" example:"ops@khisima.com"`
	Subject string `json:"subject,omitempty" example:"Chat transcript - Room visitor-4f9c2a"`
}

// ForwardResponse carries the Message-ID of the sent mail.
type ForwardResponse struct {
	OK        bool   `json:"ok" example:"true"`
	MessageID string `json:"messageId" example:"<0b7c1d1e-6a1f-4d5e-9c55-3b2f1e7d9a10@khisima.com>"`
}

//
// Rooms
//

// ListRooms godoc
// @ID          listRooms
// @Summary     List chat rooms
// @Description Returns rooms ordered by last activity. Supports a weak ETag via If-None-Match.
// @Tags        Rooms
// @Produce     json
// @Security    BearerAuth
// @Param       If-None-Match  header  string  false  "Return 304 if ETag matches"
// @Param       page    query  int     false  "Page number"     minimum(1) default(1)
// @Param       limit   query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       search  query  string  false  "Room id substring"
// @Success     200  {object}  handlers.RoomsPage
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /rooms [get]
func (h *Handlers) ListRooms(c *gin.Context) {
	ctx := c.Request.Context()
	search := strings.TrimSpace(c.Query("search"))
	page, limit := pageParams(c)
	page, limit = utils.ClampPage(page, limit, services.DefaultRoomsLimit, services.MaxRoomsLimit)

	// ETag pre-check (best effort).
	if count, maxTS, err := h.rooms.Stats(ctx, search); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		etag := fmt.Sprintf(`W/"rooms:%d:%d:%d:%d:%s"`, count, ts, page, limit, search)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	res, err := h.rooms.ListRooms(ctx, page, limit, search)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list rooms")
		return
	}
	ok(c, http.StatusOK, res)
}

// ListRoomMessages godoc
// @ID          listRoomMessages
// @Summary     Room history
// @Description Returns a page of messages, oldest first, and resets the room's unread counter.
// @Tags        Rooms
// @Produce     json
// @Security    BearerAuth
// @Param       roomId  path   string  true   "Room id"
// @Param       page    query  int     false  "Page number"     minimum(1) default(1)
// @Param       limit   query  int     false  "Items per page"  minimum(1) maximum(500) default(200)
// @Success     200  {object}  handlers.MessagesPage
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Room not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /rooms/{roomId}/messages [get]
func (h *Handlers) ListRoomMessages(c *gin.Context) {
	page, limit := pageParams(c)
	res, err := h.rooms.ListMessages(c.Request.Context(), c.Param("roomId"), page, limit)
	switch {
	case errors.Is(err, services.ErrRoomNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "room not found")
		return
	case errors.Is(err, services.ErrRoomRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "room id required")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list messages")
		return
	}
	ok(c, http.StatusOK, res)
}

// DeleteRoom godoc
// @ID          deleteRoom
// @Summary     Delete a room
// @Description Removes a room and its messages. Deleting an unknown room succeeds.
// @Tags        Rooms
// @Produce     json
// @Security    BearerAuth
// @Param       roomId  path  string  true  "Room id"
// @Success     200  {object}  handlers.OKResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /rooms/{roomId} [delete]
func (h *Handlers) DeleteRoom(c *gin.Context) {
	err := h.rooms.DeleteRoom(c.Request.Context(), c.Param("roomId"))
	switch {
	case errors.Is(err, services.ErrRoomRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "room id required")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "could not delete room")
		return
	}
	ok(c, http.StatusOK, OKResponse{OK: true})
}

// ForwardTranscript godoc
// @ID          forwardTranscript
// @Summary     Email a transcript
// @Description Sends the room's full history as plain text to the given address.
// @Tags        Rooms
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       roomId  path  string                    true  "Room id"
// @Param       body    body  handlers.ForwardRequest  true  "Recipient"
// @Success     200  {object}  handlers.ForwardResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Mail failed"
// @Failure     503  {object}  handlers.ErrorResponse  "Mailer not configured"
// @Router      /rooms/{roomId}/forward [post]
func (h *Handlers) ForwardTranscript(c *gin.Context) {
	var req ForwardRequest
	if !bindJSON(c, &req) {
		return
	}
	if h.transcripts == nil {
		fail(c, http.StatusServiceUnavailable, ErrCodeMailDisabled, "mailer not configured")
		return
	}

	id, err := h.transcripts.Forward(c.Request.Context(), c.Param("roomId"), req.To, req.Subject)
	switch {
	case errors.Is(err, services.ErrInvalidRecipient):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "valid recipient email is required")
		return
	case errors.Is(err, services.ErrRoomRequired):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "room id required")
		return
	case errors.Is(err, services.ErrMailerDisabled):
		fail(c, http.StatusServiceUnavailable, ErrCodeMailDisabled, "mailer not configured")
		return
	case err != nil:
		middleware.LoggerFrom(c).Error().Err(err).Msg("transcript forward failed")
		fail(c, http.StatusInternalServerError, ErrCodeMailFailed, "could not send transcript")
		return
	}
	ok(c, http.StatusOK, ForwardResponse{OK: true, MessageID: id})
}

//
// Inbox
//

// ListInbox godoc
// @ID          listInbox
// @Summary     List inbox items
// @Description Returns queued offline questions, newest first.
// @Tags        Inbox
// @Produce     json
// @Security    BearerAuth
// @Param       page    query  int     false  "Page number"     minimum(1) default(1)
// @Param       limit   query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       status  query  string  false  "Status filter"   Enums(queued, in_progress, done)
// @Success     200  {object}  handlers.InboxPage
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid status"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /inbox [get]
func (h *Handlers) ListInbox(c *gin.Context) {
	page, limit := pageParams(c)
	res, err := h.inbox.List(c.Request.Context(), page, limit, c.Query("status"))
	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, ErrCodeInvalidStatus, "status must be queued, in_progress or done")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list inbox")
		return
	}
	ok(c, http.StatusOK, res)
}

// UpdateInbox godoc
// @ID          updateInbox
// @Summary     Change an inbox item's status
// @Tags        Inbox
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id    path  string                       true  "Inbox item id"  format(uuid)
// @Param       body  body  handlers.UpdateInboxRequest  true  "New status"
// @Success     200  {object}  domain.InboxItem
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid status"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /inbox/{id} [put]
func (h *Handlers) UpdateInbox(c *gin.Context) {
	var req UpdateInboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fail(c, http.StatusBadRequest, ErrCodeInvalidStatus, bindMessage(err))
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return
	}
	it, err := h.inbox.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	switch {
	case errors.Is(err, services.ErrInvalidStatus):
		fail(c, http.StatusBadRequest, ErrCodeInvalidStatus, "status must be queued, in_progress or done")
		return
	case errors.Is(err, services.ErrInboxItemNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "inbox item not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not update inbox item")
		return
	}
	ok(c, http.StatusOK, it)
}
