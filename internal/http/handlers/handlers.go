// Package handlers provides HTTP handler implementations for the /agent API.
//
// Handlers are transport-thin: they validate input, call the application
// services through the contracts below, and translate results and sentinel
// errors into JSON responses.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-agent-backend/internal/answer"
	"github.com/tbourn/go-agent-backend/internal/domain"
	"github.com/tbourn/go-agent-backend/internal/services"
	"github.com/tbourn/go-agent-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// PresenceService reads and toggles admin availability.
type PresenceService interface {
	Online(ctx context.Context) (bool, error)
	Set(ctx context.Context, online bool) (bool, error)
}

// AnswerService resolves a free-text question without a human.
type AnswerService interface {
	Resolve(ctx context.Context, query string) answer.Result
}

// InboxService captures and manages offline questions.
type InboxService interface {
	Submit(ctx context.Context, in services.Submission) (services.Receipt, error)
	List(ctx context.Context, page, limit int, status string) (services.Page[domain.InboxItem], error)
	UpdateStatus(ctx context.Context, id, status string) (*domain.InboxItem, error)
}

// RoomService exposes the admin view of chat rooms.
type RoomService interface {
	ListRooms(ctx context.Context, page, limit int, search string) (services.Page[domain.Room], error)
	ListMessages(ctx context.Context, roomID string, page, limit int) (services.Page[domain.Message], error)
	DeleteRoom(ctx context.Context, roomID string) error
	Stats(ctx context.Context, search string) (int64, *time.Time, error)
}

// TranscriptService mails a room's history.
type TranscriptService interface {
	Forward(ctx context.Context, roomID, to, subject string) (string, error)
}

//
// Handler wiring
//

// Handlers groups the public and admin endpoints. Transcripts may be nil, in
// which case forwarding answers 503.
type Handlers struct {
	presence    PresenceService
	answers     AnswerService
	inbox       InboxService
	rooms       RoomService
	transcripts TranscriptService
}

// New constructs a Handlers bound to the given services.
func New(presence PresenceService, answers AnswerService, inbox InboxService, rooms RoomService, transcripts TranscriptService) *Handlers {
	return &Handlers{
		presence:    presence,
		answers:     answers,
		inbox:       inbox,
		rooms:       rooms,
		transcripts: transcripts,
	}
}

// pageParams reads page and limit. Bounds are applied by the services.
func pageParams(c *gin.Context) (page, limit int) {
	return utils.AtoiDefault(c.Query("page"), 1), utils.AtoiDefault(c.Query("limit"), 0)
}

// bindJSON decodes and validates the body into dst or answers 400.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindMessage(err))
		return false
	}
	return true
}

// bindMessage describes the first failed binding rule for the client.
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid JSON body"
	}
	fe := verrs[0]
	name := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return "a valid email is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "oneof":
		return name + " must be one of " + strings.Join(strings.Fields(fe.Param()), ", ")
	default:
		return name + " is invalid"
	}
}
