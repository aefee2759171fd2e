// Package services – InboxService
//
// InboxService captures visitor questions while no admin is online and lets
// admins work through them. Submissions are gated on presence at call time
// and can be retried safely with an idempotency key.
package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-agent-backend/internal/domain"
	"github.com/tbourn/go-agent-backend/internal/repo"
	"github.com/tbourn/go-agent-backend/internal/utils"
)

// Pagination defaults for the admin inbox listing.
const (
	DefaultInboxLimit = 20
	MaxInboxLimit     = 100
)

// PresenceReader exposes the current admin availability.
type PresenceReader interface {
	Online(ctx context.Context) (bool, error)
}

// Submission is a visitor's offline question.
type Submission struct {
	Room     string
	Email    string
	Question string

	// IdemScope and IdemKey identify a retry of the same submission. Both
	// must be set for replay detection.
	IdemScope string
	IdemKey   string
}

// Receipt identifies the stored inbox item. Replayed is true when an earlier
// submission with the same idempotency key was returned instead.
type Receipt struct {
	ID       string
	Replayed bool
}

// InboxService implements the offline inbox use-cases.
type InboxService struct {
	Store    InboxStore
	Idem     IdempotencyStore
	Presence PresenceReader
	IdemTTL  time.Duration
	Now      func() time.Time
}

// NewInboxService wires an InboxService. idem may be nil to disable replay
// detection.
func NewInboxService(store InboxStore, idem IdempotencyStore, presence PresenceReader, idemTTL time.Duration) *InboxService {
	return &InboxService{Store: store, Idem: idem, Presence: presence, IdemTTL: idemTTL, Now: time.Now}
}

// Submit queues a question for follow-up. It fails with ErrAdminOnline when
// an admin is available at call time.
func (s *InboxService) Submit(ctx context.Context, in Submission) (Receipt, error) {
	ctx, span := otel.Tracer("services/InboxService").Start(ctx, "Submit",
		trace.WithAttributes(attribute.String("room.id", in.Room)),
	)
	defer span.End()

	room := strings.TrimSpace(in.Room)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	question := strings.TrimSpace(in.Question)
	if room == "" || email == "" || question == "" {
		return Receipt{}, ErrInvalidSubmission
	}

	replayable := s.Idem != nil && in.IdemScope != "" && in.IdemKey != ""
	if replayable {
		rec, err := s.Idem.GetIdempotency(ctx, in.IdemScope, in.IdemKey, s.now())
		switch {
		case err == nil && rec.ResourceID != "":
			return Receipt{ID: rec.ResourceID, Replayed: true}, nil
		case err != nil && !errors.Is(err, repo.ErrNotFound):
			return Receipt{}, err
		}
	}

	if s.Presence != nil {
		online, err := s.Presence.Online(ctx)
		if err != nil {
			return Receipt{}, err
		}
		if online {
			return Receipt{}, ErrAdminOnline
		}
	}

	item := &domain.InboxItem{
		Room:     room,
		Email:    email,
		Question: question,
		Status:   domain.InboxQueued,
	}
	if err := s.Store.CreateInboxItem(ctx, item); err != nil {
		return Receipt{}, err
	}

	if replayable {
		err := s.Idem.SaveIdempotency(ctx, in.IdemScope, in.IdemKey, item.ID, http.StatusOK, s.IdemTTL)
		if err != nil && !errors.Is(err, repo.ErrDuplicate) {
			log.Ctx(ctx).Warn().Err(err).Str("item_id", item.ID).Msg("idempotency save failed")
		}
	}
	return Receipt{ID: item.ID}, nil
}

// List returns a page of inbox items, newest first. An empty status lists
// every item.
func (s *InboxService) List(ctx context.Context, page, limit int, status string) (Page[domain.InboxItem], error) {
	page, limit = utils.ClampPage(page, limit, DefaultInboxLimit, MaxInboxLimit)
	ctx, span := otel.Tracer("services/InboxService").Start(ctx, "List",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("limit", limit),
			attribute.String("inbox.status", status),
		),
	)
	defer span.End()

	out := Page[domain.InboxItem]{Items: []domain.InboxItem{}, Page: page, Limit: limit}

	var filter domain.InboxStatus
	if status = strings.TrimSpace(status); status != "" {
		st, ok := domain.ParseInboxStatus(status)
		if !ok {
			return out, ErrInvalidStatus
		}
		filter = st
	}

	total, err := s.Store.CountInbox(ctx, filter)
	if err != nil {
		return out, err
	}
	out.Total = total
	out.TotalPages = utils.TotalPages(total, limit)
	if total == 0 {
		return out, nil
	}
	items, err := s.Store.ListInbox(ctx, filter, utils.Offset(page, limit), limit)
	if err != nil {
		return out, err
	}
	out.Items = items
	return out, nil
}

// UpdateStatus moves an item to status and returns the updated item.
func (s *InboxService) UpdateStatus(ctx context.Context, id, status string) (*domain.InboxItem, error) {
	ctx, span := otel.Tracer("services/InboxService").Start(ctx, "UpdateStatus",
		trace.WithAttributes(
			attribute.String("inbox.id", id),
			attribute.String("inbox.status", status),
		),
	)
	defer span.End()

	st, ok := domain.ParseInboxStatus(strings.TrimSpace(status))
	if !ok {
		return nil, ErrInvalidStatus
	}
	it, err := s.Store.UpdateInboxStatus(ctx, strings.TrimSpace(id), st)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInboxItemNotFound
	}
	return it, err
}

func (s *InboxService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
