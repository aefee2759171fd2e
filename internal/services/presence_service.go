// Package services – PresenceService
//
// PresenceService owns the single "is a human admin available" flag. The
// value lives in storage under a fixed key; every successful Set is pushed to
// the realtime layer through a Broadcaster so connected clients learn about
// the change without polling.
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-agent-backend/internal/repo"
)

// Broadcaster fans a presence change out to every connected client.
type Broadcaster interface {
	BroadcastPresence(online bool)
}

// PresenceService reads and toggles admin presence.
type PresenceService struct {
	Store PresenceStore
	Now   func() time.Time

	mu sync.RWMutex
	bc Broadcaster
}

// NewPresenceService returns a service backed by store.
func NewPresenceService(store PresenceStore) *PresenceService {
	return &PresenceService{Store: store, Now: time.Now}
}

// SetBroadcaster installs the fan-out target. The hub is created after the
// service, so it is attached late; nil disables broadcasting.
func (s *PresenceService) SetBroadcaster(b Broadcaster) {
	s.mu.Lock()
	s.bc = b
	s.mu.Unlock()
}

// Init makes sure the presence record exists and returns its current value.
// Call once at startup.
func (s *PresenceService) Init(ctx context.Context) (bool, error) {
	ctx, span := otel.Tracer("services/PresenceService").Start(ctx, "Init")
	defer span.End()

	rec, err := s.Store.EnsurePresence(ctx)
	if err != nil {
		return false, err
	}
	return rec.Online, nil
}

// Online reports the stored value. A missing record reads as offline.
func (s *PresenceService) Online(ctx context.Context) (bool, error) {
	ctx, span := otel.Tracer("services/PresenceService").Start(ctx, "Online")
	defer span.End()

	rec, err := s.Store.GetPresence(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.Online, nil
}

// Set persists online and broadcasts it. The broadcast only happens after the
// write succeeded.
func (s *PresenceService) Set(ctx context.Context, online bool) (bool, error) {
	ctx, span := otel.Tracer("services/PresenceService").Start(ctx, "Set",
		trace.WithAttributes(attribute.Bool("presence.online", online)),
	)
	defer span.End()

	rec, err := s.Store.SetPresence(ctx, online, s.now())
	if err != nil {
		return false, err
	}

	s.mu.RLock()
	bc := s.bc
	s.mu.RUnlock()
	if bc != nil {
		bc.BroadcastPresence(rec.Online)
	}
	return rec.Online, nil
}

func (s *PresenceService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
