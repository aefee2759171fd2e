package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

func TestPresenceService_InitSetOnline(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewPresenceService(st)
			bc := &recordingBroadcaster{}
			svc.SetBroadcaster(bc)

			on, err := svc.Online(ctx)
			if err != nil || on {
				t.Fatalf("Online before Init = %v, %v", on, err)
			}
			if on, err = svc.Init(ctx); err != nil || on {
				t.Fatalf("Init = %v, %v", on, err)
			}

			if on, err = svc.Set(ctx, true); err != nil || !on {
				t.Fatalf("Set(true) = %v, %v", on, err)
			}
			if on, _ = svc.Online(ctx); !on {
				t.Fatalf("Online after Set(true) = false")
			}
			if _, err := svc.Set(ctx, false); err != nil {
				t.Fatalf("Set(false): %v", err)
			}

			if len(bc.values) != 2 || bc.values[0] != true || bc.values[1] != false {
				t.Fatalf("broadcasts = %v", bc.values)
			}

			// Init after a toggle keeps the stored value.
			svc.Set(ctx, true)
			if on, _ = svc.Init(ctx); !on {
				t.Fatalf("Init reset presence")
			}
		})
	}
}

func TestPresenceService_NilBroadcaster(t *testing.T) {
	svc := NewPresenceService(stores(t)["memory"])
	if _, err := svc.Set(context.Background(), true); err != nil {
		t.Fatalf("Set without broadcaster: %v", err)
	}
}

type failingPresenceStore struct{ PresenceStore }

func (failingPresenceStore) SetPresence(context.Context, bool, time.Time) (*domain.PresenceRecord, error) {
	return nil, errors.New("disk full")
}

func TestPresenceService_NoBroadcastOnFailure(t *testing.T) {
	svc := NewPresenceService(failingPresenceStore{})
	bc := &recordingBroadcaster{}
	svc.SetBroadcaster(bc)

	if _, err := svc.Set(context.Background(), true); err == nil {
		t.Fatalf("expected error")
	}
	if len(bc.values) != 0 {
		t.Fatalf("broadcast after failed write: %v", bc.values)
	}
}
