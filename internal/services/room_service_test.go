package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

// tickingClock returns strictly increasing times one second apart.
func tickingClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func TestRoomService_Append_Validation(t *testing.T) {
	svc := NewRoomService(stores(t)["memory"])
	ctx := context.Background()

	if _, err := svc.Append(ctx, "  ", domain.RoleVisitor, "hi"); !errors.Is(err, ErrRoomRequired) {
		t.Fatalf("expected ErrRoomRequired, got %v", err)
	}
	if _, err := svc.Append(ctx, "visitor-1", domain.RoleVisitor, "   "); !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if _, err := svc.Append(ctx, "visitor-1", domain.Role("bot"), "x"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	svc.MaxTextRunes = 3
	if _, err := svc.Append(ctx, "visitor-1", domain.RoleAdmin, "abcd"); !errors.Is(err, ErrTextTooLong) {
		t.Fatalf("expected ErrTextTooLong, got %v", err)
	}
	if _, err := svc.Append(ctx, "visitor-1", domain.RoleSystem, ""); err != nil {
		t.Fatalf("system message with empty text: %v", err)
	}
}

func TestRoomService_UnreadAndOrdering(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewRoomService(st)
			svc.Now = tickingClock(time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC))
			room := "visitor-" + name

			for _, text := range []string{"one", "two", "three"} {
				if _, err := svc.Append(ctx, room, domain.RoleVisitor, text); err != nil {
					t.Fatalf("append: %v", err)
				}
			}
			svc.Append(ctx, room, domain.RoleAgent, "auto answer")

			rooms, err := svc.ListRooms(ctx, 1, 20, "")
			if err != nil {
				t.Fatalf("list rooms: %v", err)
			}
			if rooms.Total != 1 || rooms.Items[0].UnreadCount != 3 {
				t.Fatalf("rooms = %+v", rooms)
			}

			svc.Append(ctx, room, domain.RoleAdmin, "hello from admin")
			rooms, _ = svc.ListRooms(ctx, 1, 20, "")
			if rooms.Items[0].UnreadCount != 0 {
				t.Fatalf("admin reply did not reset unread: %d", rooms.Items[0].UnreadCount)
			}

			svc.Append(ctx, room, domain.RoleVisitor, "four")
			msgs, err := svc.ListMessages(ctx, room, 1, 0)
			if err != nil {
				t.Fatalf("list messages: %v", err)
			}
			if msgs.Limit != DefaultMessagesLimit || msgs.Total != 6 {
				t.Fatalf("page meta = %+v", msgs)
			}
			var got []string
			for i, m := range msgs.Items {
				got = append(got, m.Text)
				if i > 0 && m.CreatedAt.Before(msgs.Items[i-1].CreatedAt) {
					t.Fatalf("messages out of order at %d", i)
				}
			}
			if strings.Join(got, ",") != "one,two,three,auto answer,hello from admin,four" {
				t.Fatalf("order = %v", got)
			}
			if msgs.Items[4].Role != domain.RoleAdmin {
				t.Fatalf("role = %q", msgs.Items[4].Role)
			}

			rooms, _ = svc.ListRooms(ctx, 1, 20, "")
			if rooms.Items[0].UnreadCount != 0 {
				t.Fatalf("reading messages did not reset unread: %d", rooms.Items[0].UnreadCount)
			}
		})
	}
}

func TestRoomService_ListMessages_UnknownRoom(t *testing.T) {
	svc := NewRoomService(stores(t)["memory"])
	_, err := svc.ListMessages(context.Background(), "visitor-none", 1, 10)
	if !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestRoomService_ListRooms_ClampAndSearch(t *testing.T) {
	svc := NewRoomService(stores(t)["memory"])
	svc.Now = tickingClock(time.Now())
	ctx := context.Background()

	for _, id := range []string{"alpha-room", "beta-room", "ALPHA-two"} {
		svc.Append(ctx, id, domain.RoleVisitor, "hi")
	}
	p, err := svc.ListRooms(ctx, 0, 1000, "alpha")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if p.Page != 1 || p.Limit != MaxRoomsLimit || p.Total != 2 || p.TotalPages != 1 {
		t.Fatalf("page = %+v", p)
	}
	if p.Items[0].RoomID != "ALPHA-two" {
		t.Fatalf("newest first expected, got %s", p.Items[0].RoomID)
	}

	empty, _ := svc.ListRooms(ctx, 1, 10, "zzz")
	if empty.Items == nil || len(empty.Items) != 0 {
		t.Fatalf("expected empty non-nil items, got %#v", empty.Items)
	}
}

func TestRoomService_DeleteRoom_Twice(t *testing.T) {
	for name, st := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := NewRoomService(st)
			svc.Append(ctx, "visitor-gone", domain.RoleVisitor, "bye")

			if err := svc.DeleteRoom(ctx, "visitor-gone"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if err := svc.DeleteRoom(ctx, "visitor-gone"); err != nil {
				t.Fatalf("second delete: %v", err)
			}
			if _, err := svc.ListMessages(ctx, "visitor-gone", 1, 10); !errors.Is(err, ErrRoomNotFound) {
				t.Fatalf("expected ErrRoomNotFound, got %v", err)
			}
			if err := svc.DeleteRoom(ctx, ""); !errors.Is(err, ErrRoomRequired) {
				t.Fatalf("expected ErrRoomRequired, got %v", err)
			}
		})
	}
}
