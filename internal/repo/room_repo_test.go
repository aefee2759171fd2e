package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

func TestUnreadOpFor(t *testing.T) {
	cases := map[domain.Role]UnreadOp{
		domain.RoleVisitor: UnreadIncrement,
		domain.RoleAdmin:   UnreadReset,
		domain.RoleAgent:   UnreadKeep,
		domain.RoleSystem:  UnreadKeep,
	}
	for role, want := range cases {
		if got := UnreadOpFor(role); got != want {
			t.Errorf("UnreadOpFor(%q) = %v, want %v", role, got, want)
		}
	}
}

func TestAppendMessage_UnreadLifecycle(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	at := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	room := "visitor-1234"

	for i := 0; i < 3; i++ {
		if _, err := AppendMessage(ctx, db, room, domain.RoleVisitor, fmt.Sprintf("q%d", i), at.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("append visitor: %v", err)
		}
	}
	r, err := GetRoom(ctx, db, room)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if r.UnreadCount != 3 {
		t.Fatalf("unread = %d, want 3", r.UnreadCount)
	}
	if !r.LastMessageAt.Equal(at.Add(2 * time.Second)) {
		t.Fatalf("last_message_at = %v", r.LastMessageAt)
	}

	if _, err := AppendMessage(ctx, db, room, domain.RoleAgent, "auto", at.Add(3*time.Second)); err != nil {
		t.Fatalf("append agent: %v", err)
	}
	if r, _ = GetRoom(ctx, db, room); r.UnreadCount != 3 {
		t.Fatalf("agent reply changed unread to %d", r.UnreadCount)
	}

	if _, err := AppendMessage(ctx, db, room, domain.RoleAdmin, "hello", at.Add(4*time.Second)); err != nil {
		t.Fatalf("append admin: %v", err)
	}
	if r, _ = GetRoom(ctx, db, room); r.UnreadCount != 0 {
		t.Fatalf("admin reply left unread at %d", r.UnreadCount)
	}

	total, err := CountMessages(ctx, db, room)
	if err != nil || total != 5 {
		t.Fatalf("count messages = %d, %v", total, err)
	}
}

func TestAppendMessage_ConcurrentFirstMessages(t *testing.T) {
	db := newRepoDB(t)
	// Shared-cache SQLite reports table locks immediately; one connection
	// serializes the transactions the way a real server would.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	ctx := context.Background()
	room := "visitor-race"
	at := time.Now().UTC()

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := AppendMessage(ctx, db, room, domain.RoleVisitor, fmt.Sprintf("m%d", i), at); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("append: %v", err)
	}

	rooms, err := CountRooms(ctx, db, "")
	if err != nil || rooms != 1 {
		t.Fatalf("rooms = %d, %v", rooms, err)
	}
	r, _ := GetRoom(ctx, db, room)
	if r.UnreadCount != n {
		t.Fatalf("unread = %d, want %d", r.UnreadCount, n)
	}
}

func TestListRoomsPage_OrderAndSearch(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	ids := []string{"visitor-old", "visitor-mid", "guest-new"}
	for i, id := range ids {
		if _, err := AppendMessage(ctx, db, id, domain.RoleVisitor, "hi", base.Add(time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	out, err := ListRoomsPage(ctx, db, "", 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 3 || out[0].RoomID != "guest-new" || out[2].RoomID != "visitor-old" {
		t.Fatalf("unexpected order: %+v", out)
	}

	out, err = ListRoomsPage(ctx, db, "VISITOR", 0, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(out) != 2 || out[0].RoomID != "visitor-mid" {
		t.Fatalf("unexpected search result: %+v", out)
	}

	out, _ = ListRoomsPage(ctx, db, "", 1, 1)
	if len(out) != 1 || out[0].RoomID != "visitor-mid" {
		t.Fatalf("unexpected page: %+v", out)
	}

	// LIKE wildcards in the search are matched literally.
	if n, _ := CountRooms(ctx, db, "%"); n != 0 {
		t.Fatalf("wildcard search matched %d rooms", n)
	}
}

func TestMarkRoomRead(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()

	if _, err := AppendMessage(ctx, db, "visitor-read", domain.RoleVisitor, "hi", time.Now()); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := MarkRoomRead(ctx, db, "visitor-read"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	r, _ := GetRoom(ctx, db, "visitor-read")
	if r.UnreadCount != 0 {
		t.Fatalf("unread = %d", r.UnreadCount)
	}
	if err := MarkRoomRead(ctx, db, "nope-nope"); err != nil {
		t.Fatalf("missing room should not error: %v", err)
	}
}

func TestDeleteRoom_CascadesAndIsIdempotent(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, id := range []string{"visitor-del", "visitor-keep"} {
		if _, err := AppendMessage(ctx, db, id, domain.RoleVisitor, "hi", now); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	if err := DeleteRoom(ctx, db, "visitor-del"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := GetRoom(ctx, db, "visitor-del"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("room still present: %v", err)
	}
	if n, _ := CountMessages(ctx, db, "visitor-del"); n != 0 {
		t.Fatalf("messages left: %d", n)
	}
	if n, _ := CountMessages(ctx, db, "visitor-keep"); n != 1 {
		t.Fatalf("other room lost messages: %d", n)
	}
	if err := DeleteRoom(ctx, db, "visitor-del"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestListMessagesPage_OrderAndLimit(t *testing.T) {
	db := newRepoDB(t)
	ctx := context.Background()
	at := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	room := "visitor-order"

	// Same timestamp: insertion order wins.
	for _, text := range []string{"a", "b", "c"} {
		if _, err := AppendMessage(ctx, db, room, domain.RoleVisitor, text, at); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if _, err := AppendMessage(ctx, db, room, domain.RoleAdmin, "earlier", at.Add(-time.Minute)); err != nil {
		t.Fatalf("append: %v", err)
	}

	all, err := ListMessagesPage(ctx, db, room, 0, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := ""
	for _, m := range all {
		got += m.Text + ","
	}
	if got != "earlier,a,b,c," {
		t.Fatalf("order = %s", got)
	}

	page, _ := ListMessagesPage(ctx, db, room, 1, 2)
	if len(page) != 2 || page[0].Text != "a" || page[1].Text != "b" {
		t.Fatalf("page = %+v", page)
	}
}
