package domain

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:domain_models_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	cases := map[string]string{
		(PresenceRecord{}).TableName(): "presence",
		(Room{}).TableName():           "rooms",
		(Message{}).TableName():        "room_messages",
		(InboxItem{}).TableName():      "inbox_items",
		(Idempotency{}).TableName():    "idempotency",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("TableName() = %q; want %q", got, want)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleVisitor, RoleAgent, RoleAdmin, RoleSystem} {
		if !r.Valid() {
			t.Fatalf("%q should be valid", r)
		}
	}
	if Role("user").Valid() || Role("").Valid() {
		t.Fatalf("unknown roles must be invalid")
	}
}

func TestParseInboxStatus(t *testing.T) {
	for _, s := range []string{"queued", "in_progress", "done"} {
		if st, ok := ParseInboxStatus(s); !ok || string(st) != s {
			t.Fatalf("ParseInboxStatus(%q) = %q,%v", s, st, ok)
		}
	}
	for _, s := range []string{"", "Done", "closed"} {
		if _, ok := ParseInboxStatus(s); ok {
			t.Fatalf("ParseInboxStatus(%q) should fail", s)
		}
	}
}

func TestMigrations_Indexes_AndMessageOrdering(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&PresenceRecord{}, &Room{}, &Message{}, &InboxItem{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	for _, tbl := range []any{&PresenceRecord{}, &Room{}, &Message{}, &InboxItem{}} {
		if !m.HasTable(tbl) {
			t.Fatalf("expected table for %T to exist", tbl)
		}
	}
	if !m.HasIndex(&Message{}, "idx_room_msgs") {
		t.Fatalf("expected index idx_room_msgs on room_messages")
	}
	if !m.HasIndex(&Room{}, "idx_rooms_last_msg") {
		t.Fatalf("expected index idx_rooms_last_msg on rooms")
	}

	// Same timestamp: auto-increment id keeps insertion order.
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, txt := range []string{"first", "second", "third"} {
		if err := db.Create(&Message{RoomID: "room-1", Role: RoleVisitor, Text: txt, CreatedAt: ts}).Error; err != nil {
			t.Fatalf("insert %s: %v", txt, err)
		}
	}
	var got []Message
	if err := db.Where("room_id = ?", "room-1").Order("created_at asc, id asc").Find(&got).Error; err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 || got[0].Text != "first" || got[2].Text != "third" {
		t.Fatalf("unexpected order: %+v", got)
	}

	// Dangling message without a room row is tolerated.
	var rooms int64
	db.Model(&Room{}).Count(&rooms)
	if rooms != 0 {
		t.Fatalf("no room rows expected, got %d", rooms)
	}
}
