// Package domain defines the persistence models for the live agent chat:
// admin presence, rooms, room messages and offline inbox items. These types
// are mapped with GORM and shared by the repository, service, realtime and
// HTTP layers.
package domain

import "time"

// PresenceKey is the fixed key of the singleton presence record.
const PresenceKey = "global"

// Role identifies the author of a room message.
type Role string

const (
	RoleVisitor Role = "visitor"
	RoleAgent   Role = "agent"
	RoleAdmin   Role = "admin"
	RoleSystem  Role = "system"
)

// Valid reports whether r is one of the known message roles.
func (r Role) Valid() bool {
	switch r {
	case RoleVisitor, RoleAgent, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// InboxStatus is the follow-up state of an inbox item.
type InboxStatus string

const (
	InboxQueued     InboxStatus = "queued"
	InboxInProgress InboxStatus = "in_progress"
	InboxDone       InboxStatus = "done"
)

// ParseInboxStatus validates s against the known statuses.
func ParseInboxStatus(s string) (InboxStatus, bool) {
	switch st := InboxStatus(s); st {
	case InboxQueued, InboxInProgress, InboxDone:
		return st, true
	}
	return "", false
}

// PresenceRecord tells whether a human admin is available for live chat.
// Exactly one row exists, keyed by PresenceKey.
//
// Fields:
//   - Key: always "global".
//   - Online: current availability.
//   - UpdatedAt: time of the last toggle.
type PresenceRecord struct {
	Key       string    `json:"-"          gorm:"type:varchar(32);primaryKey"`
	Online    bool      `json:"online"     gorm:"not null;default:false"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for PresenceRecord.
func (PresenceRecord) TableName() string { return "presence" }

// Room is a single visitor conversation, keyed by an opaque id generated by
// the chat widget. Rooms are created implicitly by the first message.
//
// Fields:
//   - RoomID: external room token (primary key).
//   - LastMessageAt: timestamp of the most recent message of any role.
//   - UnreadCount: visitor messages since the last admin read or reply.
//   - CreatedAt / UpdatedAt: bookkeeping, UpdatedAt feeds list ETags.
type Room struct {
	RoomID        string    `json:"roomId"        gorm:"type:varchar(200);primaryKey"`
	LastMessageAt time.Time `json:"lastMessageAt" gorm:"not null;index:idx_rooms_last_msg"`
	UnreadCount   int       `json:"unreadCount"   gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// TableName returns the database table name for Room.
func (Room) TableName() string { return "rooms" }

// Message is one entry of a room's append-only log. Messages reference their
// room by id only; no foreign key is enforced.
//
// ID is an auto-increment sequence so that messages sharing a timestamp keep
// their insertion order.
type Message struct {
	ID        uint64    `json:"id"     gorm:"primaryKey;autoIncrement"`
	RoomID    string    `json:"roomId" gorm:"type:varchar(200);not null;index:idx_room_msgs,priority:1"`
	Role      Role      `json:"role"   gorm:"type:varchar(16);not null"`
	Text      string    `json:"text"   gorm:"type:text;not null"`
	CreatedAt time.Time `json:"ts"     gorm:"not null;index:idx_room_msgs,priority:2"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "room_messages" }

// InboxItem is a question captured while no admin was online, queued for
// asynchronous follow-up by email.
type InboxItem struct {
	ID        string      `json:"id"        gorm:"type:char(36);primaryKey"`
	Room      string      `json:"room"      gorm:"type:varchar(200);not null;index"`
	Email     string      `json:"email"     gorm:"type:varchar(320);not null"`
	Question  string      `json:"question"  gorm:"type:text;not null"`
	Status    InboxStatus `json:"status"    gorm:"type:varchar(16);not null;index;default:'queued'"`
	CreatedAt time.Time   `json:"createdAt" gorm:"index"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// TableName returns the database table name for InboxItem.
func (InboxItem) TableName() string { return "inbox_items" }
