package repo

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/go-agent-backend/internal/domain"
)

// MemoryStore is a process-local implementation of the same contract as
// GormStore. It backs DB_DRIVER=memory and service tests.
//
// A single mutex serializes all operations, which makes the room upsert
// atomic in the same way ON CONFLICT does for the SQL store.
type MemoryStore struct {
	mu       sync.Mutex
	presence *domain.PresenceRecord
	rooms    map[string]*domain.Room
	messages []domain.Message
	nextMsg  uint64
	inbox    map[string]*domain.InboxItem
	idem     map[string]domain.Idempotency
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms: make(map[string]*domain.Room),
		inbox: make(map[string]*domain.InboxItem),
		idem:  make(map[string]domain.Idempotency),
	}
}

func (m *MemoryStore) EnsurePresence(_ context.Context) (*domain.PresenceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.presence == nil {
		m.presence = &domain.PresenceRecord{Key: domain.PresenceKey, UpdatedAt: time.Now().UTC()}
	}
	cp := *m.presence
	return &cp, nil
}

func (m *MemoryStore) GetPresence(_ context.Context) (*domain.PresenceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.presence == nil {
		return nil, ErrNotFound
	}
	cp := *m.presence
	return &cp, nil
}

func (m *MemoryStore) SetPresence(_ context.Context, online bool, at time.Time) (*domain.PresenceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presence = &domain.PresenceRecord{Key: domain.PresenceKey, Online: online, UpdatedAt: at.UTC()}
	cp := *m.presence
	return &cp, nil
}

func (m *MemoryStore) AppendMessage(_ context.Context, roomID string, role domain.Role, text string, at time.Time) (*domain.Message, error) {
	at = at.UTC()
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		r = &domain.Room{RoomID: roomID, CreatedAt: at}
		m.rooms[roomID] = r
	}
	r.LastMessageAt = at
	r.UpdatedAt = at
	switch UnreadOpFor(role) {
	case UnreadIncrement:
		r.UnreadCount++
	case UnreadReset:
		r.UnreadCount = 0
	}

	m.nextMsg++
	msg := domain.Message{ID: m.nextMsg, RoomID: roomID, Role: role, Text: text, CreatedAt: at}
	m.messages = append(m.messages, msg)
	return &msg, nil
}

func (m *MemoryStore) GetRoom(_ context.Context, roomID string) (*domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) CountRooms(_ context.Context, search string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.matchRooms(search))), nil
}

func (m *MemoryStore) ListRooms(_ context.Context, search string, offset, limit int) ([]domain.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := m.matchRooms(search)
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].LastMessageAt.Equal(rooms[j].LastMessageAt) {
			return rooms[i].LastMessageAt.After(rooms[j].LastMessageAt)
		}
		return rooms[i].RoomID < rooms[j].RoomID
	})
	return page(rooms, offset, limit), nil
}

func (m *MemoryStore) RoomsStats(_ context.Context, search string) (int64, *time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := m.matchRooms(search)
	if len(rooms) == 0 {
		return 0, nil, nil
	}
	latest := rooms[0].UpdatedAt
	for _, r := range rooms[1:] {
		if r.UpdatedAt.After(latest) {
			latest = r.UpdatedAt
		}
	}
	return int64(len(rooms)), &latest, nil
}

func (m *MemoryStore) CountMessages(_ context.Context, roomID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.roomMessages(roomID))), nil
}

func (m *MemoryStore) ListMessages(_ context.Context, roomID string, offset, limit int) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.roomMessages(roomID)
	sort.SliceStable(msgs, func(i, j int) bool {
		if !msgs[i].CreatedAt.Equal(msgs[j].CreatedAt) {
			return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
		}
		return msgs[i].ID < msgs[j].ID
	})
	if limit <= 0 {
		limit = len(msgs)
	}
	return page(msgs, offset, limit), nil
}

func (m *MemoryStore) MarkRoomRead(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[roomID]; ok {
		r.UnreadCount = 0
		r.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *MemoryStore) DeleteRoom(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.RoomID != roomID {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	return nil
}

func (m *MemoryStore) CreateInboxItem(_ context.Context, item *domain.InboxItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prepareInboxItem(item, time.Now().UTC())
	if _, ok := m.inbox[item.ID]; ok {
		return ErrDuplicate
	}
	cp := *item
	m.inbox[item.ID] = &cp
	return nil
}

func (m *MemoryStore) CountInbox(_ context.Context, status domain.InboxStatus) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.matchInbox(status))), nil
}

func (m *MemoryStore) ListInbox(_ context.Context, status domain.InboxStatus, offset, limit int) ([]domain.InboxItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.matchInbox(status)
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.After(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return page(items, offset, limit), nil
}

func (m *MemoryStore) UpdateInboxStatus(_ context.Context, id string, status domain.InboxStatus) (*domain.InboxItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.inbox[id]
	if !ok {
		return nil, ErrNotFound
	}
	it.Status = status
	it.UpdatedAt = time.Now().UTC()
	cp := *it
	return &cp, nil
}

func (m *MemoryStore) GetIdempotency(_ context.Context, scope, key string, now time.Time) (*domain.Idempotency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.idem[scope+"\x00"+key]
	if !ok || !rec.Live(now) {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *MemoryStore) SaveIdempotency(_ context.Context, scope, key, resourceID string, status int, ttl time.Duration) error {
	now := time.Now().UTC()
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scope + "\x00" + key
	if rec, ok := m.idem[k]; ok && rec.Live(now) {
		return ErrDuplicate
	}
	m.idem[k] = domain.Idempotency{
		ID:         uuid.NewString(),
		Scope:      scope,
		Key:        key,
		ResourceID: resourceID,
		Status:     status,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	return nil
}

// matchRooms returns copies of the rooms whose id contains search. Caller holds mu.
func (m *MemoryStore) matchRooms(search string) []domain.Room {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]domain.Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		if needle == "" || strings.Contains(strings.ToLower(r.RoomID), needle) {
			out = append(out, *r)
		}
	}
	return out
}

// roomMessages returns copies of a room's messages. Caller holds mu.
func (m *MemoryStore) roomMessages(roomID string) []domain.Message {
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.RoomID == roomID {
			out = append(out, msg)
		}
	}
	return out
}

// matchInbox returns copies of items with the given status (all when empty). Caller holds mu.
func (m *MemoryStore) matchInbox(status domain.InboxStatus) []domain.InboxItem {
	out := make([]domain.InboxItem, 0, len(m.inbox))
	for _, it := range m.inbox {
		if status == "" || it.Status == status {
			out = append(out, *it)
		}
	}
	return out
}

func page[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}
