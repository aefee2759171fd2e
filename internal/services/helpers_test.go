package services

import (
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-agent-backend/internal/repo"
)

// stores returns both storage implementations so each behavior is checked
// against the SQL upsert path and the in-memory path.
func stores(t *testing.T) map[string]Store {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return map[string]Store{
		"gorm":   repo.NewGormStore(db),
		"memory": repo.NewMemoryStore(),
	}
}

type recordingBroadcaster struct {
	values []bool
}

func (b *recordingBroadcaster) BroadcastPresence(online bool) {
	b.values = append(b.values, online)
}
