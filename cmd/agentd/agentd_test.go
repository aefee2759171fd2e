package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/go-agent-backend/internal/config"
	"github.com/tbourn/go-agent-backend/internal/http/middleware"
	"github.com/tbourn/go-agent-backend/internal/repo"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand_IssuesAdminToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")
	t.Setenv("DB_DRIVER", "memory")

	out, err := run(t, "token", "--subject", "ops", "--ttl", "5m")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	sub, err := middleware.NewAdminAuth("cli-secret", "").Verify(strings.TrimSpace(out))
	if err != nil || sub != "ops" {
		t.Fatalf("Verify = %q, %v", sub, err)
	}
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_DRIVER", "memory")

	if _, err := run(t, "token"); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}

func TestBootstrap_BadEnvFile(t *testing.T) {
	if _, err := run(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "token"); err == nil {
		t.Fatalf("expected error for missing env file")
	}
	envFile = ""
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "agent.db"))
	if _, err := run(t, "migrate"); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Setenv("DB_DRIVER", "memory")
	if _, err := run(t, "migrate"); err == nil {
		t.Fatalf("migrate should refuse the memory driver")
	}
}

func TestOpenBackend(t *testing.T) {
	be, err := openBackend(config.Config{DB: config.DBConfig{Driver: repo.DriverMemory}})
	if err != nil || be.db != nil {
		t.Fatalf("memory backend: %+v, %v", be, err)
	}
	be.close()

	be, err = openBackend(config.Config{DB: config.DBConfig{Driver: repo.DriverSQLite, Path: filepath.Join(t.TempDir(), "a.db")}})
	if err != nil || be.db == nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	defer be.close()

	ctx := context.Background()
	if _, err := be.store.SetPresence(ctx, true, time.Now()); err != nil {
		t.Fatalf("store not migrated: %v", err)
	}
}
