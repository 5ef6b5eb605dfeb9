package database

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/taskmaster/tasks/internal/infrastructure/config"
)

func newMemoryDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_SQLiteCreatesSchema(t *testing.T) {
	db := newMemoryDB(t)

	var n int
	if err := db.DB.Get(&n, `SELECT COUNT(*) FROM tasks`); err != nil {
		t.Fatalf("tasks table missing: %v", err)
	}
	if n != 0 {
		t.Fatalf("count=%d", n)
	}
	if db.Driver() != config.DriverSQLite {
		t.Fatalf("driver=%q", db.Driver())
	}
}

func TestHealthCheck(t *testing.T) {
	db := newMemoryDB(t)

	if err := db.HealthCheck(); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
	info := db.GetConnectionInfo()
	if info["max_open_connections"] != 1 {
		t.Fatalf("in-memory db must use a single connection, info=%v", info)
	}
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db := newMemoryDB(t)
	ctx := context.Background()
	sentinel := errors.New("abort")

	err := db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tasks (description, completed) VALUES ('x', 0)`); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("err=%v", err)
	}

	var n int
	if err := db.DB.Get(&n, `SELECT COUNT(*) FROM tasks`); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("rolled back insert is visible, count=%d", n)
	}
}

func TestWithTransaction_Commit(t *testing.T) {
	db := newMemoryDB(t)
	ctx := context.Background()

	err := db.WithTransaction(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO tasks (description, completed) VALUES ('x', 0)`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTransaction: %v", err)
	}

	var n int
	if err := db.DB.Get(&n, `SELECT COUNT(*) FROM tasks`); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("count=%d", n)
	}
}

func TestMigrate_SQLiteUnsupported(t *testing.T) {
	db := newMemoryDB(t)

	if _, err := db.Migrate("up", 0); !errors.Is(err, ErrMigrationsUnsupported) {
		t.Fatalf("err=%v", err)
	}
	if _, _, err := db.MigrationVersion(); !errors.Is(err, ErrMigrationsUnsupported) {
		t.Fatalf("err=%v", err)
	}
}
