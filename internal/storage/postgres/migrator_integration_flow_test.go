package postgres

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMigrator_PostgresLifecycle(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	// Reset migration state first.
	if err := store.MigrateDown(ctx, 100); err != nil {
		t.Fatalf("migrate down reset: %v", err)
	}

	status, err := store.SchemaStatus(ctx)
	if err != nil {
		t.Fatalf("migration status after reset: %v", err)
	}
	if status.Version != 0 || status.Applied != 0 {
		t.Fatalf("unexpected status after reset: %+v", status)
	}

	if len(status.Pending) != 2 {
		t.Fatalf("expected both migrations pending after reset: %+v", status)
	}

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up all: %v", err)
	}
	status, err = store.SchemaStatus(ctx)
	if err != nil {
		t.Fatalf("migration status after up all: %v", err)
	}
	if status.Version != 2 || status.Applied != 2 {
		t.Fatalf("unexpected status after up all: %+v", status)
	}

	// Idempotent up should keep state unchanged.
	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("idempotent migrate up: %v", err)
	}
	status, err = store.SchemaStatus(ctx)
	if err != nil {
		t.Fatalf("migration status after idempotent up: %v", err)
	}
	if status.Version != 2 || status.Applied != 2 {
		t.Fatalf("unexpected status after idempotent up: %+v", status)
	}

	if len(status.Pending) != 0 {
		t.Fatalf("expected nothing pending: %+v", status)
	}

	if err := store.MigrateDown(ctx, 1); err != nil {
		t.Fatalf("migrate down 1: %v", err)
	}
	status, err = store.SchemaStatus(ctx)
	if err != nil {
		t.Fatalf("migration status after down 1: %v", err)
	}
	if status.Version != 1 || status.Applied != 1 {
		t.Fatalf("unexpected status after down 1: %+v", status)
	}

	if err := store.MigrateDown(ctx, 0); err != nil {
		t.Fatalf("migrate down default step: %v", err)
	}
	status, err = store.SchemaStatus(ctx)
	if err != nil {
		t.Fatalf("migration status after down default: %v", err)
	}
	if status.Version != 0 || status.Applied != 0 {
		t.Fatalf("unexpected status after down default: %+v", status)
	}

	// Отредактированная после применения миграция не должна молча пропускаться.
	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up before drift check: %v", err)
	}
	if _, err := store.db.ExecContext(ctx, `UPDATE schema_migrations SET checksum = 'edited' WHERE version = 1`); err != nil {
		t.Fatalf("tamper checksum: %v", err)
	}
	if err := store.MigrateDown(ctx, 1); !errors.Is(err, ErrMigrationDrift) {
		t.Fatalf("expected drift error, got %v", err)
	}
	if _, err := store.db.ExecContext(ctx, `UPDATE schema_migrations SET checksum = '' WHERE version = 1`); err != nil {
		t.Fatalf("reset checksum: %v", err)
	}
	if err := store.MigrateDown(ctx, 100); err != nil {
		t.Fatalf("migrate down after drift check: %v", err)
	}

	// No-op down on empty state.
	if err := store.MigrateDown(ctx, 1); err != nil {
		t.Fatalf("migrate down on empty should be no-op: %v", err)
	}
}

func TestMigrator_GuardsAndUnsupportedDirection(t *testing.T) {
	var nilStore *Store
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := nilStore.MigrateUp(ctx, 0); err == nil {
		t.Fatal("expected error for nil store MigrateUp")
	}
	if err := nilStore.MigrateDown(ctx, 1); err == nil {
		t.Fatal("expected error for nil store MigrateDown")
	}
	if _, err := nilStore.SchemaStatus(ctx); err == nil {
		t.Fatal("expected error for nil store SchemaStatus")
	}

	store := openRawPostgresStoreForIntegrationTest(t)
	if err := store.migrate(ctx, migrationDirection("invalid"), 0); err == nil {
		t.Fatal("expected unsupported direction error")
	}
}
