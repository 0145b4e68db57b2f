package shared

import (
	"context"
	"io/fs"
	"strings"
	"testing"
)

func TestMigrationRunner(t *testing.T) {
	ctx := context.Background()

	t.Run("Embedded Files", func(t *testing.T) {
		for _, driver := range []string{DriverSQLite, DriverPostgres} {
			entries, err := fs.ReadDir(migrationFiles, migrationDir(driver))
			if err != nil {
				t.Fatalf("failed to read %s migrations: %v", driver, err)
			}
			if len(entries) != 2 {
				t.Errorf("expected 2 %s migrations, got %d", driver, len(entries))
			}
			for _, e := range entries {
				data, _ := fs.ReadFile(migrationFiles, migrationDir(driver)+"/"+e.Name())
				if !strings.Contains(string(data), "-- +goose Up") || !strings.Contains(string(data), "-- +goose Down") {
					t.Errorf("%s is missing goose annotations", e.Name())
				}
			}
		}
	})

	t.Run("RunMigrations And Rollback", func(t *testing.T) {
		db, err := NewDatabase(DriverSQLite, ":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(ctx, db, DriverSQLite); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		version, err := MigrationVersion(ctx, db, DriverSQLite)
		if err != nil {
			t.Fatalf("failed to read version: %v", err)
		}
		if version != 2 {
			t.Errorf("expected version 2, got %d", version)
		}

		for _, table := range []string{"submissions", "archive"} {
			if _, err := db.Exec("SELECT 1 FROM " + table + " LIMIT 1"); err != nil {
				t.Errorf("%s table should exist after migrations: %v", table, err)
			}
		}

		if err := RollbackMigration(ctx, db, DriverSQLite); err != nil {
			t.Fatalf("failed to rollback migration: %v", err)
		}

		if _, err := db.Exec("SELECT 1 FROM archive LIMIT 1"); err == nil {
			t.Error("archive table should be gone after rollback")
		}
		if _, err := db.Exec("SELECT 1 FROM submissions LIMIT 1"); err != nil {
			t.Errorf("submissions table should survive a single rollback: %v", err)
		}
	})

	t.Run("Idempotent Migrations", func(t *testing.T) {
		db, err := NewDatabase(DriverSQLite, ":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(ctx, db, DriverSQLite); err != nil {
			t.Fatalf("failed to run migrations first time: %v", err)
		}
		if err := RunMigrations(ctx, db, DriverSQLite); err != nil {
			t.Fatalf("failed to run migrations second time: %v", err)
		}

		version, _ := MigrationVersion(ctx, db, DriverSQLite)
		if version != 2 {
			t.Errorf("expected version 2, got %d", version)
		}
	})

	t.Run("Unique Member Period", func(t *testing.T) {
		db, err := NewDatabase(DriverSQLite, ":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if err := RunMigrations(ctx, db, DriverSQLite); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}

		insert := "INSERT INTO submissions (id, track, artist, member, period) VALUES ($1, 'x', 'y', 'alice', '2024-W01')"
		if _, err := db.Exec(insert, "one"); err != nil {
			t.Fatalf("first insert failed: %v", err)
		}
		if _, err := db.Exec(insert, "two"); err == nil {
			t.Error("expected unique constraint violation on second insert")
		}
	})
}

func TestNewDatabase(t *testing.T) {
	t.Run("Unsupported Driver", func(t *testing.T) {
		if _, err := NewDatabase("oracle", "x"); err == nil {
			t.Error("expected error for unsupported driver")
		}
	})

	t.Run("Empty Path", func(t *testing.T) {
		if _, err := NewDatabase(DriverSQLite, ""); err == nil {
			t.Error("expected error for empty path")
		}
	})

	t.Run("Dialect", func(t *testing.T) {
		tests := map[string]string{
			"":           DriverSQLite,
			"sqlite3":    DriverSQLite,
			"pgx":        DriverPostgres,
			"postgres":   DriverPostgres,
			"postgresql": DriverPostgres,
		}
		for in, want := range tests {
			if got := Dialect(in); got != want {
				t.Errorf("Dialect(%q) = %q, want %q", in, got, want)
			}
		}
	})
}
