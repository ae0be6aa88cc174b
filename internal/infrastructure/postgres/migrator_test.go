package postgres

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestMigratorInvalidSource(t *testing.T) {
	m := NewMigrator("postgres://invalid:5432/db?sslmode=disable", "/nonexistent/migrations", zerolog.Nop())

	if err := m.Up(); err == nil {
		t.Fatalf("expected error for missing migrations directory")
	}
	if _, _, err := m.Version(); err == nil {
		t.Fatalf("expected error for missing migrations directory")
	}
}
