package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/goibibo/mem0/internal/store"
	"github.com/goibibo/mem0/internal/store/storetest"
)

func makeSQLiteStore(t *testing.T) store.Store {
	t.Helper()
	s, err := New(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("sqlite new: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_Compliance(t *testing.T) {
	storetest.Run(t, makeSQLiteStore)
}

func TestSQLiteStore_FileMigrationIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "openmemory.db")
	ctx := context.Background()

	s, err := New(ctx, path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := s.HealthPing(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	_ = s.Close()

	s, err = New(ctx, path)
	if err != nil {
		t.Fatalf("second open should re-run migrations cleanly: %v", err)
	}
	_ = s.Close()
}

func TestDialect_MetadataEquals(t *testing.T) {
	cond, args := Dialect{}.MetadataEquals("source", true)
	if cond != "json_extract(m.metadata, ?) = ?" {
		t.Fatalf("unexpected condition: %s", cond)
	}
	if args[0] != `$."source"` || args[1] != 1 {
		t.Fatalf("unexpected args: %v", args)
	}
}
