package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func TestStoreRoundTripsBuckets(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "snap.db")
	s, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if s.Path() != path || s.DB() == nil {
		t.Fatalf("unexpected store %+v", s)
	}
	if err := s.WriteBuckets(ctx, map[string][]byte{"units": []byte(`[{"nid":"Eirika"}]`), "stale": []byte(`[]`)}); err != nil {
		t.Fatalf("WriteBuckets: %v", err)
	}
	if err := s.WriteBuckets(ctx, map[string][]byte{"units": []byte(`[{"nid":"Seth"}]`), "classes": []byte(`[]`)}); err != nil {
		t.Fatalf("WriteBuckets second: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := NewStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	got, err := reopened.ReadBuckets(ctx)
	if err != nil {
		t.Fatalf("ReadBuckets: %v", err)
	}
	if len(got) != 2 || string(got["units"]) != `[{"nid":"Seth"}]` || string(got["classes"]) != `[]` {
		t.Fatalf("unexpected buckets %q", got)
	}
}

func TestStoreDefaultPath(t *testing.T) {
	t.Chdir(t.TempDir())
	s, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if s.Path() != "tacticsdb.db" {
		t.Fatalf("path = %s", s.Path())
	}
}

func TestStoreClosedErrors(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(ctx, filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	_ = s.Close()
	if _, err := s.ReadBuckets(ctx); err == nil {
		t.Fatalf("expected read error after close")
	}
	if err := s.WriteBuckets(ctx, map[string][]byte{"a": nil}); err == nil {
		t.Fatalf("expected write error after close")
	}
}
