package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"repograph/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// exerciseStore runs the behavior every Store must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := "summary-branch:main|owner:octo|path:src/app.ts|repo:widgets|version:1"

	t.Run("miss on empty store", func(t *testing.T) {
		v, found, err := s.Get(ctx, "nonexistent")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Error("expected not found for nonexistent key")
		}
		if v != nil {
			t.Errorf("expected nil value, got %q", v)
		}
	})

	t.Run("set and get", func(t *testing.T) {
		if err := s.Set(ctx, key, []byte(`{"data":"v1"}`)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		v, found, err := s.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !found {
			t.Fatal("expected to find stored value")
		}
		if string(v) != `{"data":"v1"}` {
			t.Errorf("value = %q", v)
		}
	})

	t.Run("last write wins", func(t *testing.T) {
		if err := s.Set(ctx, key, []byte(`{"data":"v2"}`)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		v, _, err := s.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(v) != `{"data":"v2"}` {
			t.Errorf("value = %q, want v2", v)
		}
	})

	t.Run("distinct keys do not interfere", func(t *testing.T) {
		other := "graph-owner:octo|repo:widgets"
		if err := s.Set(ctx, other, []byte("other")); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
		v, _, _ := s.Get(ctx, key)
		if string(v) != `{"data":"v2"}` {
			t.Errorf("value of %q changed to %q", key, v)
		}
	})

	t.Run("remove", func(t *testing.T) {
		if err := s.Remove(ctx, key); err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		_, found, err := s.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if found {
			t.Error("expected key to be gone after Remove")
		}
		if err := s.Remove(ctx, key); err != nil {
			t.Errorf("removing a missing key should succeed: %v", err)
		}
	})
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	_ = s.Set(ctx, "k", buf)
	buf[0] = 'x'

	v, _, _ := s.Get(ctx, "k")
	if !bytes.Equal(v, []byte("abc")) {
		t.Errorf("stored value aliased caller buffer: %q", v)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestSQLiteStore(t *testing.T) {
	db, err := Open(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	exerciseStore(t, NewSQLiteStore(db))
}

func TestSQLiteStorePersists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(dir, testLogger())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := NewSQLiteStore(db).Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	_ = db.Close()

	db, err = Open(dir, testLogger())
	if err != nil {
		t.Fatalf("failed to reopen database: %v", err)
	}
	defer func() { _ = db.Close() }()

	store := NewSQLiteStore(db)
	v, found, err := store.Get(ctx, "k")
	if err != nil || !found || string(v) != "v" {
		t.Errorf("Get after reopen = %q, %v, %v", v, found, err)
	}
	n, err := store.Count(ctx)
	if err != nil || n != 1 {
		t.Errorf("Count() = %d, %v; want 1", n, err)
	}
	if db.Path() != filepath.Join(dir, DBFileName) {
		t.Errorf("Path() = %q", db.Path())
	}
}

func TestFileStore(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "cache", "store.json"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	exerciseStore(t, fs)
}

func TestFileStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if err := fs.Set(ctx, "a|b:c", []byte("payload")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	v, found, err := reopened.Get(ctx, "a|b:c")
	if err != nil || !found || string(v) != "payload" {
		t.Errorf("Get after reopen = %q, %v, %v", v, found, err)
	}
}

func TestOpenStore(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{BackendMemory, "*storage.MemoryStore"},
		{BackendSQLite, "*storage.SQLiteStore"},
		{BackendFile, "*storage.FileStore"},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.DataDir = t.TempDir()
			cfg.Cache.Backend = tt.backend

			store, closer, err := OpenStore(context.Background(), cfg, testLogger())
			if err != nil {
				t.Fatalf("OpenStore failed: %v", err)
			}
			defer func() { _ = closer.Close() }()

			if got := fmt.Sprintf("%T", store); got != tt.want {
				t.Errorf("store type = %s, want %s", got, tt.want)
			}
		})
	}

	t.Run("unknown", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.Cache.Backend = "redis"
		if _, _, err := OpenStore(context.Background(), cfg, testLogger()); err == nil {
			t.Error("expected error for unknown backend")
		}
	})
}

func TestEncodeKey(t *testing.T) {
	key := "summary-branch:main|owner:o|path:a/b c.ts"
	enc := encodeKey(key)
	for _, r := range enc {
		ok := r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			t.Fatalf("encoded key %q contains %q", enc, r)
		}
	}
	dec, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil || string(dec) != key {
		t.Errorf("decoding %q = %q, %v", enc, dec, err)
	}
}
