package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gravitas-games/hexalign/internal/align"
	"github.com/gravitas-games/hexalign/internal/config"
	"github.com/gravitas-games/hexalign/pkg/errors"
	"github.com/gravitas-games/hexalign/pkg/hex"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	key := Key("layout.yaml", "board")

	got, err := s.Get(ctx, key)
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil for missing key, got %+v, %v", got, err)
	}

	want := align.State{Orientation: hex.PointyTop, Unit: hex.Inner, Radius: 6.25, Axes: align.VerticalOnly}
	if err := s.Set(ctx, key, &want); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	got, err = s.Get(ctx, key)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if got == nil || *got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	want.Radius = 7.25
	if err := s.Set(ctx, key, &want); err != nil {
		t.Fatalf("unexpected set error: %v", err)
	}
	if got, _ := s.Get(ctx, key); got == nil || got.Radius != 7.25 {
		t.Fatalf("expected overwritten radius 7.25, got %+v", got)
	}

	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if got, _ := s.Get(ctx, key); got != nil {
		t.Fatalf("expected state to be gone, got %+v", got)
	}
	if err := s.Delete(ctx, key); err != nil {
		t.Fatalf("deleting a missing key should succeed, got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	exerciseStore(t, s)

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("expected state dir to exist: %v", err)
	}
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"", "../escape", "a/b", ".."} {
		if _, err := s.Get(context.Background(), key); !errors.Is(err, errors.ErrCodeInvalidArgument) {
			t.Fatalf("key %q: expected INVALID_ARGUMENT, got %v", key, err)
		}
	}
}

func TestKeyIsStable(t *testing.T) {
	if Key("a", "b") != Key("a", "b") {
		t.Fatalf("expected identical keys")
	}
	if Key("ab", "") == Key("a", "b") {
		t.Fatalf("expected part boundaries to matter")
	}
	if len(Key("x")) != 20 {
		t.Fatalf("expected 20 character key, got %q", Key("x"))
	}
}

func TestOpen(t *testing.T) {
	cfg := config.Default()
	cfg.State.Backend = "memory"
	s, err := Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", s)
	}

	cfg.State.Backend = "file"
	cfg.State.Dir = t.TempDir()
	s, err = Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.(*FileStore); !ok {
		t.Fatalf("expected FileStore, got %T", s)
	}

	cfg.State.Backend = "carrier-pigeon"
	if _, err := Open(context.Background(), cfg, nil); !errors.Is(err, errors.ErrCodeInvalidArgument) {
		t.Fatalf("expected INVALID_ARGUMENT, got %v", err)
	}
}
