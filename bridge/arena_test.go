package bridge

import (
	"errors"
	"testing"
)

func TestArenaReleaseInvalidatesHandle(t *testing.T) {
	a := NewArena[string]()
	h := a.Register("first")
	if got, err := a.Resolve(h); err != nil || got != "first" {
		t.Fatalf("resolve: got %q, %v", got, err)
	}
	if err := a.Release(h); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, err := a.Resolve(h); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("expected ErrStaleHandle after release, got %v", err)
	}
	if err := a.Release(h); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("expected second release to fail, got %v", err)
	}
	if a.Len() != 0 {
		t.Fatalf("expected no live handles, got %d", a.Len())
	}
}

func TestArenaReusedSlotKeepsOldHandleStale(t *testing.T) {
	a := NewArena[int]()
	old := a.Register(1)
	if err := a.Release(old); err != nil {
		t.Fatalf("release: %v", err)
	}
	fresh := a.Register(2)
	if fresh.index != old.index {
		t.Fatalf("expected slot reuse, got %s and %s", old, fresh)
	}
	if fresh == old {
		t.Fatalf("reused slot must bump the generation")
	}
	if _, err := a.Resolve(old); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("expected stale old handle, got %v", err)
	}
	if err := a.Update(old, 3); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("expected stale update, got %v", err)
	}
	if got, _ := a.Resolve(fresh); got != 2 {
		t.Fatalf("expected fresh value 2, got %d", got)
	}
}

func TestArenaNoReferenceNeverResolves(t *testing.T) {
	a := NewArena[int]()
	a.Register(7)
	if NoReference.Valid() {
		t.Fatalf("NoReference must be invalid")
	}
	if _, err := a.Resolve(NoReference); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("expected ErrStaleHandle, got %v", err)
	}
	if NoReference.String() != "handle(none)" {
		t.Fatalf("unexpected rendering %q", NoReference.String())
	}
}

func TestArenaOnReleaseSeesValue(t *testing.T) {
	a := NewArena[string]()
	var released []string
	a.onRelease = func(_ Handle, v string) { released = append(released, v) }
	h := a.Register("tracked")
	if err := a.Release(h); err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(released) != 1 || released[0] != "tracked" {
		t.Fatalf("unexpected release log %v", released)
	}
}
