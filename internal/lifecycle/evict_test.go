package lifecycle

import (
	"context"
	"errors"
	"testing"
)

func TestEvictIsNoopWhenNotLoaded(t *testing.T) {
	m := New()
	defer m.Close()
	registerCounter(t, m, "model")

	if err := m.Evict("model"); err != nil {
		t.Fatalf("evict on not_loaded component: %v", err)
	}
	if st := m.Status()["model"]; st.State != StateNotLoaded {
		t.Fatalf("unexpected state %s", st.State)
	}
	// Double eviction of a loaded component is equally harmless.
	if _, err := m.Acquire(context.Background(), "model"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := m.Evict("model"); err != nil {
		t.Fatalf("first evict: %v", err)
	}
	if err := m.Evict("model"); err != nil {
		t.Fatalf("second evict: %v", err)
	}
}

func TestEvictCallsUnloaderWithInstance(t *testing.T) {
	m := New()
	defer m.Close()
	var got any
	m.Register("model", Component{
		Loader:   func() (any, error) { return "payload", nil },
		Unloader: func(inst any) error { got = inst; return nil },
	})

	if _, err := m.Acquire(context.Background(), "model"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := m.Evict("model"); err != nil {
		t.Fatalf("evict: %v", err)
	}
	if got != "payload" {
		t.Fatalf("unloader received %v, want payload", got)
	}
}

func TestUnloaderErrorStillEvicts(t *testing.T) {
	m := New()
	defer m.Close()
	m.Register("model", Component{
		Loader:   func() (any, error) { return 1, nil },
		Unloader: func(any) error { return errors.New("device busy") },
	})

	if _, err := m.Acquire(context.Background(), "model"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := m.Evict("model"); err != nil {
		t.Fatalf("evict must swallow unloader errors, got %v", err)
	}
	if st := m.Status()["model"]; st.State != StateNotLoaded {
		t.Fatalf("expected not_loaded after failing unloader, got %s", st.State)
	}
}

func TestUnloaderPanicStillEvicts(t *testing.T) {
	m := New()
	defer m.Close()
	m.Register("model", Component{
		Loader:   func() (any, error) { return 1, nil },
		Unloader: func(any) error { panic("use after free") },
	})

	if _, err := m.Acquire(context.Background(), "model"); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := m.Evict("model"); err != nil {
		t.Fatalf("evict must swallow unloader panics, got %v", err)
	}
	if st := m.Status()["model"]; st.State != StateNotLoaded {
		t.Fatalf("expected not_loaded after panicking unloader, got %s", st.State)
	}
}

func TestEvictAllReleasesEverything(t *testing.T) {
	m := New()
	defer m.Close()
	unloads := 0
	for _, name := range []string{"a", "b", "c"} {
		m.Register(name, Component{
			Loader:   func() (any, error) { return name, nil },
			Unloader: func(any) error { unloads++; return nil },
		})
	}
	ctx := context.Background()
	if _, err := m.Acquire(ctx, "a"); err != nil {
		t.Fatalf("acquire a: %v", err)
	}
	if _, err := m.Acquire(ctx, "b"); err != nil {
		t.Fatalf("acquire b: %v", err)
	}
	// c stays cold on purpose.

	m.EvictAll()
	m.EvictAll() // idempotent

	if unloads != 2 {
		t.Fatalf("expected 2 unloads, got %d", unloads)
	}
	for name, st := range m.Status() {
		if st.State != StateNotLoaded {
			t.Fatalf("component %s not released: %s", name, st.State)
		}
	}
	// The manager is still usable after EvictAll (unlike Close).
	if _, err := m.Acquire(ctx, "c"); err != nil {
		t.Fatalf("acquire after evict all: %v", err)
	}
}
