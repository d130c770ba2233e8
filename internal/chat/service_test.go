package chat

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"agentd/internal/config"
	"agentd/internal/lifecycle"
	"agentd/internal/registry"
)

// fakeRuntime echoes the prompt and counts loads/closes.
type fakeRuntime struct {
	loads  *int32
	closes *int32
	fail   bool
}

func (f *fakeRuntime) Complete(ctx context.Context, prompt string, p Params) (string, error) {
	if f.fail {
		return "", errors.New("inference error")
	}
	return "echo: " + prompt, nil
}

func (f *fakeRuntime) Close() error {
	atomic.AddInt32(f.closes, 1)
	return nil
}

func newTestService(t *testing.T, mutate func(*config.Config)) (*Service, *lifecycle.Manager, *int32, *int32) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gemma-2-2b-it-Q4_K_M.gguf"), []byte("weights"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	cat, err := registry.LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	cfg := config.Default()
	cfg.AI.IdleTimeout = time.Hour
	if mutate != nil {
		mutate(&cfg)
	}
	lc := lifecycle.New()
	t.Cleanup(lc.Close)

	loads, closes := new(int32), new(int32)
	svc, err := New(Options{
		Config:    cfg,
		Lifecycle: lc,
		Catalog:   cat,
		Manifest:  registry.HashManifest{},
		Logger:    zerolog.Nop(),
		Runtime: func(modelPath string) (ModelRuntime, error) {
			atomic.AddInt32(loads, 1)
			return &fakeRuntime{loads: loads, closes: closes}, nil
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, lc, loads, closes
}

func TestAskLoadsModelOnceAndCaches(t *testing.T) {
	svc, _, loads, _ := newTestService(t, nil)

	res, err := svc.Ask(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(res.Response, "hello") {
		t.Fatalf("response does not echo query: %q", res.Response)
	}
	if res.RequestID == "" || res.SessionID == "" {
		t.Fatalf("missing identifiers: %+v", res)
	}
	if _, err := svc.Ask(context.Background(), "again", nil); err != nil {
		t.Fatalf("second ask: %v", err)
	}
	if n := atomic.LoadInt32(loads); n != 1 {
		t.Fatalf("expected one runtime load, got %d", n)
	}
}

func TestAskIncludesContextPairs(t *testing.T) {
	svc, _, _, _ := newTestService(t, nil)
	res, err := svc.Ask(context.Background(), "what time is it", map[string]string{"location": "office"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !strings.Contains(res.Response, "location: office") {
		t.Fatalf("context pair missing from prompt: %q", res.Response)
	}
}

func TestAskFlagsBlockedActions(t *testing.T) {
	svc, _, _, _ := newTestService(t, nil)
	res, err := svc.Ask(context.Background(), "how do I format my disk", nil)
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !res.Danger.Blocked {
		t.Fatalf("expected danger flag for blocked keyword, got %+v", res.Danger)
	}
}

func TestUnloadClosesRuntime(t *testing.T) {
	svc, lc, _, closes := newTestService(t, nil)
	if _, err := svc.Ask(context.Background(), "hi", nil); err != nil {
		t.Fatalf("ask: %v", err)
	}
	if err := svc.Unload(); err != nil {
		t.Fatalf("unload: %v", err)
	}
	if n := atomic.LoadInt32(closes); n != 1 {
		t.Fatalf("expected runtime closed once, got %d", n)
	}
	if st := lc.Status()[ComponentChatModel]; st.State != lifecycle.StateNotLoaded {
		t.Fatalf("expected not_loaded after unload, got %s", st.State)
	}
}

func TestIdleEvictionAfterAsk(t *testing.T) {
	svc, lc, _, closes := newTestService(t, func(cfg *config.Config) {
		cfg.AI.IdleTimeout = 30 * time.Millisecond
	})
	if _, err := svc.Ask(context.Background(), "hi", nil); err != nil {
		t.Fatalf("ask: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(closes) == 0 {
		select {
		case <-deadline:
			t.Fatalf("model never evicted after idle timeout (state %s)", lc.Status()[ComponentChatModel].State)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestAskSurfacesMissingModel(t *testing.T) {
	dir := t.TempDir() // no model files
	cat, err := registry.LoadDir(dir)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	lc := lifecycle.New()
	t.Cleanup(lc.Close)
	svc, err := New(Options{
		Config:    config.Default(),
		Lifecycle: lc,
		Catalog:   cat,
		Manifest:  registry.HashManifest{},
		Logger:    zerolog.Nop(),
		Runtime: func(string) (ModelRuntime, error) {
			t.Fatalf("factory must not run without a model file")
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	_, err = svc.Ask(context.Background(), "hi", nil)
	if !lifecycle.IsLoadFailed(err) {
		t.Fatalf("expected load failed error, got %v", err)
	}
	// Dropping the model file in afterwards recovers on the next ask.
	if err := os.WriteFile(filepath.Join(dir, "gemma-2-2b-it-Q4_K_M.gguf"), []byte("w"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
}

func TestBuildPromptShape(t *testing.T) {
	p := buildPrompt("hi", nil)
	if !strings.HasPrefix(p, persona) {
		t.Fatalf("prompt must start with persona: %q", p)
	}
	if !strings.HasSuffix(p, "Agent: ") {
		t.Fatalf("prompt must end with assistant cue: %q", p)
	}
	p = buildPrompt("hi", map[string]string{"b": "2", "a": "1"})
	ai, bi := strings.Index(p, "a: 1"), strings.Index(p, "b: 2")
	if ai < 0 || bi < 0 || ai > bi {
		t.Fatalf("context pairs missing or unsorted: %q", p)
	}
}
