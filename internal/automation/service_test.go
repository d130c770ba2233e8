package automation

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"agentd/internal/config"
	"agentd/internal/lifecycle"
)

// recordingDriver logs every call it receives.
type recordingDriver struct {
	mu    sync.Mutex
	calls []string
}

func (d *recordingDriver) record(call string) {
	d.mu.Lock()
	d.calls = append(d.calls, call)
	d.mu.Unlock()
}

func (d *recordingDriver) MoveMouse(ctx context.Context, x, y int) error {
	d.record("move")
	return nil
}
func (d *recordingDriver) Click(ctx context.Context, button string) error {
	d.record("click:" + button)
	return nil
}
func (d *recordingDriver) TypeText(ctx context.Context, text string) error {
	d.record("type:" + text)
	return nil
}
func (d *recordingDriver) PressKey(ctx context.Context, key string) error {
	d.record("key:" + key)
	return nil
}

func (d *recordingDriver) last(t *testing.T) string {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.calls) == 0 {
		t.Fatalf("driver never called")
	}
	return d.calls[len(d.calls)-1]
}

func newTestService(t *testing.T, mutate func(*config.Config)) (*Service, *recordingDriver, *lifecycle.Manager) {
	t.Helper()
	cfg := config.Default()
	cfg.Automation.IdleTimeout = time.Hour
	if mutate != nil {
		mutate(&cfg)
	}
	lc := lifecycle.New()
	t.Cleanup(lc.Close)
	drv := &recordingDriver{}
	svc := New(Options{
		Config:       cfg,
		Lifecycle:    lc,
		Logger:       zerolog.Nop(),
		DriverLoader: func() (Driver, error) { return drv, nil },
	})
	return svc, drv, lc
}

func TestExecuteDispatch(t *testing.T) {
	svc, drv, _ := newTestService(t, nil)
	ctx := context.Background()

	if _, err := svc.Execute(ctx, Request{Action: "move", X: 10, Y: 20}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := drv.last(t); got != "move" {
		t.Fatalf("unexpected call: %s", got)
	}
	if _, err := svc.Execute(ctx, Request{Action: "click", Button: "right"}); err != nil {
		t.Fatalf("click: %v", err)
	}
	if got := drv.last(t); got != "click:right" {
		t.Fatalf("unexpected call: %s", got)
	}
	if _, err := svc.Execute(ctx, Request{Action: "type", Text: "hello"}); err != nil {
		t.Fatalf("type: %v", err)
	}
	if got := drv.last(t); got != "type:hello" {
		t.Fatalf("unexpected call: %s", got)
	}
	if _, err := svc.Execute(ctx, Request{Action: "key", Key: "Return"}); err != nil {
		t.Fatalf("key: %v", err)
	}
	if got := drv.last(t); got != "key:Return" {
		t.Fatalf("unexpected call: %s", got)
	}
}

func TestExecuteUnknownAction(t *testing.T) {
	svc, _, _ := newTestService(t, nil)
	if _, err := svc.Execute(context.Background(), Request{Action: "launch-missiles"}); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}

func TestSafeModeRefuses(t *testing.T) {
	svc, drv, _ := newTestService(t, func(cfg *config.Config) {
		cfg.System.SafeMode = true
	})
	_, err := svc.Execute(context.Background(), Request{Action: "move"})
	if err == nil || !strings.Contains(err.Error(), "safe mode") {
		t.Fatalf("expected safe mode refusal, got %v", err)
	}
	drv.mu.Lock()
	defer drv.mu.Unlock()
	if len(drv.calls) != 0 {
		t.Fatalf("driver must not run in safe mode: %v", drv.calls)
	}
}

func TestBlockedKeywordNeedsConfirmation(t *testing.T) {
	svc, drv, _ := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Execute(ctx, Request{Action: "type", Text: "format c: now"})
	if !IsNeedsConfirmation(err) {
		t.Fatalf("expected confirmation hold, got %v", err)
	}
	drv.mu.Lock()
	pending := len(drv.calls)
	drv.mu.Unlock()
	if pending != 0 {
		t.Fatalf("driver ran before confirmation")
	}

	if _, err := svc.Execute(ctx, Request{Action: "type", Text: "format c: now", Confirmed: true}); err != nil {
		t.Fatalf("confirmed execute: %v", err)
	}
	if got := drv.last(t); got != "type:format c: now" {
		t.Fatalf("unexpected call: %s", got)
	}
}

func TestDriverIdleEviction(t *testing.T) {
	svc, _, lc := newTestService(t, func(cfg *config.Config) {
		cfg.Automation.IdleTimeout = 30 * time.Millisecond
	})
	if _, err := svc.Execute(context.Background(), Request{Action: "move"}); err != nil {
		t.Fatalf("move: %v", err)
	}
	deadline := time.After(2 * time.Second)
	for lc.Status()[ComponentDriver].State != lifecycle.StateNotLoaded {
		select {
		case <-deadline:
			t.Fatalf("driver never evicted, state %s", lc.Status()[ComponentDriver].State)
		case <-time.After(5 * time.Millisecond):
		}
	}
}
