package lifecycle

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestConcurrentAcquireLoadsOnce(t *testing.T) {
	m := New()
	defer m.Close()

	var loads int32
	m.Register("model", Component{Loader: func() (any, error) {
		atomic.AddInt32(&loads, 1)
		time.Sleep(20 * time.Millisecond) // widen the race window
		return "instance", nil
	}})

	const n = 32
	results := make(chan any, n)
	errs := make(chan error, n)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			v, err := m.Acquire(context.Background(), "model")
			if err != nil {
				errs <- err
				return
			}
			results <- v
		}()
	}
	close(start)
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("acquire failed: %v", err)
	}
	got := 0
	for v := range results {
		if v.(string) != "instance" {
			t.Fatalf("unexpected instance %v", v)
		}
		got++
	}
	if got != n {
		t.Fatalf("expected %d results, got %d", n, got)
	}
	if l := atomic.LoadInt32(&loads); l != 1 {
		t.Fatalf("expected exactly one load, got %d", l)
	}
	if st := m.Status()["model"]; st.AccessCount != n {
		t.Fatalf("expected access count %d, got %d", n, st.AccessCount)
	}
}

func TestAcquireTimesOutOnStuckLoader(t *testing.T) {
	m := NewWithConfig(Config{LoadWait: 100 * time.Millisecond})
	defer func() {
		go m.Close() // Close waits out the stuck loader; don't block the test
	}()

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	m.Register("stuck", Component{Loader: func() (any, error) {
		<-block
		return "late", nil
	}})

	// Leader goroutine owns the load and hangs in it.
	leaderIn := make(chan struct{})
	go func() {
		close(leaderIn)
		_, _ = m.Acquire(context.Background(), "stuck")
	}()
	<-leaderIn
	waitForState(t, m, "stuck", StateLoading)

	start := time.Now()
	_, err := m.Acquire(context.Background(), "stuck")
	if !IsLoadTimeout(err) {
		t.Fatalf("expected load timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("timeout took too long: %v", elapsed)
	}
}

func TestAcquireRespectsContextCancellation(t *testing.T) {
	m := New()
	defer func() { go m.Close() }()

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	m.Register("stuck", Component{Loader: func() (any, error) {
		<-block
		return nil, nil
	}})

	leaderIn := make(chan struct{})
	go func() {
		close(leaderIn)
		_, _ = m.Acquire(context.Background(), "stuck")
	}()
	<-leaderIn
	waitForState(t, m, "stuck", StateLoading)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Acquire(ctx, "stuck")
		done <- err
	}()
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("follower did not unblock on cancellation")
	}
}

func TestFollowerRetriesAfterLeaderFailure(t *testing.T) {
	m := New()
	defer m.Close()

	var loads int32
	gate := make(chan struct{})
	m.Register("flaky", Component{Loader: func() (any, error) {
		if atomic.AddInt32(&loads, 1) == 1 {
			<-gate
			return nil, errFirstLoad
		}
		return "second", nil
	}})

	leaderErr := make(chan error, 1)
	go func() {
		_, err := m.Acquire(context.Background(), "flaky")
		leaderErr <- err
	}()
	waitForState(t, m, "flaky", StateLoading)

	followerDone := make(chan struct{})
	var followerVal any
	var followerErr error
	go func() {
		followerVal, followerErr = m.Acquire(context.Background(), "flaky")
		close(followerDone)
	}()

	close(gate)
	if err := <-leaderErr; !IsLoadFailed(err) {
		t.Fatalf("expected leader load failure, got %v", err)
	}
	select {
	case <-followerDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("follower never finished")
	}
	// The follower observed the error state and ran the loader itself.
	if followerErr != nil {
		t.Fatalf("follower acquire: %v", followerErr)
	}
	if followerVal.(string) != "second" {
		t.Fatalf("unexpected follower instance %v", followerVal)
	}
	if l := atomic.LoadInt32(&loads); l != 2 {
		t.Fatalf("expected two loads, got %d", l)
	}
}

func TestSlowLoadDoesNotBlockOtherComponents(t *testing.T) {
	m := New()
	defer func() { go m.Close() }()

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	m.Register("slow", Component{Loader: func() (any, error) {
		<-block
		return nil, nil
	}})
	m.Register("fast", Component{Loader: func() (any, error) { return 42, nil }})

	go func() { _, _ = m.Acquire(context.Background(), "slow") }()
	waitForState(t, m, "slow", StateLoading)

	done := make(chan struct{})
	go func() {
		if v, err := m.Acquire(context.Background(), "fast"); err != nil || v.(int) != 42 {
			t.Errorf("fast acquire: v=%v err=%v", v, err)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("acquire on independent component blocked behind slow load")
	}
}

var errFirstLoad = &firstLoadError{}

type firstLoadError struct{}

func (*firstLoadError) Error() string { return "first load fails" }

// waitForState polls Status until the component reaches want.
func waitForState(t *testing.T, m *Manager, name string, want State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if st := m.Status()[name]; st.State == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("component %s never reached state %s (now %s)", name, want, m.Status()[name].State)
		case <-time.After(time.Millisecond):
		}
	}
}
