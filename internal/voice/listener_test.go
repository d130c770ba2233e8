package voice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"agentd/internal/config"
	"agentd/internal/lifecycle"
)

// fakeRecorder writes a marker file per chunk, with an optional delay to
// pace the record loop.
type fakeRecorder struct {
	delay time.Duration
	texts chan string // transcript for each recorded chunk
	mu    sync.Mutex
	byPth map[string]string
}

func (f *fakeRecorder) Record(ctx context.Context, path string, seconds int) error {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(f.delay):
		}
	}
	text := ""
	select {
	case text = <-f.texts:
	default:
		// Out of scripted chunks: block until shutdown.
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	f.byPth[path] = text
	f.mu.Unlock()
	return os.WriteFile(path, []byte(text), 0o644)
}

// fileTranscriber returns the chunk file's contents as its transcript.
type fileTranscriber struct {
	delay time.Duration
}

func (f *fileTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func newTestListener(t *testing.T, rec Recorder, tr Transcriber, onWake func(string)) (*Listener, *lifecycle.Manager) {
	t.Helper()
	cfg := config.Default().Voice
	cfg.IdleTimeout = time.Hour
	cfg.ChunkSeconds = 1
	lc := lifecycle.New()
	t.Cleanup(lc.Close)
	l := NewListener(Options{
		Config:            cfg,
		AudioDir:          t.TempDir(),
		Lifecycle:         lc,
		Logger:            zerolog.Nop(),
		OnActivation:      onWake,
		RecorderLoader:    func() (Recorder, error) { return rec, nil },
		TranscriberLoader: func() (Transcriber, error) { return tr, nil },
	})
	return l, lc
}

func TestExtractCommand(t *testing.T) {
	cases := []struct {
		text, wake, want string
		ok               bool
	}{
		{"Hey Agent, open the browser", "hey agent", "open the browser", true},
		{"HEY AGENT what time is it", "hey agent", "what time is it", true},
		{"hey agent", "hey agent", "", true},
		{"just some chatter", "hey agent", "", false},
		{"hey agent!", "hey agent", "", true},
		{"anything", "", "", false},
	}
	for _, c := range cases {
		got, ok := extractCommand(c.text, c.wake)
		if ok != c.ok || got != c.want {
			t.Fatalf("extractCommand(%q, %q) = %q,%v; want %q,%v", c.text, c.wake, got, ok, c.want, c.ok)
		}
	}
}

func TestListenerActivatesOnWakeWord(t *testing.T) {
	texts := make(chan string, 3)
	texts <- "background noise"
	texts <- "hey agent turn on the lights"
	rec := &fakeRecorder{texts: texts, byPth: map[string]string{}}

	commands := make(chan string, 1)
	l, _ := newTestListener(t, rec, &fileTranscriber{}, func(cmd string) {
		commands <- cmd
	})
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer l.Stop()

	select {
	case cmd := <-commands:
		if cmd != "turn on the lights" {
			t.Fatalf("unexpected command: %q", cmd)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("activation callback never fired")
	}
}

func TestListenerDropsOldestWhenBacklogged(t *testing.T) {
	texts := make(chan string, queueCap+3)
	for i := 0; i < queueCap+3; i++ {
		texts <- fmt.Sprintf("chunk %d", i)
	}
	rec := &fakeRecorder{texts: texts, byPth: map[string]string{}}
	// A transcriber slow enough that recording outruns it.
	l, _ := newTestListener(t, rec, &fileTranscriber{delay: 200 * time.Millisecond}, nil)

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.After(5 * time.Second)
	for l.Dropped() == 0 {
		select {
		case <-deadline:
			l.Stop()
			t.Fatalf("expected backlog to drop chunks")
		case <-time.After(10 * time.Millisecond):
		}
	}
	l.Stop()
}

func TestStopEvictsAudioComponents(t *testing.T) {
	texts := make(chan string, 1)
	texts <- "hey agent hello"
	rec := &fakeRecorder{texts: texts, byPth: map[string]string{}}

	activated := make(chan struct{}, 1)
	l, lc := newTestListener(t, rec, &fileTranscriber{}, func(string) {
		activated <- struct{}{}
	})
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	select {
	case <-activated:
	case <-time.After(5 * time.Second):
		t.Fatalf("listener never processed the chunk")
	}
	l.Stop()

	st := lc.Status()
	if st[ComponentMicrophone].State != lifecycle.StateNotLoaded {
		t.Fatalf("microphone still resident after stop: %s", st[ComponentMicrophone].State)
	}
	if st[ComponentRecognizer].State != lifecycle.StateNotLoaded {
		t.Fatalf("recognizer still resident after stop: %s", st[ComponentRecognizer].State)
	}
}

func TestStartFailsWithoutMicrophone(t *testing.T) {
	cfg := config.Default().Voice
	lc := lifecycle.New()
	t.Cleanup(lc.Close)
	l := NewListener(Options{
		Config:    cfg,
		AudioDir:  t.TempDir(),
		Lifecycle: lc,
		Logger:    zerolog.Nop(),
		RecorderLoader: func() (Recorder, error) {
			return nil, errors.New("no capture device")
		},
		TranscriberLoader: func() (Transcriber, error) { return &fileTranscriber{}, nil },
	})
	if err := l.Start(context.Background()); err == nil {
		l.Stop()
		t.Fatalf("expected start to fail without a microphone")
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rec := &fakeRecorder{texts: make(chan string), byPth: map[string]string{}}
	l, _ := newTestListener(t, rec, &fileTranscriber{}, nil)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	l.Stop()
	l.Stop()
}

func TestListenerRestartsAfterStop(t *testing.T) {
	rec := &fakeRecorder{texts: make(chan string), byPth: map[string]string{}}
	l, _ := newTestListener(t, rec, &fileTranscriber{}, nil)
	for i := 0; i < 3; i++ {
		if err := l.Start(context.Background()); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
		l.Stop()
	}
}

// missingFileTranscriber counts chunks whose file vanished before
// transcription started.
type missingFileTranscriber struct {
	delay   time.Duration
	mu      sync.Mutex
	seen    int
	missing int
}

func (f *missingFileTranscriber) Transcribe(ctx context.Context, path string) (string, error) {
	b, err := os.ReadFile(path)
	f.mu.Lock()
	f.seen++
	if err != nil {
		f.missing++
	}
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return string(b), nil
}

func TestBackloggedChunksStayReadable(t *testing.T) {
	// Recording far outruns transcription: the drop-oldest path must only
	// delete chunks it actually drops, never audio still queued or just
	// recorded.
	const chunks = 3 * queueCap
	texts := make(chan string, chunks)
	for i := 0; i < chunks; i++ {
		texts <- fmt.Sprintf("chunk %d", i)
	}
	rec := &fakeRecorder{texts: texts, byPth: map[string]string{}}
	tr := &missingFileTranscriber{delay: 100 * time.Millisecond}
	l, _ := newTestListener(t, rec, tr, nil)

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	deadline := time.After(10 * time.Second)
	for l.Dropped() == 0 {
		select {
		case <-deadline:
			l.Stop()
			t.Fatalf("expected backlog to drop chunks")
		case <-time.After(10 * time.Millisecond):
		}
	}
	l.Stop()

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.seen == 0 {
		t.Fatalf("transcriber never ran")
	}
	if tr.missing != 0 {
		t.Fatalf("%d of %d queued chunks had their file removed before transcription", tr.missing, tr.seen)
	}
}
