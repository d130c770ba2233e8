package voice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"agentd/internal/config"
	"agentd/internal/lifecycle"
)

// Lifecycle component names for the audio stack.
const (
	ComponentRecognizer = "speech_recognizer"
	ComponentMicrophone = "microphone"
)

const (
	estRecognizerMB = 15
	estMicrophoneMB = 5
)

// queueCap bounds the chunk backlog between the recording and transcription
// loops. When transcription falls behind, the oldest chunk is dropped: stale
// audio is worth less than fresh audio.
const queueCap = 5

// Options configures the listener.
type Options struct {
	Config    config.VoiceConfig
	AudioDir  string
	Lifecycle *lifecycle.Manager
	Logger    zerolog.Logger
	// OnActivation receives the command text following the wake word.
	OnActivation func(command string)
	// Test overrides for the component loaders.
	RecorderLoader    func() (Recorder, error)
	TranscriberLoader func() (Transcriber, error)
}

// Listener records fixed-length chunks and scans their transcripts for the
// wake word.
type Listener struct {
	cfg      config.VoiceConfig
	audioDir string
	lc       *lifecycle.Manager
	logger   zerolog.Logger
	onWake   func(string)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	queue   chan string
	dropped int
}

// NewListener builds the listener and registers the recognizer and
// microphone components. Nothing records until Start.
func NewListener(opts Options) *Listener {
	l := &Listener{
		cfg:      opts.Config,
		audioDir: opts.AudioDir,
		lc:       opts.Lifecycle,
		logger:   opts.Logger,
		onWake:   opts.OnActivation,
	}
	recLoader := opts.RecorderLoader
	if recLoader == nil {
		recLoader = func() (Recorder, error) { return newRecorder() }
	}
	l.lc.Register(ComponentMicrophone, lifecycle.Component{
		EstMemoryMB: estMicrophoneMB,
		Loader:      func() (any, error) { return recLoader() },
	})

	trLoader := opts.TranscriberLoader
	if trLoader == nil {
		cfg := opts.Config
		trLoader = func() (Transcriber, error) {
			return newWhisperRecognizer(cfg.RecognizerBin, cfg.RecognizerModel, cfg.Language)
		}
	}
	l.lc.Register(ComponentRecognizer, lifecycle.Component{
		EstMemoryMB: estRecognizerMB,
		Loader:      func() (any, error) { return trLoader() },
	})
	return l
}

// Start launches the record and transcribe loops. It fails fast when the
// microphone cannot be acquired, so a machine without audio hardware reports
// one clear error instead of a background loop of failures.
func (l *Listener) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		return fmt.Errorf("listener already running")
	}
	if _, err := l.lc.Acquire(ctx, ComponentMicrophone); err != nil {
		return fmt.Errorf("microphone: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	l.cancel = cancel
	l.done = done
	l.queue = make(chan string, queueCap)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); l.recordLoop(ctx) }()
	go func() { defer wg.Done(); l.transcribeLoop(ctx) }()
	go func() {
		// Stop clears l.done before waiting, so close the captured channel.
		wg.Wait()
		close(done)
	}()
	l.logger.Info().Str("wake_word", l.cfg.WakeWord).Msg("voice listener started")
	return nil
}

// Stop halts both loops, waits for them, and evicts the audio components.
func (l *Listener) Stop() {
	l.mu.Lock()
	cancel, done := l.cancel, l.done
	l.cancel, l.done = nil, nil
	l.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	_ = l.lc.Evict(ComponentMicrophone)
	_ = l.lc.Evict(ComponentRecognizer)
	l.logger.Info().Msg("voice listener stopped")
}

// Dropped reports how many chunks were discarded because transcription fell
// behind.
func (l *Listener) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

func (l *Listener) recordLoop(ctx context.Context) {
	defer close(l.queue)
	seconds := l.cfg.ChunkSeconds
	if seconds <= 0 {
		seconds = 5
	}
	for i := 0; ; i++ {
		if ctx.Err() != nil {
			return
		}
		rec, err := lifecycle.As[Recorder](l.lc.Acquire(ctx, ComponentMicrophone))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Error().Err(err).Msg("microphone unavailable, listener backing off")
			select {
			case <-ctx.Done():
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}
		// Names are monotonic: reusing the queue's file names would let a
		// fresh recording be deleted by the drop-oldest path below.
		path := filepath.Join(l.audioDir, fmt.Sprintf("chunk_%d.wav", i))
		if err := rec.Record(ctx, path, seconds); err != nil {
			if ctx.Err() != nil {
				return
			}
			l.logger.Warn().Err(err).Msg("record chunk failed")
			continue
		}
		l.enqueue(path)
	}
}

// enqueue adds a chunk, dropping the oldest when the queue is full.
func (l *Listener) enqueue(path string) {
	for {
		select {
		case l.queue <- path:
			return
		default:
		}
		select {
		case old := <-l.queue:
			_ = os.Remove(old)
			l.mu.Lock()
			l.dropped++
			l.mu.Unlock()
		default:
		}
	}
}

func (l *Listener) transcribeLoop(ctx context.Context) {
	for path := range l.queue {
		if ctx.Err() != nil {
			_ = os.Remove(path)
			continue
		}
		tr, err := lifecycle.As[Transcriber](l.lc.Acquire(ctx, ComponentRecognizer))
		if err != nil {
			l.logger.Warn().Err(err).Msg("recognizer unavailable")
			_ = os.Remove(path)
			continue
		}
		text, err := tr.Transcribe(ctx, path)
		_ = os.Remove(path)
		if serr := l.lc.ScheduleEviction(ComponentRecognizer, l.cfg.IdleTimeout); serr != nil {
			l.logger.Warn().Err(serr).Msg("schedule eviction failed")
		}
		if err != nil {
			l.logger.Warn().Err(err).Msg("transcription failed")
			continue
		}
		if command, ok := extractCommand(text, l.cfg.WakeWord); ok {
			l.logger.Info().Str("command", command).Msg("wake word detected")
			if l.onWake != nil {
				l.onWake(command)
			}
		}
	}
}

// extractCommand reports whether text contains the wake word, and returns
// whatever follows it with leading punctuation stripped.
func extractCommand(text, wakeWord string) (string, bool) {
	if wakeWord == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	idx := strings.Index(lower, strings.ToLower(wakeWord))
	if idx < 0 {
		return "", false
	}
	command := text[idx+len(wakeWord):]
	command = strings.TrimLeft(command, " ,.:;!?-")
	return strings.TrimSpace(command), true
}
