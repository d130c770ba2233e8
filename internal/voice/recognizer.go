// Package voice listens for a wake word on the microphone and hands the
// trailing command text to a callback. Recording and transcription run as
// lazily loaded components so the audio stack costs nothing while idle.
package voice

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Transcriber converts a recorded audio file to text.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// whisperRecognizer shells out to a whisper.cpp CLI binary.
type whisperRecognizer struct {
	bin      string
	model    string
	language string
}

// newWhisperRecognizer resolves the recognizer binary and model file. The
// model path may name a file next to the binary's default model dir; we pass
// it through untouched and let the CLI report a missing file.
func newWhisperRecognizer(bin, model, language string) (*whisperRecognizer, error) {
	if bin == "" {
		bin = "whisper-cli"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("speech recognizer not available: %w", err)
	}
	return &whisperRecognizer{bin: path, model: model, language: language}, nil
}

func (w *whisperRecognizer) Transcribe(ctx context.Context, wavPath string) (string, error) {
	args := []string{"-f", wavPath, "--no-timestamps"}
	if w.model != "" {
		args = append(args, "-m", w.model)
	}
	if w.language != "" {
		// The CLI wants a bare language code, not a BCP 47 tag.
		lang, _, _ := strings.Cut(w.language, "-")
		args = append(args, "-l", lang)
	}
	cmd := exec.CommandContext(ctx, w.bin, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("transcribe: %w: %s", err, strings.TrimSpace(errb.String()))
	}
	return strings.TrimSpace(out.String()), nil
}
