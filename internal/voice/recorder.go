package voice

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// Recorder captures a fixed-length audio chunk to a file.
type Recorder interface {
	Record(ctx context.Context, path string, seconds int) error
}

// cliRecorder wraps whichever command-line capture tool is installed.
type cliRecorder struct {
	bin  string
	args func(path string, seconds int) []string
}

// newRecorder probes for a capture tool in preference order.
func newRecorder() (*cliRecorder, error) {
	if path, err := exec.LookPath("arecord"); err == nil {
		return &cliRecorder{
			bin: path,
			args: func(out string, seconds int) []string {
				return []string{"-q", "-f", "S16_LE", "-r", "16000", "-c", "1", "-d", strconv.Itoa(seconds), out}
			},
		}, nil
	}
	if path, err := exec.LookPath("rec"); err == nil { // sox
		return &cliRecorder{
			bin: path,
			args: func(out string, seconds int) []string {
				return []string{"-q", "-r", "16000", "-c", "1", out, "trim", "0", strconv.Itoa(seconds)}
			},
		}, nil
	}
	return nil, fmt.Errorf("no audio capture tool found (tried arecord, rec)")
}

func (r *cliRecorder) Record(ctx context.Context, path string, seconds int) error {
	if err := exec.CommandContext(ctx, r.bin, r.args(path, seconds)...).Run(); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return nil
}
