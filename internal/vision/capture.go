package vision

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"time"
)

// captureTools lists screenshot commands in preference order, each with the
// arguments that write a PNG to the trailing output path.
var captureTools = []struct {
	bin  string
	args []string
}{
	{"grim", nil},
	{"scrot", []string{"-o"}},
	{"gnome-screenshot", []string{"-f"}},
	{"import", []string{"-window", "root"}},
}

// CaptureScreen takes a full-screen screenshot into dir and returns the file
// path. It tries the known tools in order and fails only when none exists.
func CaptureScreen(ctx context.Context, dir string) (string, error) {
	out := filepath.Join(dir, fmt.Sprintf("screen_%s.png", time.Now().Format("20060102_150405")))
	for _, tool := range captureTools {
		bin, err := exec.LookPath(tool.bin)
		if err != nil {
			continue
		}
		args := append(append([]string{}, tool.args...), out)
		if err := exec.CommandContext(ctx, bin, args...).Run(); err != nil {
			return "", fmt.Errorf("%s: %w", tool.bin, err)
		}
		return out, nil
	}
	return "", fmt.Errorf("no screenshot tool found (tried grim, scrot, gnome-screenshot, import)")
}
