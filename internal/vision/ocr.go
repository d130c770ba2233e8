// Package vision captures the screen and analyzes images with lazily loaded
// OCR, captioning, and object-detection components.
package vision

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ocrEngine shells out to the tesseract CLI. The binary is probed once at
// component load; each Recognize call is a fresh process.
type ocrEngine struct {
	bin string
}

// newOCREngine resolves the tesseract binary. An explicit bin wins; otherwise
// PATH is searched.
func newOCREngine(bin string) (*ocrEngine, error) {
	if bin == "" {
		bin = "tesseract"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("tesseract not available: %w", err)
	}
	return &ocrEngine{bin: path}, nil
}

// Recognize extracts text from the image at path.
func (e *ocrEngine) Recognize(ctx context.Context, path string) (string, error) {
	cmd := exec.CommandContext(ctx, e.bin, path, "stdout")
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(errb.String()))
	}
	return strings.TrimSpace(out.String()), nil
}
