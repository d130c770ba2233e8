package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
)

// Detection is one object found in an image.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// detector wraps an external detection command that takes an image path and
// prints a JSON array of detections on stdout.
type detector struct {
	bin string
}

func newDetector(bin string) (*detector, error) {
	if bin == "" {
		return nil, fmt.Errorf("no detector binary configured")
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("detector not available: %w", err)
	}
	return &detector{bin: path}, nil
}

func (d *detector) Detect(ctx context.Context, imagePath string) ([]Detection, error) {
	cmd := exec.CommandContext(ctx, d.bin, imagePath)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}
	var dets []Detection
	if err := json.Unmarshal(out.Bytes(), &dets); err != nil {
		return nil, fmt.Errorf("detector output: %w", err)
	}
	return dets, nil
}
