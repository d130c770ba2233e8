// Package automation drives the desktop (mouse, keyboard, screenshots)
// through an external tool, guarded by keyword blocking and safe mode.
package automation

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// Driver performs desktop input actions.
type Driver interface {
	MoveMouse(ctx context.Context, x, y int) error
	Click(ctx context.Context, button string) error
	TypeText(ctx context.Context, text string) error
	PressKey(ctx context.Context, key string) error
}

// xdotoolDriver shells out to xdotool for every action.
type xdotoolDriver struct {
	bin string
}

// newXdotoolDriver resolves the driver binary. An explicit bin wins;
// otherwise PATH is searched for xdotool.
func newXdotoolDriver(bin string) (*xdotoolDriver, error) {
	if bin == "" {
		bin = "xdotool"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("automation driver not available: %w", err)
	}
	return &xdotoolDriver{bin: path}, nil
}

func (d *xdotoolDriver) run(ctx context.Context, args ...string) error {
	if err := exec.CommandContext(ctx, d.bin, args...).Run(); err != nil {
		return fmt.Errorf("%s %s: %w", d.bin, args[0], err)
	}
	return nil
}

func (d *xdotoolDriver) MoveMouse(ctx context.Context, x, y int) error {
	return d.run(ctx, "mousemove", strconv.Itoa(x), strconv.Itoa(y))
}

var buttons = map[string]string{"": "1", "left": "1", "middle": "2", "right": "3"}

func (d *xdotoolDriver) Click(ctx context.Context, button string) error {
	num, ok := buttons[button]
	if !ok {
		return fmt.Errorf("unknown mouse button: %q", button)
	}
	return d.run(ctx, "click", num)
}

func (d *xdotoolDriver) TypeText(ctx context.Context, text string) error {
	return d.run(ctx, "type", "--delay", "50", text)
}

func (d *xdotoolDriver) PressKey(ctx context.Context, key string) error {
	return d.run(ctx, "key", key)
}
