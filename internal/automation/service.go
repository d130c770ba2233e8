package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"agentd/internal/config"
	"agentd/internal/lifecycle"
	"agentd/internal/vision"
)

// ComponentDriver is the lifecycle component name for the desktop driver.
const ComponentDriver = "automation_driver"

const estDriverMB = 10

// Actions Execute understands.
const (
	ActionMove       = "move"
	ActionClick      = "click"
	ActionType       = "type"
	ActionKey        = "key"
	ActionScreenshot = "screenshot"
)

// Request is one desktop action.
type Request struct {
	Action string `json:"action"`
	X      int    `json:"x,omitempty"`
	Y      int    `json:"y,omitempty"`
	Button string `json:"button,omitempty"`
	Text   string `json:"text,omitempty"`
	Key    string `json:"key,omitempty"`
	// Confirmed acknowledges a blocked-keyword warning and lets the action
	// proceed anyway.
	Confirmed bool `json:"confirmed,omitempty"`
}

// Result reports an executed action.
type Result struct {
	Action         string        `json:"action"`
	ScreenshotPath string        `json:"screenshot_path,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// Options configures the automation service.
type Options struct {
	Config    config.Config
	Paths     config.Paths
	Lifecycle *lifecycle.Manager
	Logger    zerolog.Logger
	// DriverLoader overrides the xdotool driver; used by tests.
	DriverLoader func() (Driver, error)
}

// Service executes desktop actions through a lazily loaded driver.
type Service struct {
	cfg    config.Config
	paths  config.Paths
	lc     *lifecycle.Manager
	logger zerolog.Logger
}

// New builds the service and registers the driver component. Safe mode is
// enforced per request, not at construction, so flipping the flag does not
// require a restart.
func New(opts Options) *Service {
	s := &Service{
		cfg:    opts.Config,
		paths:  opts.Paths,
		lc:     opts.Lifecycle,
		logger: opts.Logger,
	}
	load := opts.DriverLoader
	if load == nil {
		bin := opts.Config.Automation.DriverBin
		load = func() (Driver, error) { return newXdotoolDriver(bin) }
	}
	s.lc.Register(ComponentDriver, lifecycle.Component{
		EstMemoryMB: estDriverMB,
		Loader:      func() (any, error) { return load() },
	})
	return s
}

// confirmationError marks a request held back pending user confirmation.
type confirmationError struct {
	keywords []string
}

func (e *confirmationError) Error() string {
	return fmt.Sprintf("action touches blocked keywords %v; repeat with confirmed=true to proceed", e.keywords)
}

// ErrNeedsConfirmation builds the error returned when a blocked keyword is
// found and the request was not confirmed.
func ErrNeedsConfirmation(keywords []string) error {
	return &confirmationError{keywords: keywords}
}

// IsNeedsConfirmation reports whether err is a confirmation hold.
func IsNeedsConfirmation(err error) bool {
	var e *confirmationError
	return errors.As(err, &e)
}

// Execute runs one desktop action. Blocked keywords in the typed text or key
// chord hold the request for confirmation; safe mode refuses outright.
func (s *Service) Execute(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	if s.cfg.System.SafeMode {
		return Result{}, fmt.Errorf("automation disabled in safe mode")
	}

	if check := s.cfg.CheckBlockedAction(req.Text + " " + req.Key); check.Blocked {
		if check.RequiresConfirmation && !req.Confirmed {
			return Result{}, ErrNeedsConfirmation(check.KeywordsFound)
		}
		s.logger.Warn().Strs("keywords", check.KeywordsFound).Str("action", req.Action).
			Msg("blocked keywords confirmed, proceeding")
	}

	// Screenshots don't need the input driver.
	if req.Action == ActionScreenshot {
		path, err := vision.CaptureScreen(ctx, s.paths.Screenshots)
		if err != nil {
			return Result{}, err
		}
		return Result{Action: req.Action, ScreenshotPath: path, Duration: time.Since(start)}, nil
	}

	drv, err := lifecycle.As[Driver](s.lc.Acquire(ctx, ComponentDriver))
	if err != nil {
		return Result{}, err
	}
	err = s.dispatch(ctx, drv, req)
	if serr := s.lc.ScheduleEviction(ComponentDriver, s.cfg.Automation.IdleTimeout); serr != nil {
		s.logger.Warn().Err(serr).Msg("schedule eviction failed")
	}
	if err != nil {
		return Result{}, err
	}
	s.logger.Info().Str("action", req.Action).Dur("dur", time.Since(start)).Msg("automation action done")
	return Result{Action: req.Action, Duration: time.Since(start)}, nil
}

func (s *Service) dispatch(ctx context.Context, drv Driver, req Request) error {
	switch strings.ToLower(req.Action) {
	case ActionMove:
		return drv.MoveMouse(ctx, req.X, req.Y)
	case ActionClick:
		return drv.Click(ctx, req.Button)
	case ActionType:
		if req.Text == "" {
			return fmt.Errorf("type action needs text")
		}
		return drv.TypeText(ctx, req.Text)
	case ActionKey:
		if req.Key == "" {
			return fmt.Errorf("key action needs a key name")
		}
		return drv.PressKey(ctx, req.Key)
	default:
		return fmt.Errorf("unknown action: %q", req.Action)
	}
}
