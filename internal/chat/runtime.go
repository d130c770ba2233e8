// Package chat hosts the assistant's language model behind the lifecycle
// manager: the runtime loads on the first question and is evicted again
// after the configured idle period.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"agentd/internal/config"
)

// Params captures generation parameters for one completion.
type Params struct {
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// ModelRuntime abstracts a loaded language model. Implementations must return
// promptly when ctx is cancelled.
type ModelRuntime interface {
	Complete(ctx context.Context, prompt string, p Params) (string, error)
	Close() error
}

// RuntimeFactory constructs a runtime for a model file. It is the loader the
// chat component registers with the lifecycle manager.
type RuntimeFactory func(modelPath string) (ModelRuntime, error)

// NewRuntimeFactory selects the runtime backend from configuration:
// "local" runs the model in-process (requires the llama build tag),
// "server" manages an external llama-server process.
func NewRuntimeFactory(cfg config.AIConfig, logger zerolog.Logger) (RuntimeFactory, error) {
	switch cfg.Runtime {
	case "local":
		return func(modelPath string) (ModelRuntime, error) {
			return newLocalRuntime(modelPath, cfg)
		}, nil
	case "server", "":
		return func(modelPath string) (ModelRuntime, error) {
			return newServerRuntime(modelPath, cfg, logger)
		}, nil
	default:
		return nil, fmt.Errorf("unknown ai runtime %q (want local or server)", cfg.Runtime)
	}
}

// dependencyUnavailableError signals a missing external dependency (e.g. the
// llama-server binary) so the HTTP layer can return 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}
