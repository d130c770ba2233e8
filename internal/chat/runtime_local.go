//go:build llama

package chat

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"agentd/internal/config"
)

// localRuntime hosts the model in-process through the llama.cpp binding.
type localRuntime struct {
	model   *llama.LLama
	threads int
}

func newLocalRuntime(modelPath string, cfg config.AIConfig) (ModelRuntime, error) {
	if strings.TrimSpace(modelPath) == "" {
		return nil, errors.New("model path is empty")
	}
	m, err := llama.New(modelPath, llama.SetContext(cfg.ContextSize))
	if err != nil {
		return nil, err
	}
	return &localRuntime{model: m, threads: cfg.Threads}, nil
}

func (r *localRuntime) Complete(ctx context.Context, prompt string, p Params) (string, error) {
	if r.model == nil {
		return "", errors.New("llama model not initialized")
	}
	// Bridge cancellation into the token callback; returning false stops
	// generation.
	r.model.SetTokenCallback(func(string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	})
	po := []llama.PredictOption{
		llama.SetTokens(maxInt(1, p.MaxTokens)),
		llama.SetThreads(maxInt(1, r.threads)),
		llama.SetTemperature(float32(p.Temperature)),
		llama.SetTopP(float32(p.TopP)),
	}
	text, err := r.model.Predict(prompt, po...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (r *localRuntime) Close() error {
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
