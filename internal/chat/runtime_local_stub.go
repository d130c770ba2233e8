//go:build !llama

package chat

import "agentd/internal/config"

// newLocalRuntime is compiled when the 'llama' build tag is NOT set, keeping
// default builds CGO-free. It fails fast rather than mocking inference.
func newLocalRuntime(modelPath string, cfg config.AIConfig) (ModelRuntime, error) {
	return nil, ErrDependencyUnavailable("in-process llama support not built (missing 'llama' build tag); use the server runtime")
}
