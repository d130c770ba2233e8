package chat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"agentd/internal/config"
)

// serverRuntime manages an external llama-server process and talks to its
// completion endpoint over loopback HTTP.
type serverRuntime struct {
	proc   *os.Process
	base   string
	client *http.Client
	logger zerolog.Logger
}

func newServerRuntime(modelPath string, cfg config.AIConfig, logger zerolog.Logger) (ModelRuntime, error) {
	bin := strings.TrimSpace(cfg.ServerBin)
	if bin == "" {
		bin = discoverServerBin()
	}
	if bin == "" {
		return nil, ErrDependencyUnavailable("llama-server not found: set ai.server_bin or install llama.cpp")
	}
	if fi, err := os.Stat(bin); err != nil || fi.IsDir() {
		return nil, ErrDependencyUnavailable(fmt.Sprintf("llama-server not found or not a file: %s", bin))
	}
	port, err := findFreePort()
	if err != nil {
		return nil, err
	}

	args := []string{
		"--host", "127.0.0.1",
		"--port", fmt.Sprintf("%d", port),
		"-m", modelPath,
	}
	if cfg.ContextSize > 0 {
		args = append(args, "--ctx-size", fmt.Sprintf("%d", cfg.ContextSize))
	}
	if cfg.Threads > 0 {
		args = append(args, "--threads", fmt.Sprintf("%d", cfg.Threads))
	}
	cmd := exec.Command(bin, args...)
	// Run from the model directory so relative assets resolve.
	cmd.Dir = filepath.Dir(modelPath)
	stdout, _ := cmd.StdoutPipe()
	stderr, _ := cmd.StderrPipe()
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	go drain(logger, "llama-server", stdout)
	go drain(logger, "llama-server", stderr)

	rt := &serverRuntime{
		proc:   cmd.Process,
		base:   fmt.Sprintf("http://127.0.0.1:%d", port),
		client: &http.Client{},
		logger: logger,
	}
	if err := rt.waitForHealth(30 * time.Second); err != nil {
		_ = rt.Close()
		return nil, err
	}
	logger.Info().Int("pid", cmd.Process.Pid).Int("port", port).Str("model", filepath.Base(modelPath)).Msg("llama-server started")
	return rt, nil
}

type completionRequest struct {
	Prompt      string  `json:"prompt"`
	NPredict    int     `json:"n_predict"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	Stream      bool    `json:"stream"`
}

type completionResponse struct {
	Content string `json:"content"`
}

func (r *serverRuntime) Complete(ctx context.Context, prompt string, p Params) (string, error) {
	body, err := json.Marshal(completionRequest{
		Prompt:      prompt,
		NPredict:    p.MaxTokens,
		Temperature: p.Temperature,
		TopP:        p.TopP,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.base+"/completion", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("completion status %d", resp.StatusCode)
	}
	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Content), nil
}

func (r *serverRuntime) Close() error {
	if r.proc != nil {
		_ = r.proc.Kill()
		_, _ = r.proc.Wait()
		r.proc = nil
	}
	return nil
}

func (r *serverRuntime) waitForHealth(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for {
		if err := r.checkHealth(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("llama-server health check timeout: %w", ctx.Err())
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func (r *serverRuntime) checkHealth(ctx context.Context) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/health", nil)
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("health status %d", resp.StatusCode)
	}
	return nil
}

func drain(logger zerolog.Logger, prefix string, rd io.Reader) {
	if rd == nil {
		return
	}
	s := bufio.NewScanner(rd)
	s.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)
	for s.Scan() {
		logger.Debug().Str("proc", prefix).Msg(s.Text())
	}
}

func findFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// discoverServerBin looks for a llama.cpp server binary in common locations
// before falling back to PATH.
func discoverServerBin() string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, "apps", "llama.cpp", "build", "bin", "llama-server"),
		"/usr/local/bin/llama-server",
		"/opt/homebrew/bin/llama-server",
	}
	for _, p := range candidates {
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	if lp, err := exec.LookPath("llama-server"); err == nil {
		return lp
	}
	return ""
}
