package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAMLMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "agentd.yaml", "http:\n  addr: \":9999\"\nai:\n  max_tokens: 256\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Fatalf("expected addr from file, got %q", cfg.HTTP.Addr)
	}
	if cfg.AI.MaxTokens != 256 {
		t.Fatalf("expected max_tokens from file, got %d", cfg.AI.MaxTokens)
	}
	// Untouched fields keep their defaults.
	if cfg.AI.CoreModel != Default().AI.CoreModel {
		t.Fatalf("default core model lost: %q", cfg.AI.CoreModel)
	}
	if cfg.Search.CacheTTL != time.Hour {
		t.Fatalf("default cache ttl lost: %v", cfg.Search.CacheTTL)
	}
}

func TestLoadTOMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	tomlPath := writeFile(t, dir, "agentd.toml", "[http]\naddr = \":7777\"\n")
	cfg, err := Load(tomlPath)
	if err != nil {
		t.Fatalf("load toml: %v", err)
	}
	if cfg.HTTP.Addr != ":7777" {
		t.Fatalf("toml addr: %q", cfg.HTTP.Addr)
	}

	jsonPath := writeFile(t, dir, "agentd.json", `{"search":{"max_results":9}}`)
	cfg, err = Load(jsonPath)
	if err != nil {
		t.Fatalf("load json: %v", err)
	}
	if cfg.Search.MaxResults != 9 {
		t.Fatalf("json max_results: %d", cfg.Search.MaxResults)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "agentd.ini", "addr=:1\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for unsupported extension")
	}
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "agentd.yaml", "http:\n  addr: \":9999\"\n")
	t.Setenv("AGENTD_HTTP_ADDR", ":1234")
	t.Setenv("AGENTD_SYSTEM_SAFE_MODE", "true")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":1234" {
		t.Fatalf("expected env override, got %q", cfg.HTTP.Addr)
	}
	if !cfg.System.SafeMode {
		t.Fatalf("expected safe mode from env")
	}
}

func TestResolveStorageCreatesTree(t *testing.T) {
	root := filepath.Join(t.TempDir(), "agentd")
	paths, err := ResolveStorage(SystemConfig{StorageRoot: root})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	for _, dir := range []string{paths.Models, paths.Bin, paths.Logs, paths.Cache, paths.Screenshots, paths.Voice, paths.Downloads} {
		fi, err := os.Stat(dir)
		if err != nil || !fi.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func TestCheckBlockedAction(t *testing.T) {
	cfg := Default()
	res := cfg.CheckBlockedAction("Please FORMAT the disk and then shutdown")
	if !res.Blocked {
		t.Fatalf("expected blocked")
	}
	if len(res.KeywordsFound) != 2 {
		t.Fatalf("expected 2 keywords, got %v", res.KeywordsFound)
	}
	if !res.RequiresConfirmation {
		t.Fatalf("expected confirmation required")
	}

	res = cfg.CheckBlockedAction("open the calculator")
	if res.Blocked || res.RequiresConfirmation {
		t.Fatalf("benign command flagged: %+v", res)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	got, err := ExpandHome("~/agentd")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != filepath.Join(home, "agentd") {
		t.Fatalf("unexpected expansion %q", got)
	}
	if got, _ := ExpandHome("/abs/path"); got != "/abs/path" {
		t.Fatalf("absolute path changed: %q", got)
	}
}
