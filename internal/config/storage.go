package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// Paths is the per-subsystem directory layout under the storage root.
type Paths struct {
	Root        string
	Models      string
	Bin         string
	Logs        string
	Cache       string
	Screenshots string
	Voice       string
	Downloads   string
}

// subdirs maps layout fields to directory names under the root.
func (p *Paths) subdirs() map[*string]string {
	return map[*string]string{
		&p.Models:      "models",
		&p.Bin:         "bin",
		&p.Logs:        "logs",
		&p.Cache:       "cache",
		&p.Screenshots: "screenshots",
		&p.Voice:       "voice_recordings",
		&p.Downloads:   "downloads",
	}
}

// ResolveStorage picks the storage root (configured, or auto-detected as the
// writable partition with the most free space) and creates the directory tree.
func ResolveStorage(cfg SystemConfig) (Paths, error) {
	root := cfg.StorageRoot
	if root == "" {
		root = detectStorageRoot()
	}
	root, err := ExpandHome(root)
	if err != nil {
		return Paths{}, err
	}
	p := Paths{Root: root}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return Paths{}, fmt.Errorf("storage root: %w", err)
	}
	for field, name := range p.subdirs() {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Paths{}, fmt.Errorf("storage dir %s: %w", name, err)
		}
		*field = dir
	}
	return p, nil
}

// detectStorageRoot scores mounted partitions by free space, keeping only the
// ones we can actually write to, and falls back to the user home directory.
func detectStorageRoot() string {
	best := ""
	var bestFree uint64
	if parts, err := disk.Partitions(false); err == nil {
		for _, part := range parts {
			if !writable(part.Mountpoint) {
				continue
			}
			usage, err := disk.Usage(part.Mountpoint)
			if err != nil {
				continue
			}
			if usage.Free > bestFree {
				bestFree = usage.Free
				best = part.Mountpoint
			}
		}
	}
	if best == "" {
		if home, err := os.UserHomeDir(); err == nil {
			best = home
		} else {
			best = "."
		}
	}
	return filepath.Join(best, "agentd")
}

// writable probes a mountpoint with a throwaway file.
func writable(mount string) bool {
	probe := filepath.Join(mount, ".agentd_probe")
	if err := os.WriteFile(probe, []byte("probe"), 0o600); err != nil {
		return false
	}
	_ = os.Remove(probe)
	return true
}

// ExpandHome expands a leading '~' to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	// handle cases like ~/agentd
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
