// Package registry catalogs model files on disk, verifies their integrity,
// and fetches missing ones into the storage tree.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"agentd/internal/config"
)

// modelExtensions are the file types recognized as model weights.
var modelExtensions = []string{".gguf", ".bin", ".pt", ".safetensors"}

// ModelFile describes one model discovered in the models directory.
type ModelFile struct {
	// Name is the filename without extension, used as the lookup key.
	Name string
	Path string
	// SizeMB is the on-disk size, used as the default memory estimate.
	SizeMB int
}

// Catalog is the set of models found under one directory. Component loaders
// rescan and resolve concurrently, so access to the model map is locked.
type Catalog struct {
	dir string

	mu     sync.RWMutex
	models map[string]ModelFile
}

// LoadDir scans dir for model files and builds a catalog keyed by base name.
func LoadDir(dir string) (*Catalog, error) {
	base, err := config.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	cat := &Catalog{dir: abs, models: make(map[string]ModelFile)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !hasModelExtension(name) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		key := strings.TrimSuffix(name, filepath.Ext(name))
		cat.models[key] = ModelFile{
			Name:   key,
			Path:   filepath.Join(abs, name),
			SizeMB: int(info.Size() / (1 << 20)),
		}
	}
	return cat, nil
}

// Dir returns the scanned directory.
func (c *Catalog) Dir() string { return c.dir }

// List returns all cataloged models.
func (c *Catalog) List() []ModelFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]ModelFile, 0, len(c.models))
	for _, m := range c.models {
		out = append(out, m)
	}
	return out
}

// Find resolves a model by name. The name may be given with or without its
// extension; an exact filename in the models dir also resolves, matching how
// users copy files in by hand.
func (c *Catalog) Find(name string) (ModelFile, bool) {
	key := strings.TrimSuffix(name, filepath.Ext(name))
	c.mu.RLock()
	m, ok := c.models[key]
	c.mu.RUnlock()
	if ok {
		return m, true
	}
	// Last resort: a file dropped in without a recognized extension.
	p := filepath.Join(c.dir, name)
	if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
		return ModelFile{Name: name, Path: p, SizeMB: int(fi.Size() / (1 << 20))}, true
	}
	return ModelFile{}, false
}

// Rescan refreshes the catalog from disk. The scan runs unlocked; only the
// map swap takes the write lock.
func (c *Catalog) Rescan() error {
	fresh, err := LoadDir(c.dir)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.models = fresh.models
	c.mu.Unlock()
	return nil
}

func hasModelExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range modelExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
