package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// HashManifest maps model names to their expected SHA-256 hex digests.
type HashManifest map[string]string

// LoadHashManifest reads a model_hashes.json manifest. A missing file is not
// an error; it just means nothing can be verified.
func LoadHashManifest(path string) (HashManifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return HashManifest{}, nil
		}
		return nil, err
	}
	var m HashManifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("hash manifest: %w", err)
	}
	return m, nil
}

// FileSHA256 computes the hex SHA-256 digest of a file, streaming so that
// multi-gigabyte models do not get slurped into memory.
func FileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify checks a model file against its manifest entry. An absent entry
// passes: verification is advisory, not gatekeeping.
func (m HashManifest) Verify(model ModelFile) error {
	want, ok := m[model.Name]
	if !ok || want == "" {
		return nil
	}
	got, err := FileSHA256(model.Path)
	if err != nil {
		return fmt.Errorf("hash %s: %w", model.Name, err)
	}
	if got != want {
		return fmt.Errorf("model %s: hash mismatch: want %s got %s", model.Name, want, got)
	}
	return nil
}
