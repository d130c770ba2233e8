package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// Fetcher downloads model files into the downloads directory, verifies their
// digest, and moves them into the models directory on success.
type Fetcher struct {
	client       *retryablehttp.Client
	downloadsDir string
	modelsDir    string
	manifest     HashManifest
	logger       zerolog.Logger
}

// NewFetcher builds a Fetcher. The manifest may be empty, in which case
// downloads are accepted unverified.
func NewFetcher(downloadsDir, modelsDir string, manifest HashManifest, logger zerolog.Logger) *Fetcher {
	c := retryablehttp.NewClient()
	c.RetryMax = 4
	c.Logger = nil // zerolog below instead of retryablehttp's own logger
	return &Fetcher{
		client:       c,
		downloadsDir: downloadsDir,
		modelsDir:    modelsDir,
		manifest:     manifest,
		logger:       logger,
	}
}

// Fetch downloads url as model name, verifies it against the manifest, and
// installs it into the models directory. Returns the installed path.
func (f *Fetcher) Fetch(ctx context.Context, name, url string) (string, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", name, resp.StatusCode)
	}

	filename := filepath.Base(url)
	if filepath.Ext(filename) == "" {
		filename = name + ".gguf"
	}
	tmp := filepath.Join(f.downloadsDir, filename+".partial")
	out, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	written, err := io.Copy(out, resp.Body)
	cerr := out.Close()
	if err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("fetch %s: %w", name, err)
	}
	if cerr != nil {
		_ = os.Remove(tmp)
		return "", cerr
	}
	f.logger.Info().Str("model", name).Int64("bytes", written).Msg("model downloaded")

	model := ModelFile{Name: name, Path: tmp}
	if err := f.manifest.Verify(model); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	dest := filepath.Join(f.modelsDir, filename)
	if err := os.Rename(tmp, dest); err != nil {
		// Rename fails across filesystems; fall back to copy.
		if err := copyFile(tmp, dest); err != nil {
			_ = os.Remove(tmp)
			return "", err
		}
		_ = os.Remove(tmp)
	}
	return dest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
