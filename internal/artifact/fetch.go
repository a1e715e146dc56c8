// Package artifact makes sure the model file is present locally before it
// is loaded, downloading it once when missing.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

// Fetcher downloads model artifacts over HTTP.
type Fetcher struct {
	Client   *http.Client
	Logger   *zap.Logger
	Progress io.Writer // progress bar output; nil disables it
}

// NewFetcher returns a fetcher with the default HTTP client.
func NewFetcher(logger *zap.Logger, progress io.Writer) *Fetcher {
	return &Fetcher{Client: http.DefaultClient, Logger: logger, Progress: progress}
}

// Ensure leaves an existing file at path untouched. Otherwise it downloads
// url into path in a single attempt.
func (f *Fetcher) Ensure(ctx context.Context, path, url string) error {
	_, err := os.Stat(path)
	if err == nil {
		f.Logger.Debug("model artifact present", zap.String("path", path))
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if url == "" {
		return fmt.Errorf("model artifact %s not found and no download URL configured", path)
	}

	f.Logger.Info("downloading model artifact", zap.String("url", url), zap.String("path", path))
	return f.download(ctx, path, url)
}

func (f *Fetcher) download(ctx context.Context, path, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download %s: status %s", url, resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	var dst io.Writer = tmp
	if f.Progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(f.Progress),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetDescription("downloading model"),
			progressbar.OptionClearOnFinish(),
		)
		dst = io.MultiWriter(tmp, bar)
	}

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write model artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close model artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move model artifact into place: %w", err)
	}

	f.Logger.Info("model artifact downloaded", zap.String("path", path), zap.Int64("bytes", n))
	return nil
}
