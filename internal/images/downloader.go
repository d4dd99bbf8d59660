package images

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Fetcher retrieves an image URL and returns the response status and body.
// The production implementation routes through the browser session so the
// requests carry the same cookies and fingerprint as the page load.
type Fetcher interface {
	Fetch(url string) (status int, body []byte, err error)
}

// Downloader writes resolved product images to a task's artifact directory.
type Downloader struct {
	fetcher Fetcher
	logger  *slog.Logger
}

func NewDownloader(fetcher Fetcher, logger *slog.Logger) *Downloader {
	return &Downloader{
		fetcher: fetcher,
		logger:  logger.With("component", "downloader"),
	}
}

// DownloadAll fetches each URL sequentially and writes numbered files under
// dir. Individual failures are logged and skipped, so the returned paths may
// be fewer than the input URLs; relative order is preserved.
func (d *Downloader) DownloadAll(urls []string, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create images dir: %w", err)
	}

	var local []string
	for i, url := range urls {
		if strings.HasPrefix(url, "//") {
			url = "https:" + url
		}

		status, body, err := d.fetcher.Fetch(url)
		if err != nil {
			d.logger.Warn("image download failed", "url", url, "error", err)
			continue
		}
		if status != http.StatusOK {
			d.logger.Warn("image download rejected", "url", url, "status", status)
			continue
		}

		filename := fmt.Sprintf("main_%02d%s", i+1, extensionFor(url))
		path := filepath.Join(dir, filename)
		if err := os.WriteFile(path, body, 0o644); err != nil {
			d.logger.Warn("failed to write image", "path", path, "error", err)
			continue
		}

		local = append(local, path)
		d.logger.Debug("image saved", "path", path, "bytes", len(body))
	}

	d.logger.Info("images downloaded", "requested", len(urls), "written", len(local))

	return local, nil
}

func extensionFor(url string) string {
	// Resolved CDN URLs often end in rendition suffixes like ".jpg_.webp";
	// the underlying asset is still a JPEG, so only PNG gets special-cased.
	if strings.Contains(url, ".png") {
		return ".png"
	}
	return ".jpg"
}
