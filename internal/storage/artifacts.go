package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maltedev/taobao-product-scraper/internal/models"
)

const (
	ScreenshotFilename  = "screenshot.png"
	HTMLFilename        = "page.html"
	ProductJSONFilename = "product_info.json"
	ImagesDirname       = "images"
)

// SaveHTML writes the rendered page HTML under dir and returns its path.
func SaveHTML(dir, html string) (string, error) {
	path := filepath.Join(dir, HTMLFilename)
	if err := writeAtomic(path, []byte(html)); err != nil {
		return "", fmt.Errorf("failed to save HTML: %w", err)
	}
	return path, nil
}

// SaveProductJSON serializes the full ProductInfo under dir and returns its
// path. The dump is written on every scrape with an output directory so the
// raw extraction is always inspectable.
func SaveProductJSON(dir string, product *models.ProductInfo) (string, error) {
	data, err := json.MarshalIndent(product, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal product: %w", err)
	}

	path := filepath.Join(dir, ProductJSONFilename)
	if err := writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to save product JSON: %w", err)
	}
	return path, nil
}

// ScreenshotPath returns the canonical screenshot location under dir.
func ScreenshotPath(dir string) string {
	return filepath.Join(dir, ScreenshotFilename)
}

// ImagesDir returns the download directory for product images under dir.
func ImagesDir(dir string) string {
	return filepath.Join(dir, ImagesDirname)
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
