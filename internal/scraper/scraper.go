package scraper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maltedev/taobao-product-scraper/internal/browser"
	"github.com/maltedev/taobao-product-scraper/internal/models"
)

var (
	ErrUnknownPlatform  = errors.New("unknown platform")
	ErrNavigationFailed = errors.New("navigation failed")
	ErrPageUnusable     = errors.New("page unusable")
)

// Scraper extracts structured product data from a storefront URL. A Scraper
// owns a long-lived browser session; callers must Close it when done.
type Scraper interface {
	Scrape(ctx context.Context, url string, opts ScrapeOptions) *models.ScrapeResult
	LoginInteractive(ctx context.Context, confirm <-chan struct{}) error
	Close() error
}

// ScrapeOptions controls artifact persistence for one scrape call.
type ScrapeOptions struct {
	OutputDir      string
	DownloadImages bool
	SaveHTML       bool
	TakeScreenshot bool
}

// Options configures a scraper instance at construction time.
type Options struct {
	Browser     *browser.Options
	SettleTime  time.Duration
	GalleryWait time.Duration
	Logger      *slog.Logger
}

func DefaultOptions() *Options {
	return &Options{
		Browser:     browser.DefaultOptions(),
		SettleTime:  3 * time.Second,
		GalleryWait: 10 * time.Second,
	}
}
