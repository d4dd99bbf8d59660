package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/maltedev/taobao-product-scraper/internal/browser"
	"github.com/maltedev/taobao-product-scraper/internal/images"
	"github.com/maltedev/taobao-product-scraper/internal/models"
	"github.com/maltedev/taobao-product-scraper/internal/parser"
	"github.com/maltedev/taobao-product-scraper/internal/storage"
)

const (
	platformTaobao = "taobao"
	platformTmall  = "tmall"

	taobaoLoginURL = "https://login.taobao.com"
	taobaoHomeURL  = "https://www.taobao.com"
)

func init() {
	Register(platformTaobao, NewTaobaoScraper, "taobao.com")
	Register(platformTmall, NewTaobaoScraper, "tmall.com")
}

// TaobaoScraper scrapes Taobao and Tmall product detail pages. Both
// storefronts share the same page structure and CDN conventions.
type TaobaoScraper struct {
	session     *browser.Session
	parser      *parser.TaobaoParser
	logger      *slog.Logger
	timeout     time.Duration
	settleTime  time.Duration
	galleryWait time.Duration
}

func NewTaobaoScraper(opts *Options) Scraper {
	if opts == nil {
		opts = DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TaobaoScraper{
		session:     browser.NewSession(opts.Browser),
		parser:      parser.NewTaobaoParser(),
		logger:      logger.With("component", "taobao_scraper"),
		timeout:     opts.Browser.Timeout,
		settleTime:  opts.SettleTime,
		galleryWait: opts.GalleryWait,
	}
}

// Scrape runs the full extraction sequence for one product URL. Every
// failure is converted into the envelope; no error escapes this boundary.
func (s *TaobaoScraper) Scrape(ctx context.Context, pageURL string, opts ScrapeOptions) *models.ScrapeResult {
	start := time.Now()

	product, err := s.scrape(ctx, pageURL, opts)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		s.logger.Error("scrape failed", "url", pageURL, "error", err, "elapsed", elapsed)
		return models.FailureResult(err, elapsed)
	}

	s.logger.Info("scrape complete", "url", pageURL, "title", product.Title, "images", len(product.MainImages), "elapsed", elapsed)
	return models.SuccessResult(product, elapsed)
}

func (s *TaobaoScraper) scrape(ctx context.Context, pageURL string, opts ScrapeOptions) (*models.ProductInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.session.EnsureSession(); err != nil {
		return nil, err
	}

	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	page, err := s.session.NewPage()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	// The listener must be live before navigation starts; detail API
	// responses can arrive during the initial load.
	interceptor := NewInterceptor(s.logger)
	interceptor.Attach(page)

	s.logger.Info("navigating", "url", pageURL)
	if _, err := page.Goto(pageURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.timeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNavigationFailed, pageURL, err)
	}

	// Taobao renders everything client-side; give it a settle period.
	page.WaitForTimeout(float64(s.settleTime.Milliseconds()))

	if _, err := page.WaitForSelector(gallerySelector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(s.galleryWait.Milliseconds())),
	}); err != nil {
		s.logger.Debug("gallery selector timeout, continuing", "selector", gallerySelector)
	}

	page.WaitForTimeout(2000)

	product := models.NewProductInfo(pageURL, detectPlatformTag(pageURL), extractProductID(pageURL))

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageUnusable, err)
	}

	if err := s.parser.ParseProductPage(html, product); err != nil {
		return nil, err
	}

	product.MainImages = s.extractMainImages(page, interceptor)

	if opts.TakeScreenshot && opts.OutputDir != "" {
		path := storage.ScreenshotPath(opts.OutputDir)
		if _, err := page.Screenshot(playwright.PageScreenshotOptions{
			Path:     playwright.String(path),
			FullPage: playwright.Bool(true),
		}); err != nil {
			s.logger.Warn("failed to take screenshot", "error", err)
		} else {
			product.ScreenshotPath = path
		}
	}

	if opts.SaveHTML && opts.OutputDir != "" {
		if path, err := storage.SaveHTML(opts.OutputDir, html); err != nil {
			s.logger.Warn("failed to save HTML", "error", err)
		} else {
			product.RawHTMLPath = path
		}
	}

	if opts.OutputDir != "" {
		if path, err := storage.SaveProductJSON(opts.OutputDir, product); err != nil {
			s.logger.Warn("failed to save product JSON", "error", err)
		} else {
			product.RawJSONPath = path
		}
	}

	if opts.DownloadImages && opts.OutputDir != "" {
		downloader := images.NewDownloader(&pageFetcher{page: page}, s.logger)
		local, err := downloader.DownloadAll(product.MainImages, storage.ImagesDir(opts.OutputDir))
		if err != nil {
			s.logger.Warn("image download setup failed", "error", err)
		} else {
			product.LocalImages = local
		}
	}

	return product, nil
}

// extractMainImages recovers the seller's product images: trigger lazy
// loading, vote out the seller identity from the rendered markup, collect
// gallery thumbnails (falling back to API-intercepted candidates), then
// filter, deduplicate and upscale.
func (s *TaobaoScraper) extractMainImages(page playwright.Page, interceptor *Interceptor) []string {
	s.triggerThumbnailLoading(page)

	sellerID := ""
	if html, err := page.Content(); err == nil {
		sellerID = images.ExtractSellerID(html)
	} else {
		s.logger.Debug("failed to re-read page content for seller vote", "error", err)
	}
	s.logger.Debug("seller identity vote", "seller_id", sellerID)

	candidates := s.collectGalleryImages(page)
	if len(candidates) == 0 {
		candidates = interceptor.Candidates()
		s.logger.Debug("no gallery thumbnails, using API candidates", "count", len(candidates))
	}

	resolved := images.Resolve(candidates, sellerID)
	s.logger.Info("resolved main images", "count", len(resolved), "seller_id", sellerID)

	return resolved
}

// LoginInteractive opens a visible browser for manual login; the persistent
// profile keeps the session for future headless scrapes.
func (s *TaobaoScraper) LoginInteractive(ctx context.Context, confirm <-chan struct{}) error {
	return s.session.LoginInteractive(ctx, taobaoLoginURL, taobaoHomeURL, confirm)
}

func (s *TaobaoScraper) Close() error {
	return s.session.Close()
}

func detectPlatformTag(pageURL string) string {
	if strings.Contains(pageURL, "tmall.com") {
		return platformTmall
	}
	return platformTaobao
}

// extractProductID pulls the "id" query parameter from a product URL.
func extractProductID(pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return parsed.Query().Get("id")
}

// pageFetcher downloads URLs by navigating the scrape page itself, so the
// requests carry the session's cookies and fingerprint.
type pageFetcher struct {
	page playwright.Page
}

func (f *pageFetcher) Fetch(url string) (int, []byte, error) {
	resp, err := f.page.Goto(url)
	if err != nil {
		return 0, nil, err
	}
	if resp == nil {
		return 0, nil, fmt.Errorf("no response for %s", url)
	}

	body, err := resp.Body()
	if err != nil {
		return resp.Status(), nil, err
	}

	return resp.Status(), body, nil
}
