package scraper

import (
	"github.com/playwright-community/playwright-go"
)

const (
	gallerySelector        = "#picGalleryEle"
	galleryThumbnailImages = "#picGalleryEle img[class*='thumbnailPic']"
	thumbnailStripSelector = "[class*='thumbnails']"
	thumbnailSelector      = "[class*='thumbnail--']"

	// Activating more thumbnails than this buys nothing but wall time.
	maxThumbnailClicks = 10
)

// triggerThumbnailLoading forces the gallery's lazy-loaded images to fetch:
// click each thumbnail with a short settle, reset to the first, then scroll
// the strip to both extremes. Every step is best-effort.
func (s *TaobaoScraper) triggerThumbnailLoading(page playwright.Page) {
	page.WaitForTimeout(1000)

	strip := page.Locator(thumbnailStripSelector).First()
	if count, err := strip.Count(); err != nil || count == 0 {
		s.logger.Debug("no thumbnail strip found")
		return
	}

	thumbs, err := page.Locator(thumbnailSelector).All()
	if err != nil {
		s.logger.Debug("failed to enumerate thumbnails", "error", err)
		return
	}
	s.logger.Debug("found thumbnails", "count", len(thumbs))

	for i, thumb := range thumbs {
		if i >= maxThumbnailClicks {
			break
		}
		if err := thumb.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(2000)}); err != nil {
			s.logger.Debug("thumbnail click failed", "index", i, "error", err)
			continue
		}
		page.WaitForTimeout(500)
	}

	if len(thumbs) > 0 {
		if err := thumbs[0].Click(playwright.LocatorClickOptions{Timeout: playwright.Float(2000)}); err == nil {
			page.WaitForTimeout(500)
		}
	}

	if _, err := page.Evaluate(`() => {
		const container = document.querySelector('[class*="thumbnails"]');
		if (container) {
			container.scrollLeft = container.scrollWidth;
			container.scrollLeft = 0;
		}
	}`); err != nil {
		s.logger.Debug("thumbnail strip scroll failed", "error", err)
	}

	page.WaitForTimeout(1000)
}

// collectGalleryImages returns the src of every thumbnail image scoped to the
// product gallery container, in DOM order.
func (s *TaobaoScraper) collectGalleryImages(page playwright.Page) []string {
	thumbs, err := page.Locator(galleryThumbnailImages).All()
	if err != nil {
		s.logger.Debug("failed to query gallery thumbnails", "error", err)
		return nil
	}

	var srcs []string
	for _, img := range thumbs {
		src, err := img.GetAttribute("src")
		if err != nil || src == "" {
			continue
		}
		srcs = append(srcs, src)
	}

	s.logger.Debug("collected gallery thumbnails", "count", len(srcs))

	return srcs
}
