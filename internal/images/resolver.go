// Package images recovers the true set of seller-uploaded product images from
// noisy gallery markup and intercepted API payloads, and downloads them
// through the scraping session.
package images

import (
	"regexp"
	"strings"
)

// genericSellerPrefix marks the numeric range the platform uses for shared
// UI assets. Real seller IDs never start with it.
const genericSellerPrefix = "6000000"

var (
	// Seller IDs are embedded after the "_!!" marker in CDN asset paths.
	sellerIDPattern         = regexp.MustCompile(`_!!(\d{10,13})`)
	sellerIDFallbackPattern = regexp.MustCompile(`seller[Ii]d["\s:=]+["']?(\d{10,13})`)

	// Content identifier naming the underlying asset regardless of rendition.
	imageIDPattern = regexp.MustCompile(`(O1CN01[a-zA-Z0-9]+)`)

	// Quality and fixed-dimension suffixes the CDN appends to downgraded
	// renditions. Stripping them yields the original-resolution asset.
	qualityWebpSuffix = regexp.MustCompile(`\.jpg_q\d+\.jpg_\.webp$`)
	qualitySuffix     = regexp.MustCompile(`\.jpg_q\d+\.jpg$`)
	sizeWebpSuffix    = regexp.MustCompile(`\.jpg_\d+x\d+[^.]*\.jpg_\.webp$`)
)

// ExtractSellerID recovers the page's seller identity by majority vote over
// all seller tokens found in the markup. Product images are tagged with the
// real seller's ID while shared platform chrome carries generic-range IDs, so
// the most frequent non-generic token wins; ties break on scan order.
// Returns "" when no token survives.
func ExtractSellerID(html string) string {
	matches := sellerIDPattern.FindAllStringSubmatch(html, -1)

	counts := make(map[string]int)
	var order []string
	for _, m := range matches {
		id := m[1]
		if strings.HasPrefix(id, genericSellerPrefix) {
			continue
		}
		if counts[id] == 0 {
			order = append(order, id)
		}
		counts[id]++
	}

	best := ""
	bestCount := 0
	for _, id := range order {
		if counts[id] > bestCount {
			best = id
			bestCount = counts[id]
		}
	}
	if best != "" {
		return best
	}

	if m := sellerIDFallbackPattern.FindStringSubmatch(html); m != nil {
		if !strings.HasPrefix(m[1], genericSellerPrefix) {
			return m[1]
		}
	}

	return ""
}

// ExtractImageID returns the content identifier embedded in url, or "".
func ExtractImageID(url string) string {
	if m := imageIDPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

// HighRes rewrites a CDN image URL to its original-resolution form by
// stripping quality and dimension suffixes. Applying it to an already clean
// URL is a no-op.
func HighRes(url string) string {
	url = qualityWebpSuffix.ReplaceAllString(url, ".jpg_.webp")
	url = qualitySuffix.ReplaceAllString(url, ".jpg")
	url = sizeWebpSuffix.ReplaceAllString(url, ".jpg_.webp")
	return url
}

// Resolve filters candidates down to the seller's own images, deduplicates by
// content identifier in first-seen order, and rewrites each survivor to its
// high-resolution form. When sellerID is empty the identity filter is skipped
// and every candidate passes through. An empty result is a valid outcome.
func Resolve(candidates []string, sellerID string) []string {
	sellerMarker := ""
	if sellerID != "" {
		sellerMarker = "_!!" + sellerID
	}

	seen := make(map[string]struct{}, len(candidates))
	resolved := make([]string, 0, len(candidates))

	for _, url := range candidates {
		if sellerMarker != "" && !strings.Contains(url, sellerMarker) {
			continue
		}

		id := ExtractImageID(url)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		resolved = append(resolved, HighRes(url))
	}

	return resolved
}
