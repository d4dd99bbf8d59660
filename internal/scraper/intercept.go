package scraper

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// Product detail data arrives over background mtop API calls; their bodies
// embed CDN image URLs the gallery may never render.
var interceptImagePattern = regexp.MustCompile(`https?://[^\s"'\\]*O1CN01[^\s"'\\]*(?:jpg|png|webp)`)

// Interceptor observes background API responses during one page load and
// accumulates product image URL candidates. It never blocks or modifies
// traffic; per-response parse failures are swallowed.
type Interceptor struct {
	mu         sync.Mutex
	candidates []string
	logger     *slog.Logger
}

func NewInterceptor(logger *slog.Logger) *Interceptor {
	return &Interceptor{
		logger: logger.With("component", "interceptor"),
	}
}

// Attach registers the response listener. It must be called before
// navigation starts or early responses are missed.
func (i *Interceptor) Attach(page playwright.Page) {
	page.OnResponse(func(resp playwright.Response) {
		if !matchesProductAPI(resp.URL()) {
			return
		}

		body, err := resp.Text()
		if err != nil {
			i.logger.Debug("failed to read API response", "url", resp.URL(), "error", err)
			return
		}

		found := extractImageURLs(body)
		if len(found) == 0 {
			return
		}

		i.mu.Lock()
		i.candidates = append(i.candidates, found...)
		i.mu.Unlock()

		i.logger.Debug("captured image candidates from API", "count", len(found), "url", resp.URL())
	})
}

// Candidates returns a snapshot of the accumulated URLs. Responses complete
// in nondeterministic order, so callers must not rely on ordering beyond
// tie-breaking.
func (i *Interceptor) Candidates() []string {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]string, len(i.candidates))
	copy(out, i.candidates)
	return out
}

func matchesProductAPI(url string) bool {
	if !strings.Contains(url, "mtop.") {
		return false
	}

	lower := strings.ToLower(url)
	return strings.Contains(lower, "getdesc") ||
		strings.Contains(lower, "detail") ||
		strings.Contains(lower, "item")
}

func extractImageURLs(body string) []string {
	return interceptImagePattern.FindAllString(body, -1)
}
