package scraper

import (
	"fmt"
	"strings"
	"sync"
)

// Constructor builds a scraper for one platform. Constructors must not
// allocate browser resources; the session launches lazily on first use.
type Constructor func(opts *Options) Scraper

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Constructor)
	domains    = make(map[string]string)
)

// Register maps a platform tag (and optionally its domain substrings) to a
// scraper constructor. Platform files call this from init().
func Register(platform string, ctor Constructor, domainSubstrings ...string) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[strings.ToLower(platform)] = ctor
	for _, d := range domainSubstrings {
		domains[d] = strings.ToLower(platform)
	}
}

// Create resolves a scraper by exact platform tag, or by scanning a URL for
// a registered domain substring. Unknown platforms fail before any browser
// resource is allocated.
func Create(platformOrURL string, opts *Options) (Scraper, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	platform := strings.ToLower(platformOrURL)

	if strings.HasPrefix(platform, "http") {
		detected, err := detectPlatform(platformOrURL)
		if err != nil {
			return nil, err
		}
		platform = detected
	}

	registryMu.RLock()
	ctor, ok := registry[platform]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s (registered: %s)", ErrUnknownPlatform, platformOrURL, strings.Join(registeredPlatforms(), ", "))
	}

	return ctor(opts), nil
}

// Detect resolves the platform tag for a URL without building a scraper.
func Detect(url string) (string, error) {
	return detectPlatform(url)
}

func detectPlatform(url string) (string, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for substr, platform := range domains {
		if strings.Contains(url, substr) {
			return platform, nil
		}
	}

	return "", fmt.Errorf("%w: cannot detect platform from URL %s", ErrUnknownPlatform, url)
}

func registeredPlatforms() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
