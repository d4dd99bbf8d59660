package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session owns a disk-persisted browser profile and its live engine handle.
// Cookies and local storage survive process restarts, so a single interactive
// login keeps working across headless runs.
type Session struct {
	pw      *playwright.Playwright
	context playwright.BrowserContext
	opts    *Options
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	UserDataDir    string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		UserDataDir:    ".taobao-scraper/browser-data",
	}
}

func NewSession(opts *Options) *Session {
	if opts == nil {
		opts = DefaultOptions()
	}

	return &Session{
		opts:   opts,
		logger: slog.Default().With("component", "browser"),
	}
}

// EnsureSession lazily launches the persistent browser context. It is
// idempotent: once the context exists, subsequent calls return immediately.
func (s *Session) EnsureSession() error {
	if s.context != nil {
		return nil
	}

	if err := os.MkdirAll(s.opts.UserDataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create user data dir: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless:  playwright.Bool(s.opts.Headless),
		UserAgent: playwright.String(s.opts.UserAgent),
		Viewport: &playwright.Size{
			Width:  s.opts.ViewportWidth,
			Height: s.opts.ViewportHeight,
		},
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	}

	ctx, err := pw.Chromium.LaunchPersistentContext(s.opts.UserDataDir, launchOpts)
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch persistent context: %w", err)
	}

	s.pw = pw
	s.context = ctx
	s.logger.Info("browser launched with persistent profile", "user_data_dir", s.opts.UserDataDir, "headless", s.opts.Headless)

	return nil
}

func (s *Session) NewPage() (playwright.Page, error) {
	if err := s.EnsureSession(); err != nil {
		return nil, err
	}

	page, err := s.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(float64(s.opts.Timeout.Milliseconds()))

	return page, nil
}

// LoginInteractive opens a visible browser on the given login URL and blocks
// until the caller signals completion on confirm. The profile written during
// the login persists on disk, so later headless sessions inherit it.
func (s *Session) LoginInteractive(ctx context.Context, loginURL, verifyURL string, confirm <-chan struct{}) error {
	originalHeadless := s.opts.Headless
	s.opts.Headless = false
	defer func() { s.opts.Headless = originalHeadless }()

	// The login must run in its own visible context.
	if err := s.Close(); err != nil {
		s.logger.Warn("failed to close previous session", "error", err)
	}

	if err := s.EnsureSession(); err != nil {
		return err
	}

	page, err := s.NewPage()
	if err != nil {
		return err
	}
	defer page.Close()

	if _, err := page.Goto(loginURL); err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}

	s.logger.Info("waiting for manual login confirmation", "url", loginURL)

	select {
	case <-confirm:
	case <-ctx.Done():
		return ctx.Err()
	}

	// Verify the saved state by loading a page that requires the session.
	if _, err := page.Goto(verifyURL); err != nil {
		return fmt.Errorf("failed to verify login: %w", err)
	}
	page.WaitForTimeout(2000)

	s.logger.Info("login state saved", "user_data_dir", s.opts.UserDataDir)

	return nil
}

// Close releases the context and engine handle. Safe to call multiple times;
// profile state stays on disk regardless.
func (s *Session) Close() error {
	var errs []error

	if s.context != nil {
		if err := s.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
		s.context = nil
	}

	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		s.pw = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}
