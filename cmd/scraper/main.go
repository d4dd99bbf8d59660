package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/maltedev/taobao-product-scraper/internal/browser"
	"github.com/maltedev/taobao-product-scraper/internal/config"
	"github.com/maltedev/taobao-product-scraper/internal/queue"
	"github.com/maltedev/taobao-product-scraper/internal/ratelimit"
	"github.com/maltedev/taobao-product-scraper/internal/scraper"
	"github.com/maltedev/taobao-product-scraper/internal/storage"
)

func main() {
	var (
		urls           = flag.String("urls", "", "Comma-separated list of product URLs to scrape")
		inputFile      = flag.String("file", "", "File containing product URLs (one per line)")
		outputDir      = flag.String("output", "output", "Base directory for scrape artifacts")
		downloadImages = flag.Bool("download-images", true, "Download resolved product images")
		saveHTML       = flag.Bool("save-html", false, "Save rendered page HTML")
		screenshot     = flag.Bool("screenshot", false, "Take full-page screenshots")
		headless       = flag.Bool("headless", true, "Run browser in headless mode")
		login          = flag.Bool("login", false, "Open a browser for interactive login, then exit")
		historyFile    = flag.String("history", "scrape_history.json", "Scrape history file (completed URLs are skipped)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	scraperOpts := &scraper.Options{
		Browser: &browser.Options{
			Headless:       *headless && cfg.Browser.Headless,
			Timeout:        cfg.Browser.Timeout,
			UserAgent:      cfg.Browser.UserAgent,
			ViewportWidth:  cfg.Browser.ViewportWidth,
			ViewportHeight: cfg.Browser.ViewportHeight,
			UserDataDir:    cfg.Browser.UserDataDir,
		},
		SettleTime:  cfg.Scraper.SettleTime,
		GalleryWait: cfg.Scraper.GalleryWait,
		Logger:      logger,
	}

	if *login {
		if err := runLogin(ctx, scraperOpts); err != nil {
			logger.Error("login failed", "error", err)
			os.Exit(1)
		}
		return
	}

	history, err := storage.NewHistory(*historyFile)
	if err != nil {
		logger.Error("failed to open history", "error", err)
		os.Exit(1)
	}

	taskQueue := queue.NewInMemoryQueue()
	defer taskQueue.Close()

	loaded, err := loadTasks(taskQueue, history, *urls, *inputFile)
	if err != nil {
		logger.Error("failed to load tasks", "error", err)
		os.Exit(1)
	}

	if loaded == 0 {
		fmt.Println("No URLs to scrape. Use -urls or -file, or check the history file for completed entries.")
		flag.Usage()
		os.Exit(1)
	}

	// All registered platforms share this cache so one session serves a
	// whole batch per storefront.
	scrapers := make(map[string]scraper.Scraper)
	defer func() {
		for _, s := range scrapers {
			s.Close()
		}
	}()

	rateLimiter := ratelimit.NewAdaptiveRateLimiter(cfg.Scraper.RateLimitMin, cfg.Scraper.RateLimitMax)

	logger.Info("starting batch scrape", "tasks", loaded)

	// Every outstanding task has exactly one queued entry, so Pop never
	// blocks while remaining is positive.
	remaining := loaded
	for remaining > 0 {
		task, err := taskQueue.Pop(ctx)
		if err != nil {
			break
		}

		if err := rateLimiter.Wait(ctx); err != nil {
			break
		}

		s, ok := scrapers[task.Platform]
		if !ok {
			s, err = scraper.Create(task.Platform, scraperOpts)
			if err != nil {
				logger.Error("failed to create scraper", "platform", task.Platform, "error", err)
				remaining--
				continue
			}
			scrapers[task.Platform] = s
		}

		logger.Info("scraping", "url", task.URL, "retries", task.Retries)

		result := s.Scrape(ctx, task.URL, scraper.ScrapeOptions{
			OutputDir:      filepath.Join(*outputDir, task.ID),
			DownloadImages: *downloadImages,
			SaveHTML:       *saveHTML,
			TakeScreenshot: *screenshot,
		})

		if !result.Success {
			logger.Error("scrape failed", "url", task.URL, "error", result.Error)
			rateLimiter.RecordError()
			history.UpdateStatus(task.URL, storage.StatusFailed, result.Error)

			if task.Retries < cfg.Scraper.MaxRetries {
				task.Retries++
				if err := taskQueue.Push(task); err == nil {
					continue
				}
			}
			remaining--
			continue
		}

		remaining--
		rateLimiter.RecordSuccess()
		history.UpdateStatus(task.URL, storage.StatusCompleted, "")

		p := result.Product
		fmt.Printf("Title:  %s\n", p.Title)
		fmt.Printf("Price:  %s\n", p.Price)
		fmt.Printf("Shop:   %s\n", p.ShopName)
		fmt.Printf("Images: %d resolved, %d downloaded\n", len(p.MainImages), len(p.LocalImages))
		fmt.Println("---")
	}

	stats := history.Stats()
	logger.Info("batch complete", "completed", stats[storage.StatusCompleted], "failed", stats[storage.StatusFailed])
}

// runLogin opens a visible browser and waits for the operator to finish the
// manual login before the profile is persisted.
func runLogin(ctx context.Context, opts *scraper.Options) error {
	s, err := scraper.Create("taobao", opts)
	if err != nil {
		return err
	}
	defer s.Close()

	confirm := make(chan struct{})
	go func() {
		fmt.Println("A browser window will open. Log in there, then press Enter here to continue...")
		bufio.NewReader(os.Stdin).ReadString('\n')
		close(confirm)
	}()

	if err := s.LoginInteractive(ctx, confirm); err != nil {
		return err
	}

	fmt.Println("Login state saved. Future scrapes can run headless.")
	return nil
}

func loadTasks(q queue.Queue, history *storage.History, urls, inputFile string) (int, error) {
	var items []string

	if urls != "" {
		items = append(items, strings.Split(urls, ",")...)
	}

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return 0, fmt.Errorf("failed to read input file: %w", err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "#") {
				items = append(items, line)
			}
		}
	}

	count := 0
	for i, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		if history.IsCompleted(item) {
			slog.Info("skipping completed URL", "url", item)
			continue
		}

		platform, err := scraper.Detect(item)
		if err != nil {
			slog.Warn("skipping URL with unknown platform", "url", item)
			continue
		}

		task := &queue.Task{
			ID:        fmt.Sprintf("task-%03d", i+1),
			URL:       item,
			Platform:  platform,
			CreatedAt: time.Now(),
		}

		if err := q.Push(task); err != nil {
			return count, err
		}
		history.Add(&storage.ScrapeRecord{URL: item, Platform: platform})
		count++
	}

	return count, nil
}
