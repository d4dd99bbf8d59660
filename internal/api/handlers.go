package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/maltedev/taobao-product-scraper/internal/database"
	"github.com/maltedev/taobao-product-scraper/internal/events"
	"github.com/maltedev/taobao-product-scraper/internal/scraper"
)

type Handlers struct {
	scraper   scraper.Scraper
	db        *database.DB
	publisher *events.Publisher
	logger    *slog.Logger

	// One browser session backs all requests; scrapes are serialized.
	scrapeMu sync.Mutex
}

func NewHandlers(s scraper.Scraper, db *database.DB, publisher *events.Publisher, logger *slog.Logger) *Handlers {
	return &Handlers{
		scraper:   s,
		db:        db,
		publisher: publisher,
		logger:    logger.With("component", "api"),
	}
}

// ScrapeRequest is the body for POST /api/v1/scrape.
type ScrapeRequest struct {
	URL            string `json:"url"`
	OutputDir      string `json:"output_dir,omitempty"`
	DownloadImages bool   `json:"download_images"`
	SaveHTML       bool   `json:"save_html"`
	TakeScreenshot bool   `json:"take_screenshot"`
}

// Scrape runs a synchronous scrape and returns the result envelope.
func (h *Handlers) Scrape(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	h.scrapeMu.Lock()
	result := h.scraper.Scrape(r.Context(), req.URL, scraper.ScrapeOptions{
		OutputDir:      req.OutputDir,
		DownloadImages: req.DownloadImages,
		SaveHTML:       req.SaveHTML,
		TakeScreenshot: req.TakeScreenshot,
	})
	h.scrapeMu.Unlock()

	if result.Success && h.publisher != nil {
		payload := events.PayloadFromProduct(result.Product, result.ElapsedSeconds)
		if err := h.publisher.PublishProductScraped(r.Context(), result.Product, payload); err != nil {
			h.logger.Error("failed to persist scraped product", "url", req.URL, "error", err)
		}
	}

	h.respondJSON(w, http.StatusOK, result)
}

// GetProduct returns a previously scraped product from the database.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	platform := chi.URLParam(r, "platform")
	productID := chi.URLParam(r, "productID")

	product, err := h.db.GetProduct(r.Context(), platform, productID)
	if err != nil {
		if errors.Is(err, database.ErrProductNotFound) {
			h.respondError(w, http.StatusNotFound, "product not found")
			return
		}
		h.logger.Error("failed to get product", "platform", platform, "product_id", productID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	h.respondJSON(w, http.StatusOK, product)
}

// ListProducts returns recently scraped products, newest first.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	products, err := h.db.ListRecentProducts(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
