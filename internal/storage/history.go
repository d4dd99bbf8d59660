package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ScrapeRecord tracks one product URL through a batch run.
type ScrapeRecord struct {
	URL       string    `json:"url"`
	Platform  string    `json:"platform"`
	ProductID string    `json:"product_id,omitempty"`
	Title     string    `json:"title,omitempty"`
	Status    string    `json:"status"`
	OutputDir string    `json:"output_dir,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Error     string    `json:"error,omitempty"`
}

// History is a JSON-file record of scraped URLs. The CLI uses it to skip
// already-completed products when resuming a batch.
type History struct {
	mu       sync.RWMutex
	records  map[string]*ScrapeRecord
	filename string
}

func NewHistory(filename string) (*History, error) {
	h := &History{
		records:  make(map[string]*ScrapeRecord),
		filename: filename,
	}

	if err := h.load(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	return h, nil
}

func (h *History) Add(record *ScrapeRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if record.URL == "" {
		return fmt.Errorf("URL is required")
	}

	now := time.Now()
	record.AddedAt = now
	record.UpdatedAt = now
	if record.Status == "" {
		record.Status = StatusPending
	}

	h.records[record.URL] = record
	return h.save()
}

func (h *History) Get(url string) (*ScrapeRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	record, exists := h.records[url]
	return record, exists
}

// IsCompleted reports whether url already finished successfully.
func (h *History) IsCompleted(url string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	record, exists := h.records[url]
	return exists && record.Status == StatusCompleted
}

func (h *History) UpdateStatus(url, status, errorMsg string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	record, exists := h.records[url]
	if !exists {
		return fmt.Errorf("record not found: %s", url)
	}

	record.Status = status
	record.UpdatedAt = time.Now()
	record.Error = errorMsg

	return h.save()
}

func (h *History) Stats() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := make(map[string]int)
	for _, record := range h.records {
		stats[record.Status]++
	}
	stats["total"] = len(h.records)
	return stats
}

func (h *History) save() error {
	data, err := json.MarshalIndent(h.records, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(h.filename, data)
}

func (h *History) load() error {
	data, err := os.ReadFile(h.filename)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, &h.records)
}
