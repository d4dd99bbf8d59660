package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/maltedev/taobao-product-scraper/internal/database"
	"github.com/maltedev/taobao-product-scraper/internal/models"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeProductScraped is published when a product page has been
	// scraped and persisted; downstream consumers pick it up from Redis.
	EventTypeProductScraped EventType = "PRODUCT_SCRAPED"
)

// ProductScrapedPayload is the event body for PRODUCT_SCRAPED.
type ProductScrapedPayload struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	Timestamp      time.Time `json:"timestamp"`
	ProductID      string    `json:"product_id"`
	Platform       string    `json:"platform"`
	URL            string    `json:"url"`
	Title          string    `json:"title"`
	Price          string    `json:"price,omitempty"`
	ShopName       string    `json:"shop_name,omitempty"`
	MainImages     []string  `json:"main_images,omitempty"`
	LocalImages    []string  `json:"local_images,omitempty"`
	Highlights     []string  `json:"highlights,omitempty"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Source         string    `json:"source"`
}

// PayloadFromProduct builds the event body from a scrape result.
func PayloadFromProduct(product *models.ProductInfo, elapsedSeconds float64) *ProductScrapedPayload {
	return &ProductScrapedPayload{
		ProductID:      product.ProductID,
		Platform:       product.Platform,
		URL:            product.URL,
		Title:          product.Title,
		Price:          product.Price,
		ShopName:       product.ShopName,
		MainImages:     product.MainImages,
		LocalImages:    product.LocalImages,
		Highlights:     product.Highlights,
		ElapsedSeconds: elapsedSeconds,
	}
}

// Publisher persists scraped products and their events atomically using the
// transactional outbox pattern; the relay ships them to Redis afterwards.
type Publisher struct {
	db     *database.DB
	outbox *database.OutboxRepository
	logger *slog.Logger
}

func NewPublisher(db *database.DB, logger *slog.Logger) *Publisher {
	return &Publisher{
		db:     db,
		outbox: database.NewOutboxRepository(db),
		logger: logger.With("component", "event_publisher"),
	}
}

// PublishProductScraped saves the product row and enqueues the event in the
// same transaction, so a crash cannot separate the two.
func (p *Publisher) PublishProductScraped(ctx context.Context, product *models.ProductInfo, payload *ProductScrapedPayload) error {
	if payload.EventID == "" {
		payload.EventID = uuid.New().String()
	}
	if payload.EventType == "" {
		payload.EventType = string(EventTypeProductScraped)
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}
	if payload.Source == "" {
		payload.Source = "scraper"
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	outboxEvent := &database.OutboxEvent{
		AggregateType: "product",
		AggregateID:   payload.ProductID,
		EventType:     string(EventTypeProductScraped),
		Payload:       data,
		TargetStream:  database.DefaultTargetStream,
	}

	err = p.db.Transaction(ctx, func(tx pgx.Tx) error {
		if err := p.db.SaveProductWithTx(ctx, tx, product); err != nil {
			return err
		}

		if err := p.outbox.InsertWithTx(ctx, tx, outboxEvent); err != nil {
			return fmt.Errorf("failed to insert outbox event: %w", err)
		}

		return nil
	})

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published to outbox",
		"event_id", payload.EventID,
		"product_id", payload.ProductID,
		"platform", payload.Platform)

	return nil
}
