package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/maltedev/taobao-product-scraper/internal/models"
)

var ErrProductNotFound = errors.New("product not found")

// ScrapedProduct is one row in the scraped_products table. The full
// extraction lives in the Info JSON column; the scalar columns exist for
// lookups and listings.
type ScrapedProduct struct {
	ProductID string          `db:"product_id"`
	Platform  string          `db:"platform"`
	URL       string          `db:"url"`
	Title     string          `db:"title"`
	Price     string          `db:"price"`
	Info      json.RawMessage `db:"info"`
	ScrapedAt time.Time       `db:"scraped_at"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// SaveProduct upserts a scraped product keyed by (platform, product_id).
// Re-scraping the same product refreshes the row.
func (db *DB) SaveProduct(ctx context.Context, product *models.ProductInfo) error {
	info, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product info: %w", err)
	}

	query := `
		INSERT INTO scraped_products (product_id, platform, url, title, price, info, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		ON CONFLICT (platform, product_id) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			info = EXCLUDED.info,
			scraped_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP`

	_, err = db.pool.Exec(ctx, query,
		product.ProductID, product.Platform, product.URL, product.Title, product.Price, info)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}

	return nil
}

// SaveProductWithTx is the transactional variant used together with the
// outbox insert, so the row and its event commit atomically.
func (db *DB) SaveProductWithTx(ctx context.Context, tx pgx.Tx, product *models.ProductInfo) error {
	info, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to marshal product info: %w", err)
	}

	query := `
		INSERT INTO scraped_products (product_id, platform, url, title, price, info, scraped_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		ON CONFLICT (platform, product_id) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			price = EXCLUDED.price,
			info = EXCLUDED.info,
			scraped_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP`

	_, err = tx.Exec(ctx, query,
		product.ProductID, product.Platform, product.URL, product.Title, product.Price, info)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}

	return nil
}

// GetProduct loads the full ProductInfo for a platform/product pair.
func (db *DB) GetProduct(ctx context.Context, platform, productID string) (*models.ProductInfo, error) {
	query := `
		SELECT info FROM scraped_products
		WHERE platform = $1 AND product_id = $2`

	var info json.RawMessage
	err := db.pool.QueryRow(ctx, query, platform, productID).Scan(&info)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	var product models.ProductInfo
	if err := json.Unmarshal(info, &product); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product info: %w", err)
	}

	return &product, nil
}

// ListRecentProducts returns summary rows ordered by scrape time, newest first.
func (db *DB) ListRecentProducts(ctx context.Context, limit int) ([]*ScrapedProduct, error) {
	query := `
		SELECT product_id, platform, url, title, price, scraped_at, created_at, updated_at
		FROM scraped_products
		ORDER BY scraped_at DESC
		LIMIT $1`

	rows, err := db.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*ScrapedProduct
	for rows.Next() {
		p := &ScrapedProduct{}
		if err := rows.Scan(
			&p.ProductID, &p.Platform, &p.URL, &p.Title, &p.Price,
			&p.ScrapedAt, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}
