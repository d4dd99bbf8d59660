package models

// ProductInfo is the structured record extracted from a product detail page.
// Most fields are best-effort: a selector chain that finds nothing leaves the
// field empty rather than failing the scrape.
type ProductInfo struct {
	URL       string `json:"url"`
	Platform  string `json:"platform"`
	ProductID string `json:"product_id,omitempty"`

	Title         string `json:"title"`
	Price         string `json:"price,omitempty"`
	OriginalPrice string `json:"original_price,omitempty"`

	ShopName string `json:"shop_name,omitempty"`
	ShopURL  string `json:"shop_url,omitempty"`

	MainImages   []string `json:"main_images"`
	DetailImages []string `json:"detail_images,omitempty"`
	LocalImages  []string `json:"local_images,omitempty"`

	Shipping    string `json:"shipping,omitempty"`
	Freight     string `json:"freight,omitempty"`
	Sales       string `json:"sales,omitempty"`
	Rating      string `json:"rating,omitempty"`
	ReviewCount string `json:"review_count,omitempty"`

	Description    string              `json:"description,omitempty"`
	Highlights     []string            `json:"highlights,omitempty"`
	Specifications map[string]string   `json:"specifications,omitempty"`
	Services       []string            `json:"services,omitempty"`
	Promotions     []string            `json:"promotions,omitempty"`
	SKUOptions     map[string][]string `json:"sku_options,omitempty"`

	// Filled by downstream image-analysis collaborators, not by the scraper.
	ImageDescriptions []string `json:"image_descriptions,omitempty"`

	RawHTMLPath    string `json:"raw_html_path,omitempty"`
	RawJSONPath    string `json:"raw_json_path,omitempty"`
	ScreenshotPath string `json:"screenshot_path,omitempty"`
}

// ProductImage carries a single image through resolution and download.
// It is internal bookkeeping; only the URL lists on ProductInfo are persisted.
type ProductImage struct {
	URL       string `json:"url"`
	LocalPath string `json:"local_path,omitempty"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
	IsMain    bool   `json:"is_main"`
}

// ScrapeResult is the envelope returned by one scrape call. Exactly one of
// Product and Error is set.
type ScrapeResult struct {
	Success        bool         `json:"success"`
	Product        *ProductInfo `json:"product,omitempty"`
	Error          string       `json:"error,omitempty"`
	ElapsedSeconds float64      `json:"elapsed_seconds"`
}

func NewProductInfo(url, platform, productID string) *ProductInfo {
	return &ProductInfo{
		URL:        url,
		Platform:   platform,
		ProductID:  productID,
		MainImages: make([]string, 0),
	}
}

// SuccessResult builds the success envelope for a completed scrape.
func SuccessResult(product *ProductInfo, elapsedSeconds float64) *ScrapeResult {
	return &ScrapeResult{
		Success:        true,
		Product:        product,
		ElapsedSeconds: elapsedSeconds,
	}
}

// FailureResult builds the failure envelope; err must be non-nil.
func FailureResult(err error, elapsedSeconds float64) *ScrapeResult {
	return &ScrapeResult{
		Success:        false,
		Error:          err.Error(),
		ElapsedSeconds: elapsedSeconds,
	}
}
