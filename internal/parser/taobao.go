package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/taobao-product-scraper/internal/models"
)

const (
	minTitleLength = 5

	maxHighlights = 8
	maxServices   = 6
	maxPromotions = 5
)

var (
	pricePattern         = regexp.MustCompile(`^[\d,]+\.?\d*$`)
	priceFallbackPattern = regexp.MustCompile(`￥?([\d,]+\.?\d*)`)
)

// TaobaoParser extracts product fields from a rendered HTML snapshot.
// Taobao class names carry build hashes and change between deployments, so
// every field runs an ordered chain of substring selectors and settles for
// the first sane match. A chain that finds nothing yields an empty value,
// never an error.
type TaobaoParser struct {
	titleSelectors     []string
	priceSelectors     []string
	shopSelectors      []string
	highlightSelectors []string
	serviceSelectors   []string
	promotionSelectors []string
}

func NewTaobaoParser() *TaobaoParser {
	return &TaobaoParser{
		titleSelectors: []string{
			"h1",
			".tb-main-title",
			"[class*='mainTitle']",
			"[class*='MainTitle']",
			"#J_Title h3",
		},
		priceSelectors: []string{
			"span[class*='text--']",
			"[class*='block2'] span[class*='text']",
		},
		shopSelectors: []string{
			"[class*='shopName']",
			"[class*='ShopName']",
			".tb-shop-name",
			"[class*='ShopHeader'] a",
		},
		highlightSelectors: []string{
			"[class*='highlight'] span",
			"[class*='Highlight'] span",
			"[class*='sellPoint']",
			"[class*='feature']",
			"[class*='tag']",
			"[class*='label']",
		},
		serviceSelectors: []string{
			"[class*='service'] span",
			"[class*='guarantee']",
			"[class*='policy']",
			"[class*='storeLabel']",
		},
		promotionSelectors: []string{
			"[class*='promotion']",
			"[class*='Promotion']",
			"[class*='discount']",
			"[class*='coupon']",
			"[class*='activity']",
		},
	}
}

// ParseProductPage fills the extractable fields on product from html.
// The only error is an unparseable document; missing fields stay empty.
func (p *TaobaoParser) ParseProductPage(html string, product *models.ProductInfo) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	product.Title = p.ExtractTitle(doc)
	product.Price = p.ExtractPrice(doc)
	product.OriginalPrice = p.extractText(doc, "[class*='originPrice'], [class*='originalPrice']")
	product.ShopName = p.ExtractShopName(doc)
	product.Shipping = p.extractText(doc, "[class*='shipping']")
	product.Freight = p.extractText(doc, "[class*='freight']")
	product.Sales = p.extractText(doc, "[class*='sales'], [class*='sold']")
	product.Rating = p.extractText(doc, "[class*='rating'], [class*='starNum']")
	product.Description = p.extractText(doc, "[class*='subTitle'], [class*='subtitle'], [class*='desc']")
	product.Highlights = p.ExtractHighlights(doc)
	product.Services = p.ExtractServices(doc)
	product.Promotions = p.ExtractPromotions(doc)

	return nil
}

// ExtractTitle walks the title selector chain and falls back to the document
// title with the trailing site-name suffix stripped.
func (p *TaobaoParser) ExtractTitle(doc *goquery.Document) string {
	for _, selector := range p.titleSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if len([]rune(text)) > minTitleLength {
			return text
		}
	}

	pageTitle := strings.TrimSpace(doc.Find("title").First().Text())
	if pageTitle != "" {
		// Strip suffixes like "-淘宝网".
		return strings.TrimSpace(strings.SplitN(pageTitle, "-", 2)[0])
	}

	return ""
}

// ExtractPrice scans the price selector chain for a bare numeric value, then
// falls back to the high-contrast price container Taobao renders inline.
func (p *TaobaoParser) ExtractPrice(doc *goquery.Document) string {
	for _, selector := range p.priceSelectors {
		var price string
		doc.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			if text != "" && pricePattern.MatchString(text) {
				price = text
				return false
			}
			return true
		})
		if price != "" {
			return price
		}
	}

	container := doc.Find("div[style*='rgb(255, 79, 0)']").First()
	if container.Length() > 0 {
		if m := priceFallbackPattern.FindStringSubmatch(container.Text()); m != nil {
			return m[1]
		}
	}

	return ""
}

func (p *TaobaoParser) ExtractShopName(doc *goquery.Document) string {
	for _, selector := range p.shopSelectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text != "" {
			// First line only; the shop header often appends rating blurbs.
			return strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
		}
	}

	return ""
}

func (p *TaobaoParser) ExtractHighlights(doc *goquery.Document) []string {
	return p.collectTexts(doc, p.highlightSelectors, 2, 50, maxHighlights)
}

func (p *TaobaoParser) ExtractServices(doc *goquery.Document) []string {
	return p.collectTexts(doc, p.serviceSelectors, 2, 50, maxServices)
}

func (p *TaobaoParser) ExtractPromotions(doc *goquery.Document) []string {
	return p.collectTexts(doc, p.promotionSelectors, 3, 100, maxPromotions)
}

func (p *TaobaoParser) extractText(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

// collectTexts gathers texts from every selector in the chain, keeps those
// within the length bounds, deduplicates preserving first-seen order, and
// caps the result.
func (p *TaobaoParser) collectTexts(doc *goquery.Document, selectors []string, minLen, maxLen, limit int) []string {
	const perSelectorLimit = 10

	var collected []string
	for _, selector := range selectors {
		doc.Find(selector).EachWithBreak(func(i int, s *goquery.Selection) bool {
			if i >= perSelectorLimit {
				return false
			}
			text := strings.TrimSpace(s.Text())
			n := len([]rune(text))
			if n > minLen && n < maxLen {
				collected = append(collected, text)
			}
			return true
		})
	}

	seen := make(map[string]struct{}, len(collected))
	var out []string
	for _, text := range collected {
		if _, ok := seen[text]; ok {
			continue
		}
		seen[text] = struct{}{}
		out = append(out, text)
		if len(out) == limit {
			break
		}
	}

	return out
}
