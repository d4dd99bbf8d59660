package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/taobao-product-scraper/internal/models"
)

func TestExtractTitle(t *testing.T) {
	parser := NewTaobaoParser()

	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "title from h1 is trimmed",
			html:     `<html><body><h1>  Premium Wireless Mouse  </h1></body></html>`,
			expected: "Premium Wireless Mouse",
		},
		{
			name:     "hashed class selector",
			html:     `<div class="ItemHeader--mainTitle--abc123">无线蓝牙机械键盘 RGB背光</div>`,
			expected: "无线蓝牙机械键盘 RGB背光",
		},
		{
			name:     "short heading falls through to document title",
			html:     `<html><head><title>Portable Espresso Maker - 淘宝网</title></head><body><h1>Shop</h1></body></html>`,
			expected: "Portable Espresso Maker",
		},
		{
			name:     "document title truncates at the first dash",
			html:     `<html><head><title>高颜值保温杯 316不锈钢-天猫超市</title></head><body></body></html>`,
			expected: "高颜值保温杯 316不锈钢",
		},
		{
			name:     "nothing usable yields empty",
			html:     `<html><body><p>no product here</p></body></html>`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.html)
			assert.Equal(t, tt.expected, parser.ExtractTitle(doc))
		})
	}
}

func TestExtractPrice(t *testing.T) {
	parser := NewTaobaoParser()

	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "plain numeric price from hashed class",
			html:     `<span class="Price--text--xyz">299.00</span>`,
			expected: "299.00",
		},
		{
			name:     "thousands separator accepted",
			html:     `<span class="Price--text--xyz">1,299.00</span>`,
			expected: "1,299.00",
		},
		{
			name:     "non numeric spans are skipped",
			html:     `<span class="Price--text--a">券后价</span><span class="Price--text--b">88.80</span>`,
			expected: "88.80",
		},
		{
			name:     "falls back to the orange price container",
			html:     `<div style="color: rgb(255, 79, 0); font-weight: bold">￥159.90 起</div>`,
			expected: "159.90",
		},
		{
			name:     "no price present",
			html:     `<div>out of stock</div>`,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.html)
			assert.Equal(t, tt.expected, parser.ExtractPrice(doc))
		})
	}
}

func TestExtractShopName(t *testing.T) {
	parser := NewTaobaoParser()

	t.Run("keeps only the first line", func(t *testing.T) {
		doc := mustParse(t, "<div class=\"ShopHeader--shopName--q1w2\">小米官方旗舰店\n回头率 98%</div>")
		assert.Equal(t, "小米官方旗舰店", parser.ExtractShopName(doc))
	})

	t.Run("missing shop yields empty", func(t *testing.T) {
		doc := mustParse(t, `<div>anonymous page</div>`)
		assert.Equal(t, "", parser.ExtractShopName(doc))
	})
}

func TestCollectTextsCaps(t *testing.T) {
	parser := NewTaobaoParser()

	t.Run("highlights capped at eight", func(t *testing.T) {
		var b strings.Builder
		b.WriteString(`<div class="highlightBlock">`)
		for i := 0; i < 15; i++ {
			fmt.Fprintf(&b, `<div class="highlight"><span>卖点描述 %d</span></div>`, i)
		}
		b.WriteString(`</div>`)

		doc := mustParse(t, b.String())
		highlights := parser.ExtractHighlights(doc)
		assert.Len(t, highlights, 8)
		assert.Equal(t, "卖点描述 0", highlights[0])
	})

	t.Run("services capped at six with dedup", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 9; i++ {
			fmt.Fprintf(&b, `<div class="service"><span>服务保障 %d</span></div>`, i)
		}
		b.WriteString(`<div class="service"><span>服务保障 0</span></div>`)

		doc := mustParse(t, b.String())
		services := parser.ExtractServices(doc)
		assert.Len(t, services, 6)
		assert.Equal(t, "服务保障 0", services[0])
		assert.Equal(t, "服务保障 5", services[5])
	})

	t.Run("promotions respect length bounds", func(t *testing.T) {
		doc := mustParse(t, `
			<div class="promotionItem">ok</div>
			<div class="promotionItem">满300减50</div>
			<div class="promotionItem">`+strings.Repeat("长", 120)+`</div>`)

		promotions := parser.ExtractPromotions(doc)
		assert.Equal(t, []string{"满300减50"}, promotions)
	})
}

func TestParseProductPage(t *testing.T) {
	parser := NewTaobaoParser()

	t.Run("fills fields and leaves gaps empty", func(t *testing.T) {
		product := models.NewProductInfo("https://item.taobao.com/item.htm?id=1", "taobao", "1")
		html := `<html><body>
			<h1>  Premium Wireless Mouse  </h1>
			<div class="ShopHeader--shopName--z9">雷柏旗舰店</div>
		</body></html>`

		err := parser.ParseProductPage(html, product)
		require.NoError(t, err)

		assert.Equal(t, "Premium Wireless Mouse", product.Title)
		assert.Equal(t, "雷柏旗舰店", product.ShopName)
		assert.Equal(t, "", product.Price)
		assert.Empty(t, product.Highlights)
	})
}

func mustParse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}
