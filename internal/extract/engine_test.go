package extract

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

type fakeClock struct{ now time.Time }

func (c fakeClock) Now() time.Time { return c.now }

func decodeState(t *testing.T, blob string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(blob), &v))
	return v
}

const productLD = `{
	"@context": "https://schema.org",
	"@type": "Product",
	"name": "Trail Jacket",
	"description": "Windproof shell.",
	"image": ["https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"],
	"brand": {"@type": "Brand", "name": "Northline"},
	"aggregateRating": {"ratingValue": "4.6", "reviewCount": 128},
	"offers": {"price": "89.90", "priceCurrency": "usd", "availability": "https://schema.org/InStock"}
}`

func newTestEngine(include bool) *Engine {
	return NewEngine(
		Config{IncludeCreatorVideos: include},
		fakeClock{now: time.Unix(1700000000, 0).UTC()},
		nil,
	)
}

func TestEngine_LinkedDataFillsRecord(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(false)
	req := catalog.Request{URL: "https://shop.example.com/product/12345", Region: "US"}

	rec := engine.Extract(req, Sources{LinkedData: []string{productLD}})

	require.Equal(t, "12345", rec.ProductID)
	require.Equal(t, "US", rec.Region)
	require.Equal(t, time.Unix(1700000000, 0).UTC(), rec.CapturedAt)
	require.NotNil(t, rec.Title)
	require.Equal(t, "Trail Jacket", *rec.Title)
	require.NotNil(t, rec.Price.Current)
	require.Equal(t, 89.90, *rec.Price.Current)
	require.NotNil(t, rec.Price.Currency)
	require.Equal(t, "USD", *rec.Price.Currency)
	require.NotNil(t, rec.Availability)
	require.Equal(t, catalog.InStock, *rec.Availability)
	require.NotNil(t, rec.Rating)
	require.Equal(t, 4.6, *rec.Rating)
	require.NotNil(t, rec.ReviewCount)
	require.EqualValues(t, 128, *rec.ReviewCount)
	require.NotNil(t, rec.Seller.Name)
	require.Equal(t, "Northline", *rec.Seller.Name)
	require.Equal(t, []string{"https://cdn.example.com/a.jpg", "https://cdn.example.com/b.jpg"}, rec.Images)
}

func TestEngine_WaterfallPrecedence(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(false)
	src := Sources{
		LinkedData: []string{`{"@type": "Product", "name": "X"}`},
		State:      decodeState(t, `{"product": {"title": "State Title", "price": "12.00"}}`),
		Headings:   []string{"Heading Title"},
	}

	rec := engine.Extract(catalog.Request{URL: "https://shop.example.com/product/1"}, src)

	// Linked data set the title; later stages must not overwrite it.
	require.NotNil(t, rec.Title)
	require.Equal(t, "X", *rec.Title)
	// Price was left open by linked data, so the state scan fills it.
	require.NotNil(t, rec.Price.Current)
	require.Equal(t, 12.0, *rec.Price.Current)
}

func TestEngine_StateScanContribution(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(true)
	state := decodeState(t, `{
		"page": {
			"item": {
				"title": "Desk Lamp",
				"sale_price": "1,299.00",
				"original_price": 1499,
				"currency": " eur ",
				"image_url": "https://cdn.example.com/lamp.jpg"
			},
			"shop": {"shop_name": "Brightline", "nickname": "brightline-store", "shop_url": "https://shop.example.com/brightline"},
			"feed": [
				{"video_url": "https://v.example.com/1.mp4", "like_count": 42, "comment_count": 7},
				{"video_url": "https://v.example.com/2.mp4"}
			]
		}
	}`)

	rec := engine.Extract(catalog.Request{URL: "https://shop.example.com/product/777"}, Sources{State: state})

	require.NotNil(t, rec.Title)
	require.Equal(t, "Desk Lamp", *rec.Title)
	require.NotNil(t, rec.Price.Current)
	require.Equal(t, 1299.0, *rec.Price.Current)
	require.NotNil(t, rec.Price.Original)
	require.Equal(t, 1499.0, *rec.Price.Original)
	require.NotNil(t, rec.Price.Currency)
	require.Equal(t, "EUR", *rec.Price.Currency)
	require.NotNil(t, rec.Seller.Name)
	require.Equal(t, "Brightline", *rec.Seller.Name)
	require.NotNil(t, rec.Seller.Handle)
	require.Equal(t, "brightline-store", *rec.Seller.Handle)
	require.Contains(t, rec.Images, "https://cdn.example.com/lamp.jpg")
	require.Len(t, rec.Creators, 2)
	require.Equal(t, "https://v.example.com/1.mp4", rec.Creators[0].VideoURL)
	require.NotNil(t, rec.Creators[0].Likes)
	require.EqualValues(t, 42, *rec.Creators[0].Likes)
	require.Nil(t, rec.Creators[1].Likes)
}

func TestEngine_CreatorVideosGatedByConfig(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(false)
	state := decodeState(t, `{"feed": [{"video_url": "https://v.example.com/1.mp4"}]}`)

	rec := engine.Extract(catalog.Request{URL: "https://shop.example.com/product/1"}, Sources{State: state})
	require.Nil(t, rec.Creators)
}

func TestEngine_DOMAndTextFallbacks(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(false)
	src := Sources{
		Headings: []string{"  ", "Fallback Title"},
		BodyText: "Hurry! This item is Sold Out right now.",
	}

	rec := engine.Extract(catalog.Request{URL: "https://shop.example.com/product/2"}, src)

	require.NotNil(t, rec.Title)
	require.Equal(t, "Fallback Title", *rec.Title)
	require.NotNil(t, rec.Availability)
	require.Equal(t, catalog.OutOfStock, *rec.Availability)
}

func TestEngine_NoSignalLeavesFieldsNull(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(false)
	rec := engine.Extract(catalog.Request{URL: "https://shop.example.com/gadgets/widget-pro"}, Sources{})

	require.NotEmpty(t, rec.ProductID)
	require.Nil(t, rec.Title)
	require.Nil(t, rec.Price.Current)
	require.Nil(t, rec.Availability)
	require.Nil(t, rec.Rating)
	require.Empty(t, rec.Images)
}

func TestEngine_MalformedSourcesNeverFail(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(false)
	src := Sources{
		LinkedData: []string{"{not json", `{"@type": "Product", "offers": 12}`},
		State:      decodeState(t, `{"weird": [null, 1, {"title": 3, "price": {}}]}`),
	}

	rec := engine.Extract(catalog.Request{URL: "https://shop.example.com/product/3"}, src)
	require.Equal(t, "3", rec.ProductID)
	require.Nil(t, rec.Price.Current)
}

func TestEngine_ImageDeduplicationAndCap(t *testing.T) {
	t.Parallel()

	images := make([]any, 0, 30)
	for i := 0; i < 15; i++ {
		images = append(images, "https://cdn.example.com/img.jpg")
	}
	for i := 0; i < 15; i++ {
		images = append(images, map[string]any{"url": jsonNumberString(float64(i)) + ".jpg"})
	}
	state := map[string]any{
		"gallery": map[string]any{"images": images},
	}

	engine := newTestEngine(false)
	rec := engine.Extract(catalog.Request{URL: "https://shop.example.com/product/4"}, Sources{State: state})

	require.LessOrEqual(t, len(rec.Images), maxImages)
	require.Equal(t, "https://cdn.example.com/img.jpg", rec.Images[0])
	counts := map[string]int{}
	for _, img := range rec.Images {
		counts[img]++
		require.Equal(t, 1, counts[img])
	}
}
