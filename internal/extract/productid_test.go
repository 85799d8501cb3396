package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveProductID_URLPatterns(t *testing.T) {
	t.Parallel()

	pred := DefaultPredicates()
	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "product segment", url: "https://shop.example.com/product/12345", want: "12345"},
		{name: "plural products", url: "https://shop.example.com/products/SKU-99x", want: "SKU-99x"},
		{name: "item segment", url: "https://shop.example.com/item/778899?ref=home", want: "778899"},
		{name: "dp segment", url: "https://shop.example.com/dp/B0ABCDEF", want: "B0ABCDEF"},
		{name: "trailing numeric id", url: "https://shop.example.com/gadgets/123456.html", want: "123456"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, deriveProductID(tc.url, nil, pred))
		})
	}
}

func TestDeriveProductID_StateFallback(t *testing.T) {
	t.Parallel()

	pred := DefaultPredicates()
	state := map[string]any{
		"detail": map[string]any{"product_id": "998877", "title": "x"},
	}
	require.Equal(t, "998877", deriveProductID("https://shop.example.com/view", state, pred))

	numeric := map[string]any{"item_id": float64(4242)}
	require.Equal(t, "4242", deriveProductID("https://shop.example.com/view", numeric, pred))
}

func TestDeriveProductID_SlugFallbackNeverEmpty(t *testing.T) {
	t.Parallel()

	pred := DefaultPredicates()
	require.Equal(t, "gadgets-widget-pro", deriveProductID("https://shop.example.com/gadgets/Widget-Pro", nil, pred))
	require.NotEmpty(t, deriveProductID("https://shop.example.com/", nil, pred))
	require.NotEmpty(t, deriveProductID("::not a url::", nil, pred))
}
