package extract

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

type fakeSession struct {
	html      string
	htmlErr   error
	evalValue json.RawMessage
	evalErr   error
}

func (s *fakeSession) Navigate(context.Context, string) error { return nil }

func (s *fakeSession) HTML(context.Context) (string, error) { return s.html, s.htmlErr }

func (s *fakeSession) EvaluateScript(context.Context, string) (json.RawMessage, error) {
	return s.evalValue, s.evalErr
}

func (s *fakeSession) QueryAll(context.Context, string) ([]catalog.Element, error) {
	return nil, nil
}

func (s *fakeSession) Screenshot(context.Context) ([]byte, error) { return nil, nil }

func (s *fakeSession) Close() error { return nil }

const samplePage = `<!doctype html>
<html><head>
<script type="application/ld+json">{"@type": "Product", "name": "Page Product"}</script>
<script id="__APP_STATE__" type="application/json">{"item": {"title": "State Product", "price": 10}}</script>
</head><body>
<h1>Visible Heading</h1>
<p>Currently in stock and shipping.</p>
</body></html>`

func TestCollectSources_FromDocument(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{html: samplePage, evalErr: errors.New("scripts unsupported")}
	src, err := CollectSources(context.Background(), sess, "https://shop.example.com/product/5", SourceOptions{
		StateExpression: "window.__APP_STATE__",
		StateSelector:   `script#__APP_STATE__`,
	}, nil)
	require.NoError(t, err)

	require.Len(t, src.LinkedData, 1)
	require.Contains(t, src.LinkedData[0], "Page Product")
	require.Equal(t, []string{"Visible Heading"}, src.Headings)
	require.Contains(t, src.BodyText, "in stock")

	// Script evaluation failed, so the inline state script supplied the blob.
	state, ok := src.State.(map[string]any)
	require.True(t, ok)
	item, ok := state["item"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "State Product", item["title"])
}

func TestCollectSources_PrefersEvaluatedState(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{
		html:      samplePage,
		evalValue: json.RawMessage(`{"item": {"title": "Evaluated", "price": 1}}`),
	}
	src, err := CollectSources(context.Background(), sess, "https://shop.example.com/product/5", SourceOptions{
		StateExpression: "window.__APP_STATE__",
		StateSelector:   `script#__APP_STATE__`,
	}, nil)
	require.NoError(t, err)

	state := src.State.(map[string]any)
	item := state["item"].(map[string]any)
	require.Equal(t, "Evaluated", item["title"])
}

func TestCollectSources_HTMLFailureIsAnError(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{htmlErr: errors.New("session gone")}
	_, err := CollectSources(context.Background(), sess, "https://shop.example.com/product/5", SourceOptions{}, nil)
	require.Error(t, err)
}

func TestCollectSources_HeadingFallbackToH2(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{html: `<html><body><h2>Second Level</h2></body></html>`}
	src, err := CollectSources(context.Background(), sess, "https://shop.example.com/p/1", SourceOptions{}, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Second Level"}, src.Headings)
}
