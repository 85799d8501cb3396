package static

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

const listingPage = `<html><body>
<h1>Kitchen</h1>
<a class="product-card" href="/products/mug">Ceramic Mug</a>
<a class="product-card" href="/products/plate">Dinner Plate</a>
<a href="/about">About</a>
</body></html>`

func newTestBrowser(t *testing.T) (*httptest.Server, catalog.Session) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(listingPage))
	}))
	t.Cleanup(ts.Close)

	b := New(Config{UserAgent: "test-agent/1.0"})
	sess, err := b.NewSession(context.Background(), catalog.SessionOptions{AcceptLanguage: "en-GB"})
	require.NoError(t, err)
	return ts, sess
}

func TestNavigateAndHTML(t *testing.T) {
	t.Parallel()

	ts, sess := newTestBrowser(t)
	require.NoError(t, sess.Navigate(context.Background(), ts.URL+"/c/kitchen"))

	html, err := sess.HTML(context.Background())
	require.NoError(t, err)
	require.Contains(t, html, "Ceramic Mug")
}

func TestQueryAllReturnsTextAndAttrs(t *testing.T) {
	t.Parallel()

	ts, sess := newTestBrowser(t)
	require.NoError(t, sess.Navigate(context.Background(), ts.URL+"/c/kitchen"))

	elements, err := sess.QueryAll(context.Background(), "a.product-card")
	require.NoError(t, err)
	require.Len(t, elements, 2)
	require.Equal(t, "Ceramic Mug", elements[0].Text)

	href, ok := elements[0].Attr("href")
	require.True(t, ok)
	require.Equal(t, "/products/mug", href)
}

func TestNavigateNotFoundIsError(t *testing.T) {
	t.Parallel()

	ts, sess := newTestBrowser(t)
	require.Error(t, sess.Navigate(context.Background(), ts.URL+"/missing"))
}

func TestCallsBeforeNavigateFail(t *testing.T) {
	t.Parallel()

	_, sess := newTestBrowser(t)

	_, err := sess.HTML(context.Background())
	require.Error(t, err)
	_, err = sess.QueryAll(context.Background(), "a")
	require.Error(t, err)
}

func TestUnsupportedCapabilities(t *testing.T) {
	t.Parallel()

	ts, sess := newTestBrowser(t)
	require.NoError(t, sess.Navigate(context.Background(), ts.URL))

	_, err := sess.EvaluateScript(context.Background(), "1+1")
	require.Error(t, err)
	_, err = sess.Screenshot(context.Background())
	require.Error(t, err)
}
