package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

// SourceOptions configure how raw sources are pulled off a page.
type SourceOptions struct {
	// StateExpression is a JS expression evaluated in the page to obtain
	// the embedded client state. Ignored when the session cannot run
	// scripts.
	StateExpression string
	// StateSelector locates an inline JSON script carrying the client
	// state, used when script evaluation yields nothing.
	StateSelector string
}

// CollectSources pulls the raw extraction inputs from a navigated
// session. Only a failure to obtain the document itself is an error;
// every optional source degrades to absent.
func CollectSources(ctx context.Context, sess catalog.Session, pageURL string, opts SourceOptions, logger *zap.Logger) (Sources, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	html, err := sess.HTML(ctx)
	if err != nil {
		return Sources{}, fmt.Errorf("read page html: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Sources{}, fmt.Errorf("parse page html: %w", err)
	}

	src := Sources{URL: pageURL}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			src.LinkedData = append(src.LinkedData, text)
		}
	})

	src.State = collectState(ctx, sess, doc, opts, logger)

	doc.Find("h1").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			src.Headings = append(src.Headings, text)
		}
	})
	if len(src.Headings) == 0 {
		doc.Find("h2").Each(func(_ int, sel *goquery.Selection) {
			if text := strings.TrimSpace(sel.Text()); text != "" {
				src.Headings = append(src.Headings, text)
			}
		})
	}

	src.BodyText = doc.Find("body").Text()
	return src, nil
}

func collectState(ctx context.Context, sess catalog.Session, doc *goquery.Document, opts SourceOptions, logger *zap.Logger) any {
	if opts.StateExpression != "" {
		raw, err := sess.EvaluateScript(ctx, opts.StateExpression)
		switch {
		case err != nil:
			logger.Debug("state expression evaluation unavailable", zap.Error(err))
		case len(raw) > 0 && !bytes.Equal(raw, []byte("null")):
			var decoded any
			if err := json.Unmarshal(raw, &decoded); err == nil {
				return decoded
			}
		}
	}

	if opts.StateSelector == "" {
		return nil
	}
	text := strings.TrimSpace(doc.Find(opts.StateSelector).First().Text())
	if text == "" {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		logger.Debug("inline state blob is not valid JSON", zap.Error(err))
		return nil
	}
	return decoded
}
