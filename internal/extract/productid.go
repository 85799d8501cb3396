package extract

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
)

var (
	productPathPattern = regexp.MustCompile(`(?i)/(?:products?|items?|detail|dp|p)/([A-Za-z0-9][A-Za-z0-9._-]*)`)
	trailingIDPattern  = regexp.MustCompile(`/(\d{4,})(?:\.html?)?/?$`)
	slugPattern        = regexp.MustCompile(`[^a-z0-9]+`)
)

// deriveProductID resolves the never-null product identity: a URL path
// pattern first, then an ID-like key scanned out of the embedded state,
// then a slugified fallback of the URL path.
func deriveProductID(rawURL string, state any, pred Predicates) string {
	path := rawURL
	if parsed, err := url.Parse(rawURL); err == nil {
		path = parsed.Path
	}

	if m := productPathPattern.FindStringSubmatch(path); m != nil {
		return m[1]
	}
	if m := trailingIDPattern.FindStringSubmatch(path); m != nil {
		return m[1]
	}

	if id := scanStateForID(state, pred); id != "" {
		return id
	}

	return slugify(path)
}

func scanStateForID(state any, pred Predicates) string {
	if state == nil {
		return ""
	}
	idSet := newKeySet(pred.ProductIDKeys)
	obj, ok := findFirst(state, func(obj map[string]any) bool {
		return hasAnyKey(obj, idSet)
	})
	if !ok {
		return ""
	}
	v, _ := lookup(obj, pred.ProductIDKeys)
	switch id := v.(type) {
	case string:
		return strings.TrimSpace(id)
	case float64:
		return strings.TrimSuffix(strings.TrimSuffix(jsonNumberString(id), ".0"), ".")
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

func jsonNumberString(f float64) string {
	data, err := json.Marshal(f)
	if err != nil {
		return ""
	}
	return string(data)
}

func slugify(path string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(path), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "product"
	}
	return slug
}
