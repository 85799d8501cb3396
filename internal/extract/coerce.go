package extract

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

// maxImages caps the image list carried on a record.
const maxImages = 10

var decimalPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// coercePrice turns a raw price value into a float. Numeric values pass
// through; strings are scanned for the first decimal number after
// thousands separators are stripped. Anything else yields nil.
func coercePrice(v any) *float64 {
	switch val := v.(type) {
	case float64:
		return catalog.Ptr(val)
	case int:
		return catalog.Ptr(float64(val))
	case int64:
		return catalog.Ptr(float64(val))
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return catalog.Ptr(f)
		}
		return nil
	case string:
		cleaned := strings.ReplaceAll(val, ",", "")
		match := decimalPattern.FindString(cleaned)
		if match == "" {
			return nil
		}
		f, err := strconv.ParseFloat(match, 64)
		if err != nil {
			return nil
		}
		return catalog.Ptr(f)
	default:
		return nil
	}
}

// coerceCurrency trims and uppercases a currency code.
func coerceCurrency(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	return catalog.Ptr(s)
}

// coerceString returns a trimmed non-empty string value.
func coerceString(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return catalog.Ptr(s)
}

// coerceInt accepts numeric values and digit strings.
func coerceInt(v any) *int64 {
	switch val := v.(type) {
	case float64:
		return catalog.Ptr(int64(val))
	case int:
		return catalog.Ptr(int64(val))
	case int64:
		return catalog.Ptr(val)
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return catalog.Ptr(n)
		}
		return nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil
		}
		return catalog.Ptr(n)
	default:
		return nil
	}
}

// mapAvailability maps a schema.org-style availability token onto the
// two-valued state. The comparison ignores case and separators so
// "https://schema.org/InStock", "IN_STOCK" and "instock" all match.
func mapAvailability(raw string) *catalog.Availability {
	normalized := normalizeKey(raw)
	switch {
	case strings.Contains(normalized, "outofstock"):
		return catalog.Ptr(catalog.OutOfStock)
	case strings.Contains(normalized, "instock"):
		return catalog.Ptr(catalog.InStock)
	default:
		return nil
	}
}

// dedupImages keeps the first occurrence of each URL, capped at max.
func dedupImages(urls []string, max int) []string {
	if max <= 0 {
		max = maxImages
	}
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
		if len(out) >= max {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
