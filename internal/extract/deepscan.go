package extract

import (
	"sort"
	"strings"
)

// deepscan walks loosely-structured decoded JSON (maps, slices, scalars)
// so stages can hunt for product-shaped objects without a fixed schema.
// Traversal is depth-first with map keys visited in sorted order, which
// keeps "first match" deterministic across runs.

// walkObjects visits every map node reachable from v. Returning false
// from visit stops the walk.
func walkObjects(v any, visit func(obj map[string]any) bool) bool {
	switch node := v.(type) {
	case map[string]any:
		if !visit(node) {
			return false
		}
		for _, key := range sortedKeys(node) {
			if !walkObjects(node[key], visit) {
				return false
			}
		}
	case []any:
		for _, item := range node {
			if !walkObjects(item, visit) {
				return false
			}
		}
	}
	return true
}

// findFirst returns the first map node satisfying pred.
func findFirst(v any, pred func(obj map[string]any) bool) (map[string]any, bool) {
	var found map[string]any
	walkObjects(v, func(obj map[string]any) bool {
		if pred(obj) {
			found = obj
			return false
		}
		return true
	})
	return found, found != nil
}

// collectStrings gathers string values stored under keys accepted by
// keyMatch, anywhere in the tree, until max values are collected.
// Values nested under a matched key (lists, {url: ...} objects) are
// flattened into their string leaves.
func collectStrings(v any, keyMatch func(string) bool, max int) []string {
	var out []string
	walkObjects(v, func(obj map[string]any) bool {
		for _, key := range sortedKeys(obj) {
			if !keyMatch(key) {
				continue
			}
			out = appendStringLeaves(out, obj[key], max)
			if max > 0 && len(out) >= max {
				return false
			}
		}
		return true
	})
	return out
}

func appendStringLeaves(dst []string, v any, max int) []string {
	if max > 0 && len(dst) >= max {
		return dst
	}
	switch leaf := v.(type) {
	case string:
		if s := strings.TrimSpace(leaf); s != "" {
			dst = append(dst, s)
		}
	case []any:
		for _, item := range leaf {
			dst = appendStringLeaves(dst, item, max)
			if max > 0 && len(dst) >= max {
				return dst
			}
		}
	case map[string]any:
		for _, key := range sortedKeys(leaf) {
			dst = appendStringLeaves(dst, leaf[key], max)
			if max > 0 && len(dst) >= max {
				return dst
			}
		}
	}
	return dst
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// normalizeKey lowercases a key and strips separators so "price_val",
// "priceVal" and "PriceVal" all compare equal.
func normalizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r == '_' || r == '-' || r == ' ':
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// keySet is a normalized membership set over predicate key lists.
type keySet map[string]struct{}

func newKeySet(keys []string) keySet {
	set := make(keySet, len(keys))
	for _, k := range keys {
		set[normalizeKey(k)] = struct{}{}
	}
	return set
}

func (s keySet) matches(key string) bool {
	_, ok := s[normalizeKey(key)]
	return ok
}

// lookup returns the value of the first object key (in predicate list
// order) present in obj.
func lookup(obj map[string]any, keys []string) (any, bool) {
	normalized := make(map[string]any, len(obj))
	for k, v := range obj {
		norm := normalizeKey(k)
		if _, exists := normalized[norm]; !exists {
			normalized[norm] = v
		}
	}
	for _, key := range keys {
		if v, ok := normalized[normalizeKey(key)]; ok {
			return v, true
		}
	}
	return nil, false
}

func hasAnyKey(obj map[string]any, set keySet) bool {
	for k := range obj {
		if set.matches(k) {
			return true
		}
	}
	return false
}
