package extract

import (
	"encoding/json"
	"strings"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

// Sources are the raw materials one product page yields. Any member may
// be empty; stages contribute whatever they can find.
type Sources struct {
	URL        string
	LinkedData []string // raw <script type="application/ld+json"> payloads
	State      any      // decoded embedded client state, nil when absent
	Headings   []string // heading texts in document order
	BodyText   string
}

// Fields is the partial contribution one stage makes. Nil members mean
// "nothing found"; the engine merges contributions first-non-null-wins.
type Fields struct {
	Title        *string
	Description  *string
	Price        catalog.Price
	Availability *catalog.Availability
	Rating       *float64
	ReviewCount  *int64
	Seller       catalog.Seller
	Images       []string
	Creators     []catalog.CreatorVideo
}

// Stage is one waterfall step. Extract never fails: missing or broken
// data yields an empty contribution.
type Stage interface {
	Name() string
	Extract(src Sources) Fields
}

// linkedDataStage reads embedded schema.org Product objects.
type linkedDataStage struct{}

func (linkedDataStage) Name() string { return "linked-data" }

func (linkedDataStage) Extract(src Sources) Fields {
	for _, blob := range src.LinkedData {
		var decoded any
		if err := json.Unmarshal([]byte(blob), &decoded); err != nil {
			continue
		}
		product, ok := findFirst(decoded, isProductObject)
		if !ok {
			continue
		}
		return fieldsFromProductObject(product)
	}
	return Fields{}
}

func isProductObject(obj map[string]any) bool {
	switch t := obj["@type"].(type) {
	case string:
		return strings.EqualFold(t, "Product")
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.EqualFold(s, "Product") {
				return true
			}
		}
	}
	return false
}

func fieldsFromProductObject(product map[string]any) Fields {
	f := Fields{
		Title:       coerceString(product["name"]),
		Description: coerceString(product["description"]),
	}
	f.Images = appendStringLeaves(nil, product["image"], maxImages)

	if offer, ok := firstObject(product["offers"]); ok {
		f.Price.Current = coercePrice(offer["price"])
		if f.Price.Current == nil {
			f.Price.Current = coercePrice(offer["lowPrice"])
		}
		f.Price.Currency = coerceCurrency(offer["priceCurrency"])
		if raw, ok := offer["availability"].(string); ok {
			f.Availability = mapAvailability(raw)
		}
	}
	if rating, ok := firstObject(product["aggregateRating"]); ok {
		f.Rating = coercePrice(rating["ratingValue"])
		f.ReviewCount = coerceInt(rating["reviewCount"])
	}
	switch brand := product["brand"].(type) {
	case string:
		f.Seller.Name = coerceString(brand)
	case map[string]any:
		f.Seller.Name = coerceString(brand["name"])
	}
	return f
}

// firstObject unwraps a value that may be an object or a list of
// objects, returning the first object found.
func firstObject(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case []any:
		for _, item := range val {
			if obj, ok := item.(map[string]any); ok {
				return obj, true
			}
		}
	}
	return nil, false
}

// stateScanStage hunts through the embedded client-state blob for
// product-, seller- and media-shaped objects using the configured key
// predicates.
type stateScanStage struct {
	pred Predicates

	titleSet  keySet
	priceSet  keySet
	sellerSet keySet
	imageSet  keySet
	videoSet  keySet
}

func newStateScanStage(pred Predicates) *stateScanStage {
	return &stateScanStage{
		pred:      pred,
		titleSet:  newKeySet(pred.TitleKeys),
		priceSet:  newKeySet(pred.PriceKeys),
		sellerSet: newKeySet(pred.SellerMarkerKeys),
		imageSet:  newKeySet(pred.ImageKeys),
		videoSet:  newKeySet(pred.VideoURLKeys),
	}
}

func (s *stateScanStage) Name() string { return "state-scan" }

func (s *stateScanStage) Extract(src Sources) Fields {
	if src.State == nil {
		return Fields{}
	}
	var f Fields

	if product, ok := findFirst(src.State, s.isProductLike); ok {
		if v, ok := lookup(product, s.pred.TitleKeys); ok {
			f.Title = coerceString(v)
		}
		if v, ok := lookup(product, s.pred.PriceKeys); ok {
			f.Price.Current = coercePrice(v)
		}
		if v, ok := lookup(product, s.pred.OriginalPriceKeys); ok {
			f.Price.Original = coercePrice(v)
		}
		if v, ok := lookup(product, s.pred.CurrencyKeys); ok {
			f.Price.Currency = coerceCurrency(v)
		}
	}

	if seller, ok := findFirst(src.State, s.isSellerLike); ok {
		if v, ok := lookup(seller, s.pred.SellerHandleKeys); ok {
			f.Seller.Handle = coerceString(v)
		}
		if v, ok := lookup(seller, s.pred.SellerNameKeys); ok {
			f.Seller.Name = coerceString(v)
		}
		if v, ok := lookup(seller, s.pred.SellerURLKeys); ok {
			f.Seller.URL = coerceString(v)
		}
	}

	f.Images = collectStrings(src.State, s.imageSet.matches, maxImages)
	f.Creators = s.collectCreators(src.State)
	return f
}

func (s *stateScanStage) isProductLike(obj map[string]any) bool {
	return hasAnyKey(obj, s.titleSet) && hasAnyKey(obj, s.priceSet)
}

func (s *stateScanStage) isSellerLike(obj map[string]any) bool {
	return hasAnyKey(obj, s.sellerSet)
}

func (s *stateScanStage) collectCreators(state any) []catalog.CreatorVideo {
	var out []catalog.CreatorVideo
	walkObjects(state, func(obj map[string]any) bool {
		v, ok := lookup(obj, s.pred.VideoURLKeys)
		if !ok {
			return true
		}
		urlVal := coerceString(v)
		if urlVal == nil {
			return true
		}
		video := catalog.CreatorVideo{VideoURL: *urlVal}
		if likes, ok := lookup(obj, s.pred.LikeKeys); ok {
			video.Likes = coerceInt(likes)
		}
		if comments, ok := lookup(obj, s.pred.CommentKeys); ok {
			video.Comments = coerceInt(comments)
		}
		out = append(out, video)
		return true
	})
	return out
}

// domFallbackStage takes the first heading as the title of last resort.
type domFallbackStage struct{}

func (domFallbackStage) Name() string { return "dom-fallback" }

func (domFallbackStage) Extract(src Sources) Fields {
	for _, heading := range src.Headings {
		if title := coerceString(heading); title != nil {
			return Fields{Title: title}
		}
	}
	return Fields{}
}

// textCueStage scans the page text for availability phrases. Negative
// cues win over positive ones so "was in stock, now sold out" pages do
// not read as available.
type textCueStage struct{}

func (textCueStage) Name() string { return "text-cues" }

func (textCueStage) Extract(src Sources) Fields {
	body := strings.ToLower(src.BodyText)
	if body == "" {
		return Fields{}
	}
	switch {
	case strings.Contains(body, "out of stock"), strings.Contains(body, "sold out"):
		return Fields{Availability: catalog.Ptr(catalog.OutOfStock)}
	case strings.Contains(body, "in stock"), strings.Contains(body, "available"):
		return Fields{Availability: catalog.Ptr(catalog.InStock)}
	default:
		return Fields{}
	}
}
