// Package catalog defines core types shared across subsystems.
package catalog

import (
	"strings"
	"time"
)

// Label tags a frontier request with the handler that must process it.
type Label string

// Request labels routed by the worker pool.
const (
	LabelProduct  Label = "PRODUCT"
	LabelSeller   Label = "SELLER"
	LabelCategory Label = "CATEGORY"
	LabelKeyword  Label = "KEYWORD"
)

// ParseLabel maps a raw tag to a known Label. Unknown or empty tags
// default to LabelProduct.
func ParseLabel(raw string) Label {
	switch Label(strings.ToUpper(strings.TrimSpace(raw))) {
	case LabelSeller:
		return LabelSeller
	case LabelCategory:
		return LabelCategory
	case LabelKeyword:
		return LabelKeyword
	default:
		return LabelProduct
	}
}

// IsListing reports whether the label is handled by the listing handler.
func (l Label) IsListing() bool {
	switch l {
	case LabelSeller, LabelCategory, LabelKeyword:
		return true
	default:
		return false
	}
}

// Request is a unit of crawl work held by the frontier. UniqueKey is the
// dedup identity; Attempt counts handler invocations so far.
type Request struct {
	URL       string `json:"url"`
	UniqueKey string `json:"unique_key"`
	Label     Label  `json:"label"`
	SourceKey string `json:"source_key,omitempty"`
	Region    string `json:"region,omitempty"`
	Attempt   int    `json:"attempt"`
}

// Availability is the two-valued stock state. Absence of a signal is
// represented as a nil *Availability, never a third literal.
type Availability string

// Availability values.
const (
	InStock    Availability = "IN_STOCK"
	OutOfStock Availability = "OUT_OF_STOCK"
)

// Seller holds whatever seller identity the extraction surfaced.
type Seller struct {
	Handle *string `json:"handle"`
	Name   *string `json:"name"`
	URL    *string `json:"url"`
}

// Price carries the current and original price plus currency. Values are
// numeric or nil, never strings.
type Price struct {
	Current  *float64 `json:"current"`
	Original *float64 `json:"original"`
	Currency *string  `json:"currency"`
}

// CreatorVideo is one creator-content reference attached to a product.
type CreatorVideo struct {
	VideoURL string `json:"video_url"`
	Likes    *int64 `json:"likes"`
	Comments *int64 `json:"comments"`
}

// ProductRecord is the normalized output of one product task.
type ProductRecord struct {
	ProductID       string         `json:"product_id"`
	URL             string         `json:"url"`
	Region          string         `json:"region,omitempty"`
	CapturedAt      time.Time      `json:"captured_at"`
	Title           *string        `json:"title"`
	Description     *string        `json:"description"`
	Seller          Seller         `json:"seller"`
	Price           Price          `json:"price"`
	Availability    *Availability  `json:"availability"`
	Rating          *float64       `json:"rating"`
	ReviewCount     *int64         `json:"review_count"`
	Images          []string       `json:"images,omitempty"`
	Creators        []CreatorVideo `json:"creators,omitempty"`
	ScreenshotKey   *string        `json:"screenshot_key,omitempty"`
	DetectedChanges ChangeSet      `json:"detected_changes"`
	RunID           string         `json:"run_id,omitempty"`
}

// PriceChange records a price.current transition between observations.
type PriceChange struct {
	From *float64 `json:"from"`
	To   *float64 `json:"to"`
}

// AvailabilityChange records an availability transition between observations.
type AvailabilityChange struct {
	From *Availability `json:"from"`
	To   *Availability `json:"to"`
}

// ChangeSet is the differ output attached to a record. An all-zero
// ChangeSet means nothing changed since the prior snapshot.
type ChangeSet struct {
	FirstSeen    bool                `json:"first_seen,omitempty"`
	Price        *PriceChange        `json:"price,omitempty"`
	Availability *AvailabilityChange `json:"availability,omitempty"`
}

// Empty reports whether no change was detected.
func (c ChangeSet) Empty() bool {
	return !c.FirstSeen && c.Price == nil && c.Availability == nil
}

// SnapshotPrice is the compact price projection kept in a snapshot.
type SnapshotPrice struct {
	Current  *float64 `json:"current"`
	Currency *string  `json:"currency"`
}

// Snapshot is the single most-recent compact projection of a product,
// overwritten on every product task run.
type Snapshot struct {
	ProductID    string        `json:"product_id"`
	URL          string        `json:"url"`
	Title        *string       `json:"title"`
	Price        SnapshotPrice `json:"price"`
	Availability *Availability `json:"availability"`
	LastSeenAt   time.Time     `json:"last_seen_at"`
}

// SnapshotOf projects a record into its snapshot form.
func SnapshotOf(rec ProductRecord, seenAt time.Time) Snapshot {
	return Snapshot{
		ProductID:    rec.ProductID,
		URL:          rec.URL,
		Title:        rec.Title,
		Price:        SnapshotPrice{Current: rec.Price.Current, Currency: rec.Price.Currency},
		Availability: rec.Availability,
		LastSeenAt:   seenAt,
	}
}

// Ptr returns a pointer to v. Extraction fills record fields with
// pointers so that "absent" stays distinguishable from zero values.
func Ptr[T any](v T) *T {
	return &v
}
