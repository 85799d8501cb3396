// Package extract implements the waterfall field extraction pipeline.
//
// A fixed, ordered list of stages each attempt to fill whatever record
// fields are still unset: embedded linked data first, then the embedded
// client-state scan, then DOM fallbacks, then body-text cues. A later
// stage never overwrites a value a higher-priority stage already set,
// and no stage failure aborts the extraction.
package extract

import (
	"go.uber.org/zap"

	"github.com/shopsignal/catalog-crawler/internal/catalog"
)

// Config controls engine behavior.
type Config struct {
	IncludeCreatorVideos bool
	Predicates           Predicates
}

// Engine merges stage contributions into one normalized ProductRecord.
type Engine struct {
	cfg    Config
	stages []Stage
	clock  catalog.Clock
	logger *zap.Logger
}

// NewEngine builds an Engine with the documented stage order.
func NewEngine(cfg Config, clock catalog.Clock, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Predicates = cfg.Predicates.withDefaults()
	return &Engine{
		cfg: cfg,
		stages: []Stage{
			linkedDataStage{},
			newStateScanStage(cfg.Predicates),
			domFallbackStage{},
			textCueStage{},
		},
		clock:  clock,
		logger: logger,
	}
}

// Extract produces exactly one record for the request. It never fails;
// fields no stage could fill stay nil.
func (e *Engine) Extract(req catalog.Request, src Sources) catalog.ProductRecord {
	rec := catalog.ProductRecord{
		URL:        req.URL,
		Region:     req.Region,
		CapturedAt: e.clock.Now(),
	}
	if src.URL == "" {
		src.URL = req.URL
	}

	for _, stage := range e.stages {
		merge(&rec, e.runStage(stage, src))
	}

	rec.Images = dedupImages(rec.Images, maxImages)
	if !e.cfg.IncludeCreatorVideos {
		rec.Creators = nil
	}
	rec.ProductID = deriveProductID(src.URL, src.State, e.cfg.Predicates)
	return rec
}

// runStage contains a stage so a panic on malformed input degrades to
// an empty contribution.
func (e *Engine) runStage(stage Stage, src Sources) (fields Fields) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("extraction stage panicked",
				zap.String("stage", stage.Name()),
				zap.Any("panic", r),
			)
			fields = Fields{}
		}
	}()
	return stage.Extract(src)
}

// merge fills only the record fields still unset. First non-null wins.
func merge(rec *catalog.ProductRecord, f Fields) {
	if rec.Title == nil {
		rec.Title = f.Title
	}
	if rec.Description == nil {
		rec.Description = f.Description
	}
	if rec.Price.Current == nil {
		rec.Price.Current = f.Price.Current
	}
	if rec.Price.Original == nil {
		rec.Price.Original = f.Price.Original
	}
	if rec.Price.Currency == nil {
		rec.Price.Currency = f.Price.Currency
	}
	if rec.Availability == nil {
		rec.Availability = f.Availability
	}
	if rec.Rating == nil {
		rec.Rating = f.Rating
	}
	if rec.ReviewCount == nil {
		rec.ReviewCount = f.ReviewCount
	}
	if rec.Seller.Handle == nil {
		rec.Seller.Handle = f.Seller.Handle
	}
	if rec.Seller.Name == nil {
		rec.Seller.Name = f.Seller.Name
	}
	if rec.Seller.URL == nil {
		rec.Seller.URL = f.Seller.URL
	}
	if len(rec.Images) == 0 {
		rec.Images = f.Images
	}
	if len(rec.Creators) == 0 {
		rec.Creators = f.Creators
	}
}
