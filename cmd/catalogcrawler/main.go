// Package main wires together the catalog crawler binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/shopsignal/catalog-crawler/internal/api"
	browserchromedp "github.com/shopsignal/catalog-crawler/internal/browser/chromedp"
	browserstatic "github.com/shopsignal/catalog-crawler/internal/browser/static"
	"github.com/shopsignal/catalog-crawler/internal/catalog"
	"github.com/shopsignal/catalog-crawler/internal/clock/system"
	"github.com/shopsignal/catalog-crawler/internal/config"
	datasetjsonl "github.com/shopsignal/catalog-crawler/internal/dataset/jsonl"
	"github.com/shopsignal/catalog-crawler/internal/extract"
	frontiermem "github.com/shopsignal/catalog-crawler/internal/frontier/memory"
	"github.com/shopsignal/catalog-crawler/internal/handler"
	"github.com/shopsignal/catalog-crawler/internal/id/uuid"
	kvgcs "github.com/shopsignal/catalog-crawler/internal/kv/gcs"
	kvlocal "github.com/shopsignal/catalog-crawler/internal/kv/local"
	kvmem "github.com/shopsignal/catalog-crawler/internal/kv/memory"
	kvpostgres "github.com/shopsignal/catalog-crawler/internal/kv/postgres"
	"github.com/shopsignal/catalog-crawler/internal/limits"
	"github.com/shopsignal/catalog-crawler/internal/logging"
	"github.com/shopsignal/catalog-crawler/internal/metrics"
	"github.com/shopsignal/catalog-crawler/internal/notify"
	"github.com/shopsignal/catalog-crawler/internal/pool"
	"github.com/shopsignal/catalog-crawler/internal/proxy"
	"github.com/shopsignal/catalog-crawler/internal/snapshot"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := run(cfg, logger); err != nil {
		logger.Fatal("crawler exited with error", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	runID, err := uuid.New().NewID()
	if err != nil {
		return fmt.Errorf("generate run id: %w", err)
	}
	logger = logger.With(zap.String("run_id", runID))
	clk := system.New()

	store, cleanupStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanupStore()

	dataset, err := datasetjsonl.Open(cfg.Dataset.Path)
	if err != nil {
		return err
	}
	defer dataset.Close() //nolint:errcheck

	browser, err := openBrowser(cfg)
	if err != nil {
		return err
	}
	defer browser.Close()

	sinks, cleanupSinks, err := buildSinks(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanupSinks()

	frontier := frontiermem.New()
	tracker := limits.NewTracker(limits.Config{
		MaxProducts:            cfg.Limits.MaxProducts,
		MaxProductsPerSeller:   cfg.Limits.MaxProductsPerSeller,
		MaxProductsPerCategory: cfg.Limits.MaxProductsPerCategory,
	})
	engine := extract.NewEngine(extract.Config{IncludeCreatorVideos: cfg.IncludeCreatorVideos}, clk, logger)
	differ := snapshot.NewDiffer(store, clk, logger)
	notifier := notify.NewDispatcher(notify.Config{
		Enabled:      cfg.Notify.Enabled,
		OnlyOnChange: cfg.Notify.OnlyOnChange,
		SinkTimeout:  cfg.SinkTimeout(),
	}, sinks, logger)

	productHandler := handler.NewProduct(
		handler.ProductConfig{
			CaptureScreenshots: cfg.CaptureScreenshots,
			SourceOptions: extract.SourceOptions{
				StateExpression: cfg.Selectors.StateExpression,
				StateSelector:   cfg.Selectors.StateSelector,
			},
		},
		engine, differ, dataset, store, notifier, runID, logger,
	)
	listingHandler := handler.NewListing(
		handler.ListingConfig{ProductLinkSelector: cfg.Selectors.ProductLinks},
		frontier, tracker, logger,
	)

	workers, err := pool.New(
		pool.Config{
			Workers:     cfg.MaxConcurrency,
			MaxAttempts: cfg.MaxAttempts,
			Session: catalog.SessionOptions{
				AcceptLanguage: cfg.AcceptLanguage,
				UserAgent:      cfg.UserAgent,
			},
		},
		frontier, browser, proxy.NewRoundRobin(cfg.Proxy.URLs),
		productHandler, listingHandler, logger,
	)
	if err != nil {
		return err
	}

	seeded, err := seedFrontier(ctx, cfg, frontier)
	if err != nil {
		return err
	}
	if seeded == 0 {
		return fmt.Errorf("no seeds configured: set productUrls, sellerHandles, keywords, or categoryUrls")
	}
	logger.Info("crawl starting",
		zap.Int("seeds", seeded),
		zap.Int("workers", cfg.MaxConcurrency),
		zap.Bool("headless", cfg.Headless.Enabled),
	)

	statusSrv := api.NewServer(workers, tracker, func() (int, int, int) {
		stats := frontier.Snapshot()
		return stats.Pending, stats.InFlight, stats.Seen
	}, runID, logger)
	srvCtx, srvCancel := context.WithCancel(ctx)
	defer srvCancel()
	srvDone := make(chan error, 1)
	go func() {
		srvDone <- statusSrv.Run(srvCtx, cfg.Server.Port)
	}()

	runErr := workers.Run(ctx)

	stats := workers.Stats()
	logger.Info("crawl finished",
		zap.Int("handled", stats.Handled),
		zap.Int("retried", stats.Retried),
		zap.Int("failed", stats.Failed),
		zap.Int("products_reserved", tracker.Snapshot().TotalReserved),
	)
	for _, failed := range workers.Failed() {
		logger.Warn("request gave up",
			zap.String("url", failed.Request.URL),
			zap.String("label", string(failed.Request.Label)),
			zap.String("error", failed.Error),
		)
	}

	srvCancel()
	select {
	case err := <-srvDone:
		if err != nil && ctx.Err() == nil {
			logger.Warn("status server stopped with error", zap.Error(err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("status server did not stop in time")
	}

	return runErr
}

func openStore(ctx context.Context, cfg config.Config) (catalog.KeyValueStore, func(), error) {
	switch cfg.Storage.Backend {
	case "local":
		store, err := kvlocal.New(kvlocal.Config{BaseDir: cfg.Storage.BaseDir})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "gcs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("create storage client: %w", err)
		}
		store, err := kvgcs.New(client, kvgcs.Config{
			Bucket: cfg.Storage.GCSBucket,
			Prefix: cfg.Storage.GCSPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { client.Close() }, nil //nolint:errcheck
	case "postgres":
		store, err := kvpostgres.New(ctx, kvpostgres.Config{
			DSN:   cfg.Storage.DSN,
			Table: cfg.Storage.Table,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return kvmem.New(), func() {}, nil
	}
}

func openBrowser(cfg config.Config) (catalog.Browser, error) {
	if cfg.Headless.Enabled {
		return browserchromedp.New(browserchromedp.Config{
			UserAgent:         cfg.UserAgent,
			NavigationTimeout: cfg.NavigationTimeout(),
			MaxParallel:       cfg.Headless.MaxParallel,
		})
	}
	return browserstatic.New(browserstatic.Config{
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.NavigationTimeout(),
	}), nil
}

func buildSinks(ctx context.Context, cfg config.Config, logger *zap.Logger) ([]notify.Sink, func(), error) {
	var sinks []notify.Sink
	cleanup := func() {}

	client := &http.Client{Timeout: cfg.SinkTimeout()}
	for _, sc := range cfg.Notify.Sinks {
		switch sc.Type {
		case "webhook":
			sinks = append(sinks, notify.NewWebhookSink(sc.URL, client))
		case "chat":
			sinks = append(sinks, notify.NewChatSink(sc.URL, client))
		}
	}

	if cfg.PubSub.ProjectID != "" && cfg.PubSub.TopicName != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			return nil, nil, fmt.Errorf("create pubsub client: %w", err)
		}
		topic := psClient.Topic(cfg.PubSub.TopicName)
		sinks = append(sinks, notify.NewPubSubSink(topic))
		cleanup = func() {
			topic.Stop()
			psClient.Close() //nolint:errcheck
		}
		logger.Info("pubsub sink enabled",
			zap.String("project", cfg.PubSub.ProjectID),
			zap.String("topic", cfg.PubSub.TopicName),
		)
	}

	return sinks, cleanup, nil
}

// seedFrontier turns the configured seed sets into labeled requests.
func seedFrontier(ctx context.Context, cfg config.Config, frontier catalog.Frontier) (int, error) {
	seeded := 0
	add := func(req catalog.Request) error {
		added, err := frontier.Add(ctx, req)
		if err != nil {
			return err
		}
		if added {
			seeded++
		}
		return nil
	}

	for _, raw := range cfg.ProductURLs {
		if err := add(catalog.Request{
			URL:       raw,
			UniqueKey: raw,
			Label:     catalog.LabelProduct,
			Region:    cfg.Region,
		}); err != nil {
			return seeded, err
		}
	}
	for _, handle := range cfg.SellerHandles {
		seedURL := fmt.Sprintf(cfg.Seeds.SellerURLTemplate, url.PathEscape(handle))
		if err := add(catalog.Request{
			URL:       seedURL,
			UniqueKey: seedURL,
			Label:     catalog.LabelSeller,
			SourceKey: handle,
			Region:    cfg.Region,
		}); err != nil {
			return seeded, err
		}
	}
	for _, keyword := range cfg.Keywords {
		seedURL := fmt.Sprintf(cfg.Seeds.KeywordURLTemplate, url.QueryEscape(keyword))
		if err := add(catalog.Request{
			URL:       seedURL,
			UniqueKey: seedURL,
			Label:     catalog.LabelKeyword,
			SourceKey: keyword,
			Region:    cfg.Region,
		}); err != nil {
			return seeded, err
		}
	}
	for _, raw := range cfg.CategoryURLs {
		if err := add(catalog.Request{
			URL:       raw,
			UniqueKey: raw,
			Label:     catalog.LabelCategory,
			SourceKey: raw,
			Region:    cfg.Region,
		}); err != nil {
			return seeded, err
		}
	}
	return seeded, nil
}
