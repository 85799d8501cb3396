// Package main hosts the catalog crawler entrypoint.
//
// Architecture overview:
//   - Frontier & pool: seed URLs from config become labeled requests in a
//     deduplicating in-memory frontier. A fixed worker pool claims requests,
//     opens an isolated browser session per request, and routes by label:
//     listing labels (SELLER, CATEGORY, KEYWORD) discover product links,
//     PRODUCT runs the extraction pipeline. The run ends only when the
//     frontier is empty and no worker still holds a claimed request.
//   - Quotas: product discovery passes through the limits tracker before
//     anything is enqueued. Reservations are atomic and irreversible; a
//     listing stops discovering at the first rejection.
//   - Extraction: structured-data, embedded-state, DOM, and text stages run
//     in order and merge first-non-null-wins into one product record. Stage
//     failures degrade to missing fields, never task failures.
//   - Change detection: each record is diffed against the previous snapshot
//     in the configured key-value store (memory, GCS, or Postgres) and the
//     snapshot is overwritten afterwards.
//   - Notifications: finished records fan out to webhook/chat/Pub/Sub sinks,
//     best-effort and gated by notify.enabled / notify.onlyOnChange.
//   - Plumbing: Viper config with CATALOG_* env overrides, zap logging,
//     Prometheus metrics and a read-only chi status API on server.port.
//
// Run locally: go run ./cmd/catalogcrawler -config config.yaml. The process
// drains gracefully on SIGINT/SIGTERM and logs a run summary at exit.
package main
