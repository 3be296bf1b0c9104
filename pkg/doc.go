// Package pkg provides the core libraries for Stackaudit dependency
// stack aggregation.
//
// # Overview
//
// Stackaudit takes a resolved dependency stack, enriches every
// dependency with registry metadata from a graph store, scores the
// combined license picture, and produces a per-manifest audit report.
// The pkg directory is organized into four main areas:
//
//  1. [aggregator] - The aggregation engine (fetch, extract, license
//     interpretation, set reconciliation, report assembly)
//  2. [integrations] - External service clients (graph metadata store,
//     license scoring service)
//  3. [store] - Report persistence (MongoDB, in-memory)
//  4. [cache] - Metadata response caching (null, file, Redis)
//
// # Architecture
//
// The typical data flow through Stackaudit:
//
//	Aggregation Request (manifests + resolved dependencies)
//	         ↓
//	    [integrations/gremlin] (one graph query per dependency)
//	         ↓
//	    [aggregator] (component extraction + set reconciliation)
//	         ↓
//	    [integrations/licenses] (one scoring call per manifest)
//	         ↓
//	    [aggregator] (license facet interpretation)
//	         ↓
//	    [store] (persisted report) / [render] (conflict graph)
//
// # Quick Start
//
// Aggregate one request:
//
//	graph := gremlin.NewClient(gremlinURL, cache.NewNullCache(), time.Hour)
//	analyzer := licenses.NewClient(licenseURL)
//	reports := store.NewMemoryStore()
//
//	agg := aggregator.New(graph, analyzer, reports, logger)
//	outcome, err := agg.Execute(ctx, req, true)
//
// # Supporting Packages
//
// [errors] - Structured errors with stable codes and input validation.
//
// [httputil] - Retry with exponential backoff for transient transport
// failures.
//
// [observability] - Pluggable hooks for aggregation, cache, and HTTP
// events; no-op by default.
//
// [config] - TOML configuration with environment overrides.
//
// [render] - License-conflict graphs as Graphviz DOT and SVG.
//
// [buildinfo] - Version information injected at build time.
package pkg
