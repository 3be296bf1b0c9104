// Package store persists aggregation results keyed by request id.
//
// Two implementations are provided: [MongoStore] for deployments where
// reports outlive the process, and [MemoryStore] for tests and
// single-shot CLI runs. Saves have upsert semantics: re-running a
// request replaces its stored report.
package store

import (
	"context"

	"github.com/stackaudit/stackaudit/pkg/aggregator"
)

// Store is the persistence surface for aggregation reports. It is a
// superset of [aggregator.ResultStore], adding retrieval for the API and
// CLI report commands.
type Store interface {
	// SaveResult stores the result under requestID, replacing any
	// previous report for the same id.
	SaveResult(ctx context.Context, requestID string, result *aggregator.AggregationResult) error

	// GetResult retrieves a stored report. A missing id yields an error
	// with code REPORT_NOT_FOUND.
	GetResult(ctx context.Context, requestID string) (*aggregator.AggregationResult, error)

	// ListRequestIDs returns the ids of all stored reports, most recent
	// first where the backend tracks recency.
	ListRequestIDs(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close(ctx context.Context) error
}
