// Package integrations provides shared HTTP plumbing for the external
// services the aggregator talks to: the graph metadata store (gremlin
// subpackage) and the license scoring service (licenses subpackage).
//
// The shared [Client] owns transport concerns so service clients stay
// thin: JSON encoding and decoding, default headers, status-code
// classification, retry with backoff for transient failures, and
// response caching through a [cache.Cache] backend.
//
// Error handling follows two sentinels: [ErrNotFound] for missing
// resources and [ErrNetwork] for transport failures. Transient failures
// (connection errors, 5xx responses) are additionally wrapped in
// [httputil.RetryableError] so the retry layer re-attempts them while
// permanent failures stop immediately.
package integrations
