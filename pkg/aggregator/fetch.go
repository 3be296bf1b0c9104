package aggregator

import (
	"context"

	"github.com/charmbracelet/log"
)

// GraphClient queries the metadata store for the records of one
// (ecosystem, name, version) triple. Implementations own transport
// concerns — retries, timeouts, caching; the engine only distinguishes
// "records" from "no records or error".
type GraphClient interface {
	Records(ctx context.Context, ecosystem, name, version string) ([]RawRecord, error)
}

// MetadataFetcher collects graph-store records for a manifest's resolved
// dependency list. It is fault-isolating per dependency: a transport
// failure or empty result for one dependency never prevents the rest of
// the manifest from being fetched.
type MetadataFetcher struct {
	graph  GraphClient
	logger *log.Logger
}

// NewMetadataFetcher creates a fetcher over the given graph client.
// A nil logger falls back to the default logger.
func NewMetadataFetcher(graph GraphClient, logger *log.Logger) *MetadataFetcher {
	if logger == nil {
		logger = log.Default()
	}
	return &MetadataFetcher{graph: graph, logger: logger}
}

// Fetch issues one metadata query per requested dependency and returns
// the records found, ordered by request position. Dependencies with a
// blank name or version are skipped with a warning. There is no
// deduplication: a repeated (name, version) pair produces a repeated
// record. Only the first record of each query's result group is kept —
// later entries duplicate the same package/version facets.
func (f *MetadataFetcher) Fetch(ctx context.Context, ecosystem string, deps []Dependency) []RawRecord {
	records := make([]RawRecord, 0, len(deps))

	for _, dep := range deps {
		if dep.Package == "" || dep.Version == "" {
			f.logger.Warn("dependency is missing a name or version, skipping",
				"ecosystem", ecosystem, "package", dep.Package, "version", dep.Version)
			continue
		}

		recs, err := f.graph.Records(ctx, ecosystem, dep.Package, dep.Version)
		if err != nil {
			f.logger.Error("failed retrieving dependency metadata",
				"ecosystem", ecosystem, "package", dep.Package, "version", dep.Version, "err", err)
			continue
		}
		if len(recs) == 0 {
			continue
		}

		records = append(records, recs[0])
	}

	return records
}
