package aggregator

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/stackaudit/stackaudit/pkg/errors"
	"github.com/stackaudit/stackaudit/pkg/observability"
)

// ResultStore persists one aggregation result keyed by request id with
// upsert semantics: a second save for the same id replaces the first.
type ResultStore interface {
	SaveResult(ctx context.Context, requestID string, result *AggregationResult) error
}

// Aggregator drives the full pipeline across all manifests of a request:
// metadata fetch, component extraction, license analysis, set
// reconciliation, and optional persistence.
//
// The Aggregator is stateless across invocations; multiple goroutines can
// safely share one instance.
type Aggregator struct {
	fetcher  *MetadataFetcher
	analyzer LicenseAnalyzer
	store    ResultStore
	logger   *log.Logger
}

// New creates an Aggregator. The store may be nil when persistence is
// never requested (dry-run only deployments); a nil logger falls back to
// the default logger.
func New(graph GraphClient, analyzer LicenseAnalyzer, store ResultStore, logger *log.Logger) *Aggregator {
	if logger == nil {
		logger = log.Default()
	}
	return &Aggregator{
		fetcher:  NewMetadataFetcher(graph, logger),
		analyzer: analyzer,
		store:    store,
		logger:   logger,
	}
}

// Execute aggregates the request's manifests into one result envelope.
//
// With persist=false (dry run) license analysis and persistence are both
// skipped, but the report keeps its full shape with license fields
// empty and the conflict flag unset.
//
// Manifests are processed one after another; a metadata or license
// transport failure degrades that manifest's report but never aborts the
// batch. The returned error is non-nil only for data-contract violations
// by an external service, which do abort the run. Persistence failures do
// not surface as errors: the outcome carries the storage-error status tag
// and message instead, so callers can retry persistence independently of
// recomputation.
func (a *Aggregator) Execute(ctx context.Context, req *Request, persist bool) (*Outcome, error) {
	if req == nil {
		return nil, errors.New(errors.ErrCodeInvalidRequest, "request is nil")
	}

	runStart := time.Now()
	observability.Aggregation().OnRunStart(ctx, req.RequestID, len(req.Manifests))
	startedAt := runStart.UTC().Format(auditTimeLayout)

	reports := make([]ManifestReport, 0, len(req.Manifests))
	for _, manifest := range req.Manifests {
		manifestStart := time.Now()
		observability.Aggregation().OnManifestStart(ctx, manifest.Ecosystem, manifest.ManifestFile)

		report, err := a.aggregateManifest(ctx, manifest, persist)
		observability.Aggregation().OnManifestComplete(ctx, manifest.Ecosystem, manifest.ManifestFile,
			report.UserStackInfo.AnalyzedDependenciesCount, report.UserStackInfo.UnknownDependenciesCount,
			time.Since(manifestStart), err)
		if err != nil {
			observability.Aggregation().OnRunComplete(ctx, req.RequestID, time.Since(runStart), err)
			return nil, err
		}

		if req.CurrentStackLicense != nil {
			report.UserStackInfo.LicenseAnalysis.CurrentStackLicense = req.CurrentStackLicense
		}
		reports = append(reports, report)
	}

	result := &AggregationResult{
		StackData: reports,
		Audit: AuditStamp{
			StartedAt: startedAt,
			EndedAt:   time.Now().UTC().Format(auditTimeLayout),
			Version:   SchemaVersion,
		},
		Release: ReleaseMarker,
	}

	outcome := &Outcome{
		Status:    StatusSuccess,
		RequestID: req.RequestID,
		Result:    result,
	}

	if persist {
		persistStart := time.Now()
		err := a.persist(ctx, req.RequestID, result)
		observability.Aggregation().OnPersist(ctx, req.RequestID, time.Since(persistStart), err)
		if err != nil {
			a.logger.Error("failed to persist aggregation result", "request_id", req.RequestID, "err", err)
			outcome = &Outcome{
				Status:    StatusStorageError,
				RequestID: req.RequestID,
				Message:   err.Error(),
			}
		}
	}

	observability.Aggregation().OnRunComplete(ctx, req.RequestID, time.Since(runStart), nil)
	return outcome, nil
}

func (a *Aggregator) persist(ctx context.Context, requestID string, result *AggregationResult) error {
	if a.store == nil {
		return errors.New(errors.ErrCodeStorage, "no result store configured")
	}
	return a.store.SaveResult(ctx, requestID, result)
}

// aggregateManifest produces the report for one manifest: fetch records,
// extract component summaries, optionally run license analysis, and
// reconcile the analyzed set against the requested one.
func (a *Aggregator) aggregateManifest(ctx context.Context, manifest ManifestInput, withLicenses bool) (ManifestReport, error) {
	records := a.fetcher.Fetch(ctx, manifest.Ecosystem, manifest.Resolved)

	components := make([]ComponentSummary, 0, len(records))
	allLicenses := []string{}
	for _, rec := range records {
		component, err := ExtractComponent(rec)
		if err != nil {
			return ManifestReport{}, err
		}
		components = append(components, component)
		allLicenses = append(allLicenses, component.Licenses...)
	}

	facets := emptyFacets()
	var conflict *bool
	if withLicenses {
		var err error
		facets, err = performLicenseAnalysis(ctx, a.analyzer, a.logger, components)
		if err != nil {
			return ManifestReport{}, err
		}
		c := stackLicenseConflict(facets)
		conflict = &c
	}

	unknown := unknownDependencies(manifest.Resolved, components)

	info := UserStackInfo{
		Ecosystem:                 strings.ToLower(manifest.Ecosystem),
		AnalyzedDependenciesCount: len(components),
		AnalyzedDependencies:      components,
		UnknownDependencies:       unknown,
		UnknownDependenciesCount:  len(unknown),
		RecommendationReady:       true,
		TotalLicenses:             len(distinctLicenses(allLicenses)),
		DistinctLicenses:          distinctLicenses(allLicenses),
		StackLicenseConflict:      conflict,
		Dependencies:              dependenciesOrEmpty(manifest.Resolved),
		LicenseAnalysis:           facets,
	}

	return ManifestReport{
		ManifestName:     manifest.ManifestFile,
		ManifestFilePath: manifest.ManifestFilePath,
		UserStackInfo:    info,
	}, nil
}

// unknownDependencies computes the requested (name, version) pairs the
// metadata store had no record for: the requested set minus the analyzed
// set. Request order is preserved and duplicates collapse, so the result
// is deterministic and, together with the analyzed set, partitions the
// requested set.
func unknownDependencies(requested []Dependency, analyzed []ComponentSummary) []UnknownDependency {
	analyzedSet := make(map[Dependency]struct{}, len(analyzed))
	for _, c := range analyzed {
		analyzedSet[Dependency{Package: c.Name, Version: c.Version}] = struct{}{}
	}

	unknown := []UnknownDependency{}
	seen := make(map[Dependency]struct{}, len(requested))
	for _, dep := range requested {
		if _, dup := seen[dep]; dup {
			continue
		}
		seen[dep] = struct{}{}
		if _, ok := analyzedSet[dep]; !ok {
			unknown = append(unknown, UnknownDependency{Name: dep.Package, Version: dep.Version})
		}
	}
	return unknown
}

// distinctLicenses returns the sorted deduplicated union of all
// per-component license lists.
func distinctLicenses(licenses []string) []string {
	set := make(map[string]struct{}, len(licenses))
	for _, lic := range licenses {
		set[lic] = struct{}{}
	}
	distinct := make([]string, 0, len(set))
	for lic := range set {
		distinct = append(distinct, lic)
	}
	sort.Strings(distinct)
	return distinct
}

func dependenciesOrEmpty(deps []Dependency) []Dependency {
	if deps == nil {
		return []Dependency{}
	}
	return deps
}
