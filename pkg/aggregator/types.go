// Package aggregator implements the stack aggregation and license-conflict
// reasoning engine.
//
// The engine correlates a resolved dependency list ("stack") with metadata
// from the graph store, enriches it with findings from the license scoring
// service, and produces one audit-stamped report per request. Processing is
// synchronous and fault-isolating: a failure fetching metadata or scoring
// licenses degrades the affected manifest's report but never aborts the
// batch. Only response-contract violations by the license service abort a
// run, surfaced as CONTRACT_VIOLATION errors.
//
// Data flows strictly downward: raw per-dependency records → component
// summaries → license payload → interpreted license facets → per-manifest
// report → result envelope.
package aggregator

import (
	"encoding/json"
	"strings"

	"github.com/stackaudit/stackaudit/pkg/errors"
)

// Wire constants carried over from the upstream report schema so downstream
// consumers keep reading the output unchanged.
const (
	// SchemaVersion tags the audit stamp of every result.
	SchemaVersion = "v1"

	// ReleaseMarker is the release field placeholder emitted until a
	// release train is wired up.
	ReleaseMarker = "None:None:None"

	// WorkerName identifies this engine in persisted results.
	WorkerName = "stack_aggregator_v2"

	// auditTimeLayout is the timestamp format of the audit stamp
	// (microsecond precision, no zone suffix).
	auditTimeLayout = "2006-01-02T15:04:05.000000"
)

// Dependency is one requested (package, version) pair of a manifest's
// resolved dependency list.
type Dependency struct {
	Package string `json:"package"`
	Version string `json:"version"`
}

// UnknownDependency is a requested dependency the graph store had no
// record for. The upstream schema names the package field "name" here,
// unlike the requested list.
type UnknownDependency struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ManifestInput describes one manifest of the incoming batch: the
// dependency list its upstream resolver produced, plus identity fields.
type ManifestInput struct {
	Ecosystem        string       `json:"ecosystem"`
	ManifestFile     string       `json:"manifest_file"`
	ManifestFilePath string       `json:"manifest_file_path"`
	Resolved         []Dependency `json:"_resolved"`
}

// Request is the engine's invocation contract: a batch of manifests to
// aggregate under one externally supplied request id.
type Request struct {
	RequestID string          `json:"external_request_id"`
	Manifests []ManifestInput `json:"manifests"`

	// CurrentStackLicense is an externally supplied hint about the
	// stack's declared license file, merged verbatim into each
	// manifest's license facets under a fixed key. Only the first
	// license file is supported.
	CurrentStackLicense map[string]any `json:"current_stack_license,omitempty"`
}

// Validate checks the externally supplied fields of a request: the
// request id (it keys the persisted report), and per manifest the
// ecosystem and the manifest filename. Dependency names and versions
// are validated later, at the graph query boundary.
func (r *Request) Validate() error {
	if err := errors.ValidateRequestID(r.RequestID); err != nil {
		return err
	}
	if len(r.Manifests) == 0 {
		return errors.New(errors.ErrCodeInvalidRequest, "request has no manifests")
	}
	for _, m := range r.Manifests {
		if err := errors.ValidateEcosystem(strings.ToLower(strings.TrimSpace(m.Ecosystem))); err != nil {
			return err
		}
		if err := errors.ValidateManifestFilename(m.ManifestFile); err != nil {
			return err
		}
	}
	return nil
}

// CVE is one security advisory attached to a component.
type CVE struct {
	ID   string `json:"CVE"`
	CVSS string `json:"CVSS"`
}

// UsedBy is one "name:stars" entry of a component's dependents list.
type UsedBy struct {
	Name  string `json:"name"`
	Stars int    `json:"stars"`
}

// PeriodCounts holds opened/closed counts for one period.
type PeriodCounts struct {
	Opened int `json:"opened"`
	Closed int `json:"closed"`
}

// ActivityCounts splits counts by month and year windows.
type ActivityCounts struct {
	Month PeriodCounts `json:"month"`
	Year  PeriodCounts `json:"year"`
}

// GitHubDetails carries popularity and maintenance signals for a component.
// Numeric fields use -1 as the "unknown" sentinel.
type GitHubDetails struct {
	DependentProjects     int            `json:"dependent_projects"`
	DependentRepos        int            `json:"dependent_repos"`
	TotalReleases         int            `json:"total_releases"`
	LatestReleaseDuration string         `json:"latest_release_duration"`
	FirstReleaseDate      string         `json:"first_release_date"`
	Issues                ActivityCounts `json:"issues"`
	PullRequests          ActivityCounts `json:"pull_requests"`
	StargazersCount       int            `json:"stargazers_count"`
	ForksCount            int            `json:"forks_count"`
	OpenIssuesCount       int            `json:"open_issues_count"`
	Contributors          int            `json:"contributors"`
	Size                  string         `json:"size"`
	UsedBy                []UsedBy       `json:"used_by"`
}

// CodeMetrics carries static code measurements for a component version.
type CodeMetrics struct {
	CodeLines                   int     `json:"code_lines"`
	AverageCyclomaticComplexity float64 `json:"average_cyclomatic_complexity"`
	TotalFiles                  int     `json:"total_files"`
}

// ComponentSummary is the flat normalization of one RawRecord. Every field
// is always present, possibly holding a documented sentinel — extraction is
// total over missing input fields. A summary is never mutated after
// creation except to attach the license analysis assigned by the scoring
// step.
type ComponentSummary struct {
	Ecosystem     string        `json:"ecosystem"`
	Name          string        `json:"name"`
	Version       string        `json:"version"`
	Licenses      []string      `json:"licenses"`
	Security      []CVE         `json:"security"`
	OsioUserCount int           `json:"osio_user_count"`
	LatestVersion string        `json:"latest_version"`
	GitHub        GitHubDetails `json:"github"`
	CodeMetrics   CodeMetrics   `json:"code_metrics"`

	// LicenseAnalysis is the per-component object the license service
	// returned, attached verbatim when the component matched a scored
	// package by (name, version). Kept as raw JSON so fields this engine
	// does not interpret survive re-serialization. Omitted when no
	// analysis ran or no match was found.
	LicenseAnalysis json.RawMessage `json:"license_analysis,omitempty"`
}

// LicenseScoringInput is the per-component triple sent to the license
// scoring service.
type LicenseScoringInput struct {
	Package  string   `json:"package"`
	Version  string   `json:"version"`
	Licenses []string `json:"licenses"`
}

// PackageLicense is one (package, license) finding.
type PackageLicense struct {
	Package string `json:"package"`
	License string `json:"license"`
}

// LicensePair is one pair of mutually conflicting licenses within a
// single component.
type LicensePair struct {
	License1 string `json:"license1"`
	License2 string `json:"license2"`
}

// ComponentConflict lists the conflicting license pairs of one component
// whose representative license could not be resolved.
type ComponentConflict struct {
	Package          string        `json:"package"`
	ConflictLicenses []LicensePair `json:"conflict_licenses"`
}

// UnknownLicenses groups the two kinds of unknowns the license service
// reports: licenses the service does not understand (really_unknown) and
// component-level conflicts that prevent resolving a representative
// license (component_conflict). Exactly one bucket is populated per
// response, selected by the response's top-level status.
type UnknownLicenses struct {
	ReallyUnknown     []PackageLicense    `json:"really_unknown"`
	ComponentConflict []ComponentConflict `json:"component_conflict"`
}

// ConflictPackages is one pair of packages whose licenses conflict at
// stack level.
type ConflictPackages struct {
	Package1 string `json:"package1"`
	License1 string `json:"license1"`
	Package2 string `json:"package2"`
	License2 string `json:"license2"`
}

// LicenseFacets is the interpreted output of the license scoring service
// for one manifest. Status is nil when license analysis did not run
// (dry run or transport failure), distinguished from any real status
// string the service returns.
type LicenseFacets struct {
	Status           *string            `json:"status"`
	StackLicenses    []string           `json:"f8a_stack_licenses"`
	UnknownLicenses  UnknownLicenses    `json:"unknown_licenses"`
	ConflictPackages []ConflictPackages `json:"conflict_packages"`
	OutlierPackages  []PackageLicense   `json:"outlier_packages"`

	// CurrentStackLicense echoes the externally supplied stack license
	// hint, when one was given.
	CurrentStackLicense map[string]any `json:"current_stack_license,omitempty"`
}

// UserStackInfo is the per-manifest aggregation body. The invariant
// maintained by the engine: AnalyzedDependencies ∪ UnknownDependencies
// equals the requested dependency set as (name, version) pairs, and the
// two are disjoint.
type UserStackInfo struct {
	Ecosystem                 string              `json:"ecosystem"`
	AnalyzedDependenciesCount int                 `json:"analyzed_dependencies_count"`
	AnalyzedDependencies      []ComponentSummary  `json:"analyzed_dependencies"`
	UnknownDependencies       []UnknownDependency `json:"unknown_dependencies"`
	UnknownDependenciesCount  int                 `json:"unknown_dependencies_count"`
	RecommendationReady       bool                `json:"recommendation_ready"`
	TotalLicenses             int                 `json:"total_licenses"`
	DistinctLicenses          []string            `json:"distinct_licenses"`
	StackLicenseConflict      *bool               `json:"stack_license_conflict"`
	Dependencies              []Dependency        `json:"dependencies"`
	LicenseAnalysis           LicenseFacets       `json:"license_analysis"`
}

// ManifestReport is the aggregation result for one manifest.
type ManifestReport struct {
	ManifestName     string        `json:"manifest_name"`
	ManifestFilePath string        `json:"manifest_file_path"`
	UserStackInfo    UserStackInfo `json:"user_stack_info"`
}

// AuditStamp records when an aggregation ran and under which schema
// version.
type AuditStamp struct {
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at"`
	Version   string `json:"version"`
}

// AggregationResult is the multi-manifest result envelope. It is created
// once per invocation and immutable once returned; the persistence layer
// upserts it keyed by the caller's request id.
type AggregationResult struct {
	StackData []ManifestReport `json:"stack_data"`
	Audit     AuditStamp       `json:"_audit"`
	Release   string           `json:"_release"`
}

// Outcome status tags. The engine always returns an Outcome envelope;
// it never panics past the boundary.
const (
	StatusSuccess      = "success"
	StatusStorageError = "database error"
)

// Outcome is the engine's exit contract: a status tag plus either the
// computed result or a storage error message. When persistence fails the
// computed result is still attached so callers can retry persistence
// without recomputation.
type Outcome struct {
	Status    string             `json:"stack_aggregator"`
	RequestID string             `json:"external_request_id"`
	Result    *AggregationResult `json:"result,omitempty"`
	Message   string             `json:"message,omitempty"`
}
