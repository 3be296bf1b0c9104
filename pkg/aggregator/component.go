package aggregator

import (
	"strconv"
	"strings"
	"time"

	"github.com/stackaudit/stackaudit/pkg/errors"
)

// Sentinels for fields the graph store has no value for. The upstream
// report schema fixes these, so they are part of the wire contract.
const (
	unknownCount = -1

	// defaultReleaseEpoch is the store's seed timestamp, used when a
	// record carries no libio_latest_release value.
	defaultReleaseEpoch = 1496302486

	// firstReleasePlaceholder and sizePlaceholder are schema fields the
	// store does not populate yet; the upstream service emits these
	// fixed values.
	firstReleasePlaceholder = "Apr 16, 2010"
	sizePlaceholder         = "N/A"
)

// ExtractComponent normalizes one raw metadata record into a flat
// ComponentSummary. Extraction is total over missing fields: every output
// field gets a value, falling back to the documented sentinels. It returns
// an error only for data-contract violations — malformed "name:stars" or
// "id:score" tokens the store must never emit.
func ExtractComponent(rec RawRecord) (ComponentSummary, error) {
	pkg, ver := rec.Package, rec.Version

	usedBy, err := parseUsedBy(pkg.Strings("libio_usedby"))
	if err != nil {
		return ComponentSummary{}, err
	}
	cves, err := parseCVEs(ver.Strings("cve_ids"))
	if err != nil {
		return ComponentSummary{}, err
	}

	github := GitHubDetails{
		DependentProjects:     pkg.Int("libio_dependents_projects", unknownCount),
		DependentRepos:        pkg.Int("libio_dependents_repos", unknownCount),
		TotalReleases:         pkg.Int("libio_total_releases", unknownCount),
		LatestReleaseDuration: releaseTime(pkg.Float("libio_latest_release", defaultReleaseEpoch)),
		FirstReleaseDate:      firstReleasePlaceholder,
		Issues: ActivityCounts{
			Month: PeriodCounts{
				Opened: pkg.Int("gh_issues_last_month_opened", unknownCount),
				Closed: pkg.Int("gh_issues_last_month_closed", unknownCount),
			},
			Year: PeriodCounts{
				Opened: pkg.Int("gh_issues_last_year_opened", unknownCount),
				Closed: pkg.Int("gh_issues_last_year_closed", unknownCount),
			},
		},
		PullRequests: ActivityCounts{
			Month: PeriodCounts{
				Opened: pkg.Int("gh_prs_last_month_opened", unknownCount),
				Closed: pkg.Int("gh_prs_last_month_closed", unknownCount),
			},
			Year: PeriodCounts{
				Opened: pkg.Int("gh_prs_last_year_opened", unknownCount),
				Closed: pkg.Int("gh_prs_last_year_closed", unknownCount),
			},
		},
		StargazersCount: pkg.Int("gh_stargazers", unknownCount),
		ForksCount:      pkg.Int("gh_forks", unknownCount),
		OpenIssuesCount: pkg.Int("gh_open_issues_count", unknownCount),
		Contributors:    pkg.Int("gh_contributors_count", unknownCount),
		Size:            sizePlaceholder,
		UsedBy:          usedBy,
	}

	metrics := CodeMetrics{
		CodeLines:                   ver.Int("cm_loc", unknownCount),
		AverageCyclomaticComplexity: ver.Float("cm_avg_cyclomatic_complexity", unknownCount),
		TotalFiles:                  ver.Int("cm_num_files", unknownCount),
	}

	name := ver.String("pname", "")
	version := ver.String("version", "")

	return ComponentSummary{
		Ecosystem:     ver.String("pecosystem", ""),
		Name:          name,
		Version:       version,
		Licenses:      stringsOrEmpty(ver.Strings("declared_licenses")),
		Security:      cves,
		OsioUserCount: ver.Int("osio_usage_count", 0),
		LatestVersion: selectLatestVersion(version, pkg.String("libio_latest_version", ""), pkg.String("latest_version", "")),
		GitHub:        github,
		CodeMetrics:   metrics,
	}, nil
}

// selectLatestVersion picks the version reported as "latest". The
// precedence is a deterministic first-non-empty order: the store's
// explicit latest_version field wins, then the libio-derived one, and when
// both are empty the record's own version is reported.
func selectLatestVersion(own, libioLatest, latest string) string {
	if latest != "" {
		return latest
	}
	if libioLatest != "" {
		return libioLatest
	}
	return own
}

// releaseTime renders a store epoch timestamp in the report's
// human-readable form. Rendered in UTC so output is host-independent.
func releaseTime(epoch float64) string {
	return time.Unix(int64(epoch), 0).UTC().Format("2006-01-02 15:04:05")
}

// parseUsedBy splits "name:starcount" dependent entries. A token without
// a colon or with a non-numeric count means the store broke its schema.
func parseUsedBy(entries []string) ([]UsedBy, error) {
	usedBy := make([]UsedBy, 0, len(entries))
	for _, entry := range entries {
		name, count, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, errors.New(errors.ErrCodeContract, "malformed used_by entry %q: missing colon", entry)
		}
		stars, err := strconv.Atoi(count)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeContract, err, "malformed used_by entry %q: non-numeric star count", entry)
		}
		usedBy = append(usedBy, UsedBy{Name: name, Stars: stars})
	}
	return usedBy, nil
}

// parseCVEs splits "id:score" advisory entries. The score is kept as a
// string, matching the report schema.
func parseCVEs(entries []string) ([]CVE, error) {
	cves := make([]CVE, 0, len(entries))
	for _, entry := range entries {
		id, score, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, errors.New(errors.ErrCodeContract, "malformed cve entry %q: missing colon", entry)
		}
		cves = append(cves, CVE{ID: id, CVSS: score})
	}
	return cves, nil
}

// stringsOrEmpty normalizes a nil slice to an empty one so report JSON
// renders [] rather than null.
func stringsOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
