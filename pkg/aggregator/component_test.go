package aggregator

import (
	"testing"

	"github.com/stackaudit/stackaudit/pkg/errors"
)

func fullRecord() RawRecord {
	return RawRecord{
		Package: Facet{
			"libio_dependents_projects":   []any{float64(150)},
			"libio_dependents_repos":      []any{float64(1200)},
			"libio_total_releases":        []any{float64(45)},
			"libio_latest_release":        []any{float64(1696302486)},
			"libio_latest_version":        []any{"4.17.21"},
			"latest_version":              []any{"4.17.22"},
			"libio_usedby":                []any{"webpack:58000", "react:180000"},
			"gh_issues_last_month_opened": []any{float64(10)},
			"gh_issues_last_month_closed": []any{float64(8)},
			"gh_issues_last_year_opened":  []any{float64(90)},
			"gh_issues_last_year_closed":  []any{float64(75)},
			"gh_prs_last_month_opened":    []any{float64(5)},
			"gh_prs_last_month_closed":    []any{float64(4)},
			"gh_prs_last_year_opened":     []any{float64(60)},
			"gh_prs_last_year_closed":     []any{float64(55)},
			"gh_stargazers":               []any{float64(52000)},
			"gh_forks":                    []any{float64(6400)},
			"gh_open_issues_count":        []any{float64(120)},
			"gh_contributors_count":       []any{float64(300)},
		},
		Version: Facet{
			"pname":                        []any{"lodash"},
			"version":                      []any{"4.17.20"},
			"pecosystem":                   []any{"npm"},
			"declared_licenses":            []any{"MIT"},
			"cve_ids":                      []any{"CVE-2020-8203:7.4"},
			"osio_usage_count":             []any{float64(3)},
			"cm_loc":                       []any{float64(52000)},
			"cm_avg_cyclomatic_complexity": []any{2.4},
			"cm_num_files":                 []any{float64(1050)},
		},
	}
}

func TestExtractComponentFullRecord(t *testing.T) {
	c, err := ExtractComponent(fullRecord())
	if err != nil {
		t.Fatalf("ExtractComponent error: %v", err)
	}

	if c.Ecosystem != "npm" || c.Name != "lodash" || c.Version != "4.17.20" {
		t.Errorf("identity = %s/%s@%s", c.Ecosystem, c.Name, c.Version)
	}
	if len(c.Licenses) != 1 || c.Licenses[0] != "MIT" {
		t.Errorf("Licenses = %v", c.Licenses)
	}
	if len(c.Security) != 1 || c.Security[0].ID != "CVE-2020-8203" || c.Security[0].CVSS != "7.4" {
		t.Errorf("Security = %+v", c.Security)
	}
	if c.OsioUserCount != 3 {
		t.Errorf("OsioUserCount = %d, want 3", c.OsioUserCount)
	}
	if c.GitHub.StargazersCount != 52000 || c.GitHub.ForksCount != 6400 {
		t.Errorf("stars/forks = %d/%d", c.GitHub.StargazersCount, c.GitHub.ForksCount)
	}
	if c.GitHub.Issues.Month.Opened != 10 || c.GitHub.Issues.Year.Closed != 75 {
		t.Errorf("issues = %+v", c.GitHub.Issues)
	}
	if c.GitHub.PullRequests.Month.Closed != 4 || c.GitHub.PullRequests.Year.Opened != 60 {
		t.Errorf("pull requests = %+v", c.GitHub.PullRequests)
	}
	if len(c.GitHub.UsedBy) != 2 || c.GitHub.UsedBy[0].Name != "webpack" || c.GitHub.UsedBy[0].Stars != 58000 {
		t.Errorf("UsedBy = %+v", c.GitHub.UsedBy)
	}
	if c.CodeMetrics.CodeLines != 52000 || c.CodeMetrics.AverageCyclomaticComplexity != 2.4 || c.CodeMetrics.TotalFiles != 1050 {
		t.Errorf("CodeMetrics = %+v", c.CodeMetrics)
	}
}

// Extraction must be total: an entirely empty record yields a summary
// where every field holds its documented sentinel, never an error.
func TestExtractComponentEmptyRecord(t *testing.T) {
	c, err := ExtractComponent(RawRecord{})
	if err != nil {
		t.Fatalf("ExtractComponent error: %v", err)
	}

	if c.Name != "" || c.Version != "" || c.Ecosystem != "" {
		t.Errorf("identity should default to empty, got %s/%s@%s", c.Ecosystem, c.Name, c.Version)
	}
	if c.Licenses == nil || len(c.Licenses) != 0 {
		t.Errorf("Licenses = %v, want empty non-nil slice", c.Licenses)
	}
	if len(c.Security) != 0 {
		t.Errorf("Security = %v, want empty", c.Security)
	}
	if c.GitHub.StargazersCount != -1 || c.GitHub.DependentProjects != -1 || c.GitHub.Contributors != -1 {
		t.Errorf("numeric sentinels missing: %+v", c.GitHub)
	}
	if c.CodeMetrics.CodeLines != -1 || c.CodeMetrics.AverageCyclomaticComplexity != -1 {
		t.Errorf("code metric sentinels missing: %+v", c.CodeMetrics)
	}
	if c.GitHub.LatestReleaseDuration != "2017-06-01 07:34:46" {
		t.Errorf("LatestReleaseDuration = %q, want default epoch rendering", c.GitHub.LatestReleaseDuration)
	}
	if c.GitHub.FirstReleaseDate != "Apr 16, 2010" {
		t.Errorf("FirstReleaseDate = %q", c.GitHub.FirstReleaseDate)
	}
	if c.GitHub.Size != "N/A" {
		t.Errorf("Size = %q", c.GitHub.Size)
	}
	if len(c.GitHub.UsedBy) != 0 {
		t.Errorf("UsedBy = %v, want empty", c.GitHub.UsedBy)
	}
	if c.OsioUserCount != 0 {
		t.Errorf("OsioUserCount = %d, want 0", c.OsioUserCount)
	}
	if c.LatestVersion != "" {
		t.Errorf("LatestVersion = %q, want empty fallback", c.LatestVersion)
	}
}

func TestSelectLatestVersion(t *testing.T) {
	tests := []struct {
		name        string
		own         string
		libioLatest string
		latest      string
		want        string
	}{
		{"explicit latest wins", "1.0.0", "1.2.0", "1.3.0", "1.3.0"},
		{"libio when no explicit", "1.0.0", "1.2.0", "", "1.2.0"},
		{"own version as last resort", "1.0.0", "", "", "1.0.0"},
		{"all empty", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectLatestVersion(tt.own, tt.libioLatest, tt.latest); got != tt.want {
				t.Errorf("selectLatestVersion(%q, %q, %q) = %q, want %q",
					tt.own, tt.libioLatest, tt.latest, got, tt.want)
			}
		})
	}
}

func TestExtractComponentMalformedUsedBy(t *testing.T) {
	rec := RawRecord{Package: Facet{"libio_usedby": []any{"no-colon-here"}}}

	_, err := ExtractComponent(rec)
	if !errors.Is(err, errors.ErrCodeContract) {
		t.Errorf("err = %v, want CONTRACT_VIOLATION", err)
	}

	rec = RawRecord{Package: Facet{"libio_usedby": []any{"pkg:not-a-number"}}}
	_, err = ExtractComponent(rec)
	if !errors.Is(err, errors.ErrCodeContract) {
		t.Errorf("err = %v, want CONTRACT_VIOLATION", err)
	}
}

func TestExtractComponentMalformedCVE(t *testing.T) {
	rec := RawRecord{Version: Facet{"cve_ids": []any{"CVE-2020-8203"}}}

	_, err := ExtractComponent(rec)
	if !errors.Is(err, errors.ErrCodeContract) {
		t.Errorf("err = %v, want CONTRACT_VIOLATION", err)
	}
}
