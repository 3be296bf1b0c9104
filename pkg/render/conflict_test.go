package render

import (
	"strings"
	"testing"

	"github.com/stackaudit/stackaudit/pkg/aggregator"
)

func infoWithFindings() aggregator.UserStackInfo {
	return aggregator.UserStackInfo{
		Ecosystem: "npm",
		LicenseAnalysis: aggregator.LicenseFacets{
			ConflictPackages: []aggregator.ConflictPackages{
				{Package1: "pkg-a", License1: "MIT", Package2: "pkg-b", License2: "GPL-2.0"},
			},
			OutlierPackages: []aggregator.PackageLicense{
				{Package: "pkg-c", License: "WTFPL"},
			},
		},
	}
}

func TestConflictDOT(t *testing.T) {
	dot := ConflictDOT(infoWithFindings())

	for _, fragment := range []string{
		"graph conflicts {",
		`"pkg-a" [label="pkg-a\nMIT"]`,
		`"pkg-b" [label="pkg-b\nGPL-2.0"]`,
		`"pkg-a" -- "pkg-b";`,
		`"pkg-c" [label="pkg-c\nWTFPL", style="rounded,filled,dashed"`,
	} {
		if !strings.Contains(dot, fragment) {
			t.Errorf("DOT missing %q:\n%s", fragment, dot)
		}
	}
}

func TestConflictDOTEmpty(t *testing.T) {
	dot := ConflictDOT(aggregator.UserStackInfo{})

	if !strings.HasPrefix(dot, "graph conflicts {") || !strings.HasSuffix(dot, "}\n") {
		t.Errorf("empty DOT malformed:\n%s", dot)
	}
	if strings.Contains(dot, "--") {
		t.Errorf("empty DOT must have no edges:\n%s", dot)
	}
}

func TestConflictDOTOutlierAlsoConflicting(t *testing.T) {
	info := infoWithFindings()
	info.LicenseAnalysis.OutlierPackages = append(info.LicenseAnalysis.OutlierPackages,
		aggregator.PackageLicense{Package: "pkg-a", License: "MIT"})

	dot := ConflictDOT(info)

	// A package in a conflict pair keeps its solid node even when it is
	// also flagged as an outlier.
	if strings.Count(dot, `"pkg-a" [`) != 1 {
		t.Errorf("pkg-a declared more than once:\n%s", dot)
	}
}

func TestConflictDOTDeterministic(t *testing.T) {
	info := infoWithFindings()
	first := ConflictDOT(info)
	for i := 0; i < 10; i++ {
		if got := ConflictDOT(info); got != first {
			t.Fatal("ConflictDOT output varies between calls")
		}
	}
}

func TestHasFindings(t *testing.T) {
	if !HasFindings(infoWithFindings()) {
		t.Error("HasFindings() = false for info with conflicts")
	}
	if HasFindings(aggregator.UserStackInfo{}) {
		t.Error("HasFindings() = true for empty info")
	}
}

func TestSummary(t *testing.T) {
	got := Summary(infoWithFindings())
	if got != "1 conflict pairs, 1 outliers" {
		t.Errorf("Summary() = %q", got)
	}
}
