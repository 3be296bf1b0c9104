package aggregator

import (
	"encoding/json"
	"sort"

	"github.com/stackaudit/stackaudit/pkg/errors"
)

// Top-level status strings of the license scoring service this engine
// interprets. Any other status is carried through opaquely.
const (
	statusUnknown           = "Unknown"
	statusComponentConflict = "ComponentLicenseConflict"
	statusConflict          = "Conflict"
)

// ScoredPackage is one per-dependency entry of the scoring response.
// The license_analysis payload is kept raw: the engine attaches it to the
// matching component verbatim and decodes only the fields it interprets.
type ScoredPackage struct {
	Package         string          `json:"package"`
	Version         string          `json:"version"`
	LicenseAnalysis json.RawMessage `json:"license_analysis"`
}

// ScoringResponse is the license scoring service's reply for one manifest.
// Every field may be absent; interpretation defaults each access.
type ScoringResponse struct {
	Status           *string             `json:"status"`
	StackLicense     *string             `json:"stack_license"`
	Packages         []ScoredPackage     `json:"packages"`
	ConflictPackages []map[string]string `json:"conflict_packages"`
	OutlierPackages  map[string]string   `json:"outlier_packages"`
}

// componentAnalysis is the slice of a per-component license_analysis
// object this engine interprets.
type componentAnalysis struct {
	Status           string     `json:"status"`
	UnknownLicenses  []string   `json:"unknown_licenses"`
	ConflictLicenses [][]string `json:"conflict_licenses"`
}

func (r *ScoringResponse) status() string {
	if r == nil || r.Status == nil {
		return ""
	}
	return *r.Status
}

// extractConflictPackages projects the response's stack-level conflict
// pairs. Each entry maps exactly two packages to their licenses; this
// information is only present when every component license was identified
// and the conflict is between packages. An entry with a different key
// count means the service broke its response contract, which is fatal
// rather than silently dropped.
//
// JSON objects carry no key order, so the two packages are projected in
// lexicographic order to keep output deterministic.
func extractConflictPackages(resp *ScoringResponse) ([]ConflictPackages, error) {
	conflicts := []ConflictPackages{}
	if resp == nil {
		return conflicts, nil
	}

	for _, pair := range resp.ConflictPackages {
		if len(pair) != 2 {
			return nil, errors.New(errors.ErrCodeContract,
				"conflict_packages entry has %d packages, want exactly 2", len(pair))
		}
		pkgs := make([]string, 0, 2)
		for pkg := range pair {
			pkgs = append(pkgs, pkg)
		}
		sort.Strings(pkgs)
		conflicts = append(conflicts, ConflictPackages{
			Package1: pkgs[0],
			License1: pair[pkgs[0]],
			Package2: pkgs[1],
			License2: pair[pkgs[1]],
		})
	}
	return conflicts, nil
}

// extractUnknownLicenses collects the two kinds of license unknowns.
//
// Really unknown licenses are license strings the service does not
// understand; they are reported only when the whole stack's status is
// "Unknown", from components whose own status is also "Unknown".
//
// Component-level conflicts are single components declaring mutually
// incompatible licenses, preventing resolution of a representative
// license for that component; they are reported only when the stack's
// status is "ComponentLicenseConflict", from components whose own status
// is "Conflict". Each conflicting pair must have exactly two members.
//
// The two buckets are mutually exclusive by construction: the top-level
// status selects which interpretation applies.
func extractUnknownLicenses(resp *ScoringResponse) (UnknownLicenses, error) {
	out := UnknownLicenses{
		ReallyUnknown:     []PackageLicense{},
		ComponentConflict: []ComponentConflict{},
	}
	if resp == nil {
		return out, nil
	}

	switch resp.status() {
	case statusUnknown:
		for _, comp := range resp.Packages {
			analysis, ok := decodeAnalysis(comp.LicenseAnalysis)
			if !ok || analysis.Status != statusUnknown {
				continue
			}
			pkg := packageOrUnknown(comp.Package)
			for _, lic := range analysis.UnknownLicenses {
				out.ReallyUnknown = append(out.ReallyUnknown, PackageLicense{
					Package: pkg,
					License: lic,
				})
			}
		}

	case statusComponentConflict:
		for _, comp := range resp.Packages {
			analysis, ok := decodeAnalysis(comp.LicenseAnalysis)
			if !ok || analysis.Status != statusConflict {
				continue
			}
			pairs := make([]LicensePair, 0, len(analysis.ConflictLicenses))
			for _, pair := range analysis.ConflictLicenses {
				if len(pair) != 2 {
					return UnknownLicenses{}, errors.New(errors.ErrCodeContract,
						"conflict_licenses pair has %d members, want exactly 2", len(pair))
				}
				pairs = append(pairs, LicensePair{License1: pair[0], License2: pair[1]})
			}
			out.ComponentConflict = append(out.ComponentConflict, ComponentConflict{
				Package:          packageOrUnknown(comp.Package),
				ConflictLicenses: pairs,
			})
		}
	}

	return out, nil
}

// extractLicenseOutliers projects the outlier map — packages whose license
// differs markedly from the stack's dominant pattern — to a list, in
// lexicographic package order for determinism. A missing license value
// defaults to "Unknown".
func extractLicenseOutliers(resp *ScoringResponse) []PackageLicense {
	outliers := []PackageLicense{}
	if resp == nil {
		return outliers
	}

	pkgs := make([]string, 0, len(resp.OutlierPackages))
	for pkg := range resp.OutlierPackages {
		pkgs = append(pkgs, pkg)
	}
	sort.Strings(pkgs)

	for _, pkg := range pkgs {
		lic := resp.OutlierPackages[pkg]
		if lic == "" {
			lic = statusUnknown
		}
		outliers = append(outliers, PackageLicense{Package: pkg, License: lic})
	}
	return outliers
}

// interpretResponse combines the independent extractions into the license
// facets for one manifest. The only error it returns is a response
// contract violation.
func interpretResponse(resp *ScoringResponse) (LicenseFacets, error) {
	facets := LicenseFacets{
		Status:        resp.Status,
		StackLicenses: []string{},
	}
	if resp.StackLicense != nil {
		facets.StackLicenses = []string{*resp.StackLicense}
	}

	unknown, err := extractUnknownLicenses(resp)
	if err != nil {
		return LicenseFacets{}, err
	}
	conflicts, err := extractConflictPackages(resp)
	if err != nil {
		return LicenseFacets{}, err
	}

	facets.UnknownLicenses = unknown
	facets.ConflictPackages = conflicts
	facets.OutlierPackages = extractLicenseOutliers(resp)
	return facets, nil
}

// emptyFacets is the facets value for a manifest where license analysis
// did not run: status unset, every bucket empty.
func emptyFacets() LicenseFacets {
	return LicenseFacets{
		StackLicenses: []string{},
		UnknownLicenses: UnknownLicenses{
			ReallyUnknown:     []PackageLicense{},
			ComponentConflict: []ComponentConflict{},
		},
		ConflictPackages: []ConflictPackages{},
		OutlierPackages:  []PackageLicense{},
	}
}

func decodeAnalysis(raw json.RawMessage) (componentAnalysis, bool) {
	var analysis componentAnalysis
	if len(raw) == 0 || json.Unmarshal(raw, &analysis) != nil {
		return componentAnalysis{}, false
	}
	return analysis, true
}

func packageOrUnknown(pkg string) string {
	if pkg == "" {
		return statusUnknown
	}
	return pkg
}
