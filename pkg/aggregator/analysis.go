package aggregator

import (
	"context"

	"github.com/charmbracelet/log"
)

// LicenseAnalyzer submits one manifest's scoring payload to the license
// scoring service. Implementations own transport concerns; the engine
// treats any returned error as "no license analysis for this manifest".
type LicenseAnalyzer interface {
	StackLicense(ctx context.Context, packages []LicenseScoringInput) (*ScoringResponse, error)
}

// scoringInputs builds the per-component payload for the license service
// from the extracted summaries.
func scoringInputs(components []ComponentSummary) []LicenseScoringInput {
	inputs := make([]LicenseScoringInput, 0, len(components))
	for _, c := range components {
		inputs = append(inputs, LicenseScoringInput{
			Package:  c.Name,
			Version:  c.Version,
			Licenses: c.Licenses,
		})
	}
	return inputs
}

// performLicenseAnalysis invokes the license service once for a manifest
// and interprets the response into license facets. On transport failure
// the manifest is treated as having no license analysis: the returned
// facets carry an unset status and empty buckets, and no component is
// modified. On success, each scored package matching a component by exact
// (name, version) string equality gets the service's license_analysis
// object attached; components with no match are left unmodified.
//
// The only error returned is a response-contract violation, which aborts
// the aggregation rather than producing a silently malformed report.
func performLicenseAnalysis(ctx context.Context, analyzer LicenseAnalyzer, logger *log.Logger, components []ComponentSummary) (LicenseFacets, error) {
	resp, err := analyzer.StackLicense(ctx, scoringInputs(components))
	if err != nil {
		logger.Error("license analysis request failed, reporting manifest without license data", "err", err)
		return emptyFacets(), nil
	}

	for _, scored := range resp.Packages {
		for i := range components {
			if components[i].Name == scored.Package && components[i].Version == scored.Version {
				components[i].LicenseAnalysis = scored.LicenseAnalysis
			}
		}
	}

	return interpretResponse(resp)
}

// stackLicenseConflict reports whether the service failed to resolve a
// single representative license for the whole stack. An empty resolved
// stack-license list is the primary risk signal, regardless of why
// resolution failed.
func stackLicenseConflict(facets LicenseFacets) bool {
	return len(facets.StackLicenses) == 0
}
