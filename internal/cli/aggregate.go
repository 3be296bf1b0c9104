package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/stackaudit/stackaudit/pkg/aggregator"
	"github.com/stackaudit/stackaudit/pkg/errors"
)

// aggregateOpts holds the command-line flags for the aggregate command.
type aggregateOpts struct {
	dryRun  bool   // skip license analysis and persistence
	noCache bool   // disable the metadata cache
	output  string // write the full report JSON to this file
	quiet   bool   // suppress the styled summary, print JSON to stdout
}

// aggregateCommand creates the aggregate command. It reads one
// aggregation request from a JSON file (or stdin with "-"), runs the
// engine, and prints a per-manifest summary.
func (c *CLI) aggregateCommand() *cobra.Command {
	opts := aggregateOpts{}

	cmd := &cobra.Command{
		Use:   "aggregate <request.json>",
		Short: "Run one aggregation request",
		Long: `Run one aggregation request from a JSON file or stdin.

The request lists one or more manifests with their resolved dependencies;
each dependency is looked up in the graph metadata store and the combined
license picture is scored. Without --dry-run the report is persisted to
the configured report store under the request id.

Examples:
  stackaudit aggregate request.json
  stackaudit aggregate request.json --dry-run --json
  cat request.json | stackaudit aggregate -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAggregate(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "skip license analysis and persistence")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the metadata cache")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the full report JSON to a file")
	cmd.Flags().BoolVar(&opts.quiet, "json", false, "print the report JSON to stdout instead of a summary")

	return cmd
}

func (c *CLI) runAggregate(ctx context.Context, path string, opts aggregateOpts) error {
	req, err := loadRequest(path)
	if err != nil {
		return err
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	persist := !opts.dryRun
	agg, reports, err := c.newAggregator(ctx, cfg, persist, opts.noCache)
	if err != nil {
		return err
	}
	if reports != nil {
		defer reports.Close(context.Background())
	}

	spinner := newSpinner(ctx, fmt.Sprintf("Aggregating %d manifests", len(req.Manifests)))
	spinner.Start()

	outcome, err := agg.Execute(ctx, req, persist)
	if err != nil {
		spinner.StopWithError("Aggregation failed")
		return err
	}
	spinner.Stop()

	if opts.output != "" {
		if err := writeReportFile(opts.output, outcome); err != nil {
			return err
		}
	}

	if opts.quiet {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcome)
	}

	printOutcome(outcome, opts)
	return nil
}

// loadRequest reads and validates an aggregation request. "-" reads
// stdin. A missing request id is filled in with a generated one so local
// runs don't need to invent ids.
func loadRequest(path string) (*aggregator.Request, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "reading request")
	}

	var req aggregator.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidRequest, err, "parsing request")
	}
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

func writeReportFile(path string, outcome *aggregator.Outcome) error {
	data, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return err
	}
	return nil
}

// printOutcome renders the styled per-manifest summary.
func printOutcome(outcome *aggregator.Outcome, opts aggregateOpts) {
	if outcome.Status != aggregator.StatusSuccess {
		printError("Aggregation computed but not persisted (%s)", outcome.Status)
		printDetail("%s", outcome.Message)
		return
	}

	printSuccess("Aggregated request %s", StyleHighlight.Render(outcome.RequestID))
	printNewline()

	for _, report := range outcome.Result.StackData {
		info := report.UserStackInfo
		printKeyValue("manifest", report.ManifestName)
		printKeyValue("ecosystem", info.Ecosystem)
		printKeyValue("analyzed", fmt.Sprintf("%d", info.AnalyzedDependenciesCount))
		printKeyValue("unknown", fmt.Sprintf("%d", info.UnknownDependenciesCount))
		printKeyValue("licenses", summarizeLicenses(info.DistinctLicenses))
		printKeyValue("conflict", conflictLabel(info.StackLicenseConflict))
		if n := len(info.LicenseAnalysis.ConflictPackages); n > 0 {
			printDetail("%d conflicting package pairs", n)
		}
		if n := len(info.LicenseAnalysis.OutlierPackages); n > 0 {
			printDetail("%d license outliers", n)
		}
		printNewline()
	}

	if opts.output != "" {
		printFile(opts.output)
	}
	if !opts.dryRun {
		printNextStep("Inspect the stored report", "stackaudit report "+outcome.RequestID)
	}
}

func summarizeLicenses(licenses []string) string {
	if len(licenses) == 0 {
		return "none"
	}
	if len(licenses) > 5 {
		return fmt.Sprintf("%s … (%d total)", strings.Join(licenses[:5], ", "), len(licenses))
	}
	return strings.Join(licenses, ", ")
}

func conflictLabel(conflict *bool) string {
	switch {
	case conflict == nil:
		return StyleDim.Render("not analyzed")
	case *conflict:
		return StyleError.Render("yes")
	default:
		return StyleSuccess.Render("no")
	}
}
