package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackaudit/stackaudit/pkg/errors"
	"github.com/stackaudit/stackaudit/pkg/render"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	format   string // "dot" or "svg"
	output   string // output file path (stdout if empty)
	manifest int    // index into the report's stack_data
}

// graphCommand creates the graph command rendering a stored report's
// license conflicts.
func (c *CLI) graphCommand() *cobra.Command {
	opts := graphOpts{format: "dot"}

	cmd := &cobra.Command{
		Use:   "graph <request-id>",
		Short: "Render a report's license conflicts as DOT or SVG",
		Long: `Render a stored report's license conflicts as a Graphviz graph.

Conflicting package pairs become connected nodes; license outliers render
as dashed standalone nodes. Reports with several manifests pick the first
one by default; use --manifest to select another.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: dot or svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().IntVarP(&opts.manifest, "manifest", "m", 0, "manifest index within the report")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, id string, opts graphOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	reports, err := c.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer reports.Close(context.Background())

	result, err := reports.GetResult(ctx, id)
	if err != nil {
		return err
	}
	if opts.manifest < 0 || opts.manifest >= len(result.StackData) {
		return errors.New(errors.ErrCodeInvalidInput,
			"manifest index %d out of range, report has %d manifests", opts.manifest, len(result.StackData))
	}

	info := result.StackData[opts.manifest].UserStackInfo
	if !render.HasFindings(info) {
		printInfo("No conflicts or outliers in manifest %d, graph will be empty", opts.manifest)
	}

	dot := render.ConflictDOT(info)

	var data []byte
	switch opts.format {
	case "dot":
		data = []byte(dot)
	case "svg":
		if data, err = render.ToSVG(dot); err != nil {
			return err
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown format %q, want dot or svg", opts.format)
	}

	if opts.output == "" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return err
	}
	printSuccess("Rendered %s (%s)", render.Summary(info), opts.format)
	printFile(opts.output)
	return nil
}
