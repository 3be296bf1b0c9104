package render

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/goccy/go-graphviz"

	"github.com/stackaudit/stackaudit/pkg/aggregator"
)

// ConflictDOT converts one manifest's license findings to Graphviz DOT.
// Nodes are packages labeled with their licenses; solid edges connect
// stack-level conflict pairs, and outlier packages render as dashed
// standalone nodes. An empty graph (no conflicts, no outliers) still
// yields valid DOT.
func ConflictDOT(info aggregator.UserStackInfo) string {
	var buf bytes.Buffer
	buf.WriteString("graph conflicts {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	licenses := make(map[string]string)
	for _, pair := range info.LicenseAnalysis.ConflictPackages {
		licenses[pair.Package1] = pair.License1
		licenses[pair.Package2] = pair.License2
	}

	names := make([]string, 0, len(licenses))
	for name := range licenses {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(&buf, "  %q [label=%q];\n", name, nodeLabel(name, licenses[name]))
	}
	for _, out := range info.LicenseAnalysis.OutlierPackages {
		if _, conflicting := licenses[out.Package]; conflicting {
			continue
		}
		fmt.Fprintf(&buf, "  %q [label=%q, style=\"rounded,filled,dashed\", fillcolor=lightgrey];\n",
			out.Package, nodeLabel(out.Package, out.License))
	}

	buf.WriteString("\n")
	for _, pair := range info.LicenseAnalysis.ConflictPackages {
		fmt.Fprintf(&buf, "  %q -- %q;\n", pair.Package1, pair.Package2)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(pkg, license string) string {
	if license == "" {
		return pkg
	}
	return pkg + "\n" + license
}

// ToSVG renders a DOT graph to SVG using Graphviz.
func ToSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// HasFindings reports whether the manifest has anything worth drawing.
func HasFindings(info aggregator.UserStackInfo) bool {
	return len(info.LicenseAnalysis.ConflictPackages) > 0 ||
		len(info.LicenseAnalysis.OutlierPackages) > 0
}

// Summary returns a one-line description of the graph's contents for log
// and CLI output.
func Summary(info aggregator.UserStackInfo) string {
	return fmt.Sprintf("%d conflict pairs, %d outliers",
		len(info.LicenseAnalysis.ConflictPackages),
		len(info.LicenseAnalysis.OutlierPackages))
}
