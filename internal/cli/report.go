package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/stackaudit/stackaudit/pkg/aggregator"
	"github.com/stackaudit/stackaudit/pkg/errors"
)

// reportCommand creates the report command. With an id it shows that
// report; without one it opens an interactive browser over the stored
// request ids.
func (c *CLI) reportCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report [request-id]",
		Short: "Show or browse stored aggregation reports",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			reports, err := c.openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer reports.Close(context.Background())

			id := ""
			if len(args) == 1 {
				id = args[0]
			} else {
				if id, err = pickRequestID(cmd.Context(), reports); err != nil || id == "" {
					return err
				}
			}

			result, err := reports.GetResult(cmd.Context(), id)
			if err != nil {
				if errors.Is(err, errors.ErrCodeReportNotFound) {
					printError("No report for request %s", id)
					return nil
				}
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printReport(id, result)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report JSON instead of a summary")

	return cmd
}

// pickRequestID runs the interactive browser and returns the chosen id,
// or "" when the user quit without choosing.
func pickRequestID(ctx context.Context, reports reportLister) (string, error) {
	ids, err := reports.ListRequestIDs(ctx)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		printInfo("No stored reports")
		return "", nil
	}

	model := newReportListModel(ids)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return "", err
	}
	return final.(reportListModel).selected, nil
}

// reportLister is the slice of the store the browser needs.
type reportLister interface {
	ListRequestIDs(ctx context.Context) ([]string, error)
}

func printReport(id string, result *aggregator.AggregationResult) {
	fmt.Println(StyleTitle.Render("Report " + id))
	printDetail("v%s · %s — %s", result.Audit.Version, result.Audit.StartedAt, result.Audit.EndedAt)
	printNewline()

	for _, report := range result.StackData {
		info := report.UserStackInfo
		printKeyValue("manifest", report.ManifestName)
		printKeyValue("ecosystem", info.Ecosystem)
		printKeyValue("analyzed", fmt.Sprintf("%d", info.AnalyzedDependenciesCount))
		printKeyValue("unknown", fmt.Sprintf("%d", info.UnknownDependenciesCount))
		printKeyValue("licenses", summarizeLicenses(info.DistinctLicenses))
		printKeyValue("conflict", conflictLabel(info.StackLicenseConflict))
		printNewline()
	}
}

// =============================================================================
// reportListModel - Interactive report browser
// =============================================================================

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// reportListModel is the bubbletea model listing stored request ids.
type reportListModel struct {
	ids      []string
	cursor   int
	offset   int
	height   int
	selected string
}

func newReportListModel(ids []string) reportListModel {
	return reportListModel{ids: ids, height: 15}
}

func (m reportListModel) Init() tea.Cmd {
	return nil
}

func (m reportListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.ids)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "enter":
			m.selected = m.ids[m.cursor]
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 5
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m reportListModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Stored Reports"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ select  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.ids) {
		end = len(m.ids)
	}

	for i := m.offset; i < end; i++ {
		cursor := "  "
		style := listNormalStyle
		if i == m.cursor {
			cursor = "▸ "
			style = listSelectedStyle
		}
		b.WriteString(cursor + style.Render(m.ids[i]) + "\n")
	}

	return b.String()
}
