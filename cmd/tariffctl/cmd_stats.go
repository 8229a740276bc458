package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print row counts across the document, measure, assertion and review stores",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, resolvedConfigPath())
	if err != nil {
		return infraErr(err)
	}
	defer a.close()

	st, err := a.store.Stats(ctx)
	if err != nil {
		return infraErr(err)
	}

	rows := [][]string{
		{"documents", strconv.Itoa(st.Documents)},
		{"document_chunks", strconv.Itoa(st.Chunks)},
		{"current_tariff_measures", strconv.Itoa(st.CurrentMeasures)},
		{"verified_assertions (current)", strconv.Itoa(st.Assertions)},
		{"reviews pending", strconv.Itoa(st.ReviewsPending)},
		{"reviews resolved", strconv.Itoa(st.ReviewsResolved)},
		{"reviews dismissed", strconv.Itoa(st.ReviewsDismissed)},
		{"source versions", strconv.Itoa(st.SourceVersions)},
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderStatsTable("tariffstack store", []string{"metric", "count"}, rows))
	if st.ReviewsPending > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%d review entries pending triage (run `tariffctl review list`)\n", st.ReviewsPending)
	}
	return nil
}

// renderStatsTable is a minimal lipgloss table: two columns, a title,
// and a dashed divider under the header. It doesn't share the
// teacher's Styles-coupled SimpleTable (cmd/nerd/ui), since tariffctl
// has no TUI theme to borrow styles from.
func renderStatsTable(title string, headers []string, rows [][]string) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Underline(true)
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	sepStyle := lipgloss.NewStyle().Faint(true)

	colWidths := make([]int, len(headers))
	for i, h := range headers {
		colWidths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(colWidths) && lipgloss.Width(cell) > colWidths[i] {
				colWidths[i] = lipgloss.Width(cell)
			}
		}
	}
	for i := range colWidths {
		colWidths[i] += 2
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	for i, h := range headers {
		sb.WriteString(headerStyle.Width(colWidths[i]).Render(h))
	}
	sb.WriteString("\n")

	total := 0
	for _, w := range colWidths {
		total += w
	}
	sb.WriteString(sepStyle.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	for _, row := range rows {
		for i, cell := range row {
			if i < len(colWidths) {
				sb.WriteString(cellStyle.Width(colWidths[i]).Render(cell))
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
