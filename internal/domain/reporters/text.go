package reporters

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"

	"covrun.dev/pkg/covrun/internal/adapter"
	m "covrun.dev/pkg/covrun/internal/model"
)

// textFileName is the artifact produced by the text format.
const textFileName = "coverage.txt"

// renderText writes a per-file statement coverage table.
func renderText(fs adapter.SourceFSAdapter, coverage m.CoverageMap, outDir m.Path) error {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"File", "Stmts", "Covered", "Coverage"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})

	totalCovered, total := 0, 0

	for _, path := range sortedPaths(coverage) {
		covered, stmts := stmtCoverage(coverage[path])
		totalCovered += covered
		total += stmts

		table.Append([]string{
			string(path),
			fmt.Sprintf("%d", stmts),
			fmt.Sprintf("%d", covered),
			fmt.Sprintf("%.1f%%", percent(covered, stmts)),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(coverage)),
		fmt.Sprintf("%d", total),
		fmt.Sprintf("%d", totalCovered),
		fmt.Sprintf("%.1f%%", percent(totalCovered, total)),
	})

	table.Render()

	return fs.WriteFile(fs.JoinPath(string(outDir), textFileName), buf.Bytes(), 0o600)
}
