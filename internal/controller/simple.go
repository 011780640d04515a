package controller

import (
	"bytes"
	"context"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"covrun.dev/pkg/covrun/internal/domain"
)

// SimpleUI implements UI using cobra Command's output stream.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
	// SimpleUI doesn't block - it just prints and continues
}

// DisplayRunInfo shows the coverage tracking setup.
func (s *SimpleUI) DisplayRunInfo(ctx context.Context, sources int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Tracking %d source file(s)\n", sources)
}

// DisplayFailures shows the test failure count.
func (s *SimpleUI) DisplayFailures(ctx context.Context, failures int) {
	if err := ctx.Err(); err != nil {
		return
	}

	if failures == 0 {
		s.printf("All tests passed\n")
		return
	}

	s.printf("Test failures: %d\n", failures)
}

// DisplayConstructCounts prints a per-file table of instrumentable
// constructs.
func (s *SimpleUI) DisplayConstructCounts(ctx context.Context, counts []ConstructCount) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderCountsTable(counts))

	return nil
}

func renderCountsTable(counts []ConstructCount) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Statements", "Branches", "Functions"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
	})

	totalStmts := 0
	totalBranches := 0
	totalFuncs := 0

	for _, count := range counts {
		table.Append([]string{
			string(count.Path),
			fmt.Sprintf("%d", count.Statements),
			fmt.Sprintf("%d", count.Branches),
			fmt.Sprintf("%d", count.Functions),
		})

		totalStmts += count.Statements
		totalBranches += count.Branches
		totalFuncs += count.Functions
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(counts)),
		fmt.Sprintf("%d", totalStmts),
		fmt.Sprintf("%d", totalBranches),
		fmt.Sprintf("%d", totalFuncs),
	})

	table.Render()

	return tableBuffer.String()
}

// DisplaySummary prints the per-file coverage table and total.
func (s *SimpleUI) DisplaySummary(ctx context.Context, summary domain.Summary) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderSummaryTable(summary))
	s.printf("Statement coverage: %.2f%%\n", summary.StmtPercent())

	return nil
}

func renderSummaryTable(summary domain.Summary) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Stmts", "Covered", "Coverage"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER,
	})

	for _, file := range summary.Files {
		table.Append([]string{
			string(file.Path),
			fmt.Sprintf("%d", file.Statements),
			fmt.Sprintf("%d", file.CoveredStmts),
			fmt.Sprintf("%.2f%%", file.StmtPercent()),
		})
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Files %d", len(summary.Files)),
		fmt.Sprintf("%d", summary.Statements),
		fmt.Sprintf("%d", summary.CoveredStmts),
		fmt.Sprintf("%.2f%%", summary.StmtPercent()),
	})

	table.Render()

	return tableBuffer.String()
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}
