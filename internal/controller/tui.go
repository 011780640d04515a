package controller

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"covrun.dev/pkg/covrun/internal/domain"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")).
			Padding(0, 1)

	lowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	highStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle  = lipgloss.NewStyle().Faint(true)
	helpStyle = lipgloss.NewStyle().Faint(true).MarginTop(1)
)

// lowCoverageThreshold separates the red and green percentage styles.
const lowCoverageThreshold = 80.0

// TUI implements an interactive coverage viewer using Bubble Tea.
type TUI struct {
	output io.Writer
}

// NewTUI creates a new TUI.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// DisplayCoverageSummary shows the per-file coverage summary. Small
// summaries are printed directly; larger ones open a scrollable viewer.
func (t *TUI) DisplayCoverageSummary(summary domain.Summary) error {
	model := newSummaryModel(summary)

	if !model.needsPagination() {
		_, err := fmt.Fprint(t.output, model.View())
		return err
	}

	program := tea.NewProgram(model, tea.WithOutput(t.output), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return err
	}

	return nil
}

// summaryModel is the Bubble Tea model for the coverage summary list.
type summaryModel struct {
	summary  domain.Summary
	bar      progress.Model
	height   int
	width    int
	offset   int
	quitting bool
}

func newSummaryModel(summary domain.Summary) summaryModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30
	bar.ShowPercentage = false

	return summaryModel{
		summary: summary,
		bar:     bar,
	}
}

func (sm summaryModel) Init() tea.Cmd {
	return nil
}

func (sm summaryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		sm.height = msg.Height
		sm.width = msg.Width

		return sm, nil

	case tea.KeyMsg:
		return sm.handleKeyPress(msg)
	}

	return sm, nil
}

//nolint:cyclop,exhaustive // Key handling requires multiple cases for UI navigation
func (sm summaryModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		sm.quitting = true
		return sm, tea.Quit
	default:
		// Handle other key types in the string switch below
	}

	switch msg.String() {
	case "q":
		sm.quitting = true
		return sm, tea.Quit

	case "down", "j":
		sm.offset++

		if maxOffset := sm.maxOffset(); sm.offset > maxOffset {
			sm.offset = maxOffset
		}

		return sm, nil

	case "up", "k":
		sm.offset--
		if sm.offset < 0 {
			sm.offset = 0
		}

		return sm, nil

	case "g", "home":
		sm.offset = 0

		return sm, nil

	case "G", "end":
		sm.offset = sm.maxOffset()

		return sm, nil

	case "d", "pgdown":
		sm.offset += sm.itemsPerPage()

		if maxOffset := sm.maxOffset(); sm.offset > maxOffset {
			sm.offset = maxOffset
		}

		return sm, nil

	case "u", "pgup":
		sm.offset -= sm.itemsPerPage()
		if sm.offset < 0 {
			sm.offset = 0
		}

		return sm, nil
	}

	return sm, nil
}

// itemsPerPage calculates how many file rows fit on screen.
func (sm summaryModel) itemsPerPage() int {
	if sm.height == 0 {
		return 10 // Default
	}
	// Reserve space for:
	// - Title: 2 lines
	// - Totals: 2 lines
	// - Footer: 3 lines (empty + page + help)
	reserved := 7

	available := sm.height - reserved
	if available < 1 {
		return 1
	}

	return available
}

// maxOffset returns the maximum scroll offset.
func (sm summaryModel) maxOffset() int {
	perPage := sm.itemsPerPage()
	if perPage <= 0 {
		return 0
	}

	maxOff := len(sm.summary.Files) - perPage
	if maxOff < 0 {
		return 0
	}

	return maxOff
}

// needsPagination returns true if the list is too large to fit on screen.
func (sm summaryModel) needsPagination() bool {
	if len(sm.summary.Files) == 0 {
		return false
	}

	return len(sm.summary.Files) > sm.itemsPerPage() && sm.height > 0
}

func (sm summaryModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Coverage Summary"))
	b.WriteString("\n\n")

	if len(sm.summary.Files) == 0 {
		b.WriteString(dimStyle.Render("  no files in coverage map"))
		b.WriteString("\n")

		return b.String()
	}

	sm.renderFileList(&b)

	return b.String()
}

func (sm summaryModel) renderFileList(b *strings.Builder) {
	totalFiles := len(sm.summary.Files)
	needsPagination := sm.needsPagination()

	start := sm.offset

	end := start + sm.itemsPerPage()
	if end > totalFiles {
		end = totalFiles
	}

	if start >= totalFiles {
		start = totalFiles - 1
		if start < 0 {
			start = 0
		}
	}

	files := sm.summary.Files
	if needsPagination {
		files = files[start:end]
	}

	pathWidth := 0

	for _, file := range files {
		if len(file.Path) > pathWidth {
			pathWidth = len(file.Path)
		}
	}

	for _, file := range files {
		pct := file.StmtPercent()

		pctStyle := highStyle
		if pct < lowCoverageThreshold {
			pctStyle = lowStyle
		}

		fmt.Fprintf(b, "  %-*s %s %s\n",
			pathWidth, file.Path,
			sm.bar.ViewAs(pct/100),
			pctStyle.Render(fmt.Sprintf("%6.2f%%", pct)))
	}

	b.WriteString("\n")
	fmt.Fprintf(b, "  Total: %d/%d statements, %.2f%%\n",
		sm.summary.CoveredStmts, sm.summary.Statements, sm.summary.StmtPercent())

	if needsPagination {
		perPage := sm.itemsPerPage()
		currentPage := (sm.offset / perPage) + 1
		totalPages := (totalFiles + perPage - 1) / perPage

		fmt.Fprintf(b, "\n  Page %d/%d | Showing %d-%d of %d\n",
			currentPage, totalPages, start+1, end, totalFiles)
		b.WriteString(helpStyle.Render("  ↑/k: up | ↓/j: down | g: top | G: bottom | q: quit"))
		b.WriteString("\n")
	}
}
