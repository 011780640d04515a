// Package controller provides output adapters for displaying coverage results.
package controller

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"covrun.dev/pkg/covrun/internal/domain"
	m "covrun.dev/pkg/covrun/internal/model"
)

// ConstructCount holds the instrumentable construct counts discovered in
// a single source file.
type ConstructCount struct {
	Path       m.Path
	Statements int
	Branches   int
	Functions  int
}

// UI defines the interface for displaying coverage output.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplayRunInfo(ctx context.Context, sources int)
	DisplayFailures(ctx context.Context, failures int)
	DisplayConstructCounts(ctx context.Context, counts []ConstructCount) error
	DisplaySummary(ctx context.Context, summary domain.Summary) error
}

// IsTTY reports whether w writes to an interactive terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
