// Package reporters renders an aggregated coverage map into the known
// on-disk report formats. The format set is closed; dispatch on an
// unknown identifier fails with model.ErrUnsupportedReportFormat.
package reporters

import (
	"fmt"
	"sort"

	"covrun.dev/pkg/covrun/internal/adapter"
	m "covrun.dev/pkg/covrun/internal/model"
)

// Render writes one report format for the coverage map into outDir.
func Render(fs adapter.SourceFSAdapter, format m.ReportFormat, coverage m.CoverageMap, outDir m.Path) error {
	switch format {
	case m.FormatText:
		return renderText(fs, coverage, outDir)
	case m.FormatLCOVOnly:
		return renderLCOV(fs, coverage, outDir)
	case m.FormatHTML:
		return renderHTML(fs, coverage, outDir)
	case m.FormatCoverProfile:
		return renderCoverProfile(fs, coverage, outDir)
	default:
		return fmt.Errorf("%w: %q", m.ErrUnsupportedReportFormat, format)
	}
}

// sortedPaths returns the map keys in stable order; every renderer
// walks files in this order so repeated emission is byte-identical.
func sortedPaths(coverage m.CoverageMap) []m.Path {
	paths := make([]m.Path, 0, len(coverage))
	for path := range coverage {
		paths = append(paths, path)
	}

	sort.Slice(paths, func(i, j int) bool { return paths[i] < paths[j] })

	return paths
}

// stmtCoverage counts covered and total statements for one file.
func stmtCoverage(fc *m.FileCoverage) (covered, total int) {
	total = len(fc.Stmts)

	for _, count := range fc.Stmts {
		if count > 0 {
			covered++
		}
	}

	return covered, total
}

func percent(covered, total int) float64 {
	if total == 0 {
		return 100.0
	}

	return float64(covered) / float64(total) * 100
}
