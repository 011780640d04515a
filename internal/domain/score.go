package domain

import (
	"sort"

	m "covrun.dev/pkg/covrun/internal/model"
)

// FileSummary is the per-file rollup used by reports and the UI.
type FileSummary struct {
	Path         m.Path
	Statements   int
	CoveredStmts int
	Branches     int
	CoveredArms  int
	TotalArms    int
	Functions    int
	CoveredFuncs int
}

// StmtPercent returns statement coverage; empty files count as fully
// covered.
func (s FileSummary) StmtPercent() float64 {
	if s.Statements == 0 {
		return 100.0
	}

	return float64(s.CoveredStmts) / float64(s.Statements) * 100
}

// Summary is the whole-run rollup.
type Summary struct {
	Files []FileSummary

	Statements   int
	CoveredStmts int
	TotalArms    int
	CoveredArms  int
	Functions    int
	CoveredFuncs int
}

// StmtPercent returns total statement coverage for the run.
func (s Summary) StmtPercent() float64 {
	if s.Statements == 0 {
		return 100.0
	}

	return float64(s.CoveredStmts) / float64(s.Statements) * 100
}

// Summarize folds a coverage map into per-file and total counts,
// sorted by path for stable output.
func Summarize(coverage m.CoverageMap) Summary {
	var summary Summary

	for path, fc := range coverage {
		file := FileSummary{
			Path:       path,
			Statements: len(fc.Stmts),
			Branches:   len(fc.Branches),
			Functions:  len(fc.Funcs),
		}

		for _, count := range fc.Stmts {
			if count > 0 {
				file.CoveredStmts++
			}
		}

		for _, arms := range fc.Branches {
			file.TotalArms += len(arms)

			for _, count := range arms {
				if count > 0 {
					file.CoveredArms++
				}
			}
		}

		for _, count := range fc.Funcs {
			if count > 0 {
				file.CoveredFuncs++
			}
		}

		summary.Files = append(summary.Files, file)
		summary.Statements += file.Statements
		summary.CoveredStmts += file.CoveredStmts
		summary.TotalArms += file.TotalArms
		summary.CoveredArms += file.CoveredArms
		summary.Functions += file.Functions
		summary.CoveredFuncs += file.CoveredFuncs
	}

	sort.Slice(summary.Files, func(i, j int) bool {
		return summary.Files[i].Path < summary.Files[j].Path
	})

	return summary
}
