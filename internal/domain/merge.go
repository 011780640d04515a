package domain

import (
	"fmt"

	m "covrun.dev/pkg/covrun/internal/model"
)

// MergeSnapshots folds per-process coverage snapshots into one map,
// summing counters entry by entry. Metadata comes from the first
// snapshot that mentions a file; later snapshots for the same file
// must agree on construct counts or the merge fails.
func MergeSnapshots(snapshots []m.CoverageMap) (m.CoverageMap, error) {
	if len(snapshots) == 0 {
		return nil, ErrNoCoverage
	}

	merged := make(m.CoverageMap)

	for _, snapshot := range snapshots {
		for path, fc := range snapshot {
			existing, ok := merged[path]
			if !ok {
				merged[path] = cloneFileCoverage(fc)
				continue
			}

			if err := addCounters(existing, fc); err != nil {
				return nil, fmt.Errorf("merge %s: %w", path, err)
			}
		}
	}

	return merged, nil
}

func cloneFileCoverage(fc *m.FileCoverage) *m.FileCoverage {
	clone := &m.FileCoverage{
		Path:     fc.Path,
		Meta:     fc.Meta,
		Stmts:    append([]uint64(nil), fc.Stmts...),
		Funcs:    append([]uint64(nil), fc.Funcs...),
		Branches: make([][]uint64, len(fc.Branches)),
	}

	for i, arms := range fc.Branches {
		clone.Branches[i] = append([]uint64(nil), arms...)
	}

	return clone
}

func addCounters(dst, src *m.FileCoverage) error {
	if len(dst.Stmts) != len(src.Stmts) ||
		len(dst.Funcs) != len(src.Funcs) ||
		len(dst.Branches) != len(src.Branches) {
		return fmt.Errorf("snapshots disagree on file shape")
	}

	for i, count := range src.Stmts {
		dst.Stmts[i] += count
	}

	for i, count := range src.Funcs {
		dst.Funcs[i] += count
	}

	for i, arms := range src.Branches {
		if len(dst.Branches[i]) != len(arms) {
			return fmt.Errorf("snapshots disagree on branch arms")
		}

		for j, count := range arms {
			dst.Branches[i][j] += count
		}
	}

	return nil
}
