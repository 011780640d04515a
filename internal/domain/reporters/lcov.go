package reporters

import (
	"bytes"
	"fmt"
	"sort"

	"covrun.dev/pkg/covrun/internal/adapter"
	m "covrun.dev/pkg/covrun/internal/model"
)

// lcovFileName is the artifact produced by the lcovonly format.
const lcovFileName = "lcov.info"

// renderLCOV writes an lcov tracefile: FN/FNDA function records, DA
// line records, BRDA branch records, plus the LF/LH and BRF/BRH totals
// consumers expect.
func renderLCOV(fs adapter.SourceFSAdapter, coverage m.CoverageMap, outDir m.Path) error {
	var buf bytes.Buffer

	for _, path := range sortedPaths(coverage) {
		fc := coverage[path]

		fmt.Fprintf(&buf, "TN:\n")
		fmt.Fprintf(&buf, "SF:%s\n", fc.Meta.Path)

		for i, fn := range fc.Meta.Functions {
			fmt.Fprintf(&buf, "FN:%d,%s\n", fn.Decl.Start.Line, fn.Name)

			hits := uint64(0)
			if i < len(fc.Funcs) {
				hits = fc.Funcs[i]
			}

			fmt.Fprintf(&buf, "FNDA:%d,%s\n", hits, fn.Name)
		}

		fmt.Fprintf(&buf, "FNF:%d\n", len(fc.Meta.Functions))
		fmt.Fprintf(&buf, "FNH:%d\n", coveredFuncs(fc))

		branchesFound, branchesHit := 0, 0

		for i, branch := range fc.Meta.Branches {
			for j := range branch.Arms {
				branchesFound++

				hits := uint64(0)
				if i < len(fc.Branches) && j < len(fc.Branches[i]) {
					hits = fc.Branches[i][j]
				}

				if hits > 0 {
					branchesHit++
				}

				fmt.Fprintf(&buf, "BRDA:%d,%d,%d,%d\n", branch.Loc.Start.Line, i, j, hits)
			}
		}

		fmt.Fprintf(&buf, "BRF:%d\n", branchesFound)
		fmt.Fprintf(&buf, "BRH:%d\n", branchesHit)

		lineHits := fc.LineHits()
		lines := make([]int, 0, len(lineHits))

		for line := range lineHits {
			lines = append(lines, line)
		}

		sort.Ints(lines)

		linesHit := 0

		for _, line := range lines {
			if lineHits[line] > 0 {
				linesHit++
			}

			fmt.Fprintf(&buf, "DA:%d,%d\n", line, lineHits[line])
		}

		fmt.Fprintf(&buf, "LF:%d\n", len(lines))
		fmt.Fprintf(&buf, "LH:%d\n", linesHit)
		fmt.Fprintf(&buf, "end_of_record\n")
	}

	return fs.WriteFile(fs.JoinPath(string(outDir), lcovFileName), buf.Bytes(), 0o600)
}

func coveredFuncs(fc *m.FileCoverage) int {
	covered := 0

	for _, count := range fc.Funcs {
		if count > 0 {
			covered++
		}
	}

	return covered
}
