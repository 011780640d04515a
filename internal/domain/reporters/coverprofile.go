package reporters

import (
	"bytes"
	"fmt"

	"covrun.dev/pkg/covrun/internal/adapter"
	m "covrun.dev/pkg/covrun/internal/model"
)

// profileFileName is the artifact produced by the coverprofile format.
const profileFileName = "coverage.out"

// renderCoverProfile writes a Go cover profile in count mode. Each
// counted statement becomes one block line, so the output is consumable
// by go tool cover and profile-merging tools.
func renderCoverProfile(fs adapter.SourceFSAdapter, coverage m.CoverageMap, outDir m.Path) error {
	var buf bytes.Buffer

	buf.WriteString("mode: count\n")

	for _, path := range sortedPaths(coverage) {
		fc := coverage[path]

		for i, stmt := range fc.Meta.Statements {
			count := uint64(0)
			if i < len(fc.Stmts) {
				count = fc.Stmts[i]
			}

			fmt.Fprintf(&buf, "%s:%d.%d,%d.%d 1 %d\n",
				fc.Meta.Path,
				stmt.Loc.Start.Line, stmt.Loc.Start.Col,
				stmt.Loc.End.Line, stmt.Loc.End.Col,
				count,
			)
		}
	}

	return fs.WriteFile(fs.JoinPath(string(outDir), profileFileName), buf.Bytes(), 0o600)
}
