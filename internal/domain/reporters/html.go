package reporters

import (
	"bytes"
	"fmt"
	"html/template"

	"covrun.dev/pkg/covrun/internal/adapter"
	m "covrun.dev/pkg/covrun/internal/model"
)

// htmlFileName is the artifact produced by the html format.
const htmlFileName = "coverage.html"

var htmlTemplate = template.Must(template.New("coverage").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Coverage Report</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #1f2933; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.4em 0.8em; border-bottom: 1px solid #d2d6dc; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
tr.high td.pct { color: #16a34a; font-weight: bold; }
tr.low td.pct { color: #dc2626; font-weight: bold; }
tfoot td { font-weight: bold; border-top: 2px solid #1f2933; }
</style>
</head>
<body>
<h1>Coverage Report</h1>
<p>Total statement coverage: <strong>{{printf "%.1f" .TotalPercent}}%</strong></p>
<table>
<thead>
<tr><th>File</th><th>Statements</th><th>Covered</th><th>Coverage</th></tr>
</thead>
<tbody>
{{range .Files}}<tr class="{{.Class}}"><td>{{.Path}}</td><td class="num">{{.Stmts}}</td><td class="num">{{.Covered}}</td><td class="num pct">{{printf "%.1f" .Percent}}%</td></tr>
{{end}}</tbody>
<tfoot>
<tr><td>{{.FileCount}} files</td><td class="num">{{.TotalStmts}}</td><td class="num">{{.TotalCovered}}</td><td class="num">{{printf "%.1f" .TotalPercent}}%</td></tr>
</tfoot>
</table>
</body>
</html>
`))

type htmlRow struct {
	Path    string
	Stmts   int
	Covered int
	Percent float64
	Class   string
}

type htmlPage struct {
	Files        []htmlRow
	FileCount    int
	TotalStmts   int
	TotalCovered int
	TotalPercent float64
}

// renderHTML writes a single-page report with per-file rows.
func renderHTML(fs adapter.SourceFSAdapter, coverage m.CoverageMap, outDir m.Path) error {
	page := htmlPage{FileCount: len(coverage)}

	for _, path := range sortedPaths(coverage) {
		covered, stmts := stmtCoverage(coverage[path])
		pct := percent(covered, stmts)

		class := "low"
		if pct >= 80 {
			class = "high"
		}

		page.Files = append(page.Files, htmlRow{
			Path:    string(path),
			Stmts:   stmts,
			Covered: covered,
			Percent: pct,
			Class:   class,
		})

		page.TotalStmts += stmts
		page.TotalCovered += covered
	}

	page.TotalPercent = percent(page.TotalCovered, page.TotalStmts)

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, page); err != nil {
		return fmt.Errorf("failed to render html report: %w", err)
	}

	return fs.WriteFile(fs.JoinPath(string(outDir), htmlFileName), buf.Bytes(), 0o600)
}
