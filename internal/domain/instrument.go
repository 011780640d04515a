// Package domain contains the core coverage pipeline: instrumentation,
// load interception, aggregation, report emission and run orchestration.
package domain

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/token"
	"sort"
	"sync"

	"covrun.dev/pkg/covrun/internal/adapter"
	m "covrun.dev/pkg/covrun/internal/model"
	"covrun.dev/pkg/covrun/pkg/covrt"
)

// covrtImportPath is the runtime package instrumented sources call into.
const covrtImportPath = "covrun.dev/pkg/covrun/pkg/covrt"

// edit is a pending text insertion at a byte offset of the original
// source. Edits never overlap; equal offsets keep insertion order.
type edit struct {
	off  int
	text string
}

// Instrumenter rewrites source text so that executing each statement,
// function and branch arm increments a counter in the run's covrt
// table. Instrumentation is deterministic and pure with respect to its
// inputs, except that static per-file metadata is registered in an
// internal table keyed by file path.
type Instrumenter struct {
	goFiles adapter.GoFileAdapter
	key     covrt.Key

	mu      sync.Mutex
	meta    map[m.Path]m.FileMeta
	srcMaps map[m.Path]*m.SourceMap
}

// NewInstrumenter constructs an Instrumenter recording against the
// given run key.
func NewInstrumenter(goFiles adapter.GoFileAdapter, key covrt.Key) *Instrumenter {
	return &Instrumenter{
		goFiles: goFiles,
		key:     key,
		meta:    map[m.Path]m.FileMeta{},
		srcMaps: map[m.Path]*m.SourceMap{},
	}
}

// Key returns the run key instrumented text records under.
func (in *Instrumenter) Key() covrt.Key {
	return in.key
}

// Instrument rewrites src and registers the file's static metadata.
// A nil source map is tolerated; it only means reported locations stay
// in post-build coordinates.
func (in *Instrumenter) Instrument(src []byte, path m.Path, sourceMap *m.SourceMap) ([]byte, error) {
	meta, edits, err := in.analyze(src, path)
	if err != nil {
		return nil, err
	}

	in.register(path, meta, sourceMap)

	if len(edits) == 0 {
		return append([]byte(nil), src...), nil
	}

	return applyEdits(src, edits), nil
}

// Discover registers the file's static metadata without producing
// instrumented text. The aggregator uses this for files the test run
// never loaded.
func (in *Instrumenter) Discover(src []byte, path m.Path) error {
	meta, _, err := in.analyze(src, path)
	if err != nil {
		return err
	}

	in.register(path, meta, nil)

	return nil
}

// Meta retrieves the registered static metadata for path.
func (in *Instrumenter) Meta(path m.Path) (m.FileMeta, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()

	meta, ok := in.meta[m.NormalizePath(path)]

	return meta, ok
}

// SourceMapFor returns the source map registered with path, if any.
func (in *Instrumenter) SourceMapFor(path m.Path) *m.SourceMap {
	in.mu.Lock()
	defer in.mu.Unlock()

	return in.srcMaps[m.NormalizePath(path)]
}

// FileCoverage builds a fresh FileCoverage from the registered
// metadata, with load-time function counters pre-seeded.
func (in *Instrumenter) FileCoverage(path m.Path) (*m.FileCoverage, bool) {
	meta, ok := in.Meta(path)
	if !ok {
		return nil, false
	}

	return m.NewFileCoverage(meta), true
}

func (in *Instrumenter) register(path m.Path, meta m.FileMeta, sourceMap *m.SourceMap) {
	in.mu.Lock()
	defer in.mu.Unlock()

	normalized := m.NormalizePath(path)
	in.meta[normalized] = meta

	if sourceMap != nil {
		in.srcMaps[normalized] = sourceMap
	}
}

// analyze parses src and produces the counted-construct metadata plus
// the text edits that wire each construct to the covrt table.
func (in *Instrumenter) analyze(src []byte, path m.Path) (m.FileMeta, []edit, error) {
	fset := token.NewFileSet()

	file, err := in.goFiles.Parse(fset, string(path), src)
	if err != nil {
		return m.FileMeta{}, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	w := &walker{
		fset: fset,
		key:  string(in.key),
		path: string(path),
		meta: m.FileMeta{Path: path},
	}

	for _, decl := range file.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Body == nil {
			continue
		}

		w.recordFunc(fd)
	}

	ast.Inspect(file, w.visit)

	if len(w.edits) > 0 {
		importOff := fset.Position(file.Name.End()).Offset
		importText := fmt.Sprintf("\n\nimport covrt %q", covrtImportPath)
		w.edits = append(w.edits, edit{off: importOff, text: importText})
	}

	return w.meta, w.edits, nil
}

// walker accumulates metadata and edits during a single deterministic
// AST traversal.
type walker struct {
	fset  *token.FileSet
	key   string
	path  string
	meta  m.FileMeta
	edits []edit
}

func (w *walker) visit(n ast.Node) bool {
	switch node := n.(type) {
	case *ast.BlockStmt:
		for _, stmt := range node.List {
			switch stmt.(type) {
			case *ast.CaseClause, *ast.CommClause:
				// Clause bodies are handled as branch arms.
			default:
				w.recordStmt(stmt)
			}
		}

	case *ast.CaseClause:
		for _, stmt := range node.Body {
			w.recordStmt(stmt)
		}

	case *ast.CommClause:
		for _, stmt := range node.Body {
			w.recordStmt(stmt)
		}

	case *ast.IfStmt:
		w.recordIf(node)

	case *ast.SwitchStmt:
		w.recordClauses(m.BranchSwitch, node, node.Body.List)

	case *ast.TypeSwitchStmt:
		w.recordClauses(m.BranchSwitch, node, node.Body.List)

	case *ast.SelectStmt:
		w.recordClauses(m.BranchSelect, node, node.Body.List)
	}

	return true
}

func (w *walker) recordFunc(fd *ast.FuncDecl) {
	id := len(w.meta.Functions)

	w.meta.Functions = append(w.meta.Functions, m.FuncMeta{
		Name:     fd.Name.Name,
		Decl:     w.rangeOf(fd.Pos(), fd.End()),
		LoadTime: fd.Name.Name == "init" && fd.Recv == nil,
	})

	w.insert(w.offset(fd.Body.Lbrace)+1,
		fmt.Sprintf("covrt.HitFunc(%q, %q, %d);", w.key, w.path, id))
}

func (w *walker) recordStmt(stmt ast.Stmt) {
	id := len(w.meta.Statements)

	w.meta.Statements = append(w.meta.Statements, m.StmtMeta{
		Loc: w.rangeOf(stmt.Pos(), stmt.End()),
	})

	w.insert(w.offset(stmt.Pos()),
		fmt.Sprintf("covrt.HitStmt(%q, %q, %d); ", w.key, w.path, id))
}

func (w *walker) recordIf(node *ast.IfStmt) {
	id := len(w.meta.Branches)
	branch := m.BranchMeta{
		Kind: m.BranchIf,
		Loc:  w.rangeOf(node.Pos(), node.End()),
	}

	branch.Arms = append(branch.Arms, w.rangeOf(node.Body.Pos(), node.Body.End()))
	w.insert(w.offset(node.Body.Lbrace)+1, w.branchHit(id, 0))

	// An `else if` chain is covered by the nested if's own branch
	// record; only a plain else block becomes a second arm here.
	if elseBlock, ok := node.Else.(*ast.BlockStmt); ok {
		branch.Arms = append(branch.Arms, w.rangeOf(elseBlock.Pos(), elseBlock.End()))
		w.insert(w.offset(elseBlock.Lbrace)+1, w.branchHit(id, 1))
	}

	w.meta.Branches = append(w.meta.Branches, branch)
}

func (w *walker) recordClauses(kind m.BranchKind, node ast.Node, clauses []ast.Stmt) {
	id := len(w.meta.Branches)
	branch := m.BranchMeta{
		Kind: kind,
		Loc:  w.rangeOf(node.Pos(), node.End()),
	}

	for arm, clause := range clauses {
		var body []ast.Stmt

		var colon token.Pos

		switch c := clause.(type) {
		case *ast.CaseClause:
			body, colon = c.Body, c.Colon
		case *ast.CommClause:
			body, colon = c.Body, c.Colon
		default:
			continue
		}

		branch.Arms = append(branch.Arms, w.rangeOf(clause.Pos(), clause.End()))

		if len(body) > 0 {
			w.insert(w.offset(body[0].Pos()), w.branchHit(id, arm)+" ")
		} else {
			w.insert(w.offset(colon)+1, w.branchHit(id, arm))
		}
	}

	w.meta.Branches = append(w.meta.Branches, branch)
}

func (w *walker) branchHit(id, arm int) string {
	return fmt.Sprintf("covrt.HitBranch(%q, %q, %d, %d);", w.key, w.path, id, arm)
}

func (w *walker) insert(off int, text string) {
	w.edits = append(w.edits, edit{off: off, text: text})
}

func (w *walker) offset(pos token.Pos) int {
	return w.fset.Position(pos).Offset
}

func (w *walker) rangeOf(pos, end token.Pos) m.Range {
	start := w.fset.Position(pos)
	stop := w.fset.Position(end)

	return m.Range{
		Start: m.Pos{Line: start.Line, Col: start.Column},
		End:   m.Pos{Line: stop.Line, Col: stop.Column},
	}
}

// applyEdits splices the insertions into src in offset order.
func applyEdits(src []byte, edits []edit) []byte {
	sort.SliceStable(edits, func(i, j int) bool {
		return edits[i].off < edits[j].off
	})

	var buf bytes.Buffer

	last := 0

	for _, e := range edits {
		buf.Write(src[last:e.off])
		buf.WriteString(e.text)
		last = e.off
	}

	buf.Write(src[last:])

	return buf.Bytes()
}
