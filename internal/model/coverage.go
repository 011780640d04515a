package model

// Pos is a line/column location in a source file. Columns are 1-based
// byte offsets within the line, matching go/token positions.
type Pos struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

// Range spans a counted construct in a source file.
type Range struct {
	Start Pos `json:"start"`
	End   Pos `json:"end"`
}

// BranchKind identifies the construct a branch counter belongs to.
type BranchKind string

// Branch kinds produced by the instrumenter.
const (
	BranchIf     BranchKind = "if"
	BranchSwitch BranchKind = "switch"
	BranchSelect BranchKind = "select"
)

// StmtMeta is the static record of one counted statement.
type StmtMeta struct {
	Loc Range `json:"loc"`
}

// BranchMeta is the static record of one branch point and its arms.
type BranchMeta struct {
	Kind BranchKind `json:"kind"`
	Loc  Range      `json:"loc"`
	Arms []Range    `json:"arms"`
}

// FuncMeta is the static record of one counted function.
// LoadTime marks functions that execute when the file is loaded
// (init functions); their counters are pre-seeded to 1 on creation
// and must be zeroed for files the run never loaded.
type FuncMeta struct {
	Name     string `json:"name"`
	Decl     Range  `json:"decl"`
	LoadTime bool   `json:"loadTime,omitempty"`
}

// FileMeta holds the immutable per-file metadata produced at
// instrumentation time.
type FileMeta struct {
	Path       Path         `json:"path"`
	Statements []StmtMeta   `json:"statements"`
	Branches   []BranchMeta `json:"branches"`
	Functions  []FuncMeta   `json:"functions"`
}

// Clone returns a FileMeta whose location slices are independent of
// the receiver's.
func (fm FileMeta) Clone() FileMeta {
	clone := fm
	clone.Statements = append([]StmtMeta(nil), fm.Statements...)
	clone.Functions = append([]FuncMeta(nil), fm.Functions...)
	clone.Branches = make([]BranchMeta, len(fm.Branches))

	for i, branch := range fm.Branches {
		branch.Arms = append([]Range(nil), branch.Arms...)
		clone.Branches[i] = branch
	}

	return clone
}

// FileCoverage pairs static metadata with runtime counters. Counters are
// index-aligned with the metadata slices.
type FileCoverage struct {
	Path     Path       `json:"path"`
	Stmts    []uint64   `json:"s"`
	Branches [][]uint64 `json:"b"`
	Funcs    []uint64   `json:"f"`
	Meta     FileMeta   `json:"meta"`
}

// NewFileCoverage creates a FileCoverage with counters sized to the
// metadata. The metadata is cloned so later location rewrites (source
// map translation) cannot reach back into the caller's copy. Load-time
// function counters are pre-seeded to 1, modeling that loading a file
// executes its init functions.
func NewFileCoverage(meta FileMeta) *FileCoverage {
	fc := &FileCoverage{
		Path:     meta.Path,
		Meta:     meta.Clone(),
		Stmts:    make([]uint64, len(meta.Statements)),
		Funcs:    make([]uint64, len(meta.Functions)),
		Branches: make([][]uint64, len(meta.Branches)),
	}

	for i, branch := range meta.Branches {
		fc.Branches[i] = make([]uint64, len(branch.Arms))
	}

	for i, fn := range meta.Functions {
		if fn.LoadTime {
			fc.Funcs[i] = 1
		}
	}

	return fc
}

// Zero forces every counter to zero, including pre-seeded load-time
// function counters.
func (fc *FileCoverage) Zero() {
	for i := range fc.Stmts {
		fc.Stmts[i] = 0
	}

	for i := range fc.Funcs {
		fc.Funcs[i] = 0
	}

	for _, arms := range fc.Branches {
		for i := range arms {
			arms[i] = 0
		}
	}
}

// Touched reports whether any statement counter is non-zero.
func (fc *FileCoverage) Touched() bool {
	for _, count := range fc.Stmts {
		if count > 0 {
			return true
		}
	}

	return false
}

// LineHits folds statement counters into per-line execution counts.
// A line covered by several statements reports the maximum count.
func (fc *FileCoverage) LineHits() map[int]uint64 {
	hits := make(map[int]uint64)

	for i, stmt := range fc.Meta.Statements {
		if i >= len(fc.Stmts) {
			break
		}

		line := stmt.Loc.Start.Line
		if count, ok := hits[line]; !ok || fc.Stmts[i] > count {
			hits[line] = fc.Stmts[i]
		}
	}

	return hits
}

// CoverageMap aggregates all FileCoverage records for a run, one entry
// per SourceFileSet member.
type CoverageMap map[Path]*FileCoverage

// SourceMap is a companion mapping from generated-file lines back to
// pre-build source locations. Lines[i] holds the original line for
// generated line i+1; zero means no mapping for that line.
type SourceMap struct {
	Source string `json:"source"`
	Lines  []int  `json:"lines"`
}

// OriginalLine translates a generated line number. The second return
// is false when the map has no entry for the line.
func (sm *SourceMap) OriginalLine(generated int) (int, bool) {
	if sm == nil || generated < 1 || generated > len(sm.Lines) {
		return 0, false
	}

	original := sm.Lines[generated-1]
	if original == 0 {
		return 0, false
	}

	return original, true
}
