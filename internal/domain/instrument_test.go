package domain

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covrun.dev/pkg/covrun/internal/adapter"
	m "covrun.dev/pkg/covrun/internal/model"
	"covrun.dev/pkg/covrun/pkg/covrt"
)

func newTestInstrumenter() *Instrumenter {
	return NewInstrumenter(adapter.NewLocalGoFileAdapter(), covrt.Key("test-key"))
}

// requireValidGo fails the test when the rewritten source no longer
// parses, printing a diff against the original.
func requireValidGo(t *testing.T, original, instrumented []byte) {
	t.Helper()

	fset := token.NewFileSet()

	_, err := parser.ParseFile(fset, "instrumented.go", instrumented, parser.ParseComments)
	if err == nil {
		return
	}

	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(original)),
		B:        difflib.SplitLines(string(instrumented)),
		FromFile: "original",
		ToFile:   "instrumented",
		Context:  2,
	})
	t.Fatalf("instrumented source does not parse: %v\n%s", err, diff)
}

func TestInstrument_StatementsFunctionsBranches(t *testing.T) {
	src := []byte(`package sample

func Add(a, b int) int {
	if a > 0 {
		return a + b
	}

	return b
}

func init() {
	registered = true
}

var registered bool
`)

	inst := newTestInstrumenter()

	out, err := inst.Instrument(src, "sample/add.go", nil)
	require.NoError(t, err)
	requireValidGo(t, src, out)

	text := string(out)
	assert.Contains(t, text, `import covrt "covrun.dev/pkg/covrun/pkg/covrt"`)
	assert.Contains(t, text, `covrt.HitFunc("test-key", "sample/add.go", 0);`)
	assert.Contains(t, text, `covrt.HitFunc("test-key", "sample/add.go", 1);`)
	assert.Contains(t, text, `covrt.HitStmt("test-key", "sample/add.go", 0); `)
	assert.Contains(t, text, `covrt.HitBranch("test-key", "sample/add.go", 0, 0);`)

	meta, ok := inst.Meta("sample/add.go")
	require.True(t, ok)

	assert.Len(t, meta.Statements, 4)
	require.Len(t, meta.Functions, 2)
	assert.False(t, meta.Functions[0].LoadTime)
	assert.True(t, meta.Functions[1].LoadTime)
	assert.Equal(t, "init", meta.Functions[1].Name)

	require.Len(t, meta.Branches, 1)
	assert.Equal(t, m.BranchIf, meta.Branches[0].Kind)
	assert.Len(t, meta.Branches[0].Arms, 1)
}

func TestInstrument_IfElse(t *testing.T) {
	src := []byte(`package sample

func Sign(n int) int {
	if n > 0 {
		return 1
	} else {
		return -1
	}
}
`)

	inst := newTestInstrumenter()

	out, err := inst.Instrument(src, "sample/sign.go", nil)
	require.NoError(t, err)
	requireValidGo(t, src, out)

	text := string(out)
	assert.Contains(t, text, `covrt.HitBranch("test-key", "sample/sign.go", 0, 0);`)
	assert.Contains(t, text, `covrt.HitBranch("test-key", "sample/sign.go", 0, 1);`)

	meta, ok := inst.Meta("sample/sign.go")
	require.True(t, ok)
	require.Len(t, meta.Branches, 1)
	assert.Len(t, meta.Branches[0].Arms, 2)
}

func TestInstrument_SwitchClauses(t *testing.T) {
	src := []byte(`package sample

func Pick(n int) string {
	switch n {
	case 0:
		return "zero"
	default:
	}

	return "other"
}
`)

	inst := newTestInstrumenter()

	out, err := inst.Instrument(src, "sample/pick.go", nil)
	require.NoError(t, err)
	requireValidGo(t, src, out)

	text := string(out)
	assert.Contains(t, text, `covrt.HitBranch("test-key", "sample/pick.go", 0, 0);`)
	assert.Contains(t, text, `covrt.HitBranch("test-key", "sample/pick.go", 0, 1);`)

	meta, ok := inst.Meta("sample/pick.go")
	require.True(t, ok)
	require.Len(t, meta.Branches, 1)
	assert.Equal(t, m.BranchSwitch, meta.Branches[0].Kind)
	assert.Len(t, meta.Branches[0].Arms, 2)
	assert.Len(t, meta.Statements, 3)
}

func TestInstrument_NoConstructsLeavesSourceUntouched(t *testing.T) {
	src := []byte(`package sample

type Widget struct {
	Name string
}
`)

	inst := newTestInstrumenter()

	out, err := inst.Instrument(src, "sample/widget.go", nil)
	require.NoError(t, err)

	if string(out) != string(src) {
		diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(string(src)),
			B:        difflib.SplitLines(string(out)),
			FromFile: "original",
			ToFile:   "instrumented",
			Context:  2,
		})
		t.Fatalf("expected no rewrite:\n%s", diff)
	}

	assert.NotContains(t, string(out), "covrt")
}

func TestInstrument_ParseError(t *testing.T) {
	inst := newTestInstrumenter()

	_, err := inst.Instrument([]byte("package sample\n\nfunc {"), "sample/broken.go", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample/broken.go")
}

func TestDiscover_RegistersMetadataOnly(t *testing.T) {
	src := []byte(`package sample

func Run() {
	println("hello")
}
`)

	inst := newTestInstrumenter()

	require.NoError(t, inst.Discover(src, "sample/run.go"))

	meta, ok := inst.Meta("sample/run.go")
	require.True(t, ok)
	assert.Len(t, meta.Statements, 1)
	assert.Len(t, meta.Functions, 1)

	fc, ok := inst.FileCoverage("sample/run.go")
	require.True(t, ok)
	assert.False(t, fc.Touched())
}

func TestInstrument_RegistersSourceMap(t *testing.T) {
	src := []byte(`package sample

func Run() {
	println("hello")
}
`)

	sourceMap := &m.SourceMap{Source: "sample/run.src", Lines: []int{1, 2, 3, 4, 5}}
	inst := newTestInstrumenter()

	_, err := inst.Instrument(src, "sample/run.go", sourceMap)
	require.NoError(t, err)

	assert.Same(t, sourceMap, inst.SourceMapFor("sample/run.go"))
	assert.Nil(t, inst.SourceMapFor("sample/other.go"))
}
