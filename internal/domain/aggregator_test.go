package domain

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covrun.dev/pkg/covrun/internal/adapter"
	m "covrun.dev/pkg/covrun/internal/model"
	"covrun.dev/pkg/covrun/pkg/covrt"
)

const touchedSrc = `package sample

func Run() int {
	return 1
}

func init() {
	println("loaded")
}
`

const untouchedSrc = `package sample

func Helper() int {
	return 2
}

func init() {
	println("also loaded")
}
`

type aggregatorFixture struct {
	agg     *Aggregator
	inst    *Instrumenter
	key     covrt.Key
	table   *covrt.Table
	set     *m.SourceFileSet
	touched m.Path
	cold    m.Path
}

func newAggregatorFixture(t *testing.T) *aggregatorFixture {
	t.Helper()

	dir := t.TempDir()
	touched := m.Path(filepath.Join(dir, "run.go"))
	cold := m.Path(filepath.Join(dir, "helper.go"))

	require.NoError(t, os.WriteFile(string(touched), []byte(touchedSrc), 0o600))
	require.NoError(t, os.WriteFile(string(cold), []byte(untouchedSrc), 0o600))

	fs := adapter.NewLocalSourceFSAdapter()
	key := covrt.NewKey()
	table := covrt.Register(key)

	t.Cleanup(func() { covrt.Release(key) })

	inst := NewInstrumenter(adapter.NewLocalGoFileAdapter(), key)

	return &aggregatorFixture{
		agg:     NewAggregator(fs, inst, NewSourceMapResolver(fs)),
		inst:    inst,
		key:     key,
		table:   table,
		set:     m.NewSourceFileSet([]m.Path{touched, cold}),
		touched: touched,
		cold:    cold,
	}
}

func TestAggregate_EmptyTable(t *testing.T) {
	f := newAggregatorFixture(t)

	_, err := f.agg.Aggregate(context.Background(), f.table, f.set)
	require.ErrorIs(t, err, ErrNoCoverage)
}

func TestAggregate_SyntheticZeroForUntouchedFiles(t *testing.T) {
	f := newAggregatorFixture(t)

	// Simulate the test run loading and executing only run.go.
	src, err := os.ReadFile(string(f.touched))
	require.NoError(t, err)

	_, err = f.inst.Instrument(src, f.touched, nil)
	require.NoError(t, err)

	covrt.HitFunc(f.key, string(f.touched), 0)
	covrt.HitStmt(f.key, string(f.touched), 0)

	coverage, err := f.agg.Aggregate(context.Background(), f.table, f.set)
	require.NoError(t, err)
	require.Len(t, coverage, 2)

	hot := coverage[f.touched]
	require.NotNil(t, hot)
	assert.True(t, hot.Touched())
	assert.Equal(t, uint64(1), hot.Stmts[0])
	// The init function keeps its load-time pre-seed even without an
	// explicit hit.
	assert.Equal(t, uint64(1), hot.Funcs[1])

	// The cold file appears with the full construct shape and all
	// counters zero, including its init function.
	zero := coverage[f.cold]
	require.NotNil(t, zero)
	assert.False(t, zero.Touched())
	assert.Len(t, zero.Stmts, len(zero.Meta.Statements))
	require.Len(t, zero.Funcs, 2)
	assert.Equal(t, uint64(0), zero.Funcs[0])
	assert.Equal(t, uint64(0), zero.Funcs[1])
}

func TestAggregate_DropsCountersOutsideTheSet(t *testing.T) {
	f := newAggregatorFixture(t)

	src, err := os.ReadFile(string(f.touched))
	require.NoError(t, err)

	_, err = f.inst.Instrument(src, f.touched, nil)
	require.NoError(t, err)

	covrt.HitStmt(f.key, string(f.touched), 0)
	covrt.HitStmt(f.key, "/elsewhere/rogue.go", 0)

	coverage, err := f.agg.Aggregate(context.Background(), f.table, f.set)
	require.NoError(t, err)

	assert.Len(t, coverage, f.set.Len())
	assert.NotContains(t, coverage, m.Path("/elsewhere/rogue.go"))
}

func TestAggregate_DropsOutOfRangeIdentifiers(t *testing.T) {
	f := newAggregatorFixture(t)

	src, err := os.ReadFile(string(f.touched))
	require.NoError(t, err)

	_, err = f.inst.Instrument(src, f.touched, nil)
	require.NoError(t, err)

	meta, ok := f.inst.Meta(f.touched)
	require.True(t, ok)

	covrt.HitStmt(f.key, string(f.touched), 0)
	covrt.HitStmt(f.key, string(f.touched), len(meta.Statements)+5)

	coverage, err := f.agg.Aggregate(context.Background(), f.table, f.set)
	require.NoError(t, err)

	hot := coverage[f.touched]
	assert.Len(t, hot.Stmts, len(meta.Statements))
}

func TestAggregate_CancelledContext(t *testing.T) {
	f := newAggregatorFixture(t)

	covrt.HitStmt(f.key, string(f.touched), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.agg.Aggregate(ctx, f.table, f.set)
	require.ErrorIs(t, err, context.Canceled)
}
