package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"covrun.dev/pkg/covrun/internal/adapter"
	m "covrun.dev/pkg/covrun/internal/model"
	"covrun.dev/pkg/covrun/pkg/covrt"
)

// ErrNoCoverage signals that the run recorded nothing. Callers log it
// and skip report emission; it never fails the run.
var ErrNoCoverage = errors.New("no coverage collected")

// defaultDiscoveryWorkers bounds the discovery-mode instrumentation
// fan-out for never-loaded files.
const defaultDiscoveryWorkers = 4

// Aggregator merges per-file counter snapshots into a single coverage
// map, manufacturing synthetic zero-coverage entries for source files
// the test run never touched.
type Aggregator struct {
	fs       adapter.SourceFSAdapter
	inst     *Instrumenter
	resolver *SourceMapResolver
	workers  int
}

// NewAggregator constructs an Aggregator around the run's instrumenter.
func NewAggregator(fs adapter.SourceFSAdapter, inst *Instrumenter, resolver *SourceMapResolver) *Aggregator {
	return &Aggregator{
		fs:       fs,
		inst:     inst,
		resolver: resolver,
		workers:  defaultDiscoveryWorkers,
	}
}

// Aggregate builds the run's coverage map. The result has exactly one
// entry per source-set member: live counters for loaded files,
// synthetic zeros for the rest. Counters recorded for paths outside
// the set are dropped.
func (a *Aggregator) Aggregate(ctx context.Context, table *covrt.Table, set *m.SourceFileSet) (m.CoverageMap, error) {
	if table.Empty() {
		return nil, ErrNoCoverage
	}

	snapshot := table.Snapshot()
	counters := make(map[m.Path]covrt.FileCounters, len(snapshot))

	for path, fc := range snapshot {
		counters[m.NormalizePath(m.Path(path))] = fc
	}

	coverage := make(m.CoverageMap, set.Len())

	var (
		mu    sync.Mutex
		group errgroup.Group
	)

	group.SetLimit(a.workers)

	for _, path := range set.Paths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		recorded, loaded := counters[m.NormalizePath(path)]

		group.Go(func() error {
			fc, err := a.fileCoverage(path, recorded, loaded)
			if err != nil {
				return err
			}

			mu.Lock()
			coverage[path] = fc
			mu.Unlock()

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	a.translate(coverage)

	slog.Debug("coverage aggregated", "files", len(coverage))

	return coverage, nil
}

// fileCoverage produces one entry: live counters bound to registered
// metadata for loaded files, a zeroed discovery-mode record otherwise.
func (a *Aggregator) fileCoverage(path m.Path, recorded covrt.FileCounters, loaded bool) (*m.FileCoverage, error) {
	if !loaded {
		return a.syntheticZero(path)
	}

	fc, ok := a.inst.FileCoverage(path)
	if !ok {
		// Counters without registered metadata mean the hook recorded
		// a file instrumented by someone else; rebuild from source.
		var err error

		fc, err = a.syntheticZero(path)
		if err != nil {
			return nil, err
		}
	}

	bindCounters(fc, recorded)

	return fc, nil
}

// syntheticZero runs the instrumenter in discovery mode against the raw
// file and forces every counter to zero. Zeroing corrects the pre-seeded
// load-time function counters, which model execution-on-load and are
// wrong for a file that was never loaded at all.
func (a *Aggregator) syntheticZero(path m.Path) (*m.FileCoverage, error) {
	src, err := a.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s for discovery: %w", path, err)
	}

	if err := a.inst.Discover(src, path); err != nil {
		return nil, err
	}

	fc, _ := a.inst.FileCoverage(path)
	fc.Zero()

	return fc, nil
}

// bindCounters copies recorded counts onto the metadata-aligned slices.
// Out-of-range identifiers are dropped rather than grown: metadata is
// the source of truth for what exists in the file.
func bindCounters(fc *m.FileCoverage, recorded covrt.FileCounters) {
	for i, count := range recorded.Stmts {
		if i < len(fc.Stmts) {
			fc.Stmts[i] = count
		}
	}

	// Zero func counts keep the load-time pre-seed: a loaded file's
	// init-style declarations ran even if no explicit hit landed.
	for i, count := range recorded.Funcs {
		if i < len(fc.Funcs) && count > 0 {
			fc.Funcs[i] = count
		}
	}

	for i, arms := range recorded.Branches {
		if i >= len(fc.Branches) {
			break
		}

		for j, count := range arms {
			if j < len(fc.Branches[i]) {
				fc.Branches[i][j] = count
			}
		}
	}
}

// translate applies source-map translation across the whole map.
func (a *Aggregator) translate(coverage m.CoverageMap) {
	if a.resolver == nil {
		return
	}

	for path, fc := range coverage {
		sourceMap := a.inst.SourceMapFor(path)
		if sourceMap == nil {
			var err error

			sourceMap, err = a.resolver.Resolve(path)
			if err != nil || sourceMap == nil {
				continue
			}
		}

		Translate(fc, sourceMap)
	}
}
