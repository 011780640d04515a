package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"covrun.dev/pkg/covrun/internal/adapter"
	m "covrun.dev/pkg/covrun/internal/model"
	"covrun.dev/pkg/covrun/pkg/covrt"
)

// State tracks the orchestrator through a run.
type State int

// Orchestrator lifecycle states.
const (
	StateIdle State = iota
	StateConfigured
	StateArmed
	StateRunning
	StateDone
)

// DefaultCoverageConfigFile is used when RunConfig does not name one.
const DefaultCoverageConfigFile = ".covrun.json"

// RunConfig carries the caller-supplied test-execution configuration
// plus the coverage-config filename resolved relative to the tests root.
type RunConfig struct {
	TestPatterns       []string
	CoverageConfigFile string
}

// Orchestrator wires discovery, interception, instrumentation, the
// external test engine and report emission around the process
// lifecycle. The module-load hook is installed strictly before the
// first test-file load; Finalize is the registered shutdown step and
// runs its synchronous best-effort emission exactly once.
type Orchestrator struct {
	fs      adapter.SourceFSAdapter
	goFiles adapter.GoFileAdapter
	engine  adapter.TestEngine

	mu     sync.Mutex
	state  State
	config RunConfig

	// Coverage stage, populated when armed.
	opts       m.CoverOptions
	formats    []m.ReportFormat
	key        covrt.Key
	table      *covrt.Table
	inst       *Instrumenter
	set        *m.SourceFileSet
	intercept  *Intercept
	loader     adapter.Loader
	emitter    *Emitter
	aggregator *Aggregator
	outDir     m.Path

	finalizeOnce sync.Once
	finalizeErr  error
	coverage     m.CoverageMap
}

// NewOrchestrator constructs an idle Orchestrator.
func NewOrchestrator(fs adapter.SourceFSAdapter, goFiles adapter.GoFileAdapter, engine adapter.TestEngine) *Orchestrator {
	return &Orchestrator{
		fs:      fs,
		goFiles: goFiles,
		engine:  engine,
		state:   StateIdle,
	}
}

// Configure supplies the run configuration. Idle → Configured.
func (o *Orchestrator) Configure(config RunConfig) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return fmt.Errorf("orchestrator already configured")
	}

	if config.CoverageConfigFile == "" {
		config.CoverageConfigFile = DefaultCoverageConfigFile
	}

	o.config = config
	o.state = StateConfigured

	return nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.state
}

// Coverage returns the coverage map produced by Finalize, if any.
func (o *Orchestrator) Coverage() m.CoverageMap {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.coverage
}

// Armed reports whether the coverage stage is active for this run.
func (o *Orchestrator) Armed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.intercept != nil
}

// SourceCount returns the number of tracked source files, zero when the
// coverage stage is not armed.
func (o *Orchestrator) SourceCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.set.Len()
}

// Run executes the test suite under root. Setup errors (bad coverage
// config) are returned before any tests run; discovery and execution
// errors are surfaced as-is. Report emission never happens through this
// path; Finalize is the sole source of report output.
func (o *Orchestrator) Run(ctx context.Context, root m.Path) (int, error) {
	o.mu.Lock()
	if o.state != StateConfigured {
		o.mu.Unlock()
		return 0, fmt.Errorf("orchestrator is not configured")
	}

	config := o.config
	o.mu.Unlock()

	if err := o.armCoverage(root, config); err != nil {
		return 0, err
	}

	o.setState(StateRunning)

	defer o.setState(StateDone)

	files, err := o.engine.Discover(ctx, root, config.TestPatterns)
	if err != nil {
		return 0, fmt.Errorf("test discovery failed: %w", err)
	}

	failures, err := o.engine.Run(ctx, root, files, o.runLoader())
	if err != nil {
		return 0, fmt.Errorf("test execution failed: %w", err)
	}

	return failures, nil
}

// armCoverage loads the coverage config and, when enabled, builds the
// whole coverage stage: source-file set, run key and counter table,
// instrumenter, and the load intercept (installed here, strictly
// before the engine loads anything). A missing config file means
// coverage was not requested.
func (o *Orchestrator) armCoverage(root m.Path, config RunConfig) error {
	configPath := o.fs.JoinPath(string(root), config.CoverageConfigFile)

	opts, err := adapter.LoadCoverOptions(o.fs, configPath)
	if err != nil {
		if errors.Is(err, adapter.ErrNoCoverConfig) {
			slog.Debug("no coverage config, coverage disabled", "path", configPath)
			return nil
		}

		return err
	}

	if !opts.Enabled {
		slog.Debug("coverage disabled by config", "path", configPath)
		return nil
	}

	formats, err := opts.Validate()
	if err != nil {
		return fmt.Errorf("coverage setup failed: %w", err)
	}

	sourceRoot := o.fs.JoinPath(string(root), opts.SourceDir)

	paths, err := o.fs.DiscoverSources(sourceRoot, opts.IgnorePatterns)
	if err != nil {
		return fmt.Errorf("coverage setup failed: %w", err)
	}

	set := m.NewSourceFileSet(paths)
	key := covrt.NewKey()
	table := covrt.Register(key)
	inst := NewInstrumenter(o.goFiles, key)
	resolver := NewSourceMapResolver(o.fs)
	base := adapter.NewCachingLoader(o.fs)

	transform := func(src []byte, path m.Path) ([]byte, error) {
		sourceMap, smErr := resolver.Resolve(path)
		if smErr != nil {
			slog.Warn("source map unavailable", "path", path, "error", smErr)
		}

		return inst.Instrument(src, path, sourceMap)
	}

	intercept, err := InterceptLoader(base, set, transform)
	if err != nil {
		return fmt.Errorf("coverage setup failed: %w", err)
	}

	o.mu.Lock()
	o.opts = opts
	o.formats = formats
	o.key = key
	o.table = table
	o.inst = inst
	o.set = set
	o.intercept = intercept
	o.loader = intercept
	o.emitter = NewEmitter(o.fs)
	o.aggregator = NewAggregator(o.fs, inst, resolver)
	o.outDir = o.fs.JoinPath(string(root), opts.OutputDir())
	o.state = StateArmed
	o.mu.Unlock()

	slog.Info("coverage armed", "sources", set.Len(), "dir", o.outDir)

	return nil
}

// runLoader returns the loader the engine must use: the intercept when
// armed, a plain caching loader otherwise.
func (o *Orchestrator) runLoader() adapter.Loader {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.loader != nil {
		return o.loader
	}

	o.loader = adapter.NewCachingLoader(o.fs)

	return o.loader
}

// Finalize is the shutdown callback: it uninstalls the load hook,
// aggregates counters and emits reports, exactly once. "No coverage
// collected" is logged and skipped; any other failure propagates to
// the caller's exit path.
func (o *Orchestrator) Finalize() error {
	o.finalizeOnce.Do(func() {
		o.finalizeErr = o.finalize()
	})

	return o.finalizeErr
}

func (o *Orchestrator) finalize() error {
	o.mu.Lock()
	intercept := o.intercept
	table := o.table
	set := o.set
	aggregator := o.aggregator
	emitter := o.emitter
	outDir := o.outDir
	formats := o.formats
	opts := o.opts
	key := o.key
	o.mu.Unlock()

	if intercept == nil {
		return nil
	}

	intercept.Uninstall()

	defer covrt.Release(key)

	coverage, err := aggregator.Aggregate(context.Background(), table, set)
	if err != nil {
		if errors.Is(err, ErrNoCoverage) {
			slog.Info("no coverage collected, skipping report")
			return nil
		}

		return err
	}

	if err := emitter.Emit(coverage, outDir, formats, opts.IncludePid); err != nil {
		return err
	}

	o.mu.Lock()
	o.coverage = coverage
	o.mu.Unlock()

	return nil
}

func (o *Orchestrator) setState(state State) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Done never regresses to Running on late setters.
	if o.state == StateDone && state == StateRunning {
		return
	}

	o.state = state
}
