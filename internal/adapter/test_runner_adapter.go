package adapter

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	m "covrun.dev/pkg/covrun/internal/model"
)

// TestEngine abstracts the external test-execution engine. The coverage
// pipeline only needs two things from it: a list of test files under a
// root, and a "run tests, report a failure count" entry point that
// loads sources through the provided loader.
type TestEngine interface {
	// Discover enumerates test files matching the glob patterns
	// under root.
	Discover(ctx context.Context, root m.Path, patterns []string) ([]m.Path, error)

	// Run executes the test files. Every source the engine loads goes
	// through loader, which is how instrumented text reaches the run.
	// Returns the number of failed tests.
	Run(ctx context.Context, root m.Path, files []m.Path, loader Loader) (int, error)
}

// GoTestEngine runs `go test` against a temporary mirror of the project
// in which every source file has been materialized through the loader.
type GoTestEngine struct {
	fs      SourceFSAdapter
	timeout time.Duration
}

// NewGoTestEngine constructs a GoTestEngine with a default 10 minute
// timeout for the whole suite.
func NewGoTestEngine(fs SourceFSAdapter) *GoTestEngine {
	return &GoTestEngine{
		fs:      fs,
		timeout: 10 * time.Minute,
	}
}

// Discover expands the test-file patterns under root.
func (e *GoTestEngine) Discover(ctx context.Context, root m.Path, patterns []string) ([]m.Path, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(patterns) == 0 {
		patterns = []string{"*_test.go"}
	}

	var files []m.Path

	seen := map[m.Path]struct{}{}

	for _, pattern := range patterns {
		matches, err := e.fs.Glob(root, pattern)
		if err != nil {
			return nil, fmt.Errorf("test discovery: %w", err)
		}

		for _, match := range matches {
			if _, ok := seen[match]; ok {
				continue
			}

			seen[match] = struct{}{}
			files = append(files, match)
		}
	}

	return files, nil
}

// Run mirrors the project into a temp dir, replaying every .go file
// through the loader so set members arrive instrumented, then shells
// out to `go test`.
func (e *GoTestEngine) Run(ctx context.Context, root m.Path, files []m.Path, loader Loader) (int, error) {
	if len(files) == 0 {
		return 0, nil
	}

	tmpDir, err := e.fs.CreateTempDir("covrun-test-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp dir: %w", err)
	}

	defer func() { _ = e.fs.RemoveAll(tmpDir) }()

	if err := e.fs.CopyDir(root, tmpDir); err != nil {
		return 0, fmt.Errorf("failed to mirror project: %w", err)
	}

	if err := e.materialize(root, tmpDir, loader); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "test", "-v", "./...")
	cmd.Dir = string(tmpDir)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	output := stdout.String() + stderr.String()
	failures := countFailures(output)

	if runErr != nil && failures == 0 {
		// A non-zero exit without FAIL markers is an execution error,
		// not a test failure.
		return 0, fmt.Errorf("test execution: %w: %s", runErr, strings.TrimSpace(output))
	}

	return failures, nil
}

// materialize overwrites every .go file in the mirror with the
// loader's view of the original path.
func (e *GoTestEngine) materialize(root, tmpDir m.Path, loader Loader) error {
	sources, err := e.fs.DiscoverSources(root, nil)
	if err != nil {
		return fmt.Errorf("failed to enumerate sources: %w", err)
	}

	for _, source := range sources {
		content, err := loader.Load(source)
		if err != nil {
			return fmt.Errorf("failed to load %s: %w", source, err)
		}

		rel, err := e.fs.RelPath(root, source)
		if err != nil {
			return err
		}

		target := e.fs.JoinPath(string(tmpDir), string(rel))
		if err := e.fs.WriteFile(target, content, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", target, err)
		}
	}

	return nil
}

// countFailures counts `--- FAIL:` markers in go test verbose output.
func countFailures(output string) int {
	failures := 0

	for _, line := range strings.Split(output, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--- FAIL:") {
			failures++
		}
	}

	return failures
}
