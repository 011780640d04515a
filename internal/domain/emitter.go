package domain

import (
	"fmt"
	"log/slog"
	"os"

	"covrun.dev/pkg/covrun/internal/adapter"
	"covrun.dev/pkg/covrun/internal/domain/reporters"
	m "covrun.dev/pkg/covrun/internal/model"
)

// Emitter walks the aggregated coverage map and renders the requested
// report formats into the output directory. It runs inside the
// process-exit path, so every write is a plain blocking call; nothing
// here may suspend or hand work to another goroutine.
type Emitter struct {
	fs adapter.SourceFSAdapter

	// pid is swappable so tests can fix the snapshot filename.
	pid func() int
}

// NewEmitter constructs an Emitter.
func NewEmitter(fs adapter.SourceFSAdapter) *Emitter {
	return &Emitter{
		fs:  fs,
		pid: os.Getpid,
	}
}

// SnapshotName returns the raw snapshot filename, pid-suffixed when
// requested so concurrent runner processes sharing one output
// directory never clobber each other.
func (e *Emitter) SnapshotName(includePid bool) string {
	if includePid {
		return fmt.Sprintf("coverage-%d.json", e.pid())
	}

	return "coverage.json"
}

// Emit ensures outDir exists, writes the raw JSON snapshot and renders
// each requested format. An empty format list falls back to the
// line-coverage-only default.
func (e *Emitter) Emit(coverage m.CoverageMap, outDir m.Path, formats []m.ReportFormat, includePid bool) error {
	if err := e.fs.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("failed to create coverage dir %s: %w", outDir, err)
	}

	snapshot, err := adapter.EncodeSnapshot(coverage)
	if err != nil {
		return err
	}

	snapshotPath := e.fs.JoinPath(string(outDir), e.SnapshotName(includePid))
	if err := e.fs.WriteFile(snapshotPath, snapshot, 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", snapshotPath, err)
	}

	if len(formats) == 0 {
		formats = []m.ReportFormat{m.FormatLCOVOnly}
	}

	for _, format := range formats {
		if err := reporters.Render(e.fs, format, coverage, outDir); err != nil {
			return err
		}

		slog.Debug("report rendered", "format", format, "dir", outDir)
	}

	return nil
}
