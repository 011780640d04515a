package adapter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	m "covrun.dev/pkg/covrun/internal/model"
)

// SnapshotStore persists and recovers raw coverage snapshots. The wire
// format is JSON with sorted keys, so emitting the same map twice
// produces byte-identical files.
type SnapshotStore interface {
	SaveSnapshot(path m.Path, coverage m.CoverageMap) error
	LoadSnapshot(path m.Path) (m.CoverageMap, error)
	ListSnapshots(dir m.Path) ([]m.Path, error)
}

type snapshotStore struct {
	fs SourceFSAdapter
}

// NewSnapshotStore constructs a SnapshotStore over the given filesystem.
func NewSnapshotStore(fs SourceFSAdapter) SnapshotStore {
	return &snapshotStore{fs: fs}
}

// SaveSnapshot writes the coverage map as indented JSON.
func (s *snapshotStore) SaveSnapshot(path m.Path, coverage m.CoverageMap) error {
	content, err := EncodeSnapshot(coverage)
	if err != nil {
		return err
	}

	if err := s.fs.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}

	return nil
}

// LoadSnapshot reads a coverage map back from disk.
func (s *snapshotStore) LoadSnapshot(path m.Path) (m.CoverageMap, error) {
	content, err := s.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	var coverage m.CoverageMap
	if err := json.Unmarshal(content, &coverage); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}

	return coverage, nil
}

// ListSnapshots finds coverage snapshot files in dir, sorted by name.
// Both coverage.json and pid-suffixed coverage-<pid>.json match.
func (s *snapshotStore) ListSnapshots(dir m.Path) ([]m.Path, error) {
	matches, err := s.fs.Glob(dir, "coverage*.json")
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i] < matches[j] })

	return matches, nil
}

// EncodeSnapshot renders a coverage map to deterministic JSON.
// encoding/json sorts map keys, which is what makes repeated emission
// byte-identical.
func EncodeSnapshot(coverage m.CoverageMap) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")

	if err := enc.Encode(coverage); err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	return buf.Bytes(), nil
}
