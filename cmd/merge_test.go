package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "covrun.dev/pkg/covrun/internal/model"
)

func writeSnapshot(t *testing.T, dir, name string, stmts []uint64) m.Path {
	t.Helper()

	meta := m.FileMeta{
		Path:       "src/a.go",
		Statements: make([]m.StmtMeta, len(stmts)),
	}

	fc := m.NewFileCoverage(meta)
	copy(fc.Stmts, stmts)

	path := m.Path(filepath.Join(dir, name))
	require.NoError(t, snapshotStore.SaveSnapshot(path, m.CoverageMap{"src/a.go": fc}))

	return path
}

func TestMergeSnapshotFiles(t *testing.T) {
	dir := t.TempDir()
	outDir := m.Path(filepath.Join(dir, "merged"))

	first := writeSnapshot(t, dir, "coverage-1.json", []uint64{1, 0})
	second := writeSnapshot(t, dir, "coverage-2.json", []uint64{2, 1})

	require.NoError(t, mergeSnapshotFiles([]m.Path{first, second}, outDir))

	merged, err := snapshotStore.LoadSnapshot(m.Path(filepath.Join(string(outDir), "coverage.json")))
	require.NoError(t, err)

	fc := merged["src/a.go"]
	require.NotNil(t, fc)
	assert.Equal(t, uint64(3), fc.Stmts[0])
	assert.Equal(t, uint64(1), fc.Stmts[1])
}

func TestMergeSnapshotFiles_DefaultsToOutputDirListing(t *testing.T) {
	outDir := m.Path(t.TempDir())

	writeSnapshot(t, string(outDir), "coverage-7.json", []uint64{1})
	writeSnapshot(t, string(outDir), "coverage-8.json", []uint64{4})

	require.NoError(t, mergeSnapshotFiles(nil, outDir))

	merged, err := snapshotStore.LoadSnapshot(m.Path(filepath.Join(string(outDir), "coverage.json")))
	require.NoError(t, err)
	assert.Equal(t, uint64(5), merged["src/a.go"].Stmts[0])
}

func TestMergeSnapshotFiles_EmptyDir(t *testing.T) {
	require.Error(t, mergeSnapshotFiles(nil, m.Path(t.TempDir())))
}

func TestMergeCoverProfiles(t *testing.T) {
	dir := t.TempDir()
	outDir := m.Path(filepath.Join(dir, "merged"))

	profile := filepath.Join(dir, "p1.out")
	require.NoError(t, os.WriteFile(profile, []byte("mode: count\nexample.com/pkg/a.go:1.1,2.2 1 3\n"), 0o600))

	other := filepath.Join(dir, "p2.out")
	require.NoError(t, os.WriteFile(other, []byte("mode: count\nexample.com/pkg/a.go:1.1,2.2 1 2\n"), 0o600))

	require.NoError(t, mergeCoverProfiles([]m.Path{m.Path(profile), m.Path(other)}, outDir))

	content, err := os.ReadFile(filepath.Join(string(outDir), "coverage.out"))
	require.NoError(t, err)
	assert.Equal(t, "mode: count\nexample.com/pkg/a.go:1.1,2.2 1 5\n", string(content))
}

func TestMergeCoverProfiles_RequiresInputs(t *testing.T) {
	require.Error(t, mergeCoverProfiles(nil, m.Path(t.TempDir())))
}
