package adapter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "covrun.dev/pkg/covrun/internal/model"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestDiscoverSources_FiltersTestFilesAndDirs(t *testing.T) {
	dir := t.TempDir()
	adapter := NewLocalSourceFSAdapter()

	writeTestFile(t, dir, "a.go", "package a\n")
	writeTestFile(t, dir, "a_test.go", "package a\n")
	writeTestFile(t, dir, "notes.txt", "text\n")
	writeTestFile(t, dir, "sub/b.go", "package sub\n")
	writeTestFile(t, dir, "vendor/dep.go", "package dep\n")
	writeTestFile(t, dir, "testdata/fixture.go", "package fixture\n")

	sources, err := adapter.DiscoverSources(m.Path(dir), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(sources))
	for _, source := range sources {
		rel, relErr := filepath.Rel(dir, string(source))
		require.NoError(t, relErr)
		assert.True(t, filepath.IsAbs(string(source)))
		names = append(names, filepath.ToSlash(rel))
	}

	assert.ElementsMatch(t, []string{"a.go", "sub/b.go"}, names)
}

func TestDiscoverSources_IgnorePatterns(t *testing.T) {
	dir := t.TempDir()
	adapter := NewLocalSourceFSAdapter()

	writeTestFile(t, dir, "keep.go", "package a\n")
	writeTestFile(t, dir, "generated.go", "package a\n")
	writeTestFile(t, dir, "sub/skip.go", "package sub\n")

	sources, err := adapter.DiscoverSources(m.Path(dir), []string{"generated.go", "sub/*"})
	require.NoError(t, err)

	require.Len(t, sources, 1)
	assert.Equal(t, "keep.go", filepath.Base(string(sources[0])))
}

func TestDiscoverSources_MissingRoot(t *testing.T) {
	adapter := NewLocalSourceFSAdapter()

	_, err := adapter.DiscoverSources(m.Path(filepath.Join(t.TempDir(), "nope")), nil)
	require.Error(t, err)
}

func TestGlob(t *testing.T) {
	dir := t.TempDir()
	adapter := NewLocalSourceFSAdapter()

	writeTestFile(t, dir, "one_test.go", "package a\n")
	writeTestFile(t, dir, "two_test.go", "package a\n")
	writeTestFile(t, dir, "main.go", "package a\n")

	matches, err := adapter.Glob(m.Path(dir), "*_test.go")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestWriteFile_CreatesParents(t *testing.T) {
	dir := t.TempDir()
	adapter := NewLocalSourceFSAdapter()

	target := adapter.JoinPath(dir, "deep", "nested", "out.txt")
	require.NoError(t, adapter.WriteFile(target, []byte("content"), 0o600))

	content, err := adapter.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "content", string(content))
}

func TestHashFile_Stable(t *testing.T) {
	dir := t.TempDir()
	adapter := NewLocalSourceFSAdapter()

	path := writeTestFile(t, dir, "a.go", "package a\n")

	first, err := adapter.HashFile(m.Path(path))
	require.NoError(t, err)

	second, err := adapter.HashFile(m.Path(path))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "mirror")
	adapter := NewLocalSourceFSAdapter()

	writeTestFile(t, src, "a.go", "package a\n")
	writeTestFile(t, src, "sub/b.go", "package sub\n")
	writeTestFile(t, src, "vendor/dep.go", "package dep\n")

	require.NoError(t, adapter.CopyDir(m.Path(src), m.Path(dst)))

	content, err := os.ReadFile(filepath.Join(dst, "sub", "b.go"))
	require.NoError(t, err)
	assert.Equal(t, "package sub\n", string(content))

	_, err = os.Stat(filepath.Join(dst, "vendor"))
	assert.True(t, os.IsNotExist(err))
}
