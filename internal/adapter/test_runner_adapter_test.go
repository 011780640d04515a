package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "covrun.dev/pkg/covrun/internal/model"
)

func TestCountFailures(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   int
	}{
		{"no output", "", 0},
		{"all passing", "=== RUN   TestA\n--- PASS: TestA (0.00s)\nPASS\n", 0},
		{
			"two failures",
			"--- FAIL: TestA (0.00s)\n--- PASS: TestB (0.00s)\n    --- FAIL: TestB/sub (0.00s)\nFAIL\n",
			2,
		},
		{"fail marker mid-line is not counted", "some log --- FAIL: not a marker\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countFailures(tt.output))
		})
	}
}

func TestGoTestEngine_Discover(t *testing.T) {
	dir := t.TempDir()
	engine := NewGoTestEngine(NewLocalSourceFSAdapter())

	for _, name := range []string{"a_test.go", "b_test.go", "main.go"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("package a\n"), 0o600))
	}

	files, err := engine.Discover(context.Background(), m.Path(dir), nil)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	// Overlapping patterns must not produce duplicates.
	files, err = engine.Discover(context.Background(), m.Path(dir), []string{"*_test.go", "a_*.go"})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestGoTestEngine_Run_NoFiles(t *testing.T) {
	engine := NewGoTestEngine(NewLocalSourceFSAdapter())

	failures, err := engine.Run(context.Background(), m.Path(t.TempDir()), nil, NewCachingLoader(NewLocalSourceFSAdapter()))
	require.NoError(t, err)
	assert.Equal(t, 0, failures)
}

func TestGoTestEngine_Discover_CancelledContext(t *testing.T) {
	engine := NewGoTestEngine(NewLocalSourceFSAdapter())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Discover(ctx, m.Path(t.TempDir()), nil)
	require.ErrorIs(t, err, context.Canceled)
}
