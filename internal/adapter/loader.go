package adapter

import (
	"sync"

	m "covrun.dev/pkg/covrun/internal/model"
)

// Loader is the injectable resolve-and-load abstraction over module
// loading. The orchestrator substitutes an intercepting loader at
// startup and restores the original at teardown; runtime patching of a
// fixed mechanism is deliberately avoided.
type Loader interface {
	Load(path m.Path) ([]byte, error)
}

// TransformFunc rewrites a file's raw text before the loader proceeds
// with it.
type TransformFunc func(src []byte, path m.Path) ([]byte, error)

// Evicter is implemented by loaders whose cache entries can be
// forcibly dropped. Cache-busting at intercept install guarantees the
// hook sees the first real load even if an earlier, uninstrumented
// load already happened incidentally.
type Evicter interface {
	Evict(path m.Path)
}

// CachingLoader models the module cache: each path is read from the
// backing filesystem once and served from memory afterwards.
type CachingLoader struct {
	fs SourceFSAdapter

	mu    sync.Mutex
	cache map[m.Path][]byte
}

// NewCachingLoader constructs a CachingLoader over the given filesystem.
func NewCachingLoader(fs SourceFSAdapter) *CachingLoader {
	return &CachingLoader{
		fs:    fs,
		cache: map[m.Path][]byte{},
	}
}

// Load returns the cached content for path, reading it on first use.
func (l *CachingLoader) Load(path m.Path) ([]byte, error) {
	key := m.NormalizePath(path)

	l.mu.Lock()
	if content, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return content, nil
	}
	l.mu.Unlock()

	content, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[key] = content
	l.mu.Unlock()

	return content, nil
}

// Evict drops the cached entry for path.
func (l *CachingLoader) Evict(path m.Path) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.cache, m.NormalizePath(path))
}
