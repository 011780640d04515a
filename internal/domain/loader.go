package domain

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"covrun.dev/pkg/covrun/internal/adapter"
	m "covrun.dev/pkg/covrun/internal/model"
)

// Intercept wraps a base loader so that any load of a path contained
// in the source-file set first passes the raw text through the
// transform. Paths outside the set are served untouched. Uninstall
// restores the original load behavior.
type Intercept struct {
	base        adapter.Loader
	set         *m.SourceFileSet
	transform   adapter.TransformFunc
	uninstalled atomic.Bool
}

// InterceptLoader installs the hook. As a cache-busting step, any
// already-cached entry for a set member is evicted from the base
// loader, so the hook is guaranteed to see the first real load even if
// an uninstrumented load already happened incidentally.
func InterceptLoader(base adapter.Loader, set *m.SourceFileSet, transform adapter.TransformFunc) (*Intercept, error) {
	if base == nil || transform == nil {
		return nil, fmt.Errorf("intercept requires a base loader and a transform")
	}

	if evicter, ok := base.(adapter.Evicter); ok {
		for _, path := range set.Paths() {
			evicter.Evict(path)
		}
	}

	slog.Debug("load intercept installed", "files", set.Len())

	return &Intercept{
		base:      base,
		set:       set,
		transform: transform,
	}, nil
}

// Load serves path through the base loader, transforming the text for
// source-set members.
func (i *Intercept) Load(path m.Path) ([]byte, error) {
	content, err := i.base.Load(path)
	if err != nil {
		return nil, err
	}

	if i.uninstalled.Load() || !i.set.Contains(path) {
		return content, nil
	}

	transformed, err := i.transform(content, path)
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", path, err)
	}

	return transformed, nil
}

// Uninstall disables the hook and returns the original loader.
func (i *Intercept) Uninstall() adapter.Loader {
	i.uninstalled.Store(true)
	slog.Debug("load intercept uninstalled")

	return i.base
}
