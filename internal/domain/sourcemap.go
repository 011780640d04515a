package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"covrun.dev/pkg/covrun/internal/adapter"
	m "covrun.dev/pkg/covrun/internal/model"
)

// sourceMapSuffix is appended to a source path to locate its companion
// source map.
const sourceMapSuffix = ".map"

// SourceMapResolver loads optional companion source maps so reported
// coverage can be translated back to pre-build source locations.
type SourceMapResolver struct {
	fs adapter.SourceFSAdapter
}

// NewSourceMapResolver constructs a SourceMapResolver.
func NewSourceMapResolver(fs adapter.SourceFSAdapter) *SourceMapResolver {
	return &SourceMapResolver{fs: fs}
}

// Resolve loads the source map next to path. A missing map is not an
// error; it simply means no translation.
func (r *SourceMapResolver) Resolve(path m.Path) (*m.SourceMap, error) {
	content, err := r.fs.ReadFile(path + sourceMapSuffix)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to read source map for %s: %w", path, err)
	}

	var sourceMap m.SourceMap
	if err := json.Unmarshal(content, &sourceMap); err != nil {
		slog.Warn("ignoring malformed source map", "path", path, "error", err)
		return nil, nil
	}

	return &sourceMap, nil
}

// Translate rewrites a FileCoverage's locations into pre-build source
// coordinates. Lines without a mapping keep their generated location.
func Translate(fc *m.FileCoverage, sourceMap *m.SourceMap) {
	if fc == nil || sourceMap == nil {
		return
	}

	translateRange := func(loc m.Range) m.Range {
		if line, ok := sourceMap.OriginalLine(loc.Start.Line); ok {
			loc.Start.Line = line
		}

		if line, ok := sourceMap.OriginalLine(loc.End.Line); ok {
			loc.End.Line = line
		}

		return loc
	}

	for i := range fc.Meta.Statements {
		fc.Meta.Statements[i].Loc = translateRange(fc.Meta.Statements[i].Loc)
	}

	for i := range fc.Meta.Functions {
		fc.Meta.Functions[i].Decl = translateRange(fc.Meta.Functions[i].Decl)
	}

	for i := range fc.Meta.Branches {
		fc.Meta.Branches[i].Loc = translateRange(fc.Meta.Branches[i].Loc)

		for j := range fc.Meta.Branches[i].Arms {
			fc.Meta.Branches[i].Arms[j] = translateRange(fc.Meta.Branches[i].Arms[j])
		}
	}

	if sourceMap.Source != "" {
		fc.Meta.Path = m.Path(sourceMap.Source)
	}
}
