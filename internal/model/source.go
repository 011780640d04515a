// Package model defines the data structures for coverage runs.
package model

import (
	"runtime"
	"sort"
	"strings"
)

// Path represents a file system path.
type Path string

// caseInsensitiveFS reports whether path membership checks must fold case.
// Darwin and Windows default filesystems are case-insensitive.
var caseInsensitiveFS = runtime.GOOS == "darwin" || runtime.GOOS == "windows"

// NormalizePath folds a path for membership comparison on platforms with
// case-insensitive filesystems. On other platforms it is the identity.
func NormalizePath(path Path) Path {
	if caseInsensitiveFS {
		return Path(strings.ToLower(string(path)))
	}

	return path
}

// File represents a source code file.
type File struct {
	FullPath  Path
	ShortPath Path
	Hash      string
}

// SourceFileSet is the immutable set of coverable file paths for a run.
// Membership checks are case-normalized per platform.
type SourceFileSet struct {
	members map[Path]struct{}
	ordered []Path
}

// NewSourceFileSet builds a SourceFileSet from discovery output.
// Duplicate paths collapse to a single member.
func NewSourceFileSet(paths []Path) *SourceFileSet {
	set := &SourceFileSet{
		members: make(map[Path]struct{}, len(paths)),
	}

	for _, path := range paths {
		normalized := NormalizePath(path)
		if _, ok := set.members[normalized]; ok {
			continue
		}

		set.members[normalized] = struct{}{}
		set.ordered = append(set.ordered, path)
	}

	sort.Slice(set.ordered, func(i, j int) bool {
		return set.ordered[i] < set.ordered[j]
	})

	return set
}

// Contains reports whether path is a member of the set.
func (s *SourceFileSet) Contains(path Path) bool {
	if s == nil {
		return false
	}

	_, ok := s.members[NormalizePath(path)]

	return ok
}

// Paths returns the members in sorted order. The returned slice is a copy.
func (s *SourceFileSet) Paths() []Path {
	if s == nil {
		return nil
	}

	paths := make([]Path, len(s.ordered))
	copy(paths, s.ordered)

	return paths
}

// Len returns the cardinality of the set.
func (s *SourceFileSet) Len() int {
	if s == nil {
		return 0
	}

	return len(s.ordered)
}
