// Package covrt is the runtime counter registry referenced by
// instrumented sources. Each coverage run registers a table under a
// unique key, so concurrent uses of the library in one process never
// collide; the table lives until the process exits.
package covrt

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Key addresses one run's counter table.
type Key string

var (
	registryMu sync.RWMutex
	registry   = map[Key]*Table{}

	keySeq atomic.Uint64
)

// NewKey returns a key that is unique within the process and very
// likely unique across processes.
func NewKey() Key {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Timestamp fallback; the sequence number alone already
		// guarantees in-process uniqueness.
		return Key(fmt.Sprintf("covrun_%d_%d", time.Now().UnixNano(), keySeq.Add(1)))
	}

	return Key(fmt.Sprintf("covrun_%s_%d", hex.EncodeToString(buf[:]), keySeq.Add(1)))
}

// Register creates the table for key, or returns the existing one.
func Register(key Key) *Table {
	registryMu.Lock()
	defer registryMu.Unlock()

	if table, ok := registry[key]; ok {
		return table
	}

	table := &Table{files: map[string]*FileCounters{}}
	registry[key] = table

	return table
}

// Lookup returns the table registered under key.
func Lookup(key Key) (*Table, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	table, ok := registry[key]

	return table, ok
}

// Release drops the table for key. Hit functions silently discard
// records for unregistered keys, so late hits from instrumented code
// never panic.
func Release(key Key) {
	registryMu.Lock()
	defer registryMu.Unlock()

	delete(registry, key)
}

// FileCounters is one file's counter slab. Slices auto-grow as hit
// identifiers arrive, so generated code needs no registration step.
type FileCounters struct {
	Stmts    []uint64   `json:"s"`
	Funcs    []uint64   `json:"f"`
	Branches [][]uint64 `json:"b"`
}

// Table is a process-wide mutable mapping from file path to counters.
// Go test engines execute instrumented code on many goroutines, so all
// access is serialized by a mutex.
type Table struct {
	mu    sync.Mutex
	files map[string]*FileCounters
}

// HitStmt increments the statement counter id for path in the table
// registered under key. Called from instrumented code.
func HitStmt(key Key, path string, id int) {
	if table, ok := Lookup(key); ok {
		table.hit(path, func(fc *FileCounters) {
			fc.Stmts = grow(fc.Stmts, id)
			fc.Stmts[id]++
		})
	}
}

// HitFunc increments the function counter id for path. Called from
// instrumented code.
func HitFunc(key Key, path string, id int) {
	if table, ok := Lookup(key); ok {
		table.hit(path, func(fc *FileCounters) {
			fc.Funcs = grow(fc.Funcs, id)
			fc.Funcs[id]++
		})
	}
}

// HitBranch increments counter arm of branch id for path. Called from
// instrumented code.
func HitBranch(key Key, path string, id, arm int) {
	if table, ok := Lookup(key); ok {
		table.hit(path, func(fc *FileCounters) {
			for len(fc.Branches) <= id {
				fc.Branches = append(fc.Branches, nil)
			}

			fc.Branches[id] = grow(fc.Branches[id], arm)
			fc.Branches[id][arm]++
		})
	}
}

func (t *Table) hit(path string, record func(*FileCounters)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fc, ok := t.files[path]
	if !ok {
		fc = &FileCounters{}
		t.files[path] = fc
	}

	record(fc)
}

// Empty reports whether no counters were recorded.
func (t *Table) Empty() bool {
	if t == nil {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.files) == 0
}

// Snapshot deep-copies the current counters so aggregation reads a
// stable view.
func (t *Table) Snapshot() map[string]FileCounters {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make(map[string]FileCounters, len(t.files))

	for path, fc := range t.files {
		copied := FileCounters{
			Stmts:    append([]uint64(nil), fc.Stmts...),
			Funcs:    append([]uint64(nil), fc.Funcs...),
			Branches: make([][]uint64, len(fc.Branches)),
		}

		for i, arms := range fc.Branches {
			copied.Branches[i] = append([]uint64(nil), arms...)
		}

		snapshot[path] = copied
	}

	return snapshot
}

func grow(counters []uint64, id int) []uint64 {
	for len(counters) <= id {
		counters = append(counters, 0)
	}

	return counters
}
