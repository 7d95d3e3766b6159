// Package state records reversible mutations so that a failed call leaves
// every touched component exactly as it was before the call started.
package state

import (
	"fmt"
	"slices"
	"sync"
)

// Journal is an append-only log of undo closures. Components write through
// Set/SetKey/DeleteKey (or Record) and the caller decides, per call, whether
// the recorded changes are kept or rolled back.
type Journal struct {
	mu      sync.Mutex
	entries []func()
	snaps   []int
}

// New returns an empty journal.
func New() *Journal {
	return &Journal{}
}

// Record appends an undo closure. It is a no-op on a nil journal so that
// components can be used standalone in tests.
func (j *Journal) Record(undo func()) {
	if j == nil {
		return
	}
	j.mu.Lock()
	j.entries = append(j.entries, undo)
	j.mu.Unlock()
}

// Snapshot returns an identifier for the current journal position.
func (j *Journal) Snapshot() int {
	if j == nil {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.snaps = append(j.snaps, len(j.entries))
	return len(j.snaps) - 1
}

// RevertToSnapshot undoes every change recorded after the snapshot was taken,
// newest first, and discards the snapshot along with any taken after it.
func (j *Journal) RevertToSnapshot(id int) {
	if j == nil {
		return
	}
	j.mu.Lock()
	if id < 0 || id >= len(j.snaps) {
		j.mu.Unlock()
		panic(fmt.Sprintf("state: snapshot %d cannot be reverted", id))
	}
	mark := j.snaps[id]
	undo := slices.Clone(j.entries[mark:])
	j.entries = j.entries[:mark]
	j.snaps = j.snaps[:id]
	j.mu.Unlock()

	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
}

// discard forgets the snapshot without reverting. The entries stay so that an
// enclosing snapshot can still roll them back; the outermost snapshot clears
// the log.
func (j *Journal) discard(id int) {
	if j == nil {
		return
	}
	j.mu.Lock()
	if id < len(j.snaps) {
		j.snaps = j.snaps[:id]
	}
	if len(j.snaps) == 0 {
		j.entries = nil
	}
	j.mu.Unlock()
}

// Atomic runs fn and reverts all changes it recorded if it returns an error
// or panics. Calls nest: an inner failure only rolls back the inner suffix.
func (j *Journal) Atomic(fn func() error) (err error) {
	id := j.Snapshot()
	defer func() {
		if r := recover(); r != nil {
			j.RevertToSnapshot(id)
			panic(r)
		}
		if err != nil {
			j.RevertToSnapshot(id)
			return
		}
		j.discard(id)
	}()
	return fn()
}

// Len reports the number of recorded entries.
func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

// Set assigns v to *dst and records the previous value.
func Set[T any](j *Journal, dst *T, v T) {
	prev := *dst
	j.Record(func() { *dst = prev })
	*dst = v
}

// SetKey assigns m[k] = v and records whether k was present before.
func SetKey[K comparable, V any](j *Journal, m map[K]V, k K, v V) {
	prev, ok := m[k]
	j.Record(func() {
		if ok {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
	m[k] = v
}

// DeleteKey removes k from m and records the previous entry.
func DeleteKey[K comparable, V any](j *Journal, m map[K]V, k K) {
	prev, ok := m[k]
	if !ok {
		return
	}
	j.Record(func() { m[k] = prev })
	delete(m, k)
}
