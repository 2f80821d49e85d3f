// Package buffer implements the engine's in-memory write absorber. A
// Buffer collects puts until it crosses its entry threshold, is frozen by
// the engine's swap, drained in sorted order into a new table and reset.
package buffer

import (
	"errors"
	"sort"

	"github.com/androidarduino/vrdb/lib/table"
)

// DefaultMaxEntries is the flush threshold used when no explicit limit is
// configured.
const DefaultMaxEntries = 1_000_000

// ErrReadonly is returned by Put while the buffer is frozen for a flush.
var ErrReadonly = errors.New("buffer is readonly")

// Buffer is an in-memory key-value map with a size threshold and a
// readonly flag used during flush. Keys are kept unordered internally;
// DrainSorted produces the ascending order a table write requires.
//
// Thread-safety: a Buffer is NOT safe for concurrent use on its own. The
// engine serializes all access under its own lock.
type Buffer struct {
	data       map[string]string
	sizeBytes  int64
	maxEntries int
	readonly   bool
}

// New creates an empty buffer. maxEntries <= 0 selects DefaultMaxEntries.
func New(maxEntries int) *Buffer {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Buffer{
		data:       make(map[string]string),
		maxEntries: maxEntries,
	}
}

// Put inserts or overwrites the value for key. It fails if the buffer is
// currently frozen by a flush.
func (b *Buffer) Put(key, value string) error {
	if b.readonly {
		return ErrReadonly
	}
	if old, ok := b.data[key]; ok {
		b.sizeBytes += int64(len(value)) - int64(len(old))
	} else {
		b.sizeBytes += int64(len(key)) + int64(len(value))
	}
	b.data[key] = value
	return nil
}

// Get returns the value for key. The second return value is false when the
// key is absent.
func (b *Buffer) Get(key string) (string, bool) {
	v, ok := b.data[key]
	return v, ok
}

// Len returns the number of entries.
func (b *Buffer) Len() int {
	return len(b.data)
}

// SizeBytes returns the sum of key and value lengths of all entries.
func (b *Buffer) SizeBytes() int64 {
	return b.sizeBytes
}

// Oversize reports whether the buffer has reached its entry threshold and
// should be flushed.
func (b *Buffer) Oversize() bool {
	return len(b.data) >= b.maxEntries
}

// Readonly reports whether the buffer is frozen.
func (b *Buffer) Readonly() bool {
	return b.readonly
}

// SetReadonly freezes or thaws the buffer. The engine freezes the former
// active buffer at swap time and thaws a buffer when it is re-selected as
// active.
func (b *Buffer) SetReadonly(readonly bool) {
	b.readonly = readonly
}

// DrainSorted returns all entries in ascending key order and clears the
// buffer. The returned records satisfy the table writer's sortedness and
// uniqueness contract (a map cannot hold duplicate keys).
func (b *Buffer) DrainSorted() []table.Record {
	records := make([]table.Record, 0, len(b.data))
	for k, v := range b.data {
		records = append(records, table.Record{Key: k, Value: v})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })

	b.data = make(map[string]string)
	b.sizeBytes = 0
	return records
}
