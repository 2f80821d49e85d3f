// Package engine implements the log-structured merge storage engine that
// backs the server. It composes one active in-memory buffer, one shadow
// buffer and an ordered list of immutable on-disk tables, and exposes
// exactly two operations to the outside: Put and Get.
//
// Write path: Put inserts into the active buffer. When the active buffer
// crosses its entry threshold the engine swaps active and shadow, drains
// the frozen snapshot in sorted order and writes it as a new table file,
// which is appended to the table list (newest last).
//
// Read path: Get consults the tiers in order. Active buffer, shadow
// buffer, then the tables from newest to oldest, returning the first hit.
// Because every flush appends newest-last and reads walk newest-first, a
// later write always shadows earlier occurrences of the same key.
//
// Merge: the merge procedure reduces the whole table list to a single
// table holding the value-preserving union of its inputs. On duplicate
// keys the record from the newest input wins. Inputs are deleted only
// after the output has been published.
//
// Key Components:
//
//   - Engine: the top-level store. One instance owns a data directory
//     exclusively. All mutating operations are serialized under a single
//     lock; reads share the lock so they always observe either the
//     pre-swap or the post-swap state of a flush, and either the
//     pre-merge or the post-merge table list, never an intermediate one.
//
//   - reader cache: opened table readers (with their cached sparse
//     indexes) are kept in a concurrent map keyed by file path, so the
//     read path pays the index load once per table file.
//
//   - metrics: cumulative counters for put/get traffic and for the time
//     and bytes spent in flush and merge, exported in Prometheus format
//     by the server's admin endpoint.
//
// Failure policy: a table that fails to open or read is treated as a
// lookup miss for that table and the walk continues with older tables. A
// failed flush or merge leaves the engine in its prior valid state. No
// engine error aborts the process.
package engine
