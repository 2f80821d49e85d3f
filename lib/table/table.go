package table

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/androidarduino/vrdb/lib/codec"
)

// BlockSize is the number of records per data block. A smaller value means
// a larger sparse index but smaller reads from disk. The value is a writer
// parameter only; readers discover block sizes from the per-block count.
const BlockSize = 4

// Extension is the file name extension of table files.
const Extension = ".sst"

// ErrCorruptTable is returned when a table file fails structural
// validation, for example a footer offset beyond the end of the file or a
// length prefix overrunning the data region.
var ErrCorruptTable = errors.New("corrupt table file")

// Record is a single key-value pair.
type Record struct {
	Key   string
	Value string
}

// --------------------------------------------------------------------------
// Writer
// --------------------------------------------------------------------------

// Write persists records as a new table file at path. The records must
// already be sorted ascending by key and free of duplicate keys; the
// caller enforces both. Missing parent directories are created.
//
// The file is written to a temporary name and renamed into place, so a
// failed write never leaves a partial file at path.
func Write(path string, records []Record) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create table directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create table file: %w", err)
	}

	if err := writeAll(f, records); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close table file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("publish table file: %w", err)
	}
	return nil
}

// writeAll writes blocks, index and footer to f.
func writeAll(f *os.File, records []Record) error {
	w := bufio.NewWriterSize(f, 64*1024)

	type indexEntry struct {
		firstKey string
		offset   uint64
	}

	var (
		index  []indexEntry
		offset uint64
	)

	// Data blocks. Each block records its own entry count so readers can
	// walk the data region without knowing BlockSize.
	for i := 0; i < len(records); i += BlockSize {
		end := min(i+BlockSize, len(records))
		index = append(index, indexEntry{firstKey: records[i].Key, offset: offset})

		n := uint64(end - i)
		if err := codec.WriteUint64(w, n); err != nil {
			return err
		}
		offset += 8
		for _, rec := range records[i:end] {
			if err := codec.WriteString(w, rec.Key); err != nil {
				return err
			}
			if err := codec.WriteString(w, rec.Value); err != nil {
				return err
			}
			offset += 8 + uint64(len(rec.Key)) + 8 + uint64(len(rec.Value))
		}
	}

	// Sparse index. One entry per block, in key order (blocks are written
	// in key order, so insertion order is already sorted).
	indexStart := offset
	if err := codec.WriteUint64(w, uint64(len(index))); err != nil {
		return err
	}
	for _, entry := range index {
		if err := codec.WriteString(w, entry.firstKey); err != nil {
			return err
		}
		if err := codec.WriteUint64(w, entry.offset); err != nil {
			return err
		}
	}

	// Footer: the byte offset where the index begins, as the last 8 bytes
	// of the file.
	if err := codec.WriteUint64(w, indexStart); err != nil {
		return err
	}
	return w.Flush()
}
