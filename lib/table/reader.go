package table

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/androidarduino/vrdb/lib/codec"
)

// --------------------------------------------------------------------------
// Reader
// --------------------------------------------------------------------------

// Reader performs point lookups against a single table file. Opening a
// Reader loads the footer and the sparse index once; each Find then reads
// exactly one data block from disk (or none, when the index already proves
// the key absent).
//
// Thread-safety: a Reader is safe for concurrent use. It holds no open
// file handle between lookups; every Find opens, reads and closes.
type Reader struct {
	path       string
	indexKeys  []string
	indexOffs  []uint64
	indexStart uint64
}

// Open opens the table at path and caches its sparse index.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	indexStart, size, err := readFooter(f)
	if err != nil {
		return nil, err
	}

	if _, err := f.Seek(int64(indexStart), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to index: %w", err)
	}
	br := bufio.NewReader(io.LimitReader(f, size-8-int64(indexStart)))

	n, err := readUint64Checked(br, path)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		path:       path,
		indexKeys:  make([]string, 0, n),
		indexOffs:  make([]uint64, 0, n),
		indexStart: indexStart,
	}
	for i := uint64(0); i < n; i++ {
		key, err := readStringChecked(br, path)
		if err != nil {
			return nil, err
		}
		off, err := readUint64Checked(br, path)
		if err != nil {
			return nil, err
		}
		if off >= indexStart {
			return nil, fmt.Errorf("%w: %s: block offset %d inside index region", ErrCorruptTable, path, off)
		}
		r.indexKeys = append(r.indexKeys, key)
		r.indexOffs = append(r.indexOffs, off)
	}
	return r, nil
}

// Path returns the file path this Reader was opened on.
func (r *Reader) Path() string {
	return r.path
}

// Find looks up key and returns its value. The second return value is
// false when the key is not present in the table.
func (r *Reader) Find(key string) (string, bool, error) {
	if len(r.indexKeys) == 0 {
		return "", false, nil
	}

	// The candidate block is the one whose first key is the greatest index
	// key <= key. If even the first index key is greater, the key cannot
	// exist and no block is read.
	i := sort.SearchStrings(r.indexKeys, key)
	if i == len(r.indexKeys) || r.indexKeys[i] != key {
		if i == 0 {
			return "", false, nil
		}
		i--
	}

	f, err := os.Open(r.path)
	if err != nil {
		return "", false, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(r.indexOffs[i]), io.SeekStart); err != nil {
		return "", false, fmt.Errorf("seek to block: %w", err)
	}
	br := bufio.NewReader(f)

	count, err := readUint64Checked(br, r.path)
	if err != nil {
		return "", false, err
	}
	for j := uint64(0); j < count; j++ {
		k, err := readStringChecked(br, r.path)
		if err != nil {
			return "", false, err
		}
		v, err := readStringChecked(br, r.path)
		if err != nil {
			return "", false, err
		}
		if k == key {
			return v, true, nil
		}
	}
	return "", false, nil
}

// --------------------------------------------------------------------------
// Bulk read
// --------------------------------------------------------------------------

// LoadAll reads every record of the table at path in key order. It walks
// the data region block by block, bounded by the footer's index offset,
// and never touches the index. Used by merge and by the inspector CLI.
func LoadAll(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	indexStart, _, err := readFooter(f)
	if err != nil {
		return nil, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to data: %w", err)
	}

	// Counting reader so we know when the data region ends.
	br := bufio.NewReader(io.LimitReader(f, int64(indexStart)))

	var (
		records []Record
		read    uint64
	)
	for read < indexStart {
		count, err := readUint64Checked(br, path)
		if err != nil {
			return nil, err
		}
		read += 8
		for i := uint64(0); i < count; i++ {
			k, err := readStringChecked(br, path)
			if err != nil {
				return nil, err
			}
			v, err := readStringChecked(br, path)
			if err != nil {
				return nil, err
			}
			read += 8 + uint64(len(k)) + 8 + uint64(len(v))
			records = append(records, Record{Key: k, Value: v})
		}
	}
	return records, nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// readFooter reads the trailing index pointer and validates it against the
// file size. It returns the index start offset and the total file size.
func readFooter(f *os.File) (uint64, int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, 0, fmt.Errorf("stat table: %w", err)
	}
	size := info.Size()
	if size < 8 {
		return 0, 0, fmt.Errorf("%w: %s: %d bytes is smaller than the footer", ErrCorruptTable, f.Name(), size)
	}

	if _, err := f.Seek(-8, io.SeekEnd); err != nil {
		return 0, 0, fmt.Errorf("seek to footer: %w", err)
	}
	indexStart, err := codec.ReadUint64(f)
	if err != nil {
		return 0, 0, fmt.Errorf("read footer: %w", err)
	}

	if indexStart > uint64(size)-8 {
		return 0, 0, fmt.Errorf("%w: %s: index offset %d beyond file size %d", ErrCorruptTable, f.Name(), indexStart, size)
	}
	return indexStart, size, nil
}

// readUint64Checked maps a truncated read onto ErrCorruptTable. Inside a
// structurally valid file every primitive is fully present, so running off
// the end means the file is damaged, not that the stream simply ended.
func readUint64Checked(r io.Reader, path string) (uint64, error) {
	v, err := codec.ReadUint64(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrCorruptTable, path, err)
	}
	return v, nil
}

func readStringChecked(r io.Reader, path string) (string, error) {
	s, err := codec.ReadString(r)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrCorruptTable, path, err)
	}
	return s, nil
}
