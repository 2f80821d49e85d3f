package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"

	"github.com/androidarduino/vrdb/lib/buffer"
	"github.com/androidarduino/vrdb/lib/table"
)

// ErrMergeInProgress is returned by Merge while another merge is running.
var ErrMergeInProgress = errors.New("merge already in progress")

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

// Options configures an Engine during initialization.
type Options struct {
	// DataDir is the directory holding the table files. The engine owns
	// it exclusively.
	DataDir string
	// MaxEntries is the buffer entry count that triggers a flush
	// (0 = buffer.DefaultMaxEntries).
	MaxEntries int
	// Logger receives diagnostics (nil = no logging).
	Logger *zap.Logger
}

// DefaultOptions returns the default engine options.
func DefaultOptions() *Options {
	return &Options{
		DataDir:    "data",
		MaxEntries: buffer.DefaultMaxEntries,
	}
}

// --------------------------------------------------------------------------
// Engine
// --------------------------------------------------------------------------

// Engine is the top-level store. One instance per data directory.
//
// Thread-safety: all methods are safe for concurrent use. Mutating
// operations (Put with its possible synchronous flush, Merge, Close) hold
// the write lock end to end; Get holds the read lock across the whole
// tier walk, so it always observes a consistent snapshot.
type Engine struct {
	mu     sync.RWMutex
	active *buffer.Buffer
	shadow *buffer.Buffer
	tables []string // table file paths, newest last
	closed bool

	merging atomic.Bool

	// readers caches one opened reader (with its loaded sparse index) per
	// live table file.
	readers *xsync.MapOf[string, *table.Reader]

	nameSeq atomic.Uint64
	opts    Options
	logger  *zap.Logger
}

// Open creates an engine over opts.DataDir, adopting any table files a previous
// run left there. Table file names sort by creation, so a lexicographic
// directory listing restores the original newest-last list order.
func Open(opts *Options) (*Engine, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(opts.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	paths, err := filepath.Glob(filepath.Join(opts.DataDir, "*"+table.Extension))
	if err != nil {
		return nil, fmt.Errorf("scan data directory: %w", err)
	}
	sort.Strings(paths)

	e := &Engine{
		active:  buffer.New(opts.MaxEntries),
		shadow:  buffer.New(opts.MaxEntries),
		tables:  paths,
		readers: xsync.NewMapOf[string, *table.Reader](),
		opts:    *opts,
		logger:  logger.Named("engine"),
	}

	if len(paths) > 0 {
		// Resume the name sequence above every adopted table so a fresh
		// flush can never collide with (and overwrite) an existing file.
		var maxSeq uint64
		for _, p := range paths {
			var sec, seq uint64
			if _, err := fmt.Sscanf(filepath.Base(p), "%d-%d", &sec, &seq); err == nil && seq > maxSeq {
				maxSeq = seq
			}
		}
		e.nameSeq.Store(maxSeq)

		e.logger.Info("adopted existing tables",
			zap.Int("count", len(paths)),
			zap.String("dir", opts.DataDir))
	}
	return e, nil
}

// --------------------------------------------------------------------------
// Core Operations
// --------------------------------------------------------------------------

// Put inserts or overwrites the value for key. When the active buffer
// crosses its threshold the triggered flush runs synchronously on the
// calling goroutine; a flush failure is logged and does not fail the put.
func (e *Engine) Put(key, value string) error {
	putTotal.Inc()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errors.New("engine is closed")
	}
	if err := e.active.Put(key, value); err != nil {
		return err
	}
	if e.active.Oversize() {
		if err := e.flushLocked(); err != nil {
			e.logger.Error("flush failed", zap.Error(err))
		}
	}
	return nil
}

// Get returns the most recent value written for key. The tiers are
// consulted in order: active buffer, shadow buffer, then the tables from
// newest to oldest. A table that cannot be read counts as a miss for that
// table and the walk continues.
func (e *Engine) Get(key string) (string, bool) {
	getTotal.Inc()

	e.mu.RLock()
	defer e.mu.RUnlock()

	if v, ok := e.active.Get(key); ok {
		getHits.Inc()
		return v, true
	}
	if v, ok := e.shadow.Get(key); ok {
		getHits.Inc()
		return v, true
	}
	for i := len(e.tables) - 1; i >= 0; i-- {
		r, err := e.reader(e.tables[i])
		if err != nil {
			e.logger.Warn("skipping unreadable table", zap.String("table", e.tables[i]), zap.Error(err))
			continue
		}
		v, ok, err := r.Find(key)
		if err != nil {
			e.logger.Warn("table lookup failed", zap.String("table", e.tables[i]), zap.Error(err))
			continue
		}
		if ok {
			getHits.Inc()
			return v, true
		}
	}
	return "", false
}

// Close flushes the active buffer to disk so buffered writes survive a
// clean shutdown, then marks the engine closed.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if e.active.Len() == 0 {
		return nil
	}
	path := e.nextTablePath()
	if err := table.Write(path, e.active.DrainSorted()); err != nil {
		return fmt.Errorf("flush on close: %w", err)
	}
	e.tables = append(e.tables, path)
	e.logger.Info("flushed active buffer on close", zap.String("table", path))
	return nil
}

// --------------------------------------------------------------------------
// Flush
// --------------------------------------------------------------------------

// flushLocked converts the active buffer into a new table. Caller holds
// the write lock, which makes the swap and the table list append a single
// atomic publication point for readers.
func (e *Engine) flushLocked() error {
	start := time.Now()
	bytesFlushed := e.active.SizeBytes()

	// Swap: the frozen snapshot becomes the shadow, the drained former
	// shadow becomes active again.
	e.active.SetReadonly(true)
	e.active, e.shadow = e.shadow, e.active
	e.active.SetReadonly(false)

	path := e.nextTablePath()
	records := e.shadow.DrainSorted()

	if err := table.Write(path, records); err != nil {
		// Restore the snapshot into the (empty) active buffer so no write is
		// lost; the buffer is oversize again, so the next put retries the
		// flush.
		e.shadow.SetReadonly(false)
		for _, rec := range records {
			_ = e.active.Put(rec.Key, rec.Value)
		}
		return err
	}

	e.tables = append(e.tables, path)
	e.shadow.SetReadonly(false)

	flushTotal.Inc()
	flushBytes.Add(int(bytesFlushed))
	flushDurationNs.Add(int(time.Since(start).Nanoseconds()))

	e.logger.Info("flushed buffer to table",
		zap.String("table", path),
		zap.Int("records", len(records)),
		zap.Int64("bytes", bytesFlushed),
		zap.Duration("took", time.Since(start)))
	return nil
}

// --------------------------------------------------------------------------
// Merge
// --------------------------------------------------------------------------

// Merge reduces the table list to a single table holding the
// value-preserving union of all current tables. On duplicate keys the
// record from the newest input wins. Input files are unlinked only after
// the merged table has been published. Returns ErrMergeInProgress when
// called while another merge is running.
func (e *Engine) Merge() error {
	if !e.merging.CompareAndSwap(false, true) {
		return ErrMergeInProgress
	}
	defer e.merging.Store(false)

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.tables) == 0 {
		return nil
	}

	start := time.Now()
	inputs := e.tables

	// Load every input fully into memory, oldest first.
	loaded := make([][]table.Record, len(inputs))
	var bytesOperated int64
	for i, path := range inputs {
		records, err := table.LoadAll(path)
		if err != nil {
			return fmt.Errorf("load merge input %s: %w", path, err)
		}
		loaded[i] = records
		for _, rec := range records {
			bytesOperated += int64(len(rec.Key)) + int64(len(rec.Value))
		}
	}

	merged := mergeRecords(loaded)

	// Defensive: the selection loop produces sorted output, but the table
	// writer's contract is strict.
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Key < merged[j].Key })
	for _, rec := range merged {
		bytesOperated += int64(len(rec.Key)) + int64(len(rec.Value))
	}

	out := e.nextTablePath()
	if err := table.Write(out, merged); err != nil {
		return fmt.Errorf("write merge output: %w", err)
	}

	// Publish the new list before touching the inputs.
	e.tables = []string{out}
	for _, path := range inputs {
		e.readers.Delete(path)
		if err := os.Remove(path); err != nil {
			e.logger.Warn("failed to remove merged input", zap.String("table", path), zap.Error(err))
		}
	}

	mergeTotal.Inc()
	mergeBytes.Add(int(bytesOperated))
	mergeDurationNs.Add(int(time.Since(start).Nanoseconds()))

	e.logger.Info("merged tables",
		zap.Int("inputs", len(inputs)),
		zap.String("output", out),
		zap.Int("records", len(merged)),
		zap.Duration("took", time.Since(start)))
	return nil
}

// mergeRecords unions the sorted input sequences. Inputs are ordered
// oldest to newest; on equal smallest keys the newest input's record is
// selected and every older occurrence of that key is skipped.
func mergeRecords(loaded [][]table.Record) []table.Record {
	cursors := make([]int, len(loaded))

	var out []table.Record
	for {
		best := -1
		var bestKey string
		for i, records := range loaded {
			if cursors[i] >= len(records) {
				continue
			}
			key := records[cursors[i]].Key
			// "<=" lets a later (newer) input take over on equal keys.
			if best == -1 || key <= bestKey {
				best, bestKey = i, key
			}
		}
		if best == -1 {
			break
		}
		out = append(out, loaded[best][cursors[best]])

		// Consume the selected key from every input that carries it.
		for i, records := range loaded {
			if cursors[i] < len(records) && records[cursors[i]].Key == bestKey {
				cursors[i]++
			}
		}
	}
	return out
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// nextTablePath returns a fresh table file path. The name combines the
// current Unix second with a monotonic sequence number, so two tables
// created within the same second never collide and names keep sorting in
// creation order.
func (e *Engine) nextTablePath() string {
	name := fmt.Sprintf("%d-%04d%s", time.Now().Unix(), e.nameSeq.Add(1), table.Extension)
	return filepath.Join(e.opts.DataDir, name)
}

// reader returns the cached reader for path, opening it on first use.
func (e *Engine) reader(path string) (*table.Reader, error) {
	if r, ok := e.readers.Load(path); ok {
		return r, nil
	}
	r, err := table.Open(path)
	if err != nil {
		return nil, err
	}
	actual, _ := e.readers.LoadOrStore(path, r)
	return actual, nil
}
