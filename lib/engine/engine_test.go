package engine

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/androidarduino/vrdb/lib/table"
)

func newTestEngine(t *testing.T, dir string, maxEntries int) *Engine {
	t.Helper()
	e, err := Open(&Options{DataDir: dir, MaxEntries: maxEntries})
	if err != nil {
		t.Fatalf("failed to open engine: %v", err)
	}
	return e
}

func listTables(t *testing.T, dir string) []string {
	t.Helper()
	paths, err := filepath.Glob(filepath.Join(dir, "*"+table.Extension))
	if err != nil {
		t.Fatalf("failed to list tables: %v", err)
	}
	return paths
}

func mustGet(t *testing.T, e *Engine, key, want string) {
	t.Helper()
	got, found := e.Get(key)
	if !found {
		t.Fatalf("expected key %q to be found", key)
	}
	if got != want {
		t.Fatalf("key %q: expected value %q, got %q", key, want, got)
	}
}

func TestPutGet(t *testing.T) {
	e := newTestEngine(t, t.TempDir(), 0)

	if err := e.Put("a", "1"); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if err := e.Put("b", "2"); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	mustGet(t, e, "a", "1")
	mustGet(t, e, "b", "2")

	if _, found := e.Get("c"); found {
		t.Errorf("expected key c to be absent")
	}
}

func TestOverwriteInBuffer(t *testing.T) {
	e := newTestEngine(t, t.TempDir(), 0)

	e.Put("k", "old")
	e.Put("k", "new")

	mustGet(t, e, "k", "new")
}

func TestFlushOnThreshold(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, dir, 2)

	e.Put("k1", "v1")
	e.Put("k2", "v2")
	e.Put("k3", "v3")

	// the first two puts crossed the threshold and were flushed to a
	// single table; the third sits in the fresh active buffer
	tables := listTables(t, dir)
	if len(tables) != 1 {
		t.Fatalf("expected exactly 1 table file, got %d", len(tables))
	}

	records, err := table.LoadAll(tables[0])
	if err != nil {
		t.Fatalf("failed to load table: %v", err)
	}
	want := []table.Record{{Key: "k1", Value: "v1"}, {Key: "k2", Value: "v2"}}
	if len(records) != len(want) {
		t.Fatalf("expected %d records in table, got %d", len(want), len(records))
	}
	for i := range want {
		if records[i] != want[i] {
			t.Errorf("record %d: expected %v, got %v", i, want[i], records[i])
		}
	}

	stats := e.Stats()
	if stats.ActiveEntries != 1 {
		t.Errorf("expected 1 entry in active buffer, got %d", stats.ActiveEntries)
	}

	mustGet(t, e, "k1", "v1")
	mustGet(t, e, "k3", "v3")
}

func TestOverwriteAcrossFlush(t *testing.T) {
	e := newTestEngine(t, t.TempDir(), 2)

	e.Put("k", "old")
	e.Put("pad", "x") // flush: table holds k=old
	e.Put("k", "new") // buffered

	mustGet(t, e, "k", "new")
}

func TestMergeDisjointTables(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, dir, 2)

	e.Put("apple", "A")
	e.Put("banana", "B") // flush 1
	e.Put("cherry", "C")
	e.Put("date", "D") // flush 2

	if n := len(listTables(t, dir)); n != 2 {
		t.Fatalf("expected 2 tables before merge, got %d", n)
	}

	if err := e.Merge(); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	tables := listTables(t, dir)
	if len(tables) != 1 {
		t.Fatalf("expected exactly 1 table after merge, got %d", len(tables))
	}

	records, err := table.LoadAll(tables[0])
	if err != nil {
		t.Fatalf("failed to load merged table: %v", err)
	}
	want := []table.Record{
		{Key: "apple", Value: "A"},
		{Key: "banana", Value: "B"},
		{Key: "cherry", Value: "C"},
		{Key: "date", Value: "D"},
	}
	if len(records) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(records))
	}
	for i := range want {
		if records[i] != want[i] {
			t.Errorf("record %d: expected %v, got %v", i, want[i], records[i])
		}
	}

	for _, rec := range want {
		mustGet(t, e, rec.Key, rec.Value)
	}
}

func TestMergeNewestWins(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, dir, 2)

	e.Put("k", "old")
	e.Put("pad1", "x") // flush 1: k=old
	e.Put("k", "new")
	e.Put("pad2", "y") // flush 2: k=new

	if err := e.Merge(); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	tables := listTables(t, dir)
	if len(tables) != 1 {
		t.Fatalf("expected exactly 1 table after merge, got %d", len(tables))
	}

	records, err := table.LoadAll(tables[0])
	if err != nil {
		t.Fatalf("failed to load merged table: %v", err)
	}
	for _, rec := range records {
		if rec.Key == "k" && rec.Value != "new" {
			t.Errorf("expected merged table to map k to new, got %q", rec.Value)
		}
	}

	mustGet(t, e, "k", "new")
}

func TestMergeSingleTableKeepsRecords(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, dir, 2)

	e.Put("a", "1")
	e.Put("b", "2") // flush

	before, err := table.LoadAll(listTables(t, dir)[0])
	if err != nil {
		t.Fatalf("failed to load table: %v", err)
	}

	if err := e.Merge(); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	tables := listTables(t, dir)
	if len(tables) != 1 {
		t.Fatalf("expected exactly 1 table after merge, got %d", len(tables))
	}
	after, err := table.LoadAll(tables[0])
	if err != nil {
		t.Fatalf("failed to load merged table: %v", err)
	}

	if len(before) != len(after) {
		t.Fatalf("expected %d records after merge, got %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("record %d changed across merge: %v vs %v", i, before[i], after[i])
		}
	}
}

func TestMergeEmptyEngine(t *testing.T) {
	e := newTestEngine(t, t.TempDir(), 0)
	if err := e.Merge(); err != nil {
		t.Fatalf("merge of empty engine failed: %v", err)
	}
}

func TestCloseFlushesBuffer(t *testing.T) {
	dir := t.TempDir()

	e := newTestEngine(t, dir, 0)
	e.Put("persist", "me")
	if err := e.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if n := len(listTables(t, dir)); n != 1 {
		t.Fatalf("expected 1 table after close, got %d", n)
	}
}

func TestReopenRecoversTables(t *testing.T) {
	dir := t.TempDir()

	e := newTestEngine(t, dir, 2)
	e.Put("a", "1")
	e.Put("b", "2") // flush
	e.Put("c", "3")
	if err := e.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened := newTestEngine(t, dir, 2)
	mustGet(t, reopened, "a", "1")
	mustGet(t, reopened, "b", "2")
	mustGet(t, reopened, "c", "3")
}

func TestReopenNewestStillWins(t *testing.T) {
	dir := t.TempDir()

	e := newTestEngine(t, dir, 2)
	e.Put("k", "old")
	e.Put("pad1", "x") // flush 1
	e.Put("k", "new")
	e.Put("pad2", "y") // flush 2
	if err := e.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reopened := newTestEngine(t, dir, 2)
	mustGet(t, reopened, "k", "new")
}

func TestManyFlushesAndMerges(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, dir, 4)

	// interleave puts, overwrites and merges; the latest value per key
	// must win regardless of how flushes and merges fell
	for round := 0; round < 5; round++ {
		for i := 0; i < 10; i++ {
			key := fmt.Sprintf("key-%02d", i)
			value := fmt.Sprintf("round-%d", round)
			if err := e.Put(key, value); err != nil {
				t.Fatalf("put failed: %v", err)
			}
		}
		if round%2 == 1 {
			if err := e.Merge(); err != nil {
				t.Fatalf("merge failed: %v", err)
			}
		}
	}

	for i := 0; i < 10; i++ {
		mustGet(t, e, fmt.Sprintf("key-%02d", i), "round-4")
	}
}

func TestConcurrentPutGet(t *testing.T) {
	e := newTestEngine(t, t.TempDir(), 16)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				key := fmt.Sprintf("w%d-key-%d", worker, i)
				if err := e.Put(key, fmt.Sprintf("%d", i)); err != nil {
					t.Errorf("put failed: %v", err)
					return
				}
				if v, found := e.Get(key); !found || v != fmt.Sprintf("%d", i) {
					t.Errorf("key %s: expected %d, found=%v value=%q", key, i, found, v)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	// every written key is still readable afterwards
	for w := 0; w < 4; w++ {
		for i := 0; i < 100; i++ {
			key := fmt.Sprintf("w%d-key-%d", w, i)
			mustGet(t, e, key, fmt.Sprintf("%d", i))
		}
	}
}
