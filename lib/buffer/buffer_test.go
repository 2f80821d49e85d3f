package buffer

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPutGet(t *testing.T) {
	b := New(0)

	require.NoError(t, b.Put("a", "1"))
	v, ok := b.Get("a")
	require.True(t, ok)
	require.Equal(t, "1", v)

	_, ok = b.Get("missing")
	require.False(t, ok)
}

func TestPutOverwrites(t *testing.T) {
	b := New(0)

	require.NoError(t, b.Put("k", "old"))
	require.NoError(t, b.Put("k", "newer"))

	v, ok := b.Get("k")
	require.True(t, ok)
	require.Equal(t, "newer", v)
	require.Equal(t, 1, b.Len())
}

func TestSizeBytes(t *testing.T) {
	b := New(0)

	require.NoError(t, b.Put("ab", "cde")) // 5 bytes
	require.Equal(t, int64(5), b.SizeBytes())

	require.NoError(t, b.Put("ab", "c")) // value shrinks by 2
	require.Equal(t, int64(3), b.SizeBytes())

	require.NoError(t, b.Put("x", "y")) // plus 2
	require.Equal(t, int64(5), b.SizeBytes())
}

func TestReadonlyRejectsPut(t *testing.T) {
	b := New(0)
	b.SetReadonly(true)

	require.ErrorIs(t, b.Put("a", "1"), ErrReadonly)

	b.SetReadonly(false)
	require.NoError(t, b.Put("a", "1"))
}

func TestOversize(t *testing.T) {
	b := New(3)

	require.False(t, b.Oversize())
	b.Put("a", "1")
	b.Put("b", "2")
	require.False(t, b.Oversize())
	b.Put("c", "3")
	require.True(t, b.Oversize())

	// overwrites do not push the count over the threshold
	b2 := New(3)
	b2.Put("a", "1")
	b2.Put("a", "2")
	b2.Put("a", "3")
	require.False(t, b2.Oversize())
}

func TestDrainSorted(t *testing.T) {
	b := New(0)

	// insert out of order
	keys := []string{"mango", "apple", "cherry", "banana"}
	for i, k := range keys {
		require.NoError(t, b.Put(k, fmt.Sprintf("v%d", i)))
	}

	records := b.DrainSorted()
	require.Len(t, records, len(keys))
	require.True(t, sort.SliceIsSorted(records, func(i, j int) bool {
		return records[i].Key < records[j].Key
	}))

	// drain clears the buffer
	require.Equal(t, 0, b.Len())
	require.Equal(t, int64(0), b.SizeBytes())
	_, ok := b.Get("apple")
	require.False(t, ok)
}

func TestDrainSortedEmpty(t *testing.T) {
	b := New(0)
	require.Empty(t, b.DrainSorted())
}
