// Package table implements the immutable on-disk sorted table format.
//
// A table file is the concatenation of data blocks, a sparse index and a
// fixed-size footer, with no padding between sections:
//
//	[block_0][block_1]...[block_{B-1}]  [index]  [footer]
//	block_i := u64 count, then count x (string key, string value)
//	index   := u64 N, then N x (string key, u64 offset)
//	footer  := u64 index start offset
//
// All integers are little-endian uint64, all strings are length-prefixed
// (see the codec package). Records are globally ascending by key across
// the whole file, so the records inside each block are ascending too.
// Writers group records into blocks of BlockSize entries; readers never
// need to know BlockSize because every block carries its own count.
//
// The sparse index holds one entry per block: the block's first key mapped
// to the block's starting byte offset. A point lookup reads the footer,
// loads the index, selects the single block whose key range can contain
// the key and scans only that block. The index of an open Reader is cached
// for the Reader's lifetime.
//
// Table files are never modified after they have been written; updates are
// expressed by writing a successor file.
package table
