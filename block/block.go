// Package block maps byte ranges of a file onto the fixed-size blocks that
// the pyramid tracks and the oblivious accessor reads and writes.
package block

// Size is the length of one block in bytes.
const Size = 1 << 12

// Range returns the inclusive range of blocks spanned by count bytes
// starting at position. A zero count yields the single block holding
// position; callers handle zero-length operations before calling Range.
func Range(count, position int64) (first, last int64) {
	first = position / Size
	last = (position + count - 1) / Size
	if last < first {
		last = first
	}
	return first, last
}

// Count returns the number of blocks needed to hold size bytes, rounding up.
func Count(size int64) int64 {
	if size <= 0 {
		return 0
	}
	return (size + Size - 1) / Size
}

// Final returns the id of the last block of a file of the given size,
// or -1 for an empty file.
func Final(size int64) int64 {
	return Count(size) - 1
}

// Offset returns the byte offset of block id within the file.
func Offset(id int64) int64 {
	return id * Size
}

// Valid returns the number of bytes of block id that lie inside a file of
// the given size: Size for interior blocks, the tail length for a partial
// final block, and 0 for blocks at or past the end.
func Valid(id, size int64) int {
	off := Offset(id)
	switch {
	case off >= size:
		return 0
	case size-off >= Size:
		return Size
	default:
		return int(size - off)
	}
}

// Span is the part of one block covered by a byte range.
type Span struct {
	Block int64 // block id
	Start int   // first byte within the block
	Len   int   // number of bytes
	Buf   int   // offset of the first byte within the caller's buffer
}

// Spans splits count bytes at position into per-block spans, in block
// order. The first span covers the tail of its block, the last span its
// head, and interior spans whole blocks; a range inside one block yields a
// single exact span.
func Spans(count, position int64) []Span {
	if count <= 0 {
		return nil
	}
	first, last := Range(count, position)
	spans := make([]Span, 0, last-first+1)
	buf := 0
	for id := first; id <= last; id++ {
		start := 0
		if id == first {
			start = int(position % Size)
		}
		end := Size
		if id == last {
			end = int((position+count-1)%Size) + 1
		}
		spans = append(spans, Span{Block: id, Start: start, Len: end - start, Buf: buf})
		buf += end - start
	}
	return spans
}
