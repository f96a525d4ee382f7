package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRange(t *testing.T) {
	tests := []struct {
		name      string
		count     int64
		position  int64
		wantFirst int64
		wantLast  int64
	}{
		{"single byte at zero", 1, 0, 0, 0},
		{"whole first block", Size, 0, 0, 0},
		{"crosses into second", Size + 1, 0, 0, 1},
		{"5000 from zero", 5000, 0, 0, 1},
		{"mid block", 100, 9000, 2, 2},
		{"ends on boundary", 96, 4000, 0, 0},
		{"starts on boundary", 10, Size, 1, 1},
		{"zero count", 0, 9000, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := Range(tt.count, tt.position)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantLast, last)
		})
	}
}

func TestCountAndFinal(t *testing.T) {
	tests := []struct {
		size      int64
		wantCount int64
		wantFinal int64
	}{
		{0, 0, -1},
		{1, 1, 0},
		{Size, 1, 0},
		{Size + 1, 2, 1},
		{3 * Size, 3, 2},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.wantCount, Count(tt.size), "Count(%d)", tt.size)
		assert.Equal(t, tt.wantFinal, Final(tt.size), "Final(%d)", tt.size)
	}
}

func TestValid(t *testing.T) {
	size := int64(2*Size + 10)
	assert.Equal(t, Size, Valid(0, size))
	assert.Equal(t, Size, Valid(1, size))
	assert.Equal(t, 10, Valid(2, size))
	assert.Equal(t, 0, Valid(3, size))
}

func TestSpans_SingleBlock(t *testing.T) {
	spans := Spans(100, 9000)
	require.Len(t, spans, 1)
	assert.Equal(t, Span{Block: 2, Start: 9000 - 2*Size, Len: 100, Buf: 0}, spans[0])
}

func TestSpans_MultiBlock(t *testing.T) {
	spans := Spans(2*Size, 100)
	require.Len(t, spans, 3)

	assert.Equal(t, Span{Block: 0, Start: 100, Len: Size - 100, Buf: 0}, spans[0])
	assert.Equal(t, Span{Block: 1, Start: 0, Len: Size, Buf: Size - 100}, spans[1])
	assert.Equal(t, Span{Block: 2, Start: 0, Len: 100, Buf: 2*Size - 100}, spans[2])

	total := 0
	for _, s := range spans {
		total += s.Len
	}
	assert.Equal(t, 2*Size, total)
}

func TestSpans_Empty(t *testing.T) {
	assert.Nil(t, Spans(0, 123))
}
