// SPDX-License-Identifier: MIT
package audio

import (
	"slices"
	"testing"
)

func TestRingBufferLatest(t *testing.T) {
	tests := []struct {
		desc   string
		size   int
		writes [][]float32
		read   int
		want   []float32
	}{
		{"Empty", 4, nil, 3, []float32{}},
		{"Partial fill", 4, [][]float32{{1, 2}}, 3, []float32{1, 2}},
		{"Exact fill", 4, [][]float32{{1, 2, 3, 4}}, 4, []float32{1, 2, 3, 4}},
		{"Newest only", 4, [][]float32{{1, 2, 3, 4}}, 2, []float32{3, 4}},
		{"Wraparound", 4, [][]float32{{1, 2, 3}, {4, 5}}, 4, []float32{2, 3, 4, 5}},
		{"Oversized write", 4, [][]float32{{1, 2, 3, 4, 5, 6, 7}}, 4, []float32{4, 5, 6, 7}},
		{"Many small writes", 3, [][]float32{{1}, {2}, {3}, {4}, {5}}, 3, []float32{3, 4, 5}},
		{"Read larger than size", 2, [][]float32{{1, 2, 3}}, 5, []float32{2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			rb := NewRingBuffer(tt.size)
			for _, w := range tt.writes {
				rb.Write(w)
			}

			dst := make([]float32, tt.read)
			n := rb.Latest(dst)
			if !slices.Equal(dst[:n], tt.want) {
				t.Errorf("Latest() = %v, want %v", dst[:n], tt.want)
			}
		})
	}
}

func TestRingBufferClear(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Write([]float32{1, 2, 3})
	if rb.Len() != 3 {
		t.Errorf("Len() = %d, want 3", rb.Len())
	}

	rb.Clear()
	if rb.Len() != 0 {
		t.Errorf("Len() = %d after Clear, want 0", rb.Len())
	}
	if n := rb.Latest(make([]float32, 4)); n != 0 {
		t.Errorf("Latest() returned %d samples after Clear", n)
	}

	rb.Write([]float32{9})
	dst := make([]float32, 4)
	n := rb.Latest(dst)
	if n != 1 || dst[0] != 9 {
		t.Errorf("Latest() after Clear and Write = %v", dst[:n])
	}
}

func TestRingBufferNoAllocs(t *testing.T) {
	rb := NewRingBuffer(1024)
	in := make([]float32, 300)
	out := make([]float32, 512)

	allocs := testing.AllocsPerRun(100, func() {
		rb.Write(in)
		rb.Latest(out)
	})
	if allocs > 0 {
		t.Errorf("ring buffer allocated memory: got %.1f allocs, want 0", allocs)
	}
}
