package buffer

import (
	"slices"
	"testing"
)

func TestWindow(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		writes [][]int
		want   []int
	}{
		{"empty", 3, nil, []int{}},
		{"partial", 4, [][]int{{1, 2}}, []int{1, 2}},
		{"exact", 3, [][]int{{1, 2, 3}}, []int{1, 2, 3}},
		{"wrap", 3, [][]int{{1, 2}, {3, 4}}, []int{2, 3, 4}},
		{"oversized write", 3, [][]int{{1}, {2, 3, 4, 5, 6}}, []int{4, 5, 6}},
		{"many small", 2, [][]int{{1}, {2}, {3}, {4}, {5}}, []int{4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WindowN[int](tt.size)
			for _, p := range tt.writes {
				w.Write(p)
			}
			got := w.Snapshot()
			if !slices.Equal(got, tt.want) {
				t.Errorf("Snapshot() = %v, want %v", got, tt.want)
			}
			if w.Len() != len(tt.want) {
				t.Errorf("Len() = %d, want %d", w.Len(), len(tt.want))
			}
		})
	}
}

func TestWindow_Reset(t *testing.T) {
	w := WindowN[int16](4)
	w.Write([]int16{1, 2, 3, 4, 5})
	w.Reset()
	if w.Len() != 0 || len(w.Snapshot()) != 0 {
		t.Errorf("window not empty after Reset")
	}
	if w.Cap() != 4 {
		t.Errorf("Cap() = %d, want 4", w.Cap())
	}
}
