package health

import "testing"

func TestWindow_AveragesLastFive(t *testing.T) {
	w := NewWindow(5)
	if w.Avg() != 0 {
		t.Fatalf("empty window avg should be 0, got %v", w.Avg())
	}
	for _, v := range []float64{10, 20, 30} {
		w.Add(v)
	}
	if w.Len() != 3 || w.Avg() != 20 {
		t.Fatalf("want len 3 avg 20, got len %d avg %v", w.Len(), w.Avg())
	}

	for _, v := range []float64{40, 50, 60} {
		w.Add(v)
	}
	// 10 was evicted
	if w.Len() != 5 || w.Avg() != 40 {
		t.Fatalf("want len 5 avg 40, got len %d avg %v", w.Len(), w.Avg())
	}
	got := w.Samples()
	want := []float64{20, 30, 40, 50, 60}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("samples: want %v got %v", want, got)
		}
	}
}

func TestWindow_InvalidSizeFallsBack(t *testing.T) {
	w := NewWindow(0)
	for i := 0; i < 10; i++ {
		w.Add(1)
	}
	if w.Len() != DefaultWindowSize {
		t.Fatalf("want %d got %d", DefaultWindowSize, w.Len())
	}
}
