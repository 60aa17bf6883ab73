package health

// DefaultWindowSize is the number of checks the rolling average covers.
const DefaultWindowSize = 5

// Window is a fixed-size circular buffer of response times.
// It is not safe for concurrent use; each target's worker owns its window.
type Window struct {
	buf  []float64
	next int
	n    int
}

func NewWindow(size int) *Window {
	if size < 1 {
		size = DefaultWindowSize
	}
	return &Window{buf: make([]float64, size)}
}

// Add pushes ms, evicting the oldest sample once the window is full.
func (w *Window) Add(ms float64) {
	w.buf[w.next] = ms
	w.next = (w.next + 1) % len(w.buf)
	if w.n < len(w.buf) {
		w.n++
	}
}

func (w *Window) Len() int { return w.n }

// Avg is the mean of the samples currently held, or 0 when empty.
func (w *Window) Avg() float64 {
	if w.n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < w.n; i++ {
		sum += w.buf[i]
	}
	return sum / float64(w.n)
}

// Samples returns the held samples oldest first.
func (w *Window) Samples() []float64 {
	out := make([]float64, 0, w.n)
	start := (w.next - w.n + len(w.buf)) % len(w.buf)
	for i := 0; i < w.n; i++ {
		out = append(out, w.buf[(start+i)%len(w.buf)])
	}
	return out
}
