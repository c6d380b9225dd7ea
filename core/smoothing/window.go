// Package smoothing provides the rolling mean used to damp the noisy
// household power signal.
package smoothing

import "gonum.org/v1/gonum/stat"

// DefaultSize is the number of samples held by a Window created with size <= 0.
const DefaultSize = 10

// Window is a fixed-capacity ring buffer of the most recent samples.
// It is not safe for concurrent use.
type Window struct {
	buf  []float64
	head int
	n    int
}

// NewWindow returns an empty window holding at most size values.
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultSize
	}
	return &Window{buf: make([]float64, size)}
}

// Push appends v, evicting the oldest value when full, and returns the mean
// of the values now held.
func (w *Window) Push(v float64) float64 {
	w.buf[(w.head+w.n)%len(w.buf)] = v
	if w.n < len(w.buf) {
		w.n++
	} else {
		w.head = (w.head + 1) % len(w.buf)
	}
	m, _ := w.Mean()
	return m
}

// Mean returns the arithmetic mean of the held values. ok is false when the
// window is empty.
func (w *Window) Mean() (mean float64, ok bool) {
	if w.n == 0 {
		return 0, false
	}
	return stat.Mean(w.Values(), nil), true
}

// Values returns the held values ordered oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, w.n)
	for i := 0; i < w.n; i++ {
		out[i] = w.buf[(w.head+i)%len(w.buf)]
	}
	return out
}

// Len returns the number of held values.
func (w *Window) Len() int { return w.n }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Reset empties the window.
func (w *Window) Reset() {
	w.head, w.n = 0, 0
}
