package smoothing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow_EmptyHasNoMean(t *testing.T) {
	w := NewWindow(10)
	if _, ok := w.Mean(); ok {
		t.Fatal("expected no mean on empty window")
	}
	if w.Len() != 0 || w.Cap() != 10 {
		t.Fatalf("unexpected len/cap %d/%d", w.Len(), w.Cap())
	}
}

func TestWindow_DefaultSize(t *testing.T) {
	if NewWindow(0).Cap() != DefaultSize {
		t.Fatalf("expected default capacity %d", DefaultSize)
	}
}

func TestWindow_RunningMean(t *testing.T) {
	w := NewWindow(10)
	want := []float64{100, 150, 200}
	for i, v := range []float64{100, 200, 300} {
		if got := w.Push(v); got != want[i] {
			t.Fatalf("push %d: mean %v want %v", i, got, want[i])
		}
	}
}

func TestWindow_KeepsLastValues(t *testing.T) {
	w := NewWindow(10)
	for n := 11; n <= 37; n++ {
		w.Reset()
		var last float64
		for i := 1; i <= n; i++ {
			last = w.Push(float64(i))
		}
		vals := w.Values()
		if len(vals) != 10 {
			t.Fatalf("n=%d: expected 10 values, got %d", n, len(vals))
		}
		sum := 0.0
		for i, v := range vals {
			if v != float64(n-9+i) {
				t.Fatalf("n=%d: value %d is %v", n, i, v)
			}
			sum += v
		}
		assert.InDelta(t, sum/10, last, 1e-9)
	}
}

func TestWindow_NegativeSamples(t *testing.T) {
	w := NewWindow(10)
	var m float64
	for i := 0; i < 25; i++ {
		m = w.Push(-600)
	}
	if math.Abs(m+600) > 1e-9 {
		t.Fatalf("expected -600 got %v", m)
	}
}
