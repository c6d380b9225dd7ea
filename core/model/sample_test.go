package model

import (
	"math"
	"testing"
	"time"
)

func TestParseSample(t *testing.T) {
	now := time.Now()
	tests := []struct {
		raw   string
		want  float64
		valid bool
	}{
		{"-600", -600, true},
		{" 150.5 ", 150.5, true},
		{"0", 0, true},
		{"unknown", 0, false},
		{"unavailable", 0, false},
		{"Unavailable", 0, false},
		{"", 0, false},
		{"abc", 0, false},
		{"NaN", 0, false},
		{"+Inf", 0, false},
	}
	for _, tt := range tests {
		s := ParseSample(tt.raw, now)
		got, ok := s.Watts()
		if ok != tt.valid {
			t.Fatalf("%q: valid=%v want %v", tt.raw, ok, tt.valid)
		}
		if ok && got != tt.want {
			t.Fatalf("%q: got %v want %v", tt.raw, got, tt.want)
		}
		if !s.At.Equal(now) {
			t.Fatalf("%q: timestamp not kept", tt.raw)
		}
	}
}

func TestValidRejectsNonFinite(t *testing.T) {
	if Valid(time.Time{}, math.NaN()).IsValid() {
		t.Fatal("NaN accepted")
	}
	if Valid(time.Time{}, math.Inf(-1)).IsValid() {
		t.Fatal("-Inf accepted")
	}
	if !Valid(time.Time{}, -1).IsValid() {
		t.Fatal("finite value rejected")
	}
}

func TestParseSwitch(t *testing.T) {
	if on, ok := ParseSwitch("on"); !ok || !on {
		t.Fatalf("on: got %v %v", on, ok)
	}
	if on, ok := ParseSwitch("OFF"); !ok || on {
		t.Fatalf("off: got %v %v", on, ok)
	}
	if _, ok := ParseSwitch("unavailable"); ok {
		t.Fatal("unavailable should not parse")
	}
}
