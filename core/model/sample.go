package model

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Sample is one reading of the household power meter. A sample is either
// Valid, carrying a finite value in watts, or Unavailable.
// Positive watts mean import from the grid, negative watts mean export.
type Sample struct {
	At    time.Time
	watts float64
	valid bool
}

// Valid returns a sample carrying w watts. Non-finite values yield an
// unavailable sample.
func Valid(at time.Time, w float64) Sample {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return Unavailable(at)
	}
	return Sample{At: at, watts: w, valid: true}
}

// Unavailable returns a sample without a usable value.
func Unavailable(at time.Time) Sample { return Sample{At: at} }

// Watts returns the value and whether the sample is valid.
func (s Sample) Watts() (float64, bool) { return s.watts, s.valid }

// IsValid reports whether the sample carries a value.
func (s Sample) IsValid() bool { return s.valid }

// ParseSample converts a raw state string into a Sample. The Home Assistant
// sentinels "unknown" and "unavailable", empty strings and anything that is not
// a finite number become Unavailable.
func ParseSample(raw string, at time.Time) Sample {
	v, ok := ParseReading(raw)
	if !ok {
		return Unavailable(at)
	}
	return Valid(at, v)
}

// ParseReading parses a raw entity state into a finite float.
func ParseReading(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	switch strings.ToLower(raw) {
	case "", "unknown", "unavailable", "none", "null":
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseSwitch parses an on/off style entity state. Unknown values report
// ok=false.
func ParseSwitch(raw string) (on bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "1", "yes", "connected", "plugged", "home":
		return true, true
	case "off", "false", "0", "no", "disconnected", "unplugged", "not_home":
		return false, true
	default:
		return false, false
	}
}
