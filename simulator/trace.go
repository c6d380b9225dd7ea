package simulator

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/pvcharge/core/model"
)

// TracePoint is one recorded household power reading. A nil Power marks an
// unavailable reading.
type TracePoint struct {
	At    time.Time `json:"at" yaml:"at"`
	Power *float64  `json:"power" yaml:"power"`
}

// Trace is a recorded power history ordered by time.
type Trace []TracePoint

// LoadTrace reads a trace file. The format follows the extension: .csv,
// .json, .yaml or .yml.
func LoadTrace(path string) (Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadTrace(f, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
}

// ReadTrace decodes a trace in the given format.
func ReadTrace(r io.Reader, format string) (Trace, error) {
	var (
		tr  Trace
		err error
	)
	switch format {
	case "csv":
		tr, err = readCSV(r)
	case "json":
		err = json.NewDecoder(r).Decode(&tr)
	case "yaml", "yml":
		err = yaml.NewDecoder(r).Decode(&tr)
	default:
		return nil, fmt.Errorf("unsupported trace format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s trace: %w", format, err)
	}
	if len(tr) == 0 {
		return nil, errors.New("empty trace")
	}
	sort.SliceStable(tr, func(i, j int) bool { return tr[i].At.Before(tr[j].At) })
	return tr, nil
}

// readCSV expects an "at,power" header. The power column accepts the same
// sentinels as entity states.
func readCSV(r io.Reader) (Trace, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	var tr Trace
	for i, row := range rows[1:] {
		at, err := time.Parse(time.RFC3339, strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		p := TracePoint{At: at}
		if v, ok := model.ParseReading(row[1]); ok {
			p.Power = &v
		}
		tr = append(tr, p)
	}
	return tr, nil
}

// Start returns the time of the first reading.
func (t Trace) Start() time.Time { return t[0].At }

// End returns the time of the last reading.
func (t Trace) End() time.Time { return t[len(t)-1].At }

// Source returns a PowerSource holding each reading until the next one.
// Times before the first reading are unavailable.
func (t Trace) Source() PowerSource {
	return func(at time.Time) (float64, bool) {
		i := sort.Search(len(t), func(i int) bool { return t[i].At.After(at) })
		if i == 0 {
			return 0, false
		}
		p := t[i-1]
		if p.Power == nil {
			return 0, false
		}
		return *p.Power, true
	}
}
