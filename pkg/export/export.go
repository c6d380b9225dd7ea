// Package export writes simulation results for spreadsheets and notebooks.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/pvcharge/simulator"
)

// Formats supported by Write.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// WriteJSON writes the full report, series included, in JSON format.
func WriteJSON(w io.Writer, rep *simulator.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// WriteCSV writes the per-step series in CSV format.
func WriteCSV(w io.Writer, series []simulator.Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"at", "house_w", "charger_w", "smoothed_w", "charging", "amps", "efficiency", "soc"}); err != nil {
		return err
	}
	for _, p := range series {
		house := ""
		if p.Available {
			house = formatFloat(p.HouseW)
		}
		rec := []string{
			p.At.Format(time.RFC3339),
			house,
			formatFloat(p.ChargerW),
			formatFloat(p.SmoothedW),
			strconv.FormatBool(p.Charging),
			strconv.Itoa(p.Amps),
			formatFloat(p.Efficiency),
			formatFloat(p.SoC),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Write selects the writer for format.
func Write(w io.Writer, format string, rep *simulator.Report) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rep.Series)
	case FormatJSON:
		return WriteJSON(w, rep)
	default:
		return &UnsupportedFormatError{Format: format}
	}
}

// UnsupportedFormatError reports an unknown export format.
type UnsupportedFormatError struct{ Format string }

func (e *UnsupportedFormatError) Error() string { return "unsupported export format " + strconv.Quote(e.Format) }

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) }
