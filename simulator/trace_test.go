package simulator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestReadTraceFormats(t *testing.T) {
	cases := map[string]string{
		"csv": "at,power\n2024-06-21T10:00:30Z,-900\n2024-06-21T10:00:00Z,unavailable\n",
		"json": `[{"at":"2024-06-21T10:00:30Z","power":-900},
		          {"at":"2024-06-21T10:00:00Z","power":null}]`,
		"yaml": "- at: 2024-06-21T10:00:30Z\n  power: -900\n- at: 2024-06-21T10:00:00Z\n",
	}
	for format, data := range cases {
		tr, err := ReadTrace(strings.NewReader(data), format)
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if len(tr) != 2 {
			t.Fatalf("%s: %d points", format, len(tr))
		}
		if !tr.Start().Equal(time.Date(2024, 6, 21, 10, 0, 0, 0, time.UTC)) {
			t.Fatalf("%s: trace not sorted, starts %s", format, tr.Start())
		}
		if tr[0].Power != nil {
			t.Fatalf("%s: first point should be unavailable", format)
		}
		if tr[1].Power == nil || *tr[1].Power != -900 {
			t.Fatalf("%s: unexpected power %v", format, tr[1].Power)
		}
	}
}

func TestReadTraceErrors(t *testing.T) {
	if _, err := ReadTrace(strings.NewReader("at,power\n"), "csv"); err == nil {
		t.Fatal("expected empty trace error")
	}
	if _, err := ReadTrace(strings.NewReader("at,power\nyesterday,1\n"), "csv"); err == nil {
		t.Fatal("expected time parse error")
	}
	if _, err := ReadTrace(strings.NewReader(""), "xml"); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestTraceSourceHoldsValues(t *testing.T) {
	base := time.Date(2024, 6, 21, 10, 0, 0, 0, time.UTC)
	v1, v2 := -800.0, 200.0
	tr := Trace{{At: base, Power: &v1}, {At: base.Add(time.Minute), Power: &v2}}
	src := tr.Source()
	if _, ok := src(base.Add(-time.Second)); ok {
		t.Fatal("reading before trace start")
	}
	if w, ok := src(base.Add(30 * time.Second)); !ok || w != v1 {
		t.Fatalf("got %.0f %t", w, ok)
	}
	if w, ok := src(base.Add(2 * time.Minute)); !ok || w != v2 {
		t.Fatalf("got %.0f %t", w, ok)
	}
}

func TestLoadTraceAndRun(t *testing.T) {
	var b strings.Builder
	b.WriteString("at,power\n")
	start := time.Date(2024, 6, 21, 11, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		b.WriteString(start.Add(time.Duration(i)*time.Minute).Format(time.RFC3339) + ",-2500\n")
	}
	path := filepath.Join(t.TempDir(), "trace.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
	tr, err := LoadTrace(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	rep, err := Run(context.Background(), Config{Start: tr.Start(), Duration: tr.End().Sub(tr.Start())}, tr.Source(), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if rep.Transitions != 1 || rep.SolarShare < 80 {
		t.Fatalf("transitions %d solar share %.1f", rep.Transitions, rep.SolarShare)
	}
}
