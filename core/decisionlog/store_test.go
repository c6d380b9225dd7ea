package decisionlog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords(base time.Time) []Record {
	return []Record{
		{Timestamp: base, ControllerID: "c1", Kind: KindTimer, Purpose: "arm_on", Action: "armed", SmoothedPower: -600},
		{Timestamp: base.Add(2 * time.Minute), ControllerID: "c1", Kind: KindTransition, From: "off", To: "charging", SmoothedPower: -600},
		{Timestamp: base.Add(3 * time.Minute), ControllerID: "c1", Kind: KindSetpoint, From: "1", To: "2", Amps: 2, SmoothedPower: -800},
		{Timestamp: base.Add(4 * time.Minute), ControllerID: "c2", Kind: KindSetpoint, From: "6", To: "5", Amps: 5, SmoothedPower: 150},
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for _, r := range sampleRecords(base) {
		require.NoError(t, store.Append(ctx, r))
	}

	all, err := store.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, KindTimer, all[0].Kind)
	assert.True(t, all[0].Timestamp.Equal(base))

	setpoints, err := store.Query(ctx, Query{Kind: KindSetpoint})
	require.NoError(t, err)
	assert.Len(t, setpoints, 2)

	window, err := store.Query(ctx, Query{Start: base.Add(time.Minute), End: base.Add(3 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	c2, err := store.Query(ctx, Query{ControllerID: "c2"})
	require.NoError(t, err)
	require.Len(t, c2, 1)
	assert.Equal(t, 5, c2[0].Amps)

	last, err := store.Query(ctx, Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "c2", last[0].ControllerID)
}

func TestJSONLStore(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "decisions.jsonl"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestJSONLStore_SkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decisions.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0o644))
	store, err := NewJSONLStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), Record{Kind: KindEnabled, Timestamp: time.Now()}))
	out, err := store.Query(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, out, 1)
}

func TestRotatingJSONLStore(t *testing.T) {
	store, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "logs", "decisions.jsonl"), 1, 3, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestRotatingJSONLStore_ReadsBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "decisions.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 5, 0)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	detail := strings.Repeat("x", 2048)
	n := 700
	for i := 0; i < n; i++ {
		rec := Record{Timestamp: time.Unix(int64(i), 0), Kind: KindSetpoint, Amps: i, Detail: detail}
		require.NoError(t, store.Append(ctx, rec))
	}
	files, err := filepath.Glob(filepath.Join(dir, "decisions*"))
	require.NoError(t, err)
	if len(files) < 2 {
		t.Fatalf("expected rotation, got files %v", files)
	}
	out, err := store.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, out, n)
	for i, r := range out {
		if r.Amps != i {
			t.Fatalf("record %d out of order: %d", i, r.Amps)
		}
	}
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, backend := range []string{"jsonl", "rotating", "sqlite", "none"} {
		cfg := Config{Backend: backend, Path: filepath.Join(dir, backend+".log")}
		cfg.SetDefaults()
		require.NoError(t, cfg.Validate())
		store, err := Open(cfg)
		require.NoError(t, err, backend)
		require.NoError(t, store.Close())
	}
	bad := Config{Backend: "csv"}
	bad.SetDefaults()
	assert.Error(t, bad.Validate())
}
