// Package decisionlog persists the decisions taken by the controller: timer
// changes, state transitions and setpoint requests. Raw power samples are
// never stored.
package decisionlog

import (
	"context"
	"time"
)

// Kind classifies a decision record.
type Kind string

const (
	KindTimer          Kind = "timer"
	KindTransition     Kind = "transition"
	KindSetpoint       Kind = "setpoint"
	KindEnabled        Kind = "enabled"
	KindActuationError Kind = "actuation_error"
)

// Record captures one controller decision.
type Record struct {
	Timestamp     time.Time `json:"timestamp"`
	ControllerID  string    `json:"controller_id"`
	Kind          Kind      `json:"kind"`
	SmoothedPower float64   `json:"smoothed_power"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to,omitempty"`
	Purpose       string    `json:"purpose,omitempty"`
	Action        string    `json:"action,omitempty"`
	Amps          int       `json:"amps,omitempty"`
	Detail        string    `json:"detail,omitempty"`
}

// Query defines filters for retrieving records. Zero fields match everything.
type Query struct {
	Start        time.Time
	End          time.Time
	Kind         Kind
	ControllerID string
	// Limit keeps only the most recent records when positive.
	Limit int
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

func (q Query) match(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if q.ControllerID != "" && r.ControllerID != q.ControllerID {
		return false
	}
	return true
}

func (q Query) limit(res []Record) []Record {
	if q.Limit > 0 && len(res) > q.Limit {
		return res[len(res)-q.Limit:]
	}
	return res
}

// NopStore discards records.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error          { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                  { return nil }
