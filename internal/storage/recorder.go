package storage

import (
	"context"
	"errors"
)

// ErrHistoryDisabled is returned when history is read without a database.
var ErrHistoryDisabled = errors.New("history database is not configured (set HISTORY_DB)")

// Recorder persists lookups.
type Recorder interface {
	RecordLookup(ctx context.Context, l *Lookup) error
	ListLookups(ctx context.Context, symbol string, limit int) ([]Lookup, error)
	Close() error
}

// NoopRecorder is used when no history database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordLookup(context.Context, *Lookup) error { return nil }

func (n *NoopRecorder) ListLookups(context.Context, string, int) ([]Lookup, error) {
	return nil, ErrHistoryDisabled
}

func (n *NoopRecorder) Close() error { return nil }
