package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dyike/StockAnalyzer/pkg/sqlite"
)

const (
	ActionDetails = "details"
	ActionPredict = "predict"

	StatusOK    = "ok"
	StatusError = "error"
)

// Lookup is one recorded details or predict run.
type Lookup struct {
	ID        int64
	Timestamp time.Time
	Query     string
	Symbol    string
	Provider  string
	Action    string
	Status    string
	// Summary holds the company name for details and the error text on failure.
	Summary string
	Price   float64
}

// Store persists lookups in SQLite.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.initTable(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initTable() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS lookups (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			query      TEXT NOT NULL,
			symbol     TEXT NOT NULL,
			provider   TEXT NOT NULL DEFAULT '',
			action     TEXT NOT NULL,
			status     TEXT NOT NULL,
			summary    TEXT NOT NULL DEFAULT '',
			price      REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lookups_symbol ON lookups(symbol)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create lookups table: %w", err)
		}
	}
	return nil
}

// RecordLookup inserts l and fills in its ID.
func (s *Store) RecordLookup(ctx context.Context, l *Lookup) error {
	if l.Timestamp.IsZero() {
		l.Timestamp = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO lookups (timestamp, query, symbol, provider, action, status, summary, price)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.Timestamp.Unix(), l.Query, l.Symbol, l.Provider, l.Action, l.Status, l.Summary, l.Price,
	)
	if err != nil {
		return fmt.Errorf("insert lookup: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("lookup id: %w", err)
	}
	l.ID = id
	return nil
}

// ListLookups returns the most recent lookups first, optionally for one symbol.
func (s *Store) ListLookups(ctx context.Context, symbol string, limit int) ([]Lookup, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, timestamp, query, symbol, provider, action, status, summary, COALESCE(price, 0)
		FROM lookups`
	args := []any{}
	if symbol != "" {
		query += ` WHERE symbol = ?`
		args = append(args, symbol)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lookups: %w", err)
	}
	defer rows.Close()

	var out []Lookup
	for rows.Next() {
		var (
			l  Lookup
			ts int64
		)
		if err := rows.Scan(&l.ID, &ts, &l.Query, &l.Symbol, &l.Provider, &l.Action, &l.Status, &l.Summary, &l.Price); err != nil {
			return nil, fmt.Errorf("scan lookup: %w", err)
		}
		l.Timestamp = time.Unix(ts, 0)
		out = append(out, l)
	}
	return out, rows.Err()
}
