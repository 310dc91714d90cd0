// Package store persists serialized events in Postgres, keyed by event id
// and timestamp, with secondary lookups by customer and by risk level.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mteodoro/riskstream/internal/event"
)

const defaultTableName = "banking_events"

var (
	// ErrNotFound is returned when no event matches the requested id.
	ErrNotFound = errors.New("store: event not found")

	// ErrNilPool is returned when the store is constructed without a
	// database connection.
	ErrNilPool = errors.New("store: nil connection pool")
)

// Record is one persisted event row. Payload is the original wire JSON.
type Record struct {
	EventID    string    `json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	CustomerID string    `json:"customer_id"`
	RiskLevel  string    `json:"risk_level"`
	Anomalous  bool      `json:"anomalous"`
	Payload    []byte    `json:"-"`
}

// Store wraps a pgx pool with goqu-built queries over the events table.
type Store struct {
	pool    *pgxpool.Pool
	table   string
	dialect goqu.DialectWrapper
}

// Option configures a Store.
type Option func(*Store) error

// WithTableName overrides the default events table name.
func WithTableName(name string) Option {
	return func(s *Store) error {
		if name == "" {
			return errors.New("store: empty table name")
		}
		s.table = name
		return nil
	}
}

// New creates a Store over pool.
func New(pool *pgxpool.Pool, options ...Option) (*Store, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	s := &Store{
		pool:    pool,
		table:   defaultTableName,
		dialect: goqu.Dialect("postgres"),
	}
	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Schema returns the DDL for the events table and its secondary indexes.
func Schema(table string) string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	event_id    TEXT PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL,
	customer_id TEXT NOT NULL,
	risk_level  TEXT NOT NULL,
	anomalous   BOOLEAN NOT NULL DEFAULT FALSE,
	payload     JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_customer ON %[1]s (customer_id, occurred_at);
CREATE INDEX IF NOT EXISTS idx_%[1]s_risk ON %[1]s (risk_level, occurred_at);`, table)
}

// EnsureSchema creates the table and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema(s.table)); err != nil {
		return fmt.Errorf("store: ensure schema: %w", err)
	}
	return nil
}

// PutEvent upserts one event. Replays of the same event id are no-ops, which
// keeps at-least-once delivery from the stream idempotent.
func (s *Store) PutEvent(ctx context.Context, ev *event.Event, payload []byte) error {
	sql, args, err := s.buildInsert(ev, payload)
	if err != nil {
		return fmt.Errorf("store: build insert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("store: insert %s: %w", ev.EventID, err)
	}
	return nil
}

// GetByID fetches one record by event id.
func (s *Store) GetByID(ctx context.Context, id string) (*Record, error) {
	sql, args, err := s.buildGetByID(id)
	if err != nil {
		return nil, fmt.Errorf("store: build select: %w", err)
	}
	row := s.pool.QueryRow(ctx, sql, args...)

	var rec Record
	err = row.Scan(&rec.EventID, &rec.OccurredAt, &rec.CustomerID, &rec.RiskLevel, &rec.Anomalous, &rec.Payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", id, err)
	}
	return &rec, nil
}

// ListByCustomer returns a customer's events, most recent first.
func (s *Store) ListByCustomer(ctx context.Context, customerID string, limit int) ([]Record, error) {
	sql, args, err := s.buildList(goqu.Ex{"customer_id": customerID}, limit)
	if err != nil {
		return nil, fmt.Errorf("store: build select: %w", err)
	}
	return s.queryRecords(ctx, sql, args)
}

// ListByRiskLevel returns events at the given risk level, most recent first.
func (s *Store) ListByRiskLevel(ctx context.Context, level string, limit int) ([]Record, error) {
	sql, args, err := s.buildList(goqu.Ex{"risk_level": level}, limit)
	if err != nil {
		return nil, fmt.Errorf("store: build select: %w", err)
	}
	return s.queryRecords(ctx, sql, args)
}

// CountEvents returns the total number of persisted events.
func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	sql, args, err := s.dialect.From(s.table).Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("store: build count: %w", err)
	}
	var n int64
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

func (s *Store) buildInsert(ev *event.Event, payload []byte) (string, []interface{}, error) {
	return s.dialect.Insert(s.table).
		Rows(goqu.Record{
			"event_id":    ev.EventID,
			"occurred_at": ev.Timestamp,
			"customer_id": ev.Customer.CustomerID,
			"risk_level":  ev.Risk.RiskLevel,
			"anomalous":   ev.Anomalous(),
			"payload":     payload,
		}).
		OnConflict(goqu.DoNothing()).
		Prepared(true).
		ToSQL()
}

func (s *Store) buildGetByID(id string) (string, []interface{}, error) {
	return s.dialect.From(s.table).
		Select("event_id", "occurred_at", "customer_id", "risk_level", "anomalous", "payload").
		Where(goqu.Ex{"event_id": id}).
		Prepared(true).
		ToSQL()
}

func (s *Store) buildList(where goqu.Ex, limit int) (string, []interface{}, error) {
	return s.dialect.From(s.table).
		Select("event_id", "occurred_at", "customer_id", "risk_level", "anomalous", "payload").
		Where(where).
		Order(goqu.C("occurred_at").Desc()).
		Limit(uint(limit)).
		Prepared(true).
		ToSQL()
}

func (s *Store) queryRecords(ctx context.Context, sql string, args []interface{}) ([]Record, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.EventID, &rec.OccurredAt, &rec.CustomerID, &rec.RiskLevel, &rec.Anomalous, &rec.Payload); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return recs, nil
}
