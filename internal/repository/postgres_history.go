package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"Jyotish/internal/domain/models"
	domrepo "Jyotish/internal/domain/repository"
	applogger "Jyotish/pkg/logger"
	pkgpg "Jyotish/pkg/postgres"
)

const insertEventSQL = `INSERT INTO ` + HistoryTable + ` (id, kind, input, result, computed_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`

const queryEventsSQL = `SELECT id, kind, input, result, computed_at
FROM ` + HistoryTable + `
WHERE ($1 = '' OR kind = $1)
ORDER BY computed_at DESC
LIMIT $2`

// PostgresHistory stores calculation events with JSONB payloads. Inserts are
// idempotent on id so redelivered events are harmless.
type PostgresHistory struct {
	client *pkgpg.Client
	l      *applogger.Logger
}

func NewPostgresHistory(client *pkgpg.Client, l *applogger.Logger) *PostgresHistory {
	if l == nil {
		l = applogger.Nop()
	}
	return &PostgresHistory{client: client, l: l}
}

func (s *PostgresHistory) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, []string{
		`CREATE TABLE IF NOT EXISTS ` + HistoryTable + ` (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			input JSONB NOT NULL,
			result JSONB NOT NULL,
			computed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ` + HistoryTable + `_kind_time_idx ON ` + HistoryTable + ` (kind, computed_at DESC)`,
	})
}

func (s *PostgresHistory) Store(ctx context.Context, e *models.CalculationEvent) error {
	_, err := s.client.Pool().Exec(ctx, insertEventSQL, eventArgs(e)...)
	if err != nil {
		return fmt.Errorf("insert event %s: %w", e.ID, err)
	}
	return nil
}

func (s *PostgresHistory) StoreBatch(ctx context.Context, events []*models.CalculationEvent) error {
	batch := &pgx.Batch{}
	for _, e := range events {
		if e != nil {
			batch.Queue(insertEventSQL, eventArgs(e)...)
		}
	}
	if batch.Len() == 0 {
		return nil
	}

	res := s.client.Pool().SendBatch(ctx, batch)
	defer res.Close()
	for i := 0; i < batch.Len(); i++ {
		if _, err := res.Exec(); err != nil {
			s.l.Error("postgres history batch", applogger.Int("row", i), applogger.Error(err))
			return fmt.Errorf("insert batch row %d: %w", i, err)
		}
	}
	return nil
}

func (s *PostgresHistory) Query(ctx context.Context, kind models.CalculationKind, limit int) ([]*models.CalculationEvent, error) {
	rows, err := s.client.Pool().Query(ctx, queryEventsSQL, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make([]*models.CalculationEvent, 0, limit)
	for rows.Next() {
		var (
			e             models.CalculationEvent
			kindCol       string
			input, result []byte
		)
		if err := rows.Scan(&e.ID, &kindCol, &input, &result, &e.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = models.CalculationKind(kindCol)
		e.Input = json.RawMessage(input)
		e.Result = json.RawMessage(result)
		e.ComputedAt = e.ComputedAt.UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *PostgresHistory) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *PostgresHistory) Close() error {
	s.client.Close()
	return nil
}

func eventArgs(e *models.CalculationEvent) []interface{} {
	return []interface{}{e.ID, string(e.Kind), jsonOrNull(e.Input), jsonOrNull(e.Result), e.ComputedAt.UTC()}
}

func jsonOrNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return []byte(raw)
}

var _ domrepo.HistoryStorage = (*PostgresHistory)(nil)
