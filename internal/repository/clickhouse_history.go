package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"Jyotish/internal/domain/models"
	domrepo "Jyotish/internal/domain/repository"
	pkgch "Jyotish/pkg/clickhouse"
	applogger "Jyotish/pkg/logger"
)

// HistoryTable is the table name shared by the ClickHouse and Postgres stores.
const HistoryTable = "calculation_log"

// ClickHouseHistory stores calculation events in a MergeTree table ordered by kind and time.
type ClickHouseHistory struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	l      *applogger.Logger
}

func NewClickHouseHistory(client *pkgch.Client, l *applogger.Logger) *ClickHouseHistory {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseHistory{
		client: client,
		db:     client.DB(),
		table:  client.Database() + "." + HistoryTable,
		l:      l,
	}
}

func (s *ClickHouseHistory) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", s.client.Database()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id String,
			kind LowCardinality(String),
			input String,
			result String,
			computed_at DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree
		ORDER BY (kind, computed_at, id)`, s.table),
	})
}

func (s *ClickHouseHistory) Store(ctx context.Context, e *models.CalculationEvent) error {
	return s.StoreBatch(ctx, []*models.CalculationEvent{e})
}

// StoreBatch inserts all events in one block; nil events are skipped.
func (s *ClickHouseHistory) StoreBatch(ctx context.Context, events []*models.CalculationEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (id, kind, input, result, computed_at)", s.table))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	n := 0
	for _, e := range events {
		if e == nil {
			continue
		}
		if _, err := stmt.ExecContext(ctx, e.ID, string(e.Kind), string(e.Input), string(e.Result), e.ComputedAt.UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("append event %s: %w", e.ID, err)
		}
		n++
	}
	if err := tx.Commit(); err != nil {
		s.l.Error("clickhouse history insert", applogger.Int("rows", n), applogger.Error(err))
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func (s *ClickHouseHistory) Query(ctx context.Context, kind models.CalculationKind, limit int) ([]*models.CalculationEvent, error) {
	q := fmt.Sprintf(`SELECT id, kind, input, result, computed_at FROM %s
		WHERE (? = '' OR kind = ?)
		ORDER BY computed_at DESC
		LIMIT ?`, s.table)
	rows, err := s.db.QueryContext(ctx, q, string(kind), string(kind), limit)
	if err != nil {
		s.l.Error("clickhouse history query", applogger.String("kind", string(kind)), applogger.Error(err))
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	out := make([]*models.CalculationEvent, 0, limit)
	for rows.Next() {
		var (
			e             models.CalculationEvent
			kindCol       string
			input, result string
			at            time.Time
		)
		if err := rows.Scan(&e.ID, &kindCol, &input, &result, &at); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = models.CalculationKind(kindCol)
		e.Input = json.RawMessage(input)
		e.Result = json.RawMessage(result)
		e.ComputedAt = at.UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *ClickHouseHistory) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

func (s *ClickHouseHistory) Close() error {
	return s.client.Close()
}

var _ domrepo.HistoryStorage = (*ClickHouseHistory)(nil)
