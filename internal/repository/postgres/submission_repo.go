package postgres

/*
Хранилище журнала отправок записей (submission_logs).
Запись идет пачками из audit.Journal, чтение - фильтрами для консоли.
*/

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/xela07ax/kpi-dashboard/internal/audit"
)

const submissionColumns = 11

const schema = `
CREATE TABLE IF NOT EXISTS submission_logs (
	id           UUID PRIMARY KEY,
	trace_id     TEXT NOT NULL,
	batch_id     TEXT NOT NULL,
	submitter    TEXT NOT NULL DEFAULT '',
	sector_id    TEXT NOT NULL,
	indicator_id TEXT NOT NULL,
	record_date  TEXT NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT '',
	duration_ms  BIGINT NOT NULL,
	timestamp    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS submission_logs_indicator_idx ON submission_logs (sector_id, indicator_id, timestamp DESC);
`

type SubmissionRepo struct {
	db *sql.DB
}

// NewSubmissionRepo открывает пул. Доступность базы проверяется отдельно через Ping.
func NewSubmissionRepo(connString string, maxConns, minConns int32) (*SubmissionRepo, error) {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(int(maxConns))
	}
	if minConns > 0 {
		db.SetMaxIdleConns(int(minConns))
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	return &SubmissionRepo{db: db}, nil
}

// Ping проверяет доступность базы при старте
func (r *SubmissionRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// EnsureSchema создает таблицу журнала, если ее нет
func (r *SubmissionRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return nil
}

func (r *SubmissionRepo) Close() error { return r.db.Close() }

func (r *SubmissionRepo) WriteBatch(ctx context.Context, events []audit.SubmissionEvent) error {
	if len(events) == 0 {
		return nil
	}
	query, vals := buildInsert(events)
	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("postgres: write submission batch: %w", err)
	}
	return nil
}

// buildInsert строит один INSERT на всю пачку
func buildInsert(events []audit.SubmissionEvent) (string, []any) {
	var sb strings.Builder
	vals := make([]any, 0, len(events)*submissionColumns)

	for i, e := range events {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('(')
		p := i * submissionColumns
		for c := 1; c <= submissionColumns; c++ {
			if c > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", p+c)
		}
		sb.WriteByte(')')

		vals = append(vals,
			e.ID, e.TraceID, e.BatchID, e.Submitter, e.SectorID, e.IndicatorID,
			e.RecordDate, e.Status, e.Error, e.DurationMs, e.Timestamp,
		)
	}

	query := "INSERT INTO submission_logs (id, trace_id, batch_id, submitter, sector_id, indicator_id, record_date, status, error, duration_ms, timestamp) VALUES " + sb.String()
	return query, vals
}

// FetchLogs возвращает последние события. Пустой фильтр не ограничивает выборку.
func (r *SubmissionRepo) FetchLogs(ctx context.Context, sectorID, indicatorID string, limit int) ([]audit.SubmissionEvent, error) {
	query := `
		SELECT id, trace_id, batch_id, submitter, sector_id, indicator_id, record_date, status, error, duration_ms, timestamp
		FROM submission_logs
		WHERE ($1 = '' OR sector_id = $1) AND ($2 = '' OR indicator_id = $2)
		ORDER BY timestamp DESC
		LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, sectorID, indicatorID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch submissions: %w", err)
	}
	defer rows.Close()

	results := make([]audit.SubmissionEvent, 0)
	for rows.Next() {
		var e audit.SubmissionEvent
		if err := rows.Scan(&e.ID, &e.TraceID, &e.BatchID, &e.Submitter, &e.SectorID, &e.IndicatorID,
			&e.RecordDate, &e.Status, &e.Error, &e.DurationMs, &e.Timestamp); err != nil {
			return nil, err
		}
		results = append(results, e)
	}
	return results, rows.Err()
}

// SubmissionStats - сводка журнала за окно
type SubmissionStats struct {
	Total      int64   `json:"total"`
	Succeeded  int64   `json:"succeeded"`
	Duplicates int64   `json:"duplicates"`
	Failed     int64   `json:"failed"`
	P95Latency float64 `json:"p95_latency_ms"`
}

// Stats считает исходы и P95 длительности за последнее окно
func (r *SubmissionRepo) Stats(ctx context.Context, window time.Duration) (*SubmissionStats, error) {
	s := &SubmissionStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4),
			COALESCE(PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY duration_ms), 0)
		FROM submission_logs
		WHERE timestamp > $1`,
		time.Now().Add(-window), audit.StatusSuccess, audit.StatusDuplicate, audit.StatusFailed,
	).Scan(&s.Total, &s.Succeeded, &s.Duplicates, &s.Failed, &s.P95Latency)
	if err != nil {
		return nil, fmt.Errorf("postgres: submission stats: %w", err)
	}
	return s, nil
}
