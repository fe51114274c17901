package sqlite

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/nulzo/ai-bridge/internal/store"
	"github.com/nulzo/ai-bridge/internal/store/model"
)

// DB is satisfied by *sqlx.DB and *sqlx.Tx.
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Repository implements store.Repository over sqlite.
type Repository struct {
	db       *sqlx.DB
	executor DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, executor: db}
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Requests() store.RequestRepository {
	return &requestRepo{db: r.executor}
}

type requestRepo struct {
	db DB
}

func (r *requestRepo) Log(ctx context.Context, log *model.RequestLog) error {
	query := `
	INSERT INTO request_logs (
		id, model, provider, is_streamed, status, error_code,
		prompt_chars, prompt_tokens, completion_tokens, total_tokens,
		latency_ms, created_at
	) VALUES (
		:id, :model, :provider, :is_streamed, :status, :error_code,
		:prompt_chars, :prompt_tokens, :completion_tokens, :total_tokens,
		:latency_ms, :created_at
	)`
	_, err := r.db.NamedExecContext(ctx, query, log)
	return err
}

func (r *requestRepo) GetRecent(ctx context.Context, limit int) ([]model.RequestLog, error) {
	logs := []model.RequestLog{}
	query := `SELECT * FROM request_logs ORDER BY created_at DESC LIMIT ?`
	err := r.db.SelectContext(ctx, &logs, query, limit)
	return logs, err
}

func (r *requestRepo) GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	stats := []model.DailyStats{}
	query := `
	SELECT
		date(created_at) AS date,
		COUNT(*) AS total_requests,
		SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END) AS total_errors,
		COALESCE(SUM(total_tokens), 0) AS total_tokens,
		COALESCE(AVG(latency_ms), 0) AS avg_latency
	FROM request_logs
	WHERE created_at >= datetime('now', '-' || ? || ' days')
	GROUP BY date(created_at)
	ORDER BY date DESC`
	err := r.db.SelectContext(ctx, &stats, query, days)
	return stats, err
}
