package store

import (
	"context"

	"github.com/nulzo/ai-bridge/internal/store/model"
)

// Repository is the contract for the data layer.
type Repository interface {
	Requests() RequestRepository
	Close() error
}

type RequestRepository interface {
	// Log stores the metadata of a completed request.
	Log(ctx context.Context, log *model.RequestLog) error
	// GetRecent returns the last N request logs.
	GetRecent(ctx context.Context, limit int) ([]model.RequestLog, error)
	// GetDailyStats returns aggregated stats grouped by day.
	GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error)
}

// Nop is the repository used when persistence is disabled. Writes vanish
// and reads come back empty.
type Nop struct{}

func (Nop) Requests() RequestRepository { return nopRequests{} }
func (Nop) Close() error                { return nil }

type nopRequests struct{}

func (nopRequests) Log(context.Context, *model.RequestLog) error { return nil }

func (nopRequests) GetRecent(context.Context, int) ([]model.RequestLog, error) {
	return []model.RequestLog{}, nil
}

func (nopRequests) GetDailyStats(context.Context, int) ([]model.DailyStats, error) {
	return []model.DailyStats{}, nil
}
