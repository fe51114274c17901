package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nulzo/ai-bridge/internal/gateway"
	"github.com/nulzo/ai-bridge/internal/store"
	"github.com/nulzo/ai-bridge/internal/store/model"
)

// Ingestor persists request metadata asynchronously so the request path
// never waits on the database.
type Ingestor interface {
	Record(rec gateway.Record)
	Start(ctx context.Context)
	Stop()
}

type ingestor struct {
	logger    *zap.Logger
	repo      store.Repository
	recChan   chan gateway.Record
	quit      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	batchSize int
	flushTime time.Duration
}

func NewIngestor(logger *zap.Logger, repo store.Repository) Ingestor {
	return &ingestor{
		logger:    logger,
		repo:      repo,
		recChan:   make(chan gateway.Record, 10000),
		quit:      make(chan struct{}),
		batchSize: 50,
		flushTime: 5 * time.Second,
	}
}

// Record enqueues one usage record. Drops instead of blocking when the
// buffer is full.
func (i *ingestor) Record(rec gateway.Record) {
	select {
	case i.recChan <- rec:
	default:
		i.logger.Warn("analytics buffer full, dropping record", zap.String("model", rec.Model))
	}
}

func (i *ingestor) Start(ctx context.Context) {
	i.wg.Add(1)
	go i.worker(ctx)
}

// Stop drains buffered records and blocks until the worker exits. The
// record channel is never closed: straggling stream relays may still call
// Record after shutdown, and those records are simply dropped.
func (i *ingestor) Stop() {
	i.stopOnce.Do(func() { close(i.quit) })
	i.wg.Wait()
}

func (i *ingestor) worker(ctx context.Context) {
	defer i.wg.Done()

	batch := make([]gateway.Record, 0, i.batchSize)
	ticker := time.NewTicker(i.flushTime)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		for _, rec := range batch {
			log := toRequestLog(rec)
			if err := i.repo.Requests().Log(context.Background(), log); err != nil {
				i.logger.Error("failed to persist request log", zap.String("id", log.ID), zap.Error(err))
			}
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec := <-i.recChan:
			batch = append(batch, rec)
			if len(batch) >= i.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-i.quit:
			for {
				select {
				case rec := <-i.recChan:
					batch = append(batch, rec)
				default:
					flush()
					return
				}
			}
		case <-ctx.Done():
			flush()
			return
		}
	}
}

func toRequestLog(rec gateway.Record) *model.RequestLog {
	id := rec.ID
	if id == "" {
		// Failed requests have no upstream id.
		id = uuid.NewString()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return &model.RequestLog{
		ID:               id,
		Model:            rec.Model,
		Provider:         string(rec.Provider),
		IsStreamed:       rec.Stream,
		Status:           rec.Status,
		ErrorCode:        rec.ErrorCode,
		PromptChars:      rec.PromptChars,
		PromptTokens:     rec.PromptTokens,
		CompletionTokens: rec.CompletionTokens,
		TotalTokens:      rec.TotalTokens,
		LatencyMS:        rec.LatencyMs,
		CreatedAt:        createdAt,
	}
}
