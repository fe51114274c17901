package v1

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nulzo/ai-bridge/internal/store"
	"github.com/nulzo/ai-bridge/internal/store/cache"
	storemodel "github.com/nulzo/ai-bridge/internal/store/model"
	"github.com/nulzo/ai-bridge/pkg/api"
)

const statsCacheTTL = time.Minute

type StatsHandler struct {
	repo   store.Repository
	cache  cache.Cache
	logger *zap.Logger
}

func NewStatsHandler(repo store.Repository, c cache.Cache, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{repo: repo, cache: c, logger: logger}
}

// Stats handles GET /api/stats?days=N with daily usage aggregates. Results
// are cached briefly since the aggregation scans the request log table.
func (h *StatsHandler) Stats(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 90 {
		_ = c.Error(api.ValidationError(map[string]string{
			"days": "must be an integer between 1 and 90",
		}))
		return
	}

	key := fmt.Sprintf("stats:daily:%d", days)
	var stats []storemodel.DailyStats

	if cacheErr := h.cache.Get(c.Request.Context(), key, &stats); cacheErr == nil {
		c.JSON(http.StatusOK, gin.H{"days": days, "stats": stats})
		return
	} else if !errors.Is(cacheErr, cache.ErrCacheMiss) {
		h.logger.Warn("stats cache read failed", zap.Error(cacheErr))
	}

	stats, err = h.repo.Requests().GetDailyStats(c.Request.Context(), days)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to load usage stats", err))
		return
	}

	if cacheErr := h.cache.Set(c.Request.Context(), key, stats, statsCacheTTL); cacheErr != nil {
		h.logger.Warn("stats cache write failed", zap.Error(cacheErr))
	}

	c.JSON(http.StatusOK, gin.H{"days": days, "stats": stats})
}

// Recent handles GET /api/requests?limit=N with the newest request logs.
func (h *StatsHandler) Recent(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		_ = c.Error(api.ValidationError(map[string]string{
			"limit": "must be an integer between 1 and 100",
		}))
		return
	}

	logs, err := h.repo.Requests().GetRecent(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(api.InternalError("Failed to load recent requests", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": logs})
}
