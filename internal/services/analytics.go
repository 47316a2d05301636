package services

import (
	"context"
	"time"

	"github.com/rojanatorn/apiserver/internal/cache"
	"github.com/rojanatorn/apiserver/internal/store"
	"github.com/rojanatorn/apiserver/types"
)

const (
	analyticsCacheKey = "analytics:report"
	analyticsCacheTTL = time.Minute
)

// AnalyticsService serves the cross-table business report. The report runs
// several aggregate queries, so results are cached briefly.
type AnalyticsService struct {
	repo  *store.AnalyticsRepository
	cache *cache.Cache
}

func NewAnalyticsService(repo *store.AnalyticsRepository, c *cache.Cache) *AnalyticsService {
	return &AnalyticsService{repo: repo, cache: c}
}

func (s *AnalyticsService) Report(ctx context.Context) (types.AnalyticsReport, error) {
	return cache.GetOrLoadJSON(ctx, s.cache, analyticsCacheKey, analyticsCacheTTL, func(ctx context.Context) (types.AnalyticsReport, error) {
		report, err := s.repo.Report(ctx)
		if err != nil {
			return types.AnalyticsReport{}, err
		}
		report.GeneratedAt = time.Now().UTC()
		return report, nil
	})
}
