package services

import (
	"context"
	"time"

	"github.com/rojanatorn/apiserver/internal/cache"
	"github.com/rojanatorn/apiserver/internal/store"
	"github.com/rojanatorn/apiserver/types"
)

const (
	defaultGemstoneLimit = 50
	summaryCacheKey      = "inventory:summary"
	summaryCacheTTL      = time.Minute
)

// InventoryService serves gemstone inventory queries. The summary aggregate
// is cached since the dashboard polls it and the underlying table only
// changes on imports.
type InventoryService struct {
	repo  *store.GemstoneRepository
	cache *cache.Cache
}

func NewInventoryService(repo *store.GemstoneRepository, c *cache.Cache) *InventoryService {
	return &InventoryService{repo: repo, cache: c}
}

func (s *InventoryService) ListGemstones(ctx context.Context, filter store.GemstoneFilter, limit, offset int) (ListResult[types.GemstoneItem], error) {
	limit, offset = clampPage(limit, offset, defaultGemstoneLimit)
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return ListResult[types.GemstoneItem]{}, err
	}
	return ListResult[types.GemstoneItem]{Items: items, TotalCount: total, Limit: limit, Offset: offset}, nil
}

func (s *InventoryService) GetGemstone(ctx context.Context, id int64) (types.GemstoneDetail, error) {
	return s.repo.Get(ctx, id)
}

func (s *InventoryService) Summary(ctx context.Context) (types.InventorySummary, error) {
	return cache.GetOrLoadJSON(ctx, s.cache, summaryCacheKey, summaryCacheTTL, func(ctx context.Context) (types.InventorySummary, error) {
		return s.repo.Summary(ctx)
	})
}
