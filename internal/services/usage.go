package services

import (
	"context"

	"github.com/rojanatorn/apiserver/internal/store"
	"github.com/rojanatorn/apiserver/types"
)

const defaultUsageLimit = 50

// UsageService serves historical gem withdrawal queries.
type UsageService struct {
	repo *store.UsageRepository
}

func NewUsageService(repo *store.UsageRepository) *UsageService {
	return &UsageService{repo: repo}
}

func (s *UsageService) ListBatches(ctx context.Context, filter store.UsageFilter, limit, offset int) (ListResult[types.UsageBatch], error) {
	limit, offset = clampPage(limit, offset, defaultUsageLimit)
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return ListResult[types.UsageBatch]{}, err
	}
	return ListResult[types.UsageBatch]{Items: items, TotalCount: total, Limit: limit, Offset: offset}, nil
}

func (s *UsageService) GetBatch(ctx context.Context, id int64) (types.UsageBatchDetail, error) {
	return s.repo.Get(ctx, id)
}
