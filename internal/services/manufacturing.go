package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rojanatorn/apiserver/internal/store"
	"github.com/rojanatorn/apiserver/types"
)

const defaultManufacturingLimit = 50

// Manufacturing validation errors mapped to 400 at the handler boundary.
var (
	ErrCodeRequired      = errors.New("manufacturing code is required")
	ErrPieceNameRequired = errors.New("piece name is required")
	ErrUnknownStatus     = errors.New("unknown manufacturing status")
)

// ManufacturingUpdate carries the mutable fields of a project update. Nil
// pointers leave the stored value untouched.
type ManufacturingUpdate struct {
	Status        *string  `json:"status"`
	ActivityNote  *string  `json:"activityNote"`
	PieceName     *string  `json:"pieceName"`
	PieceType     *string  `json:"pieceType"`
	DesignerName  *string  `json:"designerName"`
	CraftsmanName *string  `json:"craftsmanName"`
	UsageNotes    *string  `json:"usageNotes"`
	Photos        []string `json:"photos"`
	SellingPrice  *float64 `json:"sellingPrice"`
	TotalCost     *float64 `json:"totalCost"`
	GemstoneCost  *float64 `json:"gemstoneCost"`
	LaborCost     *float64 `json:"laborCost"`
	CustomerID    *string  `json:"customerId"`
}

// ManufacturingService manages production projects and their pipeline.
type ManufacturingService struct {
	repo *store.ManufacturingRepository
}

func NewManufacturingService(repo *store.ManufacturingRepository) *ManufacturingService {
	return &ManufacturingService{repo: repo}
}

func (s *ManufacturingService) List(ctx context.Context, filter store.ManufacturingFilter, limit, offset int) (ListResult[types.ManufacturingProject], error) {
	limit, offset = clampPage(limit, offset, defaultManufacturingLimit)
	items, total, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return ListResult[types.ManufacturingProject]{}, err
	}
	return ListResult[types.ManufacturingProject]{Items: items, TotalCount: total, Limit: limit, Offset: offset}, nil
}

func (s *ManufacturingService) Get(ctx context.Context, id int64) (types.ManufacturingDetail, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new project at the first pipeline stage unless the
// caller supplies a valid stage explicitly.
func (s *ManufacturingService) Create(ctx context.Context, p types.ManufacturingProject, gemstones []types.ProjectGemstone, note *string) (types.ManufacturingDetail, error) {
	p.ManufacturingCode = strings.TrimSpace(p.ManufacturingCode)
	if p.ManufacturingCode == "" {
		return types.ManufacturingDetail{}, ErrCodeRequired
	}
	p.PieceName = strings.TrimSpace(p.PieceName)
	if p.PieceName == "" {
		return types.ManufacturingDetail{}, ErrPieceNameRequired
	}
	if p.Status == "" {
		p.Status = types.ManufacturingStatusPipeline[0]
	}
	if !types.IsManufacturingStatus(p.Status) {
		return types.ManufacturingDetail{}, fmt.Errorf("%w: %q", ErrUnknownStatus, p.Status)
	}
	if p.Status == types.ManufacturingStatusSold && p.SoldAt == nil {
		now := time.Now().UTC()
		p.SoldAt = &now
	}

	created, err := s.repo.Create(ctx, p, gemstones, note)
	if err != nil {
		return types.ManufacturingDetail{}, err
	}
	return s.repo.Get(ctx, created.ID)
}

// Update applies a partial update. A status change is validated against the
// pipeline, recorded in the activity log, and stamps sold-at when the project
// reaches the sold stage.
func (s *ManufacturingService) Update(ctx context.Context, id int64, upd ManufacturingUpdate) (types.ManufacturingDetail, error) {
	detail, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.ManufacturingDetail{}, err
	}
	p := detail.ManufacturingProject

	statusChanged := false
	if upd.Status != nil && *upd.Status != p.Status {
		if !types.IsManufacturingStatus(*upd.Status) {
			return types.ManufacturingDetail{}, fmt.Errorf("%w: %q", ErrUnknownStatus, *upd.Status)
		}
		p.Status = *upd.Status
		statusChanged = true
		if p.Status == types.ManufacturingStatusSold && p.SoldAt == nil {
			now := time.Now().UTC()
			p.SoldAt = &now
		}
	}
	if upd.PieceName != nil {
		name := strings.TrimSpace(*upd.PieceName)
		if name == "" {
			return types.ManufacturingDetail{}, ErrPieceNameRequired
		}
		p.PieceName = name
	}
	if upd.PieceType != nil {
		p.PieceType = *upd.PieceType
	}
	if upd.DesignerName != nil {
		p.DesignerName = upd.DesignerName
	}
	if upd.CraftsmanName != nil {
		p.CraftsmanName = upd.CraftsmanName
	}
	if upd.UsageNotes != nil {
		p.UsageNotes = upd.UsageNotes
	}
	if upd.Photos != nil {
		p.Photos = upd.Photos
	}
	if upd.SellingPrice != nil {
		p.SellingPrice = upd.SellingPrice
	}
	if upd.TotalCost != nil {
		p.TotalCost = upd.TotalCost
	}
	if upd.GemstoneCost != nil {
		p.GemstoneCost = upd.GemstoneCost
	}
	if upd.LaborCost != nil {
		p.LaborCost = upd.LaborCost
	}
	if upd.CustomerID != nil {
		if *upd.CustomerID == "" {
			p.CustomerID = nil
		} else {
			p.CustomerID = upd.CustomerID
		}
	}

	if _, err := s.repo.Update(ctx, p, statusChanged, upd.ActivityNote); err != nil {
		return types.ManufacturingDetail{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *ManufacturingService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
