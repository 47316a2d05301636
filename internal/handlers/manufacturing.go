package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rojanatorn/apiserver/internal/services"
	"github.com/rojanatorn/apiserver/internal/store"
	"github.com/rojanatorn/apiserver/types"
)

// ManufacturingHandler serves production project endpoints.
type ManufacturingHandler struct {
	manufacturing *services.ManufacturingService
}

func NewManufacturingHandler(manufacturing *services.ManufacturingService) *ManufacturingHandler {
	return &ManufacturingHandler{manufacturing: manufacturing}
}

// Router registers manufacturing routes on the given router.
func (h *ManufacturingHandler) Router(r chi.Router) {
	r.Get("/manufacturing", h.List)
	r.Post("/manufacturing", h.Create)
	r.Get("/manufacturing/{id}", h.Get)
	r.Put("/manufacturing/{id}", h.Update)
	r.Delete("/manufacturing/{id}", h.Delete)
}

type projectGemstoneRequest struct {
	GemstoneID   *int64   `json:"gemstoneId"`
	GemstoneName *string  `json:"gemstoneName"`
	UsedPcs      *float64 `json:"usedPcs"`
	UsedWeightCt *float64 `json:"usedWeightCt"`
	Cost         *float64 `json:"cost"`
}

type createProjectRequest struct {
	ManufacturingCode string                   `json:"manufacturingCode"`
	PieceName         string                   `json:"pieceName"`
	PieceType         string                   `json:"pieceType"`
	Status            string                   `json:"status"`
	DesignerName      *string                  `json:"designerName"`
	CraftsmanName     *string                  `json:"craftsmanName"`
	UsageNotes        *string                  `json:"usageNotes"`
	Photos            []string                 `json:"photos"`
	SellingPrice      *float64                 `json:"sellingPrice"`
	TotalCost         *float64                 `json:"totalCost"`
	GemstoneCost      *float64                 `json:"gemstoneCost"`
	LaborCost         *float64                 `json:"laborCost"`
	CustomerID        *string                  `json:"customerId"`
	ActivityNote      *string                  `json:"activityNote"`
	Gemstones         []projectGemstoneRequest `json:"gemstones"`
}

func (h *ManufacturingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ManufacturingFilter{
		Search:    q.Get("search"),
		Status:    q.Get("status"),
		PieceType: q.Get("pieceType"),
	}
	result, err := h.manufacturing.List(r.Context(), filter, queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ManufacturingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	detail, err := h.manufacturing.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load project")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *ManufacturingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	project := types.ManufacturingProject{
		ManufacturingCode: req.ManufacturingCode,
		PieceName:         req.PieceName,
		PieceType:         req.PieceType,
		Status:            req.Status,
		DesignerName:      req.DesignerName,
		CraftsmanName:     req.CraftsmanName,
		UsageNotes:        req.UsageNotes,
		Photos:            req.Photos,
		SellingPrice:      req.SellingPrice,
		TotalCost:         req.TotalCost,
		GemstoneCost:      req.GemstoneCost,
		LaborCost:         req.LaborCost,
		CustomerID:        req.CustomerID,
	}
	gemstones := make([]types.ProjectGemstone, 0, len(req.Gemstones))
	for _, g := range req.Gemstones {
		gemstones = append(gemstones, types.ProjectGemstone{
			GemstoneID:   g.GemstoneID,
			GemstoneName: g.GemstoneName,
			UsedPcs:      g.UsedPcs,
			UsedWeightCt: g.UsedWeightCt,
			Cost:         g.Cost,
		})
	}

	detail, err := h.manufacturing.Create(r.Context(), project, gemstones, req.ActivityNote)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrCodeRequired), errors.Is(err, services.ErrPieceNameRequired):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrDuplicate):
			writeError(w, http.StatusConflict, "manufacturing code already exists")
		case errors.Is(err, services.ErrUnknownStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create project")
		}
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

func (h *ManufacturingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	var upd services.ManufacturingUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	detail, err := h.manufacturing.Update(r.Context(), id, upd)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "project not found")
		case errors.Is(err, store.ErrDuplicate):
			writeError(w, http.StatusConflict, "manufacturing code already exists")
		case errors.Is(err, services.ErrPieceNameRequired), errors.Is(err, services.ErrUnknownStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update project")
		}
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *ManufacturingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	if err := h.manufacturing.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete project")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
