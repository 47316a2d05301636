package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rojanatorn/apiserver/internal/services"
	"github.com/rojanatorn/apiserver/internal/store"
)

// InventoryHandler serves gemstone inventory and usage-history endpoints.
type InventoryHandler struct {
	inventory *services.InventoryService
	usage     *services.UsageService
}

func NewInventoryHandler(inventory *services.InventoryService, usage *services.UsageService) *InventoryHandler {
	return &InventoryHandler{inventory: inventory, usage: usage}
}

// Router registers inventory routes on the given router.
func (h *InventoryHandler) Router(r chi.Router) {
	r.Get("/inventory/summary", h.Summary)
	r.Get("/inventory/gemstones", h.ListGemstones)
	r.Get("/inventory/gemstones/{id}", h.GetGemstone)
	r.Get("/inventory/usage", h.ListUsage)
	r.Get("/inventory/usage/{batchId}", h.GetUsageBatch)
}

func (h *InventoryHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.inventory.Summary(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *InventoryHandler) ListGemstones(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.GemstoneFilter{
		Search: q.Get("search"),
		Type:   q.Get("type"),
		Status: q.Get("status"),
	}
	result, err := h.inventory.ListGemstones(r.Context(), filter, queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list gemstones")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *InventoryHandler) GetGemstone(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid gemstone id")
		return
	}
	detail, err := h.inventory.GetGemstone(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "gemstone not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load gemstone")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *InventoryHandler) ListUsage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.UsageFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
	}
	result, err := h.usage.ListBatches(r.Context(), filter, queryInt(r, "limit", 0), queryInt(r, "offset", 0))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list usage batches")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *InventoryHandler) GetUsageBatch(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "batchId")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid batch id")
		return
	}
	detail, err := h.usage.GetBatch(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "usage batch not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load usage batch")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
