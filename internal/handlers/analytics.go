package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rojanatorn/apiserver/internal/services"
)

// AnalyticsHandler serves the business report endpoint.
type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// Router registers analytics routes on the given router.
func (h *AnalyticsHandler) Router(r chi.Router) {
	r.Get("/analytics", h.Report)
}

func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.analytics.Report(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
