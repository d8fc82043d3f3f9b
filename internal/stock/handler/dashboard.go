package handler

import (
	"net/http"

	"github.com/agritrack/agritrack-backend/internal/stock/service"
	"github.com/agritrack/agritrack-backend/pkg/httputil"
	"github.com/agritrack/agritrack-backend/pkg/logger"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	view   *service.InventoryView
	logger *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(view *service.InventoryView, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		view:   view,
		logger: log,
	}
}

// GetStats returns dashboard statistics
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.view.DashboardStats(r.Context(), scopeOf(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stats)
}
