package handler

import (
	"net/http"

	"github.com/agritrack/agritrack-backend/internal/stock/domain"
	"github.com/agritrack/agritrack-backend/internal/stock/service"
	"github.com/agritrack/agritrack-backend/pkg/errors"
	"github.com/agritrack/agritrack-backend/pkg/httputil"
	"github.com/agritrack/agritrack-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// EntityHandler exposes the lifecycle guard
type EntityHandler struct {
	guard  *service.Guard
	logger *logger.Logger
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(guard *service.Guard, log *logger.Logger) *EntityHandler {
	return &EntityHandler{
		guard:  guard,
		logger: log,
	}
}

func entityParams(r *http.Request) (domain.EntityKind, string, error) {
	kind, err := domain.ParseEntityKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", "", errors.Validation(map[string]string{"kind": err.Error()})
	}
	return kind, chi.URLParam(r, "id"), nil
}

// CanDelete reports whether an entity could be deleted right now
func (h *EntityHandler) CanDelete(w http.ResponseWriter, r *http.Request) {
	kind, id, err := entityParams(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	verdict, err := h.guard.CanDelete(r.Context(), scopeOf(r), kind, id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, verdict)
}

// Delete removes an entity and the rows it owns, unless something references it
func (h *EntityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, id, err := entityParams(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.guard.Delete(r.Context(), scopeOf(r), kind, id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
