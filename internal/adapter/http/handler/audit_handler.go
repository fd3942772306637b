package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finova/ledger/internal/adapter/http/dto"
	"github.com/finova/ledger/internal/domain"
)

// AuditService reads the audit trail of a resource.
type AuditService interface {
	GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error)
}

// AuditHandler serves audit trail lookups.
type AuditHandler struct {
	auditUC AuditService
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditUC AuditService) *AuditHandler {
	return &AuditHandler{auditUC: auditUC}
}

// ListByEvent returns the audit trail of a financial event, newest
// first.
func (h *AuditHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing event ID", "")
		return
	}

	logs, err := h.auditUC.GetByResourceID(r.Context(), domain.AggregateTypeLedgerEvent, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load audit trail", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AuditLogsFromDomain(logs))
}
