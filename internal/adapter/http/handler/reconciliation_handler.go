package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finova/ledger/internal/adapter/http/dto"
	"github.com/finova/ledger/internal/usecase"
)

// ReconciliationService recomputes account balances from events.
type ReconciliationService interface {
	ReconcileAccount(ctx context.Context, accountID string) (*usecase.ReconciliationResult, error)
}

// ReconciliationHandler serves balance reconciliation checks.
type ReconciliationHandler struct {
	reconUC ReconciliationService
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconUC ReconciliationService) *ReconciliationHandler {
	return &ReconciliationHandler{reconUC: reconUC}
}

// ReconcileAccount replays an account's events and reports whether the
// stored balance matches the recomputed one.
func (h *ReconciliationHandler) ReconcileAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	result, err := h.reconUC.ReconcileAccount(r.Context(), accountID)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to reconcile account", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromResult(result))
}
