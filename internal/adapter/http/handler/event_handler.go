package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finova/ledger/internal/adapter/http/dto"
	"github.com/finova/ledger/internal/domain"
	"github.com/finova/ledger/internal/usecase"
)

// LedgerService is the ledger surface the event handler drives.
type LedgerService interface {
	Create(ctx context.Context, actor domain.Actor, input usecase.EventInput) (*domain.FinancialEvent, error)
	Update(ctx context.Context, actor domain.Actor, id string, input usecase.EventInput) (*domain.FinancialEvent, error)
	Delete(ctx context.Context, actor domain.Actor, id string) error
	Get(ctx context.Context, id string) (*domain.FinancialEvent, error)
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.FinancialEvent, error)
}

// EventHandler handles financial event HTTP requests.
type EventHandler struct {
	ledgerUC LedgerService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(ledgerUC LedgerService) *EventHandler {
	return &EventHandler{ledgerUC: ledgerUC}
}

// Create creates a new financial event and applies its balance effect.
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	event, err := h.ledgerUC.Create(r.Context(), actorFromRequest(r), req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to create event", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.EventFromDomain(event))
}

// Update overwrites an event; the previous balance effect is reversed
// and the new one applied atomically.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing event ID", "")
		return
	}

	var req dto.EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	event, err := h.ledgerUC.Update(r.Context(), actorFromRequest(r), id, req.ToUseCaseInput())
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to update event", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.EventFromDomain(event))
}

// Delete removes an event and reverses its balance effect.
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing event ID", "")
		return
	}

	if err := h.ledgerUC.Delete(r.Context(), actorFromRequest(r), id); err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to delete event", err.Error())

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Get retrieves an event by ID.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing event ID", "")
		return
	}

	event, err := h.ledgerUC.Get(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get event", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.EventFromDomain(event))
}

// ListByAccount lists events touching an account.
func (h *EventHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	events, err := h.ledgerUC.ListByAccount(r.Context(), accountID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EventsFromDomain(events))
}
