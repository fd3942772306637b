package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/finova/ledger/internal/adapter/http/dto"
	"github.com/finova/ledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAccountNotUsable),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientLimit):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidEventKind),
		errors.Is(err, domain.ErrInvalidAccountKind),
		errors.Is(err, domain.ErrMissingAccountName),
		errors.Is(err, domain.ErrMissingOwner),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrAmountTooLarge),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrMetadataTooLarge),
		errors.Is(err, domain.ErrMissingSourceAccount),
		errors.Is(err, domain.ErrMissingDestinationAccount),
		errors.Is(err, domain.ErrSameAccount),
		errors.Is(err, domain.ErrInstallmentNeedsCard):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateUnavailable):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// ActorIDHeader names the caller on mutating requests. Absent a
// header, changes are attributed to the system actor.
const ActorIDHeader = "X-Actor-ID"

// actorFromRequest builds the audit actor from request headers.
func actorFromRequest(r *http.Request) domain.Actor {
	actor := domain.Actor{
		ID:        r.Header.Get(ActorIDHeader),
		RequestID: chimiddleware.GetReqID(r.Context()),
		IPAddress: r.RemoteAddr,
	}

	if actor.ID == "" {
		actor.ID = domain.System.ID
	}

	return actor
}
