package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finova/ledger/internal/adapter/http/dto"
	"github.com/finova/ledger/internal/domain"
	"github.com/finova/ledger/internal/infrastructure/metrics"
	"github.com/finova/ledger/internal/usecase"
)

// RatesHandler serves exchange rate lookups and currency conversions.
type RatesHandler struct {
	rates     usecase.RateLookup
	converter *usecase.CurrencyConverter
	metrics   *metrics.Metrics
}

// NewRatesHandler creates a new RatesHandler. metrics may be nil.
func NewRatesHandler(rates usecase.RateLookup, converter *usecase.CurrencyConverter, m *metrics.Metrics) *RatesHandler {
	return &RatesHandler{
		rates:     rates,
		converter: converter,
		metrics:   m,
	}
}

// GetRates returns the rate table for a date (default today). Weekend
// dates resolve to the preceding Friday.
func (h *RatesHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateQuery(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	table, err := h.rates.GetRates(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to resolve rates", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.RateTableFromDomain(domain.PrecedingBusinessDay(date), table))
}

// Convert converts an amount between currencies at a date's rates.
func (h *RatesHandler) Convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	from, err := domain.NormalizeCurrency(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid source currency", err.Error())
		return
	}

	to, err := domain.NormalizeCurrency(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target currency", err.Error())
		return
	}

	date, err := parseDateQuery(r, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err.Error())
		return
	}

	converted, err := h.converter.Convert(r.Context(), amount, from, to, date)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "conversion failed", err.Error())

		return
	}

	if h.metrics != nil {
		h.metrics.ConversionsTotal.WithLabelValues(from, to).Inc()
	}

	writeJSON(w, http.StatusOK, dto.ConvertResponse{
		Amount:    amount,
		From:      from,
		To:        to,
		Converted: converted,
		Date:      domain.RateDateKey(domain.PrecedingBusinessDay(date)),
	})
}

// parseDateQuery parses a YYYY-MM-DD query parameter, defaulting to
// the current day.
func parseDateQuery(r *http.Request, key string) (time.Time, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return time.Now().UTC(), nil
	}

	return time.Parse("2006-01-02", val)
}
