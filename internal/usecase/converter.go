package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finova/ledger/internal/domain"
)

// CurrencyConverter converts amounts between currencies by pivoting
// through the local currency: into local at the source currency's buy
// rate, out of local at the target currency's sell rate. The pivot is
// asymmetric (buy then sell, never the reverse) and is the system's
// single cross-rate rule.
type CurrencyConverter struct {
	rates         RateLookup
	localCurrency string
}

// NewCurrencyConverter creates a new CurrencyConverter.
func NewCurrencyConverter(rates RateLookup, localCurrency string) *CurrencyConverter {
	return &CurrencyConverter{
		rates:         rates,
		localCurrency: localCurrency,
	}
}

// LocalCurrency returns the pivot currency code.
func (c *CurrencyConverter) LocalCurrency() string {
	return c.localCurrency
}

// Convert converts amount from one currency to another at the rates of
// the given date.
func (c *CurrencyConverter) Convert(ctx context.Context, amount decimal.Decimal, from, to string, date time.Time) (decimal.Decimal, error) {
	if from == to {
		return amount, nil
	}

	table, err := c.rates.GetRates(ctx, date)
	if err != nil {
		return decimal.Zero, err
	}

	local := amount
	if from != c.localCurrency {
		rate, ok := table.Lookup(from)
		if !ok || rate.Buy.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, fmt.Errorf("%w: %s on %s", domain.ErrRateUnavailable, from, domain.RateDateKey(date))
		}

		local = amount.Mul(rate.Buy)
	}

	if to == c.localCurrency {
		return local, nil
	}

	rate, ok := table.Lookup(to)
	if !ok || rate.Sell.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: %s on %s", domain.ErrRateUnavailable, to, domain.RateDateKey(date))
	}

	return local.Div(rate.Sell), nil
}

// BuyRate returns the buy rate of a currency against the local
// currency for a date; 1 for the local currency itself. Used to stamp
// the exchange-rate snapshot on persisted events.
func (c *CurrencyConverter) BuyRate(ctx context.Context, currency string, date time.Time) (decimal.Decimal, error) {
	if currency == c.localCurrency {
		return decimal.NewFromInt(1), nil
	}

	table, err := c.rates.GetRates(ctx, date)
	if err != nil {
		return decimal.Zero, err
	}

	rate, ok := table.Lookup(currency)
	if !ok || rate.Buy.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, fmt.Errorf("%w: %s on %s", domain.ErrRateUnavailable, currency, domain.RateDateKey(date))
	}

	return rate.Buy, nil
}
