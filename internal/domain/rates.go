package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rate holds the two quoted exchange rates for a currency against the
// local currency. Buy is used converting into local currency, Sell
// converting out of it.
type Rate struct {
	Buy  decimal.Decimal `json:"buy"`
	Sell decimal.Decimal `json:"sell"`
}

// RateTable maps currency codes to their daily rates.
type RateTable map[string]Rate

// Lookup returns the rate for a currency code.
func (t RateTable) Lookup(currency string) (Rate, bool) {
	r, ok := t[currency]
	return r, ok
}

// Default rates used when the external rate source yields no data for
// the requested date or any of the retried prior days. The ledger must
// never block on rate-source unavailability, so degraded conversions
// beat failed ones.
var defaultRates = map[string]struct{ buy, sell string }{
	"USD": {"34.00", "34.20"},
	"EUR": {"36.50", "36.80"},
	"GBP": {"43.00", "43.40"},
	"CHF": {"38.20", "38.60"},
	"JPY": {"0.225", "0.229"},
}

// DefaultRates returns a fresh copy of the hard-coded fallback rates.
func DefaultRates() RateTable {
	table := make(RateTable, len(defaultRates))
	for code, r := range defaultRates {
		buy, _ := decimal.NewFromString(r.buy)
		sell, _ := decimal.NewFromString(r.sell)
		table[code] = Rate{Buy: buy, Sell: sell}
	}

	return table
}

// PrecedingBusinessDay resolves weekends to the preceding Friday.
// Weekday dates pass through unchanged.
func PrecedingBusinessDay(date time.Time) time.Time {
	switch date.Weekday() {
	case time.Saturday:
		return date.AddDate(0, 0, -1)
	case time.Sunday:
		return date.AddDate(0, 0, -2)
	}
	return date
}

// RateDateKey formats a date the way rate lookups are keyed.
func RateDateKey(date time.Time) string {
	return date.Format("2006-01-02")
}
