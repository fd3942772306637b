// Package ratesource implements the daily exchange-rate client against
// the external rate service's JSON API.
package ratesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"

	"github.com/finova/ledger/internal/domain"
)

// Retry settings for transient fetch failures. A blip must not
// degrade a published day to the previous day's rates, so each fetch
// gets a few quick attempts before the caller's fallback logic takes
// over.
const (
	fetchMaxAttempts     = 3
	fetchInitialInterval = 100 * time.Millisecond
	fetchMaxInterval     = 1 * time.Second
)

// Client fetches daily buy/sell rate documents over HTTP. A date the
// service has no document for yields an empty table, not an error;
// the caller's fallback logic owns that case.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new rate service client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
	}
}

type rateDocument struct {
	Date  string              `json:"date"`
	Rates map[string]rateItem `json:"rates"`
}

type rateItem struct {
	Buy  decimal.Decimal `json:"buy"`
	Sell decimal.Decimal `json:"sell"`
}

// statusError reports a non-2xx response from the rate service.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("rate source returned status %d", e.code)
}

// Fetch retrieves the rate table published for a date. Transient
// failures (connection errors, 5xx responses) are retried with capped
// exponential backoff before the error is surfaced.
func (c *Client) Fetch(ctx context.Context, date time.Time) (domain.RateTable, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("rate source url: %w", err)
	}

	q := u.Query()
	q.Set("date", domain.RateDateKey(date))
	u.RawQuery = q.Encode()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = fetchInitialInterval
	b.MaxInterval = fetchMaxInterval

	var table domain.RateTable

	attempts := 0

	err = backoff.Retry(func() error {
		attempts++

		fetched, err := c.fetchOnce(ctx, u.String())
		if err != nil {
			if attempts >= fetchMaxAttempts || !isTransientFetchError(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		table = fetched

		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, err
	}

	return table, nil
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string) (domain.RateTable, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		// No document published for this date.
		return domain.RateTable{}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	var doc rateDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rate document: %w", err)
	}

	table := make(domain.RateTable, len(doc.Rates))
	for currency, item := range doc.Rates {
		if item.Buy.IsZero() || item.Sell.IsZero() {
			continue
		}

		table[currency] = domain.Rate{Buy: item.Buy, Sell: item.Sell}
	}

	return table, nil
}

// isTransientFetchError reports whether a fetch failure is worth
// retrying: request-level failures and server-side errors are, client
// errors and malformed documents are not.
func isTransientFetchError(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError
	}

	var ue *url.Error
	return errors.As(err, &ue)
}
