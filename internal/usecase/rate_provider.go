package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/finova/ledger/internal/domain"
	"github.com/finova/ledger/internal/infrastructure/metrics"
)

const (
	// DefaultRateCacheTTL bounds how long a fetched rate table is
	// served from cache before it is fetched again.
	DefaultRateCacheTTL = time.Hour

	// maxRateBackscanDays is how many prior calendar days are tried
	// when the rate source has no data for the requested date.
	maxRateBackscanDays = 12
)

// RateProvider resolves daily buy/sell rate tables. Lookups resolve
// weekends to the preceding Friday, walk back over prior days when a
// date has no published rates, and fall back to hard-coded defaults
// when the source stays silent: a ledger operation never blocks on
// rate-source unavailability.
type RateProvider struct {
	source       RateSource
	cache        Cache
	ttl          time.Duration
	fetchTimeout time.Duration
	group        singleflight.Group
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// NewRateProvider creates a new RateProvider. metrics may be nil.
func NewRateProvider(source RateSource, cache Cache, ttl, fetchTimeout time.Duration, m *metrics.Metrics, logger zerolog.Logger) *RateProvider {
	if ttl <= 0 {
		ttl = DefaultRateCacheTTL
	}

	if fetchTimeout <= 0 {
		fetchTimeout = DefaultRateFetchTimeout
	}

	return &RateProvider{
		source:       source,
		cache:        cache,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		metrics:      m,
		logger:       logger,
	}
}

// GetRates returns the rate table for a reference date. The returned
// table is never empty; the error reports cache plumbing problems
// only, never rate-source unavailability.
func (p *RateProvider) GetRates(ctx context.Context, date time.Time) (domain.RateTable, error) {
	resolved := domain.PrecedingBusinessDay(date)
	key := "rates:" + domain.RateDateKey(resolved)

	if table, ok := p.fromCache(ctx, key); ok {
		if p.metrics != nil {
			p.metrics.RateCacheHits.Inc()
		}
		return table, nil
	}

	if p.metrics != nil {
		p.metrics.RateCacheMisses.Inc()
	}

	// Concurrent misses for the same date collapse into one fetch.
	v, err, _ := p.group.Do(key, func() (any, error) {
		if table, ok := p.fromCache(ctx, key); ok {
			return table, nil
		}

		table := p.fetchWithFallback(ctx, resolved)

		if encoded, err := json.Marshal(table); err == nil {
			if err := p.cache.Set(ctx, key, string(encoded), p.ttl); err != nil {
				p.logger.Warn().Err(err).Str("key", key).Msg("failed to cache rate table")
			}
		}

		return table, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(domain.RateTable), nil
}

func (p *RateProvider) fromCache(ctx context.Context, key string) (domain.RateTable, bool) {
	raw, err := p.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return nil, false
	}

	var table domain.RateTable
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		p.logger.Warn().Err(err).Str("key", key).Msg("corrupt cached rate table, refetching")
		return nil, false
	}

	return table, true
}

// fetchWithFallback tries the resolved date, then up to
// maxRateBackscanDays prior calendar days (skipping weekends), and
// finally the documented default rates.
func (p *RateProvider) fetchWithFallback(ctx context.Context, date time.Time) domain.RateTable {
	candidate := date
	for i := 0; i <= maxRateBackscanDays; i++ {
		if i > 0 {
			candidate = domain.PrecedingBusinessDay(candidate.AddDate(0, 0, -1))
		}

		table, err := p.fetch(ctx, candidate)
		if err != nil {
			p.countFetch("error")
			p.logger.Warn().
				Err(err).
				Str("date", domain.RateDateKey(candidate)).
				Msg("rate source fetch failed")

			continue
		}

		if len(table) == 0 {
			p.countFetch("empty")
			continue
		}

		p.countFetch("ok")

		return table
	}

	if p.metrics != nil {
		p.metrics.RateFallbacks.Inc()
	}

	p.logger.Warn().
		Str("date", domain.RateDateKey(date)).
		Int("days_tried", maxRateBackscanDays+1).
		Msg("rate source exhausted, serving default rates")

	return domain.DefaultRates()
}

func (p *RateProvider) countFetch(outcome string) {
	if p.metrics != nil {
		p.metrics.RateFetches.WithLabelValues(outcome).Inc()
	}
}

func (p *RateProvider) fetch(ctx context.Context, date time.Time) (domain.RateTable, error) {
	if p.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.fetchTimeout)
		defer cancel()
	}

	return p.source.Fetch(ctx, date)
}
