package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database
	// transaction. Keeps a stuck unit of work from pinning row locks.
	DefaultTransactionTimeout = 10 * time.Second

	// DefaultRateFetchTimeout bounds a single call to the external
	// rate source when no timeout is configured, so a slow source
	// cannot stall a ledger operation.
	DefaultRateFetchTimeout = 3 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached when
	// no TTL is configured.
	IdempotencyKeyTTL = 24 * time.Hour
)
