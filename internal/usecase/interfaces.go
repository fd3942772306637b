package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finova/ledger/internal/domain"
)

// AccountRepository defines data access for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByIDsForUpdate locks the existing accounts among ids with
	// FOR UPDATE and returns them. Missing or soft-deleted accounts are
	// simply absent from the result; callers decide whether that is an
	// error.
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Account, error)
	UpdateBalance(ctx context.Context, tx Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error
	List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Account, error)
}

// EventRepository defines data access for financial events.
type EventRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.FinancialEvent) error
	GetByID(ctx context.Context, id string) (*domain.FinancialEvent, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.FinancialEvent, error)
	Update(ctx context.Context, tx Transaction, event *domain.FinancialEvent) error
	Delete(ctx context.Context, tx Transaction, id string) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.FinancialEvent, error)
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	Create(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier retries an operation on transient storage failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

// EventPublisher delivers committed outbox events to downstream
// consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.OutboxEvent) error
}

// RateSource fetches the daily buy/sell rate document from the
// external rate service. It may be unreachable or return an empty
// table for a date with no published rates.
type RateSource interface {
	Fetch(ctx context.Context, date time.Time) (domain.RateTable, error)
}

// RateLookup resolves the rate table the converter uses for a date.
type RateLookup interface {
	GetRates(ctx context.Context, date time.Time) (domain.RateTable, error)
}

// Converter converts an amount between currencies for a given date.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string, date time.Time) (decimal.Decimal, error)
}
