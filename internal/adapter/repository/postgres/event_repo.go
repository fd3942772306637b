package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/finova/ledger/internal/domain"
	"github.com/finova/ledger/internal/usecase"
)

const eventColumns = `id, kind, source_account_id, destination_account_id, amount, currency,
	exchange_rate, local_amount, event_date, status,
	installment_count, installments_remaining, monthly_amount,
	subscription_period, next_due_date, parent_id,
	metadata, created_by, created_at, updated_at`

// EventRepository implements usecase.EventRepository.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

// Create inserts a new financial event within a transaction.
func (r *EventRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.FinancialEvent) error {
	pgxTx := tx.(*Tx).PgxTx()

	metadata, err := marshalMetadata(event.Metadata)
	if err != nil {
		return err
	}

	_, err = pgxTx.Exec(ctx, `
		INSERT INTO financial_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		event.ID,
		string(event.Kind),
		event.SourceAccountID,
		event.DestinationAccountID,
		decimalToNumeric(event.Amount),
		event.Currency,
		decimalToNumeric(event.ExchangeRate),
		decimalToNumeric(event.LocalAmount),
		event.EventDate,
		string(event.Status),
		event.InstallmentCount,
		event.InstallmentsRemaining,
		optionalNumeric(event.MonthlyAmount),
		event.SubscriptionPeriod,
		event.NextDueDate,
		event.ParentID,
		metadata,
		event.CreatedBy,
		event.CreatedAt,
		event.UpdatedAt,
	)

	return err
}

// GetByID retrieves an event by ID.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*domain.FinancialEvent, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM financial_events
		WHERE id = $1`,
		id,
	)

	return scanEventRow(row)
}

// GetByIDForUpdate retrieves an event by ID with a FOR UPDATE lock.
func (r *EventRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.FinancialEvent, error) {
	pgxTx := tx.(*Tx).PgxTx()

	row := pgxTx.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM financial_events
		WHERE id = $1
		FOR UPDATE`,
		id,
	)

	return scanEventRow(row)
}

// Update overwrites an event row within a transaction.
func (r *EventRepository) Update(ctx context.Context, tx usecase.Transaction, event *domain.FinancialEvent) error {
	pgxTx := tx.(*Tx).PgxTx()

	metadata, err := marshalMetadata(event.Metadata)
	if err != nil {
		return err
	}

	tag, err := pgxTx.Exec(ctx, `
		UPDATE financial_events
		SET kind = $2, source_account_id = $3, destination_account_id = $4,
		    amount = $5, currency = $6, exchange_rate = $7, local_amount = $8,
		    event_date = $9, status = $10,
		    installment_count = $11, installments_remaining = $12, monthly_amount = $13,
		    subscription_period = $14, next_due_date = $15, parent_id = $16,
		    metadata = $17, updated_at = $18
		WHERE id = $1`,
		event.ID,
		string(event.Kind),
		event.SourceAccountID,
		event.DestinationAccountID,
		decimalToNumeric(event.Amount),
		event.Currency,
		decimalToNumeric(event.ExchangeRate),
		decimalToNumeric(event.LocalAmount),
		event.EventDate,
		string(event.Status),
		event.InstallmentCount,
		event.InstallmentsRemaining,
		optionalNumeric(event.MonthlyAmount),
		event.SubscriptionPeriod,
		event.NextDueDate,
		event.ParentID,
		metadata,
		event.UpdatedAt,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}

	return nil
}

// Delete removes an event row within a transaction.
func (r *EventRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `DELETE FROM financial_events WHERE id = $1`, id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}

	return nil
}

// ListByAccount retrieves events touching an account, newest first.
func (r *EventRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.FinancialEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM financial_events
		WHERE source_account_id = $1 OR destination_account_id = $1
		ORDER BY event_date DESC, id DESC
		LIMIT $2 OFFSET $3`,
		accountID,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.FinancialEvent

	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	return events, rows.Err()
}

func scanEventRow(row pgx.Row) (*domain.FinancialEvent, error) {
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}

		return nil, err
	}

	return event, nil
}

func scanEvent(row pgx.Row) (*domain.FinancialEvent, error) {
	var (
		event        domain.FinancialEvent
		kind         string
		status       string
		amount       pgtype.Numeric
		exchangeRate pgtype.Numeric
		localAmount  pgtype.Numeric
		monthly      pgtype.Numeric
		metadata     []byte
	)

	err := row.Scan(
		&event.ID,
		&kind,
		&event.SourceAccountID,
		&event.DestinationAccountID,
		&amount,
		&event.Currency,
		&exchangeRate,
		&localAmount,
		&event.EventDate,
		&status,
		&event.InstallmentCount,
		&event.InstallmentsRemaining,
		&monthly,
		&event.SubscriptionPeriod,
		&event.NextDueDate,
		&event.ParentID,
		&metadata,
		&event.CreatedBy,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	event.Kind = domain.EventKind(kind)
	event.Status = domain.EventStatus(status)
	event.Amount = numericToDecimal(amount)
	event.ExchangeRate = numericToDecimal(exchangeRate)
	event.LocalAmount = numericToDecimal(localAmount)

	if monthly.Valid {
		d := numericToDecimal(monthly)
		event.MonthlyAmount = &d
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
			return nil, err
		}
	}

	return &event, nil
}

func optionalNumeric(d *decimal.Decimal) pgtype.Numeric {
	if d == nil {
		return pgtype.Numeric{}
	}

	return decimalToNumeric(*d)
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}

	return json.Marshal(m)
}
