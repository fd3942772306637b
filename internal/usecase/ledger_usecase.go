package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finova/ledger/internal/domain"
	"github.com/finova/ledger/internal/infrastructure/metrics"
)

// LedgerUseCase orchestrates create/update/delete over financial
// events. Every operation runs as one atomic unit of work: the event
// row and its balance effect commit together or not at all. Update and
// delete always fully reverse the previously persisted effect, from a
// snapshot taken before any field is overwritten, before applying the
// new one.
type LedgerUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	eventRepo   EventRepository
	auditRepo   AuditRepository
	outboxRepo  OutboxRepository
	reconciler  *BalanceReconciler
	converter   *CurrencyConverter
	retrier     Retrier
	idGen       IDGenerator
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewLedgerUseCase creates a new LedgerUseCase. metrics may be nil.
func NewLedgerUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	eventRepo EventRepository,
	auditRepo AuditRepository,
	outboxRepo OutboxRepository,
	reconciler *BalanceReconciler,
	converter *CurrencyConverter,
	retrier Retrier,
	idGen IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *LedgerUseCase {
	return &LedgerUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		eventRepo:   eventRepo,
		auditRepo:   auditRepo,
		outboxRepo:  outboxRepo,
		reconciler:  reconciler,
		converter:   converter,
		retrier:     retrier,
		idGen:       idGen,
		metrics:     m,
		logger:      logger,
	}
}

// EventInput carries the caller-supplied fields of a financial event.
type EventInput struct {
	Kind                 domain.EventKind
	SourceAccountID      *string
	DestinationAccountID *string
	Amount               decimal.Decimal
	Currency             string
	EventDate            time.Time
	Status               domain.EventStatus
	InstallmentCount     *int
	SubscriptionPeriod   *string
	NextDueDate          *time.Time
	ParentID             *string
	Metadata             map[string]any
}

// Create validates, persists and applies a new financial event.
func (uc *LedgerUseCase) Create(ctx context.Context, actor domain.Actor, input EventInput) (*domain.FinancialEvent, error) {
	if err := validateEventInput(&input); err != nil {
		return nil, err
	}

	start := time.Now()

	var created *domain.FinancialEvent

	err := uc.retrier.Retry(ctx, func() error {
		event, err := uc.createOnce(ctx, actor, input)
		if err != nil {
			return err
		}

		created = event

		return nil
	})
	if err != nil {
		uc.countError(err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EventsCreated.WithLabelValues(string(created.Kind)).Inc()
		uc.metrics.LedgerDuration.WithLabelValues("create").Observe(time.Since(start).Seconds())

		amount, _ := created.Amount.Float64()
		uc.metrics.EventAmount.WithLabelValues(string(created.Kind), created.Currency).Observe(amount)
	}

	return created, nil
}

func (uc *LedgerUseCase) createOnce(ctx context.Context, actor domain.Actor, input EventInput) (*domain.FinancialEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	accounts, err := uc.lockAccounts(ctx, tx, inputAccountIDs(input))
	if err != nil {
		return nil, err
	}

	if err := uc.validateAgainstAccounts(ctx, accounts, input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	event, err := uc.buildEvent(ctx, actor, input, now)
	if err != nil {
		return nil, err
	}

	if err := uc.eventRepo.Create(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := uc.reconciler.Apply(ctx, tx, accounts, event); err != nil {
		return nil, err
	}

	if err := uc.writeAudit(ctx, tx, actor, domain.AuditActionEventCreate, event.ID, nil, event, now); err != nil {
		return nil, err
	}

	if err := uc.writeOutbox(ctx, tx, domain.EventTypeLedgerEventCreated, event, accounts, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return event, nil
}

// Update overwrites an event with new fields. Strict ordering inside
// one transaction: snapshot the persisted fields, revert from the
// snapshot, overwrite, apply the new fields. Old and new kinds are
// dispatched independently, so an update may change the event kind.
func (uc *LedgerUseCase) Update(ctx context.Context, actor domain.Actor, id string, input EventInput) (*domain.FinancialEvent, error) {
	if err := validateEventInput(&input); err != nil {
		return nil, err
	}

	start := time.Now()

	var updated *domain.FinancialEvent

	err := uc.retrier.Retry(ctx, func() error {
		event, err := uc.updateOnce(ctx, actor, id, input)
		if err != nil {
			return err
		}

		updated = event

		return nil
	})
	if err != nil {
		uc.countError(err)
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EventsUpdated.WithLabelValues(string(updated.Kind)).Inc()
		uc.metrics.LedgerDuration.WithLabelValues("update").Observe(time.Since(start).Seconds())
	}

	return updated, nil
}

func (uc *LedgerUseCase) updateOnce(ctx context.Context, actor domain.Actor, id string, input EventInput) (*domain.FinancialEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	event, err := uc.eventRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	// The snapshot must be taken before any field of the event is
	// overwritten; it is the only record of the effect to undo.
	snap := event.Snapshot()
	before := domain.MarshalState(event)

	ids := append(snapshotAccountIDs(snap), inputAccountIDs(input)...)

	accounts, err := uc.accountsForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	if err := uc.requireUsable(accounts, inputAccountIDs(input)); err != nil {
		return nil, err
	}

	if err := uc.reconciler.Revert(ctx, tx, accounts, snap); err != nil {
		return nil, err
	}

	// Sufficiency is checked against post-revert balances: the old
	// effect no longer counts against the account.
	if err := uc.validateAgainstAccounts(ctx, accounts, input); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := uc.overwriteEvent(ctx, event, input, now); err != nil {
		return nil, err
	}

	if err := uc.eventRepo.Update(ctx, tx, event); err != nil {
		return nil, err
	}

	if err := uc.reconciler.Apply(ctx, tx, accounts, event); err != nil {
		return nil, err
	}

	if err := uc.writeAudit(ctx, tx, actor, domain.AuditActionEventUpdate, event.ID, before, event, now); err != nil {
		return nil, err
	}

	if err := uc.writeOutbox(ctx, tx, domain.EventTypeLedgerEventUpdated, event, accounts, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return event, nil
}

// Delete reverses an event's balance effect and removes the row.
func (uc *LedgerUseCase) Delete(ctx context.Context, actor domain.Actor, id string) error {
	start := time.Now()

	var deleted *domain.FinancialEvent

	err := uc.retrier.Retry(ctx, func() error {
		event, err := uc.deleteOnce(ctx, actor, id)
		if err != nil {
			return err
		}

		deleted = event

		return nil
	})
	if err != nil {
		uc.countError(err)
		return err
	}

	if uc.metrics != nil {
		uc.metrics.EventsDeleted.WithLabelValues(string(deleted.Kind)).Inc()
		uc.metrics.LedgerDuration.WithLabelValues("delete").Observe(time.Since(start).Seconds())
	}

	return nil
}

func (uc *LedgerUseCase) deleteOnce(ctx context.Context, actor domain.Actor, id string) (*domain.FinancialEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	event, err := uc.eventRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	snap := event.Snapshot()
	before := domain.MarshalState(event)

	accounts, err := uc.accountsForUpdate(ctx, tx, snapshotAccountIDs(snap))
	if err != nil {
		return nil, err
	}

	if err := uc.reconciler.Revert(ctx, tx, accounts, snap); err != nil {
		return nil, err
	}

	if err := uc.eventRepo.Delete(ctx, tx, id); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := uc.writeAudit(ctx, tx, actor, domain.AuditActionEventDelete, id, before, nil, now); err != nil {
		return nil, err
	}

	if err := uc.writeOutbox(ctx, tx, domain.EventTypeLedgerEventDeleted, event, accounts, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return event, nil
}

// Get retrieves an event by ID.
func (uc *LedgerUseCase) Get(ctx context.Context, id string) (*domain.FinancialEvent, error) {
	return uc.eventRepo.GetByID(ctx, id)
}

// ListByAccount lists events touching an account.
func (uc *LedgerUseCase) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.FinancialEvent, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.eventRepo.ListByAccount(ctx, accountID, limit, offset)
}

// --- validation -----------------------------------------------------

// validateEventInput performs the static, account-independent checks
// and normalizes the currency code in place. It runs before any lock
// is taken; a rejection here leaves no state.
func validateEventInput(input *EventInput) error {
	if !domain.ValidEventKind(input.Kind) {
		return domain.ErrInvalidEventKind
	}

	if err := domain.ValidateAmount(input.Amount); err != nil {
		return err
	}

	currency, err := domain.NormalizeCurrency(input.Currency)
	if err != nil {
		return err
	}
	input.Currency = currency

	if err := domain.ValidateMetadata(input.Metadata); err != nil {
		return err
	}

	for _, role := range input.Kind.Roles() {
		if inputAccountID(*input, role) == nil {
			if role == domain.RoleSource {
				return domain.ErrMissingSourceAccount
			}
			return domain.ErrMissingDestinationAccount
		}
	}

	if input.Kind == domain.EventKindTransfer &&
		*input.SourceAccountID == *input.DestinationAccountID {
		return domain.ErrSameAccount
	}

	return nil
}

// validateAgainstAccounts performs the checks that need the locked
// account rows: kind constraints, balance sufficiency, limits.
func (uc *LedgerUseCase) validateAgainstAccounts(ctx context.Context, accounts map[string]*domain.Account, input EventInput) error {
	switch input.Kind {
	case domain.EventKindTransfer:
		source := accounts[*input.SourceAccountID]

		required, err := uc.amountInAccountCurrency(ctx, source, input)
		if err != nil {
			return err
		}

		if source.Balance.LessThan(required) {
			return domain.ErrInsufficientBalance
		}

	case domain.EventKindInstallment:
		source := accounts[*input.SourceAccountID]
		if !source.IsCreditCard() {
			return domain.ErrInstallmentNeedsCard
		}

		required, err := uc.amountInAccountCurrency(ctx, source, input)
		if err != nil {
			return err
		}

		if source.AvailableLimit().LessThan(required) {
			return domain.ErrInsufficientLimit
		}

	case domain.EventKindIncome, domain.EventKindExpense,
		domain.EventKindSubscription, domain.EventKindLoanPayment:
		// No sufficiency constraints beyond account presence.

	default:
		return domain.ErrInvalidEventKind
	}

	return nil
}

func (uc *LedgerUseCase) amountInAccountCurrency(ctx context.Context, account *domain.Account, input EventInput) (decimal.Decimal, error) {
	if account.Currency == input.Currency {
		return input.Amount, nil
	}

	converted, err := uc.converter.Convert(ctx, input.Amount, input.Currency, account.Currency, input.EventDate)
	if err != nil {
		return decimal.Zero, err
	}

	return converted.Round(balanceScale), nil
}

// --- event construction ---------------------------------------------

func (uc *LedgerUseCase) buildEvent(ctx context.Context, actor domain.Actor, input EventInput, now time.Time) (*domain.FinancialEvent, error) {
	event := &domain.FinancialEvent{
		ID:        uc.idGen.Generate(),
		CreatedBy: actor.ID,
		CreatedAt: now,
	}

	if err := uc.overwriteEvent(ctx, event, input, now); err != nil {
		return nil, err
	}

	return event, nil
}

// overwriteEvent sets the caller-controlled fields and recomputes the
// derived ones (rate snapshot, local-currency equivalent, installment
// portions).
func (uc *LedgerUseCase) overwriteEvent(ctx context.Context, event *domain.FinancialEvent, input EventInput, now time.Time) error {
	rate, err := uc.converter.BuyRate(ctx, input.Currency, input.EventDate)
	if err != nil {
		return err
	}

	local, err := uc.converter.Convert(ctx, input.Amount, input.Currency, uc.converter.LocalCurrency(), input.EventDate)
	if err != nil {
		return err
	}

	status := input.Status
	if status == "" {
		status = domain.EventStatusCompleted
	}

	event.Kind = input.Kind
	event.SourceAccountID = input.SourceAccountID
	event.DestinationAccountID = input.DestinationAccountID
	event.Amount = input.Amount
	event.Currency = input.Currency
	event.ExchangeRate = rate
	event.LocalAmount = local.Round(balanceScale)
	event.EventDate = input.EventDate
	event.Status = status
	event.ParentID = input.ParentID
	event.Metadata = input.Metadata
	event.UpdatedAt = now

	event.InstallmentCount = nil
	event.InstallmentsRemaining = nil
	event.MonthlyAmount = nil
	event.SubscriptionPeriod = nil
	event.NextDueDate = nil

	if input.Kind == domain.EventKindInstallment && input.InstallmentCount != nil && *input.InstallmentCount > 0 {
		count := *input.InstallmentCount
		remaining := count
		monthly := input.Amount.Div(decimal.NewFromInt(int64(count))).Round(balanceScale)

		event.InstallmentCount = &count
		event.InstallmentsRemaining = &remaining
		event.MonthlyAmount = &monthly
	}

	if input.Kind == domain.EventKindSubscription {
		event.SubscriptionPeriod = input.SubscriptionPeriod
		event.NextDueDate = input.NextDueDate
	}

	return nil
}

// --- account locking ------------------------------------------------

// lockAccounts locks the given accounts and requires all of them to
// exist and be usable. Used on the create path, where a missing or
// retired account is a validation failure.
func (uc *LedgerUseCase) lockAccounts(ctx context.Context, tx Transaction, ids []string) (map[string]*domain.Account, error) {
	accounts, err := uc.accountsForUpdate(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	if err := uc.requireUsable(accounts, ids); err != nil {
		return nil, err
	}

	return accounts, nil
}

// accountsForUpdate locks whichever of ids still exist, in sorted
// order so concurrent units of work cannot deadlock on each other.
func (uc *LedgerUseCase) accountsForUpdate(ctx context.Context, tx Transaction, ids []string) (map[string]*domain.Account, error) {
	unique := uniqueSorted(ids)
	if len(unique) == 0 {
		return map[string]*domain.Account{}, nil
	}

	accounts, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, unique)
	if err != nil {
		return nil, err
	}

	m := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		m[a.ID] = a
	}

	return m, nil
}

func (uc *LedgerUseCase) requireUsable(accounts map[string]*domain.Account, ids []string) error {
	for _, id := range ids {
		account := accounts[id]
		if account == nil {
			return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
		}

		if !account.Usable() {
			return fmt.Errorf("%w: %s", domain.ErrAccountNotUsable, id)
		}
	}

	return nil
}

// --- audit and outbox -----------------------------------------------

func (uc *LedgerUseCase) writeAudit(ctx context.Context, tx Transaction, actor domain.Actor, action domain.AuditAction, resourceID string, before domain.JSON, after any, now time.Time) error {
	if uc.metrics != nil {
		uc.metrics.AuditLogsCreated.WithLabelValues(string(action)).Inc()
	}

	return uc.auditRepo.Create(ctx, tx, &domain.AuditLog{
		ID:           uc.idGen.Generate(),
		ActorID:      actor.ID,
		Action:       string(action),
		ResourceType: domain.AggregateTypeLedgerEvent,
		ResourceID:   resourceID,
		RequestID:    actor.RequestID,
		IPAddress:    actor.IPAddress,
		BeforeState:  before,
		AfterState:   domain.MarshalState(after),
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    now,
	})
}

func (uc *LedgerUseCase) writeOutbox(ctx context.Context, tx Transaction, eventType string, event *domain.FinancialEvent, accounts map[string]*domain.Account, now time.Time) error {
	payload := domain.LedgerEventChangedPayload{
		EventID:   event.ID,
		Kind:      string(event.Kind),
		Amount:    event.Amount.String(),
		Currency:  event.Currency,
		EventDate: domain.RateDateKey(event.EventDate),
	}

	if event.SourceAccountID != nil {
		payload.SourceAccountID = *event.SourceAccountID
	}

	if event.DestinationAccountID != nil {
		payload.DestinationAccountID = *event.DestinationAccountID
	}

	err := uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   event.ID,
		AggregateType: domain.AggregateTypeLedgerEvent,
		EventType:     eventType,
		Payload:       domain.MarshalState(payload),
		CreatedAt:     now,
	})
	if err != nil {
		return err
	}

	for _, account := range accounts {
		err := uc.outboxRepo.Create(ctx, tx, &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   account.ID,
			AggregateType: domain.AggregateTypeAccount,
			EventType:     domain.EventTypeBalanceChanged,
			Payload: domain.MarshalState(domain.BalanceChangedPayload{
				AccountID: account.ID,
				Balance:   account.Balance.String(),
				Currency:  account.Currency,
				EventID:   event.ID,
			}),
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// --- helpers --------------------------------------------------------

func inputAccountID(input EventInput, role domain.AccountRole) *string {
	if role == domain.RoleSource {
		return input.SourceAccountID
	}
	return input.DestinationAccountID
}

func inputAccountIDs(input EventInput) []string {
	var ids []string

	if input.SourceAccountID != nil {
		ids = append(ids, *input.SourceAccountID)
	}

	if input.DestinationAccountID != nil {
		ids = append(ids, *input.DestinationAccountID)
	}

	return ids
}

func snapshotAccountIDs(snap domain.EventSnapshot) []string {
	var ids []string

	if snap.SourceAccountID != nil {
		ids = append(ids, *snap.SourceAccountID)
	}

	if snap.DestinationAccountID != nil {
		ids = append(ids, *snap.DestinationAccountID)
	}

	return ids
}

func (uc *LedgerUseCase) countError(err error) {
	if uc.metrics == nil {
		return
	}
	uc.metrics.EventErrors.WithLabelValues(errorLabel(err)).Inc()
}

func errorLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrEventNotFound),
		errors.Is(err, domain.ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientLimit):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrAccountNotUsable):
		return "account_not_usable"
	case errors.Is(err, domain.ErrRateUnavailable):
		return "rate_unavailable"
	default:
		return "internal"
	}
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))

	var unique []string
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}

		seen[id] = true
		unique = append(unique, id)
	}

	sort.Strings(unique)

	return unique
}
