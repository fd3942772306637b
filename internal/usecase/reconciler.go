package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finova/ledger/internal/domain"
)

// balanceScale is the scale account balances are persisted at.
const balanceScale = 2

// BalanceReconciler applies the signed balance effect of a financial
// event to the account(s) it touches, and applies the exact inverse
// when an event is edited or removed. Apply works on the live event;
// Revert works only on a pre-mutation snapshot, so a reversal can
// never be computed from already-overwritten fields.
type BalanceReconciler struct {
	accountRepo AccountRepository
	converter   Converter
	logger      zerolog.Logger
}

// NewBalanceReconciler creates a new BalanceReconciler.
func NewBalanceReconciler(accountRepo AccountRepository, converter Converter, logger zerolog.Logger) *BalanceReconciler {
	return &BalanceReconciler{
		accountRepo: accountRepo,
		converter:   converter,
		logger:      logger,
	}
}

// Apply applies the event's balance effect to every account it
// touches. All touched accounts must be present in accounts, locked by
// the caller for the duration of the unit of work.
func (r *BalanceReconciler) Apply(ctx context.Context, tx Transaction, accounts map[string]*domain.Account, event *domain.FinancialEvent) error {
	for _, role := range event.Kind.Roles() {
		ref := event.AccountID(role)
		if ref == nil {
			return roleError(role)
		}

		account := accounts[*ref]
		if account == nil {
			return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, *ref)
		}

		if err := r.applyEffect(ctx, tx, account, event.Kind, role, event.Amount, event.Currency, event.EventDate, false); err != nil {
			return err
		}
	}

	return nil
}

// Revert applies the arithmetic negation of a previously applied
// effect, dispatched entirely on the snapshot's originally persisted
// kind, accounts, amount, currency and date.
//
// A referenced account that no longer exists is skipped for that side:
// with the account gone there is no balance left to correct, and
// failing the whole reversal would make events on retired accounts
// uneditable.
func (r *BalanceReconciler) Revert(ctx context.Context, tx Transaction, accounts map[string]*domain.Account, snap domain.EventSnapshot) error {
	if !snap.Valid() {
		return domain.ErrStaleSnapshot
	}

	if snap.Amount.LessThanOrEqual(decimal.Zero) {
		// Nothing was ever applied.
		return nil
	}

	for _, role := range snap.Kind.Roles() {
		ref := snap.AccountID(role)
		if ref == nil {
			continue
		}

		account := accounts[*ref]
		if account == nil {
			r.logger.Warn().
				Str("event_id", snap.EventID).
				Str("account_id", *ref).
				Str("role", string(role)).
				Msg("revert skipped: referenced account no longer exists")

			continue
		}

		if err := r.applyEffect(ctx, tx, account, snap.Kind, role, snap.Amount, snap.Currency, snap.EventDate, true); err != nil {
			return err
		}
	}

	return nil
}

func (r *BalanceReconciler) applyEffect(
	ctx context.Context,
	tx Transaction,
	account *domain.Account,
	kind domain.EventKind,
	role domain.AccountRole,
	amount decimal.Decimal,
	currency string,
	date time.Time,
	negate bool,
) error {
	delta, err := domain.EffectDelta(kind, role, account.Kind, amount)
	if err != nil {
		return err
	}

	if negate {
		delta = delta.Neg()
	}

	if account.Currency != currency {
		delta, err = r.converter.Convert(ctx, delta, currency, account.Currency, date)
		if err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	newBalance := account.Balance.Add(delta.Round(balanceScale)).Round(balanceScale)

	if err := r.accountRepo.UpdateBalance(ctx, tx, account.ID, newBalance, now); err != nil {
		return err
	}

	account.Balance = newBalance
	account.UpdatedAt = now

	return nil
}

func roleError(role domain.AccountRole) error {
	if role == domain.RoleSource {
		return domain.ErrMissingSourceAccount
	}
	return domain.ErrMissingDestinationAccount
}
