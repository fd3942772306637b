package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind is the closed set of financial event kinds the ledger
// understands. Both the apply and the revert path dispatch on it
// exhaustively, so a new kind cannot be added without updating both.
type EventKind string

const (
	EventKindIncome       EventKind = "income"
	EventKindExpense      EventKind = "expense"
	EventKindTransfer     EventKind = "transfer"
	EventKindInstallment  EventKind = "installment"
	EventKindSubscription EventKind = "subscription"
	EventKindLoanPayment  EventKind = "loan_payment"
)

// ValidEventKind reports whether k is a known event kind.
func ValidEventKind(k EventKind) bool {
	switch k {
	case EventKindIncome, EventKindExpense, EventKindTransfer,
		EventKindInstallment, EventKindSubscription, EventKindLoanPayment:
		return true
	}
	return false
}

// EventStatus is the lifecycle status of a financial event.
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusCompleted EventStatus = "completed"
	EventStatusOverdue   EventStatus = "overdue"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusFailed    EventStatus = "failed"
)

// AccountRole is the side of an event an account plays.
type AccountRole string

const (
	RoleSource      AccountRole = "source"
	RoleDestination AccountRole = "destination"
)

// FinancialEvent is a single ledger entry. Amount is always stored
// positive; the signed balance effect is derived from Kind and the
// kind of the touched account.
type FinancialEvent struct {
	ID                   string
	Kind                 EventKind
	SourceAccountID      *string
	DestinationAccountID *string
	Amount               decimal.Decimal
	Currency             string
	ExchangeRate         decimal.Decimal
	LocalAmount          decimal.Decimal
	EventDate            time.Time
	Status               EventStatus

	// Installment purchases
	InstallmentCount      *int
	InstallmentsRemaining *int
	MonthlyAmount         *decimal.Decimal

	// Recurring subscriptions
	SubscriptionPeriod *string
	NextDueDate        *time.Time

	// Parent entity (loan, recurring series)
	ParentID *string

	Metadata  map[string]any
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Roles returns the account roles the event kind touches.
func (k EventKind) Roles() []AccountRole {
	switch k {
	case EventKindIncome:
		return []AccountRole{RoleDestination}
	case EventKindExpense, EventKindInstallment, EventKindSubscription, EventKindLoanPayment:
		return []AccountRole{RoleSource}
	case EventKindTransfer:
		return []AccountRole{RoleSource, RoleDestination}
	}
	return nil
}

// EffectDelta returns the signed balance delta, in the event's own
// currency, that an event of the given kind has on an account playing
// the given role. Credit-card accounts hold debt, so expense-like
// kinds increase their balance instead of decreasing it.
func EffectDelta(kind EventKind, role AccountRole, accountKind AccountKind, amount decimal.Decimal) (decimal.Decimal, error) {
	card := accountKind == AccountKindCreditCard

	switch kind {
	case EventKindIncome:
		if role == RoleDestination {
			return amount, nil
		}

	case EventKindExpense, EventKindSubscription:
		if role == RoleSource {
			if card {
				return amount, nil
			}
			return amount.Neg(), nil
		}

	case EventKindTransfer:
		switch role {
		case RoleSource:
			return amount.Neg(), nil
		case RoleDestination:
			return amount, nil
		}

	case EventKindInstallment:
		// Purchase reduces balance even on cards.
		if role == RoleSource {
			return amount.Neg(), nil
		}

	case EventKindLoanPayment:
		if role == RoleSource {
			if card {
				return amount, nil
			}
			return amount.Neg(), nil
		}

	default:
		return decimal.Zero, ErrInvalidEventKind
	}

	return decimal.Zero, ErrInvalidEventKind
}

// AccountID returns the account reference the event holds for a role.
func (e *FinancialEvent) AccountID(role AccountRole) *string {
	if role == RoleSource {
		return e.SourceAccountID
	}
	return e.DestinationAccountID
}

// EventSnapshot is an immutable copy of the balance-relevant fields of
// a persisted event, taken before any field mutation. Reversal always
// dispatches on a snapshot, never on current mutable state: once the
// event row has been overwritten, only the snapshot still describes
// the effect that was actually applied.
type EventSnapshot struct {
	EventID              string
	Kind                 EventKind
	SourceAccountID      *string
	DestinationAccountID *string
	Amount               decimal.Decimal
	Currency             string
	EventDate            time.Time
}

// Snapshot copies the balance-relevant fields of the event.
func (e *FinancialEvent) Snapshot() EventSnapshot {
	snap := EventSnapshot{
		EventID:   e.ID,
		Kind:      e.Kind,
		Amount:    e.Amount,
		Currency:  e.Currency,
		EventDate: e.EventDate,
	}

	if e.SourceAccountID != nil {
		id := *e.SourceAccountID
		snap.SourceAccountID = &id
	}

	if e.DestinationAccountID != nil {
		id := *e.DestinationAccountID
		snap.DestinationAccountID = &id
	}

	return snap
}

// AccountID returns the snapshot's account reference for a role.
func (s EventSnapshot) AccountID(role AccountRole) *string {
	if role == RoleSource {
		return s.SourceAccountID
	}
	return s.DestinationAccountID
}

// Valid reports whether the snapshot was taken from a persisted event.
func (s EventSnapshot) Valid() bool {
	return s.EventID != "" && ValidEventKind(s.Kind)
}
