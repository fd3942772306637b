package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finova/ledger/internal/domain"
	"github.com/finova/ledger/internal/usecase"
)

// EventRequest represents a request to create or update a financial
// event. The same shape serves POST and PUT; update semantics are
// full overwrite, not patch.
type EventRequest struct {
	Kind                 string          `json:"kind"`
	SourceAccountID      *string         `json:"source_account_id,omitempty"`
	DestinationAccountID *string         `json:"destination_account_id,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	EventDate            time.Time       `json:"event_date"`
	Status               string          `json:"status,omitempty"`
	InstallmentCount     *int            `json:"installment_count,omitempty"`
	SubscriptionPeriod   *string         `json:"subscription_period,omitempty"`
	NextDueDate          *time.Time      `json:"next_due_date,omitempty"`
	ParentID             *string         `json:"parent_id,omitempty"`
	Metadata             map[string]any  `json:"metadata,omitempty"`
}

// AccountRequest represents a request to create an account.
type AccountRequest struct {
	OwnerID        string          `json:"owner_id"`
	Name           string          `json:"name"`
	Kind           string          `json:"kind"`
	Currency       string          `json:"currency"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	CreditLimit    decimal.Decimal `json:"credit_limit"`
}

// ToUseCaseInput converts to use case input.
func (r *AccountRequest) ToUseCaseInput() usecase.AccountInput {
	return usecase.AccountInput{
		OwnerID:        r.OwnerID,
		Name:           r.Name,
		Kind:           domain.AccountKind(r.Kind),
		Currency:       r.Currency,
		InitialBalance: r.InitialBalance,
		CreditLimit:    r.CreditLimit,
	}
}

// ToUseCaseInput converts to use case input.
func (r *EventRequest) ToUseCaseInput() usecase.EventInput {
	return usecase.EventInput{
		Kind:                 domain.EventKind(r.Kind),
		SourceAccountID:      r.SourceAccountID,
		DestinationAccountID: r.DestinationAccountID,
		Amount:               r.Amount,
		Currency:             r.Currency,
		EventDate:            r.EventDate,
		Status:               domain.EventStatus(r.Status),
		InstallmentCount:     r.InstallmentCount,
		SubscriptionPeriod:   r.SubscriptionPeriod,
		NextDueDate:          r.NextDueDate,
		ParentID:             r.ParentID,
		Metadata:             r.Metadata,
	}
}
