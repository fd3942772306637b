package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/finova/ledger/internal/domain"
	"github.com/finova/ledger/internal/usecase"
)

// EventResponse represents a financial event in API responses.
type EventResponse struct {
	ID                   string          `json:"id"`
	Kind                 string          `json:"kind"`
	SourceAccountID      *string         `json:"source_account_id,omitempty"`
	DestinationAccountID *string         `json:"destination_account_id,omitempty"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency"`
	ExchangeRate         decimal.Decimal `json:"exchange_rate"`
	LocalAmount          decimal.Decimal `json:"local_amount"`
	EventDate            time.Time       `json:"event_date"`
	Status               string          `json:"status"`

	InstallmentCount      *int             `json:"installment_count,omitempty"`
	InstallmentsRemaining *int             `json:"installments_remaining,omitempty"`
	MonthlyAmount         *decimal.Decimal `json:"monthly_amount,omitempty"`

	SubscriptionPeriod *string    `json:"subscription_period,omitempty"`
	NextDueDate        *time.Time `json:"next_due_date,omitempty"`

	ParentID  *string        `json:"parent_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedBy string         `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// EventFromDomain converts a domain event to a response.
func EventFromDomain(e *domain.FinancialEvent) *EventResponse {
	return &EventResponse{
		ID:                    e.ID,
		Kind:                  string(e.Kind),
		SourceAccountID:       e.SourceAccountID,
		DestinationAccountID:  e.DestinationAccountID,
		Amount:                e.Amount,
		Currency:              e.Currency,
		ExchangeRate:          e.ExchangeRate,
		LocalAmount:           e.LocalAmount,
		EventDate:             e.EventDate,
		Status:                string(e.Status),
		InstallmentCount:      e.InstallmentCount,
		InstallmentsRemaining: e.InstallmentsRemaining,
		MonthlyAmount:         e.MonthlyAmount,
		SubscriptionPeriod:    e.SubscriptionPeriod,
		NextDueDate:           e.NextDueDate,
		ParentID:              e.ParentID,
		Metadata:              e.Metadata,
		CreatedBy:             e.CreatedBy,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

// EventsFromDomain converts domain events to responses.
func EventsFromDomain(events []*domain.FinancialEvent) []*EventResponse {
	result := make([]*EventResponse, len(events))
	for i, e := range events {
		result[i] = EventFromDomain(e)
	}
	return result
}

// RateResponse represents one currency's buy/sell pair.
type RateResponse struct {
	Buy  decimal.Decimal `json:"buy"`
	Sell decimal.Decimal `json:"sell"`
}

// RateTableResponse represents the rate table for a date.
type RateTableResponse struct {
	Date  string                  `json:"date"`
	Rates map[string]RateResponse `json:"rates"`
}

// RateTableFromDomain converts a domain rate table to a response.
func RateTableFromDomain(date time.Time, table domain.RateTable) *RateTableResponse {
	rates := make(map[string]RateResponse, len(table))
	for currency, rate := range table {
		rates[currency] = RateResponse{Buy: rate.Buy, Sell: rate.Sell}
	}

	return &RateTableResponse{
		Date:  domain.RateDateKey(date),
		Rates: rates,
	}
}

// ConvertResponse represents a currency conversion result.
type ConvertResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Converted decimal.Decimal `json:"converted"`
	Date      string          `json:"date"`
}

// ReconciliationResponse represents a balance reconciliation check.
type ReconciliationResponse struct {
	AccountID       string          `json:"account_id"`
	Currency        string          `json:"currency"`
	RecordedBalance decimal.Decimal `json:"recorded_balance"`
	ComputedBalance decimal.Decimal `json:"computed_balance"`
	Difference      decimal.Decimal `json:"difference"`
	EventCount      int             `json:"event_count"`
	IsReconciled    bool            `json:"is_reconciled"`
	CheckedAt       time.Time       `json:"checked_at"`
}

// ReconciliationFromResult converts a reconciliation result to a response.
func ReconciliationFromResult(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		AccountID:       r.AccountID,
		Currency:        r.Currency,
		RecordedBalance: r.RecordedBalance,
		ComputedBalance: r.ComputedBalance,
		Difference:      r.Difference,
		EventCount:      r.EventCount,
		IsReconciled:    r.IsReconciled,
		CheckedAt:       r.CheckedAt,
	}
}

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	Name        string          `json:"name"`
	Kind        string          `json:"kind"`
	Currency    string          `json:"currency"`
	Balance     decimal.Decimal `json:"balance"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		ID:          a.ID,
		OwnerID:     a.OwnerID,
		Name:        a.Name,
		Kind:        string(a.Kind),
		Currency:    a.Currency,
		Balance:     a.Balance,
		CreditLimit: a.CreditLimit,
		Active:      a.Active,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// AuditLogResponse represents an audit log entry in API responses.
type AuditLogResponse struct {
	ID           string         `json:"id"`
	ActorID      string         `json:"actor_id"`
	Action       string         `json:"action"`
	ResourceType string         `json:"resource_type"`
	ResourceID   string         `json:"resource_id"`
	RequestID    string         `json:"request_id,omitempty"`
	IPAddress    string         `json:"ip_address,omitempty"`
	BeforeState  map[string]any `json:"before_state,omitempty"`
	AfterState   map[string]any `json:"after_state,omitempty"`
	Status       string         `json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
}

// AuditLogsFromDomain converts domain audit logs to responses.
func AuditLogsFromDomain(logs []*domain.AuditLog) []*AuditLogResponse {
	result := make([]*AuditLogResponse, len(logs))
	for i, l := range logs {
		result[i] = &AuditLogResponse{
			ID:           l.ID,
			ActorID:      l.ActorID,
			Action:       l.Action,
			ResourceType: l.ResourceType,
			ResourceID:   l.ResourceID,
			RequestID:    l.RequestID,
			IPAddress:    l.IPAddress,
			BeforeState:  l.BeforeState,
			AfterState:   l.AfterState,
			Status:       l.Status,
			CreatedAt:    l.CreatedAt,
		}
	}
	return result
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
