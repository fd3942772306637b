package domain

import "time"

// Event types
const (
	EventTypeLedgerEventCreated = "ledger_event.created"
	EventTypeLedgerEventUpdated = "ledger_event.updated"
	EventTypeLedgerEventDeleted = "ledger_event.deleted"
	EventTypeBalanceChanged     = "account.balance_changed"
)

// Aggregate types
const (
	AggregateTypeLedgerEvent = "ledger_event"
	AggregateTypeAccount     = "account"
)

// OutboxEvent represents a domain event to be published to downstream
// collaborators (notifications, reporting) after commit.
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// LedgerEventChangedPayload is the payload for created/updated/deleted
// ledger event notifications.
type LedgerEventChangedPayload struct {
	EventID              string `json:"event_id"`
	Kind                 string `json:"kind"`
	SourceAccountID      string `json:"source_account_id,omitempty"`
	DestinationAccountID string `json:"destination_account_id,omitempty"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	EventDate            string `json:"event_date"`
}

// BalanceChangedPayload is the payload for balance change notifications.
type BalanceChangedPayload struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
	EventID   string `json:"event_id"`
}
