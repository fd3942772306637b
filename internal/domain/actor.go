package domain

// Actor is the acting user on whose behalf a ledger operation runs.
// It is passed explicitly into every ledger call for audit attribution
// rather than read from ambient state.
type Actor struct {
	ID        string
	RequestID string
	IPAddress string
}

// System is the actor recorded for internally triggered operations.
var System = Actor{ID: "system"}
