package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind identifies what kind of money container an account is.
type AccountKind string

const (
	AccountKindCash         AccountKind = "cash"
	AccountKindBank         AccountKind = "bank"
	AccountKindCreditCard   AccountKind = "credit_card"
	AccountKindCryptoWallet AccountKind = "crypto_wallet"
	AccountKindVirtualPOS   AccountKind = "virtual_pos"
)

// ValidAccountKind reports whether k is a known account kind.
func ValidAccountKind(k AccountKind) bool {
	switch k {
	case AccountKindCash, AccountKindBank, AccountKindCreditCard,
		AccountKindCryptoWallet, AccountKindVirtualPOS:
		return true
	}
	return false
}

// Account holds a balance in its own currency.
//
// For credit_card accounts, Balance is debt owed rather than cash on
// hand; sign rules for expense-like events are inverted accordingly.
type Account struct {
	ID          string
	OwnerID     string
	Name        string
	Kind        AccountKind
	Currency    string
	Balance     decimal.Decimal
	CreditLimit decimal.Decimal
	Active      bool
	Deleted     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsCreditCard reports whether the account carries debt semantics.
func (a *Account) IsCreditCard() bool {
	return a.Kind == AccountKindCreditCard
}

// AvailableLimit returns the remaining spendable limit on a credit card.
// Balance counts as debt, so available = limit - balance.
func (a *Account) AvailableLimit() decimal.Decimal {
	return a.CreditLimit.Sub(a.Balance)
}

// Usable reports whether the account can take part in new events.
func (a *Account) Usable() bool {
	return a.Active && !a.Deleted
}

// ValidateWithdrawal checks the account can cover amount (in the
// account's own currency). Credit cards are checked against their
// available limit, everything else against the balance.
func (a *Account) ValidateWithdrawal(amount decimal.Decimal) error {
	if a.IsCreditCard() {
		if a.AvailableLimit().LessThan(amount) {
			return ErrInsufficientLimit
		}
		return nil
	}

	if a.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}

	return nil
}
