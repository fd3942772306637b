package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrInvalidCurrency = errors.New("invalid currency code")
	ErrAmountTooLarge  = errors.New("amount exceeds maximum allowed")
	ErrMetadataTooLarge = errors.New("metadata size exceeds limit")
)

// Validation constants
const (
	MaxMetadataSize = 10240 // 10KB
	MaxEventAmount  = "1000000000000"
)

// Valid currency codes (ISO 4217)
var validCurrencies = map[string]bool{
	"TRY": true, "USD": true, "EUR": true, "GBP": true,
	"CHF": true, "JPY": true, "CNY": true, "AUD": true,
	"CAD": true, "SEK": true, "NOK": true, "RUB": true,
	"SAR": true, "AED": true, "KWD": true, "BGN": true,
}

// NormalizeCurrency validates a currency code and returns its
// canonical upper-case form. Rate lookups and account-currency
// comparisons are case-sensitive, so the returned code is the one to
// persist and compare with.
func NormalizeCurrency(currency string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))

	if !validCurrencies[code] {
		return "", fmt.Errorf("%w: %s is not a supported ISO 4217 currency code", ErrInvalidCurrency, currency)
	}

	return code, nil
}

// ValidateAmount validates an event amount.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	maxAmount, _ := decimal.NewFromString(MaxEventAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: maximum amount is %s", ErrAmountTooLarge, MaxEventAmount)
	}

	return nil
}

// ValidateMetadata validates metadata size.
func ValidateMetadata(metadata map[string]any) error {
	if metadata == nil {
		return nil
	}

	size := 0
	for k, v := range metadata {
		size += len(k)
		size += len(fmt.Sprintf("%v", v))
	}

	if size > MaxMetadataSize {
		return fmt.Errorf("%w: metadata size %d bytes exceeds limit of %d bytes", ErrMetadataTooLarge, size, MaxMetadataSize)
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters.
func ValidatePagination(limit, offset int) (int, int) {
	const MaxPageSize = 1000
	const DefaultPageSize = 50

	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
