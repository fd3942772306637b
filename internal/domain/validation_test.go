package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeCurrency(t *testing.T) {
	t.Parallel()

	t.Run("uppercase passthrough", func(t *testing.T) {
		code, err := NormalizeCurrency("USD")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if code != "USD" {
			t.Fatalf("expected USD, got %s", code)
		}
	})

	t.Run("lowercase normalized", func(t *testing.T) {
		code, err := NormalizeCurrency("usd")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if code != "USD" {
			t.Fatalf("expected USD, got %s", code)
		}
	})

	t.Run("surrounding whitespace trimmed", func(t *testing.T) {
		code, err := NormalizeCurrency("  eur ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if code != "EUR" {
			t.Fatalf("expected EUR, got %s", code)
		}
	})

	t.Run("unknown code rejected", func(t *testing.T) {
		if _, err := NormalizeCurrency("XYZ"); !errors.Is(err, ErrInvalidCurrency) {
			t.Fatalf("expected ErrInvalidCurrency, got %v", err)
		}
	})
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	if err := ValidateAmount(decimal.NewFromFloat(100.25)); err != nil {
		t.Fatalf("expected valid amount, got %v", err)
	}

	if err := ValidateAmount(decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	huge := decimal.RequireFromString(MaxEventAmount).Add(decimal.NewFromInt(1))
	if err := ValidateAmount(huge); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected ErrAmountTooLarge, got %v", err)
	}
}

func TestValidateMetadata(t *testing.T) {
	t.Parallel()

	if err := ValidateMetadata(nil); err != nil {
		t.Fatalf("expected nil metadata to pass, got %v", err)
	}

	oversized := map[string]any{"note": strings.Repeat("a", MaxMetadataSize+1)}
	if err := ValidateMetadata(oversized); !errors.Is(err, ErrMetadataTooLarge) {
		t.Fatalf("expected ErrMetadataTooLarge, got %v", err)
	}
}
