package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finova/ledger/internal/domain"
	"github.com/finova/ledger/internal/usecase"
	"github.com/finova/ledger/internal/usecase/mocks"
)

func testRateTable() domain.RateTable {
	return domain.RateTable{
		"USD": {Buy: decimal.RequireFromString("34"), Sell: decimal.RequireFromString("34")},
		"EUR": {Buy: decimal.RequireFromString("35"), Sell: decimal.RequireFromString("36")},
	}
}

func newTestConverter(table domain.RateTable) *usecase.CurrencyConverter {
	return usecase.NewCurrencyConverter(&mocks.StaticRateLookup{Table: table}, "TRY")
}

func TestCurrencyConverter_Identity(t *testing.T) {
	conv := newTestConverter(testRateTable())
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	for _, currency := range []string{"TRY", "USD", "EUR", "XXX"} {
		amount := decimal.RequireFromString("123.45")

		got, err := conv.Convert(context.Background(), amount, currency, currency, date)

		require.NoError(t, err)
		assert.True(t, got.Equal(amount), "identity conversion for %s changed the amount", currency)
	}
}

func TestCurrencyConverter_PivotBuyThenSell(t *testing.T) {
	conv := newTestConverter(testRateTable())
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	// 10 EUR * buy(35) = 350 TRY, 350 / sell(34) ~= 10.294
	got, err := conv.Convert(context.Background(), decimal.NewFromInt(10), "EUR", "USD", date)
	require.NoError(t, err)
	assert.Equal(t, "10.29", got.Round(2).String())

	// The pivot is asymmetric: USD -> EUR uses USD buy and EUR sell,
	// which is not the inverse of the above.
	back, err := conv.Convert(context.Background(), got, "USD", "EUR", date)
	require.NoError(t, err)
	assert.NotEqual(t, "10.00", back.Round(2).String())
}

func TestCurrencyConverter_LocalLegs(t *testing.T) {
	conv := newTestConverter(testRateTable())
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	toLocal, err := conv.Convert(context.Background(), decimal.NewFromInt(10), "EUR", "TRY", date)
	require.NoError(t, err)
	assert.Equal(t, "350", toLocal.String())

	fromLocal, err := conv.Convert(context.Background(), decimal.NewFromInt(72), "TRY", "EUR", date)
	require.NoError(t, err)
	assert.Equal(t, "2", fromLocal.String())
}

func TestCurrencyConverter_MissingRate(t *testing.T) {
	conv := newTestConverter(testRateTable())
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	_, err := conv.Convert(context.Background(), decimal.NewFromInt(10), "GBP", "USD", date)
	assert.ErrorIs(t, err, domain.ErrRateUnavailable)

	_, err = conv.Convert(context.Background(), decimal.NewFromInt(10), "USD", "GBP", date)
	assert.ErrorIs(t, err, domain.ErrRateUnavailable)
}

func TestCurrencyConverter_BuyRate(t *testing.T) {
	conv := newTestConverter(testRateTable())
	date := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	rate, err := conv.BuyRate(context.Background(), "TRY", date)
	require.NoError(t, err)
	assert.Equal(t, "1", rate.String())

	rate, err = conv.BuyRate(context.Background(), "EUR", date)
	require.NoError(t, err)
	assert.Equal(t, "35", rate.String())

	_, err = conv.BuyRate(context.Background(), "GBP", date)
	assert.ErrorIs(t, err, domain.ErrRateUnavailable)
}
