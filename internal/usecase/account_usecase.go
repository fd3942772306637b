package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finova/ledger/internal/domain"
)

// AccountUseCase manages the money containers events settle against.
type AccountUseCase struct {
	accountRepo AccountRepository
	idGen       IDGenerator
	logger      zerolog.Logger
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(accountRepo AccountRepository, idGen IDGenerator, logger zerolog.Logger) *AccountUseCase {
	return &AccountUseCase{
		accountRepo: accountRepo,
		idGen:       idGen,
		logger:      logger,
	}
}

// AccountInput carries the caller-supplied fields of a new account.
type AccountInput struct {
	OwnerID        string
	Name           string
	Kind           domain.AccountKind
	Currency       string
	InitialBalance decimal.Decimal
	CreditLimit    decimal.Decimal
}

// Create validates and persists a new account. The initial balance is
// taken as-is; it is an opening statement, not a ledger event.
func (uc *AccountUseCase) Create(ctx context.Context, input AccountInput) (*domain.Account, error) {
	if input.OwnerID == "" {
		return nil, domain.ErrMissingOwner
	}

	if input.Name == "" {
		return nil, domain.ErrMissingAccountName
	}

	if !domain.ValidAccountKind(input.Kind) {
		return nil, domain.ErrInvalidAccountKind
	}

	currency, err := domain.NormalizeCurrency(input.Currency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &domain.Account{
		ID:          uc.idGen.Generate(),
		OwnerID:     input.OwnerID,
		Name:        input.Name,
		Kind:        input.Kind,
		Currency:    currency,
		Balance:     input.InitialBalance,
		CreditLimit: input.CreditLimit,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("account_id", account.ID).
		Str("kind", string(account.Kind)).
		Str("currency", account.Currency).
		Msg("account created")

	return account, nil
}

// Get retrieves an account by ID.
func (uc *AccountUseCase) Get(ctx context.Context, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, id)
}

// List lists an owner's accounts.
func (uc *AccountUseCase) List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Account, error) {
	limit, offset = domain.ValidatePagination(limit, offset)
	return uc.accountRepo.List(ctx, ownerID, limit, offset)
}
