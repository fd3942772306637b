package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/finova/ledger/internal/domain"
	"github.com/finova/ledger/internal/usecase"
	"github.com/finova/ledger/internal/usecase/mocks"
)

type ledgerFixture struct {
	uc          *usecase.LedgerUseCase
	accountRepo *mocks.MockAccountRepository
	eventRepo   *mocks.MockEventRepository
	auditRepo   *mocks.MockAuditRepository
	outboxRepo  *mocks.MockOutboxRepository
	txMgr       *mocks.MockTransactionManager
}

func newLedgerFixture() *ledgerFixture {
	accountRepo := mocks.NewMockAccountRepository()
	eventRepo := mocks.NewMockEventRepository()
	auditRepo := mocks.NewMockAuditRepository()
	outboxRepo := mocks.NewMockOutboxRepository()
	txMgr := mocks.NewMockTransactionManager()

	converter := newTestConverter(testRateTable())
	reconciler := usecase.NewBalanceReconciler(accountRepo, converter, zerolog.Nop())

	uc := usecase.NewLedgerUseCase(
		txMgr,
		accountRepo,
		eventRepo,
		auditRepo,
		outboxRepo,
		reconciler,
		converter,
		mocks.NewMockRetrier(),
		mocks.NewMockIDGenerator(),
		nil,
		zerolog.Nop(),
	)

	return &ledgerFixture{
		uc:          uc,
		accountRepo: accountRepo,
		eventRepo:   eventRepo,
		auditRepo:   auditRepo,
		outboxRepo:  outboxRepo,
		txMgr:       txMgr,
	}
}

func (f *ledgerFixture) seedBank(id string, balance int64) *domain.Account {
	account := &domain.Account{
		ID:       id,
		Kind:     domain.AccountKindBank,
		Currency: "TRY",
		Balance:  decimal.NewFromInt(balance),
		Active:   true,
	}
	f.accountRepo.Seed(account)
	return account
}

func (f *ledgerFixture) seedCard(id string, balance, limit int64) *domain.Account {
	account := &domain.Account{
		ID:          id,
		Kind:        domain.AccountKindCreditCard,
		Currency:    "TRY",
		Balance:     decimal.NewFromInt(balance),
		CreditLimit: decimal.NewFromInt(limit),
		Active:      true,
	}
	f.accountRepo.Seed(account)
	return account
}

func (f *ledgerFixture) balance(t *testing.T, id string) string {
	t.Helper()
	account, err := f.accountRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("account %s: %v", id, err)
	}
	return account.Balance.String()
}

var testActor = domain.Actor{ID: "user-1"}

var eventDate = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func transferInput(from, to string, amount int64) usecase.EventInput {
	return usecase.EventInput{
		Kind:                 domain.EventKindTransfer,
		SourceAccountID:      strPtr(from),
		DestinationAccountID: strPtr(to),
		Amount:               decimal.NewFromInt(amount),
		Currency:             "TRY",
		EventDate:            eventDate,
	}
}

func TestLedger_TransferRoundTrip(t *testing.T) {
	f := newLedgerFixture()
	f.seedBank("acc-a", 1000)
	f.seedBank("acc-b", 500)

	event, err := f.uc.Create(context.Background(), testActor, transferInput("acc-a", "acc-b", 200))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if got := f.balance(t, "acc-a"); got != "800" {
		t.Errorf("source balance = %s, want 800", got)
	}
	if got := f.balance(t, "acc-b"); got != "700" {
		t.Errorf("destination balance = %s, want 700", got)
	}

	if err := f.uc.Delete(context.Background(), testActor, event.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if got := f.balance(t, "acc-a"); got != "1000" {
		t.Errorf("source balance after delete = %s, want 1000", got)
	}
	if got := f.balance(t, "acc-b"); got != "500" {
		t.Errorf("destination balance after delete = %s, want 500", got)
	}

	if _, err := f.uc.Get(context.Background(), event.ID); !errors.Is(err, domain.ErrEventNotFound) {
		t.Errorf("event should be gone after delete, got %v", err)
	}
}

func TestLedger_CreditCardDebtAccumulation(t *testing.T) {
	f := newLedgerFixture()
	f.seedCard("card-c", 0, 10000)

	expense, err := f.uc.Create(context.Background(), testActor, usecase.EventInput{
		Kind:            domain.EventKindExpense,
		SourceAccountID: strPtr("card-c"),
		Amount:          decimal.NewFromInt(150),
		Currency:        "TRY",
		EventDate:       eventDate,
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}

	if got := f.balance(t, "card-c"); got != "150" {
		t.Errorf("debt after expense = %s, want 150", got)
	}

	_, err = f.uc.Create(context.Background(), testActor, usecase.EventInput{
		Kind:            domain.EventKindLoanPayment,
		SourceAccountID: strPtr("card-c"),
		Amount:          decimal.NewFromInt(150),
		Currency:        "TRY",
		EventDate:       eventDate,
	})
	if err != nil {
		t.Fatalf("create loan payment: %v", err)
	}

	if got := f.balance(t, "card-c"); got != "300" {
		t.Errorf("debt after loan payment = %s, want 300", got)
	}

	if err := f.uc.Delete(context.Background(), testActor, expense.ID); err != nil {
		t.Fatalf("delete expense: %v", err)
	}

	if got := f.balance(t, "card-c"); got != "150" {
		t.Errorf("debt after deleting expense = %s, want 150", got)
	}
}

func TestLedger_UpdateEqualsDeletePlusCreate(t *testing.T) {
	f := newLedgerFixture()
	f.seedBank("acc-a", 1000)
	f.seedBank("acc-b", 500)

	event, err := f.uc.Create(context.Background(), testActor, transferInput("acc-a", "acc-b", 200))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := f.uc.Update(context.Background(), testActor, event.ID, transferInput("acc-a", "acc-b", 300))
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if got := f.balance(t, "acc-a"); got != "700" {
		t.Errorf("source balance after update = %s, want 700", got)
	}
	if got := f.balance(t, "acc-b"); got != "800" {
		t.Errorf("destination balance after update = %s, want 800", got)
	}
	if !updated.Amount.Equal(decimal.NewFromInt(300)) {
		t.Errorf("updated amount = %s, want 300", updated.Amount)
	}

	// Same final state as delete + create.
	g := newLedgerFixture()
	g.seedBank("acc-a", 1000)
	g.seedBank("acc-b", 500)

	ev2, err := g.uc.Create(context.Background(), testActor, transferInput("acc-a", "acc-b", 200))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := g.uc.Delete(context.Background(), testActor, ev2.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := g.uc.Create(context.Background(), testActor, transferInput("acc-a", "acc-b", 300)); err != nil {
		t.Fatalf("re-create: %v", err)
	}

	if f.balance(t, "acc-a") != g.balance(t, "acc-a") || f.balance(t, "acc-b") != g.balance(t, "acc-b") {
		t.Errorf("update and delete+create diverged: update=(%s,%s) delete+create=(%s,%s)",
			f.balance(t, "acc-a"), f.balance(t, "acc-b"),
			g.balance(t, "acc-a"), g.balance(t, "acc-b"))
	}
}

func TestLedger_UpdateChangesKind(t *testing.T) {
	f := newLedgerFixture()
	f.seedBank("acc-a", 1000)

	event, err := f.uc.Create(context.Background(), testActor, usecase.EventInput{
		Kind:            domain.EventKindExpense,
		SourceAccountID: strPtr("acc-a"),
		Amount:          decimal.NewFromInt(100),
		Currency:        "TRY",
		EventDate:       eventDate,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if got := f.balance(t, "acc-a"); got != "900" {
		t.Errorf("balance after expense = %s, want 900", got)
	}

	// Revert uses the old kind's table, apply the new kind's table.
	_, err = f.uc.Update(context.Background(), testActor, event.ID, usecase.EventInput{
		Kind:                 domain.EventKindIncome,
		DestinationAccountID: strPtr("acc-a"),
		Amount:               decimal.NewFromInt(100),
		Currency:             "TRY",
		EventDate:            eventDate,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	if got := f.balance(t, "acc-a"); got != "1100" {
		t.Errorf("balance after kind change = %s, want 1100", got)
	}
}

func TestLedger_CreateValidation(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *ledgerFixture)
		input   usecase.EventInput
		wantErr error
	}{
		{
			name:    "unknown kind",
			input:   usecase.EventInput{Kind: "refund", Amount: decimal.NewFromInt(10), Currency: "TRY", EventDate: eventDate},
			wantErr: domain.ErrInvalidEventKind,
		},
		{
			name: "non-positive amount",
			input: usecase.EventInput{
				Kind: domain.EventKindExpense, SourceAccountID: strPtr("acc-a"),
				Amount: decimal.Zero, Currency: "TRY", EventDate: eventDate,
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "unknown currency",
			input: usecase.EventInput{
				Kind: domain.EventKindExpense, SourceAccountID: strPtr("acc-a"),
				Amount: decimal.NewFromInt(10), Currency: "DOGE", EventDate: eventDate,
			},
			wantErr: domain.ErrInvalidCurrency,
		},
		{
			name: "income without destination",
			input: usecase.EventInput{
				Kind: domain.EventKindIncome, Amount: decimal.NewFromInt(10),
				Currency: "TRY", EventDate: eventDate,
			},
			wantErr: domain.ErrMissingDestinationAccount,
		},
		{
			name: "expense without source",
			input: usecase.EventInput{
				Kind: domain.EventKindExpense, Amount: decimal.NewFromInt(10),
				Currency: "TRY", EventDate: eventDate,
			},
			wantErr: domain.ErrMissingSourceAccount,
		},
		{
			name:    "transfer to same account",
			input:   transferInput("acc-a", "acc-a", 10),
			wantErr: domain.ErrSameAccount,
		},
		{
			name:    "transfer with insufficient balance",
			setup:   func(f *ledgerFixture) { f.seedBank("acc-a", 50); f.seedBank("acc-b", 0) },
			input:   transferInput("acc-a", "acc-b", 100),
			wantErr: domain.ErrInsufficientBalance,
		},
		{
			name:  "transfer with missing account",
			setup: func(f *ledgerFixture) { f.seedBank("acc-a", 1000) },
			input: transferInput("acc-a", "acc-missing", 100),
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:  "installment on non-card source",
			setup: func(f *ledgerFixture) { f.seedBank("acc-a", 1000) },
			input: usecase.EventInput{
				Kind: domain.EventKindInstallment, SourceAccountID: strPtr("acc-a"),
				Amount: decimal.NewFromInt(100), Currency: "TRY", EventDate: eventDate,
			},
			wantErr: domain.ErrInstallmentNeedsCard,
		},
		{
			name:  "installment beyond available limit",
			setup: func(f *ledgerFixture) { f.seedCard("card-c", 900, 1000) },
			input: usecase.EventInput{
				Kind: domain.EventKindInstallment, SourceAccountID: strPtr("card-c"),
				Amount: decimal.NewFromInt(200), Currency: "TRY", EventDate: eventDate,
			},
			wantErr: domain.ErrInsufficientLimit,
		},
		{
			name: "inactive account",
			setup: func(f *ledgerFixture) {
				f.accountRepo.Seed(&domain.Account{
					ID: "acc-a", Kind: domain.AccountKindBank, Currency: "TRY",
					Balance: decimal.NewFromInt(1000), Active: false,
				})
			},
			input: usecase.EventInput{
				Kind: domain.EventKindExpense, SourceAccountID: strPtr("acc-a"),
				Amount: decimal.NewFromInt(10), Currency: "TRY", EventDate: eventDate,
			},
			wantErr: domain.ErrAccountNotUsable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLedgerFixture()
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := f.uc.Create(context.Background(), testActor, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLedger_TransactionContextCarriesDeadline(t *testing.T) {
	f := newLedgerFixture()
	f.seedBank("acc-a", 1000)
	f.seedBank("acc-b", 0)

	var hadDeadline bool
	f.txMgr.BeginFunc = func(ctx context.Context) (usecase.Transaction, error) {
		_, hadDeadline = ctx.Deadline()
		return &mocks.MockTransaction{}, nil
	}

	if _, err := f.uc.Create(context.Background(), testActor, transferInput("acc-a", "acc-b", 100)); err != nil {
		t.Fatalf("create: %v", err)
	}

	if !hadDeadline {
		t.Error("unit of work should run under a bounded context")
	}
}

func TestLedger_CreateNormalizesCurrency(t *testing.T) {
	f := newLedgerFixture()
	f.seedBank("acc-a", 1000)

	input := usecase.EventInput{
		Kind:            domain.EventKindExpense,
		SourceAccountID: strPtr("acc-a"),
		Amount:          decimal.NewFromInt(10),
		Currency:        "usd",
		EventDate:       eventDate,
	}

	event, err := f.uc.Create(context.Background(), testActor, input)
	if err != nil {
		t.Fatalf("lowercase currency should create after normalization: %v", err)
	}

	if event.Currency != "USD" {
		t.Errorf("persisted currency = %s, want USD", event.Currency)
	}

	// 10 USD at buy rate 34 against a TRY account.
	if got := f.balance(t, "acc-a"); got != "660" {
		t.Errorf("balance = %s, want 660", got)
	}
}

func TestLedger_CreateRollsBackOnApplyFailure(t *testing.T) {
	f := newLedgerFixture()
	f.seedBank("acc-a", 1000)

	f.accountRepo.UpdateBalanceFunc = func(ctx context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
		return errors.New("connection reset")
	}

	_, err := f.uc.Create(context.Background(), testActor, usecase.EventInput{
		Kind:            domain.EventKindExpense,
		SourceAccountID: strPtr("acc-a"),
		Amount:          decimal.NewFromInt(100),
		Currency:        "TRY",
		EventDate:       eventDate,
	})
	if err == nil {
		t.Fatal("expected error")
	}

	if len(f.txMgr.Transactions) == 0 {
		t.Fatal("no transaction started")
	}

	tx := f.txMgr.Transactions[len(f.txMgr.Transactions)-1]
	if tx.Committed {
		t.Error("transaction must not commit when the balance write fails")
	}
	if !tx.RolledBack {
		t.Error("transaction must roll back when the balance write fails")
	}
}

func TestLedger_InstallmentDerivedFields(t *testing.T) {
	f := newLedgerFixture()
	f.seedCard("card-c", 0, 10000)

	count := 6
	event, err := f.uc.Create(context.Background(), testActor, usecase.EventInput{
		Kind:             domain.EventKindInstallment,
		SourceAccountID:  strPtr("card-c"),
		Amount:           decimal.NewFromInt(601),
		Currency:         "TRY",
		EventDate:        eventDate,
		InstallmentCount: &count,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if event.InstallmentCount == nil || *event.InstallmentCount != 6 {
		t.Fatal("installment count not persisted")
	}
	if event.InstallmentsRemaining == nil || *event.InstallmentsRemaining != 6 {
		t.Fatal("installments remaining not initialized")
	}
	if event.MonthlyAmount == nil || event.MonthlyAmount.String() != "100.17" {
		t.Fatalf("monthly amount = %v, want 100.17", event.MonthlyAmount)
	}
}

func TestLedger_DeleteUnknownEvent(t *testing.T) {
	f := newLedgerFixture()

	err := f.uc.Delete(context.Background(), testActor, "nope")
	if !errors.Is(err, domain.ErrEventNotFound) {
		t.Errorf("expected ErrEventNotFound, got %v", err)
	}
}

func TestLedger_AuditAndOutboxWritten(t *testing.T) {
	f := newLedgerFixture()
	f.seedBank("acc-a", 1000)
	f.seedBank("acc-b", 500)

	event, err := f.uc.Create(context.Background(), testActor, transferInput("acc-a", "acc-b", 200))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if len(f.auditRepo.Logs) != 1 {
		t.Fatalf("audit logs = %d, want 1", len(f.auditRepo.Logs))
	}
	log := f.auditRepo.Logs[0]
	if log.ActorID != "user-1" || log.Action != string(domain.AuditActionEventCreate) || log.ResourceID != event.ID {
		t.Errorf("unexpected audit log: %+v", log)
	}

	// One ledger_event.created plus one balance_changed per account.
	if len(f.outboxRepo.Events) != 3 {
		t.Fatalf("outbox events = %d, want 3", len(f.outboxRepo.Events))
	}
}
