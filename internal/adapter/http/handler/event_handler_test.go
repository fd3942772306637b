package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/finova/ledger/internal/adapter/http/dto"
	"github.com/finova/ledger/internal/domain"
	"github.com/finova/ledger/internal/usecase"
)

type ledgerServiceStub struct {
	createFn func(ctx context.Context, actor domain.Actor, input usecase.EventInput) (*domain.FinancialEvent, error)
	updateFn func(ctx context.Context, actor domain.Actor, id string, input usecase.EventInput) (*domain.FinancialEvent, error)
	deleteFn func(ctx context.Context, actor domain.Actor, id string) error
	getFn    func(ctx context.Context, id string) (*domain.FinancialEvent, error)
	listFn   func(ctx context.Context, accountID string, limit, offset int) ([]*domain.FinancialEvent, error)
}

func (s *ledgerServiceStub) Create(ctx context.Context, actor domain.Actor, input usecase.EventInput) (*domain.FinancialEvent, error) {
	return s.createFn(ctx, actor, input)
}

func (s *ledgerServiceStub) Update(ctx context.Context, actor domain.Actor, id string, input usecase.EventInput) (*domain.FinancialEvent, error) {
	return s.updateFn(ctx, actor, id, input)
}

func (s *ledgerServiceStub) Delete(ctx context.Context, actor domain.Actor, id string) error {
	return s.deleteFn(ctx, actor, id)
}

func (s *ledgerServiceStub) Get(ctx context.Context, id string) (*domain.FinancialEvent, error) {
	return s.getFn(ctx, id)
}

func (s *ledgerServiceStub) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.FinancialEvent, error) {
	return s.listFn(ctx, accountID, limit, offset)
}

func TestEventHandler_Create_Success(t *testing.T) {
	src := "acc-1"
	event := &domain.FinancialEvent{ID: "ev-1", Kind: domain.EventKindExpense, SourceAccountID: &src, Amount: decimal.NewFromInt(100)}

	var capturedInput usecase.EventInput
	var capturedActor domain.Actor

	handler := NewEventHandler(&ledgerServiceStub{
		createFn: func(ctx context.Context, actor domain.Actor, input usecase.EventInput) (*domain.FinancialEvent, error) {
			capturedActor = actor
			capturedInput = input
			return event, nil
		},
	})

	body, _ := json.Marshal(dto.EventRequest{
		Kind:            "expense",
		SourceAccountID: &src,
		Amount:          decimal.NewFromInt(100),
		Currency:        "TRY",
	})

	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewReader(body))
	req.Header.Set(ActorIDHeader, "user-1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	if capturedInput.Kind != domain.EventKindExpense || *capturedInput.SourceAccountID != "acc-1" {
		t.Fatalf("expected input to match request, got %+v", capturedInput)
	}

	if capturedActor.ID != "user-1" {
		t.Fatalf("expected actor from header, got %+v", capturedActor)
	}

	var resp dto.EventResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "ev-1" {
		t.Fatalf("expected event ID ev-1, got %s", resp.ID)
	}
}

func TestEventHandler_Create_AnonymousActorIsSystem(t *testing.T) {
	var capturedActor domain.Actor

	handler := NewEventHandler(&ledgerServiceStub{
		createFn: func(ctx context.Context, actor domain.Actor, input usecase.EventInput) (*domain.FinancialEvent, error) {
			capturedActor = actor
			return &domain.FinancialEvent{ID: "ev-1"}, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(`{"kind":"income","amount":"1","currency":"TRY"}`))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if capturedActor.ID != domain.System.ID {
		t.Fatalf("expected system actor, got %q", capturedActor.ID)
	}
}

func TestEventHandler_Create_InvalidBody(t *testing.T) {
	handler := NewEventHandler(&ledgerServiceStub{
		createFn: func(ctx context.Context, actor domain.Actor, input usecase.EventInput) (*domain.FinancialEvent, error) {
			t.Fatal("Create should not be called")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString("{bad json"))
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEventHandler_Create_DomainErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"insufficient balance", domain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{"account not found", domain.ErrAccountNotFound, http.StatusNotFound},
		{"same account", domain.ErrSameAccount, http.StatusBadRequest},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewEventHandler(&ledgerServiceStub{
				createFn: func(ctx context.Context, actor domain.Actor, input usecase.EventInput) (*domain.FinancialEvent, error) {
					return nil, tt.err
				},
			})

			req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(`{"kind":"expense","amount":"1","currency":"TRY"}`))
			rec := httptest.NewRecorder()

			handler.Create(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestEventHandler_Delete_Success(t *testing.T) {
	var deletedID string

	handler := NewEventHandler(&ledgerServiceStub{
		deleteFn: func(ctx context.Context, actor domain.Actor, id string) error {
			deletedID = id
			return nil
		},
	})

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/events/ev-1", nil), "id", "ev-1")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if deletedID != "ev-1" {
		t.Fatalf("expected delete of ev-1, got %q", deletedID)
	}
}

func TestEventHandler_Get_NotFound(t *testing.T) {
	handler := NewEventHandler(&ledgerServiceStub{
		getFn: func(ctx context.Context, id string) (*domain.FinancialEvent, error) {
			return nil, domain.ErrEventNotFound
		},
	})

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/events/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
