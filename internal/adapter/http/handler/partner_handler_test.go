package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

type partnerServiceStub struct {
	createFn  func(ctx context.Context, actor domain.Actor, input usecase.PartnerInput) (*domain.BusinessPartner, error)
	updateFn  func(ctx context.Context, actor domain.Actor, id string, input usecase.UpdatePartnerInput) (*domain.BusinessPartner, error)
	deleteFn  func(ctx context.Context, actor domain.Actor, id string) error
	getFn     func(ctx context.Context, orgID, id string) (*domain.BusinessPartner, error)
	listFn    func(ctx context.Context, orgID string, filter domain.PartnerFilter) ([]*domain.BusinessPartner, error)
	optionsFn func(ctx context.Context, orgID, category string) ([]*domain.BusinessPartner, error)
	importFn  func(ctx context.Context, actor domain.Actor, rows []usecase.PartnerInput, mode domain.ImportMode) (*domain.ImportResult, error)
}

func (s *partnerServiceStub) CreatePartner(ctx context.Context, actor domain.Actor, input usecase.PartnerInput) (*domain.BusinessPartner, error) {
	return s.createFn(ctx, actor, input)
}

func (s *partnerServiceStub) UpdatePartner(ctx context.Context, actor domain.Actor, id string, input usecase.UpdatePartnerInput) (*domain.BusinessPartner, error) {
	return s.updateFn(ctx, actor, id, input)
}

func (s *partnerServiceStub) DeletePartner(ctx context.Context, actor domain.Actor, id string) error {
	return s.deleteFn(ctx, actor, id)
}

func (s *partnerServiceStub) GetPartner(ctx context.Context, orgID, id string) (*domain.BusinessPartner, error) {
	return s.getFn(ctx, orgID, id)
}

func (s *partnerServiceStub) ListPartners(ctx context.Context, orgID string, filter domain.PartnerFilter) ([]*domain.BusinessPartner, error) {
	return s.listFn(ctx, orgID, filter)
}

func (s *partnerServiceStub) Options(ctx context.Context, orgID, category string) ([]*domain.BusinessPartner, error) {
	return s.optionsFn(ctx, orgID, category)
}

func (s *partnerServiceStub) ImportPartners(ctx context.Context, actor domain.Actor, rows []usecase.PartnerInput, mode domain.ImportMode) (*domain.ImportResult, error) {
	return s.importFn(ctx, actor, rows, mode)
}

func partnerRouter(h *PartnerHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/partners", h.List)
	r.Post("/partners", h.Create)
	r.Get("/partners/options", h.Options)
	r.Post("/partners/import", h.Import)
	r.Get("/partners/{id}", h.Get)
	r.Put("/partners/{id}", h.Update)
	r.Delete("/partners/{id}", h.Delete)
	return r
}

func TestPartnerHandler_Create(t *testing.T) {
	var captured usecase.PartnerInput
	handler := NewPartnerHandler(&partnerServiceStub{
		createFn: func(ctx context.Context, actor domain.Actor, input usecase.PartnerInput) (*domain.BusinessPartner, error) {
			captured = input
			return &domain.BusinessPartner{ID: "bp-1", Code: input.Code, Name: input.Name, NormalBalance: input.NormalBalance, IsActive: true}, nil
		},
	})

	rec := httptest.NewRecorder()
	partnerRouter(handler).ServeHTTP(rec, newRequest(http.MethodPost, "/partners", dto.PartnerRequest{
		Code:          "S-01",
		Name:          "Supplier",
		Category:      "supplier",
		NormalBalance: "credit",
	}))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if captured.NormalBalance != domain.SideCredit || captured.Category != "supplier" {
		t.Fatalf("unexpected input %+v", captured)
	}

	var resp dto.PartnerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID != "bp-1" || resp.NormalBalance != "credit" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestPartnerHandler_CreateValidation(t *testing.T) {
	handler := NewPartnerHandler(&partnerServiceStub{})

	rec := httptest.NewRecorder()
	partnerRouter(handler).ServeHTTP(rec, newRequest(http.MethodPost, "/partners", dto.PartnerRequest{
		Code: "S-01",
		Name: "Supplier",
	}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without normal balance, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Error != "validation_failed" {
		t.Fatalf("unexpected error code %q", resp.Error)
	}
}

func TestPartnerHandler_UpdateImmutableCode(t *testing.T) {
	handler := NewPartnerHandler(&partnerServiceStub{
		updateFn: func(ctx context.Context, actor domain.Actor, id string, input usecase.UpdatePartnerInput) (*domain.BusinessPartner, error) {
			return nil, domain.ErrImmutableField
		},
	})

	code := "X"
	rec := httptest.NewRecorder()
	partnerRouter(handler).ServeHTTP(rec, newRequest(http.MethodPut, "/partners/bp-1", dto.UpdatePartnerRequest{Code: &code}))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPartnerHandler_DeleteAndGet(t *testing.T) {
	handler := NewPartnerHandler(&partnerServiceStub{
		deleteFn: func(ctx context.Context, actor domain.Actor, id string) error {
			if id != "bp-1" {
				t.Fatalf("unexpected id %s", id)
			}
			return nil
		},
		getFn: func(ctx context.Context, orgID, id string) (*domain.BusinessPartner, error) {
			return nil, domain.ErrPartnerNotFound
		},
	})
	router := partnerRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodDelete, "/partners/bp-1", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodGet, "/partners/bp-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestPartnerHandler_ListAndOptions(t *testing.T) {
	var filter domain.PartnerFilter
	var category string
	handler := NewPartnerHandler(&partnerServiceStub{
		listFn: func(ctx context.Context, orgID string, f domain.PartnerFilter) ([]*domain.BusinessPartner, error) {
			filter = f
			return []*domain.BusinessPartner{{ID: "bp-1", Code: "C-1", Name: "Acme"}}, nil
		},
		optionsFn: func(ctx context.Context, orgID, c string) ([]*domain.BusinessPartner, error) {
			category = c
			return []*domain.BusinessPartner{{ID: "bp-1", Code: "C-1", Name: "Acme"}}, nil
		},
	})
	router := partnerRouter(handler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodGet, "/partners?category=customer&q=ac&include_inactive=true&limit=10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if filter.Category != "customer" || filter.Search != "ac" || !filter.IncludeInactive || filter.Limit != 10 {
		t.Fatalf("unexpected filter %+v", filter)
	}

	var list dto.ListPartnersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Total != 1 || list.Partners[0].Code != "C-1" {
		t.Fatalf("unexpected list %+v", list)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodGet, "/partners/options?category=customer", nil))
	if rec.Code != http.StatusOK || category != "customer" {
		t.Fatalf("expected options for customer, got %d / %q", rec.Code, category)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodGet, "/partners?include_inactive=maybe", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad boolean, got %d", rec.Code)
	}
}

func TestPartnerHandler_Import(t *testing.T) {
	var gotMode domain.ImportMode
	var gotRows []usecase.PartnerInput
	handler := NewPartnerHandler(&partnerServiceStub{
		importFn: func(ctx context.Context, actor domain.Actor, rows []usecase.PartnerInput, mode domain.ImportMode) (*domain.ImportResult, error) {
			gotMode, gotRows = mode, rows
			return &domain.ImportResult{Inserted: len(rows)}, nil
		},
	})
	router := partnerRouter(handler)

	body := dto.ImportPartnersRequest{Partners: []dto.PartnerRequest{
		{Code: "C-1", Name: "Acme", NormalBalance: "debit"},
		{Code: "S-1", Name: "Bolt", NormalBalance: "credit"},
	}}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodPost, "/partners/import?mode=insert_only", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotMode != domain.ImportModeInsertOnly || len(gotRows) != 2 {
		t.Fatalf("unexpected mode %q rows %d", gotMode, len(gotRows))
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, newRequest(http.MethodPost, "/partners/import?mode=replace", body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown mode, got %d", rec.Code)
	}
}
