package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	CreateAccount(ctx context.Context, actor domain.Actor, input usecase.CreateAccountInput) (*domain.Account, error)
	UpdateAccount(ctx context.Context, actor domain.Actor, id string, input usecase.UpdateAccountInput) (*domain.Account, error)
	DeleteAccount(ctx context.Context, actor domain.Actor, id string) error
	GetAccount(ctx context.Context, orgID, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context, orgID string, filter domain.AccountFilter) ([]*domain.Account, error)
	Options(ctx context.Context, orgID string, includeHeaders bool) ([]*domain.Account, error)
	ImportAccounts(ctx context.Context, actor domain.Actor, rows []usecase.AccountImportRow, mode domain.ImportMode) (*domain.ImportResult, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// Create creates a new account.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.CreateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	account, err := h.accountUC.CreateAccount(r.Context(), actor, req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AccountFromDomain(account))
}

// Update applies a partial update to an account.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.UpdateAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	account, err := h.accountUC.UpdateAccount(r.Context(), actor, chi.URLParam(r, "id"), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Delete soft-deletes an account.
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	if err := h.accountUC.DeleteAccount(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), actor.OrganizationID, id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	postable, err := parseBoolQuery(r, "postable")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	inactive, err := parseBoolQuery(r, "include_inactive")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	limit, offset := parsePage(r)
	q := r.URL.Query()

	accounts, err := h.accountUC.ListAccounts(r.Context(), actor.OrganizationID, domain.AccountFilter{
		Type:            domain.AccountType(q.Get("type")),
		Search:          q.Get("q"),
		ParentID:        q.Get("parent_id"),
		PostableOnly:    postable,
		IncludeInactive: inactive,
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		Accounts: dto.AccountsFromDomain(accounts),
		Total:    int64(len(accounts)),
	})
}

// Options lists active accounts as code/name pairs.
func (h *AccountHandler) Options(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	headers, err := parseBoolQuery(r, "include_headers")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	accounts, err := h.accountUC.Options(r.Context(), actor.OrganizationID, headers)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountOptionsFromDomain(accounts))
}

// Import inserts or updates accounts by code.
func (h *AccountHandler) Import(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	mode, err := parseImportMode(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req dto.ImportAccountsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := h.accountUC.ImportAccounts(r.Context(), actor, req.ToUseCaseInput(), mode)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
