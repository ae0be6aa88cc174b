package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// PeriodService defines the behavior needed by PeriodHandler.
type PeriodService interface {
	Create(ctx context.Context, actor domain.Actor, input usecase.CreatePeriodLockInput) (*domain.PeriodLock, error)
	Close(ctx context.Context, actor domain.Actor, id string) (*domain.PeriodLock, error)
	Reopen(ctx context.Context, actor domain.Actor, id string) (*domain.PeriodLock, error)
	List(ctx context.Context, orgID string) ([]*domain.PeriodLock, error)
}

// PeriodHandler handles period lock HTTP requests.
type PeriodHandler struct {
	periodUC PeriodService
}

// NewPeriodHandler creates a new PeriodHandler.
func NewPeriodHandler(periodUC PeriodService) *PeriodHandler {
	return &PeriodHandler{periodUC: periodUC}
}

// List lists the organization's period locks.
func (h *PeriodHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	locks, err := h.periodUC.List(r.Context(), actor.OrganizationID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PeriodLocksFromDomain(locks))
}

// Create declares a period lock.
func (h *PeriodHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.CreatePeriodLockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	lock, err := h.periodUC.Create(r.Context(), actor, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PeriodLockFromDomain(lock))
}

// Close closes a period lock.
func (h *PeriodHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.periodUC.Close)
}

// Reopen reopens a period lock.
func (h *PeriodHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.periodUC.Reopen)
}

func (h *PeriodHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, domain.Actor, string) (*domain.PeriodLock, error)) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	lock, err := fn(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PeriodLockFromDomain(lock))
}
