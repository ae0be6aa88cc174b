package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// ClosingService defines the behavior needed by ClosingHandler.
type ClosingService interface {
	GetYearEndStatus(ctx context.Context, orgID string, year int) (*usecase.YearEndStatus, error)
	RunYearEndClosing(ctx context.Context, actor domain.Actor, input usecase.YearEndClosingInput) (*usecase.ClosingResult, error)
}

// ClosingHandler handles year-end closing HTTP requests.
type ClosingHandler struct {
	closingUC ClosingService
}

// NewClosingHandler creates a new ClosingHandler.
func NewClosingHandler(closingUC ClosingService) *ClosingHandler {
	return &ClosingHandler{closingUC: closingUC}
}

// Status reports whether the year is closed and the next one opened.
func (h *ClosingHandler) Status(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	year, err := yearParam(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	status, err := h.closingUC.GetYearEndStatus(r.Context(), actor.OrganizationID, year)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Run closes the year's profit and loss accounts into retained earnings.
func (h *ClosingHandler) Run(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	year, err := yearParam(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req dto.YearEndClosingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	input, err := req.ToUseCaseInput(year)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := h.closingUC.RunYearEndClosing(r.Context(), actor, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func yearParam(r *http.Request) (int, error) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		return 0, fmt.Errorf("%w: year must be a number", domain.ErrValidation)
	}
	return year, nil
}
