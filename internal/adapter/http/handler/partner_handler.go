package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// PartnerService defines the behavior needed by PartnerHandler.
type PartnerService interface {
	CreatePartner(ctx context.Context, actor domain.Actor, input usecase.PartnerInput) (*domain.BusinessPartner, error)
	UpdatePartner(ctx context.Context, actor domain.Actor, id string, input usecase.UpdatePartnerInput) (*domain.BusinessPartner, error)
	DeletePartner(ctx context.Context, actor domain.Actor, id string) error
	GetPartner(ctx context.Context, orgID, id string) (*domain.BusinessPartner, error)
	ListPartners(ctx context.Context, orgID string, filter domain.PartnerFilter) ([]*domain.BusinessPartner, error)
	Options(ctx context.Context, orgID, category string) ([]*domain.BusinessPartner, error)
	ImportPartners(ctx context.Context, actor domain.Actor, rows []usecase.PartnerInput, mode domain.ImportMode) (*domain.ImportResult, error)
}

// PartnerHandler handles business partner HTTP requests.
type PartnerHandler struct {
	partnerUC PartnerService
}

// NewPartnerHandler creates a new PartnerHandler.
func NewPartnerHandler(partnerUC PartnerService) *PartnerHandler {
	return &PartnerHandler{partnerUC: partnerUC}
}

func (h *PartnerHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.PartnerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	partner, err := h.partnerUC.CreatePartner(r.Context(), actor, req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.PartnerFromDomain(partner))
}

func (h *PartnerHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.UpdatePartnerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	partner, err := h.partnerUC.UpdatePartner(r.Context(), actor, chi.URLParam(r, "id"), req.ToUseCaseInput())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PartnerFromDomain(partner))
}

func (h *PartnerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	if err := h.partnerUC.DeletePartner(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PartnerHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	partner, err := h.partnerUC.GetPartner(r.Context(), actor.OrganizationID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PartnerFromDomain(partner))
}

func (h *PartnerHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	inactive, err := parseBoolQuery(r, "include_inactive")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	limit, offset := parsePage(r)
	q := r.URL.Query()

	partners, err := h.partnerUC.ListPartners(r.Context(), actor.OrganizationID, domain.PartnerFilter{
		Category:        q.Get("category"),
		Search:          q.Get("q"),
		IncludeInactive: inactive,
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListPartnersResponse{
		Partners: dto.PartnersFromDomain(partners),
		Total:    int64(len(partners)),
	})
}

func (h *PartnerHandler) Options(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	partners, err := h.partnerUC.Options(r.Context(), actor.OrganizationID, r.URL.Query().Get("category"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PartnerOptionsFromDomain(partners))
}

func (h *PartnerHandler) Import(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	mode, err := parseImportMode(r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var req dto.ImportPartnersRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := h.partnerUC.ImportPartners(r.Context(), actor, req.ToUseCaseInput(), mode)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
