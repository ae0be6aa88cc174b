package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/adapter/http/middleware"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// JournalService defines the behavior needed by JournalHandler.
type JournalService interface {
	CreateEntry(ctx context.Context, actor domain.Actor, input usecase.CreateEntryInput) (*domain.JournalEntry, error)
	UpdateEntry(ctx context.Context, actor domain.Actor, id string, input usecase.UpdateEntryInput) (*domain.JournalEntry, error)
	GetEntry(ctx context.Context, orgID, id string) (*domain.JournalEntry, error)
	ListEntries(ctx context.Context, orgID string, filter domain.EntryFilter) ([]*domain.JournalEntry, error)
	PostEntry(ctx context.Context, actor domain.Actor, id, idempotencyKey string) (*usecase.PostResult, error)
	ReverseEntry(ctx context.Context, actor domain.Actor, id string, input usecase.ReverseEntryInput) (*domain.JournalEntry, error)
	VoidEntry(ctx context.Context, actor domain.Actor, id string) (*domain.JournalEntry, error)
	CreateOpeningBalance(ctx context.Context, actor domain.Actor, input usecase.OpeningBalanceInput) (*domain.JournalEntry, error)
}

// JournalHandler handles journal entry HTTP requests.
type JournalHandler struct {
	journalUC JournalService
}

// NewJournalHandler creates a new JournalHandler.
func NewJournalHandler(journalUC JournalService) *JournalHandler {
	return &JournalHandler{journalUC: journalUC}
}

// Create drafts a journal entry.
func (h *JournalHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.CreateJournalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	entry, err := h.journalUC.CreateEntry(r.Context(), actor, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// Update edits a draft entry.
func (h *JournalHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.UpdateJournalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	entry, err := h.journalUC.UpdateEntry(r.Context(), actor, chi.URLParam(r, "id"), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// Get retrieves an entry with its lines.
func (h *JournalHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	entry, err := h.journalUC.GetEntry(r.Context(), actor.OrganizationID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// List lists entries, newest first.
func (h *JournalHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	from, err := parseOptionalDateQuery(r, "from")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	to, err := parseOptionalDateQuery(r, "to")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	q := r.URL.Query()
	limit, offset := parsePage(r)
	filter := domain.EntryFilter{
		From:   from,
		To:     to,
		Status: domain.EntryStatus(q.Get("status")),
		Search: q.Get("q"),
		Limit:  limit,
		Offset: offset,
	}
	if t := q.Get("entry_type"); t != "" {
		entryType := domain.EntryType(t)
		if t == "regular" {
			entryType = domain.EntryTypeRegular
		}
		filter.EntryType = &entryType
	}

	entries, err := h.journalUC.ListEntries(r.Context(), actor.OrganizationID, filter)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListJournalsResponse{
		Journals: entries,
		Total:    int64(len(entries)),
	})
}

// Post posts a draft entry. Repeating the call with the same
// Idempotency-Key returns the stored response unchanged.
func (h *JournalHandler) Post(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	key := r.Header.Get(middleware.IdempotencyKeyHeader)
	if key == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Idempotency-Key header is required")
		return
	}

	result, err := h.journalUC.PostEntry(r.Context(), actor, chi.URLParam(r, "id"), key)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if result.Replayed {
		w.Header().Set(middleware.IdempotencyReplayHeader, "true")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Body)
}

// Reverse writes the mirror image of a posted entry.
func (h *JournalHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.ReverseJournalRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	entry, err := h.journalUC.ReverseEntry(r.Context(), actor, chi.URLParam(r, "id"), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// Void discards a draft entry.
func (h *JournalHandler) Void(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	entry, err := h.journalUC.VoidEntry(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// Opening posts a manual opening balance entry.
func (h *JournalHandler) Opening(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	var req dto.OpeningBalanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeDomainError(w, r, err)
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	entry, err := h.journalUC.CreateOpeningBalance(r.Context(), actor, input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}
