package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gobooks/internal/adapter/http/dto"
	"github.com/iho/gobooks/internal/adapter/http/middleware"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

type journalServiceStub struct {
	createFn  func(ctx context.Context, actor domain.Actor, input usecase.CreateEntryInput) (*domain.JournalEntry, error)
	postFn    func(ctx context.Context, actor domain.Actor, id, key string) (*usecase.PostResult, error)
	reverseFn func(ctx context.Context, actor domain.Actor, id string, input usecase.ReverseEntryInput) (*domain.JournalEntry, error)
	listFn    func(ctx context.Context, orgID string, filter domain.EntryFilter) ([]*domain.JournalEntry, error)
}

func (s *journalServiceStub) CreateEntry(ctx context.Context, actor domain.Actor, input usecase.CreateEntryInput) (*domain.JournalEntry, error) {
	return s.createFn(ctx, actor, input)
}

func (s *journalServiceStub) UpdateEntry(ctx context.Context, actor domain.Actor, id string, input usecase.UpdateEntryInput) (*domain.JournalEntry, error) {
	return nil, domain.ErrInvalidState
}

func (s *journalServiceStub) GetEntry(ctx context.Context, orgID, id string) (*domain.JournalEntry, error) {
	return nil, domain.ErrEntryNotFound
}

func (s *journalServiceStub) ListEntries(ctx context.Context, orgID string, filter domain.EntryFilter) ([]*domain.JournalEntry, error) {
	return s.listFn(ctx, orgID, filter)
}

func (s *journalServiceStub) PostEntry(ctx context.Context, actor domain.Actor, id, key string) (*usecase.PostResult, error) {
	return s.postFn(ctx, actor, id, key)
}

func (s *journalServiceStub) ReverseEntry(ctx context.Context, actor domain.Actor, id string, input usecase.ReverseEntryInput) (*domain.JournalEntry, error) {
	return s.reverseFn(ctx, actor, id, input)
}

func (s *journalServiceStub) VoidEntry(ctx context.Context, actor domain.Actor, id string) (*domain.JournalEntry, error) {
	return nil, domain.ErrInvalidState
}

func (s *journalServiceStub) CreateOpeningBalance(ctx context.Context, actor domain.Actor, input usecase.OpeningBalanceInput) (*domain.JournalEntry, error) {
	return nil, domain.ErrAlreadyOpened
}

func journalRouter(h *JournalHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/journals", h.List)
	r.Post("/journals", h.Create)
	r.Post("/journals/opening", h.Opening)
	r.Get("/journals/{id}", h.Get)
	r.Put("/journals/{id}", h.Update)
	r.Post("/journals/{id}/post", h.Post)
	r.Post("/journals/{id}/reverse", h.Reverse)
	r.Post("/journals/{id}/void", h.Void)
	return r
}

func TestJournalHandler_Create(t *testing.T) {
	var captured usecase.CreateEntryInput
	h := NewJournalHandler(&journalServiceStub{
		createFn: func(ctx context.Context, actor domain.Actor, input usecase.CreateEntryInput) (*domain.JournalEntry, error) {
			captured = input
			return &domain.JournalEntry{ID: "je-1", Status: domain.EntryStatusDraft, Date: input.Date}, nil
		},
	})

	rec := httptest.NewRecorder()
	journalRouter(h).ServeHTTP(rec, newRequest(http.MethodPost, "/journals", dto.CreateJournalRequest{
		Date: "2025-05-02",
		Memo: "rent",
		Lines: []dto.JournalLineRequest{
			{AccountID: "6100", Debit: decimal.NewFromInt(1200)},
			{AccountID: "1100", Credit: decimal.NewFromInt(1200)},
		},
	}))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC), captured.Date)
	assert.Len(t, captured.Lines, 2)

	var entry domain.JournalEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, "je-1", entry.ID)
	assert.Equal(t, domain.EntryStatusDraft, entry.Status)
}

func TestJournalHandler_Post_RequiresKey(t *testing.T) {
	h := NewJournalHandler(&journalServiceStub{
		postFn: func(ctx context.Context, actor domain.Actor, id, key string) (*usecase.PostResult, error) {
			t.Fatalf("service should not be called without a key")
			return nil, nil
		},
	})

	rec := httptest.NewRecorder()
	journalRouter(h).ServeHTTP(rec, newRequest(http.MethodPost, "/journals/je-1/post", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJournalHandler_Post_WritesStoredBody(t *testing.T) {
	body := []byte(`{"id":"je-1","status":"posted"}`)

	for _, replayed := range []bool{false, true} {
		h := NewJournalHandler(&journalServiceStub{
			postFn: func(ctx context.Context, actor domain.Actor, id, key string) (*usecase.PostResult, error) {
				assert.Equal(t, "je-1", id)
				assert.Equal(t, "key-1", key)
				return &usecase.PostResult{Body: body, Replayed: replayed}, nil
			},
		})

		req := newRequest(http.MethodPost, "/journals/je-1/post", nil)
		req.Header.Set(middleware.IdempotencyKeyHeader, "key-1")
		rec := httptest.NewRecorder()
		journalRouter(h).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, string(body), rec.Body.String())
		if replayed {
			assert.Equal(t, "true", rec.Header().Get(middleware.IdempotencyReplayHeader))
		} else {
			assert.Empty(t, rec.Header().Get(middleware.IdempotencyReplayHeader))
		}
	}
}

func TestJournalHandler_Post_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unbalanced", domain.ErrUnbalanced, http.StatusUnprocessableEntity, "unbalanced"},
		{"period closed", domain.ErrPeriodClosed, http.StatusConflict, "period_closed"},
		{"in flight", domain.ErrConcurrentRequest, http.StatusConflict, "concurrent_request"},
		{"key reused", domain.ErrIdempotencyKeyReused, http.StatusUnprocessableEntity, "idempotency_key_reused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewJournalHandler(&journalServiceStub{
				postFn: func(ctx context.Context, actor domain.Actor, id, key string) (*usecase.PostResult, error) {
					return nil, tt.err
				},
			})

			req := newRequest(http.MethodPost, "/journals/je-1/post", nil)
			req.Header.Set(middleware.IdempotencyKeyHeader, "key-1")
			rec := httptest.NewRecorder()
			journalRouter(h).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rec).Error)
		})
	}
}

func TestJournalHandler_Reverse_EmptyBody(t *testing.T) {
	var captured usecase.ReverseEntryInput
	h := NewJournalHandler(&journalServiceStub{
		reverseFn: func(ctx context.Context, actor domain.Actor, id string, input usecase.ReverseEntryInput) (*domain.JournalEntry, error) {
			captured = input
			orig := id
			return &domain.JournalEntry{ID: "je-2", ReversalOfID: &orig}, nil
		},
	})

	req := newRequest(http.MethodPost, "/journals/je-1/reverse", nil)
	req.ContentLength = 0
	rec := httptest.NewRecorder()
	journalRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Nil(t, captured.Date)
	assert.Nil(t, captured.Memo)
}

func TestJournalHandler_List_Filter(t *testing.T) {
	var captured domain.EntryFilter
	h := NewJournalHandler(&journalServiceStub{
		listFn: func(ctx context.Context, orgID string, filter domain.EntryFilter) ([]*domain.JournalEntry, error) {
			captured = filter
			return nil, nil
		},
	})

	rec := httptest.NewRecorder()
	journalRouter(h).ServeHTTP(rec, newRequest(http.MethodGet, "/journals?from=2025-01-01&status=posted&entry_type=regular", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured.From)
	assert.Nil(t, captured.To)
	assert.Equal(t, domain.EntryStatusPosted, captured.Status)
	require.NotNil(t, captured.EntryType)
	assert.Equal(t, domain.EntryTypeRegular, *captured.EntryType)

	rec = httptest.NewRecorder()
	journalRouter(h).ServeHTTP(rec, newRequest(http.MethodGet, "/journals?from=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJournalHandler_GetAndVoidErrors(t *testing.T) {
	h := NewJournalHandler(&journalServiceStub{})

	rec := httptest.NewRecorder()
	journalRouter(h).ServeHTTP(rec, newRequest(http.MethodGet, "/journals/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	journalRouter(h).ServeHTTP(rec, newRequest(http.MethodPost, "/journals/je-1/void", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
