package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

type ledgerServiceFunc func(ctx context.Context, orgID string) (*usecase.ConsistencyReport, error)

func (f ledgerServiceFunc) CheckConsistency(ctx context.Context, orgID string) (*usecase.ConsistencyReport, error) {
	return f(ctx, orgID)
}

func TestLedgerHandler_CheckConsistency(t *testing.T) {
	var gotOrg string
	h := NewLedgerHandler(ledgerServiceFunc(func(ctx context.Context, orgID string) (*usecase.ConsistencyReport, error) {
		gotOrg = orgID
		return &usecase.ConsistencyReport{
			TotalDebit:  decimal.RequireFromString("100"),
			TotalCredit: decimal.RequireFromString("90"),
			Unbalanced:  []domain.UnbalancedEntry{{EntryID: "je-1"}},
		}, nil
	}))

	rec := httptest.NewRecorder()
	h.CheckConsistency(rec, newRequest(http.MethodGet, "/ledger/consistency", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testActor.OrganizationID, gotOrg)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["consistent"])
	assert.Len(t, body["unbalanced"], 1)
}

func TestLedgerHandler_CheckConsistencyErrors(t *testing.T) {
	h := NewLedgerHandler(ledgerServiceFunc(func(ctx context.Context, orgID string) (*usecase.ConsistencyReport, error) {
		return nil, errors.New("connection reset")
	}))

	rec := httptest.NewRecorder()
	h.CheckConsistency(rec, newRequest(http.MethodGet, "/ledger/consistency", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")

	rec = httptest.NewRecorder()
	h.CheckConsistency(rec, httptest.NewRequest(http.MethodGet, "/ledger/consistency", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
