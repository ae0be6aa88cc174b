package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/report"
	"github.com/iho/gobooks/internal/usecase"
)

// ReportService defines the behavior needed by ReportHandler.
type ReportService interface {
	TrialBalance(ctx context.Context, orgID string, p usecase.TrialBalanceParams) (*report.TrialBalance, error)
	IncomeStatement(ctx context.Context, orgID string, p usecase.IncomeStatementParams) (*report.IncomeStatement, error)
	BalanceSheet(ctx context.Context, orgID string, p usecase.BalanceSheetParams) (*report.BalanceSheet, error)
	CashFlow(ctx context.Context, orgID string, p usecase.CashFlowParams) (*report.CashFlow, error)
	EquityStatement(ctx context.Context, orgID string, p usecase.EquityStatementParams) (*report.EquityStatement, error)
	Worksheet(ctx context.Context, orgID string, p usecase.WorksheetParams) (*report.Worksheet, error)
	Subledger(ctx context.Context, orgID string, p usecase.SubledgerParams) (*report.Subledger, error)
	SubledgerDetail(ctx context.Context, orgID string, p usecase.LedgerParams) (*report.Ledger, error)
	AccountLedger(ctx context.Context, orgID string, p usecase.LedgerParams) (*report.Ledger, error)
	Chart(ctx context.Context, orgID string, p usecase.ChartParams) (*report.Chart, error)
}

// ReportHandler handles financial report HTTP requests. Missing "to" and
// "as_of" default to today and a missing "from" to January 1st of "to".
type ReportHandler struct {
	reportUC ReportService
	now      func() time.Time
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportUC ReportService) *ReportHandler {
	return &ReportHandler{reportUC: reportUC, now: time.Now}
}

// WithNow overrides the clock used for default dates.
func (h *ReportHandler) WithNow(now func() time.Time) *ReportHandler {
	h.now = now
	return h
}

func (h *ReportHandler) dateRange(r *http.Request) (from, to time.Time, err error) {
	to, err = parseDateQuery(r, "to", domain.NormalizeDate(h.now()))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from, err = parseDateQuery(r, "from", domain.YearStart(to))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// serve resolves the actor, runs build and writes its result.
func serve[T any](w http.ResponseWriter, r *http.Request, build func(orgID string) (T, error)) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	result, err := build(actor.OrganizationID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// TrialBalance serves GET /reports/trial-balance.
func (h *ReportHandler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(orgID string) (*report.TrialBalance, error) {
		from, to, err := h.dateRange(r)
		if err != nil {
			return nil, err
		}
		zero, err := parseBoolQuery(r, "include_zero")
		if err != nil {
			return nil, err
		}
		header, err := parseBoolQuery(r, "include_header")
		if err != nil {
			return nil, err
		}
		grouping, err := report.ParseGrouping(r.URL.Query().Get("grouping"))
		if err != nil {
			return nil, err
		}
		return h.reportUC.TrialBalance(r.Context(), orgID, usecase.TrialBalanceParams{
			From: from, To: to, IncludeZero: zero, IncludeHeader: header, Grouping: grouping,
		})
	})
}

// IncomeStatement serves GET /reports/income-statement.
func (h *ReportHandler) IncomeStatement(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(orgID string) (*report.IncomeStatement, error) {
		from, to, err := h.dateRange(r)
		if err != nil {
			return nil, err
		}
		taxRate, err := parseDecimalQuery(r, "tax_rate")
		if err != nil {
			return nil, err
		}
		codeRule, err := parseBoolQuery(r, "code_rule")
		if err != nil {
			return nil, err
		}
		return h.reportUC.IncomeStatement(r.Context(), orgID, usecase.IncomeStatementParams{
			From: from, To: to, TaxRate: taxRate, UseCodeRule: codeRule, ExcludedCodes: splitQuery(r, "exclude"),
		})
	})
}

// BalanceSheet serves GET /reports/balance-sheet.
func (h *ReportHandler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(orgID string) (*report.BalanceSheet, error) {
		asOf, err := parseDateQuery(r, "as_of", domain.NormalizeDate(h.now()))
		if err != nil {
			return nil, err
		}
		basis, err := report.ParseProfitBasis(r.URL.Query().Get("profit_basis"))
		if err != nil {
			return nil, err
		}
		taxRate, err := parseDecimalQuery(r, "tax_rate")
		if err != nil {
			return nil, err
		}
		codeRule, err := parseBoolQuery(r, "code_rule")
		if err != nil {
			return nil, err
		}
		zero, err := parseBoolQuery(r, "include_zero")
		if err != nil {
			return nil, err
		}
		return h.reportUC.BalanceSheet(r.Context(), orgID, usecase.BalanceSheetParams{
			AsOf: asOf, ProfitBasis: basis, TaxRate: taxRate, UseCodeRule: codeRule, IncludeZero: zero,
		})
	})
}

// CashFlow serves GET /reports/cash-flow.
func (h *ReportHandler) CashFlow(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(orgID string) (*report.CashFlow, error) {
		from, to, err := h.dateRange(r)
		if err != nil {
			return nil, err
		}
		return h.reportUC.CashFlow(r.Context(), orgID, usecase.CashFlowParams{
			From:           from,
			To:             to,
			CashAccountIDs: splitQuery(r, "cash_accounts"),
			CashPrefix:     r.URL.Query().Get("cash_prefix"),
		})
	})
}

// EquityStatement serves GET /reports/equity-statement.
func (h *ReportHandler) EquityStatement(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(orgID string) (*report.EquityStatement, error) {
		from, to, err := h.dateRange(r)
		if err != nil {
			return nil, err
		}
		profit, err := parseBoolQuery(r, "include_profit")
		if err != nil {
			return nil, err
		}
		return h.reportUC.EquityStatement(r.Context(), orgID, usecase.EquityStatementParams{
			From: from, To: to, IncludeProfit: profit,
		})
	})
}

// Worksheet serves GET /reports/worksheet.
func (h *ReportHandler) Worksheet(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(orgID string) (*report.Worksheet, error) {
		from, to, err := h.dateRange(r)
		if err != nil {
			return nil, err
		}
		zero, err := parseBoolQuery(r, "include_zero")
		if err != nil {
			return nil, err
		}
		return h.reportUC.Worksheet(r.Context(), orgID, usecase.WorksheetParams{From: from, To: to, IncludeZero: zero})
	})
}

// Subledger serves GET /reports/subledger.
func (h *ReportHandler) Subledger(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(orgID string) (*report.Subledger, error) {
		from, to, err := h.dateRange(r)
		if err != nil {
			return nil, err
		}
		limit, offset := parsePage(r)
		return h.reportUC.Subledger(r.Context(), orgID, usecase.SubledgerParams{
			AccountID: r.URL.Query().Get("account_id"),
			From:      from,
			To:        to,
			Limit:     limit,
			Offset:    offset,
		})
	})
}

// SubledgerDetail serves GET /reports/subledger/detail.
func (h *ReportHandler) SubledgerDetail(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(orgID string) (*report.Ledger, error) {
		p, err := h.ledgerParams(r)
		if err != nil {
			return nil, err
		}
		return h.reportUC.SubledgerDetail(r.Context(), orgID, p)
	})
}

// Ledger serves GET /reports/ledger.
func (h *ReportHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(orgID string) (*report.Ledger, error) {
		p, err := h.ledgerParams(r)
		if err != nil {
			return nil, err
		}
		return h.reportUC.AccountLedger(r.Context(), orgID, p)
	})
}

func (h *ReportHandler) ledgerParams(r *http.Request) (usecase.LedgerParams, error) {
	from, to, err := h.dateRange(r)
	if err != nil {
		return usecase.LedgerParams{}, err
	}
	q := r.URL.Query()
	return usecase.LedgerParams{
		AccountID: q.Get("account_id"),
		PartnerID: q.Get("bp_id"),
		From:      from,
		To:        to,
	}, nil
}

// Chart serves GET /reports/charts.
func (h *ReportHandler) Chart(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(orgID string) (*report.Chart, error) {
		from, to, err := h.dateRange(r)
		if err != nil {
			return nil, err
		}
		kind, err := report.ParseChartKind(r.URL.Query().Get("kind"))
		if err != nil {
			return nil, err
		}
		interval, err := report.ParseInterval(r.URL.Query().Get("interval"))
		if err != nil {
			return nil, err
		}
		return h.reportUC.Chart(r.Context(), orgID, usecase.ChartParams{Kind: kind, Interval: interval, From: from, To: to})
	})
}
