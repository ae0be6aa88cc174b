package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/report"
)

// Report names used for cache keys and metrics.
const (
	ReportTrialBalance    = "trial_balance"
	ReportIncomeStatement = "income_statement"
	ReportBalanceSheet    = "balance_sheet"
	ReportCashFlow        = "cash_flow"
	ReportEquityStatement = "equity_statement"
	ReportWorksheet       = "worksheet"
	ReportSubledger       = "subledger"
	ReportSubledgerDetail = "subledger_detail"
	ReportAccountLedger   = "account_ledger"
	ReportChart           = "chart"
)

// ReportUseCase loads posted history and hands it to the report builders.
type ReportUseCase struct {
	accountRepo AccountRepository
	partnerRepo PartnerRepository
	ledgerRepo  LedgerRepository
	cache       Cache
	cacheTTL    time.Duration
	group       singleflight.Group
	recorder    Recorder
	logger      zerolog.Logger
}

// NewReportUseCase creates a new ReportUseCase.
func NewReportUseCase(accountRepo AccountRepository, partnerRepo PartnerRepository, ledgerRepo LedgerRepository) *ReportUseCase {
	return &ReportUseCase{
		accountRepo: accountRepo,
		partnerRepo: partnerRepo,
		ledgerRepo:  ledgerRepo,
		cacheTTL:    DefaultReportCacheTTL,
		recorder:    noopRecorder{},
		logger:      zerolog.Nop(),
	}
}

// WithCache caches built reports keyed by the organization's ledger version.
func (uc *ReportUseCase) WithCache(cache Cache, ttl time.Duration) *ReportUseCase {
	uc.cache = cache
	if ttl > 0 {
		uc.cacheTTL = ttl
	}
	return uc
}

// WithRecorder sets the metrics sink.
func (uc *ReportUseCase) WithRecorder(r Recorder) *ReportUseCase {
	uc.recorder = r
	return uc
}

// WithLogger sets the logger.
func (uc *ReportUseCase) WithLogger(l zerolog.Logger) *ReportUseCase {
	uc.logger = l
	return uc
}

// LedgerChanged invalidates cached reports of the organization.
func (uc *ReportUseCase) LedgerChanged(ctx context.Context, orgID string) {
	if uc.cache == nil {
		return
	}
	if _, err := uc.cache.Incr(ctx, versionKey(orgID)); err != nil {
		uc.logger.Warn().Err(err).Str("organization_id", orgID).Msg("failed to bump report cache version")
	}
}

// TrialBalanceParams parameterizes the trial balance.
type TrialBalanceParams struct {
	From          time.Time
	To            time.Time
	IncludeZero   bool
	IncludeHeader bool
	Grouping      report.Grouping
}

// IncomeStatementParams parameterizes the income statement.
type IncomeStatementParams struct {
	From          time.Time
	To            time.Time
	TaxRate       decimal.Decimal
	UseCodeRule   bool
	ExcludedCodes []string
}

// BalanceSheetParams parameterizes the balance sheet.
type BalanceSheetParams struct {
	AsOf        time.Time
	ProfitBasis report.ProfitBasis
	TaxRate     decimal.Decimal
	UseCodeRule bool
	IncludeZero bool
}

// CashFlowParams parameterizes the cash flow statement.
type CashFlowParams struct {
	From           time.Time
	To             time.Time
	CashAccountIDs []string
	CashPrefix     string
}

// EquityStatementParams parameterizes the equity statement.
type EquityStatementParams struct {
	From          time.Time
	To            time.Time
	IncludeProfit bool
}

// WorksheetParams parameterizes the worksheet.
type WorksheetParams struct {
	From        time.Time
	To          time.Time
	IncludeZero bool
}

// SubledgerParams parameterizes the subledger listing.
type SubledgerParams struct {
	AccountID string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// LedgerParams parameterizes account and subledger detail.
type LedgerParams struct {
	AccountID string
	PartnerID string
	From      time.Time
	To        time.Time
}

// ChartParams parameterizes a chart.
type ChartParams struct {
	Kind     report.ChartKind
	Interval report.Interval
	From     time.Time
	To       time.Time
}

// TrialBalance builds the trial balance.
func (uc *ReportUseCase) TrialBalance(ctx context.Context, orgID string, p TrialBalanceParams) (*report.TrialBalance, error) {
	r, err := report.NewRange(p.From, p.To)
	if err != nil {
		return nil, err
	}
	if p.Grouping, err = report.ParseGrouping(string(p.Grouping)); err != nil {
		return nil, err
	}

	return cachedReport(ctx, uc, orgID, ReportTrialBalance, p, func(ctx context.Context) (report.TrialBalance, error) {
		return uc.trialBalance(ctx, orgID, r, p)
	})
}

func (uc *ReportUseCase) trialBalance(ctx context.Context, orgID string, r report.Range, p TrialBalanceParams) (report.TrialBalance, error) {
	balances, err := uc.balances(ctx, orgID, r, nil)
	if err != nil {
		return report.TrialBalance{}, err
	}
	return report.BuildTrialBalance(r, balances, report.TrialBalanceOptions{
		IncludeZero:   p.IncludeZero,
		IncludeHeader: p.IncludeHeader,
		Grouping:      p.Grouping,
	}), nil
}

// IncomeStatement builds the income statement. Closing entries are ignored.
func (uc *ReportUseCase) IncomeStatement(ctx context.Context, orgID string, p IncomeStatementParams) (*report.IncomeStatement, error) {
	r, err := report.NewRange(p.From, p.To)
	if err != nil {
		return nil, err
	}
	opts := report.IncomeStatementOptions{TaxRate: p.TaxRate, UseCodeRule: p.UseCodeRule, ExcludedCodes: p.ExcludedCodes}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return cachedReport(ctx, uc, orgID, ReportIncomeStatement, p, func(ctx context.Context) (report.IncomeStatement, error) {
		return uc.incomeStatement(ctx, orgID, r, opts)
	})
}

func (uc *ReportUseCase) incomeStatement(ctx context.Context, orgID string, r report.Range, opts report.IncomeStatementOptions) (report.IncomeStatement, error) {
	accounts, err := uc.accountRepo.ListAll(ctx, nil, orgID)
	if err != nil {
		return report.IncomeStatement{}, err
	}

	mutation, err := uc.ledgerRepo.SumLines(ctx, nil, orgID, domain.LineQuery{
		From:         &r.From,
		To:           &r.To,
		AccountIDs:   accountIDsWhere(accounts, domain.AccountType.IsProfitAndLoss),
		ExcludeTypes: []domain.EntryType{domain.EntryTypeClosing},
	})
	if err != nil {
		return report.IncomeStatement{}, err
	}

	balances := report.Combine(accounts, nil, domain.TotalsByAccount(mutation))
	return report.BuildIncomeStatement(r, balances, opts), nil
}

// BalanceSheet builds the balance sheet as of a date. Current year profit is
// taken from the income statement from January 1st to AsOf.
func (uc *ReportUseCase) BalanceSheet(ctx context.Context, orgID string, p BalanceSheetParams) (*report.BalanceSheet, error) {
	if p.AsOf.IsZero() {
		return nil, fmt.Errorf("%w: as_of is required", domain.ErrValidation)
	}
	var err error
	if p.ProfitBasis, err = report.ParseProfitBasis(string(p.ProfitBasis)); err != nil {
		return nil, err
	}
	if err := (report.IncomeStatementOptions{TaxRate: p.TaxRate}).Validate(); err != nil {
		return nil, err
	}
	p.AsOf = domain.NormalizeDate(p.AsOf)

	return cachedReport(ctx, uc, orgID, ReportBalanceSheet, p, func(ctx context.Context) (report.BalanceSheet, error) {
		return uc.balanceSheet(ctx, orgID, p)
	})
}

func (uc *ReportUseCase) balanceSheet(ctx context.Context, orgID string, p BalanceSheetParams) (report.BalanceSheet, error) {
	r := report.Range{From: domain.YearStart(p.AsOf), To: p.AsOf}

	accounts, err := uc.accountRepo.ListAll(ctx, nil, orgID)
	if err != nil {
		return report.BalanceSheet{}, err
	}

	w, err := uc.window(ctx, orgID, r, domain.LineQuery{})
	if err != nil {
		return report.BalanceSheet{}, err
	}
	// This year's closing entry would zero the profit shown separately below.
	w.mutation.ExcludeTypes = []domain.EntryType{domain.EntryTypeClosing}

	opening, mutation, err := uc.sumWindow(ctx, orgID, w)
	if err != nil {
		return report.BalanceSheet{}, err
	}
	balances := report.Combine(accounts, opening, mutation)

	prior := decimal.Zero
	for _, b := range balances {
		if b.Account.Type.IsProfitAndLoss() {
			prior = prior.Add(b.Opening.Credit.Sub(b.Opening.Debit))
		}
	}

	income := report.BuildIncomeStatement(r, balances, report.IncomeStatementOptions{
		TaxRate:     p.TaxRate,
		UseCodeRule: p.UseCodeRule,
	})

	return report.BuildBalanceSheet(p.AsOf, balances, prior, income, report.BalanceSheetOptions{
		ProfitBasis: p.ProfitBasis,
		IncludeZero: p.IncludeZero,
	}), nil
}

// CashFlow builds the cash flow statement.
func (uc *ReportUseCase) CashFlow(ctx context.Context, orgID string, p CashFlowParams) (*report.CashFlow, error) {
	r, err := report.NewRange(p.From, p.To)
	if err != nil {
		return nil, err
	}

	return cachedReport(ctx, uc, orgID, ReportCashFlow, p, func(ctx context.Context) (report.CashFlow, error) {
		return uc.cashFlow(ctx, orgID, r, p)
	})
}

func (uc *ReportUseCase) cashFlow(ctx context.Context, orgID string, r report.Range, p CashFlowParams) (report.CashFlow, error) {
	accounts, err := uc.accountRepo.ListAll(ctx, nil, orgID)
	if err != nil {
		return report.CashFlow{}, err
	}

	in := report.CashFlowInput{
		Range:    r,
		Accounts: accounts,
		CashIDs:  report.CashResolver{AccountIDs: p.CashAccountIDs, Prefix: p.CashPrefix}.Resolve(accounts),
		Begin:    decimal.Zero,
		End:      decimal.Zero,
	}
	if len(in.CashIDs) == 0 {
		return report.BuildCashFlow(in), nil
	}

	w, err := uc.window(ctx, orgID, r, domain.LineQuery{AccountIDs: in.CashIDs})
	if err != nil {
		return report.CashFlow{}, err
	}
	opening, mutation, err := uc.sumWindow(ctx, orgID, w)
	if err != nil {
		return report.CashFlow{}, err
	}
	for _, t := range opening {
		in.Begin = in.Begin.Add(t.Debit.Sub(t.Credit))
	}
	in.End = in.Begin
	for _, t := range mutation {
		in.End = in.End.Add(t.Debit.Sub(t.Credit))
	}

	cashLines, err := uc.ledgerRepo.ListLines(ctx, nil, orgID, w.mutation)
	if err != nil {
		return report.CashFlow{}, err
	}
	entryIDs := make([]string, 0, len(cashLines))
	for _, l := range cashLines {
		entryIDs = append(entryIDs, l.EntryID)
	}
	if len(entryIDs) > 0 {
		in.Lines, err = uc.ledgerRepo.ListLines(ctx, nil, orgID, domain.LineQuery{EntryIDs: uniqueStrings(entryIDs)})
		if err != nil {
			return report.CashFlow{}, err
		}
	}

	return report.BuildCashFlow(in), nil
}

// EquityStatement builds the statement of changes in equity.
func (uc *ReportUseCase) EquityStatement(ctx context.Context, orgID string, p EquityStatementParams) (*report.EquityStatement, error) {
	r, err := report.NewRange(p.From, p.To)
	if err != nil {
		return nil, err
	}

	return cachedReport(ctx, uc, orgID, ReportEquityStatement, p, func(ctx context.Context) (report.EquityStatement, error) {
		accounts, err := uc.accountRepo.ListAll(ctx, nil, orgID)
		if err != nil {
			return report.EquityStatement{}, err
		}

		w, err := uc.window(ctx, orgID, r, domain.LineQuery{
			AccountIDs: accountIDsWhere(accounts, func(t domain.AccountType) bool { return t == domain.AccountTypeEquity }),
		})
		if err != nil {
			return report.EquityStatement{}, err
		}

		profit := decimal.Zero
		if p.IncludeProfit {
			// The closing entry moves the same profit into equity.
			w.mutation.ExcludeTypes = []domain.EntryType{domain.EntryTypeClosing}
			is, err := uc.incomeStatement(ctx, orgID, r, report.IncomeStatementOptions{})
			if err != nil {
				return report.EquityStatement{}, err
			}
			profit = is.NetProfitBeforeTax
		}

		opening, mutation, err := uc.sumWindow(ctx, orgID, w)
		if err != nil {
			return report.EquityStatement{}, err
		}

		balances := report.Combine(accounts, opening, mutation)
		return report.BuildEquityStatement(r, balances, profit, p.IncludeProfit), nil
	})
}

// Worksheet builds the worksheet.
func (uc *ReportUseCase) Worksheet(ctx context.Context, orgID string, p WorksheetParams) (*report.Worksheet, error) {
	r, err := report.NewRange(p.From, p.To)
	if err != nil {
		return nil, err
	}

	return cachedReport(ctx, uc, orgID, ReportWorksheet, p, func(ctx context.Context) (report.Worksheet, error) {
		balances, err := uc.balances(ctx, orgID, r, nil)
		if err != nil {
			return report.Worksheet{}, err
		}
		return report.BuildWorksheet(r, balances, p.IncludeZero), nil
	})
}

// Subledger lists partner balances of accounts that require a partner.
func (uc *ReportUseCase) Subledger(ctx context.Context, orgID string, p SubledgerParams) (*report.Subledger, error) {
	r, err := report.NewRange(p.From, p.To)
	if err != nil {
		return nil, err
	}
	if p.Limit, p.Offset, err = domain.ValidatePagination(p.Limit, p.Offset); err != nil {
		return nil, err
	}

	return cachedReport(ctx, uc, orgID, ReportSubledger, p, func(ctx context.Context) (report.Subledger, error) {
		accounts, err := uc.accountRepo.ListAll(ctx, nil, orgID)
		if err != nil {
			return report.Subledger{}, err
		}

		scoped := accountIDsWhereAccount(accounts, func(a *domain.Account) bool {
			return a.RequiresBP && (p.AccountID == "" || a.ID == p.AccountID)
		})
		w, err := uc.window(ctx, orgID, r, domain.LineQuery{AccountIDs: scoped, GroupByPartner: true})
		if err != nil {
			return report.Subledger{}, err
		}
		opening, err := uc.ledgerRepo.SumLines(ctx, nil, orgID, w.opening)
		if err != nil {
			return report.Subledger{}, err
		}
		mutation, err := uc.ledgerRepo.SumLines(ctx, nil, orgID, w.mutation)
		if err != nil {
			return report.Subledger{}, err
		}

		var partnerIDs []string
		for _, t := range append(opening, mutation...) {
			if t.BPID != nil {
				partnerIDs = append(partnerIDs, *t.BPID)
			}
		}
		var partners []*domain.BusinessPartner
		if len(partnerIDs) > 0 {
			if partners, err = uc.partnerRepo.GetByIDs(ctx, nil, orgID, uniqueStrings(partnerIDs)); err != nil {
				return report.Subledger{}, err
			}
		}

		return report.BuildSubledger(report.SubledgerInput{
			Range:    r,
			Accounts: accounts,
			Partners: partners,
			Opening:  opening,
			Mutation: mutation,
			Limit:    p.Limit,
			Offset:   p.Offset,
		}), nil
	})
}

// SubledgerDetail shows the running balance of one (account, partner) pair.
func (uc *ReportUseCase) SubledgerDetail(ctx context.Context, orgID string, p LedgerParams) (*report.Ledger, error) {
	if p.PartnerID == "" {
		return nil, fmt.Errorf("%w: partner_id is required", domain.ErrValidation)
	}
	if _, err := uc.partnerRepo.GetByID(ctx, nil, orgID, p.PartnerID); err != nil {
		return nil, err
	}
	return uc.ledger(ctx, orgID, ReportSubledgerDetail, p)
}

// AccountLedger shows the running balance of one account.
func (uc *ReportUseCase) AccountLedger(ctx context.Context, orgID string, p LedgerParams) (*report.Ledger, error) {
	p.PartnerID = ""
	return uc.ledger(ctx, orgID, ReportAccountLedger, p)
}

func (uc *ReportUseCase) ledger(ctx context.Context, orgID, name string, p LedgerParams) (*report.Ledger, error) {
	r, err := report.NewRange(p.From, p.To)
	if err != nil {
		return nil, err
	}
	account, err := uc.accountRepo.GetByID(ctx, nil, orgID, p.AccountID)
	if err != nil {
		return nil, err
	}

	return cachedReport(ctx, uc, orgID, name, p, func(ctx context.Context) (report.Ledger, error) {
		w, err := uc.window(ctx, orgID, r, domain.LineQuery{AccountIDs: []string{account.ID}, PartnerID: p.PartnerID})
		if err != nil {
			return report.Ledger{}, err
		}
		opening, err := uc.ledgerRepo.SumLines(ctx, nil, orgID, w.opening)
		if err != nil {
			return report.Ledger{}, err
		}
		lines, err := uc.ledgerRepo.ListLines(ctx, nil, orgID, w.mutation)
		if err != nil {
			return report.Ledger{}, err
		}

		openingTotals := domain.TotalsByAccount(opening)[account.ID]
		return report.BuildLedger(r, account, p.PartnerID, openingTotals, lines), nil
	})
}

// Chart buckets a report over months or quarters. Buckets are built
// concurrently and may observe different ledger states.
func (uc *ReportUseCase) Chart(ctx context.Context, orgID string, p ChartParams) (*report.Chart, error) {
	r, err := report.NewRange(p.From, p.To)
	if err != nil {
		return nil, err
	}
	if p.Kind, err = report.ParseChartKind(string(p.Kind)); err != nil {
		return nil, err
	}
	if p.Interval, err = report.ParseInterval(string(p.Interval)); err != nil {
		return nil, err
	}
	buckets, err := report.Buckets(r, p.Interval)
	if err != nil {
		return nil, err
	}

	return cachedReport(ctx, uc, orgID, ReportChart, p, func(ctx context.Context) (report.Chart, error) {
		chart := report.Chart{
			Kind:     p.Kind,
			Interval: p.Interval,
			Series:   report.ChartSeries[p.Kind],
			Points:   make([]report.ChartPoint, len(buckets)),
		}

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(chartConcurrency)
		for i, b := range buckets {
			g.Go(func() error {
				values, err := uc.chartValues(ctx, orgID, p.Kind, b.Range)
				if err != nil {
					return err
				}
				chart.Points[i] = report.ChartPoint{Bucket: b, Values: values}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return report.Chart{}, err
		}

		return chart, nil
	})
}

func (uc *ReportUseCase) chartValues(ctx context.Context, orgID string, kind report.ChartKind, r report.Range) (map[string]decimal.Decimal, error) {
	switch kind {
	case report.ChartIncome:
		is, err := uc.incomeStatement(ctx, orgID, r, report.IncomeStatementOptions{})
		if err != nil {
			return nil, err
		}
		return report.IncomeValues(is), nil
	case report.ChartBalance:
		bs, err := uc.balanceSheet(ctx, orgID, BalanceSheetParams{AsOf: r.To, ProfitBasis: report.ProfitBasisNet})
		if err != nil {
			return nil, err
		}
		return report.BalanceValues(bs), nil
	case report.ChartCashFlow:
		cf, err := uc.cashFlow(ctx, orgID, r, CashFlowParams{})
		if err != nil {
			return nil, err
		}
		return report.CashFlowValues(cf), nil
	default:
		tb, err := uc.trialBalance(ctx, orgID, r, TrialBalanceParams{})
		if err != nil {
			return nil, err
		}
		return report.TrialValues(tb), nil
	}
}

// lineWindow holds the opening and mutation queries of a report range.
type lineWindow struct {
	opening  domain.LineQuery
	mutation domain.LineQuery
}

// window derives the opening and mutation queries for r. When a year-start
// opening entry exists on or before r.From, history before it is ignored:
// opening covers that entry plus lines up to r.From. Year-start openings
// inside the range restate history the mutation already holds, so the
// mutation drops them once checkRestatements has confirmed they agree.
func (uc *ReportUseCase) window(ctx context.Context, orgID string, r report.Range, base domain.LineQuery) (lineWindow, error) {
	if err := uc.checkRestatements(ctx, orgID, r); err != nil {
		return lineWindow{}, err
	}
	return uc.baseWindow(ctx, orgID, r, base)
}

func (uc *ReportUseCase) baseWindow(ctx context.Context, orgID string, r report.Range, base domain.LineQuery) (lineWindow, error) {
	baseline, err := uc.ledgerRepo.OpeningBaseline(ctx, nil, orgID, r.From)
	if err != nil {
		return lineWindow{}, err
	}

	from, to := r.From, r.To
	w := lineWindow{opening: base, mutation: base}
	w.opening.Before = &from
	w.mutation.From = &from
	w.mutation.To = &to
	w.mutation.ExcludeOpeningsFrom = &from

	if baseline != nil {
		w.opening.From = baseline
		w.opening.IncludeOpeningAt = baseline
	}

	return w, nil
}

// checkRestatements walks the year-start opening entries dated inside
// (r.From, r.To]. Each must carry the asset and liability balances that the
// posted history before it produces; equity and profit accounts may be
// reclassified into retained earnings.
func (uc *ReportUseCase) checkRestatements(ctx context.Context, orgID string, r report.Range) error {
	at, err := uc.ledgerRepo.OpeningBaseline(ctx, nil, orgID, r.To)
	if err != nil || at == nil || !at.After(r.From) {
		return err
	}

	accounts, err := uc.accountRepo.ListAll(ctx, nil, orgID)
	if err != nil {
		return err
	}

	for at != nil && at.After(r.From) {
		b := *at
		prior, err := uc.baseWindow(ctx, orgID, report.Range{From: r.From, To: b.AddDate(0, 0, -1)}, domain.LineQuery{})
		if err != nil {
			return err
		}
		opening, mutation, err := uc.sumWindow(ctx, orgID, prior)
		if err != nil {
			return err
		}
		restated, err := uc.ledgerRepo.SumLines(ctx, nil, orgID, domain.LineQuery{From: &b, Before: &b, IncludeOpeningAt: &b})
		if err != nil {
			return err
		}
		entry := domain.TotalsByAccount(restated)

		for _, a := range accounts {
			if a.Type != domain.AccountTypeAsset && a.Type != domain.AccountTypeLiability {
				continue
			}
			before := netOf(opening[a.ID]).Add(netOf(mutation[a.ID]))
			if !domain.RoundMoney(before).Equal(domain.RoundMoney(netOf(entry[a.ID]))) {
				return fmt.Errorf("%w: range crosses the opening entry of %s, which does not restate the balance of account %s; start the range on or after that date",
					domain.ErrValidation, b.Format(domain.DateLayout), a.Code)
			}
		}

		if at, err = uc.ledgerRepo.OpeningBaseline(ctx, nil, orgID, b.AddDate(0, 0, -1)); err != nil {
			return err
		}
	}

	return nil
}

// netOf returns debit minus credit, treating missing totals as zero.
func netOf(t domain.AccountTotals) decimal.Decimal {
	if t.AccountID == "" {
		return decimal.Zero
	}
	return t.Debit.Sub(t.Credit)
}

func (uc *ReportUseCase) sumWindow(ctx context.Context, orgID string, w lineWindow) (opening, mutation map[string]domain.AccountTotals, err error) {
	o, err := uc.ledgerRepo.SumLines(ctx, nil, orgID, w.opening)
	if err != nil {
		return nil, nil, err
	}
	m, err := uc.ledgerRepo.SumLines(ctx, nil, orgID, w.mutation)
	if err != nil {
		return nil, nil, err
	}
	return domain.TotalsByAccount(o), domain.TotalsByAccount(m), nil
}

// balances loads every account with its opening and mutation totals for r.
func (uc *ReportUseCase) balances(ctx context.Context, orgID string, r report.Range, excludeFromMutation []domain.EntryType) ([]report.AccountBalance, error) {
	accounts, err := uc.accountRepo.ListAll(ctx, nil, orgID)
	if err != nil {
		return nil, err
	}

	w, err := uc.window(ctx, orgID, r, domain.LineQuery{})
	if err != nil {
		return nil, err
	}
	w.mutation.ExcludeTypes = excludeFromMutation

	opening, mutation, err := uc.sumWindow(ctx, orgID, w)
	if err != nil {
		return nil, err
	}

	return report.Combine(accounts, opening, mutation), nil
}

// cachedReport builds a report through the cache when one is configured.
// Concurrent identical requests share a single build.
func cachedReport[T any](ctx context.Context, uc *ReportUseCase, orgID, name string, params any, build func(context.Context) (T, error)) (*T, error) {
	start := time.Now()

	if uc.cache == nil {
		v, err := build(ctx)
		if err != nil {
			return nil, err
		}
		uc.recorder.ReportBuilt(name, time.Since(start), false)
		return &v, nil
	}

	key, err := uc.cacheKey(ctx, orgID, name, params)
	if err != nil {
		return nil, err
	}

	var out T
	if raw, err := uc.cache.Get(ctx, key); err == nil {
		if err := json.Unmarshal(raw, &out); err == nil {
			uc.recorder.ReportBuilt(name, time.Since(start), true)
			return &out, nil
		}
	}

	raw, err, _ := uc.group.Do(key, func() (any, error) {
		v, err := build(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if err := uc.cache.Set(ctx, key, raw, uc.cacheTTL); err != nil {
			uc.logger.Warn().Err(err).Str("report", name).Msg("failed to cache report")
		}
		return raw, nil
	})
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(raw.([]byte), &out); err != nil {
		return nil, err
	}
	uc.recorder.ReportBuilt(name, time.Since(start), false)
	return &out, nil
}

func (uc *ReportUseCase) cacheKey(ctx context.Context, orgID, name string, params any) (string, error) {
	version := int64(0)
	if raw, err := uc.cache.Get(ctx, versionKey(orgID)); err == nil {
		if v, err := strconv.ParseInt(string(raw), 10, 64); err == nil {
			version = v
		}
	}

	encoded, err := json.Marshal(params)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(encoded)

	return fmt.Sprintf("report:%s:%d:%s:%s", orgID, version, name, hex.EncodeToString(sum[:8])), nil
}

func versionKey(orgID string) string {
	return "report:version:" + orgID
}

func accountIDsWhereAccount(accounts []*domain.Account, keep func(*domain.Account) bool) []string {
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if keep(a) {
			ids = append(ids, a.ID)
		}
	}
	if len(ids) == 0 {
		return []string{""}
	}
	return ids
}
