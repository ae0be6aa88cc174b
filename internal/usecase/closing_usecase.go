package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// ClosingUseCase runs year-end closing and opening generation.
type ClosingUseCase struct {
	txManager   TransactionManager
	journalRepo JournalRepository
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
	auditRepo   AuditRepository
	guard       PeriodGuard
	idGen       IDGenerator
	retrier     Retrier
	recorder    Recorder
	observer    LedgerObserver
	logger      zerolog.Logger
	now         func() time.Time
}

// NewClosingUseCase creates a new ClosingUseCase.
func NewClosingUseCase(
	txManager TransactionManager,
	journalRepo JournalRepository,
	accountRepo AccountRepository,
	ledgerRepo LedgerRepository,
	guard PeriodGuard,
	idGen IDGenerator,
) *ClosingUseCase {
	return &ClosingUseCase{
		txManager:   txManager,
		journalRepo: journalRepo,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		guard:       guard,
		idGen:       idGen,
		retrier:     directRetrier{},
		recorder:    noopRecorder{},
		logger:      zerolog.Nop(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithRetrier retries closing transactions on transient storage failures.
func (uc *ClosingUseCase) WithRetrier(r Retrier) *ClosingUseCase {
	uc.retrier = r
	return uc
}

// WithAuditRepository enables audit rows.
func (uc *ClosingUseCase) WithAuditRepository(repo AuditRepository) *ClosingUseCase {
	uc.auditRepo = repo
	return uc
}

// WithRecorder sets the metrics sink.
func (uc *ClosingUseCase) WithRecorder(r Recorder) *ClosingUseCase {
	uc.recorder = r
	return uc
}

// WithObserver registers a listener for committed ledger changes.
func (uc *ClosingUseCase) WithObserver(o LedgerObserver) *ClosingUseCase {
	uc.observer = o
	return uc
}

// WithLogger sets the logger.
func (uc *ClosingUseCase) WithLogger(l zerolog.Logger) *ClosingUseCase {
	uc.logger = l
	return uc
}

// WithNow overrides the clock.
func (uc *ClosingUseCase) WithNow(now func() time.Time) *ClosingUseCase {
	uc.now = now
	return uc
}

// YearEndStatus reports whether a year is closed and the next one opened.
type YearEndStatus struct {
	ClosingEntryID *string `json:"closing_entry_id"`
	OpeningEntryID *string `json:"opening_entry_id"`
	Year           int     `json:"year"`
	Closed         bool    `json:"closed"`
	Opened         bool    `json:"opened"`
}

// YearEndClosingInput represents input for a closing run.
type YearEndClosingInput struct {
	Date                      *time.Time
	Memo                      *string
	RetainedEarningsAccountID string
	Year                      int
	GenerateOpening           bool
}

// ClosingResult is the outcome of a closing run.
type ClosingResult struct {
	ClosingEntry *domain.JournalEntry `json:"closing_entry"`
	OpeningEntry *domain.JournalEntry `json:"opening_entry,omitempty"`
	Revenue      decimal.Decimal      `json:"revenue"`
	Expense      decimal.Decimal      `json:"expense"`
	NetProfit    decimal.Decimal      `json:"net_profit"`
}

// GetYearEndStatus reports closing and next-year opening state.
func (uc *ClosingUseCase) GetYearEndStatus(ctx context.Context, orgID string, year int) (*YearEndStatus, error) {
	if err := validateYear(year); err != nil {
		return nil, err
	}

	status := &YearEndStatus{Year: year}

	closing, err := uc.journalRepo.FindByClosingKey(ctx, nil, orgID, strconv.Itoa(year))
	switch {
	case err == nil:
		status.Closed = true
		status.ClosingEntryID = &closing.ID
	case !errors.Is(err, domain.ErrEntryNotFound):
		return nil, err
	}

	opening, err := uc.journalRepo.FindByOpeningKey(ctx, nil, orgID, strconv.Itoa(year+1))
	switch {
	case err == nil:
		status.Opened = true
		status.OpeningEntryID = &opening.ID
	case !errors.Is(err, domain.ErrEntryNotFound):
		return nil, err
	}

	return status, nil
}

// RunYearEndClosing closes revenue and expense into retained earnings and
// optionally writes the next year's opening entry, in one transaction.
func (uc *ClosingUseCase) RunYearEndClosing(ctx context.Context, actor domain.Actor, input YearEndClosingInput) (*ClosingResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := validateYear(input.Year); err != nil {
		return nil, err
	}
	if input.RetainedEarningsAccountID == "" {
		return nil, fmt.Errorf("%w: retained_earnings_account_id is required", domain.ErrValidation)
	}

	date := domain.YearEnd(input.Year)
	if input.Date != nil && !input.Date.IsZero() {
		date = domain.NormalizeDate(*input.Date)
	}
	if date.Year() != input.Year {
		return nil, fmt.Errorf("%w: closing date %s is outside %d", domain.ErrValidation, date.Format(domain.DateLayout), input.Year)
	}

	var result *ClosingResult
	err := uc.retrier.Retry(ctx, func() error {
		var err error
		result, err = uc.run(ctx, actor, input, date)
		return err
	})
	uc.recorder.YearClosed(err)
	if err != nil {
		uc.logger.Warn().Err(err).
			Str("organization_id", actor.OrganizationID).
			Int("year", input.Year).
			Msg("year-end closing failed")
		return nil, err
	}

	if uc.observer != nil {
		uc.observer.LedgerChanged(ctx, actor.OrganizationID)
	}

	uc.logger.Info().
		Str("organization_id", actor.OrganizationID).
		Int("year", input.Year).
		Str("net_profit", result.NetProfit.StringFixed(domain.MoneyScale)).
		Bool("opening", result.OpeningEntry != nil).
		Msg("year closed")

	return result, nil
}

func (uc *ClosingUseCase) run(ctx context.Context, actor domain.Actor, input YearEndClosingInput, date time.Time) (*ClosingResult, error) {
	orgID := actor.OrganizationID
	closingKey := strconv.Itoa(input.Year)
	openingKey := strconv.Itoa(input.Year + 1)
	openingDate := domain.Date(input.Year+1, time.January, 1)

	var result *ClosingResult
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		// 1. Fail fast on existing closing/opening.
		if _, err := uc.journalRepo.FindByClosingKey(ctx, tx, orgID, closingKey); err == nil {
			return fmt.Errorf("%w: %s", domain.ErrAlreadyClosed, closingKey)
		} else if !errors.Is(err, domain.ErrEntryNotFound) {
			return err
		}
		if input.GenerateOpening {
			if _, err := uc.journalRepo.FindByOpeningKey(ctx, tx, orgID, openingKey); err == nil {
				return fmt.Errorf("%w: %s", domain.ErrAlreadyOpened, openingKey)
			} else if !errors.Is(err, domain.ErrEntryNotFound) {
				return err
			}
		}

		// 2. Retained earnings account.
		retained, err := uc.accountRepo.GetByID(ctx, tx, orgID, input.RetainedEarningsAccountID)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return fmt.Errorf("%w: retained earnings account %s not found", domain.ErrReference, input.RetainedEarningsAccountID)
			}
			return err
		}
		if retained.Type != domain.AccountTypeEquity || !retained.CanPost() {
			return fmt.Errorf("%w: retained earnings account must be an active postable equity account", domain.ErrValidation)
		}

		if err := uc.guard.AssertOpen(ctx, tx, orgID, date); err != nil {
			return err
		}

		accounts, err := uc.accountRepo.ListAll(ctx, tx, orgID)
		if err != nil {
			return err
		}

		// 3-5. Closing lines.
		now := uc.now().Truncate(time.Microsecond)
		memo := fmt.Sprintf("Year-end closing %d", input.Year)
		if input.Memo != nil && *input.Memo != "" {
			memo = *input.Memo
		}

		closing := newPostedEntry(uc.idGen, actor, date, memo, domain.EntryTypeClosing, now)
		closing.ClosingKey = &closingKey

		ys := domain.Date(input.Year, time.January, 1)
		plTotals, err := uc.ledgerRepo.SumLines(ctx, tx, orgID, domain.LineQuery{
			From:           &ys,
			To:             &date,
			AccountIDs:     accountIDsWhere(accounts, domain.AccountType.IsProfitAndLoss),
			GroupByPartner: true,
		})
		if err != nil {
			return err
		}

		revenue, expense := decimal.Zero, decimal.Zero
		for _, t := range sortTotals(plTotals, accounts) {
			account := t.account
			signed := domain.SignedBalance(domain.DefaultNormalBalance(account.Type), t.Debit, t.Credit)
			if domain.IsZeroMoney(signed) {
				continue
			}
			if account.Type == domain.AccountTypeRevenue {
				revenue = revenue.Add(signed)
			} else {
				expense = expense.Add(signed)
			}

			// Reverse the net debit/credit position to zero.
			net := t.Debit.Sub(t.Credit)
			line := domain.JournalLine{AccountID: account.ID, BPID: t.BPID, Memo: memo}
			if net.IsPositive() {
				line.Credit, line.Debit = net, decimal.Zero
			} else {
				line.Debit, line.Credit = net.Neg(), decimal.Zero
			}
			closing.Lines = append(closing.Lines, line)
		}

		netProfit := revenue.Sub(expense)
		if len(closing.Lines) == 0 {
			return fmt.Errorf("%w: no revenue or expense activity in %d", domain.ErrEmptyEntry, input.Year)
		}
		if !domain.IsZeroMoney(netProfit) {
			line := domain.JournalLine{AccountID: retained.ID, Memo: memo, Debit: decimal.Zero, Credit: decimal.Zero}
			if netProfit.IsPositive() {
				line.Credit = netProfit
			} else {
				line.Debit = netProfit.Neg()
			}
			closing.Lines = append(closing.Lines, line)
		}

		// 6. Balance and write.
		finishLines(closing, uc.idGen)
		if err := domain.CheckBalanced(closing.Lines); err != nil {
			return err
		}
		if err := uc.journalRepo.Create(ctx, tx, closing); err != nil {
			return err
		}

		result = &ClosingResult{
			ClosingEntry: closing,
			Revenue:      revenue,
			Expense:      expense,
			NetProfit:    netProfit,
		}

		if err := audit(ctx, uc.auditRepo, tx, uc.idGen, actor, domain.AuditActionYearClose,
			domain.ResourceJournalEntry, closing.ID, nil, result, now); err != nil {
			return err
		}

		if !input.GenerateOpening {
			return nil
		}

		// 7. Opening entry from the balance sheet after closing.
		if err := uc.guard.AssertOpen(ctx, tx, orgID, openingDate); err != nil {
			return err
		}

		baseline, err := uc.ledgerRepo.OpeningBaseline(ctx, tx, orgID, ys)
		if err != nil {
			return err
		}
		bsTotals, err := uc.ledgerRepo.SumLines(ctx, tx, orgID, domain.LineQuery{
			From:           baseline,
			To:             &date,
			GroupByPartner: true,
		})
		if err != nil {
			return err
		}

		opening := newPostedEntry(uc.idGen, actor, openingDate, fmt.Sprintf("Opening balance %d", input.Year+1), domain.EntryTypeOpening, now)
		opening.OpeningKey = &openingKey

		// Profit of earlier years that were never closed carries into
		// retained earnings.
		sorted := sortTotals(bsTotals, accounts)
		carried := decimal.Zero
		for _, t := range sorted {
			if t.account.Type.IsProfitAndLoss() {
				carried = carried.Add(t.Debit.Sub(t.Credit))
			}
		}

		for _, t := range sorted {
			if t.account.Type.IsProfitAndLoss() {
				continue
			}
			signed := domain.SignedBalance(t.account.NormalBalance, t.Debit, t.Credit)
			if t.account.ID == retained.ID && t.BPID == nil {
				signed = signed.Add(domain.SignedBalance(retained.NormalBalance, carried, decimal.Zero))
				carried = decimal.Zero
			}
			if domain.IsZeroMoney(signed) {
				continue
			}
			debit, credit := domain.SplitSigned(t.account.NormalBalance, signed)
			opening.Lines = append(opening.Lines, domain.JournalLine{
				AccountID: t.account.ID,
				BPID:      t.BPID,
				Debit:     debit,
				Credit:    credit,
				Memo:      opening.Memo,
			})
		}
		if !domain.IsZeroMoney(carried) {
			debit, credit := domain.SplitSigned(domain.SideDebit, carried)
			opening.Lines = append(opening.Lines, domain.JournalLine{
				AccountID: retained.ID,
				Debit:     debit,
				Credit:    credit,
				Memo:      opening.Memo,
			})
		}

		finishLines(opening, uc.idGen)
		if err := domain.CheckBalanced(opening.Lines); err != nil {
			return err
		}
		if err := uc.journalRepo.Create(ctx, tx, opening); err != nil {
			return err
		}

		result.OpeningEntry = opening
		return audit(ctx, uc.auditRepo, tx, uc.idGen, actor, domain.AuditActionOpeningCreate,
			domain.ResourceJournalEntry, opening.ID, nil, opening, now)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

type accountTotals struct {
	domain.AccountTotals
	account *domain.Account
}

// sortTotals attaches accounts to totals and orders them by account code
// then partner id. Totals of unknown accounts are dropped.
func sortTotals(totals []domain.AccountTotals, accounts []*domain.Account) []accountTotals {
	byID := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	out := make([]accountTotals, 0, len(totals))
	for _, t := range totals {
		if a, ok := byID[t.AccountID]; ok {
			out = append(out, accountTotals{AccountTotals: t, account: a})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].account.Code != out[j].account.Code {
			return out[i].account.Code < out[j].account.Code
		}
		return partnerKey(out[i].BPID) < partnerKey(out[j].BPID)
	})

	return out
}

func accountIDsWhere(accounts []*domain.Account, keep func(domain.AccountType) bool) []string {
	ids := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if keep(a.Type) {
			ids = append(ids, a.ID)
		}
	}
	if len(ids) == 0 {
		// Match nothing rather than everything.
		return []string{""}
	}
	return ids
}

func finishLines(entry *domain.JournalEntry, idGen IDGenerator) {
	for i := range entry.Lines {
		entry.Lines[i].ID = idGen.Generate()
		entry.Lines[i].EntryID = entry.ID
		entry.Lines[i].OrganizationID = entry.OrganizationID
		entry.Lines[i].LineNo = i + 1
	}
}

func partnerKey(bp *string) string {
	if bp == nil {
		return ""
	}
	return *bp
}

func validateYear(year int) error {
	if year < 1900 || year > 9998 {
		return fmt.Errorf("%w: year %d out of range", domain.ErrValidation, year)
	}
	return nil
}
