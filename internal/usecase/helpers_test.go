package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/adapter/repository/memory"
	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

const testOrg = "org-1"

var (
	admin = domain.Actor{OrganizationID: testOrg, UserID: "u-admin", Role: domain.RoleAdmin}
	fixed = time.Date(2026, time.February, 10, 9, 0, 0, 0, time.UTC)
)

type seqIDs struct {
	n atomic.Int64
}

func (g *seqIDs) Generate() string {
	return fmt.Sprintf("id-%06d", g.n.Add(1))
}

// books wires every use case to one in-memory store.
type books struct {
	store     *memory.Store
	auditRepo *memory.AuditRepository
	ledger    *memory.LedgerRepository

	accounts *usecase.AccountUseCase
	partners *usecase.PartnerUseCase
	periods  *usecase.PeriodUseCase
	journal  *usecase.JournalUseCase
	closing  *usecase.ClosingUseCase
	reports  *usecase.ReportUseCase
}

func newBooks(t *testing.T) *books {
	t.Helper()

	store := memory.New()
	txm := memory.NewTxManager(store)
	ids := &seqIDs{}
	now := func() time.Time { return fixed }

	accountRepo := memory.NewAccountRepository(store)
	partnerRepo := memory.NewPartnerRepository(store)
	journalRepo := memory.NewJournalRepository(store)
	ledgerRepo := memory.NewLedgerRepository(store)
	auditRepo := memory.NewAuditRepository(store)

	periods := usecase.NewPeriodUseCase(txm, memory.NewPeriodLockRepository(store), ids).
		WithAuditRepository(auditRepo).
		WithNow(now)
	reports := usecase.NewReportUseCase(accountRepo, partnerRepo, ledgerRepo)

	return &books{
		store:     store,
		auditRepo: auditRepo,
		ledger:    ledgerRepo,
		accounts:  usecase.NewAccountUseCase(txm, accountRepo, ids).WithAuditRepository(auditRepo).WithNow(now),
		partners:  usecase.NewPartnerUseCase(txm, partnerRepo, ids).WithAuditRepository(auditRepo).WithNow(now),
		periods:   periods,
		journal: usecase.NewJournalUseCase(txm, journalRepo, accountRepo, partnerRepo,
			memory.NewIdempotencyRepository(store), periods, ids).
			WithAuditRepository(auditRepo).
			WithObserver(reports).
			WithNow(now),
		closing: usecase.NewClosingUseCase(txm, journalRepo, accountRepo, ledgerRepo, periods, ids).
			WithAuditRepository(auditRepo).
			WithObserver(reports).
			WithNow(now),
		reports: reports,
	}
}

type accountOpt func(*usecase.CreateAccountInput)

func requiresBP(in *usecase.CreateAccountInput) { in.RequiresBP = true }

func header(in *usecase.CreateAccountInput) {
	postable := false
	in.IsPostable = &postable
}

func activity(a domain.CashFlowActivity) accountOpt {
	return func(in *usecase.CreateAccountInput) { in.CashFlowActivity = &a }
}

func (b *books) account(t *testing.T, code, name string, typ domain.AccountType, opts ...accountOpt) string {
	t.Helper()

	in := usecase.CreateAccountInput{Code: code, Name: name, Type: typ}
	for _, opt := range opts {
		opt(&in)
	}
	a, err := b.accounts.CreateAccount(context.Background(), admin, in)
	if err != nil {
		t.Fatalf("CreateAccount(%s) failed: %v", code, err)
	}
	return a.ID
}

func (b *books) partner(t *testing.T, code, name string) string {
	t.Helper()

	p, err := b.partners.CreatePartner(context.Background(), admin, usecase.PartnerInput{Code: code, Name: name, Category: "customer"})
	if err != nil {
		t.Fatalf("CreatePartner(%s) failed: %v", code, err)
	}
	return p.ID
}

func dr(accountID, amount string) usecase.JournalLineInput {
	return usecase.JournalLineInput{AccountID: accountID, Debit: decimal.RequireFromString(amount), Credit: decimal.Zero}
}

func cr(accountID, amount string) usecase.JournalLineInput {
	return usecase.JournalLineInput{AccountID: accountID, Debit: decimal.Zero, Credit: decimal.RequireFromString(amount)}
}

func withBP(line usecase.JournalLineInput, bpID string) usecase.JournalLineInput {
	line.BPID = &bpID
	return line
}

func (b *books) draft(t *testing.T, date time.Time, memo string, lines ...usecase.JournalLineInput) *domain.JournalEntry {
	t.Helper()

	entry, err := b.journal.CreateEntry(context.Background(), admin, usecase.CreateEntryInput{Date: date, Memo: memo, Lines: lines})
	if err != nil {
		t.Fatalf("CreateEntry(%s) failed: %v", memo, err)
	}
	return entry
}

var postKeys atomic.Int64

func (b *books) post(t *testing.T, date time.Time, memo string, lines ...usecase.JournalLineInput) *domain.JournalEntry {
	t.Helper()

	entry := b.draft(t, date, memo, lines...)
	res, err := b.journal.PostEntry(context.Background(), admin, entry.ID, fmt.Sprintf("key-%d", postKeys.Add(1)))
	if err != nil {
		t.Fatalf("PostEntry(%s) failed: %v", memo, err)
	}
	return res.Entry
}

func assertAmount(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Errorf("%s = %s, want %s", what, got.StringFixed(2), want)
	}
}

// chart is a small chart of accounts shared by the scenario tests.
type chart struct {
	cash, receivable, equipment, loan, capital, retained, revenue, cogs, rent string
}

func (b *books) standardChart(t *testing.T) chart {
	t.Helper()
	return chart{
		cash:       b.account(t, "1100", "Cash", domain.AccountTypeAsset),
		receivable: b.account(t, "1200", "Accounts receivable", domain.AccountTypeAsset, requiresBP),
		equipment:  b.account(t, "1500", "Equipment", domain.AccountTypeAsset, activity(domain.CashFlowInvesting)),
		loan:       b.account(t, "2100", "Bank loan", domain.AccountTypeLiability, activity(domain.CashFlowFinancing)),
		capital:    b.account(t, "3100", "Share capital", domain.AccountTypeEquity, activity(domain.CashFlowFinancing)),
		retained:   b.account(t, "3200", "Retained earnings", domain.AccountTypeEquity),
		revenue:    b.account(t, "4100", "Sales", domain.AccountTypeRevenue),
		cogs:       b.account(t, "5100", "Cost of sales", domain.AccountTypeExpense),
		rent:       b.account(t, "6100", "Rent", domain.AccountTypeExpense),
	}
}

// fakeCache is a map-backed report cache.
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if v, ok := c.data[key]; ok {
		_, _ = fmt.Sscan(string(v), &n)
	}
	n++
	c.data[key] = []byte(fmt.Sprint(n))
	return n, nil
}

// countingRecorder counts cached and built reports.
type countingRecorder struct {
	mu     sync.Mutex
	built  int
	cached int
}

func (r *countingRecorder) JournalPosted(bool) {}
func (r *countingRecorder) JournalPostFailed() {}
func (r *countingRecorder) JournalReversed()   {}
func (r *countingRecorder) YearClosed(error)   {}
func (r *countingRecorder) ReportBuilt(_ string, _ time.Duration, cached bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cached {
		r.cached++
	} else {
		r.built++
	}
}
