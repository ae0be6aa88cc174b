package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
	"github.com/iho/gobooks/internal/usecase/mocks"
)

// seedYear posts revenue of 1000 and expense of 400 in 2025.
func seedYear(t *testing.T, b *books, c chart) {
	t.Helper()
	b.post(t, domain.Date(2025, time.March, 10), "sale", dr(c.cash, "1000.00"), cr(c.revenue, "1000.00"))
	b.post(t, domain.Date(2025, time.April, 1), "rent", dr(c.rent, "400.00"), cr(c.cash, "400.00"))
}

func lineFor(t *testing.T, entry *domain.JournalEntry, accountID string) domain.JournalLine {
	t.Helper()
	for _, l := range entry.Lines {
		if l.AccountID == accountID {
			return l
		}
	}
	t.Fatalf("entry %s has no line for %s", entry.ID, accountID)
	return domain.JournalLine{}
}

func TestClosingUseCase_RunYearEndClosing(t *testing.T) {
	b := newBooks(t)
	c := b.standardChart(t)
	seedYear(t, b, c)
	ctx := context.Background()

	res, err := b.closing.RunYearEndClosing(ctx, admin, usecase.YearEndClosingInput{
		Year:                      2025,
		RetainedEarningsAccountID: c.retained,
		GenerateOpening:           true,
	})
	if err != nil {
		t.Fatalf("RunYearEndClosing failed: %v", err)
	}

	assertAmount(t, "revenue", res.Revenue, "1000")
	assertAmount(t, "expense", res.Expense, "400")
	assertAmount(t, "net profit", res.NetProfit, "600")

	closing := res.ClosingEntry
	if closing.EntryType != domain.EntryTypeClosing || closing.Status != domain.EntryStatusPosted {
		t.Fatalf("unexpected closing entry %+v", closing)
	}
	if !closing.Date.Equal(domain.Date(2025, time.December, 31)) {
		t.Fatalf("closing dated %s", closing.Date)
	}
	assertAmount(t, "revenue closing debit", lineFor(t, closing, c.revenue).Debit, "1000")
	assertAmount(t, "rent closing credit", lineFor(t, closing, c.rent).Credit, "400")
	assertAmount(t, "retained earnings credit", lineFor(t, closing, c.retained).Credit, "600")
	if err := domain.CheckBalanced(closing.Lines); err != nil {
		t.Fatalf("closing entry unbalanced: %v", err)
	}

	opening := res.OpeningEntry
	if opening == nil {
		t.Fatal("expected opening entry")
	}
	if !opening.Date.Equal(domain.Date(2026, time.January, 1)) || opening.EntryType != domain.EntryTypeOpening {
		t.Fatalf("unexpected opening entry %+v", opening)
	}
	if len(opening.Lines) != 2 {
		t.Fatalf("expected cash and retained earnings lines, got %d", len(opening.Lines))
	}
	assertAmount(t, "opening cash debit", lineFor(t, opening, c.cash).Debit, "600")
	assertAmount(t, "opening retained credit", lineFor(t, opening, c.retained).Credit, "600")
	if err := domain.CheckBalanced(opening.Lines); err != nil {
		t.Fatalf("opening entry unbalanced: %v", err)
	}

	status, err := b.closing.GetYearEndStatus(ctx, testOrg, 2025)
	if err != nil {
		t.Fatalf("GetYearEndStatus failed: %v", err)
	}
	if !status.Closed || !status.Opened || *status.ClosingEntryID != closing.ID || *status.OpeningEntryID != opening.ID {
		t.Fatalf("unexpected status %+v", status)
	}

	_, err = b.closing.RunYearEndClosing(ctx, admin, usecase.YearEndClosingInput{
		Year:                      2025,
		RetainedEarningsAccountID: c.retained,
	})
	if !errors.Is(err, domain.ErrAlreadyClosed) {
		t.Fatalf("expected ErrAlreadyClosed, got %v", err)
	}
}

func TestClosingUseCase_CarriesUnclosedPriorProfit(t *testing.T) {
	b := newBooks(t)
	c := b.standardChart(t)
	ctx := context.Background()

	b.post(t, domain.Date(2024, time.June, 1), "old sale", dr(c.cash, "300.00"), cr(c.revenue, "300.00"))
	seedYear(t, b, c)

	res, err := b.closing.RunYearEndClosing(ctx, admin, usecase.YearEndClosingInput{
		Year:                      2025,
		RetainedEarningsAccountID: c.retained,
		GenerateOpening:           true,
	})
	if err != nil {
		t.Fatalf("RunYearEndClosing failed: %v", err)
	}

	assertAmount(t, "net profit", res.NetProfit, "600")
	assertAmount(t, "opening cash", lineFor(t, res.OpeningEntry, c.cash).Debit, "900")
	assertAmount(t, "opening retained earnings", lineFor(t, res.OpeningEntry, c.retained).Credit, "900")
	if err := domain.CheckBalanced(res.OpeningEntry.Lines); err != nil {
		t.Fatalf("opening entry unbalanced: %v", err)
	}
}

func TestClosingUseCase_Rejections(t *testing.T) {
	b := newBooks(t)
	c := b.standardChart(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input usecase.YearEndClosingInput
		want  error
	}{
		{"year out of range", usecase.YearEndClosingInput{Year: 1800, RetainedEarningsAccountID: c.retained}, domain.ErrValidation},
		{"missing retained earnings", usecase.YearEndClosingInput{Year: 2025}, domain.ErrValidation},
		{"unknown retained earnings", usecase.YearEndClosingInput{Year: 2025, RetainedEarningsAccountID: "nope"}, domain.ErrReference},
		{"retained earnings not equity", usecase.YearEndClosingInput{Year: 2025, RetainedEarningsAccountID: c.cash}, domain.ErrValidation},
		{"no activity", usecase.YearEndClosingInput{Year: 2025, RetainedEarningsAccountID: c.retained}, domain.ErrEmptyEntry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := b.closing.RunYearEndClosing(ctx, admin, tt.input); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	date := domain.Date(2024, time.December, 31)
	_, err := b.closing.RunYearEndClosing(ctx, admin, usecase.YearEndClosingInput{
		Year:                      2025,
		Date:                      &date,
		RetainedEarningsAccountID: c.retained,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("closing date outside the year: expected ErrValidation, got %v", err)
	}
}

func TestClosingUseCase_PeriodClosed(t *testing.T) {
	b := newBooks(t)
	c := b.standardChart(t)
	seedYear(t, b, c)
	ctx := context.Background()

	if _, err := b.periods.Create(ctx, admin, usecase.CreatePeriodLockInput{
		PeriodStart: domain.Date(2025, time.December, 1),
		PeriodEnd:   domain.Date(2025, time.December, 31),
		Closed:      true,
	}); err != nil {
		t.Fatalf("Create lock failed: %v", err)
	}

	_, err := b.closing.RunYearEndClosing(ctx, admin, usecase.YearEndClosingInput{Year: 2025, RetainedEarningsAccountID: c.retained})
	if !errors.Is(err, domain.ErrPeriodClosed) {
		t.Fatalf("expected ErrPeriodClosed, got %v", err)
	}

	status, err := b.closing.GetYearEndStatus(ctx, testOrg, 2025)
	if err != nil {
		t.Fatalf("GetYearEndStatus failed: %v", err)
	}
	if status.Closed {
		t.Fatal("failed closing must not leave a closing entry")
	}
}

func TestClosingUseCase_RecordsOutcome(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	b := newBooks(t)
	c := b.standardChart(t)
	seedYear(t, b, c)

	recorder := mocks.NewMockRecorder(ctrl)
	recorder.EXPECT().YearClosed(gomock.Nil()).Times(1)
	observer := &observerSpy{}
	b.closing.WithRecorder(recorder).WithObserver(observer)

	if _, err := b.closing.RunYearEndClosing(context.Background(), admin, usecase.YearEndClosingInput{
		Year:                      2025,
		RetainedEarningsAccountID: c.retained,
	}); err != nil {
		t.Fatalf("RunYearEndClosing failed: %v", err)
	}

	if observer.calls != 1 || observer.orgID != testOrg {
		t.Fatalf("expected one ledger change for %s, got %+v", testOrg, observer)
	}
}

func TestClosingUseCase_RetriesRunThroughRetrier(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	b := newBooks(t)
	c := b.standardChart(t)
	seedYear(t, b, c)

	retrier := mocks.NewMockRetrier(ctrl)
	retrier.EXPECT().Retry(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, op func() error) error {
		return op()
	})
	b.closing.WithRetrier(retrier)

	if _, err := b.closing.RunYearEndClosing(context.Background(), admin, usecase.YearEndClosingInput{
		Year:                      2025,
		RetainedEarningsAccountID: c.retained,
	}); err != nil {
		t.Fatalf("RunYearEndClosing failed: %v", err)
	}
}

type observerSpy struct {
	calls int
	orgID string
}

func (o *observerSpy) LedgerChanged(_ context.Context, orgID string) {
	o.calls++
	o.orgID = orgID
}
