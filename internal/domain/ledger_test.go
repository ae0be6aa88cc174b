package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestLineQuery_MatchesYearBaseline(t *testing.T) {
	ys := Date(2025, 1, 1)
	from := Date(2025, 3, 1)

	opening := LedgerLine{Date: ys, EntryType: EntryTypeOpening, AccountID: "cash"}
	january := LedgerLine{Date: Date(2025, 1, 15), AccountID: "cash"}
	march := LedgerLine{Date: Date(2025, 3, 2), AccountID: "cash"}
	lastYear := LedgerLine{Date: Date(2024, 12, 31), AccountID: "cash"}

	openingQuery := LineQuery{From: &ys, Before: &from, IncludeOpeningAt: &ys}
	for _, l := range []LedgerLine{opening, january} {
		if !openingQuery.Matches(l) {
			t.Errorf("opening window should include %v", l.Date)
		}
	}
	for _, l := range []LedgerLine{march, lastYear} {
		if openingQuery.Matches(l) {
			t.Errorf("opening window should exclude %v", l.Date)
		}
	}

	mutation := LineQuery{From: &ys, To: &from, ExcludeOpeningsFrom: &ys}
	if mutation.Matches(opening) {
		t.Error("mutation window should exclude the baseline opening entry")
	}
	if !mutation.Matches(january) {
		t.Error("mutation window should include regular lines")
	}

	nextYear := Date(2026, 1, 1)
	to := Date(2026, 6, 30)
	crossing := LineQuery{From: &ys, To: &to, ExcludeOpeningsFrom: &ys}
	if crossing.Matches(LedgerLine{Date: nextYear, EntryType: EntryTypeOpening, AccountID: "cash"}) {
		t.Error("mutation window should exclude year-start openings inside the range")
	}
	midYear := LedgerLine{Date: Date(2025, 6, 1), EntryType: EntryTypeOpening, AccountID: "cash"}
	if !crossing.Matches(midYear) {
		t.Error("openings not dated January 1st are regular mutations")
	}
}

func TestSumLines(t *testing.T) {
	bp := "bp-1"
	lines := []LedgerLine{
		{AccountID: "ar", BPID: &bp, Debit: decimal.NewFromInt(100), Credit: decimal.Zero},
		{AccountID: "ar", Debit: decimal.Zero, Credit: decimal.NewFromInt(30)},
		{AccountID: "rev", Debit: decimal.Zero, Credit: decimal.NewFromInt(70)},
	}

	byAccount := TotalsByAccount(SumLines(lines, true))
	if got := byAccount["ar"].Signed(SideDebit); !got.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("expected ar signed 70, got %s", got)
	}

	if got := len(SumLines(lines, true)); got != 3 {
		t.Fatalf("expected 3 partner-level rows, got %d", got)
	}
	if got := len(SumLines(lines, false)); got != 2 {
		t.Fatalf("expected 2 account-level rows, got %d", got)
	}
}

func TestSplitSigned(t *testing.T) {
	d, c := SplitSigned(SideDebit, decimal.NewFromInt(-50))
	if !d.IsZero() || !c.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("negative debit-normal balance should display on credit side, got %s/%s", d, c)
	}

	if Cents(decimal.RequireFromString("10.005")) != 1001 {
		t.Fatal("cents should round half away from zero")
	}
	if !WithinCent(decimal.RequireFromString("1.00"), decimal.RequireFromString("1.01")) {
		t.Fatal("one cent difference should be tolerated")
	}
	if WithinCent(decimal.RequireFromString("184467440737095517.16"), decimal.RequireFromString("1.00")) {
		t.Fatal("amounts beyond int64 cents must not compare as equal")
	}
	if !EqualMoney(decimal.RequireFromString("1.004"), decimal.RequireFromString("1.00")) || IsZeroMoney(decimal.RequireFromString("0.01")) {
		t.Fatal("money comparisons should work at cent precision")
	}
}
