package report

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func account(id, code, name string, typ domain.AccountType) *domain.Account {
	return &domain.Account{
		ID:            id,
		Code:          code,
		Name:          name,
		Type:          typ,
		NormalBalance: domain.DefaultNormalBalance(typ),
		IsPostable:    true,
		IsActive:      true,
	}
}

func totals(id, debit, credit string) domain.AccountTotals {
	return domain.AccountTotals{AccountID: id, Debit: dec(debit), Credit: dec(credit)}
}

func mustRange(t *testing.T, from, to string) Range {
	t.Helper()
	f, err := domain.ParseDate(from)
	if err != nil {
		t.Fatalf("parse from: %v", err)
	}
	tt, err := domain.ParseDate(to)
	if err != nil {
		t.Fatalf("parse to: %v", err)
	}
	r, err := NewRange(f, tt)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	return r
}

func ledgerLine(entry string, date time.Time, accountID, debit, credit string, lineNo int) domain.LedgerLine {
	return domain.LedgerLine{
		Date:      date,
		EntryID:   entry,
		AccountID: accountID,
		Debit:     dec(debit),
		Credit:    dec(credit),
		LineNo:    lineNo,
	}
}

func assertAmount(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: expected %s, got %s", name, want, got)
	}
}
