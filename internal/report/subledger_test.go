package report

import (
	"testing"

	"github.com/iho/gobooks/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestBuildSubledgerPaginates(t *testing.T) {
	ar := account("ar", "1300", "Receivable", domain.AccountTypeAsset)
	ar.RequiresBP = true
	cash := account("cash", "1100", "Cash", domain.AccountTypeAsset)

	partners := []*domain.BusinessPartner{
		{ID: "p1", Code: "C001", Name: "Acme"},
		{ID: "p2", Code: "C002", Name: "Globex"},
		{ID: "p3", Code: "C003", Name: "Initech"},
	}

	opening := []domain.AccountTotals{
		{AccountID: "ar", BPID: strPtr("p2"), Debit: dec("50"), Credit: dec("0")},
	}
	mutation := []domain.AccountTotals{
		{AccountID: "ar", BPID: strPtr("p1"), Debit: dec("100"), Credit: dec("40")},
		{AccountID: "ar", BPID: strPtr("p2"), Debit: dec("0"), Credit: dec("50")},
		{AccountID: "ar", BPID: strPtr("p3"), Debit: dec("70"), Credit: dec("0")},
		{AccountID: "cash", BPID: strPtr("p1"), Debit: dec("40"), Credit: dec("0")},
	}

	full := BuildSubledger(SubledgerInput{
		Accounts: []*domain.Account{ar, cash},
		Partners: partners,
		Opening:  opening,
		Mutation: mutation,
	})
	if full.Total != 3 {
		t.Fatalf("expected three partner rows for the partner-scoped account, got %d", full.Total)
	}
	assertAmount(t, "p1 closing", full.Rows[0].Closing, "60")
	assertAmount(t, "p2 opening", full.Rows[1].Opening, "50")
	assertAmount(t, "p2 closing", full.Rows[1].Closing, "0")

	page := BuildSubledger(SubledgerInput{
		Accounts: []*domain.Account{ar, cash},
		Partners: partners,
		Opening:  opening,
		Mutation: mutation,
		Limit:    1,
		Offset:   2,
	})
	if page.Total != 3 || len(page.Rows) != 1 || page.Rows[0].PartnerCode != "C003" {
		t.Fatalf("expected third row on its own page, got %+v", page)
	}

	past := BuildSubledger(SubledgerInput{Accounts: []*domain.Account{ar}, Mutation: mutation, Offset: 10})
	if len(past.Rows) != 0 {
		t.Fatalf("expected empty page past the end, got %d rows", len(past.Rows))
	}
}

func TestBuildLedgerRunningBalance(t *testing.T) {
	loan := account("loan", "2100", "Loan", domain.AccountTypeLiability)
	d1 := domain.Date(2025, 1, 10)
	d2 := domain.Date(2025, 1, 20)

	lines := []domain.LedgerLine{
		ledgerLine("e2", d2, "loan", "30", "0", 1),
		ledgerLine("e1", d1, "loan", "0", "100", 2),
	}

	l := BuildLedger(Range{}, loan, "", totals("loan", "0", "20"), lines)
	assertAmount(t, "opening", l.Opening, "20")
	if len(l.Rows) != 2 || l.Rows[0].EntryID != "e1" {
		t.Fatalf("expected rows in date order, got %+v", l.Rows)
	}
	assertAmount(t, "first balance", l.Rows[0].Balance, "120")
	assertAmount(t, "second balance", l.Rows[1].Balance, "90")
	assertAmount(t, "closing", l.Closing, "90")
	assertAmount(t, "total debit", l.TotalDebit, "30")
}
