package report

import (
	"testing"

	"github.com/iho/gobooks/internal/domain"
)

func cashFlowAccounts() []*domain.Account {
	investing := domain.CashFlowInvesting
	financing := domain.CashFlowFinancing

	cash := account("cash", "1100", "Kas", domain.AccountTypeAsset)
	bank := account("bank", "1200", "Bank BCA", domain.AccountTypeAsset)
	equipment := account("equip", "1500", "Equipment", domain.AccountTypeAsset)
	equipment.CashFlowActivity = &investing
	loan := account("loan", "2500", "Bank loan", domain.AccountTypeLiability)
	loan.CashFlowActivity = &financing
	sales := account("sales", "4100", "Sales", domain.AccountTypeRevenue)
	tax := account("tax", "2200", "Tax payable", domain.AccountTypeLiability)

	return []*domain.Account{cash, bank, equipment, loan, sales, tax}
}

func TestCashResolverOrder(t *testing.T) {
	accounts := cashFlowAccounts()

	ids := CashResolver{}.Resolve(accounts)
	if len(ids) != 2 {
		t.Fatalf("expected name heuristic to find kas and bank, got %v", ids)
	}

	ids = CashResolver{Prefix: "12"}.Resolve(accounts)
	if len(ids) != 1 || ids[0] != "bank" {
		t.Fatalf("expected prefix to select bank, got %v", ids)
	}

	cashClass := domain.CashFlowCash
	accounts[0].CashFlowActivity = &cashClass
	ids = CashResolver{Prefix: "12"}.Resolve(accounts)
	if len(ids) != 1 || ids[0] != "cash" {
		t.Fatalf("expected classification to win over prefix, got %v", ids)
	}

	ids = CashResolver{AccountIDs: []string{"bank"}}.Resolve(accounts)
	if len(ids) != 1 || ids[0] != "bank" {
		t.Fatalf("expected explicit ids to win, got %v", ids)
	}

	ids = CashResolver{AccountIDs: []string{"sales"}}.Resolve(accounts)
	if len(ids) != 0 {
		t.Fatalf("expected non-asset explicit id to resolve nothing, got %v", ids)
	}
}

func TestBuildCashFlowAllocatesAndReconciles(t *testing.T) {
	d := domain.Date(2025, 3, 1)
	lines := []domain.LedgerLine{
		// Sale with tax: 110 in, split 100 sales / 10 tax.
		ledgerLine("e1", d, "cash", "110", "0", 1),
		ledgerLine("e1", d, "sales", "0", "100", 2),
		ledgerLine("e1", d, "tax", "0", "10", 3),
		// Equipment bought from the bank.
		ledgerLine("e2", d, "equip", "500", "0", 1),
		ledgerLine("e2", d, "bank", "0", "500", 2),
		// Loan drawdown.
		ledgerLine("e3", d, "bank", "1000", "0", 1),
		ledgerLine("e3", d, "loan", "0", "1000", 2),
		// Transfer between cash accounts.
		ledgerLine("e4", d, "cash", "50", "0", 1),
		ledgerLine("e4", d, "bank", "0", "50", 2),
	}

	cf := BuildCashFlow(CashFlowInput{
		Accounts: cashFlowAccounts(),
		CashIDs:  []string{"cash", "bank"},
		Begin:    dec("200"),
		End:      dec("810"),
		Lines:    lines,
	})

	assertAmount(t, "operating", cf.Operating.Total, "110")
	assertAmount(t, "investing", cf.Investing.Total, "-500")
	assertAmount(t, "financing", cf.Financing.Total, "1000")
	assertAmount(t, "net change", cf.NetChange, "610")
	assertAmount(t, "transfers", cf.Transfers, "50")
	if cf.TransferCount != 1 {
		t.Fatalf("expected one transfer, got %d", cf.TransferCount)
	}
	if !cf.Reconciled {
		t.Fatalf("expected reconciled cash flow, difference %s", cf.Difference)
	}
	if len(cf.CashAccounts) != 2 || cf.CashAccounts[0].Code != "1100" {
		t.Fatalf("expected cash accounts ordered by code, got %+v", cf.CashAccounts)
	}
}

func TestAllocateRemainderToLastLine(t *testing.T) {
	d := domain.Date(2025, 1, 1)
	lines := []domain.LedgerLine{
		ledgerLine("e", d, "a", "0", "1", 1),
		ledgerLine("e", d, "b", "0", "1", 2),
		ledgerLine("e", d, "c", "0", "1", 3),
	}

	shares := allocate(100, lines)
	if shares[0] != 33 || shares[1] != 33 || shares[2] != 34 {
		t.Fatalf("expected 33/33/34, got %v", shares)
	}

	shares = allocate(-100, lines)
	var sum int64
	for _, s := range shares {
		sum += s
	}
	if sum != -100 {
		t.Fatalf("expected shares to sum to -100, got %d", sum)
	}
}

func TestBuildCashFlowPartialCashEffect(t *testing.T) {
	d := domain.Date(2025, 5, 1)
	// Sale of 300 settled 100 in cash and 200 on credit.
	receivable := account("ar", "1300", "Receivable", domain.AccountTypeAsset)
	accounts := append(cashFlowAccounts(), receivable)
	lines := []domain.LedgerLine{
		ledgerLine("e1", d, "cash", "100", "0", 1),
		ledgerLine("e1", d, "ar", "200", "0", 2),
		ledgerLine("e1", d, "sales", "0", "300", 3),
	}

	cf := BuildCashFlow(CashFlowInput{
		Accounts: accounts,
		CashIDs:  []string{"cash"},
		Begin:    dec("0"),
		End:      dec("100"),
		Lines:    lines,
	})

	assertAmount(t, "net change", cf.NetChange, "100")
	if !cf.Reconciled {
		t.Fatalf("expected reconciled cash flow")
	}
}
