package report

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

func TestNewRangeRejectsInvertedRange(t *testing.T) {
	_, err := NewRange(domain.Date(2025, 2, 1), domain.Date(2025, 1, 1))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestParseEnums(t *testing.T) {
	if g, err := ParseGrouping(""); err != nil || g != GroupingSimple {
		t.Fatalf("expected default simple grouping, got %q %v", g, err)
	}
	if b, err := ParseProfitBasis(""); err != nil || b != ProfitBasisNet {
		t.Fatalf("expected default net basis, got %q %v", b, err)
	}
	if _, err := ParseChartKind("pie"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown chart kind, got %v", err)
	}
	if _, err := ParseInterval("week"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown interval, got %v", err)
	}
}

func sampleBalances() []AccountBalance {
	cash := account("cash", "1100", "Kas Besar", domain.AccountTypeAsset)
	payable := account("ap", "2100", "Accounts payable", domain.AccountTypeLiability)
	capital := account("cap", "3100", "Modal disetor", domain.AccountTypeEquity)
	sales := account("sales", "4100", "Sales", domain.AccountTypeRevenue)
	cogs := account("cogs", "5100", "Cost of goods", domain.AccountTypeExpense)
	rent := account("rent", "6100", "Rent", domain.AccountTypeExpense)

	return Combine(
		[]*domain.Account{rent, cash, payable, capital, sales, cogs},
		map[string]domain.AccountTotals{
			"cash": totals("cash", "1000.00", "0"),
			"cap":  totals("cap", "0", "1000.00"),
		},
		map[string]domain.AccountTotals{
			"cash":  totals("cash", "1500.00", "600.00"),
			"ap":    totals("ap", "0", "100.00"),
			"sales": totals("sales", "0", "1500.00"),
			"cogs":  totals("cogs", "400.00", "0"),
			"rent":  totals("rent", "300.00", "0"),
		},
	)
}

func TestCombineOrdersByCode(t *testing.T) {
	balances := sampleBalances()
	if balances[0].Account.Code != "1100" || balances[len(balances)-1].Account.Code != "6100" {
		t.Fatalf("expected balances ordered by code, got %s..%s",
			balances[0].Account.Code, balances[len(balances)-1].Account.Code)
	}
	for _, b := range balances {
		if b.Account.ID == "ap" && !b.Opening.Debit.IsZero() {
			t.Fatalf("expected zero opening for account without totals")
		}
	}
}

func TestBuildIncomeStatement(t *testing.T) {
	r := mustRange(t, "2025-01-01", "2025-12-31")
	is := BuildIncomeStatement(r, sampleBalances(), IncomeStatementOptions{TaxRate: dec("0.22")})

	assertAmount(t, "revenue", is.Revenue.Total, "1500")
	assertAmount(t, "cogs", is.COGS.Total, "400")
	assertAmount(t, "opex", is.OperatingExpenses.Total, "300")
	assertAmount(t, "gross", is.GrossProfit, "1100")
	assertAmount(t, "operating", is.OperatingProfit, "800")
	assertAmount(t, "net", is.NetProfitBeforeTax, "800")
	assertAmount(t, "tax", is.Tax, "176")
	assertAmount(t, "after tax", is.NetProfitAfterTax, "624")

	if !is.Profit(ProfitBasisAfterTax).Equal(is.NetProfitAfterTax) {
		t.Fatalf("expected after tax basis to select net profit after tax")
	}
}

func TestIncomeStatementNoTaxOnLoss(t *testing.T) {
	rent := account("rent", "6100", "Rent", domain.AccountTypeExpense)
	balances := Combine([]*domain.Account{rent}, nil, map[string]domain.AccountTotals{
		"rent": totals("rent", "50.00", "0"),
	})

	is := BuildIncomeStatement(Range{}, balances, IncomeStatementOptions{TaxRate: dec("0.5")})
	assertAmount(t, "net", is.NetProfitBeforeTax, "-50")
	assertAmount(t, "tax", is.Tax, "0")
}

func TestIncomeStatementOptionsValidate(t *testing.T) {
	if err := (IncomeStatementOptions{TaxRate: dec("1.5")}).Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := (IncomeStatementOptions{TaxRate: decimal.Zero}).Validate(); err != nil {
		t.Fatalf("expected zero tax rate to be valid, got %v", err)
	}
}

func TestBuildBalanceSheetBalances(t *testing.T) {
	balances := sampleBalances()
	is := BuildIncomeStatement(Range{}, balances, IncomeStatementOptions{})
	bs := BuildBalanceSheet(domain.Date(2025, 12, 31), balances, decimal.Zero, is, BalanceSheetOptions{})

	assertAmount(t, "assets", bs.Assets.Total, "1900")
	assertAmount(t, "liabilities", bs.Liabilities.Total, "100")
	assertAmount(t, "equity", bs.Equity.Total, "1000")
	assertAmount(t, "current profit", bs.CurrentProfit, "800")
	if !bs.Balanced {
		t.Fatalf("expected balance sheet to balance, difference %s", bs.Difference)
	}
}

func TestBuildBalanceSheetPriorProfitLine(t *testing.T) {
	cash := account("cash", "1100", "Cash", domain.AccountTypeAsset)
	balances := Combine([]*domain.Account{cash}, nil, map[string]domain.AccountTotals{
		"cash": totals("cash", "250.00", "0"),
	})

	bs := BuildBalanceSheet(time.Now(), balances, dec("250"), IncomeStatement{}, BalanceSheetOptions{})
	if len(bs.Equity.Lines) != 1 || bs.Equity.Lines[0].Code != LinePriorProfit {
		t.Fatalf("expected prior profit line, got %+v", bs.Equity.Lines)
	}
	if !bs.Balanced {
		t.Fatalf("expected balance sheet to balance with prior profit")
	}
}

func TestBalanceSheetUsesTypeSign(t *testing.T) {
	// A contra asset configured with a credit normal balance still reduces assets.
	cash := account("cash", "1100", "Cash", domain.AccountTypeAsset)
	depr := account("depr", "1900", "Accumulated depreciation", domain.AccountTypeAsset)
	depr.NormalBalance = domain.SideCredit
	capital := account("cap", "3100", "Capital", domain.AccountTypeEquity)

	balances := Combine([]*domain.Account{cash, depr, capital}, nil, map[string]domain.AccountTotals{
		"cash": totals("cash", "100", "0"),
		"depr": totals("depr", "0", "30"),
		"cap":  totals("cap", "0", "70"),
	})

	bs := BuildBalanceSheet(time.Now(), balances, decimal.Zero, IncomeStatement{}, BalanceSheetOptions{})
	assertAmount(t, "assets", bs.Assets.Total, "70")
	if !bs.Balanced {
		t.Fatalf("expected balance sheet to balance")
	}
}

func TestBuildEquityStatement(t *testing.T) {
	capital := account("cap", "3100", "Modal disetor", domain.AccountTypeEquity)
	prive := account("prive", "3200", "Prive pemilik", domain.AccountTypeEquity)
	retained := account("re", "3300", "Retained earnings", domain.AccountTypeEquity)

	balances := Combine([]*domain.Account{capital, prive, retained},
		map[string]domain.AccountTotals{"cap": totals("cap", "0", "1000")},
		map[string]domain.AccountTotals{
			"cap":   totals("cap", "0", "500"),
			"prive": totals("prive", "200", "0"),
		})

	es := BuildEquityStatement(Range{}, balances, dec("300"), true)
	assertAmount(t, "opening", es.Opening, "1000")
	assertAmount(t, "closing", es.Closing, "1600")

	want := map[EquityCategory]string{EquityCapital: "500", EquityDividend: "-200", EquityAdjustment: "0", EquityOther: "0"}
	for _, m := range es.Movements {
		assertAmount(t, string(m.Category), m.Amount, want[m.Category])
	}
	if len(es.Rows) != 2 {
		t.Fatalf("expected zero retained earnings row to be skipped, got %d rows", len(es.Rows))
	}

	without := BuildEquityStatement(Range{}, balances, dec("300"), false)
	assertAmount(t, "closing without profit", without.Closing, "1300")
}

func TestBuildWorksheetCrossChecks(t *testing.T) {
	ws := BuildWorksheet(Range{}, sampleBalances(), false)
	assertAmount(t, "pnl profit", ws.PnLProfit, "800")
	assertAmount(t, "bs profit", ws.BSProfit, "800")
	if !ws.Balanced {
		t.Fatalf("expected worksheet to balance")
	}
	if !ws.Totals.AdjustedDebit.Equal(ws.Totals.AdjustedCredit) {
		t.Fatalf("expected adjusted columns to agree, got %s/%s", ws.Totals.AdjustedDebit, ws.Totals.AdjustedCredit)
	}
}
