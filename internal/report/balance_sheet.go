package report

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// BalanceSheetOptions controls balance sheet output.
type BalanceSheetOptions struct {
	ProfitBasis ProfitBasis
	IncludeZero bool
}

// Virtual equity line keys.
const (
	LinePriorProfit   = "prior_profit"
	LineCurrentProfit = "current_profit"
)

// BalanceSheet is the statement of financial position at a date.
type BalanceSheet struct {
	AsOf                 time.Time       `json:"as_of"`
	ProfitBasis          ProfitBasis     `json:"profit_basis"`
	Assets               Section         `json:"assets"`
	Liabilities          Section         `json:"liabilities"`
	Equity               Section         `json:"equity"`
	CurrentProfit        decimal.Decimal `json:"current_profit"`
	LiabilitiesAndEquity decimal.Decimal `json:"liabilities_and_equity"`
	Difference           decimal.Decimal `json:"difference"`
	Balanced             bool            `json:"balanced"`
}

// BuildBalanceSheet builds a balance sheet from cumulative balances at asOf.
// priorProfit is profit of earlier years never closed into equity; income
// holds the current year's income statement.
func BuildBalanceSheet(asOf time.Time, balances []AccountBalance, priorProfit decimal.Decimal, income IncomeStatement, opts BalanceSheetOptions) BalanceSheet {
	if opts.ProfitBasis == "" {
		opts.ProfitBasis = ProfitBasisNet
	}

	bs := BalanceSheet{
		AsOf:        domain.NormalizeDate(asOf),
		ProfitBasis: opts.ProfitBasis,
		Assets:      newSection("assets", "Assets"),
		Liabilities: newSection("liabilities", "Liabilities"),
		Equity:      newSection("equity", "Equity"),
	}

	sections := map[domain.AccountType]*Section{
		domain.AccountTypeAsset:     &bs.Assets,
		domain.AccountTypeLiability: &bs.Liabilities,
		domain.AccountTypeEquity:    &bs.Equity,
	}

	for _, b := range balances {
		section, ok := sections[b.Account.Type]
		if !ok || !b.Account.IsPostable {
			continue
		}
		amount := typeSigned(b.Account, addTotals(b.Opening, b.Mutation))
		if !opts.IncludeZero && domain.IsZeroMoney(amount) {
			continue
		}
		section.add(b.Account, amount)
	}

	if !domain.IsZeroMoney(priorProfit) {
		bs.Equity.addVirtual(LinePriorProfit, "Retained profit (unclosed)", priorProfit)
	}

	bs.CurrentProfit = income.Profit(opts.ProfitBasis)
	bs.LiabilitiesAndEquity = bs.Liabilities.Total.Add(bs.Equity.Total).Add(bs.CurrentProfit)
	bs.Difference = bs.Assets.Total.Sub(bs.LiabilitiesAndEquity)
	bs.Balanced = withinCent(bs.Difference)

	return bs
}

func withinCent(d decimal.Decimal) bool {
	return domain.WithinCent(d, decimal.Zero)
}
