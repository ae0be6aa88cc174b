package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// IncomeStatementOptions controls income statement classification.
type IncomeStatementOptions struct {
	TaxRate       decimal.Decimal
	UseCodeRule   bool
	ExcludedCodes []string
}

// Validate checks the tax rate.
func (o IncomeStatementOptions) Validate() error {
	if o.TaxRate.IsNegative() || o.TaxRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: tax rate must be between 0 and 1", domain.ErrValidation)
	}
	return nil
}

// IncomeStatement is the profit and loss statement for a range.
type IncomeStatement struct {
	Range              Range           `json:"range"`
	Revenue            Section         `json:"revenue"`
	COGS               Section         `json:"cogs"`
	OperatingExpenses  Section         `json:"operating_expenses"`
	OtherIncome        Section         `json:"other_income"`
	OtherExpenses      Section         `json:"other_expenses"`
	GrossProfit        decimal.Decimal `json:"gross_profit"`
	OperatingProfit    decimal.Decimal `json:"operating_profit"`
	NetProfitBeforeTax decimal.Decimal `json:"net_profit_before_tax"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	Tax                decimal.Decimal `json:"tax"`
	NetProfitAfterTax  decimal.Decimal `json:"net_profit_after_tax"`
}

// Profit returns the figure selected by basis.
func (s IncomeStatement) Profit(basis ProfitBasis) decimal.Decimal {
	switch basis {
	case ProfitBasisAfterTax:
		return s.NetProfitAfterTax
	case ProfitBasisOperating:
		return s.OperatingProfit
	default:
		return s.NetProfitBeforeTax
	}
}

// BuildIncomeStatement folds the period movement of profit and loss
// accounts. Opening balances are ignored.
func BuildIncomeStatement(r Range, balances []AccountBalance, opts IncomeStatementOptions) IncomeStatement {
	classifier := IncomeClassifier{UseCodeRule: opts.UseCodeRule, ExcludedCodes: opts.ExcludedCodes}

	is := IncomeStatement{
		Range:             r,
		Revenue:           newSection(string(IncomeRevenue), "Revenue"),
		COGS:              newSection(string(IncomeCOGS), "Cost of goods sold"),
		OperatingExpenses: newSection(string(IncomeOperatingExpense), "Operating expenses"),
		OtherIncome:       newSection(string(IncomeOtherIncome), "Other income"),
		OtherExpenses:     newSection(string(IncomeOtherExpense), "Other expenses"),
		TaxRate:           opts.TaxRate,
	}

	sections := map[IncomeCategory]*Section{
		IncomeRevenue:          &is.Revenue,
		IncomeCOGS:             &is.COGS,
		IncomeOperatingExpense: &is.OperatingExpenses,
		IncomeOtherIncome:      &is.OtherIncome,
		IncomeOtherExpense:     &is.OtherExpenses,
	}

	for _, b := range balances {
		if !b.Account.IsPostable {
			continue
		}
		section, ok := sections[classifier.Classify(b.Account)]
		if !ok {
			continue
		}
		amount := typeSigned(b.Account, b.Mutation)
		if domain.IsZeroMoney(amount) {
			continue
		}
		section.add(b.Account, amount)
	}

	is.GrossProfit = is.Revenue.Total.Sub(is.COGS.Total)
	is.OperatingProfit = is.GrossProfit.Sub(is.OperatingExpenses.Total)
	is.NetProfitBeforeTax = is.OperatingProfit.Add(is.OtherIncome.Total).Sub(is.OtherExpenses.Total)

	is.Tax = decimal.Zero
	if is.NetProfitBeforeTax.IsPositive() {
		is.Tax = domain.RoundMoney(is.NetProfitBeforeTax.Mul(opts.TaxRate))
	}
	is.NetProfitAfterTax = is.NetProfitBeforeTax.Sub(is.Tax)

	return is
}
