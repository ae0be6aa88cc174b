package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// MaxBuckets bounds the number of chart buckets per request.
const MaxBuckets = 120

// Bucket is one chart window.
type Bucket struct {
	Label string `json:"label"`
	Range
}

// Buckets splits r into calendar months or quarters clipped to r.
func Buckets(r Range, interval Interval) ([]Bucket, error) {
	months := 1
	if interval == IntervalQuarter {
		months = 3
	}

	var out []Bucket
	start := r.From
	for !start.After(r.To) {
		periodStart := domain.Date(start.Year(), start.Month()-time.Month((int(start.Month())-1)%months), 1)
		next := periodStart.AddDate(0, months, 0)
		end := next.AddDate(0, 0, -1)
		if end.After(r.To) {
			end = r.To
		}

		out = append(out, Bucket{Label: bucketLabel(periodStart, interval), Range: Range{From: start, To: end}})
		if len(out) > MaxBuckets {
			return nil, fmt.Errorf("%w: range spans more than %d buckets", domain.ErrValidation, MaxBuckets)
		}
		start = next
	}

	return out, nil
}

func bucketLabel(t time.Time, interval Interval) string {
	if interval == IntervalQuarter {
		return fmt.Sprintf("%d-Q%d", t.Year(), (int(t.Month())-1)/3+1)
	}
	return t.Format("2006-01")
}

// ChartPoint holds the series values of one bucket.
type ChartPoint struct {
	Bucket
	Values map[string]decimal.Decimal `json:"values"`
}

// Chart is a set of series over buckets.
type Chart struct {
	Kind     ChartKind    `json:"kind"`
	Interval Interval     `json:"interval"`
	Series   []string     `json:"series"`
	Points   []ChartPoint `json:"points"`
}

// ChartSeries lists the series extracted for each kind.
var ChartSeries = map[ChartKind][]string{
	ChartIncome:   {"revenue", "expenses", "net_profit"},
	ChartBalance:  {"assets", "liabilities", "equity"},
	ChartCashFlow: {"operating", "investing", "financing", "net_change"},
	ChartTrial:    {"debit", "credit"},
}

// IncomeValues extracts chart values from an income statement.
func IncomeValues(s IncomeStatement) map[string]decimal.Decimal {
	expenses := s.COGS.Total.Add(s.OperatingExpenses.Total).Add(s.OtherExpenses.Total)
	return map[string]decimal.Decimal{
		"revenue":    s.Revenue.Total.Add(s.OtherIncome.Total),
		"expenses":   expenses,
		"net_profit": s.NetProfitBeforeTax,
	}
}

// BalanceValues extracts chart values from a balance sheet.
func BalanceValues(s BalanceSheet) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"assets":      s.Assets.Total,
		"liabilities": s.Liabilities.Total,
		"equity":      s.Equity.Total.Add(s.CurrentProfit),
	}
}

// CashFlowValues extracts chart values from a cash flow statement.
func CashFlowValues(s CashFlow) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"operating":  s.Operating.Total,
		"investing":  s.Investing.Total,
		"financing":  s.Financing.Total,
		"net_change": s.NetChange,
	}
}

// TrialValues extracts chart values from a trial balance.
func TrialValues(s TrialBalance) map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"debit":  s.Totals.MutationDebit,
		"credit": s.Totals.MutationCredit,
	}
}
