package report

import (
	"fmt"

	"github.com/iho/gobooks/internal/domain"
)

// Grouping selects the trial balance layout.
type Grouping string

const (
	GroupingSimple Grouping = "simple"
	GroupingExcel  Grouping = "excel"
)

// ParseGrouping parses a grouping, defaulting to simple.
func ParseGrouping(s string) (Grouping, error) {
	switch Grouping(s) {
	case "", GroupingSimple:
		return GroupingSimple, nil
	case GroupingExcel:
		return GroupingExcel, nil
	}
	return "", fmt.Errorf("%w: unknown grouping %q", domain.ErrValidation, s)
}

// ProfitBasis selects which income statement figure the balance sheet
// carries as current period profit.
type ProfitBasis string

const (
	ProfitBasisAfterTax  ProfitBasis = "after_tax"
	ProfitBasisOperating ProfitBasis = "operating"
	ProfitBasisNet       ProfitBasis = "net"
)

// ParseProfitBasis parses a profit basis, defaulting to net.
func ParseProfitBasis(s string) (ProfitBasis, error) {
	switch ProfitBasis(s) {
	case "", ProfitBasisNet:
		return ProfitBasisNet, nil
	case ProfitBasisAfterTax, ProfitBasisOperating:
		return ProfitBasis(s), nil
	}
	return "", fmt.Errorf("%w: unknown profit basis %q", domain.ErrValidation, s)
}

// ChartKind selects the report a chart is built from.
type ChartKind string

const (
	ChartIncome   ChartKind = "income"
	ChartBalance  ChartKind = "balance"
	ChartCashFlow ChartKind = "cash_flow"
	ChartTrial    ChartKind = "trial"
)

// ParseChartKind parses a chart kind.
func ParseChartKind(s string) (ChartKind, error) {
	switch ChartKind(s) {
	case ChartIncome, ChartBalance, ChartCashFlow, ChartTrial:
		return ChartKind(s), nil
	}
	return "", fmt.Errorf("%w: unknown chart kind %q", domain.ErrValidation, s)
}

// Interval is the width of a chart bucket.
type Interval string

const (
	IntervalMonth   Interval = "month"
	IntervalQuarter Interval = "quarter"
)

// ParseInterval parses an interval, defaulting to month.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case "", IntervalMonth:
		return IntervalMonth, nil
	case IntervalQuarter:
		return IntervalQuarter, nil
	}
	return "", fmt.Errorf("%w: unknown interval %q", domain.ErrValidation, s)
}
