package report

import (
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// WorksheetRow spreads one account across the worksheet columns.
type WorksheetRow struct {
	AccountID      string             `json:"account_id"`
	Code           string             `json:"code"`
	Name           string             `json:"name"`
	Type           domain.AccountType `json:"type"`
	OpeningDebit   decimal.Decimal    `json:"opening_debit"`
	OpeningCredit  decimal.Decimal    `json:"opening_credit"`
	MutationDebit  decimal.Decimal    `json:"mutation_debit"`
	MutationCredit decimal.Decimal    `json:"mutation_credit"`
	AdjustedDebit  decimal.Decimal    `json:"adjusted_debit"`
	AdjustedCredit decimal.Decimal    `json:"adjusted_credit"`
	PnLDebit       decimal.Decimal    `json:"pnl_debit"`
	PnLCredit      decimal.Decimal    `json:"pnl_credit"`
	BSDebit        decimal.Decimal    `json:"bs_debit"`
	BSCredit       decimal.Decimal    `json:"bs_credit"`
}

func (r *WorksheetRow) add(o WorksheetRow) {
	r.OpeningDebit = r.OpeningDebit.Add(o.OpeningDebit)
	r.OpeningCredit = r.OpeningCredit.Add(o.OpeningCredit)
	r.MutationDebit = r.MutationDebit.Add(o.MutationDebit)
	r.MutationCredit = r.MutationCredit.Add(o.MutationCredit)
	r.AdjustedDebit = r.AdjustedDebit.Add(o.AdjustedDebit)
	r.AdjustedCredit = r.AdjustedCredit.Add(o.AdjustedCredit)
	r.PnLDebit = r.PnLDebit.Add(o.PnLDebit)
	r.PnLCredit = r.PnLCredit.Add(o.PnLCredit)
	r.BSDebit = r.BSDebit.Add(o.BSDebit)
	r.BSCredit = r.BSCredit.Add(o.BSCredit)
}

// Worksheet is the columnar cross-check between profit and loss and the
// balance sheet.
type Worksheet struct {
	Range     Range           `json:"range"`
	Rows      []WorksheetRow  `json:"rows"`
	Totals    WorksheetRow    `json:"totals"`
	PnLProfit decimal.Decimal `json:"pnl_profit"`
	BSProfit  decimal.Decimal `json:"bs_profit"`
	Balanced  bool            `json:"balanced"`
}

// BuildWorksheet builds the worksheet over postable accounts.
func BuildWorksheet(r Range, balances []AccountBalance, includeZero bool) Worksheet {
	ws := Worksheet{Range: r, Rows: []WorksheetRow{}}

	for _, b := range balances {
		if !b.Account.IsPostable || (!includeZero && b.IsZero()) {
			continue
		}

		tb := trialBalanceRow(b)
		row := WorksheetRow{
			AccountID:      tb.AccountID,
			Code:           tb.Code,
			Name:           tb.Name,
			Type:           tb.Type,
			OpeningDebit:   tb.OpeningDebit,
			OpeningCredit:  tb.OpeningCredit,
			MutationDebit:  tb.MutationDebit,
			MutationCredit: tb.MutationCredit,
			AdjustedDebit:  tb.ClosingDebit,
			AdjustedCredit: tb.ClosingCredit,
			PnLDebit:       decimal.Zero,
			PnLCredit:      decimal.Zero,
			BSDebit:        decimal.Zero,
			BSCredit:       decimal.Zero,
		}
		if b.Account.Type.IsProfitAndLoss() {
			row.PnLDebit, row.PnLCredit = tb.ClosingDebit, tb.ClosingCredit
		} else {
			row.BSDebit, row.BSCredit = tb.ClosingDebit, tb.ClosingCredit
		}

		ws.Rows = append(ws.Rows, row)
		ws.Totals.add(row)
	}

	ws.PnLProfit = ws.Totals.PnLCredit.Sub(ws.Totals.PnLDebit)
	ws.BSProfit = ws.Totals.BSDebit.Sub(ws.Totals.BSCredit)
	ws.Balanced = withinCent(ws.PnLProfit.Sub(ws.BSProfit))

	return ws
}
