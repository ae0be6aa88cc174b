package report

import (
	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// TrialBalanceOptions controls trial balance output.
type TrialBalanceOptions struct {
	IncludeZero   bool
	IncludeHeader bool
	Grouping      Grouping
}

// TrialBalanceRow is one account of the trial balance.
type TrialBalanceRow struct {
	ParentID       *string            `json:"parent_id,omitempty"`
	AccountID      string             `json:"account_id"`
	Code           string             `json:"code"`
	Name           string             `json:"name"`
	Type           domain.AccountType `json:"type"`
	NormalBalance  domain.Side        `json:"normal_balance"`
	OpeningDebit   decimal.Decimal    `json:"opening_debit"`
	OpeningCredit  decimal.Decimal    `json:"opening_credit"`
	MutationDebit  decimal.Decimal    `json:"mutation_debit"`
	MutationCredit decimal.Decimal    `json:"mutation_credit"`
	ClosingDebit   decimal.Decimal    `json:"closing_debit"`
	ClosingCredit  decimal.Decimal    `json:"closing_credit"`
	ClosingSigned  decimal.Decimal    `json:"closing_signed"`
	Level          int                `json:"level"`
	IsHeader       bool               `json:"is_header"`
}

// TrialBalanceTotals sums the postable rows.
type TrialBalanceTotals struct {
	OpeningDebit   decimal.Decimal `json:"opening_debit"`
	OpeningCredit  decimal.Decimal `json:"opening_credit"`
	MutationDebit  decimal.Decimal `json:"mutation_debit"`
	MutationCredit decimal.Decimal `json:"mutation_credit"`
	ClosingDebit   decimal.Decimal `json:"closing_debit"`
	ClosingCredit  decimal.Decimal `json:"closing_credit"`
}

func (t *TrialBalanceTotals) add(r TrialBalanceRow) {
	t.OpeningDebit = t.OpeningDebit.Add(r.OpeningDebit)
	t.OpeningCredit = t.OpeningCredit.Add(r.OpeningCredit)
	t.MutationDebit = t.MutationDebit.Add(r.MutationDebit)
	t.MutationCredit = t.MutationCredit.Add(r.MutationCredit)
	t.ClosingDebit = t.ClosingDebit.Add(r.ClosingDebit)
	t.ClosingCredit = t.ClosingCredit.Add(r.ClosingCredit)
}

func zeroTotals() TrialBalanceTotals {
	return TrialBalanceTotals{
		OpeningDebit: decimal.Zero, OpeningCredit: decimal.Zero,
		MutationDebit: decimal.Zero, MutationCredit: decimal.Zero,
		ClosingDebit: decimal.Zero, ClosingCredit: decimal.Zero,
	}
}

// TrialBalanceSection groups rows of one account type.
type TrialBalanceSection struct {
	Type     domain.AccountType `json:"type"`
	Rows     []TrialBalanceRow  `json:"rows"`
	Subtotal TrialBalanceTotals `json:"subtotal"`
}

// TrialBalance lists opening, mutation and closing balances per account.
type TrialBalance struct {
	Range    Range                 `json:"range"`
	Grouping Grouping              `json:"grouping"`
	Rows     []TrialBalanceRow     `json:"rows"`
	Sections []TrialBalanceSection `json:"sections,omitempty"`
	Totals   TrialBalanceTotals    `json:"totals"`
	Balanced bool                  `json:"balanced"`
}

var typeOrder = []domain.AccountType{
	domain.AccountTypeAsset,
	domain.AccountTypeLiability,
	domain.AccountTypeEquity,
	domain.AccountTypeRevenue,
	domain.AccountTypeExpense,
}

// BuildTrialBalance builds a trial balance from per-account balances, which
// must include header accounts when opts.IncludeHeader is set.
func BuildTrialBalance(r Range, balances []AccountBalance, opts TrialBalanceOptions) TrialBalance {
	if opts.Grouping == "" {
		opts.Grouping = GroupingSimple
	}

	tree := newAccountTree(balances)
	tb := TrialBalance{Range: r, Grouping: opts.Grouping, Rows: []TrialBalanceRow{}, Totals: zeroTotals()}

	for _, b := range balances {
		header := !b.Account.IsPostable
		if header {
			if !opts.IncludeHeader {
				continue
			}
			b = tree.rollup(b)
		}
		if !opts.IncludeZero && b.IsZero() {
			continue
		}

		row := trialBalanceRow(b)
		row.IsHeader = header
		row.Level = tree.level(b.Account)
		tb.Rows = append(tb.Rows, row)

		if !header {
			tb.Totals.add(row)
		}
	}

	if opts.Grouping == GroupingExcel {
		tb.Sections = groupByType(tb.Rows)
	}

	tb.Balanced = domain.EqualMoney(tb.Totals.ClosingDebit, tb.Totals.ClosingCredit)
	return tb
}

func trialBalanceRow(b AccountBalance) TrialBalanceRow {
	a := b.Account
	openDebit, openCredit := domain.SplitSigned(a.NormalBalance, b.OpeningSigned())
	closing := b.ClosingSigned()
	closeDebit, closeCredit := domain.SplitSigned(a.NormalBalance, closing)

	return TrialBalanceRow{
		ParentID:       a.ParentID,
		AccountID:      a.ID,
		Code:           a.Code,
		Name:           a.Name,
		Type:           a.Type,
		NormalBalance:  a.NormalBalance,
		OpeningDebit:   openDebit,
		OpeningCredit:  openCredit,
		MutationDebit:  b.Mutation.Debit,
		MutationCredit: b.Mutation.Credit,
		ClosingDebit:   closeDebit,
		ClosingCredit:  closeCredit,
		ClosingSigned:  closing,
	}
}

func groupByType(rows []TrialBalanceRow) []TrialBalanceSection {
	sections := make([]TrialBalanceSection, 0, len(typeOrder))
	for _, t := range typeOrder {
		section := TrialBalanceSection{Type: t, Rows: []TrialBalanceRow{}, Subtotal: zeroTotals()}
		for _, row := range rows {
			if row.Type != t {
				continue
			}
			section.Rows = append(section.Rows, row)
			if !row.IsHeader {
				section.Subtotal.add(row)
			}
		}
		sections = append(sections, section)
	}
	return sections
}

// accountTree indexes the parent links of a balance set.
type accountTree struct {
	byID     map[string]AccountBalance
	children map[string][]string
}

func newAccountTree(balances []AccountBalance) accountTree {
	t := accountTree{
		byID:     make(map[string]AccountBalance, len(balances)),
		children: make(map[string][]string),
	}
	for _, b := range balances {
		t.byID[b.Account.ID] = b
		if b.Account.ParentID != nil {
			t.children[*b.Account.ParentID] = append(t.children[*b.Account.ParentID], b.Account.ID)
		}
	}
	return t
}

// level is the depth of a below its topmost known ancestor.
func (t accountTree) level(a *domain.Account) int {
	level := 0
	for p := a.ParentID; p != nil && level < domain.MaxHierarchyDepth; level++ {
		parent, ok := t.byID[*p]
		if !ok {
			break
		}
		p = parent.Account.ParentID
	}
	return level
}

// rollup returns b with the totals of all postable descendants added.
func (t accountTree) rollup(b AccountBalance) AccountBalance {
	out := AccountBalance{Account: b.Account, Opening: b.Opening, Mutation: b.Mutation}
	seen := map[string]bool{b.Account.ID: true}
	stack := append([]string(nil), t.children[b.Account.ID]...)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true

		child, ok := t.byID[id]
		if !ok {
			continue
		}
		if child.Account.IsPostable {
			out.Opening = addTotals(out.Opening, child.Opening)
			out.Mutation = addTotals(out.Mutation, child.Mutation)
		}
		stack = append(stack, t.children[id]...)
	}

	return out
}

func addTotals(a, b domain.AccountTotals) domain.AccountTotals {
	return domain.AccountTotals{
		AccountID: a.AccountID,
		Debit:     a.Debit.Add(b.Debit),
		Credit:    a.Credit.Add(b.Credit),
	}
}
