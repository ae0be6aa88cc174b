// Package report folds posted ledger totals into financial statements.
// Builders are pure: callers load accounts and totals and pass them in.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// AccountBalance carries one account's raw opening and period totals.
type AccountBalance struct {
	Account  *domain.Account
	Opening  domain.AccountTotals
	Mutation domain.AccountTotals
}

// OpeningSigned is the opening balance relative to the account's normal side.
func (b AccountBalance) OpeningSigned() decimal.Decimal {
	return b.Opening.Signed(b.Account.NormalBalance)
}

// MutationSigned is the period movement relative to the account's normal side.
func (b AccountBalance) MutationSigned() decimal.Decimal {
	return b.Mutation.Signed(b.Account.NormalBalance)
}

// ClosingSigned is opening plus mutation, relative to the normal side.
func (b AccountBalance) ClosingSigned() decimal.Decimal {
	return b.OpeningSigned().Add(b.MutationSigned())
}

// ClosingNet is the closing debit minus credit.
func (b AccountBalance) ClosingNet() decimal.Decimal {
	return b.Opening.Debit.Sub(b.Opening.Credit).Add(b.Mutation.Debit).Sub(b.Mutation.Credit)
}

// IsZero reports whether the account has neither balance nor movement.
func (b AccountBalance) IsZero() bool {
	return domain.IsZeroMoney(b.Opening.Debit.Sub(b.Opening.Credit)) &&
		domain.IsZeroMoney(b.Mutation.Debit) &&
		domain.IsZeroMoney(b.Mutation.Credit)
}

// Combine pairs accounts with their totals, ordered by account code.
// Accounts without totals get zero totals.
func Combine(accounts []*domain.Account, opening, mutation map[string]domain.AccountTotals) []AccountBalance {
	out := make([]AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountBalance{
			Account:  a,
			Opening:  totalsOrZero(opening, a.ID),
			Mutation: totalsOrZero(mutation, a.ID),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Account.Code < out[j].Account.Code
	})

	return out
}

func totalsOrZero(m map[string]domain.AccountTotals, id string) domain.AccountTotals {
	if t, ok := m[id]; ok {
		return t
	}
	return domain.AccountTotals{AccountID: id, Debit: decimal.Zero, Credit: decimal.Zero}
}

// typeSigned signs totals by account type rather than by the account's
// configured normal balance, so statement identities hold even when a
// normal balance was overridden.
func typeSigned(a *domain.Account, t domain.AccountTotals) decimal.Decimal {
	return t.Signed(domain.DefaultNormalBalance(a.Type))
}

// Range is an inclusive calendar date range.
type Range struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewRange validates and normalizes a range.
func NewRange(from, to time.Time) (Range, error) {
	if from.IsZero() || to.IsZero() {
		return Range{}, fmt.Errorf("%w: from and to are required", domain.ErrValidation)
	}

	r := Range{From: domain.NormalizeDate(from), To: domain.NormalizeDate(to)}
	if r.To.Before(r.From) {
		return Range{}, fmt.Errorf("%w: to is before from", domain.ErrValidation)
	}

	return r, nil
}

// Line is one account on a statement.
type Line struct {
	AccountID string          `json:"account_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// Section is a titled group of statement lines with a total.
type Section struct {
	Key   string          `json:"key"`
	Title string          `json:"title"`
	Lines []Line          `json:"lines"`
	Total decimal.Decimal `json:"total"`
}

func newSection(key, title string) Section {
	return Section{Key: key, Title: title, Lines: []Line{}, Total: decimal.Zero}
}

func (s *Section) add(a *domain.Account, amount decimal.Decimal) {
	s.Lines = append(s.Lines, Line{AccountID: a.ID, Code: a.Code, Name: a.Name, Amount: amount})
	s.Total = s.Total.Add(amount)
}

func (s *Section) addVirtual(key, name string, amount decimal.Decimal) {
	s.Lines = append(s.Lines, Line{Code: key, Name: name, Amount: amount})
	s.Total = s.Total.Add(amount)
}
