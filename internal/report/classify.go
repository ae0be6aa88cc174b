package report

import (
	"slices"
	"strings"

	"github.com/iho/gobooks/internal/domain"
)

// IncomeCategory is an income statement section.
type IncomeCategory string

const (
	IncomeNone             IncomeCategory = ""
	IncomeRevenue          IncomeCategory = "revenue"
	IncomeCOGS             IncomeCategory = "cogs"
	IncomeOperatingExpense IncomeCategory = "operating_expense"
	IncomeOtherIncome      IncomeCategory = "other_income"
	IncomeOtherExpense     IncomeCategory = "other_expense"
)

// DefaultExcludedCodes are income summary accounts kept off the income statement.
var DefaultExcludedCodes = []string{"3999", "9999"}

const (
	cogsPrefix         = "5"
	otherIncomePrefix  = "7"
	otherExpensePrefix = "8"
)

// IncomeClassifier places profit and loss accounts into income statement sections.
type IncomeClassifier struct {
	UseCodeRule   bool
	ExcludedCodes []string
}

// Classify returns the section of a, or IncomeNone when a is not reported.
func (c IncomeClassifier) Classify(a *domain.Account) IncomeCategory {
	if slices.Contains(c.excluded(), a.Code) {
		return IncomeNone
	}

	switch a.Type {
	case domain.AccountTypeRevenue:
		if c.UseCodeRule && strings.HasPrefix(a.Code, otherIncomePrefix) {
			return IncomeOtherIncome
		}
		return IncomeRevenue
	case domain.AccountTypeExpense:
		switch {
		case strings.HasPrefix(a.Code, cogsPrefix):
			return IncomeCOGS
		case c.UseCodeRule && strings.HasPrefix(a.Code, otherExpensePrefix):
			return IncomeOtherExpense
		}
		return IncomeOperatingExpense
	}

	return IncomeNone
}

func (c IncomeClassifier) excluded() []string {
	if c.ExcludedCodes == nil {
		return DefaultExcludedCodes
	}
	return c.ExcludedCodes
}

// CashResolver picks the accounts treated as cash.
type CashResolver struct {
	AccountIDs []string
	Prefix     string
}

var cashNameHints = []string{"kas", "bank", "cash"}

// Resolve returns the ids of cash accounts. The first rule that yields any
// account wins: explicit ids, cash classification, code prefix, name.
func (r CashResolver) Resolve(accounts []*domain.Account) []string {
	candidates := make([]*domain.Account, 0, len(accounts))
	for _, a := range accounts {
		if a.Type == domain.AccountTypeAsset && a.IsPostable && a.DeletedAt == nil {
			candidates = append(candidates, a)
		}
	}

	rules := []func(*domain.Account) bool{
		func(a *domain.Account) bool { return slices.Contains(r.AccountIDs, a.ID) },
		func(a *domain.Account) bool { return a.IsCashFlowClass(domain.CashFlowCash) },
		func(a *domain.Account) bool { return r.Prefix != "" && strings.HasPrefix(a.Code, r.Prefix) },
		func(a *domain.Account) bool {
			name := strings.ToLower(a.Name)
			for _, hint := range cashNameHints {
				if strings.Contains(name, hint) {
					return true
				}
			}
			return false
		},
	}

	// Explicit ids are exclusive even when none of them resolve.
	if len(r.AccountIDs) > 0 {
		rules = rules[:1]
	}

	for _, rule := range rules {
		var ids []string
		for _, a := range candidates {
			if rule(a) {
				ids = append(ids, a.ID)
			}
		}
		if len(ids) > 0 {
			return ids
		}
	}

	return nil
}

// EquityCategory is an equity statement movement class.
type EquityCategory string

const (
	EquityCapital    EquityCategory = "capital"
	EquityDividend   EquityCategory = "dividend"
	EquityAdjustment EquityCategory = "adjustment"
	EquityOther      EquityCategory = "other"
)

// EquityCategories lists the categories in statement order.
var EquityCategories = []EquityCategory{EquityCapital, EquityDividend, EquityAdjustment, EquityOther}

var equityHints = []struct {
	category EquityCategory
	words    []string
}{
	{EquityCapital, []string{"modal", "capital", "saham", "share"}},
	{EquityDividend, []string{"prive", "dividen", "dividend", "drawing"}},
	{EquityAdjustment, []string{"koreksi", "adjust", "revaluasi", "revaluation"}},
}

// EquityClassifier assigns equity accounts to movement categories.
type EquityClassifier struct{}

// Classify matches the account name and code against the category hints.
func (EquityClassifier) Classify(a *domain.Account) EquityCategory {
	haystack := strings.ToLower(a.Code + " " + a.Name)
	for _, h := range equityHints {
		for _, w := range h.words {
			if strings.Contains(haystack, w) {
				return h.category
			}
		}
	}
	return EquityOther
}
