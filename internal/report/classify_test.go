package report

import (
	"testing"

	"github.com/iho/gobooks/internal/domain"
)

func TestIncomeClassifier(t *testing.T) {
	tests := []struct {
		name        string
		account     *domain.Account
		useCodeRule bool
		want        IncomeCategory
	}{
		{"revenue", account("a", "4100", "Sales", domain.AccountTypeRevenue), false, IncomeRevenue},
		{"cogs by prefix", account("a", "5100", "COGS", domain.AccountTypeExpense), false, IncomeCOGS},
		{"opex residual", account("a", "6100", "Rent", domain.AccountTypeExpense), false, IncomeOperatingExpense},
		{"other income without code rule", account("a", "7100", "Interest", domain.AccountTypeRevenue), false, IncomeRevenue},
		{"other income with code rule", account("a", "7100", "Interest", domain.AccountTypeRevenue), true, IncomeOtherIncome},
		{"other expense with code rule", account("a", "8100", "Bank fees", domain.AccountTypeExpense), true, IncomeOtherExpense},
		{"balance sheet account", account("a", "1100", "Cash", domain.AccountTypeAsset), true, IncomeNone},
		{"denylisted summary", account("a", "9999", "Income summary", domain.AccountTypeRevenue), false, IncomeNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IncomeClassifier{UseCodeRule: tt.useCodeRule}.Classify(tt.account)
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestIncomeClassifierCustomDenylist(t *testing.T) {
	a := account("a", "9999", "Summary", domain.AccountTypeRevenue)
	got := IncomeClassifier{ExcludedCodes: []string{}}.Classify(a)
	if got != IncomeRevenue {
		t.Fatalf("expected empty denylist to keep 9999, got %q", got)
	}
}

func TestEquityClassifier(t *testing.T) {
	tests := map[string]EquityCategory{
		"Modal disetor":       EquityCapital,
		"Share premium":       EquityCapital,
		"Dividends declared":  EquityDividend,
		"Prive":               EquityDividend,
		"Koreksi laba":        EquityAdjustment,
		"Revaluation surplus": EquityAdjustment,
		"Retained earnings":   EquityOther,
	}

	var c EquityClassifier
	for name, want := range tests {
		got := c.Classify(account("a", "3100", name, domain.AccountTypeEquity))
		if got != want {
			t.Fatalf("%s: expected %q, got %q", name, want, got)
		}
	}
}
