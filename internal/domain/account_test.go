package domain

import (
	"errors"
	"testing"
)

func TestDefaultNormalBalance(t *testing.T) {
	tests := []struct {
		accountType AccountType
		want        Side
	}{
		{AccountTypeAsset, SideDebit},
		{AccountTypeExpense, SideDebit},
		{AccountTypeLiability, SideCredit},
		{AccountTypeEquity, SideCredit},
		{AccountTypeRevenue, SideCredit},
	}

	for _, tt := range tests {
		t.Run(string(tt.accountType), func(t *testing.T) {
			if got := DefaultNormalBalance(tt.accountType); got != tt.want {
				t.Errorf("DefaultNormalBalance(%s) = %s, want %s", tt.accountType, got, tt.want)
			}
		})
	}
}

func TestAccount_Validate(t *testing.T) {
	self := "acc-1"
	bogus := CashFlowActivity("speculative")

	tests := []struct {
		name    string
		account Account
		wantErr error
	}{
		{
			name:    "valid postable asset",
			account: Account{ID: "acc-1", Code: "1101", Name: "Cash", Type: AccountTypeAsset, NormalBalance: SideDebit},
		},
		{
			name:    "missing code",
			account: Account{ID: "acc-1", Name: "Cash", Type: AccountTypeAsset, NormalBalance: SideDebit},
			wantErr: ErrValidation,
		},
		{
			name:    "unknown type",
			account: Account{ID: "acc-1", Code: "1101", Name: "Cash", Type: "contra", NormalBalance: SideDebit},
			wantErr: ErrValidation,
		},
		{
			name:    "unknown cash flow activity",
			account: Account{ID: "acc-1", Code: "1101", Name: "Cash", Type: AccountTypeAsset, NormalBalance: SideDebit, CashFlowActivity: &bogus},
			wantErr: ErrValidation,
		},
		{
			name:    "own parent",
			account: Account{ID: "acc-1", Code: "1101", Name: "Cash", Type: AccountTypeAsset, NormalBalance: SideDebit, ParentID: &self},
			wantErr: ErrCycle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.account.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestAccount_CanPost(t *testing.T) {
	a := Account{IsActive: true, IsPostable: true}
	if !a.CanPost() {
		t.Fatal("active postable account should accept lines")
	}

	a.IsPostable = false
	if a.CanPost() {
		t.Fatal("header account should not accept lines")
	}
}

func TestNotFoundErrorsMatchTaxonomy(t *testing.T) {
	if !errors.Is(ErrAccountNotFound, ErrNotFound) {
		t.Fatal("ErrAccountNotFound should match ErrNotFound")
	}
	if !errors.Is(ErrDuplicateCode, ErrValidation) {
		t.Fatal("ErrDuplicateCode should match ErrValidation")
	}
	if errors.Is(ErrEntryNotFound, ErrAccountNotFound) {
		t.Fatal("distinct not-found errors should not match each other")
	}
}
