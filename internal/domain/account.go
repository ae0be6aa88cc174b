package domain

import (
	"fmt"
	"strings"
	"time"
)

// AccountType is the chart-of-accounts classification.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// IsValid reports whether t is a known account type.
func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// IsBalanceSheet reports whether accounts of this type carry balances across years.
func (t AccountType) IsBalanceSheet() bool {
	return t == AccountTypeAsset || t == AccountTypeLiability || t == AccountTypeEquity
}

// IsProfitAndLoss reports whether accounts of this type are closed at year end.
func (t AccountType) IsProfitAndLoss() bool {
	return t == AccountTypeRevenue || t == AccountTypeExpense
}

// Side is a debit or credit side.
type Side string

const (
	SideDebit  Side = "debit"
	SideCredit Side = "credit"
)

// IsValid reports whether s is debit or credit.
func (s Side) IsValid() bool {
	return s == SideDebit || s == SideCredit
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideDebit {
		return SideCredit
	}
	return SideDebit
}

// DefaultNormalBalance derives the normal balance from the account type.
func DefaultNormalBalance(t AccountType) Side {
	if t == AccountTypeAsset || t == AccountTypeExpense {
		return SideDebit
	}
	return SideCredit
}

// CashFlowActivity classifies an account for the cash flow statement.
type CashFlowActivity string

const (
	CashFlowOperating CashFlowActivity = "operating"
	CashFlowInvesting CashFlowActivity = "investing"
	CashFlowFinancing CashFlowActivity = "financing"
	CashFlowCash      CashFlowActivity = "cash"
)

// IsValid reports whether a is a known activity.
func (a CashFlowActivity) IsValid() bool {
	switch a {
	case CashFlowOperating, CashFlowInvesting, CashFlowFinancing, CashFlowCash:
		return true
	}
	return false
}

// MaxHierarchyDepth bounds parent-chain walks.
const MaxHierarchyDepth = 50

// Account is a chart-of-accounts node.
type Account struct {
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
	CashFlowActivity *CashFlowActivity
	Subledger        *string
	ParentID         *string
	ID               string
	OrganizationID   string
	Code             string
	Name             string
	Type             AccountType
	NormalBalance    Side
	RequiresBP       bool
	IsPostable       bool
	IsActive         bool
}

// Validate checks the account's own fields.
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Code) == "" {
		return fmt.Errorf("%w: account code is required", ErrValidation)
	}

	if len(a.Code) > MaxCodeLength {
		return fmt.Errorf("%w: account code exceeds %d characters", ErrValidation, MaxCodeLength)
	}

	if err := ValidateName(a.Name); err != nil {
		return err
	}

	if !a.Type.IsValid() {
		return fmt.Errorf("%w: unknown account type %q", ErrValidation, a.Type)
	}

	if !a.NormalBalance.IsValid() {
		return fmt.Errorf("%w: unknown normal balance %q", ErrValidation, a.NormalBalance)
	}

	if a.CashFlowActivity != nil && !a.CashFlowActivity.IsValid() {
		return fmt.Errorf("%w: unknown cash flow activity %q", ErrValidation, *a.CashFlowActivity)
	}

	if a.ParentID != nil && *a.ParentID == a.ID {
		return fmt.Errorf("%w: account cannot be its own parent", ErrCycle)
	}

	return nil
}

// CanPost reports whether journal lines may reference the account.
func (a *Account) CanPost() bool {
	return a.IsActive && a.IsPostable && a.DeletedAt == nil
}

// IsCashFlowClass reports whether the account is explicitly classified as activity.
func (a *Account) IsCashFlowClass(activity CashFlowActivity) bool {
	return a.CashFlowActivity != nil && *a.CashFlowActivity == activity
}

// AccountFilter narrows account listings.
type AccountFilter struct {
	Type            AccountType
	Search          string
	ParentID        string
	PostableOnly    bool
	IncludeInactive bool
	Limit           int
	Offset          int
}

// ImportMode selects how bulk imports treat existing codes.
type ImportMode string

const (
	ImportModeUpsert     ImportMode = "upsert"
	ImportModeInsertOnly ImportMode = "insert_only"
)

// IsValid reports whether m is a known import mode.
func (m ImportMode) IsValid() bool {
	return m == ImportModeUpsert || m == ImportModeInsertOnly
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
}
