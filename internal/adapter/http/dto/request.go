package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// CreateAccountRequest represents a request to create an account.
type CreateAccountRequest struct {
	ParentID         *string `json:"parent_id,omitempty"`
	CashFlowActivity *string `json:"cash_flow_activity,omitempty" validate:"omitempty,oneof=operating investing financing cash"`
	Subledger        *string `json:"subledger,omitempty"`
	IsPostable       *bool   `json:"is_postable,omitempty"`
	IsActive         *bool   `json:"is_active,omitempty"`
	Code             string  `json:"code" validate:"required,max=32"`
	Name             string  `json:"name" validate:"required,max=255"`
	Type             string  `json:"type" validate:"required,oneof=asset liability equity revenue expense"`
	NormalBalance    string  `json:"normal_balance,omitempty" validate:"omitempty,oneof=debit credit"`
	RequiresBP       bool    `json:"requires_bp"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateAccountRequest) ToUseCaseInput() usecase.CreateAccountInput {
	return usecase.CreateAccountInput{
		CashFlowActivity: cashFlowActivity(r.CashFlowActivity),
		Subledger:        r.Subledger,
		ParentID:         r.ParentID,
		IsPostable:       r.IsPostable,
		IsActive:         r.IsActive,
		Code:             r.Code,
		Name:             r.Name,
		Type:             domain.AccountType(r.Type),
		NormalBalance:    domain.Side(r.NormalBalance),
		RequiresBP:       r.RequiresBP,
	}
}

// UpdateAccountRequest represents a partial account update.
type UpdateAccountRequest struct {
	Code             *string `json:"code,omitempty"`
	Type             *string `json:"type,omitempty"`
	Name             *string `json:"name,omitempty" validate:"omitempty,max=255"`
	NormalBalance    *string `json:"normal_balance,omitempty" validate:"omitempty,oneof=debit credit"`
	CashFlowActivity *string `json:"cash_flow_activity,omitempty" validate:"omitempty,oneof=operating investing financing cash"`
	Subledger        *string `json:"subledger,omitempty"`
	ParentID         *string `json:"parent_id,omitempty"`
	RequiresBP       *bool   `json:"requires_bp,omitempty"`
	IsPostable       *bool   `json:"is_postable,omitempty"`
	IsActive         *bool   `json:"is_active,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateAccountRequest) ToUseCaseInput() usecase.UpdateAccountInput {
	input := usecase.UpdateAccountInput{
		Code:       r.Code,
		Name:       r.Name,
		Subledger:  r.Subledger,
		ParentID:   r.ParentID,
		RequiresBP: r.RequiresBP,
		IsPostable: r.IsPostable,
		IsActive:   r.IsActive,
	}
	if r.Type != nil {
		t := domain.AccountType(*r.Type)
		input.Type = &t
	}
	if r.NormalBalance != nil {
		s := domain.Side(*r.NormalBalance)
		input.NormalBalance = &s
	}
	if r.CashFlowActivity != nil {
		a := domain.CashFlowActivity(*r.CashFlowActivity)
		input.CashFlowActivity = &a
	}
	return input
}

// AccountImportItem is one account of an import file or request.
type AccountImportItem struct {
	CashFlowActivity *string `json:"cash_flow_activity,omitempty" yaml:"cash_flow_activity,omitempty" validate:"omitempty,oneof=operating investing financing cash"`
	Subledger        *string `json:"subledger,omitempty" yaml:"subledger,omitempty"`
	IsPostable       *bool   `json:"is_postable,omitempty" yaml:"is_postable,omitempty"`
	IsActive         *bool   `json:"is_active,omitempty" yaml:"is_active,omitempty"`
	Code             string  `json:"code" yaml:"code" validate:"required,max=32"`
	Name             string  `json:"name" yaml:"name" validate:"required,max=255"`
	Type             string  `json:"type" yaml:"type" validate:"required,oneof=asset liability equity revenue expense"`
	NormalBalance    string  `json:"normal_balance,omitempty" yaml:"normal_balance,omitempty" validate:"omitempty,oneof=debit credit"`
	ParentCode       string  `json:"parent_code,omitempty" yaml:"parent_code,omitempty"`
	RequiresBP       bool    `json:"requires_bp" yaml:"requires_bp"`
}

// ImportAccountsRequest represents a bulk account import.
type ImportAccountsRequest struct {
	Accounts []AccountImportItem `json:"accounts" yaml:"accounts" validate:"required,min=1,dive"`
}

// ToUseCaseInput converts to use case input.
func (r *ImportAccountsRequest) ToUseCaseInput() []usecase.AccountImportRow {
	rows := make([]usecase.AccountImportRow, len(r.Accounts))
	for i, a := range r.Accounts {
		rows[i] = usecase.AccountImportRow{
			CashFlowActivity: cashFlowActivity(a.CashFlowActivity),
			Subledger:        a.Subledger,
			IsPostable:       a.IsPostable,
			IsActive:         a.IsActive,
			Code:             a.Code,
			Name:             a.Name,
			Type:             domain.AccountType(a.Type),
			NormalBalance:    domain.Side(a.NormalBalance),
			ParentCode:       a.ParentCode,
			RequiresBP:       a.RequiresBP,
		}
	}
	return rows
}

// PartnerRequest represents a request to create a business partner.
type PartnerRequest struct {
	IsActive      *bool  `json:"is_active,omitempty" yaml:"is_active,omitempty"`
	Code          string `json:"code" yaml:"code" validate:"required,max=32"`
	Name          string `json:"name" yaml:"name" validate:"required,max=255"`
	Category      string `json:"category" yaml:"category"`
	NormalBalance string `json:"normal_balance" yaml:"normal_balance" validate:"required,oneof=debit credit"`
}

// ToUseCaseInput converts to use case input.
func (r *PartnerRequest) ToUseCaseInput() usecase.PartnerInput {
	return usecase.PartnerInput{
		IsActive:      r.IsActive,
		Code:          r.Code,
		Name:          r.Name,
		Category:      r.Category,
		NormalBalance: domain.Side(r.NormalBalance),
	}
}

// UpdatePartnerRequest represents a partial partner update.
type UpdatePartnerRequest struct {
	Code          *string `json:"code,omitempty" validate:"omitempty,max=32"`
	Name          *string `json:"name,omitempty" validate:"omitempty,max=255"`
	Category      *string `json:"category,omitempty"`
	NormalBalance *string `json:"normal_balance,omitempty" validate:"omitempty,oneof=debit credit"`
	IsActive      *bool   `json:"is_active,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdatePartnerRequest) ToUseCaseInput() usecase.UpdatePartnerInput {
	input := usecase.UpdatePartnerInput{
		Code:     r.Code,
		Name:     r.Name,
		Category: r.Category,
		IsActive: r.IsActive,
	}
	if r.NormalBalance != nil {
		s := domain.Side(*r.NormalBalance)
		input.NormalBalance = &s
	}
	return input
}

// ImportPartnersRequest represents a bulk partner import.
type ImportPartnersRequest struct {
	Partners []PartnerRequest `json:"partners" yaml:"partners" validate:"required,min=1,dive"`
}

// ToUseCaseInput converts to use case input.
func (r *ImportPartnersRequest) ToUseCaseInput() []usecase.PartnerInput {
	rows := make([]usecase.PartnerInput, len(r.Partners))
	for i := range r.Partners {
		rows[i] = r.Partners[i].ToUseCaseInput()
	}
	return rows
}

// CreatePeriodLockRequest represents a request to declare a period lock.
type CreatePeriodLockRequest struct {
	PeriodStart string `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string `json:"period_end" validate:"required,datetime=2006-01-02"`
	Closed      bool   `json:"closed"`
}

// ToUseCaseInput converts to use case input.
func (r *CreatePeriodLockRequest) ToUseCaseInput() (usecase.CreatePeriodLockInput, error) {
	start, err := parseDate("period_start", r.PeriodStart)
	if err != nil {
		return usecase.CreatePeriodLockInput{}, err
	}
	end, err := parseDate("period_end", r.PeriodEnd)
	if err != nil {
		return usecase.CreatePeriodLockInput{}, err
	}
	return usecase.CreatePeriodLockInput{PeriodStart: start, PeriodEnd: end, Closed: r.Closed}, nil
}

// JournalLineRequest is one line of a journal entry request.
type JournalLineRequest struct {
	BPID      *string         `json:"bp_id,omitempty"`
	AccountID string          `json:"account_id" validate:"required"`
	Memo      string          `json:"memo,omitempty"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

func linesToInput(lines []JournalLineRequest) []usecase.JournalLineInput {
	out := make([]usecase.JournalLineInput, len(lines))
	for i, l := range lines {
		out[i] = usecase.JournalLineInput{
			BPID:      l.BPID,
			AccountID: l.AccountID,
			Memo:      l.Memo,
			Debit:     l.Debit,
			Credit:    l.Credit,
		}
	}
	return out
}

// CreateJournalRequest represents a request to draft a journal entry.
type CreateJournalRequest struct {
	Date  string               `json:"date" validate:"required,datetime=2006-01-02"`
	Memo  string               `json:"memo"`
	Lines []JournalLineRequest `json:"lines" validate:"dive"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateJournalRequest) ToUseCaseInput() (usecase.CreateEntryInput, error) {
	date, err := parseDate("date", r.Date)
	if err != nil {
		return usecase.CreateEntryInput{}, err
	}
	return usecase.CreateEntryInput{Date: date, Memo: r.Memo, Lines: linesToInput(r.Lines)}, nil
}

// UpdateJournalRequest represents a partial draft update. A present lines
// array replaces every line.
type UpdateJournalRequest struct {
	Date  *string               `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Memo  *string               `json:"memo,omitempty"`
	Lines *[]JournalLineRequest `json:"lines,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateJournalRequest) ToUseCaseInput() (usecase.UpdateEntryInput, error) {
	input := usecase.UpdateEntryInput{Memo: r.Memo}
	if r.Date != nil {
		date, err := parseDate("date", *r.Date)
		if err != nil {
			return usecase.UpdateEntryInput{}, err
		}
		input.Date = &date
	}
	if r.Lines != nil {
		for _, l := range *r.Lines {
			if l.AccountID == "" {
				return usecase.UpdateEntryInput{}, fmt.Errorf("%w: account_id is required", domain.ErrValidation)
			}
		}
		lines := linesToInput(*r.Lines)
		input.Lines = &lines
	}
	return input, nil
}

// ReverseJournalRequest represents a request to reverse a posted entry.
type ReverseJournalRequest struct {
	Date *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Memo *string `json:"memo,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ReverseJournalRequest) ToUseCaseInput() (usecase.ReverseEntryInput, error) {
	input := usecase.ReverseEntryInput{Memo: r.Memo}
	if r.Date != nil {
		date, err := parseDate("date", *r.Date)
		if err != nil {
			return usecase.ReverseEntryInput{}, err
		}
		input.Date = &date
	}
	return input, nil
}

// OpeningBalanceRequest represents a manual opening entry.
type OpeningBalanceRequest struct {
	Date       string               `json:"date" validate:"required,datetime=2006-01-02"`
	OpeningKey string               `json:"opening_key" validate:"required"`
	Memo       string               `json:"memo"`
	Lines      []JournalLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// ToUseCaseInput converts to use case input.
func (r *OpeningBalanceRequest) ToUseCaseInput() (usecase.OpeningBalanceInput, error) {
	date, err := parseDate("date", r.Date)
	if err != nil {
		return usecase.OpeningBalanceInput{}, err
	}
	return usecase.OpeningBalanceInput{
		Date:       date,
		OpeningKey: r.OpeningKey,
		Memo:       r.Memo,
		Lines:      linesToInput(r.Lines),
	}, nil
}

// YearEndClosingRequest represents a closing run.
type YearEndClosingRequest struct {
	Date                      *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Memo                      *string `json:"memo,omitempty"`
	RetainedEarningsAccountID string  `json:"retained_earnings_account_id" validate:"required"`
	GenerateOpening           bool    `json:"generate_opening"`
}

// ToUseCaseInput converts to use case input.
func (r *YearEndClosingRequest) ToUseCaseInput(year int) (usecase.YearEndClosingInput, error) {
	input := usecase.YearEndClosingInput{
		Memo:                      r.Memo,
		RetainedEarningsAccountID: r.RetainedEarningsAccountID,
		Year:                      year,
		GenerateOpening:           r.GenerateOpening,
	}
	if r.Date != nil {
		date, err := parseDate("date", *r.Date)
		if err != nil {
			return usecase.YearEndClosingInput{}, err
		}
		input.Date = &date
	}
	return input, nil
}

func cashFlowActivity(s *string) *domain.CashFlowActivity {
	if s == nil {
		return nil
	}
	a := domain.CashFlowActivity(*s)
	return &a
}

func parseDate(field, s string) (time.Time, error) {
	t, err := domain.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a YYYY-MM-DD date", domain.ErrValidation, field)
	}
	return t, nil
}
