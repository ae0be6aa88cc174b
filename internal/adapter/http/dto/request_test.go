package dto

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

func TestCreateAccountRequest_ToUseCaseInput(t *testing.T) {
	activity := "investing"
	req := &CreateAccountRequest{
		CashFlowActivity: &activity,
		Code:             "1500",
		Name:             "Equipment",
		Type:             "asset",
	}

	got := req.ToUseCaseInput()

	if got.Code != "1500" || got.Type != domain.AccountTypeAsset || got.NormalBalance != "" {
		t.Fatalf("unexpected input %+v", got)
	}
	if got.CashFlowActivity == nil || *got.CashFlowActivity != domain.CashFlowInvesting {
		t.Fatalf("expected investing activity, got %v", got.CashFlowActivity)
	}
}

func TestUpdateAccountRequest_ToUseCaseInput(t *testing.T) {
	side := "credit"
	empty := ""
	req := &UpdateAccountRequest{NormalBalance: &side, ParentID: &empty}

	got := req.ToUseCaseInput()

	if got.NormalBalance == nil || *got.NormalBalance != domain.SideCredit {
		t.Fatalf("expected credit normal balance, got %v", got.NormalBalance)
	}
	if got.ParentID == nil || *got.ParentID != "" {
		t.Fatalf("expected empty parent to be passed through for clearing")
	}
	if got.Type != nil || got.CashFlowActivity != nil {
		t.Fatalf("expected absent fields to stay nil")
	}
}

func TestCreateJournalRequest_ToUseCaseInput(t *testing.T) {
	bp := "bp-1"

	tests := []struct {
		name        string
		request     *CreateJournalRequest
		expectError bool
	}{
		{
			name: "valid entry",
			request: &CreateJournalRequest{
				Date: "2025-03-15",
				Memo: "office supplies",
				Lines: []JournalLineRequest{
					{AccountID: "6100", Debit: decimal.RequireFromString("42.50")},
					{AccountID: "2100", BPID: &bp, Credit: decimal.RequireFromString("42.50")},
				},
			},
		},
		{
			name:        "invalid date",
			request:     &CreateJournalRequest{Date: "15/03/2025"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.request.ToUseCaseInput()
			if tt.expectError {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !got.Date.Equal(time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)) {
				t.Fatalf("unexpected date %v", got.Date)
			}
			if len(got.Lines) != 2 || *got.Lines[1].BPID != "bp-1" || !got.Lines[0].Debit.Equal(decimal.RequireFromString("42.5")) {
				t.Fatalf("unexpected lines %+v", got.Lines)
			}
		})
	}
}

func TestUpdateJournalRequest_ToUseCaseInput(t *testing.T) {
	date := "2025-04-01"
	lines := []JournalLineRequest{{AccountID: "1100", Debit: decimal.NewFromInt(1)}}

	got, err := (&UpdateJournalRequest{Date: &date, Lines: &lines}).ToUseCaseInput()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Date == nil || got.Date.Month() != time.April {
		t.Fatalf("unexpected date %v", got.Date)
	}
	if got.Lines == nil || len(*got.Lines) != 1 {
		t.Fatalf("expected replacement lines")
	}

	got, err = (&UpdateJournalRequest{}).ToUseCaseInput()
	if err != nil || got.Lines != nil || got.Date != nil {
		t.Fatalf("expected empty update, got %+v err=%v", got, err)
	}

	missing := []JournalLineRequest{{Debit: decimal.NewFromInt(1)}}
	if _, err := (&UpdateJournalRequest{Lines: &missing}).ToUseCaseInput(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for line without account, got %v", err)
	}
}

func TestCreatePeriodLockRequest_ToUseCaseInput(t *testing.T) {
	got, err := (&CreatePeriodLockRequest{PeriodStart: "2025-01-01", PeriodEnd: "2025-01-31", Closed: true}).ToUseCaseInput()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.PeriodEnd.Day() != 31 || !got.Closed {
		t.Fatalf("unexpected input %+v", got)
	}

	if _, err := (&CreatePeriodLockRequest{PeriodStart: "2025-01-01", PeriodEnd: "soon"}).ToUseCaseInput(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestYearEndClosingRequest_ToUseCaseInput(t *testing.T) {
	date := "2025-12-31"
	got, err := (&YearEndClosingRequest{Date: &date, RetainedEarningsAccountID: "3200", GenerateOpening: true}).ToUseCaseInput(2025)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year != 2025 || got.RetainedEarningsAccountID != "3200" || !got.GenerateOpening || got.Date == nil {
		t.Fatalf("unexpected input %+v", got)
	}
}

func TestImportAccountsRequest_ToUseCaseInput(t *testing.T) {
	req := &ImportAccountsRequest{Accounts: []AccountImportItem{
		{Code: "1100", Name: "Cash", Type: "asset", ParentCode: "1000"},
		{Code: "1000", Name: "Current assets", Type: "asset"},
	}}

	rows := req.ToUseCaseInput()
	if len(rows) != 2 || rows[0].ParentCode != "1000" || rows[1].Type != domain.AccountTypeAsset {
		t.Fatalf("unexpected rows %+v", rows)
	}
}
