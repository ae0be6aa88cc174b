package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func line(account string, debit, credit string) JournalLine {
	return JournalLine{
		AccountID: account,
		Debit:     decimal.RequireFromString(debit),
		Credit:    decimal.RequireFromString(credit),
	}
}

func TestJournalLine_Validate(t *testing.T) {
	tests := []struct {
		name    string
		line    JournalLine
		wantErr bool
	}{
		{name: "debit only", line: line("a", "10.00", "0")},
		{name: "credit only", line: line("a", "0", "10.5")},
		{name: "both positive", line: line("a", "1", "1"), wantErr: true},
		{name: "both zero", line: line("a", "0", "0"), wantErr: true},
		{name: "negative", line: line("a", "-1", "0"), wantErr: true},
		{name: "sub-cent precision", line: line("a", "1.001", "0"), wantErr: true},
		{name: "missing account", line: line("", "1", "0"), wantErr: true},
		{name: "largest amount", line: line("a", "999999999999.99", "0")},
		{name: "amount at cap", line: line("a", "1000000000000", "0"), wantErr: true},
		{name: "amount past int64 cents", line: line("a", "0", "184467440737095517.16"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.line.Validate()
			if tt.wantErr && !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCheckBalanced(t *testing.T) {
	tests := []struct {
		name    string
		lines   []JournalLine
		wantErr error
	}{
		{
			name:  "balanced",
			lines: []JournalLine{line("cash", "100.00", "0"), line("rev", "0", "60.00"), line("rev2", "0", "40.00")},
		},
		{
			name:    "single line",
			lines:   []JournalLine{line("cash", "100", "0")},
			wantErr: ErrEmptyEntry,
		},
		{
			name:    "unbalanced by a cent",
			lines:   []JournalLine{line("cash", "100.00", "0"), line("rev", "0", "99.99")},
			wantErr: ErrUnbalanced,
		},
		{
			name:    "totals that wrap int64 cents",
			lines:   []JournalLine{line("cash", "184467440737095517.16", "0"), line("rev", "0", "1.00")},
			wantErr: ErrUnbalanced,
		},
		{
			name:  "large balanced totals",
			lines: []JournalLine{line("cash", "92233720368547758.08", "0"), line("rev", "0", "92233720368547758.08")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckBalanced(tt.lines)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSameLineSet(t *testing.T) {
	a := []JournalLine{line("cash", "0", "100"), line("rev", "100", "0")}
	b := []JournalLine{line("rev", "100.00", "0"), line("cash", "0", "100.00")}

	if !SameLineSet(a, b) {
		t.Fatal("reordered lines with equal amounts should be the same set")
	}

	c := []JournalLine{line("rev", "90", "0"), line("cash", "0", "90")}
	if SameLineSet(a, c) {
		t.Fatal("different amounts should not be the same set")
	}
}

func TestJournalLine_Swapped(t *testing.T) {
	l := line("cash", "25.00", "0").Swapped()
	if !l.Debit.IsZero() || !l.Credit.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("expected credit 25, got debit=%s credit=%s", l.Debit, l.Credit)
	}
}
