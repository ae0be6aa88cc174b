package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus is the lifecycle state of a journal entry.
type EntryStatus string

const (
	EntryStatusDraft  EntryStatus = "draft"
	EntryStatusPosted EntryStatus = "posted"
	EntryStatusVoid   EntryStatus = "void"
)

// IsValid reports whether s is a known status.
func (s EntryStatus) IsValid() bool {
	return s == EntryStatusDraft || s == EntryStatusPosted || s == EntryStatusVoid
}

// EntryType marks entries written by the closing routine.
type EntryType string

const (
	EntryTypeRegular EntryType = ""
	EntryTypeOpening EntryType = "opening"
	EntryTypeClosing EntryType = "closing"
)

// IsValid reports whether t is a known entry type.
func (t EntryType) IsValid() bool {
	return t == EntryTypeRegular || t == EntryTypeOpening || t == EntryTypeClosing
}

// JournalEntry is a dated set of balanced debit/credit lines.
type JournalEntry struct {
	Date           time.Time     `json:"date"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	PostedAt       *time.Time    `json:"posted_at"`
	DeletedAt      *time.Time    `json:"-"`
	PostedBy       *string       `json:"posted_by"`
	OpeningKey     *string       `json:"opening_key"`
	ClosingKey     *string       `json:"closing_key"`
	ReversalOfID   *string       `json:"reversal_of_id"`
	ID             string        `json:"id"`
	OrganizationID string        `json:"organization_id"`
	Memo           string        `json:"memo"`
	CreatedBy      string        `json:"created_by"`
	Status         EntryStatus   `json:"status"`
	EntryType      EntryType     `json:"entry_type"`
	Lines          []JournalLine `json:"lines"`
}

// JournalLine is one side of a journal entry.
type JournalLine struct {
	BPID           *string         `json:"bp_id"`
	ID             string          `json:"id"`
	OrganizationID string          `json:"-"`
	EntryID        string          `json:"entry_id"`
	AccountID      string          `json:"account_id"`
	Memo           string          `json:"memo"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	LineNo         int             `json:"line_no"`
}

// Validate checks the debit/credit shape of a single line.
func (l *JournalLine) Validate() error {
	if l.AccountID == "" {
		return fmt.Errorf("%w: line %d: account_id is required", ErrValidation, l.LineNo)
	}

	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return fmt.Errorf("%w: line %d: amounts cannot be negative", ErrValidation, l.LineNo)
	}

	if l.Debit.IsPositive() == l.Credit.IsPositive() {
		return fmt.Errorf("%w: line %d: exactly one of debit or credit must be positive", ErrValidation, l.LineNo)
	}

	if l.Debit.GreaterThanOrEqual(MaxLineAmount) || l.Credit.GreaterThanOrEqual(MaxLineAmount) {
		return fmt.Errorf("%w: line %d: amounts must be below %s", ErrValidation, l.LineNo, MaxLineAmount.String())
	}

	if !HasCentPrecision(l.Debit) || !HasCentPrecision(l.Credit) {
		return fmt.Errorf("%w: line %d: amounts are limited to %d decimal places", ErrValidation, l.LineNo, MoneyScale)
	}

	if err := ValidateMemo(l.Memo); err != nil {
		return err
	}

	return nil
}

// Swapped returns the line with debit and credit exchanged.
func (l JournalLine) Swapped() JournalLine {
	l.Debit, l.Credit = l.Credit, l.Debit
	return l
}

// ValidateLines checks every line's shape and renumbers them in order.
func ValidateLines(lines []JournalLine) error {
	if len(lines) > MaxEntryLines {
		return fmt.Errorf("%w: entry exceeds %d lines", ErrValidation, MaxEntryLines)
	}

	for i := range lines {
		lines[i].LineNo = i + 1
		if err := lines[i].Validate(); err != nil {
			return err
		}
	}

	return nil
}

// LineTotals sums debits and credits.
func LineTotals(lines []JournalLine) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// CheckBalanced enforces the posting invariant: at least two lines, equal
// debit and credit totals at cent precision, and a positive total.
func CheckBalanced(lines []JournalLine) error {
	if len(lines) < 2 {
		return fmt.Errorf("%w: at least two lines are required", ErrEmptyEntry)
	}

	debit, credit := LineTotals(lines)
	if !EqualMoney(debit, credit) {
		return fmt.Errorf("%w: debit %s != credit %s", ErrUnbalanced, debit.StringFixed(MoneyScale), credit.StringFixed(MoneyScale))
	}

	if !RoundMoney(debit).IsPositive() {
		return ErrEmptyEntry
	}

	return nil
}

// SameLineSet reports whether a and b hold the same lines, ignoring order.
func SameLineSet(a, b []JournalLine) bool {
	if len(a) != len(b) {
		return false
	}

	ka, kb := lineKeys(a), lineKeys(b)
	for i := range ka {
		if ka[i] != kb[i] {
			return false
		}
	}
	return true
}

func lineKeys(lines []JournalLine) []string {
	keys := make([]string, len(lines))
	for i, l := range lines {
		bp := ""
		if l.BPID != nil {
			bp = *l.BPID
		}
		keys[i] = fmt.Sprintf("%s|%s|%s|%s|%s", l.AccountID, bp, l.Debit.StringFixed(MoneyScale), l.Credit.StringFixed(MoneyScale), l.Memo)
	}
	sort.Strings(keys)
	return keys
}

// IsReversal reports whether the entry was generated by reversing another.
func (e *JournalEntry) IsReversal() bool {
	return e.ReversalOfID != nil
}

// EntryFilter narrows journal listings.
type EntryFilter struct {
	From      *time.Time
	To        *time.Time
	Status    EntryStatus
	EntryType *EntryType
	Search    string
	Limit     int
	Offset    int
}
