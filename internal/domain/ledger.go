package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// AccountTotals is the posted debit/credit sum of one account, or of one
// (account, partner) pair when grouped by partner.
type AccountTotals struct {
	BPID      *string
	AccountID string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// Signed returns the totals relative to the normal side.
func (t AccountTotals) Signed(normal Side) decimal.Decimal {
	return SignedBalance(normal, t.Debit, t.Credit)
}

// LedgerLine is a posted journal line joined with its entry header.
type LedgerLine struct {
	Date      time.Time
	BPID      *string
	EntryID   string
	EntryMemo string
	AccountID string
	Memo      string
	EntryType EntryType
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	LineNo    int
}

// LineQuery selects posted journal lines. Date bounds are calendar dates;
// From and To are inclusive, Before is exclusive.
type LineQuery struct {
	From                *time.Time
	To                  *time.Time
	Before              *time.Time
	IncludeOpeningAt    *time.Time // also match opening entries dated exactly this day
	ExcludeOpeningsFrom *time.Time // drop January 1st opening entries dated on or after this day
	PartnerID           string
	AccountIDs          []string
	EntryIDs            []string
	ExcludeTypes        []EntryType
	GroupByPartner      bool
}

// Matches applies the query to a single posted line.
func (q LineQuery) Matches(l LedgerLine) bool {
	if len(q.AccountIDs) > 0 && !slices.Contains(q.AccountIDs, l.AccountID) {
		return false
	}

	if len(q.EntryIDs) > 0 && !slices.Contains(q.EntryIDs, l.EntryID) {
		return false
	}

	if q.PartnerID != "" && (l.BPID == nil || *l.BPID != q.PartnerID) {
		return false
	}

	if slices.Contains(q.ExcludeTypes, l.EntryType) {
		return false
	}

	isOpening := l.EntryType == EntryTypeOpening
	if q.ExcludeOpeningsFrom != nil && isOpening && l.Date.Equal(YearStart(l.Date)) && !l.Date.Before(*q.ExcludeOpeningsFrom) {
		return false
	}

	if q.IncludeOpeningAt != nil && isOpening && l.Date.Equal(*q.IncludeOpeningAt) {
		return true
	}

	if q.From != nil && l.Date.Before(*q.From) {
		return false
	}

	if q.To != nil && l.Date.After(*q.To) {
		return false
	}

	if q.Before != nil && !l.Date.Before(*q.Before) {
		return false
	}

	return true
}

// SumLines folds ledger lines into per-account (and optionally per-partner) totals.
func SumLines(lines []LedgerLine, byPartner bool) []AccountTotals {
	type key struct{ account, bp string }

	index := make(map[key]int)
	var out []AccountTotals

	for _, l := range lines {
		k := key{account: l.AccountID}
		if byPartner && l.BPID != nil {
			k.bp = *l.BPID
		}

		i, ok := index[k]
		if !ok {
			t := AccountTotals{AccountID: l.AccountID, Debit: decimal.Zero, Credit: decimal.Zero}
			if byPartner && l.BPID != nil {
				bp := *l.BPID
				t.BPID = &bp
			}
			out = append(out, t)
			i = len(out) - 1
			index[k] = i
		}

		out[i].Debit = out[i].Debit.Add(l.Debit)
		out[i].Credit = out[i].Credit.Add(l.Credit)
	}

	return out
}

// TotalsByAccount indexes totals by account id. Partner-level rows are merged.
func TotalsByAccount(totals []AccountTotals) map[string]AccountTotals {
	out := make(map[string]AccountTotals, len(totals))
	for _, t := range totals {
		cur, ok := out[t.AccountID]
		if !ok {
			out[t.AccountID] = AccountTotals{AccountID: t.AccountID, Debit: t.Debit, Credit: t.Credit}
			continue
		}
		cur.Debit = cur.Debit.Add(t.Debit)
		cur.Credit = cur.Credit.Add(t.Credit)
		out[t.AccountID] = cur
	}
	return out
}

// UnbalancedEntry is a posted entry whose stored lines do not balance.
type UnbalancedEntry struct {
	EntryID string          `json:"entry_id"`
	Date    time.Time       `json:"date"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
}
