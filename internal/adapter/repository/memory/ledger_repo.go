package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository over posted entries.
type LedgerRepository struct {
	store *Store
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(store *Store) *LedgerRepository {
	return &LedgerRepository{store: store}
}

func postedLines(s *state, orgID string, q domain.LineQuery) []domain.LedgerLine {
	var out []domain.LedgerLine
	for _, e := range s.entries {
		if e.OrganizationID != orgID || e.Status != domain.EntryStatusPosted || e.DeletedAt != nil {
			continue
		}
		for _, l := range e.Lines {
			line := domain.LedgerLine{
				Date:      e.Date,
				BPID:      l.BPID,
				EntryID:   e.ID,
				EntryMemo: e.Memo,
				AccountID: l.AccountID,
				Memo:      l.Memo,
				EntryType: e.EntryType,
				Debit:     l.Debit,
				Credit:    l.Credit,
				LineNo:    l.LineNo,
			}
			if q.Matches(line) {
				out = append(out, line)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.EntryID != b.EntryID {
			return a.EntryID < b.EntryID
		}
		return a.LineNo < b.LineNo
	})
	return out
}

// SumLines totals posted lines matching query.
func (r *LedgerRepository) SumLines(_ context.Context, tx usecase.Transaction, orgID string, query domain.LineQuery) ([]domain.AccountTotals, error) {
	var out []domain.AccountTotals
	err := r.store.read(tx, func(s *state) error {
		out = domain.SumLines(postedLines(s, orgID, query), query.GroupByPartner)
		return nil
	})
	return out, err
}

// ListLines lists posted lines matching query in posting order.
func (r *LedgerRepository) ListLines(_ context.Context, tx usecase.Transaction, orgID string, query domain.LineQuery) ([]domain.LedgerLine, error) {
	var out []domain.LedgerLine
	err := r.store.read(tx, func(s *state) error {
		out = postedLines(s, orgID, query)
		return nil
	})
	return out, err
}

// OpeningBaseline returns the latest posted January 1st opening entry date
// on or before date.
func (r *LedgerRepository) OpeningBaseline(_ context.Context, tx usecase.Transaction, orgID string, date time.Time) (*time.Time, error) {
	var out *time.Time
	err := r.store.read(tx, func(s *state) error {
		for _, e := range s.entries {
			if e.OrganizationID != orgID || e.Status != domain.EntryStatusPosted || e.DeletedAt != nil {
				continue
			}
			if e.EntryType != domain.EntryTypeOpening || !e.Date.Equal(domain.YearStart(e.Date)) || e.Date.After(date) {
				continue
			}
			if out == nil || e.Date.After(*out) {
				d := e.Date
				out = &d
			}
		}
		return nil
	})
	return out, err
}

// CheckConsistency sums all posted lines of the organization.
func (r *LedgerRepository) CheckConsistency(_ context.Context, orgID string) (decimal.Decimal, decimal.Decimal, error) {
	debit, credit := decimal.Zero, decimal.Zero
	err := r.store.read(nil, func(s *state) error {
		for _, l := range postedLines(s, orgID, domain.LineQuery{}) {
			debit = debit.Add(l.Debit)
			credit = credit.Add(l.Credit)
		}
		return nil
	})
	return debit, credit, err
}

// FindUnbalanced lists posted entries whose lines do not balance.
func (r *LedgerRepository) FindUnbalanced(_ context.Context, orgID string, limit int) ([]domain.UnbalancedEntry, error) {
	var out []domain.UnbalancedEntry
	err := r.store.read(nil, func(s *state) error {
		for _, e := range s.entries {
			if e.OrganizationID != orgID || e.Status != domain.EntryStatusPosted || e.DeletedAt != nil {
				continue
			}
			debit, credit := domain.LineTotals(e.Lines)
			if !domain.EqualMoney(debit, credit) {
				out = append(out, domain.UnbalancedEntry{EntryID: e.ID, Date: e.Date, Debit: debit, Credit: credit})
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].EntryID < out[j].EntryID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, err
}
