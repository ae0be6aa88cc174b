package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository over posted entries.
type LedgerRepository struct {
	db DB
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const postedLinesFrom = `
	FROM journal_lines l
	JOIN journal_entries e ON e.id = l.entry_id
	WHERE `

const yearStart = "EXTRACT(MONTH FROM e.date) = 1 AND EXTRACT(DAY FROM e.date) = 1"

// lineWhere translates q into conditions over posted lines l of entries e.
func lineWhere(orgID string, q domain.LineQuery) *where {
	w := newWhere(orgID)
	w.add("e.organization_id = $1")
	w.add("e.status = 'posted'")
	w.add("e.deleted_at IS NULL")

	if len(q.AccountIDs) > 0 {
		w.add("l.account_id = ANY(" + w.arg(q.AccountIDs) + ")")
	}
	if len(q.EntryIDs) > 0 {
		w.add("e.id = ANY(" + w.arg(q.EntryIDs) + ")")
	}
	if q.PartnerID != "" {
		w.add("l.bp_id = " + w.arg(q.PartnerID))
	}
	if len(q.ExcludeTypes) > 0 {
		types := make([]string, len(q.ExcludeTypes))
		for i, t := range q.ExcludeTypes {
			types[i] = string(t)
		}
		w.add("NOT (e.entry_type = ANY(" + w.arg(types) + "))")
	}
	if q.ExcludeOpeningsFrom != nil {
		w.add("NOT (e.entry_type = 'opening' AND " + yearStart + " AND e.date >= " + w.arg(*q.ExcludeOpeningsFrom) + ")")
	}

	var dates []string
	if q.From != nil {
		dates = append(dates, "e.date >= "+w.arg(*q.From))
	}
	if q.To != nil {
		dates = append(dates, "e.date <= "+w.arg(*q.To))
	}
	if q.Before != nil {
		dates = append(dates, "e.date < "+w.arg(*q.Before))
	}

	switch {
	case q.IncludeOpeningAt != nil:
		window := "TRUE"
		if len(dates) > 0 {
			window = strings.Join(dates, " AND ")
		}
		w.add("((e.entry_type = 'opening' AND e.date = " + w.arg(*q.IncludeOpeningAt) + ") OR (" + window + "))")
	case len(dates) > 0:
		w.add(strings.Join(dates, " AND "))
	}

	return w
}

// SumLines totals posted lines matching query per account, and per partner
// when query.GroupByPartner is set.
func (r *LedgerRepository) SumLines(ctx context.Context, tx usecase.Transaction, orgID string, query domain.LineQuery) ([]domain.AccountTotals, error) {
	w := lineWhere(orgID, query)

	partner, group := "NULL::text", "l.account_id"
	if query.GroupByPartner {
		partner, group = "l.bp_id", "l.account_id, l.bp_id"
	}

	rows, err := conn(r.db, tx).Query(ctx, `
		SELECT l.account_id, `+partner+`, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)`+
		postedLinesFrom+w.String()+`
		GROUP BY `+group+`
		ORDER BY `+group, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.AccountTotals
	for rows.Next() {
		var t domain.AccountTotals
		if err := rows.Scan(&t.AccountID, &t.BPID, &t.Debit, &t.Credit); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}

	return totals, rows.Err()
}

// ListLines lists posted lines matching query in posting order.
func (r *LedgerRepository) ListLines(ctx context.Context, tx usecase.Transaction, orgID string, query domain.LineQuery) ([]domain.LedgerLine, error) {
	w := lineWhere(orgID, query)

	rows, err := conn(r.db, tx).Query(ctx, `
		SELECT e.date, l.bp_id, e.id, e.memo, l.account_id, l.memo, e.entry_type, l.debit, l.credit, l.line_no`+
		postedLinesFrom+w.String()+`
		ORDER BY e.date, e.id, l.line_no`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.LedgerLine
	for rows.Next() {
		var (
			l         domain.LedgerLine
			entryType string
		)
		if err := rows.Scan(
			&l.Date, &l.BPID, &l.EntryID, &l.EntryMemo, &l.AccountID, &l.Memo,
			&entryType, &l.Debit, &l.Credit, &l.LineNo,
		); err != nil {
			return nil, err
		}
		l.EntryType = domain.EntryType(entryType)
		lines = append(lines, l)
	}

	return lines, rows.Err()
}

// OpeningBaseline returns the latest posted January 1st opening entry date
// on or before date.
func (r *LedgerRepository) OpeningBaseline(ctx context.Context, tx usecase.Transaction, orgID string, date time.Time) (*time.Time, error) {
	var baseline *time.Time
	err := conn(r.db, tx).QueryRow(ctx, `
		SELECT MAX(date) FROM journal_entries
		WHERE organization_id = $1 AND status = 'posted' AND deleted_at IS NULL
		  AND entry_type = 'opening'
		  AND EXTRACT(MONTH FROM date) = 1 AND EXTRACT(DAY FROM date) = 1
		  AND date <= $2`, orgID, domain.NormalizeDate(date)).Scan(&baseline)
	if err != nil {
		return nil, err
	}
	return baseline, nil
}

// CheckConsistency sums all posted lines of the organization.
func (r *LedgerRepository) CheckConsistency(ctx context.Context, orgID string) (totalDebit, totalCredit decimal.Decimal, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)`+
		postedLinesFrom+`e.organization_id = $1 AND e.status = 'posted' AND e.deleted_at IS NULL`,
		orgID).Scan(&totalDebit, &totalCredit)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return totalDebit, totalCredit, nil
}

// FindUnbalanced lists posted entries whose lines do not balance.
func (r *LedgerRepository) FindUnbalanced(ctx context.Context, orgID string, limit int) ([]domain.UnbalancedEntry, error) {
	w := newWhere(orgID)
	query := `
		SELECT e.id, e.date, COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM journal_entries e
		LEFT JOIN journal_lines l ON l.entry_id = e.id
		WHERE e.organization_id = $1 AND e.status = 'posted' AND e.deleted_at IS NULL
		GROUP BY e.id, e.date
		HAVING COALESCE(SUM(l.debit), 0) <> COALESCE(SUM(l.credit), 0)
		ORDER BY e.id` + w.page(limit, 0)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.UnbalancedEntry
	for rows.Next() {
		var u domain.UnbalancedEntry
		if err := rows.Scan(&u.EntryID, &u.Date, &u.Debit, &u.Credit); err != nil {
			return nil, err
		}
		out = append(out, u)
	}

	return out, rows.Err()
}
