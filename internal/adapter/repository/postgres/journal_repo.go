package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// JournalRepository implements usecase.JournalRepository.
type JournalRepository struct {
	db DB
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(db DB) *JournalRepository {
	return &JournalRepository{db: db}
}

const entryColumns = `id, organization_id, date, memo, status, entry_type, reversal_of_id,
	opening_key, closing_key, created_by, posted_by, posted_at, created_at, updated_at, deleted_at`

// Create inserts an entry with its lines.
func (r *JournalRepository) Create(ctx context.Context, tx usecase.Transaction, e *domain.JournalEntry) error {
	q := conn(r.db, tx)

	_, err := q.Exec(ctx, `
		INSERT INTO journal_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID, e.OrganizationID, e.Date, e.Memo, string(e.Status), string(e.EntryType), e.ReversalOfID,
		e.OpeningKey, e.ClosingKey, e.CreatedBy, e.PostedBy, e.PostedAt, e.CreatedAt, e.UpdatedAt, e.DeletedAt,
	)
	if err != nil {
		return mapError(err)
	}

	return insertLines(ctx, q, e)
}

// GetByID retrieves an entry with its lines.
func (r *JournalRepository) GetByID(ctx context.Context, tx usecase.Transaction, orgID, id string) (*domain.JournalEntry, error) {
	return r.getOne(ctx, tx, `
		SELECT `+entryColumns+` FROM journal_entries
		WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL`, orgID, id)
}

// GetByIDForUpdate retrieves an entry with its lines and locks its header row.
func (r *JournalRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, orgID, id string) (*domain.JournalEntry, error) {
	return r.getOne(ctx, tx, `
		SELECT `+entryColumns+` FROM journal_entries
		WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL
		FOR UPDATE`, orgID, id)
}

// UpdateHeader stores every field of the entry except its lines.
func (r *JournalRepository) UpdateHeader(ctx context.Context, tx usecase.Transaction, e *domain.JournalEntry) error {
	tag, err := conn(r.db, tx).Exec(ctx, `
		UPDATE journal_entries SET
			date = $3, memo = $4, status = $5, entry_type = $6, reversal_of_id = $7,
			opening_key = $8, closing_key = $9, posted_by = $10, posted_at = $11,
			updated_at = $12, deleted_at = $13
		WHERE organization_id = $1 AND id = $2`,
		e.OrganizationID, e.ID, e.Date, e.Memo, string(e.Status), string(e.EntryType), e.ReversalOfID,
		e.OpeningKey, e.ClosingKey, e.PostedBy, e.PostedAt, e.UpdatedAt, e.DeletedAt,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// ReplaceLines swaps the stored lines for entry.Lines.
func (r *JournalRepository) ReplaceLines(ctx context.Context, tx usecase.Transaction, e *domain.JournalEntry) error {
	q := conn(r.db, tx)
	if _, err := q.Exec(ctx, `DELETE FROM journal_lines WHERE organization_id = $1 AND entry_id = $2`, e.OrganizationID, e.ID); err != nil {
		return err
	}
	return insertLines(ctx, q, e)
}

// FindReversal returns the live reversal of originalID.
func (r *JournalRepository) FindReversal(ctx context.Context, tx usecase.Transaction, orgID, originalID string) (*domain.JournalEntry, error) {
	return r.findLive(ctx, tx, "reversal_of_id = $2", orgID, originalID)
}

// FindByClosingKey returns the closing entry with key.
func (r *JournalRepository) FindByClosingKey(ctx context.Context, tx usecase.Transaction, orgID, key string) (*domain.JournalEntry, error) {
	return r.findLive(ctx, tx, "closing_key = $2", orgID, key)
}

// FindByOpeningKey returns the opening entry with key.
func (r *JournalRepository) FindByOpeningKey(ctx context.Context, tx usecase.Transaction, orgID, key string) (*domain.JournalEntry, error) {
	return r.findLive(ctx, tx, "opening_key = $2", orgID, key)
}

func (r *JournalRepository) findLive(ctx context.Context, tx usecase.Transaction, cond string, orgID, value string) (*domain.JournalEntry, error) {
	return r.getOne(ctx, tx, `
		SELECT `+entryColumns+` FROM journal_entries
		WHERE organization_id = $1 AND `+cond+`
		  AND status <> 'void' AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`, orgID, value)
}

// List lists entry headers, newest first.
func (r *JournalRepository) List(ctx context.Context, tx usecase.Transaction, orgID string, filter domain.EntryFilter) ([]*domain.JournalEntry, error) {
	w := newWhere(orgID)
	w.add("organization_id = $1")
	w.add("deleted_at IS NULL")
	if filter.From != nil {
		w.add("date >= " + w.arg(*filter.From))
	}
	if filter.To != nil {
		w.add("date <= " + w.arg(*filter.To))
	}
	if filter.Status != "" {
		w.add("status = " + w.arg(string(filter.Status)))
	}
	if filter.EntryType != nil {
		w.add("entry_type = " + w.arg(string(*filter.EntryType)))
	}
	if filter.Search != "" {
		w.add("memo ILIKE " + w.arg(likePattern(filter.Search)))
	}

	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE ` + w.String() + ` ORDER BY date DESC, id DESC`
	query += w.page(filter.Limit, filter.Offset)

	rows, err := conn(r.db, tx).Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (r *JournalRepository) getOne(ctx context.Context, tx usecase.Transaction, query string, args ...any) (*domain.JournalEntry, error) {
	q := conn(r.db, tx)

	e, err := scanEntry(q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}

	if e.Lines, err = loadLines(ctx, q, e.OrganizationID, e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

func scanEntry(row pgx.Row) (*domain.JournalEntry, error) {
	var (
		e                 domain.JournalEntry
		status, entryType string
	)

	err := row.Scan(
		&e.ID,
		&e.OrganizationID,
		&e.Date,
		&e.Memo,
		&status,
		&entryType,
		&e.ReversalOfID,
		&e.OpeningKey,
		&e.ClosingKey,
		&e.CreatedBy,
		&e.PostedBy,
		&e.PostedAt,
		&e.CreatedAt,
		&e.UpdatedAt,
		&e.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Status = domain.EntryStatus(status)
	e.EntryType = domain.EntryType(entryType)
	return &e, nil
}

func insertLines(ctx context.Context, q querier, e *domain.JournalEntry) error {
	for _, l := range e.Lines {
		_, err := q.Exec(ctx, `
			INSERT INTO journal_lines (id, organization_id, entry_id, line_no, account_id, bp_id, memo, debit, credit)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			l.ID, e.OrganizationID, e.ID, l.LineNo, l.AccountID, l.BPID, l.Memo, l.Debit, l.Credit,
		)
		if err != nil {
			return mapError(err)
		}
	}
	return nil
}

func loadLines(ctx context.Context, q querier, orgID, entryID string) ([]domain.JournalLine, error) {
	rows, err := q.Query(ctx, `
		SELECT id, entry_id, line_no, account_id, bp_id, memo, debit, credit
		FROM journal_lines
		WHERE organization_id = $1 AND entry_id = $2
		ORDER BY line_no`, orgID, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []domain.JournalLine{}
	for rows.Next() {
		l := domain.JournalLine{OrganizationID: orgID}
		if err := rows.Scan(&l.ID, &l.EntryID, &l.LineNo, &l.AccountID, &l.BPID, &l.Memo, &l.Debit, &l.Credit); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}

	return lines, rows.Err()
}
