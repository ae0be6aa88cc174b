package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// PeriodLockRepository implements usecase.PeriodLockRepository.
type PeriodLockRepository struct {
	db DB
}

// NewPeriodLockRepository creates a new PeriodLockRepository.
func NewPeriodLockRepository(db DB) *PeriodLockRepository {
	return &PeriodLockRepository{db: db}
}

const lockColumns = `id, organization_id, period_start, period_end, is_closed, closed_at, closed_by, created_at`

// Create inserts a lock. Ranges are unique per organization.
func (r *PeriodLockRepository) Create(ctx context.Context, tx usecase.Transaction, l *domain.PeriodLock) error {
	_, err := conn(r.db, tx).Exec(ctx, `
		INSERT INTO period_locks (`+lockColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		l.ID, l.OrganizationID, l.PeriodStart, l.PeriodEnd, l.IsClosed, l.ClosedAt, l.ClosedBy, l.CreatedAt,
	)
	return mapError(err)
}

// Update stores the closed state of a lock.
func (r *PeriodLockRepository) Update(ctx context.Context, tx usecase.Transaction, l *domain.PeriodLock) error {
	tag, err := conn(r.db, tx).Exec(ctx, `
		UPDATE period_locks SET is_closed = $3, closed_at = $4, closed_by = $5
		WHERE organization_id = $1 AND id = $2`,
		l.OrganizationID, l.ID, l.IsClosed, l.ClosedAt, l.ClosedBy,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPeriodLockNotFound
	}
	return nil
}

// GetByIDForUpdate retrieves a lock with a FOR UPDATE lock.
func (r *PeriodLockRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, orgID, id string) (*domain.PeriodLock, error) {
	l, err := scanLock(conn(r.db, tx).QueryRow(ctx, `
		SELECT `+lockColumns+` FROM period_locks
		WHERE organization_id = $1 AND id = $2
		FOR UPDATE`, orgID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPeriodLockNotFound
	}
	return l, err
}

// List lists the organization's locks by start date.
func (r *PeriodLockRepository) List(ctx context.Context, tx usecase.Transaction, orgID string) ([]*domain.PeriodLock, error) {
	return r.collect(ctx, tx, `
		SELECT `+lockColumns+` FROM period_locks
		WHERE organization_id = $1
		ORDER BY period_start, id`, orgID)
}

// FindClosedCovering lists closed locks whose range contains date. The
// matching rows are share-locked so a concurrent reopen waits for the caller.
func (r *PeriodLockRepository) FindClosedCovering(ctx context.Context, tx usecase.Transaction, orgID string, date time.Time) ([]*domain.PeriodLock, error) {
	query := `
		SELECT ` + lockColumns + ` FROM period_locks
		WHERE organization_id = $1 AND is_closed
		  AND period_start <= $2 AND period_end >= $2
		ORDER BY period_start, id`
	if tx != nil {
		query += ` FOR SHARE`
	}
	return r.collect(ctx, tx, query, orgID, domain.NormalizeDate(date))
}

func (r *PeriodLockRepository) collect(ctx context.Context, tx usecase.Transaction, query string, args ...any) ([]*domain.PeriodLock, error) {
	rows, err := conn(r.db, tx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locks []*domain.PeriodLock
	for rows.Next() {
		l, err := scanLock(rows)
		if err != nil {
			return nil, err
		}
		locks = append(locks, l)
	}

	return locks, rows.Err()
}

func scanLock(row pgx.Row) (*domain.PeriodLock, error) {
	var l domain.PeriodLock
	if err := row.Scan(
		&l.ID, &l.OrganizationID, &l.PeriodStart, &l.PeriodEnd, &l.IsClosed, &l.ClosedAt, &l.ClosedBy, &l.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &l, nil
}
