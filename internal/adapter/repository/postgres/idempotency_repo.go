package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// DefaultLockTimeout bounds how long Reserve waits on a key another
// transaction has reserved but not committed.
const DefaultLockTimeout = 250 * time.Millisecond

// IdempotencyRepository implements usecase.IdempotencyRepository.
type IdempotencyRepository struct {
	db          DB
	lockTimeout time.Duration
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(db DB) *IdempotencyRepository {
	return &IdempotencyRepository{db: db, lockTimeout: DefaultLockTimeout}
}

// WithLockTimeout overrides DefaultLockTimeout.
func (r *IdempotencyRepository) WithLockTimeout(d time.Duration) *IdempotencyRepository {
	if d > 0 {
		r.lockTimeout = d
	}
	return r
}

// Reserve inserts the record unless the key exists. A competing uncommitted
// reservation makes the insert wait; past the lock timeout the call fails
// with domain.ErrConcurrentRequest.
func (r *IdempotencyRepository) Reserve(ctx context.Context, tx usecase.Transaction, rec *domain.IdempotencyRecord) (bool, error) {
	q := conn(r.db, tx)

	if tx != nil {
		if _, err := q.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())); err != nil {
			return false, err
		}
	}

	tag, err := q.Exec(ctx, `
		INSERT INTO idempotency_keys (id, organization_id, scope, key, request_hash, response_status, response_body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (organization_id, scope, key) DO NOTHING`,
		rec.ID, rec.OrganizationID, rec.Scope, rec.Key, rec.RequestHash, rec.ResponseStatus, rec.ResponseBody, rec.CreatedAt,
	)
	if err != nil {
		return false, mapError(err)
	}

	return tag.RowsAffected() == 1, nil
}

// Get retrieves a record.
func (r *IdempotencyRepository) Get(ctx context.Context, tx usecase.Transaction, orgID, scope, key string) (*domain.IdempotencyRecord, error) {
	var rec domain.IdempotencyRecord
	err := conn(r.db, tx).QueryRow(ctx, `
		SELECT id, organization_id, scope, key, request_hash, response_status, response_body, created_at
		FROM idempotency_keys
		WHERE organization_id = $1 AND scope = $2 AND key = $3`,
		orgID, scope, key,
	).Scan(
		&rec.ID, &rec.OrganizationID, &rec.Scope, &rec.Key, &rec.RequestHash,
		&rec.ResponseStatus, &rec.ResponseBody, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// SaveResponse stores the response of a reserved record.
func (r *IdempotencyRepository) SaveResponse(ctx context.Context, tx usecase.Transaction, rec *domain.IdempotencyRecord) error {
	tag, err := conn(r.db, tx).Exec(ctx, `
		UPDATE idempotency_keys SET response_status = $4, response_body = $5
		WHERE organization_id = $1 AND scope = $2 AND key = $3`,
		rec.OrganizationID, rec.Scope, rec.Key, rec.ResponseStatus, rec.ResponseBody,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
