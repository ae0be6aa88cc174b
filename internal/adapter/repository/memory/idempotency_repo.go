package memory

import (
	"context"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// IdempotencyRepository implements usecase.IdempotencyRepository.
type IdempotencyRepository struct {
	store *Store
}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(store *Store) *IdempotencyRepository {
	return &IdempotencyRepository{store: store}
}

func recordKey(orgID, scope, key string) string {
	return orgID + "\x00" + scope + "\x00" + key
}

// Reserve inserts the record unless the key exists.
func (r *IdempotencyRepository) Reserve(_ context.Context, tx usecase.Transaction, record *domain.IdempotencyRecord) (bool, error) {
	var inserted bool
	err := r.store.write(tx, func(s *state) error {
		k := recordKey(record.OrganizationID, record.Scope, record.Key)
		if _, ok := s.idempotency[k]; ok {
			return nil
		}
		s.idempotency[k] = copyRecord(record)
		inserted = true
		return nil
	})
	return inserted, err
}

// Get retrieves a record.
func (r *IdempotencyRepository) Get(_ context.Context, tx usecase.Transaction, orgID, scope, key string) (*domain.IdempotencyRecord, error) {
	var out *domain.IdempotencyRecord
	err := r.store.read(tx, func(s *state) error {
		rec, ok := s.idempotency[recordKey(orgID, scope, key)]
		if !ok {
			return domain.ErrNotFound
		}
		out = copyRecord(rec)
		return nil
	})
	return out, err
}

// SaveResponse stores the response of a reserved record.
func (r *IdempotencyRepository) SaveResponse(_ context.Context, tx usecase.Transaction, record *domain.IdempotencyRecord) error {
	return r.store.write(tx, func(s *state) error {
		k := recordKey(record.OrganizationID, record.Scope, record.Key)
		cur, ok := s.idempotency[k]
		if !ok {
			return domain.ErrNotFound
		}
		cur.ResponseStatus = record.ResponseStatus
		cur.ResponseBody = append([]byte(nil), record.ResponseBody...)
		return nil
	})
}
