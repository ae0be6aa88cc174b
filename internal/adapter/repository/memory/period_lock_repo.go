package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// PeriodLockRepository implements usecase.PeriodLockRepository.
type PeriodLockRepository struct {
	store *Store
}

// NewPeriodLockRepository creates a new PeriodLockRepository.
func NewPeriodLockRepository(store *Store) *PeriodLockRepository {
	return &PeriodLockRepository{store: store}
}

// Create inserts a lock. Ranges are unique per organization.
func (r *PeriodLockRepository) Create(_ context.Context, tx usecase.Transaction, lock *domain.PeriodLock) error {
	return r.store.write(tx, func(s *state) error {
		for _, l := range s.locks {
			if l.OrganizationID == lock.OrganizationID && l.PeriodStart.Equal(lock.PeriodStart) && l.PeriodEnd.Equal(lock.PeriodEnd) {
				return fmt.Errorf("%w: %s..%s", domain.ErrDuplicatePeriod,
					lock.PeriodStart.Format(domain.DateLayout), lock.PeriodEnd.Format(domain.DateLayout))
			}
		}
		c := *lock
		s.locks[lock.ID] = &c
		return nil
	})
}

// Update overwrites a lock.
func (r *PeriodLockRepository) Update(_ context.Context, tx usecase.Transaction, lock *domain.PeriodLock) error {
	return r.store.write(tx, func(s *state) error {
		cur, ok := s.locks[lock.ID]
		if !ok || cur.OrganizationID != lock.OrganizationID {
			return domain.ErrPeriodLockNotFound
		}
		c := *lock
		s.locks[lock.ID] = &c
		return nil
	})
}

// GetByIDForUpdate retrieves a lock.
func (r *PeriodLockRepository) GetByIDForUpdate(_ context.Context, tx usecase.Transaction, orgID, id string) (*domain.PeriodLock, error) {
	var out *domain.PeriodLock
	err := r.store.read(tx, func(s *state) error {
		l, ok := s.locks[id]
		if !ok || l.OrganizationID != orgID {
			return domain.ErrPeriodLockNotFound
		}
		c := *l
		out = &c
		return nil
	})
	return out, err
}

// List lists the organization's locks by start date.
func (r *PeriodLockRepository) List(_ context.Context, tx usecase.Transaction, orgID string) ([]*domain.PeriodLock, error) {
	return r.collect(tx, orgID, func(*domain.PeriodLock) bool { return true })
}

// FindClosedCovering lists closed locks whose range contains date.
func (r *PeriodLockRepository) FindClosedCovering(_ context.Context, tx usecase.Transaction, orgID string, date time.Time) ([]*domain.PeriodLock, error) {
	return r.collect(tx, orgID, func(l *domain.PeriodLock) bool {
		return l.IsClosed && l.Contains(date)
	})
}

func (r *PeriodLockRepository) collect(tx usecase.Transaction, orgID string, keep func(*domain.PeriodLock) bool) ([]*domain.PeriodLock, error) {
	var out []*domain.PeriodLock
	err := r.store.read(tx, func(s *state) error {
		for _, l := range s.locks {
			if l.OrganizationID == orgID && keep(l) {
				c := *l
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })
	return out, err
}
