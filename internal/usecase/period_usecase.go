package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/gobooks/internal/domain"
)

// PeriodUseCase guards dated writes against closed periods and manages locks.
type PeriodUseCase struct {
	txManager TransactionManager
	lockRepo  PeriodLockRepository
	auditRepo AuditRepository
	idGen     IDGenerator
	now       func() time.Time
}

// NewPeriodUseCase creates a new PeriodUseCase.
func NewPeriodUseCase(txManager TransactionManager, lockRepo PeriodLockRepository, idGen IDGenerator) *PeriodUseCase {
	return &PeriodUseCase{
		txManager: txManager,
		lockRepo:  lockRepo,
		idGen:     idGen,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithAuditRepository enables audit rows for lock changes.
func (uc *PeriodUseCase) WithAuditRepository(repo AuditRepository) *PeriodUseCase {
	uc.auditRepo = repo
	return uc
}

// WithNow overrides the clock.
func (uc *PeriodUseCase) WithNow(now func() time.Time) *PeriodUseCase {
	uc.now = now
	return uc
}

// AssertOpen fails with ErrPeriodClosed when date falls inside a closed lock.
// It must run on the transaction that performs the dated write.
func (uc *PeriodUseCase) AssertOpen(ctx context.Context, tx Transaction, orgID string, date time.Time) error {
	date = domain.NormalizeDate(date)

	locks, err := uc.lockRepo.FindClosedCovering(ctx, tx, orgID, date)
	if err != nil {
		return err
	}

	for _, lock := range locks {
		if lock.IsClosed && lock.Contains(date) {
			return fmt.Errorf("%w: %s falls in %s..%s", domain.ErrPeriodClosed,
				date.Format(domain.DateLayout),
				lock.PeriodStart.Format(domain.DateLayout),
				lock.PeriodEnd.Format(domain.DateLayout))
		}
	}

	return nil
}

// CreatePeriodLockInput represents input for declaring a period lock.
type CreatePeriodLockInput struct {
	PeriodStart time.Time
	PeriodEnd   time.Time
	Closed      bool
}

// Create declares a period lock, optionally closed from the start.
func (uc *PeriodUseCase) Create(ctx context.Context, actor domain.Actor, input CreatePeriodLockInput) (*domain.PeriodLock, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	now := uc.now()
	lock := &domain.PeriodLock{
		ID:             uc.idGen.Generate(),
		OrganizationID: actor.OrganizationID,
		PeriodStart:    domain.NormalizeDate(input.PeriodStart),
		PeriodEnd:      domain.NormalizeDate(input.PeriodEnd),
		CreatedAt:      now,
	}
	if input.PeriodStart.IsZero() || input.PeriodEnd.IsZero() {
		lock.PeriodStart, lock.PeriodEnd = time.Time{}, time.Time{}
	}

	if err := lock.Validate(); err != nil {
		return nil, err
	}

	if input.Closed {
		closeLock(lock, actor, now)
	}

	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		if err := uc.lockRepo.Create(ctx, tx, lock); err != nil {
			return err
		}

		if !lock.IsClosed {
			return nil
		}

		return audit(ctx, uc.auditRepo, tx, uc.idGen, actor, domain.AuditActionPeriodClose,
			domain.ResourcePeriodLock, lock.ID, nil, lock, now)
	})
	if err != nil {
		return nil, err
	}

	return lock, nil
}

// Close marks a lock closed.
func (uc *PeriodUseCase) Close(ctx context.Context, actor domain.Actor, id string) (*domain.PeriodLock, error) {
	return uc.setClosed(ctx, actor, id, true)
}

// Reopen marks a lock open again.
func (uc *PeriodUseCase) Reopen(ctx context.Context, actor domain.Actor, id string) (*domain.PeriodLock, error) {
	return uc.setClosed(ctx, actor, id, false)
}

func (uc *PeriodUseCase) setClosed(ctx context.Context, actor domain.Actor, id string, closed bool) (*domain.PeriodLock, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	var result *domain.PeriodLock
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		lock, err := uc.lockRepo.GetByIDForUpdate(ctx, tx, actor.OrganizationID, id)
		if err != nil {
			return err
		}

		if lock.IsClosed == closed {
			result = lock
			return nil
		}

		before := *lock
		now := uc.now()
		action := domain.AuditActionPeriodReopen
		if closed {
			closeLock(lock, actor, now)
			action = domain.AuditActionPeriodClose
		} else {
			lock.IsClosed = false
			lock.ClosedAt = nil
			lock.ClosedBy = nil
		}

		if err := uc.lockRepo.Update(ctx, tx, lock); err != nil {
			return err
		}

		result = lock
		return audit(ctx, uc.auditRepo, tx, uc.idGen, actor, action, domain.ResourcePeriodLock, lock.ID, before, lock, now)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// List returns every lock of the organization ordered by period start.
func (uc *PeriodUseCase) List(ctx context.Context, orgID string) ([]*domain.PeriodLock, error) {
	return uc.lockRepo.List(ctx, nil, orgID)
}

func closeLock(lock *domain.PeriodLock, actor domain.Actor, now time.Time) {
	closedBy := actor.UserID
	lock.IsClosed = true
	lock.ClosedAt = &now
	lock.ClosedBy = &closedBy
}
