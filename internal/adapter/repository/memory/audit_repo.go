package memory

import (
	"context"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// AuditRepository implements usecase.AuditRepository.
type AuditRepository struct {
	store *Store
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(store *Store) *AuditRepository {
	return &AuditRepository{store: store}
}

// CreateTx appends an audit log in the caller's transaction.
func (r *AuditRepository) CreateTx(_ context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return r.store.write(tx, func(s *state) error {
		c := *log
		s.audit = append(s.audit, &c)
		return nil
	})
}

// List lists audit logs, newest first.
func (r *AuditRepository) List(_ context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	var out []*domain.AuditLog
	err := r.store.read(nil, func(s *state) error {
		for i := len(s.audit) - 1; i >= 0; i-- {
			l := s.audit[i]
			if filter.OrganizationID != "" && l.OrganizationID != filter.OrganizationID {
				continue
			}
			if filter.ActorID != "" && l.ActorID != filter.ActorID {
				continue
			}
			if filter.Action != "" && l.Action != filter.Action {
				continue
			}
			if filter.ResourceType != "" && l.ResourceType != filter.ResourceType {
				continue
			}
			if filter.ResourceID != "" && l.ResourceID != filter.ResourceID {
				continue
			}
			c := *l
			out = append(out, &c)
		}
		return nil
	})
	return page(out, filter.Limit, filter.Offset), err
}
