package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iho/gobooks/internal/domain"
)

// PartnerUseCase maintains business partners used as subledger dimension.
type PartnerUseCase struct {
	txManager   TransactionManager
	partnerRepo PartnerRepository
	auditRepo   AuditRepository
	idGen       IDGenerator
	now         func() time.Time
}

// NewPartnerUseCase creates a new PartnerUseCase.
func NewPartnerUseCase(txManager TransactionManager, partnerRepo PartnerRepository, idGen IDGenerator) *PartnerUseCase {
	return &PartnerUseCase{
		txManager:   txManager,
		partnerRepo: partnerRepo,
		idGen:       idGen,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithAuditRepository enables audit rows for imports.
func (uc *PartnerUseCase) WithAuditRepository(repo AuditRepository) *PartnerUseCase {
	uc.auditRepo = repo
	return uc
}

// WithNow overrides the clock.
func (uc *PartnerUseCase) WithNow(now func() time.Time) *PartnerUseCase {
	uc.now = now
	return uc
}

// PartnerInput represents input for creating or importing a partner.
type PartnerInput struct {
	IsActive      *bool
	Code          string
	Name          string
	Category      string
	NormalBalance domain.Side
}

// UpdatePartnerInput represents a partial partner update.
type UpdatePartnerInput struct {
	Code          *string
	Name          *string
	Category      *string
	NormalBalance *domain.Side
	IsActive      *bool
}

// CreatePartner creates a new business partner.
func (uc *PartnerUseCase) CreatePartner(ctx context.Context, actor domain.Actor, input PartnerInput) (*domain.BusinessPartner, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	now := uc.now()
	partner := &domain.BusinessPartner{
		ID:             uc.idGen.Generate(),
		OrganizationID: actor.OrganizationID,
		CreatedAt:      now,
	}
	applyPartnerInput(partner, input, now)

	if err := partner.Validate(); err != nil {
		return nil, err
	}

	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		_, err := uc.partnerRepo.GetByCode(ctx, tx, actor.OrganizationID, partner.Code)
		if err == nil {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCode, partner.Code)
		}
		if !errors.Is(err, domain.ErrPartnerNotFound) {
			return err
		}

		return uc.partnerRepo.Create(ctx, tx, partner)
	})
	if err != nil {
		return nil, err
	}

	return partner, nil
}

// UpdatePartner applies a partial update. The code is immutable.
func (uc *PartnerUseCase) UpdatePartner(ctx context.Context, actor domain.Actor, id string, input UpdatePartnerInput) (*domain.BusinessPartner, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	var result *domain.BusinessPartner
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		partner, err := uc.partnerRepo.GetByID(ctx, tx, actor.OrganizationID, id)
		if err != nil {
			return err
		}

		if input.Code != nil && domain.NormalizeCode(*input.Code) != partner.Code {
			return domain.ErrImmutableField
		}
		if input.Name != nil {
			partner.Name = *input.Name
		}
		if input.Category != nil {
			partner.Category = *input.Category
		}
		if input.NormalBalance != nil {
			partner.NormalBalance = *input.NormalBalance
		}
		if input.IsActive != nil {
			partner.IsActive = *input.IsActive
		}
		partner.UpdatedAt = uc.now()

		if err := partner.Validate(); err != nil {
			return err
		}

		result = partner
		return uc.partnerRepo.Update(ctx, tx, partner)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DeletePartner soft-deletes a partner.
func (uc *PartnerUseCase) DeletePartner(ctx context.Context, actor domain.Actor, id string) error {
	if err := actor.Validate(); err != nil {
		return err
	}

	return withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		if _, err := uc.partnerRepo.GetByID(ctx, tx, actor.OrganizationID, id); err != nil {
			return err
		}
		return uc.partnerRepo.SoftDelete(ctx, tx, actor.OrganizationID, id, uc.now())
	})
}

// GetPartner retrieves a partner by ID.
func (uc *PartnerUseCase) GetPartner(ctx context.Context, orgID, id string) (*domain.BusinessPartner, error) {
	return uc.partnerRepo.GetByID(ctx, nil, orgID, id)
}

// ListPartners lists partners ordered by code.
func (uc *PartnerUseCase) ListPartners(ctx context.Context, orgID string, filter domain.PartnerFilter) ([]*domain.BusinessPartner, error) {
	filter.Limit, filter.Offset, _ = domain.ValidatePagination(filter.Limit, filter.Offset)
	return uc.partnerRepo.List(ctx, nil, orgID, filter)
}

// Options lists active partners for pickers.
func (uc *PartnerUseCase) Options(ctx context.Context, orgID, category string) ([]*domain.BusinessPartner, error) {
	return uc.partnerRepo.List(ctx, nil, orgID, domain.PartnerFilter{
		Category: category,
		Limit:    domain.MaxPageSize,
	})
}

// ImportPartners inserts or updates partners keyed by code.
func (uc *PartnerUseCase) ImportPartners(ctx context.Context, actor domain.Actor, rows []PartnerInput, mode domain.ImportMode) (*domain.ImportResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("%w: unknown import mode %q", domain.ErrValidation, mode)
	}
	if len(rows) == 0 || len(rows) > domain.MaxImportRows {
		return nil, fmt.Errorf("%w: import must contain 1..%d rows", domain.ErrValidation, domain.MaxImportRows)
	}

	seen := make(map[string]bool, len(rows))
	for i, row := range rows {
		code := domain.NormalizeCode(row.Code)
		if code == "" || seen[code] {
			return nil, fmt.Errorf("%w: row %d: missing or duplicate code %q", domain.ErrValidation, i+1, code)
		}
		seen[code] = true
	}

	result := &domain.ImportResult{}
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		*result = domain.ImportResult{}
		now := uc.now()

		for _, row := range rows {
			existing, err := uc.partnerRepo.GetByCode(ctx, tx, actor.OrganizationID, domain.NormalizeCode(row.Code))
			if err != nil && !errors.Is(err, domain.ErrPartnerNotFound) {
				return err
			}

			if existing != nil {
				if mode == domain.ImportModeInsertOnly {
					result.Skipped++
					continue
				}
				applyPartnerInput(existing, row, now)
				if err := existing.Validate(); err != nil {
					return fmt.Errorf("%s: %w", existing.Code, err)
				}
				if err := uc.partnerRepo.Update(ctx, tx, existing); err != nil {
					return err
				}
				result.Updated++
				continue
			}

			partner := &domain.BusinessPartner{
				ID:             uc.idGen.Generate(),
				OrganizationID: actor.OrganizationID,
				CreatedAt:      now,
			}
			applyPartnerInput(partner, row, now)
			if err := partner.Validate(); err != nil {
				return fmt.Errorf("%s: %w", partner.Code, err)
			}
			if err := uc.partnerRepo.Create(ctx, tx, partner); err != nil {
				return err
			}
			result.Inserted++
		}

		return audit(ctx, uc.auditRepo, tx, uc.idGen, actor, domain.AuditActionPartnerImport,
			domain.ResourcePartner, "", nil, result, now)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func applyPartnerInput(partner *domain.BusinessPartner, input PartnerInput, now time.Time) {
	partner.Code = domain.NormalizeCode(input.Code)
	partner.Name = input.Name
	partner.Category = input.Category
	partner.NormalBalance = input.NormalBalance
	if partner.NormalBalance == "" {
		partner.NormalBalance = domain.SideDebit
	}
	partner.IsActive = boolOr(input.IsActive, true)
	partner.UpdatedAt = now
}
