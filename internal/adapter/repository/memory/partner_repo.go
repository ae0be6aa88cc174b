package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// PartnerRepository implements usecase.PartnerRepository.
type PartnerRepository struct {
	store *Store
}

// NewPartnerRepository creates a new PartnerRepository.
func NewPartnerRepository(store *Store) *PartnerRepository {
	return &PartnerRepository{store: store}
}

func partnerCodeTaken(s *state, orgID, code, exceptID string) bool {
	for _, p := range s.partners {
		if p.OrganizationID == orgID && p.Code == code && p.ID != exceptID && p.DeletedAt == nil {
			return true
		}
	}
	return false
}

// Create inserts a partner.
func (r *PartnerRepository) Create(_ context.Context, tx usecase.Transaction, partner *domain.BusinessPartner) error {
	return r.store.write(tx, func(s *state) error {
		if partnerCodeTaken(s, partner.OrganizationID, partner.Code, "") {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCode, partner.Code)
		}
		s.partners[partner.ID] = copyPartner(partner)
		return nil
	})
}

// Update overwrites a live partner.
func (r *PartnerRepository) Update(_ context.Context, tx usecase.Transaction, partner *domain.BusinessPartner) error {
	return r.store.write(tx, func(s *state) error {
		cur, ok := s.partners[partner.ID]
		if !ok || cur.OrganizationID != partner.OrganizationID || cur.DeletedAt != nil {
			return domain.ErrPartnerNotFound
		}
		if partnerCodeTaken(s, partner.OrganizationID, partner.Code, partner.ID) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCode, partner.Code)
		}
		s.partners[partner.ID] = copyPartner(partner)
		return nil
	})
}

// SoftDelete marks a partner deleted.
func (r *PartnerRepository) SoftDelete(_ context.Context, tx usecase.Transaction, orgID, id string, at time.Time) error {
	return r.store.write(tx, func(s *state) error {
		p, ok := s.partners[id]
		if !ok || p.OrganizationID != orgID || p.DeletedAt != nil {
			return domain.ErrPartnerNotFound
		}
		p.DeletedAt = &at
		p.UpdatedAt = at
		return nil
	})
}

// GetByID retrieves a live partner.
func (r *PartnerRepository) GetByID(_ context.Context, tx usecase.Transaction, orgID, id string) (*domain.BusinessPartner, error) {
	var out *domain.BusinessPartner
	err := r.store.read(tx, func(s *state) error {
		p, ok := s.partners[id]
		if !ok || p.OrganizationID != orgID || p.DeletedAt != nil {
			return domain.ErrPartnerNotFound
		}
		out = copyPartner(p)
		return nil
	})
	return out, err
}

// GetByIDs retrieves partners by id, including deleted ones.
func (r *PartnerRepository) GetByIDs(_ context.Context, tx usecase.Transaction, orgID string, ids []string) ([]*domain.BusinessPartner, error) {
	var out []*domain.BusinessPartner
	err := r.store.read(tx, func(s *state) error {
		for _, id := range ids {
			if p, ok := s.partners[id]; ok && p.OrganizationID == orgID {
				out = append(out, copyPartner(p))
			}
		}
		return nil
	})
	return out, err
}

// GetByCode retrieves a live partner by code.
func (r *PartnerRepository) GetByCode(_ context.Context, tx usecase.Transaction, orgID, code string) (*domain.BusinessPartner, error) {
	var out *domain.BusinessPartner
	err := r.store.read(tx, func(s *state) error {
		for _, p := range s.partners {
			if p.OrganizationID == orgID && p.Code == code && p.DeletedAt == nil {
				out = copyPartner(p)
				return nil
			}
		}
		return domain.ErrPartnerNotFound
	})
	return out, err
}

// List lists live partners ordered by code.
func (r *PartnerRepository) List(_ context.Context, tx usecase.Transaction, orgID string, filter domain.PartnerFilter) ([]*domain.BusinessPartner, error) {
	search := strings.ToLower(filter.Search)
	var out []*domain.BusinessPartner
	err := r.store.read(tx, func(s *state) error {
		for _, p := range s.partners {
			if p.OrganizationID != orgID || p.DeletedAt != nil {
				continue
			}
			if filter.Category != "" && p.Category != filter.Category {
				continue
			}
			if !filter.IncludeInactive && !p.IsActive {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(p.Code+" "+p.Name), search) {
				continue
			}
			out = append(out, copyPartner(p))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return page(out, filter.Limit, filter.Offset), nil
}
