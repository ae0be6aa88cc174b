package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// PartnerRepository implements usecase.PartnerRepository.
type PartnerRepository struct {
	db DB
}

// NewPartnerRepository creates a new PartnerRepository.
func NewPartnerRepository(db DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

const partnerColumns = `id, organization_id, code, name, category, normal_balance, is_active,
	created_at, updated_at, deleted_at`

// Create inserts a partner.
func (r *PartnerRepository) Create(ctx context.Context, tx usecase.Transaction, p *domain.BusinessPartner) error {
	_, err := conn(r.db, tx).Exec(ctx, `
		INSERT INTO business_partners (`+partnerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.OrganizationID, p.Code, p.Name, p.Category, string(p.NormalBalance), p.IsActive,
		p.CreatedAt, p.UpdatedAt, p.DeletedAt,
	)
	return mapError(err)
}

// Update overwrites a live partner.
func (r *PartnerRepository) Update(ctx context.Context, tx usecase.Transaction, p *domain.BusinessPartner) error {
	tag, err := conn(r.db, tx).Exec(ctx, `
		UPDATE business_partners SET
			code = $3, name = $4, category = $5, normal_balance = $6, is_active = $7, updated_at = $8
		WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL`,
		p.OrganizationID, p.ID, p.Code, p.Name, p.Category, string(p.NormalBalance), p.IsActive, p.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPartnerNotFound
	}
	return nil
}

// SoftDelete marks a partner deleted.
func (r *PartnerRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, orgID, id string, at time.Time) error {
	tag, err := conn(r.db, tx).Exec(ctx, `
		UPDATE business_partners SET deleted_at = $3, updated_at = $3
		WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL`,
		orgID, id, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPartnerNotFound
	}
	return nil
}

// GetByID retrieves a live partner.
func (r *PartnerRepository) GetByID(ctx context.Context, tx usecase.Transaction, orgID, id string) (*domain.BusinessPartner, error) {
	return r.getOne(ctx, tx, `
		SELECT `+partnerColumns+` FROM business_partners
		WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL`, orgID, id)
}

// GetByCode retrieves a live partner by code.
func (r *PartnerRepository) GetByCode(ctx context.Context, tx usecase.Transaction, orgID, code string) (*domain.BusinessPartner, error) {
	return r.getOne(ctx, tx, `
		SELECT `+partnerColumns+` FROM business_partners
		WHERE organization_id = $1 AND code = $2 AND deleted_at IS NULL`, orgID, code)
}

// GetByIDs retrieves partners by id, including deleted ones.
func (r *PartnerRepository) GetByIDs(ctx context.Context, tx usecase.Transaction, orgID string, ids []string) ([]*domain.BusinessPartner, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.getMany(ctx, tx, `
		SELECT `+partnerColumns+` FROM business_partners
		WHERE organization_id = $1 AND id = ANY($2)
		ORDER BY code, id`, orgID, ids)
}

// List lists live partners ordered by code.
func (r *PartnerRepository) List(ctx context.Context, tx usecase.Transaction, orgID string, filter domain.PartnerFilter) ([]*domain.BusinessPartner, error) {
	w := newWhere(orgID)
	w.add("organization_id = $1")
	w.add("deleted_at IS NULL")
	if filter.Category != "" {
		w.add("category = " + w.arg(filter.Category))
	}
	if !filter.IncludeInactive {
		w.add("is_active")
	}
	if filter.Search != "" {
		w.add("(code || ' ' || name) ILIKE " + w.arg(likePattern(filter.Search)))
	}

	query := `SELECT ` + partnerColumns + ` FROM business_partners WHERE ` + w.String() + ` ORDER BY code, id`
	query += w.page(filter.Limit, filter.Offset)

	return r.getMany(ctx, tx, query, w.args...)
}

func (r *PartnerRepository) getOne(ctx context.Context, tx usecase.Transaction, query string, args ...any) (*domain.BusinessPartner, error) {
	p, err := scanPartner(conn(r.db, tx).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPartnerNotFound
	}
	return p, err
}

func (r *PartnerRepository) getMany(ctx context.Context, tx usecase.Transaction, query string, args ...any) ([]*domain.BusinessPartner, error) {
	rows, err := conn(r.db, tx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partners []*domain.BusinessPartner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, err
		}
		partners = append(partners, p)
	}

	return partners, rows.Err()
}

func scanPartner(row pgx.Row) (*domain.BusinessPartner, error) {
	var (
		p      domain.BusinessPartner
		normal string
	)
	if err := row.Scan(
		&p.ID, &p.OrganizationID, &p.Code, &p.Name, &p.Category, &normal, &p.IsActive,
		&p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	); err != nil {
		return nil, err
	}
	p.NormalBalance = domain.Side(normal)
	return &p, nil
}
