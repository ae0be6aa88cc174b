package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	db DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, organization_id, code, name, type, normal_balance, parent_id,
	cash_flow_activity, subledger, requires_bp, is_postable, is_active,
	created_at, updated_at, deleted_at`

// Create inserts an account.
func (r *AccountRepository) Create(ctx context.Context, tx usecase.Transaction, a *domain.Account) error {
	_, err := conn(r.db, tx).Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		a.ID, a.OrganizationID, a.Code, a.Name, string(a.Type), string(a.NormalBalance), a.ParentID,
		activityString(a.CashFlowActivity), a.Subledger, a.RequiresBP, a.IsPostable, a.IsActive,
		a.CreatedAt, a.UpdatedAt, a.DeletedAt,
	)
	return mapError(err)
}

// Update overwrites a live account.
func (r *AccountRepository) Update(ctx context.Context, tx usecase.Transaction, a *domain.Account) error {
	tag, err := conn(r.db, tx).Exec(ctx, `
		UPDATE accounts SET
			code = $3, name = $4, type = $5, normal_balance = $6, parent_id = $7,
			cash_flow_activity = $8, subledger = $9, requires_bp = $10,
			is_postable = $11, is_active = $12, updated_at = $13
		WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL`,
		a.OrganizationID, a.ID, a.Code, a.Name, string(a.Type), string(a.NormalBalance), a.ParentID,
		activityString(a.CashFlowActivity), a.Subledger, a.RequiresBP,
		a.IsPostable, a.IsActive, a.UpdatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// SoftDelete marks an account deleted.
func (r *AccountRepository) SoftDelete(ctx context.Context, tx usecase.Transaction, orgID, id string, at time.Time) error {
	tag, err := conn(r.db, tx).Exec(ctx, `
		UPDATE accounts SET deleted_at = $3, updated_at = $3
		WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL`,
		orgID, id, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// GetByID retrieves a live account.
func (r *AccountRepository) GetByID(ctx context.Context, tx usecase.Transaction, orgID, id string) (*domain.Account, error) {
	return r.getOne(ctx, tx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL`, orgID, id)
}

// GetByIDForUpdate retrieves a live account with a FOR UPDATE lock.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, orgID, id string) (*domain.Account, error) {
	return r.getOne(ctx, tx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL
		FOR UPDATE`, orgID, id)
}

// GetByCode retrieves a live account by code.
func (r *AccountRepository) GetByCode(ctx context.Context, tx usecase.Transaction, orgID, code string) (*domain.Account, error) {
	return r.getOne(ctx, tx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE organization_id = $1 AND code = $2 AND deleted_at IS NULL`, orgID, code)
}

// GetByIDs retrieves accounts by id, including deleted ones. Unknown ids are skipped.
func (r *AccountRepository) GetByIDs(ctx context.Context, tx usecase.Transaction, orgID string, ids []string) ([]*domain.Account, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.getMany(ctx, tx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE organization_id = $1 AND id = ANY($2)
		ORDER BY code, id`, orgID, ids)
}

// HasChildren reports whether live accounts point at id.
func (r *AccountRepository) HasChildren(ctx context.Context, tx usecase.Transaction, orgID, id string) (bool, error) {
	var found bool
	err := conn(r.db, tx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM accounts
			WHERE organization_id = $1 AND parent_id = $2 AND deleted_at IS NULL
		)`, orgID, id).Scan(&found)
	return found, err
}

// List lists live accounts ordered by code.
func (r *AccountRepository) List(ctx context.Context, tx usecase.Transaction, orgID string, filter domain.AccountFilter) ([]*domain.Account, error) {
	w := newWhere(orgID)
	w.add("organization_id = $1")
	w.add("deleted_at IS NULL")
	if filter.Type != "" {
		w.add("type = " + w.arg(string(filter.Type)))
	}
	if filter.ParentID != "" {
		w.add("parent_id = " + w.arg(filter.ParentID))
	}
	if filter.PostableOnly {
		w.add("is_postable")
	}
	if !filter.IncludeInactive {
		w.add("is_active")
	}
	if filter.Search != "" {
		w.add("(code || ' ' || name) ILIKE " + w.arg(likePattern(filter.Search)))
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + w.String() + ` ORDER BY code, id`
	query += w.page(filter.Limit, filter.Offset)

	return r.getMany(ctx, tx, query, w.args...)
}

// ListAll lists every account of the organization, including inactive and
// deleted ones, ordered by code.
func (r *AccountRepository) ListAll(ctx context.Context, tx usecase.Transaction, orgID string) ([]*domain.Account, error) {
	return r.getMany(ctx, tx, `
		SELECT `+accountColumns+` FROM accounts
		WHERE organization_id = $1
		ORDER BY code, id`, orgID)
}

func (r *AccountRepository) getOne(ctx context.Context, tx usecase.Transaction, query string, args ...any) (*domain.Account, error) {
	a, err := scanAccount(conn(r.db, tx).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) getMany(ctx context.Context, tx usecase.Transaction, query string, args ...any) ([]*domain.Account, error) {
	rows, err := conn(r.db, tx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a                   domain.Account
		accountType, normal string
		activity            *string
	)

	err := row.Scan(
		&a.ID,
		&a.OrganizationID,
		&a.Code,
		&a.Name,
		&accountType,
		&normal,
		&a.ParentID,
		&activity,
		&a.Subledger,
		&a.RequiresBP,
		&a.IsPostable,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
		&a.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Type = domain.AccountType(accountType)
	a.NormalBalance = domain.Side(normal)
	if activity != nil {
		v := domain.CashFlowActivity(*activity)
		a.CashFlowActivity = &v
	}

	return &a, nil
}

func activityString(a *domain.CashFlowActivity) *string {
	if a == nil {
		return nil
	}
	s := string(*a)
	return &s
}
