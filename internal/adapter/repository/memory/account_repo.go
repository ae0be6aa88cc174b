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

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

func liveCodeTaken(s *state, orgID, code, exceptID string) bool {
	for _, a := range s.accounts {
		if a.OrganizationID == orgID && a.Code == code && a.ID != exceptID && a.DeletedAt == nil {
			return true
		}
	}
	return false
}

// Create inserts an account.
func (r *AccountRepository) Create(_ context.Context, tx usecase.Transaction, account *domain.Account) error {
	return r.store.write(tx, func(s *state) error {
		if liveCodeTaken(s, account.OrganizationID, account.Code, "") {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCode, account.Code)
		}
		s.accounts[account.ID] = copyAccount(account)
		return nil
	})
}

// Update overwrites a live account.
func (r *AccountRepository) Update(_ context.Context, tx usecase.Transaction, account *domain.Account) error {
	return r.store.write(tx, func(s *state) error {
		cur, ok := s.accounts[account.ID]
		if !ok || cur.OrganizationID != account.OrganizationID || cur.DeletedAt != nil {
			return domain.ErrAccountNotFound
		}
		if liveCodeTaken(s, account.OrganizationID, account.Code, account.ID) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCode, account.Code)
		}
		s.accounts[account.ID] = copyAccount(account)
		return nil
	})
}

// SoftDelete marks an account deleted.
func (r *AccountRepository) SoftDelete(_ context.Context, tx usecase.Transaction, orgID, id string, at time.Time) error {
	return r.store.write(tx, func(s *state) error {
		a, ok := s.accounts[id]
		if !ok || a.OrganizationID != orgID || a.DeletedAt != nil {
			return domain.ErrAccountNotFound
		}
		a.DeletedAt = &at
		a.UpdatedAt = at
		return nil
	})
}

func (r *AccountRepository) get(tx usecase.Transaction, orgID, id string) (*domain.Account, error) {
	var out *domain.Account
	err := r.store.read(tx, func(s *state) error {
		a, ok := s.accounts[id]
		if !ok || a.OrganizationID != orgID || a.DeletedAt != nil {
			return domain.ErrAccountNotFound
		}
		out = copyAccount(a)
		return nil
	})
	return out, err
}

// GetByID retrieves a live account.
func (r *AccountRepository) GetByID(_ context.Context, tx usecase.Transaction, orgID, id string) (*domain.Account, error) {
	return r.get(tx, orgID, id)
}

// GetByIDForUpdate retrieves a live account. Transactions are already exclusive.
func (r *AccountRepository) GetByIDForUpdate(_ context.Context, tx usecase.Transaction, orgID, id string) (*domain.Account, error) {
	return r.get(tx, orgID, id)
}

// GetByIDs retrieves accounts by id, including deleted ones. Unknown ids are skipped.
func (r *AccountRepository) GetByIDs(_ context.Context, tx usecase.Transaction, orgID string, ids []string) ([]*domain.Account, error) {
	var out []*domain.Account
	err := r.store.read(tx, func(s *state) error {
		for _, id := range ids {
			if a, ok := s.accounts[id]; ok && a.OrganizationID == orgID {
				out = append(out, copyAccount(a))
			}
		}
		return nil
	})
	return out, err
}

// GetByCode retrieves a live account by code.
func (r *AccountRepository) GetByCode(_ context.Context, tx usecase.Transaction, orgID, code string) (*domain.Account, error) {
	var out *domain.Account
	err := r.store.read(tx, func(s *state) error {
		for _, a := range s.accounts {
			if a.OrganizationID == orgID && a.Code == code && a.DeletedAt == nil {
				out = copyAccount(a)
				return nil
			}
		}
		return domain.ErrAccountNotFound
	})
	return out, err
}

// HasChildren reports whether live accounts point at id.
func (r *AccountRepository) HasChildren(_ context.Context, tx usecase.Transaction, orgID, id string) (bool, error) {
	var found bool
	err := r.store.read(tx, func(s *state) error {
		for _, a := range s.accounts {
			if a.OrganizationID == orgID && a.DeletedAt == nil && a.ParentID != nil && *a.ParentID == id {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

// List lists live accounts ordered by code.
func (r *AccountRepository) List(_ context.Context, tx usecase.Transaction, orgID string, filter domain.AccountFilter) ([]*domain.Account, error) {
	search := strings.ToLower(filter.Search)
	var out []*domain.Account
	err := r.store.read(tx, func(s *state) error {
		for _, a := range s.accounts {
			if a.OrganizationID != orgID || a.DeletedAt != nil {
				continue
			}
			if filter.Type != "" && a.Type != filter.Type {
				continue
			}
			if filter.ParentID != "" && (a.ParentID == nil || *a.ParentID != filter.ParentID) {
				continue
			}
			if filter.PostableOnly && !a.IsPostable {
				continue
			}
			if !filter.IncludeInactive && !a.IsActive {
				continue
			}
			if search != "" && !strings.Contains(strings.ToLower(a.Code+" "+a.Name), search) {
				continue
			}
			out = append(out, copyAccount(a))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortAccounts(out)
	return page(out, filter.Limit, filter.Offset), nil
}

// ListAll lists every account of the organization, including inactive and
// deleted ones, ordered by code.
func (r *AccountRepository) ListAll(_ context.Context, tx usecase.Transaction, orgID string) ([]*domain.Account, error) {
	var out []*domain.Account
	err := r.store.read(tx, func(s *state) error {
		for _, a := range s.accounts {
			if a.OrganizationID == orgID {
				out = append(out, copyAccount(a))
			}
		}
		return nil
	})
	sortAccounts(out)
	return out, err
}

func sortAccounts(accounts []*domain.Account) {
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].Code != accounts[j].Code {
			return accounts[i].Code < accounts[j].Code
		}
		return accounts[i].ID < accounts[j].ID
	})
}
