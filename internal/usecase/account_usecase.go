package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iho/gobooks/internal/domain"
)

// AccountUseCase maintains the chart of accounts.
type AccountUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	auditRepo   AuditRepository
	idGen       IDGenerator
	now         func() time.Time
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(txManager TransactionManager, accountRepo AccountRepository, idGen IDGenerator) *AccountUseCase {
	return &AccountUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		idGen:       idGen,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// WithAuditRepository enables audit rows for deletes and imports.
func (uc *AccountUseCase) WithAuditRepository(repo AuditRepository) *AccountUseCase {
	uc.auditRepo = repo
	return uc
}

// WithNow overrides the clock.
func (uc *AccountUseCase) WithNow(now func() time.Time) *AccountUseCase {
	uc.now = now
	return uc
}

// CreateAccountInput represents input for creating an account.
type CreateAccountInput struct {
	CashFlowActivity *domain.CashFlowActivity
	Subledger        *string
	ParentID         *string
	IsPostable       *bool
	IsActive         *bool
	Code             string
	Name             string
	Type             domain.AccountType
	NormalBalance    domain.Side
	RequiresBP       bool
}

// UpdateAccountInput represents a partial account update. Code and Type may be
// supplied only if they equal the stored values. An empty ParentID, Subledger
// or CashFlowActivity clears the field.
type UpdateAccountInput struct {
	Code             *string
	Type             *domain.AccountType
	Name             *string
	NormalBalance    *domain.Side
	CashFlowActivity *domain.CashFlowActivity
	Subledger        *string
	ParentID         *string
	RequiresBP       *bool
	IsPostable       *bool
	IsActive         *bool
}

// CreateAccount creates a new account.
func (uc *AccountUseCase) CreateAccount(ctx context.Context, actor domain.Actor, input CreateAccountInput) (*domain.Account, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	now := uc.now()
	account := &domain.Account{
		ID:               uc.idGen.Generate(),
		OrganizationID:   actor.OrganizationID,
		Code:             domain.NormalizeCode(input.Code),
		Name:             input.Name,
		Type:             input.Type,
		NormalBalance:    input.NormalBalance,
		CashFlowActivity: input.CashFlowActivity,
		RequiresBP:       input.RequiresBP,
		Subledger:        input.Subledger,
		ParentID:         emptyToNil(input.ParentID),
		IsPostable:       boolOr(input.IsPostable, true),
		IsActive:         boolOr(input.IsActive, true),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if account.NormalBalance == "" {
		account.NormalBalance = domain.DefaultNormalBalance(account.Type)
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}

	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		if err := uc.ensureCodeFree(ctx, tx, actor.OrganizationID, account.Code); err != nil {
			return err
		}

		if account.ParentID != nil {
			if err := uc.validateParent(ctx, tx, actor.OrganizationID, account.ID, *account.ParentID); err != nil {
				return err
			}
		}

		return uc.accountRepo.Create(ctx, tx, account)
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// UpdateAccount applies a partial update.
func (uc *AccountUseCase) UpdateAccount(ctx context.Context, actor domain.Actor, id string, input UpdateAccountInput) (*domain.Account, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	var result *domain.Account
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, actor.OrganizationID, id)
		if err != nil {
			return err
		}

		if input.Code != nil && domain.NormalizeCode(*input.Code) != account.Code {
			return domain.ErrImmutableField
		}
		if input.Type != nil && *input.Type != account.Type {
			return domain.ErrImmutableField
		}

		applyAccountUpdate(account, input)
		account.UpdatedAt = uc.now()

		if err := account.Validate(); err != nil {
			return err
		}

		if account.ParentID != nil {
			if err := uc.validateParent(ctx, tx, actor.OrganizationID, account.ID, *account.ParentID); err != nil {
				return err
			}
		}

		if err := uc.accountRepo.Update(ctx, tx, account); err != nil {
			return err
		}

		result = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// DeleteAccount soft-deletes an account without children.
func (uc *AccountUseCase) DeleteAccount(ctx context.Context, actor domain.Actor, id string) error {
	if err := actor.Validate(); err != nil {
		return err
	}

	return withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		account, err := uc.accountRepo.GetByIDForUpdate(ctx, tx, actor.OrganizationID, id)
		if err != nil {
			return err
		}

		hasChildren, err := uc.accountRepo.HasChildren(ctx, tx, actor.OrganizationID, id)
		if err != nil {
			return err
		}
		if hasChildren {
			return fmt.Errorf("%w: %s", domain.ErrHasChildren, account.Code)
		}

		now := uc.now()
		if err := uc.accountRepo.SoftDelete(ctx, tx, actor.OrganizationID, id, now); err != nil {
			return err
		}

		return audit(ctx, uc.auditRepo, tx, uc.idGen, actor, domain.AuditActionAccountDelete,
			domain.ResourceAccount, id, account, nil, now)
	})
}

// GetAccount retrieves an account by ID.
func (uc *AccountUseCase) GetAccount(ctx context.Context, orgID, id string) (*domain.Account, error) {
	return uc.accountRepo.GetByID(ctx, nil, orgID, id)
}

// ListAccounts lists accounts ordered by code.
func (uc *AccountUseCase) ListAccounts(ctx context.Context, orgID string, filter domain.AccountFilter) ([]*domain.Account, error) {
	filter.Limit, filter.Offset, _ = domain.ValidatePagination(filter.Limit, filter.Offset)
	return uc.accountRepo.List(ctx, nil, orgID, filter)
}

// Options lists active accounts for pickers. Header accounts are included only on request.
func (uc *AccountUseCase) Options(ctx context.Context, orgID string, includeHeaders bool) ([]*domain.Account, error) {
	return uc.accountRepo.List(ctx, nil, orgID, domain.AccountFilter{
		PostableOnly: !includeHeaders,
		Limit:        domain.MaxPageSize,
	})
}

// AccountImportRow is one account of a bulk import, keyed by code.
type AccountImportRow struct {
	CashFlowActivity *domain.CashFlowActivity
	Subledger        *string
	IsPostable       *bool
	IsActive         *bool
	Code             string
	Name             string
	Type             domain.AccountType
	NormalBalance    domain.Side
	ParentCode       string
	RequiresBP       bool
}

// ImportAccounts inserts or updates accounts by code. Parent links are
// resolved in a second pass so parents may appear after their children.
func (uc *AccountUseCase) ImportAccounts(ctx context.Context, actor domain.Actor, rows []AccountImportRow, mode domain.ImportMode) (*domain.ImportResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	if err := validateAccountImport(rows, mode); err != nil {
		return nil, err
	}

	result := &domain.ImportResult{}
	err := withTx(ctx, uc.txManager, func(ctx context.Context, tx Transaction) error {
		*result = domain.ImportResult{}
		now := uc.now()
		orgID := actor.OrganizationID

		byCode := make(map[string]*domain.Account, len(rows))
		written := make(map[string]bool, len(rows))

		// Pass 1: rows without parent links.
		for _, row := range rows {
			code := domain.NormalizeCode(row.Code)

			existing, err := uc.accountRepo.GetByCode(ctx, tx, orgID, code)
			if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
				return err
			}

			if existing != nil {
				byCode[code] = existing
				if mode == domain.ImportModeInsertOnly {
					result.Skipped++
					continue
				}
				if existing.Type != row.Type {
					return fmt.Errorf("%w: %s", domain.ErrImmutableField, code)
				}

				applyImportRow(existing, row)
				existing.UpdatedAt = now
				if err := existing.Validate(); err != nil {
					return fmt.Errorf("%s: %w", code, err)
				}
				if err := uc.accountRepo.Update(ctx, tx, existing); err != nil {
					return err
				}
				written[code] = true
				result.Updated++
				continue
			}

			account := &domain.Account{
				ID:             uc.idGen.Generate(),
				OrganizationID: orgID,
				Code:           code,
				Type:           row.Type,
				CreatedAt:      now,
			}
			applyImportRow(account, row)
			account.UpdatedAt = now
			if err := account.Validate(); err != nil {
				return fmt.Errorf("%s: %w", code, err)
			}
			if err := uc.accountRepo.Create(ctx, tx, account); err != nil {
				return err
			}
			byCode[code] = account
			written[code] = true
			result.Inserted++
		}

		// Pass 2: backfill parent links.
		for _, row := range rows {
			code := domain.NormalizeCode(row.Code)
			if !written[code] {
				continue
			}
			account := byCode[code]

			var parentID *string
			if parentCode := domain.NormalizeCode(row.ParentCode); parentCode != "" {
				parent, ok := byCode[parentCode]
				if !ok {
					found, err := uc.accountRepo.GetByCode(ctx, tx, orgID, parentCode)
					if err != nil {
						if errors.Is(err, domain.ErrAccountNotFound) {
							return fmt.Errorf("%w: parent_code %s of %s not found", domain.ErrReference, parentCode, code)
						}
						return err
					}
					parent = found
					byCode[parentCode] = found
				}
				id := parent.ID
				parentID = &id
			}

			if sameParent(account.ParentID, parentID) {
				continue
			}

			account.ParentID = parentID
			if parentID != nil {
				if err := uc.validateParent(ctx, tx, orgID, account.ID, *parentID); err != nil {
					return fmt.Errorf("%s: %w", code, err)
				}
			}
			if err := uc.accountRepo.Update(ctx, tx, account); err != nil {
				return err
			}
		}

		return audit(ctx, uc.auditRepo, tx, uc.idGen, actor, domain.AuditActionAccountImport,
			domain.ResourceAccount, "", nil, result, now)
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// validateParent checks that parentID exists in the organization and that
// linking accountID under it does not close a cycle.
func (uc *AccountUseCase) validateParent(ctx context.Context, tx Transaction, orgID, accountID, parentID string) error {
	if parentID == accountID {
		return fmt.Errorf("%w: account cannot be its own parent", domain.ErrCycle)
	}

	parent, err := uc.accountRepo.GetByID(ctx, tx, orgID, parentID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("%w: parent account %s not found", domain.ErrReference, parentID)
		}
		return err
	}

	current := parent
	for hops := 0; current.ParentID != nil; hops++ {
		if hops >= domain.MaxHierarchyDepth {
			return fmt.Errorf("%w: hierarchy deeper than %d levels", domain.ErrCycle, domain.MaxHierarchyDepth)
		}
		if *current.ParentID == accountID {
			return fmt.Errorf("%w: %s is an ancestor of its parent", domain.ErrCycle, accountID)
		}

		next, err := uc.accountRepo.GetByID(ctx, tx, orgID, *current.ParentID)
		if err != nil {
			if errors.Is(err, domain.ErrAccountNotFound) {
				return nil
			}
			return err
		}
		current = next
	}

	return nil
}

func (uc *AccountUseCase) ensureCodeFree(ctx context.Context, tx Transaction, orgID, code string) error {
	_, err := uc.accountRepo.GetByCode(ctx, tx, orgID, code)
	if err == nil {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateCode, code)
	}
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil
	}
	return err
}

func validateAccountImport(rows []AccountImportRow, mode domain.ImportMode) error {
	if !mode.IsValid() {
		return fmt.Errorf("%w: unknown import mode %q", domain.ErrValidation, mode)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: import payload is empty", domain.ErrValidation)
	}
	if len(rows) > domain.MaxImportRows {
		return fmt.Errorf("%w: import exceeds %d rows", domain.ErrValidation, domain.MaxImportRows)
	}

	parents := make(map[string]string, len(rows))
	for i, row := range rows {
		code := domain.NormalizeCode(row.Code)
		if code == "" {
			return fmt.Errorf("%w: row %d: code is required", domain.ErrValidation, i+1)
		}
		if _, dup := parents[code]; dup {
			return fmt.Errorf("%w: row %d: duplicate code %s", domain.ErrValidation, i+1, code)
		}
		if !row.Type.IsValid() {
			return fmt.Errorf("%w: row %d: unknown account type %q", domain.ErrValidation, i+1, row.Type)
		}
		if row.NormalBalance != "" && !row.NormalBalance.IsValid() {
			return fmt.Errorf("%w: row %d: unknown normal balance %q", domain.ErrValidation, i+1, row.NormalBalance)
		}
		parents[code] = domain.NormalizeCode(row.ParentCode)
	}

	for code := range parents {
		current := parents[code]
		for hops := 0; current != ""; hops++ {
			if current == code || hops >= domain.MaxHierarchyDepth {
				return fmt.Errorf("%w: parent_code chain of %s loops", domain.ErrCycle, code)
			}
			current = parents[current]
		}
	}

	return nil
}

func applyAccountUpdate(account *domain.Account, input UpdateAccountInput) {
	if input.Name != nil {
		account.Name = *input.Name
	}
	if input.NormalBalance != nil {
		account.NormalBalance = *input.NormalBalance
	}
	if input.CashFlowActivity != nil {
		if *input.CashFlowActivity == "" {
			account.CashFlowActivity = nil
		} else {
			activity := *input.CashFlowActivity
			account.CashFlowActivity = &activity
		}
	}
	if input.Subledger != nil {
		account.Subledger = emptyToNil(input.Subledger)
	}
	if input.ParentID != nil {
		account.ParentID = emptyToNil(input.ParentID)
	}
	if input.RequiresBP != nil {
		account.RequiresBP = *input.RequiresBP
	}
	if input.IsPostable != nil {
		account.IsPostable = *input.IsPostable
	}
	if input.IsActive != nil {
		account.IsActive = *input.IsActive
	}
}

func applyImportRow(account *domain.Account, row AccountImportRow) {
	account.Name = row.Name
	account.NormalBalance = row.NormalBalance
	if account.NormalBalance == "" {
		account.NormalBalance = domain.DefaultNormalBalance(account.Type)
	}
	account.CashFlowActivity = row.CashFlowActivity
	account.RequiresBP = row.RequiresBP
	account.Subledger = emptyToNil(row.Subledger)
	account.IsPostable = boolOr(row.IsPostable, true)
	account.IsActive = boolOr(row.IsActive, true)
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	v := *s
	return &v
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
