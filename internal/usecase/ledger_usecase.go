package usecase

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

var (
	// ErrInconsistentLedger is returned when stored posted entries do not balance.
	ErrInconsistentLedger = errors.New("ledger is inconsistent: debits do not equal credits")
)

// maxUnbalancedListed caps the entries returned by a consistency check.
const maxUnbalancedListed = 100

// ConsistencyReport is the result of re-deriving posted totals from storage.
type ConsistencyReport struct {
	TotalDebit  decimal.Decimal          `json:"total_debit"`
	TotalCredit decimal.Decimal          `json:"total_credit"`
	Unbalanced  []domain.UnbalancedEntry `json:"unbalanced"`
	Consistent  bool                     `json:"consistent"`
}

// LedgerUseCase handles ledger-wide operations.
type LedgerUseCase struct {
	ledgerRepo LedgerRepository
}

// NewLedgerUseCase creates a new LedgerUseCase.
func NewLedgerUseCase(ledgerRepo LedgerRepository) *LedgerUseCase {
	return &LedgerUseCase{
		ledgerRepo: ledgerRepo,
	}
}

// CheckConsistency verifies that every posted entry of the organization
// balances to the cent, and that the ledger as a whole does.
func (uc *LedgerUseCase) CheckConsistency(ctx context.Context, orgID string) (*ConsistencyReport, error) {
	totalDebit, totalCredit, err := uc.ledgerRepo.CheckConsistency(ctx, orgID)
	if err != nil {
		return nil, err
	}

	unbalanced, err := uc.ledgerRepo.FindUnbalanced(ctx, orgID, maxUnbalancedListed)
	if err != nil {
		return nil, err
	}
	if unbalanced == nil {
		unbalanced = []domain.UnbalancedEntry{}
	}

	return &ConsistencyReport{
		TotalDebit:  totalDebit,
		TotalCredit: totalCredit,
		Unbalanced:  unbalanced,
		Consistent:  len(unbalanced) == 0 && domain.EqualMoney(totalDebit, totalCredit),
	}, nil
}

// Verify returns ErrInconsistentLedger when the consistency check fails.
func (uc *LedgerUseCase) Verify(ctx context.Context, orgID string) error {
	report, err := uc.CheckConsistency(ctx, orgID)
	if err != nil {
		return err
	}
	if !report.Consistent {
		return ErrInconsistentLedger
	}
	return nil
}
