package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// JournalLineInput is a caller-supplied journal line.
type JournalLineInput struct {
	BPID      *string
	AccountID string
	Memo      string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// PeriodGuard answers whether a date may receive journal writes.
type PeriodGuard interface {
	AssertOpen(ctx context.Context, tx Transaction, orgID string, date time.Time) error
}

// LedgerObserver is notified after a committed change to posted history.
type LedgerObserver interface {
	LedgerChanged(ctx context.Context, orgID string)
}

// lineValidator resolves line references against the directories.
type lineValidator struct {
	accountRepo AccountRepository
	partnerRepo PartnerRepository
}

// validate checks that every account is active and postable, every partner
// is active, and partner-scoped accounts carry a partner.
func (v lineValidator) validate(ctx context.Context, tx Transaction, orgID string, lines []domain.JournalLine) error {
	if len(lines) == 0 {
		return nil
	}

	accountIDs := make([]string, 0, len(lines))
	var partnerIDs []string
	for _, l := range lines {
		accountIDs = append(accountIDs, l.AccountID)
		if l.BPID != nil {
			partnerIDs = append(partnerIDs, *l.BPID)
		}
	}

	accounts, err := v.accountRepo.GetByIDs(ctx, tx, orgID, uniqueStrings(accountIDs))
	if err != nil {
		return err
	}
	accountMap := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		accountMap[a.ID] = a
	}

	partnerMap := make(map[string]*domain.BusinessPartner)
	if len(partnerIDs) > 0 {
		partners, err := v.partnerRepo.GetByIDs(ctx, tx, orgID, uniqueStrings(partnerIDs))
		if err != nil {
			return err
		}
		for _, p := range partners {
			partnerMap[p.ID] = p
		}
	}

	for _, l := range lines {
		account, ok := accountMap[l.AccountID]
		if !ok || account.DeletedAt != nil {
			return fmt.Errorf("%w: line %d: account %s not found", domain.ErrReference, l.LineNo, l.AccountID)
		}
		if !account.IsActive {
			return fmt.Errorf("%w: line %d: account %s is inactive", domain.ErrReference, l.LineNo, account.Code)
		}
		if !account.IsPostable {
			return fmt.Errorf("%w: line %d: account %s is a header account", domain.ErrValidation, l.LineNo, account.Code)
		}

		if l.BPID == nil {
			if account.RequiresBP {
				return fmt.Errorf("%w: line %d: account %s requires a business partner", domain.ErrValidation, l.LineNo, account.Code)
			}
			continue
		}

		partner, ok := partnerMap[*l.BPID]
		if !ok || !partner.IsUsable() {
			return fmt.Errorf("%w: line %d: business partner %s not found or inactive", domain.ErrReference, l.LineNo, *l.BPID)
		}
	}

	return nil
}

// buildLines converts inputs into numbered lines with shape validation.
func buildLines(orgID, entryID string, inputs []JournalLineInput, idGen IDGenerator) ([]domain.JournalLine, error) {
	lines := make([]domain.JournalLine, 0, len(inputs))
	for _, in := range inputs {
		lines = append(lines, domain.JournalLine{
			ID:             idGen.Generate(),
			OrganizationID: orgID,
			EntryID:        entryID,
			AccountID:      in.AccountID,
			BPID:           emptyToNil(in.BPID),
			Debit:          in.Debit,
			Credit:         in.Credit,
			Memo:           in.Memo,
		})
	}

	if err := domain.ValidateLines(lines); err != nil {
		return nil, err
	}

	return lines, nil
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
