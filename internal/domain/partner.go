package domain

import (
	"fmt"
	"strings"
	"time"
)

// BusinessPartner is a subledger counterparty (customer, supplier, employee).
type BusinessPartner struct {
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
	ID             string
	OrganizationID string
	Code           string
	Name           string
	Category       string
	NormalBalance  Side
	IsActive       bool
}

// Validate checks the partner's own fields.
func (p *BusinessPartner) Validate() error {
	if strings.TrimSpace(p.Code) == "" {
		return fmt.Errorf("%w: partner code is required", ErrValidation)
	}

	if len(p.Code) > MaxCodeLength {
		return fmt.Errorf("%w: partner code exceeds %d characters", ErrValidation, MaxCodeLength)
	}

	if err := ValidateName(p.Name); err != nil {
		return err
	}

	if !p.NormalBalance.IsValid() {
		return fmt.Errorf("%w: unknown normal balance %q", ErrValidation, p.NormalBalance)
	}

	return nil
}

// IsUsable reports whether journal lines may reference the partner.
func (p *BusinessPartner) IsUsable() bool {
	return p.IsActive && p.DeletedAt == nil
}

// PartnerFilter narrows partner listings.
type PartnerFilter struct {
	Category        string
	Search          string
	IncludeInactive bool
	Limit           int
	Offset          int
}
