package domain

import (
	"fmt"
	"time"
)

// PeriodLock is a date range in which no journal entry may be written while closed.
type PeriodLock struct {
	PeriodStart    time.Time
	PeriodEnd      time.Time
	CreatedAt      time.Time
	ClosedAt       *time.Time
	ClosedBy       *string
	ID             string
	OrganizationID string
	IsClosed       bool
}

// Validate checks the range.
func (p *PeriodLock) Validate() error {
	if p.PeriodStart.IsZero() || p.PeriodEnd.IsZero() {
		return fmt.Errorf("%w: period_start and period_end are required", ErrValidation)
	}

	if p.PeriodEnd.Before(p.PeriodStart) {
		return fmt.Errorf("%w: period_end is before period_start", ErrValidation)
	}

	return nil
}

// Contains reports whether date falls in the inclusive range.
func (p *PeriodLock) Contains(date time.Time) bool {
	date = NormalizeDate(date)
	return !date.Before(p.PeriodStart) && !date.After(p.PeriodEnd)
}
