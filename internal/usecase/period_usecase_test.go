package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

func TestPeriodUseCase_CloseAndReopen(t *testing.T) {
	b := newBooks(t)
	ctx := context.Background()

	lock, err := b.periods.Create(ctx, admin, usecase.CreatePeriodLockInput{
		PeriodStart: domain.Date(2025, time.January, 1),
		PeriodEnd:   domain.Date(2025, time.January, 31),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if lock.IsClosed {
		t.Fatal("lock should start open")
	}

	date := domain.Date(2025, time.January, 15)
	if err := b.periods.AssertOpen(ctx, nil, testOrg, date); err != nil {
		t.Fatalf("open lock must not block writes, got %v", err)
	}

	closed, err := b.periods.Close(ctx, admin, lock.ID)
	if err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !closed.IsClosed || closed.ClosedAt == nil || closed.ClosedBy == nil || *closed.ClosedBy != admin.UserID {
		t.Fatalf("unexpected closed lock %+v", closed)
	}

	tests := []struct {
		date time.Time
		want error
	}{
		{domain.Date(2024, time.December, 31), nil},
		{domain.Date(2025, time.January, 1), domain.ErrPeriodClosed},
		{domain.Date(2025, time.January, 31), domain.ErrPeriodClosed},
		{domain.Date(2025, time.February, 1), nil},
	}
	for _, tt := range tests {
		err := b.periods.AssertOpen(ctx, nil, testOrg, tt.date)
		if !errors.Is(err, tt.want) {
			t.Errorf("AssertOpen(%s) = %v, want %v", tt.date.Format(domain.DateLayout), err, tt.want)
		}
	}

	// Closing twice is a no-op.
	if _, err := b.periods.Close(ctx, admin, lock.ID); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	reopened, err := b.periods.Reopen(ctx, admin, lock.ID)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if reopened.IsClosed || reopened.ClosedAt != nil || reopened.ClosedBy != nil {
		t.Fatalf("unexpected reopened lock %+v", reopened)
	}
	if err := b.periods.AssertOpen(ctx, nil, testOrg, date); err != nil {
		t.Fatalf("reopened lock must not block writes, got %v", err)
	}

	logs, err := b.auditRepo.List(ctx, domain.AuditFilter{OrganizationID: testOrg, ResourceType: domain.ResourcePeriodLock})
	if err != nil {
		t.Fatalf("audit List failed: %v", err)
	}
	if len(logs) != 2 || logs[0].Action != domain.AuditActionPeriodReopen || logs[1].Action != domain.AuditActionPeriodClose {
		t.Fatalf("expected close then reopen audit rows, got %+v", logs)
	}
}

func TestPeriodUseCase_CreateValidation(t *testing.T) {
	b := newBooks(t)
	ctx := context.Background()

	_, err := b.periods.Create(ctx, admin, usecase.CreatePeriodLockInput{
		PeriodStart: domain.Date(2025, time.March, 31),
		PeriodEnd:   domain.Date(2025, time.March, 1),
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for inverted range, got %v", err)
	}

	_, err = b.periods.Create(ctx, admin, usecase.CreatePeriodLockInput{PeriodEnd: domain.Date(2025, time.March, 1)})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing start, got %v", err)
	}

	input := usecase.CreatePeriodLockInput{
		PeriodStart: domain.Date(2025, time.March, 1),
		PeriodEnd:   domain.Date(2025, time.March, 31),
	}
	if _, err := b.periods.Create(ctx, admin, input); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := b.periods.Create(ctx, admin, input); !errors.Is(err, domain.ErrDuplicatePeriod) {
		t.Fatalf("expected ErrDuplicatePeriod, got %v", err)
	}

	if _, err := b.periods.Close(ctx, admin, "missing"); !errors.Is(err, domain.ErrPeriodLockNotFound) {
		t.Fatalf("expected ErrPeriodLockNotFound, got %v", err)
	}
}
