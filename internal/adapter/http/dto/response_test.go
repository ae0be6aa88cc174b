package dto

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/iho/gobooks/internal/domain"
)

func TestAccountFromDomain(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	activity := domain.CashFlowFinancing
	parent := "acc-parent"

	resp := AccountFromDomain(&domain.Account{
		ID:               "acc-1",
		Code:             "2500",
		Name:             "Bank loan",
		Type:             domain.AccountTypeLiability,
		NormalBalance:    domain.SideCredit,
		CashFlowActivity: &activity,
		ParentID:         &parent,
		IsPostable:       true,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	})

	if resp.Type != "liability" || resp.NormalBalance != "credit" {
		t.Fatalf("unexpected classification %+v", resp)
	}
	if resp.CashFlowActivity == nil || *resp.CashFlowActivity != "financing" {
		t.Fatalf("expected financing activity")
	}
	if *resp.ParentID != "acc-parent" {
		t.Fatalf("expected parent to be copied")
	}
}

func TestPeriodLockFromDomainFormatsDates(t *testing.T) {
	resp := PeriodLockFromDomain(&domain.PeriodLock{
		ID:          "p1",
		PeriodStart: domain.Date(2025, time.February, 1),
		PeriodEnd:   domain.Date(2025, time.February, 28),
		IsClosed:    true,
	})

	body, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"period_start":"2025-02-01"`, `"period_end":"2025-02-28"`, `"is_closed":true`} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %s in %s", want, body)
		}
	}
}

func TestOptionsFromDomain(t *testing.T) {
	accounts := AccountOptionsFromDomain([]*domain.Account{{ID: "a", Code: "1100", Name: "Cash"}})
	partners := PartnerOptionsFromDomain([]*domain.BusinessPartner{{ID: "b", Code: "C001", Name: "Acme"}})

	if accounts[0].Code != "1100" || partners[0].Name != "Acme" {
		t.Fatalf("unexpected options %+v %+v", accounts, partners)
	}
}
