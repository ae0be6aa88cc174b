package dto

import (
	"time"

	"github.com/iho/gobooks/internal/domain"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	ParentID         *string   `json:"parent_id"`
	CashFlowActivity *string   `json:"cash_flow_activity"`
	Subledger        *string   `json:"subledger"`
	ID               string    `json:"id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	NormalBalance    string    `json:"normal_balance"`
	RequiresBP       bool      `json:"requires_bp"`
	IsPostable       bool      `json:"is_postable"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	resp := &AccountResponse{
		ParentID:      a.ParentID,
		Subledger:     a.Subledger,
		ID:            a.ID,
		Code:          a.Code,
		Name:          a.Name,
		Type:          string(a.Type),
		NormalBalance: string(a.NormalBalance),
		RequiresBP:    a.RequiresBP,
		IsPostable:    a.IsPostable,
		IsActive:      a.IsActive,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
	if a.CashFlowActivity != nil {
		activity := string(*a.CashFlowActivity)
		resp.CashFlowActivity = &activity
	}
	return resp
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// OptionResponse is a code/name pair for selection lists.
type OptionResponse struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// AccountOptionsFromDomain converts accounts to options.
func AccountOptionsFromDomain(accounts []*domain.Account) []OptionResponse {
	result := make([]OptionResponse, len(accounts))
	for i, a := range accounts {
		result[i] = OptionResponse{ID: a.ID, Code: a.Code, Name: a.Name}
	}
	return result
}

// PartnerResponse represents a business partner in API responses.
type PartnerResponse struct {
	ID            string    `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	NormalBalance string    `json:"normal_balance"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PartnerFromDomain converts domain partner to response.
func PartnerFromDomain(p *domain.BusinessPartner) *PartnerResponse {
	return &PartnerResponse{
		ID:            p.ID,
		Code:          p.Code,
		Name:          p.Name,
		Category:      p.Category,
		NormalBalance: string(p.NormalBalance),
		IsActive:      p.IsActive,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

// PartnersFromDomain converts domain partners to responses.
func PartnersFromDomain(partners []*domain.BusinessPartner) []*PartnerResponse {
	result := make([]*PartnerResponse, len(partners))
	for i, p := range partners {
		result[i] = PartnerFromDomain(p)
	}
	return result
}

// PartnerOptionsFromDomain converts partners to options.
func PartnerOptionsFromDomain(partners []*domain.BusinessPartner) []OptionResponse {
	result := make([]OptionResponse, len(partners))
	for i, p := range partners {
		result[i] = OptionResponse{ID: p.ID, Code: p.Code, Name: p.Name}
	}
	return result
}

// ListPartnersResponse represents a page of partners.
type ListPartnersResponse struct {
	Partners []*PartnerResponse `json:"partners"`
	Total    int64              `json:"total"`
}

// PeriodLockResponse represents a period lock in API responses.
type PeriodLockResponse struct {
	ClosedAt    *time.Time `json:"closed_at"`
	ClosedBy    *string    `json:"closed_by"`
	ID          string     `json:"id"`
	PeriodStart string     `json:"period_start"`
	PeriodEnd   string     `json:"period_end"`
	IsClosed    bool       `json:"is_closed"`
	CreatedAt   time.Time  `json:"created_at"`
}

// PeriodLockFromDomain converts domain period lock to response.
func PeriodLockFromDomain(p *domain.PeriodLock) *PeriodLockResponse {
	return &PeriodLockResponse{
		ClosedAt:    p.ClosedAt,
		ClosedBy:    p.ClosedBy,
		ID:          p.ID,
		PeriodStart: p.PeriodStart.Format(domain.DateLayout),
		PeriodEnd:   p.PeriodEnd.Format(domain.DateLayout),
		IsClosed:    p.IsClosed,
		CreatedAt:   p.CreatedAt,
	}
}

// PeriodLocksFromDomain converts domain period locks to responses.
func PeriodLocksFromDomain(locks []*domain.PeriodLock) []*PeriodLockResponse {
	result := make([]*PeriodLockResponse, len(locks))
	for i, p := range locks {
		result[i] = PeriodLockFromDomain(p)
	}
	return result
}

// ListJournalsResponse represents a page of journal entries.
type ListJournalsResponse struct {
	Journals []*domain.JournalEntry `json:"journals"`
	Total    int64                  `json:"total"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
