package domain

import (
	"encoding/json"
	"time"
)

// AuditLog represents an audit trail entry for ledger mutations
type AuditLog struct {
	ID             string
	OrganizationID string
	ActorID        string // Who performed the action
	Action         AuditAction
	ResourceType   string // journal_entry, account, business_partner, period_lock
	ResourceID     string
	RequestID      string // Request ID for tracing
	BeforeState    JSON   // State before the action
	AfterState     JSON   // State after the action
	CreatedAt      time.Time
}

// JSON is a type alias for JSON data
type JSON map[string]any

// AuditAction represents different types of auditable actions
type AuditAction string

const (
	// Journal actions
	AuditActionJournalPost    AuditAction = "journal.post"
	AuditActionJournalReverse AuditAction = "journal.reverse"
	AuditActionJournalVoid    AuditAction = "journal.void"
	AuditActionOpeningCreate  AuditAction = "journal.opening"

	// Closing actions
	AuditActionYearClose AuditAction = "closing.run"

	// Directory actions
	AuditActionAccountImport AuditAction = "account.import"
	AuditActionPartnerImport AuditAction = "partner.import"
	AuditActionAccountDelete AuditAction = "account.delete"

	// Period actions
	AuditActionPeriodClose  AuditAction = "period.close"
	AuditActionPeriodReopen AuditAction = "period.reopen"
)

// Audited resource types
const (
	ResourceJournalEntry = "journal_entry"
	ResourceAccount      = "account"
	ResourcePartner      = "business_partner"
	ResourcePeriodLock   = "period_lock"
)

// MarshalState converts a domain object to JSON for audit logging
func MarshalState(v any) JSON {
	if v == nil {
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return JSON{"error": "failed to marshal state"}
	}

	var result JSON
	if err := json.Unmarshal(data, &result); err != nil {
		return JSON{"error": "failed to unmarshal state"}
	}

	return result
}

// AuditFilter defines filters for querying audit logs
type AuditFilter struct {
	OrganizationID string
	ActorID        string
	Action         AuditAction
	ResourceType   string
	ResourceID     string
	Limit          int
	Offset         int
}
