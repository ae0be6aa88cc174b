package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/gobooks/internal/domain"
)

// Repository methods take the caller's transaction; a nil Transaction reads
// outside of any transaction.

// AccountRepository defines data access for chart-of-accounts nodes.
type AccountRepository interface {
	Create(ctx context.Context, tx Transaction, account *domain.Account) error
	Update(ctx context.Context, tx Transaction, account *domain.Account) error
	SoftDelete(ctx context.Context, tx Transaction, orgID, id string, at time.Time) error
	GetByID(ctx context.Context, tx Transaction, orgID, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, orgID, id string) (*domain.Account, error)
	GetByIDs(ctx context.Context, tx Transaction, orgID string, ids []string) ([]*domain.Account, error)
	GetByCode(ctx context.Context, tx Transaction, orgID, code string) (*domain.Account, error)
	HasChildren(ctx context.Context, tx Transaction, orgID, id string) (bool, error)
	List(ctx context.Context, tx Transaction, orgID string, filter domain.AccountFilter) ([]*domain.Account, error)
	ListAll(ctx context.Context, tx Transaction, orgID string) ([]*domain.Account, error)
}

// PartnerRepository defines data access for business partners.
type PartnerRepository interface {
	Create(ctx context.Context, tx Transaction, partner *domain.BusinessPartner) error
	Update(ctx context.Context, tx Transaction, partner *domain.BusinessPartner) error
	SoftDelete(ctx context.Context, tx Transaction, orgID, id string, at time.Time) error
	GetByID(ctx context.Context, tx Transaction, orgID, id string) (*domain.BusinessPartner, error)
	GetByIDs(ctx context.Context, tx Transaction, orgID string, ids []string) ([]*domain.BusinessPartner, error)
	GetByCode(ctx context.Context, tx Transaction, orgID, code string) (*domain.BusinessPartner, error)
	List(ctx context.Context, tx Transaction, orgID string, filter domain.PartnerFilter) ([]*domain.BusinessPartner, error)
}

// JournalRepository defines data access for journal entries and their lines.
type JournalRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
	GetByID(ctx context.Context, tx Transaction, orgID, id string) (*domain.JournalEntry, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, orgID, id string) (*domain.JournalEntry, error)
	UpdateHeader(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
	ReplaceLines(ctx context.Context, tx Transaction, entry *domain.JournalEntry) error
	FindReversal(ctx context.Context, tx Transaction, orgID, originalID string) (*domain.JournalEntry, error)
	FindByClosingKey(ctx context.Context, tx Transaction, orgID, key string) (*domain.JournalEntry, error)
	FindByOpeningKey(ctx context.Context, tx Transaction, orgID, key string) (*domain.JournalEntry, error)
	List(ctx context.Context, tx Transaction, orgID string, filter domain.EntryFilter) ([]*domain.JournalEntry, error)
}

// PeriodLockRepository defines data access for accounting period locks.
type PeriodLockRepository interface {
	Create(ctx context.Context, tx Transaction, lock *domain.PeriodLock) error
	Update(ctx context.Context, tx Transaction, lock *domain.PeriodLock) error
	GetByIDForUpdate(ctx context.Context, tx Transaction, orgID, id string) (*domain.PeriodLock, error)
	List(ctx context.Context, tx Transaction, orgID string) ([]*domain.PeriodLock, error)
	FindClosedCovering(ctx context.Context, tx Transaction, orgID string, date time.Time) ([]*domain.PeriodLock, error)
}

// IdempotencyRepository persists idempotency records inside the mutation's transaction.
type IdempotencyRepository interface {
	// Reserve inserts the record, ignoring conflicts. It reports whether the
	// row was inserted by this call.
	Reserve(ctx context.Context, tx Transaction, record *domain.IdempotencyRecord) (bool, error)
	Get(ctx context.Context, tx Transaction, orgID, scope, key string) (*domain.IdempotencyRecord, error)
	SaveResponse(ctx context.Context, tx Transaction, record *domain.IdempotencyRecord) error
}

// LedgerRepository defines read access over posted journal history.
type LedgerRepository interface {
	SumLines(ctx context.Context, tx Transaction, orgID string, query domain.LineQuery) ([]domain.AccountTotals, error)
	ListLines(ctx context.Context, tx Transaction, orgID string, query domain.LineQuery) ([]domain.LedgerLine, error)
	// OpeningBaseline returns the date of the latest posted opening entry
	// dated January 1st on or before date, or nil when there is none.
	OpeningBaseline(ctx context.Context, tx Transaction, orgID string, date time.Time) (*time.Time, error)
	CheckConsistency(ctx context.Context, orgID string) (totalDebit, totalCredit decimal.Decimal, err error)
	FindUnbalanced(ctx context.Context, orgID string, limit int) ([]domain.UnbalancedEntry, error)
}

// AuditRepository defines data access for audit logs.
type AuditRepository interface {
	CreateTx(ctx context.Context, tx Transaction, log *domain.AuditLog) error
	List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier re-runs an operation on transient storage failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Incr(ctx context.Context, key string) (int64, error)
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Delete releases a key whose request failed.
	Delete(ctx context.Context, key string) error
}

// Recorder receives engine-level measurements.
type Recorder interface {
	JournalPosted(replayed bool)
	JournalPostFailed()
	JournalReversed()
	YearClosed(err error)
	ReportBuilt(report string, d time.Duration, cached bool)
}

type noopRecorder struct{}

func (noopRecorder) JournalPosted(bool)                      {}
func (noopRecorder) JournalPostFailed()                      {}
func (noopRecorder) JournalReversed()                        {}
func (noopRecorder) YearClosed(error)                        {}
func (noopRecorder) ReportBuilt(string, time.Duration, bool) {}

type directRetrier struct{}

func (directRetrier) Retry(_ context.Context, operation func() error) error {
	return operation()
}
