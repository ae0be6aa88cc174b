package usecase

import "time"

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// DefaultReportCacheTTL bounds how long a cached report survives without a ledger change
	DefaultReportCacheTTL = 10 * time.Minute

	// chartConcurrency bounds parallel per-bucket report builds
	chartConcurrency = 4
)
