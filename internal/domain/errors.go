package domain

import "errors"

// Error taxonomy. Callers match with errors.Is; detail is attached with %w.
var (
	ErrValidation        = errors.New("validation failed")
	ErrPeriodClosed      = errors.New("accounting period is closed")
	ErrInvalidState      = errors.New("invalid state transition")
	ErrUnbalanced        = errors.New("journal entry is not balanced")
	ErrEmptyEntry        = errors.New("journal entry has no amounts")
	ErrCycle             = errors.New("account hierarchy cycle")
	ErrHasChildren       = errors.New("account has child accounts")
	ErrAlreadyClosed     = errors.New("year already closed")
	ErrAlreadyOpened     = errors.New("opening balance already exists")
	ErrConcurrentRequest = errors.New("request with this idempotency key is in progress")
	ErrNotFound          = errors.New("not found")
)

// ErrReference marks unknown or inactive accounts, partners and parents. It
// also matches ErrValidation.
var ErrReference = kindError{kind: ErrValidation, msg: "invalid reference"}

// Not-found errors
var (
	ErrAccountNotFound    = kindError{kind: ErrNotFound, msg: "account not found"}
	ErrPartnerNotFound    = kindError{kind: ErrNotFound, msg: "business partner not found"}
	ErrEntryNotFound      = kindError{kind: ErrNotFound, msg: "journal entry not found"}
	ErrPeriodLockNotFound = kindError{kind: ErrNotFound, msg: "period lock not found"}
)

// Directory errors
var (
	ErrDuplicateCode        = kindError{kind: ErrValidation, msg: "code already exists"}
	ErrImmutableField       = kindError{kind: ErrValidation, msg: "code and type cannot be changed"}
	ErrDuplicatePeriod      = kindError{kind: ErrValidation, msg: "period lock already exists for this range"}
	ErrIdempotencyKeyReused = kindError{kind: ErrValidation, msg: "idempotency key was used for a different request"}
)

// kindError is a named error that also matches its taxonomy class.
type kindError struct {
	kind error
	msg  string
}

func (e kindError) Error() string { return e.msg }

func (e kindError) Unwrap() error { return e.kind }
