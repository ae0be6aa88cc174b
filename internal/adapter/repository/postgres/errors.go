package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iho/gobooks/internal/domain"
)

// PostgreSQL error codes mapped onto domain errors.
const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
	pgErrCheckViolation      = "23514"
	pgErrLockNotAvailable    = "55P03"
)

// Unique indexes with a domain meaning.
var uniqueViolations = map[string]error{
	"accounts_org_code_key":           domain.ErrDuplicateCode,
	"business_partners_org_code_key":  domain.ErrDuplicateCode,
	"period_locks_org_range_key":      domain.ErrDuplicatePeriod,
	"journal_entries_closing_key":     domain.ErrAlreadyClosed,
	"journal_entries_opening_key":     domain.ErrAlreadyOpened,
	"journal_entries_reversal_of_key": domain.ErrInvalidState,
}

// mapError translates constraint and lock failures into domain errors.
// Other errors are returned unchanged.
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgErrUniqueViolation:
		if target, ok := uniqueViolations[pgErr.ConstraintName]; ok {
			return fmt.Errorf("%w: %s", target, pgErr.Detail)
		}
	case pgErrForeignKeyViolation:
		return fmt.Errorf("%w: %s", domain.ErrReference, pgErr.Detail)
	case pgErrCheckViolation:
		return fmt.Errorf("%w: %s violated", domain.ErrValidation, pgErr.ConstraintName)
	case pgErrLockNotAvailable:
		return domain.ErrConcurrentRequest
	}

	return err
}
