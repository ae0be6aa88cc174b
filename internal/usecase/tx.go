package usecase

import (
	"context"
	"time"

	"github.com/iho/gobooks/internal/domain"
)

// withTx runs fn inside one transaction bounded by DefaultTransactionTimeout.
// The transaction is rolled back unless fn succeeds and the commit goes through.
func withTx(ctx context.Context, txManager TransactionManager, fn func(ctx context.Context, tx Transaction) error) error {
	txCtx, cancel := context.WithTimeout(ctx, DefaultTransactionTimeout)
	defer cancel()

	tx, err := txManager.Begin(txCtx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(txCtx) }()

	if err := fn(txCtx, tx); err != nil {
		return err
	}

	return tx.Commit(txCtx)
}

// audit writes an audit row in tx when an audit repository is configured.
func audit(
	ctx context.Context,
	repo AuditRepository,
	tx Transaction,
	idGen IDGenerator,
	actor domain.Actor,
	action domain.AuditAction,
	resourceType, resourceID string,
	before, after any,
	now time.Time,
) error {
	if repo == nil {
		return nil
	}

	log := &domain.AuditLog{
		ID:             idGen.Generate(),
		OrganizationID: actor.OrganizationID,
		ActorID:        actor.UserID,
		Action:         action,
		ResourceType:   resourceType,
		ResourceID:     resourceID,
		RequestID:      RequestIDFromContext(ctx),
		BeforeState:    domain.MarshalState(before),
		AfterState:     domain.MarshalState(after),
		CreatedAt:      now,
	}

	return repo.CreateTx(ctx, tx, log)
}

type requestIDKey struct{}

// ContextWithRequestID stores the request id used by audit rows.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id stored by ContextWithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
