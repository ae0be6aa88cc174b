package postgres

import (
	"context"
	"encoding/json"

	"github.com/iho/gobooks/internal/domain"
	"github.com/iho/gobooks/internal/usecase"
)

// AuditRepository implements audit log persistence
type AuditRepository struct {
	db DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateTx inserts an audit log entry in the caller's transaction
func (r *AuditRepository) CreateTx(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	var beforeStateJSON, afterStateJSON []byte
	var err error

	if log.BeforeState != nil {
		beforeStateJSON, err = json.Marshal(log.BeforeState)
		if err != nil {
			return err
		}
	}

	if log.AfterState != nil {
		afterStateJSON, err = json.Marshal(log.AfterState)
		if err != nil {
			return err
		}
	}

	_, err = conn(r.db, tx).Exec(ctx, `
		INSERT INTO audit_logs (
			id, organization_id, actor_id, action, resource_type, resource_id,
			request_id, before_state, after_state, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		log.ID,
		log.OrganizationID,
		log.ActorID,
		string(log.Action),
		log.ResourceType,
		log.ResourceID,
		log.RequestID,
		beforeStateJSON,
		afterStateJSON,
		log.CreatedAt,
	)

	return err
}

// List retrieves audit logs with filtering, newest first
func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	w := newWhere()
	if filter.OrganizationID != "" {
		w.add("organization_id = " + w.arg(filter.OrganizationID))
	}
	if filter.ActorID != "" {
		w.add("actor_id = " + w.arg(filter.ActorID))
	}
	if filter.Action != "" {
		w.add("action = " + w.arg(string(filter.Action)))
	}
	if filter.ResourceType != "" {
		w.add("resource_type = " + w.arg(filter.ResourceType))
	}
	if filter.ResourceID != "" {
		w.add("resource_id = " + w.arg(filter.ResourceID))
	}

	query := `
		SELECT id, organization_id, actor_id, action, resource_type, resource_id,
		       request_id, before_state, after_state, created_at
		FROM audit_logs
		WHERE ` + w.String() + `
		ORDER BY created_at DESC, seq DESC` + w.page(filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog
	for rows.Next() {
		var log domain.AuditLog
		var action string
		var beforeStateJSON, afterStateJSON []byte

		err := rows.Scan(
			&log.ID,
			&log.OrganizationID,
			&log.ActorID,
			&action,
			&log.ResourceType,
			&log.ResourceID,
			&log.RequestID,
			&beforeStateJSON,
			&afterStateJSON,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		log.Action = domain.AuditAction(action)

		if beforeStateJSON != nil {
			_ = json.Unmarshal(beforeStateJSON, &log.BeforeState)
		}

		if afterStateJSON != nil {
			_ = json.Unmarshal(afterStateJSON, &log.AfterState)
		}

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}
