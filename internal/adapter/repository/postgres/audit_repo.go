package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/finova/ledger/internal/domain"
	"github.com/finova/ledger/internal/usecase"
)

// AuditRepository implements usecase.AuditRepository.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Create inserts a new audit log entry within a transaction, so the
// trail commits or rolls back together with the change it records.
func (r *AuditRepository) Create(ctx context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	pgxTx := tx.(*Tx).PgxTx()

	before, err := marshalState(log.BeforeState)
	if err != nil {
		return err
	}

	after, err := marshalState(log.AfterState)
	if err != nil {
		return err
	}

	_, err = pgxTx.Exec(ctx, `
		INSERT INTO audit_logs (
			id, actor_id, action, resource_type, resource_id,
			ip_address, request_id,
			before_state, after_state, status, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		log.ID,
		log.ActorID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		log.IPAddress,
		log.RequestID,
		before,
		after,
		log.Status,
		log.ErrorMessage,
		log.CreatedAt,
	)

	return err
}

// GetByResourceID retrieves the audit trail of a resource, newest first.
func (r *AuditRepository) GetByResourceID(ctx context.Context, resourceType, resourceID string) ([]*domain.AuditLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, actor_id, action, resource_type, resource_id,
		       ip_address, request_id,
		       before_state, after_state, status, error_message, created_at
		FROM audit_logs
		WHERE resource_type = $1 AND resource_id = $2
		ORDER BY created_at DESC`,
		resourceType,
		resourceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []*domain.AuditLog

	for rows.Next() {
		var (
			log    domain.AuditLog
			before []byte
			after  []byte
		)

		err := rows.Scan(
			&log.ID,
			&log.ActorID,
			&log.Action,
			&log.ResourceType,
			&log.ResourceID,
			&log.IPAddress,
			&log.RequestID,
			&before,
			&after,
			&log.Status,
			&log.ErrorMessage,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, err
		}

		if len(before) > 0 {
			if err := json.Unmarshal(before, &log.BeforeState); err != nil {
				return nil, err
			}
		}

		if len(after) > 0 {
			if err := json.Unmarshal(after, &log.AfterState); err != nil {
				return nil, err
			}
		}

		logs = append(logs, &log)
	}

	return logs, rows.Err()
}

func marshalState(state domain.JSON) ([]byte, error) {
	if state == nil {
		return nil, nil
	}

	return json.Marshal(state)
}
