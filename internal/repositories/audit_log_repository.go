package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
)

// AuditLogRepository has no update or delete: entries are append-only.
type auditLogRepo struct {
	db DB
}

func NewAuditLogRepository(db DB) AuditLogRepository {
	return &auditLogRepo{db: db}
}

func (r *auditLogRepo) CreateRoleLog(ctx context.Context, e *models.RoleAuditLog) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO role_audit_logs (
			id, actor_id, target_user_id, building_id, role, action, payload, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())
		RETURNING created_at
	`, e.ID, e.ActorID, e.TargetUserID, e.BuildingID, e.Role, e.Action, payloadArg(e.Payload))
	return mapPgError(row.Scan(&e.CreatedAt))
}

func (r *auditLogRepo) CreateWorkOrderLog(ctx context.Context, e *models.WorkOrderAuditLog) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO work_order_audit_logs (
			id, actor_id, work_order_id, building_id, action, payload, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,NOW())
		RETURNING created_at
	`, e.ID, e.ActorID, e.WorkOrderID, e.BuildingID, e.Action, payloadArg(e.Payload))
	return mapPgError(row.Scan(&e.CreatedAt))
}

func (r *auditLogRepo) ListRoleLogs(ctx context.Context, buildingID *uuid.UUID, limit int) ([]*models.RoleAuditLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, actor_id, target_user_id, building_id, role, action, payload, created_at
		FROM role_audit_logs
		WHERE $1::uuid IS NULL OR building_id = $1::uuid
		ORDER BY created_at DESC, id
		LIMIT $2
	`, buildingID, limit)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := []*models.RoleAuditLog{}
	for rows.Next() {
		var e models.RoleAuditLog
		if err := rows.Scan(&e.ID, &e.ActorID, &e.TargetUserID, &e.BuildingID,
			&e.Role, &e.Action, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (r *auditLogRepo) ListWorkOrderLogs(ctx context.Context, workOrderID uuid.UUID) ([]*models.WorkOrderAuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, actor_id, work_order_id, building_id, action, payload, created_at
		FROM work_order_audit_logs
		WHERE work_order_id=$1
		ORDER BY created_at, id
	`, workOrderID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := []*models.WorkOrderAuditLog{}
	for rows.Next() {
		var e models.WorkOrderAuditLog
		if err := rows.Scan(&e.ID, &e.ActorID, &e.WorkOrderID, &e.BuildingID,
			&e.Action, &e.Payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// payloadArg stores an empty payload as '{}'.
func payloadArg(p []byte) []byte {
	if len(p) == 0 {
		return []byte("{}")
	}
	return p
}
