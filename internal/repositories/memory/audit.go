package memory

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
)

type auditRepo struct{ s *Store }

func (r *auditRepo) CreateRoleLog(_ context.Context, e *models.RoleAuditLog) error {
	r.s.lock()
	defer r.s.unlock()
	if r.s.sh.auditErr != nil {
		return r.s.sh.auditErr
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = r.s.now()
	r.s.sh.st.roleLogs = append(r.s.sh.st.roleLogs, *e)
	return nil
}

func (r *auditRepo) CreateWorkOrderLog(_ context.Context, e *models.WorkOrderAuditLog) error {
	r.s.lock()
	defer r.s.unlock()
	if r.s.sh.auditErr != nil {
		return r.s.sh.auditErr
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = r.s.now()
	r.s.sh.st.workOrderLogs = append(r.s.sh.st.workOrderLogs, *e)
	return nil
}

func (r *auditRepo) ListRoleLogs(_ context.Context, buildingID *uuid.UUID, limit int) ([]*models.RoleAuditLog, error) {
	r.s.lock()
	defer r.s.unlock()
	if limit <= 0 {
		limit = 100
	}
	out := []*models.RoleAuditLog{}
	logs := r.s.sh.st.roleLogs
	// newest first: walk the append-only slice backwards
	for i := len(logs) - 1; i >= 0 && len(out) < limit; i-- {
		e := logs[i]
		if buildingID != nil && (e.BuildingID == nil || *e.BuildingID != *buildingID) {
			continue
		}
		out = append(out, &e)
	}
	return out, nil
}

func (r *auditRepo) ListWorkOrderLogs(_ context.Context, workOrderID uuid.UUID) ([]*models.WorkOrderAuditLog, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []*models.WorkOrderAuditLog{}
	for _, e := range slices.Clone(r.s.sh.st.workOrderLogs) {
		e := e
		if e.WorkOrderID == workOrderID {
			out = append(out, &e)
		}
	}
	return out, nil
}
