package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/constants"
	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
)

// AuditService writes append-only audit rows. The Log* methods take the
// transactional store of the change they describe so both commit together.
type AuditService struct {
	store      repositories.Store
	visibility *VisibilityService
}

func NewAuditService(store repositories.Store, visibility *VisibilityService) *AuditService {
	return &AuditService{store: store, visibility: visibility}
}

func marshalPayload(payload map[string]any) (json.RawMessage, error) {
	if len(payload) == 0 {
		return json.RawMessage(`{}`), nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}
	return raw, nil
}

func (s *AuditService) LogRoleAction(
	ctx context.Context,
	tx repositories.Store,
	actor *models.User,
	m *models.BuildingMembership,
	action models.RoleAuditAction,
	payload map[string]any,
) error {
	raw, err := marshalPayload(payload)
	if err != nil {
		return err
	}
	entry := &models.RoleAuditLog{
		ActorID:      actorID(actor),
		TargetUserID: m.UserID,
		BuildingID:   m.BuildingID,
		Role:         m.Role,
		Action:       action,
		Payload:      raw,
	}
	if err := tx.Audit().CreateRoleLog(ctx, entry); err != nil {
		return fmt.Errorf("write role audit (%s): %w", action, err)
	}
	return nil
}

func (s *AuditService) LogWorkOrderAction(
	ctx context.Context,
	tx repositories.Store,
	actor *models.User,
	wo *models.WorkOrder,
	action models.WorkOrderAuditAction,
	payload map[string]any,
) error {
	raw, err := marshalPayload(payload)
	if err != nil {
		return err
	}
	entry := &models.WorkOrderAuditLog{
		ActorID:     actorID(actor),
		WorkOrderID: wo.ID,
		BuildingID:  wo.BuildingID,
		Action:      action,
		Payload:     raw,
	}
	if err := tx.Audit().CreateWorkOrderLog(ctx, entry); err != nil {
		return fmt.Errorf("write work order audit (%s): %w", action, err)
	}
	return nil
}

/* ---------- reads ---------- */

// ListRoleAudit needs view_audit_log globally when buildingID is nil, or on
// the building otherwise.
func (s *AuditService) ListRoleAudit(ctx context.Context, user *models.User, buildingID *uuid.UUID) ([]*models.RoleAuditLog, error) {
	if err := newAccess(s.store, user).require(ctx, models.CapViewAuditLog, buildingID); err != nil {
		return nil, err
	}
	return s.store.Audit().ListRoleLogs(ctx, buildingID, constants.AuditListLimit)
}

func (s *AuditService) ListWorkOrderAudit(ctx context.Context, user *models.User, workOrderID uuid.UUID) ([]*models.WorkOrderAuditLog, error) {
	wo, err := s.visibility.VisibleWorkOrder(ctx, user, workOrderID)
	if err != nil {
		return nil, err
	}
	if err := newAccess(s.store, user).require(ctx, models.CapViewAuditLog, &wo.BuildingID); err != nil {
		return nil, err
	}
	logs, err := s.store.Audit().ListWorkOrderLogs(ctx, wo.ID)
	if err != nil {
		return nil, fmt.Errorf("list audit for %s: %w", wo.ID, err)
	}
	if logs == nil {
		logs = []*models.WorkOrderAuditLog{}
	}
	return logs, nil
}
