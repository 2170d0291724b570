package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RoleAuditAction string

const (
	RoleAuditAdded   RoleAuditAction = "ROLE_ADDED"
	RoleAuditRemoved RoleAuditAction = "ROLE_REMOVED"
	RoleAuditUpdated RoleAuditAction = "ROLE_UPDATED"
)

type WorkOrderAuditAction string

const (
	WorkOrderAuditCreated       WorkOrderAuditAction = "CREATED"
	WorkOrderAuditStatusChanged WorkOrderAuditAction = "STATUS_CHANGED"
	WorkOrderAuditApproval      WorkOrderAuditAction = "APPROVAL"
	WorkOrderAuditReassigned    WorkOrderAuditAction = "REASSIGNED"
	WorkOrderAuditArchived      WorkOrderAuditAction = "ARCHIVED"
)

// RoleAuditLog rows are append-only.
type RoleAuditLog struct {
	ID           uuid.UUID       `json:"id"`
	ActorID      *uuid.UUID      `json:"actor_id,omitempty"`
	TargetUserID uuid.UUID       `json:"target_user_id"`
	BuildingID   *uuid.UUID      `json:"building_id,omitempty"`
	Role         MembershipRole  `json:"role"`
	Action       RoleAuditAction `json:"action"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// WorkOrderAuditLog rows are append-only.
type WorkOrderAuditLog struct {
	ID          uuid.UUID            `json:"id"`
	ActorID     *uuid.UUID           `json:"actor_id,omitempty"`
	WorkOrderID uuid.UUID            `json:"work_order_id"`
	BuildingID  uuid.UUID            `json:"building_id"`
	Action      WorkOrderAuditAction `json:"action"`
	Payload     json.RawMessage      `json:"payload,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}
