package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type WorkOrderStatus string

const (
	WorkOrderStatusOpen             WorkOrderStatus = "OPEN"
	WorkOrderStatusInProgress       WorkOrderStatus = "IN_PROGRESS"
	WorkOrderStatusAwaitingApproval WorkOrderStatus = "AWAITING_APPROVAL"
	WorkOrderStatusApproved         WorkOrderStatus = "APPROVED"
	WorkOrderStatusRejected         WorkOrderStatus = "REJECTED"
	WorkOrderStatusDone             WorkOrderStatus = "DONE"
)

func (s WorkOrderStatus) Valid() bool {
	switch s {
	case WorkOrderStatusOpen, WorkOrderStatusInProgress, WorkOrderStatusAwaitingApproval,
		WorkOrderStatusApproved, WorkOrderStatusRejected, WorkOrderStatusDone:
		return true
	}
	return false
}

// DeadlineAlertStatuses are the statuses that still produce deadline alerts.
var DeadlineAlertStatuses = []WorkOrderStatus{
	WorkOrderStatusOpen,
	WorkOrderStatusInProgress,
	WorkOrderStatusAwaitingApproval,
}

// MassAssignActiveStatuses guard duplicate mass assignments.
var MassAssignActiveStatuses = []WorkOrderStatus{
	WorkOrderStatusOpen,
	WorkOrderStatusInProgress,
}

// CanTransition reports whether a status write from -> to is allowed. Every
// status write goes through here; the graph is currently unrestricted.
func CanTransition(from, to WorkOrderStatus) bool {
	return from.Valid() && to.Valid()
}

type WorkOrderPriority string

const (
	PriorityHigh   WorkOrderPriority = "HIGH"
	PriorityMedium WorkOrderPriority = "MEDIUM"
	PriorityLow    WorkOrderPriority = "LOW"
)

func (p WorkOrderPriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank orders priorities HIGH < MEDIUM < LOW; unknown values sort last.
func (p WorkOrderPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

type WorkOrderKind string

const (
	WorkOrderKindMaintenance WorkOrderKind = "MAINTENANCE"
	WorkOrderKindMassAssign  WorkOrderKind = "MASS_ASSIGN"
)

func (k WorkOrderKind) Valid() bool {
	return k == WorkOrderKindMaintenance || k == WorkOrderKindMassAssign
}

type WorkOrder struct {
	Versioned

	ID                 uuid.UUID         `json:"id"`
	BuildingID         uuid.UUID         `json:"building_id"`
	UnitID             *uuid.UUID        `json:"unit_id,omitempty"`
	Title              string            `json:"title"`
	Description        string            `json:"description,omitempty"`
	Status             WorkOrderStatus   `json:"status"`
	Priority           WorkOrderPriority `json:"priority"`
	Kind               WorkOrderKind     `json:"kind"`
	Deadline           time.Time         `json:"deadline"`
	MassAssigned       bool              `json:"mass_assigned"`
	ArchivedAt         *time.Time        `json:"archived_at,omitempty"`
	LawyerOnly         bool              `json:"lawyer_only"`
	AwaitingApprovalBy *uuid.UUID        `json:"awaiting_approval_by,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func (wo *WorkOrder) GetID() string { return wo.ID.String() }

func (wo *WorkOrder) IsArchived() bool { return wo.ArchivedAt != nil }

// SetStatus is the only status writer. Moving away from DONE de-archives the
// order.
func (wo *WorkOrder) SetStatus(to WorkOrderStatus) error {
	if !CanTransition(wo.Status, to) {
		return utils.NewValidationError("status", "invalid status transition "+string(wo.Status)+" -> "+string(to))
	}
	wo.Status = to
	if to != WorkOrderStatusDone {
		wo.ArchivedAt = nil
	}
	if to != WorkOrderStatusAwaitingApproval {
		wo.AwaitingApprovalBy = nil
	}
	return nil
}

// Archive stamps ArchivedAt once. It reports whether anything changed; callers
// check Status first and treat a non-DONE order as not archivable.
func (wo *WorkOrder) Archive(now time.Time) bool {
	if wo.Status != WorkOrderStatusDone || wo.ArchivedAt != nil {
		return false
	}
	at := now.UTC()
	wo.ArchivedAt = &at
	return true
}

// Repair forces the denormalized building reference to follow the unit.
func (wo *WorkOrder) Repair(unit *Unit) {
	if wo.UnitID != nil && unit != nil && unit.ID == *wo.UnitID {
		wo.BuildingID = unit.BuildingID
	}
}

// Validate checks the invariants that must hold before every persist. unit is
// the row referenced by UnitID (nil when none is attached or it was not found).
func (wo *WorkOrder) Validate(unit *Unit) error {
	if strings.TrimSpace(wo.Title) == "" {
		return utils.NewValidationError("title", "title is required")
	}
	if wo.Deadline.IsZero() {
		return utils.NewValidationError("deadline", "deadline is required")
	}
	if wo.BuildingID == uuid.Nil {
		return utils.NewValidationError("building", "building is required")
	}
	if !wo.Status.Valid() {
		return utils.NewValidationError("status", "unknown status")
	}
	if !wo.Priority.Valid() {
		return utils.NewValidationError("priority", "unknown priority")
	}
	if !wo.Kind.Valid() {
		return utils.NewValidationError("kind", "unknown kind")
	}
	if wo.ArchivedAt != nil && wo.Status != WorkOrderStatusDone {
		return utils.NewValidationError("archived_at", "only completed work orders can be archived")
	}
	if wo.UnitID != nil {
		if unit == nil || unit.ID != *wo.UnitID {
			return utils.NewValidationError("unit", "unit does not exist")
		}
		if unit.BuildingID != wo.BuildingID {
			return utils.NewValidationError("unit", "unit belongs to a different building")
		}
	}
	return nil
}

// PrepareForSave runs Repair then Validate.
func (wo *WorkOrder) PrepareForSave(unit *Unit) error {
	wo.Deadline = normalizeDate(wo.Deadline)
	wo.Repair(unit)
	return wo.Validate(unit)
}

func normalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return utils.DateOnly(t)
}
