package dtos

import (
	"github.com/google/uuid"
)

/*
CreateWorkOrderRequest is the body of POST /api/v1/work-orders. Deadline is a
calendar date (YYYY-MM-DD).
*/
type CreateWorkOrderRequest struct {
	BuildingID  uuid.UUID  `json:"building_id" validate:"required_without=UnitID"`
	UnitID      *uuid.UUID `json:"unit_id,omitempty"`
	Title       string     `json:"title" validate:"required,max=255"`
	Description string     `json:"description"`
	Status      string     `json:"status,omitempty" validate:"omitempty,oneof=OPEN IN_PROGRESS AWAITING_APPROVAL APPROVED REJECTED DONE"`
	Priority    string     `json:"priority,omitempty" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	Deadline    string     `json:"deadline" validate:"required,datetime=2006-01-02"`
	LawyerOnly  bool       `json:"lawyer_only"`
}

// UpdateWorkOrderRequest changes only the fields that are present.
type UpdateWorkOrderRequest struct {
	Title       *string    `json:"title,omitempty" validate:"omitempty,max=255"`
	Description *string    `json:"description,omitempty"`
	Priority    *string    `json:"priority,omitempty" validate:"omitempty,oneof=HIGH MEDIUM LOW"`
	Deadline    *string    `json:"deadline,omitempty" validate:"omitempty,datetime=2006-01-02"`
	BuildingID  *uuid.UUID `json:"building_id,omitempty"`
	UnitID      *uuid.UUID `json:"unit_id,omitempty"`
	ClearUnit   bool       `json:"clear_unit"`
	LawyerOnly  *bool      `json:"lawyer_only,omitempty"`
}

type TransitionStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=OPEN IN_PROGRESS AWAITING_APPROVAL APPROVED REJECTED DONE"`
	Note   string `json:"note" validate:"max=1000"`
}

type MassAssignRequest struct {
	BuildingIDs []uuid.UUID `json:"building_ids" validate:"required,min=1"`
	Title       string      `json:"title" validate:"required,max=255"`
	Description string      `json:"description"`
}

type MassAssignResponse struct {
	Created []uuid.UUID `json:"created"`
	Skipped []uuid.UUID `json:"skipped"`
}
