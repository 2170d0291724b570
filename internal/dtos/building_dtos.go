package dtos

import (
	"github.com/google/uuid"
)

type HealthCheckResponse struct {
	Status string `json:"status"`
}

type BuildingRequest struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Address     string     `json:"address" validate:"max=255"`
	Description string     `json:"description"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty"`
	Role        string     `json:"role,omitempty" validate:"omitempty,oneof=TECH_SUPPORT PROPERTY_MANAGER EXTERNAL_CONTRACTOR"`
}

type UnitRequest struct {
	Number       string `json:"number" validate:"required,max=50"`
	Floor        int    `json:"floor" validate:"gte=-5"`
	IsOccupied   bool   `json:"is_occupied"`
	ContactName  string `json:"contact_name" validate:"max=255"`
	ContactPhone string `json:"contact_phone" validate:"max=50"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	Description  string `json:"description"`
}

// ListResponse wraps any paged listing.
type ListResponse[T any] struct {
	Results []T `json:"results"`
	Total   int `json:"total"`
}

type GrantMembershipRequest struct {
	UserID            uuid.UUID  `json:"user_id" validate:"required"`
	BuildingID        *uuid.UUID `json:"building_id,omitempty"`
	Role              string     `json:"role" validate:"required,oneof=TECHNICIAN BACKOFFICE ADMINISTRATOR AUDITOR"`
	TechnicianSubrole *string    `json:"technician_subrole,omitempty"`
	Add               []string   `json:"add,omitempty" validate:"dive,required"`
	Remove            []string   `json:"remove,omitempty" validate:"dive,required"`
}
