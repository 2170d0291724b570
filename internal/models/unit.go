package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MinUnitFloor allows a handful of basement levels.
const MinUnitFloor = -5

// Unit is an addressable space inside a building.
type Unit struct {
	ID           uuid.UUID `json:"id"`
	BuildingID   uuid.UUID `json:"building_id"`
	Number       string    `json:"number"`
	Floor        int       `json:"floor"`
	IsOccupied   bool      `json:"is_occupied"`
	ContactName  string    `json:"contact_name,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeUnitNumber is the key used for the case-insensitive uniqueness rule.
func NormalizeUnitNumber(number string) string {
	return strings.ToLower(strings.TrimSpace(number))
}
