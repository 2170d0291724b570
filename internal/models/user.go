package models

import "github.com/google/uuid"

// User is owned by the account system; this service only reads it.
type User struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	IsStaff     bool      `json:"is_staff"`
	IsSuperuser bool      `json:"is_superuser"`
	IsActive    bool      `json:"is_active"`
}

// IsAuthenticated is false for nil users, anonymous placeholders and
// deactivated accounts.
func (u *User) IsAuthenticated() bool {
	return u != nil && u.ID != uuid.Nil && u.IsActive
}

func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}
