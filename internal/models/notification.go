package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelWarning NotificationLevel = "warning"
	LevelDanger  NotificationLevel = "danger"
)

// LevelForPriority maps a work order priority onto an alert level.
func LevelForPriority(p WorkOrderPriority) NotificationLevel {
	switch p {
	case PriorityHigh:
		return LevelDanger
	case PriorityMedium:
		return LevelWarning
	default:
		return LevelInfo
	}
}

const (
	CategoryDeadline   = "deadline"
	CategoryMassAssign = "mass_assign"
	CategoryApproval   = "approval"
)

// Notification is a per-user alert identified by (UserID, Key).
type Notification struct {
	ID             uuid.UUID         `json:"id"`
	UserID         uuid.UUID         `json:"user_id"`
	Key            string            `json:"key"`
	Category       string            `json:"category"`
	Level          NotificationLevel `json:"level"`
	Title          string            `json:"title"`
	Body           string            `json:"body"`
	FirstSeenAt    *time.Time        `json:"first_seen_at,omitempty"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty"`
	SnoozedUntil   *time.Time        `json:"snoozed_until,omitempty"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (n *Notification) IsAcknowledged() bool { return n.AcknowledgedAt != nil }

// IsActive reports whether the notification should be shown on date on.
// now is compared against ExpiresAt.
func (n *Notification) IsActive(on, now time.Time) bool {
	if n.AcknowledgedAt != nil {
		return false
	}
	if n.SnoozedUntil != nil && n.SnoozedUntil.After(on) {
		return false
	}
	if n.ExpiresAt != nil && !n.ExpiresAt.After(now) {
		return false
	}
	return true
}

// NotificationPayload is the desired content of one notification. The
// synchronizer turns a batch of payloads into inserts and minimal updates.
type NotificationPayload struct {
	Key       string
	Category  string
	Level     NotificationLevel
	Title     string
	Body      string
	ExpiresAt *time.Time
}

// Apply copies payload fields onto n and reports whether anything changed.
func (p NotificationPayload) Apply(n *Notification) bool {
	changed := false
	if n.Category != p.Category {
		n.Category = p.Category
		changed = true
	}
	if n.Level != p.Level {
		n.Level = p.Level
		changed = true
	}
	if n.Title != p.Title {
		n.Title = p.Title
		changed = true
	}
	if n.Body != p.Body {
		n.Body = p.Body
		changed = true
	}
	if !equalTimePtr(n.ExpiresAt, p.ExpiresAt) {
		n.ExpiresAt = p.ExpiresAt
		changed = true
	}
	return changed
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
