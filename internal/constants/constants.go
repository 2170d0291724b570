package constants

import (
	"time"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
)

// Deadline alerts
const (
	DeadlineHorizonDays       = 30 // candidates are due within [today, today+30]
	DeadlineAlertsPerPriority = 10
)

// DeadlineWindowDays is how many days ahead of its deadline an order starts
// alerting, per priority.
var DeadlineWindowDays = map[models.WorkOrderPriority]int{
	models.PriorityHigh:   7,
	models.PriorityMedium: 7,
	models.PriorityLow:    30,
}

// Mass assignment
const (
	MassAssignDeadlineDays = 30
	MassAssignRecentDays   = 7  // mass-assign alerts cover orders created in the last week
	MassAssignRecentLimit  = 10 // newest N orders only
)

// Notification housekeeping
const (
	AcknowledgedRetentionDays   = 30
	DefaultNotificationSyncCron = "5 0 * * *" // 00:05 UTC daily
	NotificationSyncJobTimeout  = 10 * time.Minute
)

// Notification key prefixes; the work order id is appended.
const (
	NotificationKeyDeadline   = "wo-deadline-"
	NotificationKeyMassAssign = "wo-mass-"
	NotificationKeyAwaiting   = "wo-awaiting-"
)

// API
const (
	DefaultPageSize = 25
	MaxPageSize     = 200
	AuditListLimit  = 100
)

// HTTP server
const (
	ServerReadTimeout  = 15 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ShutdownTimeout    = 10 * time.Second
)

// DB bootstrap
const (
	DBConnectMaxElapsed = 30 * time.Second
)
