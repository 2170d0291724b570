package controllers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Mecho90/BuildingManagement-sub000/internal/dtos"
	"github.com/Mecho90/BuildingManagement-sub000/internal/services"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type NotificationsController struct {
	notifications *services.NotificationService
	clock         utils.Clock
}

func NewNotificationsController(n *services.NotificationService, clock utils.Clock) *NotificationsController {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &NotificationsController{notifications: n, clock: clock}
}

// GET /api/v1/notifications
func (c *NotificationsController) ListActiveHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	list, err := c.notifications.Active(r.Context(), user, utils.Today(c.clock))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// POST /api/v1/notifications/sync
// Re-syncs deadline and mass-assign alerts for the caller and returns the
// active set.
func (c *NotificationsController) SyncHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	today := utils.Today(c.clock)
	if _, err := c.notifications.SyncWorkOrderDeadlines(ctx, user, today); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	if _, err := c.notifications.SyncRecentMassAssign(ctx, user, today); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	list, err := c.notifications.Active(ctx, user, today)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// POST /api/v1/notifications/ack
func (c *NotificationsController) AcknowledgeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dtos.NotificationKeysRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := c.notifications.Acknowledge(r.Context(), user, req.Keys)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.NotificationCountResponse{Updated: n})
}

// POST /api/v1/notifications/seen
func (c *NotificationsController) MarkSeenHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dtos.NotificationKeysRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := c.notifications.MarkSeen(r.Context(), user, req.Keys)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.NotificationCountResponse{Updated: n})
}

// POST /api/v1/notifications/{key}/snooze
func (c *NotificationsController) SnoozeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dtos.SnoozeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	var until *time.Time
	if req.Until != nil {
		d, err := utils.ParseDate(*req.Until)
		if err != nil {
			utils.HandleAppError(w, utils.NewValidationError("until", "expected YYYY-MM-DD"))
			return
		}
		until = &d
	}
	n, err := c.notifications.Snooze(r.Context(), user, mux.Vars(r)["key"], until, utils.Today(c.clock))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, n)
}
