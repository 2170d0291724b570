package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Mecho90/BuildingManagement-sub000/internal/controllers"
)

const (
	// Public
	Health  = "/health"
	Metrics = "/metrics"

	// Buildings & units
	Buildings     = "/api/v1/buildings"
	Building      = "/api/v1/buildings/{id}"
	BuildingUnits = "/api/v1/buildings/{id}/units"
	Unit          = "/api/v1/units/{id}"

	// Work orders
	WorkOrders                  = "/api/v1/work-orders"
	WorkOrder                   = "/api/v1/work-orders/{id}"
	WorkOrderStatus             = "/api/v1/work-orders/{id}/status"
	WorkOrderArchive            = "/api/v1/work-orders/{id}/archive"
	WorkOrderAudit              = "/api/v1/work-orders/{id}/audit"
	WorkOrdersMassAssign        = "/api/v1/work-orders/mass-assign"
	WorkOrdersMassAssignTargets = "/api/v1/work-orders/mass-assign/candidates"

	// Notifications
	Notifications      = "/api/v1/notifications"
	NotificationsSync  = "/api/v1/notifications/sync"
	NotificationsAck   = "/api/v1/notifications/ack"
	NotificationsSeen  = "/api/v1/notifications/seen"
	NotificationSnooze = "/api/v1/notifications/{key}/snooze"

	// Roles
	MeCapabilities  = "/api/v1/me/capabilities"
	Memberships     = "/api/v1/memberships"
	Membership      = "/api/v1/memberships/{id}"
	UserMemberships = "/api/v1/users/{id}/memberships"
	RoleAudit       = "/api/v1/audit/roles"
)

type Controllers struct {
	Health        *controllers.HealthController
	Buildings     *controllers.BuildingsController
	WorkOrders    *controllers.WorkOrdersController
	Notifications *controllers.NotificationsController
	Memberships   *controllers.MembershipsController
}

// Register mounts the public routes on router and every API route on a
// subrouter guarded by auth.
func Register(router *mux.Router, c Controllers, auth mux.MiddlewareFunc) {
	router.HandleFunc(Health, c.Health.HealthCheckHandler).Methods(http.MethodGet)

	secured := router.NewRoute().Subrouter()
	secured.Use(auth)

	secured.HandleFunc(Buildings, c.Buildings.ListBuildingsHandler).Methods(http.MethodGet)
	secured.HandleFunc(Buildings, c.Buildings.CreateBuildingHandler).Methods(http.MethodPost)
	secured.HandleFunc(Building, c.Buildings.GetBuildingHandler).Methods(http.MethodGet)
	secured.HandleFunc(Building, c.Buildings.UpdateBuildingHandler).Methods(http.MethodPut)
	secured.HandleFunc(Building, c.Buildings.DeleteBuildingHandler).Methods(http.MethodDelete)
	secured.HandleFunc(BuildingUnits, c.Buildings.ListUnitsHandler).Methods(http.MethodGet)
	secured.HandleFunc(BuildingUnits, c.Buildings.CreateUnitHandler).Methods(http.MethodPost)
	secured.HandleFunc(Unit, c.Buildings.UpdateUnitHandler).Methods(http.MethodPut)
	secured.HandleFunc(Unit, c.Buildings.DeleteUnitHandler).Methods(http.MethodDelete)

	// literal paths before {id}
	secured.HandleFunc(WorkOrdersMassAssign, c.WorkOrders.MassAssignHandler).Methods(http.MethodPost)
	secured.HandleFunc(WorkOrdersMassAssignTargets, c.WorkOrders.MassAssignCandidatesHandler).Methods(http.MethodGet)
	secured.HandleFunc(WorkOrders, c.WorkOrders.ListWorkOrdersHandler).Methods(http.MethodGet)
	secured.HandleFunc(WorkOrders, c.WorkOrders.CreateWorkOrderHandler).Methods(http.MethodPost)
	secured.HandleFunc(WorkOrder, c.WorkOrders.GetWorkOrderHandler).Methods(http.MethodGet)
	secured.HandleFunc(WorkOrder, c.WorkOrders.UpdateWorkOrderHandler).Methods(http.MethodPatch)
	secured.HandleFunc(WorkOrder, c.WorkOrders.DeleteWorkOrderHandler).Methods(http.MethodDelete)
	secured.HandleFunc(WorkOrderStatus, c.WorkOrders.TransitionStatusHandler).Methods(http.MethodPost)
	secured.HandleFunc(WorkOrderArchive, c.WorkOrders.ArchiveWorkOrderHandler).Methods(http.MethodPost)
	secured.HandleFunc(WorkOrderAudit, c.WorkOrders.WorkOrderAuditHandler).Methods(http.MethodGet)

	secured.HandleFunc(Notifications, c.Notifications.ListActiveHandler).Methods(http.MethodGet)
	secured.HandleFunc(NotificationsSync, c.Notifications.SyncHandler).Methods(http.MethodPost)
	secured.HandleFunc(NotificationsAck, c.Notifications.AcknowledgeHandler).Methods(http.MethodPost)
	secured.HandleFunc(NotificationsSeen, c.Notifications.MarkSeenHandler).Methods(http.MethodPost)
	secured.HandleFunc(NotificationSnooze, c.Notifications.SnoozeHandler).Methods(http.MethodPost)

	secured.HandleFunc(MeCapabilities, c.Memberships.MyCapabilitiesHandler).Methods(http.MethodGet)
	secured.HandleFunc(Memberships, c.Memberships.GrantHandler).Methods(http.MethodPost)
	secured.HandleFunc(Membership, c.Memberships.RevokeHandler).Methods(http.MethodDelete)
	secured.HandleFunc(UserMemberships, c.Memberships.ListForUserHandler).Methods(http.MethodGet)
	secured.HandleFunc(RoleAudit, c.Memberships.RoleAuditHandler).Methods(http.MethodGet)
}
