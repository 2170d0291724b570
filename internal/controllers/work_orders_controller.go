package controllers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/dtos"
	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/services"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type WorkOrdersController struct {
	workOrders *services.WorkOrderService
	audit      *services.AuditService
}

func NewWorkOrdersController(wo *services.WorkOrderService, audit *services.AuditService) *WorkOrdersController {
	return &WorkOrdersController{workOrders: wo, audit: audit}
}

// ----------------------------------------------------------------
// GET /api/v1/work-orders
// ?search=&status=OPEN,DONE&priority=HIGH&building=&owner=&archived=&order=&limit=&offset=
// ----------------------------------------------------------------
func (c *WorkOrdersController) ListWorkOrdersHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	in := services.ListWorkOrdersInput{
		Search: r.URL.Query().Get("search"),
		Order:  repositories.WorkOrderOrder(r.URL.Query().Get("order")),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	}
	for _, s := range queryList(r, "status") {
		st := models.WorkOrderStatus(s)
		if !st.Valid() {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Unknown status "+s, nil)
			return
		}
		in.Statuses = append(in.Statuses, st)
	}
	for _, p := range queryList(r, "priority") {
		pr := models.WorkOrderPriority(p)
		if !pr.Valid() {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Unknown priority "+p, nil)
			return
		}
		in.Priorities = append(in.Priorities, pr)
	}
	var err error
	if in.BuildingID, err = queryUUID(r, "building"); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid building", nil, err)
		return
	}
	if in.OwnerID, err = queryUUID(r, "owner"); err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid owner", nil, err)
		return
	}
	if raw := r.URL.Query().Get("archived"); raw != "" {
		if in.Archived, err = strconv.ParseBool(raw); err != nil {
			utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid archived flag", nil, err)
			return
		}
	}

	page, err := c.workOrders.ListWorkOrders(r.Context(), user, in)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}

// POST /api/v1/work-orders
func (c *WorkOrdersController) CreateWorkOrderHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dtos.CreateWorkOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	deadline, err := utils.ParseDate(req.Deadline)
	if err != nil {
		utils.HandleAppError(w, utils.NewValidationError("deadline", "expected YYYY-MM-DD"))
		return
	}
	wo, err := c.workOrders.CreateWorkOrder(r.Context(), user, services.CreateWorkOrderInput{
		BuildingID:  req.BuildingID,
		UnitID:      req.UnitID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.WorkOrderStatus(req.Status),
		Priority:    models.WorkOrderPriority(req.Priority),
		Deadline:    deadline,
		LawyerOnly:  req.LawyerOnly,
	})
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, wo)
}

// GET /api/v1/work-orders/{id}
func (c *WorkOrdersController) GetWorkOrderHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	wo, err := c.workOrders.GetWorkOrder(r.Context(), user, id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, wo)
}

// PATCH /api/v1/work-orders/{id}
func (c *WorkOrdersController) UpdateWorkOrderHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.UpdateWorkOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in := services.UpdateWorkOrderInput{
		Title:       req.Title,
		Description: req.Description,
		BuildingID:  req.BuildingID,
		UnitID:      req.UnitID,
		ClearUnit:   req.ClearUnit,
		LawyerOnly:  req.LawyerOnly,
	}
	if req.Priority != nil {
		in.Priority = utils.Ptr(models.WorkOrderPriority(*req.Priority))
	}
	if req.Deadline != nil {
		d, err := utils.ParseDate(*req.Deadline)
		if err != nil {
			utils.HandleAppError(w, utils.NewValidationError("deadline", "expected YYYY-MM-DD"))
			return
		}
		in.Deadline = &d
	}
	wo, err := c.workOrders.UpdateWorkOrder(r.Context(), user, id, in)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, wo)
}

// DELETE /api/v1/work-orders/{id}
func (c *WorkOrdersController) DeleteWorkOrderHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := c.workOrders.DeleteWorkOrder(r.Context(), user, id); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// POST /api/v1/work-orders/{id}/status
func (c *WorkOrdersController) TransitionStatusHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.TransitionStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	wo, err := c.workOrders.TransitionStatus(r.Context(), user, id, models.WorkOrderStatus(req.Status), req.Note)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, wo)
}

// POST /api/v1/work-orders/{id}/archive
func (c *WorkOrdersController) ArchiveWorkOrderHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	wo, err := c.workOrders.ArchiveWorkOrder(r.Context(), user, id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, wo)
}

// GET /api/v1/work-orders/{id}/audit
func (c *WorkOrdersController) WorkOrderAuditHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	logs, err := c.audit.ListWorkOrderAudit(r.Context(), user, id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, logs)
}

// POST /api/v1/work-orders/mass-assign
func (c *WorkOrdersController) MassAssignHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dtos.MassAssignRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := c.workOrders.MassAssign(r.Context(), user, services.MassAssignInput{
		BuildingIDs: req.BuildingIDs,
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	resp := dtos.MassAssignResponse{Created: make([]uuid.UUID, 0, len(res.Created)), Skipped: res.Skipped}
	for _, wo := range res.Created {
		resp.Created = append(resp.Created, wo.ID)
	}
	utils.RespondWithJSON(w, http.StatusCreated, resp)
}

// GET /api/v1/work-orders/mass-assign/candidates
func (c *WorkOrdersController) MassAssignCandidatesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	list, err := c.workOrders.MassAssignCandidates(r.Context(), user)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}
