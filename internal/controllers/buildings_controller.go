package controllers

import (
	"net/http"
	"strings"

	"github.com/Mecho90/BuildingManagement-sub000/internal/dtos"
	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/services"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type BuildingsController struct {
	buildings *services.BuildingService
	units     *services.UnitService
}

func NewBuildingsController(b *services.BuildingService, u *services.UnitService) *BuildingsController {
	return &BuildingsController{buildings: b, units: u}
}

func buildingInput(req dtos.BuildingRequest) services.BuildingInput {
	return services.BuildingInput{
		Name:        req.Name,
		Address:     req.Address,
		Description: req.Description,
		OwnerID:     req.OwnerID,
		Role:        models.BuildingRole(req.Role),
	}
}

// ----------------------------------------------------------------
// GET /api/v1/buildings?search=&role=&order=&limit=&offset=
// ----------------------------------------------------------------
func (c *BuildingsController) ListBuildingsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, err := c.buildings.List(r.Context(), user, services.ListBuildingsInput{
		Search: q.Get("search"),
		Role:   models.BuildingRole(strings.ToUpper(q.Get("role"))),
		Order:  repositories.BuildingOrder(q.Get("order")),
		Limit:  queryInt(r, "limit"),
		Offset: queryInt(r, "offset"),
	})
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}

// POST /api/v1/buildings
func (c *BuildingsController) CreateBuildingHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dtos.BuildingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := c.buildings.Create(r.Context(), user, buildingInput(req))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, b)
}

// GET /api/v1/buildings/{id}
func (c *BuildingsController) GetBuildingHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	b, err := c.buildings.Get(r.Context(), user, id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, b)
}

// PUT /api/v1/buildings/{id}
func (c *BuildingsController) UpdateBuildingHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.BuildingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	b, err := c.buildings.Update(r.Context(), user, id, buildingInput(req))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, b)
}

// DELETE /api/v1/buildings/{id}
func (c *BuildingsController) DeleteBuildingHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := c.buildings.Delete(r.Context(), user, id); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/* ---------- units ---------- */

// GET /api/v1/buildings/{id}/units
func (c *BuildingsController) ListUnitsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	list, total, err := c.units.List(r.Context(), user, id, r.URL.Query().Get("search"), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dtos.ListResponse[*models.Unit]{Results: list, Total: total})
}

func unitInput(req dtos.UnitRequest) services.UnitInput {
	return services.UnitInput{
		Number:       req.Number,
		Floor:        req.Floor,
		IsOccupied:   req.IsOccupied,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		Description:  req.Description,
	}
}

// POST /api/v1/buildings/{id}/units
func (c *BuildingsController) CreateUnitHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.UnitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	u, err := c.units.Create(r.Context(), user, id, unitInput(req))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, u)
}

// PUT /api/v1/units/{id}
func (c *BuildingsController) UpdateUnitHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req dtos.UnitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	u, err := c.units.Update(r.Context(), user, id, unitInput(req))
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, u)
}

// DELETE /api/v1/units/{id}
func (c *BuildingsController) DeleteUnitHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := c.units.Delete(r.Context(), user, id); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
