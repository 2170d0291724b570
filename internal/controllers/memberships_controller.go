package controllers

import (
	"net/http"

	"github.com/Mecho90/BuildingManagement-sub000/internal/dtos"
	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/services"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type MembershipsController struct {
	memberships *services.MembershipService
	audit       *services.AuditService
}

func NewMembershipsController(m *services.MembershipService, audit *services.AuditService) *MembershipsController {
	return &MembershipsController{memberships: m, audit: audit}
}

// GET /api/v1/me/capabilities
func (c *MembershipsController) MyCapabilitiesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	caps, err := c.memberships.Capabilities(r.Context(), user)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, caps)
}

func toCapabilities(in []string) []models.Capability {
	out := make([]models.Capability, 0, len(in))
	for _, s := range in {
		out = append(out, models.Capability(s))
	}
	return out
}

// POST /api/v1/memberships
func (c *MembershipsController) GrantHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req dtos.GrantMembershipRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in := services.GrantMembershipInput{
		UserID:     req.UserID,
		BuildingID: req.BuildingID,
		Role:       models.MembershipRole(req.Role),
		CapabilitiesOverride: models.CapabilityOverride{
			Add:    toCapabilities(req.Add),
			Remove: toCapabilities(req.Remove),
		},
	}
	if req.TechnicianSubrole != nil {
		in.TechnicianSubrole = utils.Ptr(models.BuildingRole(*req.TechnicianSubrole))
	}
	m, err := c.memberships.Grant(r.Context(), user, in)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, m)
}

// DELETE /api/v1/memberships/{id}
func (c *MembershipsController) RevokeHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := c.memberships.Revoke(r.Context(), user, id); err != nil {
		utils.HandleAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/v1/users/{id}/memberships
func (c *MembershipsController) ListForUserHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rows, err := c.memberships.ListForUser(r.Context(), user, id)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rows)
}

// GET /api/v1/audit/roles?building=
func (c *MembershipsController) RoleAuditHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	buildingID, err := queryUUID(r, "building")
	if err != nil {
		utils.RespondErrorWithCode(w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Invalid building", nil, err)
		return
	}
	logs, err := c.audit.ListRoleAudit(r.Context(), user, buildingID)
	if err != nil {
		utils.HandleAppError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, logs)
}
