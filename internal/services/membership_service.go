package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Mecho90/BuildingManagement-sub000/internal/authz"
	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type GrantMembershipInput struct {
	UserID               uuid.UUID
	BuildingID           *uuid.UUID
	Role                 models.MembershipRole
	TechnicianSubrole    *models.BuildingRole
	CapabilitiesOverride models.CapabilityOverride
}

type UpdateMembershipInput struct {
	Role                 *models.MembershipRole
	TechnicianSubrole    *models.BuildingRole
	CapabilitiesOverride *models.CapabilityOverride
}

// MembershipService grants and revokes roles. Every change writes a role
// audit row in the same transaction.
type MembershipService struct {
	store repositories.Store
	audit *AuditService
}

func NewMembershipService(store repositories.Store, audit *AuditService) *MembershipService {
	return &MembershipService{store: store, audit: audit}
}

func (s *MembershipService) requireManage(ctx context.Context, actor *models.User, buildingID *uuid.UUID) error {
	return newAccess(s.store, actor).require(ctx, models.CapManageMemberships, buildingID)
}

func validateMembership(m *models.BuildingMembership) error {
	if !m.Role.Valid() {
		return utils.NewValidationError("role", "unknown role")
	}
	if m.TechnicianSubrole != nil && !m.TechnicianSubrole.Valid() {
		return utils.NewValidationError("technician_subrole", "unknown sub-role")
	}
	for _, c := range append(append([]models.Capability{}, m.CapabilitiesOverride.Add...), m.CapabilitiesOverride.Remove...) {
		if !c.Valid() {
			return utils.NewValidationError("capabilities_override", fmt.Sprintf("unknown capability %q", c))
		}
	}
	return nil
}

func (s *MembershipService) Grant(ctx context.Context, actor *models.User, in GrantMembershipInput) (*models.BuildingMembership, error) {
	if err := s.requireManage(ctx, actor, in.BuildingID); err != nil {
		return nil, err
	}
	m := &models.BuildingMembership{
		UserID:               in.UserID,
		BuildingID:           in.BuildingID,
		Role:                 in.Role,
		TechnicianSubrole:    in.TechnicianSubrole,
		CapabilitiesOverride: in.CapabilitiesOverride,
	}
	m.Normalize()
	if err := validateMembership(m); err != nil {
		return nil, err
	}
	target, err := s.store.Users().GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, utils.NewValidationError("user", "user does not exist")
	}

	err = s.store.WithTx(ctx, func(tx repositories.Store) error {
		if err := tx.Memberships().Create(ctx, m); err != nil {
			return err
		}
		return s.audit.LogRoleAction(ctx, tx, actor, m, models.RoleAuditAdded, membershipPayload(m))
	})
	if err != nil {
		return nil, err
	}
	utils.Logger.WithFields(logrus.Fields{
		"actor_id":    actor.ID,
		"user_id":     m.UserID,
		"building_id": m.BuildingID,
		"role":        m.Role,
	}).Info("membership granted")
	return m, nil
}

func (s *MembershipService) load(ctx context.Context, actor *models.User, id uuid.UUID) (*models.BuildingMembership, error) {
	m, err := s.store.Memberships().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("membership %s: %w", id, utils.ErrNotFound)
	}
	if err := s.requireManage(ctx, actor, m.BuildingID); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MembershipService) Update(ctx context.Context, actor *models.User, id uuid.UUID, in UpdateMembershipInput) (*models.BuildingMembership, error) {
	m, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	before := membershipPayload(m)
	if in.Role != nil {
		m.Role = *in.Role
	}
	if in.TechnicianSubrole != nil {
		m.TechnicianSubrole = in.TechnicianSubrole
	}
	if in.CapabilitiesOverride != nil {
		m.CapabilitiesOverride = *in.CapabilitiesOverride
	}
	m.Normalize()
	if err := validateMembership(m); err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx repositories.Store) error {
		if err := tx.Memberships().Update(ctx, m); err != nil {
			return err
		}
		return s.audit.LogRoleAction(ctx, tx, actor, m, models.RoleAuditUpdated, map[string]any{
			"before": before,
			"after":  membershipPayload(m),
		})
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MembershipService) Revoke(ctx context.Context, actor *models.User, id uuid.UUID) error {
	m, err := s.load(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(tx repositories.Store) error {
		if err := tx.Memberships().Delete(ctx, m.ID); err != nil {
			return err
		}
		return s.audit.LogRoleAction(ctx, tx, actor, m, models.RoleAuditRemoved, membershipPayload(m))
	})
}

// ListForUser returns the user's memberships. Users may always list their
// own; anyone else needs view_users.
func (s *MembershipService) ListForUser(ctx context.Context, actor *models.User, userID uuid.UUID) ([]*models.BuildingMembership, error) {
	if !actor.IsAuthenticated() {
		return nil, utils.ErrUnauthenticated
	}
	if actor.ID != userID {
		if err := newAccess(s.store, actor).require(ctx, models.CapViewUsers, nil); err != nil {
			return nil, err
		}
	}
	return s.store.Memberships().ListByUser(ctx, userID)
}

// EffectiveCapabilities describes what the actor may do, globally and per
// building they are a member of.
type EffectiveCapabilities struct {
	Privileged  bool                              `json:"privileged"`
	Global      []models.Capability               `json:"global"`
	PerBuilding map[uuid.UUID][]models.Capability `json:"per_building"`
}

func (s *MembershipService) Capabilities(ctx context.Context, actor *models.User) (*EffectiveCapabilities, error) {
	if !actor.IsAuthenticated() {
		return nil, utils.ErrUnauthenticated
	}
	r := authz.NewResolver(actor, s.store.Memberships())
	global, err := r.GlobalCapabilities(ctx)
	if err != nil {
		return nil, err
	}
	out := &EffectiveCapabilities{
		Privileged:  authz.IsPrivileged(actor),
		Global:      global.Sorted(),
		PerBuilding: map[uuid.UUID][]models.Capability{},
	}
	rows, err := r.Memberships(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range rows {
		if m.BuildingID == nil {
			continue
		}
		if _, done := out.PerBuilding[*m.BuildingID]; done {
			continue
		}
		caps, err := r.CapabilitiesFor(ctx, m.BuildingID)
		if err != nil {
			return nil, err
		}
		out.PerBuilding[*m.BuildingID] = caps.Sorted()
	}
	return out, nil
}

func membershipPayload(m *models.BuildingMembership) map[string]any {
	p := map[string]any{
		"role":                  m.Role,
		"capabilities_override": m.CapabilitiesOverride,
	}
	if m.BuildingID != nil {
		p["building_id"] = *m.BuildingID
	}
	if m.TechnicianSubrole != nil {
		p["technician_subrole"] = *m.TechnicianSubrole
	}
	return p
}
