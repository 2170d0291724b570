package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type membershipRepo struct{ s *Store }

func sameBuilding(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// duplicate mirrors the COALESCE(building_id) unique index.
func (r *membershipRepo) duplicate(m *models.BuildingMembership) bool {
	for _, cur := range r.s.sh.st.memberships {
		if cur.ID != m.ID && cur.UserID == m.UserID && cur.Role == m.Role && sameBuilding(cur.BuildingID, m.BuildingID) {
			return true
		}
	}
	return false
}

func (r *membershipRepo) Create(_ context.Context, m *models.BuildingMembership) error {
	r.s.lock()
	defer r.s.unlock()
	st := r.s.sh.st

	m.Normalize()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if _, ok := st.users[m.UserID]; !ok {
		return fmt.Errorf("%w: user %s does not exist", utils.ErrIntegrity, m.UserID)
	}
	if m.BuildingID != nil {
		if _, ok := st.buildings[*m.BuildingID]; !ok {
			return fmt.Errorf("%w: building %s does not exist", utils.ErrIntegrity, *m.BuildingID)
		}
	}
	if r.duplicate(m) {
		return utils.ErrMembershipExists
	}
	now := r.s.now()
	m.CreatedAt, m.UpdatedAt = now, now
	st.memberships[m.ID] = *m
	return nil
}

func (r *membershipRepo) GetByID(_ context.Context, id uuid.UUID) (*models.BuildingMembership, error) {
	r.s.lock()
	defer r.s.unlock()
	m, ok := r.s.sh.st.memberships[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *membershipRepo) collect(keep func(*models.BuildingMembership) bool) []*models.BuildingMembership {
	out := []*models.BuildingMembership{}
	for _, m := range r.s.sh.st.memberships {
		m := m
		if keep(&m) {
			out = append(out, &m)
		}
	}
	slices.SortFunc(out, func(a, b *models.BuildingMembership) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	return out
}

func (r *membershipRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.BuildingMembership, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.collect(func(m *models.BuildingMembership) bool { return m.UserID == userID }), nil
}

func (r *membershipRepo) ListForBuilding(_ context.Context, buildingID uuid.UUID) ([]*models.BuildingMembership, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.collect(func(m *models.BuildingMembership) bool { return m.AppliesTo(buildingID) }), nil
}

func (r *membershipRepo) Update(_ context.Context, m *models.BuildingMembership) error {
	r.s.lock()
	defer r.s.unlock()
	st := r.s.sh.st
	cur, ok := st.memberships[m.ID]
	if !ok {
		return utils.ErrNotFound
	}
	m.Normalize()
	// user and building are fixed after creation.
	m.UserID, m.BuildingID = cur.UserID, cur.BuildingID
	if r.duplicate(m) {
		return utils.ErrMembershipExists
	}
	m.CreatedAt = cur.CreatedAt
	m.UpdatedAt = r.s.now()
	st.memberships[m.ID] = *m
	return nil
}

func (r *membershipRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.lock()
	defer r.s.unlock()
	delete(r.s.sh.st.memberships, id)
	return nil
}
