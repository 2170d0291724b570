package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type buildingRepo struct{ s *Store }

func (r *buildingRepo) Create(_ context.Context, b *models.Building) error {
	r.s.lock()
	defer r.s.unlock()

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	st := r.s.sh.st
	if _, exists := st.buildings[b.ID]; exists {
		return fmt.Errorf("%w: building %s exists", utils.ErrIntegrity, b.ID)
	}
	if b.OwnerID != nil {
		if _, ok := st.users[*b.OwnerID]; !ok {
			return fmt.Errorf("%w: owner %s does not exist", utils.ErrIntegrity, *b.OwnerID)
		}
	}
	now := r.s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	st.buildings[b.ID] = *b
	return nil
}

func (r *buildingRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Building, error) {
	r.s.lock()
	defer r.s.unlock()
	b, ok := r.s.sh.st.buildings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (r *buildingRepo) LockByIDs(_ context.Context, ids []uuid.UUID) ([]*models.Building, error) {
	r.s.lock()
	defer r.s.unlock()
	out := []*models.Building{}
	for id, b := range r.s.sh.st.buildings {
		if slices.Contains(ids, id) {
			b := b
			out = append(out, &b)
		}
	}
	slices.SortFunc(out, func(a, b *models.Building) int { return compareIDs(a.ID, b.ID) })
	return out, nil
}

func (r *buildingRepo) filter(q repositories.BuildingQuery) []*models.Building {
	out := []*models.Building{}
	for _, b := range r.s.sh.st.buildings {
		b := b
		if q.Matches(&b) {
			out = append(out, &b)
		}
	}
	return out
}

func (r *buildingRepo) List(_ context.Context, q repositories.BuildingQuery) ([]*models.Building, error) {
	r.s.lock()
	defer r.s.unlock()
	out := r.filter(q)
	q.Sort(out)
	limit, offset := q.Window()
	return page(out, limit, offset), nil
}

func (r *buildingRepo) Count(_ context.Context, q repositories.BuildingQuery) (int, error) {
	r.s.lock()
	defer r.s.unlock()
	return len(r.filter(q)), nil
}

func (r *buildingRepo) Stats(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]models.BuildingStats, error) {
	r.s.lock()
	defer r.s.unlock()
	out := make(map[uuid.UUID]models.BuildingStats, len(ids))
	for _, id := range ids {
		out[id] = models.BuildingStats{BuildingID: id}
	}
	for _, u := range r.s.sh.st.units {
		s, ok := out[u.BuildingID]
		if !ok {
			continue
		}
		s.TotalUnits++
		if u.IsOccupied {
			s.OccupiedUnits++
		}
		out[u.BuildingID] = s
	}
	return out, nil
}

func (r *buildingRepo) Update(_ context.Context, b *models.Building) error {
	r.s.lock()
	defer r.s.unlock()
	st := r.s.sh.st
	cur, ok := st.buildings[b.ID]
	if !ok {
		return utils.ErrNotFound
	}
	b.CreatedAt = cur.CreatedAt
	b.UpdatedAt = r.s.now()
	st.buildings[b.ID] = *b
	return nil
}

func (r *buildingRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.lock()
	defer r.s.unlock()
	st := r.s.sh.st
	delete(st.buildings, id)
	for uid, u := range st.units {
		if u.BuildingID == id {
			delete(st.units, uid)
		}
	}
	for wid, wo := range st.workOrders {
		if wo.BuildingID == id {
			delete(st.workOrders, wid)
		}
	}
	for mid, m := range st.memberships {
		if m.BuildingID != nil && *m.BuildingID == id {
			delete(st.memberships, mid)
		}
	}
	return nil
}
