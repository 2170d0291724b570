package memory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type unitRepo struct{ s *Store }

// numberTaken mirrors the (building_id, lower(number)) unique index.
func (r *unitRepo) numberTaken(buildingID uuid.UUID, number string, excludeID *uuid.UUID) bool {
	key := models.NormalizeUnitNumber(number)
	for _, u := range r.s.sh.st.units {
		if excludeID != nil && u.ID == *excludeID {
			continue
		}
		if u.BuildingID == buildingID && models.NormalizeUnitNumber(u.Number) == key {
			return true
		}
	}
	return false
}

func (r *unitRepo) Create(_ context.Context, u *models.Unit) error {
	r.s.lock()
	defer r.s.unlock()
	st := r.s.sh.st

	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if _, ok := st.buildings[u.BuildingID]; !ok {
		return fmt.Errorf("%w: building %s does not exist", utils.ErrIntegrity, u.BuildingID)
	}
	if u.Floor < models.MinUnitFloor {
		return fmt.Errorf("%w: floor below %d", utils.ErrIntegrity, models.MinUnitFloor)
	}
	if r.numberTaken(u.BuildingID, u.Number, nil) {
		return fmt.Errorf("%w: %q in building %s", utils.ErrDuplicateUnitNumber, u.Number, u.BuildingID)
	}
	now := r.s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	st.units[u.ID] = *u
	return nil
}

func (r *unitRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Unit, error) {
	r.s.lock()
	defer r.s.unlock()
	u, ok := r.s.sh.st.units[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *unitRepo) filter(q repositories.UnitQuery) []*models.Unit {
	out := []*models.Unit{}
	for _, u := range r.s.sh.st.units {
		u := u
		if q.Matches(&u) {
			out = append(out, &u)
		}
	}
	return out
}

func (r *unitRepo) List(_ context.Context, q repositories.UnitQuery) ([]*models.Unit, error) {
	r.s.lock()
	defer r.s.unlock()
	out := r.filter(q)
	q.Sort(out)
	limit, offset := q.Window()
	return page(out, limit, offset), nil
}

func (r *unitRepo) Count(_ context.Context, q repositories.UnitQuery) (int, error) {
	r.s.lock()
	defer r.s.unlock()
	return len(r.filter(q)), nil
}

func (r *unitRepo) NumberTaken(_ context.Context, buildingID uuid.UUID, number string, excludeID *uuid.UUID) (bool, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.numberTaken(buildingID, number, excludeID), nil
}

func (r *unitRepo) Update(_ context.Context, u *models.Unit) error {
	r.s.lock()
	defer r.s.unlock()
	st := r.s.sh.st
	cur, ok := st.units[u.ID]
	if !ok {
		return utils.ErrNotFound
	}
	if u.Floor < models.MinUnitFloor {
		return fmt.Errorf("%w: floor below %d", utils.ErrIntegrity, models.MinUnitFloor)
	}
	// building_id is not updatable, matching the SQL UPDATE.
	u.BuildingID = cur.BuildingID
	if r.numberTaken(u.BuildingID, u.Number, &u.ID) {
		return fmt.Errorf("%w: %q in building %s", utils.ErrDuplicateUnitNumber, u.Number, u.BuildingID)
	}
	u.CreatedAt = cur.CreatedAt
	u.UpdatedAt = r.s.now()
	st.units[u.ID] = *u
	return nil
}

func (r *unitRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.lock()
	defer r.s.unlock()
	st := r.s.sh.st
	delete(st.units, id)
	for wid, wo := range st.workOrders {
		if wo.UnitID != nil && *wo.UnitID == id {
			wo.UnitID = nil
			st.workOrders[wid] = wo
		}
	}
	return nil
}
