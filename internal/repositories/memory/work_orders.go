package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type workOrderRepo struct{ s *Store }

func (r *workOrderRepo) prepare(wo *models.WorkOrder) error {
	var unit *models.Unit
	if wo.UnitID != nil {
		if u, ok := r.s.sh.st.units[*wo.UnitID]; ok {
			unit = &u
		}
	}
	if err := wo.PrepareForSave(unit); err != nil {
		return err
	}
	if _, ok := r.s.sh.st.buildings[wo.BuildingID]; !ok {
		return fmt.Errorf("%w: building %s does not exist", utils.ErrIntegrity, wo.BuildingID)
	}
	return nil
}

func (r *workOrderRepo) Create(_ context.Context, wo *models.WorkOrder) error {
	r.s.lock()
	defer r.s.unlock()

	if err := r.prepare(wo); err != nil {
		return err
	}
	if wo.ID == uuid.Nil {
		wo.ID = uuid.New()
	}
	if _, exists := r.s.sh.st.workOrders[wo.ID]; exists {
		return fmt.Errorf("%w: work order %s exists", utils.ErrIntegrity, wo.ID)
	}
	now := r.s.now()
	wo.CreatedAt, wo.UpdatedAt = now, now
	wo.RowVersion = 1
	r.s.sh.st.workOrders[wo.ID] = *wo
	return nil
}

func (r *workOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*models.WorkOrder, error) {
	r.s.lock()
	defer r.s.unlock()
	wo, ok := r.s.sh.st.workOrders[id]
	if !ok {
		return nil, nil
	}
	return &wo, nil
}

// GetForUpdate is GetByID; transactions already hold the store lock.
func (r *workOrderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error) {
	return r.GetByID(ctx, id)
}

func (r *workOrderRepo) filter(q repositories.WorkOrderQuery) []*models.WorkOrder {
	st := r.s.sh.st
	out := []*models.WorkOrder{}
	for _, wo := range st.workOrders {
		wo := wo
		var building *models.Building
		if b, ok := st.buildings[wo.BuildingID]; ok {
			building = &b
		}
		if q.Matches(&wo, building) {
			out = append(out, &wo)
		}
	}
	return out
}

func (r *workOrderRepo) List(_ context.Context, q repositories.WorkOrderQuery) ([]*models.WorkOrder, error) {
	r.s.lock()
	defer r.s.unlock()
	st := r.s.sh.st
	out := r.filter(q)
	q.Sort(out, func(id uuid.UUID) string { return st.buildings[id].Name })
	limit, offset := q.Window()
	return page(out, limit, offset), nil
}

func (r *workOrderRepo) Count(_ context.Context, q repositories.WorkOrderQuery) (int, error) {
	r.s.lock()
	defer r.s.unlock()
	return len(r.filter(q)), nil
}

func (r *workOrderRepo) Update(_ context.Context, wo *models.WorkOrder) error {
	r.s.lock()
	defer r.s.unlock()
	_, err := r.update(wo, false, 0)
	return err
}

func (r *workOrderRepo) UpdateIfVersion(_ context.Context, wo *models.WorkOrder, expected int64) (pgconn.CommandTag, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.update(wo, true, expected)
}

func (r *workOrderRepo) update(wo *models.WorkOrder, check bool, expected int64) (pgconn.CommandTag, error) {
	st := r.s.sh.st
	cur, ok := st.workOrders[wo.ID]
	if !ok {
		if check {
			return pgconn.CommandTag("UPDATE 0"), nil
		}
		return nil, fmt.Errorf("work order %s: %w", wo.ID, utils.ErrNotFound)
	}
	if err := r.prepare(wo); err != nil {
		return nil, err
	}
	if check && cur.RowVersion != expected {
		return pgconn.CommandTag("UPDATE 0"), nil
	}
	wo.CreatedAt = cur.CreatedAt
	wo.UpdatedAt = r.s.now()
	wo.RowVersion = cur.RowVersion + 1
	st.workOrders[wo.ID] = *wo
	if check {
		// WithRetry bumps the caller's copy itself.
		wo.RowVersion = expected
	}
	return pgconn.CommandTag("UPDATE 1"), nil
}

func (r *workOrderRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.WorkOrder) error) error {
	return repositories.WithRetry(ctx, 3, id, r.GetByID, r.UpdateIfVersion, mutate)
}

func (r *workOrderRepo) SetArchivedAt(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.s.lock()
	defer r.s.unlock()
	st := r.s.sh.st
	wo, ok := st.workOrders[id]
	if !ok || wo.Status != models.WorkOrderStatusDone || wo.ArchivedAt != nil {
		return false, nil
	}
	at = at.UTC()
	wo.ArchivedAt = &at
	wo.RowVersion++
	wo.UpdatedAt = r.s.now()
	st.workOrders[id] = wo
	return true, nil
}

func (r *workOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.lock()
	defer r.s.unlock()
	delete(r.s.sh.st.workOrders, id)
	return nil
}
