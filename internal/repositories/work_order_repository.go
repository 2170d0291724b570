package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type workOrderRepo struct {
	db    DB
	units UnitRepository
}

func NewWorkOrderRepository(db DB) WorkOrderRepository {
	return &workOrderRepo{db: db, units: NewUnitRepository(db)}
}

/* ---------- create ---------- */

func (r *workOrderRepo) Create(ctx context.Context, wo *models.WorkOrder) error {
	if err := r.prepare(ctx, wo); err != nil {
		return err
	}
	if wo.ID == uuid.Nil {
		wo.ID = uuid.New()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO work_orders (
			id, building_id, unit_id, title, description,
			status, priority, kind, deadline, mass_assigned,
			archived_at, lawyer_only, awaiting_approval_by,
			created_at, updated_at, row_version
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW(),NOW(),1)
		RETURNING created_at, updated_at, row_version
	`,
		wo.ID, wo.BuildingID, wo.UnitID, wo.Title, wo.Description,
		wo.Status, wo.Priority, wo.Kind, wo.Deadline, wo.MassAssigned,
		wo.ArchivedAt, wo.LawyerOnly, wo.AwaitingApprovalBy,
	)
	return mapPgError(row.Scan(&wo.CreatedAt, &wo.UpdatedAt, &wo.RowVersion))
}

/* ---------- reads ---------- */

func (r *workOrderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error) {
	row := r.db.QueryRow(ctx, baseSelectWorkOrder()+" WHERE wo.id=$1", id)
	return scanWorkOrder(row)
}

func (r *workOrderRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error) {
	row := r.db.QueryRow(ctx, baseSelectWorkOrder()+" WHERE wo.id=$1 FOR UPDATE OF wo", id)
	return scanWorkOrder(row)
}

func (r *workOrderRepo) List(ctx context.Context, q WorkOrderQuery) ([]*models.WorkOrder, error) {
	if q.scope.IsNone() {
		return []*models.WorkOrder{}, nil
	}
	w := q.where()
	rows, err := r.db.Query(ctx, w.build(baseSelectWorkOrder(), q.orderSQL(), q.limit, q.offset), w.args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := []*models.WorkOrder{}
	for rows.Next() {
		wo, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wo)
	}
	return out, rows.Err()
}

func (r *workOrderRepo) Count(ctx context.Context, q WorkOrderQuery) (int, error) {
	if q.scope.IsNone() {
		return 0, nil
	}
	w := q.where()
	base := "SELECT COUNT(*) FROM work_orders wo JOIN buildings b ON b.id = wo.building_id"
	var n int
	err := r.db.QueryRow(ctx, w.build(base, "", 0, 0), w.args...).Scan(&n)
	return n, mapPgError(err)
}

/* ---------- update ---------- */

func (r *workOrderRepo) Update(ctx context.Context, wo *models.WorkOrder) error {
	if err := r.prepare(ctx, wo); err != nil {
		return err
	}
	tag, err := r.update(ctx, wo, false, 0)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("work order %s: %w", wo.ID, utils.ErrNotFound)
	}
	wo.RowVersion++
	return nil
}

func (r *workOrderRepo) UpdateIfVersion(ctx context.Context, wo *models.WorkOrder, expected int64) (pgconn.CommandTag, error) {
	if err := r.prepare(ctx, wo); err != nil {
		return nil, err
	}
	return r.update(ctx, wo, true, expected)
}

func (r *workOrderRepo) UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.WorkOrder) error) error {
	return WithRetry(ctx, defaultMaxRetries, id, r.GetByID, r.UpdateIfVersion, mutate)
}

func (r *workOrderRepo) update(ctx context.Context, wo *models.WorkOrder, check bool, expected int64) (pgconn.CommandTag, error) {
	sql := `
		UPDATE work_orders
		SET building_id=$1, unit_id=$2, title=$3, description=$4,
		    status=$5, priority=$6, kind=$7, deadline=$8, mass_assigned=$9,
		    archived_at=$10, lawyer_only=$11, awaiting_approval_by=$12,
		    row_version=row_version+1, updated_at=NOW()
	`
	args := []any{
		wo.BuildingID, wo.UnitID, wo.Title, wo.Description,
		wo.Status, wo.Priority, wo.Kind, wo.Deadline, wo.MassAssigned,
		wo.ArchivedAt, wo.LawyerOnly, wo.AwaitingApprovalBy,
	}
	if check {
		sql += ` WHERE id=$13 AND row_version=$14`
		args = append(args, wo.ID, expected)
	} else {
		sql += ` WHERE id=$13`
		args = append(args, wo.ID)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	return tag, mapPgError(err)
}

func (r *workOrderRepo) SetArchivedAt(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE work_orders
		SET archived_at=$2, row_version=row_version+1, updated_at=NOW()
		WHERE id=$1 AND status='DONE' AND archived_at IS NULL
	`, id, at)
	if err != nil {
		return false, mapPgError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *workOrderRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM work_orders WHERE id=$1`, id)
	return mapPgError(err)
}

/* ---------- internals ---------- */

// prepare repairs the building reference from the unit and validates.
func (r *workOrderRepo) prepare(ctx context.Context, wo *models.WorkOrder) error {
	var unit *models.Unit
	if wo.UnitID != nil {
		var err error
		if unit, err = r.units.GetByID(ctx, *wo.UnitID); err != nil {
			return err
		}
	}
	return wo.PrepareForSave(unit)
}

func baseSelectWorkOrder() string {
	return `
		SELECT wo.id, wo.building_id, wo.unit_id, wo.title, wo.description,
		       wo.status, wo.priority, wo.kind, wo.deadline, wo.mass_assigned,
		       wo.archived_at, wo.lawyer_only, wo.awaiting_approval_by,
		       wo.created_at, wo.updated_at, wo.row_version
		FROM work_orders wo
		JOIN buildings b ON b.id = wo.building_id`
}

func scanWorkOrder(row pgx.Row) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	if err := row.Scan(
		&wo.ID, &wo.BuildingID, &wo.UnitID, &wo.Title, &wo.Description,
		&wo.Status, &wo.Priority, &wo.Kind, &wo.Deadline, &wo.MassAssigned,
		&wo.ArchivedAt, &wo.LawyerOnly, &wo.AwaitingApprovalBy,
		&wo.CreatedAt, &wo.UpdatedAt, &wo.RowVersion,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &wo, nil
}
