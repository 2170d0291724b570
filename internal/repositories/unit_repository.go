package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
)

type unitRepo struct {
	db DB
}

func NewUnitRepository(db DB) UnitRepository {
	return &unitRepo{db: db}
}

/* ---------- create ---------- */

func (r *unitRepo) Create(ctx context.Context, u *models.Unit) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO units (
			id, building_id, number, floor, is_occupied,
			contact_name, contact_phone, contact_email, description,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,NOW(),NOW())
		RETURNING created_at, updated_at
	`, u.ID, u.BuildingID, u.Number, u.Floor, u.IsOccupied,
		u.ContactName, u.ContactPhone, u.ContactEmail, u.Description)
	return mapPgError(row.Scan(&u.CreatedAt, &u.UpdatedAt))
}

/* ---------- reads ---------- */

func (r *unitRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Unit, error) {
	row := r.db.QueryRow(ctx, baseSelectUnit()+" WHERE id=$1", id)
	return scanUnit(row)
}

func (r *unitRepo) List(ctx context.Context, q UnitQuery) ([]*models.Unit, error) {
	if q.scope.IsNone() {
		return []*models.Unit{}, nil
	}
	w := q.where()
	rows, err := r.db.Query(ctx, w.build(baseSelectUnit(), q.orderSQL(), q.limit, q.offset), w.args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := []*models.Unit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *unitRepo) Count(ctx context.Context, q UnitQuery) (int, error) {
	if q.scope.IsNone() {
		return 0, nil
	}
	w := q.where()
	var n int
	err := r.db.QueryRow(ctx, w.build("SELECT COUNT(*) FROM units", "", 0, 0), w.args...).Scan(&n)
	return n, mapPgError(err)
}

func (r *unitRepo) NumberTaken(ctx context.Context, buildingID uuid.UUID, number string, excludeID *uuid.UUID) (bool, error) {
	var taken bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM units
			WHERE building_id=$1 AND lower(number)=lower($2)
			  AND ($3::uuid IS NULL OR id <> $3::uuid)
		)
	`, buildingID, number, excludeID).Scan(&taken)
	return taken, mapPgError(err)
}

/* ---------- update / delete ---------- */

func (r *unitRepo) Update(ctx context.Context, u *models.Unit) error {
	row := r.db.QueryRow(ctx, `
		UPDATE units
		SET number=$1, floor=$2, is_occupied=$3,
		    contact_name=$4, contact_phone=$5, contact_email=$6, description=$7,
		    updated_at=NOW()
		WHERE id=$8
		RETURNING updated_at
	`, u.Number, u.Floor, u.IsOccupied, u.ContactName, u.ContactPhone, u.ContactEmail, u.Description, u.ID)
	return mapNoRows(row.Scan(&u.UpdatedAt))
}

// Delete leaves work orders in place with unit_id cleared (ON DELETE SET NULL).
func (r *unitRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM units WHERE id=$1`, id)
	return mapPgError(err)
}

/* ---------- internals ---------- */

func baseSelectUnit() string {
	return `
		SELECT id, building_id, number, floor, is_occupied,
		       contact_name, contact_phone, contact_email, description,
		       created_at, updated_at
		FROM units`
}

func scanUnit(row pgx.Row) (*models.Unit, error) {
	var u models.Unit
	if err := row.Scan(
		&u.ID, &u.BuildingID, &u.Number, &u.Floor, &u.IsOccupied,
		&u.ContactName, &u.ContactPhone, &u.ContactEmail, &u.Description,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
