package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
)

type buildingRepo struct {
	db DB
}

func NewBuildingRepository(db DB) BuildingRepository {
	return &buildingRepo{db: db}
}

/* ---------- create ---------- */

func (r *buildingRepo) Create(ctx context.Context, b *models.Building) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO buildings (id, name, address, description, owner_id, role, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
		RETURNING created_at, updated_at
	`, b.ID, b.Name, b.Address, b.Description, b.OwnerID, b.Role)
	return mapPgError(row.Scan(&b.CreatedAt, &b.UpdatedAt))
}

/* ---------- reads ---------- */

func (r *buildingRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Building, error) {
	row := r.db.QueryRow(ctx, baseSelectBuilding()+" WHERE id=$1", id)
	return scanBuilding(row)
}

func (r *buildingRepo) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Building, error) {
	if len(ids) == 0 {
		return []*models.Building{}, nil
	}
	rows, err := r.db.Query(ctx, baseSelectBuilding()+" WHERE id = ANY($1) ORDER BY id FOR UPDATE", ids)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	return scanBuildings(rows)
}

func (r *buildingRepo) List(ctx context.Context, q BuildingQuery) ([]*models.Building, error) {
	if q.scope.IsNone() {
		return []*models.Building{}, nil
	}
	w := q.where()
	sql := w.build(baseSelectBuilding(), q.orderSQL(), q.limit, q.offset)
	rows, err := r.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	return scanBuildings(rows)
}

func (r *buildingRepo) Count(ctx context.Context, q BuildingQuery) (int, error) {
	if q.scope.IsNone() {
		return 0, nil
	}
	w := q.where()
	var n int
	err := r.db.QueryRow(ctx, w.build("SELECT COUNT(*) FROM buildings", "", 0, 0), w.args...).Scan(&n)
	return n, mapPgError(err)
}

func (r *buildingRepo) Stats(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.BuildingStats, error) {
	out := make(map[uuid.UUID]models.BuildingStats, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT building_id, COUNT(*), COUNT(*) FILTER (WHERE is_occupied)
		FROM units
		WHERE building_id = ANY($1)
		GROUP BY building_id
	`, ids)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	for rows.Next() {
		var s models.BuildingStats
		if err := rows.Scan(&s.BuildingID, &s.TotalUnits, &s.OccupiedUnits); err != nil {
			return nil, err
		}
		out[s.BuildingID] = s
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			out[id] = models.BuildingStats{BuildingID: id}
		}
	}
	return out, rows.Err()
}

/* ---------- update / delete ---------- */

func (r *buildingRepo) Update(ctx context.Context, b *models.Building) error {
	row := r.db.QueryRow(ctx, `
		UPDATE buildings
		SET name=$1, address=$2, description=$3, owner_id=$4, role=$5, updated_at=NOW()
		WHERE id=$6
		RETURNING updated_at
	`, b.Name, b.Address, b.Description, b.OwnerID, b.Role, b.ID)
	return mapNoRows(row.Scan(&b.UpdatedAt))
}

// Delete cascades to units and work orders through the foreign keys.
func (r *buildingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM buildings WHERE id=$1`, id)
	return mapPgError(err)
}

/* ---------- internals ---------- */

func baseSelectBuilding() string {
	return `
		SELECT id, name, address, description, owner_id, role, created_at, updated_at
		FROM buildings`
}

func scanBuilding(row pgx.Row) (*models.Building, error) {
	var b models.Building
	if err := row.Scan(
		&b.ID, &b.Name, &b.Address, &b.Description,
		&b.OwnerID, &b.Role, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func scanBuildings(rows pgx.Rows) ([]*models.Building, error) {
	out := []*models.Building{}
	for rows.Next() {
		b, err := scanBuilding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
