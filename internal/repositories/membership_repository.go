package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/sirupsen/logrus"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type membershipRepo struct {
	db DB
}

func NewMembershipRepository(db DB) MembershipRepository {
	return &membershipRepo{db: db}
}

/* ---------- create ---------- */

func (r *membershipRepo) Create(ctx context.Context, m *models.BuildingMembership) error {
	m.Normalize()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	override, err := json.Marshal(m.CapabilitiesOverride)
	if err != nil {
		return err
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO building_memberships (
			id, user_id, building_id, role, technician_subrole, capabilities_override,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
		RETURNING created_at, updated_at
	`, m.ID, m.UserID, m.BuildingID, m.Role, m.TechnicianSubrole, override)
	return mapPgError(row.Scan(&m.CreatedAt, &m.UpdatedAt))
}

/* ---------- reads ---------- */

func (r *membershipRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.BuildingMembership, error) {
	row := r.db.QueryRow(ctx, baseSelectMembership()+" WHERE id=$1", id)
	return scanMembership(row)
}

func (r *membershipRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.BuildingMembership, error) {
	return r.list(ctx, baseSelectMembership()+" WHERE user_id=$1 ORDER BY created_at, id", userID)
}

func (r *membershipRepo) ListForBuilding(ctx context.Context, buildingID uuid.UUID) ([]*models.BuildingMembership, error) {
	return r.list(ctx, baseSelectMembership()+
		" WHERE building_id=$1 OR building_id IS NULL ORDER BY created_at, id", buildingID)
}

func (r *membershipRepo) list(ctx context.Context, sql string, args ...any) ([]*models.BuildingMembership, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := []*models.BuildingMembership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

/* ---------- update / delete ---------- */

func (r *membershipRepo) Update(ctx context.Context, m *models.BuildingMembership) error {
	m.Normalize()
	override, err := json.Marshal(m.CapabilitiesOverride)
	if err != nil {
		return err
	}
	row := r.db.QueryRow(ctx, `
		UPDATE building_memberships
		SET role=$1, technician_subrole=$2, capabilities_override=$3, updated_at=NOW()
		WHERE id=$4
		RETURNING updated_at
	`, m.Role, m.TechnicianSubrole, override, m.ID)
	return mapNoRows(row.Scan(&m.UpdatedAt))
}

func (r *membershipRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `DELETE FROM building_memberships WHERE id=$1`, id)
	return mapPgError(err)
}

/* ---------- internals ---------- */

func baseSelectMembership() string {
	return `
		SELECT id, user_id, building_id, role, technician_subrole, capabilities_override,
		       created_at, updated_at
		FROM building_memberships`
}

func scanMembership(row pgx.Row) (*models.BuildingMembership, error) {
	var (
		m   models.BuildingMembership
		raw []byte
	)
	if err := row.Scan(
		&m.ID, &m.UserID, &m.BuildingID, &m.Role, &m.TechnicianSubrole, &raw,
		&m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	override, err := models.ParseCapabilityOverride(raw)
	if err != nil {
		utils.Logger.WithError(err).WithFields(logrus.Fields{
			"membership_id": m.ID,
			"user_id":       m.UserID,
		}).Warn("Malformed capabilities_override; treating as empty")
	}
	m.CapabilitiesOverride = override
	return &m, nil
}
