package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
)

// The users table belongs to the account system. Create exists for seeding
// and tests.
type userRepo struct {
	db DB
}

func NewUserRepository(db DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, username, full_name, email, is_staff, is_superuser, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, u.ID, u.Username, u.FullName, u.Email, u.IsStaff, u.IsSuperuser, u.IsActive)
	return mapPgError(err)
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRow(ctx, baseSelectUser()+" WHERE id=$1", id)
	return scanUser(row)
}

func (r *userRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}
	return r.list(ctx, baseSelectUser()+" WHERE id = ANY($1) ORDER BY username", ids)
}

func (r *userRepo) ListActive(ctx context.Context) ([]*models.User, error) {
	return r.list(ctx, baseSelectUser()+" WHERE is_active ORDER BY username")
}

func (r *userRepo) list(ctx context.Context, sql string, args ...any) ([]*models.User, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func baseSelectUser() string {
	return `SELECT id, username, full_name, email, is_staff, is_superuser, is_active FROM users`
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &u.IsStaff, &u.IsSuperuser, &u.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
