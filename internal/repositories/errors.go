package repositories

import (
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"

	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

// Unique index names from the schema; the mapping below depends on them.
const (
	constraintUnitNumber      = "units_building_number_ci_key"
	constraintMembership      = "building_memberships_user_building_role_key"
	constraintNotificationKey = "notifications_user_key_key"
)

// mapPgError converts Postgres failures into domain sentinels. Errors that
// are not *pgconn.PgError pass through untouched.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		switch pgErr.ConstraintName {
		case constraintUnitNumber:
			return fmt.Errorf("%w: %s", utils.ErrDuplicateUnitNumber, pgErr.Detail)
		case constraintMembership:
			return fmt.Errorf("%w: %s", utils.ErrMembershipExists, pgErr.Detail)
		}
		return fmt.Errorf("%w: unique constraint %s: %v", utils.ErrIntegrity, pgErr.ConstraintName, err)

	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("%w: foreign key %s: %v", utils.ErrIntegrity, pgErr.ConstraintName, err)

	case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
		return fmt.Errorf("%w: check %s: %v", utils.ErrIntegrity, pgErr.ConstraintName, err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("transaction conflict (retryable): %w", err)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s (detail: %s): %w",
			pgErr.Code, pgErr.Message, pgErr.Detail, err)
	}
}

// mapNoRows reports a missing row as utils.ErrNotFound.
func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return utils.ErrNotFound
	}
	return mapPgError(err)
}
