package repositories

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
)

type notificationRepo struct {
	db DB
}

func NewNotificationRepository(db DB) NotificationRepository {
	return &notificationRepo{db: db}
}

/* ---------- reads ---------- */

func (r *notificationRepo) GetByKey(ctx context.Context, userID uuid.UUID, key string) (*models.Notification, error) {
	row := r.db.QueryRow(ctx, baseSelectNotification()+" WHERE user_id=$1 AND key=$2", userID, key)
	return scanNotification(row)
}

func (r *notificationRepo) LockByKeys(ctx context.Context, userID uuid.UUID, keys []string) ([]*models.Notification, error) {
	if len(keys) == 0 {
		return []*models.Notification{}, nil
	}
	return r.list(ctx, baseSelectNotification()+
		" WHERE user_id=$1 AND key = ANY($2) ORDER BY key FOR UPDATE", userID, keys)
}

func (r *notificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, category string) ([]*models.Notification, error) {
	return r.list(ctx, baseSelectNotification()+
		" WHERE user_id=$1 AND ($2 = '' OR category = $2) ORDER BY created_at DESC, key", userID, category)
}

func (r *notificationRepo) list(ctx context.Context, sql string, args ...any) ([]*models.Notification, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	out := []*models.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

/* ---------- bulk writes ---------- */

const notificationInsertCols = 11

// InsertMany issues a single multi-row INSERT.
func (r *notificationRepo) InsertMany(ctx context.Context, list []*models.Notification) error {
	if len(list) == 0 {
		return nil
	}
	var (
		qb   strings.Builder
		args = make([]any, 0, len(list)*notificationInsertCols)
	)
	qb.WriteString(`
		INSERT INTO notifications (
			id, user_id, key, category, level, title, body,
			first_seen_at, acknowledged_at, snoozed_until, expires_at,
			created_at, updated_at
		) VALUES `)
	for i, n := range list {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		if i > 0 {
			qb.WriteString(",")
		}
		qb.WriteString("(")
		for c := 1; c <= notificationInsertCols; c++ {
			qb.WriteString("$")
			qb.WriteString(strconv.Itoa(i*notificationInsertCols + c))
			qb.WriteString(",")
		}
		qb.WriteString("NOW(),NOW())")
		args = append(args,
			n.ID, n.UserID, n.Key, n.Category, n.Level, n.Title, n.Body,
			n.FirstSeenAt, n.AcknowledgedAt, dateArg(n.SnoozedUntil), n.ExpiresAt,
		)
	}
	_, err := r.db.Exec(ctx, qb.String(), args...)
	return mapPgError(err)
}

const notificationUpdateCols = 7

// UpdateMany rewrites the mutable columns of every row in one statement.
func (r *notificationRepo) UpdateMany(ctx context.Context, list []*models.Notification) error {
	if len(list) == 0 {
		return nil
	}
	var (
		qb   strings.Builder
		args = make([]any, 0, len(list)*notificationUpdateCols)
	)
	qb.WriteString(`
		UPDATE notifications AS n
		SET category = v.category, level = v.level, title = v.title, body = v.body,
		    snoozed_until = v.snoozed_until, expires_at = v.expires_at, updated_at = NOW()
		FROM (VALUES `)
	casts := [notificationUpdateCols]string{"::uuid", "::text", "::text", "::text", "::text", "::date", "::timestamptz"}
	for i, n := range list {
		if i > 0 {
			qb.WriteString(",")
		}
		qb.WriteString("(")
		for c := 1; c <= notificationUpdateCols; c++ {
			if c > 1 {
				qb.WriteString(",")
			}
			qb.WriteString("$")
			qb.WriteString(strconv.Itoa(i*notificationUpdateCols + c))
			qb.WriteString(casts[c-1])
		}
		qb.WriteString(")")
		args = append(args, n.ID, n.Category, string(n.Level), n.Title, n.Body, dateArg(n.SnoozedUntil), n.ExpiresAt)
	}
	qb.WriteString(`) AS v(id, category, level, title, body, snoozed_until, expires_at)
		WHERE n.id = v.id`)
	_, err := r.db.Exec(ctx, qb.String(), args...)
	return mapPgError(err)
}

/* ---------- deletes / state changes ---------- */

func (r *notificationRepo) DeleteStale(ctx context.Context, userID uuid.UUID, category string, keep []string) (int64, error) {
	if keep == nil {
		keep = []string{}
	}
	tag, err := r.db.Exec(ctx, `
		DELETE FROM notifications
		WHERE user_id=$1 AND category=$2 AND NOT (key = ANY($3))
	`, userID, category, keep)
	if err != nil {
		return 0, mapPgError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *notificationRepo) DeleteByKey(ctx context.Context, key string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE key=$1`, key)
	if err != nil {
		return 0, mapPgError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *notificationRepo) Acknowledge(ctx context.Context, userID uuid.UUID, keys []string, at time.Time) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET acknowledged_at=$3, updated_at=NOW()
		WHERE user_id=$1 AND key = ANY($2) AND acknowledged_at IS NULL
	`, userID, keys, at)
	if err != nil {
		return 0, mapPgError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *notificationRepo) MarkSeen(ctx context.Context, userID uuid.UUID, keys []string, at time.Time) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET first_seen_at=$3, updated_at=NOW()
		WHERE user_id=$1 AND key = ANY($2) AND first_seen_at IS NULL
	`, userID, keys, at)
	if err != nil {
		return 0, mapPgError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *notificationRepo) SetSnooze(ctx context.Context, id uuid.UUID, until *time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET snoozed_until=$2::date, updated_at=NOW() WHERE id=$1
	`, id, dateArg(until))
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return mapNoRows(pgx.ErrNoRows)
	}
	return nil
}

func (r *notificationRepo) PruneAcknowledged(ctx context.Context, userID uuid.UUID, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM notifications
		WHERE user_id=$1 AND acknowledged_at IS NOT NULL AND acknowledged_at < $2
	`, userID, before)
	if err != nil {
		return 0, mapPgError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *notificationRepo) ClearElapsedSnoozes(ctx context.Context, today time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE notifications SET snoozed_until=NULL, updated_at=NOW()
		WHERE snoozed_until IS NOT NULL AND snoozed_until <= $1::date
	`, today.Format("2006-01-02"))
	if err != nil {
		return 0, mapPgError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *notificationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM notifications WHERE expires_at IS NOT NULL AND expires_at <= $1
	`, now)
	if err != nil {
		return 0, mapPgError(err)
	}
	return tag.RowsAffected(), nil
}

/* ---------- internals ---------- */

func baseSelectNotification() string {
	return `
		SELECT id, user_id, key, category, level, title, body,
		       first_seen_at, acknowledged_at, snoozed_until, expires_at,
		       created_at, updated_at
		FROM notifications`
}

func scanNotification(row pgx.Row) (*models.Notification, error) {
	var n models.Notification
	if err := row.Scan(
		&n.ID, &n.UserID, &n.Key, &n.Category, &n.Level, &n.Title, &n.Body,
		&n.FirstSeenAt, &n.AcknowledgedAt, &n.SnoozedUntil, &n.ExpiresAt,
		&n.CreatedAt, &n.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}

// dateArg renders a date column argument; nil stays NULL.
func dateArg(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format("2006-01-02")
	return &s
}
