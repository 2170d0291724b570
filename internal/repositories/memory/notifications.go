package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type notificationRepo struct{ s *Store }

func (r *notificationRepo) find(userID uuid.UUID, key string) (models.Notification, bool) {
	for _, n := range r.s.sh.st.notifications {
		if n.UserID == userID && n.Key == key {
			return n, true
		}
	}
	return models.Notification{}, false
}

func (r *notificationRepo) GetByKey(_ context.Context, userID uuid.UUID, key string) (*models.Notification, error) {
	r.s.lock()
	defer r.s.unlock()
	n, ok := r.find(userID, key)
	if !ok {
		return nil, nil
	}
	return &n, nil
}

func (r *notificationRepo) collect(keep func(*models.Notification) bool) []*models.Notification {
	out := []*models.Notification{}
	for _, n := range r.s.sh.st.notifications {
		n := n
		if keep(&n) {
			out = append(out, &n)
		}
	}
	return out
}

func (r *notificationRepo) LockByKeys(_ context.Context, userID uuid.UUID, keys []string) ([]*models.Notification, error) {
	r.s.lock()
	defer r.s.unlock()
	out := r.collect(func(n *models.Notification) bool {
		return n.UserID == userID && slices.Contains(keys, n.Key)
	})
	slices.SortFunc(out, func(a, b *models.Notification) int { return strings.Compare(a.Key, b.Key) })
	return out, nil
}

func (r *notificationRepo) InsertMany(_ context.Context, list []*models.Notification) error {
	r.s.lock()
	defer r.s.unlock()
	st := r.s.sh.st

	// Check the whole batch first so a conflict inserts nothing.
	seen := map[string]bool{}
	for _, n := range list {
		k := n.UserID.String() + "/" + n.Key
		if _, dup := r.find(n.UserID, n.Key); dup || seen[k] {
			return fmt.Errorf("%w: notification %q exists for user %s", utils.ErrIntegrity, n.Key, n.UserID)
		}
		seen[k] = true
	}
	now := r.s.now()
	for _, n := range list {
		if n.ID == uuid.Nil {
			n.ID = uuid.New()
		}
		n.CreatedAt, n.UpdatedAt = now, now
		st.notifications[n.ID] = *n
	}
	return nil
}

func (r *notificationRepo) UpdateMany(_ context.Context, list []*models.Notification) error {
	r.s.lock()
	defer r.s.unlock()
	st := r.s.sh.st
	now := r.s.now()
	for _, n := range list {
		cur, ok := st.notifications[n.ID]
		if !ok {
			continue
		}
		cur.Category, cur.Level, cur.Title, cur.Body = n.Category, n.Level, n.Title, n.Body
		cur.SnoozedUntil, cur.ExpiresAt = n.SnoozedUntil, n.ExpiresAt
		cur.UpdatedAt = now
		st.notifications[n.ID] = cur
		n.UpdatedAt = now
	}
	return nil
}

func (r *notificationRepo) ListByUser(_ context.Context, userID uuid.UUID, category string) ([]*models.Notification, error) {
	r.s.lock()
	defer r.s.unlock()
	out := r.collect(func(n *models.Notification) bool {
		return n.UserID == userID && (category == "" || n.Category == category)
	})
	slices.SortFunc(out, func(a, b *models.Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
	return out, nil
}

func (r *notificationRepo) deleteWhere(match func(*models.Notification) bool) int64 {
	var n int64
	for id, row := range r.s.sh.st.notifications {
		row := row
		if match(&row) {
			delete(r.s.sh.st.notifications, id)
			n++
		}
	}
	return n
}

func (r *notificationRepo) DeleteStale(_ context.Context, userID uuid.UUID, category string, keep []string) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.deleteWhere(func(n *models.Notification) bool {
		return n.UserID == userID && n.Category == category && !slices.Contains(keep, n.Key)
	}), nil
}

func (r *notificationRepo) DeleteByKey(_ context.Context, key string) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.deleteWhere(func(n *models.Notification) bool { return n.Key == key }), nil
}

func (r *notificationRepo) updateWhere(match func(*models.Notification) bool, apply func(*models.Notification)) int64 {
	var count int64
	now := r.s.now()
	for id, n := range r.s.sh.st.notifications {
		if !match(&n) {
			continue
		}
		apply(&n)
		n.UpdatedAt = now
		r.s.sh.st.notifications[id] = n
		count++
	}
	return count
}

func (r *notificationRepo) Acknowledge(_ context.Context, userID uuid.UUID, keys []string, at time.Time) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.updateWhere(
		func(n *models.Notification) bool {
			return n.UserID == userID && n.AcknowledgedAt == nil && slices.Contains(keys, n.Key)
		},
		func(n *models.Notification) { n.AcknowledgedAt = &at },
	), nil
}

func (r *notificationRepo) MarkSeen(_ context.Context, userID uuid.UUID, keys []string, at time.Time) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.updateWhere(
		func(n *models.Notification) bool {
			return n.UserID == userID && n.FirstSeenAt == nil && slices.Contains(keys, n.Key)
		},
		func(n *models.Notification) { n.FirstSeenAt = &at },
	), nil
}

func (r *notificationRepo) SetSnooze(_ context.Context, id uuid.UUID, until *time.Time) error {
	r.s.lock()
	defer r.s.unlock()
	n, ok := r.s.sh.st.notifications[id]
	if !ok {
		return utils.ErrNotFound
	}
	if until != nil {
		d := utils.DateOnly(*until)
		until = &d
	}
	n.SnoozedUntil = until
	n.UpdatedAt = r.s.now()
	r.s.sh.st.notifications[id] = n
	return nil
}

func (r *notificationRepo) PruneAcknowledged(_ context.Context, userID uuid.UUID, before time.Time) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.deleteWhere(func(n *models.Notification) bool {
		return n.UserID == userID && n.AcknowledgedAt != nil && n.AcknowledgedAt.Before(before)
	}), nil
}

func (r *notificationRepo) ClearElapsedSnoozes(_ context.Context, today time.Time) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	today = utils.DateOnly(today)
	return r.updateWhere(
		func(n *models.Notification) bool { return n.SnoozedUntil != nil && !n.SnoozedUntil.After(today) },
		func(n *models.Notification) { n.SnoozedUntil = nil },
	), nil
}

func (r *notificationRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.deleteWhere(func(n *models.Notification) bool {
		return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
	}), nil
}
