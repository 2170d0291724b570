package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

type fakeUsers struct {
	users []*models.User
	calls [][]uuid.UUID
	err   error
}

func (f *fakeUsers) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*models.User, error) {
	f.calls = append(f.calls, ids)
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.User
	for _, u := range f.users {
		for _, id := range ids {
			if u.ID == id {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

type brokenCache struct{}

func (brokenCache) GetMany(context.Context, []uuid.UUID) (map[uuid.UUID]string, error) {
	return nil, errors.New("down")
}
func (brokenCache) SetMany(context.Context, map[uuid.UUID]string) error { return errors.New("down") }

func TestMemoryLabelCacheExpires(t *testing.T) {
	ctx := context.Background()
	clock := &stepClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	c := NewMemoryLabelCache(time.Minute, clock)
	id := uuid.New()

	require.NoError(t, c.SetMany(ctx, map[uuid.UUID]string{id: "Ana"}))
	got, err := c.GetMany(ctx, []uuid.UUID{id, uuid.New()})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]string{id: "Ana"}, got)

	clock.now = clock.now.Add(2 * time.Minute)
	got, err = c.GetMany(ctx, []uuid.UUID{id})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestOwnerLabelsLoadsOnlyMisses(t *testing.T) {
	ctx := context.Background()
	ana := &models.User{ID: uuid.New(), Username: "ana", FullName: "Ana Petrova", IsActive: true}
	ivo := &models.User{ID: uuid.New(), Username: "ivo", IsActive: true}
	users := &fakeUsers{users: []*models.User{ana, ivo}}
	c := NewMemoryLabelCache(time.Minute, nil)

	got, err := OwnerLabels(ctx, c, users, []uuid.UUID{ana.ID, ivo.ID})
	require.NoError(t, err)
	assert.Equal(t, "Ana Petrova", got[ana.ID])
	assert.Equal(t, "ivo", got[ivo.ID])
	require.Len(t, users.calls, 1)

	got, err = OwnerLabels(ctx, c, users, []uuid.UUID{ana.ID, ivo.ID})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Len(t, users.calls, 1, "second lookup is served from the cache")
}

func TestOwnerLabelsBypassesBrokenCache(t *testing.T) {
	ctx := context.Background()
	ana := &models.User{ID: uuid.New(), Username: "ana", IsActive: true}
	users := &fakeUsers{users: []*models.User{ana}}

	got, err := OwnerLabels(ctx, brokenCache{}, users, []uuid.UUID{ana.ID})
	require.NoError(t, err)
	assert.Equal(t, "ana", got[ana.ID])

	users.err = errors.New("db down")
	_, err = OwnerLabels(ctx, nil, users, []uuid.UUID{ana.ID})
	assert.Error(t, err)
}
