package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *models.User) error {
	r.s.lock()
	defer r.s.unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	for _, cur := range r.s.sh.st.users {
		if cur.ID == u.ID || cur.Username == u.Username {
			return fmt.Errorf("%w: user %q exists", utils.ErrIntegrity, u.Username)
		}
	}
	r.s.sh.st.users[u.ID] = *u
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.lock()
	defer r.s.unlock()
	u, ok := r.s.sh.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) collect(keep func(*models.User) bool) []*models.User {
	out := []*models.User{}
	for _, u := range r.s.sh.st.users {
		u := u
		if keep(&u) {
			out = append(out, &u)
		}
	}
	slices.SortFunc(out, func(a, b *models.User) int { return strings.Compare(a.Username, b.Username) })
	return out
}

func (r *userRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*models.User, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.collect(func(u *models.User) bool { return slices.Contains(ids, u.ID) }), nil
}

func (r *userRepo) ListActive(_ context.Context) ([]*models.User, error) {
	r.s.lock()
	defer r.s.unlock()
	return r.collect(func(u *models.User) bool { return u.IsActive }), nil
}
