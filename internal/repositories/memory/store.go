// Package memory is an in-process repositories.Store used by tests and local
// development. Data is lost on restart.
package memory

import (
	"bytes"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type state struct {
	users         map[uuid.UUID]models.User
	buildings     map[uuid.UUID]models.Building
	units         map[uuid.UUID]models.Unit
	workOrders    map[uuid.UUID]models.WorkOrder
	memberships   map[uuid.UUID]models.BuildingMembership
	notifications map[uuid.UUID]models.Notification
	roleLogs      []models.RoleAuditLog
	workOrderLogs []models.WorkOrderAuditLog
}

func newState() *state {
	return &state{
		users:         map[uuid.UUID]models.User{},
		buildings:     map[uuid.UUID]models.Building{},
		units:         map[uuid.UUID]models.Unit{},
		workOrders:    map[uuid.UUID]models.WorkOrder{},
		memberships:   map[uuid.UUID]models.BuildingMembership{},
		notifications: map[uuid.UUID]models.Notification{},
	}
}

// clone copies every table. Rows are stored by value, so a shallow map copy
// is enough for rollback.
func (s *state) clone() *state {
	return &state{
		users:         maps.Clone(s.users),
		buildings:     maps.Clone(s.buildings),
		units:         maps.Clone(s.units),
		workOrders:    maps.Clone(s.workOrders),
		memberships:   maps.Clone(s.memberships),
		notifications: maps.Clone(s.notifications),
		roleLogs:      slices.Clone(s.roleLogs),
		workOrderLogs: slices.Clone(s.workOrderLogs),
	}
}

type shared struct {
	mu       sync.Mutex
	st       *state
	clock    utils.Clock
	auditErr error
}

// Store implements repositories.Store. A transaction holds the store-wide
// lock until it finishes, so transactions are fully serialized.
type Store struct {
	sh   *shared
	inTx bool
}

var _ repositories.Store = (*Store)(nil)

func NewStore(clock utils.Clock) *Store {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &Store{sh: &shared{st: newState(), clock: clock}}
}

// InjectAuditFailure makes every subsequent audit write fail with err. Pass
// nil to clear it.
func (s *Store) InjectAuditFailure(err error) {
	s.lock()
	defer s.unlock()
	s.sh.auditErr = err
}

func (s *Store) lock() {
	if !s.inTx {
		s.sh.mu.Lock()
	}
}

func (s *Store) unlock() {
	if !s.inTx {
		s.sh.mu.Unlock()
	}
}

func (s *Store) now() time.Time { return s.sh.clock.Now().UTC() }

func (s *Store) Buildings() repositories.BuildingRepository         { return &buildingRepo{s} }
func (s *Store) Units() repositories.UnitRepository                 { return &unitRepo{s} }
func (s *Store) WorkOrders() repositories.WorkOrderRepository       { return &workOrderRepo{s} }
func (s *Store) Memberships() repositories.MembershipRepository     { return &membershipRepo{s} }
func (s *Store) Notifications() repositories.NotificationRepository { return &notificationRepo{s} }
func (s *Store) Audit() repositories.AuditLogRepository             { return &auditRepo{s} }
func (s *Store) Users() repositories.UserRepository                 { return &userRepo{s} }

func (s *Store) WithTx(ctx context.Context, fn func(tx repositories.Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}
	s.sh.mu.Lock()
	defer s.sh.mu.Unlock()

	snapshot := s.sh.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.sh.st = snapshot
			panic(p)
		}
	}()

	if err = fn(&Store{sh: s.sh, inTx: true}); err != nil {
		s.sh.st = snapshot
	}
	return err
}

func compareIDs(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) }

// page applies limit/offset to an already sorted slice.
func page[T any](list []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(list) {
			return list[:0]
		}
		list = list[offset:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
