package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
)

/* ───────────── public interfaces ───────────── */

// Store groups the repositories that share one connection or transaction.
type Store interface {
	Buildings() BuildingRepository
	Units() UnitRepository
	WorkOrders() WorkOrderRepository
	Memberships() MembershipRepository
	Notifications() NotificationRepository
	Audit() AuditLogRepository
	Users() UserRepository

	// WithTx runs fn against a transactional Store. fn's error rolls back
	// everything it wrote; nil commits.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

// Read methods returning a single entity yield (nil, nil) when no row exists.

type BuildingRepository interface {
	Create(ctx context.Context, b *models.Building) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Building, error)
	// LockByIDs selects the rows FOR UPDATE in id order.
	LockByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Building, error)
	List(ctx context.Context, q BuildingQuery) ([]*models.Building, error)
	Count(ctx context.Context, q BuildingQuery) (int, error)
	Stats(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.BuildingStats, error)
	Update(ctx context.Context, b *models.Building) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type UnitRepository interface {
	Create(ctx context.Context, u *models.Unit) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Unit, error)
	List(ctx context.Context, q UnitQuery) ([]*models.Unit, error)
	Count(ctx context.Context, q UnitQuery) (int, error)
	// NumberTaken compares numbers case-insensitively; excludeID skips the
	// unit being edited.
	NumberTaken(ctx context.Context, buildingID uuid.UUID, number string, excludeID *uuid.UUID) (bool, error)
	Update(ctx context.Context, u *models.Unit) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type WorkOrderRepository interface {
	// Create and Update run PrepareForSave against the referenced unit.
	Create(ctx context.Context, wo *models.WorkOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error)
	List(ctx context.Context, q WorkOrderQuery) ([]*models.WorkOrder, error)
	Count(ctx context.Context, q WorkOrderQuery) (int, error)

	Update(ctx context.Context, wo *models.WorkOrder) error
	UpdateIfVersion(ctx context.Context, wo *models.WorkOrder, expected int64) (pgconn.CommandTag, error)
	UpdateWithRetry(ctx context.Context, id uuid.UUID, mutate func(*models.WorkOrder) error) error
	// SetArchivedAt is the validation-free fast path. It only stamps DONE
	// orders that are not archived yet and reports whether it did.
	SetArchivedAt(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type MembershipRepository interface {
	Create(ctx context.Context, m *models.BuildingMembership) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.BuildingMembership, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.BuildingMembership, error)
	// ListForBuilding returns memberships on buildingID plus all global ones.
	ListForBuilding(ctx context.Context, buildingID uuid.UUID) ([]*models.BuildingMembership, error)
	Update(ctx context.Context, m *models.BuildingMembership) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type NotificationRepository interface {
	GetByKey(ctx context.Context, userID uuid.UUID, key string) (*models.Notification, error)
	// LockByKeys selects the user's rows for keys FOR UPDATE.
	LockByKeys(ctx context.Context, userID uuid.UUID, keys []string) ([]*models.Notification, error)
	InsertMany(ctx context.Context, list []*models.Notification) error
	UpdateMany(ctx context.Context, list []*models.Notification) error
	// ListByUser filters by category unless it is empty.
	ListByUser(ctx context.Context, userID uuid.UUID, category string) ([]*models.Notification, error)

	DeleteStale(ctx context.Context, userID uuid.UUID, category string, keep []string) (int64, error)
	DeleteByKey(ctx context.Context, key string) (int64, error)
	Acknowledge(ctx context.Context, userID uuid.UUID, keys []string, at time.Time) (int64, error)
	MarkSeen(ctx context.Context, userID uuid.UUID, keys []string, at time.Time) (int64, error)
	SetSnooze(ctx context.Context, id uuid.UUID, until *time.Time) error

	PruneAcknowledged(ctx context.Context, userID uuid.UUID, before time.Time) (int64, error)
	ClearElapsedSnoozes(ctx context.Context, today time.Time) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type AuditLogRepository interface {
	CreateRoleLog(ctx context.Context, entry *models.RoleAuditLog) error
	CreateWorkOrderLog(ctx context.Context, entry *models.WorkOrderAuditLog) error
	// ListRoleLogs is newest first; a nil buildingID lists everything.
	ListRoleLogs(ctx context.Context, buildingID *uuid.UUID, limit int) ([]*models.RoleAuditLog, error)
	ListWorkOrderLogs(ctx context.Context, workOrderID uuid.UUID) ([]*models.WorkOrderAuditLog, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.User, error)
	ListActive(ctx context.Context) ([]*models.User, error)
}

/* ───────────── postgres implementation ───────────── */

type pgStore struct {
	db DB
}

func NewStore(db DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Buildings() BuildingRepository         { return NewBuildingRepository(s.db) }
func (s *pgStore) Units() UnitRepository                 { return NewUnitRepository(s.db) }
func (s *pgStore) WorkOrders() WorkOrderRepository       { return NewWorkOrderRepository(s.db) }
func (s *pgStore) Memberships() MembershipRepository     { return NewMembershipRepository(s.db) }
func (s *pgStore) Notifications() NotificationRepository { return NewNotificationRepository(s.db) }
func (s *pgStore) Audit() AuditLogRepository             { return NewAuditLogRepository(s.db) }
func (s *pgStore) Users() UserRepository                 { return NewUserRepository(s.db) }

func (s *pgStore) WithTx(ctx context.Context, fn func(tx Store) error) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(&pgStore{db: tx})
	return err
}
