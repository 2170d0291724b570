package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Mecho90/BuildingManagement-sub000/internal/authz"
	"github.com/Mecho90/BuildingManagement-sub000/internal/constants"
	"github.com/Mecho90/BuildingManagement-sub000/internal/metrics"
	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
	"github.com/Mecho90/BuildingManagement-sub000/internal/repositories"
	"github.com/Mecho90/BuildingManagement-sub000/internal/utils"
)

type CreateWorkOrderInput struct {
	BuildingID  uuid.UUID
	UnitID      *uuid.UUID
	Title       string
	Description string
	Status      models.WorkOrderStatus
	Priority    models.WorkOrderPriority
	Deadline    time.Time
	LawyerOnly  bool
}

// UpdateWorkOrderInput changes only the non-nil fields. ClearUnit detaches the
// unit.
type UpdateWorkOrderInput struct {
	Title       *string
	Description *string
	Priority    *models.WorkOrderPriority
	Deadline    *time.Time
	BuildingID  *uuid.UUID
	UnitID      *uuid.UUID
	ClearUnit   bool
	LawyerOnly  *bool
}

type MassAssignInput struct {
	BuildingIDs []uuid.UUID
	Title       string
	Description string
}

type MassAssignResult struct {
	Created []*models.WorkOrder `json:"created"`
	Skipped []uuid.UUID         `json:"skipped"`
}

type ListWorkOrdersInput struct {
	Search     string
	Statuses   []models.WorkOrderStatus
	Priorities []models.WorkOrderPriority
	BuildingID *uuid.UUID
	OwnerID    *uuid.UUID
	Archived   bool
	Order      repositories.WorkOrderOrder
	Limit      int
	Offset     int
}

type WorkOrderPage struct {
	Results []*models.WorkOrder `json:"results"`
	Total   int                 `json:"total"`
}

type WorkOrderService struct {
	store         repositories.Store
	visibility    *VisibilityService
	audit         *AuditService
	notifications *NotificationService
	clock         utils.Clock
	metrics       *metrics.Metrics
}

func NewWorkOrderService(
	store repositories.Store,
	visibility *VisibilityService,
	audit *AuditService,
	notifications *NotificationService,
	clock utils.Clock,
	m *metrics.Metrics,
) *WorkOrderService {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &WorkOrderService{
		store:         store,
		visibility:    visibility,
		audit:         audit,
		notifications: notifications,
		clock:         clock,
		metrics:       m,
	}
}

/* ---------- create ---------- */

func (s *WorkOrderService) CreateWorkOrder(ctx context.Context, actor *models.User, in CreateWorkOrderInput) (*models.WorkOrder, error) {
	if !actor.IsAuthenticated() {
		return nil, utils.ErrUnauthenticated
	}

	buildingID := in.BuildingID
	if in.UnitID != nil {
		unit, err := s.store.Units().GetByID(ctx, *in.UnitID)
		if err != nil {
			return nil, err
		}
		if unit == nil {
			return nil, utils.NewValidationError("unit", "unit does not exist")
		}
		buildingID = unit.BuildingID
	}
	if buildingID == uuid.Nil {
		return nil, utils.NewValidationError("building", "building is required")
	}
	b, err := s.store.Buildings().GetByID(ctx, buildingID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, utils.NewValidationError("building", "building does not exist")
	}
	if err := newAccess(s.store, actor).require(ctx, models.CapCreateWorkOrders, &buildingID); err != nil {
		return nil, err
	}

	wo := &models.WorkOrder{
		BuildingID:  buildingID,
		UnitID:      in.UnitID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		Kind:        models.WorkOrderKindMaintenance,
		Deadline:    in.Deadline,
		LawyerOnly:  in.LawyerOnly,
	}
	if wo.Status == "" {
		wo.Status = models.WorkOrderStatusOpen
	}
	if wo.Priority == "" {
		wo.Priority = models.PriorityMedium
	}
	if wo.Status == models.WorkOrderStatusAwaitingApproval {
		wo.AwaitingApprovalBy = actorID(actor)
	}

	err = s.store.WithTx(ctx, func(tx repositories.Store) error {
		if err := tx.WorkOrders().Create(ctx, wo); err != nil {
			return err
		}
		return s.audit.LogWorkOrderAction(ctx, tx, actor, wo, models.WorkOrderAuditCreated, map[string]any{
			"title":    wo.Title,
			"status":   wo.Status,
			"priority": wo.Priority,
			"deadline": wo.Deadline.Format(time.DateOnly),
		})
	})
	if err != nil {
		return nil, err
	}

	if wo.Status == models.WorkOrderStatusAwaitingApproval {
		s.notifyApprovers(ctx, wo, actor)
	}
	return wo, nil
}

/* ---------- status ---------- */

// TransitionStatus writes the new status and its audit entry atomically.
// Approving or rejecting needs approve_work_orders on the building; any other
// status needs create_work_orders there.
func (s *WorkOrderService) TransitionStatus(
	ctx context.Context,
	actor *models.User,
	id uuid.UUID,
	to models.WorkOrderStatus,
	note string,
) (*models.WorkOrder, error) {
	if !actor.IsAuthenticated() {
		return nil, utils.ErrUnauthenticated
	}
	if !to.Valid() {
		return nil, utils.NewValidationError("status", "unknown status")
	}
	current, err := s.visibility.VisibleWorkOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	need := models.CapCreateWorkOrders
	if to == models.WorkOrderStatusApproved || to == models.WorkOrderStatusRejected {
		need = models.CapApproveWorkOrders
	}
	if err := newAccess(s.store, actor).require(ctx, need, &current.BuildingID); err != nil {
		return nil, err
	}

	var (
		wo   *models.WorkOrder
		from models.WorkOrderStatus
	)
	err = s.store.WithTx(ctx, func(tx repositories.Store) error {
		var err error
		wo, err = tx.WorkOrders().GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if wo == nil {
			return fmt.Errorf("work order %s: %w", id, utils.ErrNotFound)
		}
		from = wo.Status
		if err := wo.SetStatus(to); err != nil {
			return err
		}
		if to == models.WorkOrderStatusAwaitingApproval && from != to {
			wo.AwaitingApprovalBy = actorID(actor)
		}
		if err := tx.WorkOrders().Update(ctx, wo); err != nil {
			return err
		}

		action := models.WorkOrderAuditStatusChanged
		if to == models.WorkOrderStatusApproved || to == models.WorkOrderStatusRejected {
			action = models.WorkOrderAuditApproval
		}
		payload := map[string]any{"from": from, "to": to}
		if note = strings.TrimSpace(note); note != "" {
			payload["note"] = note
		}
		if err := s.audit.LogWorkOrderAction(ctx, tx, actor, wo, action, payload); err != nil {
			return err
		}

		if from == models.WorkOrderStatusAwaitingApproval && to != from && s.notifications != nil {
			if _, err := s.notifications.ClearApprovalRequests(ctx, tx, wo.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.CountTransition(string(to))

	utils.Logger.WithFields(logrus.Fields{
		"work_order_id": wo.ID,
		"from":          from,
		"to":            to,
		"actor_id":      actor.ID,
	}).Info("work order status changed")

	if to == models.WorkOrderStatusAwaitingApproval && from != to {
		s.notifyApprovers(ctx, wo, actor)
	}
	return wo, nil
}

// notifyApprovers runs after commit; a failed fan-out is logged and does not
// undo the transition.
func (s *WorkOrderService) notifyApprovers(ctx context.Context, wo *models.WorkOrder, submitter *models.User) {
	if s.notifications == nil {
		return
	}
	if _, err := s.notifications.NotifyApprovers(ctx, wo, submitter); err != nil {
		utils.Logger.WithError(err).WithField("work_order_id", wo.ID).Error("approval fan-out failed")
	}
}

/* ---------- update ---------- */

func (s *WorkOrderService) UpdateWorkOrder(ctx context.Context, actor *models.User, id uuid.UUID, in UpdateWorkOrderInput) (*models.WorkOrder, error) {
	if !actor.IsAuthenticated() {
		return nil, utils.ErrUnauthenticated
	}
	current, err := s.editableWorkOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	// Moving the order needs create_work_orders where it lands too.
	target := current.BuildingID
	if in.BuildingID != nil {
		target = *in.BuildingID
	}
	if in.UnitID != nil {
		unit, err := s.store.Units().GetByID(ctx, *in.UnitID)
		if err != nil {
			return nil, err
		}
		if unit == nil {
			return nil, utils.NewValidationError("unit", "unit does not exist")
		}
		target = unit.BuildingID
	}
	if target != current.BuildingID {
		if _, err := s.visibility.VisibleBuilding(ctx, actor, target); err != nil {
			return nil, err
		}
		if err := newAccess(s.store, actor).require(ctx, models.CapCreateWorkOrders, &target); err != nil {
			return nil, err
		}
	}

	var updated *models.WorkOrder
	err = s.store.WithTx(ctx, func(tx repositories.Store) error {
		var before models.WorkOrder
		err := tx.WorkOrders().UpdateWithRetry(ctx, id, func(wo *models.WorkOrder) error {
			before = *wo
			applyUpdate(wo, in)
			updated = wo
			return nil
		})
		if err != nil {
			return err
		}
		if !sameUnit(before.UnitID, updated.UnitID) || before.BuildingID != updated.BuildingID {
			return s.audit.LogWorkOrderAction(ctx, tx, actor, updated, models.WorkOrderAuditReassigned, map[string]any{
				"from_building": before.BuildingID,
				"to_building":   updated.BuildingID,
				"from_unit":     before.UnitID,
				"to_unit":       updated.UnitID,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func applyUpdate(wo *models.WorkOrder, in UpdateWorkOrderInput) {
	if in.Title != nil {
		wo.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		wo.Description = *in.Description
	}
	if in.Priority != nil {
		wo.Priority = *in.Priority
	}
	if in.Deadline != nil {
		wo.Deadline = *in.Deadline
	}
	if in.LawyerOnly != nil {
		wo.LawyerOnly = *in.LawyerOnly
	}
	if in.BuildingID != nil && *in.BuildingID != wo.BuildingID {
		wo.BuildingID = *in.BuildingID
		// a unit from the old building cannot follow the order
		wo.UnitID = nil
	}
	if in.ClearUnit {
		wo.UnitID = nil
	}
	if in.UnitID != nil {
		id := *in.UnitID
		wo.UnitID = &id
	}
}

func sameUnit(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

/* ---------- archive ---------- */

// ArchiveWorkOrder stamps archived_at on a DONE order once. Repeated calls
// return the order unchanged.
func (s *WorkOrderService) ArchiveWorkOrder(ctx context.Context, actor *models.User, id uuid.UUID) (*models.WorkOrder, error) {
	wo, err := s.editableWorkOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if wo.Status != models.WorkOrderStatusDone {
		return nil, utils.ErrNotArchivable
	}
	if wo.IsArchived() {
		return wo, nil
	}

	at := s.clock.Now().UTC()
	err = s.store.WithTx(ctx, func(tx repositories.Store) error {
		stamped, err := tx.WorkOrders().SetArchivedAt(ctx, id, at)
		if err != nil {
			return err
		}
		if !stamped {
			// lost a race with another archive or a status change
			return nil
		}
		wo.ArchivedAt = &at
		return s.audit.LogWorkOrderAction(ctx, tx, actor, wo, models.WorkOrderAuditArchived, map[string]any{
			"archived_at": at.Format(time.RFC3339),
		})
	})
	if err != nil {
		return nil, err
	}

	fresh, err := s.store.WorkOrders().GetByID(ctx, id)
	if err != nil || fresh == nil {
		return wo, err
	}
	if fresh.Status != models.WorkOrderStatusDone {
		return nil, utils.ErrNotArchivable
	}
	return fresh, nil
}

/* ---------- delete ---------- */

// editableWorkOrder loads a visible order the actor may change: one with
// create_work_orders on its building, or any order for privileged users.
func (s *WorkOrderService) editableWorkOrder(ctx context.Context, actor *models.User, id uuid.UUID) (*models.WorkOrder, error) {
	wo, err := s.visibility.VisibleWorkOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := newAccess(s.store, actor).require(ctx, models.CapCreateWorkOrders, &wo.BuildingID); err != nil {
		return nil, err
	}
	return wo, nil
}

func (s *WorkOrderService) DeleteWorkOrder(ctx context.Context, actor *models.User, id uuid.UUID) error {
	wo, err := s.editableWorkOrder(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.store.WithTx(ctx, func(tx repositories.Store) error {
		if err := tx.WorkOrders().Delete(ctx, wo.ID); err != nil {
			return err
		}
		for _, key := range []string{deadlineKey(wo.ID), massAssignKey(wo.ID), awaitingKey(wo.ID)} {
			if _, err := tx.Notifications().DeleteByKey(ctx, key); err != nil {
				return err
			}
		}
		return nil
	})
}

/* ---------- mass assign ---------- */

// MassAssign creates one LOW priority order per distinct TECH_SUPPORT
// building. A building already carrying an active mass-assigned order with the
// same title is skipped, and so is every repeat of a building within the
// request. The duplicate check and the inserts share one transaction that
// holds the building rows locked.
func (s *WorkOrderService) MassAssign(ctx context.Context, actor *models.User, in MassAssignInput) (*MassAssignResult, error) {
	if err := newAccess(s.store, actor).require(ctx, models.CapMassAssign, nil); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, utils.NewValidationError("title", "title is required")
	}
	ids := uniqueIDs(in.BuildingIDs)
	if len(ids) == 0 {
		return nil, utils.NewValidationError("buildings", "select at least one building")
	}

	deadline := utils.Today(s.clock).AddDate(0, 0, constants.MassAssignDeadlineDays)
	res := &MassAssignResult{Created: []*models.WorkOrder{}, Skipped: []uuid.UUID{}}

	err := s.store.WithTx(ctx, func(tx repositories.Store) error {
		res.Created = res.Created[:0]
		res.Skipped = res.Skipped[:0]

		locked, err := tx.Buildings().LockByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("lock buildings: %w", err)
		}
		if len(locked) != len(ids) {
			return utils.NewValidationError("buildings", "one or more buildings do not exist")
		}
		for _, b := range locked {
			if b.Role != models.BuildingRoleTechSupport {
				return utils.NewValidationError("buildings", fmt.Sprintf("%q is not a mass assignment target", b.Name))
			}
		}

		handled := make(map[uuid.UUID]bool, len(ids))
		for _, bID := range in.BuildingIDs {
			if handled[bID] {
				res.Skipped = append(res.Skipped, bID)
				continue
			}
			handled[bID] = true
			dup, err := tx.WorkOrders().Count(ctx, repositories.NewWorkOrderQuery(repositories.ScopeAll()).
				InBuilding(bID).
				TitleEquals(title).
				MassAssigned(true).
				Archived(false).
				WithStatuses(models.MassAssignActiveStatuses...))
			if err != nil {
				return err
			}
			if dup > 0 {
				res.Skipped = append(res.Skipped, bID)
				continue
			}
			wo := &models.WorkOrder{
				BuildingID:   bID,
				Title:        title,
				Description:  in.Description,
				Status:       models.WorkOrderStatusOpen,
				Priority:     models.PriorityLow,
				Kind:         models.WorkOrderKindMassAssign,
				Deadline:     deadline,
				MassAssigned: true,
			}
			if err := tx.WorkOrders().Create(ctx, wo); err != nil {
				return err
			}
			if err := s.audit.LogWorkOrderAction(ctx, tx, actor, wo, models.WorkOrderAuditCreated, map[string]any{
				"title":         wo.Title,
				"mass_assigned": true,
				"deadline":      deadline.Format(time.DateOnly),
			}); err != nil {
				return err
			}
			res.Created = append(res.Created, wo)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.CountMassAssign(len(res.Created), len(res.Skipped))

	utils.Logger.WithFields(logrus.Fields{
		"actor_id": actor.ID,
		"title":    title,
		"created":  len(res.Created),
		"skipped":  len(res.Skipped),
	}).Info("mass assignment finished")

	if s.notifications != nil {
		for _, wo := range res.Created {
			if _, err := s.notifications.NotifyTechnicians(ctx, wo); err != nil {
				utils.Logger.WithError(err).WithField("work_order_id", wo.ID).Error("mass assignment fan-out failed")
			}
		}
	}
	return res, nil
}

// MassAssignCandidates lists the buildings offered for mass assignment.
func (s *WorkOrderService) MassAssignCandidates(ctx context.Context, actor *models.User) ([]*models.Building, error) {
	if err := newAccess(s.store, actor).require(ctx, models.CapMassAssign, nil); err != nil {
		return nil, err
	}
	q, err := s.visibility.VisibleBuildings(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.store.Buildings().List(ctx, q.WithRole(models.BuildingRoleTechSupport).OrderBy(repositories.BuildingOrderName))
}

/* ---------- reads ---------- */

func (s *WorkOrderService) GetWorkOrder(ctx context.Context, actor *models.User, id uuid.UUID) (*models.WorkOrder, error) {
	return s.visibility.VisibleWorkOrder(ctx, actor, id)
}

// ListWorkOrders filters the actor's visible orders. The owner filter is only
// honored for privileged users or for the actor's own id.
func (s *WorkOrderService) ListWorkOrders(ctx context.Context, actor *models.User, in ListWorkOrdersInput) (*WorkOrderPage, error) {
	q, err := s.visibility.VisibleWorkOrders(ctx, actor)
	if err != nil {
		return nil, err
	}
	q = q.Archived(in.Archived)
	if in.Search != "" {
		q = q.Search(in.Search)
	}
	if len(in.Statuses) > 0 {
		q = q.WithStatuses(in.Statuses...)
	}
	if len(in.Priorities) > 0 {
		q = q.WithPriorities(in.Priorities...)
	}
	if in.BuildingID != nil {
		q = q.InBuilding(*in.BuildingID)
	}
	if in.OwnerID != nil && (authz.IsPrivileged(actor) || (actor.IsAuthenticated() && *in.OwnerID == actor.ID)) {
		q = q.OwnedBy(*in.OwnerID)
	}
	if in.Order != "" {
		q = q.OrderBy(in.Order)
	}

	total, err := s.store.WorkOrders().Count(ctx, q)
	if err != nil {
		return nil, err
	}
	limit := in.Limit
	if limit <= 0 {
		limit = constants.DefaultPageSize
	}
	if limit > constants.MaxPageSize {
		limit = constants.MaxPageSize
	}
	list, err := s.store.WorkOrders().List(ctx, q.Page(limit, in.Offset))
	if err != nil {
		return nil, err
	}
	return &WorkOrderPage{Results: list, Total: total}, nil
}
