package repositories

import (
	"bytes"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Mecho90/BuildingManagement-sub000/internal/models"
)

/* ───────────── building scope ───────────── */

type scopeKind int

const (
	scopeNone scopeKind = iota
	scopeAll
	scopeIDs
)

// BuildingScope is the authorization boundary carried by every query. The
// zero value sees nothing.
type BuildingScope struct {
	kind scopeKind
	ids  []uuid.UUID
}

func ScopeNone() BuildingScope { return BuildingScope{kind: scopeNone} }
func ScopeAll() BuildingScope  { return BuildingScope{kind: scopeAll} }

// ScopeIDs restricts to the given buildings; an empty list is ScopeNone.
func ScopeIDs(ids []uuid.UUID) BuildingScope {
	if len(ids) == 0 {
		return ScopeNone()
	}
	cp := make([]uuid.UUID, len(ids))
	copy(cp, ids)
	return BuildingScope{kind: scopeIDs, ids: cp}
}

func (s BuildingScope) IsAll() bool  { return s.kind == scopeAll }
func (s BuildingScope) IsNone() bool { return s.kind == scopeNone }

// IDs is nil unless the scope is an explicit list.
func (s BuildingScope) IDs() []uuid.UUID {
	if s.kind != scopeIDs {
		return nil
	}
	cp := make([]uuid.UUID, len(s.ids))
	copy(cp, s.ids)
	return cp
}

func (s BuildingScope) Allows(buildingID uuid.UUID) bool {
	switch s.kind {
	case scopeAll:
		return true
	case scopeIDs:
		for _, id := range s.ids {
			if id == buildingID {
				return true
			}
		}
	}
	return false
}

/* ───────────── SQL helpers ───────────── */

type whereBuilder struct {
	args  []any
	conds []string
}

func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return "$" + strconv.Itoa(len(w.args))
}

func (w *whereBuilder) add(cond string) { w.conds = append(w.conds, cond) }

func (w *whereBuilder) scope(s BuildingScope, column string) {
	switch s.kind {
	case scopeAll:
	case scopeIDs:
		w.add(column + " = ANY(" + w.arg(s.ids) + ")")
	default:
		w.add("FALSE")
	}
}

func (w *whereBuilder) build(base, order string, limit, offset int) string {
	var qb strings.Builder
	qb.WriteString(base)
	if len(w.conds) > 0 {
		qb.WriteString(" WHERE ")
		qb.WriteString(strings.Join(w.conds, " AND "))
	}
	if order != "" {
		qb.WriteString(" ORDER BY ")
		qb.WriteString(order)
	}
	if limit > 0 {
		qb.WriteString(" LIMIT ")
		qb.WriteString(w.arg(limit))
	}
	if offset > 0 {
		qb.WriteString(" OFFSET ")
		qb.WriteString(w.arg(offset))
	}
	return qb.String()
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// compareIDs orders UUIDs bytewise, as Postgres does.
func compareIDs(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) }

/* ───────────── buildings ───────────── */

type BuildingOrder string

const (
	BuildingOrderName    BuildingOrder = "name"
	BuildingOrderNewest  BuildingOrder = "newest"
	BuildingOrderAddress BuildingOrder = "address"
)

// BuildingQuery is an immutable, chainable filter over buildings. Obtain one
// from the visibility service; every method returns a modified copy.
type BuildingQuery struct {
	scope   BuildingScope
	search  string
	ownerID *uuid.UUID
	role    models.BuildingRole
	ids     []uuid.UUID
	order   BuildingOrder
	limit   int
	offset  int
}

func NewBuildingQuery(scope BuildingScope) BuildingQuery {
	return BuildingQuery{scope: scope, order: BuildingOrderName}
}

func (q BuildingQuery) Scope() BuildingScope { return q.scope }

// Search matches name, address or description, case-insensitively.
func (q BuildingQuery) Search(term string) BuildingQuery {
	q.search = strings.TrimSpace(term)
	return q
}

func (q BuildingQuery) OwnedBy(userID uuid.UUID) BuildingQuery {
	q.ownerID = &userID
	return q
}

func (q BuildingQuery) WithRole(role models.BuildingRole) BuildingQuery {
	q.role = role
	return q
}

// WithIDs narrows to ids; it can never widen the scope.
func (q BuildingQuery) WithIDs(ids ...uuid.UUID) BuildingQuery {
	q.ids = append([]uuid.UUID{}, ids...)
	return q
}

func (q BuildingQuery) OrderBy(o BuildingOrder) BuildingQuery {
	q.order = o
	return q
}

func (q BuildingQuery) Page(limit, offset int) BuildingQuery {
	q.limit, q.offset = limit, offset
	return q
}

func (q BuildingQuery) Window() (limit, offset int) { return q.limit, q.offset }

func (q BuildingQuery) Matches(b *models.Building) bool {
	if b == nil || !q.scope.Allows(b.ID) {
		return false
	}
	if q.ids != nil && !idIn(q.ids, b.ID) {
		return false
	}
	if q.ownerID != nil && (b.OwnerID == nil || *b.OwnerID != *q.ownerID) {
		return false
	}
	if q.role != "" && b.Role != q.role {
		return false
	}
	if q.search != "" &&
		!containsFold(b.Name, q.search) &&
		!containsFold(b.Address, q.search) &&
		!containsFold(b.Description, q.search) {
		return false
	}
	return true
}

func (q BuildingQuery) Sort(list []*models.Building) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch q.order {
		case BuildingOrderNewest:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		case BuildingOrderAddress:
			if a.Address != b.Address {
				return strings.ToLower(a.Address) < strings.ToLower(b.Address)
			}
		default:
			if !strings.EqualFold(a.Name, b.Name) {
				return strings.ToLower(a.Name) < strings.ToLower(b.Name)
			}
		}
		return compareIDs(a.ID, b.ID) < 0
	})
}

func (q BuildingQuery) where() *whereBuilder {
	w := &whereBuilder{}
	w.scope(q.scope, "id")
	if q.ids != nil {
		w.add("id = ANY(" + w.arg(q.ids) + ")")
	}
	if q.ownerID != nil {
		w.add("owner_id = " + w.arg(*q.ownerID))
	}
	if q.role != "" {
		w.add("role = " + w.arg(string(q.role)))
	}
	if q.search != "" {
		p := w.arg(likePattern(q.search))
		w.add("(name ILIKE " + p + " OR address ILIKE " + p + " OR description ILIKE " + p + ")")
	}
	return w
}

func (q BuildingQuery) orderSQL() string {
	switch q.order {
	case BuildingOrderNewest:
		return "created_at DESC, id ASC"
	case BuildingOrderAddress:
		return "lower(address) ASC, id ASC"
	default:
		return "lower(name) ASC, id ASC"
	}
}

/* ───────────── units ───────────── */

type UnitQuery struct {
	scope      BuildingScope
	buildingID *uuid.UUID
	search     string
	occupied   *bool
	limit      int
	offset     int
}

func NewUnitQuery(scope BuildingScope) UnitQuery { return UnitQuery{scope: scope} }

func (q UnitQuery) Scope() BuildingScope { return q.scope }

func (q UnitQuery) InBuilding(id uuid.UUID) UnitQuery {
	q.buildingID = &id
	return q
}

// Search matches number, contact name or description.
func (q UnitQuery) Search(term string) UnitQuery {
	q.search = strings.TrimSpace(term)
	return q
}

func (q UnitQuery) Occupied(v bool) UnitQuery {
	q.occupied = &v
	return q
}

func (q UnitQuery) Page(limit, offset int) UnitQuery {
	q.limit, q.offset = limit, offset
	return q
}

func (q UnitQuery) Window() (limit, offset int) { return q.limit, q.offset }

func (q UnitQuery) Matches(u *models.Unit) bool {
	if u == nil || !q.scope.Allows(u.BuildingID) {
		return false
	}
	if q.buildingID != nil && u.BuildingID != *q.buildingID {
		return false
	}
	if q.occupied != nil && u.IsOccupied != *q.occupied {
		return false
	}
	if q.search != "" &&
		!containsFold(u.Number, q.search) &&
		!containsFold(u.ContactName, q.search) &&
		!containsFold(u.Description, q.search) {
		return false
	}
	return true
}

// Sort orders by floor then number.
func (q UnitQuery) Sort(list []*models.Unit) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Floor != b.Floor {
			return a.Floor < b.Floor
		}
		if na, nb := models.NormalizeUnitNumber(a.Number), models.NormalizeUnitNumber(b.Number); na != nb {
			return na < nb
		}
		return compareIDs(a.ID, b.ID) < 0
	})
}

func (q UnitQuery) where() *whereBuilder {
	w := &whereBuilder{}
	w.scope(q.scope, "building_id")
	if q.buildingID != nil {
		w.add("building_id = " + w.arg(*q.buildingID))
	}
	if q.occupied != nil {
		w.add("is_occupied = " + w.arg(*q.occupied))
	}
	if q.search != "" {
		p := w.arg(likePattern(q.search))
		w.add("(number ILIKE " + p + " OR contact_name ILIKE " + p + " OR description ILIKE " + p + ")")
	}
	return w
}

func (q UnitQuery) orderSQL() string { return "floor ASC, lower(number) ASC, id ASC" }

/* ───────────── work orders ───────────── */

type WorkOrderOrder string

const (
	// WorkOrderOrderDeadline is deadline ascending, newest id first on ties.
	WorkOrderOrderDeadline     WorkOrderOrder = "deadline"
	WorkOrderOrderDeadlineDesc WorkOrderOrder = "deadline_desc"
	WorkOrderOrderPriority     WorkOrderOrder = "priority"
	WorkOrderOrderPriorityDesc WorkOrderOrder = "priority_desc"
	WorkOrderOrderCreated      WorkOrderOrder = "created"
	WorkOrderOrderCreatedAsc   WorkOrderOrder = "created_asc"
	WorkOrderOrderBuilding     WorkOrderOrder = "building"
	WorkOrderOrderBuildingDesc WorkOrderOrder = "building_desc"
)

func (o WorkOrderOrder) Valid() bool {
	switch o {
	case WorkOrderOrderDeadline, WorkOrderOrderDeadlineDesc,
		WorkOrderOrderPriority, WorkOrderOrderPriorityDesc,
		WorkOrderOrderCreated, WorkOrderOrderCreatedAsc,
		WorkOrderOrderBuilding, WorkOrderOrderBuildingDesc:
		return true
	}
	return false
}

type WorkOrderQuery struct {
	scope        BuildingScope
	search       string
	statuses     []models.WorkOrderStatus
	priorities   []models.WorkOrderPriority
	buildingID   *uuid.UUID
	unitID       *uuid.UUID
	ownerID      *uuid.UUID
	archived     *bool
	massAssigned *bool
	title        *string
	deadlineFrom *time.Time
	deadlineTo   *time.Time
	createdSince *time.Time
	order        WorkOrderOrder
	limit        int
	offset       int
}

func NewWorkOrderQuery(scope BuildingScope) WorkOrderQuery {
	return WorkOrderQuery{scope: scope, order: WorkOrderOrderDeadline}
}

func (q WorkOrderQuery) Scope() BuildingScope { return q.scope }

// Search matches title or description.
func (q WorkOrderQuery) Search(term string) WorkOrderQuery {
	q.search = strings.TrimSpace(term)
	return q
}

func (q WorkOrderQuery) WithStatuses(statuses ...models.WorkOrderStatus) WorkOrderQuery {
	q.statuses = append([]models.WorkOrderStatus{}, statuses...)
	return q
}

func (q WorkOrderQuery) WithPriorities(ps ...models.WorkOrderPriority) WorkOrderQuery {
	q.priorities = append([]models.WorkOrderPriority{}, ps...)
	return q
}

func (q WorkOrderQuery) InBuilding(id uuid.UUID) WorkOrderQuery {
	q.buildingID = &id
	return q
}

func (q WorkOrderQuery) ForUnit(id uuid.UUID) WorkOrderQuery {
	q.unitID = &id
	return q
}

// OwnedBy keeps orders whose building is owned by userID.
func (q WorkOrderQuery) OwnedBy(userID uuid.UUID) WorkOrderQuery {
	q.ownerID = &userID
	return q
}

func (q WorkOrderQuery) Archived(v bool) WorkOrderQuery {
	q.archived = &v
	return q
}

func (q WorkOrderQuery) MassAssigned(v bool) WorkOrderQuery {
	q.massAssigned = &v
	return q
}

// TitleEquals is an exact, case-sensitive match.
func (q WorkOrderQuery) TitleEquals(title string) WorkOrderQuery {
	q.title = &title
	return q
}

// DeadlineBetween keeps deadlines in [from, to]; either end may be zero.
func (q WorkOrderQuery) DeadlineBetween(from, to time.Time) WorkOrderQuery {
	q.deadlineFrom, q.deadlineTo = nil, nil
	if !from.IsZero() {
		q.deadlineFrom = &from
	}
	if !to.IsZero() {
		q.deadlineTo = &to
	}
	return q
}

func (q WorkOrderQuery) CreatedSince(t time.Time) WorkOrderQuery {
	q.createdSince = &t
	return q
}

func (q WorkOrderQuery) OrderBy(o WorkOrderOrder) WorkOrderQuery {
	if o.Valid() {
		q.order = o
	}
	return q
}

func (q WorkOrderQuery) Page(limit, offset int) WorkOrderQuery {
	q.limit, q.offset = limit, offset
	return q
}

func (q WorkOrderQuery) Window() (limit, offset int) { return q.limit, q.offset }

// Matches evaluates the filter in memory. building is the order's building
// row, needed only for the owner filter.
func (q WorkOrderQuery) Matches(wo *models.WorkOrder, building *models.Building) bool {
	if wo == nil || !q.scope.Allows(wo.BuildingID) {
		return false
	}
	if len(q.statuses) > 0 && !statusIn(q.statuses, wo.Status) {
		return false
	}
	if len(q.priorities) > 0 && !priorityIn(q.priorities, wo.Priority) {
		return false
	}
	if q.buildingID != nil && wo.BuildingID != *q.buildingID {
		return false
	}
	if q.unitID != nil && (wo.UnitID == nil || *wo.UnitID != *q.unitID) {
		return false
	}
	if q.ownerID != nil && (building == nil || building.OwnerID == nil || *building.OwnerID != *q.ownerID) {
		return false
	}
	if q.archived != nil && wo.IsArchived() != *q.archived {
		return false
	}
	if q.massAssigned != nil && wo.MassAssigned != *q.massAssigned {
		return false
	}
	if q.title != nil && wo.Title != *q.title {
		return false
	}
	if q.deadlineFrom != nil && wo.Deadline.Before(*q.deadlineFrom) {
		return false
	}
	if q.deadlineTo != nil && wo.Deadline.After(*q.deadlineTo) {
		return false
	}
	if q.createdSince != nil && wo.CreatedAt.Before(*q.createdSince) {
		return false
	}
	if q.search != "" && !containsFold(wo.Title, q.search) && !containsFold(wo.Description, q.search) {
		return false
	}
	return true
}

// Sort applies the query order in memory. buildingName resolves names for the
// building orderings.
func (q WorkOrderQuery) Sort(list []*models.WorkOrder, buildingName func(uuid.UUID) string) {
	idDesc := func(a, b *models.WorkOrder) bool { return compareIDs(a.ID, b.ID) > 0 }
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		switch q.order {
		case WorkOrderOrderDeadlineDesc:
			if !a.Deadline.Equal(b.Deadline) {
				return a.Deadline.After(b.Deadline)
			}
		case WorkOrderOrderPriority, WorkOrderOrderPriorityDesc:
			ra, rb := a.Priority.Rank(), b.Priority.Rank()
			if ra != rb {
				if q.order == WorkOrderOrderPriorityDesc {
					return ra > rb
				}
				return ra < rb
			}
			if !a.Deadline.Equal(b.Deadline) {
				return a.Deadline.Before(b.Deadline)
			}
		case WorkOrderOrderCreated:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		case WorkOrderOrderCreatedAsc:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case WorkOrderOrderBuilding, WorkOrderOrderBuildingDesc:
			na, nb := strings.ToLower(buildingName(a.BuildingID)), strings.ToLower(buildingName(b.BuildingID))
			if na != nb {
				if q.order == WorkOrderOrderBuildingDesc {
					return na > nb
				}
				return na < nb
			}
			if !a.Deadline.Equal(b.Deadline) {
				return a.Deadline.Before(b.Deadline)
			}
		default:
			if !a.Deadline.Equal(b.Deadline) {
				return a.Deadline.Before(b.Deadline)
			}
		}
		return idDesc(a, b)
	})
}

func (q WorkOrderQuery) where() *whereBuilder {
	w := &whereBuilder{}
	w.scope(q.scope, "wo.building_id")
	if len(q.statuses) > 0 {
		st := make([]string, len(q.statuses))
		for i, s := range q.statuses {
			st[i] = string(s)
		}
		w.add("wo.status = ANY(" + w.arg(st) + ")")
	}
	if len(q.priorities) > 0 {
		ps := make([]string, len(q.priorities))
		for i, p := range q.priorities {
			ps[i] = string(p)
		}
		w.add("wo.priority = ANY(" + w.arg(ps) + ")")
	}
	if q.buildingID != nil {
		w.add("wo.building_id = " + w.arg(*q.buildingID))
	}
	if q.unitID != nil {
		w.add("wo.unit_id = " + w.arg(*q.unitID))
	}
	if q.ownerID != nil {
		w.add("b.owner_id = " + w.arg(*q.ownerID))
	}
	if q.archived != nil {
		if *q.archived {
			w.add("wo.archived_at IS NOT NULL")
		} else {
			w.add("wo.archived_at IS NULL")
		}
	}
	if q.massAssigned != nil {
		w.add("wo.mass_assigned = " + w.arg(*q.massAssigned))
	}
	if q.title != nil {
		w.add("wo.title = " + w.arg(*q.title))
	}
	if q.deadlineFrom != nil {
		w.add("wo.deadline >= " + w.arg(q.deadlineFrom.Format("2006-01-02")) + "::date")
	}
	if q.deadlineTo != nil {
		w.add("wo.deadline <= " + w.arg(q.deadlineTo.Format("2006-01-02")) + "::date")
	}
	if q.createdSince != nil {
		w.add("wo.created_at >= " + w.arg(*q.createdSince))
	}
	if q.search != "" {
		p := w.arg(likePattern(q.search))
		w.add("(wo.title ILIKE " + p + " OR wo.description ILIKE " + p + ")")
	}
	return w
}

const priorityRankSQL = "CASE wo.priority WHEN 'HIGH' THEN 0 WHEN 'MEDIUM' THEN 1 ELSE 2 END"

func (q WorkOrderQuery) orderSQL() string {
	switch q.order {
	case WorkOrderOrderDeadlineDesc:
		return "wo.deadline DESC, wo.id DESC"
	case WorkOrderOrderPriority:
		return priorityRankSQL + " ASC, wo.deadline ASC, wo.id DESC"
	case WorkOrderOrderPriorityDesc:
		return priorityRankSQL + " DESC, wo.deadline ASC, wo.id DESC"
	case WorkOrderOrderCreated:
		return "wo.created_at DESC, wo.id DESC"
	case WorkOrderOrderCreatedAsc:
		return "wo.created_at ASC, wo.id DESC"
	case WorkOrderOrderBuilding:
		return "lower(b.name) ASC, wo.deadline ASC, wo.id DESC"
	case WorkOrderOrderBuildingDesc:
		return "lower(b.name) DESC, wo.deadline ASC, wo.id DESC"
	default:
		return "wo.deadline ASC, wo.id DESC"
	}
}

func idIn(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func statusIn(list []models.WorkOrderStatus, s models.WorkOrderStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func priorityIn(list []models.WorkOrderPriority, p models.WorkOrderPriority) bool {
	for _, x := range list {
		if x == p {
			return true
		}
	}
	return false
}
