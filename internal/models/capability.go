package models

import (
	"encoding/json"
	"slices"
)

// Capability is a named permission gating one class of view or mutation.
type Capability string

const (
	CapViewAllBuildings  Capability = "view_all_buildings"
	CapManageBuildings   Capability = "manage_buildings"
	CapCreateUnits       Capability = "create_units"
	CapCreateWorkOrders  Capability = "create_work_orders"
	CapMassAssign        Capability = "mass_assign"
	CapApproveWorkOrders Capability = "approve_work_orders"
	CapViewAuditLog      Capability = "view_audit_log"
	CapManageMemberships Capability = "manage_memberships"
	CapViewUsers         Capability = "view_users"
)

var AllCapabilities = []Capability{
	CapViewAllBuildings,
	CapManageBuildings,
	CapCreateUnits,
	CapCreateWorkOrders,
	CapMassAssign,
	CapApproveWorkOrders,
	CapViewAuditLog,
	CapManageMemberships,
	CapViewUsers,
}

func (c Capability) Valid() bool { return slices.Contains(AllCapabilities, c) }

// CapabilitySet is an unordered set of capabilities.
type CapabilitySet map[Capability]struct{}

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

func (s CapabilitySet) Add(caps ...Capability) {
	for _, c := range caps {
		s[c] = struct{}{}
	}
}

func (s CapabilitySet) Remove(caps ...Capability) {
	for _, c := range caps {
		delete(s, c)
	}
}

func (s CapabilitySet) Union(other CapabilitySet) {
	for c := range other {
		s[c] = struct{}{}
	}
}

func (s CapabilitySet) Clone() CapabilitySet {
	out := make(CapabilitySet, len(s))
	out.Union(s)
	return out
}

func (s CapabilitySet) Equal(other CapabilitySet) bool {
	if len(s) != len(other) {
		return false
	}
	for c := range s {
		if !other.Has(c) {
			return false
		}
	}
	return true
}

// Sorted returns the members in lexical order, for stable output.
func (s CapabilitySet) Sorted() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// CapabilityOverride adjusts a role's default capabilities for one membership.
type CapabilityOverride struct {
	Add    []Capability `json:"add"`
	Remove []Capability `json:"remove"`
}

// Normalize dedups both lists keeping first occurrences and drops blanks.
func (o CapabilityOverride) Normalize() CapabilityOverride {
	return CapabilityOverride{Add: dedupCapabilities(o.Add), Remove: dedupCapabilities(o.Remove)}
}

func (o CapabilityOverride) IsEmpty() bool {
	return len(o.Add) == 0 && len(o.Remove) == 0
}

// Apply returns (defaults ∪ add) − remove as a new set.
func (o CapabilityOverride) Apply(defaults CapabilitySet) CapabilitySet {
	out := defaults.Clone()
	out.Add(o.Add...)
	out.Remove(o.Remove...)
	return out
}

func dedupCapabilities(in []Capability) []Capability {
	out := make([]Capability, 0, len(in))
	seen := make(map[Capability]struct{}, len(in))
	for _, c := range in {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// ParseCapabilityOverride decodes a stored override. Malformed data degrades
// to an empty override; the returned error only tells the caller to log it.
// A list that fails to decode is treated as empty without discarding the
// other one.
func ParseCapabilityOverride(raw []byte) (CapabilityOverride, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return CapabilityOverride{}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return CapabilityOverride{}, err
	}
	var (
		out      CapabilityOverride
		firstErr error
	)
	decode := func(name string) []Capability {
		v, ok := fields[name]
		if !ok || string(v) == "null" {
			return nil
		}
		var list []Capability
		if err := json.Unmarshal(v, &list); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return nil
		}
		return list
	}
	out.Add = decode("add")
	out.Remove = decode("remove")
	return out.Normalize(), firstErr
}

// MarshalJSON always emits both keys so stored rows have a stable shape.
func (o CapabilityOverride) MarshalJSON() ([]byte, error) {
	n := o.Normalize()
	type wire struct {
		Add    []Capability `json:"add"`
		Remove []Capability `json:"remove"`
	}
	return json.Marshal(wire{Add: n.Add, Remove: n.Remove})
}

// UnmarshalJSON never fails; see ParseCapabilityOverride.
func (o *CapabilityOverride) UnmarshalJSON(raw []byte) error {
	*o, _ = ParseCapabilityOverride(raw)
	return nil
}
