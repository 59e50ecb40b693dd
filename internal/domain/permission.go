package domain

import (
	"encoding/json"
	"sort"
)

// Permission is a single named capability flag gating one class of mutation.
type Permission string

// The closed permission vocabulary.
const (
	PermManagePosts    Permission = "manage_posts"
	PermManageStaff    Permission = "manage_staff"
	PermManageProducts Permission = "manage_products"
	PermManageRoles    Permission = "manage_roles"
	PermViewAdmin      Permission = "view_admin"
	PermDeleteAnyPost  Permission = "delete_any_post"
	PermEditAnyPost    Permission = "edit_any_post"
	PermManageUsers    Permission = "manage_users"
)

// PermissionInfo describes a permission for admin screens.
type PermissionInfo struct {
	ID    Permission `json:"id"`
	Label string     `json:"label"`
}

// vocabulary lists every known permission in display order.
var vocabulary = []PermissionInfo{
	{ID: PermManagePosts, Label: "Manage posts"},
	{ID: PermManageStaff, Label: "Manage staff"},
	{ID: PermManageProducts, Label: "Manage products"},
	{ID: PermManageRoles, Label: "Manage roles"},
	{ID: PermViewAdmin, Label: "Admin access"},
	{ID: PermDeleteAnyPost, Label: "Delete any post"},
	{ID: PermEditAnyPost, Label: "Edit any post"},
	{ID: PermManageUsers, Label: "Manage forum users"},
}

// Permissions returns the full vocabulary in display order.
func Permissions() []PermissionInfo {
	out := make([]PermissionInfo, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// AllPermissions returns every permission identifier in display order.
func AllPermissions() []Permission {
	out := make([]Permission, 0, len(vocabulary))
	for _, info := range vocabulary {
		out = append(out, info.ID)
	}
	return out
}

// IsKnown reports whether p belongs to the vocabulary.
func (p Permission) IsKnown() bool {
	for _, info := range vocabulary {
		if info.ID == p {
			return true
		}
	}
	return false
}

// Label returns the human label, or the raw identifier for unknown permissions.
func (p Permission) Label() string {
	for _, info := range vocabulary {
		if info.ID == p {
			return info.Label
		}
	}
	return string(p)
}

// PermissionSet is an unordered set of permissions.
// It serializes as a sorted JSON array.
type PermissionSet map[Permission]struct{}

// NewPermissionSet builds a set from perms, dropping duplicates.
func NewPermissionSet(perms ...Permission) PermissionSet {
	s := make(PermissionSet, len(perms))
	for _, p := range perms {
		s[p] = struct{}{}
	}
	return s
}

// Has reports membership.
func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// Add inserts p.
func (s PermissionSet) Add(p Permission) {
	s[p] = struct{}{}
}

// Union adds every member of other to s.
func (s PermissionSet) Union(other PermissionSet) {
	for p := range other {
		s[p] = struct{}{}
	}
}

// Slice returns the members sorted by identifier.
func (s PermissionSet) Slice() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MarshalJSON encodes the set as a sorted array.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes an array of permission identifiers.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var perms []Permission
	if err := json.Unmarshal(data, &perms); err != nil {
		return err
	}
	*s = NewPermissionSet(perms...)
	return nil
}

// ParsePermissions converts raw names into a set, rejecting names outside the vocabulary.
func ParsePermissions(names []string) (PermissionSet, error) {
	set := make(PermissionSet, len(names))
	for _, name := range names {
		p := Permission(name)
		if !p.IsKnown() {
			return nil, NewValidationError("permissions", "unknown permission %q", name)
		}
		set.Add(p)
	}
	return set, nil
}
