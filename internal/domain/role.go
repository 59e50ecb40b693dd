package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// RoleNameMinLength is the minimum role name length in characters.
	RoleNameMinLength = 3

	// OwnerRoleID is the identifier of the built-in Owner role.
	OwnerRoleID = "owner"
)

// Role is a named bundle of permissions assignable to principals.
type Role struct {
	// ID is the slug derived from the name at creation time. It never changes.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Color is a cosmetic badge tag.
	Color string `json:"color"`

	// Permissions is the set of concrete permissions granted by the role.
	Permissions PermissionSet `json:"permissions"`

	// System marks roles that cannot be edited or deleted.
	System bool `json:"system"`

	// Superuser marks the Owner role. A superuser role holds every permission,
	// including permissions added to the vocabulary after the role was created.
	Superuser bool `json:"superuser"`

	// CreatedAt is the timestamp when the role was created.
	CreatedAt time.Time `json:"created_at"`
}

// NewRole creates an ordinary (non-system) role. The identifier is derived from name.
func NewRole(name, color string, perms PermissionSet) *Role {
	if perms == nil {
		perms = NewPermissionSet()
	}
	return &Role{
		ID:          RoleIDFromName(name),
		Name:        strings.TrimSpace(name),
		Color:       color,
		Permissions: perms,
		CreatedAt:   time.Now().UTC(),
	}
}

// NewOwnerRole builds the immutable Owner role.
func NewOwnerRole() *Role {
	return &Role{
		ID:          OwnerRoleID,
		Name:        "Owner",
		Color:       "owner",
		Permissions: NewPermissionSet(AllPermissions()...),
		System:      true,
		Superuser:   true,
		CreatedAt:   time.Now().UTC(),
	}
}

// Grants reports whether the role carries p.
func (r *Role) Grants(p Permission) bool {
	if r.Superuser {
		return true
	}
	return r.Permissions.Has(p)
}

// RoleIDFromName lowercases name and collapses whitespace runs into underscores.
func RoleIDFromName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}

// ValidateRoleName checks the role name constraints.
func ValidateRoleName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return NewValidationError("name", "role name is required")
	}
	if utf8.RuneCountInString(name) < RoleNameMinLength {
		return NewValidationError("name", "role name must be at least %d characters", RoleNameMinLength)
	}
	if id := RoleIDFromName(name); !roleIDPattern.MatchString(id) {
		return NewValidationError("name", "role name may only contain letters a-z, digits, spaces, '-' and '_' (id %q)", id)
	}
	return nil
}

// roleIDPattern keeps role ids usable as a single URL path segment.
var roleIDPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// DefaultRoles returns the roles seeded on first run.
func DefaultRoles() []*Role {
	admin := NewRole("Admin", "admin", NewPermissionSet(
		PermManagePosts, PermManageStaff, PermViewAdmin,
		PermDeleteAnyPost, PermEditAnyPost, PermManageUsers,
	))
	moderator := NewRole("Moderatore", "moderator", NewPermissionSet(
		PermManagePosts, PermViewAdmin, PermDeleteAnyPost,
	))
	moderator.ID = "moderator"
	helper := NewRole("Helper", "helper", NewPermissionSet(PermViewAdmin))

	return []*Role{NewOwnerRole(), admin, moderator, helper}
}
