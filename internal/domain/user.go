// Package domain contains the core business entities for the Luminos community site.
// These are plain Go structs with no infrastructure dependencies, representing
// principals, roles, forum content and store products.
package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Credential constraints.
const (
	UsernameMinLength = 3
	UsernameMaxLength = 32
	PasswordMinLength = 4
)

// PrincipalKind distinguishes forum users from staff accounts.
type PrincipalKind string

const (
	// KindUser is an ordinary forum user.
	KindUser PrincipalKind = "user"

	// KindStaff is a staff/admin account.
	KindStaff PrincipalKind = "staff"
)

// Valid reports whether k is a known principal kind.
func (k PrincipalKind) Valid() bool {
	return k == KindUser || k == KindStaff
}

// Principal is an authenticated actor: a forum user or a staff member.
// Both kinds share the same shape and either may hold roles.
type Principal struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`

	// Username is unique within the principal's kind.
	Username string `json:"username"`

	// PasswordHash is the bcrypt hash of the password.
	// This should never be exposed in API responses.
	PasswordHash string `json:"password_hash"`

	// Kind tells which collection the principal lives in.
	Kind PrincipalKind `json:"kind"`

	// Roles lists assigned role identifiers.
	Roles []string `json:"roles"`

	// Root marks the designated root Owner, which can never be deleted.
	Root bool `json:"root,omitempty"`

	// CreatedAt is the timestamp when the principal was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp when the principal was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPrincipal creates a new Principal with default values.
func NewPrincipal(kind PrincipalKind, username, passwordHash string, roles []string) *Principal {
	now := time.Now().UTC()
	if roles == nil {
		roles = []string{}
	}
	return &Principal{
		Username:     username,
		PasswordHash: passwordHash,
		Kind:         kind,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasRole reports whether roleID is assigned.
func (p *Principal) HasRole(roleID string) bool {
	for _, r := range p.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// AsAuthor returns the author stamp for content created by p.
func (p *Principal) AsAuthor() Author {
	return Author{ID: p.ID, Name: p.Username, Kind: AuthorKind(p.Kind)}
}

// ValidateUsername checks username constraints.
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return NewValidationError("username", "username is required")
	}
	n := utf8.RuneCountInString(username)
	if n < UsernameMinLength {
		return NewValidationError("username", "username must be at least %d characters", UsernameMinLength)
	}
	if n > UsernameMaxLength {
		return NewValidationError("username", "username must be at most %d characters", UsernameMaxLength)
	}
	return nil
}

// ValidatePassword checks password constraints.
func ValidatePassword(password string) error {
	if password == "" {
		return NewValidationError("password", "password is required")
	}
	if utf8.RuneCountInString(password) < PasswordMinLength {
		return NewValidationError("password", "password must be at least %d characters", PasswordMinLength)
	}
	return nil
}

// PublicPrincipal is the externally visible shape of a principal. It never
// carries the password hash.
type PublicPrincipal struct {
	ID        string        `json:"id"`
	Username  string        `json:"username"`
	Kind      PrincipalKind `json:"kind"`
	Roles     []string      `json:"roles"`
	Root      bool          `json:"root,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// Public returns p without secrets.
func (p *Principal) Public() PublicPrincipal {
	roles := make([]string, len(p.Roles))
	copy(roles, p.Roles)
	return PublicPrincipal{
		ID:        p.ID,
		Username:  p.Username,
		Kind:      p.Kind,
		Roles:     roles,
		Root:      p.Root,
		CreatedAt: p.CreatedAt,
	}
}
