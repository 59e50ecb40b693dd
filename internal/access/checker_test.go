package access

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/repository"
)

// mockRoleSource is a map-backed RoleSource.
type mockRoleSource struct {
	roles map[string]*domain.Role
	err   error
	calls int
}

func newMockRoleSource(roles ...*domain.Role) *mockRoleSource {
	m := &mockRoleSource{roles: make(map[string]*domain.Role)}
	for _, r := range roles {
		m.roles[r.ID] = r
	}
	return m
}

func (m *mockRoleSource) Get(ctx context.Context, id string) (*domain.Role, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r, nil
}

type countingObserver struct{ denied []domain.Permission }

func (o *countingObserver) PermissionDenied(p domain.Permission) { o.denied = append(o.denied, p) }

func principalWith(roles ...string) *domain.Principal {
	p := domain.NewPrincipal(domain.KindStaff, "tester", "", roles)
	p.ID = "p-1"
	return p
}

func TestChecker_HasPermission(t *testing.T) {
	ctx := context.Background()
	writer := domain.NewRole("Writer", "blue", domain.NewPermissionSet(domain.PermManagePosts))
	support := domain.NewRole("Support", "red", domain.NewPermissionSet(domain.PermManageUsers, domain.PermViewAdmin))
	roles := newMockRoleSource(domain.NewOwnerRole(), writer, support)
	c := NewChecker(roles, zerolog.Nop())

	tests := []struct {
		name      string
		principal *domain.Principal
		perm      domain.Permission
		want      bool
	}{
		{name: "nil principal", principal: nil, perm: domain.PermManagePosts, want: false},
		{name: "no roles", principal: principalWith(), perm: domain.PermViewAdmin, want: false},
		{name: "granted", principal: principalWith("writer"), perm: domain.PermManagePosts, want: true},
		{name: "not granted", principal: principalWith("writer"), perm: domain.PermManageRoles, want: false},
		{name: "union of roles", principal: principalWith("writer", "support"), perm: domain.PermManageUsers, want: true},
		{name: "unknown role skipped", principal: principalWith("ghost", "writer"), perm: domain.PermManagePosts, want: true},
		{name: "only unknown role", principal: principalWith("ghost"), perm: domain.PermManagePosts, want: false},
		{name: "owner has everything", principal: principalWith(domain.OwnerRoleID), perm: domain.PermManageRoles, want: true},
		{name: "owner has unlisted permission", principal: principalWith(domain.OwnerRoleID), perm: domain.Permission("launch_fireworks"), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.HasPermission(ctx, tt.principal, tt.perm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// For a non-owner role, HasPermission matches set membership exactly.
func TestChecker_HasPermissionMatchesRoleSet(t *testing.T) {
	ctx := context.Background()
	granted := []domain.Permission{domain.PermManagePosts, domain.PermDeleteAnyPost, domain.PermViewAdmin}
	role := domain.NewRole("Moderatore", "moderator", domain.NewPermissionSet(granted...))
	c := NewChecker(newMockRoleSource(role), zerolog.Nop())
	p := principalWith(role.ID)

	for _, perm := range domain.AllPermissions() {
		got, err := c.HasPermission(ctx, p, perm)
		require.NoError(t, err)
		assert.Equal(t, role.Permissions.Has(perm), got, "permission %s", perm)
	}
}

func TestChecker_Require(t *testing.T) {
	ctx := context.Background()
	writer := domain.NewRole("Writer", "blue", domain.NewPermissionSet(domain.PermManagePosts))
	obs := &countingObserver{}
	c := NewChecker(newMockRoleSource(writer), zerolog.Nop()).WithObserver(obs)

	tests := []struct {
		name      string
		principal *domain.Principal
		perm      domain.Permission
		wantErr   error
	}{
		{name: "anonymous", principal: nil, perm: domain.PermManagePosts, wantErr: domain.ErrNotAuthenticated},
		{name: "denied", principal: principalWith("writer"), perm: domain.PermManageRoles, wantErr: domain.ErrPermissionDenied},
		{name: "allowed", principal: principalWith("writer"), perm: domain.PermManagePosts, wantErr: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Require(ctx, tt.principal, tt.perm)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.Equal(t, []domain.Permission{domain.PermManageRoles}, obs.denied)
}

func TestChecker_Effective(t *testing.T) {
	ctx := context.Background()
	writer := domain.NewRole("Writer", "blue", domain.NewPermissionSet(domain.PermManagePosts))
	support := domain.NewRole("Support", "red", domain.NewPermissionSet(domain.PermManageUsers, domain.PermManagePosts))
	c := NewChecker(newMockRoleSource(domain.NewOwnerRole(), writer, support), zerolog.Nop())

	got, err := c.Effective(ctx, principalWith("writer", "support", "ghost"))
	require.NoError(t, err)
	assert.Equal(t, []domain.Permission{domain.PermManagePosts, domain.PermManageUsers}, got)

	got, err = c.Effective(ctx, principalWith(domain.OwnerRoleID))
	require.NoError(t, err)
	assert.Len(t, got, len(domain.AllPermissions()))

	got, err = c.Effective(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChecker_ResolvesEveryCall(t *testing.T) {
	ctx := context.Background()
	writer := domain.NewRole("Writer", "blue", domain.NewPermissionSet(domain.PermManagePosts))
	roles := newMockRoleSource(writer)
	c := NewChecker(roles, zerolog.Nop())
	p := principalWith("writer")

	ok, err := c.HasPermission(ctx, p, domain.PermManagePosts)
	require.NoError(t, err)
	assert.True(t, ok)

	// Revoking the permission takes effect immediately.
	writer.Permissions = domain.NewPermissionSet()
	ok, err = c.HasPermission(ctx, p, domain.PermManagePosts)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, roles.calls)
}

func TestChecker_StoreError(t *testing.T) {
	roles := newMockRoleSource()
	roles.err = errors.New("connection reset")
	c := NewChecker(roles, zerolog.Nop())

	_, err := c.HasPermission(context.Background(), principalWith("writer"), domain.PermManagePosts)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrPermissionDenied))
}
