package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionSet_JSON(t *testing.T) {
	set := NewPermissionSet(PermViewAdmin, PermManagePosts, PermViewAdmin)
	assert.Len(t, set, 2)

	raw, err := json.Marshal(set)
	require.NoError(t, err)
	assert.JSONEq(t, `["manage_posts","view_admin"]`, string(raw))

	var back PermissionSet
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Has(PermManagePosts))
	assert.False(t, back.Has(PermManageRoles))
}

func TestParsePermissions(t *testing.T) {
	set, err := ParsePermissions([]string{"manage_posts", "manage_posts", "edit_any_post"})
	require.NoError(t, err)
	assert.Equal(t, []Permission{PermEditAnyPost, PermManagePosts}, set.Slice())

	_, err = ParsePermissions([]string{"manage_posts", "fly"})
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "permissions", ve.Field)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestPermission_Vocabulary(t *testing.T) {
	all := AllPermissions()
	assert.Len(t, all, 8)
	for _, p := range all {
		assert.True(t, p.IsKnown())
		assert.NotEqual(t, string(p), p.Label())
	}
	assert.Equal(t, "bogus", Permission("bogus").Label())

	// Callers cannot mutate the vocabulary through the returned slice.
	info := Permissions()
	info[0].Label = "changed"
	assert.Equal(t, "Manage posts", Permissions()[0].Label)
}

func TestRole_Grants(t *testing.T) {
	owner := NewOwnerRole()
	assert.True(t, owner.Grants(PermManageRoles))
	assert.True(t, owner.Grants(Permission("added_later")), "superuser holds every permission")

	helper := NewRole("Helper", "helper", NewPermissionSet(PermViewAdmin))
	assert.True(t, helper.Grants(PermViewAdmin))
	assert.False(t, helper.Grants(PermManagePosts))
	assert.False(t, helper.System)
}

func TestRoleIDFromName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Admin", "admin"},
		{"  Event   Team ", "event_team"},
		{"VIP\tSupport", "vip_support"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoleIDFromName(tt.name))
		})
	}
}

func TestDefaultRoles(t *testing.T) {
	roles := DefaultRoles()
	ids := make([]string, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{OwnerRoleID, "admin", "moderator", "helper"}, ids)
	assert.True(t, roles[0].System)
	assert.False(t, roles[1].Grants(PermManageRoles), "only the owner manages roles by default")
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		field string
	}{
		{"role name short", ValidateRoleName("ab"), "name"},
		{"role name blank", ValidateRoleName("   "), "name"},
		{"role name with slash", ValidateRoleName("Team/Lead"), "name"},
		{"role name with percent", ValidateRoleName("100% Mods"), "name"},
		{"role name with query", ValidateRoleName("mods?x=1"), "name"},
		{"username short", ValidateUsername("ab"), "username"},
		{"username long", ValidateUsername(strings.Repeat("x", UsernameMaxLength+1)), "username"},
		{"password short", ValidatePassword("abc"), "password"},
		{"title short", ValidatePostTitle("Hey"), "title"},
		{"title long", ValidatePostTitle(strings.Repeat("t", PostTitleMaxLength+1)), "title"},
		{"content short", ValidatePostContent("too short"), "content"},
		{"reply blank", ValidateReply("  "), "content"},
		{"reply long", ValidateReply(strings.Repeat("r", ReplyMaxLength+1)), "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *ValidationError
			require.True(t, errors.As(tt.err, &ve), "got %v", tt.err)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	assert.NoError(t, ValidateRoleName("Mod"))
	assert.NoError(t, ValidateRoleName("Event Team-2"))
	assert.NoError(t, ValidateUsername("Steve"))
	assert.NoError(t, ValidatePassword("pass"))
	assert.NoError(t, ValidatePostTitle(strings.Repeat("t", PostTitleMaxLength)))
	assert.NoError(t, ValidateReply("ok!"))
}

func TestPost(t *testing.T) {
	p := NewPost("  Weekend events  ", "Drop parties on Saturday.", SystemAuthor("Admin"))
	assert.Equal(t, "Weekend events", p.Title)
	assert.NotNil(t, p.Replies)
	require.NoError(t, p.Validate())

	assert.True(t, p.Matches("SATURDAY"))
	assert.True(t, p.Matches("admin"))
	assert.True(t, p.Matches(""))
	assert.False(t, p.Matches("tournament"))

	steve := &Principal{ID: "u1", Username: "Steve", Kind: KindUser}
	assert.False(t, p.Author.IsOwnedBy(steve), "system content has no owner")
	assert.True(t, steve.AsAuthor().IsOwnedBy(steve))
	assert.False(t, steve.AsAuthor().IsOwnedBy(nil))
}

func TestProduct(t *testing.T) {
	p := NewProduct(" VIP ", 4.99, []string{" Prefix ", "", "  "}, false)
	assert.Equal(t, "VIP", p.Name)
	assert.Equal(t, []string{"Prefix"}, p.Features)
	require.NoError(t, p.Validate())

	tests := []struct {
		name    string
		product *Product
		field   string
	}{
		{"no name", NewProduct(" ", 1, []string{"a"}, false), "name"},
		{"zero price", NewProduct("VIP", 0, []string{"a"}, false), "price"},
		{"negative price", NewProduct("VIP", -1, []string{"a"}, false), "price"},
		{"no features", NewProduct("VIP", 1, []string{" "}, false), "features"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *ValidationError
			require.True(t, errors.As(tt.product.Validate(), &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSession_Expired(t *testing.T) {
	p := &Principal{ID: "s1", Kind: KindStaff}
	s := NewSession("sess", p, time.Hour)
	assert.Equal(t, KindStaff, s.Kind)
	assert.False(t, s.Expired(s.CreatedAt))
	assert.True(t, s.Expired(s.ExpiresAt))
	assert.True(t, s.Expired(s.ExpiresAt.Add(time.Second)))
}

func TestPrincipal_Public(t *testing.T) {
	p := NewPrincipal(KindStaff, "TheOwner", "$2a$hash", []string{OwnerRoleID})
	pub := p.Public()

	raw, err := json.Marshal(pub)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hash")

	pub.Roles[0] = "changed"
	assert.True(t, p.HasRole(OwnerRoleID), "public copy does not alias roles")
	assert.False(t, PrincipalKind("bot").Valid())
}

func TestDomainError(t *testing.T) {
	err := NewDomainError(ErrNotFound, "post not found", "p1")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, "not found: post not found (p1)", err.Error())
	assert.Equal(t, "not found", NewDomainError(ErrNotFound, "", "").Error())
}
