package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminosmc/luminos-community/internal/cache"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/pkg/crypto"
)

type loginCounter struct {
	ok, failed int
}

func (c *loginCounter) LoginAttempt(kind domain.PrincipalKind, success bool) {
	if success {
		c.ok++
	} else {
		c.failed++
	}
}

// Mario registers with pass1234, logs in, and nobody else can take the name.
func TestSession_MarioScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	mario, err := h.users.Register(ctx, RegisterInput{Username: "Mario", Password: "pass1234"})
	require.NoError(t, err)
	assert.Equal(t, domain.KindUser, mario.Kind)
	assert.NotEqual(t, "pass1234", mario.PasswordHash)

	out, err := h.session.Login(ctx, LoginInput{Kind: domain.KindUser, Username: "Mario", Password: "pass1234"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, mario.ID, out.Principal.ID)

	restored, err := h.session.Restore(ctx, out.Token)
	require.NoError(t, err)
	assert.Equal(t, mario.ID, restored.ID)

	_, err = h.users.Register(ctx, RegisterInput{Username: "Mario", Password: "other-pass"})
	assertErrorIs(t, err, domain.ErrDuplicateUsername)
}

func TestSessionService_Login(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	obs := &loginCounter{}
	h.session.observer = obs

	_, err := h.users.Register(ctx, RegisterInput{Username: "Mario", Password: "pass1234"})
	require.NoError(t, err)
	h.staffMember(t, "Luca", "helper") // password "secret"

	tests := []struct {
		name    string
		input   LoginInput
		wantErr error
	}{
		{name: "user ok", input: LoginInput{Kind: domain.KindUser, Username: "Mario", Password: "pass1234"}},
		{name: "staff ok", input: LoginInput{Kind: domain.KindStaff, Username: "Luca", Password: "secret"}},
		{name: "wrong password", input: LoginInput{Kind: domain.KindUser, Username: "Mario", Password: "nope"}, wantErr: domain.ErrInvalidCredentials},
		{name: "unknown user", input: LoginInput{Kind: domain.KindUser, Username: "Wario", Password: "pass1234"}, wantErr: domain.ErrInvalidCredentials},
		{name: "user is not staff", input: LoginInput{Kind: domain.KindStaff, Username: "Mario", Password: "pass1234"}, wantErr: domain.ErrInvalidCredentials},
		{name: "bad kind", input: LoginInput{Kind: "robot", Username: "Mario", Password: "pass1234"}, wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.session.Login(ctx, tt.input)
			if tt.wantErr != nil {
				assertErrorIs(t, err, tt.wantErr)
				assert.Nil(t, out)
				return
			}
			require.NoError(t, err)

			ok, err := h.sessions.Exists(ctx, cache.Keys.Session(out.Session.ID))
			require.NoError(t, err)
			assert.True(t, ok, "session record stored")
			assert.Equal(t, tt.input.Kind, out.Session.Kind)
		})
	}

	assert.Equal(t, 2, obs.ok)
	assert.Equal(t, 3, obs.failed)
}

// countingHasher records the hashes every Compare call checks against.
type countingHasher struct {
	*crypto.PasswordHasher
	compared []string
}

func (c *countingHasher) Compare(hash, password string) error {
	c.compared = append(c.compared, hash)
	return c.PasswordHasher.Compare(hash, password)
}

func TestSessionService_LoginComparesUnknownUsers(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	counter := &countingHasher{PasswordHasher: h.hasher}
	h.session.hasher = counter

	mario, err := h.users.Register(ctx, RegisterInput{Username: "Mario", Password: "pass1234"})
	require.NoError(t, err)

	_, err = h.session.Login(ctx, LoginInput{Kind: domain.KindUser, Username: "Mario", Password: "wrong-pass"})
	assertErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = h.session.Login(ctx, LoginInput{Kind: domain.KindUser, Username: "Wario", Password: "wrong-pass"})
	assertErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = h.session.Login(ctx, LoginInput{Kind: domain.KindUser, Username: "Wario", Password: decoyPassword})
	assertErrorIs(t, err, domain.ErrInvalidCredentials)

	require.Len(t, counter.compared, 3, "bcrypt runs for known and unknown usernames alike")
	assert.Equal(t, mario.PasswordHash, counter.compared[0])
	assert.NotEmpty(t, counter.compared[1])
	assert.Equal(t, counter.compared[1], counter.compared[2], "the decoy hash is computed once")
	assert.NotEqual(t, mario.PasswordHash, counter.compared[1])
}

func TestSessionService_Logout(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.staffMember(t, "Luca", "helper")

	out, err := h.session.Login(ctx, LoginInput{Kind: domain.KindStaff, Username: "Luca", Password: "secret"})
	require.NoError(t, err)

	require.NoError(t, h.session.Logout(ctx, out.Token))

	_, err = h.session.Restore(ctx, out.Token)
	assertErrorIs(t, err, domain.ErrNotAuthenticated)

	// Logging out twice is fine; garbage is not.
	assert.NoError(t, h.session.Logout(ctx, out.Token))
	assertErrorIs(t, h.session.Logout(ctx, "garbage"), domain.ErrNotAuthenticated)
}

func TestSessionService_Restore(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	luca := h.staffMember(t, "Luca", "helper")

	out, err := h.session.Login(ctx, LoginInput{Kind: domain.KindStaff, Username: "Luca", Password: "secret"})
	require.NoError(t, err)

	t.Run("sees role changes", func(t *testing.T) {
		_, err := h.staff.Update(ctx, h.owner(t), luca.ID, UpdateStaffInput{Roles: []string{"admin"}})
		require.NoError(t, err)

		p, err := h.session.Restore(ctx, out.Token)
		require.NoError(t, err)
		assert.Equal(t, []string{"admin"}, p.Roles)
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := h.session.Restore(ctx, "not.a.token")
		assertErrorIs(t, err, domain.ErrNotAuthenticated)
	})

	t.Run("deleted principal", func(t *testing.T) {
		require.NoError(t, h.repos.Staff.Delete(ctx, luca.ID))
		_, err := h.session.Restore(ctx, out.Token)
		assertErrorIs(t, err, domain.ErrNotAuthenticated)
	})
}

func TestSessionService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	mario := h.forumUser(t, "Mario") // password "secret"

	tests := []struct {
		name    string
		actor   *domain.Principal
		input   ChangePasswordInput
		wantErr error
	}{
		{name: "anonymous", actor: nil, input: ChangePasswordInput{OldPassword: "secret", NewPassword: "newpass"}, wantErr: domain.ErrNotAuthenticated},
		{name: "wrong old", actor: mario, input: ChangePasswordInput{OldPassword: "nope", NewPassword: "newpass"}, wantErr: domain.ErrInvalidCredentials},
		{name: "new too short", actor: mario, input: ChangePasswordInput{OldPassword: "secret", NewPassword: "abc"}, wantErr: domain.ErrValidation},
		{name: "ok", actor: mario, input: ChangePasswordInput{OldPassword: "secret", NewPassword: "newpass"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertErrorIs(t, h.session.ChangePassword(ctx, tt.actor, tt.input), tt.wantErr)
		})
	}

	_, err := h.session.Login(ctx, LoginInput{Kind: domain.KindUser, Username: "Mario", Password: "secret"})
	assertErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = h.session.Login(ctx, LoginInput{Kind: domain.KindUser, Username: "Mario", Password: "newpass"})
	assert.NoError(t, err)
}

func TestSessionService_Me(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	helper := h.staffMember(t, "Luca", "helper")

	_, err := h.session.Me(ctx, nil)
	assertErrorIs(t, err, domain.ErrNotAuthenticated)

	me, err := h.session.Me(ctx, helper)
	require.NoError(t, err)
	assert.Equal(t, []domain.Permission{domain.PermViewAdmin}, me.Permissions)

	me, err = h.session.Me(ctx, h.forumUser(t, "Mario"))
	require.NoError(t, err)
	assert.Empty(t, me.Permissions)
}
