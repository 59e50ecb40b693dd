package service

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminosmc/luminos-community/internal/config"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/lock"
)

func newSeedHarness(t *testing.T, cfg config.BootstrapConfig) (*harness, *Seeder) {
	t.Helper()
	h := buildHarness(t, false)

	locker := lock.NewMemoryLocker()
	return h, NewSeeder(h.repos, h.staff, locker, cfg, zerolog.Nop())
}

func TestSeeder_Seed(t *testing.T) {
	ctx := context.Background()
	h, seeder := newSeedHarness(t, config.BootstrapConfig{OwnerUsername: "TheOwner", OwnerPassword: "ownerpass", SampleContent: true})

	res, err := seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Roles)
	assert.Equal(t, len(domain.DefaultProducts()), res.Products)
	assert.Equal(t, len(domain.DefaultPosts()), res.Posts)
	require.NotNil(t, res.Owner)
	assert.Empty(t, res.GeneratedPassword)

	owner, err := h.repos.Staff.Get(ctx, res.Owner.ID)
	require.NoError(t, err)
	assert.True(t, owner.Root)
	assert.Equal(t, []string{domain.OwnerRoleID}, owner.Roles)
	require.NoError(t, h.hasher.Compare(owner.PasswordHash, "ownerpass"))

	role, err := h.repos.Roles.Get(ctx, domain.OwnerRoleID)
	require.NoError(t, err)
	assert.True(t, role.System)
	assert.True(t, role.Superuser)

	// Seeded posts are authored by the system.
	posts, err := h.repos.Posts.List(ctx)
	require.NoError(t, err)
	for _, p := range posts {
		assert.Equal(t, domain.AuthorSystem, p.Author.Kind)
	}

	// Running again writes nothing.
	res, err = seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Roles)
	assert.Zero(t, res.Products)
	assert.Zero(t, res.Posts)
	assert.Nil(t, res.Owner)
}

func TestSeeder_GeneratesOwnerPassword(t *testing.T) {
	ctx := context.Background()
	h, seeder := newSeedHarness(t, config.BootstrapConfig{OwnerUsername: "TheOwner"})

	res, err := seeder.Seed(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, res.GeneratedPassword)
	assert.Zero(t, res.Products, "sample content disabled")

	owner, err := h.repos.Staff.Get(ctx, res.Owner.ID)
	require.NoError(t, err)
	assert.NoError(t, h.hasher.Compare(owner.PasswordHash, res.GeneratedPassword))
}

func TestSeeder_Concurrent(t *testing.T) {
	ctx := context.Background()
	h, seeder := newSeedHarness(t, config.BootstrapConfig{OwnerUsername: "TheOwner", OwnerPassword: "ownerpass", SampleContent: true})

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = seeder.Seed(ctx)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	staff, err := h.repos.Staff.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, staff, "exactly one root owner")

	products, err := h.repos.Products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(domain.DefaultProducts()), products)
}
