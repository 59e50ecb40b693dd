package service

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/luminosmc/luminos-community/internal/access"
	"github.com/luminosmc/luminos-community/internal/domain"
)

// Stats holds the back office counters.
type Stats struct {
	Posts    int `json:"posts"`
	Users    int `json:"users"`
	Staff    int `json:"staff"`
	Products int `json:"products"`
	Roles    int `json:"roles"`
}

type counter interface {
	Count(ctx context.Context) (int, error)
}

// StatsService reports entity counts for the admin dashboard.
type StatsService struct {
	checker  *access.Checker
	posts    counter
	users    counter
	staff    counter
	products counter
	roles    counter
	logger   zerolog.Logger
}

// NewStatsService creates a new StatsService.
func NewStatsService(checker *access.Checker, posts *PostService, users *UserService, staff *StaffService, products *ProductService, roles *RoleService, logger zerolog.Logger) *StatsService {
	return &StatsService{
		checker:  checker,
		posts:    posts,
		users:    users,
		staff:    staff,
		products: products,
		roles:    roles,
		logger:   logger.With().Str("service", "stats").Logger(),
	}
}

// Stats counts every collection. Requires view_admin.
func (s *StatsService) Stats(ctx context.Context, actor *domain.Principal) (*Stats, error) {
	if err := s.checker.Require(ctx, actor, domain.PermViewAdmin); err != nil {
		return nil, err
	}

	var out Stats
	g, ctx := errgroup.WithContext(ctx)
	for dst, src := range map[*int]counter{
		&out.Posts:    s.posts,
		&out.Users:    s.users,
		&out.Staff:    s.staff,
		&out.Products: s.products,
		&out.Roles:    s.roles,
	} {
		dst, src := dst, src
		g.Go(func() error {
			n, err := src.Count(ctx)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}
