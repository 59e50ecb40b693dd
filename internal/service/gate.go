package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/access"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/events"
	"github.com/luminosmc/luminos-community/internal/repository"
)

// =============================================================================
// Guards
// =============================================================================

// guard authorizes a call before any entity is loaded. A nil guard allows everyone.
type guard func(ctx context.Context, actor *domain.Principal) error

// entityGuard authorizes a call against the stored entity. A nil guard allows everyone
// that passed the call's guard.
type entityGuard[T any] func(ctx context.Context, actor *domain.Principal, existing *T) error

func authenticated() guard {
	return func(ctx context.Context, actor *domain.Principal) error {
		if actor == nil {
			return domain.ErrNotAuthenticated
		}
		return nil
	}
}

func requirePermission(checker *access.Checker, perm domain.Permission) guard {
	return func(ctx context.Context, actor *domain.Principal) error {
		return checker.Require(ctx, actor, perm)
	}
}

// ownerOr allows the entity's author, or anyone holding perm.
func ownerOr[T any](checker *access.Checker, perm domain.Permission, authorOf func(*T) domain.Author) entityGuard[T] {
	return func(ctx context.Context, actor *domain.Principal, existing *T) error {
		if authorOf(existing).IsOwnedBy(actor) {
			return nil
		}
		return checker.Require(ctx, actor, perm)
	}
}

func allOf[T any](guards ...entityGuard[T]) entityGuard[T] {
	return func(ctx context.Context, actor *domain.Principal, existing *T) error {
		for _, g := range guards {
			if g == nil {
				continue
			}
			if err := g(ctx, actor, existing); err != nil {
				return err
			}
		}
		return nil
	}
}

// =============================================================================
// Gated Repository
// =============================================================================

// gatePolicy lists the guards of each operation.
type gatePolicy[T any] struct {
	list   guard
	create guard

	// modify is checked before update and delete load the entity.
	modify guard
	update entityGuard[T]
	delete entityGuard[T]
}

// gateConfig describes one entity kind.
type gateConfig[T any] struct {
	entity     string
	collection *repository.Collection[T]
	policy     gatePolicy[T]

	id       func(*T) string
	validate func(*T) error
	matches  func(*T, string) bool
	less     func(a, b *T) bool

	// verify runs store-backed checks on a new entity, such as uniqueness.
	verify func(ctx context.Context, v *T) error

	// view is the event payload for an entity. Nil publishes the entity itself.
	view func(*T) any

	created, updated, deleted events.Type
}

// gatedRepository is permission-gated CRUD over one collection. Every
// mutation is authorized, validated, written and then announced.
type gatedRepository[T any] struct {
	cfg    gateConfig[T]
	events events.Publisher
	logger zerolog.Logger
}

func newGatedRepository[T any](cfg gateConfig[T], pub events.Publisher, logger zerolog.Logger) *gatedRepository[T] {
	if pub == nil {
		pub = events.NopPublisher{}
	}
	return &gatedRepository[T]{
		cfg:    cfg,
		events: pub,
		logger: logger.With().Str("collection", cfg.collection.Name()).Logger(),
	}
}

func check(ctx context.Context, g guard, actor *domain.Principal) error {
	if g == nil {
		return nil
	}
	return g(ctx, actor)
}

// get loads one entity without authorization.
func (g *gatedRepository[T]) get(ctx context.Context, id string) (*T, error) {
	v, err := g.cfg.collection.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			g.logger.Error().Err(err).Str("id", id).Msg("failed to load entity")
		}
		return nil, notFound(err, g.cfg.entity, id)
	}
	return v, nil
}

// all loads every entity in display order, without authorization.
func (g *gatedRepository[T]) all(ctx context.Context) ([]*T, error) {
	items, err := g.cfg.collection.List(ctx)
	if err != nil {
		g.logger.Error().Err(err).Msg("failed to list entities")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if g.cfg.less != nil {
		sort.SliceStable(items, func(i, j int) bool { return g.cfg.less(items[i], items[j]) })
	}
	return items, nil
}

// list returns the entities matching filter. An empty filter matches everything.
func (g *gatedRepository[T]) list(ctx context.Context, actor *domain.Principal, filter string) ([]*T, error) {
	if err := check(ctx, g.cfg.policy.list, actor); err != nil {
		return nil, err
	}

	items, err := g.all(ctx)
	if err != nil {
		return nil, err
	}
	if filter == "" || g.cfg.matches == nil {
		return items, nil
	}

	out := make([]*T, 0, len(items))
	for _, v := range items {
		if g.cfg.matches(v, filter) {
			out = append(out, v)
		}
	}
	return out, nil
}

// create authorizes, validates and stores v, which must already carry its id.
func (g *gatedRepository[T]) create(ctx context.Context, actor *domain.Principal, v *T) error {
	if err := check(ctx, g.cfg.policy.create, actor); err != nil {
		return err
	}
	if g.cfg.validate != nil {
		if err := g.cfg.validate(v); err != nil {
			return err
		}
	}
	if g.cfg.verify != nil {
		if err := g.cfg.verify(ctx, v); err != nil {
			return err
		}
	}

	id := g.cfg.id(v)
	if err := g.cfg.collection.Put(ctx, id, v); err != nil {
		g.logger.Error().Err(err).Str("id", id).Msg("failed to store entity")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	g.logger.Info().Str("id", id).Str("actor", actorID(actor)).Msgf("%s created", g.cfg.entity)
	g.publish(g.cfg.created, v)
	return nil
}

// update applies fn to the stored entity and writes it back.
func (g *gatedRepository[T]) update(ctx context.Context, actor *domain.Principal, id string, fn func(*T) error) (*T, error) {
	return g.modify(ctx, actor, id, g.cfg.policy.update, g.cfg.updated, fn)
}

// modify is update with an explicit entity guard and event type. A failing
// guard, fn or validation leaves the stored entity untouched.
func (g *gatedRepository[T]) modify(ctx context.Context, actor *domain.Principal, id string, eg entityGuard[T], evt events.Type, fn func(*T) error) (*T, error) {
	if err := check(ctx, g.cfg.policy.modify, actor); err != nil {
		return nil, err
	}

	existing, err := g.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if eg != nil {
		if err := eg(ctx, actor, existing); err != nil {
			return nil, err
		}
	}

	if err := fn(existing); err != nil {
		return nil, err
	}
	if g.cfg.validate != nil {
		if err := g.cfg.validate(existing); err != nil {
			return nil, err
		}
	}

	if err := g.cfg.collection.Put(ctx, id, existing); err != nil {
		g.logger.Error().Err(err).Str("id", id).Msg("failed to store entity")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	g.logger.Info().Str("id", id).Str("actor", actorID(actor)).Str("event", string(evt)).Msgf("%s modified", g.cfg.entity)
	g.publish(evt, existing)
	return existing, nil
}

// remove authorizes and deletes the entity, returning what was stored.
func (g *gatedRepository[T]) remove(ctx context.Context, actor *domain.Principal, id string) (*T, error) {
	if err := check(ctx, g.cfg.policy.modify, actor); err != nil {
		return nil, err
	}

	existing, err := g.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.cfg.policy.delete != nil {
		if err := g.cfg.policy.delete(ctx, actor, existing); err != nil {
			return nil, err
		}
	}

	if err := g.cfg.collection.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, notFound(err, g.cfg.entity, id)
		}
		g.logger.Error().Err(err).Str("id", id).Msg("failed to delete entity")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	g.logger.Info().Str("id", id).Str("actor", actorID(actor)).Msgf("%s deleted", g.cfg.entity)
	g.publish(g.cfg.deleted, existing)
	return existing, nil
}

// count returns the number of stored entities.
func (g *gatedRepository[T]) count(ctx context.Context) (int, error) {
	n, err := g.cfg.collection.Count(ctx)
	if err != nil {
		g.logger.Error().Err(err).Msg("failed to count entities")
		return 0, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return n, nil
}

func (g *gatedRepository[T]) publish(t events.Type, v *T) {
	if t == "" {
		return
	}
	var data any = v
	if g.cfg.view != nil {
		data = g.cfg.view(v)
	}
	g.events.Publish(events.New(t, g.cfg.collection.Name(), g.cfg.id(v), data))
}

func actorID(actor *domain.Principal) string {
	if actor == nil {
		return "anonymous"
	}
	return actor.ID
}
