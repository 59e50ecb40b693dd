package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/access"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/events"
	"github.com/luminosmc/luminos-community/internal/repository"
)

// DefaultPostPageSize is the forum page size used when a list request sets no limit.
const DefaultPostPageSize = 5

// PostService manages forum threads and their replies.
type PostService struct {
	posts  *gatedRepository[domain.Post]
	logger zerolog.Logger
}

// NewPostService creates a new PostService.
func NewPostService(repos *repository.Repositories, checker *access.Checker, pub events.Publisher, logger zerolog.Logger) *PostService {
	s := &PostService{
		logger: logger.With().Str("service", "post").Logger(),
	}

	authorOf := func(p *domain.Post) domain.Author { return p.Author }
	s.posts = newGatedRepository(gateConfig[domain.Post]{
		entity:     "post",
		collection: repos.Posts,
		policy: gatePolicy[domain.Post]{
			create: authenticated(),
			modify: authenticated(),
			update: ownerOr(checker, domain.PermEditAnyPost, authorOf),
			delete: ownerOr(checker, domain.PermDeleteAnyPost, authorOf),
		},
		id:       func(p *domain.Post) string { return p.ID },
		validate: func(p *domain.Post) error { return p.Validate() },
		matches:  func(p *domain.Post, q string) bool { return p.Matches(q) },
		less:     newestFirst,
		created:  events.PostCreated,
		updated:  events.PostUpdated,
		deleted:  events.PostDeleted,
	}, pub, s.logger)

	return s
}

// ListPostsInput filters and pages the forum.
type ListPostsInput struct {
	// Query is matched case-insensitively against title, content and author name.
	Query string

	Offset int

	// Limit is the page size. Zero means DefaultPostPageSize; negative means everything.
	Limit int
}

// List returns one page of posts, newest first. Listing is public.
func (s *PostService) List(ctx context.Context, input ListPostsInput) (*repository.ListResult[domain.Post], error) {
	posts, err := s.posts.list(ctx, nil, strings.TrimSpace(input.Query))
	if err != nil {
		return nil, err
	}

	limit := input.Limit
	switch {
	case limit == 0:
		limit = DefaultPostPageSize
	case limit < 0:
		limit = 0
	}
	return repository.Paginate(posts, repository.ListOptions{Offset: input.Offset, Limit: limit}), nil
}

// Get returns one post with its replies.
func (s *PostService) Get(ctx context.Context, id string) (*domain.Post, error) {
	return s.posts.get(ctx, id)
}

// CreatePostInput contains the data needed to open a thread.
type CreatePostInput struct {
	Title   string
	Content string
}

// Create opens a thread authored by actor.
func (s *PostService) Create(ctx context.Context, actor *domain.Principal, input CreatePostInput) (*domain.Post, error) {
	if actor == nil {
		return nil, domain.ErrNotAuthenticated
	}

	post := domain.NewPost(input.Title, input.Content, actor.AsAuthor())
	post.ID = uuid.New().String()
	if err := s.posts.create(ctx, actor, post); err != nil {
		return nil, err
	}
	return post, nil
}

// UpdatePostInput contains the fields to change. Nil fields are left as they are.
type UpdatePostInput struct {
	Title   *string
	Content *string
}

// Update edits a post. Only its author or a holder of edit_any_post may do so.
func (s *PostService) Update(ctx context.Context, actor *domain.Principal, id string, input UpdatePostInput) (*domain.Post, error) {
	return s.posts.update(ctx, actor, id, func(p *domain.Post) error {
		if input.Title != nil {
			p.Title = strings.TrimSpace(*input.Title)
		}
		if input.Content != nil {
			p.Content = strings.TrimSpace(*input.Content)
		}
		p.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// Delete removes a post. Only its author or a holder of delete_any_post may do so.
func (s *PostService) Delete(ctx context.Context, actor *domain.Principal, id string) error {
	_, err := s.posts.remove(ctx, actor, id)
	return err
}

// Reply appends an answer authored by actor. Anonymous replies are rejected.
func (s *PostService) Reply(ctx context.Context, actor *domain.Principal, id, content string) (*domain.Post, error) {
	content = strings.TrimSpace(content)
	return s.posts.modify(ctx, actor, id, nil, events.ReplyAdded, func(p *domain.Post) error {
		if err := domain.ValidateReply(content); err != nil {
			return err
		}
		p.Replies = append(p.Replies, domain.Reply{
			Content:   content,
			Author:    actor.AsAuthor(),
			CreatedAt: time.Now().UTC(),
		})
		return nil
	})
}

// Count returns the number of posts.
func (s *PostService) Count(ctx context.Context) (int, error) {
	return s.posts.count(ctx)
}

func newestFirst(a, b *domain.Post) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}
