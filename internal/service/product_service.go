package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luminosmc/luminos-community/internal/access"
	"github.com/luminosmc/luminos-community/internal/domain"
	"github.com/luminosmc/luminos-community/internal/events"
	"github.com/luminosmc/luminos-community/internal/repository"
)

// ProductService manages the store catalogue.
type ProductService struct {
	products *gatedRepository[domain.Product]
	logger   zerolog.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(repos *repository.Repositories, checker *access.Checker, pub events.Publisher, logger zerolog.Logger) *ProductService {
	s := &ProductService{
		logger: logger.With().Str("service", "product").Logger(),
	}

	manage := requirePermission(checker, domain.PermManageProducts)
	s.products = newGatedRepository(gateConfig[domain.Product]{
		entity:     "product",
		collection: repos.Products,
		policy: gatePolicy[domain.Product]{
			create: manage,
			modify: manage,
		},
		id:       func(p *domain.Product) string { return p.ID },
		validate: func(p *domain.Product) error { return p.Validate() },
		matches:  func(p *domain.Product, q string) bool { return p.Matches(q) },
		less:     catalogueOrder,
		created:  events.ProductCreated,
		updated:  events.ProductUpdated,
		deleted:  events.ProductDeleted,
	}, pub, s.logger)

	return s
}

// ProductInput carries every editable product field.
type ProductInput struct {
	Name     string
	Price    float64
	Features []string
	Featured bool
}

// List returns the products whose name contains query. Listing is public.
func (s *ProductService) List(ctx context.Context, query string) ([]*domain.Product, error) {
	return s.products.list(ctx, nil, strings.TrimSpace(query))
}

// Get returns one product.
func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.get(ctx, id)
}

// Create adds a product. Requires manage_products.
func (s *ProductService) Create(ctx context.Context, actor *domain.Principal, input ProductInput) (*domain.Product, error) {
	product := domain.NewProduct(input.Name, input.Price, input.Features, input.Featured)
	product.ID = uuid.New().String()
	if err := s.products.create(ctx, actor, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Update replaces every editable field of a product. Requires manage_products.
func (s *ProductService) Update(ctx context.Context, actor *domain.Principal, id string, input ProductInput) (*domain.Product, error) {
	return s.products.update(ctx, actor, id, func(p *domain.Product) error {
		p.Name = strings.TrimSpace(input.Name)
		p.Price = input.Price
		p.Features = domain.CleanFeatures(input.Features)
		p.Featured = input.Featured
		return nil
	})
}

// Delete removes a product. Requires manage_products.
func (s *ProductService) Delete(ctx context.Context, actor *domain.Principal, id string) error {
	_, err := s.products.remove(ctx, actor, id)
	return err
}

// Count returns the number of products.
func (s *ProductService) Count(ctx context.Context) (int, error) {
	return s.products.count(ctx)
}

// catalogueOrder sorts by price, cheapest first.
func catalogueOrder(a, b *domain.Product) bool {
	if a.Price != b.Price {
		return a.Price < b.Price
	}
	return a.Name < b.Name
}
