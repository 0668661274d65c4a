// Package catalog manages products and the categories they are filed under.
package catalog

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/FacumendezBT/tfu3-andis2/internal/application"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/product"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability"
)

const catalogService = "catalog-service"

type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryIDs []int64
}

type CategoryInput struct {
	Name        string
	Description string
}

// ProductPatch carries a product update. Nil fields keep their stored value.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	CategoryIDs *[]int64
}

type CategoryPatch struct {
	Name        *string
	Description *string
}

type Service struct {
	products   product.Repository
	categories product.CategoryRepository
	track      *application.Tracker
}

func NewService(products product.Repository, categories product.CategoryRepository, obs observability.Observability) *Service {
	return &Service{
		products:   products,
		categories: categories,
		track:      application.NewTracker(obs, catalogService),
	}
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (_ *product.Product, err error) {
	ctx, done := s.track.Begin(ctx, "product.create", "CreateProduct", attribute.String("product.name", in.Name))
	defer func() { done(err) }()

	p, err := product.New(in.Name, in.Description, in.Price, in.Stock, in.CategoryIDs)
	if err != nil {
		return nil, err
	}
	return s.products.Create(ctx, p)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (_ *product.Product, err error) {
	ctx, done := s.track.Begin(ctx, "product.get", "GetProduct", attribute.Int64("product.id", id))
	defer func() { done(err) }()

	return s.products.Get(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context, f product.Filter) (_ []*product.Product, err error) {
	ctx, done := s.track.Begin(ctx, "product.list", "ListProducts", attribute.Int64("filter.category_id", f.CategoryID))
	defer func() { done(err) }()

	return s.products.List(ctx, f)
}

// UpdateProduct merges the patch onto the stored product. Stock is only
// written when the patch sets it.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductPatch) (_ *product.Product, err error) {
	ctx, done := s.track.Begin(ctx, "product.update", "UpdateProduct", attribute.Int64("product.id", id))
	defer func() { done(err) }()

	cur, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := product.New(
		valueOr(in.Name, cur.Name),
		valueOr(in.Description, cur.Description),
		valueOr(in.Price, cur.Price),
		valueOr(in.Stock, cur.Stock),
		valueOr(in.CategoryIDs, cur.CategoryIDs),
	)
	if err != nil {
		return nil, err
	}
	next.ID, next.CreatedAt = cur.ID, cur.CreatedAt

	updated, err := s.products.Update(ctx, next)
	if err != nil {
		return nil, err
	}
	if in.Stock == nil {
		return updated, nil
	}
	return s.products.SetStock(ctx, id, *in.Stock)
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) (err error) {
	ctx, done := s.track.Begin(ctx, "product.delete", "DeleteProduct", attribute.Int64("product.id", id))
	defer func() { done(err) }()

	return s.products.Delete(ctx, id)
}

func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (_ *product.Category, err error) {
	ctx, done := s.track.Begin(ctx, "category.create", "CreateCategory", attribute.String("category.name", in.Name))
	defer func() { done(err) }()

	c, err := product.NewCategory(in.Name, in.Description)
	if err != nil {
		return nil, err
	}
	return s.categories.Create(ctx, c)
}

func (s *Service) GetCategory(ctx context.Context, id int64) (_ *product.Category, err error) {
	ctx, done := s.track.Begin(ctx, "category.get", "GetCategory", attribute.Int64("category.id", id))
	defer func() { done(err) }()

	return s.categories.Get(ctx, id)
}

func (s *Service) ListCategories(ctx context.Context) (_ []*product.Category, err error) {
	ctx, done := s.track.Begin(ctx, "category.list", "ListCategories")
	defer func() { done(err) }()

	return s.categories.List(ctx)
}

func (s *Service) UpdateCategory(ctx context.Context, id int64, in CategoryPatch) (_ *product.Category, err error) {
	ctx, done := s.track.Begin(ctx, "category.update", "UpdateCategory", attribute.Int64("category.id", id))
	defer func() { done(err) }()

	cur, err := s.categories.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c, err := product.NewCategory(valueOr(in.Name, cur.Name), valueOr(in.Description, cur.Description))
	if err != nil {
		return nil, err
	}
	c.ID = id
	return s.categories.Update(ctx, c)
}

// DeleteCategory removes the category and detaches it from its products.
func (s *Service) DeleteCategory(ctx context.Context, id int64) (err error) {
	ctx, done := s.track.Begin(ctx, "category.delete", "DeleteCategory", attribute.Int64("category.id", id))
	defer func() { done(err) }()

	return s.categories.Delete(ctx, id)
}

func valueOr[T any](v *T, fallback T) T {
	if v != nil {
		return *v
	}
	return fallback
}
