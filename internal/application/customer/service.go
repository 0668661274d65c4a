package customer

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/FacumendezBT/tfu3-andis2/internal/application"
	domain "github.com/FacumendezBT/tfu3-andis2/internal/domain/customer"
	"github.com/FacumendezBT/tfu3-andis2/internal/observability"
)

const customerService = "customer-service"

type Input struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// Patch carries a customer update. Nil fields keep their stored value.
type Patch struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

type Service struct {
	customers domain.Repository
	track     *application.Tracker
}

func NewService(customers domain.Repository, obs observability.Observability) *Service {
	return &Service{customers: customers, track: application.NewTracker(obs, customerService)}
}

func (s *Service) Create(ctx context.Context, in Input) (_ *domain.Customer, err error) {
	ctx, done := s.track.Begin(ctx, "customer.create", "CreateCustomer")
	defer func() { done(err) }()

	c, err := domain.New(in.Name, in.Email, in.Phone, in.Address)
	if err != nil {
		return nil, err
	}
	return s.customers.Create(ctx, c)
}

func (s *Service) Get(ctx context.Context, id int64) (_ *domain.Customer, err error) {
	ctx, done := s.track.Begin(ctx, "customer.get", "GetCustomer", attribute.Int64("customer.id", id))
	defer func() { done(err) }()

	return s.customers.Get(ctx, id)
}

// List returns every customer, or the single match when email is set.
func (s *Service) List(ctx context.Context, email string) (_ []*domain.Customer, err error) {
	ctx, done := s.track.Begin(ctx, "customer.list", "ListCustomers")
	defer func() { done(err) }()

	if strings.TrimSpace(email) == "" {
		return s.customers.List(ctx)
	}
	c, err := s.customers.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return []*domain.Customer{c}, nil
}

func (s *Service) Update(ctx context.Context, id int64, in Patch) (_ *domain.Customer, err error) {
	ctx, done := s.track.Begin(ctx, "customer.update", "UpdateCustomer", attribute.Int64("customer.id", id))
	defer func() { done(err) }()

	cur, err := s.customers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := domain.New(
		valueOr(in.Name, cur.Name),
		valueOr(in.Email, cur.Email),
		valueOr(in.Phone, cur.Phone),
		valueOr(in.Address, cur.Address),
	)
	if err != nil {
		return nil, err
	}
	next.ID, next.CreatedAt = cur.ID, cur.CreatedAt
	return s.customers.Update(ctx, next)
}

func (s *Service) Delete(ctx context.Context, id int64) (err error) {
	ctx, done := s.track.Begin(ctx, "customer.delete", "DeleteCustomer", attribute.Int64("customer.id", id))
	defer func() { done(err) }()

	return s.customers.Delete(ctx, id)
}

func valueOr[T any](v *T, fallback T) T {
	if v != nil {
		return *v
	}
	return fallback
}
