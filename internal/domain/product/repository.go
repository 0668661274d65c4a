package product

import "context"

// Filter narrows List results. Zero values match everything.
type Filter struct {
	CategoryID int64
}

// Repository is the product store. Update never writes stock; stock only
// moves through SetStock, DebitStock and CreditStock. DebitStock must be
// atomic: it either removes the full quantity or fails with
// ErrInsufficientStock.
type Repository interface {
	Create(ctx context.Context, p *Product) (*Product, error)
	Get(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, f Filter) ([]*Product, error)
	Update(ctx context.Context, p *Product) (*Product, error)
	Delete(ctx context.Context, id int64) error

	SetStock(ctx context.Context, id int64, stock int) (*Product, error)
	DebitStock(ctx context.Context, id int64, quantity int) (*Product, error)
	CreditStock(ctx context.Context, id int64, quantity int) (*Product, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *Category) (*Category, error)
	Get(ctx context.Context, id int64) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
	Update(ctx context.Context, c *Category) (*Category, error)
	Delete(ctx context.Context, id int64) error
}
