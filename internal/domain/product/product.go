package product

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
)

var (
	ErrNotFound          = errors.New("product: not found")
	ErrNameRequired      = errors.New("product: name is required")
	ErrInvalidPrice      = errors.New("product: price must be zero or greater")
	ErrPricePrecision    = errors.New("product: price has more than two decimal places")
	ErrInvalidQuantity   = errors.New("product: quantity must be greater than zero")
	ErrNegativeStock     = errors.New("product: stock cannot be negative")
	ErrInsufficientStock = errors.New("product: insufficient stock")
	ErrInUse             = errors.New("product: referenced by existing orders")
)

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CategoryIDs []int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func New(name, description string, price decimal.Decimal, stock int, categoryIDs []int64) (*Product, error) {
	now := time.Now().UTC()
	p := &Product{
		Name:        strings.TrimSpace(name),
		Description: description,
		Price:       price,
		Stock:       stock,
		CategoryIDs: normalizeIDs(categoryIDs),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the invariants every stored product must satisfy.
func (p *Product) Validate() error {
	if p.Name == "" {
		return apperr.Validation(ErrNameRequired, "product name is required")
	}
	if p.Price.IsNegative() {
		return apperr.Validation(ErrInvalidPrice, "product price cannot be negative")
	}
	if !isCents(p.Price) {
		return apperr.Validation(ErrPricePrecision, "product price cannot have more than two decimal places")
	}
	if p.Stock < 0 {
		return apperr.Validation(ErrNegativeStock, "stock cannot be negative")
	}
	return nil
}

// Debit removes quantity units from stock, refusing to go below zero.
func (p *Product) Debit(quantity int) error {
	if quantity <= 0 {
		return apperr.Validation(ErrInvalidQuantity, "quantity must be greater than zero")
	}
	if p.Stock < quantity {
		return InsufficientStock(p.Name)
	}
	p.Stock -= quantity
	p.touch()
	return nil
}

// Credit returns quantity units to stock.
func (p *Product) Credit(quantity int) error {
	if quantity <= 0 {
		return apperr.Validation(ErrInvalidQuantity, "quantity must be greater than zero")
	}
	p.Stock += quantity
	p.touch()
	return nil
}

func (p *Product) SetStock(stock int) error {
	if stock < 0 {
		return apperr.Validation(ErrNegativeStock, "stock cannot be negative")
	}
	p.Stock = stock
	p.touch()
	return nil
}

func (p *Product) InCategory(id int64) bool {
	return slices.Contains(p.CategoryIDs, id)
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	cp := *p
	cp.CategoryIDs = slices.Clone(p.CategoryIDs)
	return &cp
}

func (p *Product) touch() {
	p.UpdatedAt = time.Now().UTC()
}

// isCents reports whether d is a whole number of cents. Money is stored as
// NUMERIC(12,2), so anything finer would be rounded on write.
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2))
}

func NotFound(id int64) error {
	return apperr.NotFound(ErrNotFound, "product %d not found", id)
}

func InsufficientStock(name string) error {
	return apperr.Validation(ErrInsufficientStock, "insufficient stock for product %s", name)
}

func InUse(id int64) error {
	return apperr.Validation(ErrInUse, "product %d is referenced by existing orders", id)
}

func normalizeIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
