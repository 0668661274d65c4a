package customer

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
)

var (
	ErrNotFound     = errors.New("customer: not found")
	ErrNameRequired = errors.New("customer: name is required")
	ErrInvalidEmail = errors.New("customer: invalid email")
	ErrEmailTaken   = errors.New("customer: email already registered")
)

type Customer struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(name, email, phone, address string) (*Customer, error) {
	now := time.Now().UTC()
	c := &Customer{
		Name:      strings.TrimSpace(name),
		Email:     NormalizeEmail(email),
		Phone:     strings.TrimSpace(phone),
		Address:   strings.TrimSpace(address),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Customer) Validate() error {
	if c.Name == "" {
		return apperr.Validation(ErrNameRequired, "customer name is required")
	}
	if _, err := mail.ParseAddress(c.Email); err != nil || c.Email == "" {
		return apperr.Validation(ErrInvalidEmail, "customer email %q is invalid", c.Email)
	}
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NotFound(id int64) error {
	return apperr.NotFound(ErrNotFound, "customer %d not found", id)
}

func EmailTaken(email string) error {
	return apperr.Validation(ErrEmailTaken, "email %s is already registered", email)
}

type Repository interface {
	Create(ctx context.Context, c *Customer) (*Customer, error)
	Get(ctx context.Context, id int64) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	List(ctx context.Context) ([]*Customer, error)
	Update(ctx context.Context, c *Customer) (*Customer, error)
	Delete(ctx context.Context, id int64) error
}
