package product

import (
	"errors"
	"strings"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
)

var (
	ErrCategoryNotFound     = errors.New("category: not found")
	ErrCategoryNameRequired = errors.New("category: name is required")
	ErrCategoryExists       = errors.New("category: name already exists")
)

type Category struct {
	ID          int64
	Name        string
	Description string
}

func NewCategory(name, description string) (*Category, error) {
	c := &Category{Name: strings.TrimSpace(name), Description: description}
	if c.Name == "" {
		return nil, apperr.Validation(ErrCategoryNameRequired, "category name is required")
	}
	return c, nil
}

func CategoryNotFound(id int64) error {
	return apperr.NotFound(ErrCategoryNotFound, "category %d not found", id)
}

func CategoryExists(name string) error {
	return apperr.Validation(ErrCategoryExists, "category %q already exists", name)
}
