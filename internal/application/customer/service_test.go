package customer_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	"github.com/FacumendezBT/tfu3-andis2/internal/application/customer"
	domain "github.com/FacumendezBT/tfu3-andis2/internal/domain/customer"
	"github.com/FacumendezBT/tfu3-andis2/internal/infrastructure/memory"
)

func TestCustomerService(t *testing.T) {
	ctx := context.Background()
	svc := customer.NewService(memory.NewStore().Customers(), nil)

	ana, err := svc.Create(ctx, customer.Input{Name: "Ana", Email: " Ana@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", ana.Email)

	_, err = svc.Create(ctx, customer.Input{Name: "Other Ana", Email: "ana@example.com"})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Create(ctx, customer.Input{Name: "Bo", Email: "not-an-email"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	bo, err := svc.Create(ctx, customer.Input{Name: "Bo", Email: "bo@example.com", Phone: "555"})
	require.NoError(t, err)

	byEmail, err := svc.List(ctx, "BO@example.com")
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, bo.ID, byEmail[0].ID)

	all, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.Update(ctx, bo.ID, customer.Patch{Email: ptr("ana@example.com")})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	upd, err := svc.Update(ctx, bo.ID, customer.Patch{Name: ptr("Bo B."), Address: ptr("Main St 1")})
	require.NoError(t, err)
	assert.Equal(t, "Bo B.", upd.Name)
	assert.Equal(t, "Main St 1", upd.Address)
	assert.Equal(t, "bo@example.com", upd.Email)
	assert.Equal(t, "555", upd.Phone)
	assert.Equal(t, bo.CreatedAt, upd.CreatedAt)

	_, err = svc.Update(ctx, bo.ID, customer.Patch{Name: ptr(" ")})
	assert.ErrorIs(t, err, domain.ErrNameRequired)

	require.NoError(t, svc.Delete(ctx, bo.ID))
	_, err = svc.Get(ctx, bo.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, bo.ID), domain.ErrNotFound)

	_, err = svc.List(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func ptr[T any](v T) *T { return &v }
