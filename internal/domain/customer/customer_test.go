package customer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	"github.com/FacumendezBT/tfu3-andis2/internal/domain/customer"
)

func TestNew(t *testing.T) {
	c, err := customer.New(" Ana ", " Ana@Example.com ", "099", "Av. Italia")
	require.NoError(t, err)
	assert.Equal(t, "Ana", c.Name)
	assert.Equal(t, "ana@example.com", c.Email)

	_, err = customer.New("", "ana@example.com", "", "")
	assert.ErrorIs(t, err, customer.ErrNameRequired)

	_, err = customer.New("Ana", "not-an-email", "", "")
	assert.ErrorIs(t, err, customer.ErrInvalidEmail)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
