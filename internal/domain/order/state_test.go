package order_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
	domain "github.com/FacumendezBT/tfu3-andis2/internal/domain/order"
)

func TestTransitionMatrix(t *testing.T) {
	allowed := map[[2]domain.Status]bool{
		{domain.StatusPending, domain.StatusConfirmed}:    true,
		{domain.StatusPending, domain.StatusCancelled}:    true,
		{domain.StatusConfirmed, domain.StatusProcessing}: true,
		{domain.StatusConfirmed, domain.StatusCancelled}:  true,
		{domain.StatusProcessing, domain.StatusShipped}:   true,
		{domain.StatusProcessing, domain.StatusCancelled}: true,
		{domain.StatusShipped, domain.StatusDelivered}:    true,
	}

	for _, from := range domain.Statuses {
		for _, to := range domain.Statuses {
			t.Run(fmt.Sprintf("%s->%s", from, to), func(t *testing.T) {
				err := domain.CheckTransition(from, to)
				if allowed[[2]domain.Status{from, to}] {
					assert.NoError(t, err)
					assert.True(t, domain.CanTransition(from, to))
					return
				}
				require.Error(t, err)
				assert.ErrorIs(t, err, apperr.ErrValidation)
				assert.ErrorIs(t, err, domain.ErrIllegalTransition)
				assert.Equal(t, fmt.Sprintf("cannot transition from %s to %s", from, to), err.Error())
			})
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, domain.StatusDelivered.Terminal())
	assert.True(t, domain.StatusCancelled.Terminal())
	assert.False(t, domain.StatusShipped.Terminal())
	assert.Empty(t, domain.AllowedTransitions(domain.StatusDelivered))
	assert.Equal(t, []domain.Status{domain.StatusDelivered}, domain.AllowedTransitions(domain.StatusShipped))
}

func TestParseStatus(t *testing.T) {
	st, err := domain.ParseStatus(" confirmed ")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, st)

	_, err = domain.ParseStatus("")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)
	assert.EqualError(t, err, "status is required")

	_, err = domain.ParseStatus("lost")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
