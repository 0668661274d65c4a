package apperr_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
)

var errRule = errors.New("rule")

func TestClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
		msg  string
	}{
		{"validation", apperr.Validation(errRule, "bad %s", "input"), apperr.ErrValidation, "bad input"},
		{"not found", apperr.NotFound(errRule, "order %d not found", 7), apperr.ErrNotFound, "order 7 not found"},
		{"store", apperr.Store("save order", context.DeadlineExceeded), apperr.ErrStore, "save order: context deadline exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.Equal(t, tt.kind, apperr.Kind(tt.err))
			assert.Equal(t, tt.msg, tt.err.Error())
		})
	}
}

func TestCauseIsReachable(t *testing.T) {
	err := fmt.Errorf("outer: %w", apperr.Validation(errRule, "nope"))

	assert.ErrorIs(t, err, errRule)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
}

func TestStoreKeepsClassifiedErrors(t *testing.T) {
	nf := apperr.NotFound(errRule, "missing")

	assert.Same(t, nf, apperr.Store("get", nf))
	assert.Nil(t, apperr.Store("get", nil))
}

func TestKindDefaultsToStore(t *testing.T) {
	assert.Equal(t, apperr.ErrStore, apperr.Kind(errors.New("boom")))
	assert.Nil(t, apperr.Kind(nil))
}
