package order

import (
	"errors"
	"strings"

	"github.com/FacumendezBT/tfu3-andis2/internal/apperr"
)

var (
	ErrInvalidStatus     = errors.New("order: invalid status")
	ErrIllegalTransition = errors.New("order: illegal status transition")
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// transitions is the forward-only lifecycle. Anything absent is illegal,
// self-transitions included.
var transitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  nil,
	StatusCancelled:  nil,
}

// ParseStatus accepts any casing and returns the canonical status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		if s == "" {
			return "", apperr.Validation(ErrInvalidStatus, "status is required")
		}
		return "", apperr.Validation(ErrInvalidStatus, "invalid status %q", s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func (s Status) String() string { return string(s) }

// AllowedTransitions returns the statuses reachable from s in one step.
func AllowedTransitions(s Status) []Status {
	return append([]Status(nil), transitions[s]...)
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func CheckTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return apperr.Validation(ErrIllegalTransition, "cannot transition from %s to %s", from, to)
	}
	return nil
}
