// Package application holds the use cases that drive the domain.
package application

import "context"

// UseCase is a single application operation with a typed command and result.
type UseCase[C any, R any] interface {
	Execute(ctx context.Context, cmd C) (R, error)
}
