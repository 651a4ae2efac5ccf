package model

import "context"

// Transactor runs fn inside a single store transaction. Stores called with
// the ctx passed to fn participate in that transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
