package postgres

import (
	"context"

	"github.com/tradewind/exchange/pkg/postgresql"
)

// Transactor runs a function inside a single PostgreSQL transaction. The
// match engine commits every settlement chunk through this so the chunk's
// writes apply all-or-nothing.
type Transactor struct {
	db postgresql.PostgreSQLClient
}

// NewTransactor creates a new Transactor.
func NewTransactor(db postgresql.PostgreSQLClient) *Transactor {
	return &Transactor{
		db: db,
	}
}

// WithTx begins a transaction, embeds it in the context handed to fn, and
// commits when fn returns nil. Any error rolls the whole transaction back.
func (t *Transactor) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return postgresql.WithTx(ctx, t.db, fn)
}
