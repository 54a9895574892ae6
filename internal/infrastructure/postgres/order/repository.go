package order

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tradewind/exchange/internal/domain/order"
	v1 "github.com/tradewind/exchange/internal/domain/order/v1"
	"github.com/tradewind/exchange/pkg/postgresql"
)

// Repository implements the order store on PostgreSQL.
type Repository struct {
	db postgresql.PostgreSQLClient
}

// Ensure Repository implements the domain interface.
var _ order.Repository = (*Repository)(nil)

// NewRepository creates a new order repository.
func NewRepository(db postgresql.PostgreSQLClient) *Repository {
	return &Repository{
		db: db,
	}
}

const orderColumns = `market, order_id, side, order_type, price, qty, filled_qty, status, sort_key, updated_at`

// Get returns a single order, or nil when it does not exist.
func (r *Repository) Get(ctx context.Context, market, orderID string) (*v1.Order, error) {
	q := postgresql.QueryerFromContext(ctx, r.db)

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE market = $1 AND order_id = $2`, orderColumns)

	o, err := scanOrder(q.QueryRow(ctx, query, market, orderID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return o, nil
}

// Insert persists a new order.
func (r *Repository) Insert(ctx context.Context, o *v1.Order) error {
	q := postgresql.QueryerFromContext(ctx, r.db)

	query := fmt.Sprintf(`INSERT INTO orders (%s)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`, orderColumns)

	var price any
	if o.Price != nil {
		price = *o.Price
	}

	_, err := q.Exec(ctx, query,
		o.Market, o.OrderID, string(o.Side), string(o.Type), price,
		o.Qty, o.FilledQty, string(o.Status), o.SortKey, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	return nil
}

// GetBook returns the resting orders for a market on one side in price-time
// priority. Best price comes first (ascending for asks, descending for bids),
// ties broken by ascending sort key. Priced, unfilled orders only.
func (r *Repository) GetBook(ctx context.Context, market string, side v1.Side) ([]*v1.Order, error) {
	q := postgresql.QueryerFromContext(ctx, r.db)

	priceOrder := "ASC"
	if side == v1.SideBuy {
		priceOrder = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM orders
			  WHERE market = $1 AND side = $2
			    AND status IN ('OPEN', 'PARTIAL')
			    AND price IS NOT NULL
			  ORDER BY price %s, sort_key ASC`, orderColumns, priceOrder)

	rows, err := q.Query(ctx, query, market, string(side))
	if err != nil {
		return nil, fmt.Errorf("failed to query book: %w", err)
	}
	defer rows.Close()

	var book []*v1.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		book = append(book, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read book rows: %w", err)
	}

	return book, nil
}

// ApplyFill increments filled_qty by qty and derives the status. The guards
// make the update conditional: zero rows affected means the order vanished,
// was already filled, or lacks capacity, and the caller must abort its
// transaction.
func (r *Repository) ApplyFill(ctx context.Context, market, orderID string, qty decimal.Decimal, now time.Time) error {
	q := postgresql.QueryerFromContext(ctx, r.db)

	query := `UPDATE orders
			  SET filled_qty = filled_qty + $3,
			      status = CASE WHEN filled_qty + $3 >= qty THEN 'FILLED' ELSE 'PARTIAL' END,
			      updated_at = $4
			  WHERE market = $1 AND order_id = $2
			    AND status <> 'FILLED'
			    AND filled_qty + $3 <= qty`

	tag, err := q.Exec(ctx, query, market, orderID, qty, now)
	if err != nil {
		return fmt.Errorf("failed to apply fill: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s/%s: %w", market, orderID, order.ErrOrderGone)
	}

	return nil
}

// scanOrder reads one order row.
func scanOrder(row pgx.Row) (*v1.Order, error) {
	var (
		o     v1.Order
		price *decimal.Decimal
	)

	err := row.Scan(&o.Market, &o.OrderID, &o.Side, &o.Type, &price,
		&o.Qty, &o.FilledQty, &o.Status, &o.SortKey, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}

	o.Price = price
	return &o, nil
}
