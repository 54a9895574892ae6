package v1

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side represents which side of the book an order sits on.
type Side string

const (
	// SideBuy represents a buy order.
	SideBuy Side = "BUY"
	// SideSell represents a sell order.
	SideSell Side = "SELL"
)

// Opposite returns the side an order matches against.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType represents the type of order.
type OrderType string

const (
	// OrderTypeMarket represents a market order.
	OrderTypeMarket OrderType = "MARKET"
	// OrderTypeLimit represents a limit order.
	OrderTypeLimit OrderType = "LIMIT"
	// OrderTypePerp represents a perpetual contract order.
	OrderTypePerp OrderType = "PERP"
	// OrderTypeFuture represents a futures contract order.
	OrderTypeFuture OrderType = "FUTURE"
	// OrderTypeOption represents an options contract order.
	OrderTypeOption OrderType = "OPTION"
)

// Status represents the fill state of an order.
type Status string

const (
	// StatusOpen represents an order with no fills.
	StatusOpen Status = "OPEN"
	// StatusPartial represents an order with some quantity filled.
	StatusPartial Status = "PARTIAL"
	// StatusFilled represents a fully filled order.
	StatusFilled Status = "FILLED"
)

// Order represents a single order in the order store.
// Price is nil for market orders; an order without a price can never rest as
// a maker and is skipped when the book is walked.
type Order struct {
	Market    string           `json:"market"`
	OrderID   string           `json:"orderId"`
	Side      Side             `json:"side"`
	Type      OrderType        `json:"orderType"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Qty       decimal.Decimal  `json:"qty"`
	FilledQty decimal.Decimal  `json:"filledQty"`
	Status    Status           `json:"status"`
	SortKey   int64            `json:"sortKey"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// Remaining returns the unfilled quantity of the order.
func (o *Order) Remaining() decimal.Decimal {
	return o.Qty.Sub(o.FilledQty)
}

// IsFilled checks if the order has no remaining quantity.
func (o *Order) IsFilled() bool {
	return o.FilledQty.GreaterThanOrEqual(o.Qty)
}

// HasPrice checks whether the order carries a resting price.
func (o *Order) HasPrice() bool {
	return o.Price != nil
}

// Crosses reports whether this order, as a taker, crosses the given maker
// price. Market orders always cross; a BUY limit crosses at or above the
// maker price, a SELL limit at or below it.
func (o *Order) Crosses(makerPrice decimal.Decimal) bool {
	if o.Type == OrderTypeMarket {
		return true
	}
	if o.Price == nil {
		return false
	}
	if o.Side == SideBuy {
		return o.Price.GreaterThanOrEqual(makerPrice)
	}
	return o.Price.LessThanOrEqual(makerPrice)
}

// StatusFor returns the status an order should carry once filledQty reaches
// the given value.
func (o *Order) StatusFor(filledQty decimal.Decimal) Status {
	switch {
	case filledQty.GreaterThanOrEqual(o.Qty):
		return StatusFilled
	case filledQty.IsPositive():
		return StatusPartial
	default:
		return StatusOpen
	}
}

// EventType represents the change type of an order store stream event.
type EventType string

const (
	// EventTypeInsert represents a newly created order.
	EventTypeInsert EventType = "INSERT"
	// EventTypeModify represents an updated order. Not routed.
	EventTypeModify EventType = "MODIFY"
	// EventTypeRemove represents a deleted order. Not routed.
	EventTypeRemove EventType = "REMOVE"
)

// ChangeEvent represents one entry of the order store's change stream.
type ChangeEvent struct {
	EventType EventType `json:"eventType"`
	Order     *Order    `json:"order"`
}

// QueueMessage is the transit envelope placed on a matching lane.
// Ordering key is the market, deduplication key is the order id.
type QueueMessage struct {
	OrderID string `json:"orderId"`
	Market  string `json:"market"`
	Order   *Order `json:"order"`
}
