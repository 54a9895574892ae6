package v1

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// Test 1: Sides oppose each other
func TestSide_Opposite(t *testing.T) {
	assert.Equal(t, SideSell, SideBuy.Opposite())
	assert.Equal(t, SideBuy, SideSell.Opposite())
}

// Test 2: Market takers cross any maker price
func TestOrder_Crosses_MarketOrder(t *testing.T) {
	o := &Order{Type: OrderTypeMarket, Side: SideBuy}

	assert.True(t, o.Crosses(decimal.RequireFromString("1")))
	assert.True(t, o.Crosses(decimal.RequireFromString("999999")))
}

// Test 3: A buy limit crosses at or above the maker price
func TestOrder_Crosses_BuyLimit(t *testing.T) {
	o := &Order{Type: OrderTypeLimit, Side: SideBuy, Price: price("100")}

	assert.True(t, o.Crosses(decimal.RequireFromString("99")))
	assert.True(t, o.Crosses(decimal.RequireFromString("100")))
	assert.False(t, o.Crosses(decimal.RequireFromString("101")))
}

// Test 4: A sell limit crosses at or below the maker price
func TestOrder_Crosses_SellLimit(t *testing.T) {
	o := &Order{Type: OrderTypeLimit, Side: SideSell, Price: price("100")}

	assert.True(t, o.Crosses(decimal.RequireFromString("101")))
	assert.True(t, o.Crosses(decimal.RequireFromString("100")))
	assert.False(t, o.Crosses(decimal.RequireFromString("99")))
}

// Test 5: A priced limit without a price never crosses
func TestOrder_Crosses_NoPrice(t *testing.T) {
	o := &Order{Type: OrderTypeLimit, Side: SideBuy}

	assert.False(t, o.Crosses(decimal.RequireFromString("100")))
}

// Test 6: Status derives from the filled quantity
func TestOrder_StatusFor(t *testing.T) {
	o := &Order{Qty: decimal.RequireFromString("10")}

	assert.Equal(t, StatusOpen, o.StatusFor(decimal.Zero))
	assert.Equal(t, StatusPartial, o.StatusFor(decimal.RequireFromString("4")))
	assert.Equal(t, StatusFilled, o.StatusFor(decimal.RequireFromString("10")))
}

// Test 7: Remaining and IsFilled track the fill state
func TestOrder_Remaining(t *testing.T) {
	o := &Order{
		Qty:       decimal.RequireFromString("10"),
		FilledQty: decimal.RequireFromString("4"),
	}

	assert.True(t, o.Remaining().Equal(decimal.RequireFromString("6")))
	assert.False(t, o.IsFilled())

	o.FilledQty = o.Qty
	assert.True(t, o.Remaining().IsZero())
	assert.True(t, o.IsFilled())
}
