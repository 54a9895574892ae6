package v1

import "github.com/shopspring/decimal"

// Mode distinguishes trading modes of the same symbol.
type Mode string

const (
	// ModeSpot is the spot market.
	ModeSpot Mode = "SPOT"
	// ModeFutures is the dated futures market.
	ModeFutures Mode = "FUTURES"
	// ModePerp is the perpetuals market.
	ModePerp Mode = "PERP"
	// ModeOption is the options market.
	ModeOption Mode = "OPTION"
)

// Metadata holds the static trading parameters of one market.
type Metadata struct {
	Symbol       string          `json:"symbol"`
	Mode         Mode            `json:"mode"`
	TickSize     decimal.Decimal `json:"tickSize"`
	LotSize      decimal.Decimal `json:"lotSize"`
	SynthAddress string          `json:"synthAddress"`
}
