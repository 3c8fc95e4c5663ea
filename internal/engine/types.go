// Package engine implements the lag-detection and position-execution core:
// it compares a fast external reference price against the slower order books
// of a binary market's UP/DOWN outcome tokens, and trades the stale side.
package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Side identifies the outcome token a signal or position refers to
type Side string

const (
	SideUp   Side = "UP"
	SideDown Side = "DOWN"
)

// OrderSide represents buy or sell
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// PriceTick is a snapshot of the reference asset price
type PriceTick struct {
	Time  time.Time
	Price decimal.Decimal
}

// PriceLevel is a single price level of an order book
type PriceLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// TopOfBook holds the best bid and ask of an outcome token.
// A nil side means the book is empty on that side.
type TopOfBook struct {
	Bid *PriceLevel
	Ask *PriceLevel
}

// Mid returns the mid price, or false when either side is empty.
func (t TopOfBook) Mid() (decimal.Decimal, bool) {
	if t.Bid == nil || t.Ask == nil {
		return decimal.Zero, false
	}
	return t.Bid.Price.Add(t.Ask.Price).Div(decimal.NewFromInt(2)), true
}

// Position is the single open position. At most one exists at a time,
// owned exclusively by the PositionManager.
type Position struct {
	Side       Side
	TokenID    string
	EntryPrice decimal.Decimal
	EntryTime  time.Time
	Size       decimal.Decimal
}

// ReferenceSource supplies the latest reference asset price.
// A nil tick with a nil error means no price is available yet.
type ReferenceSource interface {
	Latest(ctx context.Context) (*PriceTick, error)
}

// QuoteSource supplies the current top-of-book for an outcome token.
type QuoteSource interface {
	TopOfBook(ctx context.Context, tokenID string) (*TopOfBook, error)
}

// Gateway places fill-or-kill limit orders. It reports filled or not filled
// and never partial fills; transport errors surface as err with filled=false.
type Gateway interface {
	PlaceFOKLimit(ctx context.Context, tokenID string, side OrderSide, size, price decimal.Decimal) (filled bool, err error)
}

// TradeAction distinguishes trade event kinds
type TradeAction string

const (
	TradeEntered TradeAction = "ENTER"
	TradeExited  TradeAction = "EXIT"
)

// TradeEvent is emitted on every confirmed entry and exit
type TradeEvent struct {
	ID        string
	Action    TradeAction
	Side      Side
	TokenID   string
	Price     decimal.Decimal
	Size      decimal.Decimal
	PnL       decimal.Decimal // per full position, exits only
	RefReturn decimal.Decimal // reference move that triggered the entry
	Time      time.Time
	DryRun    bool
}
