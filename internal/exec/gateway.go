// Package exec provides ExecutionGateway implementations: a live gateway
// backed by the CLOB client and a dry-run gateway that simulates fills.
package exec

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xfade/lagbot/internal/clob"
	"github.com/0xfade/lagbot/internal/engine"
)

// LiveGateway submits real fill-or-kill orders through the CLOB client
type LiveGateway struct {
	client *clob.Client
}

// NewLiveGateway wraps a CLOB client as an execution gateway
func NewLiveGateway(client *clob.Client) *LiveGateway {
	return &LiveGateway{client: client}
}

// PlaceFOKLimit submits the order and reports whether it matched. Rejections
// and transport failures both come back as not filled; the error carries the
// detail for logging.
func (g *LiveGateway) PlaceFOKLimit(ctx context.Context, tokenID string, side engine.OrderSide, size, price decimal.Decimal) (bool, error) {
	resp, err := g.client.PlaceFOKLimit(ctx, tokenID, side, size, price)
	if err != nil {
		return false, err
	}

	log.Info().
		Str("order_id", resp.OrderID).
		Str("status", resp.Status).
		Str("order_side", string(side)).
		Msg("Order submitted")

	return resp.Filled(), nil
}

// DryRunGateway simulates execution: every order fills at its limit price
// with no external effect.
type DryRunGateway struct{}

// NewDryRunGateway creates a simulated gateway
func NewDryRunGateway() *DryRunGateway {
	return &DryRunGateway{}
}

// PlaceFOKLimit always reports a fill
func (g *DryRunGateway) PlaceFOKLimit(ctx context.Context, tokenID string, side engine.OrderSide, size, price decimal.Decimal) (bool, error) {
	log.Info().
		Str("order_side", string(side)).
		Str("size", size.StringFixed(4)).
		Str("price", price.StringFixed(4)).
		Msg("🧪 DRY RUN fill")
	return true, nil
}
