package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xfade/lagbot/internal/config"
)

// PositionManager owns the single position slot. It moves between Flat and
// Holding, placing fill-or-kill orders through the Gateway. All calls happen
// on the scheduler goroutine; no locking is needed.
type PositionManager struct {
	cfg     *config.Config
	gateway Gateway

	position      *Position
	cooldownUntil time.Time

	// Callbacks
	onTrade func(TradeEvent)
}

// NewPositionManager creates a position manager starting Flat
func NewPositionManager(cfg *config.Config, gw Gateway) *PositionManager {
	return &PositionManager{
		cfg:     cfg,
		gateway: gw,
	}
}

// SetTradeCallback sets the callback fired on confirmed entries and exits
func (m *PositionManager) SetTradeCallback(cb func(TradeEvent)) {
	m.onTrade = cb
}

// Holding reports whether a position is open
func (m *PositionManager) Holding() bool {
	return m.position != nil
}

// Position returns a copy of the open position, or false when Flat
func (m *PositionManager) Position() (Position, bool) {
	if m.position == nil {
		return Position{}, false
	}
	return *m.position, true
}

// InCooldown reports whether entries are blocked by a recent exit
func (m *PositionManager) InCooldown(now time.Time) bool {
	return now.Before(m.cooldownUntil)
}

// CooldownUntil returns the end of the current cooldown window
func (m *PositionManager) CooldownUntil() time.Time {
	return m.cooldownUntil
}

// TryEnter attempts to open a position for the signal by buying the candidate
// token at its best ask. It returns true when an order was actually placed
// (filled or not); pre-order rejections such as an empty ask side or a
// non-positive size return false and mutate nothing.
func (m *PositionManager) TryEnter(ctx context.Context, now time.Time, sig Signal, tob TopOfBook) (attempted bool) {
	if m.position != nil || m.InCooldown(now) {
		return false
	}

	if tob.Ask == nil {
		return false
	}
	ask := *tob.Ask

	// shares = notional / price; never spend more than the configured notional
	size := m.cfg.MaxPositionNotional.Div(ask.Price)
	if m.cfg.ClampToTopOfBook && size.GreaterThan(ask.Size) {
		size = ask.Size
	}
	if size.LessThanOrEqual(decimal.Zero) {
		return false
	}

	tokenID := m.tokenFor(sig.Side)

	filled, err := m.placeOrder(ctx, tokenID, OrderSideBuy, size, ask.Price)
	if err != nil {
		log.Error().Err(err).
			Str("side", string(sig.Side)).
			Str("price", ask.Price.String()).
			Msg("Entry order failed")
		return true
	}
	if !filled {
		log.Info().
			Str("side", string(sig.Side)).
			Str("price", ask.Price.String()).
			Msg("Entry not filled at top-of-book")
		return true
	}

	m.position = &Position{
		Side:       sig.Side,
		TokenID:    tokenID,
		EntryPrice: ask.Price,
		EntryTime:  now,
		Size:       size,
	}

	log.Info().
		Str("side", string(sig.Side)).
		Str("size", size.StringFixed(4)).
		Str("price", ask.Price.StringFixed(4)).
		Str("ref_return", sig.RefReturn.StringFixed(6)).
		Bool("dry_run", m.cfg.DryRun).
		Msg("🟢 ENTER")

	m.emit(TradeEvent{
		ID:        fmt.Sprintf("lag_%d", now.UnixNano()),
		Action:    TradeEntered,
		Side:      sig.Side,
		TokenID:   tokenID,
		Price:     ask.Price,
		Size:      size,
		RefReturn: sig.RefReturn,
		Time:      now,
		DryRun:    m.cfg.DryRun,
	})

	return true
}

// ManageExit runs the Holding-side transitions for one cycle: a forced exit
// once the max hold elapses, otherwise an exit on a favorable mid move.
// A failed exit order keeps the position; the next cycle retries.
func (m *PositionManager) ManageExit(ctx context.Context, now time.Time, tob TopOfBook) {
	if m.position == nil {
		return
	}

	heldFor := now.Sub(m.position.EntryTime)
	if heldFor >= m.cfg.MaxHold {
		log.Info().
			Dur("held", heldFor).
			Msg("⏰ Max hold exceeded, attempting exit")
		if tob.Bid != nil {
			m.tryExit(ctx, now, *tob.Bid)
		}
		return
	}

	mid, ok := tob.Mid()
	if !ok {
		return
	}
	if mid.GreaterThan(m.position.EntryPrice) {
		m.tryExit(ctx, now, *tob.Bid)
	}
}

// tryExit sells the position at the best bid as fill-or-kill. On success the
// slot is cleared and the cooldown window starts.
func (m *PositionManager) tryExit(ctx context.Context, now time.Time, bid PriceLevel) {
	pos := m.position

	size := pos.Size
	if m.cfg.ClampToTopOfBook && size.GreaterThan(bid.Size) {
		size = bid.Size
	}
	if size.LessThanOrEqual(decimal.Zero) {
		return
	}

	filled, err := m.placeOrder(ctx, pos.TokenID, OrderSideSell, size, bid.Price)
	if err != nil {
		log.Error().Err(err).
			Str("side", string(pos.Side)).
			Str("price", bid.Price.String()).
			Msg("Exit order failed")
		return
	}
	if !filled {
		log.Info().
			Str("side", string(pos.Side)).
			Str("price", bid.Price.String()).
			Msg("Exit not filled at top-of-book")
		return
	}

	pnl := bid.Price.Sub(pos.EntryPrice).Mul(size)

	log.Info().
		Str("side", string(pos.Side)).
		Str("size", size.StringFixed(4)).
		Str("price", bid.Price.StringFixed(4)).
		Str("pnl", pnl.StringFixed(4)).
		Bool("dry_run", m.cfg.DryRun).
		Msg("🔴 EXIT")

	m.emit(TradeEvent{
		ID:      fmt.Sprintf("lag_%d", now.UnixNano()),
		Action:  TradeExited,
		Side:    pos.Side,
		TokenID: pos.TokenID,
		Price:   bid.Price,
		Size:    size,
		PnL:     pnl,
		Time:    now,
		DryRun:  m.cfg.DryRun,
	})

	m.position = nil
	m.cooldownUntil = now.Add(m.cfg.Cooldown)
}

func (m *PositionManager) placeOrder(ctx context.Context, tokenID string, side OrderSide, size, price decimal.Decimal) (bool, error) {
	return m.gateway.PlaceFOKLimit(ctx, tokenID, side, size, price)
}

func (m *PositionManager) tokenFor(side Side) string {
	if side == SideUp {
		return m.cfg.TokenIDUp
	}
	return m.cfg.TokenIDDown
}

func (m *PositionManager) emit(ev TradeEvent) {
	if m.onTrade != nil {
		m.onTrade(ev)
	}
}
