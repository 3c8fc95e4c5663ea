package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRef hands out a fixed sequence of ticks, one per call. A nil entry
// simulates a feed with no data yet.
type fakeRef struct {
	ticks []*PriceTick
	idx   int
}

func (r *fakeRef) Latest(ctx context.Context) (*PriceTick, error) {
	if r.idx >= len(r.ticks) {
		return r.ticks[len(r.ticks)-1], nil
	}
	t := r.ticks[r.idx]
	r.idx++
	return t, nil
}

// fakeQuotes serves a static book per token.
type fakeQuotes struct {
	books map[string]*TopOfBook
}

func (q *fakeQuotes) TopOfBook(ctx context.Context, tokenID string) (*TopOfBook, error) {
	return q.books[tokenID], nil
}

func tick(price float64) *PriceTick {
	return &PriceTick{Time: time.Now(), Price: d(price)}
}

func staticBooks(bid, ask float64) *fakeQuotes {
	return &fakeQuotes{books: map[string]*TopOfBook{
		"token-up":   {Bid: &PriceLevel{Price: d(bid), Size: d(100)}, Ask: &PriceLevel{Price: d(ask), Size: d(100)}},
		"token-down": {Bid: &PriceLevel{Price: d(bid), Size: d(100)}, Ask: &PriceLevel{Price: d(ask), Size: d(100)}},
	}}
}

func newTestScheduler(ref ReferenceSource, quotes QuoteSource, gw Gateway) (*Scheduler, *PositionManager) {
	cfg := testConfig()
	pm := NewPositionManager(cfg, gw)
	return NewScheduler(cfg, ref, quotes, pm), pm
}

func TestStep_FirstCycleSetsAnchorsWithoutTrading(t *testing.T) {
	gw := &fakeGateway{}
	s, _ := newTestScheduler(&fakeRef{ticks: []*PriceTick{tick(50000)}}, staticBooks(0.49, 0.51), gw)

	s.Step(context.Background(), time.Now())

	a := s.Anchors()
	assert.True(t, a.Set)
	assert.True(t, a.RefPrice.Equal(d(50000)))
	assert.True(t, a.UpMid.Equal(d(0.50)))
	assert.Empty(t, gw.calls, "warm-up cycle never trades")
}

func TestStep_MissingTickAborts(t *testing.T) {
	gw := &fakeGateway{}
	s, _ := newTestScheduler(&fakeRef{ticks: []*PriceTick{nil}}, staticBooks(0.49, 0.51), gw)

	s.Step(context.Background(), time.Now())

	assert.False(t, s.Anchors().Set, "no data, no anchors")
	assert.Empty(t, gw.calls)
}

func TestStep_OneSidedBookAborts(t *testing.T) {
	gw := &fakeGateway{}
	quotes := &fakeQuotes{books: map[string]*TopOfBook{
		"token-up":   {Ask: &PriceLevel{Price: d(0.51), Size: d(100)}},
		"token-down": {Bid: &PriceLevel{Price: d(0.49), Size: d(100)}, Ask: &PriceLevel{Price: d(0.51), Size: d(100)}},
	}}
	s, _ := newTestScheduler(&fakeRef{ticks: []*PriceTick{tick(50000)}}, quotes, gw)

	s.Step(context.Background(), time.Now())

	assert.False(t, s.Anchors().Set)
	assert.Empty(t, gw.calls)
}

func TestStep_LagSignalEnters(t *testing.T) {
	gw := &fakeGateway{fills: []bool{true}}
	ref := &fakeRef{ticks: []*PriceTick{tick(50000), tick(50100)}}
	s, pm := newTestScheduler(ref, staticBooks(0.49, 0.51), gw)
	now := time.Now()

	s.Step(context.Background(), now)
	s.Step(context.Background(), now.Add(200*time.Millisecond))

	require.Len(t, gw.calls, 1)
	assert.Equal(t, "token-up", gw.calls[0].TokenID)
	assert.Equal(t, OrderSideBuy, gw.calls[0].Side)
	assert.True(t, pm.Holding())
}

func TestStep_AnchorsFrozenAfterEntryAttempt(t *testing.T) {
	gw := &fakeGateway{fills: []bool{false}}
	ref := &fakeRef{ticks: []*PriceTick{tick(50000), tick(50100)}}
	s, pm := newTestScheduler(ref, staticBooks(0.49, 0.51), gw)
	now := time.Now()

	s.Step(context.Background(), now)
	s.Step(context.Background(), now.Add(200*time.Millisecond))

	require.Len(t, gw.calls, 1)
	assert.False(t, pm.Holding(), "order did not fill")
	assert.True(t, s.Anchors().RefPrice.Equal(d(50000)),
		"attempted entry keeps the anchors, got %s", s.Anchors().RefPrice)
}

func TestStep_AnchorsFrozenWhileHolding(t *testing.T) {
	gw := &fakeGateway{fills: []bool{true}}
	ref := &fakeRef{ticks: []*PriceTick{tick(50000), tick(50100), tick(50200)}}
	s, pm := newTestScheduler(ref, staticBooks(0.49, 0.51), gw)
	now := time.Now()

	s.Step(context.Background(), now)
	s.Step(context.Background(), now.Add(200*time.Millisecond))
	require.True(t, pm.Holding())

	// Holding cycle: mid 0.50 is below the 0.51 entry, so no exit, and the
	// anchors must not move.
	s.Step(context.Background(), now.Add(400*time.Millisecond))
	assert.True(t, pm.Holding())
	assert.True(t, s.Anchors().RefPrice.Equal(d(50000)))
}

func TestStep_AnchorsFrozenDuringCooldown(t *testing.T) {
	gw := &fakeGateway{fills: []bool{true, true}}
	ref := &fakeRef{ticks: []*PriceTick{tick(50000), tick(50100), tick(50100), tick(50300)}}
	s, pm := newTestScheduler(ref, staticBooks(0.49, 0.51), gw)
	now := time.Now()

	s.Step(context.Background(), now)
	s.Step(context.Background(), now.Add(200*time.Millisecond))
	require.True(t, pm.Holding())

	// Force the exit past max hold, then observe a cooldown cycle.
	s.Step(context.Background(), now.Add(31*time.Second))
	require.False(t, pm.Holding())
	require.True(t, pm.InCooldown(now.Add(32*time.Second)))

	s.Step(context.Background(), now.Add(32*time.Second))
	assert.True(t, s.Anchors().RefPrice.Equal(d(50000)),
		"cooldown cycle must not refresh anchors")
}

func TestStep_QuietCycleRefreshesAnchors(t *testing.T) {
	gw := &fakeGateway{}
	ref := &fakeRef{ticks: []*PriceTick{tick(50000), tick(50010)}}
	s, _ := newTestScheduler(ref, staticBooks(0.49, 0.51), gw)
	now := time.Now()

	s.Step(context.Background(), now)
	// +0.02% is under the threshold: no signal, anchors roll forward.
	s.Step(context.Background(), now.Add(200*time.Millisecond))

	assert.True(t, s.Anchors().RefPrice.Equal(d(50010)))
	assert.Empty(t, gw.calls)
}
