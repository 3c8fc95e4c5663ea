package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/0xfade/lagbot/internal/config"
)

// Scheduler drives the poll loop: fetch the reference tick and both books,
// run one PositionManager step, sleep out the remainder of the cadence.
// It is the sole caller into the PositionManager and the only writer of the
// drift anchors.
type Scheduler struct {
	cfg    *config.Config
	ref    ReferenceSource
	quotes QuoteSource
	pm     *PositionManager

	anchors Anchors

	running bool
	stopCh  chan struct{}
}

// NewScheduler creates a scheduler over explicitly constructed collaborators
func NewScheduler(cfg *config.Config, ref ReferenceSource, quotes QuoteSource, pm *PositionManager) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		ref:    ref,
		quotes: quotes,
		pm:     pm,
		stopCh: make(chan struct{}),
	}
}

// Anchors returns the current drift anchors
func (s *Scheduler) Anchors() Anchors {
	return s.anchors
}

// Run executes the loop until the context is cancelled or Stop is called.
// Feed and order failures are absorbed; the fixed cadence is the only retry.
func (s *Scheduler) Run(ctx context.Context) {
	s.running = true
	interval := s.cfg.PollInterval()

	log.Info().
		Dur("interval", interval).
		Str("drift_threshold", s.cfg.DriftThreshold.String()).
		Bool("dry_run", s.cfg.DryRun).
		Msg("⚡ Lag-arb loop started")

	for {
		start := time.Now()
		s.Step(ctx, start)

		sleep := interval - time.Since(start)
		if sleep < 0 {
			sleep = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-time.After(sleep):
		}
	}
}

// Stop ends the loop
func (s *Scheduler) Stop() {
	if s.running {
		s.running = false
		close(s.stopCh)
	}
}

// Step runs a single cycle at the given instant. Exposed for tests; Run calls
// it once per cadence.
func (s *Scheduler) Step(ctx context.Context, now time.Time) {
	tick, upBook, downBook, ok := s.fetch(ctx)
	if !ok {
		return
	}

	upMid, upOK := upBook.Mid()
	downMid, downOK := downBook.Mid()
	if !upOK || !downOK {
		// One of the books is one-sided; nothing to measure this cycle.
		return
	}

	// Holding: exits only. Anchors stay put so the entry baseline survives
	// the hold.
	if s.pm.Holding() {
		pos, _ := s.pm.Position()
		held := upBook
		if pos.Side == SideDown {
			held = downBook
		}
		s.pm.ManageExit(ctx, now, *held)
		return
	}

	if s.pm.InCooldown(now) {
		return
	}

	attempted := false
	sig, found := DetectLag(DetectorInput{
		RefPrice:       tick.Price,
		UpMid:          upMid,
		DownMid:        downMid,
		Anchors:        s.anchors,
		DriftThreshold: s.cfg.DriftThreshold,
	})
	if found {
		log.Debug().
			Str("side", string(sig.Side)).
			Str("ref_return", sig.RefReturn.StringFixed(6)).
			Str("own_drift", sig.OwnDrift.StringFixed(6)).
			Str("book_drift", sig.BookDrift.StringFixed(6)).
			Msg("Lag signal")

		candidate := upBook
		if sig.Side == SideDown {
			candidate = downBook
		}
		if candidate.Ask == nil {
			// Nothing to hit; keep the anchors so the signal can fire again.
			return
		}
		attempted = s.pm.TryEnter(ctx, now, sig, *candidate)
	}

	// Anchors refresh only at the end of a cycle with no entry attempt.
	// Under repeated failed attempts the baseline stays where the move
	// started, so the same signal can fire again.
	if !attempted {
		s.anchors = Anchors{
			RefPrice: tick.Price,
			UpMid:    upMid,
			DownMid:  downMid,
			Set:      true,
		}
	}
}

// fetch pulls the reference tick and both top-of-books in parallel and joins
// before any decision is made. Any absence aborts the step.
func (s *Scheduler) fetch(ctx context.Context) (*PriceTick, *TopOfBook, *TopOfBook, bool) {
	var (
		tick     *PriceTick
		upBook   *TopOfBook
		downBook *TopOfBook
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tick, err = s.ref.Latest(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		upBook, err = s.quotes.TopOfBook(gctx, s.cfg.TokenIDUp)
		return err
	})
	g.Go(func() error {
		var err error
		downBook, err = s.quotes.TopOfBook(gctx, s.cfg.TokenIDDown)
		return err
	})

	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("Feed fetch failed, skipping cycle")
		return nil, nil, nil, false
	}
	if tick == nil || upBook == nil || downBook == nil {
		log.Debug().Msg("Feed returned no data, skipping cycle")
		return nil, nil, nil, false
	}

	return tick, upBook, downBook, true
}
