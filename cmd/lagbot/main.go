// Lagbot - Lag Arbitrage Bot for Binary Prediction Markets
//
// The bot watches a fast external reference price (Hyperliquid mids) next to
// the slower order books of a binary market's UP/DOWN outcome tokens. When
// the reference moves past a threshold while the books have not repriced, it
// buys the side the move favors, then exits on a favorable mid or after a
// bounded hold.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/0xfade/lagbot/internal/clob"
	"github.com/0xfade/lagbot/internal/config"
	"github.com/0xfade/lagbot/internal/engine"
	"github.com/0xfade/lagbot/internal/exec"
	"github.com/0xfade/lagbot/internal/feeds"
	"github.com/0xfade/lagbot/internal/journal"
	"github.com/0xfade/lagbot/internal/notify"
)

const version = "1.0.0"

func main() {
	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Str("symbol", cfg.ReferenceSymbol).
		Str("drift_threshold", cfg.DriftThreshold.String()).
		Bool("dry_run", cfg.DryRun).
		Msg("⚡ Lagbot starting...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ====== CORE COMPONENTS ======

	// 1. Trade journal (optional; the bot trades fine without persistence)
	var jrnl *journal.Journal
	if cfg.DatabasePath != "" {
		jrnl, err = journal.New(cfg.DatabasePath)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Journal unavailable, trades will not be persisted")
			jrnl = nil
		}
	}

	// 2. Reference price source - websocket stream when configured, otherwise
	// HTTP polling at the loop cadence
	var ref engine.ReferenceSource
	var stream *feeds.ReferenceStream
	if cfg.ReferenceWSURL != "" {
		stream = feeds.NewReferenceStream(cfg.ReferenceWSURL, cfg.ReferenceSymbol)
		if err := stream.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start reference stream")
		}
		ref = stream
	} else {
		ref = feeds.NewReferenceClient(cfg.ReferenceBaseURL, cfg.ReferenceSymbol)
		log.Info().Str("url", cfg.ReferenceBaseURL).Msg("📈 Reference polling enabled")
	}

	// 3. CLOB client - order book reads always, order submission when live
	clobClient, err := clob.NewClient(cfg)
	if err != nil && !cfg.DryRun {
		log.Fatal().Err(err).Msg("Failed to initialize CLOB client")
	}

	var quotes engine.QuoteSource
	if clobClient != nil {
		quotes = clobClient
	} else {
		// No credentials in dry-run mode: book reads are public, so use an
		// unauthenticated client.
		quotes = clob.NewPublicClient(cfg.CLOBBaseURL)
	}

	// 4. Execution gateway
	var gateway engine.Gateway
	if cfg.DryRun {
		gateway = exec.NewDryRunGateway()
		log.Info().Msg("🧪 DRY RUN mode - orders are simulated")
	} else {
		gateway = exec.NewLiveGateway(clobClient)
		log.Warn().Msg("💰 LIVE mode - orders will be submitted")
	}

	// 5. Telegram notifier (optional)
	var tg *notify.Telegram
	if cfg.TelegramToken != "" && cfg.TelegramChatID != 0 {
		tg, err = notify.New(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️ Telegram unavailable, continuing without notifications")
			tg = nil
		}
	}

	// 6. Position manager and scheduler
	pm := engine.NewPositionManager(cfg, gateway)
	pm.SetTradeCallback(func(ev engine.TradeEvent) {
		recordTrade(jrnl, ev)
		tg.NotifyTrade(ev)
	})

	scheduler := engine.NewScheduler(cfg, ref, quotes, pm)
	go scheduler.Run(ctx)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("Shutting down...")
	scheduler.Stop()
	if stream != nil {
		stream.Stop()
	}
	cancel()

	if jrnl != nil {
		if stats, err := jrnl.GetStats(); err == nil {
			log.Info().
				Interface("stats", stats).
				Msg("📊 Session stats")
		}
	}

	log.Info().Msg("Goodbye 👋")
}

// recordTrade persists a trade event to the journal. Entries open a row;
// exits close the most recent open row for the token.
func recordTrade(jrnl *journal.Journal, ev engine.TradeEvent) {
	if jrnl == nil {
		return
	}

	var err error
	if ev.Action == engine.TradeEntered {
		err = jrnl.RecordEntry(&journal.Trade{
			ID:         ev.ID,
			TokenID:    ev.TokenID,
			Side:       string(ev.Side),
			EntryPrice: ev.Price,
			Size:       ev.Size,
			RefReturn:  ev.RefReturn,
			DryRun:     ev.DryRun,
			EnteredAt:  ev.Time,
		})
	} else {
		err = jrnl.CloseOpenTrade(ev.TokenID, ev.Price, ev.PnL, ev.Time)
	}
	if err != nil {
		log.Error().Err(err).Str("trade_id", ev.ID).Msg("Failed to journal trade")
	}
}
