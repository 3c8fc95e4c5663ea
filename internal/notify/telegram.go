// Package notify pushes trade notifications to Telegram. Entirely optional;
// a nil *Telegram is a no-op everywhere.
package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/0xfade/lagbot/internal/engine"
)

// Telegram sends formatted trade messages to a single chat
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// New creates a Telegram notifier
func New(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init failed: %w", err)
	}

	log.Info().Str("bot", api.Self.UserName).Msg("📣 Telegram notifier ready")
	return &Telegram{api: api, chatID: chatID}, nil
}

// NotifyTrade pushes an entry or exit event
func (t *Telegram) NotifyTrade(ev engine.TradeEvent) {
	if t == nil {
		return
	}

	msg := tgbotapi.NewMessage(t.chatID, formatTrade(ev))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.api.Send(msg); err != nil {
		log.Warn().Err(err).Msg("Telegram send failed")
	}
}

func formatTrade(ev engine.TradeEvent) string {
	dirEmoji := "🟢"
	if ev.Side == engine.SideDown {
		dirEmoji = "🔴"
	}

	mode := ""
	if ev.DryRun {
		mode = " 🧪"
	}

	if ev.Action == engine.TradeEntered {
		return fmt.Sprintf(`%s *ENTER %s*%s

💵 Size: %s shares
💰 Price: $%s
📈 Ref move: %s%%

⏰ %s`,
			dirEmoji, ev.Side, mode,
			ev.Size.StringFixed(2),
			ev.Price.StringFixed(4),
			ev.RefReturn.Mul(decimal.NewFromInt(100)).StringFixed(3),
			ev.Time.Format("15:04:05 MST"),
		)
	}

	pnlEmoji := "✅"
	if ev.PnL.IsNegative() {
		pnlEmoji = "❌"
	}

	return fmt.Sprintf(`%s *EXIT %s*%s

💵 Size: %s shares
💰 Price: $%s
%s P/L: $%s

⏰ %s`,
		dirEmoji, ev.Side, mode,
		ev.Size.StringFixed(2),
		ev.Price.StringFixed(4),
		pnlEmoji, ev.PnL.StringFixed(4),
		ev.Time.Format("15:04:05 MST"),
	)
}
