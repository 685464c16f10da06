// Package notifier turns queued notifications into localized chat messages.
package notifier

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"

	"github.com/theodorthegreathe/mvcr-application-checker/internal/i18n"
	"github.com/theodorthegreathe/mvcr-application-checker/internal/messages"
	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

// Sender delivers one rendered message to a chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Deduper suppresses repeated sends of the same notification.
type Deduper interface {
	FirstSeen(ctx context.Context, n types.Notification) bool
}

// TimestampLayout matches the format users have seen since the first
// release: HH:MM:SS DD-MM-YYYY.
const TimestampLayout = "15:04:05 02-01-2006"

type Notifier struct {
	sender Sender
	dedup  Deduper
	tz     *time.Location
	log    *zap.Logger
}

// New builds a Notifier rendering timestamps in tz. dedup may be nil, in
// which case redelivered notifications are sent again (a nuisance, not a
// correctness problem).
func New(sender Sender, dedup Deduper, tz *time.Location, log *zap.Logger) *Notifier {
	if tz == nil {
		tz = time.UTC
	}
	return &Notifier{sender: sender, dedup: dedup, tz: tz, log: log}
}

// Handle renders and sends one notification. Send failures are logged, not
// retried; the broker's redelivery covers transport loss.
func (n *Notifier) Handle(ctx context.Context, note types.Notification) error {
	if n.dedup != nil && !n.dedup.FirstSeen(ctx, note) {
		n.log.Debug("duplicate notification suppressed",
			zap.Int64("chat_id", note.ChatID),
			zap.String("application", note.Key.String()),
			zap.String("new_status", note.NewStatus))
		return nil
	}

	timestamp := note.UpdatedAt.In(n.tz).Format(TimestampLayout)
	text := messages.StatusChanged(i18n.Parse(note.Lang), note.Key, note.OldStatus, note.NewStatus, timestamp)

	if err := n.sender.Send(ctx, note.ChatID, text); err != nil {
		n.log.Error("failed to send notification",
			zap.Int64("chat_id", note.ChatID),
			zap.String("application", note.Key.String()),
			zap.Error(err))
	}
	return nil
}

// TelegramSender adapts go-telegram/bot to the Sender interface.
type TelegramSender struct {
	bot *bot.Bot
}

func NewTelegramSender(b *bot.Bot) *TelegramSender {
	return &TelegramSender{bot: b}
}

func (s *TelegramSender) Send(ctx context.Context, chatID int64, text string) error {
	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	})
	return err
}
