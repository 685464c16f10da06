// Package handlers implements the Telegram command front-end: subscribe,
// unsubscribe, status and the few admin commands.
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/theodorthegreathe/mvcr-application-checker/internal/i18n"
	"github.com/theodorthegreathe/mvcr-application-checker/internal/messages"
	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

// TaskPublisher enqueues fetch tasks, used by /force_refresh to bypass the
// staleness schedule.
type TaskPublisher interface {
	PublishFetchTask(ctx context.Context, t types.FetchTask) error
}

type Handlers struct {
	store   types.Store
	tasks   TaskPublisher
	tz      *time.Location
	admins  map[int64]struct{}
	limiter *rateLimiter
	log     *zap.Logger
}

func New(store types.Store, tasks TaskPublisher, tz *time.Location, adminChatIDs []int64, log *zap.Logger) *Handlers {
	admins := make(map[int64]struct{}, len(adminChatIDs))
	for _, id := range adminChatIDs {
		admins[id] = struct{}{}
	}
	if tz == nil {
		tz = time.UTC
	}
	return &Handlers{
		store:   store,
		tasks:   tasks,
		tz:      tz,
		admins:  admins,
		limiter: newRateLimiter(2, time.Minute),
		log:     log,
	}
}

// HandleUpdate is the single entry point registered with the bot.
func (h *Handlers) HandleUpdate(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	text := strings.TrimSpace(update.Message.Text)
	if !strings.HasPrefix(text, "/") {
		return
	}

	chatID := update.Message.Chat.ID
	lang := h.userLang(ctx, update)

	fields := strings.Fields(text)
	cmd := fields[0]
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}

	if !h.limiter.Allow(chatID, cmd) {
		h.reply(ctx, b, chatID, messages.RateLimited(lang))
		return
	}

	switch cmd {
	case "/start":
		h.reply(ctx, b, chatID, messages.Start(lang))
	case "/help":
		h.reply(ctx, b, chatID, messages.Help(lang))
	case "/subscribe":
		h.subscribe(ctx, b, update, arg, lang)
	case "/unsubscribe":
		h.unsubscribe(ctx, b, chatID, arg, lang)
	case "/status":
		h.status(ctx, b, chatID, lang)
	case "/force_refresh":
		h.forceRefresh(ctx, b, chatID, lang)
	case "/lang":
		h.setLanguage(ctx, b, chatID, arg)
	case "/admin_stats":
		h.adminStats(ctx, b, chatID, lang)
	default:
		h.reply(ctx, b, chatID, messages.UnknownCommand(lang))
	}
}

func (h *Handlers) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		h.log.Error("failed to send reply", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// userLang prefers the stored language, then the chat client's language
// code, then English.
func (h *Handlers) userLang(ctx context.Context, update *models.Update) i18n.Lang {
	chatID := update.Message.Chat.ID
	if lang, ok := h.store.GetUserLanguage(ctx, chatID); ok {
		return i18n.Parse(lang)
	}
	if update.Message.From != nil {
		return i18n.FromLanguageCode(update.Message.From.LanguageCode)
	}
	return i18n.Default
}

func (h *Handlers) isAdmin(chatID int64) bool {
	_, ok := h.admins[chatID]
	return ok
}
