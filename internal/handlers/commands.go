package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/theodorthegreathe/mvcr-application-checker/internal/i18n"
	"github.com/theodorthegreathe/mvcr-application-checker/internal/messages"
	"github.com/theodorthegreathe/mvcr-application-checker/internal/status"
	"github.com/theodorthegreathe/mvcr-application-checker/store"
	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

// subscribe creates the user on first contact and then the application.
// "User already exists" is success; "application already tracked" gets its
// own reply so the user knows nothing went wrong.
func (h *Handlers) subscribe(ctx context.Context, b *bot.Bot, update *models.Update, arg string, lang i18n.Lang) {
	chatID := update.Message.Chat.ID

	key, ok := status.ParseApplicationNumber(arg)
	if !ok {
		h.reply(ctx, b, chatID, messages.InvalidNumber(lang))
		return
	}

	user := types.User{ChatID: chatID, Language: string(lang)}
	if from := update.Message.From; from != nil {
		user.Username = from.Username
		user.FirstName = from.FirstName
		user.LastName = from.LastName
	}
	if err := h.store.CreateUser(ctx, user); err != nil && !errors.Is(err, store.ErrDuplicateUser) {
		h.reply(ctx, b, chatID, messages.SubscribeFailed(lang))
		return
	}

	switch err := h.store.CreateApplication(ctx, chatID, key); {
	case err == nil:
		h.log.Info("new subscription",
			zap.Int64("chat_id", chatID),
			zap.String("application", key.String()))
		h.reply(ctx, b, chatID, messages.Subscribed(lang, key))
		// schedule the first check right away instead of waiting for the
		// staleness predicate
		h.publishRefresh(ctx, chatID, key, "Unknown")
	case errors.Is(err, store.ErrDuplicateApplication):
		h.reply(ctx, b, chatID, messages.AlreadySubscribed(lang, key))
	default:
		h.reply(ctx, b, chatID, messages.SubscribeFailed(lang))
	}
}

// unsubscribe removes one application. Without an argument it removes the
// only tracked application or lists the candidates. Removing a non-tracked
// application still reads as success: the delete is idempotent.
func (h *Handlers) unsubscribe(ctx context.Context, b *bot.Bot, chatID int64, arg string, lang i18n.Lang) {
	if arg == "" {
		apps := h.store.ListApplications(ctx, chatID)
		switch len(apps) {
		case 0:
			h.reply(ctx, b, chatID, messages.NoSubscriptions(lang))
		case 1:
			h.store.RemoveApplication(ctx, chatID, apps[0].Key)
			h.reply(ctx, b, chatID, messages.Unsubscribed(lang, apps[0].Key))
		default:
			h.reply(ctx, b, chatID, messages.UnsubscribeUsage(lang, apps))
		}
		return
	}

	key, ok := status.ParseApplicationNumber(arg)
	if !ok {
		h.reply(ctx, b, chatID, messages.InvalidNumber(lang))
		return
	}
	h.store.RemoveApplication(ctx, chatID, key)
	h.reply(ctx, b, chatID, messages.Unsubscribed(lang, key))
}

func (h *Handlers) status(ctx context.Context, b *bot.Bot, chatID int64, lang i18n.Lang) {
	apps := h.store.ListApplications(ctx, chatID)
	if len(apps) == 0 {
		h.reply(ctx, b, chatID, messages.NoSubscriptions(lang))
		return
	}
	for _, app := range apps {
		timestamp := ""
		if app.LastUpdated != nil {
			timestamp = app.LastUpdated.In(h.tz).Format("15:04:05 02-01-2006")
		}
		h.reply(ctx, b, chatID, messages.CurrentStatus(lang, app.Key, app.CurrentStatus, timestamp))
	}
}

// forceRefresh enqueues an immediate fetch for every tracked application.
func (h *Handlers) forceRefresh(ctx context.Context, b *bot.Bot, chatID int64, lang i18n.Lang) {
	apps := h.store.ListApplications(ctx, chatID)
	if len(apps) == 0 {
		h.reply(ctx, b, chatID, messages.NoSubscriptions(lang))
		return
	}
	for _, app := range apps {
		h.publishRefresh(ctx, chatID, app.Key, app.CurrentStatus)
	}
	h.reply(ctx, b, chatID, messages.ForceRefreshDone(lang, len(apps)))
}

func (h *Handlers) publishRefresh(ctx context.Context, chatID int64, key types.ApplicationKey, prior string) {
	task := types.FetchTask{
		ChatID:      chatID,
		Key:         key,
		PriorStatus: prior,
		Force:       true,
	}
	if err := h.tasks.PublishFetchTask(ctx, task); err != nil {
		h.log.Error("failed to publish forced fetch task",
			zap.Int64("chat_id", chatID),
			zap.String("application", key.String()),
			zap.Error(err))
	}
}

func (h *Handlers) setLanguage(ctx context.Context, b *bot.Bot, chatID int64, arg string) {
	if arg == "" {
		h.reply(ctx, b, chatID, messages.LangUsage(i18n.Default))
		return
	}
	lang := i18n.Parse(arg)
	if h.store.SetUserLanguage(ctx, chatID, string(lang)) {
		h.reply(ctx, b, chatID, messages.LangSet(lang))
		return
	}
	h.reply(ctx, b, chatID, messages.ErrorGeneric(lang))
}

func (h *Handlers) adminStats(ctx context.Context, b *bot.Bot, chatID int64, lang i18n.Lang) {
	if !h.isAdmin(chatID) {
		h.reply(ctx, b, chatID, messages.UnknownCommand(lang))
		return
	}
	h.reply(ctx, b, chatID, messages.AdminStats(lang, h.store.CountSubscriptions(ctx)))
}
