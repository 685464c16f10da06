// Package messages builds the user-visible HTML texts on top of the i18n
// catalog. Everything user-supplied goes through Escape first.
package messages

import (
	"fmt"
	"strings"

	"github.com/theodorthegreathe/mvcr-application-checker/internal/i18n"
	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

const ParseModeHTML = "HTML"

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func StatusChanged(lang i18n.Lang, key types.ApplicationKey, oldStatus, newStatus, timestamp string) string {
	return i18n.Text(lang, "status_changed", map[string]string{
		"number":     Escape(key.String()),
		"old_status": Escape(oldStatus),
		"new_status": Escape(newStatus),
		"timestamp":  timestamp,
	})
}

func CurrentStatus(lang i18n.Lang, key types.ApplicationKey, status, timestamp string) string {
	if timestamp == "" {
		return i18n.Text(lang, "current_status_empty", map[string]string{
			"number": Escape(key.String()),
		})
	}
	return i18n.Text(lang, "current_status_timestamp", map[string]string{
		"number":    Escape(key.String()),
		"status":    Escape(status),
		"timestamp": timestamp,
	})
}

func Start(lang i18n.Lang) string {
	return i18n.Text(lang, "start", nil)
}

func Help(lang i18n.Lang) string {
	return i18n.Text(lang, "help", nil)
}

func Subscribed(lang i18n.Lang, key types.ApplicationKey) string {
	return i18n.Text(lang, "subscribed", map[string]string{"number": Escape(key.String())})
}

func AlreadySubscribed(lang i18n.Lang, key types.ApplicationKey) string {
	return i18n.Text(lang, "already_subscribed", map[string]string{"number": Escape(key.String())})
}

func SubscribeFailed(lang i18n.Lang) string {
	return i18n.Text(lang, "subscribe_failed", nil)
}

func Unsubscribed(lang i18n.Lang, key types.ApplicationKey) string {
	return i18n.Text(lang, "unsubscribed", map[string]string{"number": Escape(key.String())})
}

func NoSubscriptions(lang i18n.Lang) string {
	return i18n.Text(lang, "no_subscriptions", nil)
}

func InvalidNumber(lang i18n.Lang) string {
	return i18n.Text(lang, "invalid_number", nil)
}

func UnsubscribeUsage(lang i18n.Lang, apps []types.Application) string {
	lines := make([]string, 0, len(apps))
	for _, a := range apps {
		lines = append(lines, Escape(a.Key.String()))
	}
	return i18n.Text(lang, "unsubscribe_usage", map[string]string{
		"applications": strings.Join(lines, "\n"),
	})
}

func ForceRefreshDone(lang i18n.Lang, count int) string {
	return i18n.Text(lang, "force_refresh_done", map[string]string{
		"count": fmt.Sprintf("%d", count),
	})
}

func LangSet(lang i18n.Lang) string {
	return i18n.Text(lang, "lang_set", map[string]string{"lang": string(lang)})
}

func LangUsage(lang i18n.Lang) string {
	return i18n.Text(lang, "lang_usage", nil)
}

func RateLimited(lang i18n.Lang) string {
	return i18n.Text(lang, "rate_limited", nil)
}

func AdminStats(lang i18n.Lang, count int) string {
	return i18n.Text(lang, "admin_stats", map[string]string{
		"count": fmt.Sprintf("%d", count),
	})
}

func UnknownCommand(lang i18n.Lang) string {
	return i18n.Text(lang, "unknown_command", nil)
}

func ErrorGeneric(lang i18n.Lang) string {
	return i18n.Text(lang, "error_generic", nil)
}
