package types

import (
	"context"
	"fmt"
	"time"
)

// ApplicationKey identifies one tracked MVCR application. The same key may be
// tracked by many users; uniqueness is per (chat_id, key).
type ApplicationKey struct {
	Number string `json:"number"`
	Suffix string `json:"suffix"`
	Type   string `json:"type"`
	Year   string `json:"year"`
}

// String renders the key in the official OAM-12345-9/TP-2023 form.
func (k ApplicationKey) String() string {
	if k.Suffix == "" || k.Suffix == "0" {
		return fmt.Sprintf("OAM-%s/%s-%s", k.Number, k.Type, k.Year)
	}
	return fmt.Sprintf("OAM-%s-%s/%s-%s", k.Number, k.Suffix, k.Type, k.Year)
}

type User struct {
	ChatID    int64
	Username  string
	FirstName string
	LastName  string
	Language  string
	CreatedAt time.Time
}

type Application struct {
	ChatID        int64
	Key           ApplicationKey
	CurrentStatus string
	IsResolved    bool
	// LastUpdated is nil until the first successful status check. A nil
	// value counts as infinitely stale for scheduling.
	LastUpdated *time.Time
}

// FetchTask is the fetch-tasks queue payload: one status check for one
// tracked application. Tasks are idempotent; redelivery is harmless.
type FetchTask struct {
	ChatID      int64          `json:"chat_id"`
	Key         ApplicationKey `json:"key"`
	PriorStatus string         `json:"prior_status"`
	LastUpdated *time.Time     `json:"last_updated,omitempty"`
	Force       bool           `json:"force,omitempty"`
}

// Notification is the notifications queue payload. UpdatedAt is UTC; the
// notifier renders it in the configured display timezone.
type Notification struct {
	ChatID    int64          `json:"chat_id"`
	Key       ApplicationKey `json:"key"`
	OldStatus string         `json:"old_status"`
	NewStatus string         `json:"new_status"`
	UpdatedAt time.Time      `json:"updated_at"`
	Lang      string         `json:"lang"`
}

// Store is the durable users+applications table. Operations that fail for
// store-internal reasons degrade to a bool/empty return plus a logged error;
// only the modeled duplicate/missing-user cases surface as sentinel errors
// (see package store).
type Store interface {
	CreateUser(ctx context.Context, u User) error
	RemoveUser(ctx context.Context, chatID int64) bool

	CreateApplication(ctx context.Context, chatID int64, key ApplicationKey) error
	RemoveApplication(ctx context.Context, chatID int64, key ApplicationKey) bool
	ListApplications(ctx context.Context, chatID int64) []Application

	// UpdateStatus sets current_status, is_resolved and advances
	// last_updated. TouchApplication advances last_updated only.
	UpdateStatus(ctx context.Context, chatID int64, key ApplicationKey, status string, resolved bool) bool
	TouchApplication(ctx context.Context, chatID int64, key ApplicationKey) bool
	GetStatus(ctx context.Context, chatID int64, key ApplicationKey) (string, bool)

	// ApplicationsDueForRefresh returns unresolved applications whose
	// last_updated (epoch when nil) is older than period, evaluated against
	// the store's own clock.
	ApplicationsDueForRefresh(ctx context.Context, period time.Duration) []Application

	GetUserLanguage(ctx context.Context, chatID int64) (string, bool)
	SetUserLanguage(ctx context.Context, chatID int64, lang string) bool

	CountSubscriptions(ctx context.Context) int

	Close()
}
