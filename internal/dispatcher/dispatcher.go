// Package dispatcher executes fetch tasks: it reads the authoritative status,
// detects changes against the stored status and turns a genuine change into a
// notification.
package dispatcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/theodorthegreathe/mvcr-application-checker/internal/fetcher"
	"github.com/theodorthegreathe/mvcr-application-checker/internal/i18n"
	"github.com/theodorthegreathe/mvcr-application-checker/internal/status"
	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

// Publisher enqueues notifications onto the broker.
type Publisher interface {
	PublishNotification(ctx context.Context, n types.Notification) error
}

type Dispatcher struct {
	store         types.Store
	fetcher       fetcher.Fetcher
	notifications Publisher
	log           *zap.Logger
	fetchTimeout  time.Duration
}

func New(store types.Store, f fetcher.Fetcher, notifications Publisher, fetchTimeout time.Duration, log *zap.Logger) *Dispatcher {
	if fetchTimeout <= 0 {
		fetchTimeout = 90 * time.Second
	}
	return &Dispatcher{
		store:         store,
		fetcher:       f,
		notifications: notifications,
		log:           log,
		fetchTimeout:  fetchTimeout,
	}
}

// Process handles one fetch task. It is idempotent: redelivered tasks re-read
// the authoritative source and re-apply the same state, and the store keeps
// last_updated monotonic. It returns nil on fetch failures so the broker acks
// the task; the staleness predicate re-selects the application on the next
// scheduler tick, which is the retry mechanism.
func (d *Dispatcher) Process(ctx context.Context, task types.FetchTask) error {
	if task.Force {
		d.log.Info("processing forced refresh",
			zap.Int64("chat_id", task.ChatID),
			zap.String("application", task.Key.String()))
	}

	fctx, cancel := context.WithTimeout(ctx, d.fetchTimeout)
	newStatus, err := d.fetcher.Fetch(fctx, task.Key)
	cancel()
	if err != nil {
		d.log.Warn("fetch failed, will retry on next cycle",
			zap.Int64("chat_id", task.ChatID),
			zap.String("application", task.Key.String()),
			zap.Error(err))
		return nil
	}

	// Compare against the stored status, not the task snapshot: under
	// at-least-once delivery the snapshot may predate an already-applied
	// update.
	prior, ok := d.store.GetStatus(ctx, task.ChatID, task.Key)
	if !ok {
		// unsubscribed while the task was in flight
		d.log.Info("application no longer tracked, dropping task",
			zap.Int64("chat_id", task.ChatID),
			zap.String("application", task.Key.String()))
		return nil
	}

	if newStatus == prior {
		// keep the application out of the due set for another refresh period
		d.store.TouchApplication(ctx, task.ChatID, task.Key)
		return nil
	}

	resolved := status.IsTerminal(newStatus)
	if !d.store.UpdateStatus(ctx, task.ChatID, task.Key, newStatus, resolved) {
		d.log.Error("status update failed, will retry on next cycle",
			zap.Int64("chat_id", task.ChatID),
			zap.String("application", task.Key.String()))
		return nil
	}

	d.log.Info("application status changed",
		zap.Int64("chat_id", task.ChatID),
		zap.String("application", task.Key.String()),
		zap.String("old_status", prior),
		zap.String("new_status", newStatus),
		zap.Bool("resolved", resolved))

	lang, ok := d.store.GetUserLanguage(ctx, task.ChatID)
	if !ok {
		lang = string(i18n.Default)
	}
	n := types.Notification{
		ChatID:    task.ChatID,
		Key:       task.Key,
		OldStatus: prior,
		NewStatus: newStatus,
		UpdatedAt: time.Now().UTC(),
		Lang:      lang,
	}
	if err := d.notifications.PublishNotification(ctx, n); err != nil {
		// the status is already saved; losing the publish only delays the
		// user-visible notice until the queue is back
		d.log.Error("failed to publish notification",
			zap.Int64("chat_id", task.ChatID),
			zap.String("application", task.Key.String()),
			zap.Error(err))
	}
	return nil
}
