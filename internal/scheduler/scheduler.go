// Package scheduler periodically enumerates applications due for a status
// refresh and enqueues one fetch task per application.
package scheduler

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

// Publisher enqueues fetch tasks onto the broker.
type Publisher interface {
	PublishFetchTask(ctx context.Context, t types.FetchTask) error
}

type Scheduler struct {
	store types.Store
	tasks Publisher
	log   *zap.Logger

	tickPeriod    time.Duration
	refreshPeriod time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool

	// inFlight suppresses duplicate enqueues of the same application while a
	// publish from a recent tick is still pending. Entries expire after one
	// tick so a failed fetch is retried on the next cycle.
	inFlightMu sync.Mutex
	inFlight   map[string]time.Time
}

type Config struct {
	TickPeriod    time.Duration
	RefreshPeriod time.Duration
}

func New(store types.Store, tasks Publisher, cfg Config, log *zap.Logger) *Scheduler {
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = 300 * time.Second
	}
	if cfg.RefreshPeriod <= 0 {
		cfg.RefreshPeriod = 3600 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:         store,
		tasks:         tasks,
		log:           log,
		tickPeriod:    cfg.TickPeriod,
		refreshPeriod: cfg.RefreshPeriod,
		ctx:           ctx,
		cancel:        cancel,
		inFlight:      make(map[string]time.Time),
	}
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.log.Info("scheduler started",
		zap.Duration("tick_period", s.tickPeriod),
		zap.Duration("refresh_period", s.refreshPeriod))

	s.wg.Add(1)
	go s.run()
}

func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.tickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Tick(s.ctx)
		}
	}
}

// Tick runs one scheduling cycle. Publishing is fire-and-forget: a slow
// broker delays tasks, never the next tick.
func (s *Scheduler) Tick(ctx context.Context) {
	due := s.store.ApplicationsDueForRefresh(ctx, s.refreshPeriod)
	if len(due) == 0 {
		return
	}

	enqueued := 0
	for _, app := range due {
		task := types.FetchTask{
			ChatID:      app.ChatID,
			Key:         app.Key,
			PriorStatus: app.CurrentStatus,
			LastUpdated: app.LastUpdated,
		}
		if s.Enqueue(ctx, task) {
			enqueued++
		}
	}
	s.log.Info("scheduling cycle complete",
		zap.Int("due", len(due)),
		zap.Int("enqueued", enqueued))
}

// Enqueue publishes one fetch task unless the same application was already
// enqueued within the current tick window. Returns whether the task was
// accepted for publishing.
func (s *Scheduler) Enqueue(ctx context.Context, task types.FetchTask) bool {
	id := taskID(task)
	now := time.Now()

	s.inFlightMu.Lock()
	if at, ok := s.inFlight[id]; ok && now.Sub(at) < s.tickPeriod {
		s.inFlightMu.Unlock()
		return false
	}
	s.inFlight[id] = now
	for k, at := range s.inFlight {
		if now.Sub(at) >= s.tickPeriod {
			delete(s.inFlight, k)
		}
	}
	s.inFlightMu.Unlock()

	go func() {
		if err := s.tasks.PublishFetchTask(ctx, task); err != nil {
			s.log.Error("failed to publish fetch task",
				zap.Int64("chat_id", task.ChatID),
				zap.String("application", task.Key.String()),
				zap.Error(err))
			s.inFlightMu.Lock()
			delete(s.inFlight, id)
			s.inFlightMu.Unlock()
		}
	}()
	return true
}

func taskID(t types.FetchTask) string {
	return t.Key.String() + "#" + strconv.FormatInt(t.ChatID, 10)
}
