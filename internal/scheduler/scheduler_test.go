package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/theodorthegreathe/mvcr-application-checker/store"
	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

type fakePublisher struct {
	mu    sync.Mutex
	tasks []types.FetchTask
	err   error
}

func (p *fakePublisher) PublishFetchTask(_ context.Context, t types.FetchTask) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.tasks = append(p.tasks, t)
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func newDueStore(t *testing.T, keys ...types.ApplicationKey) *store.MemoryStore {
	t.Helper()
	ms := store.NewMemoryStore()
	ctx := context.Background()
	if err := ms.CreateUser(ctx, types.User{ChatID: 1}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	for _, k := range keys {
		if err := ms.CreateApplication(ctx, 1, k); err != nil {
			t.Fatalf("create application: %v", err)
		}
	}
	return ms
}

func TestTickPublishesOneTaskPerDueApplication(t *testing.T) {
	k1 := types.ApplicationKey{Number: "1", Suffix: "0", Type: "TP", Year: "2023"}
	k2 := types.ApplicationKey{Number: "2", Suffix: "0", Type: "DP", Year: "2024"}
	ms := newDueStore(t, k1, k2)
	pub := &fakePublisher{}
	s := New(ms, pub, Config{TickPeriod: time.Minute, RefreshPeriod: time.Hour}, zap.NewNop())

	s.Tick(context.Background())
	waitFor(t, func() bool { return pub.count() == 2 })

	pub.mu.Lock()
	defer pub.mu.Unlock()
	for _, task := range pub.tasks {
		if task.PriorStatus != "Unknown" {
			t.Errorf("task prior status = %q, want Unknown", task.PriorStatus)
		}
		if task.ChatID != 1 {
			t.Errorf("task chat id = %d, want 1", task.ChatID)
		}
	}
}

func TestEnqueueSuppressesDuplicatesWithinTickWindow(t *testing.T) {
	k := types.ApplicationKey{Number: "1", Suffix: "0", Type: "TP", Year: "2023"}
	ms := newDueStore(t, k)
	pub := &fakePublisher{}
	s := New(ms, pub, Config{TickPeriod: time.Minute, RefreshPeriod: time.Hour}, zap.NewNop())

	task := types.FetchTask{ChatID: 1, Key: k, PriorStatus: "Unknown"}
	if !s.Enqueue(context.Background(), task) {
		t.Fatal("first enqueue rejected")
	}
	if s.Enqueue(context.Background(), task) {
		t.Fatal("duplicate enqueue accepted within tick window")
	}
	waitFor(t, func() bool { return pub.count() == 1 })
}

func TestEnqueueRetriesAfterPublishFailure(t *testing.T) {
	k := types.ApplicationKey{Number: "1", Suffix: "0", Type: "TP", Year: "2023"}
	ms := newDueStore(t, k)
	pub := &fakePublisher{err: errors.New("broker down")}
	s := New(ms, pub, Config{TickPeriod: time.Minute, RefreshPeriod: time.Hour}, zap.NewNop())

	task := types.FetchTask{ChatID: 1, Key: k, PriorStatus: "Unknown"}
	s.Enqueue(context.Background(), task)

	// failed publish clears the in-flight entry so the task can be retried
	waitFor(t, func() bool {
		s.inFlightMu.Lock()
		defer s.inFlightMu.Unlock()
		return len(s.inFlight) == 0
	})

	pub.mu.Lock()
	pub.err = nil
	pub.mu.Unlock()
	if !s.Enqueue(context.Background(), task) {
		t.Fatal("enqueue rejected after failed publish cleared in-flight state")
	}
	waitFor(t, func() bool { return pub.count() == 1 })
}

func TestResolvedApplicationsNeverScheduled(t *testing.T) {
	k := types.ApplicationKey{Number: "1", Suffix: "0", Type: "TP", Year: "2023"}
	ms := newDueStore(t, k)
	ms.UpdateStatus(context.Background(), 1, k, "Approved", true)
	pub := &fakePublisher{}
	s := New(ms, pub, Config{TickPeriod: time.Minute, RefreshPeriod: time.Hour}, zap.NewNop())

	s.Tick(context.Background())
	time.Sleep(50 * time.Millisecond)
	if pub.count() != 0 {
		t.Fatalf("resolved application scheduled: %d tasks", pub.count())
	}
}
