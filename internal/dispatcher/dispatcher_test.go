package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/theodorthegreathe/mvcr-application-checker/store"
	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

var testKey = types.ApplicationKey{Number: "4242", Suffix: "0", Type: "TP", Year: "2023"}

type fakeFetcher struct {
	status string
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(context.Context, types.ApplicationKey) (string, error) {
	f.calls++
	return f.status, f.err
}

type fakePublisher struct {
	mu    sync.Mutex
	notes []types.Notification
}

func (p *fakePublisher) PublishNotification(_ context.Context, n types.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notes = append(p.notes, n)
	return nil
}

func (p *fakePublisher) all() []types.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]types.Notification(nil), p.notes...)
}

func setup(t *testing.T, f *fakeFetcher) (*Dispatcher, *store.MemoryStore, *fakePublisher) {
	t.Helper()
	ms := store.NewMemoryStore()
	ctx := context.Background()
	if err := ms.CreateUser(ctx, types.User{ChatID: 1, Language: "RU"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := ms.CreateApplication(ctx, 1, testKey); err != nil {
		t.Fatalf("create application: %v", err)
	}
	pub := &fakePublisher{}
	return New(ms, f, pub, time.Second, zap.NewNop()), ms, pub
}

func task() types.FetchTask {
	return types.FetchTask{ChatID: 1, Key: testKey, PriorStatus: "Unknown"}
}

func TestUnchangedStatusTouchesTimestampOnly(t *testing.T) {
	d, ms, pub := setup(t, &fakeFetcher{status: "Unknown"})
	if err := d.Process(context.Background(), task()); err != nil {
		t.Fatalf("process: %v", err)
	}

	apps := ms.ListApplications(context.Background(), 1)
	if apps[0].CurrentStatus != "Unknown" {
		t.Errorf("status = %q, want Unknown", apps[0].CurrentStatus)
	}
	if apps[0].LastUpdated == nil {
		t.Error("last_updated not advanced on unchanged status")
	}
	if len(pub.all()) != 0 {
		t.Errorf("got %d notifications, want 0", len(pub.all()))
	}
}

func TestChangedStatusNotifiesOnce(t *testing.T) {
	d, ms, pub := setup(t, &fakeFetcher{status: "Approved"})
	if err := d.Process(context.Background(), task()); err != nil {
		t.Fatalf("process: %v", err)
	}

	apps := ms.ListApplications(context.Background(), 1)
	if apps[0].CurrentStatus != "Approved" {
		t.Errorf("status = %q, want Approved", apps[0].CurrentStatus)
	}
	if !apps[0].IsResolved {
		t.Error("terminal status must set is_resolved")
	}

	notes := pub.all()
	if len(notes) != 1 {
		t.Fatalf("got %d notifications, want 1", len(notes))
	}
	n := notes[0]
	if n.OldStatus != "Unknown" || n.NewStatus != "Approved" {
		t.Errorf("notification statuses = %q -> %q", n.OldStatus, n.NewStatus)
	}
	if n.Lang != "RU" {
		t.Errorf("notification lang = %q, want RU", n.Lang)
	}
	if n.UpdatedAt.IsZero() || n.UpdatedAt.Location() != time.UTC {
		t.Errorf("notification timestamp %v must be UTC and set", n.UpdatedAt)
	}
}

func TestNonTerminalChangeStaysUnresolved(t *testing.T) {
	d, ms, _ := setup(t, &fakeFetcher{status: "Pending review"})
	if err := d.Process(context.Background(), task()); err != nil {
		t.Fatalf("process: %v", err)
	}
	apps := ms.ListApplications(context.Background(), 1)
	if apps[0].IsResolved {
		t.Error("non-terminal status must not resolve the application")
	}
}

func TestFetchFailureMutatesNothing(t *testing.T) {
	d, ms, pub := setup(t, &fakeFetcher{err: errors.New("timeout")})
	if err := d.Process(context.Background(), task()); err != nil {
		t.Fatalf("process must swallow fetch errors, got %v", err)
	}
	apps := ms.ListApplications(context.Background(), 1)
	if apps[0].CurrentStatus != "Unknown" || apps[0].LastUpdated != nil {
		t.Errorf("stored state mutated on fetch failure: %+v", apps[0])
	}
	if len(pub.all()) != 0 {
		t.Error("no notification expected on fetch failure")
	}
}

func TestRedeliveredTaskIsNoop(t *testing.T) {
	d, ms, pub := setup(t, &fakeFetcher{status: "Approved"})
	ctx := context.Background()

	if err := d.Process(ctx, task()); err != nil {
		t.Fatalf("first process: %v", err)
	}
	first := ms.ListApplications(ctx, 1)[0]

	// same task delivered again after it already completed
	if err := d.Process(ctx, task()); err != nil {
		t.Fatalf("second process: %v", err)
	}
	second := ms.ListApplications(ctx, 1)[0]

	if second.CurrentStatus != first.CurrentStatus || second.IsResolved != first.IsResolved {
		t.Errorf("redelivery corrupted state: %+v -> %+v", first, second)
	}
	if second.LastUpdated.Before(*first.LastUpdated) {
		t.Error("last_updated rewound on redelivery")
	}
	// re-reading the store makes the duplicate a no-change fetch
	if len(pub.all()) != 1 {
		t.Errorf("got %d notifications after redelivery, want 1", len(pub.all()))
	}
}

func TestForcedRefreshIsLoggedDistinctly(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := context.Background()

	ms := store.NewMemoryStore()
	if err := ms.CreateUser(ctx, types.User{ChatID: 1, Language: "RU"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := ms.CreateApplication(ctx, 1, testKey); err != nil {
		t.Fatalf("create application: %v", err)
	}
	d := New(ms, &fakeFetcher{status: "Unknown"}, &fakePublisher{}, time.Second, zap.New(core))

	forced := task()
	forced.Force = true
	if err := d.Process(ctx, forced); err != nil {
		t.Fatalf("process forced: %v", err)
	}
	if got := logs.FilterMessage("processing forced refresh").Len(); got != 1 {
		t.Fatalf("got %d forced-refresh log entries, want 1", got)
	}

	// a scheduled task must not be reported as forced
	if err := d.Process(ctx, task()); err != nil {
		t.Fatalf("process scheduled: %v", err)
	}
	if got := logs.FilterMessage("processing forced refresh").Len(); got != 1 {
		t.Errorf("scheduled task logged as forced, %d entries", got)
	}
}

func TestUntrackedApplicationDropsTask(t *testing.T) {
	d, ms, pub := setup(t, &fakeFetcher{status: "Approved"})
	ctx := context.Background()
	ms.RemoveApplication(ctx, 1, testKey)

	if err := d.Process(ctx, task()); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(pub.all()) != 0 {
		t.Error("no notification expected for untracked application")
	}
}
