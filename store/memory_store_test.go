package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

var testKey = types.ApplicationKey{Number: "4242", Suffix: "0", Type: "TP", Year: "2023"}

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	if err := s.CreateUser(context.Background(), types.User{ChatID: 1, Language: "EN"}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return s
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateUser(context.Background(), types.User{ChatID: 1})
	if !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("err = %v, want ErrDuplicateUser", err)
	}
}

func TestCreateApplicationVisibleImmediately(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateApplication(ctx, 1, testKey); err != nil {
		t.Fatalf("create application: %v", err)
	}
	got, ok := s.GetStatus(ctx, 1, testKey)
	if !ok || got != "Unknown" {
		t.Fatalf("GetStatus = %q, %v; want Unknown, true", got, ok)
	}
}

func TestCreateApplicationDuplicateIdempotentOutcome(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateApplication(ctx, 1, testKey); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := s.CreateApplication(ctx, 1, testKey); !errors.Is(err, ErrDuplicateApplication) {
		t.Fatalf("second create err = %v, want ErrDuplicateApplication", err)
	}
	if n := s.CountSubscriptions(ctx); n != 1 {
		t.Fatalf("CountSubscriptions = %d, want 1", n)
	}
}

func TestCreateApplicationWithoutUser(t *testing.T) {
	s := NewMemoryStore()
	if err := s.CreateApplication(context.Background(), 99, testKey); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestRemoveApplicationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if !s.RemoveApplication(context.Background(), 1, testKey) {
		t.Fatal("removing a non-tracked application must report success")
	}
}

func TestRemoveUserCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateApplication(ctx, 1, testKey); err != nil {
		t.Fatalf("create application: %v", err)
	}
	s.RemoveUser(ctx, 1)
	if _, ok := s.GetStatus(ctx, 1, testKey); ok {
		t.Fatal("application still queryable after user removal")
	}
	if n := s.CountSubscriptions(ctx); n != 0 {
		t.Fatalf("CountSubscriptions = %d, want 0", n)
	}
}

func TestApplicationsDueForRefresh(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	period := time.Hour

	base := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return base }

	neverChecked := types.ApplicationKey{Number: "1", Suffix: "0", Type: "TP", Year: "2023"}
	justChecked := types.ApplicationKey{Number: "2", Suffix: "0", Type: "TP", Year: "2023"}
	staleChecked := types.ApplicationKey{Number: "3", Suffix: "0", Type: "TP", Year: "2023"}
	resolved := types.ApplicationKey{Number: "4", Suffix: "0", Type: "TP", Year: "2023"}
	for _, k := range []types.ApplicationKey{neverChecked, justChecked, staleChecked, resolved} {
		if err := s.CreateApplication(ctx, 1, k); err != nil {
			t.Fatalf("create %v: %v", k, err)
		}
	}

	// checked period-ε ago: not due yet
	s.Now = func() time.Time { return base.Add(-period + time.Minute) }
	s.TouchApplication(ctx, 1, justChecked)
	// checked period+ε ago: due
	s.Now = func() time.Time { return base.Add(-period - time.Minute) }
	s.TouchApplication(ctx, 1, staleChecked)
	// resolved long ago: never due
	s.UpdateStatus(ctx, 1, resolved, "Approved", true)

	s.Now = func() time.Time { return base }
	due := s.ApplicationsDueForRefresh(ctx, period)

	want := map[types.ApplicationKey]bool{neverChecked: true, staleChecked: true}
	if len(due) != len(want) {
		t.Fatalf("due = %d applications, want %d: %+v", len(due), len(want), due)
	}
	for _, a := range due {
		if !want[a.Key] {
			t.Errorf("unexpected due application %v", a.Key)
		}
	}
}

func TestTouchNeverRewindsLastUpdated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.CreateApplication(ctx, 1, testKey); err != nil {
		t.Fatalf("create application: %v", err)
	}

	later := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return later }
	s.TouchApplication(ctx, 1, testKey)

	// a redelivered task applying an older wall clock must not move time back
	s.Now = func() time.Time { return later.Add(-time.Hour) }
	s.UpdateStatus(ctx, 1, testKey, "Approved", false)

	apps := s.ListApplications(ctx, 1)
	if len(apps) != 1 || apps[0].LastUpdated == nil {
		t.Fatalf("unexpected applications: %+v", apps)
	}
	if apps[0].LastUpdated.Before(later) {
		t.Fatalf("last_updated rewound to %v, want >= %v", apps[0].LastUpdated, later)
	}
	if apps[0].CurrentStatus != "Approved" {
		t.Fatalf("status = %q, want Approved", apps[0].CurrentStatus)
	}
}
