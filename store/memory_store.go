package store

import (
	"context"
	"sync"
	"time"

	"github.com/theodorthegreathe/mvcr-application-checker/types"
)

// MemoryStore is a mutex-guarded in-memory types.Store. It backs tests and
// local runs without Postgres, and mirrors the Postgres semantics including
// the epoch treatment of never-checked applications and monotonic
// last_updated.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[int64]*types.User
	apps  map[int64]map[types.ApplicationKey]*types.Application

	// Now is swappable so tests can control the staleness clock.
	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[int64]*types.User),
		apps:  make(map[int64]map[types.ApplicationKey]*types.Application),
		Now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u types.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ChatID]; ok {
		return ErrDuplicateUser
	}
	if u.Language == "" {
		u.Language = "EN"
	}
	u.CreatedAt = s.Now()
	s.users[u.ChatID] = &u
	return nil
}

func (s *MemoryStore) RemoveUser(_ context.Context, chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, chatID)
	delete(s.apps, chatID)
	return true
}

func (s *MemoryStore) CreateApplication(_ context.Context, chatID int64, key types.ApplicationKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[chatID]; !ok {
		return ErrUserNotFound
	}
	byKey := s.apps[chatID]
	if byKey == nil {
		byKey = make(map[types.ApplicationKey]*types.Application)
		s.apps[chatID] = byKey
	}
	if _, ok := byKey[key]; ok {
		return ErrDuplicateApplication
	}
	byKey[key] = &types.Application{
		ChatID:        chatID,
		Key:           key,
		CurrentStatus: "Unknown",
	}
	return nil
}

func (s *MemoryStore) RemoveApplication(_ context.Context, chatID int64, key types.ApplicationKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.apps[chatID], key)
	return true
}

func (s *MemoryStore) ListApplications(_ context.Context, chatID int64) []types.Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []types.Application
	for _, a := range s.apps[chatID] {
		out = append(out, *a)
	}
	return out
}

func (s *MemoryStore) UpdateStatus(_ context.Context, chatID int64, key types.ApplicationKey, status string, resolved bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[chatID][key]
	if !ok {
		return false
	}
	a.CurrentStatus = status
	a.IsResolved = resolved
	s.touchLocked(a)
	return true
}

func (s *MemoryStore) TouchApplication(_ context.Context, chatID int64, key types.ApplicationKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.apps[chatID][key]
	if !ok {
		return false
	}
	s.touchLocked(a)
	return true
}

// touchLocked advances last_updated, never rewinds it.
func (s *MemoryStore) touchLocked(a *types.Application) {
	now := s.Now()
	if a.LastUpdated == nil || now.After(*a.LastUpdated) {
		a.LastUpdated = &now
	}
}

func (s *MemoryStore) GetStatus(_ context.Context, chatID int64, key types.ApplicationKey) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.apps[chatID][key]
	if !ok {
		return "", false
	}
	return a.CurrentStatus, true
}

func (s *MemoryStore) ApplicationsDueForRefresh(_ context.Context, period time.Duration) []types.Application {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.Now()
	var due []types.Application
	for _, byKey := range s.apps {
		for _, a := range byKey {
			if a.IsResolved {
				continue
			}
			last := time.Unix(0, 0).UTC()
			if a.LastUpdated != nil {
				last = *a.LastUpdated
			}
			if now.Sub(last) > period {
				due = append(due, *a)
			}
		}
	}
	return due
}

func (s *MemoryStore) GetUserLanguage(_ context.Context, chatID int64) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[chatID]
	if !ok {
		return "", false
	}
	return u.Language, true
}

func (s *MemoryStore) SetUserLanguage(_ context.Context, chatID int64, lang string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[chatID]
	if !ok {
		return false
	}
	u.Language = lang
	return true
}

func (s *MemoryStore) CountSubscriptions(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, byKey := range s.apps {
		count += len(byKey)
	}
	return count
}

func (s *MemoryStore) Close() {}
