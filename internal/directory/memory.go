package directory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-process Store. Nothing survives a restart.
type Memory struct {
	mu         sync.RWMutex
	byID       map[string]*Record
	byUsername map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		byID:       make(map[string]*Record),
		byUsername: make(map[string]string),
	}
}

func (m *Memory) Register(ctx context.Context, reg Registration) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	rec, err := NewRecord(reg)
	if err != nil {
		return Profile{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUsername[rec.Username]; ok {
		return Profile{}, ErrNameTaken
	}
	m.byID[rec.ID] = &rec
	m.byUsername[rec.Username] = rec.ID
	return rec.Profile, nil
}

func (m *Memory) Authenticate(ctx context.Context, username, password string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	m.mu.RLock()
	id, ok := m.byUsername[NormalizeUsername(username)]
	var rec Record
	if ok {
		rec = *m.byID[id]
	}
	m.mu.RUnlock()

	if !ok {
		return Profile{}, ErrInvalidCredentials
	}
	if err := CheckPassword(rec.PasswordHash, password); err != nil {
		return Profile{}, err
	}
	return rec.Profile, nil
}

func (m *Memory) Lookup(ctx context.Context, id string) (Profile, error) {
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.byID[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return rec.Profile, nil
}

func (m *Memory) CreditLevelCompletion(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if _, ok := m.byID[id]; !ok {
			return fmt.Errorf("credit %s: %w", id, ErrNotFound)
		}
	}
	for _, id := range ids {
		m.byID[id].LevelsCompleted++
	}
	return nil
}

func (m *Memory) Leaderboard(ctx context.Context, limit int) ([]Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]Profile, 0, len(m.byID))
	for _, rec := range m.byID {
		out = append(out, rec.Profile)
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b Profile) int {
		if a.LevelsCompleted != b.LevelsCompleted {
			return b.LevelsCompleted - a.LevelsCompleted
		}
		if c := strings.Compare(a.DisplayName, b.DisplayName); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	if limit = ClampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

var _ Store = (*Memory)(nil)
