package user

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wonny/waveger/backend/internal/contracts"
)

// MemoryRepository is an in-process UserRepository for tests of dependent packages
type MemoryRepository struct {
	mu    sync.Mutex
	users map[int64]*contracts.UserStats
	// Deltas records every ApplyDelta call in order
	Deltas []contracts.UserDelta
}

// NewMemoryRepository creates a repository holding the given users
func NewMemoryRepository(users ...contracts.UserStats) *MemoryRepository {
	m := &MemoryRepository{users: make(map[int64]*contracts.UserStats)}
	for i := range users {
		u := users[i]
		m.users[u.UserID] = &u
	}
	return m
}

var _ contracts.UserRepository = (*MemoryRepository)(nil)

// ApplyDelta implements contracts.UserRepository
func (m *MemoryRepository) ApplyDelta(ctx context.Context, d contracts.UserDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[d.UserID]
	if !ok {
		return contracts.Persistence("apply user delta", fmt.Errorf("user %d: %w", d.UserID, ErrNotFound))
	}
	u.TotalPoints += d.Points
	u.WeeklyPoints += d.Points
	u.PredictionsMade += d.Count
	u.CorrectPredictions += d.Correct
	m.Deltas = append(m.Deltas, d)
	return nil
}

// ResetWeeklyPoints implements contracts.UserRepository
func (m *MemoryRepository) ResetWeeklyPoints(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, u := range m.users {
		if u.WeeklyPoints != 0 {
			u.WeeklyPoints = 0
			n++
		}
	}
	return n, nil
}

// Get implements contracts.UserRepository
func (m *MemoryRepository) Get(ctx context.Context, id int64) (*contracts.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

// TopByTotal implements contracts.UserRepository
func (m *MemoryRepository) TopByTotal(ctx context.Context, limit int) ([]contracts.UserStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]contracts.UserStats, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
