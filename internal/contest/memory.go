package contest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/waveger/backend/internal/contracts"
)

// MemoryRepository is an in-process ContestRepository, used by the tests of
// packages built on contests
type MemoryRepository struct {
	mu       sync.Mutex
	nextID   int64
	contests map[int64]*contracts.Contest
	pending  map[int64]bool
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		contests: make(map[int64]*contracts.Contest),
		pending:  make(map[int64]bool),
	}
}

var _ contracts.ContestRepository = (*MemoryRepository)(nil)

// CloseActive implements contracts.ContestRepository
func (m *MemoryRepository) CloseActive(ctx context.Context, now time.Time) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	open := m.openLocked()
	if open == nil {
		return 0, false, nil
	}
	open.Status = contracts.ContestClosed
	closedAt := now
	open.ClosedAt = &closedAt
	return open.ID, true, nil
}

// CreateOpen implements contracts.ContestRepository
func (m *MemoryRepository) CreateOpen(ctx context.Context, start, end, release time.Time) (*contracts.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.openLocked() != nil {
		return nil, contracts.ErrOpenContestExists
	}
	m.nextID++
	c := &contracts.Contest{
		ID:               m.nextID,
		StartDate:        start,
		EndDate:          end,
		ChartReleaseDate: release,
		Status:           contracts.ContestOpen,
		CreatedAt:        time.Now(),
	}
	m.contests[c.ID] = c
	cp := *c
	return &cp, nil
}

// GetOpen implements contracts.ContestRepository
func (m *MemoryRepository) GetOpen(ctx context.Context) (*contracts.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	open := m.openLocked()
	if open == nil {
		return nil, contracts.ErrNoOpenContest
	}
	cp := *open
	return &cp, nil
}

// GetByID implements contracts.ContestRepository
func (m *MemoryRepository) GetByID(ctx context.Context, id int64) (*contracts.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.contests[id]
	if !ok {
		return nil, fmt.Errorf("contest %d: %w", id, contracts.ErrContestNotFound)
	}
	cp := *c
	return &cp, nil
}

// List implements contracts.ContestRepository
func (m *MemoryRepository) List(ctx context.Context, limit int) ([]contracts.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]contracts.Contest, 0, len(m.contests))
	for _, c := range m.contests {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ClosedWithPending implements contracts.ContestRepository
func (m *MemoryRepository) ClosedWithPending(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	for id, pending := range m.pending {
		if c, ok := m.contests[id]; pending && ok && c.Status == contracts.ContestClosed {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// SetPending marks whether a contest still holds unprocessed predictions
func (m *MemoryRepository) SetPending(id int64, pending bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[id] = pending
}

// SaveSummary implements contracts.ContestRepository
func (m *MemoryRepository) SaveSummary(ctx context.Context, s contracts.ContestSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.contests[s.ContestID]
	if !ok {
		return fmt.Errorf("contest %d: %w", s.ContestID, contracts.ErrContestNotFound)
	}
	c.TotalPredictions = s.TotalPredictions
	c.CorrectPredictions = s.CorrectPredictions
	c.TotalPointsAwarded = s.TotalPoints
	stats := s.Stats
	c.Stats = &stats
	return nil
}

// Seed inserts a contest as-is (tests)
func (m *MemoryRepository) Seed(c contracts.Contest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == 0 {
		m.nextID++
		c.ID = m.nextID
	} else if c.ID > m.nextID {
		m.nextID = c.ID
	}
	m.contests[c.ID] = &c
}

// OpenCount returns how many contests are open (tests)
func (m *MemoryRepository) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.contests {
		if c.Status == contracts.ContestOpen {
			n++
		}
	}
	return n
}

func (m *MemoryRepository) openLocked() *contracts.Contest {
	var best *contracts.Contest
	for _, c := range m.contests {
		if c.Status != contracts.ContestOpen {
			continue
		}
		if best == nil || c.StartDate.After(best.StartDate) || (c.StartDate.Equal(best.StartDate) && c.ID > best.ID) {
			best = c
		}
	}
	return best
}
