package progress

import (
	"context"
	"sort"
	"sync"

	"speakUpAPI/internal/leaderboard"
	"speakUpAPI/internal/types/progression"
)

// MemoryStore is an in-process Store used in tests and single-node setups
// without a database. Safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	stats    map[string]*progression.UserStats
	sessions map[string][]*progression.SessionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stats:    make(map[string]*progression.UserStats),
		sessions: make(map[string][]*progression.SessionRecord),
	}
}

func (s *MemoryStore) Load(ctx context.Context, userID string) (*progression.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.stats[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return stats.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, userID string, stats *progression.UserStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats[userID] = stats.Clone()
	return nil
}

func (s *MemoryStore) AppendSession(ctx context.Context, rec *progression.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.sessions[rec.UserID] = append(s.sessions[rec.UserID], &cp)
	return nil
}

func (s *MemoryStore) RecentSessions(ctx context.Context, userID string, limit int) ([]*progression.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sessions[userID]
	var recent []*progression.SessionRecord
	for i := len(all) - 1; i >= 0 && len(recent) < limit; i-- {
		cp := *all[i]
		recent = append(recent, &cp)
	}
	return recent, nil
}

func (s *MemoryStore) TopByXP(ctx context.Context, limit int) ([]*leaderboard.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.allEntries()
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *MemoryStore) UserRank(ctx context.Context, userID string) (*leaderboard.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.allEntries() {
		if e.UserID == userID {
			return e, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CountUsers(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.stats), nil
}

// allEntries returns every user as a ranked entry, highest XP first.
// Callers must hold at least the read lock.
func (s *MemoryStore) allEntries() []*leaderboard.Entry {
	entries := make([]*leaderboard.Entry, 0, len(s.stats))
	for userID, stats := range s.stats {
		entries = append(entries, &leaderboard.Entry{
			UserID:     userID,
			Level:      stats.Level,
			XP:         stats.XP,
			StreakDays: stats.StreakDays,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].XP != entries[j].XP {
			return entries[i].XP > entries[j].XP
		}
		return entries[i].UserID < entries[j].UserID
	})
	for i, e := range entries {
		e.Rank = i + 1
	}
	return entries
}
