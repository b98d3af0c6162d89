package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"speakUpAPI/internal/leaderboard"
	"speakUpAPI/internal/progress"
	"speakUpAPI/internal/types/badge"
	"speakUpAPI/internal/types/challenge"
	"speakUpAPI/internal/types/progression"
	"speakUpAPI/internal/types/pronunciation"
)

// ErrPersistenceFailed signals that a session was applied in memory but the
// save did not go through. The returned result is still valid; the caller
// should retry the save path, not recompute the session.
var ErrPersistenceFailed = errors.New("failed to persist user stats")

const (
	baseSessionXP = 20
	levelXPStep   = 1000

	// Minimum overall score that moves the accuracy-threshold daily goal.
	accuracyGoalMinScore = 85

	leaderboardSize = 25
)

// SessionResult is what RecordSession hands back to the UI layer.
type SessionResult struct {
	XPGained       int                        `json:"xp_gained"`
	LeveledUp      bool                       `json:"leveled_up"`
	StreakExtended bool                       `json:"streak_extended"`
	NewBadges      []badge.Badge              `json:"new_badges"`
	Session        *progression.SessionRecord `json:"session"`
	Stats          *progression.UserStats     `json:"stats"`
}

// ProgressionService is the per-user progression engine: it ingests
// pronunciation scores and maintains XP, levels, streaks, daily goals and
// badges. One instance serves all users; calls for the same user are
// serialized by a per-user mutex, different users never block each other.
type ProgressionService struct {
	store    progress.Store
	sessions progress.SessionLog
	board    progress.LeaderboardSource

	// now is the injectable clock. Date-boundary logic uses its UTC
	// calendar date only.
	now func() time.Time

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

func NewProgressionService(store progress.Store) *ProgressionService {
	s := &ProgressionService{
		store:     store,
		now:       time.Now,
		userLocks: make(map[string]*sync.Mutex),
	}
	if sl, ok := store.(progress.SessionLog); ok {
		s.sessions = sl
	}
	if lb, ok := store.(progress.LeaderboardSource); ok {
		s.board = lb
	}
	return s
}

// RecordSession applies one scored pronunciation attempt to the user's
// persistent progression state. Steps run in a fixed order: daily-goal
// regeneration, streak update, XP, aggregates, goal progress, level-ups,
// badge evaluation, persist.
func (s *ProgressionService) RecordSession(ctx context.Context, userID string, score *pronunciation.Score) (*SessionResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidInput)
	}
	if score == nil || !score.Valid() {
		return nil, fmt.Errorf("%w: score values must be within [0,100]", ErrInvalidInput)
	}

	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	stats, err := s.loadOrInit(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.today()
	stats.DailyGoals, _ = progression.RegenerateIfStale(stats.DailyGoals, today)

	// Streak. Same-day re-entry leaves it untouched so repeated sessions on
	// one date can never inflate it.
	streakExtended := false
	if stats.LastActivityDate != today {
		if stats.LastActivityDate == dayBefore(today) {
			stats.StreakDays++
		} else {
			stats.StreakDays = 1
		}
		stats.LastActivityDate = today
		streakExtended = true

		if g := stats.Goal(progression.GoalStreakMaintenance); g != nil && g.Current < g.Target {
			g.Current++
		}
	}

	gained := baseSessionXP + scoreTierBonus(score.Overall) + streakBonus(stats.StreakDays)
	stats.XP += gained
	stats.WeeklyXP += gained

	stats.TotalPronunciationScore += score.Overall
	stats.SessionCount++

	goalXP := applyGoalProgress(stats, score)
	stats.XP += goalXP
	gained += goalXP

	leveledUp := false
	for stats.XP >= stats.Level*levelXPStep {
		stats.Level++
		leveledUp = true
	}

	newBadges := []badge.Badge{}
	for _, b := range badge.Catalog() {
		if stats.HasBadge(b.ID) {
			continue
		}
		if b.Unlocks(stats) {
			stats.BadgesUnlocked = append(stats.BadgesUnlocked, b.ID)
			newBadges = append(newBadges, b)
		}
	}

	rec := &progression.SessionRecord{
		ID:           uuid.New(),
		UserID:       userID,
		Overall:      score.Overall,
		Accuracy:     score.Accuracy,
		Fluency:      score.Fluency,
		Completeness: score.Completeness,
		Prosody:      score.Prosody,
		CreatedAt:    s.now().UTC(),
	}

	result := &SessionResult{
		XPGained:       gained,
		LeveledUp:      leveledUp,
		StreakExtended: streakExtended,
		NewBadges:      newBadges,
		Session:        rec,
		Stats:          stats.Clone(),
	}

	if err := s.store.Save(ctx, userID, stats); err != nil {
		return result, fmt.Errorf("%w: %v", ErrPersistenceFailed, err)
	}

	if s.sessions != nil {
		if err := s.sessions.AppendSession(ctx, rec); err != nil {
			log.Printf("Failed to append session history for %s: %v", userID, err)
		}
	}

	return result, nil
}

// GetStats returns a snapshot copy of the user's stats, regenerating the
// daily goals first so a cold read never shows yesterday's set.
func (s *ProgressionService) GetStats(ctx context.Context, userID string) (*progression.UserStats, error) {
	lock := s.lockFor(userID)
	lock.Lock()
	defer lock.Unlock()

	stats, err := s.loadOrInit(ctx, userID)
	if err != nil {
		return nil, err
	}

	goals, regenerated := progression.RegenerateIfStale(stats.DailyGoals, s.today())
	if regenerated {
		stats.DailyGoals = goals
		if err := s.store.Save(ctx, userID, stats); err != nil {
			log.Printf("Failed to persist regenerated goals for %s: %v", userID, err)
		}
	}

	return stats.Clone(), nil
}

// GetBadges returns the full catalog with per-user unlocked status, like the
// badge screen expects.
func (s *ProgressionService) GetBadges(ctx context.Context, userID string) ([]badge.WithStatus, error) {
	stats, err := s.GetStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	catalog := badge.Catalog()
	out := make([]badge.WithStatus, 0, len(catalog))
	for _, b := range catalog {
		out = append(out, badge.WithStatus{Badge: b, Unlocked: stats.HasBadge(b.ID)})
	}
	return out, nil
}

// GetChallenges returns the static challenge catalog.
func (s *ProgressionService) GetChallenges() []challenge.Challenge {
	return challenge.Catalog()
}

// GetLeaderboard returns the global top users by XP with the requesting
// user's position spliced in.
func (s *ProgressionService) GetLeaderboard(ctx context.Context, userID string) (*leaderboard.Leaderboard, error) {
	if s.board == nil {
		return nil, fmt.Errorf("leaderboard is not supported by the configured store")
	}

	entries, err := s.board.TopByXP(ctx, leaderboardSize)
	if err != nil {
		return nil, err
	}
	total, err := s.board.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	board := &leaderboard.Leaderboard{Entries: entries, TotalUsers: total}
	for _, e := range entries {
		if e.UserID == userID {
			board.UserPosition = e
			return board, nil
		}
	}

	pos, err := s.board.UserRank(ctx, userID)
	if err != nil && !errors.Is(err, progress.ErrNotFound) {
		return nil, err
	}
	board.UserPosition = pos
	return board, nil
}

// GetRecentSessions returns the newest session records, most recent first.
func (s *ProgressionService) GetRecentSessions(ctx context.Context, userID string, limit int) ([]*progression.SessionRecord, error) {
	if s.sessions == nil {
		return []*progression.SessionRecord{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	return s.sessions.RecentSessions(ctx, userID, limit)
}

func (s *ProgressionService) loadOrInit(ctx context.Context, userID string) (*progression.UserStats, error) {
	stats, err := s.store.Load(ctx, userID)
	if errors.Is(err, progress.ErrNotFound) {
		return progression.NewUserStats(s.today()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stats for %s: %w", userID, err)
	}
	return stats, nil
}

func (s *ProgressionService) lockFor(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

func (s *ProgressionService) today() string {
	return s.now().UTC().Format(progression.DateLayout)
}

func dayBefore(date string) string {
	t, err := time.Parse(progression.DateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(progression.DateLayout)
}

func scoreTierBonus(overall int) int {
	switch {
	case overall >= 95:
		return 30
	case overall >= 90:
		return 20
	case overall >= 85:
		return 10
	}
	return 0
}

// streakBonus is additive: a 30-day streak earns both tiers.
func streakBonus(streakDays int) int {
	bonus := 0
	if streakDays >= 7 {
		bonus += 10
	}
	if streakDays >= 30 {
		bonus += 20
	}
	return bonus
}

// applyGoalProgress advances the count and accuracy goals for this session
// and returns the XP from goals that just completed. Completion is a one-way
// latch; already-completed goals are skipped.
func applyGoalProgress(stats *progression.UserStats, score *pronunciation.Score) int {
	if g := stats.Goal(progression.GoalPronunciationCount); g != nil {
		g.Current++
	}
	if score.Overall >= accuracyGoalMinScore {
		if g := stats.Goal(progression.GoalAccuracyThreshold); g != nil && score.Overall > g.Current {
			g.Current = score.Overall
		}
	}

	bonus := 0
	for i := range stats.DailyGoals {
		g := &stats.DailyGoals[i]
		if !g.Completed && g.Current >= g.Target {
			g.Completed = true
			bonus += g.XPReward
		}
	}
	return bonus
}
