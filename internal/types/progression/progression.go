package progression

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-date format used for streak and daily-goal
// bookkeeping. Time-of-day is never stored.
const DateLayout = "2006-01-02"

type GoalKind string

const (
	GoalPronunciationCount GoalKind = "pronunciation_count"
	GoalAccuracyThreshold  GoalKind = "accuracy_threshold"
	GoalStreakMaintenance  GoalKind = "streak_maintenance"
)

// DailyGoal tracks one per-day objective. For accuracy_threshold goals
// Current holds the best overall score seen that day, not a sum.
type DailyGoal struct {
	Kind      GoalKind `json:"kind"`
	Target    int      `json:"target"`
	Current   int      `json:"current"`
	XPReward  int      `json:"xp_reward"`
	Completed bool     `json:"completed"`
	Date      string   `json:"date"`
}

// UserStats is the single persisted progression record for one user.
type UserStats struct {
	Level                   int         `json:"level"`
	XP                      int         `json:"xp"`
	WeeklyXP                int         `json:"weekly_xp"`
	StreakDays              int         `json:"streak_days"`
	LastActivityDate        string      `json:"last_activity_date,omitempty"`
	BadgesUnlocked          []string    `json:"badges_unlocked"`
	TotalPronunciationScore int         `json:"total_pronunciation_score"`
	SessionCount            int         `json:"session_count"`
	DailyGoals              []DailyGoal `json:"daily_goals"`
}

// SessionRecord is one logged pronunciation attempt.
type SessionRecord struct {
	ID           uuid.UUID `json:"id"`
	UserID       string    `json:"user_id"`
	Overall      int       `json:"overall"`
	Accuracy     int       `json:"accuracy"`
	Fluency      int       `json:"fluency"`
	Completeness int       `json:"completeness"`
	Prosody      int       `json:"prosody"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUserStats returns the defaults for a first-time user: level 1, no XP,
// no streak, no badges and a fresh goal set for the given date.
func NewUserStats(today string) *UserStats {
	return &UserStats{
		Level:          1,
		BadgesUnlocked: []string{},
		DailyGoals:     NewDailyGoals(today),
	}
}

// NewDailyGoals generates the three goal instances for one calendar date.
func NewDailyGoals(date string) []DailyGoal {
	return []DailyGoal{
		{Kind: GoalPronunciationCount, Target: 5, XPReward: 50, Date: date},
		{Kind: GoalAccuracyThreshold, Target: 90, XPReward: 40, Date: date},
		{Kind: GoalStreakMaintenance, Target: 1, XPReward: 25, Date: date},
	}
}

// RegenerateIfStale discards and regenerates the goal set when it belongs to
// a different calendar date than today. Regenerated reports whether the set
// was replaced.
func RegenerateIfStale(goals []DailyGoal, today string) (fresh []DailyGoal, regenerated bool) {
	if len(goals) > 0 && goals[0].Date == today {
		return goals, false
	}
	return NewDailyGoals(today), true
}

// Goal returns the goal of the given kind from the current set, or nil.
func (s *UserStats) Goal(kind GoalKind) *DailyGoal {
	for i := range s.DailyGoals {
		if s.DailyGoals[i].Kind == kind {
			return &s.DailyGoals[i]
		}
	}
	return nil
}

// HasBadge reports whether the badge id has already been unlocked.
func (s *UserStats) HasBadge(id string) bool {
	for _, b := range s.BadgesUnlocked {
		if b == id {
			return true
		}
	}
	return false
}

// AverageScore is the mean overall score across all sessions, 0 when no
// session has been recorded yet.
func (s *UserStats) AverageScore() float64 {
	if s.SessionCount == 0 {
		return 0
	}
	return float64(s.TotalPronunciationScore) / float64(s.SessionCount)
}

// Clone returns a deep copy. Accessors hand out clones so callers can never
// mutate the engine's state through a returned snapshot.
func (s *UserStats) Clone() *UserStats {
	cp := *s
	cp.BadgesUnlocked = append([]string{}, s.BadgesUnlocked...)
	cp.DailyGoals = append([]DailyGoal{}, s.DailyGoals...)
	return &cp
}
