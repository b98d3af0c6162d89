package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"speakUpAPI/internal/progress"
	"speakUpAPI/internal/types/progression"
	"speakUpAPI/internal/types/pronunciation"
)

func fixedClock(date string) func() time.Time {
	t, err := time.Parse(progression.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t.Add(12 * time.Hour) }
}

func newTestEngine(date string) (*ProgressionService, *progress.MemoryStore) {
	store := progress.NewMemoryStore()
	svc := NewProgressionService(store)
	svc.now = fixedClock(date)
	return svc, store
}

func testScore(overall int) *pronunciation.Score {
	return &pronunciation.Score{
		Overall:      overall,
		Accuracy:     overall,
		Fluency:      overall,
		Completeness: overall,
		Prosody:      overall,
	}
}

func TestRecordSessionFirstEver(t *testing.T) {
	svc, _ := newTestEngine("2026-03-02")
	ctx := context.Background()

	result, err := svc.RecordSession(ctx, "user-1", testScore(96))
	if err != nil {
		t.Fatalf("RecordSession returned error: %v", err)
	}

	if result.Stats.StreakDays != 1 {
		t.Errorf("streak = %d, want 1", result.Stats.StreakDays)
	}
	if result.Stats.SessionCount != 1 {
		t.Errorf("session count = %d, want 1", result.Stats.SessionCount)
	}
	if result.Stats.Level != 1 {
		t.Errorf("level = %d, want 1", result.Stats.Level)
	}
	if !result.Stats.HasBadge("first_steps") {
		t.Error("first_steps badge should unlock after the first session")
	}
	// 20 base + 30 tier bonus, plus accuracy-threshold (40) and
	// streak-maintenance (25) goal rewards completing on the spot.
	if result.XPGained != 115 {
		t.Errorf("xp gained = %d, want 115", result.XPGained)
	}
}

func TestRecordSessionThreeConsecutiveDays(t *testing.T) {
	svc, _ := newTestEngine("2026-03-02")
	ctx := context.Background()

	days := []string{"2026-03-02", "2026-03-03", "2026-03-04"}
	var last *SessionResult
	for _, day := range days {
		svc.now = fixedClock(day)
		result, err := svc.RecordSession(ctx, "user-1", testScore(96))
		if err != nil {
			t.Fatalf("RecordSession on %s returned error: %v", day, err)
		}
		last = result
	}

	if last.Stats.StreakDays != 3 {
		t.Errorf("streak = %d, want 3", last.Stats.StreakDays)
	}
	if last.Stats.SessionCount != 3 {
		t.Errorf("session count = %d, want 3", last.Stats.SessionCount)
	}
	// 115 XP per day: 20 base + 30 tier + goal rewards 40 + 25.
	if last.Stats.XP != 345 {
		t.Errorf("xp = %d, want 345", last.Stats.XP)
	}

	// The pronunciation-count goal resets each day and only ever reaches 1.
	goal := last.Stats.Goal(progression.GoalPronunciationCount)
	if goal == nil {
		t.Fatal("pronunciation-count goal missing")
	}
	if goal.Current != 1 || goal.Completed {
		t.Errorf("pronunciation-count goal = %+v, want current 1 and not completed", goal)
	}
}

func TestRecordSessionSameDayStreakIdempotent(t *testing.T) {
	svc, _ := newTestEngine("2026-03-02")
	ctx := context.Background()

	first, err := svc.RecordSession(ctx, "user-1", testScore(80))
	if err != nil {
		t.Fatalf("first RecordSession returned error: %v", err)
	}
	second, err := svc.RecordSession(ctx, "user-1", testScore(80))
	if err != nil {
		t.Fatalf("second RecordSession returned error: %v", err)
	}

	if second.Stats.StreakDays != 1 {
		t.Errorf("streak after two same-day sessions = %d, want 1", second.Stats.StreakDays)
	}
	if second.StreakExtended {
		t.Error("second same-day session should not extend the streak")
	}
	if second.Stats.SessionCount != 2 {
		t.Errorf("session count = %d, want 2", second.Stats.SessionCount)
	}
	if second.Stats.XP <= first.Stats.XP {
		t.Error("xp should keep growing on same-day sessions")
	}
}

func TestRecordSessionGapResetsStreak(t *testing.T) {
	svc, _ := newTestEngine("2026-03-02")
	ctx := context.Background()

	for _, day := range []string{"2026-03-02", "2026-03-03"} {
		svc.now = fixedClock(day)
		if _, err := svc.RecordSession(ctx, "user-1", testScore(70)); err != nil {
			t.Fatalf("RecordSession on %s returned error: %v", day, err)
		}
	}

	// Three-day gap.
	svc.now = fixedClock("2026-03-07")
	result, err := svc.RecordSession(ctx, "user-1", testScore(70))
	if err != nil {
		t.Fatalf("RecordSession after gap returned error: %v", err)
	}
	if result.Stats.StreakDays != 1 {
		t.Errorf("streak after gap = %d, want 1", result.Stats.StreakDays)
	}
}

func TestRecordSessionXPTiers(t *testing.T) {
	cases := []struct {
		overall int
		want    int
	}{
		{96, 50},
		{92, 40},
		{86, 30},
		{84, 20},
		{50, 20},
	}

	for _, c := range cases {
		svc, _ := newTestEngine("2026-03-02")
		userID := fmt.Sprintf("user-%d", c.overall)

		result, err := svc.RecordSession(context.Background(), userID, testScore(c.overall))
		if err != nil {
			t.Fatalf("RecordSession(%d) returned error: %v", c.overall, err)
		}

		// Strip goal rewards to isolate the session XP.
		goalXP := 0
		for _, g := range result.Stats.DailyGoals {
			if g.Completed {
				goalXP += g.XPReward
			}
		}
		if got := result.XPGained - goalXP; got != c.want {
			t.Errorf("overall %d: session xp = %d, want %d", c.overall, got, c.want)
		}
	}
}

func TestRecordSessionStreakBonusAdditive(t *testing.T) {
	if got := streakBonus(6); got != 0 {
		t.Errorf("streakBonus(6) = %d, want 0", got)
	}
	if got := streakBonus(7); got != 10 {
		t.Errorf("streakBonus(7) = %d, want 10", got)
	}
	if got := streakBonus(30); got != 30 {
		t.Errorf("streakBonus(30) = %d, want 30", got)
	}
}

func TestRecordSessionMultiLevelJump(t *testing.T) {
	svc, store := newTestEngine("2026-03-02")
	ctx := context.Background()

	seeded := progression.NewUserStats("2026-03-01")
	seeded.XP = 2990
	if err := store.Save(ctx, "user-1", seeded); err != nil {
		t.Fatal(err)
	}

	result, err := svc.RecordSession(ctx, "user-1", testScore(96))
	if err != nil {
		t.Fatalf("RecordSession returned error: %v", err)
	}

	if !result.LeveledUp {
		t.Fatal("expected a level up")
	}
	if result.Stats.Level != 4 {
		t.Errorf("level = %d, want 4 after a multi-level jump", result.Stats.Level)
	}
	if result.Stats.XP >= result.Stats.Level*1000 {
		t.Errorf("level invariant violated: xp %d >= level*1000 %d", result.Stats.XP, result.Stats.Level*1000)
	}
}

func TestRecordSessionAccuracyGoalTracksMaxSeen(t *testing.T) {
	svc, _ := newTestEngine("2026-03-02")
	ctx := context.Background()

	for _, overall := range []int{87, 89, 88} {
		if _, err := svc.RecordSession(ctx, "user-1", testScore(overall)); err != nil {
			t.Fatalf("RecordSession(%d) returned error: %v", overall, err)
		}
	}

	stats, err := svc.GetStats(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	goal := stats.Goal(progression.GoalAccuracyThreshold)
	if goal == nil {
		t.Fatal("accuracy-threshold goal missing")
	}
	if goal.Current != 89 {
		t.Errorf("accuracy goal current = %d, want max-seen 89", goal.Current)
	}
	if goal.Completed {
		t.Error("accuracy goal should not complete below its target")
	}

	// A score below 85 must not move the goal.
	if _, err := svc.RecordSession(ctx, "user-1", testScore(84)); err != nil {
		t.Fatal(err)
	}
	stats, _ = svc.GetStats(ctx, "user-1")
	if got := stats.Goal(progression.GoalAccuracyThreshold).Current; got != 89 {
		t.Errorf("accuracy goal current = %d after low score, want 89", got)
	}
}

func TestRecordSessionGoalRewardGrantedOnce(t *testing.T) {
	svc, _ := newTestEngine("2026-03-02")
	ctx := context.Background()

	for i := 1; i <= 6; i++ {
		result, err := svc.RecordSession(ctx, "user-1", testScore(50))
		if err != nil {
			t.Fatal(err)
		}

		// Session 1 completes the streak-maintenance goal (+25); session 5
		// completes the pronunciation-count goal (+50). Every other session
		// earns the base 20 only, even though the count keeps rising.
		want := 20
		switch i {
		case 1:
			want = 45
		case 5:
			want = 70
		}
		if result.XPGained != want {
			t.Errorf("session %d: xp gained = %d, want %d", i, result.XPGained, want)
		}

		goal := result.Stats.Goal(progression.GoalPronunciationCount)
		if goal.Completed != (i >= 5) {
			t.Errorf("session %d: pronunciation-count completed = %v", i, goal.Completed)
		}
	}
}

func TestRecordSessionBadgesMonotonic(t *testing.T) {
	svc, _ := newTestEngine("2026-03-02")
	ctx := context.Background()

	var prevCount int
	for i := 0; i < 12; i++ {
		result, err := svc.RecordSession(ctx, "user-1", testScore(96))
		if err != nil {
			t.Fatal(err)
		}
		if len(result.Stats.BadgesUnlocked) < prevCount {
			t.Fatalf("badge set shrank: %d -> %d", prevCount, len(result.Stats.BadgesUnlocked))
		}
		prevCount = len(result.Stats.BadgesUnlocked)
	}

	stats, _ := svc.GetStats(ctx, "user-1")
	if !stats.HasBadge("committed") {
		t.Error("committed badge should unlock at 10 sessions")
	}
	if !stats.HasBadge("sharp_ear") {
		t.Error("sharp_ear badge should unlock with a 96 average")
	}
}

func TestRecordSessionRejectsInvalidScore(t *testing.T) {
	svc, store := newTestEngine("2026-03-02")
	ctx := context.Background()

	bad := []*pronunciation.Score{
		nil,
		{Overall: 101, Accuracy: 50, Fluency: 50, Completeness: 50, Prosody: 50},
		{Overall: 50, Accuracy: -1, Fluency: 50, Completeness: 50, Prosody: 50},
	}

	for _, score := range bad {
		if _, err := svc.RecordSession(ctx, "user-1", score); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("RecordSession(%+v): err = %v, want ErrInvalidInput", score, err)
		}
	}

	// Nothing may have been persisted.
	if _, err := store.Load(ctx, "user-1"); !errors.Is(err, progress.ErrNotFound) {
		t.Errorf("store.Load after rejected sessions: err = %v, want ErrNotFound", err)
	}
}

type failingSaveStore struct {
	*progress.MemoryStore
	failSave bool
}

func (s *failingSaveStore) Save(ctx context.Context, userID string, stats *progression.UserStats) error {
	if s.failSave {
		return errors.New("disk on fire")
	}
	return s.MemoryStore.Save(ctx, userID, stats)
}

func TestRecordSessionPersistenceFailureStillReturnsResult(t *testing.T) {
	store := &failingSaveStore{MemoryStore: progress.NewMemoryStore(), failSave: true}
	svc := NewProgressionService(store)
	svc.now = fixedClock("2026-03-02")

	result, err := svc.RecordSession(context.Background(), "user-1", testScore(96))
	if !errors.Is(err, ErrPersistenceFailed) {
		t.Fatalf("err = %v, want ErrPersistenceFailed", err)
	}
	if result == nil {
		t.Fatal("result must be returned alongside ErrPersistenceFailed so the caller can retry the save")
	}
	if result.XPGained == 0 {
		t.Error("computed xp should be reported even when the save fails")
	}
}

func TestGetStatsRegeneratesStaleGoals(t *testing.T) {
	svc, store := newTestEngine("2026-03-02")
	ctx := context.Background()

	if _, err := svc.RecordSession(ctx, "user-1", testScore(96)); err != nil {
		t.Fatal(err)
	}

	// Next day, a cold read must not show yesterday's goals.
	svc.now = fixedClock("2026-03-03")
	stats, err := svc.GetStats(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range stats.DailyGoals {
		if g.Date != "2026-03-03" {
			t.Errorf("goal date = %s, want 2026-03-03", g.Date)
		}
		if g.Current != 0 || g.Completed {
			t.Errorf("regenerated goal should be fresh, got %+v", g)
		}
	}

	// And the regeneration is persisted.
	saved, err := store.Load(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if saved.DailyGoals[0].Date != "2026-03-03" {
		t.Errorf("persisted goal date = %s, want 2026-03-03", saved.DailyGoals[0].Date)
	}
}

func TestGetStatsReturnsSnapshot(t *testing.T) {
	svc, _ := newTestEngine("2026-03-02")
	ctx := context.Background()

	if _, err := svc.RecordSession(ctx, "user-1", testScore(96)); err != nil {
		t.Fatal(err)
	}

	snapshot, err := svc.GetStats(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	snapshot.XP = 999999
	snapshot.BadgesUnlocked = append(snapshot.BadgesUnlocked, "forged")
	snapshot.DailyGoals[0].Current = 42

	fresh, err := svc.GetStats(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if fresh.XP == 999999 || fresh.HasBadge("forged") || fresh.DailyGoals[0].Current == 42 {
		t.Error("mutating a returned snapshot must not affect engine state")
	}
}

func TestGetStatsInitializesDefaults(t *testing.T) {
	svc, _ := newTestEngine("2026-03-02")

	stats, err := svc.GetStats(context.Background(), "new-user")
	if err != nil {
		t.Fatalf("GetStats for an unknown user returned error: %v", err)
	}
	if stats.Level != 1 || stats.XP != 0 || stats.StreakDays != 0 {
		t.Errorf("defaults = level %d, xp %d, streak %d; want 1, 0, 0", stats.Level, stats.XP, stats.StreakDays)
	}
	if len(stats.DailyGoals) != 3 {
		t.Errorf("daily goals = %d, want 3", len(stats.DailyGoals))
	}
	if len(stats.BadgesUnlocked) != 0 {
		t.Errorf("badges = %v, want empty", stats.BadgesUnlocked)
	}
}

func TestGetLeaderboardSplicesUser(t *testing.T) {
	svc, _ := newTestEngine("2026-03-02")
	ctx := context.Background()

	for i, overall := range []int{96, 80, 60} {
		userID := fmt.Sprintf("user-%d", i)
		sessions := 3 - i
		for range sessions {
			if _, err := svc.RecordSession(ctx, userID, testScore(overall)); err != nil {
				t.Fatal(err)
			}
		}
	}

	board, err := svc.GetLeaderboard(ctx, "user-2")
	if err != nil {
		t.Fatal(err)
	}
	if board.TotalUsers != 3 {
		t.Errorf("total users = %d, want 3", board.TotalUsers)
	}
	if len(board.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(board.Entries))
	}
	for i := 1; i < len(board.Entries); i++ {
		if board.Entries[i].XP > board.Entries[i-1].XP {
			t.Error("leaderboard must be sorted by xp descending")
		}
	}
	if board.UserPosition == nil || board.UserPosition.UserID != "user-2" {
		t.Errorf("user position = %+v, want user-2", board.UserPosition)
	}
}

func TestGetRecentSessions(t *testing.T) {
	svc, _ := newTestEngine("2026-03-02")
	ctx := context.Background()

	for range 5 {
		if _, err := svc.RecordSession(ctx, "user-1", testScore(90)); err != nil {
			t.Fatal(err)
		}
	}

	sessions, err := svc.GetRecentSessions(ctx, "user-1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 3 {
		t.Errorf("sessions = %d, want 3", len(sessions))
	}
	for _, rec := range sessions {
		if rec.Overall != 90 {
			t.Errorf("session overall = %d, want 90", rec.Overall)
		}
	}
}
