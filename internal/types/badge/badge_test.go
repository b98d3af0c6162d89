package badge

import (
	"testing"

	"speakUpAPI/internal/types/progression"
)

func TestCatalogIDsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, b := range Catalog() {
		if seen[b.ID] {
			t.Errorf("duplicate badge id %q", b.ID)
		}
		seen[b.ID] = true
	}
}

func TestUnlocksCriteria(t *testing.T) {
	cases := []struct {
		name  string
		badge Badge
		stats progression.UserStats
		want  bool
	}{
		{
			name:  "sessions met",
			badge: Badge{CriteriaType: CriteriaSessions, CriteriaValue: 10},
			stats: progression.UserStats{SessionCount: 10},
			want:  true,
		},
		{
			name:  "sessions not met",
			badge: Badge{CriteriaType: CriteriaSessions, CriteriaValue: 10},
			stats: progression.UserStats{SessionCount: 9},
			want:  false,
		},
		{
			name:  "streak met",
			badge: Badge{CriteriaType: CriteriaStreak, CriteriaValue: 7},
			stats: progression.UserStats{StreakDays: 8},
			want:  true,
		},
		{
			name:  "average with zero sessions is never met",
			badge: Badge{CriteriaType: CriteriaAverageScore, CriteriaValue: 95},
			stats: progression.UserStats{},
			want:  false,
		},
		{
			name:  "average met",
			badge: Badge{CriteriaType: CriteriaAverageScore, CriteriaValue: 95},
			stats: progression.UserStats{SessionCount: 4, TotalPronunciationScore: 382},
			want:  true,
		},
		{
			name:  "combined needs both sessions and average",
			badge: Badge{CriteriaType: CriteriaSessionsWithAverage, CriteriaValue: 100, MinAverage: 90},
			stats: progression.UserStats{SessionCount: 100, TotalPronunciationScore: 8900},
			want:  false,
		},
		{
			name:  "combined met",
			badge: Badge{CriteriaType: CriteriaSessionsWithAverage, CriteriaValue: 100, MinAverage: 90},
			stats: progression.UserStats{SessionCount: 100, TotalPronunciationScore: 9000},
			want:  true,
		},
		{
			name:  "xp met",
			badge: Badge{CriteriaType: CriteriaXP, CriteriaValue: 1000},
			stats: progression.UserStats{XP: 1000},
			want:  true,
		},
		{
			name:  "level met",
			badge: Badge{CriteriaType: CriteriaLevel, CriteriaValue: 5},
			stats: progression.UserStats{Level: 5},
			want:  true,
		},
		{
			name:  "unknown criteria never unlocks",
			badge: Badge{CriteriaType: CriteriaType("mystery"), CriteriaValue: 0},
			stats: progression.UserStats{SessionCount: 1000},
			want:  false,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := c.badge.Unlocks(&c.stats); got != c.want {
				t.Errorf("Unlocks() = %v, want %v", got, c.want)
			}
		})
	}
}
