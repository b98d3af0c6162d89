package badge

import "speakUpAPI/internal/types/progression"

type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

type CriteriaType string

const (
	CriteriaSessions            CriteriaType = "sessions"
	CriteriaStreak              CriteriaType = "streak"
	CriteriaAverageScore        CriteriaType = "average_score"
	CriteriaSessionsWithAverage CriteriaType = "sessions_with_average"
	CriteriaXP                  CriteriaType = "xp"
	CriteriaLevel               CriteriaType = "level"
)

// Badge is a static catalog entry. Unlock conditions are expressed as a
// criteria type plus numeric parameters instead of code so the catalog
// stays plain data.
type Badge struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Icon          string       `json:"icon"`
	Rarity        Rarity       `json:"rarity"`
	CriteriaType  CriteriaType `json:"criteria_type"`
	CriteriaValue int          `json:"criteria_value"`
	MinAverage    int          `json:"min_average,omitempty"`
}

type WithStatus struct {
	Badge
	Unlocked bool `json:"unlocked"`
}

// Unlocks evaluates the badge's condition against cumulative stats.
// Average-based criteria are never met before the first session, which also
// keeps the division safe.
func (b *Badge) Unlocks(stats *progression.UserStats) bool {
	switch b.CriteriaType {
	case CriteriaSessions:
		return stats.SessionCount >= b.CriteriaValue
	case CriteriaStreak:
		return stats.StreakDays >= b.CriteriaValue
	case CriteriaAverageScore:
		return stats.SessionCount > 0 && stats.AverageScore() >= float64(b.CriteriaValue)
	case CriteriaSessionsWithAverage:
		return stats.SessionCount >= b.CriteriaValue && stats.AverageScore() >= float64(b.MinAverage)
	case CriteriaXP:
		return stats.XP >= b.CriteriaValue
	case CriteriaLevel:
		return stats.Level >= b.CriteriaValue
	}
	return false
}

var catalog = []Badge{
	{ID: "first_steps", Name: "First Steps", Description: "Complete your first pronunciation session", Icon: "👣", Rarity: RarityCommon, CriteriaType: CriteriaSessions, CriteriaValue: 1},
	{ID: "committed", Name: "Committed", Description: "Complete 10 pronunciation sessions", Icon: "📚", Rarity: RarityCommon, CriteriaType: CriteriaSessions, CriteriaValue: 10},
	{ID: "century_club", Name: "Century Club", Description: "Complete 100 pronunciation sessions", Icon: "💯", Rarity: RarityRare, CriteriaType: CriteriaSessions, CriteriaValue: 100},
	{ID: "week_streak", Name: "On Fire", Description: "Practice 7 days in a row", Icon: "🔥", Rarity: RarityRare, CriteriaType: CriteriaStreak, CriteriaValue: 7},
	{ID: "month_streak", Name: "Unstoppable", Description: "Practice 30 days in a row", Icon: "🌋", Rarity: RarityEpic, CriteriaType: CriteriaStreak, CriteriaValue: 30},
	{ID: "sharp_ear", Name: "Sharp Ear", Description: "Keep an average score of 95 or higher", Icon: "👂", Rarity: RarityEpic, CriteriaType: CriteriaAverageScore, CriteriaValue: 95},
	{ID: "perfectionist", Name: "Perfectionist", Description: "100 sessions with an average of 90 or higher", Icon: "🏆", Rarity: RarityLegendary, CriteriaType: CriteriaSessionsWithAverage, CriteriaValue: 100, MinAverage: 90},
	{ID: "xp_1k", Name: "Rising Star", Description: "Earn 1,000 XP", Icon: "⭐", Rarity: RarityCommon, CriteriaType: CriteriaXP, CriteriaValue: 1000},
	{ID: "xp_10k", Name: "XP Hoarder", Description: "Earn 10,000 XP", Icon: "💰", Rarity: RarityRare, CriteriaType: CriteriaXP, CriteriaValue: 10000},
	{ID: "level_5", Name: "Getting Serious", Description: "Reach level 5", Icon: "🎯", Rarity: RarityCommon, CriteriaType: CriteriaLevel, CriteriaValue: 5},
	{ID: "level_10", Name: "Polyglot in Training", Description: "Reach level 10", Icon: "🌍", Rarity: RarityRare, CriteriaType: CriteriaLevel, CriteriaValue: 10},
}

// Catalog returns the static badge catalog. The returned slice is shared and
// must be treated as read-only.
func Catalog() []Badge {
	return catalog
}
