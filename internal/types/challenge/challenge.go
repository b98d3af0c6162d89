package challenge

type Kind string

const (
	KindPronunciation Kind = "pronunciation"
	KindStreak        Kind = "streak"
	KindAccuracy      Kind = "accuracy"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Challenge is a static catalog entry shown to users. The progression core
// does not mutate challenges; clients track participation separately.
type Challenge struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Kind        Kind       `json:"kind"`
	Difficulty  Difficulty `json:"difficulty"`
	Target      int        `json:"target"`
	XPReward    int        `json:"xp_reward"`
}

var catalog = []Challenge{
	{ID: "daily_five", Name: "Daily Five", Description: "Finish 5 pronunciation sessions in one day", Kind: KindPronunciation, Difficulty: DifficultyEasy, Target: 5, XPReward: 50},
	{ID: "week_warrior", Name: "Week Warrior", Description: "Keep a 7-day practice streak", Kind: KindStreak, Difficulty: DifficultyMedium, Target: 7, XPReward: 150},
	{ID: "clean_speech", Name: "Clean Speech", Description: "Score 90 or higher on 10 sessions", Kind: KindAccuracy, Difficulty: DifficultyMedium, Target: 10, XPReward: 200},
	{ID: "marathon_month", Name: "Marathon Month", Description: "Keep a 30-day practice streak", Kind: KindStreak, Difficulty: DifficultyHard, Target: 30, XPReward: 500},
	{ID: "flawless", Name: "Flawless", Description: "Score a perfect 100 on any session", Kind: KindAccuracy, Difficulty: DifficultyHard, Target: 100, XPReward: 300},
}

// Catalog returns the static challenge catalog. The returned slice is shared
// and must be treated as read-only.
func Catalog() []Challenge {
	return catalog
}
