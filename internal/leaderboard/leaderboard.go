package leaderboard

type Entry struct {
	UserID     string `json:"user_id"`
	Level      int    `json:"level"`
	XP         int    `json:"xp"`
	StreakDays int    `json:"streak_days"`
	Rank       int    `json:"rank"`
}

type Leaderboard struct {
	Entries      []*Entry `json:"entries"`
	UserPosition *Entry   `json:"user_position"`
	TotalUsers   int      `json:"total_users"`
}
