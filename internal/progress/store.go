package progress

import (
	"context"
	"errors"

	"speakUpAPI/internal/leaderboard"
	"speakUpAPI/internal/types/progression"
)

// ErrNotFound is returned by Load when no stats exist for the user yet.
// The progression engine treats it as "initialize defaults", never as fatal.
var ErrNotFound = errors.New("user stats not found")

// Store is the persistence contract for the single per-user stats record.
// Save is an atomic overwrite of the whole record.
type Store interface {
	Load(ctx context.Context, userID string) (*progression.UserStats, error)
	Save(ctx context.Context, userID string, stats *progression.UserStats) error
}

// SessionLog keeps the per-attempt history. Optional: a Store that also
// implements it gets session logging for free.
type SessionLog interface {
	AppendSession(ctx context.Context, rec *progression.SessionRecord) error
	RecentSessions(ctx context.Context, userID string, limit int) ([]*progression.SessionRecord, error)
}

// LeaderboardSource exposes cross-user reads for the leaderboard. Optional,
// same pattern as SessionLog.
type LeaderboardSource interface {
	TopByXP(ctx context.Context, limit int) ([]*leaderboard.Entry, error)
	UserRank(ctx context.Context, userID string) (*leaderboard.Entry, error)
	CountUsers(ctx context.Context) (int, error)
}
