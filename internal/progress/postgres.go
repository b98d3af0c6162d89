package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"speakUpAPI/internal/leaderboard"
	"speakUpAPI/internal/types/progression"
)

// PostgresStore persists stats as one JSONB document per user in the
// pronunciation_progress table and session history in
// pronunciation_sessions. It implements Store, SessionLog and
// LeaderboardSource.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load(ctx context.Context, userID string) (*progression.UserStats, error) {
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT stats FROM pronunciation_progress WHERE user_id = $1`, userID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stats for %s: %w", userID, err)
	}

	stats := &progression.UserStats{}
	if err := json.Unmarshal(raw, stats); err != nil {
		return nil, fmt.Errorf("failed to decode stats for %s: %w", userID, err)
	}
	return stats, nil
}

func (s *PostgresStore) Save(ctx context.Context, userID string, stats *progression.UserStats) error {
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats for %s: %w", userID, err)
	}

	query := `
        INSERT INTO pronunciation_progress (user_id, stats, updated_at)
        VALUES ($1, $2, NOW())
        ON CONFLICT (user_id)
        DO UPDATE SET stats = $2, updated_at = NOW()
    `

	if _, err := s.db.Exec(ctx, query, userID, raw); err != nil {
		return fmt.Errorf("failed to save stats for %s: %w", userID, err)
	}
	return nil
}

func (s *PostgresStore) AppendSession(ctx context.Context, rec *progression.SessionRecord) error {
	query := `
        INSERT INTO pronunciation_sessions (id, user_id, overall, accuracy, fluency, completeness, prosody, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	_, err := s.db.Exec(ctx, query,
		rec.ID, rec.UserID, rec.Overall, rec.Accuracy, rec.Fluency, rec.Completeness, rec.Prosody, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append session for %s: %w", rec.UserID, err)
	}
	return nil
}

func (s *PostgresStore) RecentSessions(ctx context.Context, userID string, limit int) ([]*progression.SessionRecord, error) {
	query := `
        SELECT id, user_id, overall, accuracy, fluency, completeness, prosody, created_at
        FROM pronunciation_sessions
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sessions for %s: %w", userID, err)
	}
	defer rows.Close()

	var sessions []*progression.SessionRecord
	for rows.Next() {
		rec := &progression.SessionRecord{}
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Overall, &rec.Accuracy,
			&rec.Fluency, &rec.Completeness, &rec.Prosody, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, rec)
	}
	return sessions, rows.Err()
}

func (s *PostgresStore) TopByXP(ctx context.Context, limit int) ([]*leaderboard.Entry, error) {
	query := `
        SELECT user_id,
               COALESCE((stats->>'level')::int, 1) AS level,
               COALESCE((stats->>'xp')::int, 0) AS xp,
               COALESCE((stats->>'streak_days')::int, 0) AS streak_days
        FROM pronunciation_progress
        ORDER BY xp DESC, streak_days DESC
        LIMIT $1
    `

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []*leaderboard.Entry
	rank := 0
	for rows.Next() {
		rank++
		e := &leaderboard.Entry{Rank: rank}
		if err := rows.Scan(&e.UserID, &e.Level, &e.XP, &e.StreakDays); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *PostgresStore) UserRank(ctx context.Context, userID string) (*leaderboard.Entry, error) {
	query := `
        SELECT user_id, level, xp, streak_days, rank FROM (
            SELECT user_id,
                   COALESCE((stats->>'level')::int, 1) AS level,
                   COALESCE((stats->>'xp')::int, 0) AS xp,
                   COALESCE((stats->>'streak_days')::int, 0) AS streak_days,
                   RANK() OVER (ORDER BY COALESCE((stats->>'xp')::int, 0) DESC) AS rank
            FROM pronunciation_progress
        ) ranked
        WHERE user_id = $1
    `

	e := &leaderboard.Entry{}
	err := s.db.QueryRow(ctx, query, userID).Scan(&e.UserID, &e.Level, &e.XP, &e.StreakDays, &e.Rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to rank user %s: %w", userID, err)
	}
	return e, nil
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM pronunciation_progress`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
