package workers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StartWeeklyXPResetWorker zeroes every user's weekly_xp counter once per
// ISO week. The progression engine only ever increments weekly_xp; this is
// the external reset it relies on.
func StartWeeklyXPResetWorker(db *pgxpool.Pool) {
	ticker := time.NewTicker(1 * time.Hour)

	go func() {
		lastResetWeek := currentWeek(time.Now())
		for range ticker.C {
			week := currentWeek(time.Now())
			if week == lastResetWeek {
				continue
			}
			if err := resetWeeklyXP(db); err != nil {
				log.Printf("Weekly XP reset failed, will retry next tick: %v", err)
				continue
			}
			lastResetWeek = week
		}
	}()
}

func currentWeek(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func resetWeeklyXP(db *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Println("Resetting weekly XP counters...")

	result, err := db.Exec(ctx, `
        UPDATE pronunciation_progress
        SET stats = jsonb_set(stats, '{weekly_xp}', '0'),
            updated_at = NOW()
        WHERE COALESCE((stats->>'weekly_xp')::int, 0) > 0
    `)
	if err != nil {
		return err
	}

	log.Printf("Weekly XP reset complete for %d users", result.RowsAffected())
	return nil
}
