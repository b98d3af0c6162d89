package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"speakUpAPI/internal/types/notification"
)

// PushProvider delivers a push message to a set of device tokens. FCM in
// production, a stub in tests.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db   *pgxpool.Pool
	push PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

// SetPushProvider injects the push backend after construction. Without one,
// notifications are stored in the inbox but never pushed.
func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.push = p
}

func (s *NotificationService) CreateNotification(ctx context.Context, userID string, typ notification.NotificationType, title, message string, data map[string]any) (*notification.Notification, error) {
	notif := &notification.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now(),
	}

	query := `
        INSERT INTO notifications (id, user_id, type, title, message, is_read, data, created_at)
        VALUES ($1, $2, $3, $4, $5, false, $6, $7)
    `

	if _, err := s.db.Exec(ctx, query, notif.ID, notif.UserID, notif.Type, notif.Title, notif.Message, notif.Data, notif.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.push != nil {
		tokens, err := s.getDeviceTokens(ctx, userID)
		if err != nil {
			log.Printf("Failed to load device tokens for %s: %v", userID, err)
		} else if err := s.push.SendPush(ctx, tokens, title, message, data); err != nil {
			log.Printf("Failed to push notification %s to %s: %v", notif.ID, userID, err)
		}
	}

	return notif, nil
}

func (s *NotificationService) GetNotifications(ctx context.Context, userID string, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
        SELECT id, user_id, type, title, message, is_read, data, created_at
        FROM notifications
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	var notifs []*notification.Notification
	for rows.Next() {
		n := &notification.Notification{}
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.Data, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifs = append(notifs, n)
	}
	return notifs, rows.Err()
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = false`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID string, id uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		`UPDATE notifications SET is_read = true WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, userID, token, platform string) error {
	if token == "" {
		return fmt.Errorf("%w: device token is required", ErrInvalidInput)
	}

	query := `
        INSERT INTO device_tokens (user_id, token, platform, registered_at)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (token)
        DO UPDATE SET user_id = $1, platform = $3, registered_at = NOW()
    `

	if _, err := s.db.Exec(ctx, query, userID, token, platform); err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) getDeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx,
		`SELECT token, platform FROM device_tokens WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// NotifySessionMilestones fires the post-session pushes: new badges, level
// ups and streak milestones. Failures are logged, never surfaced, so a bad
// push cannot break the session flow.
func (s *NotificationService) NotifySessionMilestones(ctx context.Context, userID string, result *SessionResult) {
	for _, b := range result.NewBadges {
		_, err := s.CreateNotification(ctx, userID, notification.NotificationBadgeUnlocked,
			"Badge unlocked!",
			fmt.Sprintf("%s %s: %s", b.Icon, b.Name, b.Description),
			map[string]any{"badge_id": b.ID, "rarity": string(b.Rarity)})
		if err != nil {
			log.Printf("Failed to create badge notification for %s: %v", userID, err)
		}
	}

	if result.LeveledUp {
		_, err := s.CreateNotification(ctx, userID, notification.NotificationLevelUp,
			"Level up!",
			fmt.Sprintf("You reached level %d. Keep going!", result.Stats.Level),
			map[string]any{"level": result.Stats.Level})
		if err != nil {
			log.Printf("Failed to create level-up notification for %s: %v", userID, err)
		}
	}

	if result.StreakExtended && (result.Stats.StreakDays == 7 || result.Stats.StreakDays == 30) {
		_, err := s.CreateNotification(ctx, userID, notification.NotificationStreakMilestone,
			"Streak milestone!",
			fmt.Sprintf("%d days of practice in a row.", result.Stats.StreakDays),
			map[string]any{"streak_days": result.Stats.StreakDays})
		if err != nil {
			log.Printf("Failed to create streak notification for %s: %v", userID, err)
		}
	}
}
