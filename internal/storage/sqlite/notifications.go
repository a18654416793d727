package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/circlerush/backend/internal/models"
)

// EnqueueNotification appends an email to the outbox.
func (s *SQLiteStore) EnqueueNotification(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt == 0 {
		n.CreatedAt = time.Now().Unix()
	}
	if n.Status == "" {
		n.Status = models.NotificationPending
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, circle_id, recipient, subject, body_text, body_html, status, attempts, last_error, created_at, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, '', ?, NULL)`,
		n.ID, n.CircleID, n.Recipient, n.Subject, n.Text, n.HTML, n.Status, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification: %w", err)
	}

	return nil
}

// ListPendingNotifications retrieves up to limit pending rows, oldest first.
func (s *SQLiteStore) ListPendingNotifications(ctx context.Context, limit int) ([]*models.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, circle_id, recipient, subject, body_text, body_html, status, attempts, last_error, created_at, sent_at
		 FROM notifications WHERE status = ? ORDER BY created_at ASC LIMIT ?`,
		models.NotificationPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var circleID sql.NullString
		var sentAt sql.NullInt64

		if err := rows.Scan(&n.ID, &circleID, &n.Recipient, &n.Subject, &n.Text, &n.HTML,
			&n.Status, &n.Attempts, &n.LastError, &n.CreatedAt, &sentAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		if circleID.Valid {
			n.CircleID = circleID.String
		}
		if sentAt.Valid {
			n.SentAt = &sentAt.Int64
		}

		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}

// MarkNotificationSent records a successful delivery.
func (s *SQLiteStore) MarkNotificationSent(ctx context.Context, id string, sentAt int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET status = ?, attempts = attempts + 1, sent_at = ? WHERE id = ?",
		models.NotificationSent, sentAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return requireRow(res, "notification")
}

// MarkNotificationFailed records a failed attempt; dead moves the row out of
// the retry pool for good.
func (s *SQLiteStore) MarkNotificationFailed(ctx context.Context, id string, lastError string, dead bool) error {
	status := models.NotificationPending
	if dead {
		status = models.NotificationFailed
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE notifications SET status = ?, attempts = attempts + 1, last_error = ? WHERE id = ?",
		status, lastError, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return requireRow(res, "notification")
}
