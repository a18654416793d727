package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/circlerush/backend/internal/models"
	"github.com/circlerush/backend/internal/storage"
)

const circleColumns = "id, name, winner_prize, loser_challenge, duration_days, status, color_code, created_at, completion_time"

// CreateCircle persists a new circle with its initial members and
// invitations in one transaction.
func (s *SQLiteStore) CreateCircle(ctx context.Context, circle *models.Circle) error {
	if circle.ID == "" {
		circle.ID = uuid.New().String()
	}
	if circle.CreatedAt == 0 {
		circle.CreatedAt = time.Now().Unix()
	}
	if circle.Status == "" {
		circle.Status = models.StatusActive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO circles (`+circleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		circle.ID, circle.Name, circle.WinnerPrize, circle.LoserChallenge,
		circle.DurationDays, circle.Status, circle.ColorCode,
		circle.CreatedAt, circle.CompletionTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert circle: %w", err)
	}

	for _, m := range circle.Members {
		if err := insertMember(ctx, tx, circle.ID, m); err != nil {
			return err
		}
	}

	for _, inv := range circle.Invitations {
		if err := insertInvitation(ctx, tx, circle.ID, inv); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetCircle retrieves a circle by ID, including members and invitations.
func (s *SQLiteStore) GetCircle(ctx context.Context, circleID string) (*models.Circle, error) {
	return s.getCircle(ctx, "id = ?", circleID)
}

// GetCircleByName retrieves the first circle with the given name, oldest
// first. Circle names are not globally unique; join-by-name takes the first
// match, matching the original join behavior.
func (s *SQLiteStore) GetCircleByName(ctx context.Context, name string) (*models.Circle, error) {
	return s.getCircle(ctx, "name = ? ORDER BY created_at ASC LIMIT 1", name)
}

func (s *SQLiteStore) getCircle(ctx context.Context, where string, args ...any) (*models.Circle, error) {
	circle := &models.Circle{}
	err := s.db.QueryRowContext(ctx,
		`SELECT `+circleColumns+` FROM circles WHERE `+where, args...,
	).Scan(
		&circle.ID, &circle.Name, &circle.WinnerPrize, &circle.LoserChallenge,
		&circle.DurationDays, &circle.Status, &circle.ColorCode,
		&circle.CreatedAt, &circle.CompletionTime,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("circle: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get circle: %w", err)
	}

	if err := s.loadChildren(ctx, circle); err != nil {
		return nil, err
	}

	return circle, nil
}

// ListCirclesForUser retrieves all circles the user belongs to, newest first.
func (s *SQLiteStore) ListCirclesForUser(ctx context.Context, userID string) ([]*models.Circle, error) {
	return s.listCircles(ctx,
		`SELECT c.id, c.name, c.winner_prize, c.loser_challenge, c.duration_days,
		        c.status, c.color_code, c.created_at, c.completion_time
		 FROM circles c
		 JOIN members m ON m.circle_id = c.id
		 WHERE m.user_id = ?
		 ORDER BY c.created_at DESC`, userID)
}

// CountCirclesAdminedBy reports how many same-named circles the user admins.
func (s *SQLiteStore) CountCirclesAdminedBy(ctx context.Context, userID, name string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM circles c
		 JOIN members m ON m.circle_id = c.id
		 WHERE c.name = ? AND m.user_id = ? AND m.admin = 1`,
		name, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count admined circles: %w", err)
	}
	return count, nil
}

// ListDueCircles retrieves all circles past their completion time. The query
// is deliberately not restricted by status; the sweep filters in code.
func (s *SQLiteStore) ListDueCircles(ctx context.Context, now int64) ([]*models.Circle, error) {
	return s.listCircles(ctx,
		`SELECT `+circleColumns+` FROM circles
		 WHERE completion_time <= ?
		 ORDER BY completion_time ASC`, now)
}

func (s *SQLiteStore) listCircles(ctx context.Context, query string, args ...any) ([]*models.Circle, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list circles: %w", err)
	}
	defer rows.Close()

	var circles []*models.Circle
	for rows.Next() {
		circle := &models.Circle{}
		if err := rows.Scan(
			&circle.ID, &circle.Name, &circle.WinnerPrize, &circle.LoserChallenge,
			&circle.DurationDays, &circle.Status, &circle.ColorCode,
			&circle.CreatedAt, &circle.CompletionTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan circle: %w", err)
		}
		circles = append(circles, circle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate circles: %w", err)
	}

	for _, circle := range circles {
		if err := s.loadChildren(ctx, circle); err != nil {
			return nil, err
		}
	}

	return circles, nil
}

// loadChildren fills in the circle's members and invitations.
func (s *SQLiteStore) loadChildren(ctx context.Context, circle *models.Circle) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, display_name, admin, score, notify_task_deadline, notify_circle_updates
		 FROM members WHERE circle_id = ? ORDER BY rowid`,
		circle.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m models.Member
		if err := rows.Scan(
			&m.UserID, &m.DisplayName, &m.Admin, &m.Score,
			&m.Notifications.TaskDeadline, &m.Notifications.CircleUpdates,
		); err != nil {
			return fmt.Errorf("failed to scan member: %w", err)
		}
		circle.Members = append(circle.Members, m)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate members: %w", err)
	}

	invRows, err := s.db.QueryContext(ctx,
		`SELECT email, invited_at FROM invitations WHERE circle_id = ? ORDER BY invited_at`,
		circle.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to get invitations: %w", err)
	}
	defer invRows.Close()

	for invRows.Next() {
		var inv models.Invitation
		if err := invRows.Scan(&inv.Email, &inv.InvitedAt); err != nil {
			return fmt.Errorf("failed to scan invitation: %w", err)
		}
		circle.Invitations = append(circle.Invitations, inv)
	}
	if err := invRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate invitations: %w", err)
	}

	return nil
}

// AddMember appends a member row. The insert is additive so concurrent joins
// never overwrite each other.
func (s *SQLiteStore) AddMember(ctx context.Context, circleID string, member models.Member) error {
	if err := insertMember(ctx, s.db, circleID, member); err != nil {
		return err
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertMember(ctx context.Context, db execer, circleID string, m models.Member) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO members (circle_id, user_id, display_name, admin, score, notify_task_deadline, notify_circle_updates)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		circleID, m.UserID, m.DisplayName, m.Admin, m.Score,
		m.Notifications.TaskDeadline, m.Notifications.CircleUpdates,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("member %s: %w", m.UserID, storage.ErrConflict)
		}
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// RemoveMember deletes a member from a circle.
func (s *SQLiteStore) RemoveMember(ctx context.Context, circleID, userID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM members WHERE circle_id = ? AND user_id = ?",
		circleID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return requireRow(res, "member")
}

// SetMemberAdmin updates one member's admin flag.
func (s *SQLiteStore) SetMemberAdmin(ctx context.Context, circleID, userID string, admin bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE members SET admin = ? WHERE circle_id = ? AND user_id = ?",
		admin, circleID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set member admin: %w", err)
	}
	return requireRow(res, "member")
}

// SetMemberNotifications updates one member's notification preferences.
func (s *SQLiteStore) SetMemberNotifications(ctx context.Context, circleID, userID string, prefs models.NotificationPrefs) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE members SET notify_task_deadline = ?, notify_circle_updates = ?
		 WHERE circle_id = ? AND user_id = ?`,
		prefs.TaskDeadline, prefs.CircleUpdates, circleID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to set member notifications: %w", err)
	}
	return requireRow(res, "member")
}

// AddInvitation appends an invitation row.
func (s *SQLiteStore) AddInvitation(ctx context.Context, circleID string, inv models.Invitation) error {
	return insertInvitation(ctx, s.db, circleID, inv)
}

func insertInvitation(ctx context.Context, db execer, circleID string, inv models.Invitation) error {
	if inv.InvitedAt == 0 {
		inv.InvitedAt = time.Now().Unix()
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO invitations (circle_id, email, invited_at) VALUES (?, ?, ?)",
		circleID, inv.Email, inv.InvitedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("invitation %s: %w", inv.Email, storage.ErrConflict)
		}
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}

// SetCircleStatus updates only the status column.
func (s *SQLiteStore) SetCircleStatus(ctx context.Context, circleID, status string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE circles SET status = ? WHERE id = ?",
		status, circleID,
	)
	if err != nil {
		return fmt.Errorf("failed to set circle status: %w", err)
	}
	return requireRow(res, "circle")
}

// ResetCircle sets the circle active again with a fresh completion time.
func (s *SQLiteStore) ResetCircle(ctx context.Context, circleID string, completionTime int64) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE circles SET status = ?, completion_time = ? WHERE id = ?",
		models.StatusActive, completionTime, circleID,
	)
	if err != nil {
		return fmt.Errorf("failed to reset circle: %w", err)
	}
	return requireRow(res, "circle")
}

// DeleteCircle removes the circle and everything under it in one
// transaction, so a partial failure can never leave orphaned tasks.
func (s *SQLiteStore) DeleteCircle(ctx context.Context, circleID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Child rows also cascade via foreign keys; the explicit deletes keep
	// the batch self-contained even if pragmas differ.
	for _, stmt := range []string{
		"DELETE FROM tasks WHERE circle_id = ?",
		"DELETE FROM members WHERE circle_id = ?",
		"DELETE FROM invitations WHERE circle_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, stmt, circleID); err != nil {
			return fmt.Errorf("failed to delete circle children: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM circles WHERE id = ?", circleID)
	if err != nil {
		return fmt.Errorf("failed to delete circle: %w", err)
	}
	if err := requireRow(res, "circle"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// requireRow converts a zero-row update or delete into ErrNotFound.
func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return nil
}
