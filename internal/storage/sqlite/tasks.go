package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/circlerush/backend/internal/models"
	"github.com/circlerush/backend/internal/storage"
)

// CreateTask persists a new task under its circle.
func (s *SQLiteStore) CreateTask(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	var deadline any
	if task.Deadline != nil {
		deadline = *task.Deadline
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, circle_id, name, points, assignee_id, deadline, completed, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, NULL)`,
		task.ID, task.CircleID, task.Name, task.Points, task.AssigneeID, deadline,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}

	return nil
}

// GetTask retrieves a task within a circle.
func (s *SQLiteStore) GetTask(ctx context.Context, circleID, taskID string) (*models.Task, error) {
	task := &models.Task{}
	var deadline, completedAt sql.NullInt64

	err := s.db.QueryRowContext(ctx,
		`SELECT id, circle_id, name, points, assignee_id, deadline, completed, completed_at
		 FROM tasks WHERE circle_id = ? AND id = ?`,
		circleID, taskID,
	).Scan(&task.ID, &task.CircleID, &task.Name, &task.Points,
		&task.AssigneeID, &deadline, &task.Completed, &completedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task: %w", storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if deadline.Valid {
		task.Deadline = &deadline.Int64
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Int64
	}

	return task, nil
}

// ListTasks retrieves all tasks in a circle, oldest first.
func (s *SQLiteStore) ListTasks(ctx context.Context, circleID string) ([]*models.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, circle_id, name, points, assignee_id, deadline, completed, completed_at
		 FROM tasks WHERE circle_id = ? ORDER BY rowid`,
		circleID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task := &models.Task{}
		var deadline, completedAt sql.NullInt64

		if err := rows.Scan(&task.ID, &task.CircleID, &task.Name, &task.Points,
			&task.AssigneeID, &deadline, &task.Completed, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		if deadline.Valid {
			task.Deadline = &deadline.Int64
		}
		if completedAt.Valid {
			task.CompletedAt = &completedAt.Int64
		}

		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// CompleteTask marks the task completed and credits the assignee's score in
// one transaction. The guarded UPDATE makes the transition one-way: a task
// that is already completed affects zero rows and the points are not awarded
// again.
func (s *SQLiteStore) CompleteTask(ctx context.Context, task *models.Task, completedAt int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE tasks SET completed = 1, completed_at = ? WHERE id = ? AND circle_id = ? AND completed = 0",
		completedAt, task.ID, task.CircleID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("task %s already completed: %w", task.ID, storage.ErrConflict)
	}

	res, err = tx.ExecContext(ctx,
		"UPDATE members SET score = score + ? WHERE circle_id = ? AND user_id = ?",
		task.Points, task.CircleID, task.AssigneeID,
	)
	if err != nil {
		return fmt.Errorf("failed to award points: %w", err)
	}
	if err := requireRow(res, "member"); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	task.Completed = true
	task.CompletedAt = &completedAt
	return nil
}
