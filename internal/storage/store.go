// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/circlerush/backend/internal/models"
)

// Sentinel errors returned by Store implementations. The lifecycle engine
// translates these into its own domain errors.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict indicates the write lost to an existing record or an
	// already-applied transition (duplicate key, task already completed).
	ErrConflict = errors.New("record conflict")
)

// Store defines the interface for circle storage operations. This
// abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the lifecycle engine or the services.
type Store interface {
	// CreateUser persists a new user. Returns ErrConflict if the email
	// is already registered.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email address.
	// Returns nil, nil when no such user exists.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID.
	// Returns nil, nil when no such user exists.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// CreateCircle persists a new circle together with its initial
	// members. The circle.ID field is populated if empty.
	CreateCircle(ctx context.Context, circle *models.Circle) error

	// GetCircle retrieves a circle by ID, including members and
	// invitations. Returns ErrNotFound if absent.
	GetCircle(ctx context.Context, circleID string) (*models.Circle, error)

	// GetCircleByName retrieves the first circle with the given name.
	// Returns ErrNotFound if absent.
	GetCircleByName(ctx context.Context, name string) (*models.Circle, error)

	// ListCirclesForUser retrieves every circle the user is a member of.
	ListCirclesForUser(ctx context.Context, userID string) ([]*models.Circle, error)

	// CountCirclesAdminedBy reports how many circles with the given name
	// the user holds the admin flag in. Used by the duplicate-name check.
	CountCirclesAdminedBy(ctx context.Context, userID, name string) (int, error)

	// ListDueCircles retrieves all circles whose completion time is at or
	// before now, regardless of status. The sweep filters by status.
	ListDueCircles(ctx context.Context, now int64) ([]*models.Circle, error)

	// AddMember appends a member to a circle. This is an additive insert,
	// not a whole-list rewrite, so concurrent joins cannot clobber each
	// other. Returns ErrConflict if the user is already a member.
	AddMember(ctx context.Context, circleID string, member models.Member) error

	// RemoveMember deletes a member from a circle.
	RemoveMember(ctx context.Context, circleID, userID string) error

	// SetMemberAdmin updates one member's admin flag.
	SetMemberAdmin(ctx context.Context, circleID, userID string, admin bool) error

	// SetMemberNotifications updates one member's notification prefs.
	SetMemberNotifications(ctx context.Context, circleID, userID string, prefs models.NotificationPrefs) error

	// AddInvitation appends an invitation to a circle. Additive insert,
	// same as AddMember. Returns ErrConflict if the email was already
	// invited.
	AddInvitation(ctx context.Context, circleID string, inv models.Invitation) error

	// SetCircleStatus updates only the circle's status.
	SetCircleStatus(ctx context.Context, circleID, status string) error

	// ResetCircle sets the circle back to active with a new completion
	// time.
	ResetCircle(ctx context.Context, circleID string, completionTime int64) error

	// DeleteCircle removes the circle and all of its tasks, members and
	// invitations in a single transaction.
	DeleteCircle(ctx context.Context, circleID string) error

	// CreateTask persists a new task. The task.ID field is populated if
	// empty.
	CreateTask(ctx context.Context, task *models.Task) error

	// GetTask retrieves a task within a circle. Returns ErrNotFound if
	// absent.
	GetTask(ctx context.Context, circleID, taskID string) (*models.Task, error)

	// ListTasks retrieves all tasks in a circle.
	ListTasks(ctx context.Context, circleID string) ([]*models.Task, error)

	// CompleteTask marks the task completed and awards its points to the
	// assignee's member score, in one transaction. Returns ErrConflict if
	// the task is already completed, so points are never awarded twice.
	CompleteTask(ctx context.Context, task *models.Task, completedAt int64) error

	// EnqueueNotification appends an email to the outbox.
	EnqueueNotification(ctx context.Context, n *models.Notification) error

	// ListPendingNotifications retrieves up to limit pending outbox rows,
	// oldest first.
	ListPendingNotifications(ctx context.Context, limit int) ([]*models.Notification, error)

	// MarkNotificationSent records a successful delivery.
	MarkNotificationSent(ctx context.Context, id string, sentAt int64) error

	// MarkNotificationFailed records a failed attempt. When dead is true
	// the row is moved to the failed status and never retried.
	MarkNotificationFailed(ctx context.Context, id string, lastError string, dead bool) error

	// Close releases any resources held by the store.
	Close() error
}
