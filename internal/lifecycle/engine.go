// Package lifecycle implements the circle lifecycle engine: every state
// transition and invariant over circles, members and tasks. Each mutating
// operation reads current state, validates authorization, then issues the
// corresponding writes. The caller's identity is always an explicit
// parameter, never ambient state.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/circlerush/backend/internal/models"
	"github.com/circlerush/backend/internal/storage"
)

const secondsPerDay = 24 * 60 * 60

// Identity is the authenticated caller of an engine operation.
type Identity struct {
	UserID      string
	Email       string
	DisplayName string
}

// Name returns the identity string to show in circles: display name when
// set, email otherwise.
func (id Identity) Name() string {
	if id.DisplayName != "" {
		return id.DisplayName
	}
	return id.Email
}

// Engine enforces circle state transitions and invariants on top of a Store.
type Engine struct {
	store storage.Store
}

// NewEngine creates a lifecycle engine backed by the given store.
func NewEngine(store storage.Store) *Engine {
	return &Engine{store: store}
}

// CreateCircle creates an active circle with the caller as its sole admin
// member, a completion time of now + durationDays, and a fresh pastel color.
// Returns ErrDuplicateCircle when the caller already admins a circle with
// this name; same-named circles admined by other users are allowed.
func (e *Engine) CreateCircle(ctx context.Context, caller Identity, name, winnerPrize, loserChallenge string, durationDays int) (*models.Circle, error) {
	if name == "" || winnerPrize == "" || loserChallenge == "" || durationDays <= 0 {
		return nil, ErrValidation
	}

	count, err := e.store.CountCirclesAdminedBy(ctx, caller.UserID, name)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if count > 0 {
		return nil, ErrDuplicateCircle
	}

	now := time.Now().Unix()
	circle := &models.Circle{
		Name:           name,
		WinnerPrize:    winnerPrize,
		LoserChallenge: loserChallenge,
		DurationDays:   durationDays,
		Status:         models.StatusActive,
		ColorCode:      pastelColor(),
		CreatedAt:      now,
		CompletionTime: now + int64(durationDays)*secondsPerDay,
		Members: []models.Member{{
			UserID:      caller.UserID,
			DisplayName: caller.Name(),
			Admin:       true,
			Score:       0,
		}},
	}

	if err := e.store.CreateCircle(ctx, circle); err != nil {
		return nil, fmt.Errorf("create circle: %w", err)
	}

	return circle, nil
}

// JoinCircle adds the caller as a non-admin member of the circle with the
// given name.
func (e *Engine) JoinCircle(ctx context.Context, caller Identity, name string) (*models.Circle, error) {
	if name == "" {
		return nil, ErrValidation
	}

	circle, err := e.store.GetCircleByName(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCircleNotFound
		}
		return nil, fmt.Errorf("join circle: %w", err)
	}

	if circle.FindMember(caller.UserID) != nil {
		return nil, ErrAlreadyMember
	}

	member := models.Member{
		UserID:      caller.UserID,
		DisplayName: caller.Name(),
		Admin:       false,
		Score:       0,
	}
	if err := e.store.AddMember(ctx, circle.ID, member); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("join circle: %w", err)
	}

	circle.Members = append(circle.Members, member)
	return circle, nil
}

// GetCircle retrieves a circle the caller belongs to.
func (e *Engine) GetCircle(ctx context.Context, caller Identity, circleID string) (*models.Circle, error) {
	return e.memberCircle(ctx, caller, circleID)
}

// ListCircles retrieves every circle the caller is a member of.
func (e *Engine) ListCircles(ctx context.Context, caller Identity) ([]*models.Circle, error) {
	circles, err := e.store.ListCirclesForUser(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("list circles: %w", err)
	}
	return circles, nil
}

// InviteMember records an invitation on the circle and queues the invite
// email. The invitation commits regardless of delivery; the outbox worker
// handles the send, so a mail outage never masks or fails the mutation.
func (e *Engine) InviteMember(ctx context.Context, caller Identity, circleID, email string) (*models.Invitation, error) {
	if email == "" {
		return nil, ErrValidation
	}

	circle, err := e.memberCircle(ctx, caller, circleID)
	if err != nil {
		return nil, err
	}

	for _, inv := range circle.Invitations {
		if inv.Email == email {
			return nil, ErrAlreadyInvited
		}
	}

	inv := models.Invitation{Email: email, InvitedAt: time.Now().Unix()}
	if err := e.store.AddInvitation(ctx, circle.ID, inv); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrAlreadyInvited
		}
		return nil, fmt.Errorf("invite member: %w", err)
	}

	e.enqueue(ctx, &models.Notification{
		CircleID:  circle.ID,
		Recipient: email,
		Subject:   "Join the Circle!",
		Text: fmt.Sprintf("You have been invited to join the circle %s by %s! Download the app and join the Circle now!",
			circle.Name, caller.Name()),
	})

	return &inv, nil
}

// ListInvitations retrieves the invitations on a circle the caller belongs to.
func (e *Engine) ListInvitations(ctx context.Context, caller Identity, circleID string) ([]models.Invitation, error) {
	circle, err := e.memberCircle(ctx, caller, circleID)
	if err != nil {
		return nil, err
	}
	return circle.Invitations, nil
}

// AddTask creates an incomplete task assigned to a circle member. Name and
// points are required; the deadline is optional.
func (e *Engine) AddTask(ctx context.Context, caller Identity, circleID, name string, points int, assigneeID string, deadline *int64) (*models.Task, error) {
	if name == "" || points <= 0 {
		return nil, ErrValidation
	}

	circle, err := e.memberCircle(ctx, caller, circleID)
	if err != nil {
		return nil, err
	}

	if assigneeID == "" {
		assigneeID = caller.UserID
	}
	if circle.FindMember(assigneeID) == nil {
		return nil, ErrNotMember
	}

	task := &models.Task{
		CircleID:   circle.ID,
		Name:       name,
		Points:     points,
		AssigneeID: assigneeID,
		Deadline:   deadline,
	}
	if err := e.store.CreateTask(ctx, task); err != nil {
		return nil, fmt.Errorf("add task: %w", err)
	}

	return task, nil
}

// ListTasks retrieves all tasks in a circle the caller belongs to.
func (e *Engine) ListTasks(ctx context.Context, caller Identity, circleID string) ([]*models.Task, error) {
	if _, err := e.memberCircle(ctx, caller, circleID); err != nil {
		return nil, err
	}

	tasks, err := e.store.ListTasks(ctx, circleID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// CompleteTask marks the caller's own task complete and awards its points to
// the caller's score, exactly once. Only the assignee may complete a task,
// and completion is one-way. Members who opted into circle updates get a
// queued notification email.
func (e *Engine) CompleteTask(ctx context.Context, caller Identity, circleID, taskID string) (*models.Task, error) {
	circle, err := e.memberCircle(ctx, caller, circleID)
	if err != nil {
		return nil, err
	}

	task, err := e.store.GetTask(ctx, circleID, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("complete task: %w", err)
	}

	if task.Completed {
		return nil, ErrAlreadyCompleted
	}
	if task.AssigneeID != caller.UserID {
		return nil, fmt.Errorf("only the assignee may complete a task: %w", ErrUnauthorized)
	}

	if err := e.store.CompleteTask(ctx, task, time.Now().Unix()); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrAlreadyCompleted
		}
		return nil, fmt.Errorf("complete task: %w", err)
	}

	e.notifyTaskCompleted(ctx, circle, caller, task)

	return task, nil
}

// AssignAdmin grants the admin flag to another member. Admin only.
func (e *Engine) AssignAdmin(ctx context.Context, caller Identity, circleID, targetUserID string) error {
	circle, err := e.adminCircle(ctx, caller, circleID)
	if err != nil {
		return err
	}

	if circle.FindMember(targetUserID) == nil {
		return ErrNotMember
	}

	if err := e.store.SetMemberAdmin(ctx, circle.ID, targetUserID, true); err != nil {
		return fmt.Errorf("assign admin: %w", err)
	}
	return nil
}

// ToggleNotification flips the caller's own preference for the given kind.
// Members can only ever change their own preferences.
func (e *Engine) ToggleNotification(ctx context.Context, caller Identity, circleID, kind string) (models.NotificationPrefs, error) {
	circle, err := e.memberCircle(ctx, caller, circleID)
	if err != nil {
		return models.NotificationPrefs{}, err
	}

	member := circle.FindMember(caller.UserID)
	prefs := member.Notifications
	switch kind {
	case models.NotifyKindTaskDeadline:
		prefs.TaskDeadline = !prefs.TaskDeadline
	case models.NotifyKindCircleUpdates:
		prefs.CircleUpdates = !prefs.CircleUpdates
	default:
		return models.NotificationPrefs{}, fmt.Errorf("unknown notification kind %q: %w", kind, ErrValidation)
	}

	if err := e.store.SetMemberNotifications(ctx, circle.ID, caller.UserID, prefs); err != nil {
		return models.NotificationPrefs{}, fmt.Errorf("toggle notification: %w", err)
	}
	return prefs, nil
}

// RemoveMember removes another member from the circle. Admin only. Removal
// is unconditional: unlike LeaveCircle there is no last-admin guard here,
// matching the asymmetry in the product behavior.
func (e *Engine) RemoveMember(ctx context.Context, caller Identity, circleID, targetUserID string) error {
	circle, err := e.adminCircle(ctx, caller, circleID)
	if err != nil {
		return err
	}

	if circle.FindMember(targetUserID) == nil {
		return ErrNotMember
	}

	if err := e.store.RemoveMember(ctx, circle.ID, targetUserID); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// LeaveCircle removes the caller from the circle. Fails with ErrLastAdmin
// when the caller is the only admin and other members remain; an admin must
// be assigned first.
func (e *Engine) LeaveCircle(ctx context.Context, caller Identity, circleID string) error {
	circle, err := e.memberCircle(ctx, caller, circleID)
	if err != nil {
		return err
	}

	member := circle.FindMember(caller.UserID)
	if member.Admin && circle.AdminCount() == 1 && len(circle.Members) > 1 {
		return ErrLastAdmin
	}

	if err := e.store.RemoveMember(ctx, circle.ID, caller.UserID); err != nil {
		return fmt.Errorf("leave circle: %w", err)
	}
	return nil
}

// ResetCircle starts a new round: status back to active and a completion
// time recomputed from now plus the circle's duration. Admin only. Works
// regardless of the circle's current status.
func (e *Engine) ResetCircle(ctx context.Context, caller Identity, circleID string) (*models.Circle, error) {
	circle, err := e.adminCircle(ctx, caller, circleID)
	if err != nil {
		return nil, err
	}

	completion := time.Now().Unix() + int64(circle.DurationDays)*secondsPerDay
	if err := e.store.ResetCircle(ctx, circle.ID, completion); err != nil {
		return nil, fmt.Errorf("reset circle: %w", err)
	}

	circle.Status = models.StatusActive
	circle.CompletionTime = completion
	return circle, nil
}

// DeleteCircle deletes the circle and all of its tasks as one batch.
// Admin only.
func (e *Engine) DeleteCircle(ctx context.Context, caller Identity, circleID string) error {
	circle, err := e.adminCircle(ctx, caller, circleID)
	if err != nil {
		return err
	}

	if err := e.store.DeleteCircle(ctx, circle.ID); err != nil {
		return fmt.Errorf("delete circle: %w", err)
	}
	return nil
}

// memberCircle loads the circle and requires the caller to be a member.
func (e *Engine) memberCircle(ctx context.Context, caller Identity, circleID string) (*models.Circle, error) {
	circle, err := e.store.GetCircle(ctx, circleID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCircleNotFound
		}
		return nil, fmt.Errorf("get circle: %w", err)
	}
	if circle.FindMember(caller.UserID) == nil {
		return nil, ErrNotMember
	}
	return circle, nil
}

// adminCircle loads the circle and requires the caller to be an admin member.
func (e *Engine) adminCircle(ctx context.Context, caller Identity, circleID string) (*models.Circle, error) {
	circle, err := e.memberCircle(ctx, caller, circleID)
	if err != nil {
		return nil, err
	}
	member := circle.FindMember(caller.UserID)
	if !member.Admin {
		return nil, fmt.Errorf("admin required: %w", ErrUnauthorized)
	}
	return circle, nil
}

// notifyTaskCompleted queues completion emails to every member who opted
// into circle updates, except the completer. Lookup or enqueue failures are
// logged and skipped; the completion itself has already committed.
func (e *Engine) notifyTaskCompleted(ctx context.Context, circle *models.Circle, caller Identity, task *models.Task) {
	subject := fmt.Sprintf("%s: %s completed a task", circle.Name, caller.Name())
	text := fmt.Sprintf("From %s: %s completed %q worth %d points!",
		circle.Name, caller.Name(), task.Name, task.Points)

	for _, m := range circle.Members {
		if m.UserID == caller.UserID || !m.Notifications.CircleUpdates {
			continue
		}

		user, err := e.store.GetUserByID(ctx, m.UserID)
		if err != nil || user == nil {
			slog.Warn("Skipping completion notification, user lookup failed",
				"circle_id", circle.ID, "user_id", m.UserID, "error", err)
			continue
		}

		e.enqueue(ctx, &models.Notification{
			CircleID:  circle.ID,
			Recipient: user.Email,
			Subject:   subject,
			Text:      text,
		})
	}
}

// enqueue appends to the notification outbox, logging failures rather than
// propagating them: dispatch is best-effort and decoupled from mutations.
func (e *Engine) enqueue(ctx context.Context, n *models.Notification) {
	if err := e.store.EnqueueNotification(ctx, n); err != nil {
		slog.Error("Failed to enqueue notification",
			"recipient", n.Recipient, "subject", n.Subject, "error", err)
	}
}
