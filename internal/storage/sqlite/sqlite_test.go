package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/circlerush/backend/internal/models"
	"github.com/circlerush/backend/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "circlerush-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func testCircle(name string) *models.Circle {
	now := time.Now().Unix()
	return &models.Circle{
		Name:           name,
		WinnerPrize:    "Dinner",
		LoserChallenge: "Dishes for a week",
		DurationDays:   7,
		Status:         models.StatusActive,
		ColorCode:      "#c8d2dc",
		CreatedAt:      now,
		CompletionTime: now + 7*24*60*60,
		Members: []models.Member{
			{UserID: "alice", DisplayName: "Alice", Admin: true},
			{UserID: "bob", DisplayName: "Bob", Notifications: models.NotificationPrefs{CircleUpdates: true}},
		},
	}
}

func TestSQLiteStore_Circles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateCircle generates ID and round-trips members", func(t *testing.T) {
		circle := testCircle("Morning Run")

		if err := store.CreateCircle(ctx, circle); err != nil {
			t.Fatalf("CreateCircle failed: %v", err)
		}
		if circle.ID == "" {
			t.Error("Expected circle ID to be generated")
		}

		retrieved, err := store.GetCircle(ctx, circle.ID)
		if err != nil {
			t.Fatalf("GetCircle failed: %v", err)
		}

		if retrieved.Name != circle.Name {
			t.Errorf("Name mismatch: got %s, want %s", retrieved.Name, circle.Name)
		}
		if retrieved.Status != models.StatusActive {
			t.Errorf("Status mismatch: got %s, want %s", retrieved.Status, models.StatusActive)
		}
		if len(retrieved.Members) != 2 {
			t.Fatalf("Expected 2 members, got %d", len(retrieved.Members))
		}
		if !retrieved.Members[0].Admin {
			t.Error("Expected first member to be admin")
		}
		if !retrieved.Members[1].Notifications.CircleUpdates {
			t.Error("Expected second member's circle updates pref to persist")
		}
	})

	t.Run("GetCircle returns ErrNotFound for unknown ID", func(t *testing.T) {
		_, err := store.GetCircle(ctx, "nonexistent-id")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetCircleByName returns the oldest match", func(t *testing.T) {
		first := testCircle("Same Name")
		first.CreatedAt = 100
		if err := store.CreateCircle(ctx, first); err != nil {
			t.Fatalf("CreateCircle failed: %v", err)
		}
		second := testCircle("Same Name")
		second.CreatedAt = 200
		second.Members = []models.Member{{UserID: "carol", DisplayName: "Carol", Admin: true}}
		if err := store.CreateCircle(ctx, second); err != nil {
			t.Fatalf("CreateCircle failed: %v", err)
		}

		got, err := store.GetCircleByName(ctx, "Same Name")
		if err != nil {
			t.Fatalf("GetCircleByName failed: %v", err)
		}
		if got.ID != first.ID {
			t.Errorf("Expected oldest circle %s, got %s", first.ID, got.ID)
		}
	})

	t.Run("AddMember is additive and rejects duplicates", func(t *testing.T) {
		circle := testCircle("Book Club")
		if err := store.CreateCircle(ctx, circle); err != nil {
			t.Fatalf("CreateCircle failed: %v", err)
		}

		member := models.Member{UserID: "carol", DisplayName: "Carol"}
		if err := store.AddMember(ctx, circle.ID, member); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}

		err := store.AddMember(ctx, circle.ID, member)
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("Expected ErrConflict on duplicate member, got %v", err)
		}

		retrieved, err := store.GetCircle(ctx, circle.ID)
		if err != nil {
			t.Fatalf("GetCircle failed: %v", err)
		}
		if len(retrieved.Members) != 3 {
			t.Errorf("Expected 3 members, got %d", len(retrieved.Members))
		}
	})

	t.Run("AddInvitation rejects duplicate email", func(t *testing.T) {
		circle := testCircle("Invite Circle")
		if err := store.CreateCircle(ctx, circle); err != nil {
			t.Fatalf("CreateCircle failed: %v", err)
		}

		inv := models.Invitation{Email: "dana@example.com", InvitedAt: time.Now().Unix()}
		if err := store.AddInvitation(ctx, circle.ID, inv); err != nil {
			t.Fatalf("AddInvitation failed: %v", err)
		}

		err := store.AddInvitation(ctx, circle.ID, inv)
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("Expected ErrConflict on duplicate invitation, got %v", err)
		}
	})

	t.Run("CountCirclesAdminedBy counts admin rows only", func(t *testing.T) {
		circle := testCircle("Counted")
		if err := store.CreateCircle(ctx, circle); err != nil {
			t.Fatalf("CreateCircle failed: %v", err)
		}

		count, err := store.CountCirclesAdminedBy(ctx, "alice", "Counted")
		if err != nil {
			t.Fatalf("CountCirclesAdminedBy failed: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected count 1 for admin, got %d", count)
		}

		count, err = store.CountCirclesAdminedBy(ctx, "bob", "Counted")
		if err != nil {
			t.Fatalf("CountCirclesAdminedBy failed: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected count 0 for non-admin member, got %d", count)
		}
	})

	t.Run("ListDueCircles ignores status", func(t *testing.T) {
		now := time.Now().Unix()

		past := testCircle("Past Due")
		past.CompletionTime = now - 60
		if err := store.CreateCircle(ctx, past); err != nil {
			t.Fatalf("CreateCircle failed: %v", err)
		}

		completed := testCircle("Completed Past Due")
		completed.Status = models.StatusCompleted
		completed.CompletionTime = now - 120
		if err := store.CreateCircle(ctx, completed); err != nil {
			t.Fatalf("CreateCircle failed: %v", err)
		}

		future := testCircle("Future")
		future.CompletionTime = now + 3600
		if err := store.CreateCircle(ctx, future); err != nil {
			t.Fatalf("CreateCircle failed: %v", err)
		}

		due, err := store.ListDueCircles(ctx, now)
		if err != nil {
			t.Fatalf("ListDueCircles failed: %v", err)
		}

		ids := make(map[string]bool, len(due))
		for _, c := range due {
			ids[c.ID] = true
		}
		if !ids[past.ID] {
			t.Error("Expected past-due active circle in results")
		}
		if !ids[completed.ID] {
			t.Error("Expected past-due completed circle in results; the sweep filters by status")
		}
		if ids[future.ID] {
			t.Error("Did not expect future circle in results")
		}
	})

	t.Run("ResetCircle reactivates and moves the deadline", func(t *testing.T) {
		circle := testCircle("Resettable")
		circle.Status = models.StatusCompleted
		if err := store.CreateCircle(ctx, circle); err != nil {
			t.Fatalf("CreateCircle failed: %v", err)
		}

		newCompletion := time.Now().Unix() + 14*24*60*60
		if err := store.ResetCircle(ctx, circle.ID, newCompletion); err != nil {
			t.Fatalf("ResetCircle failed: %v", err)
		}

		retrieved, err := store.GetCircle(ctx, circle.ID)
		if err != nil {
			t.Fatalf("GetCircle failed: %v", err)
		}
		if retrieved.Status != models.StatusActive {
			t.Errorf("Expected active status after reset, got %s", retrieved.Status)
		}
		if retrieved.CompletionTime != newCompletion {
			t.Errorf("CompletionTime mismatch: got %d, want %d", retrieved.CompletionTime, newCompletion)
		}
	})

	t.Run("DeleteCircle removes tasks, members and invitations", func(t *testing.T) {
		circle := testCircle("Doomed")
		if err := store.CreateCircle(ctx, circle); err != nil {
			t.Fatalf("CreateCircle failed: %v", err)
		}

		task := &models.Task{CircleID: circle.ID, Name: "Stretch", Points: 5, AssigneeID: "alice"}
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}

		if err := store.DeleteCircle(ctx, circle.ID); err != nil {
			t.Fatalf("DeleteCircle failed: %v", err)
		}

		if _, err := store.GetCircle(ctx, circle.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound after delete, got %v", err)
		}
		if _, err := store.GetTask(ctx, circle.ID, task.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected task to be deleted with circle, got %v", err)
		}

		err := store.DeleteCircle(ctx, circle.ID)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound deleting twice, got %v", err)
		}
	})
}

func TestSQLiteStore_Tasks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	circle := testCircle("Task Circle")
	if err := store.CreateCircle(ctx, circle); err != nil {
		t.Fatalf("CreateCircle failed: %v", err)
	}

	t.Run("CompleteTask awards points once", func(t *testing.T) {
		task := &models.Task{CircleID: circle.ID, Name: "Run 5k", Points: 10, AssigneeID: "bob"}
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}

		completedAt := time.Now().Unix()
		if err := store.CompleteTask(ctx, task, completedAt); err != nil {
			t.Fatalf("CompleteTask failed: %v", err)
		}
		if !task.Completed {
			t.Error("Expected task marked completed")
		}
		if task.CompletedAt == nil || *task.CompletedAt != completedAt {
			t.Error("Expected CompletedAt to be set")
		}

		retrieved, err := store.GetCircle(ctx, circle.ID)
		if err != nil {
			t.Fatalf("GetCircle failed: %v", err)
		}
		bob := retrieved.FindMember("bob")
		if bob == nil {
			t.Fatal("Expected bob to be a member")
		}
		if bob.Score != 10 {
			t.Errorf("Score mismatch: got %d, want 10", bob.Score)
		}

		// A second completion must not award points again.
		err = store.CompleteTask(ctx, task, completedAt+60)
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("Expected ErrConflict on second completion, got %v", err)
		}

		retrieved, err = store.GetCircle(ctx, circle.ID)
		if err != nil {
			t.Fatalf("GetCircle failed: %v", err)
		}
		if retrieved.FindMember("bob").Score != 10 {
			t.Errorf("Score changed on repeated completion: got %d, want 10", retrieved.FindMember("bob").Score)
		}
	})

	t.Run("Deadline round-trips as NULL and as a value", func(t *testing.T) {
		noDeadline := &models.Task{CircleID: circle.ID, Name: "Open Ended", Points: 3, AssigneeID: "alice"}
		if err := store.CreateTask(ctx, noDeadline); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}

		deadline := time.Now().Unix() + 3600
		withDeadline := &models.Task{CircleID: circle.ID, Name: "Due Soon", Points: 3, AssigneeID: "alice", Deadline: &deadline}
		if err := store.CreateTask(ctx, withDeadline); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}

		got, err := store.GetTask(ctx, circle.ID, noDeadline.ID)
		if err != nil {
			t.Fatalf("GetTask failed: %v", err)
		}
		if got.Deadline != nil {
			t.Errorf("Expected nil deadline, got %d", *got.Deadline)
		}

		got, err = store.GetTask(ctx, circle.ID, withDeadline.ID)
		if err != nil {
			t.Fatalf("GetTask failed: %v", err)
		}
		if got.Deadline == nil || *got.Deadline != deadline {
			t.Error("Expected deadline to round-trip")
		}
	})

	t.Run("GetTask scopes to the circle", func(t *testing.T) {
		other := testCircle("Other Circle")
		if err := store.CreateCircle(ctx, other); err != nil {
			t.Fatalf("CreateCircle failed: %v", err)
		}
		task := &models.Task{CircleID: other.ID, Name: "Elsewhere", Points: 1, AssigneeID: "alice"}
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}

		_, err := store.GetTask(ctx, circle.ID, task.ID)
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound across circles, got %v", err)
		}
	})
}

func TestSQLiteStore_Users(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &models.User{Email: "eve@example.com", DisplayName: "Eve", PasswordHash: "x"}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.ID == "" {
		t.Error("Expected user ID to be generated")
	}

	t.Run("Duplicate email conflicts", func(t *testing.T) {
		dup := &models.User{Email: "eve@example.com", DisplayName: "Evil Eve", PasswordHash: "y"}
		err := store.CreateUser(ctx, dup)
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("Expected ErrConflict on duplicate email, got %v", err)
		}
	})

	t.Run("Lookup by email and ID", func(t *testing.T) {
		byEmail, err := store.GetUserByEmail(ctx, "eve@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if byEmail == nil || byEmail.ID != user.ID {
			t.Error("Expected email lookup to find the user")
		}

		byID, err := store.GetUserByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if byID == nil || byID.Email != user.Email {
			t.Error("Expected ID lookup to find the user")
		}
	})

	t.Run("Missing user is nil, nil", func(t *testing.T) {
		got, err := store.GetUserByEmail(ctx, "nobody@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got != nil {
			t.Errorf("Expected nil for missing user, got %+v", got)
		}
	})
}

func TestSQLiteStore_Notifications(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	n := &models.Notification{
		Recipient: "frank@example.com",
		Subject:   "Join the Circle!",
		Text:      "You have been invited",
	}
	if err := store.EnqueueNotification(ctx, n); err != nil {
		t.Fatalf("EnqueueNotification failed: %v", err)
	}
	if n.ID == "" {
		t.Error("Expected notification ID to be generated")
	}

	t.Run("Pending rows come back oldest first", func(t *testing.T) {
		pending, err := store.ListPendingNotifications(ctx, 10)
		if err != nil {
			t.Fatalf("ListPendingNotifications failed: %v", err)
		}
		if len(pending) != 1 {
			t.Fatalf("Expected 1 pending notification, got %d", len(pending))
		}
		if pending[0].Status != models.NotificationPending {
			t.Errorf("Expected pending status, got %s", pending[0].Status)
		}
	})

	t.Run("MarkNotificationSent removes the row from the pool", func(t *testing.T) {
		if err := store.MarkNotificationSent(ctx, n.ID, time.Now().Unix()); err != nil {
			t.Fatalf("MarkNotificationSent failed: %v", err)
		}

		pending, err := store.ListPendingNotifications(ctx, 10)
		if err != nil {
			t.Fatalf("ListPendingNotifications failed: %v", err)
		}
		if len(pending) != 0 {
			t.Errorf("Expected 0 pending notifications, got %d", len(pending))
		}
	})

	t.Run("MarkNotificationFailed keeps retryable rows pending", func(t *testing.T) {
		retry := &models.Notification{Recipient: "gina@example.com", Subject: "s", Text: "t"}
		if err := store.EnqueueNotification(ctx, retry); err != nil {
			t.Fatalf("EnqueueNotification failed: %v", err)
		}

		if err := store.MarkNotificationFailed(ctx, retry.ID, "timeout", false); err != nil {
			t.Fatalf("MarkNotificationFailed failed: %v", err)
		}

		pending, err := store.ListPendingNotifications(ctx, 10)
		if err != nil {
			t.Fatalf("ListPendingNotifications failed: %v", err)
		}
		if len(pending) != 1 {
			t.Fatalf("Expected the retryable row to stay pending, got %d rows", len(pending))
		}
		if pending[0].Attempts != 1 {
			t.Errorf("Expected 1 attempt recorded, got %d", pending[0].Attempts)
		}
		if pending[0].LastError != "timeout" {
			t.Errorf("Expected last error recorded, got %q", pending[0].LastError)
		}

		// Dead rows leave the pool for good.
		if err := store.MarkNotificationFailed(ctx, retry.ID, "timeout", true); err != nil {
			t.Fatalf("MarkNotificationFailed failed: %v", err)
		}
		pending, err = store.ListPendingNotifications(ctx, 10)
		if err != nil {
			t.Fatalf("ListPendingNotifications failed: %v", err)
		}
		if len(pending) != 0 {
			t.Errorf("Expected 0 pending after dead-letter, got %d", len(pending))
		}
	})
}
