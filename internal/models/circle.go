package models

// Circle status values. A circle cycles between active and completed; the
// sweep job moves it forward, an admin reset moves it back.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Circle represents a time-boxed group competition. Members earn points by
// completing tasks; when the completion time passes, the sweep job marks the
// circle completed.
type Circle struct {
	// ID is the unique identifier for the circle (UUID format).
	ID string `json:"id"`

	// Name is the display name of the circle. Names are not globally
	// unique; creation only rejects a name the creator already admins.
	Name string `json:"name"`

	// WinnerPrize describes what the highest scorer gets.
	WinnerPrize string `json:"winner_prize"`

	// LoserChallenge describes what the lowest scorer owes.
	LoserChallenge string `json:"loser_challenge"`

	// DurationDays is the length of one round in whole days.
	DurationDays int `json:"duration_days"`

	// Status is either StatusActive or StatusCompleted.
	Status string `json:"status"`

	// ColorCode is the circle's display color, a "#rrggbb" pastel hex
	// string generated at creation.
	ColorCode string `json:"color_code"`

	// CreatedAt is the Unix timestamp when the circle was created.
	CreatedAt int64 `json:"created_at"`

	// CompletionTime is the Unix timestamp when the current round ends.
	// The sweep job completes the circle once this has passed.
	CompletionTime int64 `json:"completion_time"`

	// Members is the ordered list of participants.
	Members []Member `json:"members"`

	// Invitations is the list of emails invited to join.
	Invitations []Invitation `json:"invitations,omitempty"`
}

// Member is one user's participation in a circle.
type Member struct {
	// UserID is the stable identity key referencing User.ID.
	UserID string `json:"user_id"`

	// DisplayName is the name to render for this member. Kept separate
	// from the identity key.
	DisplayName string `json:"display_name"`

	// Admin reports whether this member may manage the circle.
	Admin bool `json:"admin"`

	// Score is the member's accumulated points, never negative.
	Score int `json:"score"`

	// Notifications holds this member's per-circle email preferences.
	Notifications NotificationPrefs `json:"notifications"`
}

// NotificationPrefs are a member's opt-ins for circle emails.
type NotificationPrefs struct {
	// TaskDeadline enables reminders for upcoming task deadlines.
	TaskDeadline bool `json:"task_deadline"`

	// CircleUpdates enables emails about circle activity, e.g. task
	// completions by other members.
	CircleUpdates bool `json:"circle_updates"`
}

// Notification preference kinds accepted by ToggleNotification.
const (
	NotifyKindTaskDeadline  = "task_deadline"
	NotifyKindCircleUpdates = "circle_updates"
)

// Invitation records an email invited to a circle and when.
type Invitation struct {
	// Email is the invited address.
	Email string `json:"email"`

	// InvitedAt is the Unix timestamp of the invite.
	InvitedAt int64 `json:"invited_at"`
}

// FindMember returns the member with the given user ID, or nil.
func (c *Circle) FindMember(userID string) *Member {
	for i := range c.Members {
		if c.Members[i].UserID == userID {
			return &c.Members[i]
		}
	}
	return nil
}

// AdminCount returns the number of members holding the admin flag.
func (c *Circle) AdminCount() int {
	n := 0
	for i := range c.Members {
		if c.Members[i].Admin {
			n++
		}
	}
	return n
}
