package models

// Task represents a point-valued unit of work assigned to one circle member.
// Completion is one-way: a completed task stays completed and awards its
// points to the assignee exactly once.
type Task struct {
	// ID is the unique identifier for the task (UUID format).
	ID string `json:"id"`

	// CircleID is the circle this task belongs to.
	CircleID string `json:"circle_id"`

	// Name is the task description.
	Name string `json:"name"`

	// Points is the score awarded to the assignee on completion.
	Points int `json:"points"`

	// AssigneeID references the Member (User.ID) who must complete the
	// task. Only the assignee may mark it complete.
	AssigneeID string `json:"assignee_id"`

	// Deadline is an optional Unix timestamp; nil means no deadline.
	Deadline *int64 `json:"deadline,omitempty"`

	// Completed reports whether the task has been finished.
	Completed bool `json:"completed"`

	// CompletedAt is the Unix timestamp of completion, nil until then.
	CompletedAt *int64 `json:"completed_at,omitempty"`
}
