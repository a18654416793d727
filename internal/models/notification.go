package models

// Notification delivery states. Pending rows are picked up by the dispatch
// worker; failed rows have exhausted their attempts.
const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is one queued outbound email. Mutations enqueue these instead
// of sending inline, so a commit never depends on the mail provider being up.
type Notification struct {
	// ID is the unique identifier for the notification (UUID format).
	ID string `json:"id"`

	// CircleID is the circle that produced this notification, if any.
	CircleID string `json:"circle_id,omitempty"`

	// Recipient is the destination email address.
	Recipient string `json:"recipient"`

	// Subject and Text are the email subject and plain body.
	Subject string `json:"subject"`
	Text    string `json:"text"`

	// HTML is an optional rich body.
	HTML string `json:"html,omitempty"`

	// Status is pending, sent or failed.
	Status string `json:"status"`

	// Attempts counts delivery tries so far.
	Attempts int `json:"attempts"`

	// LastError holds the most recent delivery error, if any.
	LastError string `json:"last_error,omitempty"`

	// CreatedAt is the Unix timestamp when the row was enqueued.
	CreatedAt int64 `json:"created_at"`

	// SentAt is the Unix timestamp of successful delivery, nil until then.
	SentAt *int64 `json:"sent_at,omitempty"`
}
