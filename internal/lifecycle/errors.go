package lifecycle

import "errors"

// Domain errors surfaced by the engine. The service layer maps these to
// HTTP status codes; nothing here is retried automatically.
var (
	// ErrValidation indicates required fields are missing or malformed.
	ErrValidation = errors.New("missing required fields")

	// ErrCircleNotFound indicates no circle matches the given id or name.
	ErrCircleNotFound = errors.New("circle not found")

	// ErrTaskNotFound indicates no such task exists in the circle.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNotMember indicates the referenced user is not in the circle.
	ErrNotMember = errors.New("not a member of this circle")

	// ErrDuplicateCircle indicates the creator already admins a circle
	// with the same name. Names are otherwise not unique.
	ErrDuplicateCircle = errors.New("a circle with this name already exists")

	// ErrAlreadyMember indicates the joining user is already in the circle.
	ErrAlreadyMember = errors.New("already a member of this circle")

	// ErrAlreadyInvited indicates the email is already on the invite list.
	ErrAlreadyInvited = errors.New("email has already been invited")

	// ErrAlreadyCompleted indicates the task's one-way completion has
	// already happened; points are never awarded twice.
	ErrAlreadyCompleted = errors.New("task already completed")

	// ErrUnauthorized indicates the caller lacks permission or ownership
	// for the operation.
	ErrUnauthorized = errors.New("not authorized")

	// ErrLastAdmin indicates the caller is the only admin and cannot
	// leave while other members remain.
	ErrLastAdmin = errors.New("assign another admin before leaving the circle")
)
