package service

import (
	"log/slog"
	"net/http"

	"github.com/circlerush/backend/internal/lifecycle"
)

// CircleService implements the circle endpoints on top of the lifecycle
// engine. Every handler threads the authenticated caller into the engine
// explicitly.
type CircleService struct {
	engine *lifecycle.Engine
}

// NewCircleService creates a new CircleService.
func NewCircleService(engine *lifecycle.Engine) *CircleService {
	return &CircleService{engine: engine}
}

// Routes registers the circle endpoints on the mux. All of these require
// the auth middleware.
func (s *CircleService) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/circles", s.CreateCircle)
	mux.HandleFunc("GET /api/circles", s.ListCircles)
	mux.HandleFunc("POST /api/circles/join", s.JoinCircle)
	mux.HandleFunc("GET /api/circles/{id}", s.GetCircle)
	mux.HandleFunc("DELETE /api/circles/{id}", s.DeleteCircle)
	mux.HandleFunc("POST /api/circles/{id}/invitations", s.InviteMember)
	mux.HandleFunc("GET /api/circles/{id}/invitations", s.ListInvitations)
	mux.HandleFunc("POST /api/circles/{id}/tasks", s.AddTask)
	mux.HandleFunc("GET /api/circles/{id}/tasks", s.ListTasks)
	mux.HandleFunc("POST /api/circles/{id}/tasks/{taskID}/complete", s.CompleteTask)
	mux.HandleFunc("POST /api/circles/{id}/admins", s.AssignAdmin)
	mux.HandleFunc("POST /api/circles/{id}/notifications", s.ToggleNotification)
	mux.HandleFunc("DELETE /api/circles/{id}/members/{userID}", s.RemoveMember)
	mux.HandleFunc("POST /api/circles/{id}/leave", s.LeaveCircle)
	mux.HandleFunc("POST /api/circles/{id}/reset", s.ResetCircle)
}

type createCircleRequest struct {
	Name           string `json:"name"`
	WinnerPrize    string `json:"winner_prize"`
	LoserChallenge string `json:"loser_challenge"`
	DurationDays   int    `json:"duration_days"`
}

// CreateCircle creates a new circle with the caller as admin.
func (s *CircleService) CreateCircle(w http.ResponseWriter, r *http.Request) {
	var req createCircleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	caller := callerFrom(r)
	slog.Info("CreateCircle request received", "name", req.Name, "user_id", caller.UserID)

	circle, err := s.engine.CreateCircle(r.Context(), caller, req.Name, req.WinnerPrize, req.LoserChallenge, req.DurationDays)
	if err != nil {
		slog.Error("CreateCircle failed", "name", req.Name, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Circle created", "circle_id", circle.ID, "name", circle.Name)
	writeJSON(w, http.StatusCreated, circle)
}

// ListCircles returns every circle the caller belongs to.
func (s *CircleService) ListCircles(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)

	circles, err := s.engine.ListCircles(r.Context(), caller)
	if err != nil {
		slog.Error("ListCircles failed", "user_id", caller.UserID, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, circles)
}

type joinCircleRequest struct {
	Name string `json:"name"`
}

// JoinCircle adds the caller to the named circle.
func (s *CircleService) JoinCircle(w http.ResponseWriter, r *http.Request) {
	var req joinCircleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	caller := callerFrom(r)
	slog.Info("JoinCircle request received", "name", req.Name, "user_id", caller.UserID)

	circle, err := s.engine.JoinCircle(r.Context(), caller, req.Name)
	if err != nil {
		slog.Warn("JoinCircle failed", "name", req.Name, "user_id", caller.UserID, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Member joined circle", "circle_id", circle.ID, "user_id", caller.UserID)
	writeJSON(w, http.StatusOK, circle)
}

// GetCircle returns one circle with members and invitations.
func (s *CircleService) GetCircle(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)

	circle, err := s.engine.GetCircle(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, circle)
}

type inviteRequest struct {
	Email string `json:"email"`
}

// InviteMember records an invitation and queues the invite email.
func (s *CircleService) InviteMember(w http.ResponseWriter, r *http.Request) {
	var req inviteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	caller := callerFrom(r)
	circleID := r.PathValue("id")
	slog.Info("InviteMember request received", "circle_id", circleID, "email", req.Email)

	inv, err := s.engine.InviteMember(r.Context(), caller, circleID, req.Email)
	if err != nil {
		slog.Warn("InviteMember failed", "circle_id", circleID, "email", req.Email, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Invitation recorded", "circle_id", circleID, "email", req.Email)
	writeJSON(w, http.StatusCreated, inv)
}

// ListInvitations returns the circle's pending invitations.
func (s *CircleService) ListInvitations(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)

	invitations, err := s.engine.ListInvitations(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, invitations)
}

type addTaskRequest struct {
	Name       string `json:"name"`
	Points     int    `json:"points"`
	AssigneeID string `json:"assignee_id"`
	Deadline   *int64 `json:"deadline,omitempty"`
}

// AddTask creates a task in the circle. The assignee defaults to the caller.
func (s *CircleService) AddTask(w http.ResponseWriter, r *http.Request) {
	var req addTaskRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	caller := callerFrom(r)
	circleID := r.PathValue("id")
	slog.Info("AddTask request received", "circle_id", circleID, "name", req.Name, "points", req.Points)

	task, err := s.engine.AddTask(r.Context(), caller, circleID, req.Name, req.Points, req.AssigneeID, req.Deadline)
	if err != nil {
		slog.Warn("AddTask failed", "circle_id", circleID, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Task added", "circle_id", circleID, "task_id", task.ID)
	writeJSON(w, http.StatusCreated, task)
}

// ListTasks returns all tasks in the circle.
func (s *CircleService) ListTasks(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)

	tasks, err := s.engine.ListTasks(r.Context(), caller, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tasks)
}

// CompleteTask marks the caller's task complete and awards its points.
func (s *CircleService) CompleteTask(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	circleID := r.PathValue("id")
	taskID := r.PathValue("taskID")
	slog.Info("CompleteTask request received", "circle_id", circleID, "task_id", taskID, "user_id", caller.UserID)

	task, err := s.engine.CompleteTask(r.Context(), caller, circleID, taskID)
	if err != nil {
		slog.Warn("CompleteTask failed", "circle_id", circleID, "task_id", taskID, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Task completed", "circle_id", circleID, "task_id", taskID, "points", task.Points)
	writeJSON(w, http.StatusOK, task)
}

type assignAdminRequest struct {
	UserID string `json:"user_id"`
}

// AssignAdmin grants the admin flag to another member.
func (s *CircleService) AssignAdmin(w http.ResponseWriter, r *http.Request) {
	var req assignAdminRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	caller := callerFrom(r)
	circleID := r.PathValue("id")

	if err := s.engine.AssignAdmin(r.Context(), caller, circleID, req.UserID); err != nil {
		slog.Warn("AssignAdmin failed", "circle_id", circleID, "target", req.UserID, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Admin assigned", "circle_id", circleID, "target", req.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "admin assigned"})
}

type toggleNotificationRequest struct {
	Kind string `json:"kind"`
}

// ToggleNotification flips one of the caller's notification preferences.
func (s *CircleService) ToggleNotification(w http.ResponseWriter, r *http.Request) {
	var req toggleNotificationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	caller := callerFrom(r)
	circleID := r.PathValue("id")

	prefs, err := s.engine.ToggleNotification(r.Context(), caller, circleID, req.Kind)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, prefs)
}

// RemoveMember removes another member from the circle. Admin only.
func (s *CircleService) RemoveMember(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	circleID := r.PathValue("id")
	targetID := r.PathValue("userID")

	if err := s.engine.RemoveMember(r.Context(), caller, circleID, targetID); err != nil {
		slog.Warn("RemoveMember failed", "circle_id", circleID, "target", targetID, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Member removed", "circle_id", circleID, "target", targetID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "member removed"})
}

// LeaveCircle removes the caller from the circle.
func (s *CircleService) LeaveCircle(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	circleID := r.PathValue("id")

	if err := s.engine.LeaveCircle(r.Context(), caller, circleID); err != nil {
		slog.Warn("LeaveCircle failed", "circle_id", circleID, "user_id", caller.UserID, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Member left circle", "circle_id", circleID, "user_id", caller.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "left circle"})
}

// ResetCircle starts a new round. Admin only.
func (s *CircleService) ResetCircle(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	circleID := r.PathValue("id")

	circle, err := s.engine.ResetCircle(r.Context(), caller, circleID)
	if err != nil {
		slog.Warn("ResetCircle failed", "circle_id", circleID, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Circle reset", "circle_id", circleID, "completion_time", circle.CompletionTime)
	writeJSON(w, http.StatusOK, circle)
}

// DeleteCircle deletes the circle and all of its tasks. Admin only.
func (s *CircleService) DeleteCircle(w http.ResponseWriter, r *http.Request) {
	caller := callerFrom(r)
	circleID := r.PathValue("id")

	if err := s.engine.DeleteCircle(r.Context(), caller, circleID); err != nil {
		slog.Warn("DeleteCircle failed", "circle_id", circleID, "error", err)
		writeError(w, err)
		return
	}

	slog.Info("Circle deleted", "circle_id", circleID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "circle deleted"})
}
