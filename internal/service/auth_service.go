package service

import (
	"log/slog"
	"net/http"

	"github.com/circlerush/backend/internal/auth"
	"github.com/circlerush/backend/internal/middleware"
	"github.com/circlerush/backend/internal/models"
)

// AuthService implements the authentication endpoints.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         auth.UserStorage
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users auth.UserStorage, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// Routes registers the public auth endpoints on the mux. The /me endpoint
// is registered separately because it sits behind the auth middleware.
func (s *AuthService) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", s.Register)
	mux.HandleFunc("POST /api/auth/login", s.Login)
	mux.HandleFunc("POST /api/auth/logout", s.Logout)
}

type registerRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

type sessionResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates a new user account and returns a session token.
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("Register request", "email", req.Email)

	if req.Email == "" || req.DisplayName == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: auth.ErrInvalidCredentials.Error()})
		return
	}

	user, err := s.authenticator.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		s.logger.Error("Registration failed", "email", req.Email, "error", err)
		status := http.StatusInternalServerError
		switch err {
		case auth.ErrEmailExists:
			status = http.StatusConflict
		case auth.ErrWeakPassword:
			status = http.StatusBadRequest
		}
		writeJSON(w, status, errorBody{Error: err.Error()})
		return
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to generate token"})
		return
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusCreated, sessionResponse{User: user, Token: token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates a user and returns a session token.
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("Login request", "email", req.Email)

	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: auth.ErrInvalidCredentials.Error()})
		return
	}

	user, err := s.authenticator.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		s.logger.Warn("Login failed", "email", req.Email, "error", err)
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: auth.ErrInvalidCredentials.Error()})
		return
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to generate token"})
		return
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	writeJSON(w, http.StatusOK, sessionResponse{User: user, Token: token})
}

// Logout invalidates the user's session (a no-op since JWTs are stateless;
// clients discard the token).
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("Logout request")
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me returns the currently authenticated user. Registered behind the auth
// middleware.
func (s *AuthService) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: auth.ErrMissingToken.Error()})
		return
	}

	user, err := s.users.GetUserByID(r.Context(), userID)
	if err != nil {
		s.logger.Error("Failed to fetch current user", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to fetch user"})
		return
	}
	if user == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "user not found"})
		return
	}

	writeJSON(w, http.StatusOK, user)
}
