package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nsaleh/socialnet/internal/user"
	"github.com/nsaleh/socialnet/pkg/middleware"
	"github.com/nsaleh/socialnet/pkg/response"
)

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Handler handles HTTP requests for registration and sessions
type Handler struct {
	users    *user.Service
	sessions *Service
	secure   bool
}

// NewHandler creates a new auth handler. secure controls the Secure flag on
// the session cookie.
func NewHandler(users *user.Service, sessions *Service, secure bool) *Handler {
	return &Handler{users: users, sessions: sessions, secure: secure}
}

// Routes returns the router for auth endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	return r
}

// Register handles POST /auth/register
// @Summary      Register a new user
// @Description  Create an account and open a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body user.RegisterRequest true "Registration request"
// @Success      201 {object} response.APIResponse{data=user.UserResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req user.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	u, err := h.users.Register(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrMissingField):
			response.BadRequest(w, "Email, username and password are required")
		case errors.Is(err, user.ErrEmailAlreadyInUse):
			response.Conflict(w, "Email already in use")
		default:
			response.InternalError(w, "Failed to register")
		}
		return
	}

	if err := h.openSession(w, r, u.ID); err != nil {
		response.InternalError(w, "Failed to open session")
		return
	}
	response.JSON(w, http.StatusCreated, u.ToResponse())
}

// Login handles POST /auth/login
// @Summary      Log in
// @Description  Verify credentials and open a session
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body LoginRequest true "Login request"
// @Success      200 {object} response.APIResponse{data=user.UserResponse}
// @Failure      401 {object} response.APIResponse
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		response.BadRequest(w, "Invalid request body")
		return
	}

	u, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			response.Unauthorized(w, "Invalid email or password")
			return
		}
		response.InternalError(w, "Failed to log in")
		return
	}

	if err := h.openSession(w, r, u.ID); err != nil {
		response.InternalError(w, "Failed to open session")
		return
	}
	response.JSON(w, http.StatusOK, u.ToResponse())
}

// Logout handles POST /auth/logout
// @Summary      Log out
// @Description  Destroy the current session
// @Tags         auth
// @Produce      json
// @Success      200 {object} response.APIResponse
// @Router       /auth/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if err := h.sessions.Destroy(r.Context(), cookie.Value); err != nil {
			response.InternalError(w, "Failed to log out")
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	response.JSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request, userID int64) error {
	session, err := h.sessions.Create(r.Context(), userID)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
