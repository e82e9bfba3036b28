package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nsaleh/socialnet/internal/follow"
	"github.com/nsaleh/socialnet/internal/visibility"
	"github.com/nsaleh/socialnet/pkg/middleware"
	"github.com/nsaleh/socialnet/pkg/response"
)

// Gate decides how much of a subject's profile a viewer may see.
type Gate interface {
	CanViewProfile(ctx context.Context, viewerID, subjectID int64) (visibility.Level, error)
}

// FollowReader supplies the relationship data shown on a profile.
type FollowReader interface {
	Edge(ctx context.Context, followerID, followeeID int64) (*follow.Edge, error)
	Counts(ctx context.Context, userID int64) (*follow.CountsResponse, error)
}

// Handler handles HTTP requests for user operations
type Handler struct {
	service *Service
	gate    Gate
	follows FollowReader
}

// NewHandler creates a new user handler
func NewHandler(service *Service, gate Gate, follows FollowReader) *Handler {
	return &Handler{service: service, gate: gate, follows: follows}
}

// Routes returns the router for user endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/me", h.Me)
	r.Put("/me", h.UpdateProfile)
	r.Put("/me/privacy", h.SetPrivacy)
	r.Get("/{id}", h.Profile)

	return r
}

// Me handles GET /users/me
// @Summary      Get your own account
// @Tags         users
// @Produce      json
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      401 {object} response.APIResponse
// @Router       /users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	u, err := h.service.GetByID(r.Context(), actorID)
	if err != nil {
		response.InternalError(w, "Failed to load account")
		return
	}

	response.JSON(w, http.StatusOK, u.ToResponse())
}

// UpdateProfile handles PUT /users/me
// @Summary      Update your profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body UpdateProfileRequest true "Profile fields to change"
// @Success      200 {object} response.APIResponse{data=UserResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /users/me [put]
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	u, err := h.service.UpdateProfile(r.Context(), actorID, &req)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.InternalError(w, "Failed to update profile")
		return
	}

	response.JSON(w, http.StatusOK, u.ToResponse())
}

// SetPrivacy handles PUT /users/me/privacy
// @Summary      Toggle profile privacy
// @Description  Going public accepts all pending follow requests
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        request body SetPrivacyRequest true "Privacy flag"
// @Success      200 {object} response.APIResponse
// @Failure      400 {object} response.APIResponse
// @Router       /users/me/privacy [put]
func (h *Handler) SetPrivacy(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req SetPrivacyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.service.SetPrivacy(r.Context(), actorID, req.Private); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.InternalError(w, "Failed to update privacy")
		return
	}

	response.JSON(w, http.StatusOK, map[string]bool{"is_private": req.Private})
}

// Profile handles GET /users/{id}
// @Summary      View a user's profile
// @Description  Private profiles show the partial summary unless the viewer is an accepted follower
// @Tags         users
// @Produce      json
// @Param        id path int true "User ID"
// @Success      200 {object} response.APIResponse{data=ProfileResponse}
// @Failure      404 {object} response.APIResponse
// @Router       /users/{id} [get]
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	subjectID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	level, err := h.gate.CanViewProfile(r.Context(), viewerID, subjectID)
	if err != nil {
		if errors.Is(err, visibility.ErrUserNotFound) {
			response.NotFound(w, "User not found")
			return
		}
		response.InternalError(w, "Failed to load profile")
		return
	}

	u, err := h.service.GetByID(r.Context(), subjectID)
	if err != nil {
		response.InternalError(w, "Failed to load profile")
		return
	}

	profile := &ProfileResponse{
		ID:          u.ID,
		Username:    u.Username,
		AvatarURL:   u.AvatarURL,
		Private:     u.Private,
		CanViewFull: level >= visibility.LevelFull,
	}
	if profile.CanViewFull {
		profile.Email = u.Email
		profile.AboutMe = u.AboutMe
		profile.CreatedAt = u.CreatedAt.Format("2006-01-02T15:04:05Z")
	}

	if counts, err := h.follows.Counts(r.Context(), subjectID); err == nil {
		profile.FollowersCount = counts.Followers
		profile.FollowingCount = counts.Following
	}
	if viewerID != subjectID {
		if edge, err := h.follows.Edge(r.Context(), viewerID, subjectID); err == nil && edge != nil {
			profile.IsFollowing = edge.Status == follow.StatusAccepted
			profile.HasPendingRequest = edge.Status == follow.StatusPending
		}
	}

	response.JSON(w, http.StatusOK, profile)
}
