package follow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nsaleh/socialnet/pkg/middleware"
	"github.com/nsaleh/socialnet/pkg/response"
)

// Handler handles HTTP requests for follow operations
type Handler struct {
	service *Service
}

// NewHandler creates a new follow handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for follow endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/request", h.Request)
	r.Post("/accept", h.Accept)
	r.Post("/decline", h.Decline)
	r.Post("/cancel", h.Cancel)
	r.Post("/unfollow", h.Unfollow)

	r.Get("/pending", h.Pending)
	r.Get("/{userId}/followers", h.Followers)
	r.Get("/{userId}/following", h.Following)
	r.Get("/{userId}/counts", h.Counts)

	return r
}

// Request handles POST /follows/request
// @Summary      Request to follow a user
// @Description  Create a follow edge; public profiles accept immediately
// @Tags         follows
// @Accept       json
// @Produce      json
// @Param        request body FollowRequest true "Followee"
// @Success      200 {object} response.APIResponse{data=EdgeResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /follows/request [post]
func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	actorID, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	edge, err := h.service.Request(r.Context(), actorID, req.UserID)
	if err != nil {
		h.writeError(w, err, "Failed to request follow")
		return
	}

	response.JSON(w, http.StatusOK, edge.ToResponse())
}

// Accept handles POST /follows/accept
// @Summary      Accept a pending follow request
// @Tags         follows
// @Accept       json
// @Produce      json
// @Param        request body FollowRequest true "Follower"
// @Success      200 {object} response.APIResponse{data=EdgeResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /follows/accept [post]
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	actorID, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	edge, err := h.service.Accept(r.Context(), actorID, req.UserID)
	if err != nil {
		h.writeError(w, err, "Failed to accept follow request")
		return
	}

	response.JSON(w, http.StatusOK, edge.ToResponse())
}

// Decline handles POST /follows/decline
// @Summary      Decline a pending follow request
// @Tags         follows
// @Accept       json
// @Produce      json
// @Param        request body FollowRequest true "Follower"
// @Success      200 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /follows/decline [post]
func (h *Handler) Decline(w http.ResponseWriter, r *http.Request) {
	actorID, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	if err := h.service.Decline(r.Context(), actorID, req.UserID); err != nil {
		h.writeError(w, err, "Failed to decline follow request")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"status": "none"})
}

// Cancel handles POST /follows/cancel
// @Summary      Cancel your own pending follow request
// @Tags         follows
// @Accept       json
// @Produce      json
// @Param        request body FollowRequest true "Followee"
// @Success      200 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /follows/cancel [post]
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	actorID, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	if err := h.service.Cancel(r.Context(), actorID, req.UserID); err != nil {
		h.writeError(w, err, "Failed to cancel follow request")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"status": "none"})
}

// Unfollow handles POST /follows/unfollow
// @Summary      Unfollow a user
// @Tags         follows
// @Accept       json
// @Produce      json
// @Param        request body FollowRequest true "Followee"
// @Success      200 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /follows/unfollow [post]
func (h *Handler) Unfollow(w http.ResponseWriter, r *http.Request) {
	actorID, req, ok := h.decode(w, r)
	if !ok {
		return
	}

	if err := h.service.Unfollow(r.Context(), actorID, req.UserID); err != nil {
		h.writeError(w, err, "Failed to unfollow")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"status": "none"})
}

// Pending handles GET /follows/pending
// @Summary      List pending follow requests addressed to you
// @Tags         follows
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]UserSummary}
// @Failure      401 {object} response.APIResponse
// @Router       /follows/pending [get]
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	users, err := h.service.PendingRequests(r.Context(), actorID)
	if err != nil {
		response.InternalError(w, "Failed to list pending requests")
		return
	}

	response.JSON(w, http.StatusOK, users)
}

// Followers handles GET /follows/{userId}/followers
// @Summary      List a user's followers
// @Tags         follows
// @Produce      json
// @Param        userId path int true "User ID"
// @Success      200 {object} response.APIResponse{data=[]UserSummary}
// @Failure      403 {object} response.APIResponse
// @Router       /follows/{userId}/followers [get]
func (h *Handler) Followers(w http.ResponseWriter, r *http.Request) {
	h.listConnections(w, r, h.service.Followers)
}

// Following handles GET /follows/{userId}/following
// @Summary      List who a user follows
// @Tags         follows
// @Produce      json
// @Param        userId path int true "User ID"
// @Success      200 {object} response.APIResponse{data=[]UserSummary}
// @Failure      403 {object} response.APIResponse
// @Router       /follows/{userId}/following [get]
func (h *Handler) Following(w http.ResponseWriter, r *http.Request) {
	h.listConnections(w, r, h.service.Following)
}

// Counts handles GET /follows/{userId}/counts
// @Summary      Get follower and following totals for a user
// @Tags         follows
// @Produce      json
// @Param        userId path int true "User ID"
// @Success      200 {object} response.APIResponse{data=CountsResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /follows/{userId}/counts [get]
func (h *Handler) Counts(w http.ResponseWriter, r *http.Request) {
	subjectID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	counts, err := h.service.Counts(r.Context(), subjectID)
	if err != nil {
		response.InternalError(w, "Failed to count follows")
		return
	}

	response.JSON(w, http.StatusOK, counts)
}

func (h *Handler) listConnections(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, viewerID, subjectID int64) ([]*UserSummary, error)) {
	viewerID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	subjectID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid user ID")
		return
	}

	users, err := list(r.Context(), viewerID, subjectID)
	if err != nil {
		h.writeError(w, err, "Failed to list connections")
		return
	}

	response.JSON(w, http.StatusOK, users)
}

// decode pulls the acting user from the session and the target user from the
// request body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (int64, *FollowRequest, bool) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return 0, nil, false
	}

	var req FollowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
		response.BadRequest(w, "Invalid request body")
		return 0, nil, false
	}

	return actorID, &req, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrSelfFollow):
		response.BadRequest(w, "Cannot follow yourself")
	case errors.Is(err, ErrUserNotFound):
		response.NotFound(w, "User not found")
	case errors.Is(err, ErrInvalidTransition):
		response.InvalidState(w, "Follow edge does not allow this transition")
	case errors.Is(err, ErrNotAllowed):
		response.Forbidden(w, "This profile is private")
	default:
		response.InternalError(w, fallback)
	}
}
