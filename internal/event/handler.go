package event

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

// Handler handles HTTP requests for event operations
type Handler struct {
	service *Service
}

// NewHandler creates a new event handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for event endpoints, mounted under a group scope
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Post("/respond", h.Respond)
	r.Get("/{groupId}", h.List)
	r.Get("/{groupId}/going", h.ListGoing)
	r.Get("/{groupId}/unresponded", h.ListUnresponded)

	return r
}

// Create handles POST /events
// @Summary      Create a group event
// @Description  Schedule an event; the creator is RSVPed going automatically
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request body CreateEventRequest true "Event creation request"
// @Success      201 {object} response.APIResponse{data=EventResponse}
// @Failure      400 {object} response.APIResponse
// @Failure      403 {object} response.APIResponse
// @Router       /events [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupID == 0 {
		response.BadRequest(w, "Invalid request body")
		return
	}

	e, err := h.service.Create(r.Context(), actorID, &req)
	if err != nil {
		h.writeError(w, err, "Failed to create event")
		return
	}

	response.JSON(w, http.StatusCreated, e.ToResponse())
}

// Respond handles POST /events/respond
// @Summary      RSVP to an event
// @Description  Record going or not_going; a repeat overwrites the previous response
// @Tags         events
// @Accept       json
// @Produce      json
// @Param        request body RespondRequest true "RSVP"
// @Success      200 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /events/respond [post]
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EventID == 0 {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.service.Respond(r.Context(), actorID, &req); err != nil {
		h.writeError(w, err, "Failed to record RSVP")
		return
	}

	response.JSON(w, http.StatusOK, map[string]string{"response": req.Response})
}

// List handles GET /events/{groupId}
// @Summary      List group events
// @Description  All events of the group annotated with your RSVP and counts
// @Tags         events
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]EventResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /events/{groupId} [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.List)
}

// ListGoing handles GET /events/{groupId}/going
// @Summary      List events you are going to
// @Tags         events
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]EventResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /events/{groupId}/going [get]
func (h *Handler) ListGoing(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListGoing)
}

// ListUnresponded handles GET /events/{groupId}/unresponded
// @Summary      List events awaiting your RSVP
// @Tags         events
// @Produce      json
// @Param        groupId path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]EventResponse}
// @Failure      403 {object} response.APIResponse
// @Router       /events/{groupId}/unresponded [get]
func (h *Handler) ListUnresponded(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.ListUnresponded)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, list func(ctx context.Context, userID, groupID int64) ([]*EventResponse, error)) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupId"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return
	}

	events, err := list(r.Context(), actorID, groupID)
	if err != nil {
		h.writeError(w, err, "Failed to list events")
		return
	}

	response.JSON(w, http.StatusOK, events)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrMissingTitle):
		response.BadRequest(w, "Event title is required")
	case errors.Is(err, ErrInvalidTime):
		response.BadRequest(w, "Event time must be a valid RFC 3339 timestamp")
	case errors.Is(err, ErrInvalidResponse):
		response.BadRequest(w, "Response must be going or not_going")
	case errors.Is(err, ErrGroupNotFound):
		response.NotFound(w, "Group not found")
	case errors.Is(err, ErrEventNotFound):
		response.NotFound(w, "Event not found")
	case errors.Is(err, ErrNotMember):
		response.Forbidden(w, "You are not a member of this group")
	default:
		response.InternalError(w, fallback)
	}
}
