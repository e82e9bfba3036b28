package group

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

// Handler handles HTTP requests for group operations
type Handler struct {
	service *Service
}

// NewHandler creates a new group handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the router for group endpoints
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/", h.Discover)
	r.Get("/mine", h.Mine)

	// Invitation / join-request lifecycle
	r.Post("/invite", h.Invite)
	r.Post("/request-join", h.RequestJoin)
	r.Post("/respond-invitation", h.RespondInvitation)
	r.Post("/respond-request", h.RespondJoinRequest)
	r.Get("/invitations", h.Invitations)
	r.Get("/join-requests", h.JoinRequests)

	r.Get("/{id}/members", h.Members)
	r.Get("/{id}/invitable", h.SearchInvitable)

	return r
}

// Create handles POST /groups
// @Summary      Create a new group
// @Description  Create a group; the creator becomes its first member
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body CreateGroupRequest true "Group creation request"
// @Success      201 {object} response.APIResponse{data=GroupResponse}
// @Failure      400 {object} response.APIResponse
// @Router       /groups [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	g, err := h.service.Create(r.Context(), actorID, &req)
	if err != nil {
		h.writeError(w, err, "Failed to create group")
		return
	}

	response.JSON(w, http.StatusCreated, g.ToResponse())
}

// Discover handles GET /groups
// @Summary      Browse groups
// @Description  List every group as its public summary with the caller's membership status
// @Tags         groups
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]DiscoverItem}
// @Router       /groups [get]
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	items, err := h.service.Discover(r.Context(), actorID)
	if err != nil {
		response.InternalError(w, "Failed to list groups")
		return
	}

	response.JSON(w, http.StatusOK, items)
}

// Mine handles GET /groups/mine
// @Summary      List groups you belong to
// @Tags         groups
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]GroupResponse}
// @Router       /groups/mine [get]
func (h *Handler) Mine(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	groups, err := h.service.Mine(r.Context(), actorID)
	if err != nil {
		response.InternalError(w, "Failed to list groups")
		return
	}

	resp := make([]*GroupResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, g.ToResponse())
	}
	response.JSON(w, http.StatusOK, resp)
}

// Invite handles POST /groups/invite
// @Summary      Invite a user to a group
// @Description  Create an invitation; fails when the user already has a live membership
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body InviteRequest true "Invitation request"
// @Success      200 {object} response.APIResponse{data=MembershipResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      409 {object} response.APIResponse
// @Router       /groups/invite [post]
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupID == 0 || req.UserID == 0 {
		response.BadRequest(w, "Invalid request body")
		return
	}

	m, err := h.service.Invite(r.Context(), actorID, &req)
	if err != nil {
		h.writeError(w, err, "Failed to invite user")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}

// RequestJoin handles POST /groups/request-join
// @Summary      Request to join a group
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body JoinRequestBody true "Join request"
// @Success      200 {object} response.APIResponse{data=MembershipResponse}
// @Failure      409 {object} response.APIResponse
// @Router       /groups/request-join [post]
func (h *Handler) RequestJoin(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req JoinRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GroupID == 0 {
		response.BadRequest(w, "Invalid request body")
		return
	}

	m, err := h.service.RequestJoin(r.Context(), actorID, req.GroupID)
	if err != nil {
		h.writeError(w, err, "Failed to request join")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}

// RespondInvitation handles POST /groups/respond-invitation
// @Summary      Accept or decline an invitation
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body RespondRequest true "Resolution"
// @Success      200 {object} response.APIResponse{data=MembershipResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/respond-invitation [post]
func (h *Handler) RespondInvitation(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.RespondInvitation)
}

// RespondJoinRequest handles POST /groups/respond-request
// @Summary      Accept or decline a join request
// @Tags         groups
// @Accept       json
// @Produce      json
// @Param        request body RespondRequest true "Resolution"
// @Success      200 {object} response.APIResponse{data=MembershipResponse}
// @Failure      403 {object} response.APIResponse
// @Failure      404 {object} response.APIResponse
// @Router       /groups/respond-request [post]
func (h *Handler) RespondJoinRequest(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.service.RespondJoinRequest)
}

// Invitations handles GET /groups/invitations
// @Summary      List your pending invitations
// @Tags         groups
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]InvitationResponse}
// @Router       /groups/invitations [get]
func (h *Handler) Invitations(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	invitations, err := h.service.Invitations(r.Context(), actorID)
	if err != nil {
		response.InternalError(w, "Failed to list invitations")
		return
	}

	response.JSON(w, http.StatusOK, invitations)
}

// JoinRequests handles GET /groups/join-requests
// @Summary      List pending join requests for groups you created
// @Tags         groups
// @Produce      json
// @Success      200 {object} response.APIResponse{data=[]JoinRequestResponse}
// @Router       /groups/join-requests [get]
func (h *Handler) JoinRequests(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	requests, err := h.service.JoinRequests(r.Context(), actorID)
	if err != nil {
		response.InternalError(w, "Failed to list join requests")
		return
	}

	response.JSON(w, http.StatusOK, requests)
}

// Members handles GET /groups/{id}/members
// @Summary      Get group member roster
// @Description  Member-only view of who belongs to the group
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Success      200 {object} response.APIResponse{data=[]MemberSummary}
// @Failure      403 {object} response.APIResponse
// @Router       /groups/{id}/members [get]
func (h *Handler) Members(w http.ResponseWriter, r *http.Request) {
	actorID, groupID, ok := h.groupScope(w, r)
	if !ok {
		return
	}

	members, err := h.service.Members(r.Context(), actorID, groupID)
	if err != nil {
		h.writeError(w, err, "Failed to list members")
		return
	}

	response.JSON(w, http.StatusOK, members)
}

// SearchInvitable handles GET /groups/{id}/invitable
// @Summary      Search users to invite
// @Description  Find users without a live membership matching the query
// @Tags         groups
// @Produce      json
// @Param        id path int true "Group ID"
// @Param        q query string true "Search query"
// @Success      200 {object} response.APIResponse{data=[]InvitableUser}
// @Failure      403 {object} response.APIResponse
// @Router       /groups/{id}/invitable [get]
func (h *Handler) SearchInvitable(w http.ResponseWriter, r *http.Request) {
	actorID, groupID, ok := h.groupScope(w, r)
	if !ok {
		return
	}

	users, err := h.service.SearchInvitable(r.Context(), actorID, groupID, r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, err, "Failed to search users")
		return
	}

	response.JSON(w, http.StatusOK, users)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, resolve func(ctx context.Context, actorID, membershipID int64, action string) (*Membership, error)) {
	actorID, ok := middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return
	}

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == 0 {
		response.BadRequest(w, "Invalid request body")
		return
	}

	m, err := resolve(r.Context(), actorID, req.ID, req.Action)
	if err != nil {
		h.writeError(w, err, "Failed to respond")
		return
	}

	response.JSON(w, http.StatusOK, m.ToResponse())
}

func (h *Handler) groupScope(w http.ResponseWriter, r *http.Request) (actorID, groupID int64, ok bool) {
	actorID, ok = middleware.GetUserID(r.Context())
	if !ok {
		response.Unauthorized(w, "Authentication required")
		return 0, 0, false
	}

	groupID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "Invalid group ID")
		return 0, 0, false
	}
	return actorID, groupID, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrMissingTitle):
		response.BadRequest(w, "Group title is required")
	case errors.Is(err, ErrInvalidRespondAction):
		response.BadRequest(w, "Action must be accept or decline")
	case errors.Is(err, ErrGroupNotFound):
		response.NotFound(w, "Group not found")
	case errors.Is(err, ErrUserNotFound):
		response.NotFound(w, "User not found")
	case errors.Is(err, ErrNoPendingInvitation):
		response.NotFound(w, "No pending invitation")
	case errors.Is(err, ErrNoPendingJoinRequest):
		response.NotFound(w, "No pending join request")
	case errors.Is(err, ErrNotMember):
		response.Forbidden(w, "You are not a member of this group")
	case errors.Is(err, ErrNotInvitee):
		response.Forbidden(w, "Only the invited user may respond")
	case errors.Is(err, ErrNotCreator):
		response.Forbidden(w, "Only the group creator may respond")
	case errors.Is(err, ErrMembershipExists):
		response.Conflict(w, "User already has a pending or active membership")
	default:
		response.InternalError(w, fallback)
	}
}
