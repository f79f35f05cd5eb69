package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/studygroup-scheduler/internal/persistence"
	"github.com/example/studygroup-scheduler/internal/scheduling"
)

type groupService interface {
	CreateGroup(ctx context.Context, params scheduling.CreateGroupParams) (persistence.Group, error)
	GetGroup(ctx context.Context, groupID string) (persistence.Group, error)
	ListGroupSessions(ctx context.Context, groupID string) ([]persistence.Session, error)
}

type GroupHandler struct {
	service   groupService
	responder responder
}

func NewGroupHandler(service groupService, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{service: service, responder: newResponder(logger)}
}

func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	group, err := h.service.CreateGroup(r.Context(), scheduling.CreateGroupParams{
		Principal:      principal,
		Name:           req.Name,
		MemberIDs:      append([]string(nil), req.MemberIDs...),
		PreferWeekdays: req.PreferWeekdays,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, groupResponse{Group: toGroupDTO(group)})
}

func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	groupID, ok := GroupIDFromContext(r.Context())
	if !ok || strings.TrimSpace(groupID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidGroupID)
		return
	}

	group, err := h.service.GetGroup(r.Context(), groupID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, groupResponse{Group: toGroupDTO(group)})
}

func (h *GroupHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	groupID, ok := GroupIDFromContext(r.Context())
	if !ok || strings.TrimSpace(groupID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidGroupID)
		return
	}

	sessions, err := h.service.ListGroupSessions(r.Context(), groupID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, listSessionsResponse{Sessions: toSessionDTOs(sessions)})
}

type createGroupRequest struct {
	Name           string   `json:"name"`
	MemberIDs      []string `json:"member_ids"`
	PreferWeekdays bool     `json:"prefer_weekdays"`
}

type groupResponse struct {
	Group groupDTO `json:"group"`
}

type listSessionsResponse struct {
	Sessions []sessionDTO `json:"sessions"`
}

type groupDTO struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Members        []memberDTO `json:"members"`
	PreferWeekdays bool        `json:"prefer_weekdays"`
	SessionIDs     []string    `json:"session_ids,omitempty"`
	CreatedAt      string      `json:"created_at"`
	UpdatedAt      string      `json:"updated_at"`
}

type memberDTO struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
}

func toGroupDTO(group persistence.Group) groupDTO {
	members := make([]memberDTO, 0, len(group.Members))
	for _, member := range group.Members {
		members = append(members, memberDTO{UserID: member.UserID, IsAdmin: member.IsAdmin})
	}

	return groupDTO{
		ID:             group.ID,
		Name:           group.Name,
		Members:        members,
		PreferWeekdays: group.Policy.PreferWeekdays,
		SessionIDs:     append([]string(nil), group.SessionIDs...),
		CreatedAt:      group.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      group.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
