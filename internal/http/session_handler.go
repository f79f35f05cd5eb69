package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/studygroup-scheduler/internal/persistence"
	"github.com/example/studygroup-scheduler/internal/scheduling"
)

type sessionService interface {
	CreateSession(ctx context.Context, params scheduling.CreateSessionParams) (persistence.Session, error)
	GetSession(ctx context.Context, sessionID string) (persistence.Session, error)
	UpdateSession(ctx context.Context, params scheduling.UpdateSessionParams) (persistence.Session, error)
	DeleteSession(ctx context.Context, principal scheduling.Principal, sessionID string) error
	CheckConflict(ctx context.Context, userID string, proposedStart time.Time, durationMinutes int, excludeID string) (scheduling.ConflictAnalysis, error)
	UpdateRSVP(ctx context.Context, principal scheduling.Principal, sessionID string, status persistence.RSVPStatus) (persistence.Session, error)
	TransitionStatus(ctx context.Context, principal scheduling.Principal, sessionID string, next persistence.SessionStatus) (persistence.Session, error)
	RemoveAttendee(ctx context.Context, principal scheduling.Principal, sessionID, userID string) (persistence.Session, error)
}

type SessionHandler struct {
	service   sessionService
	responder responder
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{service: service, responder: newResponder(logger)}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	session, err := h.service.CreateSession(r.Context(), scheduling.CreateSessionParams{
		Principal:       principal,
		GroupID:         strings.TrimSpace(req.GroupID),
		Title:           req.Title,
		ScheduledStart:  parseTime(req.ScheduledStart),
		DurationMinutes: req.DurationMinutes,
		InviteeIDs:      append([]string(nil), req.InviteeIDs...),
		AutoAssign:      req.AutoAssign,
		AutoAssignCount: req.AutoAssignCount,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	session, err := h.service.GetSession(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	patch := scheduling.SessionPatch{
		Title:           req.Title,
		DurationMinutes: req.DurationMinutes,
	}
	if req.ScheduledStart != nil {
		start := parseTime(*req.ScheduledStart)
		patch.ScheduledStart = &start
	}

	session, err := h.service.UpdateSession(r.Context(), scheduling.UpdateSessionParams{
		Principal: principal,
		SessionID: sessionID,
		Patch:     patch,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())
	if err := h.service.DeleteSession(r.Context(), principal, sessionID); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SessionHandler) UpdateRSVP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req rsvpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	session, err := h.service.UpdateRSVP(r.Context(), principal, sessionID, persistence.RSVPStatus(strings.TrimSpace(req.RSVP)))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	session, err := h.service.TransitionStatus(r.Context(), principal, sessionID, persistence.SessionStatus(strings.TrimSpace(req.Status)))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

func (h *SessionHandler) RemoveAttendee(w http.ResponseWriter, r *http.Request, userID string) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(sessionID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return
	}

	principal, _ := PrincipalFromContext(r.Context())

	session, err := h.service.RemoveAttendee(r.Context(), principal, sessionID, userID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(session)})
}

// CheckConflict serves the dry-run analysis endpoint. The user defaults to
// the acting principal when the query omits one.
func (h *SessionHandler) CheckConflict(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	userID := strings.TrimSpace(query.Get("user"))
	if userID == "" {
		if principal, ok := PrincipalFromContext(r.Context()); ok {
			userID = principal.UserID
		}
	}

	duration := 0
	if raw := strings.TrimSpace(query.Get("duration")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
		duration = parsed
	}

	analysis, err := h.service.CheckConflict(r.Context(), userID,
		parseTime(query.Get("start")), duration, strings.TrimSpace(query.Get("exclude")))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dto := toConflictAnalysisDTO(analysis)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflictCheckResponse{
		HasConflict: analysis.HasConflict(),
		Analysis:    *dto,
	})
}

type createSessionRequest struct {
	GroupID         string   `json:"group_id"`
	Title           string   `json:"title"`
	ScheduledStart  string   `json:"scheduled_start"`
	DurationMinutes int      `json:"duration_minutes"`
	InviteeIDs      []string `json:"invitee_ids"`
	AutoAssign      bool     `json:"auto_assign"`
	AutoAssignCount int      `json:"auto_assign_count"`
}

type updateSessionRequest struct {
	Title           *string `json:"title"`
	ScheduledStart  *string `json:"scheduled_start"`
	DurationMinutes *int    `json:"duration_minutes"`
}

type rsvpRequest struct {
	RSVP string `json:"rsvp"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

type conflictCheckResponse struct {
	HasConflict bool                `json:"has_conflict"`
	Analysis    conflictAnalysisDTO `json:"analysis"`
}

type sessionDTO struct {
	ID              string        `json:"id"`
	GroupID         string        `json:"group_id"`
	Title           string        `json:"title"`
	ScheduledStart  string        `json:"scheduled_start"`
	End             string        `json:"end"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          string        `json:"status"`
	Attendees       []attendeeDTO `json:"attendees"`
	CreatedBy       string        `json:"created_by"`
	CreatedAt       string        `json:"created_at"`
	UpdatedAt       string        `json:"updated_at"`
}

type attendeeDTO struct {
	UserID   string `json:"user_id"`
	RSVP     string `json:"rsvp"`
	JoinedAt string `json:"joined_at"`
}

type conflictAnalysisDTO struct {
	ProposedStart string              `json:"proposed_start"`
	ProposedEnd   string              `json:"proposed_end"`
	Conflicts     []conflictDetailDTO `json:"conflicts,omitempty"`
	NearMisses    []conflictDetailDTO `json:"near_misses,omitempty"`
}

type conflictDetailDTO struct {
	SessionID             string `json:"session_id"`
	Title                 string `json:"title"`
	OverlapMinutes        int    `json:"overlap_minutes"`
	Classification        string `json:"classification"`
	MinutesUntilAvailable int    `json:"minutes_until_available"`
}

func toSessionDTO(session persistence.Session) sessionDTO {
	attendees := make([]attendeeDTO, 0, len(session.Attendees))
	for _, attendee := range session.Attendees {
		attendees = append(attendees, attendeeDTO{
			UserID:   attendee.UserID,
			RSVP:     string(attendee.RSVP),
			JoinedAt: attendee.JoinedAt.UTC().Format(time.RFC3339),
		})
	}

	return sessionDTO{
		ID:              session.ID,
		GroupID:         session.GroupID,
		Title:           session.Title,
		ScheduledStart:  session.ScheduledStart.UTC().Format(time.RFC3339),
		End:             session.End().UTC().Format(time.RFC3339),
		DurationMinutes: session.DurationMinutes,
		Status:          string(session.Status),
		Attendees:       attendees,
		CreatedBy:       session.CreatedBy,
		CreatedAt:       session.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       session.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toSessionDTOs(sessions []persistence.Session) []sessionDTO {
	if len(sessions) == 0 {
		return nil
	}
	out := make([]sessionDTO, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toSessionDTO(session))
	}
	return out
}

func toConflictAnalysisDTO(analysis scheduling.ConflictAnalysis) *conflictAnalysisDTO {
	dto := &conflictAnalysisDTO{
		ProposedStart: analysis.Proposed.Start.UTC().Format(time.RFC3339),
		ProposedEnd:   analysis.Proposed.End.UTC().Format(time.RFC3339),
		Conflicts:     toConflictDetailDTOs(analysis.Conflicts),
		NearMisses:    toConflictDetailDTOs(analysis.NearMisses),
	}
	return dto
}

func toConflictDetailDTOs(details []scheduling.ConflictDetail) []conflictDetailDTO {
	if len(details) == 0 {
		return nil
	}
	out := make([]conflictDetailDTO, 0, len(details))
	for _, detail := range details {
		out = append(out, conflictDetailDTO{
			SessionID:             detail.SessionID,
			Title:                 detail.Title,
			OverlapMinutes:        detail.OverlapMinutes,
			Classification:        string(detail.Classification),
			MinutesUntilAvailable: int(detail.TimeUntilAvailable / time.Minute),
		})
	}
	return out
}

func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts
	}
	return time.Time{}
}
