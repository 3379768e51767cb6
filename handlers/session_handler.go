package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"progressPalAPI/internal/apperror"
	"progressPalAPI/internal/pagination"
	"progressPalAPI/internal/session"
	"progressPalAPI/middleware"
	"progressPalAPI/services"
)

type SessionHandler struct {
	sessionService *services.SessionService
}

func NewSessionHandler(sessionService *services.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req session.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.sessionService.Create(ctx, clerkID, &req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, resp)
}

func (h *SessionHandler) PauseSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessionService.Pause)
}

func (h *SessionHandler) ResumeSession(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.sessionService.Resume)
}

// transition covers pause and resume, which share the same request shape.
func (h *SessionHandler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, string, uuid.UUID) (*session.SessionResponse, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	sessionID, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	resp, err := op(ctx, clerkID, sessionID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	sessionID, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	var req session.ProgressUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.sessionService.UpdateProgress(ctx, clerkID, sessionID, &req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) UpdateGoal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	sessionID, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	var req session.GoalUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.sessionService.UpdateGoal(ctx, clerkID, sessionID, &req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) StopSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	sessionID, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	req := &session.StopSessionRequest{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	resp, err := h.sessionService.Stop(ctx, clerkID, sessionID, req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) GetLiveSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	resp, err := h.sessionService.GetLive(ctx, clerkID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if resp == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *SessionHandler) ListMySessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	filter, err := parseSessionFilter(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	page, err := h.sessionService.ListMine(ctx, clerkID, filter, pagination.FromRequest(r))
	if err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

func (h *SessionHandler) ListUserSessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	targetID, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	var visibility *session.Visibility
	if raw := r.URL.Query().Get("visibility"); raw != "" {
		v, err := session.ParseVisibility(raw)
		if err != nil {
			writeAppError(w, err)
			return
		}
		visibility = &v
	}

	page, err := h.sessionService.ListVisible(ctx, clerkID, targetID, visibility, pagination.FromRequest(r))
	if err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, page)
}

func parseSessionFilter(r *http.Request) (*session.Filter, error) {
	q := r.URL.Query()
	filter := &session.Filter{}

	status, err := session.ParseStatusFilter(q.Get("status"))
	if err != nil {
		return nil, err
	}
	filter.Status = status

	if raw := q.Get("from"); raw != "" {
		from, err := session.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		filter.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := session.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		filter.To = to
	}
	if raw := q.Get("activityTypeId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, apperror.BadRequest("Invalid activityTypeId")
		}
		filter.ActivityTypeID = &id
	}
	if raw := q.Get("visibility"); raw != "" {
		v, err := session.ParseVisibility(raw)
		if err != nil {
			return nil, err
		}
		filter.Visibility = &v
	}

	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return filter, nil
}
