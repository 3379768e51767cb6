package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"progressPalAPI/internal/activitytype"
	"progressPalAPI/middleware"
	"progressPalAPI/services"
)

type ActivityTypeHandler struct {
	activityTypeService *services.ActivityTypeService
}

func NewActivityTypeHandler(activityTypeService *services.ActivityTypeService) *ActivityTypeHandler {
	return &ActivityTypeHandler{
		activityTypeService: activityTypeService,
	}
}

func (h *ActivityTypeHandler) CreateActivityType(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req activitytype.CreateActivityTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.activityTypeService.Create(ctx, clerkID, &req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *ActivityTypeHandler) ListActivityTypes(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	scope, err := activitytype.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		writeAppError(w, err)
		return
	}

	types, err := h.activityTypeService.List(ctx, clerkID, scope)
	if err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, types)
}

func (h *ActivityTypeHandler) GetActivityType(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid activity type id")
		return
	}

	at, err := h.activityTypeService.Get(ctx, clerkID, id)
	if err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, at)
}

func (h *ActivityTypeHandler) UpdateActivityType(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid activity type id")
		return
	}

	var req activitytype.UpdateActivityTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	updated, err := h.activityTypeService.Update(ctx, clerkID, id, &req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *ActivityTypeHandler) DeleteActivityType(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	id, ok := pathUUID(r, "id")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid activity type id")
		return
	}

	if err := h.activityTypeService.Delete(ctx, clerkID, id); err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Activity type deleted"})
}
