package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"progressPalAPI/internal/apperror"
	"progressPalAPI/internal/session"
	"progressPalAPI/middleware"
	"progressPalAPI/services"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	summary, err := h.dashboardService.Summary(ctx, clerkID, from, to)
	if err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

func (h *DashboardHandler) GetByActivityType(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	rows, err := h.dashboardService.ByActivityType(ctx, clerkID, from, to)
	if err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rows)
}

func (h *DashboardHandler) GetTrends(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeAppError(w, err)
		return
	}

	var metricTypeID *uuid.UUID
	if raw := r.URL.Query().Get("metricActivityTypeId"); raw != "" {
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			writeAppError(w, apperror.BadRequest("Invalid metricActivityTypeId"))
			return
		}
		metricTypeID = &id
	}

	trends, err := h.dashboardService.Trends(ctx, clerkID, from, to, r.URL.Query().Get("bucket"), metricTypeID)
	if err != nil {
		writeAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, trends)
}

func parseDateRange(r *http.Request) (from, to *time.Time, err error) {
	q := r.URL.Query()
	if raw := q.Get("from"); raw != "" {
		if from, err = session.ParseDate(raw); err != nil {
			return nil, nil, err
		}
	}
	if raw := q.Get("to"); raw != "" {
		if to, err = session.ParseDate(raw); err != nil {
			return nil, nil, err
		}
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, apperror.BadRequest("'from' must be before or equal to 'to'")
	}
	return from, to, nil
}
