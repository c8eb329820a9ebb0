package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Dan9191/loan-eligibility/internal/cache"
	"github.com/Dan9191/loan-eligibility/internal/integrations/cbr"
	"github.com/Dan9191/loan-eligibility/internal/models"
	"github.com/Dan9191/loan-eligibility/internal/scheduler"
	"github.com/Dan9191/loan-eligibility/internal/service"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// KeyRateRefresher fetches a fresh key rate and caches it
type KeyRateRefresher interface {
	RefreshNow(ctx context.Context) (cbr.KeyRate, error)
}

type Handler struct {
	svc       *service.Service
	cache     cache.Cache
	refresher KeyRateRefresher
	log       *logrus.Logger
}

func NewHandler(svc *service.Service, c cache.Cache, refresher KeyRateRefresher, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, cache: c, refresher: refresher, log: log}
}

type eligibilityRequest struct {
	MonthlyIncome   float64 `json:"monthly_income"`
	TenureYears     int     `json:"tenure_years"`
	IncludeSchedule bool    `json:"include_schedule"`
}

type eligibilityResponse struct {
	service.Assessment
	Schedule []models.Installment `json:"schedule,omitempty"`
}

type applicationRequest struct {
	Name          string  `json:"name"`
	MonthlyIncome float64 `json:"monthly_income"`
	TenureYears   int     `json:"tenure_years"`
}

// Routes registers all endpoints on a new router
func (h *Handler) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/eligibility", h.Eligibility).Methods("POST")
	r.HandleFunc("/applications", h.CreateApplication).Methods("POST")
	r.HandleFunc("/applications", h.ListApplications).Methods("GET")
	r.HandleFunc("/applications/summary", h.Summary).Methods("GET")
	r.HandleFunc("/rates", h.Rates).Methods("GET")
	r.HandleFunc("/key-rate", h.KeyRate).Methods("GET")
	return r
}

// Eligibility computes eligibility without saving anything
func (h *Handler) Eligibility(w http.ResponseWriter, r *http.Request) {
	var req eligibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assessment, err := h.svc.Assess(r.Context(), req.MonthlyIncome, req.TenureYears)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := eligibilityResponse{Assessment: assessment}
	if req.IncludeSchedule {
		resp.Schedule, err = h.svc.Schedule(assessment.Result, req.TenureYears)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CreateApplication assesses and saves an application
func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req applicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	assessment, err := h.svc.Assess(r.Context(), req.MonthlyIncome, req.TenureYears)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	app, err := h.svc.SaveApplication(r.Context(), req.Name, req.MonthlyIncome, req.TenureYears, assessment.Result)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, app)
}

// ListApplications supports ?eligible=true|false and ?limit=N
func (h *Handler) ListApplications(w http.ResponseWriter, r *http.Request) {
	var filter models.ApplicationFilter
	q := r.URL.Query()

	if v := q.Get("eligible"); v != "" {
		eligible, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "eligible must be true or false")
			return
		}
		filter.Eligible = &eligible
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			h.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	apps, err := h.svc.ListApplications(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, apps)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Summary(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, s)
}

func (h *Handler) Rates(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Rates(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"rates":        list,
		"default_rate": h.svc.Policy().DefaultRatePercent,
	})
}

// KeyRate serves the cached central bank key rate, fetching it on a miss
func (h *Handler) KeyRate(w http.ResponseWriter, r *http.Request) {
	if kr, ok := scheduler.CachedKeyRate(r.Context(), h.cache); ok {
		h.writeJSON(w, http.StatusOK, kr)
		return
	}

	kr, err := h.refresher.RefreshNow(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to get key rate")
		h.writeError(w, http.StatusBadGateway, "key rate unavailable")
		return
	}
	h.writeJSON(w, http.StatusOK, kr)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrInvalidInput) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.log.WithError(err).Error("Request failed")
	h.writeError(w, http.StatusInternalServerError, "internal error")
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeJSON encodes v before sending headers so encoding failures become a 500
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		h.log.WithError(err).Error("Failed to encode response")
		status = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"internal error"}` + "\n")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.log.WithError(err).Warn("Failed to write response")
	}
}
