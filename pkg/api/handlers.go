// Package api is the HTTP presentation layer over the prediction engine.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/richard-senior/footy/internal/logger"
	"github.com/richard-senior/footy/pkg/datasource"
	"github.com/richard-senior/footy/pkg/predictor"
	"github.com/richard-senior/footy/pkg/report"
)

// ServiceName is reported by the health endpoint
const ServiceName = "Football Prediction System"

// RequestIDHeader carries the id assigned to each request
const RequestIDHeader = "X-Request-ID"

// Engine is the part of the prediction engine the handlers use
type Engine interface {
	PredictMatch(ctx context.Context, home, away, league string, details bool) (*predictor.Result, *predictor.ErrorPayload)
	Initialized() bool
	History(limit int) ([]*predictor.Record, error)
	ClearCache() error
}

// Handler serves the prediction API
type Handler struct {
	engine Engine
}

// NewHandler creates a new API handler
func NewHandler(engine Engine) *Handler {
	return &Handler{engine: engine}
}

// PredictRequest is the body of POST /predict
type PredictRequest struct {
	Home   string `json:"home"`
	Away   string `json:"away"`
	League string `json:"league"`
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestID)

	r.HandleFunc("/", h.handleIndex).Methods("GET")
	r.HandleFunc("/predict", h.handlePredict).Methods("POST")
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/history", h.handleHistory).Methods("GET")
	r.HandleFunc("/cache/clear", h.handleClearCache).Methods("POST")

	return r
}

// requestID tags each request with a uuid and logs its duration
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug(r.Method, r.URL.Path, id, time.Since(start).String())
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.Index(w); err != nil {
		logger.Error("Failed to render index", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
	}
}

// handlePredict answers {"prediction": ...} where the prediction may be an error payload.
// With ?format=html a successful prediction is returned as an HTML fragment instead.
func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing required fields: home and away")
		return
	}
	req.Home = strings.TrimSpace(req.Home)
	req.Away = strings.TrimSpace(req.Away)
	if req.Home == "" || req.Away == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: home and away")
		return
	}
	if req.League == "" {
		req.League = datasource.DefaultLeague
	}
	logger.Info("Prediction request:", req.Home, "vs", req.Away, "("+req.League+")")

	res, errPayload := h.engine.PredictMatch(r.Context(), req.Home, req.Away, req.League, true)

	if r.URL.Query().Get("format") != "html" {
		if errPayload != nil {
			writeJSON(w, http.StatusOK, map[string]any{"prediction": errPayload})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"prediction": res})
		return
	}

	if errPayload != nil {
		writeError(w, http.StatusUnprocessableEntity, errPayload.Error)
		return
	}
	html, err := report.HTML(res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Prediction failed: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":                "healthy",
		"service":               ServiceName,
		"predictor_initialized": h.engine.Initialized(),
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	records, err := h.engine.History(limit)
	if err != nil {
		logger.Error("Failed to load history", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if records == nil {
		records = []*predictor.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": records})
}

func (h *Handler) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.ClearCache(); err != nil {
		logger.Error("Failed to clear cache", err)
		writeError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
