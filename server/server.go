// Package server exposes the planner over HTTP.
package server

import (
	"encoding/json"
	"fedplan/explain"
	"fedplan/frontend"
	"fedplan/log"
	"fedplan/parser"
	"fedplan/planner"
	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
	"strconv"
)

const RequestIDHeader = "X-Request-Id"

// MaxRequestBytes bounds the body of a plan or explain request.
const MaxRequestBytes = 1 << 20

var BadRequestError = errors.New("bad request")

type Handler struct {
	frontend *frontend.Frontend
	metrics  *metrics
}

func NewHandler(fe *frontend.Frontend, reg prometheus.Registerer) *Handler {
	return &Handler{
		frontend: fe,
		metrics:  newMetrics(reg),
	}
}

// NewRouter mounts the API, a health check and the metrics endpoint.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/plan", h.Plan)
		r.Post("/explain", h.Explain)
		r.Get("/cache", h.CacheStats)
	})
}

type PlanRequest struct {
	SQL string `json:"sql"`
}

type PlanResponse struct {
	Cached      bool                    `json:"cached"`
	Fingerprint string                  `json:"fingerprint,omitempty"`
	Plan        planner.PlanDescription `json:"plan"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	RequestID string `json:"request_id,omitempty"`
}

func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	plan, outcome, ok := h.plan(w, r)
	if !ok {
		return
	}
	resp := PlanResponse{Cached: outcome == frontend.Cached, Plan: plan.Describe()}
	if fp, err := plan.Fingerprint(); err == nil {
		resp.Fingerprint = formatFingerprint(fp)
	} else {
		log.WarnS("fingerprint failed", "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	plan, _, ok := h.plan(w, r)
	if !ok {
		return
	}
	rs, err := explain.NewExplainer().Execute(plan)
	if err != nil {
		h.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	explain.Render(w, rs)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	stats, ok := h.frontend.CacheStats()
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "plan cache disabled", Kind: "disabled"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) plan(w http.ResponseWriter, r *http.Request) (*planner.QueryPlan, frontend.Outcome, bool) {
	var req PlanRequest
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SQL == "" {
		h.writeError(w, r, http.StatusBadRequest, errors.Wrap(BadRequestError, `request body must be {"sql": "..."}`))
		return nil, "", false
	}
	plan, outcome, err := h.frontend.Plan(req.SQL)
	if err != nil {
		h.writeError(w, r, http.StatusUnprocessableEntity, err)
		return nil, "", false
	}
	h.metrics.plans.WithLabelValues(string(outcome)).Inc()
	h.metrics.planSteps.Observe(float64(len(plan.Steps)))
	return plan, outcome, true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	kind := errorKind(err)
	h.metrics.planErrors.WithLabelValues(kind).Inc()
	id := r.Header.Get(RequestIDHeader)
	log.InfoS("plan request failed", "request_id", id, "kind", kind, "error", err)
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Kind: kind, RequestID: id})
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, BadRequestError):
		return "bad_request"
	case errors.Is(err, parser.SyntaxError):
		return "syntax"
	case errors.Is(err, parser.UnsupportedError):
		return "unsupported_syntax"
	default:
		return planner.ErrorKind(err)
	}
}

func formatFingerprint(fp uint64) string {
	return strconv.FormatUint(fp, 16)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WarnS("write response", "error", err)
	}
}

// requestID tags every request with an id, keeping one sent by the client.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}
