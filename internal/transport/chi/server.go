package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aggflat/internal/domain"
	"github.com/kailas-cloud/aggflat/internal/domain/aggregation/request"
	"github.com/kailas-cloud/aggflat/internal/logger"
	aggregateuc "github.com/kailas-cloud/aggflat/internal/usecase/aggregate"
	healthuc "github.com/kailas-cloud/aggflat/internal/usecase/health"
)

// MaxFlattenBodyBytes caps search responses posted to /aggregations/flatten.
const MaxFlattenBodyBytes = 16 << 20

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the aggregation API.
type Server struct {
	aggregations  *aggregateuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	aggregations *aggregateuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		aggregations: aggregations,
		health:       health,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, codeInvalidRequest),
		sentinelHandler(domain.ErrIndexNotFound, http.StatusNotFound, codeIndexNotFound),
		sentinelHandler(domain.ErrUnauthorized, http.StatusBadGateway, codeUnauthorized),
		malformedResultHandler,
		sentinelHandler(domain.ErrSearchBackend, http.StatusBadGateway, codeSearchBackend),
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Post("/aggregations/flatten", s.FlattenAggregations)
	r.Post("/indices/{indices}/aggregate", s.AggregateIndices)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// FlattenAggregations handles POST /aggregations/flatten.
func (s *Server) FlattenAggregations(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxFlattenBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	out, err := s.aggregations.FlattenResponse(r.Context(), body)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// AggregateIndices handles POST /indices/{indices}/aggregate.
func (s *Server) AggregateIndices(w http.ResponseWriter, r *http.Request) {
	var indices []string
	err := runtime.BindStyledParameterWithLocation(
		"simple", false, "indices", runtime.ParamLocationPath, chi.URLParam(r, "indices"), &indices,
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("Invalid format for parameter indices: %s", err))
		return
	}

	var useCache *bool
	if err := runtime.BindQueryParameter("form", true, false, "cache", r.URL.Query(), &useCache); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("Invalid format for parameter cache: %s", err))
		return
	}

	var body aggregateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, request.MaxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	req, err := request.New(indices, body.Aggs, body.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
		return
	}

	ctx := r.Context()
	if useCache != nil && !*useCache {
		ctx = request.WithoutCache(ctx)
	}

	out, err := s.aggregations.Aggregate(ctx, &req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrIndexNotFound,
		domain.ErrUnauthorized,
		domain.ErrMalformedResult,
		domain.ErrSearchBackend,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// malformedResultHandler reports the aggregation path that could not be interpreted.
func malformedResultHandler(w http.ResponseWriter, err error, msg string) bool {
	var mre *domain.MalformedResultError
	if !errors.As(err, &mre) {
		return false
	}
	if mre.Path != "" {
		msg = fmt.Sprintf("%s at %q: %s", msg, mre.Path, mre.Reason)
	} else {
		msg = msg + ": " + mre.Reason
	}
	writeError(w, http.StatusBadGateway, codeMalformedResult, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternal, "internal error")
}
