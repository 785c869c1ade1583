package routes

import (
	"net/http"

	"github.com/zatekoja/clinicqueue/internal/api/handlers"
	"github.com/zatekoja/clinicqueue/internal/api/middleware"
	"github.com/zatekoja/clinicqueue/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux            *http.ServeMux
	queueHandler   *handlers.QueueHandler
	sseHandler     *handlers.SSEHandler
	metrics        *observability.Metrics
	allowedOrigins []string
}

// NewRouter creates a new router. sseHandler and metrics may be nil; without an
// SSE handler the stream routes are not registered.
func NewRouter(queueHandler *handlers.QueueHandler, sseHandler *handlers.SSEHandler, metrics *observability.Metrics, allowedOrigins []string) *Router {
	return &Router{
		mux:            http.NewServeMux(),
		queueHandler:   queueHandler,
		sseHandler:     sseHandler,
		metrics:        metrics,
		allowedOrigins: allowedOrigins,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	r.mux.HandleFunc("GET /health", r.queueHandler.Health)

	// Roster and queues
	r.mux.HandleFunc("GET /api/doctors", r.queueHandler.ListDoctors)
	r.mux.HandleFunc("GET /api/doctors/{id}/queue", r.queueHandler.GetQueue)
	r.mux.HandleFunc("POST /api/doctors/{id}/next", r.queueHandler.NextPatient)

	// Check-in and consultation
	r.mux.HandleFunc("POST /api/patients", r.queueHandler.AdmitPatient)
	r.mux.HandleFunc("POST /api/patients/{id}/complete", r.queueHandler.CompleteConsultation)

	// Live assignment streams
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/assignments", r.sseHandler.StreamAssignments)
		r.mux.HandleFunc("GET /api/stream/doctors/{id}", r.sseHandler.StreamDoctorAssignments)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
