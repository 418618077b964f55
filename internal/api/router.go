package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"cnlistener/internal/handlers"
	"cnlistener/internal/middleware"
	"cnlistener/internal/supervisor"
)

type Router struct {
	*mux.Router
}

// NewRouter wires the control API: health probes, supervised unit control,
// supervisor logs and the connectivity status view.
func NewRouter(sup *supervisor.Supervisor, ips handlers.IPSource, outages handlers.OutageSource, logger *zap.Logger) *Router {
	r := mux.NewRouter()

	unitHandler := handlers.NewUnitHandler(sup, logger)
	statusHandler := handlers.NewStatusHandler(ips, outages, logger)

	// Health check endpoints (no middleware for faster response)
	r.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/ready", handlers.ReadyCheck).Methods(http.MethodGet)

	// API routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/units", unitHandler.GetUnits).Methods(http.MethodGet)
	api.HandleFunc("/units/{name}/start", unitHandler.StartUnit).Methods(http.MethodPost)
	api.HandleFunc("/units/{name}/stop", unitHandler.StopUnit).Methods(http.MethodPost)
	api.HandleFunc("/units/{name}/restart", unitHandler.RestartUnit).Methods(http.MethodPost)
	api.HandleFunc("/logs", unitHandler.GetLogs).Methods(http.MethodGet)
	api.HandleFunc("/logs/{name}", unitHandler.GetUnitLogs).Methods(http.MethodGet)
	api.HandleFunc("/status", statusHandler.GetStatus).Methods(http.MethodGet)

	// Apply middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))

	return &Router{Router: r}
}
