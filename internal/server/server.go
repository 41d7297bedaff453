package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/smartdevs17/report-dispatcher/internal/config"
	"github.com/smartdevs17/report-dispatcher/internal/dispatch"
	"github.com/smartdevs17/report-dispatcher/internal/metrics"
	"github.com/smartdevs17/report-dispatcher/internal/notify"
	"github.com/smartdevs17/report-dispatcher/internal/report"
	"github.com/smartdevs17/report-dispatcher/internal/scheduler"
	"github.com/smartdevs17/report-dispatcher/internal/storage"
	"github.com/smartdevs17/report-dispatcher/pkg/utils"
)

// HTTPServer represents the HTTP server
type HTTPServer struct {
	config         *config.ServerConfig
	server         *http.Server
	router         *mux.Router
	handler        http.Handler
	storage        storage.Storage
	scheduler      *scheduler.Scheduler
	dispatcher     *dispatch.Dispatcher
	renderer       report.Renderer
	artifacts      report.ArtifactStore
	email          notify.EmailSender
	metricsManager *metrics.Manager
	logger         *logrus.Logger
	now            func() time.Time
}

// NewHTTPServer creates a new HTTP server
func NewHTTPServer(
	cfg *config.ServerConfig,
	store storage.Storage,
	sched *scheduler.Scheduler,
	dispatcher *dispatch.Dispatcher,
	renderer report.Renderer,
	artifacts report.ArtifactStore,
	email notify.EmailSender,
	metricsManager *metrics.Manager,
) (*HTTPServer, error) {

	server := &HTTPServer{
		config:         cfg,
		storage:        store,
		scheduler:      sched,
		dispatcher:     dispatcher,
		renderer:       renderer,
		artifacts:      artifacts,
		email:          email,
		metricsManager: metricsManager,
		logger:         utils.GetLogger(),
		now:            time.Now,
	}

	server.setupRouter()

	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      server.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server, nil
}

// Router exposes the configured handler chain. Used by tests.
func (s *HTTPServer) Router() http.Handler {
	return s.handler
}

// setupRouter sets up the HTTP routes
func (s *HTTPServer) setupRouter() {
	s.router = mux.NewRouter()

	// Middleware. CORS wraps the router itself so preflight requests and
	// 405 responses get headers even when no route matches.
	s.router.Use(s.loggingMiddleware)
	if s.metricsManager != nil {
		s.router.Use(s.metricsMiddleware)
	}

	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})
	s.router.MethodNotAllowedHandler = methodNotAllowed

	// API routes
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.MethodNotAllowedHandler = methodNotAllowed

	// Health check endpoint
	if s.config.EnableHealth {
		api.HandleFunc("/health", s.healthHandler).Methods("GET")
		api.HandleFunc("/health/detailed", s.detailedHealthHandler).Methods("GET")
	}

	// Metrics endpoint
	if s.config.EnableMetrics {
		s.router.Handle("/metrics", promhttp.Handler())
		api.HandleFunc("/stats", s.statsHandler).Methods("GET")
	}

	// Scheduled report endpoints
	api.HandleFunc("/scheduled-reports", s.listReportsHandler).Methods("GET")
	api.HandleFunc("/scheduled-reports", s.createReportHandler).Methods("POST")
	api.HandleFunc("/scheduled-reports/{id}", s.getReportHandler).Methods("GET")
	api.HandleFunc("/scheduled-reports/{id}", s.updateReportHandler).Methods("PATCH")
	api.HandleFunc("/scheduled-reports/{id}/logs", s.listReportLogsHandler).Methods("GET")

	// Webhook endpoints
	api.HandleFunc("/webhooks", s.listWebhooksHandler).Methods("GET")
	api.HandleFunc("/webhooks", s.webhookActionHandler).Methods("POST")
	api.HandleFunc("/webhooks/{id}/logs", s.listWebhookLogsHandler).Methods("GET")

	// Slack integration endpoints
	api.HandleFunc("/slack-integrations", s.listSlackIntegrationsHandler).Methods("GET")
	api.HandleFunc("/slack-integrations", s.slackActionHandler).Methods("POST")
	api.HandleFunc("/slack-integrations/{id}/logs", s.listSlackLogsHandler).Methods("GET")

	// Report function endpoints
	api.HandleFunc("/generate-report-pdf", s.generateReportHandler).Methods("POST")
	api.HandleFunc("/send-report-email", s.sendReportEmailHandler).Methods("POST")
	api.HandleFunc("/run-tick", s.runTickHandler).Methods("POST")

	// Generated report artifacts
	if dir, ok := s.artifacts.(interface{ Dir() string }); ok {
		s.router.PathPrefix("/reports/").Handler(
			http.StripPrefix("/reports/", http.FileServer(http.Dir(dir.Dir()))))
	}

	s.handler = s.corsMiddleware(s.router)
}

// Start starts the HTTP server
func (s *HTTPServer) Start() error {
	s.logger.WithFields(logrus.Fields{
		"address":         s.server.Addr,
		"metrics_enabled": s.config.EnableMetrics,
	}).Info("Starting HTTP server")

	// Prime system and component metrics so they appear on first scrape
	if s.metricsManager != nil {
		s.updateComponentMetrics()
		go s.systemMetricsUpdater()
	}

	errChan := make(chan error, 1)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
			errChan <- err
		}
	}()

	// Give the server a moment to start and check for immediate binding errors
	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// systemMetricsUpdater updates system metrics periodically
func (s *HTTPServer) systemMetricsUpdater() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		s.updateComponentMetrics()
	}
}

func (s *HTTPServer) updateComponentMetrics() {
	s.metricsManager.UpdateSystemMetrics()
	prom := s.metricsManager.GetPrometheusMetrics()

	if s.storage != nil {
		prom.UpdateComponentHealth("storage", s.storage.Ping() == nil)
	}
	if s.scheduler != nil {
		prom.UpdateComponentHealth("scheduler", s.scheduler.IsHealthy())
	}
}

// Stop stops the HTTP server
func (s *HTTPServer) Stop() error {
	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Health Handlers

// healthHandler returns basic health status
func (s *HTTPServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":          "healthy",
		"timestamp":       s.now().UTC().Format(time.RFC3339Nano),
		"metrics_enabled": s.config.EnableMetrics,
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// detailedHealthHandler returns detailed health status
func (s *HTTPServer) detailedHealthHandler(w http.ResponseWriter, r *http.Request) {
	components := map[string]interface{}{
		"storage": s.storage.Ping() == nil,
	}
	if s.scheduler != nil {
		components["scheduler"] = s.scheduler.GetHealth()
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"timestamp":  s.now(),
		"components": components,
	})
}

// statsHandler returns application statistics
func (s *HTTPServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	storageStats, err := s.storage.GetStorageStats()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "Failed to retrieve storage stats", err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp":       s.now(),
		"storage":         storageStats,
		"metrics_enabled": s.config.EnableMetrics,
	})
}

// Utility Methods

// writeJSON writes a JSON response
func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

// writeError writes an error response
func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string, err error) {
	errorResponse := map[string]interface{}{
		"error":     message,
		"status":    status,
		"timestamp": s.now(),
	}

	if err != nil {
		errorResponse["details"] = err.Error()
		s.logger.WithFields(logrus.Fields{
			"status":  status,
			"message": message,
			"error":   err,
		}).Error("HTTP error")
	}

	s.writeJSON(w, status, errorResponse)
}

// writeAppError maps an AppError code to an HTTP status
func (s *HTTPServer) writeAppError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch utils.ErrorCode(err) {
	case utils.ErrCodeValidation:
		status = http.StatusBadRequest
	case utils.ErrCodeNotFound:
		status = http.StatusNotFound
	case utils.ErrCodeDelivery, utils.ErrCodeExternal:
		status = http.StatusBadGateway
	}
	s.writeError(w, status, message, err)
}
