// Package server exposes the live session and the training history over HTTP.
package server

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/claude/setlog/internal/ingest"
	"github.com/claude/setlog/internal/metrics"
	"github.com/claude/setlog/internal/models"
	"github.com/claude/setlog/internal/session"
	"github.com/claude/setlog/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Store is the backend storage used by the handlers. *storage.DB satisfies it.
type Store interface {
	GetOrCreateUser(ctx context.Context, login, displayName string) (int, error)
	SaveWorkout(ctx context.Context, userID int, s *models.WorkoutSummary) (uuid.UUID, error)
	QueryWorkouts(ctx context.Context, start, end time.Time, userID int) ([]models.WorkoutRow, error)
	GetWorkout(ctx context.Context, workoutID uuid.UUID, userID int) (*storage.WorkoutDetail, error)
	QueryPersonalRecords(ctx context.Context, userID int) ([]models.PersonalRecord, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, userID, limit int) ([]storage.ImportLog, error)
	GetDataStats(ctx context.Context, userID int) (*storage.DataStats, error)
	GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]storage.TrainingSummaryPeriod, error)
}

var _ Store = (*storage.DB)(nil)

// Importer ingests an Alpha Progression export for a user.
type Importer interface {
	Ingest(ctx context.Context, r io.Reader, userID int) (*ingest.Result, error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db       Store
	session  *session.Session
	alpha    Importer
	events   *Events
	metrics  *metrics.Manager
	identity func(http.Handler) http.Handler
	log      *slog.Logger
	apiKey   string
	devUser  string
	router   chi.Router
}

// New creates a new Server with all routes configured. events receives the
// session's change notifications; nil creates an unconnected stream.
func New(db Store, sess *session.Session, alphaImporter Importer, events *Events, apiKey, devUser string, log *slog.Logger) *Server {
	if events == nil {
		events = NewEvents()
	}
	s := &Server{
		db:      db,
		session: sess,
		alpha:   alphaImporter,
		log:     log,
		apiKey:  apiKey,
		devUser: devUser,
		events:  events,
		router:  chi.NewRouter(),
	}
	s.identity = s.DevIdentity
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(s.requestMetrics)
	s.router.Use(CORS)

	// Import endpoints (API key required)
	s.router.Route("/api/v1/import", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Use(s.withIdentity)
		r.Post("/alpha", s.handleAlphaImport)
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.withIdentity)

		r.Get("/me", s.handleMe)

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Get("/events", s.handleSessionEvents)
			r.Post("/start", s.handleStartWorkout)
			r.Post("/sets/complete", s.handleCompleteSet)
			r.Post("/sets/skip", s.handleSkipSet)
			r.Post("/exercises/skip", s.handleSkipExercise)
			r.Post("/rest/start", s.handleStartRest)
			r.Post("/rest/skip", s.handleSkipRest)
			r.Post("/rest/add", s.handleAddRestTime)
			r.Post("/rest/pause", s.handlePauseRest)
			r.Post("/rest/resume", s.handleResumeRest)
			r.Post("/wake", s.handleWake)
			r.Post("/finish", s.handleFinishWorkout)
		})

		r.Get("/records", s.handleRecords)
		r.Get("/workouts", s.handleQueryWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)
		r.Get("/imports", s.handleImportLogs)
		r.Get("/stats", s.handleStats)
		r.Get("/training-summary", s.handleTrainingSummary)
	})
}

// withIdentity defers to the identity middleware selected at request time.
func (s *Server) withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.identity(next).ServeHTTP(w, r)
	})
}

// SetMetrics records request, import and workout metrics into m and serves
// reg at /metrics.
func (s *Server) SetMetrics(m *metrics.Manager, reg *prometheus.Registry) {
	s.metrics = m
	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

// observe runs fn when metrics are enabled.
func (s *Server) observe(fn func(m *metrics.Manager)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

// Mount serves h under pattern behind the identity middleware. Used for the
// MCP endpoint.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.With(s.withIdentity).Handle(pattern, h)
}

// SetFrontend mounts a built web client.
// Unmatched routes serve index.html for client-side routing.
func (s *Server) SetFrontend(webFS fs.FS) {
	fileServer := http.FileServerFS(webFS)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		// Try to serve the exact file first
		f, err := webFS.Open(r.URL.Path[1:]) // strip leading /
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		// Fallback to index.html for SPA routing
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
