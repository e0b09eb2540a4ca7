package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/you/subway/logging"
	"github.com/you/subway/metrics"
)

// RouterOptions wires the services and cross-cutting settings into the router
type RouterOptions struct {
	Stations       StationService
	Lines          LineService
	DB             Pinger
	Logger         *zap.Logger
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// Routes lists the endpoints served by NewRouter, for startup logging.
var Routes = []string{
	"POST   /stations",
	"GET    /stations",
	"DELETE /stations/{id}",
	"POST   /lines",
	"GET    /lines",
	"GET    /lines/{id}",
	"PUT    /lines/{id}",
	"DELETE /lines/{id}",
	"POST   /lines/{id}/sections",
	"DELETE /lines/{id}/sections?stationId={stationId}",
	"GET    /health",
	"GET    /healthz",
	"GET    /metrics",
}

// NewRouter builds the chi router for the subway API
func NewRouter(opts RouterOptions) chi.Router {
	logger := logging.OrNop(opts.Logger)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Location", RequestIDHeader},
		AllowCredentials: true,
	}))
	r.Use(metrics.InstrumentHandler)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/health", Health(opts.DB))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	stations := NewStationHandler(opts.Stations, logger)
	r.Route("/stations", func(r chi.Router) {
		r.Post("/", stations.CreateStation)
		r.Get("/", stations.GetStations)
		r.Delete("/{id}", stations.DeleteStation)
	})

	lines := NewLineHandler(opts.Lines, logger)
	r.Route("/lines", func(r chi.Router) {
		r.Post("/", lines.CreateLine)
		r.Get("/", lines.GetLines)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", lines.GetLine)
			r.Put("/", lines.ModifyLine)
			r.Delete("/", lines.DeleteLine)
			r.Post("/sections", lines.AddSection)
			r.Delete("/sections", lines.RemoveSection)
		})
	})

	return r
}
