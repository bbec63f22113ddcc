package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tariqnasser/airwave-backend/api/controllers"
	"github.com/tariqnasser/airwave-backend/api/middleware"
	searchsvc "github.com/tariqnasser/airwave-backend/internal/discovery/search"
	"github.com/tariqnasser/airwave-backend/internal/discovery/store"
	"github.com/tariqnasser/airwave-backend/pkg/config"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
)

// DiscoveryRouterParams carries everything the discovery surface depends on.
type DiscoveryRouterParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	Search    *searchsvc.Service
	Store     *store.Store
	Readiness map[string]controllers.Pinger
	Metrics   http.Handler
}

func NewDiscoveryRouter(params DiscoveryRouterParams) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(params.Logger),
		middleware.RequestID(params.Logger),
		middleware.Logging(params.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(params.Config))
		r.Get("/ready", controllers.HealthReady(params.Config, params.Logger, params.Readiness))
	})

	if params.Metrics != nil {
		r.Handle("/metrics", params.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/search", controllers.Search(params.Search, params.Logger))
		r.Route("/programs", func(r chi.Router) {
			r.Get("/", controllers.Browse(params.Search, params.Logger))
			r.Get("/{programId}", controllers.DiscoveryProgram(params.Search, params.Logger))
		})
		r.Get("/ops/sync-stats", controllers.SyncStats(params.Store, params.Logger))
	})

	return r
}
