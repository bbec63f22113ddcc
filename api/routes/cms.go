// Package routes assembles the HTTP surface of both services. The CMS router
// serves content management; the discovery router serves the public catalog.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tariqnasser/airwave-backend/api/controllers"
	"github.com/tariqnasser/airwave-backend/api/middleware"
	episodesvc "github.com/tariqnasser/airwave-backend/internal/cms/episodes"
	"github.com/tariqnasser/airwave-backend/internal/cms/outbox"
	programsvc "github.com/tariqnasser/airwave-backend/internal/cms/programs"
	"github.com/tariqnasser/airwave-backend/pkg/config"
	"github.com/tariqnasser/airwave-backend/pkg/logger"
)

// CMSRouterParams carries everything the CMS surface depends on.
type CMSRouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Programs programsvc.Service
	Episodes episodesvc.Service
	Outbox   *outbox.Repository
	OutboxDLQ *outbox.DLQRepository
	// Readiness maps dependency names to their connectivity checks.
	Readiness map[string]controllers.Pinger
	// Metrics serves the Prometheus scrape endpoint.
	Metrics http.Handler
}

func NewCMSRouter(params CMSRouterParams) http.Handler {
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
		r.Route("/programs", func(r chi.Router) {
			r.Get("/", controllers.ListPrograms(params.Programs, params.Logger))
			r.Post("/", controllers.CreateProgram(params.Programs, params.Logger))
			r.Route("/{programId}", func(r chi.Router) {
				r.Get("/", controllers.GetProgram(params.Programs, params.Logger))
				r.Patch("/", controllers.UpdateProgram(params.Programs, params.Logger))
				r.Delete("/", controllers.DeleteProgram(params.Programs, params.Logger))
				r.Post("/publish", controllers.PublishProgram(params.Programs, params.Logger))
				r.Post("/unpublish", controllers.UnpublishProgram(params.Programs, params.Logger))
				r.Post("/archive", controllers.ArchiveProgram(params.Programs, params.Logger))
				r.Post("/resync", controllers.ResyncProgram(params.Programs, params.Logger))
			})
		})

		r.Route("/episodes", func(r chi.Router) {
			r.Get("/", controllers.ListEpisodes(params.Episodes, params.Logger))
			r.Post("/", controllers.CreateEpisode(params.Episodes, params.Logger))
			r.Route("/{episodeId}", func(r chi.Router) {
				r.Get("/", controllers.GetEpisode(params.Episodes, params.Logger))
				r.Patch("/", controllers.UpdateEpisode(params.Episodes, params.Logger))
				r.Delete("/", controllers.DeleteEpisode(params.Episodes, params.Logger))
				r.Post("/publish", controllers.PublishEpisode(params.Episodes, params.Logger))
				r.Post("/unpublish", controllers.UnpublishEpisode(params.Episodes, params.Logger))
				r.Post("/resync", controllers.ResyncEpisode(params.Episodes, params.Logger))
			})
		})

		r.Route("/ops/outbox", func(r chi.Router) {
			r.Get("/status", controllers.OutboxStatus(params.Outbox, params.Logger))
			r.Get("/dead-letters", controllers.OutboxDeadLetters(params.OutboxDLQ, params.Logger))
		})
	})

	return r
}
