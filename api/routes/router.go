package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/knockerapp/fieldsync/api/controllers"
	"github.com/knockerapp/fieldsync/api/middleware"
	"github.com/knockerapp/fieldsync/internal/store"
	"github.com/knockerapp/fieldsync/internal/syncer"
	"github.com/knockerapp/fieldsync/internal/valuesets"
	"github.com/knockerapp/fieldsync/pkg/config"
	"github.com/knockerapp/fieldsync/pkg/db"
	"github.com/knockerapp/fieldsync/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	client *db.Client,
	st store.Store,
	cache *valuesets.Cache,
	coord *syncer.Coordinator,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Get("/readyz", controllers.HealthReady(cfg, client, logg))
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/properties", func(r chi.Router) {
		r.Get("/", controllers.PropertiesInView(st, logg))
		r.Post("/", controllers.PropertyCreate(st, logg))

		r.Route("/{propertyID}", func(r chi.Router) {
			r.Get("/", controllers.PropertyGet(st, logg))
			r.Put("/", controllers.PropertyUpdate(st, logg))
			r.Delete("/", controllers.PropertyDelete(st, logg))

			r.Get("/knocks", controllers.KnocksList(st, logg))
			r.Post("/knocks", controllers.KnockCreate(st, logg))

			r.Get("/leads", controllers.LeadsList(st, logg))
			r.Post("/leads", controllers.LeadCreate(st, logg))
			r.Put("/leads/{leadID}", controllers.LeadUpdate(st, logg))
		})
	})

	r.Get("/valuesets/{name}", controllers.ValueSetGet(cache, logg))

	r.Route("/sync", func(r chi.Router) {
		r.Post("/", controllers.SyncTrigger(coord, logg))
		r.Get("/status", controllers.SyncStatus(st, logg))
	})

	return r
}
