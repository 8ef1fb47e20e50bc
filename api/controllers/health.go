package controllers

import (
	"net/http"

	"github.com/knockerapp/fieldsync/api/responses"
	"github.com/knockerapp/fieldsync/pkg/config"
	"github.com/knockerapp/fieldsync/pkg/db"
	pkgerrors "github.com/knockerapp/fieldsync/pkg/errors"
	"github.com/knockerapp/fieldsync/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FieldSync-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the local database; a device whose store cannot open
// is not ready to serve anything.
func HealthReady(cfg *config.Config, client *db.Client, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FieldSync-Env", cfg.App.Env)
		if client != nil {
			if err := client.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "database unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
