package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/knockerapp/fieldsync/api/responses"
	"github.com/knockerapp/fieldsync/api/validators"
	"github.com/knockerapp/fieldsync/internal/valuesets"
	"github.com/knockerapp/fieldsync/pkg/logger"
)

// ValueSetGet serves a reference picklist through the tiered cache. Pass
// refresh=true to bypass the cached tiers.
func ValueSetGet(cache *valuesets.Cache, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		force := validators.ParseQueryBool(r, "refresh")

		entries, err := cache.Get(r.Context(), name, force)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"name":   name,
			"values": entries,
		})
	}
}
