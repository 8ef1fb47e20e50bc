package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/knockerapp/fieldsync/api/responses"
	"github.com/knockerapp/fieldsync/api/validators"
	"github.com/knockerapp/fieldsync/internal/store"
	"github.com/knockerapp/fieldsync/pkg/enums"
	"github.com/knockerapp/fieldsync/pkg/logger"
)

type leadCreateRequest struct {
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// LeadCreate caches a new lead under a property and queues its upload.
func LeadCreate(st store.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propertyID := chi.URLParam(r, "propertyID")

		var req leadCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := st.GetEntity(r.Context(), enums.EntityProperty, propertyID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id := localID()
		err := st.UpsertEntity(r.Context(), store.UpsertParams{
			Kind:       enums.EntityLead,
			ID:         id,
			PropertyID: propertyID,
			Payload:    req.Payload,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := st.EnqueueAction(r.Context(), enums.EntityLead, id, enums.ActionCreate, req.Payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"id": id})
	}
}

// LeadUpdate rewrites a cached lead's payload and queues the remote
// update. The lead keeps its property and created_at.
func LeadUpdate(st store.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		leadID := chi.URLParam(r, "leadID")

		var req leadCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := st.GetEntity(r.Context(), enums.EntityLead, leadID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err := st.UpsertEntity(r.Context(), store.UpsertParams{
			Kind:    enums.EntityLead,
			ID:      leadID,
			Payload: req.Payload,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := st.EnqueueAction(r.Context(), enums.EntityLead, leadID, enums.ActionUpdate, req.Payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"id": leadID})
	}
}

// LeadsList returns the cached leads for one property.
func LeadsList(st store.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propertyID := chi.URLParam(r, "propertyID")

		rows, err := st.LeadsForProperty(r.Context(), propertyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
