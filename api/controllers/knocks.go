package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/knockerapp/fieldsync/api/responses"
	"github.com/knockerapp/fieldsync/api/validators"
	"github.com/knockerapp/fieldsync/internal/disposition"
	"github.com/knockerapp/fieldsync/internal/store"
	"github.com/knockerapp/fieldsync/pkg/enums"
	pkgerrors "github.com/knockerapp/fieldsync/pkg/errors"
	"github.com/knockerapp/fieldsync/pkg/logger"
)

type knockCreateRequest struct {
	DispositionType string `json:"dispositionType" validate:"required"`
	Status          string `json:"status" validate:"required"`
	Notes           string `json:"notes,omitempty" validate:"max=2000"`
}

// KnockCreate records a door knock against a property. The event lands in
// the local cache immediately and its upload is queued, so the marker
// restyles without waiting for the network.
func KnockCreate(st store.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propertyID := chi.URLParam(r, "propertyID")

		var req knockCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dispo, err := enums.ParseDispositionType(req.DispositionType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid disposition type"))
			return
		}

		// The knock must reference a cached property.
		if _, err := st.GetEntity(r.Context(), enums.EntityProperty, propertyID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id := localID()
		payload, err := json.Marshal(map[string]any{
			"Property__c":           propertyID,
			"Disposition_Type__c":   string(dispo),
			"Disposition_Status__c": req.Status,
			"Notes__c":              req.Notes,
			"CreatedDate":           time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding knock payload"))
			return
		}

		err = st.UpsertEntity(r.Context(), store.UpsertParams{
			Kind:       enums.EntityEvent,
			ID:         id,
			PropertyID: propertyID,
			Payload:    payload,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := st.EnqueueAction(r.Context(), enums.EntityEvent, id, enums.ActionCreate, payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		style := disposition.ResolveStyle(dispo, req.Status)
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":    id,
			"style": style,
		})
	}
}

// KnocksList returns the knock history for one property, parsed for the
// resolution engine. Rows that fail to parse are skipped.
func KnocksList(st store.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		propertyID := chi.URLParam(r, "propertyID")

		rows, err := st.EventsForProperty(r.Context(), propertyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		knocks := make([]disposition.KnockEvent, 0, len(rows))
		for _, row := range rows {
			e, err := disposition.ParseEvent(row)
			if err != nil {
				continue
			}
			knocks = append(knocks, e)
		}
		responses.WriteSuccess(w, knocks)
	}
}
