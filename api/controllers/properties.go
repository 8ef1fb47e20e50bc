package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/knockerapp/fieldsync/api/responses"
	"github.com/knockerapp/fieldsync/api/validators"
	"github.com/knockerapp/fieldsync/internal/disposition"
	"github.com/knockerapp/fieldsync/internal/store"
	"github.com/knockerapp/fieldsync/pkg/db/models"
	"github.com/knockerapp/fieldsync/pkg/enums"
	pkgerrors "github.com/knockerapp/fieldsync/pkg/errors"
	"github.com/knockerapp/fieldsync/pkg/logger"
	"github.com/knockerapp/fieldsync/pkg/types"
)

// localID mints an identifier for an entity created offline. The prefix
// makes provisional rows easy to spot until reconciliation renames them.
func localID() string {
	return "local_" + uuid.NewString()
}

type propertyCreateRequest struct {
	Latitude  float64         `json:"latitude" validate:"required,latitude"`
	Longitude float64         `json:"longitude" validate:"required,longitude"`
	Payload   json.RawMessage `json:"payload" validate:"required"`
}

// PropertyCreate caches a new property locally and queues its upload. The
// write succeeds with or without connectivity.
func PropertyCreate(st store.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req propertyCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		id := localID()
		coords := &types.LatLng{Lat: req.Latitude, Lng: req.Longitude}
		if !coords.Valid() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range"))
			return
		}

		err := st.UpsertEntity(r.Context(), store.UpsertParams{
			Kind:    enums.EntityProperty,
			ID:      id,
			Payload: req.Payload,
			Coords:  coords,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := st.EnqueueAction(r.Context(), enums.EntityProperty, id, enums.ActionCreate, req.Payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"id": id})
	}
}

type propertyUpdateRequest struct {
	Latitude  *float64        `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64        `json:"longitude" validate:"omitempty,longitude"`
	Payload   json.RawMessage `json:"payload" validate:"required"`
}

// PropertyUpdate rewrites a cached property's payload and queues the
// remote update. Coordinates are only touched when both are supplied.
func PropertyUpdate(st store.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "propertyID")

		var req propertyUpdateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := st.GetEntity(r.Context(), enums.EntityProperty, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var coords *types.LatLng
		if req.Latitude != nil && req.Longitude != nil {
			coords = &types.LatLng{Lat: *req.Latitude, Lng: *req.Longitude}
			if !coords.Valid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "coordinates out of range"))
				return
			}
		}

		err := st.UpsertEntity(r.Context(), store.UpsertParams{
			Kind:    enums.EntityProperty,
			ID:      id,
			Payload: req.Payload,
			Coords:  coords,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := st.EnqueueAction(r.Context(), enums.EntityProperty, id, enums.ActionUpdate, req.Payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"id": id})
	}
}

// PropertiesInView returns map markers for the requested bounding box,
// styled for the selected disposition category. Pass format=geojson for a
// FeatureCollection instead of the marker list.
func PropertiesInView(st store.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bounds, err := validators.ParseBounds(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dispo := enums.DispositionInsuranceRestoration
		if raw := r.URL.Query().Get("dispositionType"); raw != "" {
			dispo, err = enums.ParseDispositionType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid disposition type"))
				return
			}
		}

		properties, err := st.QueryPropertiesInBounds(r.Context(), bounds)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var events []models.Event
		for _, p := range properties {
			rows, err := st.EventsForProperty(r.Context(), p.ID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			events = append(events, rows...)
		}

		markers := disposition.MarkersFromRows(properties, events, dispo)
		if r.URL.Query().Get("format") == "geojson" {
			responses.WriteSuccess(w, disposition.ToGeoJSON(markers))
			return
		}
		responses.WriteSuccess(w, markers)
	}
}

// PropertyGet returns one cached property's raw payload.
func PropertyGet(st store.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "propertyID")
		payload, err := st.GetEntity(r.Context(), enums.EntityProperty, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, json.RawMessage(payload))
	}
}

// PropertyDelete removes the cached property and queues the remote delete.
func PropertyDelete(st store.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "propertyID")
		if err := st.DeleteEntity(r.Context(), enums.EntityProperty, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := st.EnqueueAction(r.Context(), enums.EntityProperty, id, enums.ActionDelete, json.RawMessage(`{}`)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": id})
	}
}
