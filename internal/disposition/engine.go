// Package disposition derives the visual state of property markers from
// their knock event history. All functions here are pure: they read the
// events they are handed and never touch storage or the network.
package disposition

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/knockerapp/fieldsync/pkg/db/models"
	"github.com/knockerapp/fieldsync/pkg/enums"
	pkgerrors "github.com/knockerapp/fieldsync/pkg/errors"
	"github.com/knockerapp/fieldsync/pkg/types"
)

// KnockEvent is the slice of an event record the resolution engine cares
// about. Events carry more fields on the wire; everything else passes
// through untouched in the raw payload.
type KnockEvent struct {
	ID          string                `json:"id"`
	PropertyID  string                `json:"propertyId"`
	Disposition enums.DispositionType `json:"dispositionType"`
	Status      string                `json:"status"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// eventPayload mirrors the CRM field names events are stored under.
type eventPayload struct {
	DispositionType string    `json:"Disposition_Type__c"`
	Status          string    `json:"Disposition_Status__c"`
	CreatedDate     time.Time `json:"CreatedDate"`
}

// ParseEvent extracts the resolution-relevant fields from a stored event
// row. Events whose category is unknown are rejected rather than guessed
// at; callers skip them.
func ParseEvent(row models.Event) (KnockEvent, error) {
	var p eventPayload
	if err := json.Unmarshal(row.Payload, &p); err != nil {
		return KnockEvent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "event payload is not valid JSON")
	}
	disposition, err := enums.ParseDispositionType(p.DispositionType)
	if err != nil {
		return KnockEvent{}, err
	}
	createdAt := p.CreatedDate
	if createdAt.IsZero() {
		createdAt = row.CreatedAt
	}
	return KnockEvent{
		ID:          row.ID,
		PropertyID:  row.PropertyID,
		Disposition: disposition,
		Status:      p.Status,
		CreatedAt:   createdAt,
	}, nil
}

// MostRecentEvent returns the newest event under the given category, or
// nil when the property has never been knocked under it. Comparison is
// strictly newer-than, so among events sharing a timestamp the earliest
// one seen wins.
func MostRecentEvent(events []KnockEvent, disposition enums.DispositionType) *KnockEvent {
	var latest *KnockEvent
	for i := range events {
		e := &events[i]
		if e.Disposition != disposition {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	return latest
}

// ResolveStatus reduces an event history to the property's current status
// under the given category.
func ResolveStatus(events []KnockEvent, disposition enums.DispositionType) string {
	latest := MostRecentEvent(events, disposition)
	if latest == nil {
		return StatusNotKnocked
	}
	return latest.Status
}

// Marker is a property as rendered on the canvassing map: its location,
// the knock history known locally, and the style resolved for the
// currently selected category.
type Marker struct {
	PropertyID  string                `json:"propertyId"`
	Location    types.LatLng          `json:"location"`
	Disposition enums.DispositionType `json:"dispositionType"`
	Status      string                `json:"status"`
	Style       Style                 `json:"style"`
	Events      []KnockEvent          `json:"-"`
}

// NewMarker builds a marker for one property under the selected category.
// Events from other categories are carried but do not influence the
// resolved style.
func NewMarker(propertyID string, loc types.LatLng, disposition enums.DispositionType, events []KnockEvent) Marker {
	m := Marker{
		PropertyID:  propertyID,
		Location:    loc,
		Disposition: disposition,
		Events:      events,
	}
	m.resolve()
	return m
}

// AppendEvent records a new knock on the marker and re-resolves its
// style, so an optimistic local write is reflected immediately.
func (m *Marker) AppendEvent(e KnockEvent) {
	m.Events = append(m.Events, e)
	m.resolve()
}

func (m *Marker) resolve() {
	m.Status = ResolveStatus(m.Events, m.Disposition)
	m.Style = ResolveStyle(m.Disposition, m.Status)
}

// MarkersFromRows assembles markers from stored property and event rows.
// Events that cannot be parsed, or that belong to no known property, are
// skipped; a single bad row must not blank the map.
func MarkersFromRows(properties []models.Property, events []models.Event, disposition enums.DispositionType) []Marker {
	byProperty := make(map[string][]KnockEvent, len(properties))
	for _, row := range events {
		e, err := ParseEvent(row)
		if err != nil {
			continue
		}
		byProperty[row.PropertyID] = append(byProperty[row.PropertyID], e)
	}

	markers := make([]Marker, 0, len(properties))
	for _, p := range properties {
		loc := types.LatLng{Lat: p.Latitude, Lng: p.Longitude}
		markers = append(markers, NewMarker(p.ID, loc, disposition, byProperty[p.ID]))
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].PropertyID < markers[j].PropertyID })
	return markers
}
