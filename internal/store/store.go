package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/knockerapp/fieldsync/pkg/db/models"
	"github.com/knockerapp/fieldsync/pkg/enums"
	pkgerrors "github.com/knockerapp/fieldsync/pkg/errors"
	"github.com/knockerapp/fieldsync/pkg/types"
)

// Store is the single source of truth for cached entities, the pending-action
// outbox, and the value-set cache, online or offline. Storage failures are
// never retried here; they propagate to the caller.
type Store interface {
	UpsertEntity(ctx context.Context, params UpsertParams) error
	GetEntity(ctx context.Context, kind enums.EntityKind, id string) (json.RawMessage, error)
	DeleteEntity(ctx context.Context, kind enums.EntityKind, id string) error
	QueryPropertiesInBounds(ctx context.Context, bounds types.Bounds) ([]models.Property, error)
	EventsForProperty(ctx context.Context, propertyID string) ([]models.Event, error)
	LeadsForProperty(ctx context.Context, propertyID string) ([]models.Lead, error)
	ReconcileID(ctx context.Context, kind enums.EntityKind, localID, serverID string) error

	EnqueueAction(ctx context.Context, kind enums.EntityKind, entityID string, action enums.SyncAction, payload json.RawMessage) error
	ListPendingActions(ctx context.Context) ([]models.PendingAction, error)
	RemovePendingAction(ctx context.Context, id uint) error
	MarkActionAttempt(ctx context.Context, id uint, cause error) error
	DeadLetterAction(ctx context.Context, action models.PendingAction, cause error) error
	CountPendingActions(ctx context.Context) (int64, error)

	GetValueSet(ctx context.Context, name string) (json.RawMessage, bool, error)
	PutValueSet(ctx context.Context, name string, data json.RawMessage) error
}

// UpsertParams describes one insert-or-replace of a cached entity.
type UpsertParams struct {
	Kind       enums.EntityKind
	ID         string
	PropertyID string
	Payload    json.RawMessage
	Coords     *types.LatLng
	// MarkSynced records the row as server-confirmed instead of pending,
	// used when caching entities fetched from the remote API.
	MarkSynced bool
}

type storeImpl struct {
	db *gorm.DB
}

// New returns a Store backed by the provided GORM connection.
func New(db *gorm.DB) Store {
	return &storeImpl{db: db}
}

func (s *storeImpl) conn(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return s.db
	}
	return s.db.WithContext(ctx)
}

func (s *storeImpl) UpsertEntity(ctx context.Context, params UpsertParams) error {
	if !params.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entity kind %q", params.Kind))
	}
	if params.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}
	if len(params.Payload) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "entity payload required")
	}

	status := enums.SyncPending
	var syncedAt *time.Time
	if params.MarkSynced {
		status = enums.SyncSynced
		now := time.Now().UTC()
		syncedAt = &now
	}

	// The conflict update set is explicit: a coord-less re-upsert must not
	// zero a property's coordinate columns, and re-upserting an event or
	// lead must not rewrite its created_at.
	updated := []string{"payload", "status", "synced_at", "updated_at"}

	var err error
	switch params.Kind {
	case enums.EntityProperty:
		row := models.Property{
			ID:       params.ID,
			Payload:  params.Payload,
			Status:   status,
			SyncedAt: syncedAt,
		}
		if params.Coords != nil {
			row.Latitude = params.Coords.Lat
			row.Longitude = params.Coords.Lng
			updated = append(updated, "latitude", "longitude")
		}
		err = s.conn(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(updated),
		}).Create(&row).Error
	case enums.EntityEvent:
		row := models.Event{
			ID:         params.ID,
			PropertyID: params.PropertyID,
			Payload:    params.Payload,
			Status:     status,
			SyncedAt:   syncedAt,
		}
		if params.PropertyID != "" {
			updated = append(updated, "property_id")
		}
		err = s.conn(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(updated),
		}).Create(&row).Error
	case enums.EntityLead:
		row := models.Lead{
			ID:         params.ID,
			PropertyID: params.PropertyID,
			Payload:    params.Payload,
			Status:     status,
			SyncedAt:   syncedAt,
		}
		if params.PropertyID != "" {
			updated = append(updated, "property_id")
		}
		err = s.conn(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(updated),
		}).Create(&row).Error
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "upserting entity")
	}
	return nil
}

func (s *storeImpl) GetEntity(ctx context.Context, kind enums.EntityKind, id string) (json.RawMessage, error) {
	var payload json.RawMessage
	var err error
	switch kind {
	case enums.EntityProperty:
		var row models.Property
		err = s.conn(ctx).First(&row, "id = ?", id).Error
		payload = row.Payload
	case enums.EntityEvent:
		var row models.Event
		err = s.conn(ctx).First(&row, "id = ?", id).Error
		payload = row.Payload
	case enums.EntityLead:
		var row models.Lead
		err = s.conn(ctx).First(&row, "id = ?", id).Error
		payload = row.Payload
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entity kind %q", kind))
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s %s not cached", kind, id))
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reading entity")
	}
	return payload, nil
}

func (s *storeImpl) DeleteEntity(ctx context.Context, kind enums.EntityKind, id string) error {
	var err error
	switch kind {
	case enums.EntityProperty:
		err = s.conn(ctx).Delete(&models.Property{}, "id = ?", id).Error
	case enums.EntityEvent:
		err = s.conn(ctx).Delete(&models.Event{}, "id = ?", id).Error
	case enums.EntityLead:
		err = s.conn(ctx).Delete(&models.Lead{}, "id = ?", id).Error
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entity kind %q", kind))
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "deleting entity")
	}
	return nil
}

// QueryPropertiesInBounds returns cached properties inside the inclusive
// box. A plain range scan over the coordinate index is enough at field-rep
// data scale.
func (s *storeImpl) QueryPropertiesInBounds(ctx context.Context, bounds types.Bounds) ([]models.Property, error) {
	if !bounds.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "malformed bounding box")
	}
	var rows []models.Property
	err := s.conn(ctx).
		Where("latitude BETWEEN ? AND ?", bounds.MinLat, bounds.MaxLat).
		Where("longitude BETWEEN ? AND ?", bounds.MinLng, bounds.MaxLng).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "querying properties in bounds")
	}
	return rows, nil
}

func (s *storeImpl) EventsForProperty(ctx context.Context, propertyID string) ([]models.Event, error) {
	var rows []models.Event
	err := s.conn(ctx).
		Where("property_id = ?", propertyID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing events for property")
	}
	return rows, nil
}

func (s *storeImpl) LeadsForProperty(ctx context.Context, propertyID string) ([]models.Lead, error) {
	var rows []models.Lead
	err := s.conn(ctx).
		Where("property_id = ?", propertyID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing leads for property")
	}
	return rows, nil
}

// ReconcileID atomically replaces a locally-minted id with the server-issued
// one: the entity row is re-keyed and marked synced, outbox rows still
// referencing the local id are rewritten, and for properties the child
// events and leads are re-pointed. A crash mid-reconciliation rolls the
// whole rewrite back.
func (s *storeImpl) ReconcileID(ctx context.Context, kind enums.EntityKind, localID, serverID string) error {
	if !kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entity kind %q", kind))
	}
	if localID == "" || serverID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "both local and server ids are required")
	}

	now := time.Now().UTC()
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		var table any
		switch kind {
		case enums.EntityProperty:
			table = &models.Property{}
		case enums.EntityEvent:
			table = &models.Event{}
		case enums.EntityLead:
			table = &models.Lead{}
		}

		result := tx.Model(table).
			Where("id = ?", localID).
			Updates(map[string]any{
				"id":        serverID,
				"status":    enums.SyncSynced,
				"synced_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if kind == enums.EntityProperty {
			if err := tx.Model(&models.Event{}).
				Where("property_id = ?", localID).
				Update("property_id", serverID).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Lead{}).
				Where("property_id = ?", localID).
				Update("property_id", serverID).Error; err != nil {
				return err
			}
		}

		return tx.Model(&models.PendingAction{}).
			Where("entity_type = ? AND entity_id = ?", kind, localID).
			Update("entity_id", serverID).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s %s not cached", kind, localID))
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reconciling entity id")
	}
	return nil
}
