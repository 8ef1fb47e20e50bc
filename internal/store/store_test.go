package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/knockerapp/fieldsync/pkg/db/models"
	"github.com/knockerapp/fieldsync/pkg/enums"
	pkgerrors "github.com/knockerapp/fieldsync/pkg/errors"
	"github.com/knockerapp/fieldsync/pkg/types"
)

func setupStoreTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(models.All()...))
	return conn
}

func propertyPayload(t *testing.T, id string, lat, lng float64) json.RawMessage {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"Id":   id,
		"Name": "123 Repo Way",
		"location": map[string]float64{
			"latitude":  lat,
			"longitude": lng,
		},
	})
	require.NoError(t, err)
	return payload
}

func TestUpsertEntityIsIdempotent(t *testing.T) {
	db := setupStoreTestDB(t)
	s := New(db)
	ctx := context.Background()

	params := UpsertParams{
		Kind:    enums.EntityProperty,
		ID:      "prop_1",
		Payload: propertyPayload(t, "prop_1", 36.15, -95.99),
		Coords:  &types.LatLng{Lat: 36.15, Lng: -95.99},
	}
	require.NoError(t, s.UpsertEntity(ctx, params))
	require.NoError(t, s.UpsertEntity(ctx, params))

	var count int64
	require.NoError(t, db.Model(&models.Property{}).Where("id = ?", "prop_1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var row models.Property
	require.NoError(t, db.First(&row, "id = ?", "prop_1").Error)
	assert.Equal(t, enums.SyncPending, row.Status)
	assert.InDelta(t, 36.15, row.Latitude, 1e-9)
}

func TestUpsertEntityReplacesPayload(t *testing.T) {
	db := setupStoreTestDB(t)
	s := New(db)
	ctx := context.Background()

	first := propertyPayload(t, "prop_1", 36.15, -95.99)
	second := propertyPayload(t, "prop_1", 36.16, -95.98)

	require.NoError(t, s.UpsertEntity(ctx, UpsertParams{
		Kind: enums.EntityProperty, ID: "prop_1", Payload: first,
		Coords: &types.LatLng{Lat: 36.15, Lng: -95.99},
	}))
	require.NoError(t, s.UpsertEntity(ctx, UpsertParams{
		Kind: enums.EntityProperty, ID: "prop_1", Payload: second,
		Coords: &types.LatLng{Lat: 36.16, Lng: -95.98},
	}))

	var row models.Property
	require.NoError(t, db.First(&row, "id = ?", "prop_1").Error)
	assert.JSONEq(t, string(second), string(row.Payload))
	assert.InDelta(t, 36.16, row.Latitude, 1e-9)
}

func TestUpsertEntityCoordlessUpdateKeepsCoordinates(t *testing.T) {
	db := setupStoreTestDB(t)
	s := New(db)
	ctx := context.Background()

	require.NoError(t, s.UpsertEntity(ctx, UpsertParams{
		Kind:    enums.EntityProperty,
		ID:      "prop_1",
		Payload: propertyPayload(t, "prop_1", 36.15, -95.99),
		Coords:  &types.LatLng{Lat: 36.15, Lng: -95.99},
	}))
	require.NoError(t, s.UpsertEntity(ctx, UpsertParams{
		Kind:    enums.EntityProperty,
		ID:      "prop_1",
		Payload: json.RawMessage(`{"Name":"125 Repo Way"}`),
	}))

	var row models.Property
	require.NoError(t, db.First(&row, "id = ?", "prop_1").Error)
	assert.JSONEq(t, `{"Name":"125 Repo Way"}`, string(row.Payload))
	assert.InDelta(t, 36.15, row.Latitude, 1e-9)
	assert.InDelta(t, -95.99, row.Longitude, 1e-9)
}

func TestUpsertEntityKeepsCreatedAt(t *testing.T) {
	db := setupStoreTestDB(t)
	s := New(db)
	ctx := context.Background()

	require.NoError(t, s.UpsertEntity(ctx, UpsertParams{
		Kind:       enums.EntityEvent,
		ID:         "evt_1",
		PropertyID: "prop_1",
		Payload:    json.RawMessage(`{"Id":"evt_1"}`),
	}))

	var before models.Event
	require.NoError(t, db.First(&before, "id = ?", "evt_1").Error)

	backdated := before.CreatedAt.Add(-time.Hour)
	require.NoError(t, db.Model(&models.Event{}).Where("id = ?", "evt_1").Update("created_at", backdated).Error)

	require.NoError(t, s.UpsertEntity(ctx, UpsertParams{
		Kind:       enums.EntityEvent,
		ID:         "evt_1",
		PropertyID: "prop_1",
		Payload:    json.RawMessage(`{"Id":"evt_1","Notes__c":"second pass"}`),
	}))

	var after models.Event
	require.NoError(t, db.First(&after, "id = ?", "evt_1").Error)
	assert.JSONEq(t, `{"Id":"evt_1","Notes__c":"second pass"}`, string(after.Payload))
	assert.WithinDuration(t, backdated, after.CreatedAt, time.Second)
}

func TestUpsertEntityMarkSynced(t *testing.T) {
	db := setupStoreTestDB(t)
	s := New(db)

	require.NoError(t, s.UpsertEntity(context.Background(), UpsertParams{
		Kind:       enums.EntityEvent,
		ID:         "evt_1",
		PropertyID: "prop_1",
		Payload:    json.RawMessage(`{"Id":"evt_1"}`),
		MarkSynced: true,
	}))

	var row models.Event
	require.NoError(t, db.First(&row, "id = ?", "evt_1").Error)
	assert.Equal(t, enums.SyncSynced, row.Status)
	require.NotNil(t, row.SyncedAt)
}

func TestUpsertEntityValidation(t *testing.T) {
	s := New(setupStoreTestDB(t))
	ctx := context.Background()

	err := s.UpsertEntity(ctx, UpsertParams{Kind: "vehicle", ID: "x", Payload: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	err = s.UpsertEntity(ctx, UpsertParams{Kind: enums.EntityLead, ID: "", Payload: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestQueryPropertiesInBoundsIsInclusive(t *testing.T) {
	db := setupStoreTestDB(t)
	s := New(db)
	ctx := context.Background()

	seed := []struct {
		id       string
		lat, lng float64
	}{
		{"inside", 36.2, -95.8},
		{"on_edge", 36.0, -96.0},
		{"north_of_box", 36.6, -95.8},
		{"west_of_box", 36.2, -96.4},
	}
	for _, p := range seed {
		require.NoError(t, s.UpsertEntity(ctx, UpsertParams{
			Kind:    enums.EntityProperty,
			ID:      p.id,
			Payload: propertyPayload(t, p.id, p.lat, p.lng),
			Coords:  &types.LatLng{Lat: p.lat, Lng: p.lng},
		}))
	}

	rows, err := s.QueryPropertiesInBounds(ctx, types.Bounds{
		MinLat: 36.0, MaxLat: 36.5, MinLng: -96.0, MaxLng: -95.5,
	})
	require.NoError(t, err)

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	assert.ElementsMatch(t, []string{"inside", "on_edge"}, ids)
}

func TestQueryPropertiesInBoundsRejectsMalformedBox(t *testing.T) {
	s := New(setupStoreTestDB(t))
	_, err := s.QueryPropertiesInBounds(context.Background(), types.Bounds{MinLat: 2, MaxLat: 1})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestGetEntityNotFound(t *testing.T) {
	s := New(setupStoreTestDB(t))
	_, err := s.GetEntity(context.Background(), enums.EntityLead, "missing")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestReconcileIDRewritesEntityOutboxAndChildren(t *testing.T) {
	db := setupStoreTestDB(t)
	s := New(db)
	ctx := context.Background()

	require.NoError(t, s.UpsertEntity(ctx, UpsertParams{
		Kind:    enums.EntityProperty,
		ID:      "local_123",
		Payload: propertyPayload(t, "local_123", 36.1, -95.9),
		Coords:  &types.LatLng{Lat: 36.1, Lng: -95.9},
	}))
	require.NoError(t, s.UpsertEntity(ctx, UpsertParams{
		Kind:       enums.EntityEvent,
		ID:         "local_evt",
		PropertyID: "local_123",
		Payload:    json.RawMessage(`{"Id":"local_evt"}`),
	}))
	require.NoError(t, s.EnqueueAction(ctx, enums.EntityProperty, "local_123", enums.ActionCreate, json.RawMessage(`{}`)))
	require.NoError(t, s.EnqueueAction(ctx, enums.EntityProperty, "local_123", enums.ActionUpdate, json.RawMessage(`{}`)))

	require.NoError(t, s.ReconcileID(ctx, enums.EntityProperty, "local_123", "server_456"))

	var orphaned int64
	require.NoError(t, db.Model(&models.Property{}).Where("id = ?", "local_123").Count(&orphaned).Error)
	assert.Zero(t, orphaned)

	var entity models.Property
	require.NoError(t, db.First(&entity, "id = ?", "server_456").Error)
	assert.Equal(t, enums.SyncSynced, entity.Status)
	require.NotNil(t, entity.SyncedAt)
	assert.WithinDuration(t, time.Now().UTC(), *entity.SyncedAt, time.Minute)

	var staleActions int64
	require.NoError(t, db.Model(&models.PendingAction{}).Where("entity_id = ?", "local_123").Count(&staleActions).Error)
	assert.Zero(t, staleActions)

	var rewritten int64
	require.NoError(t, db.Model(&models.PendingAction{}).Where("entity_id = ?", "server_456").Count(&rewritten).Error)
	assert.Equal(t, int64(2), rewritten)

	var child models.Event
	require.NoError(t, db.First(&child, "id = ?", "local_evt").Error)
	assert.Equal(t, "server_456", child.PropertyID)
}

func TestReconcileIDUnknownLocalID(t *testing.T) {
	s := New(setupStoreTestDB(t))
	err := s.ReconcileID(context.Background(), enums.EntityLead, "local_missing", "server_1")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestValueSetRoundtrip(t *testing.T) {
	s := New(setupStoreTestDB(t))
	ctx := context.Background()

	_, ok, err := s.GetValueSet(ctx, "Storm_Inspection_Knock_Status")
	require.NoError(t, err)
	assert.False(t, ok)

	data := json.RawMessage(`[{"label":"Lead","value":"Lead"}]`)
	require.NoError(t, s.PutValueSet(ctx, "Storm_Inspection_Knock_Status", data))

	got, ok, err := s.GetValueSet(ctx, "Storm_Inspection_Knock_Status")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, string(data), string(got))

	updated := json.RawMessage(`[{"label":"Not Home","value":"Not Home"}]`)
	require.NoError(t, s.PutValueSet(ctx, "Storm_Inspection_Knock_Status", updated))
	got, ok, err = s.GetValueSet(ctx, "Storm_Inspection_Knock_Status")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, string(updated), string(got))
}
