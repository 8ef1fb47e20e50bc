package models

import (
	"encoding/json"
	"time"

	"github.com/knockerapp/fieldsync/pkg/enums"
)

// Property is the locally cached copy of a property record. Payload holds
// the full serialized entity as last known; the coordinate columns mirror
// the coordinates embedded in the payload so bounding-box queries stay a
// plain range scan.
type Property struct {
	ID        string           `gorm:"column:id;primaryKey"`
	Payload   json.RawMessage  `gorm:"column:payload;not null"`
	Latitude  float64          `gorm:"column:latitude;index:idx_properties_location"`
	Longitude float64          `gorm:"column:longitude;index:idx_properties_location"`
	Status    enums.SyncStatus `gorm:"column:status;not null;default:pending"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	SyncedAt  *time.Time       `gorm:"column:synced_at"`
}

func (Property) TableName() string { return "properties" }
