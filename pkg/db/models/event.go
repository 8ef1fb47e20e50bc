package models

import (
	"encoding/json"
	"time"

	"github.com/knockerapp/fieldsync/pkg/enums"
)

// Event is a cached door-knock outcome. The id is locally minted until the
// server confirms the create and the row is reconciled.
type Event struct {
	ID         string           `gorm:"column:id;primaryKey"`
	PropertyID string           `gorm:"column:property_id;index:idx_events_property"`
	Payload    json.RawMessage  `gorm:"column:payload;not null"`
	Status     enums.SyncStatus `gorm:"column:status;not null;default:pending"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	SyncedAt   *time.Time       `gorm:"column:synced_at"`
}

func (Event) TableName() string { return "events" }
