package models

import (
	"encoding/json"
	"time"

	"github.com/knockerapp/fieldsync/pkg/enums"
)

// Lead is a cached sales lead tied to a property.
type Lead struct {
	ID         string           `gorm:"column:id;primaryKey"`
	PropertyID string           `gorm:"column:property_id;index:idx_leads_property"`
	Payload    json.RawMessage  `gorm:"column:payload;not null"`
	Status     enums.SyncStatus `gorm:"column:status;not null;default:pending"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
	SyncedAt   *time.Time       `gorm:"column:synced_at"`
}

func (Lead) TableName() string { return "leads" }
