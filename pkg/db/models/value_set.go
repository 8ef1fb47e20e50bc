package models

import (
	"encoding/json"
	"time"
)

// ValueSet caches one named reference picklist. Entries never expire on
// their own; an explicit refresh is the only invalidation path, so
// FetchedAt is diagnostic only.
type ValueSet struct {
	Name      string          `gorm:"column:name;primaryKey"`
	Data      json.RawMessage `gorm:"column:data;not null"`
	FetchedAt time.Time       `gorm:"column:fetched_at;autoUpdateTime"`
}

func (ValueSet) TableName() string { return "value_sets" }
