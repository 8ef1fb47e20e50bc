package models

import (
	"encoding/json"
	"time"

	"github.com/knockerapp/fieldsync/pkg/enums"
)

// SyncDeadLetter captures outbox actions that exhausted their retries,
// kept for auditing and manual remediation.
type SyncDeadLetter struct {
	ID           uint             `gorm:"column:id;primaryKey;autoIncrement"`
	ActionID     uint             `gorm:"column:action_id;not null"`
	EntityType   enums.EntityKind `gorm:"column:entity_type;not null"`
	EntityID     string           `gorm:"column:entity_id;not null"`
	Action       enums.SyncAction `gorm:"column:action;not null"`
	Payload      json.RawMessage  `gorm:"column:payload;not null"`
	ErrorMessage *string          `gorm:"column:error_message"`
	Attempts     int              `gorm:"column:attempts;not null;default:0"`
	FailedAt     time.Time        `gorm:"column:failed_at;autoCreateTime"`
}

func (SyncDeadLetter) TableName() string { return "sync_dead_letters" }
