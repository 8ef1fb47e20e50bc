package models

import (
	"encoding/json"
	"time"

	"github.com/knockerapp/fieldsync/pkg/enums"
)

// PendingAction is an outbox row: one not-yet-confirmed mutation awaiting
// replay against the remote API. The autoincrement id breaks created_at
// ties so replay order matches enqueue order.
type PendingAction struct {
	ID          uint             `gorm:"column:id;primaryKey;autoIncrement"`
	EntityType  enums.EntityKind `gorm:"column:entity_type;not null"`
	EntityID    string           `gorm:"column:entity_id;not null;index:idx_sync_queue_entity"`
	Action      enums.SyncAction `gorm:"column:action;not null"`
	Payload     json.RawMessage  `gorm:"column:payload;not null"`
	Attempts    int              `gorm:"column:attempts;not null;default:0"`
	LastAttempt *time.Time       `gorm:"column:last_attempt"`
	LastError   *string          `gorm:"column:last_error"`
	Status      enums.SyncStatus `gorm:"column:status;not null;default:pending"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
}

func (PendingAction) TableName() string { return "sync_queue" }
