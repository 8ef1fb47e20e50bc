package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/knockerapp/fieldsync/pkg/db/models"
	"github.com/knockerapp/fieldsync/pkg/enums"
	pkgerrors "github.com/knockerapp/fieldsync/pkg/errors"
)

// EnqueueAction appends one mutation to the outbox. Existing rows are never
// touched; multiple actions for the same entity queue up in order.
func (s *storeImpl) EnqueueAction(ctx context.Context, kind enums.EntityKind, entityID string, action enums.SyncAction, payload json.RawMessage) error {
	if !kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid entity kind %q", kind))
	}
	if !action.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid sync action %q", action))
	}
	if entityID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "entity id required")
	}

	row := models.PendingAction{
		EntityType: kind,
		EntityID:   entityID,
		Action:     action,
		Payload:    payload,
		Status:     enums.SyncPending,
	}
	if err := s.conn(ctx).Create(&row).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "enqueueing action")
	}
	return nil
}

// ListPendingActions returns the whole outbox in FIFO order. The id column
// breaks created_at ties so replay order always matches enqueue order.
func (s *storeImpl) ListPendingActions(ctx context.Context) ([]models.PendingAction, error) {
	var rows []models.PendingAction
	err := s.conn(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "listing pending actions")
	}
	return rows, nil
}

func (s *storeImpl) CountPendingActions(ctx context.Context) (int64, error) {
	var count int64
	if err := s.conn(ctx).Model(&models.PendingAction{}).Count(&count).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "counting pending actions")
	}
	return count, nil
}

// RemovePendingAction deletes one outbox row, called only after the remote
// side confirmed the mutation.
func (s *storeImpl) RemovePendingAction(ctx context.Context, id uint) error {
	if err := s.conn(ctx).Delete(&models.PendingAction{}, "id = ?", id).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "removing pending action")
	}
	return nil
}

// MarkActionAttempt records a failed replay attempt. The row stays queued;
// the next drain cycle decides whether its backoff window has passed.
func (s *storeImpl) MarkActionAttempt(ctx context.Context, id uint, cause error) error {
	updates := map[string]any{
		"attempts":     gorm.Expr("attempts + 1"),
		"last_attempt": time.Now().UTC(),
	}
	if cause != nil {
		msg := cause.Error()
		updates["last_error"] = msg
	}
	err := s.conn(ctx).Model(&models.PendingAction{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "marking action attempt")
	}
	return nil
}

// DeadLetterAction moves an exhausted action out of the queue and into the
// dead-letter table in one transaction.
func (s *storeImpl) DeadLetterAction(ctx context.Context, action models.PendingAction, cause error) error {
	entry := models.SyncDeadLetter{
		ActionID:   action.ID,
		EntityType: action.EntityType,
		EntityID:   action.EntityID,
		Action:     action.Action,
		Payload:    action.Payload,
		Attempts:   action.Attempts,
	}
	if cause != nil {
		msg := cause.Error()
		entry.ErrorMessage = &msg
	}

	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Delete(&models.PendingAction{}, "id = ?", action.ID).Error
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "dead-lettering action")
	}
	return nil
}
