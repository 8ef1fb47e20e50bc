package store

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/knockerapp/fieldsync/pkg/db/models"
	pkgerrors "github.com/knockerapp/fieldsync/pkg/errors"
)

// GetValueSet reads one cached reference picklist. The second return value
// reports whether the entry exists.
func (s *storeImpl) GetValueSet(ctx context.Context, name string) (json.RawMessage, bool, error) {
	if name == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "value set name required")
	}
	var row models.ValueSet
	err := s.conn(ctx).First(&row, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reading value set")
	}
	return row.Data, true, nil
}

// PutValueSet upserts one cached reference picklist.
func (s *storeImpl) PutValueSet(ctx context.Context, name string, data json.RawMessage) error {
	if name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "value set name required")
	}
	row := models.ValueSet{Name: name, Data: data}
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(&row).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "writing value set")
	}
	return nil
}
