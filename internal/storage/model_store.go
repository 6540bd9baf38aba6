package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"rrc-inference/internal/models"
	"rrc-inference/internal/rrc"
)

// ErrNoModel у устройства нет сохраненной модели
var ErrNoModel = errors.New("no model for device")

// ModelStore сегменты построенных моделей
type ModelStore struct {
	db *gorm.DB
}

func NewModelStore(db *gorm.DB) *ModelStore {
	return &ModelStore{db: db}
}

// ReplaceModel в одной транзакции удаляет старую модель и пишет новую,
// читатель никогда не видит модель удаленной наполовину
func (s *ModelStore) ReplaceModel(ctx context.Context, deviceID, networkType string, rows []models.ModelRow) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteModel(tx, deviceID, networkType); err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to replace model: %w", err)
	}
	return nil
}

// DeleteModel удаляет модель (устройство, сеть)
func (s *ModelStore) DeleteModel(ctx context.Context, deviceID, networkType string) error {
	if err := deleteModel(s.db.WithContext(ctx), deviceID, networkType); err != nil {
		return fmt.Errorf("failed to delete model: %w", err)
	}
	return nil
}

func deleteModel(tx *gorm.DB, deviceID, networkType string) error {
	return tx.Where("device_id = ? AND network_type = ?", deviceID, networkType).
		Delete(&models.ModelRow{}).Error
}

// Rows все сегменты устройства
func (s *ModelStore) Rows(ctx context.Context, deviceID string) ([]models.ModelRow, error) {
	return s.find(ctx, s.db.Where("device_id = ?", deviceID))
}

// RowsForNetwork сегменты модели одного типа сети
func (s *ModelStore) RowsForNetwork(ctx context.Context, deviceID, networkType string) ([]models.ModelRow, error) {
	return s.find(ctx, s.db.Where("device_id = ? AND network_type = ?", deviceID, networkType))
}

func (s *ModelStore) find(ctx context.Context, q *gorm.DB) ([]models.ModelRow, error) {
	var rows []models.ModelRow
	err := q.WithContext(ctx).
		Order("network_type").
		Order("small DESC").
		Order("segment_begin").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query model: %w", err)
	}
	return rows, nil
}

// MeasurementPoints рекомендованные интервалы проб по модели больших пакетов
func (s *ModelStore) MeasurementPoints(ctx context.Context, deviceID string) ([]int, error) {
	var rows []models.ModelRow
	err := s.db.WithContext(ctx).
		Where("device_id = ? AND small = ?", deviceID, false).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query model: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoModel
	}
	return rrc.MeasurementPoints(rows), nil
}
