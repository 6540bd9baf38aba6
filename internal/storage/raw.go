package storage

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"rrc-inference/internal/models"
)

// RawStore сырые RTT-измерения
type RawStore struct {
	db *gorm.DB
}

func NewRawStore(db *gorm.DB) *RawStore {
	return &RawStore{db: db}
}

// Records все записи устройства для типа сети в порядке (test_id, time_delay)
func (s *RawStore) Records(ctx context.Context, deviceID, networkType string) ([]models.RawRecord, error) {
	var records []models.RawRecord
	err := s.db.WithContext(ctx).
		Where("device_id = ? AND network_type = ?", deviceID, networkType).
		Order("test_id").
		Order("time_delay").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query raw records: %w", err)
	}
	return records, nil
}

// NetworkTypes типы сетей, встречавшиеся у устройства
func (s *RawStore) NetworkTypes(ctx context.Context, deviceID string) ([]string, error) {
	var networks []string
	err := s.db.WithContext(ctx).
		Model(&models.RawRecord{}).
		Where("device_id = ?", deviceID).
		Distinct().
		Order("network_type").
		Pluck("network_type", &networks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query network types: %w", err)
	}
	return networks, nil
}

// Devices все устройства с сырыми данными
func (s *RawStore) Devices(ctx context.Context) ([]string, error) {
	var devices []string
	err := s.db.WithContext(ctx).
		Model(&models.RawRecord{}).
		Distinct().
		Order("device_id").
		Pluck("device_id", &devices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	return devices, nil
}
