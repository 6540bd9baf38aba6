package storage

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rrc-inference/internal/models"
)

// OpenPostgres открывает подключение к PostgreSQL и применяет миграции
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate создает таблицы сырых данных и моделей
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.RawRecord{}, &models.ModelRow{}); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
