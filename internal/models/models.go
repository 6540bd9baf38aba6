package models

import "time"

// RawRecord одна RTT-проба от устройства
type RawRecord struct {
	ID          uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	DeviceID    string    `json:"device_id" gorm:"type:varchar(100);not null;index:idx_raw_device_network"`
	NetworkType string    `json:"network_type" gorm:"type:varchar(32);not null;index:idx_raw_device_network"`
	TestID      int64     `json:"test_id" gorm:"not null"`
	TimeDelay   int       `json:"time_delay" gorm:"not null"` // интервал между пакетами, 0 = начало теста
	RTTLow      int       `json:"rtt_low"`                    // маленький пакет, мс
	RTTHigh     int       `json:"rtt_high"`                   // большой пакет, мс
	SignalLow   *int      `json:"signal_low,omitempty"`
	Timestamp   time.Time `json:"timestamp" gorm:"not null"`
}

// TableName таблица сырых измерений
func (RawRecord) TableName() string {
	return "rrc_inference_raw_data"
}

// ModelRow один сегмент сохраненной модели
type ModelRow struct {
	ID           uint      `json:"-" gorm:"primaryKey;autoIncrement"`
	DeviceID     string    `json:"device_id" gorm:"type:varchar(100);not null;index:idx_model_device_network"`
	NetworkType  string    `json:"network_type" gorm:"type:varchar(32);not null;index:idx_model_device_network"`
	Small        bool      `json:"small"`
	SegmentBegin int       `json:"segment_begin"`
	SegmentEnd   int       `json:"segment_end"`
	Avg          float64   `json:"avg"`
	Label        string    `json:"label" gorm:"type:varchar(32)"`
	Timestamp    time.Time `json:"timestamp"`
}

// TableName таблица моделей
func (ModelRow) TableName() string {
	return "rrc_state_model"
}

// BuildRequest запрос на построение модели
type BuildRequest struct {
	DeviceID string `json:"device_id"`
}

// MeasurementPoints рекомендованные интервалы для проб
type MeasurementPoints struct {
	DeviceID string `json:"device_id,omitempty"`
	Points   []int  `json:"measurement_points"`
}

// Config конфигурация приложения
type Config struct {
	ServerPort    string
	DatabaseDSN   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	ModelCacheTTL time.Duration
	LockTTL       time.Duration
	Workers       int
	QueueSize     int

	RabbitMQURL        string
	RabbitMQExchange   string
	RabbitMQRoutingKey string
	RabbitMQQueue      string

	CompleteRunLength  int
	MinCompleteRuns    int
	LargeAlgorithmRuns int
}
