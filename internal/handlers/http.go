package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"rrc-inference/internal/analytics"
	"rrc-inference/internal/metrics"
	"rrc-inference/internal/models"
	"rrc-inference/internal/rrc"
	"rrc-inference/internal/storage"
)

// Scheduler очередь построения моделей
type Scheduler interface {
	Submit(deviceID string) (analytics.Job, bool)
	SubmitAll(ctx context.Context) (int, error)
	Stats() map[string]interface{}
}

// ModelReader чтение сохраненных моделей
type ModelReader interface {
	Rows(ctx context.Context, deviceID string) ([]models.ModelRow, error)
	RowsForNetwork(ctx context.Context, deviceID, networkType string) ([]models.ModelRow, error)
	MeasurementPoints(ctx context.Context, deviceID string) ([]int, error)
}

// RecordReader чтение сырых измерений
type RecordReader interface {
	Records(ctx context.Context, deviceID, networkType string) ([]models.RawRecord, error)
}

// Cache кэш интервалов и итогов построения
type Cache interface {
	GetPoints(ctx context.Context, deviceID string) ([]int, bool, error)
	PointsGeneration(ctx context.Context, deviceID string) (int64, error)
	StorePoints(ctx context.Context, deviceID string, gen int64, points []int) (bool, error)
	RecentBuilds(ctx context.Context, limit int) ([]json.RawMessage, error)
	Ping(ctx context.Context) error
	GetStats() map[string]interface{}
}

const recentBuildsLimit = 10

// Handler обработчик HTTP запросов
type Handler struct {
	scheduler Scheduler
	models    ModelReader
	records   RecordReader
	cache     Cache
}

// NewHandler создает новый обработчик
func NewHandler(scheduler Scheduler, modelReader ModelReader, records RecordReader, cache Cache) *Handler {
	return &Handler{
		scheduler: scheduler,
		models:    modelReader,
		records:   records,
		cache:     cache,
	}
}

// Register регистрирует маршруты
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/rrc/generateModel", h.GenerateModel)
	mux.HandleFunc("/rrc/generateModelAll", h.GenerateModelAll)
	mux.HandleFunc("/rrc/model", h.GetModel)
	mux.HandleFunc("/rrc/segments", h.GetSegments)
	mux.HandleFunc("/rrc/signal", h.GetSignal)
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/stats", h.GetStats)
}

func observe(r *http.Request, endpoint string, start time.Time) {
	metrics.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
}

func count(r *http.Request, endpoint string, status int) {
	metrics.RequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(status)).Inc()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, r *http.Request, endpoint string, status int, msg string) {
	count(r, endpoint, status)
	http.Error(w, msg, status)
}

// GenerateModel обрабатывает POST /rrc/generateModel
func (h *Handler) GenerateModel(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/rrc/generateModel"
	start := time.Now()
	defer observe(r, endpoint, start)

	if r.Method != http.MethodPost {
		fail(w, r, endpoint, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req models.BuildRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, r, endpoint, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.DeviceID == "" {
		fail(w, r, endpoint, http.StatusBadRequest, "device_id is required")
		return
	}

	job, ok := h.scheduler.Submit(req.DeviceID)
	if !ok {
		fail(w, r, endpoint, http.StatusServiceUnavailable, "Build queue is full")
		return
	}

	count(r, endpoint, http.StatusAccepted)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "queued",
		"device_id": job.DeviceID,
		"job_id":    job.ID,
	})
}

// GenerateModelAll обрабатывает POST /rrc/generateModelAll
func (h *Handler) GenerateModelAll(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/rrc/generateModelAll"
	start := time.Now()
	defer observe(r, endpoint, start)

	if r.Method != http.MethodPost {
		fail(w, r, endpoint, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	queued, err := h.scheduler.SubmitAll(r.Context())
	if err != nil {
		log.Printf("Failed to queue all devices: %v\n", err)
		fail(w, r, endpoint, http.StatusInternalServerError, "Failed to list devices")
		return
	}

	count(r, endpoint, http.StatusAccepted)
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status": "queued",
		"queued": queued,
	})
}

// GetModel обрабатывает GET /rrc/model
func (h *Handler) GetModel(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/rrc/model"
	start := time.Now()
	defer observe(r, endpoint, start)

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		fail(w, r, endpoint, http.StatusBadRequest, "device_id parameter is required")
		return
	}

	points, hit, err := h.cache.GetPoints(r.Context(), deviceID)
	metrics.RedisResult("get_points", err)
	if !hit {
		// поколение читается до базы: если модель перестроят между чтением и
		// записью, устаревшие интервалы в кэш не попадут
		gen, genErr := h.cache.PointsGeneration(r.Context(), deviceID)
		metrics.RedisResult("points_generation", genErr)

		points, err = h.models.MeasurementPoints(r.Context(), deviceID)
		if errors.Is(err, storage.ErrNoModel) {
			fail(w, r, endpoint, http.StatusNotFound, "No model for device")
			return
		}
		if err != nil {
			log.Printf("Failed to load model for device=%s: %v\n", deviceID, err)
			fail(w, r, endpoint, http.StatusInternalServerError, "Failed to retrieve model")
			return
		}
		if genErr == nil {
			_, err = h.cache.StorePoints(r.Context(), deviceID, gen, points)
			metrics.RedisResult("store_points", err)
		}
	}

	count(r, endpoint, http.StatusOK)
	writeJSON(w, http.StatusOK, models.MeasurementPoints{DeviceID: deviceID, Points: points})
}

// GetSegments обрабатывает GET /rrc/segments
func (h *Handler) GetSegments(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/rrc/segments"
	start := time.Now()
	defer observe(r, endpoint, start)

	deviceID := r.URL.Query().Get("device_id")
	if deviceID == "" {
		fail(w, r, endpoint, http.StatusBadRequest, "device_id parameter is required")
		return
	}

	rows, err := h.models.Rows(r.Context(), deviceID)
	if err != nil {
		log.Printf("Failed to load segments for device=%s: %v\n", deviceID, err)
		fail(w, r, endpoint, http.StatusInternalServerError, "Failed to retrieve segments")
		return
	}
	if len(rows) == 0 {
		fail(w, r, endpoint, http.StatusNotFound, "No model for device")
		return
	}

	count(r, endpoint, http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"device_id": deviceID,
		"segments":  rows,
	})
}

// GetSignal обрабатывает GET /rrc/signal
func (h *Handler) GetSignal(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/rrc/signal"
	start := time.Now()
	defer observe(r, endpoint, start)

	deviceID := r.URL.Query().Get("device_id")
	network := r.URL.Query().Get("network_type")
	if deviceID == "" || network == "" {
		fail(w, r, endpoint, http.StatusBadRequest, "device_id and network_type parameters are required")
		return
	}

	rows, err := h.models.RowsForNetwork(r.Context(), deviceID, network)
	if err != nil {
		log.Printf("Failed to load segments for device=%s network=%s: %v\n", deviceID, network, err)
		fail(w, r, endpoint, http.StatusInternalServerError, "Failed to retrieve segments")
		return
	}
	if len(rows) == 0 {
		fail(w, r, endpoint, http.StatusNotFound, "No model for device and network")
		return
	}

	records, err := h.records.Records(r.Context(), deviceID, network)
	if err != nil {
		log.Printf("Failed to load records for device=%s network=%s: %v\n", deviceID, network, err)
		fail(w, r, endpoint, http.StatusInternalServerError, "Failed to retrieve records")
		return
	}

	reports := rrc.AnalyzeSignal(records, rrc.BuildSegmentIndex(rows))

	count(r, endpoint, http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"device_id":    deviceID,
		"network_type": network,
		"segments":     reports,
	})
}

// HealthCheck обрабатывает GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	redisOK := h.cache.Ping(r.Context()) == nil

	status := "healthy"
	httpStatus := http.StatusOK
	if !redisOK {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]interface{}{
		"status":    status,
		"redis":     redisOK,
		"timestamp": time.Now(),
	})
}

// GetStats обрабатывает GET /stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/stats"
	start := time.Now()
	defer observe(r, endpoint, start)

	builds, err := h.cache.RecentBuilds(r.Context(), recentBuildsLimit)
	metrics.RedisResult("recent_builds", err)
	if builds == nil {
		builds = []json.RawMessage{}
	}

	count(r, endpoint, http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"scheduler":     h.scheduler.Stats(),
		"redis":         h.cache.GetStats(),
		"recent_builds": builds,
		"timestamp":     time.Now(),
	})
}
