package analytics

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"rrc-inference/internal/metrics"
	"rrc-inference/internal/rrc"
)

// ModelBuilder строит модели одного устройства
type ModelBuilder interface {
	Build(ctx context.Context, deviceID string) (rrc.Summary, error)
}

// DeviceLister список устройств с сырыми данными
type DeviceLister interface {
	Devices(ctx context.Context) ([]string, error)
}

// BuildCache блокировка построения и кэш интервалов
type BuildCache interface {
	AcquireBuildLock(ctx context.Context, deviceID, owner string) (bool, error)
	ReleaseBuildLock(ctx context.Context, deviceID, owner string) error
	InvalidatePoints(ctx context.Context, deviceID string) error
}

// Job задание на построение модели устройства
type Job struct {
	ID        string    `json:"job_id"`
	DeviceID  string    `json:"device_id"`
	Submitted time.Time `json:"submitted"`
}

// BuildResult результат задания
type BuildResult struct {
	JobID    string        `json:"job_id"`
	DeviceID string        `json:"device_id"`
	Summary  rrc.Summary   `json:"summary"`
	Error    string        `json:"error,omitempty"`
	Locked   bool          `json:"locked,omitempty"`
	Duration time.Duration `json:"duration"`
	Finished time.Time     `json:"finished"`
}

// Scheduler пул воркеров, строящих модели. Задания разных устройств
// независимы и не разделяют состояние в памяти.
type Scheduler struct {
	builder ModelBuilder
	devices DeviceLister
	cache   BuildCache

	jobsChan    chan Job
	resultsChan chan BuildResult
	stopChan    chan struct{}
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
	workers int

	completed atomic.Int64
	failed    atomic.Int64
	locked    atomic.Int64
	active    atomic.Int64
}

// NewScheduler создает планировщик. cache может быть nil.
func NewScheduler(builder ModelBuilder, devices DeviceLister, cache BuildCache, queueSize int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		builder:     builder,
		devices:     devices,
		cache:       cache,
		jobsChan:    make(chan Job, queueSize),
		resultsChan: make(chan BuildResult, queueSize),
		stopChan:    make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start запускает воркеры в goroutines
func (s *Scheduler) Start(workers int) {
	s.mu.Lock()
	s.workers += workers
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.work()
	}
}

// Stop останавливает воркеры и закрывает канал результатов
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()

	close(s.stopChan)
	s.cancel()
	s.wg.Wait()
	close(s.resultsChan)
}

// Submit ставит устройство в очередь. false, если очередь полна или планировщик остановлен.
func (s *Scheduler) Submit(deviceID string) (Job, bool) {
	job := Job{
		ID:        uuid.NewString(),
		DeviceID:  deviceID,
		Submitted: time.Now(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return job, false
	}

	select {
	case s.jobsChan <- job:
		metrics.QueueSize.Set(float64(len(s.jobsChan)))
		return job, true
	default:
		// Очередь полна
		return job, false
	}
}

// SubmitAll ставит в очередь все известные устройства
func (s *Scheduler) SubmitAll(ctx context.Context) (int, error) {
	devices, err := s.devices.Devices(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list devices: %w", err)
	}

	queued := 0
	for _, d := range devices {
		if _, ok := s.Submit(d); ok {
			queued++
		}
	}
	return queued, nil
}

// Results канал результатов. Если его не читать, результаты отбрасываются.
func (s *Scheduler) Results() <-chan BuildResult {
	return s.resultsChan
}

func (s *Scheduler) work() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		case job := <-s.jobsChan:
			metrics.QueueSize.Set(float64(len(s.jobsChan)))
			result := s.run(job)
			select {
			case s.resultsChan <- result:
			default:
				// Канал результатов полон
			}
		}
	}
}

func (s *Scheduler) run(job Job) (result BuildResult) {
	start := time.Now()
	result = BuildResult{JobID: job.ID, DeviceID: job.DeviceID}
	defer func() {
		result.Finished = time.Now()
		result.Duration = result.Finished.Sub(start)
	}()

	if s.cache != nil {
		ok, err := s.cache.AcquireBuildLock(s.ctx, job.DeviceID, job.ID)
		metrics.RedisResult("acquire_lock", err)
		if err != nil {
			s.fail(&result, err)
			return result
		}
		if !ok {
			log.Printf("Build for device=%s already running, skipping job %s\n", job.DeviceID, job.ID)
			result.Locked = true
			s.locked.Add(1)
			metrics.BuildsTotal.WithLabelValues("locked").Inc()
			return result
		}
		defer func() {
			metrics.RedisResult("release_lock", s.cache.ReleaseBuildLock(context.Background(), job.DeviceID, job.ID))
		}()
	}

	s.active.Add(1)
	metrics.ActiveBuilds.Inc()
	defer func() {
		s.active.Add(-1)
		metrics.ActiveBuilds.Dec()
	}()

	summary, err := s.builder.Build(s.ctx, job.DeviceID)
	result.Summary = summary
	metrics.BuildDuration.Observe(time.Since(start).Seconds())

	// часть сетей могла обновиться и до ошибки
	if s.cache != nil {
		metrics.RedisResult("invalidate_points", s.cache.InvalidatePoints(s.ctx, job.DeviceID))
	}

	if err != nil {
		s.fail(&result, err)
		return result
	}

	for _, n := range summary.Networks {
		if n.Skipped {
			metrics.NetworksSkipped.Inc()
			continue
		}
		metrics.SegmentsWritten.Add(float64(n.Segments))
		for _, l := range n.Labels {
			metrics.LabelsAssigned.WithLabelValues(string(l)).Inc()
		}
	}
	s.completed.Add(1)
	metrics.BuildsTotal.WithLabelValues("success").Inc()
	return result
}

func (s *Scheduler) fail(result *BuildResult, err error) {
	log.Printf("Build for device=%s failed: %v\n", result.DeviceID, err)
	result.Error = err.Error()
	s.failed.Add(1)
	metrics.BuildsTotal.WithLabelValues("error").Inc()
}

// Stats возвращает статистику планировщика
func (s *Scheduler) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"workers":    s.workers,
		"queue_size": len(s.jobsChan),
		"active":     s.active.Load(),
		"completed":  s.completed.Load(),
		"failed":     s.failed.Load(),
		"locked":     s.locked.Load(),
	}
}
