package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"

	"rrc-inference/internal/analytics"
	"rrc-inference/internal/cache"
	"rrc-inference/internal/handlers"
	"rrc-inference/internal/metrics"
	"rrc-inference/internal/models"
	"rrc-inference/internal/queue"
	"rrc-inference/internal/rrc"
	"rrc-inference/internal/storage"
)

func main() {
	log.Println("Starting RRC State Inference Service...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	// Конфигурация из environment variables
	config := loadConfig()

	db, err := storage.OpenPostgres(config.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	// Инициализация Redis
	redisCache, err := cache.NewRedisCache(
		config.RedisAddr,
		config.RedisPassword,
		config.RedisDB,
		config.ModelCacheTTL,
		config.LockTTL,
	)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()
	log.Println("Connected to Redis")

	rawStore := storage.NewRawStore(db)
	modelStore := storage.NewModelStore(db)

	builder := rrc.NewBuilder(rawStore, modelStore, rrc.Options{
		CompleteRunLength:  config.CompleteRunLength,
		MinCompleteRuns:    config.MinCompleteRuns,
		LargeAlgorithmRuns: config.LargeAlgorithmRuns,
	})

	scheduler := analytics.NewScheduler(builder, rawStore, redisCache, config.QueueSize)
	scheduler.Start(config.Workers)
	defer scheduler.Stop()
	log.Printf("Scheduler started with %d workers, queue size %d\n", config.Workers, config.QueueSize)

	// Запускаем goroutine для обработки результатов построения
	go processBuildResults(scheduler, redisCache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if config.RabbitMQURL != "" {
		conn, err := amqp.Dial(config.RabbitMQURL)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer conn.Close()

		consumer, err := queue.NewTriggerConsumer(conn, config.RabbitMQExchange, config.RabbitMQRoutingKey,
			config.RabbitMQQueue, scheduler)
		if err != nil {
			log.Fatalf("Failed to init trigger consumer: %v", err)
		}
		defer consumer.Close()

		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Printf("Trigger consumer stopped: %v\n", err)
			}
		}()
		log.Printf("Consuming build triggers from queue %s\n", config.RabbitMQQueue)
	}

	// Инициализация HTTP handlers
	handler := handlers.NewHandler(scheduler, modelStore, rawStore, redisCache)

	// Настройка HTTP router
	mux := http.NewServeMux()
	handler.Register(mux)

	// Prometheus metrics endpoint
	mux.Handle("/prometheus", promhttp.Handler())

	// HTTP сервер
	server := &http.Server{
		Addr:         ":" + config.ServerPort,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Printf("Server listening on port %s\n", config.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v\n", err)
	}

	log.Println("Server stopped gracefully")
}

// loadConfig загружает конфигурацию из environment
func loadConfig() models.Config {
	defaults := rrc.DefaultOptions()
	return models.Config{
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		DatabaseDSN:   getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=rrc port=5432 sslmode=disable"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		ModelCacheTTL: time.Duration(getEnvAsInt("MODEL_CACHE_TTL_MINUTES", 60)) * time.Minute,
		LockTTL:       time.Duration(getEnvAsInt("LOCK_TTL_SECONDS", 300)) * time.Second,
		Workers:       getEnvAsInt("WORKERS", 4),
		QueueSize:     getEnvAsInt("QUEUE_SIZE", 1000),

		RabbitMQURL:        getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange:   getEnv("RABBITMQ_EXCHANGE", "rrc.exchange"),
		RabbitMQRoutingKey: getEnv("RABBITMQ_ROUTING_KEY", "rrc.build"),
		RabbitMQQueue:      getEnv("RABBITMQ_QUEUE", "rrc.build.q"),

		CompleteRunLength:  getEnvAsInt("COMPLETE_RUN_LENGTH", defaults.CompleteRunLength),
		MinCompleteRuns:    getEnvAsInt("MIN_COMPLETE_RUNS", defaults.MinCompleteRuns),
		LargeAlgorithmRuns: getEnvAsInt("LARGE_ALGORITHM_RUNS", defaults.LargeAlgorithmRuns),
	}
}

// getEnv получает environment variable или возвращает default
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt получает environment variable как int
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var value int
	if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
		return defaultValue
	}
	return value
}

// processBuildResults сохраняет итоги построения в Redis
func processBuildResults(scheduler *analytics.Scheduler, redisCache *cache.RedisCache) {
	for result := range scheduler.Results() {
		if result.Locked {
			continue
		}

		err := redisCache.StoreBuild(context.Background(), result.DeviceID, result.Finished, result)
		metrics.RedisResult("store_build", err)
		if err != nil {
			log.Printf("Failed to store build result for device=%s: %v\n", result.DeviceID, err)
		}
	}
}
