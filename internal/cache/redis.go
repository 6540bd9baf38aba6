package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript снимает блокировку, только если она наша
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// storePointsScript пишет интервалы, только если модель не перестраивалась
// с момента чтения поколения
var storePointsScript = redis.NewScript(`
local gen = redis.call("GET", KEYS[2]) or "0"
if gen ~= ARGV[1] then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
else
	redis.call("SET", KEYS[1], ARGV[2])
end
return 1
`)

// RedisCache обертка для Redis клиента
type RedisCache struct {
	client  *redis.Client
	ttl     time.Duration
	lockTTL time.Duration
}

// NewRedisCache создает новый Redis кэш
func NewRedisCache(addr, password string, db int, ttl, lockTTL time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     100,
		MinIdleConns: 10,
		MaxRetries:   3,
	})

	// Проверяем подключение
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewFromClient(client, ttl, lockTTL), nil
}

// NewFromClient использует готовый клиент
func NewFromClient(client *redis.Client, ttl, lockTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:  client,
		ttl:     ttl,
		lockTTL: lockTTL,
	}
}

func pointsKey(deviceID string) string {
	return fmt.Sprintf("rrc:points:%s", deviceID)
}

func pointsGenKey(deviceID string) string {
	return fmt.Sprintf("rrc:points:gen:%s", deviceID)
}

func lockKey(deviceID string) string {
	return fmt.Sprintf("rrc:lock:%s", deviceID)
}

func buildKey(deviceID string, ts time.Time) string {
	return fmt.Sprintf("rrc:build:%s:%d", deviceID, ts.UnixNano())
}

const buildListKey = "rrc:builds"

// PointsGeneration текущее поколение модели устройства. Читать до загрузки
// интервалов из базы и передавать в StorePoints.
func (r *RedisCache) PointsGeneration(ctx context.Context, deviceID string) (int64, error) {
	gen, err := r.client.Get(ctx, pointsGenKey(deviceID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get points generation: %w", err)
	}
	return gen, nil
}

// StorePoints кэширует рекомендованные интервалы устройства. false, если
// поколение успело смениться и интервалы устарели.
func (r *RedisCache) StorePoints(ctx context.Context, deviceID string, gen int64, points []int) (bool, error) {
	jsonData, err := json.Marshal(points)
	if err != nil {
		return false, fmt.Errorf("failed to marshal points: %w", err)
	}

	stored, err := storePointsScript.Run(ctx, r.client,
		[]string{pointsKey(deviceID), pointsGenKey(deviceID)},
		gen, jsonData, r.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to store points: %w", err)
	}
	return stored == 1, nil
}

// GetPoints возвращает интервалы из кэша, false при промахе
func (r *RedisCache) GetPoints(ctx context.Context, deviceID string) ([]int, bool, error) {
	data, err := r.client.Get(ctx, pointsKey(deviceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get points: %w", err)
	}

	var points []int
	if err := json.Unmarshal(data, &points); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal points: %w", err)
	}
	return points, true, nil
}

// InvalidatePoints сбрасывает кэш после перестроения модели и сдвигает
// поколение, чтобы запоздавшая запись старых интервалов не прошла
func (r *RedisCache) InvalidatePoints(ctx context.Context, deviceID string) error {
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, pointsGenKey(deviceID))
	pipe.Del(ctx, pointsKey(deviceID))

	_, err := pipe.Exec(ctx)
	return err
}

// AcquireBuildLock не дает двум воркерам строить модель одного устройства
func (r *RedisCache) AcquireBuildLock(ctx context.Context, deviceID, owner string) (bool, error) {
	ok, err := r.client.SetNX(ctx, lockKey(deviceID), owner, r.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return ok, nil
}

// ReleaseBuildLock снимает блокировку владельца
func (r *RedisCache) ReleaseBuildLock(ctx context.Context, deviceID, owner string) error {
	return releaseScript.Run(ctx, r.client, []string{lockKey(deviceID)}, owner).Err()
}

// StoreBuild сохраняет итог построения (хранится дольше обычного кэша)
func (r *RedisCache) StoreBuild(ctx context.Context, deviceID string, ts time.Time, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal build: %w", err)
	}

	buildTTL := r.ttl * 24
	key := buildKey(deviceID, ts)

	// sorted set для выборки последних построений
	pipe := r.client.Pipeline()
	pipe.Set(ctx, key, jsonData, buildTTL)
	pipe.ZAdd(ctx, buildListKey, redis.Z{Score: float64(ts.Unix()), Member: key})
	pipe.Expire(ctx, buildListKey, buildTTL)

	_, err = pipe.Exec(ctx)
	return err
}

// RecentBuilds последние N итогов построения
func (r *RedisCache) RecentBuilds(ctx context.Context, limit int) ([]json.RawMessage, error) {
	keys, err := r.client.ZRevRange(ctx, buildListKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get builds: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get builds: %w", err)
	}

	builds := make([]json.RawMessage, 0, len(values))
	for _, v := range values {
		// ключ мог истечь раньше списка
		if s, ok := v.(string); ok {
			builds = append(builds, json.RawMessage(s))
		}
	}
	return builds, nil
}

// Close закрывает соединение с Redis
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Ping проверяет доступность Redis
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// GetStats возвращает статистику Redis
func (r *RedisCache) GetStats() map[string]interface{} {
	stats := r.client.PoolStats()

	return map[string]interface{}{
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}
