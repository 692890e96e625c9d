package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"

	"lpr-gate/internal/domain/entity"
	"lpr-gate/internal/domain/port"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	redisPrefix    = "lpr"
	redisRecentKey = redisPrefix + ":recent"
	recentCap      = 1000
)

// RedisOptions параметры подключения
type RedisOptions struct {
	Address  string
	Password string
	DB       int
}

// NewRedisClient создаёт клиента и проверяет соединение
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Address,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Address, err)
	}
	return client, nil
}

// RedisDetectionRepository история детекций в Redis.
// Для каждого номера отсортированное множество ID по времени, сами записи в JSON.
type RedisDetectionRepository struct {
	client    redis.UniversalClient
	retention time.Duration
}

// NewRedisDetectionRepository; retention > 0 ограничивает срок хранения ключей номера
func NewRedisDetectionRepository(client redis.UniversalClient, retention time.Duration) *RedisDetectionRepository {
	return &RedisDetectionRepository{client: client, retention: retention}
}

func plateKey(plate string) string {
	return redisPrefix + ":plate:" + plate
}

func recordKey(id string) string {
	return redisPrefix + ":detection:" + id
}

func score(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func (r *RedisDetectionRepository) Exists(ctx context.Context, plate string, from, to time.Time) (bool, error) {
	n, err := r.client.ZCount(ctx, plateKey(plate), score(from), score(to)).Result()
	if err != nil {
		return false, fmt.Errorf("RedisDetectionRepository.Exists: %w", err)
	}
	return n > 0, nil
}

func (r *RedisDetectionRepository) Insert(ctx context.Context, record entity.DetectionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("RedisDetectionRepository.Insert: %w", err)
	}

	member := redis.Z{Score: float64(record.Timestamp.UnixMilli()), Member: record.ID}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey(record.ID), data, r.retention)
		pipe.ZAdd(ctx, plateKey(record.Plate), member)
		pipe.ZAdd(ctx, redisRecentKey, member)
		pipe.ZRemRangeByRank(ctx, redisRecentKey, 0, -recentCap-1)
		if r.retention > 0 {
			pipe.Expire(ctx, plateKey(record.Plate), r.retention)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("RedisDetectionRepository.Insert: %w", err)
	}
	return nil
}

func (r *RedisDetectionRepository) Recent(ctx context.Context, limit int) ([]entity.DetectionRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	ids, err := r.client.ZRevRange(ctx, redisRecentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("RedisDetectionRepository.Recent: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = recordKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("RedisDetectionRepository.Recent: %w", err)
	}

	records := make([]entity.DetectionRecord, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// запись истекла раньше индекса
			continue
		}
		var rec entity.DetectionRecord
		if err := json.UnmarshalFromString(s, &rec); err != nil {
			return nil, fmt.Errorf("RedisDetectionRepository.Recent: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

var _ port.DetectionHistory = (*RedisDetectionRepository)(nil)
