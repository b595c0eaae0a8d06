// Package cache содержит необязательный кэш разрешения коротких кодов.
// Кэш ускоряет только поиск ссылки; инкремент счётчика переходов всегда
// идёт в основное хранилище.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tempizhere/tinyhawk/internal/models"
	"go.uber.org/zap"
)

const (
	keyPrefix   = "link:"
	entryTTL    = time.Hour
	pingTimeout = 3 * time.Second
)

// Cache определяет интерфейс кэша разрешения кода в ссылку
type Cache interface {
	// Get возвращает закэшированную ссылку и флаг попадания
	Get(ctx context.Context, code string) (models.ShortLink, bool)
	// Set кладёт ссылку в кэш; ошибки гасятся
	Set(ctx context.Context, link models.ShortLink)
}

// RedisCache реализует Cache поверх Redis
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCache создаёт подключение к Redis и проверяет его
func NewRedisCache(redisURL string, logger *zap.Logger) (*RedisCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisCache{client: client, logger: logger}, nil
}

// Get возвращает ссылку из кэша
func (c *RedisCache) Get(ctx context.Context, code string) (models.ShortLink, bool) {
	data, err := c.client.Get(ctx, keyPrefix+code).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Cache get failed", zap.String("code", code), zap.Error(err))
		}
		return models.ShortLink{}, false
	}
	var link models.ShortLink
	if err := json.Unmarshal(data, &link); err != nil {
		c.logger.Warn("Cache entry is not valid JSON", zap.String("code", code), zap.Error(err))
		return models.ShortLink{}, false
	}
	return link, true
}

// Set кладёт ссылку в кэш с TTL
func (c *RedisCache) Set(ctx context.Context, link models.ShortLink) {
	data, err := json.Marshal(link)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, keyPrefix+link.Code, data, entryTTL).Err(); err != nil {
		c.logger.Warn("Cache set failed", zap.String("code", link.Code), zap.Error(err))
	}
}

// Close закрывает подключение к Redis
func (c *RedisCache) Close() error {
	return c.client.Close()
}
