package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewRedisCache_InvalidURL(t *testing.T) {
	cache, err := NewRedisCache("not-a-redis-url", zap.NewNop())

	assert.Error(t, err)
	assert.Nil(t, cache)
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	// Корректный URL, но на порту никто не слушает
	cache, err := NewRedisCache("redis://127.0.0.1:1", zap.NewNop())

	assert.Error(t, err)
	assert.Nil(t, cache)
}
