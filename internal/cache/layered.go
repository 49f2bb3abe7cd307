package cache

import (
	"time"

	"github.com/ppiankov/dhatu/internal/logging"
	"github.com/ppiankov/dhatu/internal/model"
	"go.uber.org/zap"
)

// LayeredCache checks memory first, then disk, promoting disk hits
type LayeredCache struct {
	memory Cache
	disk   Cache
	logger *zap.Logger
}

// NewLayeredCache creates a new layered cache
func NewLayeredCache(memory, disk Cache, logger *zap.Logger) *LayeredCache {
	logger = logging.OrNop(logger)
	return &LayeredCache{
		memory: memory,
		disk:   disk,
		logger: logger,
	}
}

// NewFromConfig builds the memory and disk layers from configuration
func NewFromConfig(cfg model.CacheConfig, logger *zap.Logger) *LayeredCache {
	return NewLayeredCache(
		NewMemoryCache(cfg.MemoryTTL, 10*time.Minute),
		NewDiskCache(cfg.Dir, cfg.DiskTTL),
		logger,
	)
}

// Get retrieves a value from the cache (checks memory first, then disk)
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		c.logger.Debug("cache hit", zap.String("layer", "memory"), zap.String("key", key))
		return val, true
	}

	if val, found := c.disk.Get(key); found {
		c.logger.Debug("cache hit", zap.String("layer", "disk"), zap.String("key", key))
		if err := c.memory.Set(key, val, 0); err != nil {
			c.logger.Warn("cache promotion failed", zap.String("key", key), zap.Error(err))
		}
		return val, true
	}

	return nil, false
}

// Set stores a value in both layers
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

// Delete removes a value from both layers
func (c *LayeredCache) Delete(key string) error {
	if err := c.memory.Delete(key); err != nil {
		return err
	}
	return c.disk.Delete(key)
}

// Clear removes all values from both layers
func (c *LayeredCache) Clear() error {
	if err := c.memory.Clear(); err != nil {
		return err
	}
	return c.disk.Clear()
}
