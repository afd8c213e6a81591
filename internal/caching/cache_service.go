package caching

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"montoit/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const keyPrefix = "montoit:"

type CacheService interface {
	// Property caching
	GetProperty(ctx context.Context, propertyID uuid.UUID) (*models.Property, error)
	SetProperty(ctx context.Context, property *models.Property, ttl time.Duration) error
	DeleteProperty(ctx context.Context, propertyID uuid.UUID) error

	// Search result caching, keyed by a hash of the filter
	GetSearch(ctx context.Context, filter models.PropertySearchFilter, dest any) (bool, error)
	SetSearch(ctx context.Context, filter models.PropertySearchFilter, value any, ttl time.Duration) error
	InvalidateSearches(ctx context.Context) error

	// Dashboard caching
	GetDashboard(ctx context.Context, userID uuid.UUID) (map[string]interface{}, error)
	SetDashboard(ctx context.Context, userID uuid.UUID, dashboard map[string]interface{}, ttl time.Duration) error
	DeleteDashboard(ctx context.Context, userID uuid.UUID) error

	// Rate limiting
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)

	// Generic string operations for token management
	SetString(ctx context.Context, key string, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

// NewRedisCacheService connects to addr, which may carry a redis:// or rediss:// scheme
func NewRedisCacheService(addr, password string, db int, logger *zap.Logger) CacheService {
	parsedAddr := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if pingErr := client.Ping(context.Background()).Err(); pingErr != nil {
		logger.Warn("Redis ping failed on initialization", zap.String("address", parsedAddr), zap.Error(pingErr))
	} else {
		logger.Debug("Redis connection established", zap.String("address", parsedAddr))
	}

	return &redisCacheService{client: client}
}

// NewCacheService wraps an existing client
func NewCacheService(client *redis.Client) CacheService {
	return &redisCacheService{client: client}
}

func (r *redisCacheService) getJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // cache miss
		}
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *redisCacheService) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, ttl).Err()
}

func propertyKey(id uuid.UUID) string {
	return fmt.Sprintf("%sproperty:%s", keyPrefix, id.String())
}

func (r *redisCacheService) GetProperty(ctx context.Context, propertyID uuid.UUID) (*models.Property, error) {
	var property models.Property
	found, err := r.getJSON(ctx, propertyKey(propertyID), &property)
	if err != nil || !found {
		return nil, err
	}
	return &property, nil
}

func (r *redisCacheService) SetProperty(ctx context.Context, property *models.Property, ttl time.Duration) error {
	return r.setJSON(ctx, propertyKey(property.ID), property, ttl)
}

func (r *redisCacheService) DeleteProperty(ctx context.Context, propertyID uuid.UUID) error {
	return r.client.Del(ctx, propertyKey(propertyID)).Err()
}

func searchKey(filter models.PropertySearchFilter) (string, error) {
	data, err := json.Marshal(filter)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return keyPrefix + "search:" + hex.EncodeToString(sum[:16]), nil
}

func (r *redisCacheService) GetSearch(ctx context.Context, filter models.PropertySearchFilter, dest any) (bool, error) {
	key, err := searchKey(filter)
	if err != nil {
		return false, err
	}
	return r.getJSON(ctx, key, dest)
}

func (r *redisCacheService) SetSearch(ctx context.Context, filter models.PropertySearchFilter, value any, ttl time.Duration) error {
	key, err := searchKey(filter)
	if err != nil {
		return err
	}
	return r.setJSON(ctx, key, value, ttl)
}

// InvalidateSearches drops every cached search page
func (r *redisCacheService) InvalidateSearches(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, keyPrefix+"search:*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		return r.client.Del(ctx, keys...).Err()
	}
	return nil
}

func dashboardKey(userID uuid.UUID) string {
	return fmt.Sprintf("%sdashboard:%s", keyPrefix, userID.String())
}

func (r *redisCacheService) GetDashboard(ctx context.Context, userID uuid.UUID) (map[string]interface{}, error) {
	var dashboard map[string]interface{}
	found, err := r.getJSON(ctx, dashboardKey(userID), &dashboard)
	if err != nil || !found {
		return nil, err
	}
	return dashboard, nil
}

func (r *redisCacheService) SetDashboard(ctx context.Context, userID uuid.UUID, dashboard map[string]interface{}, ttl time.Duration) error {
	return r.setJSON(ctx, dashboardKey(userID), dashboard, ttl)
}

func (r *redisCacheService) DeleteDashboard(ctx context.Context, userID uuid.UUID) error {
	return r.client.Del(ctx, dashboardKey(userID)).Err()
}

// IsRateLimited counts a hit in a fixed window and reports whether key went over limit
func (r *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	cacheKey := keyPrefix + "ratelimit:" + key
	count, err := r.client.Incr(ctx, cacheKey).Result()
	if err != nil {
		return false, err
	}

	// Set expiry on first request
	if count == 1 {
		r.client.Expire(ctx, cacheKey, window)
	}

	return count > int64(limit), nil
}

func (r *redisCacheService) SetString(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, keyPrefix+key, value, ttl).Err()
}

func (r *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil // cache miss
		}
		return "", err
	}
	return val, nil
}

func (r *redisCacheService) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, keyPrefix+key).Err()
}

func (r *redisCacheService) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
