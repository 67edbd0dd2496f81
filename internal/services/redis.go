package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fiftydrive/fifty-drive-backend/internal/models"
)

var RedisClient *redis.Client

// InitRedis initializes the Redis client. An empty URL leaves the
// client nil and every helper becomes a no-op; Redis here is a cache
// and fan-out channel, never the source of truth.
func InitRedis(redisURL string) error {
	if redisURL == "" {
		return nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	RedisClient = redis.NewClient(opt)

	ctx := context.Background()
	if _, err := RedisClient.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %v", err)
	}
	return nil
}

// CacheDriverAvailability mirrors the store's driver availability for
// cheap reads by presentation layers.
func CacheDriverAvailability(ctx context.Context, driverID uint, a models.Availability) error {
	if RedisClient == nil {
		return nil
	}
	key := fmt.Sprintf("driver:availability:%d", driverID)
	return RedisClient.Set(ctx, key, string(a), time.Hour).Err()
}

// CachedDriverAvailability reads the mirrored availability.
func CachedDriverAvailability(ctx context.Context, driverID uint) (models.Availability, error) {
	if RedisClient == nil {
		return "", redis.Nil
	}
	key := fmt.Sprintf("driver:availability:%d", driverID)
	result, err := RedisClient.Get(ctx, key).Result()
	if err != nil {
		return "", err
	}
	return models.Availability(result), nil
}

// PublishOrderUpdate fans an order status change out over pub/sub for
// any subscribed presentation process.
func PublishOrderUpdate(ctx context.Context, order *models.Order) error {
	if RedisClient == nil {
		return nil
	}
	payload := map[string]interface{}{
		"orderId":     order.ID,
		"status":      order.Status,
		"passengerId": order.PassengerID,
		"driverId":    order.DriverID,
		"timestamp":   time.Now().Unix(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return RedisClient.Publish(ctx, "order:updates", data).Err()
}
