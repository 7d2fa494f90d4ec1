package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	driverGeoKey        = "drivers:positions"
	driverOnlinePrefix  = "drivers:online:"
	defaultHeartbeatTTL = 30 * time.Second
)

// DriverPosition represents a driver's last-known position.
type DriverPosition struct {
	DriverID string
	Lat      float64
	Lng      float64
}

// AvailabilityStore is the fast-path online-driver registry: a geo index of
// positions plus per-driver online keys that expire when heartbeats stop.
type AvailabilityStore struct {
	client       *redis.Client
	heartbeatTTL time.Duration
}

// NewAvailabilityStore creates a new AvailabilityStore.
func NewAvailabilityStore(client *redis.Client, heartbeatTTL time.Duration) *AvailabilityStore {
	if heartbeatTTL <= 0 {
		heartbeatTTL = defaultHeartbeatTTL
	}
	return &AvailabilityStore{client: client, heartbeatTTL: heartbeatTTL}
}

// Heartbeat stores the driver's position with GEOADD and refreshes the
// online key TTL.
func (s *AvailabilityStore) Heartbeat(ctx context.Context, driverID string, lat, lng float64) error {
	if err := s.client.GeoAdd(ctx, driverGeoKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: lng,
		Latitude:  lat,
	}).Err(); err != nil {
		return err
	}
	return s.client.Set(ctx, driverOnlinePrefix+driverID, "1", s.heartbeatTTL).Err()
}

// SetOnline marks a driver online without a position update.
func (s *AvailabilityStore) SetOnline(ctx context.Context, driverID string) error {
	return s.client.Set(ctx, driverOnlinePrefix+driverID, "1", s.heartbeatTTL).Err()
}

// SetOffline removes the driver from the registry.
func (s *AvailabilityStore) SetOffline(ctx context.Context, driverID string) error {
	if err := s.client.Del(ctx, driverOnlinePrefix+driverID).Err(); err != nil {
		return err
	}
	return s.client.ZRem(ctx, driverGeoKey, driverID).Err()
}

// IsOnline reports whether the driver's heartbeat is still fresh.
func (s *AvailabilityStore) IsOnline(ctx context.Context, driverID string) (bool, error) {
	n, err := s.client.Exists(ctx, driverOnlinePrefix+driverID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindNearby returns drivers within radiusKm of the given point, sorted by
// distance. Stale entries (position without a fresh heartbeat) are skipped.
func (s *AvailabilityStore) FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]DriverPosition, error) {
	results, err := s.client.GeoRadius(ctx, driverGeoKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	positions := make([]DriverPosition, 0, len(results))
	for _, r := range results {
		online, err := s.IsOnline(ctx, r.Name)
		if err != nil {
			return nil, err
		}
		if !online {
			continue
		}
		positions = append(positions, DriverPosition{
			DriverID: r.Name,
			Lat:      r.Latitude,
			Lng:      r.Longitude,
		})
	}

	return positions, nil
}
