package service

import (
	"context"
	"time"

	"dispatch/internal/redis"
)

const driverLockTTL = 10 * time.Second

// DriverLocator picks one online, unassigned driver near a pickup point
// from the Redis availability registry.
type DriverLocator struct {
	availability redis.AvailabilityStoreInterface
	lockStore    redis.LockStoreInterface
	radiusKm     float64
}

// NewDriverLocator creates a new DriverLocator.
func NewDriverLocator(availability redis.AvailabilityStoreInterface, lockStore redis.LockStoreInterface, radiusKm float64) *DriverLocator {
	if radiusKm <= 0 {
		radiusKm = 5
	}
	return &DriverLocator{
		availability: availability,
		lockStore:    lockStore,
		radiusKm:     radiusKm,
	}
}

// Locate returns the nearest candidate driver, skipping excluded ids and
// drivers currently locked by another offer. The returned driver holds a
// short-lived lock; the caller releases it if the offer is not placed.
func (l *DriverLocator) Locate(ctx context.Context, lat, lng float64, exclude []string) (string, error) {
	positions, err := l.availability.FindNearby(ctx, lat, lng, l.radiusKm)
	if err != nil {
		return "", err
	}

	excluded := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	for _, pos := range positions {
		if _, skip := excluded[pos.DriverID]; skip {
			continue
		}

		locked, err := l.lockStore.AcquireDriverLock(ctx, pos.DriverID, driverLockTTL)
		if err != nil {
			return "", err
		}
		if !locked {
			// Driver is being offered another ride.
			continue
		}

		return pos.DriverID, nil
	}

	return "", ErrNoDriverAvailable
}

// Release releases a candidate's offer lock.
func (l *DriverLocator) Release(ctx context.Context, driverID string) {
	_ = l.lockStore.ReleaseDriverLock(ctx, driverID)
}
