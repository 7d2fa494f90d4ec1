package redis

import (
	"context"
	"time"
)

// AvailabilityStoreInterface defines the online-driver registry operations.
type AvailabilityStoreInterface interface {
	Heartbeat(ctx context.Context, driverID string, lat, lng float64) error
	SetOnline(ctx context.Context, driverID string) error
	SetOffline(ctx context.Context, driverID string) error
	IsOnline(ctx context.Context, driverID string) (bool, error)
	FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]DriverPosition, error)
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireDriverLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error)
	ReleaseDriverLock(ctx context.Context, driverID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ AvailabilityStoreInterface = (*AvailabilityStore)(nil)
	_ LockStoreInterface         = (*LockStore)(nil)
)
