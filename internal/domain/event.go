package domain

import "time"

// EventType classifies broadcast events on a ride's topic.
type EventType string

const (
	EventStatusChanged EventType = "STATUS_CHANGED"
	EventFareUpdated   EventType = "FARE_UPDATED"
)

// Event is one rider-visible notification published on a per-ride topic.
// Delivery is best-effort; publishing never blocks the mutation behind it.
type Event struct {
	Type       EventType      `json:"type"`
	RideID     string         `json:"ride_id"`
	Status     RideStatus     `json:"status,omitempty"`
	Fare       *FareBreakdown `json:"fare,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// RideTopic returns the broadcast topic for a ride.
func RideTopic(rideID string) string {
	return "ride:" + rideID
}
