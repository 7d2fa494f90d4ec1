package tests

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"dispatch/internal/handler"
	"dispatch/internal/service"
)

// presenceFixture mounts the driver presence endpoints with an
// authenticated driver on the context.
func presenceFixture(driverID string) (*gin.Engine, *MockDriverRepository, *MockAvailabilityStore) {
	gin.SetMode(gin.TestMode)

	rideRepo := NewMockRideRepository()
	driverRepo := NewMockDriverRepository()
	store := NewMockAvailabilityStore()
	publisher := NewCapturePublisher()
	coordinator := service.NewAssignmentCoordinator(rideRepo, NewMockLocator(), publisher, time.Minute)
	policy := service.NewCancellationPolicy(rideRepo, NewMockRiderRepository(), publisher, 5*time.Minute, 3, 24*time.Hour)
	rideService := service.NewRideService(rideRepo, coordinator, policy, service.NewFareCalculator(testPricing()), publisher)
	h := handler.NewDriverHandler(rideService, coordinator, driverRepo, store)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("userID", driverID)
		c.Set("role", "driver")
	})
	router.POST("/v1/drivers/status", h.SetStatus)
	router.POST("/v1/drivers/location", h.UpdateLocation)
	return router, driverRepo, store
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestSetStatus_WritesBothStores(t *testing.T) {
	t.Parallel()

	router, driverRepo, store := presenceFixture("driver-1")

	rec := postJSON(router, "/v1/drivers/status", `{"online": true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	avail := driverRepo.Availability("driver-1")
	if avail == nil || !avail.Online {
		t.Error("expected the durable presence row marked online")
	}
	if online, _ := store.IsOnline(context.Background(), "driver-1"); !online {
		t.Error("expected the dispatch registry marked online")
	}

	rec = postJSON(router, "/v1/drivers/status", `{"online": false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if avail := driverRepo.Availability("driver-1"); avail == nil || avail.Online {
		t.Error("expected the durable presence row marked offline")
	}
	if online, _ := store.IsOnline(context.Background(), "driver-1"); online {
		t.Error("expected the dispatch registry cleared")
	}
}

func TestUpdateLocation_RecordsHeartbeat(t *testing.T) {
	t.Parallel()

	router, driverRepo, store := presenceFixture("driver-1")

	rec := postJSON(router, "/v1/drivers/location", `{"lat": 12.9716, "lng": 77.5946}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	avail := driverRepo.Availability("driver-1")
	if avail == nil || avail.Lat != 12.9716 || avail.Lng != 77.5946 {
		t.Errorf("expected the position persisted, got %+v", avail)
	}
	if avail.LastHeartbeat.IsZero() {
		t.Error("expected the heartbeat stamped")
	}
	positions, _ := store.FindNearby(context.Background(), 12.97, 77.59, 5)
	if len(positions) != 1 || positions[0].DriverID != "driver-1" {
		t.Errorf("expected the driver findable for dispatch, got %+v", positions)
	}
}

func TestUpdateLocation_RejectsBadCoordinates(t *testing.T) {
	t.Parallel()

	router, driverRepo, _ := presenceFixture("driver-1")

	rec := postJSON(router, "/v1/drivers/location", `{"lat": 123.0, "lng": 77.5946}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if driverRepo.Availability("driver-1") != nil {
		t.Error("expected nothing persisted for out-of-range coordinates")
	}
}
