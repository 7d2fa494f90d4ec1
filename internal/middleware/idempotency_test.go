package middleware

import "testing"

func TestReplayCacheKey_ScopesByResourceAndCaller(t *testing.T) {
	base := replayCacheKey("POST", "/v1/rides/ride-a/accept", "driver-1", "key-1")

	sameRequest := replayCacheKey("POST", "/v1/rides/ride-a/accept", "driver-1", "key-1")
	if base != sameRequest {
		t.Error("expected an identical request to map to the same entry")
	}

	otherRide := replayCacheKey("POST", "/v1/rides/ride-b/accept", "driver-1", "key-1")
	if base == otherRide {
		t.Error("expected a reused key against another ride to miss")
	}

	otherCaller := replayCacheKey("POST", "/v1/rides/ride-a/accept", "driver-2", "key-1")
	if base == otherCaller {
		t.Error("expected another caller's identical key to miss")
	}

	otherKey := replayCacheKey("POST", "/v1/rides/ride-a/accept", "driver-1", "key-2")
	if base == otherKey {
		t.Error("expected a fresh key to miss")
	}
}
