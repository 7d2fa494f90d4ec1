package tests

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/disburse"
	"dispatch/internal/domain"
	internalredis "dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is an in-memory RideRepository. Its conditional
// methods mirror the real single-statement semantics: the precondition is
// checked and the mutation applied under one lock, so concurrent callers
// race exactly like they would against the database.
type MockRideRepository struct {
	mu    sync.Mutex
	rides map[string]*domain.Ride
	codes map[string]string

	// Counters for verification
	CreateCallCount int32
	AcceptCallCount int32

	// Error injection
	CreateError error
	AcceptError error
	GetError    error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides: make(map[string]*domain.Ride),
		codes: make(map[string]string),
	}
}

// AddRide seeds a ride for test setup.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

// SetCode seeds a verification code for test setup.
func (m *MockRideRepository) SetCode(rideID, code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[rideID] = code
}

// GetRide returns the live ride for test assertions.
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rides[id]
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ride
	m.rides[ride.ID] = &cp
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ride
	cp.OTPCode = ""
	return &cp, nil
}

func (m *MockRideRepository) GetVerificationCode(ctx context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rides[id]; !ok {
		return "", repository.ErrNotFound
	}
	return m.codes[id], nil
}

func (m *MockRideRepository) Offer(ctx context.Context, rideID, driverID string, assignedAt, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusRequested {
		return false, nil
	}
	ride.OfferedDriverID = driverID
	ride.AssignedAt = assignedAt
	ride.RequestExpiresAt = expiresAt
	return true, nil
}

func (m *MockRideRepository) ClearOffer(ctx context.Context, rideID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	ride.OfferedDriverID = ""
	ride.RequestExpiresAt = time.Time{}
	return nil
}

func (m *MockRideRepository) Accept(ctx context.Context, rideID, driverID, code string, at time.Time) (bool, error) {
	atomic.AddInt32(&m.AcceptCallCount, 1)
	if m.AcceptError != nil {
		return false, m.AcceptError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusRequested {
		return false, nil
	}
	ride.Status = domain.RideStatusAccepted
	ride.DriverID = driverID
	ride.OfferedDriverID = ""
	ride.OTPVerified = false
	ride.AssignedAt = at
	ride.RequestExpiresAt = time.Time{}
	m.codes[rideID] = code
	return true, nil
}

func (m *MockRideRepository) Reject(ctx context.Context, rideID, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return repository.ErrNotFound
	}
	for _, id := range ride.RejectedDriverIDs {
		if id == driverID {
			return nil
		}
	}
	ride.RejectedDriverIDs = append(ride.RejectedDriverIDs, driverID)
	if ride.OfferedDriverID == driverID {
		ride.OfferedDriverID = ""
		ride.RequestExpiresAt = time.Time{}
	}
	return nil
}

func (m *MockRideRepository) TransitionIf(ctx context.Context, rideID string, from, to domain.RideStatus, driverID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if ride.Status != from {
		return false, nil
	}
	if driverID != "" && ride.DriverID != driverID {
		return false, nil
	}
	ride.Status = to
	return true, nil
}

func (m *MockRideRepository) VerifyCode(ctx context.Context, rideID, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusDriverArrived {
		return false, nil
	}
	if code == "" || m.codes[rideID] != code {
		return false, nil
	}
	ride.Status = domain.RideStatusOnRide
	ride.OTPVerified = true
	return true, nil
}

func (m *MockRideRepository) Complete(ctx context.Context, rideID, driverID string, at time.Time, markPaid bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if ride.Status != domain.RideStatusOnRide || ride.DriverID != driverID {
		return false, nil
	}
	ride.Status = domain.RideStatusCompleted
	ride.CompletedAt = at
	ride.FinalFareLocked = true
	if markPaid {
		ride.PaymentStatus = domain.PaymentStatusPaid
	}
	return true, nil
}

func (m *MockRideRepository) CancelIf(ctx context.Context, rideID string, allowed []domain.RideStatus, to domain.RideStatus, at time.Time, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return false, repository.ErrNotFound
	}
	permitted := false
	for _, s := range allowed {
		if ride.Status == s {
			permitted = true
			break
		}
	}
	if !permitted {
		return false, nil
	}
	ride.Status = to
	ride.CancelledAt = at
	ride.CancelReason = reason
	return true, nil
}

func (m *MockRideRepository) AddWaitingCharge(ctx context.Context, rideID string, amount float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[rideID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if ride.FinalFareLocked {
		return false, nil
	}
	ride.Fare.Waiting += amount
	ride.Fare.Total += amount
	return true, nil
}

func (m *MockRideRepository) AggregateCompleted(ctx context.Context, start, end time.Time) ([]domain.WeeklyEarning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byDriver := make(map[string]*domain.WeeklyEarning)
	order := make([]string, 0)
	for _, r := range m.rides {
		if r.Status != domain.RideStatusCompleted || r.DriverID == "" {
			continue
		}
		if r.CompletedAt.Before(start) || !r.CompletedAt.Before(end) {
			continue
		}
		e, ok := byDriver[r.DriverID]
		if !ok {
			e = &domain.WeeklyEarning{DriverID: r.DriverID}
			byDriver[r.DriverID] = e
			order = append(order, r.DriverID)
		}
		e.RideCount++
		e.GrossFare += r.Fare.Total
	}
	result := make([]domain.WeeklyEarning, 0, len(order))
	for _, id := range order {
		result = append(result, *byDriver[id])
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK RIDER REPOSITORY
// ──────────────────────────────────────────────

// MockRiderRepository is an in-memory RiderRepository with the same
// rolling-counter semantics as the SQL statement.
type MockRiderRepository struct {
	mu     sync.Mutex
	riders map[string]*domain.Rider

	// Error injection
	EnsureError error
}

// NewMockRiderRepository creates a new mock rider repository.
func NewMockRiderRepository() *MockRiderRepository {
	return &MockRiderRepository{riders: make(map[string]*domain.Rider)}
}

// AddRider seeds a rider for test setup.
func (m *MockRiderRepository) AddRider(rider *domain.Rider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.riders[rider.ID] = rider
}

// GetRider returns the stored rider without copying, for assertions.
func (m *MockRiderRepository) GetRider(id string) *domain.Rider {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.riders[id]
}

func (m *MockRiderRepository) Ensure(ctx context.Context, riderID string) error {
	if m.EnsureError != nil {
		return m.EnsureError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.riders[riderID]; !ok {
		m.riders[riderID] = &domain.Rider{ID: riderID}
	}
	return nil
}

func (m *MockRiderRepository) Get(ctx context.Context, riderID string) (*domain.Rider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rider, ok := m.riders[riderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *rider
	return &cp, nil
}

func (m *MockRiderRepository) RecordCancellation(ctx context.Context, riderID string, day time.Time, threshold int, blockUntil time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rider, ok := m.riders[riderID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	y1, m1, d1 := rider.CancelCountDate.UTC().Date()
	y2, m2, d2 := day.UTC().Date()
	if y1 != y2 || m1 != m2 || d1 != d2 {
		rider.CancelCount = 1
		rider.CancelCountDate = day
	} else {
		rider.CancelCount++
	}
	if rider.CancelCount >= threshold {
		rider.BlockedUntil = blockUntil
	}
	return rider.CancelCount, nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is an in-memory DriverRepository.
type MockDriverRepository struct {
	mu           sync.Mutex
	availability map[string]*domain.DriverAvailability
	instruments  map[string]*domain.PayoutInstrument

	// Error injection
	InstrumentError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		availability: make(map[string]*domain.DriverAvailability),
		instruments:  make(map[string]*domain.PayoutInstrument),
	}
}

// Availability returns the stored presence record for assertions.
func (m *MockDriverRepository) Availability(driverID string) *domain.DriverAvailability {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.availability[driverID]
}

// AddInstrument seeds a payout instrument for test setup.
func (m *MockDriverRepository) AddInstrument(inst *domain.PayoutInstrument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instruments[inst.DriverID] = inst
}

func (m *MockDriverRepository) SetOnline(ctx context.Context, driverID string, online bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.availability[driverID]
	if !ok {
		rec = &domain.DriverAvailability{DriverID: driverID}
		m.availability[driverID] = rec
	}
	rec.Online = online
	rec.LastHeartbeat = at
	rec.UpdatedAt = at
	return nil
}

func (m *MockDriverRepository) Heartbeat(ctx context.Context, driverID string, lat, lng float64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.availability[driverID]
	if !ok {
		rec = &domain.DriverAvailability{DriverID: driverID}
		m.availability[driverID] = rec
	}
	rec.Lat = lat
	rec.Lng = lng
	rec.LastHeartbeat = at
	rec.UpdatedAt = at
	return nil
}

func (m *MockDriverRepository) GetPayoutInstrument(ctx context.Context, driverID string) (*domain.PayoutInstrument, error) {
	if m.InstrumentError != nil {
		return nil, m.InstrumentError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instruments[driverID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

func (m *MockDriverRepository) SavePayeeRefs(ctx context.Context, driverID, payeeID, fundAccountID, fundAccountKind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instruments[driverID]
	if !ok {
		return repository.ErrNotFound
	}
	inst.PayeeID = payeeID
	inst.FundAccountID = fundAccountID
	inst.FundAccountKind = fundAccountKind
	return nil
}

// ──────────────────────────────────────────────
// MOCK WAITING REPOSITORY
// ──────────────────────────────────────────────

// MockWaitingRepository is an in-memory WaitingRepository enforcing the
// one-open-session-per-ride constraint.
type MockWaitingRepository struct {
	mu       sync.Mutex
	sessions map[string][]*domain.WaitingSession // by ride id
}

// NewMockWaitingRepository creates a new mock waiting repository.
func NewMockWaitingRepository() *MockWaitingRepository {
	return &MockWaitingRepository{sessions: make(map[string][]*domain.WaitingSession)}
}

// AddSession seeds a session for test setup.
func (m *MockWaitingRepository) AddSession(session *domain.WaitingSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.RideID] = append(m.sessions[session.RideID], session)
}

func (m *MockWaitingRepository) open(rideID string) *domain.WaitingSession {
	for _, s := range m.sessions[rideID] {
		if s.Open() {
			return s
		}
	}
	return nil
}

func (m *MockWaitingRepository) Open(ctx context.Context, session *domain.WaitingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open(session.RideID) != nil {
		return repository.ErrDuplicate
	}
	cp := *session
	m.sessions[session.RideID] = append(m.sessions[session.RideID], &cp)
	return nil
}

func (m *MockWaitingRepository) GetOpen(ctx context.Context, rideID string) (*domain.WaitingSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.open(rideID)
	if s == nil {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *MockWaitingRepository) CloseOpen(ctx context.Context, rideID string, endedAt time.Time, extraMinutes int, extraCharge float64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.open(rideID)
	if s == nil {
		return false, nil
	}
	s.EndedAt = endedAt
	s.ExtraMinutes = extraMinutes
	s.ExtraCharge = extraCharge
	return true, nil
}

// ──────────────────────────────────────────────
// MOCK PAYOUT REPOSITORY
// ──────────────────────────────────────────────

// MockPayoutRepository is an in-memory PayoutRepository with the unique
// (driver, week_start) constraint.
type MockPayoutRepository struct {
	mu      sync.Mutex
	records []*domain.PayoutRecord
}

// NewMockPayoutRepository creates a new mock payout repository.
func NewMockPayoutRepository() *MockPayoutRepository {
	return &MockPayoutRepository{}
}

func (m *MockPayoutRepository) find(driverID string, weekStart time.Time) *domain.PayoutRecord {
	for _, r := range m.records {
		if r.DriverID == driverID && r.WeekStart.Equal(weekStart) {
			return r
		}
	}
	return nil
}

// Record returns the live record for test assertions.
func (m *MockPayoutRepository) Record(driverID string, weekStart time.Time) *domain.PayoutRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.find(driverID, weekStart)
}

func (m *MockPayoutRepository) EnsureForWeek(ctx context.Context, records []*domain.PayoutRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		if m.find(rec.DriverID, rec.WeekStart) != nil {
			continue
		}
		cp := *rec
		m.records = append(m.records, &cp)
	}
	return nil
}

func (m *MockPayoutRepository) ListActionable(ctx context.Context, weekStart time.Time) ([]*domain.PayoutRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.PayoutRecord
	for _, r := range m.records {
		if !r.WeekStart.Equal(weekStart) {
			continue
		}
		if r.Status == domain.PayoutStatusPending || r.Status == domain.PayoutStatusFailed {
			cp := *r
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockPayoutRepository) ListForWeek(ctx context.Context, weekStart time.Time) ([]*domain.PayoutRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.PayoutRecord
	for _, r := range m.records {
		if r.WeekStart.Equal(weekStart) {
			cp := *r
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *MockPayoutRepository) MarkProcessing(ctx context.Context, id, disbursementID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			r.Status = domain.PayoutStatusProcessing
			r.DisbursementID = disbursementID
			r.FailureReason = ""
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *MockPayoutRepository) MarkFailed(ctx context.Context, id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.ID == id {
			r.Status = domain.PayoutStatusFailed
			r.FailureReason = reason
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *MockPayoutRepository) ApplyReconciliation(ctx context.Context, disbursementID string, status domain.PayoutStatus, reason string, paidAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.DisbursementID == disbursementID && disbursementID != "" {
			r.Status = status
			r.FailureReason = reason
			if status == domain.PayoutStatusPaid && r.PaidAt.IsZero() {
				r.PaidAt = paidAt
			}
			return true, nil
		}
	}
	return false, nil
}

// ──────────────────────────────────────────────
// MOCK LOCATOR
// ──────────────────────────────────────────────

// MockLocator hands out a fixed candidate queue.
type MockLocator struct {
	mu         sync.Mutex
	Candidates []string
	Released   []string

	// Error injection
	LocateError error
}

// NewMockLocator creates a mock locator with the given candidate queue.
func NewMockLocator(candidates ...string) *MockLocator {
	return &MockLocator{Candidates: candidates}
}

func (m *MockLocator) Locate(ctx context.Context, lat, lng float64, exclude []string) (string, error) {
	if m.LocateError != nil {
		return "", m.LocateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}
	for i, id := range m.Candidates {
		if skip[id] {
			continue
		}
		m.Candidates = append(m.Candidates[:i], m.Candidates[i+1:]...)
		return id, nil
	}
	return "", service.ErrNoDriverAvailable
}

func (m *MockLocator) Release(ctx context.Context, driverID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Released = append(m.Released, driverID)
}

// ──────────────────────────────────────────────
// MOCK AVAILABILITY STORE
// ──────────────────────────────────────────────

// MockAvailabilityStore is an in-memory stand-in for the Redis presence
// registry.
type MockAvailabilityStore struct {
	mu        sync.Mutex
	online    map[string]bool
	positions map[string]internalredis.DriverPosition
}

// NewMockAvailabilityStore creates a new mock availability store.
func NewMockAvailabilityStore() *MockAvailabilityStore {
	return &MockAvailabilityStore{
		online:    make(map[string]bool),
		positions: make(map[string]internalredis.DriverPosition),
	}
}

func (m *MockAvailabilityStore) Heartbeat(ctx context.Context, driverID string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[driverID] = true
	m.positions[driverID] = internalredis.DriverPosition{DriverID: driverID, Lat: lat, Lng: lng}
	return nil
}

func (m *MockAvailabilityStore) SetOnline(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[driverID] = true
	return nil
}

func (m *MockAvailabilityStore) SetOffline(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.online, driverID)
	delete(m.positions, driverID)
	return nil
}

func (m *MockAvailabilityStore) IsOnline(ctx context.Context, driverID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online[driverID], nil
}

func (m *MockAvailabilityStore) FindNearby(ctx context.Context, lat, lng, radiusKm float64) ([]internalredis.DriverPosition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]internalredis.DriverPosition, 0, len(m.positions))
	for _, pos := range m.positions {
		result = append(result, pos)
	}
	return result, nil
}

var _ internalredis.AvailabilityStoreInterface = (*MockAvailabilityStore)(nil)

// ──────────────────────────────────────────────
// MOCK DISBURSEMENT PROCESSOR
// ──────────────────────────────────────────────

// SubmittedPayout records one Submit call for assertions.
type SubmittedPayout struct {
	FundAccountID string
	Kind          disburse.InstrumentKind
	Amount        float64
	Reference     string
}

// MockProcessor is a mock disbursement processor with per-instrument
// failure injection. It mirrors the real client's reuse rule: a stored
// fund account reference of the matching kind is returned without
// registering a new one.
type MockProcessor struct {
	mu                  sync.Mutex
	Submissions         []SubmittedPayout
	FundAccountsCreated int
	counter             int32

	// Error injection
	BankError        error
	VPAError         error
	EnsurePayeeError error
}

// NewMockProcessor creates a new mock processor.
func NewMockProcessor() *MockProcessor {
	return &MockProcessor{}
}

func (m *MockProcessor) EnsurePayee(ctx context.Context, inst domain.PayoutInstrument) (string, error) {
	if m.EnsurePayeeError != nil {
		return "", m.EnsurePayeeError
	}
	if inst.PayeeID != "" {
		return inst.PayeeID, nil
	}
	return "payee-" + inst.DriverID, nil
}

func (m *MockProcessor) EnsureFundAccount(ctx context.Context, payeeID string, inst domain.PayoutInstrument, kind disburse.InstrumentKind) (string, error) {
	if inst.FundAccountID != "" && inst.FundAccountKind == string(kind) {
		return inst.FundAccountID, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FundAccountsCreated++
	return fmt.Sprintf("fa-%s-%s", kind, inst.DriverID), nil
}

func (m *MockProcessor) Submit(ctx context.Context, fundAccountID string, kind disburse.InstrumentKind, payout disburse.Payout) (string, error) {
	if kind == disburse.KindBank && m.BankError != nil {
		return "", m.BankError
	}
	if kind == disburse.KindVPA && m.VPAError != nil {
		return "", m.VPAError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	m.Submissions = append(m.Submissions, SubmittedPayout{
		FundAccountID: fundAccountID,
		Kind:          kind,
		Amount:        payout.Amount,
		Reference:     payout.Reference,
	})
	return fmt.Sprintf("disb-%d", m.counter), nil
}

// ──────────────────────────────────────────────
// CAPTURE PUBLISHER
// ──────────────────────────────────────────────

// PublishedEvent pairs a broadcast event with its topic.
type PublishedEvent struct {
	Topic string
	Event domain.Event
}

// CapturePublisher records every published event for assertions.
type CapturePublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
}

// NewCapturePublisher creates a new capture publisher.
func NewCapturePublisher() *CapturePublisher {
	return &CapturePublisher{}
}

func (p *CapturePublisher) Publish(ctx context.Context, topic string, event domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, PublishedEvent{Topic: topic, Event: event})
}

// Last returns the most recent event, or nil.
func (p *CapturePublisher) Last() *PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Events) == 0 {
		return nil
	}
	e := p.Events[len(p.Events)-1]
	return &e
}

// CountType counts events of the given type.
func (p *CapturePublisher) CountType(t domain.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.Events {
		if e.Event.Type == t {
			n++
		}
	}
	return n
}
