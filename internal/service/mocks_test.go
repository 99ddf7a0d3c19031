package service_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/patwikx/twc-platform/internal/domain"
	"github.com/patwikx/twc-platform/internal/repository"
	"github.com/patwikx/twc-platform/pkg/config"
	"github.com/patwikx/twc-platform/pkg/events"
)

// ---------- Mocks ----------

// memAvailabilityStore keeps unit counts and occupied stays in memory
// so availability logic can be exercised without a database.
type memAvailabilityStore struct {
	units map[int64]int
	stays map[int64][]repository.StayWindow
	err   error
}

func newMemAvailabilityStore() *memAvailabilityStore {
	return &memAvailabilityStore{
		units: make(map[int64]int),
		stays: make(map[int64][]repository.StayWindow),
	}
}

func (m *memAvailabilityStore) addStay(roomTypeID int64, checkIn, checkOut time.Time) {
	m.stays[roomTypeID] = append(m.stays[roomTypeID], repository.StayWindow{CheckIn: checkIn, CheckOut: checkOut})
}

func (m *memAvailabilityStore) CountActiveUnits(_ context.Context, roomTypeID int64) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.units[roomTypeID], nil
}

func (m *memAvailabilityStore) CountOverlapping(_ context.Context, roomTypeID int64, checkIn, checkOut time.Time) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	n := 0
	for _, stay := range m.stays[roomTypeID] {
		if domain.DatesOverlap(checkIn, checkOut, stay.CheckIn, stay.CheckOut) {
			n++
		}
	}
	return n, nil
}

func (m *memAvailabilityStore) ListOverlapping(_ context.Context, roomTypeID int64, from, to time.Time) ([]repository.StayWindow, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []repository.StayWindow
	for _, stay := range m.stays[roomTypeID] {
		if domain.DatesOverlap(from, to, stay.CheckIn, stay.CheckOut) {
			out = append(out, stay)
		}
	}
	return out, nil
}

type mockRoomRepo struct {
	types map[int64]*domain.RoomType
}

func newMockRoomRepo(types ...*domain.RoomType) *mockRoomRepo {
	m := &mockRoomRepo{types: make(map[int64]*domain.RoomType)}
	for _, rt := range types {
		m.types[rt.ID] = rt
	}
	return m
}

func (m *mockRoomRepo) GetRoomType(_ context.Context, id int64) (*domain.RoomType, error) {
	return m.types[id], nil
}

func (m *mockRoomRepo) GetRoomTypes(_ context.Context, ids []int64) (map[int64]*domain.RoomType, error) {
	out := make(map[int64]*domain.RoomType, len(ids))
	for _, id := range ids {
		if rt, ok := m.types[id]; ok {
			out[id] = rt
		}
	}
	return out, nil
}

func (m *mockRoomRepo) ListRoomTypes(context.Context, int64) ([]domain.RoomType, error) {
	return nil, nil
}

func (m *mockRoomRepo) ListUnits(context.Context, int64) ([]domain.RoomUnit, error) {
	return nil, nil
}

// mockBookingRepo emulates the repository contract in memory,
// including the re-check conflict path and payment idempotency.
type mockBookingRepo struct {
	mu       sync.Mutex
	nextID   int64
	bookings map[int64]*domain.Booking

	// refTakenTimes makes the next N creates fail with a duplicate
	// reference, exercising the retry loop.
	refTakenTimes int
	// conflict, when set, makes every create report it.
	conflict *repository.AvailabilityConflict

	payments   map[string]int64 // provider_ref -> booking_id
	lastParams repository.CreateBookingParams
	createErr  error

	// tokens, when set, receives the access token the way the real
	// transaction stores it alongside the booking.
	tokens *mockTokenRepo
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{
		nextID:   1,
		bookings: make(map[int64]*domain.Booking),
		payments: make(map[string]int64),
	}
}

// seed places a booking directly in the store, keeping nextID ahead.
func (m *mockBookingRepo) seed(b *domain.Booking) *domain.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()

	if b.ID == 0 {
		b.ID = m.nextID
	}
	if b.ID >= m.nextID {
		m.nextID = b.ID + 1
	}
	m.bookings[b.ID] = b
	return b
}

func (m *mockBookingRepo) CreateAtomic(_ context.Context, params repository.CreateBookingParams) (*domain.Booking, *repository.AvailabilityConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return nil, nil, m.createErr
	}
	if m.refTakenTimes > 0 {
		m.refTakenTimes--
		return nil, nil, repository.ErrShortRefTaken
	}
	if m.conflict != nil {
		return nil, m.conflict, nil
	}
	m.lastParams = params

	out := *m.commitLocked(params)
	return &out, nil, nil
}

// commitLocked stores a fresh pending booking; callers hold mu.
func (m *mockBookingRepo) commitLocked(params repository.CreateBookingParams) *domain.Booking {
	id := m.nextID
	m.nextID++

	items := make([]domain.BookingItem, len(params.Items))
	copy(items, params.Items)
	for i := range items {
		items[i].ID = int64(i + 1)
		items[i].BookingID = id
	}

	now := time.Now()
	b := &domain.Booking{
		ID:              id,
		ShortRef:        params.ShortRef,
		PropertyID:      params.PropertyID,
		Status:          domain.BookingPending,
		Payment:         domain.PaymentUnpaid,
		GuestFirstName:  params.Guest.FirstName,
		GuestLastName:   params.Guest.LastName,
		GuestEmail:      params.Guest.Email,
		GuestPhone:      params.Guest.Phone,
		SpecialRequests: params.Guest.SpecialRequests,
		Subtotal:        params.Totals.Subtotal,
		ServiceCharge:   params.Totals.ServiceCharge,
		Tax:             params.Totals.Tax,
		TotalAmount:     params.Totals.TotalAmount,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.bookings[id] = b
	if m.tokens != nil {
		_ = m.tokens.Create(context.Background(), id, params.TokenHash, params.TokenExpiresAt)
	}
	return b
}

// stockedBookingRepo admits at most units[roomTypeID] overlapping
// stays; the count and the commit happen under one lock, standing in
// for the serializable re-check.
type stockedBookingRepo struct {
	*mockBookingRepo
	units map[int64]int
}

func newStockedBookingRepo(units map[int64]int) *stockedBookingRepo {
	return &stockedBookingRepo{mockBookingRepo: newMockBookingRepo(), units: units}
}

func (m *stockedBookingRepo) CreateAtomic(_ context.Context, params repository.CreateBookingParams) (*domain.Booking, *repository.AvailabilityConflict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var full []string
	for _, item := range params.Items {
		taken := 0
		for _, held := range m.bookings {
			for _, hi := range held.Items {
				if hi.RoomTypeID == item.RoomTypeID && domain.DatesOverlap(item.CheckIn, item.CheckOut, hi.CheckIn, hi.CheckOut) {
					taken++
				}
			}
		}
		if taken >= m.units[item.RoomTypeID] {
			full = append(full, item.RoomTypeName)
		}
	}
	if len(full) > 0 {
		return nil, &repository.AvailabilityConflict{Rooms: full}, nil
	}

	out := *m.commitLocked(params)
	return &out, nil, nil
}

func (m *mockBookingRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	out := *b
	return &out, nil
}

func (m *mockBookingRepo) GetByShortRef(_ context.Context, shortRef string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.bookings {
		if b.ShortRef == shortRef {
			out := *b
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockBookingRepo) GetByShortRefAndEmail(_ context.Context, shortRef, email string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.bookings {
		if b.ShortRef == shortRef && strings.EqualFold(b.GuestEmail, email) {
			out := *b
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockBookingRepo) List(_ context.Context, filter repository.ListBookingsFilter) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Booking
	for _, b := range m.bookings {
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		if filter.Payment != nil && b.Payment != *filter.Payment {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (m *mockBookingRepo) RegisterPayment(_ context.Context, bookingID int64, provider, providerRef string, amount float64) (*domain.Booking, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[bookingID]
	if !ok {
		return nil, false, nil
	}
	if _, seen := m.payments[providerRef]; seen {
		out := *b
		return &out, false, nil
	}
	m.payments[providerRef] = bookingID

	newPaid := domain.Round2(b.AmountPaid + amount)
	next := domain.PaymentPartiallyPaid
	if newPaid >= b.TotalAmount {
		next = domain.PaymentPaid
	}
	if !b.Payment.CanTransitionTo(next) {
		out := *b
		return &out, false, nil
	}

	b.AmountPaid = newPaid
	b.Payment = next
	if next == domain.PaymentPaid && b.Status == domain.BookingPending {
		b.Status = domain.BookingConfirmed
	}
	b.UpdatedAt = time.Now()

	out := *b
	return &out, true, nil
}

func (m *mockBookingRepo) ExpireStale(_ context.Context, cutoff time.Time, limit int) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []domain.Booking
	for _, b := range m.bookings {
		if len(expired) >= limit {
			break
		}
		if b.Expirable(cutoff) {
			b.Status = domain.BookingCancelled
			b.Payment = domain.PaymentExpired
			b.UpdatedAt = time.Now()
			expired = append(expired, *b)
		}
	}
	return expired, nil
}

func (m *mockBookingRepo) CheckIn(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok || b.Status != domain.BookingConfirmed {
		return false, nil
	}
	b.Status = domain.BookingCheckedIn
	b.UpdatedAt = time.Now()
	return true, nil
}

func (m *mockBookingRepo) Cancel(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[id]
	if !ok {
		return false, nil
	}
	if b.Status != domain.BookingPending && b.Status != domain.BookingConfirmed {
		return false, nil
	}
	b.Status = domain.BookingCancelled
	b.UpdatedAt = time.Now()
	return true, nil
}

type mockTokenRepo struct {
	nextID int64
	byHash map[string]*domain.BookingAccessToken
}

func newMockTokenRepo() *mockTokenRepo {
	return &mockTokenRepo{nextID: 1, byHash: make(map[string]*domain.BookingAccessToken)}
}

func (m *mockTokenRepo) Create(_ context.Context, bookingID int64, tokenHash string, expiresAt time.Time) error {
	m.byHash[tokenHash] = &domain.BookingAccessToken{
		ID:        m.nextID,
		BookingID: bookingID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	m.nextID++
	return nil
}

func (m *mockTokenRepo) FindByHash(_ context.Context, tokenHash string) (*domain.BookingAccessToken, error) {
	return m.byHash[tokenHash], nil
}

func (m *mockTokenRepo) MarkUsed(_ context.Context, id int64) error {
	for _, t := range m.byHash {
		if t.ID == id {
			now := time.Now()
			t.UsedAt = &now
		}
	}
	return nil
}

func (m *mockTokenRepo) DeleteExpired(context.Context) (int64, error) { return 0, nil }

// recordingAuditRepo keeps inserted entries so tests can assert on
// the trail.
type recordingAuditRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries []domain.AuditLogEntry
	insErr  error
}

func newRecordingAuditRepo() *recordingAuditRepo {
	return &recordingAuditRepo{nextID: 1}
}

func (m *recordingAuditRepo) Insert(_ context.Context, entry *domain.AuditLogEntry) (*domain.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.insErr != nil {
		return nil, m.insErr
	}
	stored := *entry
	stored.ID = m.nextID
	stored.CreatedAt = time.Now()
	m.nextID++
	m.entries = append(m.entries, stored)
	return &stored, nil
}

func (m *recordingAuditRepo) List(_ context.Context, filter domain.AuditFilter) ([]domain.AuditLogEntry, error) {
	var out []domain.AuditLogEntry
	for _, e := range m.entries {
		if filter.EntityType != "" && e.EntityType != filter.EntityType {
			continue
		}
		if filter.EntityID != "" && e.EntityID != filter.EntityID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *recordingAuditRepo) EntityHistory(_ context.Context, entityType, entityID string, _ int) ([]domain.AuditLogEntry, error) {
	return m.List(context.Background(), domain.AuditFilter{EntityType: entityType, EntityID: entityID})
}

func (m *recordingAuditRepo) RecentByUser(_ context.Context, userID int64, _ int) ([]domain.AuditLogEntry, error) {
	var out []domain.AuditLogEntry
	for _, e := range m.entries {
		if e.UserID != nil && *e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type publishedEvent struct {
	Subject string
	Data    any
}

type mockEventBus struct {
	mu        sync.Mutex
	published []publishedEvent
	pubErr    error
}

func (m *mockEventBus) Publish(_ context.Context, subject string, data interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pubErr != nil {
		return m.pubErr
	}
	m.published = append(m.published, publishedEvent{Subject: subject, Data: data})
	return nil
}

func (m *mockEventBus) Subscribe(string, func(msg *events.Message)) error { return nil }

func (m *mockEventBus) QueueSubscribe(string, string, func(msg *events.Message)) error { return nil }

func (m *mockEventBus) Close() error { return nil }

func (m *mockEventBus) subjects() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, len(m.published))
	for i, e := range m.published {
		out[i] = e.Subject
	}
	return out
}

// ---------- Helpers ----------

var errStoreDown = errors.New("store down")

func testConfig() *config.Config {
	return &config.Config{
		Booking: config.BookingConfig{
			VerifyTokenTTL: 24 * time.Hour,
			RefPrefix:      "TWC-",
		},
		Sweeper: config.SweeperConfig{
			Interval:  5 * time.Minute,
			MaxAge:    30 * time.Minute,
			BatchSize: 100,
		},
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func expectDomainCode(err error, code string) error {
	var de *domain.Error
	if !errors.As(err, &de) {
		return fmt.Errorf("expected *domain.Error, got %T: %v", err, err)
	}
	if de.Code != code {
		return fmt.Errorf("expected code %s, got %s", code, de.Code)
	}
	return nil
}
