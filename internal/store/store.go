// Package store provides storage backends for serviceflow: the device
// registry, the calendar/booking table and service requests.
//
// It includes an in-memory store for tests and development, plus SQLite and
// PostgreSQL backends with embedded migrations.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vet-eye/serviceflow/internal/models"
)

// Store is the persistence boundary consumed by the dialogue engine.
type Store interface {
	// GetDeviceBySerial looks up a device by its normalized serial number.
	// A missing device returns (nil, nil); errors are collaborator failures.
	GetDeviceBySerial(ctx context.Context, serial string) (*models.Device, error)

	// ListBookedTimes returns the start times of all existing bookings.
	ListBookedTimes(ctx context.Context) ([]time.Time, error)

	// CreateBooking persists a service visit and returns a normalized
	// reference, regardless of backend.
	CreateBooking(ctx context.Context, b models.Booking) (models.BookingRef, error)

	// CreateServiceRequest records a reported issue.
	CreateServiceRequest(ctx context.Context, r models.ServiceRequest) error
}

// InMemoryStore is a mutex-guarded in-memory Store. The zero value is not
// usable; construct with NewInMemoryStore.
type InMemoryStore struct {
	mu       sync.RWMutex
	devices  map[string]models.Device
	bookings []models.Booking
	requests []models.ServiceRequest
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{devices: make(map[string]models.Device)}
}

// AddDevice registers a device for later serial lookups.
func (s *InMemoryStore) AddDevice(d models.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices[d.SerialNumber] = d
}

// GetDeviceBySerial returns the device registered under serial, or nil.
func (s *InMemoryStore) GetDeviceBySerial(ctx context.Context, serial string) (*models.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.devices[serial]; ok {
		return &d, nil
	}
	return nil, nil
}

// ListBookedTimes returns the start times of all stored bookings.
func (s *InMemoryStore) ListBookedTimes(ctx context.Context) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	times := make([]time.Time, 0, len(s.bookings))
	for _, b := range s.bookings {
		times = append(times, b.Time)
	}
	return times, nil
}

// CreateBooking appends a booking and returns its reference.
func (s *InMemoryStore) CreateBooking(ctx context.Context, b models.Booking) (models.BookingRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings = append(s.bookings, b)
	ref := models.BookingRef{ID: fmt.Sprintf("mem-%d", len(s.bookings))}
	slog.Debug("InMemoryStore CreateBooking succeeded", "id", ref.ID, "time", b.Time)
	return ref, nil
}

// CreateServiceRequest appends a service request.
func (s *InMemoryStore) CreateServiceRequest(ctx context.Context, r models.ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, r)
	slog.Debug("InMemoryStore CreateServiceRequest succeeded", "serial", r.SerialNumber, "status", r.Status)
	return nil
}

// Bookings returns a copy of all stored bookings. Test helper.
func (s *InMemoryStore) Bookings() []models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Booking, len(s.bookings))
	copy(out, s.bookings)
	return out
}

// ServiceRequests returns a copy of all stored service requests. Test helper.
func (s *InMemoryStore) ServiceRequests() []models.ServiceRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ServiceRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// New constructs a Store from options: a Postgres DSN yields a PostgresStore,
// any other DSN a SQLiteStore, and no DSN the in-memory store.
func New(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.DSN == "" {
		slog.Debug("store.New: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(cfg.DSN) == DSNTypePostgres {
		return NewPostgresStore(opts...)
	}
	return NewSQLiteStore(opts...)
}
