// This file implements the PostgreSQL-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	_ "embed"

	_ "github.com/lib/pq"
	"github.com/vet-eye/serviceflow/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists devices, bookings and service requests in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL store from the DSN option and applies
// migrations.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// Close releases the database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// GetDeviceBySerial looks up a device row by serial number.
func (s *PostgresStore) GetDeviceBySerial(ctx context.Context, serial string) (*models.Device, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT serial_number, model, warranty_status FROM devices WHERE serial_number = $1`, serial)

	var d models.Device
	if err := row.Scan(&d.SerialNumber, &d.Model, &d.WarrantyStatus); err != nil {
		if err == sql.ErrNoRows {
			slog.Debug("PostgresStore GetDeviceBySerial not found", "serial", serial)
			return nil, nil
		}
		slog.Error("PostgresStore GetDeviceBySerial failed", "error", err, "serial", serial)
		return nil, fmt.Errorf("failed to query device %s: %w", serial, err)
	}
	return &d, nil
}

// ListBookedTimes returns the start times of all bookings.
func (s *PostgresStore) ListBookedTimes(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date_time FROM bookings`)
	if err != nil {
		slog.Error("PostgresStore ListBookedTimes query failed", "error", err)
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			slog.Error("PostgresStore ListBookedTimes scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan booking row: %w", err)
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			slog.Warn("PostgresStore ListBookedTimes skipping unparseable date", "value", raw, "error", err)
			continue
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate booking rows: %w", err)
	}
	slog.Debug("PostgresStore ListBookedTimes succeeded", "count", len(times))
	return times, nil
}

// CreateBooking inserts a booking and returns its normalized reference.
func (s *PostgresStore) CreateBooking(ctx context.Context, b models.Booking) (models.BookingRef, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO bookings (date_time, device_model, serial_number, description, customer_name, customer_phone, customer_email, customer_address)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		b.Time.Format(time.RFC3339), b.DeviceModel, b.SerialNumber, b.Description,
		b.CustomerName, b.CustomerPhone, b.CustomerEmail, b.CustomerAddr).Scan(&id)
	if err != nil {
		slog.Error("PostgresStore CreateBooking failed", "error", err, "time", b.Time)
		return models.BookingRef{}, fmt.Errorf("failed to insert booking: %w", err)
	}

	ref := models.BookingRef{ID: strconv.FormatInt(id, 10)}
	slog.Info("PostgresStore CreateBooking succeeded", "id", ref.ID, "time", b.Time)
	return ref, nil
}

// CreateServiceRequest inserts a service request row.
func (s *PostgresStore) CreateServiceRequest(ctx context.Context, r models.ServiceRequest) error {
	var scheduled interface{}
	if r.ScheduledAt != nil {
		scheduled = r.ScheduledAt.Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO service_requests (serial_number, description, status, scheduled_at) VALUES ($1, $2, $3, $4)`,
		r.SerialNumber, r.Description, r.Status, scheduled)
	if err != nil {
		slog.Error("PostgresStore CreateServiceRequest failed", "error", err, "serial", r.SerialNumber)
		return fmt.Errorf("failed to insert service request: %w", err)
	}
	slog.Debug("PostgresStore CreateServiceRequest succeeded", "serial", r.SerialNumber, "status", r.Status)
	return nil
}
