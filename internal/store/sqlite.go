// This file implements the SQLite-backed store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "embed"

	"github.com/vet-eye/serviceflow/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists devices, bookings and service requests in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite store from the DSN option (a file path).
// The containing directory is created if missing and migrations are applied.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetDeviceBySerial looks up a device row by serial number.
func (s *SQLiteStore) GetDeviceBySerial(ctx context.Context, serial string) (*models.Device, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT serial_number, model, warranty_status FROM devices WHERE serial_number = ?`, serial)

	var d models.Device
	if err := row.Scan(&d.SerialNumber, &d.Model, &d.WarrantyStatus); err != nil {
		if err == sql.ErrNoRows {
			slog.Debug("SQLiteStore GetDeviceBySerial not found", "serial", serial)
			return nil, nil
		}
		slog.Error("SQLiteStore GetDeviceBySerial failed", "error", err, "serial", serial)
		return nil, fmt.Errorf("failed to query device %s: %w", serial, err)
	}
	return &d, nil
}

// ListBookedTimes returns the start times of all bookings. Rows that fail to
// parse are skipped with a log entry rather than failing the listing.
func (s *SQLiteStore) ListBookedTimes(ctx context.Context) ([]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT date_time FROM bookings`)
	if err != nil {
		slog.Error("SQLiteStore ListBookedTimes query failed", "error", err)
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var times []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			slog.Error("SQLiteStore ListBookedTimes scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan booking row: %w", err)
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			slog.Warn("SQLiteStore ListBookedTimes skipping unparseable date", "value", raw, "error", err)
			continue
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate booking rows: %w", err)
	}
	slog.Debug("SQLiteStore ListBookedTimes succeeded", "count", len(times))
	return times, nil
}

// CreateBooking inserts a booking and returns its normalized reference.
// Times persist as ISO-8601 strings in the booking's own zone.
func (s *SQLiteStore) CreateBooking(ctx context.Context, b models.Booking) (models.BookingRef, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO bookings (date_time, device_model, serial_number, description, customer_name, customer_phone, customer_email, customer_address)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.Time.Format(time.RFC3339), b.DeviceModel, b.SerialNumber, b.Description,
		b.CustomerName, b.CustomerPhone, b.CustomerEmail, b.CustomerAddr)
	if err != nil {
		slog.Error("SQLiteStore CreateBooking failed", "error", err, "time", b.Time)
		return models.BookingRef{}, fmt.Errorf("failed to insert booking: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.BookingRef{}, fmt.Errorf("failed to read booking id: %w", err)
	}
	ref := models.BookingRef{ID: strconv.FormatInt(id, 10)}
	slog.Info("SQLiteStore CreateBooking succeeded", "id", ref.ID, "time", b.Time)
	return ref, nil
}

// CreateServiceRequest inserts a service request row.
func (s *SQLiteStore) CreateServiceRequest(ctx context.Context, r models.ServiceRequest) error {
	var scheduled interface{}
	if r.ScheduledAt != nil {
		scheduled = r.ScheduledAt.Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO service_requests (serial_number, description, status, scheduled_at) VALUES (?, ?, ?, ?)`,
		r.SerialNumber, r.Description, r.Status, scheduled)
	if err != nil {
		slog.Error("SQLiteStore CreateServiceRequest failed", "error", err, "serial", r.SerialNumber)
		return fmt.Errorf("failed to insert service request: %w", err)
	}
	slog.Debug("SQLiteStore CreateServiceRequest succeeded", "serial", r.SerialNumber, "status", r.Status)
	return nil
}
