// Package schedule proposes and validates service appointment slots.
package schedule

import (
	"context"
	"log/slog"
	"time"
)

const (
	// Proposal window: ten calendar days after the reference day.
	proposalDays = 10
	// Working hours for generated proposals, inclusive start hour.
	firstHour = 8
	lastHour  = 17
	// Business hours for preferred-time matching, exclusive end.
	nearOpenHour  = 9
	nearCloseHour = 17
)

// BookingReader is the slice of the store the scheduler needs.
type BookingReader interface {
	ListBookedTimes(ctx context.Context) ([]time.Time, error)
}

// Opts holds configurable scheduler settings.
type Opts struct {
	Location *time.Location
	Now      func() time.Time
}

// Option configures the scheduler.
type Option func(*Opts)

// WithLocation sets the timezone used for slot arithmetic.
func WithLocation(loc *time.Location) Option {
	return func(o *Opts) {
		o.Location = loc
	}
}

// WithNow overrides the clock. Used by tests.
func WithNow(now func() time.Time) Option {
	return func(o *Opts) {
		o.Now = now
	}
}

// Scheduler generates free appointment slots against booked times.
type Scheduler struct {
	bookings BookingReader
	loc      *time.Location
	now      func() time.Time
}

// NewScheduler creates a scheduler over the given booking source. The default
// timezone is Europe/Warsaw; if that zone cannot be loaded, local time is used.
func NewScheduler(bookings BookingReader, opts ...Option) *Scheduler {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Location == nil {
		loc, err := time.LoadLocation("Europe/Warsaw")
		if err != nil {
			slog.Warn("NewScheduler failed to load default timezone, using local", "error", err)
			loc = time.Local
		}
		cfg.Location = loc
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{bookings: bookings, loc: cfg.Location, now: cfg.Now}
}

// Location returns the scheduler's timezone.
func (s *Scheduler) Location() *time.Location {
	return s.loc
}

// GenerateSlots returns free hourly slots over the ten weekdays following
// from; weekends are skipped. The second return value holds the same slots
// formatted for display, index-aligned with the first.
func (s *Scheduler) GenerateSlots(ctx context.Context, from time.Time) ([]time.Time, []string, error) {
	booked, err := s.bookings.ListBookedTimes(ctx)
	if err != nil {
		slog.Error("Scheduler GenerateSlots failed to list booked times", "error", err)
		return nil, nil, err
	}
	taken := s.bookedSet(booked)

	from = from.In(s.loc)
	var slots []time.Time
	var formatted []string
	for day := 1; day <= proposalDays; day++ {
		date := from.AddDate(0, 0, day)
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			continue
		}
		for hour := firstHour; hour <= lastHour; hour++ {
			slot := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, s.loc)
			if taken[s.slotKey(slot)] {
				continue
			}
			slots = append(slots, slot)
			formatted = append(formatted, FormatSlot(slot))
		}
	}
	slog.Debug("Scheduler GenerateSlots succeeded", "count", len(slots), "from", from)
	return slots, formatted, nil
}

// FindNear returns free slots within hoursRange hours of preferred, clamped
// to business hours. Minutes are dropped so matching is hour-aligned.
func (s *Scheduler) FindNear(ctx context.Context, preferred time.Time, hoursRange int) ([]time.Time, error) {
	booked, err := s.bookings.ListBookedTimes(ctx)
	if err != nil {
		slog.Error("Scheduler FindNear failed to list booked times", "error", err)
		return nil, err
	}
	taken := s.bookedSet(booked)

	preferred = preferred.In(s.loc)
	base := time.Date(preferred.Year(), preferred.Month(), preferred.Day(), preferred.Hour(), 0, 0, 0, s.loc)

	var slots []time.Time
	for offset := -hoursRange; offset <= hoursRange; offset++ {
		slot := base.Add(time.Duration(offset) * time.Hour)
		if slot.Hour() < nearOpenHour || slot.Hour() >= nearCloseHour {
			continue
		}
		if slot.Weekday() == time.Saturday || slot.Weekday() == time.Sunday {
			continue
		}
		if taken[s.slotKey(slot)] {
			continue
		}
		slots = append(slots, slot)
	}
	slog.Debug("Scheduler FindNear succeeded", "count", len(slots), "preferred", preferred)
	return slots, nil
}

type slotKey struct {
	year  int
	month time.Month
	day   int
	hour  int
}

func (s *Scheduler) slotKey(t time.Time) slotKey {
	t = t.In(s.loc)
	return slotKey{year: t.Year(), month: t.Month(), day: t.Day(), hour: t.Hour()}
}

func (s *Scheduler) bookedSet(booked []time.Time) map[slotKey]bool {
	taken := make(map[slotKey]bool, len(booked))
	for _, t := range booked {
		taken[s.slotKey(t)] = true
	}
	return taken
}
