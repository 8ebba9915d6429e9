// Package api assembles the service components and runs the HTTP server.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/vet-eye/serviceflow/internal/dialog"
	"github.com/vet-eye/serviceflow/internal/genai"
	"github.com/vet-eye/serviceflow/internal/knowledge"
	"github.com/vet-eye/serviceflow/internal/notify"
	"github.com/vet-eye/serviceflow/internal/schedule"
	"github.com/vet-eye/serviceflow/internal/session"
	"github.com/vet-eye/serviceflow/internal/store"
)

// Opts holds server settings.
type Opts struct {
	Addr         string
	KnowledgeDir string
	Timezone     string
}

// Option configures the server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithKnowledgeDir sets the directory holding the knowledge-base JSON files.
func WithKnowledgeDir(dir string) Option {
	return func(o *Opts) {
		o.KnowledgeDir = dir
	}
}

// WithTimezone sets the scheduler timezone name.
func WithTimezone(tz string) Option {
	return func(o *Opts) {
		o.Timezone = tz
	}
}

// Run builds the store, knowledge base, scheduler, phraser and notifier from
// the given option sets, then serves the conversation API. It blocks until
// the server stops.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, notifyOpts []notify.Option, apiOpts []Option) error {
	cfg := Opts{Addr: ":8080", KnowledgeDir: "data"}
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	st, err := store.New(storeOpts...)
	if err != nil {
		slog.Error("API Run store initialization failed", "error", err)
		return err
	}

	kb := knowledge.Load(cfg.KnowledgeDir)

	var schedOpts []schedule.Option
	if cfg.Timezone != "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			slog.Error("API Run invalid timezone", "timezone", cfg.Timezone, "error", err)
			return err
		}
		schedOpts = append(schedOpts, schedule.WithLocation(loc))
	}
	scheduler := schedule.NewScheduler(st, schedOpts...)

	phraser, err := genai.NewClient(genaiOpts...)
	if err != nil {
		slog.Error("API Run GenAI initialization failed", "error", err)
		return err
	}

	var notifier notify.Notifier
	tn, err := notify.NewTwilioNotifier(notifyOpts...)
	if err != nil {
		slog.Warn("API Run SMS notifications disabled", "error", err)
		notifier = notify.NoopNotifier{}
	} else {
		notifier = tn
	}

	engine := dialog.NewEngine(st, kb, scheduler, phraser, notifier)
	server := NewServer(engine, session.NewRegistry())

	mux := http.NewServeMux()
	server.Routes(mux)

	slog.Info("API Run starting server", "addr", cfg.Addr)
	return http.ListenAndServe(cfg.Addr, mux)
}
