// Package api provides the HTTP server for the consulting workflow service.
//
// Every user action of the workflow is an endpoint; responses use the JSON
// envelope from the models package. The server owns the store, the
// assistant client and the single session instance.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vesyn/consult/internal/assistant"
	"github.com/vesyn/consult/internal/catalog"
	"github.com/vesyn/consult/internal/store"
	"github.com/vesyn/consult/internal/workflow"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// Server hosts the HTTP endpoints and the session they operate on.
type Server struct {
	addr    string
	session *workflow.Session
}

// NewServer creates a server around an existing session.
func NewServer(session *workflow.Session, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{addr: cfg.Addr, session: session}
}

// Run builds the full module stack from options and serves until the
// listener fails. The store backend is chosen by DSN; with no DSN state
// lives in memory only.
func Run(storeOpts []store.Option, assistantOpts []assistant.Option, apiOpts []Option) error {
	var storeCfg store.Opts
	for _, opt := range storeOpts {
		opt(&storeCfg)
	}

	var st store.Store
	var err error
	switch {
	case storeCfg.DSN == "":
		slog.Info("api.Run: no DSN configured, using in-memory store")
		st = store.NewInMemoryStore()
	case store.DetectDSNType(storeCfg.DSN) == "postgres":
		slog.Info("api.Run: using PostgreSQL store")
		st, err = store.NewPostgresStore(storeOpts...)
	default:
		slog.Info("api.Run: using SQLite store", "path", storeCfg.DSN)
		st, err = store.NewSQLiteStore(storeOpts...)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	client, err := assistant.NewClient(assistantOpts...)
	if err != nil {
		return fmt.Errorf("failed to initialize assistant: %w", err)
	}

	session := workflow.New(st, client)
	session.Restore(context.Background())

	srv := NewServer(session, apiOpts...)
	slog.Info("api.Run: starting HTTP server", "addr", srv.addr, "domains", len(catalog.Domains()))
	return srv.ListenAndServe()
}

// ListenAndServe registers the routes and blocks serving HTTP.
func (s *Server) ListenAndServe() error {
	return http.ListenAndServe(s.addr, s.Handler())
}

// Handler returns the route multiplexer. Split out so tests can drive the
// server through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/domains", s.domainsHandler)
	mux.HandleFunc("/session", s.sessionHandler)
	mux.HandleFunc("/session/domain", s.selectDomainHandler)
	mux.HandleFunc("/session/form", s.formFieldHandler)
	mux.HandleFunc("/session/submit", s.submitFormHandler)
	mux.HandleFunc("/session/answer", s.answerHandler)
	mux.HandleFunc("/session/back", s.backHandler)
	mux.HandleFunc("/session/report/refine", s.refineReportHandler)
	mux.HandleFunc("/session/proceed", s.proceedHandler)
	mux.HandleFunc("/session/artifact/refine", s.refineArtifactHandler)
	mux.HandleFunc("/session/consultant", s.startConsultantHandler)
	mux.HandleFunc("/session/consultant/message", s.consultantMessageHandler)
	mux.HandleFunc("/session/consultant/plan", s.consultantPlanHandler)
	mux.HandleFunc("/session/consultant/exit", s.exitConsultantHandler)
	mux.HandleFunc("/session/home", s.homeHandler)
	mux.HandleFunc("/session/resume", s.resumeHandler)
	mux.HandleFunc("/history", s.historyHandler)
	mux.HandleFunc("/history/open", s.openHistoryHandler)
	return mux
}
