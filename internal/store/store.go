// Package store provides storage backends for the consulting workflow
// service.
//
// Two independent durable records are kept: the single-slot snapshot of the
// in-progress session, and the append-ordered collection of completed
// sessions. Backends: in-memory (tests and default), SQLite and PostgreSQL.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/vesyn/consult/internal/models"
)

// Store defines the persistence operations used by the workflow layer.
// Snapshot operations act on a single fixed slot: Save overwrites, Get
// returns nil when the slot is empty, Delete clears it. The session
// collection is rewritten in full on every change; there is no per-entry
// deletion.
type Store interface {
	GetSnapshot() (*models.SessionSnapshot, error)
	SaveSnapshot(snap models.SessionSnapshot) error
	DeleteSnapshot() error

	ListSessions() ([]models.HistorySession, error)
	SaveSessions(sessions []models.HistorySession) error
	ClearSessions() error

	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store constructors.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType reports which backend a DSN belongs to: "postgres" for
// URL-style or key=value connection strings, "sqlite" for file paths.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// snapshotSlot is the fixed key for the single in-progress session snapshot.
const snapshotSlot = "active"

// InMemoryStore keeps everything in process memory. Used by tests and as
// the default when no DSN is configured.
type InMemoryStore struct {
	mu       sync.Mutex
	snapshot *models.SessionSnapshot
	sessions []models.HistorySession
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// GetSnapshot returns a copy of the stored snapshot, or nil if none exists.
func (s *InMemoryStore) GetSnapshot() (*models.SessionSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return nil, nil
	}
	snap := *s.snapshot
	return &snap, nil
}

// SaveSnapshot overwrites the snapshot slot.
func (s *InMemoryStore) SaveSnapshot(snap models.SessionSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}
	s.snapshot = &snap
	return nil
}

// DeleteSnapshot clears the snapshot slot.
func (s *InMemoryStore) DeleteSnapshot() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	return nil
}

// ListSessions returns the archived sessions, most recent first.
func (s *InMemoryStore) ListSessions() ([]models.HistorySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.HistorySession, len(s.sessions))
	copy(out, s.sessions)
	return out, nil
}

// SaveSessions replaces the archived session collection.
func (s *InMemoryStore) SaveSessions(sessions []models.HistorySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make([]models.HistorySession, len(sessions))
	copy(s.sessions, sessions)
	return nil
}

// ClearSessions removes all archived sessions.
func (s *InMemoryStore) ClearSessions() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = nil
	return nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
