// Package store provides storage backends for the consulting workflow
// service.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/vesyn/consult/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants.
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database.
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool.
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused.
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists snapshots and archived sessions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("PostgresStore failed to open connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("PostgresStore ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("PostgresStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore migrations applied")

	return &PostgresStore{db: db}, nil
}

// GetSnapshot reads the single snapshot slot. Corrupt JSON is logged and
// treated as absence of data.
func (s *PostgresStore) GetSnapshot() (*models.SessionSnapshot, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM session_snapshots WHERE slot = $1`, snapshotSlot).Scan(&data)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore.GetSnapshot: no snapshot stored")
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetSnapshot: query failed", "error", err)
		return nil, fmt.Errorf("failed to query session snapshot: %w", err)
	}
	var snap models.SessionSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		slog.Error("PostgresStore.GetSnapshot: corrupt snapshot JSON, treating as absent", "error", err)
		return nil, nil
	}
	return &snap, nil
}

// SaveSnapshot overwrites the single snapshot slot.
func (s *PostgresStore) SaveSnapshot(snap models.SessionSnapshot) error {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("PostgresStore.SaveSnapshot: JSON marshal failed", "error", err)
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO session_snapshots (slot, data, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (slot) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		snapshotSlot, string(data), snap.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore.SaveSnapshot: upsert failed", "error", err)
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}
	slog.Debug("PostgresStore.SaveSnapshot: succeeded", "phase", snap.Phase)
	return nil
}

// DeleteSnapshot clears the snapshot slot.
func (s *PostgresStore) DeleteSnapshot() error {
	_, err := s.db.Exec(`DELETE FROM session_snapshots WHERE slot = $1`, snapshotSlot)
	if err != nil {
		slog.Error("PostgresStore.DeleteSnapshot: delete failed", "error", err)
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}
	slog.Debug("PostgresStore.DeleteSnapshot: succeeded")
	return nil
}

// ListSessions returns the archived sessions ordered most recent first.
func (s *PostgresStore) ListSessions() ([]models.HistorySession, error) {
	rows, err := s.db.Query(`SELECT data FROM history_sessions ORDER BY position ASC`)
	if err != nil {
		slog.Error("PostgresStore.ListSessions: query failed", "error", err)
		return nil, fmt.Errorf("failed to query history sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.HistorySession
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			slog.Error("PostgresStore.ListSessions: scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan history session row: %w", err)
		}
		var sess models.HistorySession
		if err := json.Unmarshal([]byte(data), &sess); err != nil {
			slog.Error("PostgresStore.ListSessions: corrupt session JSON, skipping row", "error", err)
			continue
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore.ListSessions: rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate history session rows: %w", err)
	}
	slog.Debug("PostgresStore.ListSessions: succeeded", "count", len(sessions))
	return sessions, nil
}

// SaveSessions rewrites the full archived collection in one transaction.
func (s *PostgresStore) SaveSessions(sessions []models.HistorySession) error {
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("PostgresStore.SaveSessions: begin failed", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM history_sessions`); err != nil {
		slog.Error("PostgresStore.SaveSessions: clear failed", "error", err)
		return fmt.Errorf("failed to clear history sessions: %w", err)
	}
	for i, sess := range sessions {
		data, err := json.Marshal(sess)
		if err != nil {
			slog.Error("PostgresStore.SaveSessions: JSON marshal failed", "error", err, "id", sess.ID)
			return fmt.Errorf("failed to marshal history session %s: %w", sess.ID, err)
		}
		if _, err := tx.Exec(`INSERT INTO history_sessions (id, position, data) VALUES ($1, $2, $3)`,
			sess.ID, i, string(data)); err != nil {
			slog.Error("PostgresStore.SaveSessions: insert failed", "error", err, "id", sess.ID)
			return fmt.Errorf("failed to insert history session %s: %w", sess.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		slog.Error("PostgresStore.SaveSessions: commit failed", "error", err)
		return fmt.Errorf("failed to commit history sessions: %w", err)
	}
	slog.Debug("PostgresStore.SaveSessions: succeeded", "count", len(sessions))
	return nil
}

// ClearSessions removes all archived sessions.
func (s *PostgresStore) ClearSessions() error {
	_, err := s.db.Exec(`DELETE FROM history_sessions`)
	if err != nil {
		slog.Error("PostgresStore.ClearSessions: delete failed", "error", err)
		return fmt.Errorf("failed to clear history sessions: %w", err)
	}
	slog.Debug("PostgresStore.ClearSessions: succeeded")
	return nil
}

// Close closes the underlying database handle.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
