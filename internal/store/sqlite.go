// Package store provides storage backends for the consulting workflow
// service.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/vesyn/consult/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists snapshots and archived sessions in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN. The DSN is
// a file path; its directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: creating store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("SQLiteStore failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("SQLiteStore failed to open connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLiteStore ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("SQLiteStore failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore migrations applied")

	return &SQLiteStore{db: db}, nil
}

// GetSnapshot reads the single snapshot slot. A missing row or corrupt JSON
// payload is treated as absence of data; corruption is logged, never
// propagated to the caller.
func (s *SQLiteStore) GetSnapshot() (*models.SessionSnapshot, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM session_snapshots WHERE slot = ?`, snapshotSlot).Scan(&data)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore.GetSnapshot: no snapshot stored")
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetSnapshot: query failed", "error", err)
		return nil, fmt.Errorf("failed to query session snapshot: %w", err)
	}
	var snap models.SessionSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		slog.Error("SQLiteStore.GetSnapshot: corrupt snapshot JSON, treating as absent", "error", err)
		return nil, nil
	}
	return &snap, nil
}

// SaveSnapshot overwrites the single snapshot slot.
func (s *SQLiteStore) SaveSnapshot(snap models.SessionSnapshot) error {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("SQLiteStore.SaveSnapshot: JSON marshal failed", "error", err)
		return fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO session_snapshots (slot, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		snapshotSlot, string(data), snap.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore.SaveSnapshot: upsert failed", "error", err)
		return fmt.Errorf("failed to save session snapshot: %w", err)
	}
	slog.Debug("SQLiteStore.SaveSnapshot: succeeded", "phase", snap.Phase)
	return nil
}

// DeleteSnapshot clears the snapshot slot.
func (s *SQLiteStore) DeleteSnapshot() error {
	_, err := s.db.Exec(`DELETE FROM session_snapshots WHERE slot = ?`, snapshotSlot)
	if err != nil {
		slog.Error("SQLiteStore.DeleteSnapshot: delete failed", "error", err)
		return fmt.Errorf("failed to delete session snapshot: %w", err)
	}
	slog.Debug("SQLiteStore.DeleteSnapshot: succeeded")
	return nil
}

// ListSessions returns the archived sessions ordered most recent first.
// Individual rows with corrupt JSON are skipped with a log entry.
func (s *SQLiteStore) ListSessions() ([]models.HistorySession, error) {
	rows, err := s.db.Query(`SELECT data FROM history_sessions ORDER BY position ASC`)
	if err != nil {
		slog.Error("SQLiteStore.ListSessions: query failed", "error", err)
		return nil, fmt.Errorf("failed to query history sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.HistorySession
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			slog.Error("SQLiteStore.ListSessions: scan failed", "error", err)
			return nil, fmt.Errorf("failed to scan history session row: %w", err)
		}
		var sess models.HistorySession
		if err := json.Unmarshal([]byte(data), &sess); err != nil {
			slog.Error("SQLiteStore.ListSessions: corrupt session JSON, skipping row", "error", err)
			continue
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore.ListSessions: rows iteration failed", "error", err)
		return nil, fmt.Errorf("failed to iterate history session rows: %w", err)
	}
	slog.Debug("SQLiteStore.ListSessions: succeeded", "count", len(sessions))
	return sessions, nil
}

// SaveSessions rewrites the full archived collection in one transaction.
func (s *SQLiteStore) SaveSessions(sessions []models.HistorySession) error {
	tx, err := s.db.Begin()
	if err != nil {
		slog.Error("SQLiteStore.SaveSessions: begin failed", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM history_sessions`); err != nil {
		slog.Error("SQLiteStore.SaveSessions: clear failed", "error", err)
		return fmt.Errorf("failed to clear history sessions: %w", err)
	}
	for i, sess := range sessions {
		data, err := json.Marshal(sess)
		if err != nil {
			slog.Error("SQLiteStore.SaveSessions: JSON marshal failed", "error", err, "id", sess.ID)
			return fmt.Errorf("failed to marshal history session %s: %w", sess.ID, err)
		}
		if _, err := tx.Exec(`INSERT INTO history_sessions (id, position, data) VALUES (?, ?, ?)`,
			sess.ID, i, string(data)); err != nil {
			slog.Error("SQLiteStore.SaveSessions: insert failed", "error", err, "id", sess.ID)
			return fmt.Errorf("failed to insert history session %s: %w", sess.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		slog.Error("SQLiteStore.SaveSessions: commit failed", "error", err)
		return fmt.Errorf("failed to commit history sessions: %w", err)
	}
	slog.Debug("SQLiteStore.SaveSessions: succeeded", "count", len(sessions))
	return nil
}

// ClearSessions removes all archived sessions.
func (s *SQLiteStore) ClearSessions() error {
	_, err := s.db.Exec(`DELETE FROM history_sessions`)
	if err != nil {
		slog.Error("SQLiteStore.ClearSessions: delete failed", "error", err)
		return fmt.Errorf("failed to clear history sessions: %w", err)
	}
	slog.Debug("SQLiteStore.ClearSessions: succeeded")
	return nil
}

// Close closes the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
