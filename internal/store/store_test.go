package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vesyn/consult/internal/models"
)

func sampleSnapshot() models.SessionSnapshot {
	return models.SessionSnapshot{
		Version:  models.SnapshotVersion,
		Phase:    models.PhaseInquiry,
		DomainID: "OD",
		FormData: models.FormData{
			Industry:     "互联网/AI",
			CurrentState: "汇报关系混乱",
			FutureState:  "组织扁平化",
		},
		CurrentStep: &models.InquiryStep{
			Question: "决策流程中哪一环最慢?",
			Options:  []string{"审批层级多", "信息不透明"},
		},
	}
}

func sampleSession(id string) models.HistorySession {
	return models.HistorySession{
		ID:               id,
		Timestamp:        1700000000,
		DomainID:         "OD",
		DomainTitle:      "组织效能 (OD)",
		SubTaskLabel:     "组织诊断 (Organization Diagnostic)",
		GeneratedContent: "# 指令集",
	}
}

func testStoreContract(t *testing.T, s Store) {
	t.Helper()

	snap, err := s.GetSnapshot()
	if err != nil {
		t.Fatalf("GetSnapshot on empty store: %v", err)
	}
	if snap != nil {
		t.Fatal("expected nil snapshot on empty store")
	}

	want := sampleSnapshot()
	if err := s.SaveSnapshot(want); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	got, err := s.GetSnapshot()
	if err != nil {
		t.Fatalf("GetSnapshot: %v", err)
	}
	if got == nil {
		t.Fatal("expected snapshot after save")
	}
	if got.Phase != want.Phase || got.DomainID != want.DomainID || got.FormData != want.FormData {
		t.Errorf("snapshot not round-tripped: %+v", got)
	}
	if got.CurrentStep == nil || got.CurrentStep.Question != want.CurrentStep.Question {
		t.Errorf("current step not round-tripped: %+v", got.CurrentStep)
	}

	// Overwrite semantics: the slot holds exactly one snapshot.
	want.Phase = models.PhaseResult
	if err := s.SaveSnapshot(want); err != nil {
		t.Fatalf("SaveSnapshot overwrite: %v", err)
	}
	got, _ = s.GetSnapshot()
	if got.Phase != models.PhaseResult {
		t.Errorf("expected overwritten phase RESULT, got %s", got.Phase)
	}

	if err := s.DeleteSnapshot(); err != nil {
		t.Fatalf("DeleteSnapshot: %v", err)
	}
	got, _ = s.GetSnapshot()
	if got != nil {
		t.Error("expected nil snapshot after delete")
	}

	sessions, err := s.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions on empty store: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected empty session list, got %d", len(sessions))
	}

	all := []models.HistorySession{sampleSession("b"), sampleSession("a")}
	if err := s.SaveSessions(all); err != nil {
		t.Fatalf("SaveSessions: %v", err)
	}
	sessions, err = s.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 2 || sessions[0].ID != "b" || sessions[1].ID != "a" {
		t.Errorf("session order not preserved: %+v", sessions)
	}

	// Full rewrite replaces, never appends.
	if err := s.SaveSessions([]models.HistorySession{sampleSession("c")}); err != nil {
		t.Fatalf("SaveSessions rewrite: %v", err)
	}
	sessions, _ = s.ListSessions()
	if len(sessions) != 1 || sessions[0].ID != "c" {
		t.Errorf("expected single session c after rewrite, got %+v", sessions)
	}

	if err := s.ClearSessions(); err != nil {
		t.Fatalf("ClearSessions: %v", err)
	}
	sessions, _ = s.ListSessions()
	if len(sessions) != 0 {
		t.Error("expected no sessions after clear")
	}
}

func TestInMemoryStore(t *testing.T) {
	testStoreContract(t, NewInMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "consult.db")
	s, err := NewSQLiteStore(WithSQLiteDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()
	testStoreContract(t, s)
}

func TestSQLiteStoreCorruptSnapshot(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "consult.db")
	s, err := NewSQLiteStore(WithSQLiteDSN(dsn))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	if _, err := s.db.Exec(`INSERT INTO session_snapshots (slot, data) VALUES (?, ?)`, snapshotSlot, "{not json"); err != nil {
		t.Fatalf("seed corrupt row: %v", err)
	}
	snap, err := s.GetSnapshot()
	if err != nil {
		t.Fatalf("corrupt snapshot must not surface an error: %v", err)
	}
	if snap != nil {
		t.Error("corrupt snapshot must be treated as absent")
	}
}

func TestPostgresStore(t *testing.T) {
	// Requires a running PostgreSQL instance; set DATABASE_URL to run.
	connStr := getenvOrSkip(t, "DATABASE_URL")
	pgStore, err := NewPostgresStore(WithPostgresDSN(connStr))
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer pgStore.Close()
	pgStore.db.Exec("DELETE FROM session_snapshots")
	pgStore.db.Exec("DELETE FROM history_sessions")
	testStoreContract(t, pgStore)
}

func TestDetectDSNType(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost/db":     "postgres",
		"postgresql://u:p@localhost/db":   "postgres",
		"host=localhost dbname=consult":   "postgres",
		"/var/lib/consult/consult.db":     "sqlite",
		"consult.db":                      "sqlite",
	}
	for dsn, want := range cases {
		if got := DetectDSNType(dsn); got != want {
			t.Errorf("DetectDSNType(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func getenvOrSkip(t *testing.T, key string) string {
	v := os.Getenv(key)
	if v == "" {
		t.Skipf("env %s not set", key)
	}
	return v
}
