package workflow

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/vesyn/consult/internal/models"
	"github.com/vesyn/consult/internal/store"
)

// mockAssistant implements assistant.Client with scripted responses.
type mockAssistant struct {
	mu          sync.Mutex
	steps       []models.InquiryStep
	stepCalls   int
	lastHistory []models.InquiryHistoryItem
	report      string
	artifact    string
	refined     string
	reply       string
	replyErr    error
	stepGate    chan struct{} // when set, NextInquiryStep blocks until closed
}

func (m *mockAssistant) NextInquiryStep(ctx context.Context, domainTitle, subTaskLabel string, form models.FormData, history []models.InquiryHistoryItem) models.InquiryStep {
	if m.stepGate != nil {
		<-m.stepGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastHistory = append([]models.InquiryHistoryItem(nil), history...)
	i := m.stepCalls
	m.stepCalls++
	if i >= len(m.steps) {
		i = len(m.steps) - 1
	}
	return m.steps[i]
}

func (m *mockAssistant) SynthesizeReport(ctx context.Context, domainTitle string, form models.FormData, history []models.InquiryHistoryItem) string {
	return m.report
}

func (m *mockAssistant) RefineReport(ctx context.Context, currentReport, instruction string) string {
	return m.refined
}

func (m *mockAssistant) GenerateArtifact(ctx context.Context, domainTitle, methodology, mentalModel, subTaskLabel string, form models.FormData, report string) string {
	return m.artifact
}

func (m *mockAssistant) RefineArtifact(ctx context.Context, currentArtifact string, r models.Refinement) string {
	return m.refined
}

func (m *mockAssistant) Reply(ctx context.Context, systemInstruction string, transcript []models.ChatMessage, message string) (string, error) {
	return m.reply, m.replyErr
}

func (m *mockAssistant) stepCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stepCalls
}

// recordingStore counts snapshot writes on top of the in-memory backend.
type recordingStore struct {
	*store.InMemoryStore
	mu    sync.Mutex
	saves int
}

func (r *recordingStore) SaveSnapshot(snap models.SessionSnapshot) error {
	r.mu.Lock()
	r.saves++
	r.mu.Unlock()
	return r.InMemoryStore.SaveSnapshot(snap)
}

func (r *recordingStore) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func questionStep(q string) models.InquiryStep {
	return models.InquiryStep{Question: q, Options: []string{"选项 A", "选项 B"}}
}

func completeStep() models.InquiryStep {
	return models.InquiryStep{Question: "够了", IsComplete: true}
}

func defaultMock() *mockAssistant {
	return &mockAssistant{
		steps:    []models.InquiryStep{questionStep("第一个问题？"), questionStep("第二个问题？"), questionStep("第三个问题？"), questionStep("第四个问题？")},
		report:   "诊断报告正文",
		artifact: "生成的执行指令",
		refined:  "调整后的文本",
		reply:    "小唯的回复",
	}
}

func fillForm(t *testing.T, s *Session) {
	t.Helper()
	for field, value := range map[string]string{
		FieldIndustry:     "互联网/AI",
		FieldCurrentState: "汇报关系混乱",
		FieldFutureState:  "组织扁平化",
	} {
		if err := s.SetFormField(context.Background(), field, value); err != nil {
			t.Fatalf("SetFormField(%s) failed: %v", field, err)
		}
	}
}

// startInquiry drives a fresh session to the inquiry phase.
func startInquiry(t *testing.T, s *Session) {
	t.Helper()
	if err := s.SelectDomain(context.Background(), "OD", ""); err != nil {
		t.Fatalf("SelectDomain failed: %v", err)
	}
	fillForm(t, s)
	if err := s.SubmitForm(context.Background()); err != nil {
		t.Fatalf("SubmitForm failed: %v", err)
	}
	if got := s.View().Phase; got != models.PhaseInquiry {
		t.Fatalf("expected phase %s, got %s", models.PhaseInquiry, got)
	}
}

func TestSelectDomainIdempotent(t *testing.T) {
	s := New(store.NewInMemoryStore(), defaultMock())
	startInquiry(t, s)
	before := s.View()

	if err := s.SelectDomain(context.Background(), "OD", ""); err != nil {
		t.Fatalf("re-selecting active domain failed: %v", err)
	}
	after := s.View()
	if after.Phase != before.Phase {
		t.Errorf("expected phase unchanged, got %s", after.Phase)
	}
	if after.FormData != before.FormData {
		t.Errorf("expected form data preserved, got %+v", after.FormData)
	}
	if len(after.InquiryHistory) != len(before.InquiryHistory) {
		t.Errorf("expected history preserved")
	}

	// From the dashboard, re-selection lands on input instead.
	s.GoHome(context.Background())
	if err := s.SelectDomain(context.Background(), "OD", ""); err != nil {
		t.Fatalf("re-selecting from dashboard failed: %v", err)
	}
	if got := s.View().Phase; got != models.PhaseInput {
		t.Errorf("expected phase %s after dashboard re-select, got %s", models.PhaseInput, got)
	}
}

func TestSelectDomainSwitchResets(t *testing.T) {
	s := New(store.NewInMemoryStore(), defaultMock())
	startInquiry(t, s)
	if err := s.SubmitAnswer(context.Background(), "已选情况：决策流程太长"); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	if err := s.SelectDomain(context.Background(), "SP", ""); err != nil {
		t.Fatalf("switching domain failed: %v", err)
	}
	v := s.View()
	if v.Phase != models.PhaseInput {
		t.Errorf("expected phase %s, got %s", models.PhaseInput, v.Phase)
	}
	if v.Domain == nil || v.Domain.ID != "SP" {
		t.Errorf("expected domain SP, got %+v", v.Domain)
	}
	if v.FormData != (models.FormData{}) {
		t.Errorf("expected empty form after switch, got %+v", v.FormData)
	}
	if len(v.InquiryHistory) != 0 || v.CurrentStep != nil {
		t.Errorf("expected empty inquiry state after switch")
	}
	if v.DiagnosticReport != "" || v.GeneratedContent != "" {
		t.Errorf("expected empty report and artifact after switch")
	}
}

func TestHistoryMonotonicity(t *testing.T) {
	s := New(store.NewInMemoryStore(), defaultMock())
	startInquiry(t, s)

	for n := 1; n <= 3; n++ {
		if got := s.View().QuestionOrdinal; got != n {
			t.Errorf("expected ordinal %d before submission, got %d", n, got)
		}
		if err := s.SubmitAnswer(context.Background(), "答案"); err != nil {
			t.Fatalf("SubmitAnswer %d failed: %v", n, err)
		}
		if got := len(s.View().InquiryHistory); got != n {
			t.Errorf("expected history length %d, got %d", n, got)
		}
	}
}

func TestStepBackRestoresAnsweredStep(t *testing.T) {
	s := New(store.NewInMemoryStore(), defaultMock())
	startInquiry(t, s)

	before := s.View()
	if err := s.SubmitAnswer(context.Background(), "选项 A"); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if err := s.StepBack(context.Background()); err != nil {
		t.Fatalf("StepBack failed: %v", err)
	}

	after := s.View()
	if !reflect.DeepEqual(after.CurrentStep, before.CurrentStep) {
		t.Errorf("expected restored step %+v, got %+v", before.CurrentStep, after.CurrentStep)
	}
	if len(after.InquiryHistory) != len(before.InquiryHistory) {
		t.Errorf("expected history length %d, got %d", len(before.InquiryHistory), len(after.InquiryHistory))
	}
	if after.Phase != models.PhaseInquiry {
		t.Errorf("expected phase %s, got %s", models.PhaseInquiry, after.Phase)
	}
}

func TestStepBackWithEmptyHistoryReturnsToInput(t *testing.T) {
	s := New(store.NewInMemoryStore(), defaultMock())
	startInquiry(t, s)

	if err := s.StepBack(context.Background()); err != nil {
		t.Fatalf("StepBack failed: %v", err)
	}
	v := s.View()
	if v.Phase != models.PhaseInput {
		t.Errorf("expected phase %s, got %s", models.PhaseInput, v.Phase)
	}
	if v.CurrentStep != nil {
		t.Errorf("expected no current step")
	}
}

func TestNoAutosaveOnEmptyDashboard(t *testing.T) {
	st := &recordingStore{InMemoryStore: store.NewInMemoryStore()}
	s := New(st, defaultMock())

	s.View()
	s.GoHome(context.Background())
	if got := st.saveCount(); got != 0 {
		t.Errorf("expected no snapshot writes on empty dashboard, got %d", got)
	}

	if err := s.SelectDomain(context.Background(), "OD", ""); err != nil {
		t.Fatalf("SelectDomain failed: %v", err)
	}
	if got := st.saveCount(); got == 0 {
		t.Error("expected a snapshot write after domain selection")
	}
}

func TestFullHappyPath(t *testing.T) {
	mock := defaultMock()
	mock.steps = []models.InquiryStep{questionStep("决策哪里堵住了？"), completeStep()}
	st := store.NewInMemoryStore()
	s := New(st, mock)

	if err := s.SelectDomain(context.Background(), "OD", ""); err != nil {
		t.Fatalf("SelectDomain failed: %v", err)
	}
	fillForm(t, s)
	if err := s.SubmitForm(context.Background()); err != nil {
		t.Fatalf("SubmitForm failed: %v", err)
	}
	if err := s.SubmitAnswer(context.Background(), "已选情况：决策流程太长"); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	v := s.View()
	if v.Phase != models.PhaseDiagnosticReport {
		t.Fatalf("expected phase %s after inquiry completion, got %s", models.PhaseDiagnosticReport, v.Phase)
	}
	if v.DiagnosticReport != mock.report {
		t.Errorf("expected report %q, got %q", mock.report, v.DiagnosticReport)
	}

	if err := s.Proceed(context.Background()); err != nil {
		t.Fatalf("Proceed failed: %v", err)
	}
	v = s.View()
	if v.Phase != models.PhaseResult {
		t.Fatalf("expected phase %s, got %s", models.PhaseResult, v.Phase)
	}
	if v.GeneratedContent != mock.artifact {
		t.Errorf("expected artifact %q, got %q", mock.artifact, v.GeneratedContent)
	}

	sessions, err := s.History(context.Background())
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 archived session, got %d", len(sessions))
	}
	if sessions[0].DomainID != "OD" {
		t.Errorf("expected archived domainId OD, got %s", sessions[0].DomainID)
	}
	if sessions[0].GeneratedContent != mock.artifact {
		t.Errorf("expected archived content %q, got %q", mock.artifact, sessions[0].GeneratedContent)
	}
	if sessions[0].ID == "" {
		t.Error("expected archived session to have an id")
	}
}

func TestDiscardMidSession(t *testing.T) {
	st := store.NewInMemoryStore()
	s := New(st, defaultMock())
	startInquiry(t, s)
	if err := s.SubmitAnswer(context.Background(), "答案"); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}

	if err := s.Discard(context.Background()); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	v := s.View()
	if v.Phase != models.PhaseDashboard {
		t.Errorf("expected phase %s, got %s", models.PhaseDashboard, v.Phase)
	}
	if v.Domain != nil {
		t.Errorf("expected no domain after discard")
	}
	if v.FormData != (models.FormData{}) {
		t.Errorf("expected empty form after discard")
	}

	snap, err := st.GetSnapshot()
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if snap != nil {
		t.Error("expected snapshot slot to be empty after discard")
	}
}

func TestResumeAfterRestart(t *testing.T) {
	st := store.NewInMemoryStore()
	mock := defaultMock()
	mock.steps = []models.InquiryStep{questionStep("问题？"), completeStep()}
	s := New(st, mock)
	startInquiry(t, s)
	if err := s.SubmitAnswer(context.Background(), "答案"); err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	report := s.View().DiagnosticReport
	if report == "" {
		t.Fatal("expected non-empty report before restart")
	}

	restarted := New(st, defaultMock())
	restarted.Restore(context.Background())

	v := restarted.View()
	if v.Phase != models.PhaseDiagnosticReport {
		t.Errorf("expected restored phase %s, got %s", models.PhaseDiagnosticReport, v.Phase)
	}
	if v.DiagnosticReport != report {
		t.Errorf("expected restored report %q, got %q", report, v.DiagnosticReport)
	}
	if v.Domain == nil || v.Domain.ID != "OD" {
		t.Errorf("expected domain rehydrated by id, got %+v", v.Domain)
	}
	if v.FormData.Industry != "互联网/AI" {
		t.Errorf("expected restored form data, got %+v", v.FormData)
	}
}

func TestRestoreSkipsDashboardSnapshot(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.SaveSnapshot(models.SessionSnapshot{
		Version:  models.SnapshotVersion,
		Phase:    models.PhaseDashboard,
		DomainID: "OD",
		FormData: models.FormData{Industry: "互联网/AI", CurrentState: "a", FutureState: "b"},
		InquiryHistory: []models.InquiryHistoryItem{
			{Question: "问题", Answer: "答案"},
		},
	}); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	s := New(st, defaultMock())
	s.Restore(context.Background())

	v := s.View()
	if v.Phase != models.PhaseDashboard {
		t.Errorf("expected phase %s, got %s", models.PhaseDashboard, v.Phase)
	}
	if v.Domain != nil {
		t.Errorf("expected no domain after restart from dashboard, got %+v", v.Domain)
	}
	if v.FormData != (models.FormData{}) {
		t.Errorf("expected empty form after restart from dashboard, got %+v", v.FormData)
	}
	if len(v.InquiryHistory) != 0 {
		t.Errorf("expected empty inquiry history, got %d items", len(v.InquiryHistory))
	}
	if v.HasResumable {
		t.Error("expected no resume banner after restart from dashboard")
	}
}

func TestRestoreIgnoresCorruptState(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.SaveSnapshot(models.SessionSnapshot{
		Version:  models.SnapshotVersion,
		Phase:    models.PhaseInput,
		DomainID: "NOPE",
	}); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	s := New(st, defaultMock())
	s.Restore(context.Background())

	v := s.View()
	if v.Phase != models.PhaseInput {
		t.Errorf("expected phase restored despite unknown domain, got %s", v.Phase)
	}
	if v.Domain != nil {
		t.Errorf("expected no domain for unknown id, got %+v", v.Domain)
	}

	// A snapshot from a future schema version is ignored entirely.
	if err := st.SaveSnapshot(models.SessionSnapshot{Version: models.SnapshotVersion + 1, Phase: models.PhaseResult}); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	fresh := New(st, defaultMock())
	fresh.Restore(context.Background())
	if got := fresh.View().Phase; got != models.PhaseDashboard {
		t.Errorf("expected future-version snapshot ignored, got phase %s", got)
	}
}

func TestLegacyHistoryItemTriggersRefetch(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.SaveSnapshot(models.SessionSnapshot{
		Version:  1,
		Phase:    models.PhaseInquiry,
		DomainID: "OD",
		FormData: models.FormData{Industry: "互联网/AI", CurrentState: "a", FutureState: "b"},
		InquiryHistory: []models.InquiryHistoryItem{
			{Question: "旧问题一", Answer: "旧答案一"},
			{Question: "旧问题二", Answer: "旧答案二"},
		},
		CurrentStep: &models.InquiryStep{Question: "当前问题", Options: []string{"x"}},
	}); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	mock := defaultMock()
	mock.steps = []models.InquiryStep{questionStep("重新取回的问题？")}
	s := New(st, mock)
	s.Restore(context.Background())

	if err := s.StepBack(context.Background()); err != nil {
		t.Fatalf("StepBack failed: %v", err)
	}
	v := s.View()
	if v.Phase != models.PhaseInquiry {
		t.Errorf("expected phase %s after legacy re-fetch, got %s", models.PhaseInquiry, v.Phase)
	}
	if v.CurrentStep == nil || v.CurrentStep.Question != "重新取回的问题？" {
		t.Errorf("expected re-fetched step, got %+v", v.CurrentStep)
	}
	if len(v.InquiryHistory) != 1 {
		t.Errorf("expected truncated history of length 1, got %d", len(v.InquiryHistory))
	}
	mock.mu.Lock()
	defer mock.mu.Unlock()
	if len(mock.lastHistory) != 1 {
		t.Errorf("expected re-fetch to receive truncated history, got %d items", len(mock.lastHistory))
	}
}

func TestStaleStepDroppedAfterDiscard(t *testing.T) {
	mock := defaultMock()
	mock.stepGate = make(chan struct{})
	st := store.NewInMemoryStore()
	s := New(st, mock)

	if err := s.SelectDomain(context.Background(), "OD", ""); err != nil {
		t.Fatalf("SelectDomain failed: %v", err)
	}
	fillForm(t, s)

	done := make(chan error, 1)
	go func() { done <- s.SubmitForm(context.Background()) }()

	waitForPhase(t, s, models.PhaseFetchingStep)
	if err := s.Discard(context.Background()); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	close(mock.stepGate)
	if err := <-done; err != nil {
		t.Fatalf("SubmitForm failed: %v", err)
	}

	v := s.View()
	if v.Phase != models.PhaseDashboard {
		t.Errorf("expected stale step dropped, got phase %s", v.Phase)
	}
	if v.CurrentStep != nil {
		t.Errorf("expected no current step after discard, got %+v", v.CurrentStep)
	}
	snap, err := st.GetSnapshot()
	if err != nil {
		t.Fatalf("GetSnapshot failed: %v", err)
	}
	if snap != nil {
		t.Error("expected snapshot slot to stay empty after discard")
	}
}

func TestGoHomeAndResume(t *testing.T) {
	mock := defaultMock()
	s := New(store.NewInMemoryStore(), mock)
	startInquiry(t, s)
	fetches := mock.stepCallCount()

	s.GoHome(context.Background())
	v := s.View()
	if v.Phase != models.PhaseDashboard {
		t.Fatalf("expected phase %s, got %s", models.PhaseDashboard, v.Phase)
	}
	if !v.HasResumable {
		t.Error("expected resumable session on dashboard")
	}

	if err := s.ResumeActive(context.Background()); err != nil {
		t.Fatalf("ResumeActive failed: %v", err)
	}
	if got := s.View().Phase; got != models.PhaseInput {
		t.Fatalf("expected phase %s after resume, got %s", models.PhaseInput, got)
	}

	// Resuming with a live current step must not issue a new fetch.
	if err := s.SubmitForm(context.Background()); err != nil {
		t.Fatalf("SubmitForm failed: %v", err)
	}
	if got := s.View().Phase; got != models.PhaseInquiry {
		t.Errorf("expected phase %s, got %s", models.PhaseInquiry, got)
	}
	if mock.stepCallCount() != fetches {
		t.Errorf("expected no new fetch on resume, got %d calls", mock.stepCallCount())
	}
}

func TestRefineReportReplacesText(t *testing.T) {
	mock := defaultMock()
	mock.steps = []models.InquiryStep{completeStep()}
	s := New(store.NewInMemoryStore(), mock)
	if err := s.SelectDomain(context.Background(), "OD", ""); err != nil {
		t.Fatalf("SelectDomain failed: %v", err)
	}
	fillForm(t, s)
	if err := s.SubmitForm(context.Background()); err != nil {
		t.Fatalf("SubmitForm failed: %v", err)
	}
	if got := s.View().Phase; got != models.PhaseDiagnosticReport {
		t.Fatalf("expected phase %s, got %s", models.PhaseDiagnosticReport, got)
	}

	if err := s.RefineReport(context.Background(), "更直接一点"); err != nil {
		t.Fatalf("RefineReport failed: %v", err)
	}
	v := s.View()
	if v.DiagnosticReport != mock.refined {
		t.Errorf("expected refined report %q, got %q", mock.refined, v.DiagnosticReport)
	}
	if v.Phase != models.PhaseDiagnosticReport {
		t.Errorf("expected phase unchanged by refinement, got %s", v.Phase)
	}
	if v.Refining {
		t.Error("expected refining flag cleared")
	}
}

func TestConsultantDialogue(t *testing.T) {
	mock := defaultMock()
	mock.steps = []models.InquiryStep{completeStep()}
	s := New(store.NewInMemoryStore(), mock)
	if err := s.SelectDomain(context.Background(), "OD", "O1"); err != nil {
		t.Fatalf("SelectDomain failed: %v", err)
	}
	fillForm(t, s)
	if err := s.SubmitForm(context.Background()); err != nil {
		t.Fatalf("SubmitForm failed: %v", err)
	}
	if err := s.Proceed(context.Background()); err != nil {
		t.Fatalf("Proceed failed: %v", err)
	}

	if err := s.StartConsultant(context.Background()); err != nil {
		t.Fatalf("StartConsultant failed: %v", err)
	}
	v := s.View()
	if v.Phase != models.PhaseConsultantSession {
		t.Fatalf("expected phase %s, got %s", models.PhaseConsultantSession, v.Phase)
	}
	if len(v.Transcript) != 1 || v.Transcript[0].Role != models.ChatRoleModel {
		t.Fatalf("expected opening model reply, got %+v", v.Transcript)
	}

	if err := s.SendChat(context.Background(), "预算有限怎么办？"); err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}
	v = s.View()
	if len(v.Transcript) != 3 {
		t.Fatalf("expected 3 transcript entries, got %d", len(v.Transcript))
	}
	if v.Transcript[1].Role != models.ChatRoleUser || v.Transcript[1].Text != "预算有限怎么办？" {
		t.Errorf("expected user entry, got %+v", v.Transcript[1])
	}

	// A failed turn appends fallback text instead of an error.
	mock.replyErr = errors.New("backend down")
	if err := s.SendChat(context.Background(), "再试一次"); err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}
	v = s.View()
	if got := v.Transcript[len(v.Transcript)-1].Text; got != chatErrorText {
		t.Errorf("expected fallback reply %q, got %q", chatErrorText, got)
	}

	if err := s.ExitConsultant(context.Background()); err != nil {
		t.Fatalf("ExitConsultant failed: %v", err)
	}
	if got := s.View().Phase; got != models.PhaseResult {
		t.Errorf("expected phase %s after exit, got %s", models.PhaseResult, got)
	}
}

func TestOpenArchivedSession(t *testing.T) {
	mock := defaultMock()
	mock.steps = []models.InquiryStep{completeStep()}
	st := store.NewInMemoryStore()
	s := New(st, mock)
	if err := s.SelectDomain(context.Background(), "OD", "O1"); err != nil {
		t.Fatalf("SelectDomain failed: %v", err)
	}
	fillForm(t, s)
	if err := s.SubmitForm(context.Background()); err != nil {
		t.Fatalf("SubmitForm failed: %v", err)
	}
	if err := s.Proceed(context.Background()); err != nil {
		t.Fatalf("Proceed failed: %v", err)
	}
	sessions, err := s.History(context.Background())
	if err != nil || len(sessions) != 1 {
		t.Fatalf("expected 1 archived session, got %d (err %v)", len(sessions), err)
	}

	if err := s.Discard(context.Background()); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if err := s.OpenSession(context.Background(), sessions[0].ID); err != nil {
		t.Fatalf("OpenSession failed: %v", err)
	}
	v := s.View()
	if v.Phase != models.PhaseResult {
		t.Errorf("expected phase %s, got %s", models.PhaseResult, v.Phase)
	}
	if v.GeneratedContent != mock.artifact {
		t.Errorf("expected archived artifact %q, got %q", mock.artifact, v.GeneratedContent)
	}
	if v.Domain == nil || v.Domain.ID != "OD" {
		t.Errorf("expected domain rehydrated from archive, got %+v", v.Domain)
	}

	if err := s.OpenSession(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown history session id")
	}

	if err := s.ClearHistory(context.Background()); err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}
	sessions, err = s.History(context.Background())
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("expected empty history after clear, got %d", len(sessions))
	}
}

func TestSubmitFormValidation(t *testing.T) {
	s := New(store.NewInMemoryStore(), defaultMock())
	if err := s.SelectDomain(context.Background(), "OD", ""); err != nil {
		t.Fatalf("SelectDomain failed: %v", err)
	}
	if err := s.SubmitForm(context.Background()); err == nil {
		t.Error("expected validation error for empty form")
	}
	if err := s.SetFormField(context.Background(), "bogus", "x"); err == nil {
		t.Error("expected error for unknown form field")
	}
	if err := s.SubmitAnswer(context.Background(), "答案"); err == nil {
		t.Error("expected error for answer outside inquiry phase")
	}
}

func waitForPhase(t *testing.T, s *Session, phase models.Phase) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.View().Phase == phase {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for phase %s, still at %s", phase, s.View().Phase)
}
