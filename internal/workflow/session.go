// Package workflow implements the consulting session state machine: phase
// transitions, the iterative inquiry loop with backtrackable history, report
// and artifact generation, the interactive consultant dialogue, and
// autosave/restore of the single in-progress session.
//
// All state lives behind one mutex. Collaborator calls run with the lock
// released; each call carries a per-operation request id captured at issue
// time, and a resolution is applied only if its id is still the latest for
// that operation. Anything that navigates away (discard, step-back, domain
// switch, going home) bumps the relevant ids, so late responses are dropped
// instead of overwriting newer state.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vesyn/consult/internal/assistant"
	"github.com/vesyn/consult/internal/catalog"
	"github.com/vesyn/consult/internal/models"
	"github.com/vesyn/consult/internal/store"
)

// Form field names accepted by SetFormField.
const (
	FieldIndustry     = "industry"
	FieldOrgMaturity  = "orgMaturity"
	FieldStakeholders = "stakeholders"
	FieldCurrentState = "currentState"
	FieldFutureState  = "futureState"
)

// Consultant dialogue fallback texts shown in place of a reply when the
// backend fails.
const (
	chatInitErrorText  = "与顾问的加密连接中断，请检查网络设置。"
	chatErrorText      = "小唯暂时无法回应，请重试。"
	chatPlanFailedText = "方案生成中断。"
	chatPlanUserNote   = "生成最终行动方案..."
)

// State is the read-only view of the session exposed to the API layer.
type State struct {
	Phase            models.Phase                `json:"phase"`
	Domain           *models.Domain              `json:"domain,omitempty"`
	SubTaskID        string                      `json:"subTaskId,omitempty"`
	SubTaskLabel     string                      `json:"subTaskLabel,omitempty"`
	FormData         models.FormData             `json:"formData"`
	InquiryHistory   []models.InquiryHistoryItem `json:"inquiryHistory,omitempty"`
	CurrentStep      *models.InquiryStep         `json:"currentStep,omitempty"`
	QuestionOrdinal  int                         `json:"questionOrdinal"`
	DiagnosticReport string                      `json:"diagnosticReport,omitempty"`
	GeneratedContent string                      `json:"generatedContent,omitempty"`
	Transcript       []models.ChatMessage        `json:"transcript,omitempty"`
	Refining         bool                        `json:"refining"`
	HasResumable     bool                        `json:"hasResumable"`
}

// Session is the single in-progress consulting session. One instance exists
// per process; HTTP handlers share it.
type Session struct {
	mu        sync.Mutex
	store     store.Store
	assistant assistant.Client

	phase        models.Phase
	domain       *models.Domain
	subTaskID    string
	subTaskLabel string
	form         models.FormData
	history      []models.InquiryHistoryItem
	currentStep  *models.InquiryStep
	report       string
	artifact     string
	transcript   []models.ChatMessage
	refining     bool

	// Latest issued request id per operation kind. A resolution whose id
	// no longer matches is stale and dropped.
	stepReq     uint64
	refineReq   uint64
	artifactReq uint64
	chatReq     uint64
}

// New creates a session in the default empty dashboard state.
func New(st store.Store, client assistant.Client) *Session {
	return &Session{
		store:     st,
		assistant: client,
		phase:     models.PhaseDashboard,
	}
}

// Restore loads the persisted snapshot, if any, and rebuilds the session
// from it by value. A snapshot parked at the dashboard is ignored so a
// restart lands on a fresh dashboard. Unknown snapshot versions and unknown
// domain ids are logged and skipped; restore never fails startup. A session
// interrupted mid-generation resumes its pending request in the background.
func (s *Session) Restore(ctx context.Context) {
	snap, err := s.store.GetSnapshot()
	if err != nil {
		slog.Error("Session.Restore: failed to read snapshot", "error", err)
		return
	}
	if snap == nil {
		slog.Debug("Session.Restore: no snapshot, starting fresh")
		return
	}
	if snap.Version > models.SnapshotVersion {
		slog.Warn("Session.Restore: snapshot version from the future, ignoring", "version", snap.Version)
		return
	}
	if snap.Phase == models.PhaseDashboard {
		slog.Debug("Session.Restore: snapshot left at the dashboard, starting fresh")
		return
	}

	s.mu.Lock()
	if snap.DomainID != "" {
		if d, ok := catalog.Lookup(snap.DomainID); ok {
			s.domain = &d
			s.subTaskID = snap.SubTaskID
			s.subTaskLabel = snap.SubTaskLabel
		} else {
			slog.Warn("Session.Restore: snapshot references unknown domain, continuing without one", "domainId", snap.DomainID)
		}
	}
	s.form = snap.FormData
	s.history = append([]models.InquiryHistoryItem(nil), snap.InquiryHistory...)
	if snap.CurrentStep != nil {
		step := *snap.CurrentStep
		s.currentStep = &step
	}
	s.report = snap.DiagnosticReport
	s.artifact = snap.GeneratedContent
	s.transcript = append([]models.ChatMessage(nil), snap.Transcript...)

	phase := snap.Phase
	if !phase.Valid() {
		slog.Warn("Session.Restore: snapshot has unknown phase, starting at dashboard", "phase", phase)
		phase = models.PhaseDashboard
	}
	s.phase = phase
	slog.Info("Session.Restore: session restored", "phase", phase, "version", snap.Version, "historyLen", len(s.history))

	// A snapshot written mid-generation means the process died with a
	// request outstanding. Re-issue it so the session does not wedge in a
	// loading phase.
	switch phase {
	case models.PhaseFetchingStep:
		s.stepReq++
		reqID := s.stepReq
		title, label := s.domainContextLocked()
		form, history := s.form, append([]models.InquiryHistoryItem(nil), s.history...)
		go s.fetchNextStep(context.Background(), reqID, title, label, form, history)
	case models.PhaseSynthesizingReport:
		s.stepReq++
		reqID := s.stepReq
		title, _ := s.domainContextLocked()
		form, history := s.form, append([]models.InquiryHistoryItem(nil), s.history...)
		go s.synthesizeReport(context.Background(), reqID, title, form, history)
	case models.PhaseGeneratingArtifact:
		s.artifactReq++
		reqID := s.artifactReq
		d := s.domain
		title, label := s.domainContextLocked()
		form, report := s.form, s.report
		var methodology, mentalModel string
		if d != nil {
			methodology, mentalModel = d.Methodology, d.MentalModel
		}
		go s.generateArtifact(context.Background(), reqID, title, methodology, mentalModel, label, form, report)
	}
	s.mu.Unlock()
}

// View returns a copy of the session state for rendering.
func (s *Session) View() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	var domain *models.Domain
	if s.domain != nil {
		d := *s.domain
		domain = &d
	}
	var step *models.InquiryStep
	if s.currentStep != nil {
		st := *s.currentStep
		step = &st
	}
	return State{
		Phase:            s.phase,
		Domain:           domain,
		SubTaskID:        s.subTaskID,
		SubTaskLabel:     s.subTaskLabel,
		FormData:         s.form,
		InquiryHistory:   append([]models.InquiryHistoryItem(nil), s.history...),
		CurrentStep:      step,
		QuestionOrdinal:  len(s.history) + 1,
		DiagnosticReport: s.report,
		GeneratedContent: s.artifact,
		Transcript:       append([]models.ChatMessage(nil), s.transcript...),
		Refining:         s.refining,
		HasResumable:     s.phase == models.PhaseDashboard && s.domain != nil,
	}
}

// SelectDomain activates a consulting domain. Re-selecting the active
// domain preserves all in-flight progress; any other selection performs a
// full reset of form, inquiry, report and artifact state.
func (s *Session) SelectDomain(ctx context.Context, domainID, subTaskID string) error {
	d, ok := catalog.Lookup(domainID)
	if !ok {
		return fmt.Errorf("unknown domain %q", domainID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.domain != nil && s.domain.ID == domainID {
		slog.Debug("Session.SelectDomain: re-selecting active domain", "domainId", domainID)
		if subTaskID != "" {
			if err := s.setSubTaskLocked(d, subTaskID); err != nil {
				return err
			}
		}
		if s.phase == models.PhaseDashboard {
			s.phase = models.PhaseInput
		}
		s.autosaveLocked()
		return nil
	}

	slog.Debug("Session.SelectDomain: switching domain, resetting session state", "domainId", domainID)
	s.resetLocked()
	s.domain = &d
	if subTaskID != "" {
		if err := s.setSubTaskLocked(d, subTaskID); err != nil {
			return err
		}
	}
	s.phase = models.PhaseInput
	s.autosaveLocked()
	return nil
}

// SetFormField updates one form field during input.
func (s *Session) SetFormField(ctx context.Context, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseInput {
		return fmt.Errorf("form can only be edited during input, current phase is %s", s.phase)
	}
	switch field {
	case FieldIndustry:
		s.form.Industry = value
	case FieldOrgMaturity:
		s.form.OrgMaturity = value
	case FieldStakeholders:
		s.form.Stakeholders = value
	case FieldCurrentState:
		s.form.CurrentState = value
	case FieldFutureState:
		s.form.FutureState = value
	default:
		return fmt.Errorf("unknown form field %q", field)
	}
	s.autosaveLocked()
	return nil
}

// SubmitForm validates the form and starts (or resumes) the inquiry. If a
// current step already exists the inquiry resumes without a new request;
// otherwise the next step is fetched, using whatever history exists.
func (s *Session) SubmitForm(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != models.PhaseInput {
		s.mu.Unlock()
		return fmt.Errorf("form can only be submitted during input, current phase is %s", s.phase)
	}
	if s.domain == nil {
		s.mu.Unlock()
		return fmt.Errorf("no domain selected")
	}
	if err := s.form.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}

	if s.currentStep != nil {
		slog.Debug("Session.SubmitForm: resuming inquiry with existing step", "historyLen", len(s.history))
		s.phase = models.PhaseInquiry
		s.autosaveLocked()
		s.mu.Unlock()
		return nil
	}

	s.phase = models.PhaseFetchingStep
	s.stepReq++
	reqID := s.stepReq
	title, label := s.domainContextLocked()
	form, history := s.form, append([]models.InquiryHistoryItem(nil), s.history...)
	s.autosaveLocked()
	s.mu.Unlock()

	s.fetchNextStep(ctx, reqID, title, label, form, history)
	return nil
}

// SubmitAnswer records the answer to the current step and fetches the next
// one. The answered step is snapshotted into the history item so stepping
// back can restore it without another request.
func (s *Session) SubmitAnswer(ctx context.Context, answer string) error {
	s.mu.Lock()
	if s.phase != models.PhaseInquiry {
		s.mu.Unlock()
		return fmt.Errorf("no inquiry in progress, current phase is %s", s.phase)
	}
	if s.currentStep == nil {
		s.mu.Unlock()
		return fmt.Errorf("no current inquiry step")
	}
	if answer == "" {
		s.mu.Unlock()
		return fmt.Errorf("answer must not be empty")
	}

	step := *s.currentStep
	s.history = append(s.history, models.InquiryHistoryItem{
		Question:     step.Question,
		Answer:       answer,
		StepSnapshot: &step,
	})
	s.currentStep = nil
	s.phase = models.PhaseFetchingStep
	s.stepReq++
	reqID := s.stepReq
	title, label := s.domainContextLocked()
	form, history := s.form, append([]models.InquiryHistoryItem(nil), s.history...)
	s.autosaveLocked()
	s.mu.Unlock()

	s.fetchNextStep(ctx, reqID, title, label, form, history)
	return nil
}

// StepBack navigates one step backwards. During the inquiry it pops the
// last answered item and restores its step snapshot; with no history it
// returns to input. From the result screen it returns to the report. A
// history item persisted without a step snapshot (version 1 data) forces a
// re-fetch against the truncated history.
func (s *Session) StepBack(ctx context.Context) error {
	s.mu.Lock()

	switch s.phase {
	case models.PhaseResult:
		s.phase = models.PhaseDiagnosticReport
		s.autosaveLocked()
		s.mu.Unlock()
		return nil
	case models.PhaseInquiry:
		// handled below
	default:
		s.mu.Unlock()
		return fmt.Errorf("cannot step back from phase %s", s.phase)
	}

	if len(s.history) == 0 {
		s.currentStep = nil
		s.phase = models.PhaseInput
		s.autosaveLocked()
		s.mu.Unlock()
		return nil
	}

	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]

	if last.StepSnapshot != nil {
		step := *last.StepSnapshot
		s.currentStep = &step
		s.autosaveLocked()
		s.mu.Unlock()
		return nil
	}

	slog.Debug("Session.StepBack: history item has no step snapshot, re-fetching", "historyLen", len(s.history))
	s.currentStep = nil
	s.phase = models.PhaseFetchingStep
	s.stepReq++
	reqID := s.stepReq
	title, label := s.domainContextLocked()
	form, history := s.form, append([]models.InquiryHistoryItem(nil), s.history...)
	s.autosaveLocked()
	s.mu.Unlock()

	s.fetchNextStep(ctx, reqID, title, label, form, history)
	return nil
}

// RefineReport replaces the diagnostic report per a free-text instruction.
// The phase does not change; only the text does.
func (s *Session) RefineReport(ctx context.Context, instruction string) error {
	s.mu.Lock()
	if s.phase != models.PhaseDiagnosticReport {
		s.mu.Unlock()
		return fmt.Errorf("no diagnostic report to refine, current phase is %s", s.phase)
	}
	if s.refining {
		s.mu.Unlock()
		return fmt.Errorf("a refinement is already in progress")
	}
	if instruction == "" {
		s.mu.Unlock()
		return fmt.Errorf("refine instruction must not be empty")
	}

	s.refining = true
	s.refineReq++
	reqID := s.refineReq
	current := s.report
	s.mu.Unlock()

	text := s.assistant.RefineReport(ctx, current, instruction)

	s.mu.Lock()
	defer s.mu.Unlock()
	if reqID != s.refineReq {
		slog.Debug("Session.RefineReport: dropping stale refinement", "reqID", reqID)
		return nil
	}
	s.report = text
	s.refining = false
	s.autosaveLocked()
	return nil
}

// Proceed accepts the diagnostic report and generates the consultant
// instruction-set artifact. On completion the session is archived and
// moves to the result phase.
func (s *Session) Proceed(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != models.PhaseDiagnosticReport {
		s.mu.Unlock()
		return fmt.Errorf("cannot proceed from phase %s", s.phase)
	}
	if s.domain == nil {
		s.mu.Unlock()
		return fmt.Errorf("no domain selected")
	}

	s.phase = models.PhaseGeneratingArtifact
	s.artifactReq++
	reqID := s.artifactReq
	d := *s.domain
	_, label := s.domainContextLocked()
	form, report := s.form, s.report
	s.autosaveLocked()
	s.mu.Unlock()

	s.generateArtifact(ctx, reqID, d.Title, d.Methodology, d.MentalModel, label, form, report)
	return nil
}

// RefineArtifact replaces the generated artifact per a fixed intent or a
// free-text instruction.
func (s *Session) RefineArtifact(ctx context.Context, r models.Refinement) error {
	s.mu.Lock()
	if s.phase != models.PhaseResult {
		s.mu.Unlock()
		return fmt.Errorf("no artifact to refine, current phase is %s", s.phase)
	}
	if s.refining {
		s.mu.Unlock()
		return fmt.Errorf("a refinement is already in progress")
	}
	if err := r.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}

	s.refining = true
	s.refineReq++
	reqID := s.refineReq
	current := s.artifact
	s.mu.Unlock()

	text := s.assistant.RefineArtifact(ctx, current, r)

	s.mu.Lock()
	defer s.mu.Unlock()
	if reqID != s.refineReq {
		slog.Debug("Session.RefineArtifact: dropping stale refinement", "reqID", reqID)
		return nil
	}
	s.artifact = text
	s.refining = false
	s.autosaveLocked()
	return nil
}

// StartConsultant opens the interactive consultant dialogue. The generated
// artifact acts as the agent's system instruction; the opening reply is
// fetched immediately and becomes the first transcript entry.
func (s *Session) StartConsultant(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != models.PhaseResult {
		s.mu.Unlock()
		return fmt.Errorf("consultant session starts from the result phase, current phase is %s", s.phase)
	}
	if s.artifact == "" {
		s.mu.Unlock()
		return fmt.Errorf("no generated artifact to run")
	}

	s.phase = models.PhaseConsultantSession
	s.transcript = nil
	s.chatReq++
	reqID := s.chatReq
	system := s.artifact
	s.autosaveLocked()
	s.mu.Unlock()

	reply, err := s.assistant.Reply(ctx, system, nil, assistant.DialogueInitMessage)
	if err != nil {
		reply = chatInitErrorText
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if reqID != s.chatReq {
		slog.Debug("Session.StartConsultant: dropping stale opening reply", "reqID", reqID)
		return nil
	}
	s.transcript = []models.ChatMessage{{Role: models.ChatRoleModel, Text: reply}}
	s.autosaveLocked()
	return nil
}

// SendChat posts one user message to the consultant dialogue and appends
// the reply. A backend failure appends fallback text instead.
func (s *Session) SendChat(ctx context.Context, text string) error {
	if text == "" {
		return fmt.Errorf("message must not be empty")
	}
	return s.chatTurn(ctx, text, text, chatErrorText)
}

// GenerateActionPlan asks the consultant to emit the final action plan for
// the dialogue so far.
func (s *Session) GenerateActionPlan(ctx context.Context) error {
	return s.chatTurn(ctx, chatPlanUserNote, assistant.ActionPlanTrigger, chatPlanFailedText)
}

// chatTurn appends a user entry, sends a message against the transcript so
// far and appends the model reply. displayText is what lands in the
// transcript; sendText is what the backend receives.
func (s *Session) chatTurn(ctx context.Context, displayText, sendText, fallback string) error {
	s.mu.Lock()
	if s.phase != models.PhaseConsultantSession {
		s.mu.Unlock()
		return fmt.Errorf("no consultant session in progress, current phase is %s", s.phase)
	}

	prior := append([]models.ChatMessage(nil), s.transcript...)
	s.transcript = append(s.transcript, models.ChatMessage{Role: models.ChatRoleUser, Text: displayText})
	s.chatReq++
	reqID := s.chatReq
	system := s.artifact
	s.autosaveLocked()
	s.mu.Unlock()

	reply, err := s.assistant.Reply(ctx, system, prior, sendText)
	if err != nil {
		reply = fallback
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if reqID != s.chatReq {
		slog.Debug("Session.chatTurn: dropping stale reply", "reqID", reqID)
		return nil
	}
	s.transcript = append(s.transcript, models.ChatMessage{Role: models.ChatRoleModel, Text: reply})
	s.autosaveLocked()
	return nil
}

// ExitConsultant closes the dialogue and returns to the result screen. The
// transcript is kept.
func (s *Session) ExitConsultant(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseConsultantSession {
		return fmt.Errorf("no consultant session in progress, current phase is %s", s.phase)
	}
	s.phase = models.PhaseResult
	s.chatReq++
	s.autosaveLocked()
	return nil
}

// GoHome navigates to the dashboard without touching session state, so the
// session can be resumed later. Outstanding requests are invalidated.
func (s *Session) GoHome(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == models.PhaseDashboard {
		return
	}
	s.phase = models.PhaseDashboard
	s.refining = false
	s.stepReq++
	s.refineReq++
	s.artifactReq++
	s.chatReq++
	s.autosaveLocked()
}

// ResumeActive continues the session parked by GoHome, landing on the
// input screen.
func (s *Session) ResumeActive(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != models.PhaseDashboard {
		return fmt.Errorf("resume is a dashboard action, current phase is %s", s.phase)
	}
	if s.domain == nil {
		return fmt.Errorf("no session to resume")
	}
	s.phase = models.PhaseInput
	s.autosaveLocked()
	return nil
}

// Discard resets the session to the empty dashboard state and deletes the
// persisted snapshot. Unlike GoHome this is irreversible.
func (s *Session) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	slog.Info("Session.Discard: discarding active session", "phase", s.phase)
	s.resetLocked()
	s.phase = models.PhaseDashboard
	if err := s.store.DeleteSnapshot(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// History returns the archived sessions, most recent first.
func (s *Session) History(ctx context.Context) ([]models.HistorySession, error) {
	return s.store.ListSessions()
}

// OpenSession loads an archived session into the result phase for viewing.
// The active session, if any, is replaced.
func (s *Session) OpenSession(ctx context.Context, id string) error {
	sessions, err := s.store.ListSessions()
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	var archived *models.HistorySession
	for i := range sessions {
		if sessions[i].ID == id {
			archived = &sessions[i]
			break
		}
	}
	if archived == nil {
		return fmt.Errorf("unknown history session %q", id)
	}
	d, ok := catalog.Lookup(archived.DomainID)
	if !ok {
		return fmt.Errorf("history session references unknown domain %q", archived.DomainID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	s.domain = &d
	s.subTaskLabel = archived.SubTaskLabel
	for _, sub := range d.SubTasks {
		if sub.Label == archived.SubTaskLabel {
			s.subTaskID = sub.ID
			break
		}
	}
	s.form = archived.FormData
	s.history = append([]models.InquiryHistoryItem(nil), archived.InquiryHistory...)
	s.report = archived.DiagnosticReport
	s.artifact = archived.GeneratedContent
	s.phase = models.PhaseResult
	s.autosaveLocked()
	return nil
}

// ClearHistory removes all archived sessions.
func (s *Session) ClearHistory(ctx context.Context) error {
	return s.store.ClearSessions()
}

// fetchNextStep resolves one inquiry request: either a new current step, or
// inquiry completion followed by report synthesis. reqID guards against
// applying a response the user has navigated away from.
func (s *Session) fetchNextStep(ctx context.Context, reqID uint64, domainTitle, subTaskLabel string, form models.FormData, history []models.InquiryHistoryItem) {
	step := s.assistant.NextInquiryStep(ctx, domainTitle, subTaskLabel, form, history)

	s.mu.Lock()
	if reqID != s.stepReq {
		slog.Debug("Session.fetchNextStep: dropping stale step", "reqID", reqID, "latest", s.stepReq)
		s.mu.Unlock()
		return
	}
	if !step.IsComplete {
		s.currentStep = &step
		s.phase = models.PhaseInquiry
		s.autosaveLocked()
		s.mu.Unlock()
		return
	}

	slog.Debug("Session.fetchNextStep: inquiry complete, synthesizing report", "historyLen", len(history))
	s.phase = models.PhaseSynthesizingReport
	s.autosaveLocked()
	s.mu.Unlock()

	s.synthesizeReport(ctx, reqID, domainTitle, form, history)
}

// synthesizeReport produces the diagnostic report and advances to the
// report phase.
func (s *Session) synthesizeReport(ctx context.Context, reqID uint64, domainTitle string, form models.FormData, history []models.InquiryHistoryItem) {
	report := s.assistant.SynthesizeReport(ctx, domainTitle, form, history)

	s.mu.Lock()
	defer s.mu.Unlock()
	if reqID != s.stepReq {
		slog.Debug("Session.synthesizeReport: dropping stale report", "reqID", reqID, "latest", s.stepReq)
		return
	}
	s.report = report
	s.phase = models.PhaseDiagnosticReport
	s.autosaveLocked()
}

// generateArtifact produces the instruction-set artifact, archives the
// completed session and advances to the result phase.
func (s *Session) generateArtifact(ctx context.Context, reqID uint64, domainTitle, methodology, mentalModel, subTaskLabel string, form models.FormData, report string) {
	text := s.assistant.GenerateArtifact(ctx, domainTitle, methodology, mentalModel, subTaskLabel, form, report)

	s.mu.Lock()
	defer s.mu.Unlock()
	if reqID != s.artifactReq {
		slog.Debug("Session.generateArtifact: dropping stale artifact", "reqID", reqID, "latest", s.artifactReq)
		return
	}
	s.artifact = text
	s.phase = models.PhaseResult
	s.archiveLocked()
	s.autosaveLocked()
}

// archiveLocked appends the completed session to the durable archive,
// most recent first. Archive failures are logged, not propagated; the
// session still advances.
func (s *Session) archiveLocked() {
	if s.domain == nil {
		return
	}
	record := models.HistorySession{
		ID:               uuid.NewString(),
		Timestamp:        time.Now().UnixMilli(),
		DomainID:         s.domain.ID,
		DomainTitle:      s.domain.Title,
		SubTaskLabel:     s.subTaskLabel,
		FormData:         s.form,
		InquiryHistory:   append([]models.InquiryHistoryItem(nil), s.history...),
		DiagnosticReport: s.report,
		GeneratedContent: s.artifact,
	}
	sessions, err := s.store.ListSessions()
	if err != nil {
		slog.Error("Session.archive: failed to load history", "error", err)
		return
	}
	sessions = append([]models.HistorySession{record}, sessions...)
	if err := s.store.SaveSessions(sessions); err != nil {
		slog.Error("Session.archive: failed to persist history", "error", err, "sessionId", record.ID)
		return
	}
	slog.Info("Session.archive: session archived", "sessionId", record.ID, "domainId", record.DomainID)
}

// autosaveLocked writes the current snapshot unless the session is the
// empty dashboard state. An empty default session must never be persisted.
func (s *Session) autosaveLocked() {
	if s.phase == models.PhaseDashboard && s.domain == nil {
		return
	}
	snap := models.SessionSnapshot{
		Version:          models.SnapshotVersion,
		Phase:            s.phase,
		SubTaskID:        s.subTaskID,
		SubTaskLabel:     s.subTaskLabel,
		FormData:         s.form,
		InquiryHistory:   append([]models.InquiryHistoryItem(nil), s.history...),
		DiagnosticReport: s.report,
		GeneratedContent: s.artifact,
		Transcript:       append([]models.ChatMessage(nil), s.transcript...),
		UpdatedAt:        time.Now(),
	}
	if s.domain != nil {
		snap.DomainID = s.domain.ID
	}
	if s.currentStep != nil {
		step := *s.currentStep
		snap.CurrentStep = &step
	}
	if err := s.store.SaveSnapshot(snap); err != nil {
		slog.Error("Session.autosave: failed to persist snapshot", "error", err, "phase", s.phase)
	}
}

// resetLocked clears all session fields and invalidates outstanding
// requests. The phase is left for the caller to set.
func (s *Session) resetLocked() {
	s.domain = nil
	s.subTaskID = ""
	s.subTaskLabel = ""
	s.form = models.FormData{}
	s.history = nil
	s.currentStep = nil
	s.report = ""
	s.artifact = ""
	s.transcript = nil
	s.refining = false
	s.stepReq++
	s.refineReq++
	s.artifactReq++
	s.chatReq++
}

// setSubTaskLocked resolves and records a sub-task selection.
func (s *Session) setSubTaskLocked(d models.Domain, subTaskID string) error {
	sub, ok := catalog.LookupSubTask(d, subTaskID)
	if !ok {
		return fmt.Errorf("unknown sub-task %q for domain %q", subTaskID, d.ID)
	}
	s.subTaskID = sub.ID
	s.subTaskLabel = sub.Label
	return nil
}

// domainContextLocked returns the domain title and the effective sub-task
// label for collaborator prompts.
func (s *Session) domainContextLocked() (title, subTaskLabel string) {
	if s.domain != nil {
		title = s.domain.Title
	}
	subTaskLabel = s.subTaskLabel
	if subTaskLabel == "" {
		subTaskLabel = catalog.GeneralInquiryLabel
	}
	return title, subTaskLabel
}
