// Package models defines the core data structures shared across the
// consulting workflow service: session phases, form data, inquiry steps,
// archived sessions and API response envelopes.
package models

import (
	"fmt"
	"time"
)

// Phase represents where the user currently is in the consulting workflow.
// Exactly one phase is active at a time.
type Phase string

// Workflow phases. The two loading phases are distinct so that nobody has
// to infer from populated fields whether the machine is fetching the next
// inquiry step or synthesizing the diagnostic report.
const (
	PhaseDashboard          Phase = "DASHBOARD"
	PhaseInput              Phase = "INPUT"
	PhaseFetchingStep       Phase = "FETCHING_STEP"
	PhaseInquiry            Phase = "INQUIRY"
	PhaseSynthesizingReport Phase = "SYNTHESIZING_REPORT"
	PhaseDiagnosticReport   Phase = "DIAGNOSTIC_REPORT"
	PhaseGeneratingArtifact Phase = "GENERATING_ARTIFACT"
	PhaseResult             Phase = "RESULT"
	PhaseConsultantSession  Phase = "CONSULTANT_SESSION"
)

// Valid reports whether p is one of the known workflow phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseDashboard, PhaseInput, PhaseFetchingStep, PhaseInquiry,
		PhaseSynthesizingReport, PhaseDiagnosticReport, PhaseGeneratingArtifact,
		PhaseResult, PhaseConsultantSession:
		return true
	}
	return false
}

// SubTask is a narrower focus area within a consulting domain.
type SubTask struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Domain is one entry of the static consulting catalog. Domains are never
// created or mutated at runtime; sessions reference them by ID only.
type Domain struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Methodology string    `json:"methodology"`
	MentalModel string    `json:"mentalModel"`
	SubTasks    []SubTask `json:"subTasks"`
	Symptoms    []string  `json:"symptoms"`
	Outcomes    []string  `json:"outcomes"`
}

// FormData holds the structured context the user enters before the inquiry.
type FormData struct {
	Industry     string `json:"industry"`
	OrgMaturity  string `json:"orgMaturity"`
	Stakeholders string `json:"stakeholders"`
	CurrentState string `json:"currentState"`
	FutureState  string `json:"futureState"`
}

// Validate checks that the form is complete enough to start an inquiry.
// Industry and both narratives are required; maturity and stakeholders are
// optional context.
func (f FormData) Validate() error {
	if f.Industry == "" {
		return fmt.Errorf("form field 'industry' is required")
	}
	if f.CurrentState == "" {
		return fmt.Errorf("form field 'currentState' is required")
	}
	if f.FutureState == "" {
		return fmt.Errorf("form field 'futureState' is required")
	}
	return nil
}

// InquiryStep is one question proposal from the assistant: the question
// text, selectable options and a completion flag signalling that the
// inquiry has gathered enough context.
type InquiryStep struct {
	Question   string   `json:"question"`
	Options    []string `json:"options"`
	IsComplete bool     `json:"isComplete"`
}

// InquiryHistoryItem records one answered inquiry step. StepSnapshot keeps
// the full step that was answered so that stepping back can restore it
// verbatim without another assistant round trip. Legacy (version 1)
// snapshots may lack it.
type InquiryHistoryItem struct {
	Question     string       `json:"question"`
	Answer       string       `json:"answer"`
	StepSnapshot *InquiryStep `json:"stepSnapshot,omitempty"`
}

// HistorySession is an immutable archive record of one completed session,
// created the moment the artifact is first generated.
type HistorySession struct {
	ID               string               `json:"id"`
	Timestamp        int64                `json:"timestamp"`
	DomainID         string               `json:"domainId"`
	DomainTitle      string               `json:"domainTitle"`
	SubTaskLabel     string               `json:"subTaskLabel"`
	FormData         FormData             `json:"formData"`
	InquiryHistory   []InquiryHistoryItem `json:"inquiryHistory,omitempty"`
	DiagnosticReport string               `json:"diagnosticReport,omitempty"`
	GeneratedContent string               `json:"generatedContent"`
}

// SnapshotVersion is the schema version written into new session snapshots.
// Version 1 predates per-item step snapshots; readers must treat missing
// step snapshots in v1 data as the legacy re-fetch case.
const SnapshotVersion = 2

// SessionSnapshot is the full serialized state of the one in-progress
// session. It is overwritten on every relevant state change and read back
// once at startup. Restoration is always by value.
type SessionSnapshot struct {
	Version          int                  `json:"version"`
	Phase            Phase                `json:"phase"`
	DomainID         string               `json:"domainId,omitempty"`
	SubTaskID        string               `json:"subTaskId,omitempty"`
	SubTaskLabel     string               `json:"subTaskLabel,omitempty"`
	FormData         FormData             `json:"formData"`
	InquiryHistory   []InquiryHistoryItem `json:"inquiryHistory,omitempty"`
	CurrentStep      *InquiryStep         `json:"currentStep,omitempty"`
	DiagnosticReport string               `json:"diagnosticReport,omitempty"`
	GeneratedContent string               `json:"generatedContent,omitempty"`
	Transcript       []ChatMessage        `json:"transcript,omitempty"`
	UpdatedAt        time.Time            `json:"updatedAt"`
}

// ChatMessage is one entry of the interactive consultant transcript.
type ChatMessage struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// Chat transcript roles.
const (
	ChatRoleUser  = "user"
	ChatRoleModel = "model"
)

// RefineIntent is one of the closed set of canned refinement directions
// for the generated artifact.
type RefineIntent string

// Fixed refinement intents.
const (
	RefineStricter    RefineIntent = "STRICTER"
	RefineEmpathetic  RefineIntent = "EMPATHETIC"
	RefineRiskFocused RefineIntent = "RISK_FOCUSED"
	RefineTactical    RefineIntent = "TACTICAL"
)

// Valid reports whether the intent is one of the four known labels.
func (r RefineIntent) Valid() bool {
	switch r {
	case RefineStricter, RefineEmpathetic, RefineRiskFocused, RefineTactical:
		return true
	}
	return false
}

// Refinement is a tagged request to rework generated text: either a fixed
// intent or a free-text instruction, never both. The assistant boundary
// resolves intents to instruction text; the state machine does not.
type Refinement struct {
	Intent      RefineIntent `json:"intent,omitempty"`
	Instruction string       `json:"instruction,omitempty"`
}

// Validate ensures exactly one of Intent and Instruction is set.
func (r Refinement) Validate() error {
	if r.Intent != "" && r.Instruction != "" {
		return fmt.Errorf("refinement must carry either an intent or an instruction, not both")
	}
	if r.Intent == "" && r.Instruction == "" {
		return fmt.Errorf("refinement is empty")
	}
	if r.Intent != "" && !r.Intent.Valid() {
		return fmt.Errorf("unknown refine intent %q", r.Intent)
	}
	return nil
}
