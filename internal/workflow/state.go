// Package workflow implements the code-generation workflow: the shared state
// threaded through every stage, the bounded-retry policy, and the engine that
// sequences Plan, Code and Test stages for a workspace.
package workflow

import (
	"fmt"
	"maps"
	"slices"
)

// DefaultMaxAttempts bounds the total number of Code/Test executions per run.
const DefaultMaxAttempts = 3

// Step identifies where a workflow currently is. It is an internal enum;
// the wire representation is always the lowercase tag from MarshalText.
type Step int

const (
	StepIdle Step = iota
	StepPlanning
	StepCoding
	StepTesting
	StepFixing
	StepComplete
	StepFailed
)

var stepNames = map[Step]string{
	StepIdle:     "idle",
	StepPlanning: "planning",
	StepCoding:   "coding",
	StepTesting:  "testing",
	StepFixing:   "fixing",
	StepComplete: "complete",
	StepFailed:   "failed",
}

// String returns the lowercase wire tag for the step.
func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText serializes the step as its wire tag.
func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a wire tag back into a step.
func (s *Step) UnmarshalText(text []byte) error {
	for step, name := range stepNames {
		if name == string(text) {
			*s = step
			return nil
		}
	}
	return fmt.Errorf("unknown workflow step %q", string(text))
}

// Terminal reports whether no further transitions occur from the step.
func (s Step) Terminal() bool {
	return s == StepComplete || s == StepFailed
}

// FileChange is a full-content change to one file. Content is always the
// complete file text, never a diff.
type FileChange struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Language string `json:"language"`
	Action   string `json:"action"`
}

// ExistingFile is a caller-supplied workspace file given to the stages as
// context. Every Code attempt starts from these, not from its own prior
// output.
type ExistingFile struct {
	Path     string `json:"path"`
	Content  string `json:"content,omitempty"`
	Language string `json:"language,omitempty"`
}

// TestResult is the verdict of one Test execution.
type TestResult struct {
	Passed    bool     `json:"passed"`
	Errors    []string `json:"errors"`
	RawOutput string   `json:"raw_output"`
}

// State is the mutable record threaded through every stage of one workflow
// run. It is exclusively owned by the engine executing that run; the status
// store only ever holds clones.
type State struct {
	// Input, fixed at creation.
	WorkspaceID   string         `json:"workspace_id"`
	Prompt        string         `json:"prompt"`
	ExistingFiles []ExistingFile `json:"existing_files"`
	Context       map[string]any `json:"context"`

	// Workflow bookkeeping.
	CurrentStep  Step `json:"current_step"`
	AttemptCount int  `json:"attempt_count"`
	MaxAttempts  int  `json:"max_attempts"`

	// Plan stage output. Plan is appended to by the fix transform.
	Plan  string   `json:"plan,omitempty"`
	Tasks []string `json:"tasks"`

	// Code stage output, overwritten wholesale on every attempt.
	FilesToCreate []FileChange `json:"files_to_create"`
	FilesToUpdate []FileChange `json:"files_to_update"`

	// Test stage output.
	TestResult       *TestResult `json:"test_result,omitempty"`
	ValidationErrors []string    `json:"validation_errors"`

	// Append-only traces. Logs are human-readable progress lines; Errors are
	// abnormal failures, distinct from expected validation findings.
	Logs   []string `json:"logs"`
	Errors []string `json:"errors"`

	// Final outcome.
	Success    bool         `json:"success"`
	FinalFiles []FileChange `json:"final_files"`
}

// NewState builds the initial state for one workflow run. A non-positive
// maxAttempts falls back to DefaultMaxAttempts.
func NewState(workspaceID, prompt string, existing []ExistingFile, context map[string]any, maxAttempts int) *State {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if context == nil {
		context = make(map[string]any)
	}
	return &State{
		WorkspaceID:      workspaceID,
		Prompt:           prompt,
		ExistingFiles:    slices.Clone(existing),
		Context:          context,
		CurrentStep:      StepIdle,
		MaxAttempts:      maxAttempts,
		Tasks:            []string{},
		FilesToCreate:    []FileChange{},
		FilesToUpdate:    []FileChange{},
		ValidationErrors: []string{},
		Logs:             []string{},
		Errors:           []string{},
		FinalFiles:       []FileChange{},
	}
}

// Logf appends a formatted line to the append-only log trace.
func (st *State) Logf(format string, args ...any) {
	st.Logs = append(st.Logs, fmt.Sprintf(format, args...))
}

// Clone returns a deep copy of the state. Context values are copied by
// reference; the engine only ever replaces the reserved keys wholesale, so
// readers of a clone never observe a partial mutation.
func (st *State) Clone() *State {
	out := *st
	out.ExistingFiles = slices.Clone(st.ExistingFiles)
	out.Context = maps.Clone(st.Context)
	out.Tasks = slices.Clone(st.Tasks)
	out.FilesToCreate = slices.Clone(st.FilesToCreate)
	out.FilesToUpdate = slices.Clone(st.FilesToUpdate)
	out.ValidationErrors = slices.Clone(st.ValidationErrors)
	out.Logs = slices.Clone(st.Logs)
	out.Errors = slices.Clone(st.Errors)
	out.FinalFiles = slices.Clone(st.FinalFiles)
	if st.TestResult != nil {
		result := *st.TestResult
		result.Errors = slices.Clone(st.TestResult.Errors)
		out.TestResult = &result
	}
	return &out
}
