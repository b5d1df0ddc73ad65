// Package status provides the concurrency-safe status store polled by
// external callers while a workflow runs.
package status

import (
	"sync"

	"github.com/anvilworks/codeforge/internal/workflow"
)

// Store keeps the latest published snapshot per workspace. All operations
// are safe under arbitrary concurrent callers; snapshots are clones, so
// readers never observe a partially mutated state.
type Store struct {
	mu     sync.RWMutex
	states map[string]*workflow.State
}

// NewStore creates an empty status store.
func NewStore() *Store {
	return &Store{states: make(map[string]*workflow.State)}
}

// Publish replaces the stored snapshot for the workspace with a copy.
func (s *Store) Publish(workspaceID string, st *workflow.State) {
	snapshot := st.Clone()
	s.mu.Lock()
	s.states[workspaceID] = snapshot
	s.mu.Unlock()
}

// Fetch returns a copy of the latest snapshot, or nil if none exists.
func (s *Store) Fetch(workspaceID string) *workflow.State {
	s.mu.RLock()
	st := s.states[workspaceID]
	s.mu.RUnlock()
	if st == nil {
		return nil
	}
	return st.Clone()
}

// Clear removes the snapshot for the workspace.
func (s *Store) Clear(workspaceID string) {
	s.mu.Lock()
	delete(s.states, workspaceID)
	s.mu.Unlock()
}

// Summary is the derived progress view served to status queries.
type Summary struct {
	Status         string                `json:"status"`
	CurrentStep    string                `json:"current_step"`
	Progress       float64               `json:"progress"`
	Logs           []string              `json:"logs"`
	FilesGenerated []workflow.FileChange `json:"files_generated"`
	Errors         []string              `json:"errors"`
	AttemptCount   int                   `json:"attempt_count"`
}

// progressBySteps keeps the reported number non-decreasing over one run:
// Fixing and Failed hold the Testing value instead of jumping backward.
var progressBySteps = map[workflow.Step]float64{
	workflow.StepIdle:     0.0,
	workflow.StepPlanning: 0.2,
	workflow.StepCoding:   0.5,
	workflow.StepTesting:  0.8,
	workflow.StepFixing:   0.8,
	workflow.StepFailed:   0.8,
	workflow.StepComplete: 1.0,
}

// Summary derives the progress view for the workspace. An unknown workspace
// yields the idle summary, never a failure.
func (s *Store) Summary(workspaceID string) Summary {
	st := s.Fetch(workspaceID)
	if st == nil {
		return Summary{
			Status:         "idle",
			CurrentStep:    "none",
			Progress:       0.0,
			Logs:           []string{},
			FilesGenerated: []workflow.FileChange{},
			Errors:         []string{},
		}
	}

	status := "processing"
	switch {
	case st.Success:
		status = "complete"
	case st.CurrentStep == workflow.StepFailed:
		status = "failed"
	}

	progress := progressBySteps[st.CurrentStep]
	// A Coding pass after a fix would report 0.5 again; hold the testing
	// value so the reported number never moves backward within one run.
	if st.CurrentStep == workflow.StepCoding && st.AttemptCount > 0 {
		progress = progressBySteps[workflow.StepTesting]
	}

	return Summary{
		Status:         status,
		CurrentStep:    st.CurrentStep.String(),
		Progress:       progress,
		Logs:           st.Logs,
		FilesGenerated: st.FinalFiles,
		Errors:         st.Errors,
		AttemptCount:   st.AttemptCount,
	}
}
