package workflow

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Stage is one opaque capability in the pipeline (Plan, Code or Test). A
// stage records expected domain findings into the state and returns an error
// only for unrecoverable infrastructure failure.
type Stage interface {
	Name() string
	Run(ctx context.Context, st *State) error
}

// Publisher receives a snapshot of the state after every transition.
type Publisher interface {
	Publish(workspaceID string, st *State)
}

// Engine sequences the Plan, Code and Test stages for one state per Run
// call. The engine itself is stateless across runs and safe for concurrent
// use; each call must own its state exclusively.
type Engine struct {
	planner Stage
	coder   Stage
	tester  Stage
	store   Publisher
}

// NewEngine constructs an engine with explicit collaborators.
func NewEngine(planner, coder, tester Stage, store Publisher) *Engine {
	return &Engine{
		planner: planner,
		coder:   coder,
		tester:  tester,
		store:   store,
	}
}

// Run drives the state to a terminal step and returns it. A stage failure
// never propagates: it is recorded into the state and the pipeline proceeds
// per the transition rules. Callers always receive a well-formed terminal
// state, even if the engine's own bookkeeping panics.
func (e *Engine) Run(ctx context.Context, st *State) (final *State) {
	startedAt := time.Now()
	defer func() {
		if r := recover(); r != nil {
			st.Errors = append(st.Errors, fmt.Sprintf("[Workflow Error] %v", r))
			st.CurrentStep = StepFailed
			st.Success = false
			e.publish(st)
			final = st
		}
		log.Info().
			Str("workspace_id", st.WorkspaceID).
			Str("step", st.CurrentStep.String()).
			Bool("success", st.Success).
			Int("attempt_count", st.AttemptCount).
			Dur("duration", time.Since(startedAt)).
			Msg("workflow finished")
	}()

	st.AttemptCount = 0
	st.Success = false
	if st.MaxAttempts <= 0 {
		st.MaxAttempts = DefaultMaxAttempts
	}
	if st.Logs == nil {
		st.Logs = []string{}
	}
	if st.Errors == nil {
		st.Errors = []string{}
	}
	if st.Context == nil {
		st.Context = make(map[string]any)
	}

	st.CurrentStep = StepPlanning
	e.publish(st)
	// A plan failure is recorded but does not halt the pipeline: coding still
	// runs with whatever plan text exists.
	e.runStage(ctx, e.planner, st)

	for {
		st.CurrentStep = StepCoding
		e.publish(st)
		e.runStage(ctx, e.coder, st)

		st.CurrentStep = StepTesting
		st.Success = false
		e.publish(st)
		e.runStage(ctx, e.tester, st)

		decision := Decide(st.Success, st.AttemptCount, st.MaxAttempts)
		log.Debug().
			Str("workspace_id", st.WorkspaceID).
			Stringer("decision", decision).
			Int("attempt_count", st.AttemptCount).
			Msg("retry policy evaluated")

		switch decision {
		case DecisionStopSuccess:
			st.FinalFiles = slices.Concat(st.FilesToCreate, st.FilesToUpdate)
			st.CurrentStep = StepComplete
			e.publish(st)
			return st
		case DecisionStopFailure:
			st.Logf("[Workflow] Max attempts (%d) reached - failing", st.MaxAttempts)
			st.CurrentStep = StepFailed
			st.Success = false
			e.publish(st)
			return st
		case DecisionRetry:
			st.CurrentStep = StepFixing
			e.publish(st)
			fix(st)
		}
	}
}

// runStage invokes a stage, converting any error or panic into state entries.
func (e *Engine) runStage(ctx context.Context, stage Stage, st *State) {
	st.Logf("[Workflow] Running %s agent...", stage.Name())
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return stage.Run(ctx, st)
	}()
	if err != nil {
		st.Errors = append(st.Errors, fmt.Sprintf("[%s Error] %v", stage.Name(), err))
		st.Logf("[%s] Failed: %v", stage.Name(), err)
		log.Error().Err(err).
			Str("workspace_id", st.WorkspaceID).
			Str("stage", stage.Name()).
			Msg("stage failed")
	}
}

func (e *Engine) publish(st *State) {
	if e.store != nil {
		e.store.Publish(st.WorkspaceID, st)
	}
}

// fix prepares the state for a retried Code attempt: it spends one attempt,
// restates the validation errors as a mandatory correction list appended to
// the plan, and records them under the reserved context keys. Tasks, file
// sets and the test result are left for the next Code/Test pass.
func fix(st *State) {
	st.AttemptCount++
	st.Logf("[Workflow] Retry attempt %d/%d", st.AttemptCount, st.MaxAttempts)

	errorContext := strings.Join(st.ValidationErrors, "\n")
	st.Plan = fmt.Sprintf(`%s

CRITICAL: Previous attempt failed with these errors:
%s

You MUST fix these errors in the next implementation. Review the errors carefully and ensure the code addresses each issue.`, st.Plan, errorContext)

	st.Context["previous_errors"] = errorContext
	st.Context["retry_attempt"] = st.AttemptCount
}
