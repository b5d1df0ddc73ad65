package status

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvilworks/codeforge/internal/workflow"
)

func TestFetchUnknownWorkspace(t *testing.T) {
	t.Parallel()

	store := NewStore()
	assert.Nil(t, store.Fetch("nope"))

	summary := store.Summary("nope")
	assert.Equal(t, "idle", summary.Status)
	assert.Equal(t, "none", summary.CurrentStep)
	assert.Zero(t, summary.Progress)
	assert.NotNil(t, summary.Logs)
	assert.NotNil(t, summary.FilesGenerated)
	assert.Empty(t, summary.Logs)
}

func TestPublishStoresSnapshot(t *testing.T) {
	t.Parallel()

	store := NewStore()
	st := workflow.NewState("ws-1", "prompt", nil, nil, 3)
	st.CurrentStep = workflow.StepCoding
	store.Publish("ws-1", st)

	// Later mutation of the live state must not leak into the snapshot.
	st.CurrentStep = workflow.StepFailed
	st.Logf("later line")

	snap := store.Fetch("ws-1")
	require.NotNil(t, snap)
	assert.Equal(t, workflow.StepCoding, snap.CurrentStep)
	assert.Empty(t, snap.Logs)

	// Mutating a fetched snapshot must not corrupt the stored one.
	snap.Logf("reader scribble")
	again := store.Fetch("ws-1")
	assert.Empty(t, again.Logs)
}

func TestClear(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Publish("ws-1", workflow.NewState("ws-1", "p", nil, nil, 3))
	store.Clear("ws-1")
	assert.Nil(t, store.Fetch("ws-1"))
	assert.Equal(t, "idle", store.Summary("ws-1").Status)
}

func TestSummaryProgressMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		step workflow.Step
		want float64
	}{
		{workflow.StepIdle, 0.0},
		{workflow.StepPlanning, 0.2},
		{workflow.StepCoding, 0.5},
		{workflow.StepTesting, 0.8},
		{workflow.StepFixing, 0.8},
		{workflow.StepFailed, 0.8},
		{workflow.StepComplete, 1.0},
	}
	store := NewStore()
	for _, tc := range tests {
		st := workflow.NewState("ws-1", "p", nil, nil, 3)
		st.CurrentStep = tc.step
		store.Publish("ws-1", st)
		assert.Equal(t, tc.want, store.Summary("ws-1").Progress, tc.step.String())
	}
}

func TestSummaryStatusDerivation(t *testing.T) {
	t.Parallel()

	store := NewStore()

	st := workflow.NewState("ws-1", "p", nil, nil, 3)
	st.CurrentStep = workflow.StepTesting
	store.Publish("ws-1", st)
	assert.Equal(t, "processing", store.Summary("ws-1").Status)

	st.CurrentStep = workflow.StepFailed
	store.Publish("ws-1", st)
	assert.Equal(t, "failed", store.Summary("ws-1").Status)

	st.CurrentStep = workflow.StepComplete
	st.Success = true
	st.FinalFiles = []workflow.FileChange{{Path: "a.go"}}
	store.Publish("ws-1", st)

	summary := store.Summary("ws-1")
	assert.Equal(t, "complete", summary.Status)
	assert.Equal(t, "complete", summary.CurrentStep)
	require.Len(t, summary.FilesGenerated, 1)
}

// Reported progress never decreases over the published sequence of one run,
// even though the step moves backward from Testing into Fixing into Coding.
func TestSummaryProgressMonotonicOverRun(t *testing.T) {
	t.Parallel()

	sequence := []workflow.Step{
		workflow.StepIdle,
		workflow.StepPlanning,
		workflow.StepCoding,
		workflow.StepTesting,
		workflow.StepFixing,
		workflow.StepCoding,
		workflow.StepTesting,
		workflow.StepComplete,
	}

	store := NewStore()
	st := workflow.NewState("ws-1", "p", nil, nil, 3)
	last := 0.0
	for i, step := range sequence {
		st.CurrentStep = step
		if step == workflow.StepFixing {
			st.AttemptCount++ // the fix transform spends an attempt
		}
		store.Publish("ws-1", st)
		got := store.Summary("ws-1").Progress
		assert.GreaterOrEqual(t, got, last, "publish %d (%s)", i, step)
		last = got
	}
	assert.Equal(t, 1.0, last)
}

// Concurrent publishers and readers on distinct keys must not corrupt each
// other's snapshots.
func TestConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewStore()
	const workers = 8
	const iterations = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := fmt.Sprintf("ws-%d", w)
			for i := 0; i < iterations; i++ {
				st := workflow.NewState(id, "p", nil, nil, 3)
				st.CurrentStep = workflow.StepCoding
				st.Logf("iteration %d", i)
				store.Publish(id, st)

				snap := store.Fetch(id)
				if snap == nil {
					t.Errorf("worker %d: lost snapshot", w)
					return
				}
				if snap.WorkspaceID != id {
					t.Errorf("worker %d: got snapshot for %s", w, snap.WorkspaceID)
					return
				}
				_ = store.Summary(fmt.Sprintf("ws-%d", (w+1)%workers))
			}
		}(w)
	}
	wg.Wait()
}
