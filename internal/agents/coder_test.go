package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvilworks/codeforge/internal/workflow"
)

func TestCoderParsesFileChanges(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{output: "Implemented. " + `{
  "files_to_create": [
    {"path": "api/login.go", "content": "package api", "language": "go", "action": "create"}
  ],
  "files_to_update": [
    {"path": "main.go", "content": "package main", "language": "go", "action": "update"}
  ],
  "summary": "login endpoint"
}`}
	coder := NewCoder(completer)
	st := workflow.NewState("ws-1", "add login", nil, nil, 3)
	st.Plan = "the plan"
	st.Tasks = []string{"implement login"}

	require.NoError(t, coder.Run(context.Background(), st))

	require.Len(t, st.FilesToCreate, 1)
	assert.Equal(t, "api/login.go", st.FilesToCreate[0].Path)
	require.Len(t, st.FilesToUpdate, 1)
	assert.Equal(t, "main.go", st.FilesToUpdate[0].Path)
	assert.Contains(t, st.Logs[0], "2 files")

	assert.Contains(t, completer.lastReq.Input, "the plan")
	assert.Contains(t, completer.lastReq.Input, "1. implement login")
}

// Each run replaces the file sets wholesale, never merging with a prior
// attempt's output.
func TestCoderOverwritesPriorAttempt(t *testing.T) {
	t.Parallel()

	coder := NewCoder(&fakeCompleter{output: `{"files_to_create": [{"path": "b.go", "content": "package b"}], "files_to_update": []}`})
	st := workflow.NewState("ws-1", "p", nil, nil, 3)
	st.FilesToCreate = []workflow.FileChange{{Path: "a.go", Content: "old"}}
	st.FilesToUpdate = []workflow.FileChange{{Path: "old.go", Content: "old"}}

	require.NoError(t, coder.Run(context.Background(), st))

	require.Len(t, st.FilesToCreate, 1)
	assert.Equal(t, "b.go", st.FilesToCreate[0].Path)
	assert.Empty(t, st.FilesToUpdate)
}

func TestCoderMalformedOutputDegradesToEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		output string
	}{
		{name: "no json", output: "I wrote some code but forgot the format."},
		{name: "invalid json", output: `{"files_to_create": [}`},
		{name: "schema violation", output: `{"files_to_create": [{"content": "missing path"}]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			coder := NewCoder(&fakeCompleter{output: tc.output})
			st := workflow.NewState("ws-1", "p", nil, nil, 3)

			require.NoError(t, coder.Run(context.Background(), st))
			assert.NotNil(t, st.FilesToCreate)
			assert.Empty(t, st.FilesToCreate)
			assert.NotNil(t, st.FilesToUpdate)
			assert.Empty(t, st.FilesToUpdate)
		})
	}
}

func TestCoderCompletionFailure(t *testing.T) {
	t.Parallel()

	coder := NewCoder(&fakeCompleter{err: errors.New("gateway timeout")})
	st := workflow.NewState("ws-1", "p", nil, nil, 3)

	require.Error(t, coder.Run(context.Background(), st))
}
