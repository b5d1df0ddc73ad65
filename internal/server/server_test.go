package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anvilworks/codeforge/internal/status"
	"github.com/anvilworks/codeforge/internal/workflow"
)

// stubRunner mutates the state the way a finished pipeline would and
// records what it received.
type stubRunner struct {
	mutate  func(st *workflow.State)
	gotMax  int
	gotCtx  map[string]any
	started bool
}

func (r *stubRunner) Run(_ context.Context, st *workflow.State) *workflow.State {
	r.started = true
	r.gotMax = st.MaxAttempts
	r.gotCtx = st.Context
	if r.mutate != nil {
		r.mutate(st)
	}
	return st
}

func newTestServer(runner *stubRunner) (*Server, *status.Store) {
	store := status.NewStore()
	return New(runner, store, 3, true), store
}

func TestGenerateSuccess(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{mutate: func(st *workflow.State) {
		st.CurrentStep = workflow.StepComplete
		st.Success = true
		st.FinalFiles = []workflow.FileChange{{Path: "main.go", Content: "package main"}}
		st.Logf("[Tester] All tests passed ✓")
	}}
	srv, _ := newTestServer(runner)

	body := `{"prompt": "build a todo app", "workspace_id": "ws-42", "context": {"framework": "react"}}`
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "complete", resp.Status)
	assert.Equal(t, "complete", resp.CurrentStep)
	assert.Equal(t, 1.0, resp.Progress)
	require.Len(t, resp.FilesGenerated, 1)
	assert.Equal(t, "main.go", resp.FilesGenerated[0].Path)

	assert.True(t, runner.started)
	assert.Equal(t, 3, runner.gotMax)
	assert.Equal(t, "react", runner.gotCtx["framework"])
}

func TestGenerateFailure(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{mutate: func(st *workflow.State) {
		st.CurrentStep = workflow.StepFailed
		st.Success = false
		st.Errors = append(st.Errors, "[Coder Error] model unavailable")
	}}
	srv, _ := newTestServer(runner)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate",
		strings.NewReader(`{"prompt": "p", "workspace_id": "ws-1"}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "failed", resp.Status)
	assert.Equal(t, 0.5, resp.Progress)
	assert.Equal(t, []string{"[Coder Error] model unavailable"}, resp.Errors)
}

func TestGenerateBadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"prompt": `},
		{name: "missing prompt", body: `{"workspace_id": "ws-1"}`},
		{name: "missing workspace", body: `{"prompt": "p"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			runner := &stubRunner{}
			srv, _ := newTestServer(runner)

			rec := httptest.NewRecorder()
			srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(tc.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, runner.started)
		})
	}
}

func TestStatusKnownWorkspace(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(&stubRunner{})
	st := workflow.NewState("ws-7", "p", nil, nil, 3)
	st.CurrentStep = workflow.StepCoding
	st.Logf("[Planner] Generated plan with 4 tasks")
	store.Publish("ws-7", st)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/ws-7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "processing", resp["status"])
	assert.Equal(t, "coding", resp["current_step"])
	assert.Equal(t, 0.5, resp["progress"])
}

func TestStatusUnknownWorkspace(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(&stubRunner{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/nope", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "idle", resp["status"])
	assert.Equal(t, "none", resp["current_step"])
	assert.Equal(t, 0.0, resp["progress"])
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(&stubRunner{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "codeforge", resp.Service)
	assert.True(t, resp.LLMConfigured)
}

// A handler panic is converted into a JSON 500, never a crashed process.
func TestPanicRecovery(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{mutate: func(*workflow.State) { panic("boom") }}
	srv, _ := newTestServer(runner)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/generate",
		strings.NewReader(`{"prompt": "p", "workspace_id": "ws-1"}`)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}
