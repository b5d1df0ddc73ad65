// Package server provides the HTTP boundary of the code-generation service.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/anvilworks/codeforge/internal/status"
	"github.com/anvilworks/codeforge/internal/workflow"
)

// Runner drives one workflow state to a terminal step.
type Runner interface {
	Run(ctx context.Context, st *workflow.State) *workflow.State
}

// Server holds the HTTP handlers and their collaborators.
type Server struct {
	engine        Runner
	store         *status.Store
	maxAttempts   int
	llmConfigured bool
}

// New creates the HTTP server facade.
func New(engine Runner, store *status.Store, maxAttempts int, llmConfigured bool) *Server {
	if maxAttempts <= 0 {
		maxAttempts = workflow.DefaultMaxAttempts
	}
	return &Server{
		engine:        engine,
		store:         store,
		maxAttempts:   maxAttempts,
		llmConfigured: llmConfigured,
	}
}

// GenerateRequest is the payload of POST /generate.
type GenerateRequest struct {
	Prompt        string                  `json:"prompt"`
	WorkspaceID   string                  `json:"workspace_id"`
	ExistingFiles []workflow.ExistingFile `json:"existing_files"`
	Context       map[string]any          `json:"context"`
}

// StateResponse is the caller-facing view of a finished workflow.
type StateResponse struct {
	Status         string                `json:"status"`
	CurrentStep    string                `json:"current_step"`
	Progress       float64               `json:"progress"`
	Logs           []string              `json:"logs"`
	FilesGenerated []workflow.FileChange `json:"files_generated"`
	Errors         []string              `json:"errors"`
}

// HealthResponse is the payload of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	LLMConfigured bool   `json:"llm_configured"`
}

// Routes returns the HTTP handler for the service.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("GET /status/{workspace_id}", s.handleStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	return recoverJSON(mux)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Prompt == "" || req.WorkspaceID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "prompt and workspace_id are required"})
		return
	}

	st := workflow.NewState(req.WorkspaceID, req.Prompt, req.ExistingFiles, req.Context, s.maxAttempts)
	s.store.Publish(st.WorkspaceID, st)

	log.Info().Str("workspace_id", st.WorkspaceID).Msg("workflow started")
	final := s.engine.Run(r.Context(), st)

	progress := 0.5
	outcome := "failed"
	if final.Success {
		progress = 1.0
		outcome = "complete"
	}
	writeJSON(w, http.StatusOK, StateResponse{
		Status:         outcome,
		CurrentStep:    final.CurrentStep.String(),
		Progress:       progress,
		Logs:           final.Logs,
		FilesGenerated: final.FinalFiles,
		Errors:         final.Errors,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.PathValue("workspace_id")
	writeJSON(w, http.StatusOK, s.store.Summary(workspaceID))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Service:       "codeforge",
		LLMConfigured: s.llmConfigured,
	})
}

// recoverJSON converts an escaping panic into a generic failure response so
// a single request can never crash the serving process.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error().Any("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}
