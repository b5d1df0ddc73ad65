package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/anvilworks/codeforge/internal/llm"
	"github.com/anvilworks/codeforge/internal/workflow"
)

const coderInstructions = `You are an expert full-stack developer who writes production-quality code.

Your job is to implement the given plan by generating complete, working code files.

Guidelines:
1. Write complete files, not snippets or placeholders
2. Follow best practices and modern patterns
3. Include necessary imports and dependencies
4. Add brief comments for complex logic
5. Ensure code is ready to run without modifications
6. Follow the project's existing patterns and conventions

Output Format (JSON):
{
  "files_to_create": [
    {
      "path": "path/to/file.ts",
      "content": "full file content here",
      "language": "typescript",
      "action": "create"
    }
  ],
  "files_to_update": [
    {
      "path": "existing/file.ts",
      "content": "updated full content",
      "language": "typescript",
      "action": "update"
    }
  ],
  "summary": "Brief description of what was implemented"
}

Write production-ready code that works correctly.`

type coderOutput struct {
	FilesToCreate []workflow.FileChange `json:"files_to_create"`
	FilesToUpdate []workflow.FileChange `json:"files_to_update"`
}

// Coder generates file changes implementing the plan.
type Coder struct {
	llm llm.Completer
}

// NewCoder constructs the Code stage.
func NewCoder(completer llm.Completer) *Coder {
	return &Coder{llm: completer}
}

// Name implements workflow.Stage.
func (c *Coder) Name() string { return "Coder" }

// Run generates code files from the plan. File sets are overwritten
// wholesale on every attempt, never merged across retries.
func (c *Coder) Run(ctx context.Context, st *workflow.State) error {
	plan := st.Plan
	if plan == "" {
		plan = "No plan provided"
	}
	input := fmt.Sprintf(`Implementation Plan:
%s

Tasks to Implement:
%s

Existing Files:
%s

Generate complete, working code files to implement this plan.`,
		plan,
		formatTasks(st.Tasks),
		formatExistingFiles(st.ExistingFiles),
	)

	resp, err := c.llm.Complete(ctx, llm.Request{
		Instructions: coderInstructions,
		Input:        input,
	})
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	out := parseCoderOutput(resp.OutputText)
	st.FilesToCreate = out.FilesToCreate
	st.FilesToUpdate = out.FilesToUpdate
	st.Logf("[Coder] Generated %d files", len(out.FilesToCreate)+len(out.FilesToUpdate))
	return nil
}

// parseCoderOutput decodes the completion into file changes. Anything that
// is not a schema-valid JSON object degrades to empty file sets so the
// pipeline keeps progressing.
func parseCoderOutput(content string) coderOutput {
	empty := coderOutput{
		FilesToCreate: []workflow.FileChange{},
		FilesToUpdate: []workflow.FileChange{},
	}

	raw := llm.ExtractJSON(content)
	if raw == "" {
		log.Warn().Msg("coder output contained no JSON object, using empty file sets")
		return empty
	}
	if err := validateSchema(coderOutputSchema, raw); err != nil {
		log.Warn().Err(err).Msg("coder output failed schema validation, using empty file sets")
		return empty
	}

	var out coderOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		log.Warn().Err(err).Msg("coder output is not valid JSON, using empty file sets")
		return empty
	}
	if out.FilesToCreate == nil {
		out.FilesToCreate = []workflow.FileChange{}
	}
	if out.FilesToUpdate == nil {
		out.FilesToUpdate = []workflow.FileChange{}
	}
	return out
}
