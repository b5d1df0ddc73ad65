package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/anvilworks/codeforge/internal/llm"
	"github.com/anvilworks/codeforge/internal/workflow"
)

const testerInstructions = `You are an expert code reviewer and QA engineer.

Your job is to review generated code and identify any issues:
1. Syntax errors or typos
2. Missing imports or dependencies
3. Logic errors or bugs
4. Incomplete implementations
5. Security vulnerabilities
6. Code that won't work as intended

Output Format (JSON):
{
  "passed": true/false,
  "errors": ["list of specific errors found"],
  "warnings": ["list of potential issues"],
  "suggestions": ["improvements that could be made"]
}

Be thorough but fair. If code is correct, pass it.`

// failureKeywords drive the fallback verdict when the completion carries no
// parseable JSON.
var failureKeywords = []string{"error", "fail", "bug", "issue", "problem"}

type testerOutput struct {
	Passed bool     `json:"passed"`
	Errors []string `json:"errors"`
}

// Tester validates the generated files against the plan.
type Tester struct {
	llm llm.Completer
}

// NewTester constructs the Test stage.
func NewTester(completer llm.Completer) *Tester {
	return &Tester{llm: completer}
}

// Name implements workflow.Stage.
func (t *Tester) Name() string { return "Tester" }

// Run reviews the generated code and records the verdict. Success is set
// only when the review reports a pass.
func (t *Tester) Run(ctx context.Context, st *workflow.State) error {
	plan := st.Plan
	if plan == "" {
		plan = "No plan"
	}
	input := fmt.Sprintf(`Review the following generated code:

Files to Create:
%s

Files to Update:
%s

Original Plan:
%s

Validate this code and report any errors or issues.`,
		formatFileContents(st.FilesToCreate),
		formatFileContents(st.FilesToUpdate),
		plan,
	)

	resp, err := t.llm.Complete(ctx, llm.Request{
		Instructions: testerInstructions,
		Input:        input,
	})
	if err != nil {
		st.Success = false
		return fmt.Errorf("validate code: %w", err)
	}

	result := parseTesterOutput(resp.OutputText)
	st.TestResult = &result
	st.ValidationErrors = result.Errors

	if result.Passed {
		st.Success = true
		st.Logf("[Tester] All tests passed ✓")
	} else {
		st.Success = false
		st.Logf("[Tester] Found %d errors", len(result.Errors))
	}
	return nil
}

// parseTesterOutput decodes the review verdict. When no schema-valid JSON
// is present the verdict is inferred from failure keywords in the raw text,
// keeping the pipeline progressing on malformed output.
func parseTesterOutput(content string) workflow.TestResult {
	if raw := llm.ExtractJSON(content); raw != "" {
		if err := validateSchema(testerOutputSchema, raw); err == nil {
			var out testerOutput
			if err := json.Unmarshal([]byte(raw), &out); err == nil {
				if out.Errors == nil {
					out.Errors = []string{}
				}
				return workflow.TestResult{
					Passed:    out.Passed,
					Errors:    out.Errors,
					RawOutput: content,
				}
			}
		} else {
			log.Warn().Err(err).Msg("tester output failed schema validation, falling back to keyword verdict")
		}
	}

	lower := strings.ToLower(content)
	for _, keyword := range failureKeywords {
		if strings.Contains(lower, keyword) {
			return workflow.TestResult{
				Passed:    false,
				Errors:    []string{"Validation failed - see output"},
				RawOutput: content,
			}
		}
	}
	return workflow.TestResult{
		Passed:    true,
		Errors:    []string{},
		RawOutput: content,
	}
}
