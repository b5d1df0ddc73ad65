package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/anvilworks/codeforge/internal/llm"
	"github.com/anvilworks/codeforge/internal/workflow"
)

const plannerInstructions = `You are a senior software architect and technical planner.
Your job is to analyze user requirements and create detailed implementation plans.

Given a user prompt, you must:
1. Understand the requirements thoroughly
2. Analyze the existing codebase context (if provided)
3. Break down the work into specific, actionable tasks
4. Identify which files need to be created or modified
5. Plan the technical approach and architecture

Output a plan with:
- summary: Brief overview of what needs to be built
- tasks: Numbered list of specific tasks to implement
- files_to_create: List of {path, purpose, language} for new files
- files_to_modify: List of {path, changes_needed} for existing files
- technical_notes: Important architectural or technical considerations

Be specific and actionable. The Coder agent will implement your plan.`

// defaultTask is the fallback when no task list can be extracted.
const defaultTask = "Implement the requested feature"

// Planner breaks the user prompt down into a plan and a task list.
type Planner struct {
	llm llm.Completer
}

// NewPlanner constructs the Plan stage.
func NewPlanner(completer llm.Completer) *Planner {
	return &Planner{llm: completer}
}

// Name implements workflow.Stage.
func (p *Planner) Name() string { return "Planner" }

// Run generates the implementation plan and extracts tasks from it.
func (p *Planner) Run(ctx context.Context, st *workflow.State) error {
	input := fmt.Sprintf(`User Request: %s

Existing Files in Workspace:
%s

Additional Context:
%s

Create a detailed implementation plan.`,
		st.Prompt,
		formatExistingFiles(st.ExistingFiles),
		formatContext(st.Context),
	)

	resp, err := p.llm.Complete(ctx, llm.Request{
		Instructions: plannerInstructions,
		Input:        input,
	})
	if err != nil {
		return fmt.Errorf("generate plan: %w", err)
	}

	st.Plan = resp.OutputText
	st.Tasks = extractTasks(resp.OutputText)
	st.Logf("[Planner] Generated plan with %d tasks", len(st.Tasks))
	return nil
}

// extractTasks pulls numbered or bulleted lines out of free-form plan text.
// Lines shorter than 10 characters after stripping markers are noise.
func extractTasks(planText string) []string {
	var tasks []string
	for _, line := range strings.Split(planText, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		first := line[0]
		if (first < '0' || first > '9') && first != '-' && first != '*' {
			continue
		}
		task := strings.TrimSpace(strings.TrimLeft(line, "0123456789.-* "))
		if len(task) > 10 {
			tasks = append(tasks, task)
		}
	}
	if len(tasks) == 0 {
		return []string{defaultTask}
	}
	return tasks
}
