// Package agents implements the three stage capabilities of the pipeline:
// Planner, Coder and Tester. Each one turns the workflow state into a
// completion request, calls the configured LLM, and writes its structured
// output back into the state. Malformed completions degrade to defined
// defaults rather than failing the workflow.
package agents

import (
	"fmt"
	"sort"
	"strings"

	"github.com/anvilworks/codeforge/internal/workflow"
)

func formatExistingFiles(files []workflow.ExistingFile) string {
	if len(files) == 0 {
		return "No existing files"
	}
	lines := make([]string, 0, len(files))
	for _, f := range files {
		language := f.Language
		if language == "" {
			language = "unknown"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", f.Path, language))
	}
	return strings.Join(lines, "\n")
}

func formatContext(context map[string]any) string {
	if len(context) == 0 {
		return "No additional context"
	}
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %v", k, context[k]))
	}
	return strings.Join(lines, "\n")
}

func formatTasks(tasks []string) string {
	lines := make([]string, 0, len(tasks))
	for i, task := range tasks {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, task))
	}
	return strings.Join(lines, "\n")
}

// formatFileContents renders FULL file contents, never a truncated excerpt,
// so the Tester can validate what was actually generated.
func formatFileContents(files []workflow.FileChange) string {
	if len(files) == 0 {
		return "No files"
	}
	var b strings.Builder
	for _, f := range files {
		fmt.Fprintf(&b, "\n=== %s ===\n", f.Path)
		b.WriteString(f.Content)
		b.WriteString("\n")
	}
	return b.String()
}
