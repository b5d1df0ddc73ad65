package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// statusSummary mirrors the GET /status response shape.
type statusSummary struct {
	Status         string   `json:"status"`
	CurrentStep    string   `json:"current_step"`
	Progress       float64  `json:"progress"`
	Logs           []string `json:"logs"`
	Errors         []string `json:"errors"`
	AttemptCount   int      `json:"attempt_count"`
	FilesGenerated []struct {
		Path string `json:"path"`
	} `json:"files_generated"`
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(10)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

func statusCmd() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:          "status <workspace-id>",
		Short:        "Show the workflow status for a workspace",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := fetchSummary(serverURL, args[0])
			if err != nil {
				return err
			}
			cmd.Println(renderSummary(args[0], summary))
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8001", "codeforge service base URL")
	return cmd
}

func fetchSummary(baseURL, workspaceID string) (statusSummary, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	url := fmt.Sprintf("%s/status/%s", strings.TrimRight(baseURL, "/"), workspaceID)
	resp, err := client.Get(url)
	if err != nil {
		return statusSummary{}, fmt.Errorf("query status: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return statusSummary{}, fmt.Errorf("query status: unexpected response %s", resp.Status)
	}
	var summary statusSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return statusSummary{}, fmt.Errorf("decode status response: %w", err)
	}
	return summary, nil
}

func renderSummary(workspaceID string, s statusSummary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Workspace "+workspaceID) + "\n")

	statusLine := s.Status
	switch s.Status {
	case "complete":
		statusLine = okStyle.Render(s.Status)
	case "failed":
		statusLine = errStyle.Render(s.Status)
	}
	b.WriteString(labelStyle.Render("status") + statusLine + "\n")
	b.WriteString(labelStyle.Render("step") + s.CurrentStep + "\n")
	b.WriteString(labelStyle.Render("progress") + fmt.Sprintf("%.0f%%", s.Progress*100) + "\n")
	b.WriteString(labelStyle.Render("attempts") + fmt.Sprintf("%d", s.AttemptCount) + "\n")

	if len(s.FilesGenerated) > 0 {
		b.WriteString(labelStyle.Render("files") + "\n")
		for _, f := range s.FilesGenerated {
			b.WriteString("  " + f.Path + "\n")
		}
	}
	if len(s.Errors) > 0 {
		b.WriteString(labelStyle.Render("errors") + "\n")
		for _, e := range s.Errors {
			b.WriteString("  " + errStyle.Render(e) + "\n")
		}
	}
	if len(s.Logs) > 0 {
		b.WriteString(labelStyle.Render("log") + "\n")
		for _, line := range s.Logs {
			b.WriteString("  " + line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
