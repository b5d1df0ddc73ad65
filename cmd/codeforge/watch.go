package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

const watchPollInterval = 750 * time.Millisecond

func watchCmd() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:          "watch <workspace-id>",
		Short:        "Watch a workflow's progress until it finishes",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(_ *cobra.Command, args []string) error {
			model := watchModel{
				serverURL:   serverURL,
				workspaceID: args[0],
				progress:    progress.New(progress.WithDefaultGradient()),
			}
			_, err := tea.NewProgram(model).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:8001", "codeforge service base URL")
	return cmd
}

type summaryMsg statusSummary

type watchErrMsg struct{ err error }

type pollTickMsg struct{}

type watchModel struct {
	serverURL   string
	workspaceID string
	progress    progress.Model
	summary     statusSummary
	err         error
}

func (m watchModel) Init() tea.Cmd {
	return m.poll
}

func (m watchModel) poll() tea.Msg {
	summary, err := fetchSummary(m.serverURL, m.workspaceID)
	if err != nil {
		return watchErrMsg{err: err}
	}
	return summaryMsg(summary)
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case watchErrMsg:
		m.err = msg.err
		return m, tea.Quit
	case summaryMsg:
		m.summary = statusSummary(msg)
		if m.summary.Status == "complete" || m.summary.Status == "failed" {
			return m, tea.Quit
		}
		return m, tea.Tick(watchPollInterval, func(time.Time) tea.Msg { return pollTickMsg{} })
	case pollTickMsg:
		return m, m.poll
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.err != nil {
		return errStyle.Render(m.err.Error()) + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Workspace "+m.workspaceID) + "\n\n")
	b.WriteString(m.progress.ViewAs(m.summary.Progress) + "\n\n")
	b.WriteString(fmt.Sprintf("status: %s  step: %s  attempts: %d\n",
		m.summary.Status, m.summary.CurrentStep, m.summary.AttemptCount))

	logs := m.summary.Logs
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	for _, line := range logs {
		b.WriteString("  " + line + "\n")
	}
	b.WriteString("\npress q to quit\n")
	return b.String()
}
