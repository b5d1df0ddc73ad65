package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/anvilworks/codeforge/internal/agents"
	"github.com/anvilworks/codeforge/internal/llm"
	"github.com/anvilworks/codeforge/internal/status"
	"github.com/anvilworks/codeforge/internal/workflow"
)

func runCmd() *cobra.Command {
	var (
		workspaceID string
		maxAttempts int
		output      string
		showPlan    bool
	)
	cmd := &cobra.Command{
		Use:          "run <prompt>",
		Short:        "Run one code-generation workflow without the HTTP service",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if maxAttempts <= 0 {
				maxAttempts = cfg.Workflow.MaxAttempts
			}
			if workspaceID == "" {
				workspaceID, err = newWorkspaceID()
				if err != nil {
					return err
				}
			}

			completer, err := llm.New(cmd.Context(), llmConfig(cfg), llmRetryConfig(cfg))
			if err != nil {
				return err
			}
			store := status.NewStore()
			engine := workflow.NewEngine(
				agents.NewPlanner(completer),
				agents.NewCoder(completer),
				agents.NewTester(completer),
				store,
			)

			st := workflow.NewState(workspaceID, args[0], nil, nil, maxAttempts)
			final := engine.Run(cmd.Context(), st)

			if err := printState(cmd, final, output); err != nil {
				return err
			}
			if showPlan && final.Plan != "" {
				rendered, err := glamour.Render(final.Plan, "dark")
				if err != nil {
					return fmt.Errorf("render plan: %w", err)
				}
				cmd.Print(rendered)
			}
			if !final.Success {
				return fmt.Errorf("workflow %s failed", workspaceID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&workspaceID, "workspace", "", "workspace id (generated when empty)")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "max Code/Test executions (defaults to config)")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format: json or yaml")
	cmd.Flags().BoolVar(&showPlan, "show-plan", false, "render the generated plan as markdown")
	return cmd
}

func printState(cmd *cobra.Command, st *workflow.State, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}
		cmd.Println(string(data))
	case "yaml":
		// Round-trip through the JSON representation so both formats share
		// the same wire field names.
		raw, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}
		data, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshal state: %w", err)
		}
		cmd.Print(string(data))
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	return nil
}

func newWorkspaceID() (string, error) {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate workspace id: %w", err)
	}
	ts := time.Now().UTC().Format("20060102-150405")
	return fmt.Sprintf("ws-%s-%s", ts, hex.EncodeToString(buf)), nil
}
