package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quaestor-dev/quaestor/internal/config"
	"github.com/quaestor-dev/quaestor/internal/dispatch"
	"github.com/quaestor-dev/quaestor/internal/hook"
	"github.com/quaestor-dev/quaestor/internal/respond"
	"github.com/quaestor-dev/quaestor/internal/style"
	"github.com/quaestor-dev/quaestor/internal/workspace"
)

var (
	fireTool string
	fireJSON bool
)

var hooksFireCmd = &cobra.Command{
	Use:   "fire <event>",
	Short: "Manually fire a hook event for testing",
	Long: `Fire a hook event with a synthetic payload.

Runs the handlers configured for the event without waiting for the real
Claude Code trigger. Useful for trying out hook commands and budgets.

Event kinds:
  SessionStart PreCompact UserPromptSubmit PreToolUse PostToolUse
  Notification SubagentStop Stop

Examples:
  quaestor hooks fire Stop
  quaestor hooks fire PostToolUse --tool Edit
  quaestor hooks fire Stop --json`,
	Args: cobra.ExactArgs(1),
	RunE: runHooksFire,
}

func init() {
	hooksCmd.AddCommand(hooksFireCmd)
	hooksFireCmd.Flags().StringVar(&fireTool, "tool", "", "Tool name for the synthetic payload")
	hooksFireCmd.Flags().BoolVar(&fireJSON, "json", false, "Output the raw hook response")
}

func runHooksFire(cmd *cobra.Command, args []string) error {
	kind := hook.Kind(args[0])
	if !kind.IsValid() {
		return fmt.Errorf("unknown event kind %q (see --help for the list)", args[0])
	}

	root, err := workspace.FindFromCwd()
	if err != nil {
		return err
	}
	settings, err := config.Load(root)
	if err != nil {
		return err
	}

	in := &hook.Input{
		SessionID:     "manual-fire",
		CWD:           root,
		HookEventName: string(kind),
		ToolName:      fireTool,
		ReceivedAt:    time.Now().UTC(),
		Payload:       map[string]any{"hook_event_name": string(kind)},
	}

	d := dispatch.New(root, settings, newLogger(settings.Defaults.LogLevel))
	payload, code := d.Dispatch(cmd.Context(), in)

	if fireJSON {
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	w := cmd.OutOrStdout()
	status := style.Success.Render("✓")
	if code == respond.ExitBlock {
		status = style.Error.Render("✗")
	}
	fmt.Fprintf(w, "%s %s exit %d", status, kind, code)
	if payload.Meta != nil {
		fmt.Fprintf(w, " %s", style.Dim.Render(fmt.Sprintf("(%dms)", payload.Meta.DurationMS)))
	}
	fmt.Fprintln(w)
	if payload.Error != "" {
		fmt.Fprintf(w, "  %s %s\n", style.Error.Render("error:"), payload.Error)
	}
	if payload.Message != "" && payload.Error == "" {
		fmt.Fprintf(w, "  %s\n", style.Dim.Render(strings.TrimSpace(payload.Message)))
	}
	return nil
}
