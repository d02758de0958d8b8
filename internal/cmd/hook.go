package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quaestor-dev/quaestor/internal/config"
	"github.com/quaestor-dev/quaestor/internal/dispatch"
	"github.com/quaestor-dev/quaestor/internal/hook"
	"github.com/quaestor-dev/quaestor/internal/respond"
	"github.com/quaestor-dev/quaestor/internal/workspace"
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Run as a Claude Code hook (reads JSON from stdin)",
	Long: `Run one hook invocation.

This is the production entrypoint Claude Code calls. Register it in
.claude/settings.json:

  {
    "hooks": {
      "PostToolUse": [
        {"matcher": "", "hooks": [{"type": "command", "command": "quaestor hook"}]}
      ]
    }
  }

The event kind comes from the stdin payload's hook_event_name, so one
registration line serves every event. Output is a single JSON object on
stdout; exit code 0 means continue, 2 means block the current action.`,
	Args: cobra.NoArgs,
	RunE: runHook,
}

func init() {
	rootCmd.AddCommand(hookCmd)
}

func runHook(cmd *cobra.Command, args []string) error {
	in, err := hook.Decode(cmd.InOrStdin())
	if err != nil {
		// The host sent something we cannot interpret. Blocking here
		// would wedge the session on our bug, so answer advisory.
		fmt.Fprintf(os.Stderr, "quaestor: %v\n", err)
		_ = respond.Write(cmd.OutOrStdout(), respond.Payload{
			Error: fmt.Sprintf("invalid hook input: %v", err),
		})
		exitCode = respond.ExitContinue
		return nil
	}

	root := workspace.Resolve(in.CWD)
	settings, err := config.Load(root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "quaestor: %v\n", err)
		_ = respond.Write(cmd.OutOrStdout(), respond.Payload{
			Error: fmt.Sprintf("loading settings: %v", err),
		})
		exitCode = respond.ExitContinue
		return nil
	}

	logger := newLogger(settings.Defaults.LogLevel)
	d := dispatch.New(root, settings, logger)

	payload, code := d.Dispatch(cmd.Context(), in)
	if err := respond.Write(cmd.OutOrStdout(), payload); err != nil {
		return err
	}
	exitCode = code
	return nil
}
