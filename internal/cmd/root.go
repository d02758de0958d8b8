// Package cmd implements the quaestor command tree.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "quaestor",
	Short: "Reliability guard for Claude Code hooks",
	Long: `Quaestor guards Claude Code hook executions.

It is wired into .claude/settings.json hook commands, reads the host's
JSON event from stdin, runs the configured work under a deadline with
retries, persists TODO completion state atomically, and answers with the
JSON-plus-exit-code protocol the host expects (0 = continue, 2 = block).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitCode carries the host protocol exit code out of the hook command;
// cobra only distinguishes nil from error.
var exitCode int

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return exitCode
}

// newLogger builds the stderr logger. Stdout belongs to the host
// protocol and never sees log lines.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
