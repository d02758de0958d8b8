package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quaestor-dev/quaestor/internal/config"
	"github.com/quaestor-dev/quaestor/internal/errorlog"
	"github.com/quaestor-dev/quaestor/internal/style"
	"github.com/quaestor-dev/quaestor/internal/workspace"
)

var (
	errorsLimit int
	errorsJSON  bool
	errorsClear bool
)

var hooksErrorsCmd = &cobra.Command{
	Use:   "errors",
	Short: "List recent hook errors",
	Long: `List hook failures recorded for this project.

Failures are deduplicated within a 60-second window; the count shows how
many times the same error repeated.

Examples:
  quaestor hooks errors            # Show last 20 errors
  quaestor hooks errors --limit 50
  quaestor hooks errors --json
  quaestor hooks errors --clear`,
	RunE: runHooksErrors,
}

func init() {
	hooksCmd.AddCommand(hooksErrorsCmd)
	hooksErrorsCmd.Flags().IntVar(&errorsLimit, "limit", 20, "Maximum number of errors to show")
	hooksErrorsCmd.Flags().BoolVar(&errorsJSON, "json", false, "Output as JSON")
	hooksErrorsCmd.Flags().BoolVar(&errorsClear, "clear", false, "Clear all logged errors")
}

func runHooksErrors(cmd *cobra.Command, args []string) error {
	root, err := workspace.FindFromCwd()
	if err != nil {
		return err
	}
	settings, err := config.Load(root)
	if err != nil {
		return err
	}
	log := errorlog.New(settings.StateDir(root))

	if errorsClear {
		if err := log.Clear(); err != nil {
			return fmt.Errorf("clearing errors: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Hook errors cleared")
		return nil
	}

	entries, err := log.Recent(errorsLimit)
	if err != nil {
		return fmt.Errorf("reading errors: %w", err)
	}

	w := cmd.OutOrStdout()
	if errorsJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintln(w, style.Dim.Render("No hook errors logged"))
		return nil
	}

	fmt.Fprintf(w, "\n%s Recent hook errors\n\n", style.Bold.Render("⚠"))
	for _, e := range entries {
		ts, _ := time.Parse(time.RFC3339, e.Timestamp)
		countStr := ""
		if e.Count > 1 {
			countStr = fmt.Sprintf(" (x%d)", e.Count)
		}
		fmt.Fprintf(w, "  %s %s [%s]%s\n",
			style.Bold.Render(e.HookKind), formatAge(ts), e.ErrorKind, countStr)
		fmt.Fprintf(w, "    %s %s\n", style.Dim.Render("command:"), truncateLine(e.Command, 60))
		if e.Message != "" {
			fmt.Fprintf(w, "    %s %s\n", style.Dim.Render("message:"), truncateLine(e.Message, 60))
		}
	}
	fmt.Fprintf(w, "\n%s %d error(s) shown\n", style.Dim.Render("Total:"), len(entries))
	return nil
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
