package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quaestor-dev/quaestor/internal/config"
	"github.com/quaestor-dev/quaestor/internal/hook"
	"github.com/quaestor-dev/quaestor/internal/style"
	"github.com/quaestor-dev/quaestor/internal/workspace"
)

var (
	hooksJSON    bool
	hooksVerbose bool
)

var hooksCmd = &cobra.Command{
	Use:   "hooks",
	Short: "List configured hooks for this project",
	Long: `List the hooks configured in .quaestor/hooks.yaml.

Examples:
  quaestor hooks            # List hooks by event kind
  quaestor hooks --verbose  # Show commands and budgets
  quaestor hooks --json     # JSON output`,
	RunE: runHooksList,
}

func init() {
	rootCmd.AddCommand(hooksCmd)
	hooksCmd.Flags().BoolVar(&hooksJSON, "json", false, "Output as JSON")
	hooksCmd.Flags().BoolVarP(&hooksVerbose, "verbose", "v", false, "Show hook commands")
}

// HookInfo describes one configured hook for listing.
type HookInfo struct {
	Kind     string `json:"kind"`
	Matcher  string `json:"matcher,omitempty"`
	Command  string `json:"command"`
	Timeout  string `json:"timeout"`
	Blocking bool   `json:"blocking"`
}

// HooksOutput is the JSON shape of the hooks listing.
type HooksOutput struct {
	ProjectRoot string     `json:"project_root"`
	Hooks       []HookInfo `json:"hooks"`
	Count       int        `json:"count"`
}

func runHooksList(cmd *cobra.Command, args []string) error {
	root, err := workspace.FindFromCwd()
	if err != nil {
		return err
	}
	settings, err := config.Load(root)
	if err != nil {
		return err
	}

	var infos []HookInfo
	for _, kind := range hook.AllKinds() {
		for _, entry := range settings.Hooks[string(kind)] {
			infos = append(infos, HookInfo{
				Kind:     string(kind),
				Matcher:  entry.Matcher,
				Command:  entry.Command,
				Timeout:  settings.Timeout(entry).String(),
				Blocking: entry.Blocking,
			})
		}
	}

	if hooksJSON {
		out := HooksOutput{ProjectRoot: root, Hooks: infos, Count: len(infos)}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	w := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(w, style.Dim.Render("No hooks configured in "+config.Dir+"/"+config.SettingsFile))
		return nil
	}

	fmt.Fprintf(w, "\n%s Configured hooks\n", style.Bold.Render("▸"))
	fmt.Fprintf(w, "Project root: %s\n\n", style.Dim.Render(root))

	lastKind := ""
	for _, info := range infos {
		if info.Kind != lastKind {
			fmt.Fprintf(w, "%s\n", style.Bold.Render(info.Kind))
			lastKind = info.Kind
		}
		marker := "●"
		if info.Blocking {
			marker = style.Error.Render("■")
		}
		matcher := ""
		if info.Matcher != "" {
			matcher = style.Dim.Render(" [" + info.Matcher + "]")
		}
		fmt.Fprintf(w, "  %s %s%s\n", marker, truncateLine(info.Command, 60), matcher)
		if hooksVerbose {
			fmt.Fprintf(w, "    %s timeout %s, blocking %v\n",
				style.Dim.Render("→"), info.Timeout, info.Blocking)
		}
	}
	fmt.Fprintf(w, "\n%s %d hook(s)\n", style.Dim.Render("Total:"), len(infos))
	return nil
}

func truncateLine(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen-3] + "..."
	}
	return s
}
