// Package dispatch routes a decoded hook event to its handlers: the
// TodoWrite completion tracker and any commands configured for the event
// kind. Every handler runs under the guard; the aggregate outcome is
// encoded once at the end into the host's payload and exit code.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/quaestor-dev/quaestor/internal/config"
	"github.com/quaestor-dev/quaestor/internal/errorlog"
	"github.com/quaestor-dev/quaestor/internal/events"
	"github.com/quaestor-dev/quaestor/internal/guard"
	"github.com/quaestor-dev/quaestor/internal/hook"
	"github.com/quaestor-dev/quaestor/internal/respond"
	"github.com/quaestor-dev/quaestor/internal/state"
	"github.com/quaestor-dev/quaestor/internal/todo"
)

// Dispatcher handles hook events for one project root.
type Dispatcher struct {
	root     string
	settings *config.Settings
	logger   *slog.Logger
	feed     *events.Feed
	errs     *errorlog.Log
}

// New builds a Dispatcher. The state dir comes from settings, so tests
// can point everything at a temp directory.
func New(root string, settings *config.Settings, logger *slog.Logger) *Dispatcher {
	stateDir := settings.StateDir(root)
	return &Dispatcher{
		root:     root,
		settings: settings,
		logger:   logger,
		feed:     events.NewFeed(stateDir),
		errs:     errorlog.New(stateDir),
	}
}

// step is one handler execution within an invocation.
type step struct {
	Name     string       `json:"name"`
	Command  string       `json:"command,omitempty"`
	Blocking bool         `json:"-"`
	Result   guard.Result `json:"result"`
}

// Dispatch runs all handlers for the event and returns the host payload
// and exit code. It never returns an error: failures become typed results
// inside the payload, because the host only understands JSON and exit
// codes.
func (d *Dispatcher) Dispatch(ctx context.Context, in *hook.Input) (respond.Payload, int) {
	start := time.Now()
	kind := in.Kind()

	var steps []step

	if s, ok := d.checkFilePath(in); ok {
		// A rejected path blocks before anything else runs.
		steps = append(steps, s)
	} else {
		if kind == hook.KindPostToolUse && in.IsTodoWrite() {
			steps = append(steps, d.trackTodos(ctx, in)...)
		}
		steps = append(steps, d.runCommands(ctx, in)...)
	}

	agg, pol := d.aggregate(in, steps)
	agg.Duration = time.Since(start)

	payload, code := respond.Encode(string(kind), agg, pol)
	d.audit(in, steps, code, agg)
	return payload, code
}

// checkFilePath validates file-path arguments on file-editing tools.
// A path that escapes the project root blocks the action.
var filePathTools = map[string]bool{
	"Edit": true, "Write": true, "MultiEdit": true, "NotebookEdit": true,
}

func (d *Dispatcher) checkFilePath(in *hook.Input) (step, bool) {
	if !filePathTools[in.ToolName] {
		return step{}, false
	}
	if _, err := in.FilePath(d.root); err != nil {
		res := guard.Result{
			ErrorKind:    guard.KindUnexpected,
			ErrorMessage: guard.Truncate(fmt.Sprintf("rejected file path: %v", err)),
			Attempts:     1,
		}
		return step{Name: "path-check", Blocking: true, Result: res}, true
	}
	return step{}, false
}

// trackTodos diffs the TodoWrite list against the persisted snapshot and
// runs the configured auto-commit for newly completed items. The snapshot
// is only overwritten when the whole handler succeeded; a failed commit
// leaves the last-known-good state so the completion re-triggers next
// time.
func (d *Dispatcher) trackTodos(ctx context.Context, in *hook.Input) []step {
	blocking := d.settings.Todo.Blocking
	fail := func(res guard.Result) []step {
		return []step{{Name: "todo-tracking", Blocking: blocking, Result: res}}
	}

	items, err := todo.FromToolInput(in.ToolInput)
	if err != nil {
		return fail(guard.Result{
			ErrorKind:    guard.KindUnexpected,
			ErrorMessage: guard.Truncate(err.Error()),
			Attempts:     1,
		})
	}

	store := state.NewStore(d.settings.TodoStatePath(d.root))
	firstRun := !store.Exists()

	prev, err := store.Load()
	if err != nil {
		if !errors.Is(err, state.ErrCorruptState) {
			return fail(guard.Result{
				ErrorKind:    guard.KindIOFailure,
				ErrorMessage: guard.Truncate(err.Error()),
				Attempts:     1,
			})
		}
		// Degrade: one corrupt file costs one cycle of diff accuracy,
		// not the whole tracking feature.
		d.logger.Warn("corrupt todo state, treating as empty", "error", err)
		prev = state.Snapshot{}
		firstRun = true
	}

	newly, next := todo.Diff(prev, items)
	if firstRun && d.settings.FirstRunPolicy() == todo.FirstRunIgnore {
		// First observation: record without triggering side effects.
		newly = nil
	}

	var steps []step
	commitFailed := false

	if len(newly) > 0 && d.settings.Todo.AutoCommit != "" {
		entry := config.HookEntry{
			Command:        d.settings.Todo.AutoCommit,
			TimeoutSeconds: 0, // defaults
		}
		// A commit is not idempotent; it gets exactly one attempt.
		exec := guard.New(guard.WithTimeout(d.settings.Timeout(entry)))
		res := exec.Run(ctx, guard.Shell(d.root, entry.Command))
		steps = append(steps, step{
			Name:     "auto-commit",
			Command:  entry.Command,
			Blocking: blocking,
			Result:   res,
		})
		commitFailed = !res.Succeeded
	}

	if commitFailed {
		d.logger.Warn("auto-commit failed, keeping previous todo snapshot")
	} else if err := store.Save(next); err != nil {
		steps = append(steps, step{Name: "todo-tracking", Blocking: blocking, Result: guard.Result{
			ErrorKind:    guard.KindIOFailure,
			ErrorMessage: guard.Truncate(err.Error()),
			Attempts:     1,
		}})
		return steps
	}

	ids := make([]string, len(newly))
	for i, item := range newly {
		ids[i] = item.ID
	}
	steps = append(steps, step{Name: "todo-tracking", Blocking: blocking, Result: guard.Result{
		Succeeded: true,
		Attempts:  1,
		Output: map[string]any{
			"newly_completed": ids,
			"tracked":         len(items),
		},
	}})
	return steps
}

// runCommands executes the configured hook commands whose matcher covers
// the event's tool name.
func (d *Dispatcher) runCommands(ctx context.Context, in *hook.Input) []step {
	entries := d.settings.Hooks[string(in.Kind())]
	var steps []step

	for _, entry := range entries {
		if entry.Command == "" {
			continue
		}
		ok, err := matches(entry.Matcher, in.ToolName)
		if err != nil {
			d.logger.Warn("skipping hook with bad matcher", "matcher", entry.Matcher, "error", err)
			continue
		}
		if !ok {
			continue
		}

		res := d.settings.ExecutorFor(entry).Run(ctx, guard.Shell(d.root, entry.Command))
		steps = append(steps, step{
			Name:     "command",
			Command:  entry.Command,
			Blocking: entry.Blocking,
			Result:   res,
		})
	}
	return steps
}

// matches applies an anchored regular expression matcher to a tool name.
// An empty matcher matches everything, including events with no tool.
func matches(matcher, toolName string) (bool, error) {
	if matcher == "" {
		return true, nil
	}
	if toolName == "" {
		return false, nil
	}
	re, err := regexp.Compile("^(?:" + matcher + ")$")
	if err != nil {
		return false, err
	}
	return re.MatchString(toolName), nil
}

// aggregate folds the step results into one guard.Result plus the policy
// that maps it to an exit code. The first blocking failure wins; with
// only advisory failures the invocation still exits 0.
func (d *Dispatcher) aggregate(in *hook.Input, steps []step) (guard.Result, respond.Policy) {
	if len(steps) == 0 {
		return guard.Result{
			Succeeded: true,
			Attempts:  1,
			Output:    map[string]any{"handled": false},
		}, respond.Policy{}
	}

	data := map[string]any{"steps": steps}
	var failures []string
	blocking := false
	attempts := 0

	for _, s := range steps {
		attempts += s.Result.Attempts
		if s.Result.Succeeded {
			if out, ok := s.Result.Output.(map[string]any); ok {
				if ids, ok := out["newly_completed"]; ok {
					data["newly_completed"] = ids
				}
			}
			continue
		}
		failures = append(failures, s.Result.ErrorMessage)
		if s.Blocking {
			blocking = true
		}
		d.reportFailure(in, s)
	}

	if len(failures) == 0 {
		return guard.Result{Succeeded: true, Attempts: attempts, Output: data}, respond.Policy{}
	}

	first := firstFailure(steps, blocking)
	return guard.Result{
		ErrorKind:    first.Result.ErrorKind,
		ErrorMessage: guard.Truncate(strings.Join(failures, "; ")),
		Attempts:     attempts,
	}, respond.Policy{BlockOnFailure: blocking}
}

// firstFailure picks the step whose kind labels the aggregate: the first
// blocking failure when one exists, the first failure otherwise.
func firstFailure(steps []step, wantBlocking bool) step {
	for _, s := range steps {
		if !s.Result.Succeeded && (!wantBlocking || s.Blocking) {
			return s
		}
	}
	for _, s := range steps {
		if !s.Result.Succeeded {
			return s
		}
	}
	return step{}
}

func (d *Dispatcher) reportFailure(in *hook.Input, s step) {
	command := s.Command
	if command == "" {
		command = s.Name
	}
	if _, err := d.errs.Report(string(in.Kind()), command, string(s.Result.ErrorKind),
		s.Result.ErrorMessage, in.SessionID); err != nil {
		d.logger.Warn("failed to record hook error", "error", err)
	}
}

func (d *Dispatcher) audit(in *hook.Input, steps []step, code int, agg guard.Result) {
	rec := events.Record{
		Kind:       string(in.Kind()),
		Handler:    handlerNames(steps),
		SessionID:  in.SessionID,
		ExitCode:   code,
		DurationMS: agg.Duration.Milliseconds(),
		Attempts:   agg.Attempts,
	}
	if err := d.feed.Log(rec); err != nil {
		d.logger.Warn("failed to record audit event", "error", err)
	}
}

func handlerNames(steps []step) string {
	if len(steps) == 0 {
		return "none"
	}
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Name
	}
	return strings.Join(names, ",")
}
