// Package config resolves the numeric and per-hook parameters the guard
// consumes. Three layers, later wins: built-in defaults, the user-level
// TOML file (~/.config/quaestor/config.toml), the project's
// .quaestor/hooks.yaml, then QUAESTOR_* environment variables. The guard
// itself never parses any of this; it only receives resolved values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	envparse "github.com/caarlos0/env/v11"
	yaml "go.yaml.in/yaml/v2"

	"github.com/quaestor-dev/quaestor/internal/guard"
	"github.com/quaestor-dev/quaestor/internal/todo"
)

// Dir is the project-local directory this tool owns.
const Dir = ".quaestor"

// SettingsFile is the project hook settings file under Dir.
const SettingsFile = "hooks.yaml"

// Defaults are the tool-level numbers, overridable per hook entry.
type Defaults struct {
	TimeoutSeconds    int     `toml:"timeout_seconds" env:"QUAESTOR_HOOK_TIMEOUT"`
	MaxAttempts       int     `toml:"max_attempts" env:"QUAESTOR_HOOK_MAX_ATTEMPTS"`
	BaseDelayMS       int     `toml:"base_delay_ms" env:"QUAESTOR_HOOK_BASE_DELAY_MS"`
	BackoffMultiplier float64 `toml:"backoff_multiplier" env:"QUAESTOR_HOOK_BACKOFF_MULTIPLIER"`
	StateDir          string  `toml:"state_dir" env:"QUAESTOR_STATE_DIR"`
	LogLevel          string  `toml:"log_level" env:"QUAESTOR_LOG_LEVEL"`
}

// HookEntry is one configured hook command for an event kind.
type HookEntry struct {
	// Matcher is an anchored regular expression against the tool name.
	// Empty matches every tool.
	Matcher string `yaml:"matcher"`
	Command string `yaml:"command"`

	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	MaxAttempts       int     `yaml:"max_attempts"`
	BaseDelayMS       int     `yaml:"base_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`

	// Blocking maps this hook's failure to exit 2.
	Blocking bool `yaml:"blocking"`
	// Retryable opts the command into timeout retries. Only set this for
	// idempotent commands; a timed-out commit must not run twice.
	Retryable bool `yaml:"retryable"`
}

// TodoTracking configures the TodoWrite completion tracker.
type TodoTracking struct {
	StateFile  string `yaml:"state_file"`
	FirstRun   string `yaml:"first_run"` // count or ignore
	AutoCommit string `yaml:"auto_commit"`
	Blocking   bool   `yaml:"blocking"`
}

// Settings is the fully resolved configuration.
type Settings struct {
	Defaults Defaults                `yaml:"-"`
	Hooks    map[string][]HookEntry `yaml:"hooks"`
	Todo     TodoTracking           `yaml:"todo"`
}

func builtinDefaults() Defaults {
	return Defaults{
		TimeoutSeconds:    55, // 5s margin under the host's 60s ceiling
		MaxAttempts:       1,
		BaseDelayMS:       1000,
		BackoffMultiplier: 2,
		LogLevel:          "info",
	}
}

// Load resolves settings for a project root.
func Load(projectRoot string) (*Settings, error) {
	tomlPath := ""
	if dir, err := os.UserConfigDir(); err == nil {
		tomlPath = filepath.Join(dir, "quaestor", "config.toml")
	}
	return LoadFiles(tomlPath, filepath.Join(projectRoot, Dir, SettingsFile))
}

// LoadFiles resolves settings from explicit file paths. Missing files are
// fine; malformed files are not.
func LoadFiles(tomlPath, yamlPath string) (*Settings, error) {
	s := &Settings{
		Defaults: builtinDefaults(),
		Hooks:    make(map[string][]HookEntry),
	}

	if tomlPath != "" {
		if _, err := toml.DecodeFile(tomlPath, &s.Defaults); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("parsing %s: %w", tomlPath, err)
		}
	}

	if data, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", yamlPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading %s: %w", yamlPath, err)
	}

	if err := envparse.Parse(&s.Defaults); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if s.Hooks == nil {
		s.Hooks = make(map[string][]HookEntry)
	}
	return s, nil
}

// Timeout resolves a hook entry's wall-clock budget.
func (s *Settings) Timeout(e HookEntry) time.Duration {
	secs := e.TimeoutSeconds
	if secs <= 0 {
		secs = s.Defaults.TimeoutSeconds
	}
	if secs <= 0 {
		return guard.DefaultTimeout
	}
	return time.Duration(secs) * time.Second
}

// Retry resolves a hook entry's retry policy.
func (s *Settings) Retry(e HookEntry) guard.RetryPolicy {
	p := guard.RetryPolicy{
		MaxAttempts: e.MaxAttempts,
		BaseDelay:   time.Duration(e.BaseDelayMS) * time.Millisecond,
		Multiplier:  e.BackoffMultiplier,
	}
	if p.MaxAttempts < 1 {
		p.MaxAttempts = s.Defaults.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Duration(s.Defaults.BaseDelayMS) * time.Millisecond
	}
	if p.Multiplier < 1 {
		p.Multiplier = s.Defaults.BackoffMultiplier
	}
	return p
}

// ExecutorFor builds the guard executor for one hook entry.
func (s *Settings) ExecutorFor(e HookEntry) *guard.Executor {
	opts := []guard.Option{
		guard.WithTimeout(s.Timeout(e)),
		guard.WithRetry(s.Retry(e)),
	}
	if e.Retryable {
		opts = append(opts, guard.WithRetryableTimeouts())
	}
	return guard.New(opts...)
}

// StateDir returns the directory snapshots and logs live in.
func (s *Settings) StateDir(projectRoot string) string {
	if s.Defaults.StateDir != "" {
		return s.Defaults.StateDir
	}
	return filepath.Join(projectRoot, Dir)
}

// TodoStatePath returns the TODO snapshot file location.
func (s *Settings) TodoStatePath(projectRoot string) string {
	name := s.Todo.StateFile
	if name == "" {
		name = "todos_state.json"
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.StateDir(projectRoot), name)
}

// FirstRunPolicy returns the configured first-observation policy.
func (s *Settings) FirstRunPolicy() todo.FirstRunPolicy {
	if s.Todo.FirstRun == string(todo.FirstRunIgnore) {
		return todo.FirstRunIgnore
	}
	return todo.FirstRunCount
}
