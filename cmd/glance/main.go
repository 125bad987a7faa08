// Package main is the entry point for glance, a terminal file viewer with
// user-defined key actions.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/glance/internal/app"
	"github.com/dshills/glance/internal/config"
	"github.com/dshills/glance/internal/integration/process"
	"github.com/dshills/glance/internal/plugin/lua"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global flags
var (
	flagConfig        string
	flagWorkDir       string
	flagLenient       bool
	flagLogLevel      string
	flagLuaSubprocess bool
)

var rootCmd = &cobra.Command{
	Use:   "glance [file]",
	Short: "glance - a terminal file viewer with key-bound actions",
	Long: `glance shows a file read-only and lets you bind keys to actions:
built-in navigation, shell commands, external programs, Lua snippets and
multi-step sequences, all parameterized by the current file and selection.

Actions are read from ~/.config/glance/actions.{json,yaml,toml} and from the
nearest .glance/ directory above the working directory.

Examples:
  glance main.go                     # View a file
  glance list                        # List configured actions
  glance check                       # Validate action configuration
  glance run fmt --file main.go      # Run one action without the viewer`,
	Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runView(cmd, args[0])
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagConfig, "config", "c", "", "Use this action file instead of discovery")
	pf.StringVarP(&flagWorkDir, "workdir", "w", "", "Directory to discover project configuration from")
	pf.BoolVar(&flagLenient, "lenient", false, "Skip invalid configuration sources instead of failing")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.BoolVar(&flagLuaSubprocess, "lua-subprocess", false, "Run Lua snippets in a child process")

	rootCmd.AddCommand(viewCmd, listCmd, keysCmd, checkCmd, runCmd, watchCmd, bridgeLuaCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings loads settings and applies the global flags.
func loadSettings() (config.Settings, error) {
	workDir := flagWorkDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}
	s, err := config.LoadSettings(config.SettingsPaths(workDir)...)
	if err != nil {
		return s, err
	}
	if flagLenient {
		s.Config.Strict = false
	}
	if flagLogLevel != "" {
		switch flagLogLevel {
		case "debug", "info", "warn", "error":
			s.Log.Level = flagLogLevel
		default:
			return s, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", flagLogLevel)
		}
	}
	return s, nil
}

// newApp builds the engine from flags. mutate adjusts options before
// construction.
func newApp(mutate func(*app.Options)) (*app.App, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	opts := app.Options{
		WorkDir:  flagWorkDir,
		Override: flagConfig,
		Settings: &settings,
	}
	if flagLuaSubprocess {
		runner, err := subprocessRunner(settings)
		if err != nil {
			return nil, err
		}
		opts.LuaRunner = runner
	}
	if mutate != nil {
		mutate(&opts)
	}
	return app.New(opts)
}

// subprocessRunner runs Lua through this executable's bridge-lua command.
func subprocessRunner(s config.Settings) (lua.Runner, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating executable: %w", err)
	}
	sup := process.NewSupervisor()
	return lua.NewSubprocess(exe, sup, lua.WithGrace(s.Executor.Grace())), nil
}
