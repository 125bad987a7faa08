package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// SettingsFile is the file name of the engine settings document.
const SettingsFile = "settings.toml"

// SettingsEnvPrefix prefixes environment variables that override settings.
// GLANCE_SETTINGS_EXECUTOR_TIMEOUTMS overrides executor.timeoutMs.
const SettingsEnvPrefix = "GLANCE_SETTINGS_"

// Settings configures the engine itself, as opposed to the actions it runs.
type Settings struct {
	Log      LogSettings      `koanf:"log"`
	Executor ExecutorSettings `koanf:"executor"`
	Config   ConfigSettings   `koanf:"config"`
}

// LogSettings configures logging.
type LogSettings struct {
	Level      string `koanf:"level"`
	File       string `koanf:"file"` // empty means stderr
	MaxSizeMB  int    `koanf:"maxSizeMB"`
	MaxBackups int    `koanf:"maxBackups"`
	MaxAgeDays int    `koanf:"maxAgeDays"`
}

// ExecutorSettings configures action execution.
type ExecutorSettings struct {
	TimeoutMS      int    `koanf:"timeoutMs"`
	GraceMS        int    `koanf:"graceMs"`
	Shell          string `koanf:"shell"`
	AllowDangerous bool   `koanf:"allowDangerous"`
	// MaxProcesses caps concurrently running action processes; 0 means
	// unlimited.
	MaxProcesses int `koanf:"maxProcesses"`
}

// ConfigSettings configures action configuration resolution.
type ConfigSettings struct {
	Strict         bool  `koanf:"strict"`
	MaxSourceBytes int64 `koanf:"maxSourceBytes"`
	MaxTotalBytes  int64 `koanf:"maxTotalBytes"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() Settings {
	return Settings{
		Log: LogSettings{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Executor: ExecutorSettings{
			TimeoutMS:      30000,
			GraceMS:        2000,
			AllowDangerous: true,
			MaxProcesses:   16,
		},
		Config: ConfigSettings{
			Strict:         true,
			MaxSourceBytes: 1 << 20,
			MaxTotalBytes:  4 << 20,
		},
	}
}

// Timeout returns the default action timeout.
func (s ExecutorSettings) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// Grace returns the delay between the termination signal and the kill.
func (s ExecutorSettings) Grace() time.Duration {
	return time.Duration(s.GraceMS) * time.Millisecond
}

// ResolverMode returns the resolver mode implied by the settings.
func (s ConfigSettings) ResolverMode() Mode {
	if s.Strict {
		return Strict
	}
	return Lenient
}

// SettingsPaths returns settings files in ascending precedence.
func SettingsPaths(workDir string) []string {
	paths := []string{filepath.Join(xdg.ConfigHome, AppName, SettingsFile)}
	if workDir != "" {
		paths = append(paths, filepath.Join(workDir, ProjectDir, SettingsFile))
	}
	return paths
}

// LoadSettings loads settings from the given files (later files win) and
// then applies environment overrides. Missing files are skipped.
func LoadSettings(paths ...string) (Settings, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return Settings{}, &SourceError{Path: path, Err: err}
		}
	}

	if err := applyEnv(k, os.Environ()); err != nil {
		return Settings{}, err
	}

	s := DefaultSettings()
	if err := k.Unmarshal("", &s); err != nil {
		return Settings{}, err
	}
	s.normalize()
	return s, nil
}

// settingKeys maps lowercase koanf paths to their canonical spelling so
// environment overrides land on the tagged fields.
var settingKeys = map[string]string{
	"log.level":               "log.level",
	"log.file":                "log.file",
	"log.maxsizemb":           "log.maxSizeMB",
	"log.maxbackups":          "log.maxBackups",
	"log.maxagedays":          "log.maxAgeDays",
	"executor.timeoutms":      "executor.timeoutMs",
	"executor.gracems":        "executor.graceMs",
	"executor.shell":          "executor.shell",
	"executor.allowdangerous": "executor.allowDangerous",
	"executor.maxprocesses":   "executor.maxProcesses",
	"config.strict":           "config.strict",
	"config.maxsourcebytes":   "config.maxSourceBytes",
	"config.maxtotalbytes":    "config.maxTotalBytes",
}

func applyEnv(k *koanf.Koanf, environ []string) error {
	sort.Strings(environ)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, SettingsEnvPrefix) {
			continue
		}
		rest := strings.ToLower(strings.TrimPrefix(name, SettingsEnvPrefix))
		section, field, ok := strings.Cut(rest, "_")
		if !ok {
			continue
		}
		path, known := settingKeys[section+"."+strings.ReplaceAll(field, "_", "")]
		if !known {
			continue
		}
		if err := k.Set(path, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Settings) normalize() {
	def := DefaultSettings()
	if s.Executor.TimeoutMS <= 0 {
		s.Executor.TimeoutMS = def.Executor.TimeoutMS
	}
	if s.Executor.GraceMS <= 0 {
		s.Executor.GraceMS = def.Executor.GraceMS
	}
	if s.Config.MaxSourceBytes <= 0 {
		s.Config.MaxSourceBytes = def.Config.MaxSourceBytes
	}
	if s.Config.MaxTotalBytes <= 0 {
		s.Config.MaxTotalBytes = def.Config.MaxTotalBytes
	}
	if s.Log.File != "" && strings.HasPrefix(s.Log.File, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			s.Log.File = filepath.Join(home, s.Log.File[1:])
		}
	}
}
