// Package config loads process-wide settings using Viper.
//
// Settings are read once per command. Precedence, highest first: flags bound
// with BindFlags, CHAINRUN_* environment variables, the optional config file,
// then defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/felixgeelhaar/chainrun/internal/errors"
	"github.com/felixgeelhaar/chainrun/internal/log"
	"github.com/felixgeelhaar/chainrun/internal/scope"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "CHAINRUN"

// Keys understood by Load.
const (
	KeyShellProgram = "shell.program"
	KeyShellArgs    = "shell.args"
	KeyWorkers      = "workers"
	KeyPrefix       = "prefix"
	KeySilent       = "silent"
	KeyNoColor      = "no_color"
	KeyLogLevel     = "log.level"
	KeyLogFormat    = "log.format"
)

// Settings holds the resolved settings. It is not modified after Load.
type Settings struct {
	DefaultShell scope.Shell
	Workers      int
	Prefix       string
	Silent       bool
	NoColor      bool
	LogLevel     string
	LogFormat    string

	// Environ is the caller environment captured at load time.
	Environ []string
}

// New returns a viper instance with defaults, environment binding and, when
// path is set, the config file read in.
func New(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path == "" {
		return v, nil
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInvalidArgumentError(fmt.Sprintf("config file not found: %s", path))
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidArgument, fmt.Sprintf("failed to read config file %s", path), err)
	}
	return v, nil
}

func setDefaults(v *viper.Viper) {
	shell := scope.DefaultShell()
	v.SetDefault(KeyShellProgram, shell.Program)
	v.SetDefault(KeyShellArgs, shell.Args)
	v.SetDefault(KeyWorkers, 1)
	v.SetDefault(KeyPrefix, "==> ")
	v.SetDefault(KeySilent, false)
	v.SetDefault(KeyNoColor, false)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

// BindFlags binds each key to the named flag if fs defines it.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load resolves Settings from v and validates them.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		DefaultShell: scope.Shell{
			Program: v.GetString(KeyShellProgram),
			Args:    scope.CloneArgs(v.GetStringSlice(KeyShellArgs)),
		},
		Workers:   v.GetInt(KeyWorkers),
		Prefix:    v.GetString(KeyPrefix),
		Silent:    v.GetBool(KeySilent),
		NoColor:   v.GetBool(KeyNoColor),
		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),
		Environ:   os.Environ(),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate rejects settings no command can run with.
func (s *Settings) Validate() error {
	if s.Workers < 1 {
		return errors.NewInvalidArgumentError(fmt.Sprintf("workers must be at least 1, got %d", s.Workers))
	}
	if strings.TrimSpace(s.DefaultShell.Program) == "" {
		return errors.NewInvalidArgumentError("shell program must not be empty")
	}
	if _, err := log.ValidateLevel(s.LogLevel); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArgument, "invalid log level", err)
	}
	switch s.LogFormat {
	case "text", "json":
	default:
		return errors.NewInvalidArgumentError(fmt.Sprintf("invalid log format %q: must be text or json", s.LogFormat))
	}
	return nil
}

// LogConfig returns the logger configuration for these settings.
func (s *Settings) LogConfig() log.Config {
	return log.ConfigFrom(s.LogLevel, s.LogFormat, os.Stderr)
}
