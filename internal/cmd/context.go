package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/chainrun/internal/config"
	"github.com/felixgeelhaar/chainrun/internal/engine"
	"github.com/felixgeelhaar/chainrun/internal/exec"
	"github.com/felixgeelhaar/chainrun/internal/log"
	"github.com/felixgeelhaar/chainrun/internal/progress"
	"github.com/felixgeelhaar/chainrun/internal/ux"
	"github.com/felixgeelhaar/chainrun/internal/workflow"
)

// flagKeys maps settings keys to the flag names that override them.
// Commands that do not define a flag simply skip its binding.
var flagKeys = map[string]string{
	config.KeyLogLevel:  "log-level",
	config.KeyLogFormat: "log-format",
	config.KeyNoColor:   "no-color",
	config.KeyWorkers:   "workers",
	config.KeyPrefix:    "prefix",
	config.KeySilent:    "silent",
}

// workflowNames are looked up, in order, when --workflow is not given.
var workflowNames = []string{workflow.DefaultPath, ".chainrun.hcl"}

// CommandContext holds everything a command needs once flags and settings
// are resolved. It is built per invocation so commands share no state.
type CommandContext struct {
	Settings  *config.Settings
	Logger    *log.Logger
	Engine    *engine.Engine
	Indicator *progress.Indicator
	Streams   IOStreams
}

// newCommandContext loads settings for cmd and builds the logger and engine.
// Child output goes to stdout, progress and logs to stderr.
func (a *app) newCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	v, err := config.New(configFile)
	if err != nil {
		return nil, err
	}
	if err := config.BindFlags(v, cmd.Flags(), flagKeys); err != nil {
		return nil, err
	}
	settings, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	logger := log.New(log.ConfigFrom(settings.LogLevel, settings.LogFormat, a.streams.ErrOut)).
		With("command", cmd.Name())
	log.SetDefaultLogger(logger)

	indicator := progress.NewIndicator(progress.Config{Writer: a.streams.ErrOut})

	opts := []exec.Option{
		exec.WithOutput(a.streams.Out),
		exec.WithIndicator(indicator),
	}
	if a.spawner != nil {
		opts = append(opts, exec.WithSpawner(a.spawner))
	}

	return &CommandContext{
		Settings:  settings,
		Logger:    logger,
		Engine:    engine.New(settings, logger, opts...),
		Indicator: indicator,
		Streams:   a.streams,
	}, nil
}

// LoadWorkflow reads the workflow at path. An empty path searches the
// working directory and its parents up to the repository root.
func (c *CommandContext) LoadWorkflow(path string) (*workflow.Workflow, error) {
	if path == "" {
		path = workflow.DefaultPath
		if found, ok := ux.DiscoverWorkflow(workflowNames...); ok {
			path = found
		}
	}
	c.Logger.Debug("loading workflow", "path", path)
	return workflow.NewFileRepository(c.Settings.Environ).Load(path)
}

// Formatter returns the output formatter for describe and list.
func (c *CommandContext) Formatter(format string) (ux.Formatter, error) {
	return ux.NewFormatter(format, &ux.FormatterOptions{
		Writer:  c.Streams.Out,
		NoColor: c.Settings.NoColor || os.Getenv("NO_COLOR") != "",
	})
}
