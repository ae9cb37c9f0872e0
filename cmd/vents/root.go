package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dshills/vents/internal/config"
	"github.com/dshills/vents/internal/logging"
)

// app carries the resolved settings from the root command to subcommands.
type app struct {
	v      *viper.Viper
	cfg    config.Config
	logger *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:   "vents",
		Short: "Typed single-subscriber events with debounced delivery",
		Long: `vents runs Lua scripts against typed single-subscriber events and
debounced delayed events, and can watch a configuration file, reloading it
once per burst of changes.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.teardown()
		},
	}

	flags := root.PersistentFlags()
	addGlobalFlags(flags)
	_ = a.v.BindPFlags(flags)

	a.v.SetEnvPrefix("VENTS")
	// VENTS_LOG_LEVEL for log-level
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newRunCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringP("config", "c", "", "config file (.toml, .yaml or .yml)")
	fs.String("log-level", "", "log level: "+strings.Join(logging.ValidLevels(), ", "))
	fs.String("log-file", "", "log file (default stderr)")
	fs.Duration("delay", 0, "default debounce window for delayed events")
}

// setup resolves the configuration and installs the process logger.
// Precedence: flags, then VENTS_* environment, then the config file, then
// built-in defaults.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if path := a.v.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	if a.v.IsSet("log-level") {
		cfg.Log.Level = a.v.GetString("log-level")
	}
	if a.v.IsSet("log-file") {
		cfg.Log.File = a.v.GetString("log-file")
	}
	if a.v.IsSet("delay") {
		d := a.v.GetDuration("delay")
		if d < 0 {
			return fmt.Errorf("--delay must not be negative, got %s", d)
		}
		cfg.Delay = config.Duration(d)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Log.File, logging.ParseLevel(cfg.Log.Level))
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	a.cfg = cfg
	a.logger = logger.WithComponent(cmd.Name())
	a.logger.Debug("configuration resolved",
		"delay", cfg.Delay.String(),
		"script_timeout", time.Duration(cfg.Script.Timeout).String(),
	)
	return nil
}

func (a *app) teardown() error {
	if a.logger == nil {
		return nil
	}
	return logging.Default().Close()
}
