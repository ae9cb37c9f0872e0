package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/vents/internal/script"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <script.lua> [args...]",
		Short: "Run a Lua script and wait for its delayed events to settle",
		Long: `Run a Lua script and wait for its delayed events to settle.

Arguments after the script path are available to the script as the
global table arg.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runScript(ctx, cmd, args[0], args[1:])
		},
	}
}

func (a *app) runScript(ctx context.Context, cmd *cobra.Command, path string, scriptArgs []string) error {
	host := script.NewHost(
		script.WithTimeout(a.cfg.Script.Timeout.Std()),
		script.WithDefaultDelay(a.cfg.Delay.Std()),
		script.WithLogger(a.logger),
		script.WithOutput(cmd.OutOrStdout()),
	)
	defer host.Close()

	if err := host.SetGlobal("arg", scriptArgs); err != nil {
		return err
	}

	a.logger.Info("running script", "path", path, "args", len(scriptArgs))
	if err := host.DoFile(ctx, path); err != nil {
		return err
	}
	return host.Wait(ctx)
}
