package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/vents/internal/config"
	"github.com/dshills/vents/internal/config/watch"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <config>",
		Short: "Print a configuration file each time it settles after changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.watch(ctx, cmd, args[0])
		},
	}
}

func (a *app) watch(ctx context.Context, cmd *cobra.Command, path string) error {
	w, err := watch.New(path,
		watch.WithDebounce(a.cfg.Watch.Debounce.Std()),
		watch.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	show := func(label string, c config.Config) {
		fmt.Fprintf(out, "%s %s: delay=%s log.level=%s script.timeout=%s watch.debounce=%s\n",
			label, w.Path(), c.Delay, c.Log.Level, c.Script.Timeout, c.Watch.Debounce)
	}
	show("loaded", w.Current())

	if err := w.OnReload(func(c config.Config) { show("reloaded", c) }); err != nil {
		return err
	}
	if err := w.OnError(func(err error) { fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err) }); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		return w.Close()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, watch.ErrClosed) {
		return err
	}
	return nil
}
