package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"sheetcal/internal/events"
	appLog "sheetcal/internal/log"
	"sheetcal/internal/pipeline"
	"sheetcal/internal/source"
	"sheetcal/internal/web"
)

type serveFlags struct {
	listen  string
	refresh string
}

func newServeCmd(root *rootFlags) *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve [input] [timezone]",
		Short: "Serve the converted schedule as a subscribable calendar feed",
		Long: "serve re-reads the input on a cron schedule and publishes the latest\n" +
			"calendar at /calendar.ics. The input defaults to the config's input.",
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *root, flags, args)
		},
	}
	cmd.Flags().StringVar(&flags.listen, "listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&flags.refresh, "refresh", "", "Cron schedule for re-reading the input (overrides config)")
	return cmd
}

func runServe(ctx context.Context, root rootFlags, flags serveFlags, args []string) error {
	conf, err := loadConfig(root)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		conf.Input = args[0]
	}
	if len(args) > 1 {
		conf.TimeZone = args[1]
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.refresh != "" {
		conf.RefreshCron = flags.refresh
	}
	if root.year > 0 {
		conf.Year = root.year
	}
	if conf.Input == "" {
		return errors.New("serve: no input given and none configured")
	}

	loc, err := events.LoadLocation(conf.TimeZone)
	if err != nil {
		return err
	}

	var fetcher *source.Fetcher
	if source.IsRemote(conf.Input) {
		fetcher = source.NewFetcher(conf.CacheDir)
	}

	convert := func(ctx context.Context) (pipeline.Result, error) {
		year := conf.Year
		if year == 0 {
			year = time.Now().In(loc).Year()
		}
		return pipeline.Convert(ctx, pipeline.Options{
			Input:    conf.Input,
			TimeZone: conf.TimeZone,
			Year:     year,
			Fetcher:  fetcher,
		})
	}
	srv := web.NewServer(conf, convert)

	appLog.Info("effective config",
		"input", conf.Input,
		"timezone", conf.TimeZone,
		"listen", conf.Listen,
		"refresh", conf.RefreshCron,
	)

	// The first conversion must succeed; later failures keep the last feed.
	if err := srv.Refresh(ctx); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}

	c := cron.New(cron.WithLocation(loc))
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		_ = srv.Refresh(ctx)
	}); err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", conf.RefreshCron, err)
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	return srv.ListenAndServe(ctx)
}
