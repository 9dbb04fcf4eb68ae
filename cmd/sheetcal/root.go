package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sheetcal/internal/config"
	appLog "sheetcal/internal/log"
	"sheetcal/internal/pipeline"
	"sheetcal/internal/source"
)

// rootFlags holds CLI flag values; they override the loaded config when set.
type rootFlags struct {
	configPath  string
	year        int
	eventsOut   string
	calendarOut string
	logLevel    string
	print       bool
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "sheetcal <input> [timezone]",
		Short: "Convert a weekly shift table into an iCalendar file",
		Long: "sheetcal reads a schedule table (rows are shift time ranges, columns are\n" +
			"dates, cells list employees) from a file or URL and writes an event table\n" +
			"and an .ics calendar with one event per employee shift.",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, flags, args)
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to YAML config file (optional)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, error (overrides config)")
	cmd.PersistentFlags().IntVar(&flags.year, "year", 0, "Year for the table's day/month headers (default: config, else current year)")
	cmd.Flags().StringVar(&flags.eventsOut, "events-out", "", "Event table output path (default "+config.DefaultEventsFile+")")
	cmd.Flags().StringVar(&flags.calendarOut, "calendar-out", "", "Calendar output path (default "+config.DefaultCalendarFile+")")
	cmd.Flags().BoolVar(&flags.print, "print", false, "Print the parsed schedule")

	cmd.AddCommand(newInspectCmd(), newConfigCmd(&flags), newServeCmd(&flags))
	return cmd
}

func loadConfig(flags rootFlags) (*config.Config, error) {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}
	level, ok := appLog.ParseLevel(conf.LogLevel)
	if !ok {
		appLog.Info("unknown log level; using info", "log_level", conf.LogLevel)
	}
	appLog.SetLevel(level)
	return conf, nil
}

func runConvert(cmd *cobra.Command, flags rootFlags, args []string) error {
	conf, err := loadConfig(flags)
	if err != nil {
		return err
	}

	// CLI values override config values.
	if len(args) > 1 {
		conf.TimeZone = args[1]
	}
	if flags.year > 0 {
		conf.Year = flags.year
	}
	if flags.eventsOut != "" {
		conf.EventsFile = flags.eventsOut
	}
	if flags.calendarOut != "" {
		conf.CalendarFile = flags.calendarOut
	}

	year := conf.Year
	if year == 0 {
		year = time.Now().Year()
	}

	appLog.Info("effective config",
		"input", args[0],
		"timezone", conf.TimeZone,
		"year", year,
		"events_file", conf.EventsFile,
		"calendar_file", conf.CalendarFile,
	)

	opts := pipeline.Options{
		Input:        args[0],
		TimeZone:     conf.TimeZone,
		Year:         year,
		EventsFile:   conf.EventsFile,
		CalendarFile: conf.CalendarFile,
		CalendarName: conf.CalendarName,
		ProductID:    conf.ProductID,
	}
	if source.IsRemote(args[0]) {
		opts.Fetcher = source.NewFetcher(conf.CacheDir)
	}

	res, err := pipeline.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if flags.print {
		fmt.Fprint(cmd.OutOrStdout(), res.Schedule.String())
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d events to %s and %s\n", len(res.Occurrences), conf.EventsFile, conf.CalendarFile)
	return nil
}
