package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nurpe/amc-schedule/internal/config"
	"github.com/nurpe/amc-schedule/internal/excel"
	"github.com/nurpe/amc-schedule/internal/logger"
	"github.com/nurpe/amc-schedule/internal/model"
	"github.com/nurpe/amc-schedule/internal/pdf"
	"github.com/nurpe/amc-schedule/internal/schedule"
	"github.com/nurpe/amc-schedule/internal/service"
)

type rootOptions struct {
	configPath string
	logLevel   string
	workers    int
	gst        float64
	output     string
}

// app holds what every subcommand needs once flags and config are read.
type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	settings  model.Settings
	schedules *service.ScheduleService
	exports   *service.ExportService
	output    string
}

type appKey struct{}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "amcctl",
		Short: "Quarterly AMC and warranty billing schedules",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "env file with settings (default: app.env lookup)")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.IntVar(&opts.workers, "workers", 0, "concurrent batch workers (default from config)")
	pf.Float64Var(&opts.gst, "gst", 0, "GST rate as a fraction, e.g. 0.18")
	pf.StringVarP(&opts.output, "output", "o", "text", "summary format (text, json)")

	cmd.AddCommand(newAMCCommand(), newWarrantyCommand(), newQuartersCommand())
	return cmd
}

func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return nil, err
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), opts.logLevel)

	if opts.workers > 0 {
		cfg.Batch.Workers = opts.workers
	}
	settings := cfg.Schedule
	if cmd.Flags().Changed("gst") {
		if opts.gst < 0 || opts.gst > 1 {
			return nil, fmt.Errorf("--gst must be between 0 and 1")
		}
		settings.GSTRate = opts.gst
	}
	if opts.output != "text" && opts.output != "json" {
		return nil, fmt.Errorf("--output must be text or json")
	}

	schedules := service.NewScheduleService(service.ScheduleDeps{
		Calculator: service.NewCalculator(schedule.NewAssembler(log), log),
		Settings:   settings,
		Batch:      cfg.Batch,
		Log:        log,
	})
	exports := service.NewExportService(service.ExportDeps{
		Excel: excel.NewGenerator(),
		PDF:   pdf.NewGenerator(),
		Log:   log,
	})

	return &app{
		cfg:       cfg,
		log:       log,
		settings:  schedules.DefaultSettings(),
		schedules: schedules,
		exports:   exports,
		output:    opts.output,
	}, nil
}

func appFrom(cmd *cobra.Command) (*app, error) {
	a, ok := cmd.Context().Value(appKey{}).(*app)
	if !ok {
		return nil, fmt.Errorf("command context is not initialized")
	}
	return a, nil
}
