package main

import (
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/seriesml/config"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
	"github.com/YuminosukeSato/seriesml/pkg/log"
	"github.com/YuminosukeSato/seriesml/pkg/telemetry"
)

// app holds what every subcommand shares.
type app struct {
	configPath string
	logLevel   string
	metricsOut string

	registry *prometheus.Registry
	metrics  *telemetry.Metrics
	logger   log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "seriesml",
		Short:         "Statistics and linear regression over date-keyed feature records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.registry = prometheus.NewRegistry()
			m, err := telemetry.New(a.registry)
			if err != nil {
				return err
			}
			a.metrics = m
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.metricsOut == "" {
				return nil
			}
			if err := prometheus.WriteToTextfile(a.metricsOut, a.registry); err != nil {
				return errors.Wrapf(err, "write metrics %s", a.metricsOut)
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "seriesml.yaml", "pipeline configuration file")
	pf.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides the config)")
	pf.StringVar(&a.metricsOut, "metrics-out", "", "write prometheus metrics in text format to this file on exit")

	root.AddCommand(
		newStatsCmd(a),
		newSummaryCmd(a),
		newTrainCmd(a),
		newValidateCmd(a),
	)
	return root
}

// loadConfig reads the configuration and installs the process logger.
func (a *app) loadConfig() (config.Config, error) {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return config.Config{}, err
	}
	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	if err := log.SetupLogger(level); err != nil {
		return config.Config{}, err
	}
	a.logger = log.GetLoggerWithName("cli")
	return cfg, nil
}

// create opens path for writing; "" and "-" mean w.
func create(path string, w io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "create %s", path)
	}
	return f, f.Close, nil
}
