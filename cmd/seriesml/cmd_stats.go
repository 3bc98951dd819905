package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/seriesml/core/record"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
	"github.com/YuminosukeSato/seriesml/pkg/log"
	"github.com/YuminosukeSato/seriesml/stats"
)

func newStatsCmd(a *app) *cobra.Command {
	var out, counts string
	cmd := &cobra.Command{
		Use:   "stats [input...]",
		Short: "Aggregate sums, counts, extrema and products of the tracked fields",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			records, err := record.ReadFiles(cfg.Parser(), args...)
			if err != nil {
				return err
			}

			agg := stats.NewAggregator(cfg.Tracked,
				stats.WithRounding(cfg.RoundingPolicy()),
				stats.WithCombiner(cfg.CombinerEnabled()),
				stats.WithLayout(cfg.Substrate.MapTasks, cfg.Substrate.Partitions, cfg.Substrate.Parallelism),
				stats.WithShuffleSeed(cfg.Substrate.ShuffleSeed),
				stats.WithMetrics(a.metrics),
			)
			results, err := agg.Run(cmd.Context(), records)
			if err != nil {
				return err
			}

			w, closeOut, err := create(out, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := record.Write(w, results); err != nil {
				_ = closeOut()
				return err
			}
			if err := closeOut(); err != nil {
				return err
			}

			if counts != "" {
				cw, closeCounts, err := create(counts, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if err := stats.WriteCounts(cw, results); err != nil {
					_ = closeCounts()
					return err
				}
				if err := closeCounts(); err != nil {
					return errors.Wrapf(err, "close %s", counts)
				}
			}
			a.logger.Info("statistics written", log.RecordsInKey, len(records), log.KeysKey, len(results))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "statistics output file")
	cmd.Flags().StringVar(&counts, "counts", "", "also write the per-field counts file used by train")
	return cmd
}

func newSummaryCmd(a *app) *cobra.Command {
	var (
		statsPath string
		names     []string
		pairs     []string
	)
	cmd := &cobra.Command{
		Use:   "summary [field...]",
		Short: "Derive mean, variance, stddev, covariance and correlation from statistics output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			f, err := os.Open(statsPath)
			if err != nil {
				return errors.Wrapf(err, "open %s", statsPath)
			}
			defer f.Close()
			res, err := stats.ReadResults(f, cfg.Kind)
			if err != nil {
				return err
			}

			var single, paired []stats.Statistic
			for _, n := range names {
				st, err := stats.ParseStatistic(n)
				if err != nil {
					return err
				}
				if st == stats.Covariance || st == stats.Correlation {
					paired = append(paired, st)
				} else {
					single = append(single, st)
				}
			}

			fields := args
			if len(fields) == 0 {
				fields = res.Fields()
			}
			sum := stats.NewSummary(res, cfg.RoundingPolicy())
			w := cmd.OutOrStdout()
			if len(single) > 0 || len(paired) == 0 {
				for _, field := range fields {
					out, err := sum.Compute(field, single...)
					if err != nil {
						return err
					}
					fmt.Fprintln(w, stats.FormatSummary(field, out))
				}
			}
			for _, p := range pairs {
				x, y, ok := strings.Cut(p, ",")
				if !ok {
					return errors.NewValidationError("pair", "expected a,b", p)
				}
				out, err := sum.ComputePair(x, y, paired...)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, stats.FormatSummary(x+","+y, out))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&statsPath, "stats", "s", "", "statistics file written by the stats command")
	cmd.Flags().StringSliceVar(&names, "stat", nil, "statistics to compute (mean, variance, stddev, min, max, covariance, correlation)")
	cmd.Flags().StringArrayVar(&pairs, "pair", nil, "field pairs a,b for covariance and correlation")
	_ = cmd.MarkFlagRequired("stats")
	return cmd
}
