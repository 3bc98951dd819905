package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/seriesml/core/model"
	"github.com/YuminosukeSato/seriesml/core/record"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
	"github.com/YuminosukeSato/seriesml/pkg/log"
	"github.com/YuminosukeSato/seriesml/regression"
	"github.com/YuminosukeSato/seriesml/stats"
)

const (
	storeFile   = "file"
	storeBadger = "badger"
)

func openStore(kind, path string, logger log.Logger) (model.Store, error) {
	switch kind {
	case storeFile:
		s, err := model.NewFileStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case storeBadger:
		s, err := model.OpenBadgerStore(model.BadgerOptions{Path: path, SyncWrites: true, Logger: logger})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.NewValidationError("store-kind", "must be file or badger", kind)
	}
}

func newTrainCmd(a *app) *cobra.Command {
	var (
		countsPath string
		storeDir   string
		storeKind  string
		runID      string
		modelOut   string
		plotOut    string
	)
	cmd := &cobra.Command{
		Use:   "train [input...]",
		Short: "Train the linear regressor epoch by epoch until a stop condition holds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			f, err := os.Open(countsPath)
			if err != nil {
				return errors.Wrapf(err, "open counts %s", countsPath)
			}
			counts, err := stats.ReadCounts(f)
			f.Close()
			if err != nil {
				return err
			}
			state := cfg.InitialState(counts)

			trainer, err := regression.NewTrainer(cfg.TrainerConfig(countsPath), state,
				regression.WithTrainerMetrics(a.metrics))
			if err != nil {
				return err
			}
			records, err := record.ReadFiles(cfg.Parser(), args...)
			if err != nil {
				return err
			}

			store, err := openStore(storeKind, storeDir, log.GetLoggerWithName("store"))
			if err != nil {
				return err
			}
			defer store.Close()

			opts := []regression.OrchestratorOption{regression.WithOrchestratorMetrics(a.metrics)}
			if runID != "" {
				opts = append(opts, regression.WithRunID(runID))
			}
			orch, err := regression.NewOrchestrator(trainer, cfg.StopConditions(), store, opts...)
			if err != nil {
				return err
			}
			doc, err := orch.Run(cmd.Context(), state, records)
			if err != nil {
				return err
			}

			if modelOut != "" {
				if err := model.WriteJSON(doc, modelOut); err != nil {
					return err
				}
			}
			if plotOut != "" {
				if err := regression.PlotCostHistory(orch.History(), plotOut); err != nil {
					return err
				}
			}
			a.logger.Info("training finished",
				log.RunIDKey, orch.RunID(),
				log.EpochKey, doc.Epoch,
				log.LossKey, doc.Cost,
				log.StopReasonKey, doc.StopReason,
			)
			fmt.Fprintln(cmd.OutOrStdout(), orch.RunID())
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&countsPath, "counts", "", "counts file written by stats --counts")
	fl.StringVar(&storeDir, "store", "models", "model store directory")
	fl.StringVar(&storeKind, "store-kind", storeFile, "model store backend: file or badger")
	fl.StringVar(&runID, "run-id", "", "run id (default: a random uuid)")
	fl.StringVar(&modelOut, "model-out", "", "also write the final model as JSON")
	fl.StringVar(&plotOut, "plot", "", "write the cost curve (png, svg or pdf)")
	_ = cmd.MarkFlagRequired("counts")
	return cmd
}
