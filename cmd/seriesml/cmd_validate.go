package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/seriesml/core/model"
	"github.com/YuminosukeSato/seriesml/core/record"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
	"github.com/YuminosukeSato/seriesml/pkg/log"
	"github.com/YuminosukeSato/seriesml/regression"
)

func newValidateCmd(a *app) *cobra.Command {
	var (
		modelPath string
		storeDir  string
		storeKind string
		runID     string
		out       string
		csvOut    string
	)
	cmd := &cobra.Command{
		Use:   "validate [input...]",
		Short: "Score a trained model against the examples in the validation date range",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			var doc *model.Document
			switch {
			case modelPath != "":
				doc, err = model.ReadJSON(modelPath)
			case runID != "":
				var store model.Store
				store, err = openStore(storeKind, storeDir, log.GetLoggerWithName("store"))
				if err != nil {
					return err
				}
				defer store.Close()
				doc, err = store.Latest(cmd.Context(), runID)
			default:
				return errors.NewValidationError("model", "either --model or --run-id is required", nil)
			}
			if err != nil {
				return err
			}
			if err := doc.Validate(); err != nil {
				return err
			}
			if err := doc.RequireFitted("validate"); err != nil {
				return err
			}

			vc, err := cfg.ValidationConfig()
			if err != nil {
				return err
			}
			v, err := regression.NewValidator(vc, regression.WithValidatorMetrics(a.metrics))
			if err != nil {
				return err
			}
			records, err := record.ReadFiles(cfg.Parser(), args...)
			if err != nil {
				return err
			}
			res, err := v.Validate(cmd.Context(), doc.State(), records)
			if err != nil {
				return err
			}

			w, closeOut, err := create(out, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := regression.WriteSummary(w, res); err != nil {
				_ = closeOut()
				return err
			}
			if err := closeOut(); err != nil {
				return err
			}
			if csvOut != "" {
				cw, closeCSV, err := create(csvOut, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				if err := regression.WriteDiagnosticsCSV(cw, res); err != nil {
					_ = closeCSV()
					return err
				}
				return closeCSV()
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&modelPath, "model", "", "model JSON written by train --model-out")
	fl.StringVar(&storeDir, "store", "models", "model store directory")
	fl.StringVar(&storeKind, "store-kind", storeFile, "model store backend: file or badger")
	fl.StringVar(&runID, "run-id", "", "validate the latest model of this run from the store")
	fl.StringVarP(&out, "out", "o", "-", "validation summary output file")
	fl.StringVar(&csvOut, "csv", "", "also write per-example diagnostics as CSV")
	return cmd
}
