// Package seriesml computes descriptive statistics over date-keyed feature
// records and trains a gradient-descent linear regressor on top of them.
//
// Input records are joined per date, one line each:
//
//	2015-03-01	crimes:12, temp:3.5, price:10.25
//
// Every stage is one deterministic map/reduce pass run by the in-process
// substrate in core/mapreduce. Folds are associative and commutative, so the
// result does not depend on how records are split into map tasks or whether
// the combiner runs.
//
// # Quick Start
//
//	seriesml stats    -c seriesml.yaml -o stats.txt --counts counts.txt joined.txt
//	seriesml summary  -c seriesml.yaml -s stats.txt crimes temp
//	seriesml train    -c seriesml.yaml --counts counts.txt --store models --model-out model.json joined.txt
//	seriesml validate -c seriesml.yaml --model model.json --csv diag.csv joined.txt
//
// From Go:
//
//	agg := stats.NewAggregator([]string{"crimes", "temp"})
//	out, err := agg.Run(ctx, records)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, _ := stats.NewResults(out)
//	sd, err := stats.NewSummary(res, value.DefaultRounding).StdDev("temp")
//
// # Packages
//
//   - core/value: tagged scalar values (int64, float64, big integer, big decimal, text, dates)
//   - core/keytag: the "base-METRIC" and "a+b" key encoding
//   - core/record: feature records and their text layout
//   - core/mapreduce, core/parallel: the local map/reduce substrate
//   - core/model: model snapshot, phase tracker and model stores (file, badger)
//   - stats: the statistics job, its results and derived summaries
//   - regression: trainer, orchestrator, validator and cost plot
//   - metrics: regression diagnostics (R², adjusted R², standard error, MSE)
//   - config: YAML configuration
//   - pkg/errors, pkg/log, pkg/telemetry: errors, logging and prometheus metrics
package seriesml
