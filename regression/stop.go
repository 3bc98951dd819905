package regression

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// StopConditions are the independent termination rules of a training run.
// Any one holding stops the run. Zero values disable a rule.
type StopConditions struct {
	// EpochLimit stops once this many epochs have run.
	EpochLimit int
	// TargetCost stops once the cost is at or below the target.
	TargetCost *float64
	// SteadyDecimals and SteadyEpochs stop once the cost rounded to
	// SteadyDecimals places is unchanged for SteadyEpochs consecutive epochs.
	SteadyDecimals int
	SteadyEpochs   int
}

// Validate requires at least one configured rule.
func (s StopConditions) Validate() error {
	if s.EpochLimit < 0 {
		return errors.NewValidationError("epoch_limit", "must not be negative", s.EpochLimit)
	}
	if s.SteadyDecimals < 0 || s.SteadyEpochs < 0 {
		return errors.NewValidationError("steady", "decimals and epochs must not be negative",
			fmt.Sprintf("%d/%d", s.SteadyDecimals, s.SteadyEpochs))
	}
	if s.EpochLimit == 0 && s.TargetCost == nil && s.SteadyEpochs == 0 {
		return errors.NewValidationError("stop_conditions", "at least one stop condition is required", nil)
	}
	return nil
}

// StopCondition inspects an epoch result and returns a non-empty reason when
// training should stop. Conditions may keep state across epochs.
type StopCondition func(res EpochResult) string

// EpochLimit stops after limit epochs.
func EpochLimit(limit int) StopCondition {
	return func(res EpochResult) string {
		if res.Epoch >= limit {
			return fmt.Sprintf("epoch limit %d reached", limit)
		}
		return ""
	}
}

// TargetCost stops once the cost reaches target.
func TargetCost(target float64) StopCondition {
	return func(res EpochResult) string {
		if res.Cost <= target {
			return fmt.Sprintf("cost %g at or below target %g", res.Cost, target)
		}
		return ""
	}
}

// SteadyCost stops when the cost rounded to decimals places has not changed
// for epochs consecutive epochs.
func SteadyCost(decimals, epochs int) StopCondition {
	var (
		last   decimal.Decimal
		streak int
		seen   bool
	)
	return func(res EpochResult) string {
		cur := decimal.NewFromFloat(res.Cost).Round(int32(decimals))
		if seen && cur.Equal(last) {
			streak++
		} else {
			streak = 0
		}
		last, seen = cur, true
		if streak >= epochs {
			return fmt.Sprintf("cost steady at %s for %d epochs", cur.String(), streak)
		}
		return ""
	}
}

// Build returns the configured rules in a fixed order.
func (s StopConditions) Build() []StopCondition {
	var out []StopCondition
	if s.EpochLimit > 0 {
		out = append(out, EpochLimit(s.EpochLimit))
	}
	if s.TargetCost != nil {
		out = append(out, TargetCost(*s.TargetCost))
	}
	if s.SteadyEpochs > 0 {
		out = append(out, SteadyCost(s.SteadyDecimals, s.SteadyEpochs))
	}
	return out
}

// limitOnly reports whether reason is the epoch limit alone while a cost
// based rule was also configured.
func (s StopConditions) limitOnly(res EpochResult, reason string) bool {
	if s.EpochLimit == 0 || (s.TargetCost == nil && s.SteadyEpochs == 0) {
		return false
	}
	return reason == EpochLimit(s.EpochLimit)(res)
}

// checkStop evaluates every rule so stateful rules see every epoch, and
// joins the reasons of the ones that hold.
func checkStop(conds []StopCondition, res EpochResult) string {
	var reasons []string
	for _, c := range conds {
		if r := c(res); r != "" {
			reasons = append(reasons, r)
		}
	}
	return strings.Join(reasons, "; ")
}
