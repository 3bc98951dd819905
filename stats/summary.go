package stats

import (
	"strings"

	"github.com/YuminosukeSato/seriesml/core/keytag"
	"github.com/YuminosukeSato/seriesml/core/record"
	"github.com/YuminosukeSato/seriesml/core/value"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// Statistic is a derived statistic a Summary can compute.
type Statistic string

const (
	Mean        Statistic = "MEAN"
	Variance    Statistic = "VARIANCE"
	StdDev      Statistic = "STDDEV"
	Min         Statistic = "MIN"
	Max         Statistic = "MAX"
	Covariance  Statistic = "COVARIANCE"
	Correlation Statistic = "CORRELATION"
)

// ParseStatistic accepts any case.
func ParseStatistic(s string) (Statistic, error) {
	st := Statistic(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case Mean, Variance, StdDev, Min, Max, Covariance, Correlation:
		return st, nil
	}
	return "", errors.NewValidationError("statistic", "unknown statistic", s)
}

// Label is the lower-case output label.
func (s Statistic) Label() string { return strings.ToLower(string(s)) }

// Result is one computed statistic.
type Result struct {
	Stat  Statistic
	Value value.Value
}

// Summary derives statistics from aggregator results. Every formula works on
// the kind of the stored sums, so float64, big integer and big decimal fields
// are handled alike.
type Summary struct {
	results  Results
	rounding value.Rounding
}

// NewSummary wraps aggregator results.
func NewSummary(res Results, r value.Rounding) *Summary {
	return &Summary{results: res, rounding: r}
}

// Compute returns the requested single-field statistics in request order.
// With no statistics requested it computes mean, variance and stddev.
func (s *Summary) Compute(field string, stats ...Statistic) ([]Result, error) {
	if len(stats) == 0 {
		stats = []Statistic{Mean, Variance, StdDev}
	}
	out := make([]Result, 0, len(stats))
	for _, st := range stats {
		var (
			v   value.Value
			err error
		)
		switch st {
		case Mean:
			v, err = s.Mean(field)
		case Variance:
			v, err = s.Variance(field)
		case StdDev:
			v, err = s.StdDev(field)
		case Min:
			v, err = s.results.Lookup(field, keytag.MIN)
		case Max:
			v, err = s.results.Lookup(field, keytag.MAX)
		default:
			err = errors.NewValueError("Summary.Compute", string(st)+" needs two fields")
		}
		if err != nil {
			return nil, errors.Wrapf(err, "%s of %s", st, field)
		}
		out = append(out, Result{Stat: st, Value: v})
	}
	return out, nil
}

// ComputePair returns covariance and/or correlation of two fields.
func (s *Summary) ComputePair(a, b string, stats ...Statistic) ([]Result, error) {
	if len(stats) == 0 {
		stats = []Statistic{Covariance, Correlation}
	}
	out := make([]Result, 0, len(stats))
	for _, st := range stats {
		var (
			v   value.Value
			err error
		)
		switch st {
		case Covariance:
			v, err = s.Covariance(a, b)
		case Correlation:
			v, err = s.Correlation(a, b)
		default:
			err = errors.NewValueError("Summary.ComputePair", string(st)+" is a single-field statistic")
		}
		if err != nil {
			return nil, errors.Wrapf(err, "%s of %s and %s", st, a, b)
		}
		out = append(out, Result{Stat: st, Value: v})
	}
	return out, nil
}

// meanOf divides the SUM under key by its CNT.
func (s *Summary) meanOf(field, key string) (value.Value, error) {
	sum, err := s.results.lookupKey(field, key, keytag.SUM)
	if err != nil {
		return value.Value{}, err
	}
	cnt, err := s.results.lookupKey(field, key, keytag.CNT)
	if err != nil {
		return value.Value{}, err
	}
	if cnt.Kind() != value.Int64 {
		return value.Value{}, errors.NewTypeMismatchError("mean", cnt.Kind().String(), value.Int64.String())
	}
	n, err := value.FromInt64(cnt.Int64(), sum.Kind())
	if err != nil {
		return value.Value{}, err
	}
	return sum.DivRound(n, s.rounding)
}

// Mean is sum / count.
func (s *Summary) Mean(field string) (value.Value, error) {
	return s.meanOf(field, keytag.Name(field))
}

// Variance is sumOfSquares / count − mean², clamped at zero.
func (s *Summary) Variance(field string) (value.Value, error) {
	name := keytag.Name(field)
	mean, err := s.meanOf(field, name)
	if err != nil {
		return value.Value{}, err
	}
	meanSq, err := s.meanOf(field, keytag.Tag(name, keytag.SQ))
	if err != nil {
		return value.Value{}, err
	}
	if meanSq.Kind() != mean.Kind() {
		return value.Value{}, errors.NewTypeMismatchError("variance", mean.Kind().String(), meanSq.Kind().String())
	}
	sq, err := mean.Mul(mean)
	if err != nil {
		return value.Value{}, err
	}
	v, err := meanSq.Sub(sq)
	if err != nil {
		return value.Value{}, err
	}
	// rounding of the two means can leave a tiny negative remainder
	if v.Sign() < 0 {
		return value.Zero(v.Kind()), nil
	}
	return v, nil
}

// StdDev is the square root of Variance.
func (s *Summary) StdDev(field string) (value.Value, error) {
	v, err := s.Variance(field)
	if err != nil {
		return value.Value{}, err
	}
	return v.Sqrt(s.rounding)
}

func pairKey(a, b string) string {
	if !keytag.Canonical(a, b) {
		a, b = b, a
	}
	return keytag.Tag(keytag.Pair(keytag.Name(a), keytag.Name(b)), keytag.PRD)
}

// Covariance is E[ab] − E[a]·E[b]. E[ab] is taken over the records where both
// fields were present.
func (s *Summary) Covariance(a, b string) (value.Value, error) {
	if a == b {
		return s.Variance(a)
	}
	eab, err := s.meanOf(a+","+b, pairKey(a, b))
	if err != nil {
		return value.Value{}, err
	}
	ea, err := s.Mean(a)
	if err != nil {
		return value.Value{}, err
	}
	eb, err := s.Mean(b)
	if err != nil {
		return value.Value{}, err
	}
	prod, err := ea.Mul(eb)
	if err != nil {
		return value.Value{}, err
	}
	return eab.Sub(prod)
}

// Correlation is Covariance / (σa·σb).
func (s *Summary) Correlation(a, b string) (value.Value, error) {
	cov, err := s.Covariance(a, b)
	if err != nil {
		return value.Value{}, err
	}
	sa, err := s.StdDev(a)
	if err != nil {
		return value.Value{}, err
	}
	sb, err := s.StdDev(b)
	if err != nil {
		return value.Value{}, err
	}
	denom, err := sa.Mul(sb)
	if err != nil {
		return value.Value{}, err
	}
	return cov.DivRound(denom, s.rounding)
}

// FormatSummary renders results as "field<TAB>mean:…, variance:…".
func FormatSummary(field string, results []Result) string {
	fields := make([]record.Field, len(results))
	for i, r := range results {
		fields[i] = record.Field{Name: r.Stat.Label(), Value: r.Value}
	}
	return record.Format(field, fields)
}
