package stats

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/YuminosukeSato/seriesml/core/keytag"
	"github.com/YuminosukeSato/seriesml/core/record"
	"github.com/YuminosukeSato/seriesml/core/value"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// Results is aggregator output flattened to encoded key → value, e.g.
// "x-SUM", "x-SQ-SUM", "a+b-PRD-CNT".
type Results map[string]value.Value

// NewResults flattens aggregator output records.
func NewResults(records []record.Record) (Results, error) {
	res := make(Results)
	for _, rec := range records {
		if _, err := keytag.Split(rec.Key); err != nil {
			return nil, err
		}
		for _, f := range rec.Fields {
			m, ok := keytag.MetricForLabel(f.Name)
			if !ok {
				return nil, errors.NewKeyFormatError(rec.Key, "unknown statistic label "+f.Name)
			}
			res[keytag.Tag(rec.Key, m)] = f.Value
		}
	}
	return res, nil
}

// Get returns the value stored under an encoded key.
func (r Results) Get(key string) (value.Value, bool) {
	v, ok := r[key]
	return v, ok
}

// Lookup returns the value of field tagged with metrics in order, e.g.
// Lookup("x", SQ, SUM) reads "x-SQ-SUM".
func (r Results) Lookup(field string, metrics ...keytag.Metric) (value.Value, error) {
	return r.lookupKey(field, keytag.Name(field), metrics...)
}

func (r Results) lookupKey(field, key string, metrics ...keytag.Metric) (value.Value, error) {
	for _, m := range metrics {
		key = keytag.Tag(key, m)
	}
	v, ok := r[key]
	if !ok {
		return value.Value{}, errors.NewMissingStatisticError(field, key)
	}
	return v, nil
}

// Count returns the observation count of field.
func (r Results) Count(field string) (int64, error) {
	v, err := r.Lookup(field, keytag.CNT)
	if err != nil {
		return 0, err
	}
	if v.Kind() != value.Int64 {
		return 0, errors.NewTypeMismatchError("Count", v.Kind().String(), value.Int64.String())
	}
	return v.Int64(), nil
}

// Fields lists the decoded names of every standard field, sorted.
func (r Results) Fields() []string {
	seen := make(map[string]bool)
	for key := range r {
		p, err := keytag.Split(key)
		if err != nil || p.Paired() || len(p.Metrics) != 1 {
			continue
		}
		seen[p.Base] = true
	}
	fields := make([]string, 0, len(seen))
	for f := range seen {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// ReadResults parses aggregator output text. kindOf returns the configured
// kind of a base field; counts are always int64.
func ReadResults(r io.Reader, kindOf func(field string) value.Kind) (Results, error) {
	var records []record.Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, _, _ := strings.Cut(line, "\t")
		parts, err := keytag.Split(strings.TrimSpace(key))
		if err != nil {
			return nil, err
		}
		p := record.NewLineParser(map[string]value.Kind{
			keytag.CNT.Label():  value.Int64,
			keytag.ZERO.Label(): value.Int64,
		}, kindOf(parts.Base))
		rec, err := p.Parse(line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read statistics")
	}
	return NewResults(records)
}
