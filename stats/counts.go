package stats

import (
	"io"

	"github.com/YuminosukeSato/seriesml/core/keytag"
	"github.com/YuminosukeSato/seriesml/core/record"
	"github.com/YuminosukeSato/seriesml/core/value"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// CountRecords extracts "field-CNT<TAB>count:N" lines for every standard key
// of the aggregator output.
func CountRecords(records []record.Record) []record.Record {
	var out []record.Record
	for _, rec := range records {
		if !keytag.IsStandard(rec.Key) {
			continue
		}
		n, ok := rec.Get(keytag.CNT.Label())
		if !ok {
			continue
		}
		out = append(out, record.New(keytag.Tag(rec.Key, keytag.CNT),
			record.Field{Name: keytag.CNT.Label(), Value: n}))
	}
	return out
}

// WriteCounts writes the counts file consumed by the trainer.
func WriteCounts(w io.Writer, records []record.Record) error {
	return record.Write(w, CountRecords(records))
}

// ReadCounts loads a counts file into decoded field name → count.
func ReadCounts(r io.Reader) (map[string]int64, error) {
	p := record.NewLineParser(nil, value.Int64)
	recs, err := record.Read(r, p)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(recs))
	for _, rec := range recs {
		parts, err := keytag.Split(rec.Key)
		if err != nil {
			return nil, err
		}
		if parts.Paired() || len(parts.Metrics) != 1 || parts.Metric() != keytag.CNT {
			return nil, errors.NewKeyFormatError(rec.Key, "expected field-CNT")
		}
		v, ok := rec.Get(keytag.CNT.Label())
		if !ok {
			return nil, errors.NewMissingStatisticError(parts.Base, rec.Key)
		}
		counts[parts.Base] = v.Int64()
	}
	return counts, nil
}
