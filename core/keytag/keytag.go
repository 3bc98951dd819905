// Package keytag encodes derived-metric keys so a flat key/value channel can
// carry many metrics per field.
//
// A key is a base field name, optionally paired with a second field name, and
// followed by zero or more metric suffixes:
//
//	x            standard key
//	x-SQ         squares of x
//	x-SQ-SUM     sum of the squares of x
//	a+b-PRD      products of a and b
//
// Field names containing the reserved characters are escaped by Name, so
// Split always recovers exactly the names and metrics that built the key.
package keytag

import (
	"strings"

	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// Metric is a derived-metric suffix.
type Metric string

// Metric vocabulary.
const (
	SUM  Metric = "SUM"
	SQ   Metric = "SQ"
	MIN  Metric = "MIN"
	MAX  Metric = "MAX"
	CNT  Metric = "CNT"
	ZERO Metric = "ZERO"
	MEAN Metric = "MEAN"
	PRD  Metric = "PRD"
	PDW  Metric = "PDW"
	PDB  Metric = "PDB"
	ERR  Metric = "ERR"
	YHAT Metric = "YHAT"
)

const (
	escapeChar = '\\'
	metricSep  = '-'
	pairSep    = '+'
)

var metrics = map[Metric]string{
	SUM:  "sum",
	SQ:   "sq",
	MIN:  "min",
	MAX:  "max",
	CNT:  "count",
	ZERO: "zero",
	MEAN: "mean",
	PRD:  "prd",
	PDW:  "pdw",
	PDB:  "pdb",
	ERR:  "err",
	YHAT: "yhat",
}

// Metrics returns the vocabulary in declaration order.
func Metrics() []Metric {
	return []Metric{SUM, SQ, MIN, MAX, CNT, ZERO, MEAN, PRD, PDW, PDB, ERR, YHAT}
}

// Valid reports whether m belongs to the vocabulary.
func (m Metric) Valid() bool {
	_, ok := metrics[m]
	return ok
}

// Label is the lower-case name used in text output ("count" for CNT).
func (m Metric) Label() string {
	if l, ok := metrics[m]; ok {
		return l
	}
	return strings.ToLower(string(m))
}

// MetricForLabel reverses Label.
func MetricForLabel(label string) (Metric, bool) {
	for m, l := range metrics {
		if l == label {
			return m, true
		}
	}
	return "", false
}

// Name encodes a raw field name as a key component. Names without reserved
// characters are returned unchanged.
func Name(field string) string {
	if !strings.ContainsAny(field, `\-+`) {
		return field
	}
	var b strings.Builder
	b.Grow(len(field) + 4)
	for _, r := range field {
		if r == escapeChar || r == metricSep || r == pairSep {
			b.WriteRune(escapeChar)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Unname reverses Name.
func Unname(component string) string {
	if !strings.ContainsRune(component, escapeChar) {
		return component
	}
	var b strings.Builder
	escaped := false
	for _, r := range component {
		if r == escapeChar && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// Tag appends a metric suffix to an encoded key.
func Tag(key string, m Metric) string {
	return key + string(metricSep) + string(m)
}

// Pair joins two encoded keys in the order given.
func Pair(k1, k2 string) string {
	return k1 + string(pairSep) + k2
}

// Canonical reports whether (f, g) is the canonical order for a product of
// two distinct fields. Exactly one of Canonical(f, g) and Canonical(g, f)
// holds when f != g.
func Canonical(f, g string) bool {
	return f < g
}

// Parts is a decoded key.
type Parts struct {
	Base    string
	Other   string
	Metrics []Metric
}

// Paired reports whether the key is a product key.
func (p Parts) Paired() bool { return p.Other != "" }

// Metric returns the outermost metric, or "" for an untagged key.
func (p Parts) Metric() Metric {
	if len(p.Metrics) == 0 {
		return ""
	}
	return p.Metrics[len(p.Metrics)-1]
}

// Key re-encodes the parts.
func (p Parts) Key() string {
	key := Name(p.Base)
	if p.Other != "" {
		key = Pair(key, Name(p.Other))
	}
	for _, m := range p.Metrics {
		key = Tag(key, m)
	}
	return key
}

// Split decodes a key built by Name, Pair and Tag.
func Split(key string) (Parts, error) {
	if key == "" {
		return Parts{}, errors.NewKeyFormatError(key, "empty key")
	}

	var (
		parts    Parts
		segment  strings.Builder
		sep      rune // separator that opened the current segment
		escaped  bool
		segments int
	)

	flush := func() error {
		s := segment.String()
		segment.Reset()
		switch {
		case segments == 0:
			if s == "" {
				return errors.NewKeyFormatError(key, "empty base name")
			}
			parts.Base = s
		case sep == pairSep:
			if parts.Other != "" || len(parts.Metrics) > 0 {
				return errors.NewKeyFormatError(key, "pair must follow the base name")
			}
			if s == "" {
				return errors.NewKeyFormatError(key, "empty paired name")
			}
			parts.Other = s
		default:
			m := Metric(s)
			if !m.Valid() {
				return errors.NewKeyFormatError(key, "unknown metric "+s)
			}
			parts.Metrics = append(parts.Metrics, m)
		}
		segments++
		return nil
	}

	for _, r := range key {
		if escaped {
			segment.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case escapeChar:
			escaped = true
		case metricSep, pairSep:
			if err := flush(); err != nil {
				return Parts{}, err
			}
			sep = r
		default:
			segment.WriteRune(r)
		}
	}
	if escaped {
		return Parts{}, errors.NewKeyFormatError(key, "dangling escape")
	}
	if err := flush(); err != nil {
		return Parts{}, err
	}
	return parts, nil
}

// IsStandard reports whether key is a plain field name: no unescaped pair
// separator and no known metric suffix. A raw name such as "max-temp" whose
// suffix is not a metric is standard. Only standard keys carry MIN and MAX.
func IsStandard(key string) bool {
	if key == "" {
		return false
	}
	var (
		segment strings.Builder
		tagged  bool
		escaped bool
	)
	for _, r := range key {
		if escaped {
			segment.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case escapeChar:
			escaped = true
		case pairSep:
			return false
		case metricSep:
			if tagged && Metric(segment.String()).Valid() {
				return false
			}
			segment.Reset()
			tagged = true
		default:
			segment.WriteRune(r)
		}
	}
	if escaped {
		return false
	}
	return !tagged || !Metric(segment.String()).Valid()
}
