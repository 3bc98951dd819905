package record

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/YuminosukeSato/seriesml/core/value"
	"github.com/YuminosukeSato/seriesml/pkg/errors"
)

// Parser turns one input line into a Record.
type Parser interface {
	Parse(line string) (Record, error)
}

// LineParser parses the tab/colon layout. Each field is converted to the
// kind configured for its name, or DefaultKind.
type LineParser struct {
	Kinds       map[string]value.Kind
	DefaultKind value.Kind
}

// NewLineParser creates a LineParser.
func NewLineParser(kinds map[string]value.Kind, defaultKind value.Kind) *LineParser {
	return &LineParser{Kinds: kinds, DefaultKind: defaultKind}
}

// KindOf returns the kind configured for field.
func (p *LineParser) KindOf(field string) value.Kind {
	if k, ok := p.Kinds[field]; ok {
		return k
	}
	return p.DefaultKind
}

// Parse implements Parser. A line without a key separator is an error;
// malformed pairs are skipped with a warning and unparseable values become
// the kind default.
func (p *LineParser) Parse(line string) (Record, error) {
	key, body, ok := strings.Cut(strings.TrimRight(line, "\r\n"), keySep)
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return Record{}, errors.NewValueError("record.Parse", "missing key separator in line "+truncate(line))
	}

	rec := Record{Key: key}
	for _, pair := range strings.Split(body, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, raw, ok := strings.Cut(pair, fieldSep)
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			errors.Warn(errors.NewSkippedRecordWarning("parse", key, "malformed field "+pair))
			continue
		}
		rec.Fields = append(rec.Fields, Field{
			Name:  name,
			Value: value.ParseField(name, strings.TrimSpace(raw), p.KindOf(name)),
		})
	}
	return rec, nil
}

func truncate(s string) string {
	const limit = 64
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// Read parses every non-blank line of r.
func Read(r io.Reader, p Parser) ([]Record, error) {
	var records []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		rec, err := p.Parse(text)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", line)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read records")
	}
	return records, nil
}

// ReadFiles parses the named files in order.
func ReadFiles(p Parser, paths ...string) ([]Record, error) {
	var all []Record
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", path)
		}
		recs, err := Read(f, p)
		_ = f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
		all = append(all, recs...)
	}
	return all, nil
}

// Write renders records one per line.
func Write(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, r := range records {
		if _, err := bw.WriteString(r.String()); err != nil {
			return errors.Wrap(err, "write record")
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Wrap(err, "write record")
		}
	}
	return errors.Wrap(bw.Flush(), "flush records")
}
