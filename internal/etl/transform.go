package etl

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"go.uber.org/zap"
)

// ── Transformer ────────────────────────────────────────────
// Transformers take a table and return a new one. The input is never
// modified, so a failed stage leaves the caller's table as it was.

// Transformer processes a whole table.
type Transformer interface {
	Transform(*Table) (*Table, error)
}

// TransformerFunc adapts a plain function to the Transformer interface.
type TransformerFunc func(*Table) (*Table, error)

func (f TransformerFunc) Transform(t *Table) (*Table, error) { return f(t) }

// Stage is a named step of the pipeline.
type Stage struct {
	Name        string
	Transformer Transformer
}

// ApplyTransformers runs the stages in order. Every stage must keep the
// row count of its input.
func ApplyTransformers(t *Table, stages []Stage, log *zap.Logger) (*Table, error) {
	if log == nil {
		log = zap.NewNop()
	}
	for _, s := range stages {
		out, err := s.Transformer.Transform(t)
		if err != nil {
			return nil, err
		}
		if out.Len() != t.Len() {
			return nil, fmt.Errorf("stage %s changed row count from %d to %d", s.Name, t.Len(), out.Len())
		}
		log.Debug("stage complete",
			zap.String("stage", s.Name),
			zap.Int("rows", out.Len()),
			zap.Int("columns", len(out.Schema.Fields)))
		t = out
	}
	return t, nil
}

// ── Column names ───────────────────────────────────────────

// NormalizeColumnName lower-cases a raw header, trims whitespace and
// surrounding "?", and replaces spaces with underscores.
func NormalizeColumnName(name string) string {
	n := strings.ToLower(name)
	n = strings.TrimSpace(n)
	n = strings.Trim(n, "?")
	n = strings.TrimSpace(n)
	return strings.ReplaceAll(n, " ", "_")
}

// NormalizeColumnsTransform renames every column with NormalizeColumnName.
type NormalizeColumnsTransform struct{}

func (NormalizeColumnsTransform) Transform(t *Table) (*Table, error) {
	renamed := make(map[string]string, len(t.Schema.Fields))
	seen := make(map[string]string, len(t.Schema.Fields))
	for _, f := range t.Schema.Fields {
		n := NormalizeColumnName(f.Name)
		if prev, dup := seen[n]; dup {
			return nil, configErrorf("columns %q and %q both normalize to %q", prev, f.Name, n)
		}
		seen[n] = f.Name
		renamed[f.Name] = n
	}

	out := &Table{
		Schema:  Schema{Fields: make([]Field, len(t.Schema.Fields))},
		Records: make([]Record, len(t.Records)),
	}
	for i, f := range t.Schema.Fields {
		out.Schema.Fields[i] = Field{Name: renamed[f.Name], Type: f.Type}
	}
	for i, r := range t.Records {
		data := make(map[string]any, len(r.Data))
		for k, v := range r.Data {
			if n, ok := renamed[k]; ok {
				data[n] = v
			}
		}
		out.Records[i] = Record{Data: data}
	}
	return out, nil
}

// ── Dates ──────────────────────────────────────────────────

// IsTemporalColumn reports whether a normalized column name denotes a date
// or time.
func IsTemporalColumn(name string) bool {
	return strings.Contains(name, "date") || strings.Contains(name, "time")
}

// TemporalColumns returns the schema's temporal column names in order.
func TemporalColumns(s Schema) []string {
	var cols []string
	for _, f := range s.Fields {
		if IsTemporalColumn(f.Name) {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

// DateCastTransform converts the given columns to time.Time in UTC.
// Missing cells stay missing; anything unparseable fails the stage.
type DateCastTransform struct {
	Fields []string
}

func (d *DateCastTransform) Transform(t *Table) (*Table, error) {
	for _, f := range d.Fields {
		if !t.HasColumn(f) {
			return nil, &MissingColumnError{Stage: "dates", Column: f}
		}
	}

	out := t.Clone()
	for _, f := range d.Fields {
		for i := range out.Records {
			v, err := parseDate(out.Records[i].Data[f])
			if err != nil {
				return nil, &CoercionError{
					Column: f,
					Row:    i + 1,
					Value:  cellText(out.Records[i].Data[f]),
					Target: FieldDatetime,
					Err:    err,
				}
			}
			out.Records[i].Data[f] = v
		}
		out.setField(f, FieldDatetime)
	}
	return out, nil
}

func parseDate(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x.UTC(), nil
	}
	s := strings.TrimSpace(cellText(v))
	if s == "" {
		return nil, nil
	}
	ts, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil, err
	}
	return ts.UTC(), nil
}

// ── Projection ─────────────────────────────────────────────

// SelectTransform keeps exactly the listed fields, in the listed order.
type SelectTransform struct {
	Fields []string
}

func (s *SelectTransform) Transform(t *Table) (*Table, error) {
	if len(s.Fields) == 0 {
		return nil, configErrorf("select: no columns requested")
	}
	fields := make([]Field, 0, len(s.Fields))
	seen := make(map[string]bool, len(s.Fields))
	for _, name := range s.Fields {
		if seen[name] {
			return nil, configErrorf("select: column %q requested twice", name)
		}
		seen[name] = true
		i := t.Schema.Index(name)
		if i < 0 {
			return nil, &MissingColumnError{Stage: "select", Column: name}
		}
		fields = append(fields, t.Schema.Fields[i])
	}

	out := &Table{
		Schema:  Schema{Fields: fields},
		Records: make([]Record, len(t.Records)),
	}
	for i, r := range t.Records {
		filtered := make(map[string]any, len(s.Fields))
		for _, f := range s.Fields {
			filtered[f] = r.Data[f]
		}
		out.Records[i] = Record{Data: filtered}
	}
	return out, nil
}

// Project returns a table restricted to columns, in that order.
func Project(t *Table, columns []string) (*Table, error) {
	return (&SelectTransform{Fields: columns}).Transform(t)
}
